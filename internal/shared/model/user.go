package model

import (
	"time"

	"codefix-admin/internal/shared/rbac"
)

// UserStatus 用户状态
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusDisabled UserStatus = "disabled"
)

// User 用户（账号由认证后端持有，角色只能通过管理操作修改）
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"password_hash,omitempty"`
	Role         rbac.Role  `json:"role"`
	Status       UserStatus `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// PublicUser 对外展示的用户信息（不含密码哈希）
type PublicUser struct {
	ID          string            `json:"id"`
	Email       string            `json:"email"`
	Username    string            `json:"username"`
	Role        rbac.Role         `json:"role"`
	Status      UserStatus        `json:"status"`
	Permissions []rbac.Permission `json:"permissions"`
	CreatedAt   time.Time         `json:"created_at"`
}

// Public 转换为对外展示结构
func (u *User) Public() *PublicUser {
	if u == nil {
		return nil
	}
	perms := rbac.Permissions(u.Role)
	if perms == nil {
		perms = []rbac.Permission{}
	}
	return &PublicUser{
		ID:          u.ID,
		Email:       u.Email,
		Username:    u.Username,
		Role:        u.Role,
		Status:      u.Status,
		Permissions: perms,
		CreatedAt:   u.CreatedAt,
	}
}
