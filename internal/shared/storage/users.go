package storage

import (
	"context"
	"strings"
	"time"

	"codefix-admin/internal/shared/model"
)

// UserRepository 基于 DocumentStore 的用户存储
type UserRepository struct {
	docs DocumentStore
}

// NewUserRepository 创建用户存储
func NewUserRepository(docs DocumentStore) *UserRepository {
	return &UserRepository{docs: docs}
}

// CreateUser 创建用户，邮箱重复返回 ErrDuplicate
func (r *UserRepository) CreateUser(ctx context.Context, user *model.User) error {
	user.Email = strings.ToLower(user.Email)
	existing, err := r.GetUserByEmail(ctx, user.Email)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrDuplicate
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = now
	}
	doc, err := Encode(user)
	if err != nil {
		return err
	}
	id, err := r.docs.Insert(ctx, ColUsers, doc)
	if err != nil {
		return err
	}
	user.ID = id
	return nil
}

// GetUserByEmail 按邮箱查找，不存在返回 (nil, nil)
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	docs, err := r.docs.Find(ctx, ColUsers, Query{Limit: 1}.Where("email", strings.ToLower(email)))
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return Decode[model.User](docs[0])
}

// GetUserByID 按 ID 查找，不存在返回 (nil, nil)
func (r *UserRepository) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	doc, err := r.docs.Get(ctx, ColUsers, id)
	if err != nil {
		return nil, err
	}
	return Decode[model.User](doc)
}

// UpdateUserPassword 更新密码哈希
func (r *UserRepository) UpdateUserPassword(ctx context.Context, id, passwordHash string) error {
	return r.docs.Update(ctx, ColUsers, id, Document{
		"password_hash": passwordHash,
		"updated_at":    time.Now().UTC(),
	})
}

// UpdateUserStatus 更新账号状态（封禁/解封）
func (r *UserRepository) UpdateUserStatus(ctx context.Context, id string, status model.UserStatus) error {
	return r.docs.Update(ctx, ColUsers, id, Document{
		"status":     string(status),
		"updated_at": time.Now().UTC(),
	})
}

// ListUsers 按创建时间倒序列出用户
func (r *UserRepository) ListUsers(ctx context.Context) ([]*model.User, error) {
	docs, err := r.docs.Find(ctx, ColUsers, Query{OrderBy: "created_at", Descending: true})
	if err != nil {
		return nil, err
	}
	return DecodeAll[model.User](docs), nil
}
