// Package rbac 角色权限表
//
// 角色与权限都是封闭枚举；每个角色拥有一组手工维护的固定权限。
// 权限判定是 (role, permission) 的纯函数，没有按用户的覆盖，
// 也不支持运行时注册权限。修改权限表需要改代码并重新部署。
package rbac

import (
	"sort"
)

// Role 用户角色
type Role string

const (
	RoleSuperAdmin  Role = "super_admin"
	RoleAdmin       Role = "admin"
	RoleModerator   Role = "moderator"
	RoleContributor Role = "contributor"
	RoleUser        Role = "user"
	RoleBanned      Role = "banned"
)

// Permission 权限
type Permission string

const (
	ManagePages    Permission = "manage_pages"
	ManageContent  Permission = "manage_content"
	ManageTools    Permission = "manage_tools"
	ManageDocs     Permission = "manage_docs"
	ManageSnippets Permission = "manage_snippets"
	ManageUsers    Permission = "manage_users"
	BanUsers       Permission = "ban_users"
	ViewLogs       Permission = "view_logs"
	ManageSettings Permission = "manage_settings"
	AccessAdmin    Permission = "access_admin"
)

var allRoles = []Role{
	RoleSuperAdmin,
	RoleAdmin,
	RoleModerator,
	RoleContributor,
	RoleUser,
	RoleBanned,
}

var allPermissions = []Permission{
	ManagePages,
	ManageContent,
	ManageTools,
	ManageDocs,
	ManageSnippets,
	ManageUsers,
	BanUsers,
	ViewLogs,
	ManageSettings,
	AccessAdmin,
}

// rolePermissions 手工维护的角色权限表，super_admin 不在表中（隐式拥有全部权限）
var rolePermissions = map[Role]map[Permission]struct{}{
	RoleAdmin: set(
		AccessAdmin,
		ManagePages,
		ManageContent,
		ManageTools,
		ManageDocs,
		ManageSnippets,
		ManageUsers,
		BanUsers,
		ViewLogs,
	),
	RoleModerator: set(
		AccessAdmin,
		ManageContent,
		ManageSnippets,
		BanUsers,
		ViewLogs,
	),
	RoleContributor: set(
		AccessAdmin,
		ManageContent,
		ManageDocs,
	),
	RoleUser:   set(),
	RoleBanned: set(),
}

func set(perms ...Permission) map[Permission]struct{} {
	m := make(map[Permission]struct{}, len(perms))
	for _, p := range perms {
		m[p] = struct{}{}
	}
	return m
}

// HasPermission 判断角色是否拥有权限；未知或空角色返回 false
func HasPermission(role Role, perm Permission) bool {
	if role == RoleSuperAdmin {
		return perm.Valid()
	}
	perms, ok := rolePermissions[role]
	if !ok {
		return false
	}
	_, ok = perms[perm]
	return ok
}

// CanAccessAdmin 等价于 HasPermission(role, AccessAdmin)
func CanAccessAdmin(role Role) bool {
	return HasPermission(role, AccessAdmin)
}

// Permissions 返回角色的权限列表（已排序的副本）
func Permissions(role Role) []Permission {
	var out []Permission
	for _, p := range allPermissions {
		if HasPermission(role, p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// AllRoles 返回全部角色（按权限从高到低）
func AllRoles() []Role {
	return append([]Role(nil), allRoles...)
}

// AllPermissions 返回全部权限
func AllPermissions() []Permission {
	return append([]Permission(nil), allPermissions...)
}

// ParseRole 解析角色字符串，未知角色返回 false
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	return r, r.Valid()
}

// Valid 是否为已知角色
func (r Role) Valid() bool {
	for _, known := range allRoles {
		if r == known {
			return true
		}
	}
	return false
}

// Valid 是否为已知权限
func (p Permission) Valid() bool {
	for _, known := range allPermissions {
		if p == known {
			return true
		}
	}
	return false
}
