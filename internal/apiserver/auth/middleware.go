package auth

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"codefix-admin/internal/shared/model"
	"codefix-admin/internal/shared/rbac"
	"codefix-admin/pkg/logging"
)

// 后台路径
const (
	AdminPrefix   = "/admin"
	LoginPath     = "/admin/login"
	DashboardPath = "/admin/dashboard"
)

func isAdminPath(path string) bool {
	return path == AdminPrefix || strings.HasPrefix(path, AdminPrefix+"/")
}

// EdgeMiddleware 后台页面渲染前的会话检查
//
// 只确认"存在有效会话"，不检查角色（角色由 Guard 负责）：
//   - 受保护路径无有效会话：307 到登录页
//   - 登录页已有有效会话：307 到仪表盘
//   - 其它路径原样放行
func EdgeMiddleware(sessions *SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isAdminPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			sess := sessions.VerifySession(r)
			if r.URL.Path == LoginPath {
				if sess != nil {
					http.Redirect(w, r, DashboardPath, http.StatusTemporaryRedirect)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			if sess == nil {
				http.Redirect(w, r, LoginPath, http.StatusTemporaryRedirect)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}

// RequireSession API 会话检查，失败统一返回 401
func RequireSession(sessions *SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := sessions.VerifySession(r)
			if sess == nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			ctx := WithSession(r.Context(), sess)
			ctx = context.WithValue(ctx, logging.UserIDKey, sess.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PermissionChecker 按 RBAC 权限保护 /api/admin/* 路由
type PermissionChecker struct {
	sessions *SessionManager
	users    UserLookup
	log      *logging.Logger
}

// NewPermissionChecker 创建权限检查器
func NewPermissionChecker(sessions *SessionManager, users UserLookup, log *logging.Logger) *PermissionChecker {
	if log == nil {
		log = logging.Nop()
	}
	return &PermissionChecker{sessions: sessions, users: users, log: log.Named("rbac")}
}

// Require 要求当前用户角色拥有 perm
//
// 无会话、用户不存在或已禁用返回 401；角色缺少权限返回 403。
func (p *PermissionChecker) Require(perm rbac.Permission, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := p.sessions.VerifySession(r)
		if sess == nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		user, err := p.users.GetUserByID(r.Context(), sess.UserID)
		if err != nil {
			p.log.Error("lookup user failed", zap.String("user_id", sess.UserID), zap.Error(err))
			writeError(w, http.StatusServiceUnavailable, "service unavailable")
			return
		}
		if user == nil || user.Status == model.UserStatusDisabled {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if !rbac.HasPermission(user.Role, perm) {
			p.log.Info("permission denied",
				zap.String("user_id", user.ID),
				zap.String("role", string(user.Role)),
				zap.String("permission", string(perm)))
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		ctx := WithSession(r.Context(), sess)
		ctx = WithUser(ctx, user)
		ctx = context.WithValue(ctx, logging.UserIDKey, user.ID)
		next(w, r.WithContext(ctx))
	}
}
