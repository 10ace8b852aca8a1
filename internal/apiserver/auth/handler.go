package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"codefix-admin/internal/shared/eventbus"
	"codefix-admin/internal/shared/model"
	"codefix-admin/internal/shared/rbac"
	"codefix-admin/internal/shared/storage"
	"codefix-admin/pkg/logging"
)

// UserStore 用户存储接口
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	UpdateUserPassword(ctx context.Context, id, passwordHash string) error
	UpdateUserStatus(ctx context.Context, id string, status model.UserStatus) error
	ListUsers(ctx context.Context) ([]*model.User, error)
}

// HandlerConfig 认证处理器配置
type HandlerConfig struct {
	LoginRatePerMinute float64
	LoginBurst         int
}

// Handler 认证 HTTP 处理器
type Handler struct {
	store    UserStore
	sessions *SessionManager
	perms    *PermissionChecker
	bus      eventbus.ActivityBus
	limiter  *loginLimiter
	log      *logging.Logger

	// OnLogin 登录结果回调（success / failure / throttled），用于指标
	OnLogin func(result string)
}

// NewHandler 创建认证处理器
func NewHandler(store UserStore, sessions *SessionManager, bus eventbus.ActivityBus, cfg HandlerConfig, log *logging.Logger) *Handler {
	if log == nil {
		log = logging.Nop()
	}
	if bus == nil {
		bus = eventbus.NewNoOpEventBus()
	}
	return &Handler{
		store:    store,
		sessions: sessions,
		perms:    NewPermissionChecker(sessions, store, log),
		bus:      bus,
		limiter:  newLoginLimiter(cfg.LoginRatePerMinute, cfg.LoginBurst),
		log:      log.Named("auth"),
	}
}

// Permissions 返回权限检查器（供其它领域包保护路由）
func (h *Handler) Permissions() *PermissionChecker {
	return h.perms
}

// RegisterRoutes 注册认证相关路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/login", h.Login)
	mux.HandleFunc("POST /api/auth/logout", h.Logout)
	mux.HandleFunc("GET /api/auth/me", h.Me)
	mux.HandleFunc("PUT /api/auth/password", h.ChangePassword)

	mux.HandleFunc("GET /api/admin/users", h.perms.Require(rbac.ManageUsers, h.ListUsers))
	mux.HandleFunc("POST /api/admin/users/{id}/ban", h.perms.Require(rbac.BanUsers, h.BanUser))
	mux.HandleFunc("POST /api/admin/users/{id}/unban", h.perms.Require(rbac.BanUsers, h.UnbanUser))
}

// ============================================================================
// 请求/响应类型
// ============================================================================

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type meResponse struct {
	UserID    string            `json:"userId"`
	ExpiresAt time.Time         `json:"expiresAt"`
	User      *model.PublicUser `json:"user,omitempty"`
}

// ============================================================================
// Handlers
// ============================================================================

// Login 用户登录
//
// 凭据错误、账号禁用、角色为 banned 都返回同一个 401，不区分原因。
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	ip := ClientIP(r)
	if !h.limiter.allow(ip) {
		h.observe("throttled")
		w.Header().Set("Retry-After", "60")
		writeError(w, http.StatusTooManyRequests, "too many login attempts")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	log := h.log.WithContext(r.Context())
	user, err := h.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		log.Error("login lookup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == nil || !CheckPassword(req.Password, user.PasswordHash) ||
		user.Status == model.UserStatusDisabled || user.Role == rbac.RoleBanned {
		h.observe("failure")
		log.Info("login rejected", zap.String("client_ip", ip))
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	if _, err := h.sessions.CreateSession(w, user.ID); err != nil {
		log.Error("create session failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.observe("success")
	log.Info("user logged in", zap.String("user_id", user.ID))
	h.publish(r.Context(), "auth.login", user.ID, user.ID)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": user.Public()})
}

// Logout 删除会话 Cookie
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if sess := h.sessions.VerifySession(r); sess != nil {
		h.publish(r.Context(), "auth.logout", sess.UserID, sess.UserID)
	}
	h.sessions.DeleteSession(w)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Me 返回当前会话的用户 ID；无会话返回 401
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.VerifySession(r)
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	resp := meResponse{UserID: sess.UserID, ExpiresAt: sess.ExpiresAt}
	if user, err := h.store.GetUserByID(r.Context(), sess.UserID); err == nil && user != nil {
		resp.User = user.Public()
	}
	writeJSON(w, http.StatusOK, resp)
}

// ChangePassword 修改密码
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.VerifySession(r)
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "old_password and new_password are required")
		return
	}
	if len(req.NewPassword) < 8 {
		writeError(w, http.StatusBadRequest, "new password must be at least 8 characters")
		return
	}

	user, err := h.store.GetUserByID(r.Context(), sess.UserID)
	if err != nil || user == nil || !CheckPassword(req.OldPassword, user.PasswordHash) {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	hash, err := HashPassword(req.NewPassword)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if err := h.store.UpdateUserPassword(r.Context(), user.ID, hash); err != nil {
		h.log.Error("update password failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to update password")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ListUsers 列出用户（manage_users）
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		h.log.Error("list users failed", zap.Error(err))
		users = nil
	}
	out := make([]*model.PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	writeJSON(w, http.StatusOK, out)
}

// BanUser 禁用账号（ban_users）
func (h *Handler) BanUser(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, model.UserStatusDisabled, "user.banned")
}

// UnbanUser 恢复账号（ban_users）
func (h *Handler) UnbanUser(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, model.UserStatusActive, "user.unbanned")
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request, status model.UserStatus, event string) {
	id := r.PathValue("id")
	actor := UserFromContext(r.Context())
	if actor != nil && actor.ID == id {
		writeJSON(w, http.StatusBadRequest, model.Fail("cannot change your own status"))
		return
	}
	target, err := h.store.GetUserByID(r.Context(), id)
	if err == nil && target != nil && target.Role == rbac.RoleSuperAdmin {
		writeJSON(w, http.StatusForbidden, model.Fail("cannot change a super admin"))
		return
	}
	if err := h.store.UpdateUserStatus(r.Context(), id, status); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, model.Fail("user not found"))
			return
		}
		h.log.Error("update user status failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, model.Fail("failed to update user"))
		return
	}
	actorID := ""
	if actor != nil {
		actorID = actor.ID
	}
	h.publish(r.Context(), event, id, actorID)
	writeJSON(w, http.StatusOK, model.OK(id))
}

func (h *Handler) observe(result string) {
	if h.OnLogin != nil {
		h.OnLogin(result)
	}
}

func (h *Handler) publish(ctx context.Context, typ, entityID, actorID string) {
	err := h.bus.PublishActivity(ctx, &eventbus.ActivityEvent{
		Type:       typ,
		Collection: storage.ColUsers,
		EntityID:   entityID,
		ActorID:    actorID,
	})
	if err != nil {
		h.log.Warn("publish activity failed", zap.String("type", typ), zap.Error(err))
	}
}

// ============================================================================
// Admin Bootstrap
// ============================================================================

// EnsureAdminUser 确保首个管理员用户存在（启动时调用）
//
// 取白名单中的第一个邮箱；该用户不存在且配置了密码时创建为 super_admin。
func EnsureAdminUser(ctx context.Context, store UserStore, adminEmails []string, adminPassword string, log *logging.Logger) error {
	if len(adminEmails) == 0 || adminPassword == "" {
		return nil
	}
	if log == nil {
		log = logging.Nop()
	}
	email := strings.ToLower(adminEmails[0])

	existing, err := store.GetUserByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("check admin user: %w", err)
	}
	if existing != nil {
		log.Info("admin user already exists", zap.String("email", email), zap.String("user_id", existing.ID))
		return nil
	}

	hash, err := HashPassword(adminPassword)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	now := time.Now().UTC()
	user := &model.User{
		ID:           "usr-" + storage.NewID(),
		Email:        email,
		Username:     "Admin",
		PasswordHash: hash,
		Role:         rbac.RoleSuperAdmin,
		Status:       model.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := store.CreateUser(ctx, user); err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}
	log.Info("created admin user", zap.String("email", email), zap.String("user_id", user.ID))
	return nil
}

// ============================================================================
// 工具函数
// ============================================================================

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
