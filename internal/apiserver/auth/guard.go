package auth

import (
	"context"
	"html/template"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"codefix-admin/internal/shared/model"
	"codefix-admin/pkg/logging"
)

// GuardState Admin 守卫状态
type GuardState int

const (
	GuardLoading GuardState = iota
	GuardUnauthenticated
	GuardUnauthorized
	GuardAuthorized
)

func (s GuardState) String() string {
	switch s {
	case GuardLoading:
		return "loading"
	case GuardUnauthenticated:
		return "unauthenticated"
	case GuardUnauthorized:
		return "unauthorized"
	case GuardAuthorized:
		return "authorized"
	}
	return "unknown"
}

// Allowlist 管理员邮箱白名单（ADMIN_EMAILS）
//
// 守卫用白名单判定"是否管理员"，与 RBAC 角色表相互独立；
// 两套机制没有统一，调整任何一方都不会影响另一方。
type Allowlist map[string]struct{}

// NewAllowlist 创建白名单，邮箱统一小写
func NewAllowlist(emails []string) Allowlist {
	a := make(Allowlist, len(emails))
	for _, e := range emails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			a[e] = struct{}{}
		}
	}
	return a
}

// IsAdmin 邮箱是否在白名单中
func (a Allowlist) IsAdmin(email string) bool {
	_, ok := a[strings.ToLower(strings.TrimSpace(email))]
	return ok
}

// EvaluateGuard 计算守卫状态
//
// resolveErr 非空表示身份尚未确定（后端暂不可用），此时保持 loading，不泄露受保护内容。
func EvaluateGuard(user *model.User, resolveErr error, allow Allowlist) GuardState {
	switch {
	case resolveErr != nil:
		return GuardLoading
	case user == nil:
		return GuardUnauthenticated
	case user.Status == model.UserStatusDisabled || !allow.IsAdmin(user.Email):
		return GuardUnauthorized
	default:
		return GuardAuthorized
	}
}

// UserLookup 守卫需要的用户查询
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// Guard 渲染后台页面前的角色检查
type Guard struct {
	sessions *SessionManager
	users    UserLookup
	allow    Allowlist
	log      *logging.Logger
}

// NewGuard 创建守卫
func NewGuard(sessions *SessionManager, users UserLookup, allow Allowlist, log *logging.Logger) *Guard {
	if log == nil {
		log = logging.Nop()
	}
	return &Guard{sessions: sessions, users: users, allow: allow, log: log.Named("guard")}
}

// Resolve 解析当前请求的守卫状态与用户
func (g *Guard) Resolve(r *http.Request) (GuardState, *model.User) {
	sess := SessionFromContext(r.Context())
	if sess == nil {
		sess = g.sessions.VerifySession(r)
	}
	if sess == nil {
		return GuardUnauthenticated, nil
	}
	user, err := g.users.GetUserByID(r.Context(), sess.UserID)
	if err != nil {
		g.log.WithContext(r.Context()).Warn("resolve admin identity failed", zap.Error(err))
	}
	return EvaluateGuard(user, err, g.allow), user
}

// Wrap 包装后台页面处理器；登录页不经过守卫
func (g *Guard) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == LoginPath {
			next.ServeHTTP(w, r)
			return
		}

		state, user := g.Resolve(r)
		switch state {
		case GuardLoading:
			w.Header().Set("Retry-After", "1")
			g.render(w, r, http.StatusServiceUnavailable, loadingPage)
		case GuardUnauthenticated:
			// 签名有效但用户已不存在：先清掉 Cookie，否则边缘中间件会把登录页再送回来
			if _, err := r.Cookie(CookieName); err == nil {
				g.sessions.DeleteSession(w)
			}
			http.Redirect(w, r, LoginPath, http.StatusFound)
		case GuardUnauthorized:
			// 不重定向，避免与同一受保护路由形成循环
			g.render(w, r, http.StatusForbidden, deniedPage)
		default:
			ctx := WithUser(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		}
	})
}

var (
	loadingPage = template.Must(template.New("loading").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>Loading</title></head>
<body><main class="guard guard-loading"><p>Loading…</p></main></body></html>`))

	deniedPage = template.Must(template.New("denied").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>Access Denied</title></head>
<body><main class="guard guard-denied">
<h1>Access Denied</h1>
<p>You do not have permission to view this page.</p>
<a href="/">Return home</a>
</main></body></html>`))
)

func (g *Guard) render(w http.ResponseWriter, r *http.Request, status int, tmpl *template.Template) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := tmpl.Execute(w, nil); err != nil {
		g.log.WithContext(r.Context()).Warn("render guard page failed", zap.String("page", tmpl.Name()), zap.Error(err))
	}
}
