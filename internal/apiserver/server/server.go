// Package server 路由配置与核心基础设施
//
// 本包把各领域处理器组装成一个 http.Handler：
//   - server.go: 依赖组装与路由
//   - activity.go: 后台动态 WebSocket 推送
//   - metrics.go: Prometheus 指标
package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"codefix-admin/internal/apiserver/auth"
	"codefix-admin/internal/apiserver/compiler"
	"codefix-admin/internal/apiserver/content"
	"codefix-admin/internal/apiserver/site"
	"codefix-admin/internal/apiserver/tools"
	"codefix-admin/internal/apiserver/vote"
	"codefix-admin/internal/config"
	"codefix-admin/internal/shared/infra"
	"codefix-admin/internal/shared/rbac"
	"codefix-admin/internal/shared/storage"
	"codefix-admin/pkg/logging"
)

// MetricsNamespace Prometheus 指标命名空间
const MetricsNamespace = "codefix"

// Options 服务依赖
type Options struct {
	Config *config.Config
	Infra  *infra.Infrastructure
	// Registry 为 nil 时创建新的 Registry
	Registry *prometheus.Registry
	Logger   *logging.Logger
}

// Server API Server
type Server struct {
	cfg      *config.Config
	infra    *infra.Infrastructure
	registry *prometheus.Registry
	metrics  *Metrics
	log      *logging.Logger

	sessions *auth.SessionManager
	trusted  auth.TrustedProxies
	users    *storage.UserRepository
	actions  *content.Actions
	hub      *ActivityHub

	authHandler     *auth.Handler
	contentHandler  *content.Handler
	voteHandler     *vote.Handler
	compilerHandler *compiler.Handler
	toolsHandler    *tools.Handler
	site            *site.Site
}

// New 组装所有领域处理器
//
// 生产环境必须配置 SESSION_SECRET；开发/测试环境缺省时生成一次性密钥（重启后会话失效）。
func New(opts Options) (*Server, error) {
	cfg, inf := opts.Config, opts.Infra
	if cfg == nil || inf == nil {
		return nil, errors.New("config and infrastructure are required")
	}
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}
	registry := opts.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	secret := cfg.Auth.SessionSecret
	if secret == "" {
		if cfg.IsProduction() {
			return nil, auth.ErrNoSecret
		}
		secret = randomSecret()
		log.Warn("SESSION_SECRET not set, using an ephemeral secret")
	}
	codec, err := auth.NewCodec(secret, cfg.Auth.SessionTTL)
	if err != nil {
		return nil, err
	}
	secure := cfg.IsProduction()
	trusted, err := auth.ParseTrustedProxies(cfg.Auth.TrustedProxies)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:      cfg,
		infra:    inf,
		registry: registry,
		metrics:  NewMetrics(MetricsNamespace, registry),
		log:      log,
		sessions: auth.NewSessionManager(codec, secure),
		users:    storage.NewUserRepository(inf.Docs),
		trusted:  trusted,
	}

	var actionOpts []content.Option
	if inf.Objects != nil {
		actionOpts = append(actionOpts, content.WithObjectStore(inf.Objects))
	}
	s.actions = content.NewActions(inf.Docs, inf.Cache, inf.EventBus, log, actionOpts...)
	s.actions.OnAction = s.metrics.RecordAction

	s.authHandler = auth.NewHandler(s.users, s.sessions, inf.EventBus, auth.HandlerConfig{
		LoginRatePerMinute: cfg.Auth.LoginRatePerMinute,
		LoginBurst:         cfg.Auth.LoginBurst,
	}, log)
	s.authHandler.OnLogin = s.metrics.RecordLogin

	s.contentHandler = content.NewHandler(s.actions, s.authHandler.Permissions(), s.sessions, log)

	s.voteHandler = vote.NewHandler(inf.Cache, s.actions, s.sessions, secure, log)
	s.voteHandler.OnVote = s.metrics.RecordVote

	s.compilerHandler = compiler.NewHandler(compiler.NewClient(compiler.ClientConfig{
		URL:              cfg.Executor.URL,
		CompileTimeoutMS: cfg.Executor.CompileTimeoutMS,
		RunTimeoutMS:     cfg.Executor.RunTimeoutMS,
		MemoryLimitBytes: cfg.Executor.MemoryLimitBytes,
		RequestTimeout:   cfg.Executor.RequestTimeout,
	}), log)
	s.compilerHandler.OnCompile = s.metrics.RecordCompile

	s.toolsHandler = tools.NewHandler(tools.NewIPLookup(cfg.Tools.IPLookupURL, cfg.Tools.IPCacheSize, cfg.Tools.Timeout), log)

	guard := auth.NewGuard(s.sessions, s.users, auth.NewAllowlist(cfg.Auth.AdminEmails), log)
	s.site = site.New(s.actions, inf.Cache, inf.EventBus, guard, site.Config{RenderTTL: cfg.Cache.RenderTTL}, log)
	s.site.OnCache = s.metrics.RecordRenderCache

	s.hub = NewActivityHub(inf.EventBus, s.metrics, log)
	return s, nil
}

// Bootstrap 启动时创建首个管理员（已有用户则跳过）
func (s *Server) Bootstrap(ctx context.Context) error {
	return auth.EnsureAdminUser(ctx, s.users, s.cfg.Auth.AdminEmails, s.cfg.Auth.AdminPassword, s.log)
}

// Start 启动后台任务（动态推送），ctx 结束时停止
func (s *Server) Start(ctx context.Context) {
	go func() {
		if err := s.hub.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.log.Warn("activity hub stopped", zap.Error(err))
		}
	}()
}

// Actions 内容操作（sitectl 与测试使用）
func (s *Server) Actions() *content.Actions {
	return s.actions
}

// Router 返回配置好的 HTTP 路由
//
// 路由规则：
//
// 健康检查与指标:
//   - GET /health, GET /metrics
//
// 认证:
//   - POST /api/auth/login, POST /api/auth/logout, GET /api/auth/me, PUT /api/auth/password
//   - /api/admin/users
//
// 内容:
//   - GET /api/posts, GET /api/posts/{slug}, POST /api/posts/{id}/vote
//   - /api/admin/{pages,posts,menus,settings,homepage,media,moderation}
//
// 工具:
//   - /api/compile, /api/tools/*
//
// 页面:
//   - GET /, /blog, /blog/{slug}, /p/{slug}, /admin/*
//
// WebSocket:
//   - GET /ws/admin/activity（需要 view_logs）
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.Health)

	s.authHandler.RegisterRoutes(mux)
	s.contentHandler.RegisterRoutes(mux)
	s.voteHandler.RegisterRoutes(mux)
	s.compilerHandler.RegisterRoutes(mux)
	s.toolsHandler.RegisterRoutes(mux)
	s.site.RegisterRoutes(mux)

	// 指标中间件直接包裹 mux，边缘中间件在外层拦截 /admin/*
	appHandler := accessLog(s.log.Named("http"), auth.EdgeMiddleware(s.sessions)(s.metrics.MetricsMiddleware(mux)))

	// WebSocket 绕过 metrics 中间件（避免 http.Hijacker 问题）
	topMux := http.NewServeMux()
	topMux.Handle("GET /metrics", MetricsHandler(s.registry))
	topMux.HandleFunc("GET /ws/admin/activity", s.authHandler.Permissions().Require(rbac.ViewLogs, s.hub.HandleWebSocket))
	topMux.Handle("/", appHandler)
	return auth.RealIP(s.trusted)(topMux)
}

// Health 健康检查接口
//
// 路由: GET /health
// Redis 不可用时服务仍可用（缓存与投票降级），因此只报告而不返回 503。
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	redisUp := false
	if p, ok := s.infra.Cache.(pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		err := p.Ping(ctx)
		cancel()
		if err != nil {
			s.log.WithContext(r.Context()).Warn("health: redis ping failed", zap.Error(err))
			status = "degraded"
		} else {
			redisUp = true
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": status,
		"components": map[string]bool{
			"redis": redisUp,
			"minio": s.infra.Objects != nil,
		},
	})
}

// pinger 可探活的缓存实现（NoOpCache 不实现）
type pinger interface {
	Ping(ctx context.Context) error
}

// accessLog 请求日志，并为每个请求分配 request_id
func accessLog(log *logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := r.Header.Get("X-Request-ID")
		if id == "" || len(id) > 64 {
			id = storage.NewID()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := context.WithValue(r.Context(), logging.RequestIDKey, id)

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r.WithContext(ctx))
		log.WithContext(ctx).HTTPRequestLog(r.Method, r.URL.Path, wrapped.statusCode, time.Since(start), auth.ClientIP(r))
	})
}

func randomSecret() string {
	b := make([]byte, 32)
	rand.Read(b)
	return hex.EncodeToString(b)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
