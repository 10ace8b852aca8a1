// Package site 公开站点与后台页面渲染
//
// 公开页面（首页、博客、文章、单页）按请求路径整页缓存在渲染缓存中，
// 内容操作在写入后按路径失效；并发的缓存未命中由 singleflight 合并为一次渲染。
// 后台页面（登录、仪表盘）不缓存，仪表盘经过 Admin Guard。
package site

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"codefix-admin/internal/apiserver/auth"
	"codefix-admin/internal/apiserver/content"
	"codefix-admin/internal/shared/cache"
	"codefix-admin/internal/shared/eventbus"
	"codefix-admin/internal/shared/model"
	"codefix-admin/internal/shared/rbac"
	"codefix-admin/pkg/logging"
)

//go:embed templates/*.html
var templateFS embed.FS

// DefaultRenderTTL 渲染缓存默认有效期
const DefaultRenderTTL = 5 * time.Minute

// DefaultSiteName 未配置 site_name 设置时的站点名
const DefaultSiteName = "CodeFix"

var funcs = template.FuncMap{
	"default": func(def, v string) string {
		if v == "" {
			return def
		}
		return v
	},
}

// 每个页面模板与 layout 组成独立的模板集
var pages = func() map[string]*template.Template {
	out := map[string]*template.Template{}
	for _, name := range []string{"home", "blog", "post", "page", "notfound", "login", "dashboard"} {
		out[name] = template.Must(template.New(name).Funcs(funcs).ParseFS(templateFS,
			"templates/layout.html", "templates/"+name+".html"))
	}
	return out
}()

// Config 站点配置
type Config struct {
	RenderTTL time.Duration
}

// Site 站点渲染器
type Site struct {
	actions *content.Actions
	cache   cache.RenderCache
	bus     eventbus.ActivityBus
	guard   *auth.Guard
	ttl     time.Duration
	group   singleflight.Group
	log     *logging.Logger

	// OnCache 渲染缓存命中/未命中回调（用于指标）
	OnCache func(hit bool)
}

// New 创建站点渲染器
func New(actions *content.Actions, rc cache.RenderCache, bus eventbus.ActivityBus, guard *auth.Guard, cfg Config, log *logging.Logger) *Site {
	if rc == nil {
		rc = cache.NewNoOpCache()
	}
	if bus == nil {
		bus = eventbus.NewNoOpEventBus()
	}
	if log == nil {
		log = logging.Nop()
	}
	if cfg.RenderTTL <= 0 {
		cfg.RenderTTL = DefaultRenderTTL
	}
	return &Site{actions: actions, cache: rc, bus: bus, guard: guard, ttl: cfg.RenderTTL, log: log.Named("site")}
}

// RegisterRoutes 注册页面路由
func (s *Site) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.Home)
	mux.HandleFunc("GET /blog", s.Blog)
	mux.HandleFunc("GET /blog/{slug}", s.Post)
	mux.HandleFunc("GET /p/{slug}", s.Page)

	mux.HandleFunc("GET /admin", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, auth.DashboardPath, http.StatusFound)
	})
	mux.Handle("GET "+auth.LoginPath, s.guard.Wrap(http.HandlerFunc(s.Login)))
	mux.Handle("GET "+auth.DashboardPath, s.guard.Wrap(http.HandlerFunc(s.Dashboard)))
}

// view layout 使用的页面数据
type view struct {
	Title       string
	Description string
	SiteName    string
	Menu        []*model.MenuItem
	Footer      []*model.MenuItem
	Data        any
}

// rendered 一次渲染的结果
type rendered struct {
	status int
	body   []byte
}

// ============================================================================
// 公开页面
// ============================================================================

type homeData struct {
	Home  map[string]string
	Posts []*model.Post
}

// Home 首页
func (s *Site) Home(w http.ResponseWriter, r *http.Request) {
	s.serveCached(w, r, func(ctx context.Context) rendered {
		data := homeData{
			Home:  s.actions.GetHomepageContent(ctx),
			Posts: s.actions.ListPosts(ctx, model.StatusPublished, 5),
		}
		return s.render(ctx, http.StatusOK, "home", "", "", data)
	})
}

// Blog 博客列表
func (s *Site) Blog(w http.ResponseWriter, r *http.Request) {
	s.serveCached(w, r, func(ctx context.Context) rendered {
		posts := s.actions.ListPosts(ctx, model.StatusPublished, content.MaxListLimit)
		return s.render(ctx, http.StatusOK, "blog", "Blog", "", posts)
	})
}

type postData struct {
	Post   *model.Post
	Blocks []Block
	Plain  bool
}

// Post 文章详情；草稿与归档文章返回 404
func (s *Site) Post(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	s.serveCached(w, r, func(ctx context.Context) rendered {
		post := s.actions.GetPostBySlug(ctx, slug)
		if post == nil || post.Status != model.StatusPublished {
			return s.notFound(ctx)
		}
		blocks, plain := ParseBody(post.Body)
		return s.render(ctx, http.StatusOK, "post", post.Title, post.Excerpt, postData{Post: post, Blocks: blocks, Plain: plain})
	})
}

type pageData struct {
	Page   *model.Page
	Blocks []Block
	Plain  bool
}

// Page 单页
func (s *Site) Page(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	s.serveCached(w, r, func(ctx context.Context) rendered {
		page := s.actions.GetPageBySlug(ctx, slug)
		if page == nil || page.Status != model.StatusPublished {
			return s.notFound(ctx)
		}
		blocks, plain := ParseBody(page.Body)
		title := page.MetaTitle
		if title == "" {
			title = page.Title
		}
		return s.render(ctx, http.StatusOK, "page", title, page.MetaDescription, pageData{Page: page, Blocks: blocks, Plain: plain})
	})
}

// ============================================================================
// 后台页面
// ============================================================================

type loginData struct {
	Next string
}

// Login 登录页（已登录用户在 Edge Middleware 就被重定向到仪表盘）
func (s *Site) Login(w http.ResponseWriter, r *http.Request) {
	out := s.render(r.Context(), http.StatusOK, "login", "Sign in", "", loginData{Next: auth.DashboardPath})
	writeHTML(w, out, "no-store")
}

// DashboardStats 仪表盘统计
type DashboardStats struct {
	PublishedPosts    int
	DraftPosts        int
	Pages             int
	PendingModeration int
	Media             int
}

type dashboardData struct {
	User        *model.User
	Permissions []rbac.Permission
	Stats       DashboardStats
	Activity    []*eventbus.ActivityEvent
}

// Dashboard 仪表盘（Guard 已把用户注入 context）
func (s *Site) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := auth.UserFromContext(ctx)
	data := dashboardData{
		User: user,
		Stats: DashboardStats{
			PublishedPosts:    len(s.actions.ListPosts(ctx, model.StatusPublished, content.MaxListLimit)),
			DraftPosts:        len(s.actions.ListPosts(ctx, model.StatusDraft, content.MaxListLimit)),
			Pages:             len(s.actions.ListPages(ctx, "")),
			PendingModeration: len(s.actions.ListModerationQueue(ctx, model.ModerationPending)),
			Media:             len(s.actions.ListMedia(ctx)),
		},
	}
	if user != nil {
		data.Permissions = rbac.Permissions(user.Role)
	}
	activity, err := s.bus.RecentActivity(ctx, 20)
	if err != nil {
		s.log.WithContext(ctx).Warn("load recent activity failed", zap.Error(err))
	}
	data.Activity = activity

	out := s.render(ctx, http.StatusOK, "dashboard", "Dashboard", "", data)
	writeHTML(w, out, "no-store")
}

// ============================================================================
// 渲染与缓存
// ============================================================================

// serveCached 先查渲染缓存，未命中时合并并发渲染；只缓存 200 结果
func (s *Site) serveCached(w http.ResponseWriter, r *http.Request, fill func(ctx context.Context) rendered) {
	ctx := r.Context()
	path := r.URL.Path

	html, ok, err := s.cache.GetRender(ctx, path)
	if err != nil {
		s.log.WithContext(ctx).Warn("render cache read failed", zap.String("path", path), zap.Error(err))
	}
	if ok {
		s.observe(true)
		w.Header().Set("X-Cache", "HIT")
		writeHTML(w, rendered{status: http.StatusOK, body: []byte(html)}, "public, max-age=60")
		return
	}
	s.observe(false)

	v, _, _ := s.group.Do(path, func() (interface{}, error) {
		// 合并后的渲染不随单个请求取消
		fillCtx := context.WithoutCancel(ctx)
		out := fill(fillCtx)
		if out.status == http.StatusOK {
			if err := s.cache.SetRender(fillCtx, path, string(out.body), s.ttl); err != nil {
				s.log.Warn("render cache write failed", zap.String("path", path), zap.Error(err))
			}
		}
		return out, nil
	})
	w.Header().Set("X-Cache", "MISS")
	writeHTML(w, v.(rendered), "public, max-age=60")
}

func (s *Site) observe(hit bool) {
	if s.OnCache != nil {
		s.OnCache(hit)
	}
}

func (s *Site) notFound(ctx context.Context) rendered {
	return s.render(ctx, http.StatusNotFound, "notfound", "Not found", "", nil)
}

// render 执行模板；模板错误返回 500 纯文本
func (s *Site) render(ctx context.Context, status int, name, title, description string, data any) rendered {
	settings := s.actions.GetSettings(ctx)
	siteName := settings["site_name"]
	if siteName == "" {
		siteName = DefaultSiteName
	}
	if description == "" {
		description = settings["site_description"]
	}
	v := view{
		Title:       title,
		Description: description,
		SiteName:    siteName,
		Menu:        s.actions.ListMenu(ctx, "header"),
		Footer:      s.actions.ListMenu(ctx, "footer"),
		Data:        data,
	}
	var buf bytes.Buffer
	if err := pages[name].ExecuteTemplate(&buf, "layout", v); err != nil {
		s.log.WithContext(ctx).Error("render template failed", zap.String("template", name), zap.Error(err))
		return rendered{status: http.StatusInternalServerError, body: []byte("internal error")}
	}
	return rendered{status: status, body: buf.Bytes()}
}

func writeHTML(w http.ResponseWriter, out rendered, cacheControl string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if out.status == http.StatusOK {
		w.Header().Set("Cache-Control", cacheControl)
	} else {
		w.Header().Set("Cache-Control", "no-store")
	}
	w.WriteHeader(out.status)
	w.Write(out.body)
}
