package content

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"codefix-admin/internal/apiserver/auth"
	"codefix-admin/internal/shared/model"
	"codefix-admin/internal/shared/rbac"
	"codefix-admin/internal/shared/storage"
	"codefix-admin/pkg/logging"
)

// Handler 内容领域 HTTP 处理器
type Handler struct {
	actions  *Actions
	perms    *auth.PermissionChecker
	sessions *auth.SessionManager
	log      *logging.Logger
}

// NewHandler 创建内容处理器
func NewHandler(actions *Actions, perms *auth.PermissionChecker, sessions *auth.SessionManager, log *logging.Logger) *Handler {
	if log == nil {
		log = logging.Nop()
	}
	return &Handler{actions: actions, perms: perms, sessions: sessions, log: log.Named("content-api")}
}

// RegisterRoutes 注册内容相关路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// 公开接口
	mux.HandleFunc("GET /api/posts", h.ListPublicPosts)
	mux.HandleFunc("GET /api/posts/{slug}", h.GetPublicPost)
	mux.Handle("POST /api/posts/{id}/comments", auth.RequireSession(h.sessions)(http.HandlerFunc(h.SubmitComment)))
	mux.HandleFunc("GET /media/{key...}", h.ServeMedia)

	require := h.perms.Require

	// Pages
	mux.HandleFunc("GET /api/admin/pages", require(rbac.ManagePages, h.ListPages))
	mux.HandleFunc("POST /api/admin/pages", require(rbac.ManagePages, h.CreatePage))
	mux.HandleFunc("GET /api/admin/pages/{id}", require(rbac.ManagePages, h.GetPage))
	mux.HandleFunc("PUT /api/admin/pages/{id}", require(rbac.ManagePages, h.UpdatePage))
	mux.HandleFunc("DELETE /api/admin/pages/{id}", require(rbac.ManagePages, h.DeletePage))

	// Posts
	mux.HandleFunc("GET /api/admin/posts", require(rbac.ManageContent, h.ListPosts))
	mux.HandleFunc("POST /api/admin/posts", require(rbac.ManageContent, h.CreatePost))
	mux.HandleFunc("GET /api/admin/posts/{id}", require(rbac.ManageContent, h.GetPost))
	mux.HandleFunc("PUT /api/admin/posts/{id}", require(rbac.ManageContent, h.UpdatePost))
	mux.HandleFunc("DELETE /api/admin/posts/{id}", require(rbac.ManageContent, h.DeletePost))
	mux.HandleFunc("POST /api/admin/posts/{id}/publish", require(rbac.ManageContent, h.PublishPost))

	// Menus
	mux.HandleFunc("GET /api/admin/menus", require(rbac.ManagePages, h.ListMenu))
	mux.HandleFunc("POST /api/admin/menus", require(rbac.ManagePages, h.CreateMenuItem))
	mux.HandleFunc("PUT /api/admin/menus/{id}", require(rbac.ManagePages, h.UpdateMenuItem))
	mux.HandleFunc("DELETE /api/admin/menus/{id}", require(rbac.ManagePages, h.DeleteMenuItem))

	// Settings
	mux.HandleFunc("GET /api/admin/settings", require(rbac.ManageSettings, h.GetSettings))
	mux.HandleFunc("PUT /api/admin/settings/{key}", require(rbac.ManageSettings, h.SetSetting))
	mux.HandleFunc("DELETE /api/admin/settings/{key}", require(rbac.ManageSettings, h.DeleteSetting))

	// Homepage
	mux.HandleFunc("GET /api/admin/homepage", require(rbac.ManagePages, h.GetHomepage))
	mux.HandleFunc("PUT /api/admin/homepage/{section}/{key}", require(rbac.ManagePages, h.SetHomepage))

	// Media
	mux.HandleFunc("GET /api/admin/media", require(rbac.ManageContent, h.ListMedia))
	mux.HandleFunc("POST /api/admin/media", require(rbac.ManageContent, h.UploadMedia))
	mux.HandleFunc("DELETE /api/admin/media/{id}", require(rbac.ManageContent, h.DeleteMedia))

	// Moderation
	mux.HandleFunc("GET /api/admin/moderation", require(rbac.ManageContent, h.ListModeration))
	mux.HandleFunc("POST /api/admin/moderation/{id}/approve", require(rbac.ManageContent, h.ApproveItem))
	mux.HandleFunc("POST /api/admin/moderation/{id}/reject", require(rbac.ManageContent, h.RejectItem))
}

// ============================================================================
// 公开接口
// ============================================================================

// ListPublicPosts 公开文章列表（只返回已发布文章）
func (h *Handler) ListPublicPosts(w http.ResponseWriter, r *http.Request) {
	status := model.ContentStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = model.StatusPublished
	}
	if status != model.StatusPublished {
		writeError(w, http.StatusBadRequest, "only published posts are public")
		return
	}
	writeJSON(w, http.StatusOK, h.actions.ListPosts(r.Context(), status, queryInt(r, "limit")))
}

// GetPublicPost 按 slug 读取已发布文章
func (h *Handler) GetPublicPost(w http.ResponseWriter, r *http.Request) {
	post := h.actions.GetPostBySlug(r.Context(), r.PathValue("slug"))
	if post == nil || post.Status != model.StatusPublished {
		writeError(w, http.StatusNotFound, "post not found")
		return
	}
	writeJSON(w, http.StatusOK, post)
}

type commentRequest struct {
	Content string `json:"content"`
}

// SubmitComment 提交评论，进入审核队列
func (h *Handler) SubmitComment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if !decode(w, r, &req) {
		return
	}
	post := h.actions.GetPost(r.Context(), r.PathValue("id"))
	if post == nil || post.Status != model.StatusPublished {
		writeError(w, http.StatusNotFound, "post not found")
		return
	}
	sess := auth.SessionFromContext(r.Context())
	res := h.actions.SubmitForModeration(r.Context(), model.ModerationItem{
		Kind:     "comment",
		TargetID: post.ID,
		Content:  req.Content,
		AuthorID: sess.UserID,
	})
	writeResult(w, res, http.StatusAccepted)
}

// ============================================================================
// Pages
// ============================================================================

func (h *Handler) ListPages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.actions.ListPages(r.Context(), model.ContentStatus(r.URL.Query().Get("status"))))
}

func (h *Handler) GetPage(w http.ResponseWriter, r *http.Request) {
	page := h.actions.GetPage(r.Context(), r.PathValue("id"))
	if page == nil {
		writeError(w, http.StatusNotFound, "page not found")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handler) CreatePage(w http.ResponseWriter, r *http.Request) {
	var page model.Page
	if !decode(w, r, &page) {
		return
	}
	writeResult(w, h.actions.CreatePage(r.Context(), actorID(r), page), http.StatusCreated)
}

func (h *Handler) UpdatePage(w http.ResponseWriter, r *http.Request) {
	var fields map[string]any
	if !decode(w, r, &fields) {
		return
	}
	writeResult(w, h.actions.UpdatePage(r.Context(), actorID(r), r.PathValue("id"), fields), http.StatusOK)
}

func (h *Handler) DeletePage(w http.ResponseWriter, r *http.Request) {
	writeResult(w, h.actions.DeletePage(r.Context(), actorID(r), r.PathValue("id")), http.StatusOK)
}

// ============================================================================
// Posts
// ============================================================================

func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	status := model.ContentStatus(r.URL.Query().Get("status"))
	writeJSON(w, http.StatusOK, h.actions.ListPosts(r.Context(), status, queryInt(r, "limit")))
}

func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	post := h.actions.GetPost(r.Context(), r.PathValue("id"))
	if post == nil {
		writeError(w, http.StatusNotFound, "post not found")
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var post model.Post
	if !decode(w, r, &post) {
		return
	}
	writeResult(w, h.actions.CreatePost(r.Context(), actorID(r), post), http.StatusCreated)
}

func (h *Handler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	var fields map[string]any
	if !decode(w, r, &fields) {
		return
	}
	writeResult(w, h.actions.UpdatePost(r.Context(), actorID(r), r.PathValue("id"), fields), http.StatusOK)
}

func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	writeResult(w, h.actions.DeletePost(r.Context(), actorID(r), r.PathValue("id")), http.StatusOK)
}

func (h *Handler) PublishPost(w http.ResponseWriter, r *http.Request) {
	writeResult(w, h.actions.PublishPost(r.Context(), actorID(r), r.PathValue("id")), http.StatusOK)
}

// ============================================================================
// Menus / Settings / Homepage
// ============================================================================

func (h *Handler) ListMenu(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.actions.ListMenu(r.Context(), r.URL.Query().Get("menu")))
}

func (h *Handler) CreateMenuItem(w http.ResponseWriter, r *http.Request) {
	var item model.MenuItem
	if !decode(w, r, &item) {
		return
	}
	writeResult(w, h.actions.CreateMenuItem(r.Context(), actorID(r), item), http.StatusCreated)
}

func (h *Handler) UpdateMenuItem(w http.ResponseWriter, r *http.Request) {
	var fields map[string]any
	if !decode(w, r, &fields) {
		return
	}
	writeResult(w, h.actions.UpdateMenuItem(r.Context(), actorID(r), r.PathValue("id"), fields), http.StatusOK)
}

func (h *Handler) DeleteMenuItem(w http.ResponseWriter, r *http.Request) {
	writeResult(w, h.actions.DeleteMenuItem(r.Context(), actorID(r), r.PathValue("id")), http.StatusOK)
}

type valueRequest struct {
	Value string `json:"value"`
}

func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.actions.GetSettings(r.Context()))
}

func (h *Handler) SetSetting(w http.ResponseWriter, r *http.Request) {
	var req valueRequest
	if !decode(w, r, &req) {
		return
	}
	writeResult(w, h.actions.SetSetting(r.Context(), actorID(r), r.PathValue("key"), req.Value), http.StatusOK)
}

func (h *Handler) DeleteSetting(w http.ResponseWriter, r *http.Request) {
	writeResult(w, h.actions.DeleteSetting(r.Context(), actorID(r), r.PathValue("key")), http.StatusOK)
}

func (h *Handler) GetHomepage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.actions.GetHomepageContent(r.Context()))
}

func (h *Handler) SetHomepage(w http.ResponseWriter, r *http.Request) {
	var req valueRequest
	if !decode(w, r, &req) {
		return
	}
	res := h.actions.SetHomepageContent(r.Context(), actorID(r), r.PathValue("section"), r.PathValue("key"), req.Value)
	writeResult(w, res, http.StatusOK)
}

// ============================================================================
// Media
// ============================================================================

func (h *Handler) ListMedia(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.actions.ListMedia(r.Context()))
}

// UploadMedia multipart 上传，表单字段名 file
func (h *Handler) UploadMedia(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxMediaSize+1<<20)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	res := h.actions.UploadMedia(r.Context(), actorID(r), header.Filename, contentType, header.Size, file)
	writeResult(w, res, http.StatusCreated)
}

func (h *Handler) DeleteMedia(w http.ResponseWriter, r *http.Request) {
	writeResult(w, h.actions.DeleteMedia(r.Context(), actorID(r), r.PathValue("id")), http.StatusOK)
}

// ServeMedia 代理读取媒体对象（未配置 public_url 时使用）
func (h *Handler) ServeMedia(w http.ResponseWriter, r *http.Request) {
	rc, media, err := h.actions.OpenMedia(r.Context(), r.PathValue("key"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.log.WithContext(r.Context()).Warn("open media failed", zap.Error(err))
		http.Error(w, "media unavailable", http.StatusBadGateway)
		return
	}
	defer rc.Close()

	if media.ContentType != "" {
		w.Header().Set("Content-Type", media.ContentType)
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	io.Copy(w, rc)
}

// ============================================================================
// Moderation
// ============================================================================

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) ListModeration(w http.ResponseWriter, r *http.Request) {
	status := model.ModerationStatus(r.URL.Query().Get("status"))
	writeJSON(w, http.StatusOK, h.actions.ListModerationQueue(r.Context(), status))
}

func (h *Handler) ApproveItem(w http.ResponseWriter, r *http.Request) {
	writeResult(w, h.actions.ApproveItem(r.Context(), actorID(r), r.PathValue("id")), http.StatusOK)
}

func (h *Handler) RejectItem(w http.ResponseWriter, r *http.Request) {
	var req rejectRequest
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}
	writeResult(w, h.actions.RejectItem(r.Context(), actorID(r), r.PathValue("id"), req.Reason), http.StatusOK)
}

// ============================================================================
// 工具函数
// ============================================================================

func actorID(r *http.Request) string {
	if u := auth.UserFromContext(r.Context()); u != nil {
		return u.ID
	}
	return ""
}

func queryInt(r *http.Request, key string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(key))
	return n
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// writeResult 按结果分类选择状态码
func writeResult(w http.ResponseWriter, res model.Result, okStatus int) {
	status := okStatus
	if !res.Success {
		switch res.Code {
		case model.CodeInvalid:
			status = http.StatusBadRequest
		case model.CodeNotFound:
			status = http.StatusNotFound
		case model.CodeUnavailable:
			status = http.StatusServiceUnavailable
		default:
			status = http.StatusInternalServerError
		}
	}
	writeJSON(w, status, res)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
