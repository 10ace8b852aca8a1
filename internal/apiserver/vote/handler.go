// Package vote 投票领域 - 文章点赞/点踩
//
// 计数以 Redis 为准（Lua 脚本原子切换），成功后把计数回写到文章文档用于页面展示。
// 投票者是会话用户；匿名访客使用 voter_id Cookie。
package vote

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"codefix-admin/internal/apiserver/auth"
	"codefix-admin/internal/apiserver/content"
	"codefix-admin/internal/shared/cache"
	"codefix-admin/internal/shared/model"
	"codefix-admin/internal/shared/storage"
	"codefix-admin/pkg/logging"
)

// VoterCookie 匿名投票者 Cookie
const VoterCookie = "voter_id"

const voterCookieTTL = 365 * 24 * time.Hour

// Handler 投票 HTTP 处理器
type Handler struct {
	votes    cache.VoteStore
	actions  *content.Actions
	sessions *auth.SessionManager
	secure   bool
	log      *logging.Logger

	// OnVote 投票结果回调（用于指标）
	OnVote func(vote cache.VoteType, success bool)
}

// NewHandler 创建投票处理器
func NewHandler(votes cache.VoteStore, actions *content.Actions, sessions *auth.SessionManager, secure bool, log *logging.Logger) *Handler {
	if log == nil {
		log = logging.Nop()
	}
	return &Handler{votes: votes, actions: actions, sessions: sessions, secure: secure, log: log.Named("vote")}
}

// RegisterRoutes 注册投票路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/posts/{id}/vote", h.Vote)
	mux.HandleFunc("GET /api/posts/{id}/votes", h.GetVotes)
}

type voteRequest struct {
	Type cache.VoteType `json:"type"`
}

// Vote 切换投票
//
// 同一投票者重复投同一票会撤销；改投会把计数从旧类型移到新类型。
func (h *Handler) Vote(w http.ResponseWriter, r *http.Request) {
	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !req.Type.Valid() {
		writeError(w, http.StatusBadRequest, "type must be like or dislike")
		return
	}

	post := h.actions.GetPost(r.Context(), r.PathValue("id"))
	if post == nil || post.Status != model.StatusPublished {
		writeError(w, http.StatusNotFound, "post not found")
		return
	}

	voter := h.voterID(w, r)
	result, err := h.votes.CastVote(r.Context(), post.ID, voter, req.Type)
	if err != nil {
		h.observe(req.Type, false)
		if errors.Is(err, cache.ErrUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "voting is unavailable")
			return
		}
		h.log.WithContext(r.Context()).Error("cast vote failed", zap.String("post_id", post.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to cast vote")
		return
	}
	h.observe(req.Type, true)

	if res := h.actions.SyncVoteCounts(r.Context(), post.ID, result.Likes, result.Dislikes); !res.Success && res.Code != model.CodeNotFound {
		h.log.WithContext(r.Context()).Warn("sync vote counts failed", zap.String("post_id", post.ID), zap.String("error", res.Error))
	}
	writeJSON(w, http.StatusOK, result)
}

// GetVotes 读取计数与当前投票者的状态
func (h *Handler) GetVotes(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	voter := ""
	if sess := h.sessions.VerifySession(r); sess != nil {
		voter = sess.UserID
	} else if c, err := r.Cookie(VoterCookie); err == nil && c.Value != "" {
		voter = "anon:" + c.Value
	}

	result, err := h.votes.GetVotes(r.Context(), id, voter)
	if err != nil {
		if errors.Is(err, cache.ErrUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "voting is unavailable")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get votes")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// voterID 会话用户优先；匿名访客复用或签发 voter_id Cookie
func (h *Handler) voterID(w http.ResponseWriter, r *http.Request) string {
	if sess := h.sessions.VerifySession(r); sess != nil {
		return sess.UserID
	}
	if c, err := r.Cookie(VoterCookie); err == nil && c.Value != "" && len(c.Value) <= 64 {
		return "anon:" + c.Value
	}
	id := storage.NewID()
	http.SetCookie(w, &http.Cookie{
		Name:     VoterCookie,
		Value:    id,
		Path:     "/",
		Expires:  time.Now().Add(voterCookieTTL),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return "anon:" + id
}

func (h *Handler) observe(vote cache.VoteType, success bool) {
	if h.OnVote != nil {
		h.OnVote(vote, success)
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
