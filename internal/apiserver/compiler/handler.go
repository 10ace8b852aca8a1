package compiler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"codefix-admin/pkg/logging"
)

// MaxCodeSize 单次提交源码上限
const MaxCodeSize = 64 << 10

// Executor 代码执行接口
type Executor interface {
	Execute(ctx context.Context, lang Language, code, stdin string, args []string) (*Result, error)
}

// Handler 在线编译 HTTP 处理器
type Handler struct {
	exec Executor
	log  *logging.Logger

	// OnCompile 编译请求回调（用于指标），outcome 为 ok/rejected/upstream_error
	OnCompile func(language, outcome string)
}

// NewHandler 创建编译处理器
func NewHandler(exec Executor, log *logging.Logger) *Handler {
	if log == nil {
		log = logging.Nop()
	}
	return &Handler{exec: exec, log: log.Named("compiler")}
}

// RegisterRoutes 注册编译路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/compile/languages", h.ListLanguages)
	mux.HandleFunc("POST /api/compile", h.Compile)
}

// ListLanguages 返回支持的语言
func (h *Handler) ListLanguages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"languages": Languages()})
}

type compileRequest struct {
	Language string   `json:"language"`
	Code     string   `json:"code"`
	Stdin    string   `json:"stdin"`
	Args     []string `json:"args"`
}

// Compile 提交源码执行
func (h *Handler) Compile(w http.ResponseWriter, r *http.Request) {
	var req compileRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxCodeSize+4096)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	lang, ok := Lookup(strings.ToLower(strings.TrimSpace(req.Language)))
	if !ok {
		h.observe("unknown", "rejected")
		writeError(w, http.StatusBadRequest, "unsupported language")
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		h.observe(lang.ID, "rejected")
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}
	if len(req.Code) > MaxCodeSize {
		h.observe(lang.ID, "rejected")
		writeError(w, http.StatusBadRequest, "code is too large")
		return
	}

	result, err := h.exec.Execute(r.Context(), lang, req.Code, req.Stdin, req.Args)
	if err != nil {
		h.observe(lang.ID, "upstream_error")
		h.log.WithContext(r.Context()).Warn("execute failed", zap.String("language", lang.ID), zap.Error(err))
		if errors.Is(err, ErrUpstream) {
			writeError(w, http.StatusBadGateway, "code execution service unavailable")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to execute code")
		return
	}
	h.observe(lang.ID, "ok")
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) observe(language, outcome string) {
	if h.OnCompile != nil {
		h.OnCompile(language, outcome)
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
