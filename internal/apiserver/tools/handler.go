package tools

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"codefix-admin/internal/apiserver/auth"
	"codefix-admin/pkg/logging"
)

// Handler 开发者工具 HTTP 处理器
type Handler struct {
	ip  *IPLookup
	now func() time.Time
	log *logging.Logger
}

// NewHandler 创建工具处理器
func NewHandler(ip *IPLookup, log *logging.Logger) *Handler {
	if log == nil {
		log = logging.Nop()
	}
	if ip == nil {
		ip = NewIPLookup("", 0, 0)
	}
	return &Handler{ip: ip, now: time.Now, log: log.Named("tools")}
}

// RegisterRoutes 注册工具路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/tools/json/format", h.FormatJSON)
	mux.HandleFunc("POST /api/tools/jwt/decode", h.DecodeJWT)
	mux.HandleFunc("POST /api/tools/text/stats", h.TextStats)
	mux.HandleFunc("GET /api/tools/ip", h.IP)
}

// FormatJSON 格式化或压缩 JSON
func (h *Handler) FormatJSON(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Input  string `json:"input"`
		Indent *int   `json:"indent"`
	}
	if !decode(w, r, &req) {
		return
	}
	indent := 2
	if req.Indent != nil {
		indent = *req.Indent
	}
	out, err := FormatJSON(req.Input, indent)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"output": out})
}

// DecodeJWT 解码 JWT（不验证签名）
func (h *Handler) DecodeJWT(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if !decode(w, r, &req) {
		return
	}
	out, err := DecodeJWT(req.Token, h.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// TextStats 文本统计
func (h *Handler) TextStats(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, AnalyzeText(req.Text))
}

// IP 查询调用方 IP，或 ?ip= 指定的地址
//
// 上游查询失败时仍返回本地信息。
func (h *Handler) IP(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("ip")
	if target == "" {
		target = auth.ClientIP(r)
	}
	info, err := h.ip.Lookup(r.Context(), target)
	if info == nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.log.WithContext(r.Context()).Warn("ip lookup failed", zap.String("ip", info.IP), zap.Error(err))
	}
	writeJSON(w, http.StatusOK, info)
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxInputSize)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
