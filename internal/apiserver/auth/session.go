package auth

import (
	"net/http"
	"time"
)

// CookieName 会话 Cookie 名称
const CookieName = "admin_session"

// SessionManager 基于 Cookie 的会话存储
type SessionManager struct {
	codec  *Codec
	secure bool
}

// NewSessionManager 创建会话管理器；secure 在生产环境为 true
func NewSessionManager(codec *Codec, secure bool) *SessionManager {
	return &SessionManager{codec: codec, secure: secure}
}

// Codec 返回底层编解码器
func (m *SessionManager) Codec() *Codec {
	return m.codec
}

// CreateSession 签发令牌并写入 Cookie，Cookie 过期时间与令牌一致
func (m *SessionManager) CreateSession(w http.ResponseWriter, userID string) (*Session, error) {
	token, expires, err := m.codec.Encrypt(userID)
	if err != nil {
		return nil, err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return &Session{UserID: userID, ExpiresAt: expires}, nil
}

// VerifySession 读取并验证 Cookie，缺失或无效返回 nil
func (m *SessionManager) VerifySession(r *http.Request) *Session {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return nil
	}
	claims := m.codec.Decrypt(c.Value)
	if claims == nil {
		return nil
	}
	return &Session{UserID: claims.UserID, ExpiresAt: claims.ExpiresAt.Time}
}

// DeleteSession 删除会话 Cookie
func (m *SessionManager) DeleteSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
