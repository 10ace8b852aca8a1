// Package auth 会话认证：JWT 会话编解码、Cookie 会话、Admin 守卫、HTTP 中间件
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"codefix-admin/internal/shared/model"
)

// contextKey context 键类型
type contextKey string

const (
	ctxKeySession contextKey = "session"
	ctxKeyUser    contextKey = "user"
)

// DefaultSessionTTL 会话有效期
const DefaultSessionTTL = 24 * time.Hour

// ErrNoSecret 未配置会话签名密钥
var ErrNoSecret = errors.New("auth: session secret is required")

// ============================================================================
// 密码哈希
// ============================================================================

// HashPassword 使用 bcrypt 哈希密码
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	return string(bytes), err
}

// CheckPassword 验证密码
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ============================================================================
// 会话编解码
// ============================================================================

// SessionClaims 会话令牌声明
type SessionClaims struct {
	jwt.RegisteredClaims
	UserID  string `json:"userId"`
	Expires int64  `json:"expires"` // Unix 秒，与 exp 相同
}

// Session 已验证的会话
type Session struct {
	UserID    string
	ExpiresAt time.Time
}

// Codec HS256 会话令牌编解码器
type Codec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewCodec 创建编解码器；ttl <= 0 时使用 24 小时
func NewCodec(secret string, ttl time.Duration) (*Codec, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Codec{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// WithClock 替换时钟（测试使用）
func (c *Codec) WithClock(now func() time.Time) *Codec {
	cp := *c
	cp.now = now
	return &cp
}

// Encrypt 签发会话令牌，附带 iat 与 exp
func (c *Codec) Encrypt(userID string) (string, time.Time, error) {
	if userID == "" {
		return "", time.Time{}, errors.New("auth: user id is required")
	}
	issued := c.now()
	expires := issued.Add(c.ttl)
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		UserID:  userID,
		Expires: expires.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	// exp 以秒为精度
	return signed, time.Unix(expires.Unix(), 0), nil
}

// Decrypt 验证令牌并返回声明
//
// 签名不符、格式错误、算法不是 HS256、已过期都返回 nil，调用方无法也不应区分原因。
func (c *Codec) Decrypt(token string) *SessionClaims {
	if token == "" {
		return nil
	}
	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (interface{}, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !parsed.Valid || claims.UserID == "" {
		return nil
	}
	return claims
}

// ============================================================================
// Context 辅助函数
// ============================================================================

// WithSession 将会话注入 context
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKeySession, s)
}

// SessionFromContext 从 context 获取会话
func SessionFromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(ctxKeySession).(*Session)
	return s
}

// WithUser 将当前用户注入 context
func WithUser(ctx context.Context, u *model.User) context.Context {
	return context.WithValue(ctx, ctxKeyUser, u)
}

// UserFromContext 从 context 获取当前用户（仅 RequirePermission 之后可用）
func UserFromContext(ctx context.Context) *model.User {
	u, _ := ctx.Value(ctxKeyUser).(*model.User)
	return u
}
