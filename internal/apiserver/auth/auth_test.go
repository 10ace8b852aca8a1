package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	c, err := NewCodec("test-secret", time.Hour)
	require.NoError(t, err)
	return c
}

func TestNewCodecRequiresSecret(t *testing.T) {
	_, err := NewCodec("", time.Hour)
	assert.ErrorIs(t, err, ErrNoSecret)

	c, err := NewCodec("x", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultSessionTTL, c.ttl)
}

func TestEncryptDecrypt(t *testing.T) {
	c := newTestCodec(t)
	token, exp, err := c.Encrypt("user-1")
	require.NoError(t, err)
	assert.Equal(t, 3, len(strings.Split(token, ".")))

	claims := c.Decrypt(token)
	require.NotNil(t, claims)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, exp.Unix(), claims.Expires)
	assert.Equal(t, exp.Unix(), claims.ExpiresAt.Unix())
	assert.NotNil(t, claims.IssuedAt)

	_, _, err = c.Encrypt("")
	assert.Error(t, err)
}

func TestDecryptRejectsTampered(t *testing.T) {
	c := newTestCodec(t)
	token, _, err := c.Encrypt("user-1")
	require.NoError(t, err)

	// 修改签名中的一个字符
	last := token[len(token)-2]
	repl := byte('A')
	if last == 'A' {
		repl = 'B'
	}
	tampered := token[:len(token)-2] + string(repl) + token[len(token)-1:]
	assert.Nil(t, c.Decrypt(tampered))

	assert.Nil(t, c.Decrypt(""))
	assert.Nil(t, c.Decrypt("not-a-token"))
}

func TestDecryptRejectsOtherSecret(t *testing.T) {
	a := newTestCodec(t)
	b, err := NewCodec("another-secret", time.Hour)
	require.NoError(t, err)

	token, _, err := a.Encrypt("user-1")
	require.NoError(t, err)
	assert.Nil(t, b.Decrypt(token))
}

func TestDecryptRejectsExpired(t *testing.T) {
	c := newTestCodec(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	issuer := c.WithClock(func() time.Time { return base })
	token, _, err := issuer.Encrypt("user-1")
	require.NoError(t, err)

	assert.NotNil(t, issuer.WithClock(func() time.Time { return base.Add(59 * time.Minute) }).Decrypt(token))
	assert.Nil(t, issuer.WithClock(func() time.Time { return base.Add(61 * time.Minute) }).Decrypt(token))
}

func TestDecryptRejectsOtherAlgorithms(t *testing.T) {
	c := newTestCodec(t)
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		UserID:           "user-1",
	}

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	assert.Nil(t, c.Decrypt(hs512))

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	assert.Nil(t, c.Decrypt(none))
}

func TestDecryptRequiresExpiry(t *testing.T) {
	c := newTestCodec(t)
	claims := SessionClaims{UserID: "user-1"}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	assert.Nil(t, c.Decrypt(token))
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, CheckPassword("correct horse", hash))
	assert.False(t, CheckPassword("wrong", hash))
	assert.False(t, CheckPassword("correct horse", ""))
}
