package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatJSON(t *testing.T) {
	out, err := FormatJSON(`{"a":1,"b":[true,null]}`, 2)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": 1,\n  \"b\": [\n    true,\n    null\n  ]\n}", out)

	out, err = FormatJSON("{\n  \"a\" : 1 }", 0)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, out)

	_, err = FormatJSON("   ", 2)
	assert.Error(t, err)

	_, err = FormatJSON("{\n  \"a\": 1,\n}", 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 3")
}

func TestDecodeJWT(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "usr-1",
		"iat": now.Add(-2 * time.Hour).Unix(),
		"exp": now.Add(-time.Hour).Unix(),
	}).SignedString([]byte("whatever"))
	require.NoError(t, err)

	out, err := DecodeJWT("Bearer "+signed, now)
	require.NoError(t, err)
	assert.Equal(t, "HS256", out.Header["alg"])
	assert.Equal(t, "usr-1", out.Claims["sub"])
	assert.NotEmpty(t, out.Signature)
	require.NotNil(t, out.ExpiresAt)
	assert.True(t, out.Expired)
	require.NotNil(t, out.IssuedAt)

	// 同一 token 在过期前解码
	out, err = DecodeJWT(signed, now.Add(-90*time.Minute))
	require.NoError(t, err)
	assert.False(t, out.Expired)

	_, err = DecodeJWT("not-a-token", now)
	assert.Error(t, err)
	_, err = DecodeJWT("", now)
	assert.Error(t, err)
}

func TestAnalyzeText(t *testing.T) {
	s := AnalyzeText("Hello, world!\nHello again.\n\nNew paragraph")
	assert.Equal(t, 6, s.Words)
	assert.Equal(t, 4, s.Lines)
	assert.Equal(t, 2, s.Paragraphs)
	assert.Equal(t, 5, s.UniqueWords)
	assert.Equal(t, 9, s.LongestWordSize)
	assert.Equal(t, 1, s.ReadingMinutes)

	s = AnalyzeText("日本語 テキスト")
	assert.Equal(t, 8, s.Characters)
	assert.Equal(t, 7, s.CharactersNoWS)
	assert.Equal(t, 2, s.Words)
	assert.Greater(t, s.Bytes, s.Characters)

	assert.Equal(t, TextStats{}, AnalyzeText(""))
}

func TestIPLookupCachesUpstream(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/203.0.113.7", r.URL.Path)
		w.Write([]byte(`{"country":"NL","city":"Amsterdam"}`))
	}))
	t.Cleanup(srv.Close)

	l := NewIPLookup(srv.URL, 8, time.Second)
	info, err := l.Lookup(context.Background(), "203.0.113.7")
	require.NoError(t, err)
	assert.Equal(t, 4, info.Version)
	assert.False(t, info.Cached)
	assert.Equal(t, "NL", info.Geo["country"])

	info, err = l.Lookup(context.Background(), "203.0.113.7")
	require.NoError(t, err)
	assert.True(t, info.Cached)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, l.Len())

	// 私有地址不查询上游
	info, err = l.Lookup(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, info.Private)
	assert.Nil(t, info.Geo)
	assert.Equal(t, int32(1), calls.Load())

	_, err = l.Lookup(context.Background(), "not-an-ip")
	assert.Error(t, err)
}

func TestIPLookupUpstreamFailureKeepsLocalInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	h := NewHandler(NewIPLookup(srv.URL, 8, time.Second), nil)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	r := httptest.NewRequest(http.MethodGet, "/api/tools/ip", nil)
	r.Header.Set("X-Forwarded-For", "198.51.100.4, 10.0.0.1")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, r)
	require.Equal(t, http.StatusOK, rec.Code)

	var info IPInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, "198.51.100.4", info.IP)
	assert.Nil(t, info.Geo)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tools/ip?ip=bogus", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestToolRoutes(t *testing.T) {
	h := NewHandler(nil, nil)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	post := func(path string, body any) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		json.NewEncoder(&buf).Encode(body)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, &buf))
		return rec
	}

	rec := post("/api/tools/json/format", map[string]any{"input": `[1, 2]`, "indent": 0})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"output":"[1,2]"}`, rec.Body.String())

	rec = post("/api/tools/json/format", map[string]any{"input": `{`})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post("/api/tools/jwt/decode", map[string]any{"token": "a.b"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post("/api/tools/text/stats", map[string]any{"text": "one two"})
	require.Equal(t, http.StatusOK, rec.Code)
	var stats TextStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.Words)

	r := httptest.NewRequest(http.MethodGet, "/api/tools/ip", nil)
	r.RemoteAddr = "127.0.0.1:5555"
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, r)
	require.Equal(t, http.StatusOK, rec.Code)
	var info IPInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.True(t, info.Private)
}
