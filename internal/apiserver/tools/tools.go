// Package tools 开发者工具领域 - JSON 格式化、JWT 解码、文本统计与 IP 查询
//
// 这些工具是无状态的纯函数，HTTP 层只做编解码。
package tools

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
)

// MaxInputSize 工具输入上限
const MaxInputSize = 1 << 20

// wordsPerMinute 阅读时间估算速度
const wordsPerMinute = 200

// FormatJSON 格式化 JSON；indent 为 0 时压缩
func FormatJSON(input string, indent int) (string, error) {
	src := []byte(strings.TrimSpace(input))
	if len(src) == 0 {
		return "", errors.New("input is empty")
	}
	var buf bytes.Buffer
	var err error
	if indent <= 0 {
		err = json.Compact(&buf, src)
	} else {
		if indent > 8 {
			indent = 8
		}
		err = json.Indent(&buf, src, "", strings.Repeat(" ", indent))
	}
	if err != nil {
		var syn *json.SyntaxError
		if errors.As(err, &syn) {
			line, col := position(src, syn.Offset)
			return "", fmt.Errorf("%s at line %d, column %d", syn.Error(), line, col)
		}
		return "", err
	}
	return buf.String(), nil
}

// position 把字节偏移换算成行列（均从 1 开始）
func position(src []byte, offset int64) (line, col int) {
	if offset > int64(len(src)) {
		offset = int64(len(src))
	}
	before := src[:offset]
	line = bytes.Count(before, []byte("\n")) + 1
	col = utf8.RuneCount(before[bytes.LastIndexByte(before, '\n')+1:])
	if col == 0 {
		col = 1
	}
	return line, col
}

// DecodedJWT JWT 解码结果（不验证签名）
type DecodedJWT struct {
	Header    map[string]interface{} `json:"header"`
	Claims    map[string]interface{} `json:"claims"`
	Signature string                 `json:"signature"`
	ExpiresAt *time.Time             `json:"expires_at,omitempty"`
	IssuedAt  *time.Time             `json:"issued_at,omitempty"`
	Expired   bool                   `json:"expired"`
}

// DecodeJWT 解码 JWT 的头部与声明，不校验签名
func DecodeJWT(token string, now time.Time) (*DecodedJWT, error) {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	if token == "" {
		return nil, errors.New("token is empty")
	}
	claims := jwt.MapClaims{}
	parsed, parts, err := jwt.NewParser().ParseUnverified(token, claims)
	if err != nil {
		return nil, fmt.Errorf("malformed token: %w", err)
	}

	out := &DecodedJWT{Header: parsed.Header, Claims: claims}
	if len(parts) == 3 {
		out.Signature = parts[2]
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		t := exp.Time.UTC()
		out.ExpiresAt = &t
		out.Expired = !now.Before(t)
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		t := iat.Time.UTC()
		out.IssuedAt = &t
	}
	return out, nil
}

// TextStats 文本统计
type TextStats struct {
	Characters      int `json:"characters"`
	CharactersNoWS  int `json:"characters_no_spaces"`
	Bytes           int `json:"bytes"`
	Words           int `json:"words"`
	Lines           int `json:"lines"`
	Paragraphs      int `json:"paragraphs"`
	ReadingMinutes  int `json:"reading_minutes"`
	UniqueWords     int `json:"unique_words"`
	LongestWordSize int `json:"longest_word"`
}

// AnalyzeText 统计字符、单词、行与段落
func AnalyzeText(text string) TextStats {
	s := TextStats{Bytes: len(text)}
	for _, r := range text {
		s.Characters++
		if !unicode.IsSpace(r) {
			s.CharactersNoWS++
		}
	}
	if text == "" {
		return s
	}
	s.Lines = strings.Count(text, "\n") + 1

	words := strings.Fields(text)
	s.Words = len(words)
	unique := make(map[string]struct{}, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimFunc(w, unicode.IsPunct))
		if w == "" {
			continue
		}
		unique[w] = struct{}{}
		if n := utf8.RuneCountInString(w); n > s.LongestWordSize {
			s.LongestWordSize = n
		}
	}
	s.UniqueWords = len(unique)

	for _, p := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		if strings.TrimSpace(p) != "" {
			s.Paragraphs++
		}
	}
	if s.Words > 0 {
		s.ReadingMinutes = (s.Words + wordsPerMinute - 1) / wordsPerMinute
	}
	return s
}
