package storage

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// fieldNameRe 允许的字段名（防止拼接进 SQL 的 json path 被注入）
var fieldNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidField 校验字段名
func ValidField(name string) error {
	if !fieldNameRe.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidField, name)
	}
	return nil
}

// TimeLayout 文档时间字段的存储格式：UTC、纳秒定宽，字符串序与时间序一致
const TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// FormatTime 按 TimeLayout 格式化
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// NormalizeTimes 把以 _at 结尾的 RFC3339 字段改写为 TimeLayout（原地修改）
//
// JSON 编码的 time.Time 会去掉小数部分末尾的 0，按字符串排序时 "...:00Z" 会排在 "...:00.1Z" 之后。
func NormalizeTimes(doc Document) Document {
	for k, v := range doc {
		str, ok := v.(string)
		if !ok || !strings.HasSuffix(k, "_at") {
			continue
		}
		if t, err := time.Parse(time.RFC3339Nano, str); err == nil {
			doc[k] = FormatTime(t)
		}
	}
	return doc
}

// NewID 生成文档 ID
func NewID() string {
	return uuid.NewString()
}

// Encode 将实体结构体编码为文档（经由 JSON tag）
func Encode(v any) (Document, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return NormalizeTimes(doc), nil
}

// Decode 将文档解码为实体结构体
func Decode[T any](doc Document) (*T, error) {
	if doc == nil {
		return nil, nil
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return &out, nil
}

// DecodeAll 批量解码，跳过无法解码的文档
func DecodeAll[T any](docs []Document) []*T {
	out := make([]*T, 0, len(docs))
	for _, d := range docs {
		v, err := Decode[T](d)
		if err != nil || v == nil {
			continue
		}
		out = append(out, v)
	}
	return out
}
