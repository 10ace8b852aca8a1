package site

import (
	"encoding/json"
	"strings"
)

// Block 正文内容块
//
// 页面与文章正文以 JSON 块数组存储：
//
//	[{"type":"heading","level":2,"text":"..."},{"type":"code","language":"go","text":"..."}]
type Block struct {
	Type     string   `json:"type"`
	Text     string   `json:"text,omitempty"`
	Level    int      `json:"level,omitempty"`
	Language string   `json:"language,omitempty"`
	Items    []string `json:"items,omitempty"`
	URL      string   `json:"url,omitempty"`
	Alt      string   `json:"alt,omitempty"`
}

// ParseBody 解析正文
//
// 不是合法 JSON 块数组时整体作为纯文本，按空行拆成段落。
// 第二个返回值表示是否走了纯文本回退。
func ParseBody(body string) ([]Block, bool) {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return nil, false
	}
	if strings.HasPrefix(trimmed, "[") {
		var blocks []Block
		if err := json.Unmarshal([]byte(trimmed), &blocks); err == nil {
			return normalizeBlocks(blocks), false
		}
	}
	var out []Block
	for _, para := range strings.Split(strings.ReplaceAll(trimmed, "\r\n", "\n"), "\n\n") {
		if para = strings.TrimSpace(para); para != "" {
			out = append(out, Block{Type: "paragraph", Text: para})
		}
	}
	return out, true
}

func normalizeBlocks(blocks []Block) []Block {
	out := blocks[:0]
	for _, b := range blocks {
		switch b.Type {
		case "heading":
			if b.Level < 2 || b.Level > 4 {
				b.Level = 2
			}
		case "paragraph", "code", "quote", "list":
		case "image":
			if !safeURL(b.URL) {
				continue
			}
		default:
			// 未知类型按段落显示文本
			if b.Text == "" {
				continue
			}
			b.Type = "paragraph"
		}
		out = append(out, b)
	}
	return out
}

// safeURL 只允许站内路径与 http(s) 链接
func safeURL(u string) bool {
	return strings.HasPrefix(u, "/") && !strings.HasPrefix(u, "//") ||
		strings.HasPrefix(u, "https://") || strings.HasPrefix(u, "http://")
}
