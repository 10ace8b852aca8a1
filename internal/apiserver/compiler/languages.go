// Package compiler 在线编译领域 - 代理第三方代码执行 API
package compiler

import "sort"

// Language 支持的语言（版本固定，避免上游升级改变行为）
type Language struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Runtime string `json:"runtime"`
	Version string `json:"version"`
	File    string `json:"file"`
}

var languages = map[string]Language{
	"c":          {ID: "c", Name: "C", Runtime: "c", Version: "10.2.0", File: "main.c"},
	"cpp":        {ID: "cpp", Name: "C++", Runtime: "c++", Version: "10.2.0", File: "main.cpp"},
	"csharp":     {ID: "csharp", Name: "C#", Runtime: "csharp", Version: "6.12.0", File: "Main.cs"},
	"go":         {ID: "go", Name: "Go", Runtime: "go", Version: "1.16.2", File: "main.go"},
	"java":       {ID: "java", Name: "Java", Runtime: "java", Version: "15.0.2", File: "Main.java"},
	"javascript": {ID: "javascript", Name: "JavaScript", Runtime: "javascript", Version: "18.15.0", File: "main.js"},
	"kotlin":     {ID: "kotlin", Name: "Kotlin", Runtime: "kotlin", Version: "1.8.20", File: "main.kt"},
	"php":        {ID: "php", Name: "PHP", Runtime: "php", Version: "8.2.3", File: "main.php"},
	"python":     {ID: "python", Name: "Python", Runtime: "python", Version: "3.10.0", File: "main.py"},
	"ruby":       {ID: "ruby", Name: "Ruby", Runtime: "ruby", Version: "3.0.1", File: "main.rb"},
	"rust":       {ID: "rust", Name: "Rust", Runtime: "rust", Version: "1.68.2", File: "main.rs"},
	"typescript": {ID: "typescript", Name: "TypeScript", Runtime: "typescript", Version: "5.0.3", File: "main.ts"},
}

// aliases 常见别名
var aliases = map[string]string{
	"c++":    "cpp",
	"cs":     "csharp",
	"golang": "go",
	"js":     "javascript",
	"node":   "javascript",
	"py":     "python",
	"py3":    "python",
	"rb":     "ruby",
	"rs":     "rust",
	"ts":     "typescript",
}

// Lookup 按 id 或别名查找语言
func Lookup(id string) (Language, bool) {
	if alias, ok := aliases[id]; ok {
		id = alias
	}
	l, ok := languages[id]
	return l, ok
}

// Languages 全部支持的语言（按 id 排序）
func Languages() []Language {
	out := make([]Language, 0, len(languages))
	for _, l := range languages {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
