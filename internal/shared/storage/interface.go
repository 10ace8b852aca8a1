// Package storage 定义文档存储抽象
//
// 设计原则：依赖倒置 (DIP)
//   - 调用方只依赖 DocumentStore 接口，不知道具体实现
//   - 具体实现在子包中：mongostore/（托管后端）、repository/（SQLite 嵌入式）
//   - 测试使用本包的 MemoryStore
//   - 初始化时通过 infra.NewDocumentStore 按驱动类型注入
//
// 文档约定：
//   - 每个文档的主键是字符串 "id"（MongoDB 中存为 _id，读取时展平回 id）
//   - 时间字段（*_at）以定宽 RFC3339 字符串存储（TimeLayout），按字符串排序即按时间排序
package storage

import (
	"context"
)

// Document 文档（JSON 兼容的 map）
type Document map[string]any

// ID 返回文档主键
func (d Document) ID() string {
	id, _ := d["id"].(string)
	return id
}

// Filter 等值过滤条件
type Filter struct {
	Field string
	Value any
}

// Query 列表查询参数
type Query struct {
	Filters    []Filter
	OrderBy    string // 为空时按 created_at
	Descending bool
	Limit      int // <= 0 表示不限制
}

// Where 追加等值过滤条件
func (q Query) Where(field string, value any) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), Filter{Field: field, Value: value})
	return q
}

// DocumentStore 文档存储接口
//
// 语义约定（所有实现一致）：
//   - Get 文档不存在时返回 (nil, nil)
//   - Insert 文档无 id 时生成 UUID，重复 id 返回 ErrDuplicate
//   - Update 只覆盖给定字段，文档不存在返回 ErrNotFound
//   - Delete 文档不存在返回 ErrNotFound
type DocumentStore interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	Find(ctx context.Context, collection string, q Query) ([]Document, error)
	Insert(ctx context.Context, collection string, doc Document) (string, error)
	Update(ctx context.Context, collection, id string, fields Document) error
	Delete(ctx context.Context, collection, id string) error
	Close() error
}

// Collection 名称常量
const (
	ColUsers      = "users"
	ColPages      = "pages"
	ColPosts      = "posts"
	ColMenus      = "menus"
	ColSettings   = "settings"
	ColHomepage   = "homepage"
	ColMedia      = "media"
	ColModeration = "moderation"
)
