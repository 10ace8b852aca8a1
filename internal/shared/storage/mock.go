// Package storage 提供存储层抽象
//
// mock.go 提供用于测试和无数据库开发模式的内存实现
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"
)

// MemoryStore 内存 DocumentStore 实现
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]Document

	// FailWith 非空时所有操作返回该错误（模拟后端不可用）
	FailWith error
}

// NewMemoryStore 创建内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]map[string]Document)}
}

var _ DocumentStore = (*MemoryStore)(nil)

// ErrUnavailable 模拟后端不可用
var ErrUnavailable = errors.New("storage backend unavailable")

func (m *MemoryStore) Get(_ context.Context, collection, id string) (Document, error) {
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.collections[collection][id]
	if !ok {
		return nil, nil
	}
	return clone(doc), nil
}

func (m *MemoryStore) Find(_ context.Context, collection string, q Query) ([]Document, error) {
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	filters := make([]Filter, 0, len(q.Filters))
	for _, f := range q.Filters {
		if err := ValidField(f.Field); err != nil {
			return nil, err
		}
		filters = append(filters, Filter{Field: f.Field, Value: normalize(f.Value)})
	}

	m.mu.RLock()
	out := []Document{}
	for _, doc := range m.collections[collection] {
		if matches(doc, filters) {
			out = append(out, clone(doc))
		}
	}
	m.mu.RUnlock()

	orderBy := q.OrderBy
	if orderBy == "" {
		orderBy = "created_at"
	}
	sort.SliceStable(out, func(i, j int) bool {
		less := lessValue(out[i][orderBy], out[j][orderBy])
		if q.Descending {
			return lessValue(out[j][orderBy], out[i][orderBy])
		}
		return less
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *MemoryStore) Insert(_ context.Context, collection string, doc Document) (string, error) {
	if m.FailWith != nil {
		return "", m.FailWith
	}
	doc = NormalizeTimes(clone(doc))
	id := doc.ID()
	if id == "" {
		id = NewID()
		doc["id"] = id
	}
	now := FormatTime(time.Now())
	if _, ok := doc["created_at"]; !ok {
		doc["created_at"] = now
	}
	if _, ok := doc["updated_at"]; !ok {
		doc["updated_at"] = now
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	col, ok := m.collections[collection]
	if !ok {
		col = make(map[string]Document)
		m.collections[collection] = col
	}
	if _, exists := col[id]; exists {
		return "", ErrDuplicate
	}
	col[id] = doc
	return id, nil
}

func (m *MemoryStore) Update(_ context.Context, collection, id string, fields Document) error {
	if m.FailWith != nil {
		return m.FailWith
	}
	fields = NormalizeTimes(clone(fields))
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.collections[collection][id]
	if !ok {
		return ErrNotFound
	}
	for k, v := range fields {
		if k == "id" {
			continue
		}
		doc[k] = v
	}
	doc["updated_at"] = FormatTime(time.Now())
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, collection, id string) error {
	if m.FailWith != nil {
		return m.FailWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collections[collection][id]; !ok {
		return ErrNotFound
	}
	delete(m.collections[collection], id)
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}

// clone 通过 JSON 往返深拷贝，并把数值统一成 float64
func clone(doc Document) Document {
	data, err := json.Marshal(doc)
	if err != nil {
		return Document{}
	}
	var out Document
	json.Unmarshal(data, &out)
	if out == nil {
		out = Document{}
	}
	return out
}

func normalize(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	json.Unmarshal(data, &out)
	return out
}

func matches(doc Document, filters []Filter) bool {
	for _, f := range filters {
		if !reflect.DeepEqual(doc[f.Field], f.Value) {
			return false
		}
	}
	return true
}

func lessValue(a, b any) bool {
	switch av := a.(type) {
	case float64:
		if bv, ok := b.(float64); ok {
			return av < bv
		}
	case string:
		if bv, ok := b.(string); ok {
			return av < bv
		}
	case nil:
		return b != nil
	}
	return fmt.Sprint(a) < fmt.Sprint(b)
}
