// Package repository 基于 SQL 的 DocumentStore 实现
//
// 通过 dbutil.Dialect 接口屏蔽数据库 SQL 差异，
// 所有 SQL 以 PostgreSQL 占位符风格编写，运行时由 Dialect.Rebind() 转换。
// 文档以 JSON 存放在 documents 表的 data 列，id/created_at/updated_at
// 同时冗余在独立列上用于主键和排序。
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"codefix-admin/internal/shared/storage"
	"codefix-admin/internal/shared/storage/dbutil"
)

// Store 通用存储实现
// 实现了 storage.DocumentStore 接口
type Store struct {
	db      *sql.DB
	dialect dbutil.Dialect
}

var _ storage.DocumentStore = (*Store)(nil)

// NewStore 创建通用存储
func NewStore(db *sql.DB, dialect dbutil.Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

// Close 关闭数据库连接
func (s *Store) Close() error {
	return s.db.Close()
}

// DB 返回底层数据库连接（仅用于测试）
func (s *Store) DB() *sql.DB {
	return s.db
}

// rebind 快捷方法：将 PG 风格 SQL 转换为当前方言
func (s *Store) rebind(query string) string {
	return s.dialect.Rebind(query)
}

// Get 按 id 读取文档，不存在时返回 (nil, nil)
func (s *Store) Get(ctx context.Context, collection, id string) (storage.Document, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT data FROM documents WHERE collection = $1 AND id = $2`),
		collection, id,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return unmarshalDoc(data)
}

// Find 按条件列出文档
func (s *Store) Find(ctx context.Context, collection string, q storage.Query) ([]storage.Document, error) {
	conditions := []string{"collection = $1"}
	args := []any{collection}
	for _, f := range q.Filters {
		if err := storage.ValidField(f.Field); err != nil {
			return nil, err
		}
		args = append(args, sqlValue(f.Value))
		conditions = append(conditions, fmt.Sprintf("%s = $%d", s.dialect.JSONField("data", f.Field), len(args)))
	}

	orderBy := q.OrderBy
	if orderBy == "" {
		orderBy = "created_at"
	}
	if err := storage.ValidField(orderBy); err != nil {
		return nil, err
	}
	dir := "ASC"
	if q.Descending {
		dir = "DESC"
	}

	query := "SELECT data FROM documents WHERE " + strings.Join(conditions, " AND ") +
		fmt.Sprintf(" ORDER BY %s %s, id %s", s.dialect.JSONField("data", orderBy), dir, dir)
	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []storage.Document{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		doc, err := unmarshalDoc(data)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Insert 插入文档，无 id 时生成
func (s *Store) Insert(ctx context.Context, collection string, doc storage.Document) (string, error) {
	doc, err := normalizeDoc(doc)
	if err != nil {
		return "", err
	}
	id := doc.ID()
	if id == "" {
		id = storage.NewID()
		doc["id"] = id
	}
	now := storage.FormatTime(time.Now())
	if _, ok := doc["created_at"]; !ok {
		doc["created_at"] = now
	}
	if _, ok := doc["updated_at"]; !ok {
		doc["updated_at"] = now
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	_, err = s.db.ExecContext(ctx,
		s.rebind(`INSERT INTO documents (collection, id, data, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)`),
		collection, id, string(data), fmt.Sprint(doc["created_at"]), fmt.Sprint(doc["updated_at"]),
	)
	if s.dialect.IsUniqueViolation(err) {
		return "", storage.ErrDuplicate
	}
	if err != nil {
		return "", err
	}
	return id, nil
}

// Update 按 id 合并更新字段（json_patch 语义：值为 null 的字段被移除）
func (s *Store) Update(ctx context.Context, collection, id string, fields storage.Document) error {
	fields, err := normalizeDoc(fields)
	if err != nil {
		return err
	}
	delete(fields, "id")
	now := storage.FormatTime(time.Now())
	fields["updated_at"] = now

	patch, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		s.rebind(`UPDATE documents SET data = json_patch(data, $1), updated_at = $2
		 WHERE collection = $3 AND id = $4`),
		string(patch), now, collection, id,
	)
	if s.dialect.IsUniqueViolation(err) {
		return storage.ErrDuplicate
	}
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Delete 按 id 删除
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	res, err := s.db.ExecContext(ctx,
		s.rebind(`DELETE FROM documents WHERE collection = $1 AND id = $2`),
		collection, id,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// normalizeDoc 通过 JSON 往返把结构体值（time.Time 等）转成 JSON 兼容值
func normalizeDoc(doc storage.Document) (storage.Document, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	out := storage.Document{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return storage.NormalizeTimes(out), nil
}

func unmarshalDoc(data string) (storage.Document, error) {
	doc := storage.Document{}
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return nil, fmt.Errorf("corrupt document: %w", err)
	}
	return doc, nil
}

// sqlValue json_extract 对布尔值返回 0/1
func sqlValue(v any) any {
	if b, ok := v.(bool); ok {
		if b {
			return 1
		}
		return 0
	}
	return v
}
