// Package storage 定义存储层领域错误
//
// 这些错误用于隔离业务层与底层存储引擎的错误类型，
// 各驱动实现（mongostore/repository/memory）负责将底层错误转换为这些领域错误。
package storage

import "errors"

var (
	// ErrNotFound 文档不存在
	// 替代 sql.ErrNoRows / mongo.ErrNoDocuments
	ErrNotFound = errors.New("document not found")

	// ErrDuplicate 唯一键冲突（INSERT 重复 ID 或重复邮箱）
	ErrDuplicate = errors.New("duplicate: document already exists")

	// ErrInvalidField 查询字段名非法
	ErrInvalidField = errors.New("invalid field name")
)
