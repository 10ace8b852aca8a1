// Package dbutil 提供 SQL 方言抽象和工具函数
//
// repository 层的 SQL 以 PostgreSQL 占位符风格（$1, $2）编写，
// 运行时由 Dialect.Rebind() 转换为目标数据库的格式。
package dbutil

import (
	"database/sql"
	"regexp"
)

// DriverType 数据库驱动类型
type DriverType string

const (
	DriverSQLite  DriverType = "sqlite"
	DriverMongoDB DriverType = "mongodb"
)

// Dialect 数据库方言接口
type Dialect interface {
	// DriverType 返回驱动类型标识
	DriverType() DriverType

	// Rebind 将 $1, $2, ... 占位符转换为目标数据库的占位符格式
	Rebind(query string) string

	// JSONField 返回提取文档字段的 SQL 表达式（字段名需预先校验）
	JSONField(column, field string) string

	// IsUniqueViolation 判断是否为唯一约束冲突
	IsUniqueViolation(err error) bool

	// AutoMigrate 自动创建/迁移数据库 Schema
	AutoMigrate(db *sql.DB) error
}

// pgPlaceholderRe 匹配 PostgreSQL 风格占位符 $1, $2, ...
var pgPlaceholderRe = regexp.MustCompile(`\$(\d+)`)

// RebindToQuestion 将 $N 占位符转换为 ?
func RebindToQuestion(query string) string {
	return pgPlaceholderRe.ReplaceAllString(query, "?")
}
