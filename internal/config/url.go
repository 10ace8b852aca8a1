package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// defaultSQLitePath 生产环境 SQLite 文件位置
const defaultSQLitePath = "/var/lib/codefix-admin/codefix.db"

// buildDatabaseURL 生成文档库 DSN；凭据经 url.UserPassword 转义
func buildDatabaseURL(db DatabaseConfig, password string) string {
	if strings.EqualFold(db.Driver, "sqlite") {
		p := db.Path
		if p == "" {
			p = defaultSQLitePath
		}
		return "file:" + p + "?cache=shared&mode=rwc"
	}
	if db.URI != "" {
		return db.URI
	}
	u := url.URL{Scheme: "mongodb", Host: net.JoinHostPort(db.Host, strconv.Itoa(db.Port))}
	if db.User != "" && password != "" {
		u.User = url.UserPassword(db.User, password)
	}
	return u.String()
}

// detectDatabaseDriver YAML driver 优先，其次按 DSN 前缀判断，默认 mongodb
func detectDatabaseDriver(yamlDriver, databaseURL string) string {
	switch d := strings.ToLower(yamlDriver); d {
	case "sqlite", "mongodb":
		return d
	}
	for _, prefix := range []string{"file:", "sqlite:"} {
		if strings.HasPrefix(databaseURL, prefix) {
			return "sqlite"
		}
	}
	return "mongodb"
}

// buildRedisURL 显式 URL 优先，否则由 host/port/db/password 拼出
func buildRedisURL(r RedisConfig) string {
	if r.URL != "" {
		return r.URL
	}
	u := url.URL{
		Scheme: "redis",
		Host:   net.JoinHostPort(r.Host, strconv.Itoa(r.Port)),
		Path:   "/" + strconv.Itoa(r.DB),
	}
	if r.Password != "" {
		u.User = url.UserPassword("", r.Password)
	}
	return u.String()
}

var passwordPattern = regexp.MustCompile(`(://[^:/]*:)([^@]+)(@)`)

// maskPassword 隐藏密码
func maskPassword(url string) string {
	return passwordPattern.ReplaceAllString(url, "${1}***${3}")
}

// parseEnv 解析环境字符串
func parseEnv(env string) Environment {
	switch strings.ToLower(env) {
	case "test":
		return EnvTest
	case "prod", "production":
		return EnvProduction
	default:
		return EnvDevelopment
	}
}

// firstEnv 返回第一个非空的环境变量值
func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// getEnv 获取环境变量，支持默认值
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// IsTest 是否为测试环境
func (c *Config) IsTest() bool {
	return c.Env == EnvTest
}

// IsProduction 是否为生产环境（决定 Cookie 的 Secure 属性）
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// String 返回配置摘要（隐藏密码）
func (c *Config) String() string {
	return fmt.Sprintf("Config{Env: %s, Driver: %s, DB: %s/%s, Redis: %s, Admins: %d}",
		c.Env, c.DatabaseDriver, maskPassword(c.DatabaseURL), c.DatabaseName,
		maskPassword(c.RedisURL), len(c.Auth.AdminEmails))
}
