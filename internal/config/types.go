// Package config 统一配置管理
//
// 配置加载优先级（高→低）：
//  1. 环境变量（通过 .env 文件或 shell/systemd 注入）
//  2. YAML 配置文件（{env}.yaml，如 dev.yaml、test.yaml、prod.yaml）
//  3. 代码硬编码默认值
//
// 凭据单一数据源：
//
//	会话密钥、管理员邮箱白名单、数据库/Redis/MinIO 密码只存在环境变量中，
//	YAML 中不存储任何密钥。
//
// 配置路径确定策略：
//  1. SetConfigDir（--config 命令行参数）
//  2. CONFIG_DIR 环境变量
//  3. 按 APP_ENV 选择默认路径：prod → /etc/codefix-admin/，dev/test → ./configs/
package config

import (
	"time"

	"codefix-admin/pkg/logging"
)

// Environment 环境类型
type Environment string

const (
	EnvProduction  Environment = "prod"
	EnvTest        Environment = "test"
	EnvDevelopment Environment = "dev"
)

// YAMLConfig YAML 配置文件结构
type YAMLConfig struct {
	APIServer APIServerConfig `yaml:"api_server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	MinIO     MinIOConfig     `yaml:"minio"`
	Auth      AuthConfig      `yaml:"auth"`
	Executor  ExecutorConfig  `yaml:"executor"`
	Tools     ToolsConfig     `yaml:"tools"`
	Cache     CacheConfig     `yaml:"cache"`
	Log       logging.Config  `yaml:"log"`
}

// APIServerConfig API Server 配置
type APIServerConfig struct {
	Port    string `yaml:"port"`
	BaseURL string `yaml:"base_url"` // 站点对外 URL（sitectl 使用）
}

// AuthConfig 认证配置
// 注意：SessionSecret/AdminEmails/AdminPassword 只从环境变量读取
type AuthConfig struct {
	SessionSecret      string        `yaml:"-"` // SESSION_SECRET
	SessionTTL         time.Duration `yaml:"session_ttl"`
	AdminEmails        []string      `yaml:"-"` // ADMIN_EMAILS，逗号分隔
	AdminPassword      string        `yaml:"-"` // ADMIN_PASSWORD，启动时创建首个管理员
	LoginRatePerMinute float64       `yaml:"login_rate_per_minute"`
	LoginBurst         int           `yaml:"login_burst"`
	// TrustedProxies 反向代理 CIDR；只有来自这些地址的 X-Forwarded-For 才被采信
	TrustedProxies []string `yaml:"trusted_proxies"`
}

// DatabaseConfig 托管文档数据库配置
type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // "mongodb"（默认）或 "sqlite"
	URI      string `yaml:"uri"`    // MongoDB 连接 URI，优先于 host/port
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"-"`    // DB_PASSWORD
	Name     string `yaml:"name"` // 数据库名（即后端项目 ID）
	Path     string `yaml:"path"` // SQLite 文件路径
}

type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	DB       int    `yaml:"db"`
	Password string `yaml:"-"` // REDIS_PASSWORD
	URL      string `yaml:"url"`
}

// MinIOConfig 媒体文件对象存储配置
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"-"` // MINIO_ROOT_USER
	SecretKey string `yaml:"-"` // MINIO_ROOT_PASSWORD
	UseSSL    bool   `yaml:"use_ssl"`
	Bucket    string `yaml:"bucket"`
	PublicURL string `yaml:"public_url"` // 媒体对外访问前缀
}

// ExecutorConfig 第三方代码执行 API 配置
type ExecutorConfig struct {
	URL              string        `yaml:"url"`
	CompileTimeoutMS int           `yaml:"compile_timeout_ms"`
	RunTimeoutMS     int           `yaml:"run_timeout_ms"`
	MemoryLimitBytes int64         `yaml:"memory_limit_bytes"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
}

// ToolsConfig 开发者工具配置
type ToolsConfig struct {
	IPLookupURL string        `yaml:"ip_lookup_url"` // 为空时只返回客户端 IP
	IPCacheSize int           `yaml:"ip_cache_size"`
	Timeout     time.Duration `yaml:"timeout"`
}

// CacheConfig 页面渲染缓存配置
type CacheConfig struct {
	RenderTTL time.Duration `yaml:"render_ttl"`
}

// Config 应用配置（最终使用的配置）
type Config struct {
	Env            Environment
	DatabaseDriver string
	DatabaseURL    string
	DatabaseName   string
	SQLitePath     string
	RedisURL       string
	APIPort        string
	BaseURL        string
	Auth           AuthConfig
	MinIO          MinIOConfig
	Executor       ExecutorConfig
	Tools          ToolsConfig
	Cache          CacheConfig
	Log            logging.Config
	ConfigFilePath string
}

// yamlConfigInternal 内部包装，记录配置文件来源
type yamlConfigInternal struct {
	YAMLConfig `yaml:",inline"`
	loadedFrom string
}
