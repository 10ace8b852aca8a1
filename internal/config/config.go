package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"codefix-admin/pkg/logging"
)

// Load 加载配置
//  1. 加载 .env.{env}（dev/test）
//  2. 加载 {env}.yaml
//  3. 环境变量覆盖并填充密钥
func Load() *Config {
	env := parseEnv(getEnv("APP_ENV", "dev"))
	loadEnvFiles(env)

	yc := loadYAMLConfig(env)
	applyEnvOverrides(&yc.YAMLConfig)

	dbURL := buildDatabaseURL(yc.Database, yc.Database.Password)
	cfg := &Config{
		Env:            env,
		DatabaseDriver: detectDatabaseDriver(yc.Database.Driver, dbURL),
		DatabaseURL:    dbURL,
		DatabaseName:   yc.Database.Name,
		SQLitePath:     yc.Database.Path,
		RedisURL:       buildRedisURL(yc.Redis),
		APIPort:        yc.APIServer.Port,
		BaseURL:        yc.APIServer.BaseURL,
		Auth:           yc.Auth,
		MinIO:          yc.MinIO,
		Executor:       yc.Executor,
		Tools:          yc.Tools,
		Cache:          yc.Cache,
		Log:            yc.Log,
		ConfigFilePath: yc.loadedFrom,
	}
	cfg.validate()
	return cfg
}

// defaultYAMLConfig 代码硬编码默认值
func defaultYAMLConfig() YAMLConfig {
	return YAMLConfig{
		APIServer: APIServerConfig{Port: "8080", BaseURL: "http://localhost:8080"},
		Database:  DatabaseConfig{Driver: "mongodb", Host: "localhost", Port: 27017, Name: "codefix", Path: "data/codefix.db"},
		Redis:     RedisConfig{Host: "localhost", Port: 6379, DB: 0},
		MinIO:     MinIOConfig{Endpoint: "localhost:9000", Bucket: "codefix-media"},
		Auth: AuthConfig{
			SessionTTL:         24 * time.Hour,
			LoginRatePerMinute: 10,
			LoginBurst:         5,
		},
		Executor: ExecutorConfig{
			URL:              "https://emkc.org/api/v2/piston",
			CompileTimeoutMS: 10000,
			RunTimeoutMS:     3000,
			MemoryLimitBytes: -1,
			RequestTimeout:   30 * time.Second,
		},
		Tools: ToolsConfig{IPCacheSize: 512, Timeout: 5 * time.Second},
		Cache: CacheConfig{RenderTTL: 10 * time.Minute},
		Log:   logging.Config{Level: "info", Format: "console", Output: "stdout"},
	}
}

// loadYAMLConfig 加载 YAML 配置文件：默认值 → common.yaml → {env}.yaml
func loadYAMLConfig(env Environment) *yamlConfigInternal {
	cfg := &yamlConfigInternal{YAMLConfig: defaultYAMLConfig()}

	for _, base := range effectiveConfigPaths() {
		path := filepath.Join(base, "common.yaml")
		if data, err := os.ReadFile(path); err == nil {
			yaml.Unmarshal(data, &cfg.YAMLConfig)
			break
		}
	}

	filename := fmt.Sprintf("%s.yaml", env)
	for _, base := range effectiveConfigPaths() {
		path := filepath.Join(base, filename)
		if data, err := os.ReadFile(path); err == nil {
			yaml.Unmarshal(data, &cfg.YAMLConfig)
			cfg.loadedFrom = path
			break
		}
	}
	return cfg
}

// applyEnvOverrides 环境变量覆盖 YAML，并读取仅存在于环境变量的密钥
func applyEnvOverrides(c *YAMLConfig) {
	if v := os.Getenv("API_PORT"); v != "" {
		c.APIServer.Port = v
	}
	if v := os.Getenv("SITE_BASE_URL"); v != "" {
		c.APIServer.BaseURL = v
	}

	// 托管后端：endpoint 即 MongoDB URI，project id 即数据库名
	if v := firstEnv("MONGO_URI", "BACKEND_ENDPOINT"); v != "" {
		c.Database.URI = v
	}
	if v := os.Getenv("BACKEND_PROJECT_ID"); v != "" {
		c.Database.Name = v
	}
	if v := os.Getenv("DB_DRIVER"); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Database.Path = v
	}
	c.Database.Password = firstEnv("DB_PASSWORD", "MONGO_ROOT_PASSWORD")

	if v := os.Getenv("REDIS_URL"); v != "" {
		c.Redis.URL = v
	}
	c.Redis.Password = os.Getenv("REDIS_PASSWORD")

	if v := os.Getenv("MINIO_ENDPOINT"); v != "" {
		c.MinIO.Endpoint = v
	}
	c.MinIO.AccessKey = os.Getenv("MINIO_ROOT_USER")
	c.MinIO.SecretKey = os.Getenv("MINIO_ROOT_PASSWORD")

	c.Auth.SessionSecret = os.Getenv("SESSION_SECRET")
	c.Auth.AdminEmails = parseAdminEmails(os.Getenv("ADMIN_EMAILS"))
	c.Auth.AdminPassword = os.Getenv("ADMIN_PASSWORD")
	if v := os.Getenv("TRUSTED_PROXIES"); v != "" {
		c.Auth.TrustedProxies = strings.Split(v, ",")
	}

	if v := os.Getenv("EXECUTOR_URL"); v != "" {
		c.Executor.URL = v
	}
	if v := os.Getenv("IP_LOOKUP_URL"); v != "" {
		c.Tools.IPLookupURL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
}

// parseAdminEmails 解析逗号分隔的管理员邮箱白名单（统一小写）
func parseAdminEmails(raw string) []string {
	var emails []string
	for _, part := range strings.Split(raw, ",") {
		e := strings.ToLower(strings.TrimSpace(part))
		if e != "" {
			emails = append(emails, e)
		}
	}
	return emails
}

// validate 填充缺省值
func (c *Config) validate() {
	if c.APIPort == "" {
		c.APIPort = "8080"
	}
	if c.Auth.SessionTTL <= 0 {
		c.Auth.SessionTTL = 24 * time.Hour
	}
	if c.Auth.LoginRatePerMinute <= 0 {
		c.Auth.LoginRatePerMinute = 10
	}
	if c.Auth.LoginBurst <= 0 {
		c.Auth.LoginBurst = 5
	}
	if c.DatabaseName == "" {
		c.DatabaseName = "codefix"
	}
	if c.MinIO.Bucket == "" {
		c.MinIO.Bucket = "codefix-media"
	}
	if c.Executor.RequestTimeout <= 0 {
		c.Executor.RequestTimeout = 30 * time.Second
	}
	if c.Tools.IPCacheSize <= 0 {
		c.Tools.IPCacheSize = 512
	}
	if c.Tools.Timeout <= 0 {
		c.Tools.Timeout = 5 * time.Second
	}
	if c.Cache.RenderTTL <= 0 {
		c.Cache.RenderTTL = 10 * time.Minute
	}
	if c.Log.Component == "" {
		c.Log.Component = "api-server"
	}
}
