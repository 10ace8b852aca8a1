// Package infra 基础设施聚合层
//
// 提供统一的基础设施初始化和依赖注入，包括：
//   - Docs：托管文档存储（MongoDB，开发/单机为 SQLite）
//   - Cache：页面渲染缓存与投票计数（Redis）
//   - EventBus：后台动态流（Redis Streams）
//   - Objects：媒体文件对象存储（MinIO）
//
// Redis 与 MinIO 都是可选的：未配置时分别退化为 NoOp 实现与 nil。
package infra

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"codefix-admin/internal/config"
	"codefix-admin/internal/shared/cache"
	"codefix-admin/internal/shared/eventbus"
	objstore "codefix-admin/internal/shared/minio"
	"codefix-admin/internal/shared/storage"
	"codefix-admin/internal/shared/storage/dbutil"
	sqlitedriver "codefix-admin/internal/shared/storage/driver/sqlite"
	"codefix-admin/internal/shared/storage/mongostore"
	"codefix-admin/internal/shared/storage/repository"
	"codefix-admin/pkg/logging"
)

// Infrastructure 基础设施聚合结构
type Infrastructure struct {
	// Docs 托管文档存储
	Docs storage.DocumentStore

	// Cache 渲染缓存与投票（Redis）
	Cache cache.Cache

	// EventBus 后台动态总线（Redis）
	EventBus eventbus.EventBus

	// Objects 媒体对象存储，未配置 MinIO 时为 nil
	Objects *objstore.Client

	// closers 按创建顺序记录需要关闭的连接
	closers []io.Closer
}

// Close 关闭所有基础设施连接
func (i *Infrastructure) Close() error {
	var lastErr error
	for j := len(i.closers) - 1; j >= 0; j-- {
		if err := i.closers[j].Close(); err != nil {
			lastErr = err
		}
	}
	i.closers = nil
	return lastErr
}

// NewNoOpInfrastructure 创建基于内存存储的基础设施（用于测试）
func NewNoOpInfrastructure() *Infrastructure {
	return &Infrastructure{
		Docs:     storage.NewMemoryStore(),
		Cache:    cache.NewNoOpCache(),
		EventBus: eventbus.NewNoOpEventBus(),
	}
}

// New 按配置初始化全部基础设施
//
// 文档存储是必需的，连接失败直接返回错误；
// Redis 和 MinIO 失败只记录警告，对应功能降级。
func New(cfg *config.Config, log *logging.Logger) (*Infrastructure, error) {
	if log == nil {
		log = logging.Nop()
	}
	log = log.Named("infra")

	docs, err := NewDocumentStore(cfg.DatabaseDriver, cfg.DatabaseURL, cfg.DatabaseName, log)
	if err != nil {
		return nil, err
	}
	inf := &Infrastructure{
		Docs:     docs,
		Cache:    cache.NewNoOpCache(),
		EventBus: eventbus.NewNoOpEventBus(),
		closers:  []io.Closer{docs},
	}

	if cfg.RedisURL != "" {
		r, err := NewRedisInfra(cfg.RedisURL, log)
		if err != nil {
			log.Warn("redis unavailable, render cache and votes disabled", zap.Error(err))
		} else {
			inf.Cache = r.Cache()
			inf.EventBus = r.EventBus()
			inf.closers = append(inf.closers, r)
		}
	}

	if cfg.MinIO.Endpoint != "" {
		objects, err := objstore.NewClient(cfg.MinIO)
		if err != nil {
			log.Warn("minio client init failed, media uploads disabled", zap.Error(err))
		} else {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err := objects.EnsureBucket(ctx)
			cancel()
			if err != nil {
				log.Warn("minio bucket check failed", zap.Error(err))
			}
			inf.Objects = objects
		}
	}

	return inf, nil
}

// NewDocumentStore 按驱动类型创建文档存储
//
// sqlite 会自动建表；mongodb 会确保索引存在。
func NewDocumentStore(driver, url, dbName string, log *logging.Logger) (storage.DocumentStore, error) {
	switch dbutil.DriverType(driver) {
	case dbutil.DriverSQLite:
		db, err := sqlitedriver.Open(url)
		if err != nil {
			return nil, err
		}
		dialect := sqlitedriver.NewDialect()
		if err := dialect.AutoMigrate(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite migrate: %w", err)
		}
		log.Info("document store ready", zap.String("driver", driver))
		return repository.NewStore(db, dialect), nil
	case dbutil.DriverMongoDB, "":
		s, err := mongostore.NewStore(url, dbName, log)
		if err != nil {
			return nil, err
		}
		log.Info("document store ready", zap.String("driver", "mongodb"), zap.String("database", dbName))
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %q", driver)
	}
}
