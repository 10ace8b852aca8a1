// Package infra Redis 基础设施初始化
package infra

import (
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"codefix-admin/internal/shared/cache"
	cacheredis "codefix-admin/internal/shared/cache/redis"
	"codefix-admin/internal/shared/eventbus"
	eventbusredis "codefix-admin/internal/shared/eventbus/redis"
	"codefix-admin/pkg/logging"
)

// RedisInfra Redis 基础设施
//
// Cache 与 EventBus 共用同一个客户端，只由 RedisInfra 负责关闭。
type RedisInfra struct {
	cacheStore    *cacheredis.Store
	eventBusStore *eventbusredis.Store
	client        *redis.Client
}

// NewRedisInfra 连接 Redis，缓存与事件总线共享这一条连接
func NewRedisInfra(redisURL string, log *logging.Logger) (*RedisInfra, error) {
	store, err := cacheredis.NewStoreFromURL(redisURL)
	if err != nil {
		return nil, err
	}
	client := store.Client()
	if log != nil {
		log.Info("redis connected", zap.String("addr", client.Options().Addr))
	}
	return &RedisInfra{
		client:        client,
		cacheStore:    store,
		eventBusStore: eventbusredis.NewStoreFromClient(client, log),
	}, nil
}

// NewRedisInfraFromClient 从现有客户端创建（测试使用 miniredis）
func NewRedisInfraFromClient(client *redis.Client, log *logging.Logger) *RedisInfra {
	return &RedisInfra{
		client:        client,
		cacheStore:    cacheredis.NewStoreFromClient(client),
		eventBusStore: eventbusredis.NewStoreFromClient(client, log),
	}
}

// Cache 返回缓存组件接口
func (r *RedisInfra) Cache() cache.Cache {
	return nonClosingCache{r.cacheStore}
}

// EventBus 返回事件总线组件接口
func (r *RedisInfra) EventBus() eventbus.EventBus {
	return nonClosingBus{r.eventBusStore}
}

// Client 返回底层 Redis 客户端
func (r *RedisInfra) Client() *redis.Client {
	return r.client
}

// Close 关闭 Redis 连接
func (r *RedisInfra) Close() error {
	return r.client.Close()
}

// nonClosingCache/nonClosingBus 屏蔽组件自身的 Close，避免重复关闭共享客户端
type nonClosingCache struct{ *cacheredis.Store }

func (nonClosingCache) Close() error { return nil }

type nonClosingBus struct{ *eventbusredis.Store }

func (nonClosingBus) Close() error { return nil }
