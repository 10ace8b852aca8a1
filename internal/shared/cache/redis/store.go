// Package redis 基于 Redis 的渲染缓存与投票计数
//
// 渲染缓存键为 render:{path}，并用 render:index 集合记录已缓存路径，
// 以便全站失效；投票使用两个 hash（计数和投票者），由 Lua 脚本原子切换。
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"codefix-admin/internal/shared/cache"
)

// dialCheckTimeout 建连后首次 PING 的超时
const dialCheckTimeout = 5 * time.Second

// Store 实现 cache.Cache
type Store struct {
	client *redis.Client
}

var _ cache.Cache = (*Store)(nil)

// NewStoreFromURL 解析 redis:// URL 并确认连接可用
func NewStoreFromURL(redisURL string) (*Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	s := &Store{client: redis.NewClient(opts)}

	ctx, cancel := context.WithTimeout(context.Background(), dialCheckTimeout)
	defer cancel()
	if err := s.Ping(ctx); err != nil {
		s.client.Close()
		return nil, err
	}
	return s, nil
}

// NewStoreFromClient 复用已有连接（与事件总线共享）
func NewStoreFromClient(client *redis.Client) *Store {
	return &Store{client: client}
}

// Ping 健康检查
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// Client 底层连接
func (s *Store) Client() *redis.Client {
	return s.client
}
