// Package redis 页面渲染缓存操作
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"codefix-admin/internal/shared/cache"
)

func renderKey(path string) string {
	return cache.KeyRender + path
}

// GetRender 读取渲染缓存
func (s *Store) GetRender(ctx context.Context, path string) (string, bool, error) {
	html, err := s.client.Get(ctx, renderKey(path)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get render cache: %w", err)
	}
	return html, true, nil
}

// SetRender 写入渲染缓存，并登记到索引集合
func (s *Store) SetRender(ctx context.Context, path, html string, ttl time.Duration) error {
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, renderKey(path), html, ttl)
	pipe.SAdd(ctx, cache.KeyRenderIndex, path)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to set render cache: %w", err)
	}
	return nil
}

// InvalidatePaths 按路径失效
func (s *Store) InvalidatePaths(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	keys := make([]string, len(paths))
	members := make([]interface{}, len(paths))
	for i, p := range paths {
		keys[i] = renderKey(p)
		members[i] = p
	}
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, keys...)
	pipe.SRem(ctx, cache.KeyRenderIndex, members...)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to invalidate render cache: %w", err)
	}
	return nil
}

// InvalidateAll 失效全部渲染缓存（菜单、设置等全站共享内容变更时）
func (s *Store) InvalidateAll(ctx context.Context) error {
	paths, err := s.client.SMembers(ctx, cache.KeyRenderIndex).Result()
	if err != nil {
		return fmt.Errorf("failed to list render cache: %w", err)
	}
	if len(paths) == 0 {
		return nil
	}
	keys := make([]string, 0, len(paths)+1)
	for _, p := range paths {
		keys = append(keys, renderKey(p))
	}
	keys = append(keys, cache.KeyRenderIndex)
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate render cache: %w", err)
	}
	return nil
}
