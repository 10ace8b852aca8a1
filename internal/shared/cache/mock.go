// Package cache 缓存层 mock 实现
package cache

import (
	"context"
	"time"
)

// ============================================================================
// NoOpCache - 空操作的 Cache 实现（未配置 Redis 或测试时使用）
// ============================================================================

// NoOpCache 渲染缓存永远未命中，投票不可用
type NoOpCache struct{}

// NewNoOpCache 创建 NoOpCache 实例
func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

var _ Cache = (*NoOpCache)(nil)

// Close 关闭缓存
func (c *NoOpCache) Close() error {
	return nil
}

func (c *NoOpCache) GetRender(ctx context.Context, path string) (string, bool, error) {
	return "", false, nil
}
func (c *NoOpCache) SetRender(ctx context.Context, path, html string, ttl time.Duration) error {
	return nil
}
func (c *NoOpCache) InvalidatePaths(ctx context.Context, paths ...string) error {
	return nil
}
func (c *NoOpCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func (c *NoOpCache) CastVote(ctx context.Context, postID, voterID string, vote VoteType) (*VoteResult, error) {
	return nil, ErrUnavailable
}
func (c *NoOpCache) GetVotes(ctx context.Context, postID, voterID string) (*VoteResult, error) {
	return nil, ErrUnavailable
}
