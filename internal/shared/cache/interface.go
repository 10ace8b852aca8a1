// Package cache 缓存层抽象接口
//
// 提供页面渲染缓存与投票计数，当前由 Redis 实现。
package cache

import (
	"context"
	"time"
)

// ============================================================================
// 缓存接口定义
// ============================================================================

// RenderCache 页面渲染缓存接口
//
// 以请求路径为键缓存渲染后的 HTML；内容变更时按路径失效。
type RenderCache interface {
	GetRender(ctx context.Context, path string) (html string, ok bool, err error)
	SetRender(ctx context.Context, path, html string, ttl time.Duration) error
	InvalidatePaths(ctx context.Context, paths ...string) error
	InvalidateAll(ctx context.Context) error
}

// VoteStore 投票计数接口
//
// CastVote 是切换语义：同一投票者重复投同一票会撤销投票，
// 改投另一种票会把计数从旧类型移到新类型。整个过程原子完成。
type VoteStore interface {
	CastVote(ctx context.Context, postID, voterID string, vote VoteType) (*VoteResult, error)
	GetVotes(ctx context.Context, postID, voterID string) (*VoteResult, error)
}

// ============================================================================
// 组合接口
// ============================================================================

// Cache 缓存组合接口
type Cache interface {
	RenderCache
	VoteStore
	Close() error
}
