// Package eventbus 事件总线抽象接口
//
// 提供后台操作动态（activity）的发布/订阅能力，当前由 Redis Streams 实现。
// 发布是尽力而为的：调用方记录失败但不因此中断业务操作。
package eventbus

import (
	"context"
)

// ============================================================================
// 事件总线接口定义
// ============================================================================

// ActivityBus 后台操作动态总线
type ActivityBus interface {
	PublishActivity(ctx context.Context, event *ActivityEvent) error
	RecentActivity(ctx context.Context, count int64) ([]*ActivityEvent, error)
	SubscribeActivity(ctx context.Context) (<-chan *ActivityEvent, error)
}

// ============================================================================
// 组合接口
// ============================================================================

// EventBus 事件总线组合接口
type EventBus interface {
	ActivityBus
	Close() error
}
