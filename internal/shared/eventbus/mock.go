// Package eventbus 事件总线 mock 实现
package eventbus

import (
	"context"
	"sync"
)

// ============================================================================
// NoOpEventBus - 空操作的 EventBus 实现
// ============================================================================

// NoOpEventBus 丢弃所有事件
type NoOpEventBus struct{}

// NewNoOpEventBus 创建 NoOpEventBus 实例
func NewNoOpEventBus() *NoOpEventBus {
	return &NoOpEventBus{}
}

var _ EventBus = (*NoOpEventBus)(nil)

func (b *NoOpEventBus) Close() error { return nil }

func (b *NoOpEventBus) PublishActivity(ctx context.Context, event *ActivityEvent) error {
	return nil
}
func (b *NoOpEventBus) RecentActivity(ctx context.Context, count int64) ([]*ActivityEvent, error) {
	return []*ActivityEvent{}, nil
}

// SubscribeActivity 返回在 ctx 结束时关闭的空通道
func (b *NoOpEventBus) SubscribeActivity(ctx context.Context) (<-chan *ActivityEvent, error) {
	ch := make(chan *ActivityEvent)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

// ============================================================================
// RecordingBus - 记录发布事件的实现（测试使用）
// ============================================================================

// RecordingBus 记录所有发布的事件
type RecordingBus struct {
	NoOpEventBus
	mu     sync.Mutex
	events []*ActivityEvent
}

// NewRecordingBus 创建 RecordingBus
func NewRecordingBus() *RecordingBus {
	return &RecordingBus{}
}

func (b *RecordingBus) PublishActivity(ctx context.Context, event *ActivityEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	return nil
}

// Events 返回已记录事件的副本
func (b *RecordingBus) Events() []*ActivityEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*ActivityEvent(nil), b.events...)
}

// Types 返回已记录事件的类型列表
func (b *RecordingBus) Types() []string {
	var types []string
	for _, e := range b.Events() {
		types = append(types, e.Type)
	}
	return types
}
