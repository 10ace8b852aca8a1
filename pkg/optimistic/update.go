// Package optimistic 乐观更新状态机
//
// 本地先应用变更，再发起远程调用；调用失败则回滚到变更前的值。
// 状态流转：idle → pending → committed | reverted，之后可再次进入 pending。
// 失败不重试。
package optimistic

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// State 更新状态
type State string

const (
	StateIdle      State = "idle"
	StatePending   State = "pending"
	StateCommitted State = "committed"
	StateReverted  State = "reverted"
)

// ErrPending 已有更新在进行中
var ErrPending = errors.New("optimistic: update already pending")

// ErrNotPending 当前没有进行中的更新
var ErrNotPending = errors.New("optimistic: no pending update")

// Update 单个值的乐观更新
type Update[T any] struct {
	mu    sync.Mutex
	state State
	value T
	prev  T
	err   error
}

// New 以初始值创建，状态为 idle
func New[T any](initial T) *Update[T] {
	return &Update[T]{state: StateIdle, value: initial}
}

// Value 当前展示值（pending 时为预测值）
func (u *Update[T]) Value() T {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.value
}

// State 当前状态
func (u *Update[T]) State() State {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.state
}

// Err 最近一次回滚的原因
func (u *Update[T]) Err() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.err
}

// Begin 应用预测值并进入 pending，返回预测值
func (u *Update[T]) Begin(apply func(T) T) (T, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.state == StatePending {
		return u.value, ErrPending
	}
	u.prev = u.value
	u.value = apply(u.value)
	u.state = StatePending
	u.err = nil
	return u.value, nil
}

// Commit pending → committed，以服务端确认的值为准
func (u *Update[T]) Commit(confirmed T) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.state != StatePending {
		return ErrNotPending
	}
	u.value = confirmed
	u.state = StateCommitted
	return nil
}

// Revert pending → reverted，恢复 Begin 之前的值
func (u *Update[T]) Revert(cause error) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.state != StatePending {
		return ErrNotPending
	}
	u.value = u.prev
	u.state = StateReverted
	u.err = cause
	return nil
}

// Reset 直接设置值（如从服务端刷新），pending 时拒绝
func (u *Update[T]) Reset(value T) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.state == StatePending {
		return ErrPending
	}
	u.value = value
	u.state = StateIdle
	u.err = nil
	return nil
}

// Do 完整执行一次乐观更新：Begin → call → Commit 或 Revert
//
// call 收到预测值，返回服务端确认值；call 出错时回滚并返回该错误。
func Do[T any](ctx context.Context, u *Update[T], apply func(T) T, call func(ctx context.Context, predicted T) (T, error)) (T, error) {
	predicted, err := u.Begin(apply)
	if err != nil {
		return predicted, err
	}
	confirmed, err := call(ctx, predicted)
	if err != nil {
		u.Revert(err)
		return u.Value(), fmt.Errorf("optimistic update reverted: %w", err)
	}
	u.Commit(confirmed)
	return confirmed, nil
}
