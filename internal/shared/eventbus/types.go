// Package eventbus 事件总线类型定义
package eventbus

import (
	"time"
)

// ============================================================================
// 事件类型
// ============================================================================

// ActivityEvent 后台操作动态
type ActivityEvent struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"` // 如 post.created、media.deleted、auth.login
	Collection string                 `json:"collection,omitempty"`
	EntityID   string                 `json:"entity_id,omitempty"`
	ActorID    string                 `json:"actor_id,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
	Data       map[string]interface{} `json:"data,omitempty"`
}

// ============================================================================
// Key 前缀和常量
// ============================================================================

const (
	// KeyActivityStream 后台动态 Stream
	KeyActivityStream = "activity:admin"

	// MaxStreamLength Stream 最大长度（近似裁剪）
	MaxStreamLength = 1000
)
