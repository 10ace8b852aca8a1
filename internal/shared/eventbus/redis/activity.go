// Package redis 基于 Redis Streams 的事件总线实现
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"codefix-admin/internal/shared/eventbus"
	"codefix-admin/pkg/logging"
)

// Store Redis 事件总线
type Store struct {
	client *redis.Client
	log    *logging.Logger
}

var _ eventbus.EventBus = (*Store)(nil)

// NewStoreFromClient 从现有 Redis 客户端创建事件总线
func NewStoreFromClient(client *redis.Client, log *logging.Logger) *Store {
	if log == nil {
		log = logging.Nop()
	}
	return &Store{client: client, log: log.Named("eventbus")}
}

// Close 关闭 Redis 连接
func (s *Store) Close() error {
	return s.client.Close()
}

// PublishActivity 发布后台动态
func (s *Store) PublishActivity(ctx context.Context, event *eventbus.ActivityEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	dataJSON, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	id, err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: eventbus.KeyActivityStream,
		MaxLen: eventbus.MaxStreamLength,
		Approx: true,
		Values: map[string]interface{}{
			"type":       event.Type,
			"collection": event.Collection,
			"entity_id":  event.EntityID,
			"actor_id":   event.ActorID,
			"timestamp":  event.Timestamp.Format(time.RFC3339Nano),
			"data":       string(dataJSON),
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to publish activity: %w", err)
	}
	event.ID = id
	s.log.Debug("published activity", zap.String("id", id), zap.String("type", event.Type))
	return nil
}

// RecentActivity 获取最近的后台动态（新的在前）
func (s *Store) RecentActivity(ctx context.Context, count int64) ([]*eventbus.ActivityEvent, error) {
	if count <= 0 {
		count = 50
	}
	msgs, err := s.client.XRevRangeN(ctx, eventbus.KeyActivityStream, "+", "-", count).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get activity: %w", err)
	}
	events := make([]*eventbus.ActivityEvent, 0, len(msgs))
	for _, msg := range msgs {
		events = append(events, parseMessage(msg))
	}
	return events, nil
}

// SubscribeActivity 订阅新的后台动态，ctx 结束时关闭通道
func (s *Store) SubscribeActivity(ctx context.Context) (<-chan *eventbus.ActivityEvent, error) {
	ch := make(chan *eventbus.ActivityEvent, 100)

	go func() {
		defer close(ch)
		lastID := "$"

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			streams, err := s.client.XRead(ctx, &redis.XReadArgs{
				Streams: []string{eventbus.KeyActivityStream, lastID},
				Count:   10,
				Block:   2 * time.Second,
			}).Result()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue
				}
				if ctx.Err() == nil {
					s.log.Warn("activity subscription error", zap.Error(err))
				}
				return
			}

			for _, stream := range streams {
				for _, msg := range stream.Messages {
					lastID = msg.ID
					select {
					case ch <- parseMessage(msg):
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()

	return ch, nil
}

func parseMessage(msg redis.XMessage) *eventbus.ActivityEvent {
	str := func(k string) string {
		v, _ := msg.Values[k].(string)
		return v
	}
	event := &eventbus.ActivityEvent{
		ID:         msg.ID,
		Type:       str("type"),
		Collection: str("collection"),
		EntityID:   str("entity_id"),
		ActorID:    str("actor_id"),
	}
	if t, err := time.Parse(time.RFC3339Nano, str("timestamp")); err == nil {
		event.Timestamp = t
	}
	if data := str("data"); data != "" && data != "null" {
		var m map[string]interface{}
		if err := json.Unmarshal([]byte(data), &m); err == nil {
			event.Data = m
		}
	}
	return event
}
