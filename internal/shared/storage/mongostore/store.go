// Package mongostore 实现基于 MongoDB 的 DocumentStore（托管后端）
//
// 使用 mongo-go-driver v2。文档主键存为 _id，读取时展平为 id；
// 写入前统一经过 JSON 归一化，时间字段以定宽 RFC3339 字符串存储，
// 与 SQLite 实现保持一致。
// 所有 Collection 的索引在 ensureIndexes 中统一管理。
package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"

	"codefix-admin/internal/shared/storage"
	"codefix-admin/pkg/logging"
)

// Store 实现 storage.DocumentStore 接口的 MongoDB 驱动
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	log    *logging.Logger
}

var _ storage.DocumentStore = (*Store)(nil)

// NewStore 创建 MongoDB 存储实例
//
// uri: MongoDB 连接 URI，如 "mongodb://localhost:27017"
// dbName: 数据库名称（即后端项目 ID），如 "codefix"
func NewStore(uri, dbName string, log *logging.Logger) (*Store, error) {
	if log == nil {
		log = logging.Nop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongostore: connect failed: %w", err)
	}

	// 验证连接
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongostore: ping failed: %w", err)
	}

	s := &Store{client: client, db: client.Database(dbName), log: log.Named("mongostore")}

	if err := s.ensureIndexes(ctx); err != nil {
		s.log.Warn("ensure indexes failed", zap.Error(err))
	}

	return s, nil
}

// Close 关闭 MongoDB 连接
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// col 获取指定 Collection
func (s *Store) col(name string) *mongo.Collection {
	return s.db.Collection(name)
}

// ensureIndexes 创建所有必要的索引
//
// slug 只建普通索引：唯一性不在存储层强制。
func (s *Store) ensureIndexes(ctx context.Context) error {
	type idx struct {
		col    string
		keys   bson.D
		unique bool
	}

	indexes := []idx{
		// users
		{storage.ColUsers, bson.D{{Key: "email", Value: 1}}, true},

		// pages
		{storage.ColPages, bson.D{{Key: "slug", Value: 1}}, false},
		{storage.ColPages, bson.D{{Key: "status", Value: 1}}, false},

		// posts
		{storage.ColPosts, bson.D{{Key: "slug", Value: 1}}, false},
		{storage.ColPosts, bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}, false},

		// menus
		{storage.ColMenus, bson.D{{Key: "menu", Value: 1}, {Key: "position", Value: 1}}, false},

		// settings
		{storage.ColSettings, bson.D{{Key: "key", Value: 1}}, true},

		// homepage
		{storage.ColHomepage, bson.D{{Key: "section", Value: 1}, {Key: "key", Value: 1}}, true},

		// moderation
		{storage.ColModeration, bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: 1}}, false},
	}

	for _, i := range indexes {
		model := mongo.IndexModel{Keys: i.keys}
		if i.unique {
			model.Options = options.Index().SetUnique(true)
		}
		if _, err := s.col(i.col).Indexes().CreateOne(ctx, model); err != nil {
			return fmt.Errorf("create index on %s: %w", i.col, err)
		}
	}

	return nil
}
