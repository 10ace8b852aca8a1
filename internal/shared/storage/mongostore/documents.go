package mongostore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"codefix-admin/internal/shared/storage"
)

// Get 按 id 读取文档，不存在时返回 (nil, nil)
func (s *Store) Get(ctx context.Context, collection, id string) (storage.Document, error) {
	start := time.Now()
	var raw bson.M
	err := s.col(collection).FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	s.log.DBQueryLog("get", collection, time.Since(start), err)
	if err != nil {
		return nil, wrapError(err)
	}
	return fromBSON(raw), nil
}

// Find 按条件列出文档
func (s *Store) Find(ctx context.Context, collection string, q storage.Query) ([]storage.Document, error) {
	start := time.Now()
	filter, err := filterOf(q.Filters)
	if err != nil {
		return nil, err
	}

	orderBy := q.OrderBy
	if orderBy == "" {
		orderBy = "created_at"
	}
	if err := storage.ValidField(orderBy); err != nil {
		return nil, err
	}
	dir := 1
	if q.Descending {
		dir = -1
	}
	opts := options.Find().SetSort(bson.D{{Key: orderBy, Value: dir}})
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	cursor, err := s.col(collection).Find(ctx, filter, opts)
	if err != nil {
		s.log.DBQueryLog("find", collection, time.Since(start), err)
		return nil, wrapError(err)
	}
	defer cursor.Close(ctx)

	docs := []storage.Document{}
	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return nil, err
		}
		docs = append(docs, fromBSON(raw))
	}
	err = cursor.Err()
	s.log.DBQueryLog("find", collection, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// Insert 插入文档，无 id 时生成
func (s *Store) Insert(ctx context.Context, collection string, doc storage.Document) (string, error) {
	start := time.Now()
	m, err := toBSON(doc)
	if err != nil {
		return "", err
	}
	id, _ := m["_id"].(string)
	if id == "" {
		id = storage.NewID()
		m["_id"] = id
	}
	now := storage.FormatTime(time.Now())
	if _, ok := m["created_at"]; !ok {
		m["created_at"] = now
	}
	if _, ok := m["updated_at"]; !ok {
		m["updated_at"] = now
	}

	_, err = s.col(collection).InsertOne(ctx, m)
	s.log.DBQueryLog("insert", collection, time.Since(start), err)
	if err != nil {
		return "", wrapError(err)
	}
	return id, nil
}

// Update 按 id 更新指定字段
func (s *Store) Update(ctx context.Context, collection, id string, fields storage.Document) error {
	start := time.Now()
	m, err := toBSON(fields)
	if err != nil {
		return err
	}
	delete(m, "_id")
	m["updated_at"] = storage.FormatTime(time.Now())

	res, err := s.col(collection).UpdateOne(ctx, bson.D{{Key: "_id", Value: id}}, bson.D{{Key: "$set", Value: m}})
	s.log.DBQueryLog("update", collection, time.Since(start), err)
	if err != nil {
		return wrapError(err)
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Delete 按 id 删除
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	start := time.Now()
	res, err := s.col(collection).DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	s.log.DBQueryLog("delete", collection, time.Since(start), err)
	if err != nil {
		return wrapError(err)
	}
	if res.DeletedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}
