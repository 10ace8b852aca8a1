package mongostore

import (
	"encoding/json"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"codefix-admin/internal/shared/storage"
)

// wrapError 将 MongoDB 错误转换为领域错误
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return storage.ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return storage.ErrDuplicate
	}
	return err
}

// toBSON 把文档归一化为 JSON 兼容值后转成 bson.M，id 映射为 _id
func toBSON(doc storage.Document) (bson.M, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var plain storage.Document
	if err := json.Unmarshal(data, &plain); err != nil {
		return nil, err
	}
	storage.NormalizeTimes(plain)
	out := bson.M{}
	for k, v := range plain {
		if k == "id" {
			out["_id"] = v
			continue
		}
		out[k] = v
	}
	return out, nil
}

// fromBSON 把读出的原始文档转换为 storage.Document，_id 展平为 id
func fromBSON(raw bson.M) storage.Document {
	doc := storage.Document{}
	for k, v := range raw {
		if k == "_id" {
			doc["id"] = normalizeValue(v)
			continue
		}
		doc[k] = normalizeValue(v)
	}
	return doc
}

// normalizeValue 把驱动特有类型转换为 JSON 兼容值
func normalizeValue(v any) any {
	switch val := v.(type) {
	case bson.ObjectID:
		return val.Hex()
	case bson.DateTime:
		return storage.FormatTime(val.Time())
	case bson.D:
		m := make(map[string]any, len(val))
		for _, e := range val {
			m[e.Key] = normalizeValue(e.Value)
		}
		return m
	case bson.M:
		m := make(map[string]any, len(val))
		for k, e := range val {
			m[k] = normalizeValue(e)
		}
		return m
	case bson.A:
		arr := make([]any, len(val))
		for i, e := range val {
			arr[i] = normalizeValue(e)
		}
		return arr
	case int32:
		return float64(val)
	case int64:
		return float64(val)
	default:
		return v
	}
}

// filterOf 构建等值过滤条件
func filterOf(filters []storage.Filter) (bson.D, error) {
	f := bson.D{}
	for _, c := range filters {
		if err := storage.ValidField(c.Field); err != nil {
			return nil, err
		}
		key := c.Field
		if key == "id" {
			key = "_id"
		}
		f = append(f, bson.E{Key: key, Value: c.Value})
	}
	return f, nil
}
