package mongostore

import (
	"context"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"codefix-admin/internal/shared/storage"
	"codefix-admin/pkg/logging"
)

// testStore 创建测试用 Store，使用独立数据库避免污染
func testStore(t *testing.T) *Store {
	t.Helper()

	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}

	s, err := NewStore(uri, "codefix_test", logging.Nop())
	if err != nil {
		t.Skipf("MongoDB not available: %v", err)
	}

	// 清空测试数据库
	ctx := context.Background()
	if err := s.db.Drop(ctx); err != nil {
		t.Fatalf("Failed to drop test database: %v", err)
	}
	if err := s.ensureIndexes(ctx); err != nil {
		t.Fatalf("Failed to create indexes: %v", err)
	}

	t.Cleanup(func() {
		s.db.Drop(context.Background())
		s.Close()
	})

	return s
}

func TestDocumentCRUD(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	id, err := s.Insert(ctx, storage.ColPages, storage.Document{
		"id":    "page-001",
		"title": "About",
		"slug":  "about",
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if id != "page-001" {
		t.Errorf("id = %q, want page-001", id)
	}

	// Duplicate insert
	if _, err := s.Insert(ctx, storage.ColPages, storage.Document{"id": "page-001"}); err != storage.ErrDuplicate {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	got, err := s.Get(ctx, storage.ColPages, "page-001")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID() != "page-001" || got["title"] != "About" {
		t.Errorf("unexpected document: %v", got)
	}
	if _, ok := got["_id"]; ok {
		t.Error("_id should be flattened to id")
	}

	if err := s.Update(ctx, storage.ColPages, "page-001", storage.Document{"title": "About us"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, _ = s.Get(ctx, storage.ColPages, "page-001")
	if got["title"] != "About us" || got["slug"] != "about" {
		t.Errorf("after update: %v", got)
	}

	if err := s.Update(ctx, storage.ColPages, "missing", storage.Document{"title": "x"}); err != storage.ErrNotFound {
		t.Errorf("Update missing: got %v, want ErrNotFound", err)
	}

	if err := s.Delete(ctx, storage.ColPages, "page-001"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, storage.ColPages, "page-001"); err != storage.ErrNotFound {
		t.Errorf("Delete twice: got %v, want ErrNotFound", err)
	}
	got, err = s.Get(ctx, storage.ColPages, "page-001")
	if err != nil || got != nil {
		t.Errorf("Get deleted: got %v, %v", got, err)
	}
}

func TestFindOrderAndLimit(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, status := range []string{"published", "draft", "published", "published"} {
		_, err := s.Insert(ctx, storage.ColPosts, storage.Document{
			"status":     status,
			"created_at": base.Add(time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	docs, err := s.Find(ctx, storage.ColPosts, storage.Query{Descending: true, Limit: 2}.Where("status", "published"))
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("len = %d, want 2", len(docs))
	}
	if docs[0]["created_at"] != storage.FormatTime(base.Add(3*time.Hour)) {
		t.Errorf("first created_at = %v", docs[0]["created_at"])
	}

	if _, err := s.Find(ctx, storage.ColPosts, storage.Query{OrderBy: "bad field"}); err == nil {
		t.Error("expected invalid field error")
	}
}

func TestNormalizeValue(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	oid := bson.NewObjectID()
	raw := bson.M{
		"_id":     oid,
		"when":    bson.NewDateTimeFromTime(ts),
		"nested":  bson.D{{Key: "n", Value: int32(2)}},
		"list":    bson.A{int64(1), "x"},
		"flag":    true,
		"comment": "ok",
	}
	doc := fromBSON(raw)
	if doc.ID() != oid.Hex() {
		t.Errorf("id = %v", doc["id"])
	}
	if doc["when"] != storage.FormatTime(ts) {
		t.Errorf("when = %v", doc["when"])
	}
	nested, ok := doc["nested"].(map[string]any)
	if !ok || nested["n"] != float64(2) {
		t.Errorf("nested = %#v", doc["nested"])
	}
	list, ok := doc["list"].([]any)
	if !ok || list[0] != float64(1) || list[1] != "x" {
		t.Errorf("list = %#v", doc["list"])
	}
}

func TestToBSONMapsID(t *testing.T) {
	m, err := toBSON(storage.Document{"id": "abc", "title": "t"})
	if err != nil {
		t.Fatal(err)
	}
	if m["_id"] != "abc" {
		t.Errorf("_id = %v", m["_id"])
	}
	if _, ok := m["id"]; ok {
		t.Error("id should be renamed to _id")
	}
}
