// Package repository SQLite 集成测试
//
// 使用 SQLite 内存数据库验证 DocumentStore 实现的正确性。
// 无需外部数据库依赖，可在任何环境下运行。
package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codefix-admin/internal/shared/model"
	"codefix-admin/internal/shared/rbac"
	"codefix-admin/internal/shared/storage"
	"codefix-admin/internal/shared/storage/dbutil"
	sqlitedriver "codefix-admin/internal/shared/storage/driver/sqlite"
)

// newTestStore 创建用于测试的 SQLite 内存数据库 Store
func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sqlitedriver.Open(":memory:")
	require.NoError(t, err)
	dialect := sqlitedriver.NewDialect()
	require.NoError(t, dialect.AutoMigrate(db))
	store := NewStore(db, dialect)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestDialect(t *testing.T) {
	d := sqlitedriver.NewDialect()
	assert.Equal(t, dbutil.DriverSQLite, d.DriverType())
	assert.Equal(t, "SELECT * FROM t WHERE id = ? AND name = ?",
		d.Rebind("SELECT * FROM t WHERE id = $1 AND name = $2"))
	assert.Equal(t, "json_extract(data, '$.slug')", d.JSONField("data", "slug"))
}

func TestDocumentCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Insert(ctx, storage.ColPages, storage.Document{"title": "About", "slug": "about"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := s.Get(ctx, storage.ColPages, id)
	require.NoError(t, err)
	assert.Equal(t, "About", got["title"])
	assert.Equal(t, id, got.ID())
	assert.NotEmpty(t, got["created_at"])

	// 同 id 在不同集合中互不冲突
	_, err = s.Insert(ctx, storage.ColPosts, storage.Document{"id": id})
	require.NoError(t, err)
	_, err = s.Insert(ctx, storage.ColPages, storage.Document{"id": id})
	assert.ErrorIs(t, err, storage.ErrDuplicate)

	require.NoError(t, s.Update(ctx, storage.ColPages, id, storage.Document{"title": "About us", "id": "ignored"}))
	got, err = s.Get(ctx, storage.ColPages, id)
	require.NoError(t, err)
	assert.Equal(t, "About us", got["title"])
	assert.Equal(t, "about", got["slug"])
	assert.Equal(t, id, got.ID())

	assert.ErrorIs(t, s.Update(ctx, storage.ColPages, "missing", storage.Document{"x": 1}), storage.ErrNotFound)

	require.NoError(t, s.Delete(ctx, storage.ColPages, id))
	assert.ErrorIs(t, s.Delete(ctx, storage.ColPages, id), storage.ErrNotFound)
	got, err = s.Get(ctx, storage.ColPages, id)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFind(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, status := range []string{"published", "draft", "published", "published"} {
		_, err := s.Insert(ctx, storage.ColPosts, storage.Document{
			"id":         string(rune('a' + i)),
			"status":     status,
			"featured":   i == 2,
			"rank":       i,
			"created_at": base.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}

	docs, err := s.Find(ctx, storage.ColPosts, storage.Query{}.Where("status", "published"))
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "a", docs[0].ID())

	docs, err = s.Find(ctx, storage.ColPosts, storage.Query{Descending: true, Limit: 2}.Where("status", "published"))
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "d", docs[0].ID())
	assert.Equal(t, "c", docs[1].ID())

	docs, err = s.Find(ctx, storage.ColPosts, storage.Query{}.Where("featured", true))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "c", docs[0].ID())

	docs, err = s.Find(ctx, storage.ColPosts, storage.Query{}.Where("rank", 1))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "b", docs[0].ID())

	docs, err = s.Find(ctx, storage.ColMenus, storage.Query{})
	require.NoError(t, err)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)

	_, err = s.Find(ctx, storage.ColPosts, storage.Query{}.Where("x') OR 1=1 --", "y"))
	assert.ErrorIs(t, err, storage.ErrInvalidField)
}

func TestFindSubSecondOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := s.Insert(ctx, storage.ColPosts, storage.Document{"id": "a", "created_at": base.Add(100 * time.Millisecond)})
	require.NoError(t, err)
	_, err = s.Insert(ctx, storage.ColPosts, storage.Document{"id": "b", "created_at": base})
	require.NoError(t, err)

	docs, err := s.Find(ctx, storage.ColPosts, storage.Query{})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "b", docs[0].ID())
	assert.Equal(t, "a", docs[1].ID())
	assert.Equal(t, "2026-01-01T00:00:00.000000000Z", docs[0]["created_at"])

	require.NoError(t, s.Update(ctx, storage.ColPosts, "a", storage.Document{"published_at": base}))
	doc, err := s.Get(ctx, storage.ColPosts, "a")
	require.NoError(t, err)
	assert.Equal(t, storage.FormatTime(base), doc["published_at"])
}

func TestUserRepositoryOnSQLite(t *testing.T) {
	repo := storage.NewUserRepository(newTestStore(t))
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	user := &model.User{
		Email:        "admin@example.com",
		Username:     "Admin",
		PasswordHash: "hash",
		Role:         rbac.RoleSuperAdmin,
		Status:       model.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, repo.CreateUser(ctx, user))

	got, err := repo.GetUserByEmail(ctx, "ADMIN@example.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, rbac.RoleSuperAdmin, got.Role)

	dup := &model.User{Email: "admin@example.com", CreatedAt: now, UpdatedAt: now}
	assert.ErrorIs(t, repo.CreateUser(ctx, dup), storage.ErrDuplicate)
}
