package content

import (
	"context"
	"fmt"
	"strings"

	"codefix-admin/internal/shared/model"
	"codefix-admin/internal/shared/storage"
)

// 文章相关公开路径
const BlogPath = "/blog"

// PostPath 文章的公开路径
func PostPath(slug string) string {
	return BlogPath + "/" + slug
}

// MaxListLimit 列表单次返回上限
const MaxListLimit = 100

var postFields = []string{"title", "slug", "excerpt", "body", "status", "tags", "cover_url"}

// ListPosts 列出文章，按创建时间倒序
//
// status 为空时不过滤；limit <= 0 或超过上限时取上限。
// 后端失败时返回空切片。
func (a *Actions) ListPosts(ctx context.Context, status model.ContentStatus, limit int) []*model.Post {
	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}
	q := storage.Query{OrderBy: "created_at", Descending: true, Limit: limit}
	if status != "" {
		q = q.Where("status", string(status))
	}
	return list[model.Post](ctx, a, storage.ColPosts, q)
}

// GetPost 按 id 读取文章
func (a *Actions) GetPost(ctx context.Context, id string) *model.Post {
	return get[model.Post](ctx, a, storage.ColPosts, id)
}

// GetPostBySlug 按 slug 读取文章
func (a *Actions) GetPostBySlug(ctx context.Context, slug string) *model.Post {
	return findOne[model.Post](ctx, a, storage.ColPosts, "slug", slug)
}

// CreatePost 创建文章；状态为 published 时同时设置发布时间
func (a *Actions) CreatePost(ctx context.Context, actorID string, p model.Post) model.Result {
	m := mutation{entity: "post", op: "created", collection: storage.ColPosts, actorID: actorID}
	if strings.TrimSpace(p.Title) == "" {
		return a.finish(ctx, m, "", model.Invalid("title is required"))
	}
	slug, ok := resolveSlug(p.Slug, p.Title)
	if !ok {
		return a.finish(ctx, m, "", model.Invalid(fmt.Sprintf("invalid slug %q", slug)))
	}
	if p.Status == "" {
		p.Status = model.StatusDraft
	}
	if !p.Status.Valid() {
		return a.finish(ctx, m, "", model.Invalid("invalid status"))
	}

	now := a.timestamp()
	p.ID = ""
	p.Slug = slug
	p.Likes, p.Dislikes = 0, 0
	if p.AuthorID == "" {
		p.AuthorID = actorID
	}
	p.PublishedAt = nil
	if p.Status == model.StatusPublished {
		p.PublishedAt = &now
	}
	p.CreatedAt, p.UpdatedAt = now, now
	m.paths = []string{"/", BlogPath, PostPath(slug)}
	return a.insert(ctx, m, p)
}

// UpdatePost 更新文章字段；首次改为 published 时记录发布时间
func (a *Actions) UpdatePost(ctx context.Context, actorID, id string, fields map[string]any) model.Result {
	m := mutation{entity: "post", op: "updated", collection: storage.ColPosts, actorID: actorID}
	patch := pick(fields, postFields...)
	if res, ok := validateCommon(patch); !ok {
		return a.finish(ctx, m, id, res)
	}
	m.paths = []string{"/", BlogPath}
	old, err := load[model.Post](ctx, a, storage.ColPosts, id)
	if err != nil {
		return a.finish(ctx, m, id, model.Fail("failed to load post"))
	}
	if old != nil {
		m.paths = append(m.paths, PostPath(old.Slug))
	}
	if slug, ok := patch["slug"].(string); ok {
		m.paths = append(m.paths, PostPath(slug))
	}
	if patch["status"] == string(model.StatusPublished) && (old == nil || old.PublishedAt == nil) {
		patch["published_at"] = a.timestamp()
	}
	return a.update(ctx, m, id, patch)
}

// PublishPost 发布文章并设置发布时间
func (a *Actions) PublishPost(ctx context.Context, actorID, id string) model.Result {
	m := mutation{entity: "post", op: "published", collection: storage.ColPosts, actorID: actorID,
		paths: []string{"/", BlogPath}}
	old, res, ok := loadExisting[model.Post](ctx, a, m, id, "post")
	if !ok {
		return res
	}
	m.paths = append(m.paths, PostPath(old.Slug))
	return a.update(ctx, m, id, storage.Document{
		"status":       string(model.StatusPublished),
		"published_at": a.timestamp(),
	})
}

// DeletePost 删除文章
func (a *Actions) DeletePost(ctx context.Context, actorID, id string) model.Result {
	m := mutation{entity: "post", op: "deleted", collection: storage.ColPosts, actorID: actorID,
		paths: []string{"/", BlogPath}}
	if old := a.GetPost(ctx, id); old != nil {
		m.paths = append(m.paths, PostPath(old.Slug))
	}
	return a.remove(ctx, m, id)
}

// SyncVoteCounts 把投票计数写回文章文档（计数以 Redis 为准，文档只做展示冗余）
func (a *Actions) SyncVoteCounts(ctx context.Context, id string, likes, dislikes int64) model.Result {
	m := mutation{entity: "post", op: "voted", collection: storage.ColPosts}
	old, err := load[model.Post](ctx, a, storage.ColPosts, id)
	if err != nil {
		return model.Fail("failed to load post")
	}
	if old == nil {
		return model.NotFound("post not found")
	}
	m.paths = []string{PostPath(old.Slug)}
	fields := storage.Document{"likes": likes, "dislikes": dislikes, "updated_at": a.timestamp()}
	if err := a.docs.Update(ctx, m.collection, id, fields); err != nil {
		return a.storeFailure(ctx, m, err)
	}
	a.revalidate(ctx, m)
	return model.OK(id)
}
