package content

import (
	"context"
	"fmt"
	"strings"

	"codefix-admin/internal/shared/model"
	"codefix-admin/internal/shared/storage"
)

// PagePath 页面的公开路径
func PagePath(slug string) string {
	return "/p/" + slug
}

var pageFields = []string{"title", "slug", "body", "status", "meta_title", "meta_description"}

// ListPages 列出页面；status 为空时返回全部
func (a *Actions) ListPages(ctx context.Context, status model.ContentStatus) []*model.Page {
	q := storage.Query{OrderBy: "created_at", Descending: true}
	if status != "" {
		q = q.Where("status", string(status))
	}
	return list[model.Page](ctx, a, storage.ColPages, q)
}

// GetPage 按 id 读取页面
func (a *Actions) GetPage(ctx context.Context, id string) *model.Page {
	return get[model.Page](ctx, a, storage.ColPages, id)
}

// GetPageBySlug 按 slug 读取页面（slug 不保证唯一，取第一条）
func (a *Actions) GetPageBySlug(ctx context.Context, slug string) *model.Page {
	return findOne[model.Page](ctx, a, storage.ColPages, "slug", slug)
}

// CreatePage 创建页面
func (a *Actions) CreatePage(ctx context.Context, actorID string, p model.Page) model.Result {
	m := mutation{entity: "page", op: "created", collection: storage.ColPages, actorID: actorID}
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
	p.CreatedAt, p.UpdatedAt = now, now
	m.paths = []string{"/", PagePath(slug)}
	return a.insert(ctx, m, p)
}

// UpdatePage 更新页面字段；slug 变更时同时失效新旧路径
func (a *Actions) UpdatePage(ctx context.Context, actorID, id string, fields map[string]any) model.Result {
	m := mutation{entity: "page", op: "updated", collection: storage.ColPages, actorID: actorID}
	patch := pick(fields, pageFields...)
	if res, ok := validateCommon(patch); !ok {
		return a.finish(ctx, m, id, res)
	}
	m.paths = []string{"/"}
	if old := a.GetPage(ctx, id); old != nil {
		m.paths = append(m.paths, PagePath(old.Slug))
	}
	if slug, ok := patch["slug"].(string); ok {
		m.paths = append(m.paths, PagePath(slug))
	}
	return a.update(ctx, m, id, patch)
}

// DeletePage 删除页面
func (a *Actions) DeletePage(ctx context.Context, actorID, id string) model.Result {
	m := mutation{entity: "page", op: "deleted", collection: storage.ColPages, actorID: actorID, paths: []string{"/"}}
	if old := a.GetPage(ctx, id); old != nil {
		m.paths = append(m.paths, PagePath(old.Slug))
	}
	return a.remove(ctx, m, id)
}

// validateCommon 校验 title/slug/status 这几个通用字段
func validateCommon(patch map[string]any) (model.Result, bool) {
	if v, ok := patch["title"]; ok {
		s, isStr := v.(string)
		if !isStr || strings.TrimSpace(s) == "" {
			return model.Invalid("title must be a non-empty string"), false
		}
	}
	if v, ok := patch["slug"]; ok {
		s, isStr := v.(string)
		if !isStr || !ValidSlug(s) {
			return model.Invalid("invalid slug"), false
		}
	}
	if v, ok := patch["status"]; ok {
		s, isStr := v.(string)
		if !isStr || !model.ContentStatus(s).Valid() {
			return model.Invalid("invalid status"), false
		}
	}
	return model.Result{}, true
}
