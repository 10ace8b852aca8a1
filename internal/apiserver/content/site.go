package content

import (
	"context"
	"sort"
	"strings"

	"codefix-admin/internal/shared/model"
	"codefix-admin/internal/shared/storage"
)

// ============================================================================
// 菜单
// ============================================================================

var menuFields = []string{"menu", "label", "url", "parent_id", "position"}

// ListMenu 列出菜单项，按 position 升序；menu 为空时返回全部
func (a *Actions) ListMenu(ctx context.Context, menu string) []*model.MenuItem {
	q := storage.Query{OrderBy: "position"}
	if menu != "" {
		q = q.Where("menu", menu)
	}
	items := list[model.MenuItem](ctx, a, storage.ColMenus, q)
	sort.SliceStable(items, func(i, j int) bool { return items[i].Position < items[j].Position })
	return items
}

// CreateMenuItem 创建菜单项（菜单出现在所有页面上，失效全部缓存）
func (a *Actions) CreateMenuItem(ctx context.Context, actorID string, item model.MenuItem) model.Result {
	m := mutation{entity: "menu", op: "created", collection: storage.ColMenus, actorID: actorID, allPaths: true}
	if strings.TrimSpace(item.Label) == "" || strings.TrimSpace(item.URL) == "" {
		return a.finish(ctx, m, "", model.Invalid("label and url are required"))
	}
	if item.Menu == "" {
		item.Menu = "header"
	}
	now := a.timestamp()
	item.ID = ""
	item.CreatedAt, item.UpdatedAt = now, now
	return a.insert(ctx, m, item)
}

// UpdateMenuItem 更新菜单项
func (a *Actions) UpdateMenuItem(ctx context.Context, actorID, id string, fields map[string]any) model.Result {
	m := mutation{entity: "menu", op: "updated", collection: storage.ColMenus, actorID: actorID, allPaths: true}
	return a.update(ctx, m, id, pick(fields, menuFields...))
}

// DeleteMenuItem 删除菜单项
func (a *Actions) DeleteMenuItem(ctx context.Context, actorID, id string) model.Result {
	m := mutation{entity: "menu", op: "deleted", collection: storage.ColMenus, actorID: actorID, allPaths: true}
	return a.remove(ctx, m, id)
}

// ============================================================================
// 设置
// ============================================================================

// GetSettings 返回全部设置（key → value）；失败时返回空 map
func (a *Actions) GetSettings(ctx context.Context) map[string]string {
	out := map[string]string{}
	for _, s := range list[model.Setting](ctx, a, storage.ColSettings, storage.Query{}) {
		out[s.Key] = s.Value
	}
	return out
}

// SetSetting 按 key 写入设置（存在则更新，否则创建）
func (a *Actions) SetSetting(ctx context.Context, actorID, key, value string) model.Result {
	m := mutation{entity: "setting", op: "updated", collection: storage.ColSettings, actorID: actorID, allPaths: true}
	key = strings.TrimSpace(key)
	if key == "" {
		return a.finish(ctx, m, "", model.Invalid("key is required"))
	}
	docs, err := a.docs.Find(ctx, storage.ColSettings, storage.Query{Limit: 1}.Where("key", key))
	if err != nil {
		return a.finish(ctx, m, "", a.storeFailure(ctx, m, err))
	}
	if len(docs) > 0 {
		return a.update(ctx, m, docs[0].ID(), storage.Document{"value": value})
	}
	now := a.timestamp()
	m.op = "created"
	return a.insert(ctx, m, model.Setting{Key: key, Value: value, CreatedAt: now, UpdatedAt: now})
}

// DeleteSetting 按 key 删除设置
func (a *Actions) DeleteSetting(ctx context.Context, actorID, key string) model.Result {
	m := mutation{entity: "setting", op: "deleted", collection: storage.ColSettings, actorID: actorID, allPaths: true}
	s := findOne[model.Setting](ctx, a, storage.ColSettings, "key", key)
	if s == nil {
		return a.finish(ctx, m, "", model.NotFound("setting not found"))
	}
	return a.remove(ctx, m, s.ID)
}

// ============================================================================
// 首页内容
// ============================================================================

// HomepageKey 首页内容键 section.key
func HomepageKey(section, key string) string {
	return section + "." + key
}

// GetHomepageContent 返回首页内容（section.key → value）；失败时返回空 map
func (a *Actions) GetHomepageContent(ctx context.Context) map[string]string {
	out := map[string]string{}
	for _, b := range list[model.HomepageBlock](ctx, a, storage.ColHomepage, storage.Query{}) {
		out[HomepageKey(b.Section, b.Key)] = b.Value
	}
	return out
}

// SetHomepageContent 写入一个首页内容块（section + key 定位，存在则更新）
func (a *Actions) SetHomepageContent(ctx context.Context, actorID, section, key, value string) model.Result {
	m := mutation{entity: "homepage", op: "updated", collection: storage.ColHomepage, actorID: actorID, paths: []string{"/"}}
	if section == "" || key == "" {
		return a.finish(ctx, m, "", model.Invalid("section and key are required"))
	}
	q := storage.Query{Limit: 1}.Where("section", section).Where("key", key)
	docs, err := a.docs.Find(ctx, storage.ColHomepage, q)
	if err != nil {
		return a.finish(ctx, m, "", a.storeFailure(ctx, m, err))
	}
	if len(docs) > 0 {
		return a.update(ctx, m, docs[0].ID(), storage.Document{"value": value})
	}
	now := a.timestamp()
	m.op = "created"
	return a.insert(ctx, m, model.HomepageBlock{Section: section, Key: key, Value: value, CreatedAt: now, UpdatedAt: now})
}
