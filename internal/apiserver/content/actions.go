// Package content 内容领域 - 后台内容操作（页面、文章、菜单、设置、首页、媒体、审核）
//
// 所有操作都遵循同一约定：
//   - 调用文档存储时带上集合名与过滤条件，读出的文档统一为扁平的 id 形式
//   - 写操作成功后按路径失效渲染缓存，并发布一条后台动态（尽力而为）
//   - 从不向调用方返回 error：写操作返回 model.Result，列表操作失败时退化为空切片
package content

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"codefix-admin/internal/shared/cache"
	"codefix-admin/internal/shared/eventbus"
	"codefix-admin/internal/shared/model"
	"codefix-admin/internal/shared/storage"
	"codefix-admin/pkg/logging"
)

// Actions 内容操作集合
type Actions struct {
	docs    storage.DocumentStore
	cache   cache.RenderCache
	bus     eventbus.ActivityBus
	objects ObjectStore
	log     *logging.Logger
	now     func() time.Time

	// OnAction 每次写操作结束后回调（用于指标）
	OnAction func(entity, op string, success bool)
}

// Option Actions 可选配置
type Option func(*Actions)

// WithObjectStore 配置媒体对象存储
func WithObjectStore(o ObjectStore) Option {
	return func(a *Actions) { a.objects = o }
}

// WithClock 替换时钟（测试使用）
func WithClock(now func() time.Time) Option {
	return func(a *Actions) { a.now = now }
}

// NewActions 创建内容操作集合；cache 与 bus 为 nil 时使用 NoOp 实现
func NewActions(docs storage.DocumentStore, rc cache.RenderCache, bus eventbus.ActivityBus, log *logging.Logger, opts ...Option) *Actions {
	if rc == nil {
		rc = cache.NewNoOpCache()
	}
	if bus == nil {
		bus = eventbus.NewNoOpEventBus()
	}
	if log == nil {
		log = logging.Nop()
	}
	a := &Actions{
		docs:  docs,
		cache: rc,
		bus:   bus,
		log:   log.Named("content"),
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ============================================================================
// 通用读写
// ============================================================================

// list 查询集合并解码，失败时记录日志并返回空切片
func list[T any](ctx context.Context, a *Actions, collection string, q storage.Query) []*T {
	docs, err := a.docs.Find(ctx, collection, q)
	if err != nil {
		a.log.WithContext(ctx).Error("list failed", zap.String("collection", collection), zap.Error(err))
		return []*T{}
	}
	return storage.DecodeAll[T](docs)
}

// load 按 id 读取；文档不存在返回 (nil, nil)，后端或解码失败返回 error
func load[T any](ctx context.Context, a *Actions, collection, id string) (*T, error) {
	if id == "" {
		return nil, nil
	}
	doc, err := a.docs.Get(ctx, collection, id)
	if err != nil {
		a.log.WithContext(ctx).Error("get failed", zap.String("collection", collection), zap.String("id", id), zap.Error(err))
		return nil, err
	}
	v, err := storage.Decode[T](doc)
	if err != nil {
		a.log.WithContext(ctx).Warn("decode failed", zap.String("collection", collection), zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return v, nil
}

// get 只读场景使用，不存在或失败都返回 nil
func get[T any](ctx context.Context, a *Actions, collection, id string) *T {
	v, _ := load[T](ctx, a, collection, id)
	return v
}

// loadExisting 写操作前读取目标文档：失败返回 Fail，不存在返回 NotFound
func loadExisting[T any](ctx context.Context, a *Actions, m mutation, id, what string) (*T, model.Result, bool) {
	v, err := load[T](ctx, a, m.collection, id)
	if err != nil {
		return nil, a.finish(ctx, m, id, model.Fail("failed to load "+what)), false
	}
	if v == nil {
		return nil, a.finish(ctx, m, id, model.NotFound(what+" not found")), false
	}
	return v, model.Result{}, true
}

// findOne 按单个字段查找第一条
func findOne[T any](ctx context.Context, a *Actions, collection, field string, value any) *T {
	items := list[T](ctx, a, collection, storage.Query{Limit: 1}.Where(field, value))
	if len(items) == 0 {
		return nil
	}
	return items[0]
}

// mutation 一次写操作的描述
type mutation struct {
	entity     string // 事件与指标使用的实体名，如 post
	op         string // created / updated / deleted ...
	collection string
	actorID    string
	paths      []string // 需要失效的渲染缓存路径
	allPaths   bool     // 影响所有页面（菜单、设置）
}

func (a *Actions) insert(ctx context.Context, m mutation, v any) model.Result {
	doc, err := storage.Encode(v)
	if err != nil {
		return a.finish(ctx, m, "", model.Fail("invalid document"))
	}
	id, err := a.docs.Insert(ctx, m.collection, doc)
	if err != nil {
		return a.finish(ctx, m, "", a.storeFailure(ctx, m, err))
	}
	return a.finish(ctx, m, id, model.OK(id))
}

func (a *Actions) update(ctx context.Context, m mutation, id string, fields storage.Document) model.Result {
	if id == "" {
		return a.finish(ctx, m, id, model.Invalid("id is required"))
	}
	fields["updated_at"] = a.timestamp()
	if err := a.docs.Update(ctx, m.collection, id, fields); err != nil {
		return a.finish(ctx, m, id, a.storeFailure(ctx, m, err))
	}
	return a.finish(ctx, m, id, model.OK(id))
}

func (a *Actions) remove(ctx context.Context, m mutation, id string) model.Result {
	if id == "" {
		return a.finish(ctx, m, id, model.Invalid("id is required"))
	}
	if err := a.docs.Delete(ctx, m.collection, id); err != nil {
		return a.finish(ctx, m, id, a.storeFailure(ctx, m, err))
	}
	return a.finish(ctx, m, id, model.OK(id))
}

func (a *Actions) storeFailure(ctx context.Context, m mutation, err error) model.Result {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return model.NotFound(m.entity + " not found")
	case errors.Is(err, storage.ErrDuplicate):
		return model.Invalid(m.entity + " already exists")
	case errors.Is(err, storage.ErrInvalidField):
		return model.Invalid(err.Error())
	}
	a.log.WithContext(ctx).Error("write failed",
		zap.String("collection", m.collection),
		zap.String("op", m.op),
		zap.Error(err))
	return model.Fail(fmt.Sprintf("failed to %s %s", verb(m.op), m.entity))
}

// finish 成功时失效缓存并发布动态；无论成败都上报指标
func (a *Actions) finish(ctx context.Context, m mutation, id string, res model.Result) model.Result {
	if a.OnAction != nil {
		a.OnAction(m.entity, m.op, res.Success)
	}
	if !res.Success {
		return res
	}
	a.revalidate(ctx, m)
	a.publish(ctx, m, id)
	return res
}

func (a *Actions) revalidate(ctx context.Context, m mutation) {
	var err error
	if m.allPaths {
		err = a.cache.InvalidateAll(ctx)
	} else if len(m.paths) > 0 {
		err = a.cache.InvalidatePaths(ctx, m.paths...)
	}
	if err != nil {
		a.log.WithContext(ctx).Warn("revalidate failed", zap.Strings("paths", m.paths), zap.Error(err))
	}
}

func (a *Actions) publish(ctx context.Context, m mutation, id string) {
	err := a.bus.PublishActivity(ctx, &eventbus.ActivityEvent{
		Type:       m.entity + "." + m.op,
		Collection: m.collection,
		EntityID:   id,
		ActorID:    m.actorID,
	})
	if err != nil {
		a.log.WithContext(ctx).Warn("publish activity failed", zap.String("entity", m.entity), zap.Error(err))
	}
}

func (a *Actions) timestamp() time.Time {
	return a.now().UTC()
}

// verb 把事件动作名还原为日志里的动词
func verb(op string) string {
	switch op {
	case "created":
		return "create"
	case "updated":
		return "update"
	case "deleted":
		return "delete"
	case "published":
		return "publish"
	case "uploaded":
		return "upload"
	case "approved":
		return "approve"
	case "rejected":
		return "reject"
	}
	return op
}

// ============================================================================
// 字段过滤与 slug
// ============================================================================

// pick 只保留允许更新的字段，其余丢弃
func pick(fields map[string]any, allowed ...string) storage.Document {
	out := storage.Document{}
	for _, k := range allowed {
		if v, ok := fields[k]; ok {
			out[k] = v
		}
	}
	return out
}

var (
	slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)
	slugValid   = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
)

// Slugify 由标题生成 URL slug（仅保留 ASCII 字母数字，以 - 连接）
func Slugify(title string) string {
	s := slugInvalid.ReplaceAllString(strings.ToLower(title), "-")
	return strings.Trim(s, "-")
}

// ValidSlug slug 是否合法
func ValidSlug(slug string) bool {
	return slugValid.MatchString(slug)
}

// resolveSlug 为空时由标题生成，返回最终 slug 与是否合法
func resolveSlug(slug, title string) (string, bool) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		slug = Slugify(title)
	}
	return slug, ValidSlug(slug)
}
