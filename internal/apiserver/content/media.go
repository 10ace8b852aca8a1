package content

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"go.uber.org/zap"

	"codefix-admin/internal/shared/model"
	"codefix-admin/internal/shared/storage"
)

// ObjectStore 媒体对象存储（由 MinIO 客户端实现）
type ObjectStore interface {
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// MaxMediaSize 单个媒体文件上限
const MaxMediaSize = 20 << 20

// ListMedia 列出媒体文件，按上传时间倒序
func (a *Actions) ListMedia(ctx context.Context) []*model.Media {
	return list[model.Media](ctx, a, storage.ColMedia, storage.Query{OrderBy: "created_at", Descending: true})
}

// UploadMedia 上传文件到对象存储并写入元数据文档
//
// 元数据写入失败时删除已上传的对象，避免留下孤儿文件。
func (a *Actions) UploadMedia(ctx context.Context, actorID, name, contentType string, size int64, r io.Reader) model.Result {
	m := mutation{entity: "media", op: "uploaded", collection: storage.ColMedia, actorID: actorID}
	if a.objects == nil {
		return a.finish(ctx, m, "", model.Unavailable("media storage is not configured"))
	}
	name = path.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == "/" {
		return a.finish(ctx, m, "", model.Invalid("file name is required"))
	}
	if size <= 0 || size > MaxMediaSize {
		return a.finish(ctx, m, "", model.Invalid(fmt.Sprintf("file size must be between 1 and %d bytes", MaxMediaSize)))
	}

	id := storage.NewID()
	key := "uploads/" + id + "/" + name
	if err := a.objects.Upload(ctx, key, r, size, contentType); err != nil {
		a.log.WithContext(ctx).Error("upload object failed", zap.String("key", key), zap.Error(err))
		return a.finish(ctx, m, "", model.Fail("failed to upload media"))
	}

	now := a.timestamp()
	media := model.Media{
		ID:          id,
		Name:        name,
		ObjectKey:   key,
		URL:         a.objects.URL(key),
		ContentType: contentType,
		Size:        size,
		UploadedBy:  actorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	res := a.insert(ctx, m, media)
	if !res.Success {
		if err := a.objects.Delete(ctx, key); err != nil {
			a.log.WithContext(ctx).Warn("cleanup object failed", zap.String("key", key), zap.Error(err))
		}
	}
	return res
}

// DeleteMedia 删除元数据文档与对象
func (a *Actions) DeleteMedia(ctx context.Context, actorID, id string) model.Result {
	m := mutation{entity: "media", op: "deleted", collection: storage.ColMedia, actorID: actorID}
	media, res, ok := loadExisting[model.Media](ctx, a, m, id, "media")
	if !ok {
		return res
	}
	if a.objects != nil && media.ObjectKey != "" {
		if err := a.objects.Delete(ctx, media.ObjectKey); err != nil {
			a.log.WithContext(ctx).Error("delete object failed", zap.String("key", media.ObjectKey), zap.Error(err))
			return a.finish(ctx, m, id, model.Fail("failed to delete media"))
		}
	}
	return a.remove(ctx, m, id)
}

// OpenMedia 按对象键读取媒体内容（/media/ 代理使用）
func (a *Actions) OpenMedia(ctx context.Context, key string) (io.ReadCloser, *model.Media, error) {
	if a.objects == nil {
		return nil, nil, fmt.Errorf("media storage is not configured")
	}
	media := findOne[model.Media](ctx, a, storage.ColMedia, "object_key", key)
	if media == nil {
		return nil, nil, storage.ErrNotFound
	}
	rc, err := a.objects.Download(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	return rc, media, nil
}
