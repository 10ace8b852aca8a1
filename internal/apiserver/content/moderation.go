package content

import (
	"context"
	"strings"

	"codefix-admin/internal/shared/model"
	"codefix-admin/internal/shared/storage"
)

// ListModerationQueue 列出审核条目，status 为空时默认 pending
func (a *Actions) ListModerationQueue(ctx context.Context, status model.ModerationStatus) []*model.ModerationItem {
	if status == "" {
		status = model.ModerationPending
	}
	q := storage.Query{OrderBy: "created_at"}.Where("status", string(status))
	return list[model.ModerationItem](ctx, a, storage.ColModeration, q)
}

// SubmitForModeration 新增待审核条目
func (a *Actions) SubmitForModeration(ctx context.Context, item model.ModerationItem) model.Result {
	m := mutation{entity: "moderation", op: "created", collection: storage.ColModeration, actorID: item.AuthorID}
	if strings.TrimSpace(item.Content) == "" {
		return a.finish(ctx, m, "", model.Invalid("content is required"))
	}
	if item.Kind == "" {
		item.Kind = "comment"
	}
	now := a.timestamp()
	item.ID = ""
	item.Status = model.ModerationPending
	item.Reason, item.ReviewedBy, item.ReviewedAt = "", "", nil
	item.CreatedAt, item.UpdatedAt = now, now
	return a.insert(ctx, m, item)
}

// ApproveItem 通过审核
func (a *Actions) ApproveItem(ctx context.Context, actorID, id string) model.Result {
	return a.review(ctx, actorID, id, model.ModerationApproved, "")
}

// RejectItem 拒绝审核，记录原因
func (a *Actions) RejectItem(ctx context.Context, actorID, id, reason string) model.Result {
	return a.review(ctx, actorID, id, model.ModerationRejected, strings.TrimSpace(reason))
}

func (a *Actions) review(ctx context.Context, actorID, id string, status model.ModerationStatus, reason string) model.Result {
	m := mutation{entity: "moderation", op: string(status), collection: storage.ColModeration, actorID: actorID}
	item, res, ok := loadExisting[model.ModerationItem](ctx, a, m, id, "moderation item")
	if !ok {
		return res
	}
	if item.Status != model.ModerationPending {
		return a.finish(ctx, m, id, model.Invalid("item has already been reviewed"))
	}
	fields := storage.Document{
		"status":      string(status),
		"reviewed_by": actorID,
		"reviewed_at": a.timestamp(),
	}
	if reason != "" {
		fields["reason"] = reason
	}
	return a.update(ctx, m, id, fields)
}
