package moderation

import (
	"context"
	"time"

	"Lee_Moderation/internal/classifier"
	"Lee_Moderation/internal/model"
)

// newEntry 审核日志只在 Lifecycle 内部构造，随状态变更一起落库
func newEntry(action model.PostStatus, reason string, moderatorID *uint64, at time.Time) *model.ModerationLog {
	if reason == "" {
		reason = classifier.ReasonNotProvided
	}
	return &model.ModerationLog{
		Action:      string(action),
		Reason:      reason,
		ModeratorID: moderatorID,
		CreatedAt:   at,
	}
}

// AuditLog 审核日志的只读访问
type AuditLog struct {
	store Store
}

func NewAuditLog(store Store) *AuditLog {
	return &AuditLog{store: store}
}

// Latest 最近一条记录，用于展示“为什么被标记”
func (a *AuditLog) Latest(ctx context.Context, postID uint64) (*model.ModerationLog, error) {
	m, err := a.store.LatestEntries(ctx, []uint64{postID})
	if err != nil {
		return nil, err
	}
	e, ok := m[postID]
	if !ok {
		return nil, ErrPostNotFound
	}
	return &e, nil
}

// History 全部记录，按时间倒序
func (a *AuditLog) History(ctx context.Context, postID uint64) ([]model.ModerationLog, error) {
	if _, err := a.store.FindPost(ctx, postID); err != nil {
		return nil, err
	}
	return a.store.History(ctx, postID)
}
