package db

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"Lee_Moderation/internal/model"
	"Lee_Moderation/internal/moderation"
)

// PostStore moderation.Store 的 gorm 实现；帖子、审核日志、outbox 事件在同一事务中写入
type PostStore struct {
	DB *gorm.DB
}

func NewPostStore(db *gorm.DB) *PostStore {
	return &PostStore{DB: db}
}

var _ moderation.Store = (*PostStore)(nil)

func (s *PostStore) CreatePost(ctx context.Context, post *model.Post, entry *model.ModerationLog) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Community").Create(post).Error; err != nil {
			return err
		}
		entry.PostID = post.ID
		if err := tx.Omit("Post").Create(entry).Error; err != nil {
			return err
		}
		return insertEvent(tx, model.EventPostCreated, post, entry)
	})
}

// TransitionPost 条件更新：只有当前状态等于 From 才会命中一行。
// 未命中时再查一次区分"不存在"和"状态已被别人改掉"
func (s *PostStore) TransitionPost(ctx context.Context, t moderation.Transition) (*model.Post, error) {
	var post model.Post
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Post{}).
			Where("id = ? AND status = ?", t.PostID, t.From).
			Updates(map[string]any{"status": t.To, "updated_at": t.At})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var n int64
			if err := tx.Model(&model.Post{}).Where("id = ?", t.PostID).Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return moderation.ErrPostNotFound
			}
			return moderation.ErrIllegalTransition
		}
		if err := tx.First(&post, t.PostID).Error; err != nil {
			return err
		}
		t.Entry.PostID = post.ID
		if err := tx.Omit("Post").Create(t.Entry).Error; err != nil {
			return err
		}
		return insertEvent(tx, model.EventPostModerated, &post, t.Entry)
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// 写 outbox 事件
func insertEvent(tx *gorm.DB, eventType string, post *model.Post, entry *model.ModerationLog) error {
	ev, err := model.NewModerationEvent(eventType, post, entry)
	if err != nil {
		return err
	}
	return tx.Create(ev).Error
}

func (s *PostStore) FindPost(ctx context.Context, id uint64) (*model.Post, error) {
	var post model.Post
	err := s.DB.WithContext(ctx).First(&post, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, moderation.ErrPostNotFound
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (s *PostStore) History(ctx context.Context, postID uint64) ([]model.ModerationLog, error) {
	var list []model.ModerationLog
	err := s.DB.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at DESC, id DESC").
		Find(&list).Error
	return list, err
}

// LatestEntries 每个帖子取最新一条日志：子查询找出每个 post_id 的最大 id
func (s *PostStore) LatestEntries(ctx context.Context, postIDs []uint64) (map[uint64]model.ModerationLog, error) {
	out := make(map[uint64]model.ModerationLog, len(postIDs))
	if len(postIDs) == 0 {
		return out, nil
	}
	latest := s.DB.Model(&model.ModerationLog{}).
		Select("MAX(id)").
		Where("post_id IN ?", postIDs).
		Group("post_id")

	var list []model.ModerationLog
	if err := s.DB.WithContext(ctx).Where("id IN (?)", latest).Find(&list).Error; err != nil {
		return nil, err
	}
	for _, e := range list {
		out[e.PostID] = e
	}
	return out, nil
}

func (s *PostStore) ListPosts(ctx context.Context, f moderation.PostFilter) ([]model.Post, error) {
	var list []model.Post
	err := listQuery(s.DB.WithContext(ctx), f).Find(&list).Error
	return list, err
}

// listQuery 时间游标：先比 created_at，同一时间点用 id 打破并列
func listQuery(db *gorm.DB, f moderation.PostFilter) *gorm.DB {
	q := db.Model(&model.Post{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.CommunityID != 0 {
		q = q.Where("community_id = ?", f.CommunityID)
	}
	if !f.BeforeCreatedAt.IsZero() {
		q = q.Where("(created_at < ? OR (created_at = ? AND id < ?))", f.BeforeCreatedAt, f.BeforeCreatedAt, f.BeforeID)
	}
	q = q.Order("created_at DESC, id DESC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	return q
}

func (s *PostStore) CountPosts(ctx context.Context, status model.PostStatus, updatedSince time.Time) (int64, error) {
	q := s.DB.WithContext(ctx).Model(&model.Post{}).Where("status = ?", status)
	if !updatedSince.IsZero() {
		q = q.Where("updated_at >= ?", updatedSince)
	}
	var n int64
	err := q.Count(&n).Error
	return n, err
}

// PendingEvents outbox 查询：待发送或失败但未超过重试上限
func (s *PostStore) PendingEvents(ctx context.Context, limit, maxRetry int) ([]model.ModerationEvent, error) {
	var list []model.ModerationEvent
	if err := s.DB.WithContext(ctx).
		Where("state = ? OR (state = ? AND retry < ?)", model.EventStatePending, model.EventStateFailed, maxRetry).
		Order("id ASC").
		Limit(limit).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// MarkEventSent outbox 成功记录消息更新
func (s *PostStore) MarkEventSent(ctx context.Context, id uint64) error {
	return s.DB.WithContext(ctx).Model(&model.ModerationEvent{}).Where("id = ?", id).
		Update("state", model.EventStateSent).Error
}

// MarkEventFailed outbox 记录消息失败重试
func (s *PostStore) MarkEventFailed(ctx context.Context, id uint64) error {
	return s.DB.WithContext(ctx).Model(&model.ModerationEvent{}).Where("id = ?", id).
		Updates(map[string]any{"state": model.EventStateFailed, "retry": gorm.Expr("retry + 1")}).Error
}
