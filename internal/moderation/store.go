// Package moderation owns a post's moderation state: the decision policy, the
// lifecycle state machine, the audit log and the moderation queue read model.
package moderation

import (
	"context"
	"errors"
	"time"

	"Lee_Moderation/internal/model"
)

var (
	ErrPostNotFound      = errors.New("moderation: post not found")
	ErrIllegalTransition = errors.New("moderation: illegal status transition")
	ErrInvalidAction     = errors.New("moderation: invalid action")
	ErrMissingModerator  = errors.New("moderation: moderator id required")
)

// Transition 一次带前置状态校验的状态变更
type Transition struct {
	PostID uint64
	From   model.PostStatus
	To     model.PostStatus
	Entry  *model.ModerationLog
	At     time.Time
}

// PostFilter 帖子列表查询条件；游标为 (created_at, id) 严格小于
type PostFilter struct {
	Status          model.PostStatus
	CommunityID     uint64
	BeforeCreatedAt time.Time
	BeforeID        uint64
	Limit           int
}

// Store 持久化契约。
// CreatePost 与 TransitionPost 必须在同一个事务里写入帖子状态、审核日志以及对应的
// outbox 事件（model.NewModerationEvent），任何一步失败都不能留下部分数据。
// TransitionPost 只有在帖子当前状态等于 From 时才更新，否则返回 ErrIllegalTransition；
// 帖子不存在返回 ErrPostNotFound。
type Store interface {
	CreatePost(ctx context.Context, post *model.Post, entry *model.ModerationLog) error
	TransitionPost(ctx context.Context, t Transition) (*model.Post, error)
	FindPost(ctx context.Context, id uint64) (*model.Post, error)
	History(ctx context.Context, postID uint64) ([]model.ModerationLog, error)
	LatestEntries(ctx context.Context, postIDs []uint64) (map[uint64]model.ModerationLog, error)
	ListPosts(ctx context.Context, filter PostFilter) ([]model.Post, error)
	CountPosts(ctx context.Context, status model.PostStatus, updatedSince time.Time) (int64, error)
}

// Clock allows deterministic timing in tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock 默认时钟
func SystemClock() Clock { return systemClock{} }
