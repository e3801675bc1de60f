package moderation

import (
	"context"
	"fmt"
	"strings"

	"Lee_Moderation/internal/classifier"
	"Lee_Moderation/internal/model"
)

// Action 审核员可执行的操作
type Action string

const (
	ActionApprove Action = "APPROVE"
	ActionReject  Action = "REJECT"
)

const ReasonManualReview = "Manual Review"

func ParseAction(v string) (Action, error) {
	switch a := Action(strings.ToUpper(strings.TrimSpace(v))); a {
	case ActionApprove, ActionReject:
		return a, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidAction, v)
}

// Target 操作对应的目标状态
func (a Action) Target() model.PostStatus {
	if a == ActionApprove {
		return model.StatusApproved
	}
	return model.StatusRejected
}

// 合法的人工流转：只能从 FLAGGED 出发
var transitions = map[model.PostStatus][]model.PostStatus{
	model.StatusFlagged: {model.StatusApproved, model.StatusRejected},
}

// CanTransition 判断 from -> to 是否合法
func CanTransition(from, to model.PostStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Draft 新帖子的内容，不含状态
type Draft struct {
	CommunityID uint64
	AuthorID    uint64
	Title       string
	Content     *string
	ImageURL    *string
}

// Lifecycle 帖子状态机，是唯一可以写 Post.Status 和审核日志的组件
type Lifecycle struct {
	store Store
	clock Clock
}

func NewLifecycle(store Store, clock Clock) *Lifecycle {
	if clock == nil {
		clock = SystemClock()
	}
	return &Lifecycle{store: store, clock: clock}
}

// Create 帖子进入系统的唯一入口，初始状态由决策策略根据分类结果给出
func (l *Lifecycle) Create(ctx context.Context, d Draft, res classifier.Result) (*model.Post, error) {
	now := l.clock.Now()
	status := InitialStatus(res)
	post := &model.Post{
		CommunityID: d.CommunityID,
		AuthorID:    d.AuthorID,
		Title:       d.Title,
		Content:     d.Content,
		ImageURL:    d.ImageURL,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	entry := newEntry(status, res.Reason, nil, now)
	if err := l.store.CreatePost(ctx, post, entry); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return post, nil
}

// Approve FLAGGED -> APPROVED
func (l *Lifecycle) Approve(ctx context.Context, postID, moderatorID uint64, note string) (*model.Post, error) {
	return l.Apply(ctx, ActionApprove, postID, moderatorID, note)
}

// Reject FLAGGED -> REJECTED
func (l *Lifecycle) Reject(ctx context.Context, postID, moderatorID uint64, note string) (*model.Post, error) {
	return l.Apply(ctx, ActionReject, postID, moderatorID, note)
}

// Apply 执行人工审核。状态不是 FLAGGED（包括并发下被别人先处理）时返回 ErrIllegalTransition，不做任何写入
func (l *Lifecycle) Apply(ctx context.Context, action Action, postID, moderatorID uint64, note string) (*model.Post, error) {
	if action != ActionApprove && action != ActionReject {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}
	if moderatorID == 0 {
		return nil, ErrMissingModerator
	}
	to := action.Target()
	if !CanTransition(model.StatusFlagged, to) {
		return nil, ErrIllegalTransition
	}

	reason := strings.TrimSpace(note)
	if reason == "" {
		reason = ReasonManualReview
	}
	now := l.clock.Now()
	mod := moderatorID
	post, err := l.store.TransitionPost(ctx, Transition{
		PostID: postID,
		From:   model.StatusFlagged,
		To:     to,
		Entry:  newEntry(to, reason, &mod, now),
		At:     now,
	})
	if err != nil {
		return nil, err
	}
	return post, nil
}
