package moderation

import (
	"context"
	"time"

	"Lee_Moderation/internal/model"
)

const (
	DefaultQueueLimit = 20
	MaxQueueLimit     = 100

	ReasonFlaggedByAI = "Flagged by AI"
)

// QueueItem 待审核的帖子及最近一次被标记的原因
type QueueItem struct {
	Post      model.Post `json:"post"`
	Reason    string     `json:"reason"`
	FlaggedAt time.Time  `json:"flagged_at"`
}

// QueueFilter 社区过滤 + (created_at, id) 游标
type QueueFilter struct {
	CommunityID     uint64
	BeforeCreatedAt time.Time
	BeforeID        uint64
	Limit           int
}

// Stats 审核面板统计
type Stats struct {
	PendingReview int64                      `json:"pending_review"`
	ApprovedToday int64                      `json:"approved_today"`
	RejectedToday int64                      `json:"rejected_today"`
	ByStatus      map[model.PostStatus]int64 `json:"by_status"`
}

// Queue FLAGGED 帖子的只读视图，每次都直接查存储，不做缓存
type Queue struct {
	store Store
}

func NewQueue(store Store) *Queue {
	return &Queue{store: store}
}

// NormalizeLimit 队列分页大小，默认 20，最大 100
func NormalizeLimit(n int) int {
	if n <= 0 {
		return DefaultQueueLimit
	}
	if n > MaxQueueLimit {
		return MaxQueueLimit
	}
	return n
}

// List 最新的在前
func (q *Queue) List(ctx context.Context, f QueueFilter) ([]QueueItem, error) {
	posts, err := q.store.ListPosts(ctx, PostFilter{
		Status:          model.StatusFlagged,
		CommunityID:     f.CommunityID,
		BeforeCreatedAt: f.BeforeCreatedAt,
		BeforeID:        f.BeforeID,
		Limit:           NormalizeLimit(f.Limit),
	})
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return []QueueItem{}, nil
	}

	ids := make([]uint64, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	latest, err := q.store.LatestEntries(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]QueueItem, 0, len(posts))
	for _, p := range posts {
		item := QueueItem{Post: p, Reason: ReasonFlaggedByAI, FlaggedAt: p.UpdatedAt}
		if e, ok := latest[p.ID]; ok {
			if e.Reason != "" {
				item.Reason = e.Reason
			}
			item.FlaggedAt = e.CreatedAt
		}
		items = append(items, item)
	}
	return items, nil
}

// Stats dayStart 之后更新为 APPROVED / REJECTED 的数量，以及各状态总数
func (q *Queue) Stats(ctx context.Context, dayStart time.Time) (Stats, error) {
	st := Stats{ByStatus: make(map[model.PostStatus]int64, 4)}
	for _, s := range model.AllStatuses() {
		n, err := q.store.CountPosts(ctx, s, time.Time{})
		if err != nil {
			return Stats{}, err
		}
		st.ByStatus[s] = n
	}
	st.PendingReview = st.ByStatus[model.StatusFlagged]

	var err error
	if st.ApprovedToday, err = q.store.CountPosts(ctx, model.StatusApproved, dayStart); err != nil {
		return Stats{}, err
	}
	if st.RejectedToday, err = q.store.CountPosts(ctx, model.StatusRejected, dayStart); err != nil {
		return Stats{}, err
	}
	return st, nil
}
