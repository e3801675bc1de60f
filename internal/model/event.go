package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	EventPostCreated   = "post.created"
	EventPostModerated = "post.moderated"
)

const (
	EventStatePending int8 = 0
	EventStateSent    int8 = 1
	EventStateFailed  int8 = 2
)

// ModerationEvent 审核事件 outbox 表，与状态变更在同一事务中写入
type ModerationEvent struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	EventID   string    `gorm:"size:36;uniqueIndex;not null" json:"event_id"`
	EventType string    `gorm:"size:32;not null" json:"event_type"`
	PostID    uint64    `gorm:"not null;index" json:"post_id"`
	Payload   string    `gorm:"type:json;not null" json:"payload"`
	State     int8      `gorm:"not null;default:0;index;comment:'0=pending,1=sent,2=failed'" json:"state"`
	Retry     int       `gorm:"not null;default:0" json:"retry"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ModerationEvent) TableName() string { return "moderation_events" }

// EventPayload outbox 中 payload 字段的结构
type EventPayload struct {
	EventID     string     `json:"event_id"`
	EventType   string     `json:"event_type"`
	PostID      uint64     `json:"post_id"`
	CommunityID uint64     `json:"community_id"`
	AuthorID    uint64     `json:"author_id"`
	Status      PostStatus `json:"status"`
	Reason      string     `json:"reason"`
	ModeratorID *uint64    `json:"moderator_id"`
	OccurredAt  time.Time  `json:"occurred_at"`
}

// NewModerationEvent 根据已落库的帖子和日志构造 outbox 事件，调用方需保证二者已分配 ID
func NewModerationEvent(eventType string, post *Post, entry *ModerationLog) (*ModerationEvent, error) {
	id := uuid.NewString()
	payload, err := json.Marshal(EventPayload{
		EventID:     id,
		EventType:   eventType,
		PostID:      post.ID,
		CommunityID: post.CommunityID,
		AuthorID:    post.AuthorID,
		Status:      post.Status,
		Reason:      entry.Reason,
		ModeratorID: entry.ModeratorID,
		OccurredAt:  entry.CreatedAt.UTC(),
	})
	if err != nil {
		return nil, err
	}
	return &ModerationEvent{
		EventID:   id,
		EventType: eventType,
		PostID:    post.ID,
		Payload:   string(payload),
		State:     EventStatePending,
	}, nil
}
