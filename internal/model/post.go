package model

import (
	"strings"
	"time"
)

// PostStatus 帖子审核状态
type PostStatus string

const (
	StatusPending  PostStatus = "PENDING" // 预留：异步审核时使用，当前策略不会赋值
	StatusApproved PostStatus = "APPROVED"
	StatusFlagged  PostStatus = "FLAGGED"
	StatusRejected PostStatus = "REJECTED"
)

// Valid 是否为合法枚举值
func (s PostStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusFlagged, StatusRejected:
		return true
	}
	return false
}

// ParseStatus 解析状态字符串（不区分大小写）
func ParseStatus(v string) (PostStatus, bool) {
	s := PostStatus(strings.ToUpper(strings.TrimSpace(v)))
	return s, s.Valid()
}

// AllStatuses 全部状态，按生命周期顺序
func AllStatuses() []PostStatus {
	return []PostStatus{StatusPending, StatusApproved, StatusFlagged, StatusRejected}
}

type Post struct {
	ID          uint64     `gorm:"primaryKey" json:"id"`
	CommunityID uint64     `gorm:"not null;index:idx_comm_status_time,priority:1" json:"community_id"`
	Community   *Community `gorm:"foreignKey:CommunityID" json:"-"`
	AuthorID    uint64     `gorm:"not null;index:idx_author_time" json:"author_id"`
	Title       string     `gorm:"size:200;not null" json:"title"`
	Content     *string    `gorm:"type:text" json:"content,omitempty"`
	ImageURL    *string    `gorm:"type:text" json:"image_url,omitempty"`
	Status      PostStatus `gorm:"type:varchar(16);not null;index:idx_status_time,priority:1;index:idx_comm_status_time,priority:2;check:chk_posts_status,status IN ('PENDING','APPROVED','FLAGGED','REJECTED')" json:"status"`
	CreatedAt   time.Time  `gorm:"index:idx_status_time,priority:2,sort:desc;index:idx_comm_status_time,priority:3,sort:desc;index:idx_author_time" json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
