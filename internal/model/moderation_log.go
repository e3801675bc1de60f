package model

import "time"

// ModerationLog 审核日志，只追加不修改
type ModerationLog struct {
	ID          uint64    `gorm:"primaryKey" json:"id"`
	PostID      uint64    `gorm:"not null;index:idx_log_post_time,priority:1" json:"post_id"`
	Post        *Post     `gorm:"foreignKey:PostID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	Action      string    `gorm:"size:32;not null" json:"action"`
	Reason      string    `gorm:"size:512;not null" json:"reason"`
	ModeratorID *uint64   `gorm:"index" json:"moderator_id"` // nil 表示由 AI 自动决策
	CreatedAt   time.Time `gorm:"index:idx_log_post_time,priority:2,sort:desc" json:"created_at"`
}

func (ModerationLog) TableName() string {
	return "moderation_logs"
}

// Automated 是否是分类器产生的记录
func (l ModerationLog) Automated() bool {
	return l.ModeratorID == nil
}
