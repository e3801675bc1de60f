package model

import (
	"strings"
	"time"
)

// Role 用户角色
type Role int

const (
	RoleUser      Role = 0
	RoleModerator Role = 1
	RoleAdmin     Role = 2
)

func (r Role) String() string {
	switch r {
	case RoleModerator:
		return "MODERATOR"
	case RoleAdmin:
		return "ADMIN"
	default:
		return "USER"
	}
}

// ParseRole 解析 USER / MODERATOR / ADMIN
func ParseRole(v string) (Role, bool) {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "USER":
		return RoleUser, true
	case "MODERATOR":
		return RoleModerator, true
	case "ADMIN":
		return RoleAdmin, true
	}
	return RoleUser, false
}

type User struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"uniqueIndex;size:32;not null" json:"username"`
	Password  string    `gorm:"size:255;not null" json:"-"`
	Role      Role      `gorm:"not null;default:0" json:"role"`
	Email     string    `gorm:"uniqueIndex;size:64;not null" json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
