package model

import "time"

// Player is an authenticated actor. Game adapters map their own player
// identity onto this table at registration time.
type Player struct {
	ID           int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string     `gorm:"uniqueIndex;size:32;not null" json:"name"`
	PasswordHash string     `gorm:"size:72;not null" json:"-"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	LastLoginAt  *time.Time `json:"last_login_at"`
}
