package model

import "time"

// GuildTask tracks one guild objective with bounded progress.
// Progress never exceeds Target; once CompletedAt is set the row is
// immutable.
type GuildTask struct {
	ID          int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	GuildID     int64      `gorm:"index:idx_task_guild;not null" json:"guild_id"`
	Type        string     `gorm:"size:32;not null" json:"type"`
	Subtype     string     `gorm:"size:32" json:"subtype"` // empty = any
	Target      int        `gorm:"not null" json:"target"`
	Progress    int        `gorm:"default:0" json:"progress"`
	RewardExp   int64      `gorm:"default:0" json:"reward_exp"`
	RewardMoney int64      `gorm:"default:0" json:"reward_money"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	ExpiresAt   time.Time  `gorm:"not null" json:"expires_at"`
	CompletedAt *time.Time `json:"completed_at"`

	Guild Guild `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
