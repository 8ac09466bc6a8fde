package model

import "time"

// Role is a member's rank within a guild. Lower values outrank higher ones.
type Role int

const (
	RoleOwner  Role = 1
	RoleAdmin  Role = 2
	RoleMember Role = 3
)

// AtLeast reports whether r carries at least the authority of other.
func (r Role) AtLeast(other Role) bool { return r <= other }

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool { return r >= RoleOwner && r <= RoleMember }

func (r Role) String() string {
	switch r {
	case RoleOwner:
		return "OWNER"
	case RoleAdmin:
		return "ADMIN"
	case RoleMember:
		return "MEMBER"
	default:
		return "UNKNOWN"
	}
}

// Guild represents a player guild.
type Guild struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string    `gorm:"uniqueIndex;size:32;not null" json:"name"`
	Tag          string    `gorm:"uniqueIndex;size:8;not null" json:"tag"`
	OwnerID      int64     `gorm:"not null" json:"owner_id"`
	Level        int       `gorm:"default:1" json:"level"`
	Exp          int64     `gorm:"default:0" json:"exp"`
	Public       bool      `gorm:"default:false" json:"public"`
	Announcement string    `gorm:"type:text" json:"announcement"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// GuildMember links a player to a guild with a role. Membership is
// exclusive: the unique index on player_id backs the count checks in
// the registry.
type GuildMember struct {
	GuildID     int64     `gorm:"primaryKey;index:idx_member_guild" json:"guild_id"`
	PlayerID    int64     `gorm:"primaryKey;uniqueIndex:idx_member_player" json:"player_id"`
	DisplayName string    `gorm:"size:32" json:"display_name"`
	Role        Role      `gorm:"default:3" json:"role"`
	JoinedAt    time.Time `gorm:"autoCreateTime" json:"joined_at"`

	Guild Guild `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// GuildBank is a guild's shared treasury (1:1 with Guild).
type GuildBank struct {
	GuildID  int64 `gorm:"primaryKey" json:"guild_id"`
	Balance  int64 `gorm:"default:0" json:"balance"`
	Capacity int64 `gorm:"not null" json:"capacity"`

	Guild Guild `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// JoinRequest is a player's application to a guild. Multiple PENDING
// applications from the same player to the same guild may coexist.
type JoinRequest struct {
	ID         int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	PlayerID   int64         `gorm:"index:idx_join_player;not null" json:"player_id"`
	PlayerName string        `gorm:"size:32" json:"player_name"`
	GuildID    int64         `gorm:"index:idx_join_guild;not null" json:"guild_id"`
	Status     RequestStatus `gorm:"default:0" json:"status"`
	CreatedAt  time.Time     `gorm:"autoCreateTime" json:"created_at"`
	ResolvedAt *time.Time    `json:"resolved_at"`

	Guild Guild `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
