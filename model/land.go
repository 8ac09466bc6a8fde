package model

import "time"

// LandClaim records guild ownership of one chunk. The composite unique
// index is what guarantees a chunk belongs to at most one guild, even
// under concurrent claim attempts.
type LandClaim struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	GuildID   int64     `gorm:"index:idx_land_guild;not null" json:"guild_id"`
	World     string    `gorm:"uniqueIndex:idx_land_chunk;size:64;not null" json:"world"`
	ChunkX    int       `gorm:"uniqueIndex:idx_land_chunk;not null" json:"chunk_x"`
	ChunkZ    int       `gorm:"uniqueIndex:idx_land_chunk;not null" json:"chunk_z"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	Guild Guild `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
