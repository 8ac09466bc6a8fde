package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestRole_AtLeast(t *testing.T) {
	assert.True(t, RoleOwner.AtLeast(RoleOwner))
	assert.True(t, RoleOwner.AtLeast(RoleMember))
	assert.True(t, RoleAdmin.AtLeast(RoleMember))
	assert.False(t, RoleMember.AtLeast(RoleAdmin))
	assert.False(t, RoleAdmin.AtLeast(RoleOwner))
}

func TestRole_Valid(t *testing.T) {
	assert.True(t, RoleOwner.Valid())
	assert.True(t, RoleMember.Valid())
	assert.False(t, Role(0).Valid())
	assert.False(t, Role(4).Valid())
}

func TestRole_String(t *testing.T) {
	assert.Equal(t, "OWNER", RoleOwner.String())
	assert.Equal(t, "UNKNOWN", Role(9).String())
}

func TestWarStatus_String(t *testing.T) {
	assert.Equal(t, "PENDING", WarPending.String())
	assert.Equal(t, "PREPARING", WarPreparing.String())
	assert.Equal(t, "ONGOING", WarOngoing.String())
	assert.Equal(t, "ENDED", WarEnded.String())
}

func TestNormalizePair(t *testing.T) {
	a, b := NormalizePair(5, 2)
	assert.Equal(t, int64(2), a)
	assert.Equal(t, int64(5), b)

	a, b = NormalizePair(2, 5)
	assert.Equal(t, int64(2), a)
	assert.Equal(t, int64(5), b)
}

func TestAutoMigrate(t *testing.T) {
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, AutoMigrate(gdb))

	for _, table := range []string{
		"players", "guilds", "guild_members", "guild_banks", "join_requests",
		"land_claims", "alliances", "alliance_requests", "wars", "war_kills",
		"ceasefire_requests", "guild_tasks", "audit_logs",
	} {
		assert.True(t, gdb.Migrator().HasTable(table), "missing table %s", table)
	}
}
