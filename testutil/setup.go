package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/sorahane/guildserver/cache"
	"github.com/sorahane/guildserver/config"
	"github.com/sorahane/guildserver/db"
	dbsqlite "github.com/sorahane/guildserver/db/sqlite"
	"github.com/sorahane/guildserver/model"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var dbSeq atomic.Int64

// SetupTestDB creates an isolated in-memory SQLite database and runs
// AutoMigrate. It requires no external services and is safe to use in
// parallel tests.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:guildtest%d?mode=memory&cache=shared", dbSeq.Add(1))
	gdb, err := dbsqlite.Open(dsn)
	require.NoError(t, err, "SetupTestDB: Open")
	require.NoError(t, model.AutoMigrate(gdb), "SetupTestDB: AutoMigrate")
	return gdb
}

// SetupTestStore wraps an in-memory test database in a Store handle.
func SetupTestStore(t *testing.T) *db.Store {
	t.Helper()
	return db.NewStoreFromDB(SetupTestDB(t), zap.NewNop())
}

// SetupTestCache creates a local Cache and PubSub (no Redis required).
func SetupTestCache(t *testing.T) (cache.Cache, cache.PubSub) {
	t.Helper()
	cfg := config.CacheConfig{} // empty RedisAddr → local backends
	c, err := cache.NewCache(cfg)
	require.NoError(t, err, "SetupTestCache: NewCache")
	ps, err := cache.NewPubSub(cfg)
	require.NoError(t, err, "SetupTestCache: NewPubSub")
	return c, ps
}

// GuildTestConfig returns guild tuning with small, predictable numbers.
func GuildTestConfig() config.GuildConfig {
	return config.GuildConfig{
		LevelExpBase:     100,
		LevelExpGrowth:   2,
		BankCapacityBase: 1000,
		BankCapacityStep: 500,
		ClaimLimitBase:   4,
		ClaimLimitStep:   2,
		NameMaxLen:       32,
		TagMaxLen:        6,
	}
}
