package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openMem(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	return gdb
}

func TestStore_DBReturnsLiveHandle(t *testing.T) {
	store := NewStoreFromDB(openMem(t), zap.NewNop())

	gdb, err := store.DB(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, gdb)
}

func TestStore_ReconnectsOnce(t *testing.T) {
	dead := openMem(t)
	sqlDB, err := dead.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	fresh := openMem(t)
	attempts := 0
	store := &Store{
		db: dead,
		open: func() (*gorm.DB, error) {
			attempts++
			return fresh, nil
		},
		pingTimeout: time.Second,
		logger:      zap.NewNop(),
	}

	gdb, err := store.DB(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, attempts)

	var one int
	require.NoError(t, gdb.Raw("SELECT 1").Scan(&one).Error)
	assert.Equal(t, 1, one)
}

func TestStore_SecondFailureSurfacesErrStorage(t *testing.T) {
	dead := openMem(t)
	sqlDB, err := dead.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	store := &Store{
		db: dead,
		open: func() (*gorm.DB, error) {
			return nil, errors.New("dial refused")
		},
		pingTimeout: time.Second,
		logger:      zap.NewNop(),
	}

	_, err = store.DB(context.Background())
	assert.ErrorIs(t, err, ErrStorage)
}

func TestStore_ReopenedConnectionStillDead(t *testing.T) {
	deadConn := func(t *testing.T) *gorm.DB {
		gdb := openMem(t)
		sqlDB, err := gdb.DB()
		require.NoError(t, err)
		require.NoError(t, sqlDB.Close())
		return gdb
	}

	store := &Store{
		db:          deadConn(t),
		open:        func() (*gorm.DB, error) { return deadConn(t), nil },
		pingTimeout: time.Second,
		logger:      zap.NewNop(),
	}

	_, err := store.DB(context.Background())
	assert.ErrorIs(t, err, ErrStorage)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(errors.New("UNIQUE constraint failed: guilds.name")))
	assert.True(t, IsUniqueViolation(errors.New("Error 1062: Duplicate entry 'KNI' for key 'tag'")))
	assert.False(t, IsUniqueViolation(errors.New("connection reset by peer")))
	assert.False(t, IsUniqueViolation(nil))
}
