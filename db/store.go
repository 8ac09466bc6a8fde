package db

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sorahane/guildserver/config"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrStorage marks a connectivity failure that survived one reconnect
// attempt. Callers surface it; they do not retry.
var ErrStorage = errors.New("db: storage unavailable")

// Store is the process-wide connection handle. Every handout is
// preceded by a bounded-timeout liveness probe; a dead connection is
// rebuilt exactly once before the failure is surfaced.
type Store struct {
	mu          sync.Mutex
	db          *gorm.DB
	open        func() (*gorm.DB, error)
	pingTimeout time.Duration
	logger      *zap.Logger
}

// NewStore opens the configured database and wraps it in a Store.
func NewStore(cfg config.DatabaseConfig, logger *zap.Logger) (*Store, error) {
	open := func() (*gorm.DB, error) { return Open(cfg) }
	gdb, err := open()
	if err != nil {
		return nil, err
	}
	timeout := cfg.PingTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Store{db: gdb, open: open, pingTimeout: timeout, logger: logger}, nil
}

// NewStoreFromDB wraps an already-open connection. Used by tests and by
// callers that manage the connection themselves; reconnect reopens via
// the original configuration only when one was given.
func NewStoreFromDB(gdb *gorm.DB, logger *zap.Logger) *Store {
	return &Store{
		db:          gdb,
		open:        func() (*gorm.DB, error) { return gdb, nil },
		pingTimeout: 3 * time.Second,
		logger:      logger,
	}
}

// DB returns a live connection handle. If the liveness probe fails the
// stale connection is torn down (teardown errors are logged, never
// surfaced) and rebuilt once; a second failure returns ErrStorage.
func (s *Store) DB(ctx context.Context) (*gorm.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ping(ctx) == nil {
		return s.db, nil
	}

	s.teardown()
	gdb, err := s.open()
	if err != nil {
		return nil, fmt.Errorf("%w: reconnect failed: %v", ErrStorage, err)
	}
	s.db = gdb
	if err := s.ping(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	s.logger.Warn("database connection rebuilt")
	return s.db, nil
}

func (s *Store) ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	pingCtx, cancel := context.WithTimeout(ctx, s.pingTimeout)
	defer cancel()
	return sqlDB.PingContext(pingCtx)
}

func (s *Store) teardown() {
	sqlDB, err := s.db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		// Diagnostic noise only; the connection is being replaced.
		s.logger.Warn("stale connection teardown", zap.Error(err))
	}
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
