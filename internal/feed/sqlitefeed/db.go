// Package sqlitefeed is an embedded feed store backed by SQLite. Writers in
// the same process push through the bus; writers in other processes are
// picked up by polling.
package sqlitefeed

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/HornetGeek/petow-frontend-sub000/internal/bus"
)

// Store wraps a SQLite database holding feeds and metadata records.
type Store struct {
	db   *sql.DB
	bus  *bus.Bus
	poll time.Duration
	now  func() int64
}

// Option configures a Store.
type Option func(*Store)

// WithBus shares an event bus so that subscriptions wake on local writes.
func WithBus(b *bus.Bus) Option {
	return func(s *Store) {
		if b != nil {
			s.bus = b
		}
	}
}

// WithPollInterval sets how often subscriptions check for foreign writes.
func WithPollInterval(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.poll = d
		}
	}
}

// WithClock replaces the store clock (unix ms).
func WithClock(now func() int64) Option {
	return func(s *Store) { s.now = now }
}

// Open creates a new SQLite connection with WAL mode and recommended pragmas.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	s := &Store{
		db:   db,
		bus:  bus.New(),
		poll: 500 * time.Millisecond,
		now:  func() int64 { return time.Now().UnixMilli() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close implements feed.Store.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
