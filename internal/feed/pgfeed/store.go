// Package pgfeed is a feed store on PostgreSQL. Writes are announced with
// NOTIFY on the feed_changed channel; subscriptions LISTEN on a dedicated
// pooled connection.
package pgfeed

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"

	"github.com/HornetGeek/petow-frontend-sub000/internal/feed"
)

const notifyChannel = "feed_changed"

const schema = `
CREATE TABLE IF NOT EXISTS feed_messages (
	seq           BIGSERIAL PRIMARY KEY,
	id            TEXT NOT NULL UNIQUE,
	feed_id       TEXT NOT NULL,
	client_msg_id TEXT NOT NULL DEFAULT '',
	text          TEXT NOT NULL DEFAULT '',
	sender_id     BIGINT NOT NULL,
	sender_name   TEXT NOT NULL DEFAULT '',
	kind          TEXT NOT NULL,
	image_url     TEXT NOT NULL DEFAULT '',
	ts            BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_feed_messages_feed_ts ON feed_messages (feed_id, ts, id);

CREATE TABLE IF NOT EXISTS feed_meta (
	feed_id         TEXT PRIMARY KEY,
	last_message    TEXT NOT NULL DEFAULT '',
	last_sender_id  BIGINT NOT NULL DEFAULT 0,
	last_message_at BIGINT NOT NULL DEFAULT 0,
	created_at      BIGINT NOT NULL,
	updated_at      BIGINT NOT NULL,
	participants    BIGINT[] NOT NULL DEFAULT '{}',
	active          BOOLEAN NOT NULL DEFAULT TRUE
);
`

// nowMillis is the database clock in unix ms.
const nowMillis = `(EXTRACT(EPOCH FROM clock_timestamp()) * 1000)::BIGINT`

// Store handles PostgreSQL operations for feeds and metadata records.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a store with a connection pool.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &Store{pool: pool}, nil
}

// EnsureSchema creates the feed tables if they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", classify(err))
	}
	return nil
}

// Close implements feed.Store.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// classify maps server errors onto the feed error classes.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "42501": // insufficient_privilege
			return fmt.Errorf("%w: %v", feed.ErrPermissionDenied, err)
		case "42P01": // undefined_table
			return fmt.Errorf("%w: %v", feed.ErrNotFound, err)
		}
	}
	return err
}

// AddMessage implements feed.Store. Writers to one feed are serialized by an
// advisory lock so that timestamps never go backwards.
func (s *Store) AddMessage(ctx context.Context, feedID string, m feed.Message) (*feed.Message, error) {
	m.ID = ulid.Make().String()
	m.FeedID = feedID

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, feedID); err != nil {
			return err
		}
		err := tx.QueryRow(ctx, `
			INSERT INTO feed_messages (id, feed_id, client_msg_id, text, sender_id, sender_name, kind, image_url, ts)
			SELECT $1, $2, $3, $4, $5, $6, $7, $8,
				GREATEST(`+nowMillis+`, COALESCE((SELECT MAX(ts) FROM feed_messages WHERE feed_id = $2), 0))
			RETURNING ts`,
			m.ID, feedID, m.ClientMsgID, m.Text, m.SenderID, m.SenderName, string(m.Kind), m.ImageURL,
		).Scan(&m.Timestamp)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `SELECT pg_notify($1, $2)`, notifyChannel, feedID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("add message: %w", classify(err))
	}
	return &m, nil
}

// Snapshot returns the whole feed in order.
func (s *Store) Snapshot(ctx context.Context, feedID string) ([]feed.Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, feed_id, client_msg_id, text, sender_id, sender_name, kind, image_url, ts
		FROM feed_messages
		WHERE feed_id = $1
		ORDER BY ts ASC, id ASC`, feedID)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	msgs := []feed.Message{}
	for rows.Next() {
		var (
			m    feed.Message
			kind string
		)
		if err := rows.Scan(&m.ID, &m.FeedID, &m.ClientMsgID, &m.Text, &m.SenderID, &m.SenderName, &kind, &m.ImageURL, &m.Timestamp); err != nil {
			return nil, err
		}
		m.Kind = feed.Kind(kind)
		msgs = append(msgs, m)
	}
	return msgs, classify(rows.Err())
}

// Exists reports whether feedID has any message or a metadata record.
func (s *Store) Exists(ctx context.Context, feedID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM feed_meta WHERE feed_id = $1)
		    OR EXISTS (SELECT 1 FROM feed_messages WHERE feed_id = $1)`, feedID).Scan(&exists)
	return exists, classify(err)
}

// GetMeta implements feed.Store.
func (s *Store) GetMeta(ctx context.Context, feedID string) (*feed.Meta, error) {
	m := &feed.Meta{}
	err := s.pool.QueryRow(ctx, `
		SELECT last_message, last_sender_id, last_message_at, created_at, updated_at, participants, active
		FROM feed_meta WHERE feed_id = $1`, feedID).
		Scan(&m.LastMessage, &m.LastSenderID, &m.LastMessageAt, &m.CreatedAt, &m.UpdatedAt, &m.Participants, &m.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, feed.ErrNotFound
		}
		return nil, classify(err)
	}
	return m, nil
}

// SetMeta implements feed.Store.
func (s *Store) SetMeta(ctx context.Context, feedID string, m feed.Meta) error {
	if m.Participants == nil {
		m.Participants = []int64{}
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO feed_meta (feed_id, last_message, last_sender_id, last_message_at, created_at, updated_at, participants, active)
		VALUES ($1, $2, $3, $4,
			COALESCE(NULLIF($5::BIGINT, 0), `+nowMillis+`),
			COALESCE(NULLIF($6::BIGINT, 0), `+nowMillis+`),
			$7, $8)
		ON CONFLICT (feed_id) DO UPDATE SET
			last_message = EXCLUDED.last_message,
			last_sender_id = EXCLUDED.last_sender_id,
			last_message_at = EXCLUDED.last_message_at,
			created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at,
			participants = EXCLUDED.participants,
			active = EXCLUDED.active`,
		feedID, m.LastMessage, m.LastSenderID, m.LastMessageAt, m.CreatedAt, m.UpdatedAt, m.Participants, m.Active)
	return classify(err)
}

// UpdateMeta implements feed.Store.
func (s *Store) UpdateMeta(ctx context.Context, feedID string, u feed.MetaUpdate) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE feed_meta SET
			last_message = $2, last_sender_id = $3,
			last_message_at = `+nowMillis+`, updated_at = `+nowMillis+`
		WHERE feed_id = $1`, feedID, u.LastMessage, u.LastSenderID)
	if err != nil {
		return classify(err)
	}
	if tag.RowsAffected() == 0 {
		return feed.ErrNotFound
	}
	return nil
}
