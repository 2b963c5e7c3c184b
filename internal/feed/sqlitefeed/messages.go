package sqlitefeed

import (
	"context"
	"fmt"

	"github.com/oklog/ulid/v2"

	"github.com/HornetGeek/petow-frontend-sub000/internal/bus"
	"github.com/HornetGeek/petow-frontend-sub000/internal/feed"
)

// AddMessage implements feed.Store. The timestamp is the store clock, raised
// to the feed's latest timestamp when the clock is behind, so that the feed
// stays non-decreasing.
func (s *Store) AddMessage(ctx context.Context, feedID string, m feed.Message) (*feed.Message, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var last int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(ts), 0) FROM messages WHERE feed_id = ?`, feedID).Scan(&last); err != nil {
		return nil, fmt.Errorf("read latest timestamp: %w", err)
	}

	m.ID = ulid.Make().String()
	m.FeedID = feedID
	m.Timestamp = max(s.now(), last)

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO messages (id, feed_id, client_msg_id, text, sender_id, sender_name, kind, image_url, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.FeedID, m.ClientMsgID, m.Text, m.SenderID, m.SenderName, string(m.Kind), m.ImageURL, m.Timestamp); err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit message: %w", err)
	}

	s.bus.Publish(bus.NewEvent(bus.KindFeedChanged, feedID))
	return &m, nil
}

// Snapshot returns the whole feed in order along with the highest sequence
// number seen, which changes whenever a message is appended.
func (s *Store) Snapshot(ctx context.Context, feedID string) ([]feed.Message, int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, feed_id, client_msg_id, text, sender_id, sender_name, kind, image_url, ts
		FROM messages
		WHERE feed_id = ?
		ORDER BY ts ASC, seq ASC`, feedID)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = rows.Close() }()

	msgs := []feed.Message{}
	var version int64
	for rows.Next() {
		var (
			m    feed.Message
			seq  int64
			kind string
		)
		if err := rows.Scan(&seq, &m.ID, &m.FeedID, &m.ClientMsgID, &m.Text, &m.SenderID, &m.SenderName, &kind, &m.ImageURL, &m.Timestamp); err != nil {
			return nil, 0, err
		}
		m.Kind = feed.Kind(kind)
		version = max(version, seq)
		msgs = append(msgs, m)
	}
	return msgs, version, rows.Err()
}

// Exists reports whether feedID has any message or a metadata record.
func (s *Store) Exists(ctx context.Context, feedID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM feed_meta WHERE feed_id = ?)
		    OR EXISTS (SELECT 1 FROM messages WHERE feed_id = ?)`, feedID, feedID).Scan(&exists)
	return exists, err
}
