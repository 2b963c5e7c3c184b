package sqlitefeed

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/HornetGeek/petow-frontend-sub000/internal/feed"
)

// GetMeta implements feed.Store.
func (s *Store) GetMeta(ctx context.Context, feedID string) (*feed.Meta, error) {
	var (
		m            feed.Meta
		participants string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT last_message, last_sender_id, last_message_at, created_at, updated_at, participants, active
		FROM feed_meta WHERE feed_id = ?`, feedID).
		Scan(&m.LastMessage, &m.LastSenderID, &m.LastMessageAt, &m.CreatedAt, &m.UpdatedAt, &participants, &m.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, feed.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(participants), &m.Participants); err != nil {
		return nil, fmt.Errorf("decode participants: %w", err)
	}
	return &m, nil
}

// SetMeta implements feed.Store.
func (s *Store) SetMeta(ctx context.Context, feedID string, m feed.Meta) error {
	now := s.now()
	if m.CreatedAt == 0 {
		m.CreatedAt = now
	}
	if m.UpdatedAt == 0 {
		m.UpdatedAt = now
	}
	if m.Participants == nil {
		m.Participants = []int64{}
	}
	participants, err := json.Marshal(m.Participants)
	if err != nil {
		return fmt.Errorf("encode participants: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO feed_meta (feed_id, last_message, last_sender_id, last_message_at, created_at, updated_at, participants, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(feed_id) DO UPDATE SET
			last_message = excluded.last_message,
			last_sender_id = excluded.last_sender_id,
			last_message_at = excluded.last_message_at,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			participants = excluded.participants,
			active = excluded.active`,
		feedID, m.LastMessage, m.LastSenderID, m.LastMessageAt, m.CreatedAt, m.UpdatedAt, string(participants), m.Active)
	return err
}

// UpdateMeta implements feed.Store.
func (s *Store) UpdateMeta(ctx context.Context, feedID string, u feed.MetaUpdate) error {
	now := s.now()
	res, err := s.db.ExecContext(ctx, `
		UPDATE feed_meta SET
			last_message = ?, last_sender_id = ?, last_message_at = ?, updated_at = ?
		WHERE feed_id = ?`,
		u.LastMessage, u.LastSenderID, now, now, feedID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return feed.ErrNotFound
	}
	return nil
}
