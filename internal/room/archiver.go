package room

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/HornetGeek/petow-frontend-sub000/internal/logging"
	"github.com/HornetGeek/petow-frontend-sub000/internal/metrics"
)

// Navigator moves the user away from a room view.
type Navigator interface {
	LeaveRoom(feedID string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(feedID string)

func (f NavigatorFunc) LeaveRoom(feedID string) { f(feedID) }

// Archiver deactivates a room and leaves it.
type Archiver struct {
	rooms  RoomDeactivator
	nav    Navigator
	logger *zap.Logger
}

// NewArchiver creates an archiver.
func NewArchiver(rooms RoomDeactivator, nav Navigator, logger *zap.Logger) *Archiver {
	return &Archiver{rooms: rooms, nav: nav, logger: logging.OrNop(logger)}
}

// Archive makes exactly one archive call. On failure nothing else happens.
func (a *Archiver) Archive(ctx context.Context, r *Resolved) error {
	if r == nil {
		return ErrNotResolved
	}
	err := a.rooms.ArchiveRoom(ctx, r.Room.ID)
	metrics.RoomsArchived.WithLabelValues(metrics.Outcome(err)).Inc()
	if err != nil {
		a.logger.Error("archive failed", zap.String("feed_id", r.FeedID), zap.Int64("room_id", r.Room.ID), zap.Error(err))
		return fmt.Errorf("archive room %d: %w", r.Room.ID, err)
	}
	a.logger.Info("room archived", zap.String("feed_id", r.FeedID), zap.Int64("room_id", r.Room.ID))
	if a.nav != nil {
		a.nav.LeaveRoom(r.FeedID)
	}
	return nil
}
