package room

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/HornetGeek/petow-frontend-sub000/internal/logging"
	"github.com/HornetGeek/petow-frontend-sub000/internal/metrics"
)

// Resolver maps a feed id to its room and context.
type Resolver struct {
	lookup RoomLookup
	user   User
	logger *zap.Logger
}

// NewResolver creates a resolver for the local user.
func NewResolver(lookup RoomLookup, user User, logger *zap.Logger) *Resolver {
	return &Resolver{lookup: lookup, user: user, logger: logging.OrNop(logger)}
}

// Resolve fetches the room and then its context. Either failure is final for
// this open attempt.
func (r *Resolver) Resolve(ctx context.Context, feedID string) (res *Resolved, err error) {
	defer func() {
		outcome := "resolved"
		if err != nil {
			outcome = "failed"
		}
		metrics.RoomsOpened.WithLabelValues(outcome).Inc()
	}()

	feedID = strings.TrimSpace(feedID)
	if feedID == "" {
		return nil, ErrEmptyFeedID
	}

	rm, err := r.lookup.RoomByFeedID(ctx, feedID)
	if err != nil {
		r.logger.Warn("room lookup failed", zap.String("feed_id", feedID), zap.Error(err))
		return nil, fmt.Errorf("resolve room %q: %w", feedID, err)
	}

	rc, err := r.lookup.RoomContext(ctx, rm.ID)
	if err != nil {
		r.logger.Warn("room context failed", zap.String("feed_id", feedID), zap.Int64("room_id", rm.ID), zap.Error(err))
		return nil, fmt.Errorf("resolve context of room %d: %w", rm.ID, err)
	}

	res = &Resolved{
		FeedID:  feedID,
		Room:    *rm,
		Context: *rc,
		User:    r.user,
	}
	if cp, ok := rc.Counterpart(r.user.ID); ok {
		res.Counterpart = cp
	}
	r.logger.Info("room resolved",
		zap.String("feed_id", feedID),
		zap.Int64("room_id", rm.ID),
		zap.Int64("counterpart_id", res.Counterpart.ID),
	)
	return res, nil
}
