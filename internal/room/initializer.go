package room

import (
	"context"

	"go.uber.org/zap"

	"github.com/HornetGeek/petow-frontend-sub000/internal/feed"
	"github.com/HornetGeek/petow-frontend-sub000/internal/logging"
	"github.com/HornetGeek/petow-frontend-sub000/internal/metrics"
)

// Initializer creates a feed that the listener found absent.
type Initializer struct {
	store           feed.Store
	withCounterpart bool
	logger          *zap.Logger
}

// NewInitializer creates an initializer. withCounterpart adds the other
// participant to the metadata record it creates.
func NewInitializer(store feed.Store, withCounterpart bool, logger *zap.Logger) *Initializer {
	return &Initializer{store: store, withCounterpart: withCounterpart, logger: logging.OrNop(logger)}
}

// Initialize writes the "chat created" system message and a fresh metadata
// record. A record that already exists keeps its last-message fields and
// creation stamp; participants and the active flag are rewritten. Errors are
// logged, never returned; the result reports whether the system message was
// written.
func (i *Initializer) Initialize(ctx context.Context, r *Resolved) bool {
	_, err := i.store.AddMessage(ctx, r.FeedID, feed.Message{
		Text:       ChatCreatedText,
		SenderID:   feed.SystemSenderID,
		SenderName: SystemSenderName,
		Kind:       feed.KindSystem,
	})
	metrics.FeedsInitialized.WithLabelValues(metrics.Outcome(err)).Inc()
	written := err == nil
	if err != nil {
		i.logger.Warn("failed to write system message", zap.String("feed_id", r.FeedID), zap.Error(err))
	}

	meta := metaFor(r, i.withCounterpart)
	prev, err := i.store.GetMeta(ctx, r.FeedID)
	switch {
	case err == nil:
		meta.LastMessage = prev.LastMessage
		meta.LastSenderID = prev.LastSenderID
		meta.LastMessageAt = prev.LastMessageAt
		meta.CreatedAt = prev.CreatedAt
	case !feed.IsAbsent(err):
		i.logger.Warn("failed to read feed metadata", zap.String("feed_id", r.FeedID), zap.Error(err))
	}

	if err := i.store.SetMeta(ctx, r.FeedID, meta); err != nil {
		i.logger.Warn("failed to create feed metadata", zap.String("feed_id", r.FeedID), zap.Error(err))
	}

	if written {
		i.logger.Info("feed initialized", zap.String("feed_id", r.FeedID))
	}
	return written
}
