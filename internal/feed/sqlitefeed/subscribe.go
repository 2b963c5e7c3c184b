package sqlitefeed

import (
	"context"
	"fmt"
	"time"

	"github.com/HornetGeek/petow-frontend-sub000/internal/bus"
	"github.com/HornetGeek/petow-frontend-sub000/internal/feed"
)

// Subscribe implements feed.Store. The subscription outlives ctx; it ends on
// Close or on the first read error.
func (s *Store) Subscribe(ctx context.Context, feedID string, h feed.Handler) (feed.Subscription, error) {
	ok, err := s.Exists(ctx, feedID)
	if err != nil {
		return nil, fmt.Errorf("check feed %q: %w", feedID, err)
	}
	if !ok {
		return nil, fmt.Errorf("subscribe %q: %w", feedID, feed.ErrNotFound)
	}

	events, unsub := s.bus.Subscribe(bus.KindFeedChanged, 64)
	p := feed.NewPump(context.WithoutCancel(ctx), h)
	p.Go(func(ctx context.Context) {
		defer unsub()
		ticker := time.NewTicker(s.poll)
		defer ticker.Stop()

		lastVersion := int64(-1)
		push := func() bool {
			msgs, version, err := s.Snapshot(ctx, feedID)
			if err != nil {
				if ctx.Err() == nil {
					p.Fail(fmt.Errorf("read feed %q: %w", feedID, err))
				}
				return false
			}
			if version == lastVersion {
				return true
			}
			lastVersion = version
			return p.Deliver(msgs)
		}

		if !push() {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case evt := <-events:
				if id, _ := evt.Payload.(string); id != feedID {
					continue
				}
				if !push() {
					return
				}
			case <-ticker.C:
				if !push() {
					return
				}
			}
		}
	})
	return p, nil
}
