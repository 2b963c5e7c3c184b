package redisfeed

import (
	"context"
	"fmt"

	"github.com/HornetGeek/petow-frontend-sub000/internal/feed"
)

// Subscribe implements feed.Store. The pub/sub subscription is confirmed
// before the initial snapshot is read so no write in between is missed.
func (s *Store) Subscribe(ctx context.Context, feedID string, h feed.Handler) (feed.Subscription, error) {
	ok, err := s.Exists(ctx, feedID)
	if err != nil {
		return nil, fmt.Errorf("check feed %q: %w", feedID, err)
	}
	if !ok {
		return nil, fmt.Errorf("subscribe %q: %w", feedID, feed.ErrNotFound)
	}

	ps := s.client.Subscribe(ctx, changedChannel(feedID))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %q: %w", feedID, classify(err))
	}

	p := feed.NewPump(context.WithoutCancel(ctx), h)
	p.Go(func(ctx context.Context) {
		defer func() { _ = ps.Close() }()

		push := func() bool {
			msgs, err := s.Snapshot(ctx, feedID)
			if err != nil {
				if ctx.Err() == nil {
					p.Fail(fmt.Errorf("read feed %q: %w", feedID, err))
				}
				return false
			}
			return p.Deliver(msgs)
		}

		if !push() {
			return
		}
		ch := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-ch:
				if !ok {
					if ctx.Err() == nil {
						p.Fail(fmt.Errorf("feed %q: subscription closed", feedID))
					}
					return
				}
				if !push() {
					return
				}
			}
		}
	})
	return p, nil
}
