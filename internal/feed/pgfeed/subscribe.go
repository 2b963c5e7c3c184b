package pgfeed

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/HornetGeek/petow-frontend-sub000/internal/feed"
)

// Subscribe implements feed.Store. LISTEN is issued before the initial
// snapshot is read so no write in between is missed.
func (s *Store) Subscribe(ctx context.Context, feedID string, h feed.Handler) (feed.Subscription, error) {
	ok, err := s.Exists(ctx, feedID)
	if err != nil {
		return nil, fmt.Errorf("check feed %q: %w", feedID, err)
	}
	if !ok {
		return nil, fmt.Errorf("subscribe %q: %w", feedID, feed.ErrNotFound)
	}

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire listener: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{notifyChannel}.Sanitize()); err != nil {
		conn.Release()
		return nil, fmt.Errorf("listen: %w", classify(err))
	}

	p := feed.NewPump(context.WithoutCancel(ctx), h)
	p.Go(func(ctx context.Context) {
		// The connection still holds LISTEN state, so it goes back closed.
		defer func() {
			_ = conn.Conn().Close(context.Background())
			conn.Release()
		}()

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
		for {
			n, err := conn.Conn().WaitForNotification(ctx)
			if err != nil {
				if ctx.Err() == nil {
					p.Fail(fmt.Errorf("feed %q: %w", feedID, classify(err)))
				}
				return
			}
			if n.Payload != feedID {
				continue
			}
			if !push() {
				return
			}
		}
	})
	return p, nil
}
