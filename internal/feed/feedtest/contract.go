// Package feedtest runs the behaviour every feed.Store backend must share.
package feedtest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/HornetGeek/petow-frontend-sub000/internal/feed"
)

// Wait bounds how long a case waits for a snapshot.
var Wait = 5 * time.Second

// Run exercises store against the feed.Store contract. Feed ids are random
// so the cases can share a long-lived server.
func Run(t *testing.T, store feed.Store) {
	t.Helper()
	cases := []struct {
		name string
		fn   func(t *testing.T, s feed.Store)
	}{
		{"AddMessageAssignsIDAndTimestamp", testAddMessage},
		{"TimestampsNeverGoBackwards", testOrdering},
		{"FeedsAreSeparate", testFeedsAreSeparate},
		{"MetaLifecycle", testMetaLifecycle},
		{"SetMetaKeepsExplicitFields", testSetMetaKeepsFields},
		{"SubscribeMissingFeedIsAbsent", testSubscribeMissing},
		{"SubscribeDeliversSnapshots", testSubscribeDelivers},
		{"SubscribeSeesMetaOnlyFeed", testMetaOnlyFeed},
		{"NoSnapshotAfterClose", testNoSnapshotAfterClose},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) { c.fn(t, store) })
	}
}

// FeedID returns a feed id unique to this run.
func FeedID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}

func add(t *testing.T, s feed.Store, feedID, text string) *feed.Message {
	t.Helper()
	m, err := s.AddMessage(context.Background(), feedID, feed.Message{Text: text, SenderID: 5, SenderName: "Sara", Kind: feed.KindText})
	if err != nil {
		t.Fatalf("AddMessage(%q): %v", text, err)
	}
	return m
}

func testAddMessage(t *testing.T, s feed.Store) {
	id := FeedID("add")
	got := add(t, s, id, "hi")
	if got.ID == "" {
		t.Error("ID not assigned")
	}
	if got.FeedID != id {
		t.Errorf("FeedID = %q, want %q", got.FeedID, id)
	}
	if got.Timestamp <= 0 {
		t.Errorf("Timestamp = %d, want server time", got.Timestamp)
	}
	if got.Text != "hi" || got.SenderID != 5 || got.Kind != feed.KindText {
		t.Errorf("stored = %+v", got)
	}
}

func testOrdering(t *testing.T, s feed.Store) {
	id := FeedID("order")
	var last int64
	for _, text := range []string{"m1", "m2", "m3", "m4", "m5"} {
		m := add(t, s, id, text)
		if m.Timestamp < last {
			t.Errorf("%s timestamp %d before previous %d", text, m.Timestamp, last)
		}
		last = m.Timestamp
	}

	rec := newRecorder()
	sub, err := s.Subscribe(context.Background(), id, rec.handler())
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()
	msgs := rec.wait(t)
	if len(msgs) != 5 {
		t.Fatalf("len = %d, want 5", len(msgs))
	}
	for i, want := range []string{"m1", "m2", "m3", "m4", "m5"} {
		if msgs[i].Text != want {
			t.Errorf("msgs[%d] = %q, want %q", i, msgs[i].Text, want)
		}
	}
}

func testFeedsAreSeparate(t *testing.T, s feed.Store) {
	a, b := FeedID("a"), FeedID("b")
	add(t, s, a, "a1")
	add(t, s, b, "b1")
	add(t, s, a, "a2")

	rec := newRecorder()
	sub, err := s.Subscribe(context.Background(), a, rec.handler())
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()
	if got := rec.wait(t); len(got) != 2 {
		t.Errorf("len = %d, want 2: %+v", len(got), got)
	}
}

func testMetaLifecycle(t *testing.T, s feed.Store) {
	ctx := context.Background()
	id := FeedID("meta")

	if _, err := s.GetMeta(ctx, id); !errors.Is(err, feed.ErrNotFound) {
		t.Fatalf("GetMeta on missing = %v, want ErrNotFound", err)
	}
	if err := s.UpdateMeta(ctx, id, feed.MetaUpdate{LastMessage: "x"}); !errors.Is(err, feed.ErrNotFound) {
		t.Fatalf("UpdateMeta on missing = %v, want ErrNotFound", err)
	}
	if _, err := s.GetMeta(ctx, id); !errors.Is(err, feed.ErrNotFound) {
		t.Fatalf("UpdateMeta created a record: %v", err)
	}

	if err := s.SetMeta(ctx, id, feed.Meta{Participants: []int64{5, 9}, Active: true}); err != nil {
		t.Fatal(err)
	}
	m, err := s.GetMeta(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if m.CreatedAt <= 0 || m.UpdatedAt <= 0 {
		t.Errorf("stamps = %d/%d, want store clock", m.CreatedAt, m.UpdatedAt)
	}
	if len(m.Participants) != 2 || m.Participants[0] != 5 || m.Participants[1] != 9 || !m.Active {
		t.Errorf("meta = %+v", m)
	}

	if err := s.UpdateMeta(ctx, id, feed.MetaUpdate{LastMessage: "hello", LastSenderID: 5}); err != nil {
		t.Fatal(err)
	}
	after, err := s.GetMeta(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if after.LastMessage != "hello" || after.LastSenderID != 5 || after.LastMessageAt <= 0 {
		t.Errorf("after update = %+v", after)
	}
	if after.UpdatedAt < m.UpdatedAt {
		t.Errorf("UpdatedAt went back from %d to %d", m.UpdatedAt, after.UpdatedAt)
	}
	if len(after.Participants) != 2 || !after.Active {
		t.Errorf("update touched participants: %+v", after)
	}
}

func testSetMetaKeepsFields(t *testing.T, s feed.Store) {
	ctx := context.Background()
	id := FeedID("replace")
	in := feed.Meta{
		LastMessage:   "earlier",
		LastSenderID:  9,
		LastMessageAt: 1700,
		CreatedAt:     1000,
		Participants:  []int64{5, 9},
		Active:        true,
	}
	if err := s.SetMeta(ctx, id, in); err != nil {
		t.Fatal(err)
	}
	m, err := s.GetMeta(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if m.LastMessage != "earlier" || m.LastSenderID != 9 || m.LastMessageAt != 1700 || m.CreatedAt != 1000 {
		t.Errorf("meta = %+v", m)
	}
	if m.UpdatedAt <= 0 {
		t.Errorf("UpdatedAt = %d, want store clock", m.UpdatedAt)
	}

	if err := s.SetMeta(ctx, id, feed.Meta{Active: false}); err != nil {
		t.Fatal(err)
	}
	m, err = s.GetMeta(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if m.LastMessage != "" || m.Active || len(m.Participants) != 0 {
		t.Errorf("SetMeta did not replace the record: %+v", m)
	}
}

func testSubscribeMissing(t *testing.T, s feed.Store) {
	_, err := s.Subscribe(context.Background(), FeedID("nope"), feed.Handler{})
	if !feed.IsAbsent(err) {
		t.Fatalf("err = %v, want absent-class error", err)
	}
}

func testSubscribeDelivers(t *testing.T, s feed.Store) {
	id := FeedID("sub")
	add(t, s, id, "m1")

	rec := newRecorder()
	sub, err := s.Subscribe(context.Background(), id, rec.handler())
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()

	if got := rec.wait(t); len(got) != 1 || got[0].Text != "m1" {
		t.Fatalf("initial snapshot = %+v", got)
	}
	add(t, s, id, "m2")
	got := rec.waitFor(t, func(msgs []feed.Message) bool { return len(msgs) == 2 })
	if got[1].Text != "m2" {
		t.Fatalf("second snapshot = %+v", got)
	}
}

func testMetaOnlyFeed(t *testing.T, s feed.Store) {
	ctx := context.Background()
	id := FeedID("metaonly")
	if err := s.SetMeta(ctx, id, feed.Meta{Active: true}); err != nil {
		t.Fatal(err)
	}

	rec := newRecorder()
	sub, err := s.Subscribe(ctx, id, rec.handler())
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()
	if got := rec.wait(t); len(got) != 0 {
		t.Errorf("snapshot = %+v, want empty", got)
	}
}

func testNoSnapshotAfterClose(t *testing.T, s feed.Store) {
	id := FeedID("closed")
	add(t, s, id, "m1")

	rec := newRecorder()
	sub, err := s.Subscribe(context.Background(), id, rec.handler())
	if err != nil {
		t.Fatal(err)
	}
	rec.wait(t)
	sub.Close()
	rec.drain()

	add(t, s, id, "m2")
	select {
	case <-rec.ch:
		t.Fatal("snapshot delivered after Close")
	case <-time.After(200 * time.Millisecond):
	}
}

type recorder struct {
	mu    sync.Mutex
	snaps [][]feed.Message
	ch    chan struct{}
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan struct{}, 64)}
}

func (r *recorder) handler() feed.Handler {
	return feed.Handler{OnSnapshot: func(msgs []feed.Message) {
		r.mu.Lock()
		r.snaps = append(r.snaps, msgs)
		r.mu.Unlock()
		select {
		case r.ch <- struct{}{}:
		default:
		}
	}}
}

func (r *recorder) wait(t *testing.T) []feed.Message {
	t.Helper()
	return r.waitFor(t, func([]feed.Message) bool { return true })
}

// waitFor blocks until a snapshot satisfying ok arrives. Backends may
// coalesce or repeat notifications, so earlier snapshots are skipped.
func (r *recorder) waitFor(t *testing.T, ok func([]feed.Message) bool) []feed.Message {
	t.Helper()
	deadline := time.After(Wait)
	for {
		select {
		case <-r.ch:
		case <-deadline:
			t.Fatal("timed out waiting for snapshot")
		}
		r.mu.Lock()
		last := r.snaps[len(r.snaps)-1]
		r.mu.Unlock()
		if ok(last) {
			return last
		}
	}
}

func (r *recorder) drain() {
	for {
		select {
		case <-r.ch:
		default:
			return
		}
	}
}
