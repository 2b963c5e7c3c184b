package feed

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestIsAbsent(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{ErrNotFound, true},
		{ErrPermissionDenied, true},
		{fmt.Errorf("subscribe: %w", ErrNotFound), true},
		{errors.New("connection reset"), false},
		{nil, false},
	}
	for _, tt := range tests {
		if got := IsAbsent(tt.err); got != tt.want {
			t.Errorf("IsAbsent(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestSortMessages(t *testing.T) {
	msgs := []Message{
		{ID: "m3", Timestamp: 300},
		{ID: "m2", Timestamp: 100},
		{ID: "m1", Timestamp: 100},
	}
	SortMessages(msgs)
	want := []string{"m1", "m2", "m3"}
	for i, id := range want {
		if msgs[i].ID != id {
			t.Fatalf("order = %v, want %v", msgs, want)
		}
	}
}

func TestPumpStopsDeliveringAfterClose(t *testing.T) {
	var got [][]Message
	p := NewPump(context.Background(), Handler{
		OnSnapshot: func(msgs []Message) { got = append(got, msgs) },
	})

	if !p.Deliver([]Message{{ID: "m1"}}) {
		t.Fatal("Deliver() before Close = false, want true")
	}
	p.Close()
	if p.Deliver([]Message{{ID: "m2"}}) {
		t.Error("Deliver() after Close = true, want false")
	}
	if len(got) != 1 {
		t.Errorf("handler saw %d snapshots, want 1", len(got))
	}

	select {
	case <-p.Context().Done():
	case <-time.After(time.Second):
		t.Fatal("pump context not cancelled by Close")
	}
}

func TestPumpFailOnce(t *testing.T) {
	var errs []error
	p := NewPump(context.Background(), Handler{
		OnError: func(err error) { errs = append(errs, err) },
	})
	p.Fail(errors.New("first"))
	p.Fail(errors.New("second"))
	if len(errs) != 1 || errs[0].Error() != "first" {
		t.Errorf("errors = %v, want [first]", errs)
	}
	if p.Deliver(nil) {
		t.Error("Deliver() after Fail = true, want false")
	}
}

func TestPumpGoClosesDone(t *testing.T) {
	p := NewPump(context.Background(), Handler{})
	p.Go(func(ctx context.Context) { <-ctx.Done() })
	p.Close()
	select {
	case <-p.Done():
	case <-time.After(time.Second):
		t.Fatal("watch loop did not exit after Close")
	}
}
