package room

import (
	"context"
	"errors"
	"testing"

	"github.com/HornetGeek/petow-frontend-sub000/internal/backend"
	"github.com/HornetGeek/petow-frontend-sub000/internal/status"
)

func TestResolveEmptyFeedIDMakesNoCalls(t *testing.T) {
	tr := &trace{}
	r := NewResolver(newFakeBackend(tr), User{ID: 1}, nil)

	for _, id := range []string{"", "   "} {
		if _, err := r.Resolve(context.Background(), id); !errors.Is(err, ErrEmptyFeedID) {
			t.Errorf("Resolve(%q) = %v, want ErrEmptyFeedID", id, err)
		}
	}
	if calls := tr.list(); len(calls) != 0 {
		t.Errorf("calls = %v, want none", calls)
	}
}

func TestResolveFindsCounterpart(t *testing.T) {
	tr := &trace{}
	r := NewResolver(newFakeBackend(tr), User{ID: 1, Name: "Sara"}, nil)

	res, err := r.Resolve(context.Background(), "room_42")
	if err != nil {
		t.Fatal(err)
	}
	if res.Room.ID != 7 || !res.Room.Active {
		t.Errorf("room = %+v", res.Room)
	}
	if res.Counterpart.ID != 2 || res.Counterpart.Name != "Omar" {
		t.Errorf("counterpart = %+v", res.Counterpart)
	}
	if got := tr.list(); len(got) != 2 || got[0] != "lookup" || got[1] != "context" {
		t.Errorf("calls = %v", got)
	}
}

func TestResolveFailureNeverAttaches(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(*fakeBackend)
		feedID string
		banner string
	}{
		{"room not found", func(*fakeBackend) {}, "room_99", ""},
		{"context fails", func(b *fakeBackend) { b.contextErr = errors.New("connection reset") }, "room_42", ""},
		{"unauthorized", func(b *fakeBackend) { b.lookupErr = backend.ErrUnauthorized }, "room_42", "session invalid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, false)
			tt.setup(h.backend)

			if err := h.session.Open(context.Background(), tt.feedID); err == nil {
				t.Fatal("expected error")
			}
			if got := h.session.State(); got != status.Failed {
				t.Errorf("state = %s, want FAILED", got)
			}
			if n := h.trace.count("subscribe"); n != 0 {
				t.Errorf("subscribe calls = %d, want 0", n)
			}
			if h.session.Resolved() != nil {
				t.Error("Resolved() should be nil after failure")
			}
			if h.session.Error() == "" {
				t.Error("expected a banner")
			}
			if tt.banner != "" && h.session.Error() != tt.banner {
				t.Errorf("banner = %q, want %q", h.session.Error(), tt.banner)
			}
		})
	}
}
