package room

import (
	"context"
	"errors"
	"testing"

	"github.com/HornetGeek/petow-frontend-sub000/internal/backend"
	"github.com/HornetGeek/petow-frontend-sub000/internal/feed"
)

func initResolved() *Resolved {
	return &Resolved{
		FeedID:      "room_42",
		User:        User{ID: 1, Name: "Sara"},
		Counterpart: backend.Participant{ID: 2, Name: "Omar"},
	}
}

func TestInitializeCreatesFreshMeta(t *testing.T) {
	store := newFakeStore(&trace{})
	in := NewInitializer(store, true, nil)

	if !in.Initialize(context.Background(), initResolved()) {
		t.Fatal("system message not written")
	}
	msgs := store.written("room_42")
	if len(msgs) != 1 || msgs[0].Kind != feed.KindSystem || msgs[0].SenderID != feed.SystemSenderID {
		t.Fatalf("written = %+v", msgs)
	}
	m, err := store.GetMeta(context.Background(), "room_42")
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Participants) != 2 || !m.Active || m.LastMessage != "" {
		t.Errorf("meta = %+v", m)
	}
}

func TestInitializeKeepsExistingLastMessage(t *testing.T) {
	store := newFakeStore(&trace{})
	store.meta["room_42"] = feed.Meta{
		LastMessage:   "are you still there?",
		LastSenderID:  2,
		LastMessageAt: 900,
		CreatedAt:     500,
		UpdatedAt:     900,
		Participants:  []int64{2},
		Active:        false,
	}
	in := NewInitializer(store, false, nil)

	in.Initialize(context.Background(), initResolved())

	m, err := store.GetMeta(context.Background(), "room_42")
	if err != nil {
		t.Fatal(err)
	}
	if m.LastMessage != "are you still there?" || m.LastSenderID != 2 || m.LastMessageAt != 900 {
		t.Errorf("last-message fields lost: %+v", m)
	}
	if m.CreatedAt != 500 {
		t.Errorf("CreatedAt = %d, want 500", m.CreatedAt)
	}
	if len(m.Participants) != 1 || m.Participants[0] != 1 || !m.Active {
		t.Errorf("participants/active not rewritten: %+v", m)
	}
}

func TestInitializeWritesMetaWhenMessageFails(t *testing.T) {
	store := newFakeStore(&trace{})
	store.addErr = errors.New("quota exceeded")
	in := NewInitializer(store, false, nil)

	if in.Initialize(context.Background(), initResolved()) {
		t.Error("reported written after AddMessage failed")
	}
	if _, err := store.GetMeta(context.Background(), "room_42"); err != nil {
		t.Errorf("meta not created: %v", err)
	}
}
