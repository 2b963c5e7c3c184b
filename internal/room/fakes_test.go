package room

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/HornetGeek/petow-frontend-sub000/internal/backend"
	"github.com/HornetGeek/petow-frontend-sub000/internal/bus"
	"github.com/HornetGeek/petow-frontend-sub000/internal/feed"
	"github.com/HornetGeek/petow-frontend-sub000/internal/status"
)

// trace records calls across fakes so tests can check ordering.
type trace struct {
	mu    sync.Mutex
	calls []string
}

func (t *trace) add(call string) {
	t.mu.Lock()
	t.calls = append(t.calls, call)
	t.mu.Unlock()
}

func (t *trace) list() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.calls...)
}

func (t *trace) count(call string) int {
	n := 0
	for _, c := range t.list() {
		if c == call {
			n++
		}
	}
	return n
}

type fakeBackend struct {
	trace *trace

	mu            sync.Mutex
	rooms         map[string]backend.Room
	contexts      map[int64]backend.RoomContext
	lookupErr     error
	contextErr    error
	uploadErr     error
	notifyErr     error
	archiveErr    error
	uploadGate    chan struct{}
	lookupGates   map[string]chan struct{}
	notifications []string
}

func newFakeBackend(tr *trace) *fakeBackend {
	return &fakeBackend{
		trace: tr,
		rooms: map[string]backend.Room{
			"room_42": {ID: 7, FeedID: "room_42", Active: true},
			"room_43": {ID: 8, FeedID: "room_43", Active: true},
		},
		contexts: map[int64]backend.RoomContext{
			7: {RoomID: 7, Participants: []backend.Participant{{ID: 1, Name: "Sara"}, {ID: 2, Name: "Omar"}}},
			8: {RoomID: 8, Participants: []backend.Participant{{ID: 1, Name: "Sara"}, {ID: 3, Name: "Laila"}}},
		},
		lookupGates: map[string]chan struct{}{},
	}
}

func (f *fakeBackend) RoomByFeedID(_ context.Context, feedID string) (*backend.Room, error) {
	f.trace.add("lookup")
	f.mu.Lock()
	gate := f.lookupGates[feedID]
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	r, ok := f.rooms[feedID]
	if !ok {
		return nil, fmt.Errorf("room by feed: %w", backend.ErrNotFound)
	}
	return &r, nil
}

func (f *fakeBackend) RoomContext(_ context.Context, roomID int64) (*backend.RoomContext, error) {
	f.trace.add("context")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.contextErr != nil {
		return nil, f.contextErr
	}
	c := f.contexts[roomID]
	return &c, nil
}

func (f *fakeBackend) UploadChatImage(_ context.Context, img backend.Image) (string, error) {
	f.trace.add("upload")
	if f.uploadGate != nil {
		<-f.uploadGate
	}
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	return "https://cdn.example/" + img.Name, nil
}

func (f *fakeBackend) SendChatNotification(_ context.Context, feedID, text string) error {
	f.trace.add("notify")
	f.mu.Lock()
	f.notifications = append(f.notifications, text)
	f.mu.Unlock()
	return f.notifyErr
}

func (f *fakeBackend) ArchiveRoom(_ context.Context, roomID int64) error {
	f.trace.add("archive")
	return f.archiveErr
}

type fakeSub struct {
	mu     sync.Mutex
	closed bool
}

func (s *fakeSub) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *fakeSub) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type attached struct {
	h   feed.Handler
	sub *fakeSub
}

// fakeStore is an in-memory feed.Store whose subscriptions are driven by the
// test through push and fail.
type fakeStore struct {
	trace *trace

	mu            sync.Mutex
	msgs          map[string][]feed.Message
	meta          map[string]feed.Meta
	subscribeErrs []error
	addErr        error
	updateErr     error
	setErr        error
	subs          map[string]attached
	nextID        int
	clock         int64
}

func newFakeStore(tr *trace) *fakeStore {
	return &fakeStore{
		trace: tr,
		msgs:  map[string][]feed.Message{},
		meta:  map[string]feed.Meta{},
		subs:  map[string]attached{},
		clock: 1000,
	}
}

func (s *fakeStore) Subscribe(_ context.Context, feedID string, h feed.Handler) (feed.Subscription, error) {
	s.trace.add("subscribe")
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.subscribeErrs) > 0 {
		err := s.subscribeErrs[0]
		s.subscribeErrs = s.subscribeErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	sub := &fakeSub{}
	s.subs[feedID] = attached{h: h, sub: sub}
	return sub, nil
}

// push delivers msgs to the live subscription of feedID, if any.
func (s *fakeStore) push(feedID string, msgs []feed.Message) bool {
	s.mu.Lock()
	a, ok := s.subs[feedID]
	s.mu.Unlock()
	if !ok || a.sub.isClosed() {
		return false
	}
	a.h.OnSnapshot(msgs)
	return true
}

func (s *fakeStore) fail(feedID string, err error) {
	s.mu.Lock()
	a := s.subs[feedID]
	s.mu.Unlock()
	a.h.OnError(err)
}

func (s *fakeStore) subscription(feedID string) *fakeSub {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subs[feedID].sub
}

func (s *fakeStore) AddMessage(_ context.Context, feedID string, m feed.Message) (*feed.Message, error) {
	s.trace.add("write")
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.addErr != nil {
		return nil, s.addErr
	}
	s.nextID++
	s.clock += 10
	m.ID = fmt.Sprintf("m%d", s.nextID)
	m.FeedID = feedID
	m.Timestamp = s.clock
	s.msgs[feedID] = append(s.msgs[feedID], m)
	return &m, nil
}

func (s *fakeStore) written(feedID string) []feed.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]feed.Message(nil), s.msgs[feedID]...)
}

func (s *fakeStore) GetMeta(_ context.Context, feedID string) (*feed.Meta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meta[feedID]
	if !ok {
		return nil, feed.ErrNotFound
	}
	return &m, nil
}

func (s *fakeStore) SetMeta(_ context.Context, feedID string, m feed.Meta) error {
	s.trace.add("set_meta")
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	s.meta[feedID] = m
	return nil
}

func (s *fakeStore) UpdateMeta(_ context.Context, feedID string, u feed.MetaUpdate) error {
	s.trace.add("update_meta")
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	m, ok := s.meta[feedID]
	if !ok {
		return feed.ErrNotFound
	}
	m.LastMessage = u.LastMessage
	m.LastSenderID = u.LastSenderID
	m.LastMessageAt = s.clock
	s.meta[feedID] = m
	return nil
}

func (s *fakeStore) Close() error { return nil }

type harness struct {
	trace   *trace
	backend *fakeBackend
	store   *fakeStore
	bus     *bus.Bus
	machine *status.Machine
	left    []string
	session *Session
}

func newHarness(t *testing.T, withCounterpart bool) *harness {
	t.Helper()
	tr := &trace{}
	h := &harness{
		trace:   tr,
		backend: newFakeBackend(tr),
		store:   newFakeStore(tr),
		bus:     bus.New(),
	}
	h.machine = status.NewMachine(h.bus)
	h.session = NewSession(Options{
		Backend:                  h.backend,
		Store:                    h.store,
		User:                     User{ID: 1, Name: "Sara"},
		IncludeCounterpartInMeta: withCounterpart,
		Bus:                      h.bus,
		Machine:                  h.machine,
		Navigator:                NavigatorFunc(func(feedID string) { h.left = append(h.left, feedID) }),
	})
	t.Cleanup(h.session.Close)
	return h
}

func waitFor(t *testing.T, desc string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", desc)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
