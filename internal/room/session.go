package room

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/HornetGeek/petow-frontend-sub000/internal/backend"
	"github.com/HornetGeek/petow-frontend-sub000/internal/bus"
	"github.com/HornetGeek/petow-frontend-sub000/internal/feed"
	"github.com/HornetGeek/petow-frontend-sub000/internal/logging"
	"github.com/HornetGeek/petow-frontend-sub000/internal/metrics"
	"github.com/HornetGeek/petow-frontend-sub000/internal/status"
)

// Options wires a Session.
type Options struct {
	Backend Backend
	Store   feed.Store
	User    User
	// IncludeCounterpartInMeta lists both participants in metadata records
	// created by this session.
	IncludeCounterpartInMeta bool
	Bus                      *bus.Bus
	Machine                  *status.Machine
	// Navigator, if set, is told after the session has left an archived room.
	Navigator Navigator
	Logger    *zap.Logger
}

// Session is the single open room of a view. Opening another feed replaces
// it; results of calls made for a replaced room are dropped.
type Session struct {
	resolver    *Resolver
	initializer *Initializer
	sender      *Sender
	archiver    *Archiver
	store       feed.Store
	machine     *status.Machine
	bus         *bus.Bus
	nav         Navigator
	logger      *zap.Logger
	composer    Composer

	mu          sync.Mutex
	gen         uint64 // bumped when the room changes or closes
	attempt     uint64 // bumped on every subscribe
	ctx         context.Context
	cancel      context.CancelFunc
	resolved    *Resolved
	sub         feed.Subscription
	messages    []feed.Message
	banner      string
	initialized bool
}

// NewSession builds a session and its components.
func NewSession(o Options) *Session {
	logger := logging.OrNop(o.Logger)
	machine := o.Machine
	if machine == nil {
		machine = status.NewMachine(o.Bus)
	}
	s := &Session{
		resolver:    NewResolver(o.Backend, o.User, logger),
		initializer: NewInitializer(o.Store, o.IncludeCounterpartInMeta, logger),
		sender:      NewSender(o.Backend, o.Backend, o.Store, o.IncludeCounterpartInMeta, o.Bus, logger),
		store:       o.Store,
		machine:     machine,
		bus:         o.Bus,
		nav:         o.Navigator,
		logger:      logger,
	}
	s.archiver = NewArchiver(o.Backend, NavigatorFunc(s.leaveRoom), logger)
	return s
}

// Open resolves feedID and attaches the listener. Any previously open room
// is released first. Resolution errors are returned and leave the session
// FAILED; listener problems are handled in the background.
func (s *Session) Open(ctx context.Context, feedID string) error {
	s.mu.Lock()
	if cur := s.machine.Current(); cur != status.Unattached && !cur.IsTerminal() {
		s.transitionLocked(s.machine.FeedID(), status.Closed)
	}
	old := s.resetLocked()
	s.gen++
	g := s.gen
	s.ctx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	s.transitionLocked(feedID, status.Resolving)
	s.mu.Unlock()

	if old != nil {
		old.Close()
	}

	r, err := s.resolver.Resolve(ctx, feedID)

	s.mu.Lock()
	if s.gen != g {
		s.mu.Unlock()
		return ErrRoomChanged
	}
	if err != nil {
		s.transitionLocked(feedID, status.Failed)
		s.setBannerLocked(feedID, err)
		s.mu.Unlock()
		return err
	}
	s.resolved = r
	s.transitionLocked(r.FeedID, status.Attaching)
	s.mu.Unlock()

	s.attach(g, r)
	return nil
}

// attach subscribes to the resolved feed. Callbacks from an older attempt or
// an older room are ignored.
func (s *Session) attach(g uint64, r *Resolved) {
	s.mu.Lock()
	if s.gen != g {
		s.mu.Unlock()
		return
	}
	s.attempt++
	a := s.attempt
	old := s.sub
	s.sub = nil
	ctx := s.ctx
	s.mu.Unlock()

	if old != nil {
		old.Close()
	}

	sub, err := s.store.Subscribe(ctx, r.FeedID, feed.Handler{
		OnSnapshot: func(msgs []feed.Message) { s.applySnapshot(g, a, r.FeedID, msgs) },
		// Handlers must not close their own subscription.
		OnError: func(err error) { go s.streamFailed(g, a, err) },
	})
	if err != nil {
		s.streamFailed(g, a, err)
		return
	}

	s.mu.Lock()
	if s.gen != g || s.attempt != a {
		s.mu.Unlock()
		sub.Close()
		return
	}
	s.sub = sub
	s.mu.Unlock()
}

func (s *Session) applySnapshot(g, a uint64, feedID string, msgs []feed.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != g || s.attempt != a {
		return
	}
	s.messages = msgs
	if s.machine.Current() == status.Attaching {
		s.transitionLocked(feedID, status.Streaming)
	}
	metrics.SnapshotsDelivered.Inc()
	s.bus.Publish(bus.NewEvent(bus.KindRoomSnapshot, Snapshot{FeedID: feedID, Messages: msgs}))
}

// streamFailed handles attach and stream errors. The first absent-feed error
// runs the initializer and re-attaches; anything else shows the
// unavailable notice.
func (s *Session) streamFailed(g, a uint64, err error) {
	s.mu.Lock()
	if s.gen != g || s.attempt != a || s.resolved == nil {
		s.mu.Unlock()
		return
	}
	r := s.resolved
	absent := feed.IsAbsent(err)
	class := "other"
	if absent {
		class = "absent"
	}
	metrics.SubscriptionErrors.WithLabelValues(class).Inc()
	s.logger.Warn("feed subscription failed", zap.String("feed_id", r.FeedID), zap.Bool("absent", absent), zap.Error(err))

	s.transitionLocked(r.FeedID, status.Degraded)
	initialize := absent && !s.initialized
	if !initialize {
		s.showUnavailableLocked(r.FeedID)
		s.mu.Unlock()
		return
	}
	s.initialized = true
	ctx := s.ctx
	s.mu.Unlock()

	ok := s.initializer.Initialize(ctx, r)

	s.mu.Lock()
	if s.gen != g {
		s.mu.Unlock()
		return
	}
	if !ok {
		s.showUnavailableLocked(r.FeedID)
		s.mu.Unlock()
		return
	}
	s.transitionLocked(r.FeedID, status.Attaching)
	s.mu.Unlock()

	s.attach(g, r)
}

func (s *Session) showUnavailableLocked(feedID string) {
	s.messages = []feed.Message{{
		ID:         "local-unavailable",
		FeedID:     feedID,
		Text:       LiveUnavailableText,
		SenderID:   feed.SystemSenderID,
		SenderName: SystemSenderName,
		Kind:       feed.KindSystem,
		Timestamp:  time.Now().UnixMilli(),
	}}
	s.bus.Publish(bus.NewEvent(bus.KindRoomSnapshot, Snapshot{FeedID: feedID, Messages: s.messages}))
}

// Send sends the composer content. The composer is cleared on success and
// kept on failure.
func (s *Session) Send(ctx context.Context) (*SendResult, error) {
	return s.send(ctx, nil)
}

// SendDraft replaces the composer content with d and sends it. The send
// latch is taken before the composer is touched, so a caller that loses the
// race gets ErrSendInProgress and leaves the in-flight draft alone.
func (s *Session) SendDraft(ctx context.Context, d Draft) (*SendResult, error) {
	return s.send(ctx, &d)
}

func (s *Session) send(ctx context.Context, d *Draft) (*SendResult, error) {
	if !s.sender.begin() {
		return nil, ErrSendInProgress
	}
	defer s.sender.end()

	s.mu.Lock()
	g := s.gen
	r := s.resolved
	s.mu.Unlock()

	if d != nil {
		s.composer.SetText(d.Text)
		s.composer.SetImage(d.Image)
	}

	res, err := s.sender.deliver(ctx, r, s.composer.Draft())
	if IsNoop(err) {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != g {
		return res, err
	}
	if err != nil {
		s.setBannerLocked(r.FeedID, err)
		return nil, err
	}
	s.composer.Clear()
	return res, nil
}

// Archive deactivates the open room and leaves it. On failure the room
// stays as it was.
func (s *Session) Archive(ctx context.Context) error {
	s.mu.Lock()
	g := s.gen
	r := s.resolved
	s.mu.Unlock()
	if r == nil {
		return ErrNotResolved
	}

	if err := s.archiver.Archive(ctx, r); err != nil {
		s.mu.Lock()
		if s.gen == g {
			s.setBannerLocked(r.FeedID, err)
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Session) leaveRoom(feedID string) {
	s.mu.Lock()
	if s.resolved == nil || s.resolved.FeedID != feedID {
		s.mu.Unlock()
		return
	}
	roomID := s.resolved.Room.ID
	sub := s.resetLocked()
	s.gen++
	s.transitionLocked(feedID, status.Archived)
	s.mu.Unlock()

	if sub != nil {
		sub.Close()
	}
	s.bus.Publish(bus.NewEvent(bus.KindRoomArchived, Archived{FeedID: feedID, RoomID: roomID}))
	if s.nav != nil {
		s.nav.LeaveRoom(feedID)
	}
}

// Close releases the open room, if any.
func (s *Session) Close() {
	s.mu.Lock()
	sub := s.resetLocked()
	s.gen++
	if s.machine.Current() != status.Closed {
		s.transitionLocked(s.machine.FeedID(), status.Closed)
	}
	s.mu.Unlock()

	if sub != nil {
		sub.Close()
	}
}

// resetLocked drops all per-room state and returns the subscription to close.
func (s *Session) resetLocked() feed.Subscription {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	sub := s.sub
	s.sub = nil
	s.resolved = nil
	s.messages = nil
	s.banner = ""
	s.initialized = false
	s.composer.Clear()
	return sub
}

func (s *Session) transitionLocked(feedID string, to status.State) {
	if err := s.machine.Transition(feedID, to); err != nil {
		s.logger.Debug("state transition skipped", zap.String("feed_id", feedID), zap.Error(err))
	}
}

func (s *Session) setBannerLocked(feedID string, err error) {
	s.banner = UserMessage(err)
	s.bus.Publish(bus.NewEvent(bus.KindRoomError, ErrorNotice{FeedID: feedID, Message: s.banner}))
}

// UserMessage is the banner text shown for err.
func UserMessage(err error) string {
	var uerr *UploadError
	switch {
	case errors.As(err, &uerr):
		return UploadFailedText
	case errors.Is(err, backend.ErrUnauthorized):
		return backend.ErrUnauthorized.Error()
	default:
		return err.Error()
	}
}

// Messages returns the current feed snapshot.
func (s *Session) Messages() []feed.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.messages)
}

// State returns the listener state.
func (s *Session) State() status.State { return s.machine.Current() }

// FeedID returns the feed of the current or last room.
func (s *Session) FeedID() string { return s.machine.FeedID() }

// Resolved returns the open room, or nil.
func (s *Session) Resolved() *Resolved {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolved
}

// Composer returns the input of the open room.
func (s *Session) Composer() *Composer { return &s.composer }

// Sending reports whether a send is in flight.
func (s *Session) Sending() bool { return s.sender.Sending() }

// Error returns the banner text, empty when none is shown.
func (s *Session) Error() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.banner
}

// DismissError hides the banner.
func (s *Session) DismissError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.banner == "" {
		return
	}
	s.banner = ""
	s.bus.Publish(bus.NewEvent(bus.KindRoomError, ErrorNotice{FeedID: s.machine.FeedID()}))
}
