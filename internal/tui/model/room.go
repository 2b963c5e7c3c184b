// Package model holds the room view state mirrored from the daemon.
package model

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"

	"github.com/HornetGeek/petow-frontend-sub000/internal/api"
	"github.com/HornetGeek/petow-frontend-sub000/internal/bus"
	"github.com/HornetGeek/petow-frontend-sub000/internal/feed"
)

// RoomClient is the subset of the daemon API the room view uses.
type RoomClient interface {
	Status(ctx context.Context) (*api.StatusInfo, error)
	Open(ctx context.Context, feedID string) (*api.RoomInfo, error)
	Messages(ctx context.Context) (*api.MessageList, error)
	Send(ctx context.Context, req api.SendRequest) (*api.SendReply, error)
	Archive(ctx context.Context) error
	DismissError(ctx context.Context) error
}

var _ RoomClient = (*api.Client)(nil)

// Room caches the open room as reported by the daemon and signals refreshes.
type Room struct {
	mu sync.RWMutex

	client   RoomClient
	info     *api.RoomInfo
	state    string
	messages []feed.Message
	banner   string
	image    string
	sending  bool
	archived bool

	Flash Flash

	refreshCh chan struct{}
}

// NewRoom creates an empty room model backed by c.
func NewRoom(c RoomClient) *Room {
	return &Room{
		client:    c,
		refreshCh: make(chan struct{}, 1),
	}
}

// RefreshCh signals that the view should redraw.
func (r *Room) RefreshCh() <-chan struct{} {
	return r.refreshCh
}

func (r *Room) signalRefresh() {
	select {
	case r.refreshCh <- struct{}{}:
	default:
	}
}

// Open asks the daemon to open feedID, or the room it already serves when
// feedID is empty, then loads the current messages.
func (r *Room) Open(ctx context.Context, feedID string) error {
	st, err := r.client.Status(ctx)
	if err != nil {
		return fmt.Errorf("daemon status: %w", err)
	}
	if feedID == "" {
		feedID = st.FeedID
	}
	if feedID == "" {
		return fmt.Errorf("no room to open")
	}

	info, err := r.client.Open(ctx, feedID)
	if err != nil {
		r.setBanner(ErrorText(err))
		return err
	}
	r.mu.Lock()
	r.info = info
	r.state = info.State
	r.archived = false
	r.mu.Unlock()
	return r.Refresh(ctx)
}

// Refresh reloads state, banner and messages from the daemon.
func (r *Room) Refresh(ctx context.Context) error {
	st, err := r.client.Status(ctx)
	if err != nil {
		return fmt.Errorf("daemon status: %w", err)
	}
	list, err := r.client.Messages(ctx)
	if err != nil {
		return fmt.Errorf("load messages: %w", err)
	}
	r.mu.Lock()
	r.state = st.State
	r.banner = st.Error
	r.sending = st.Sending
	r.messages = list.Messages
	r.mu.Unlock()
	r.signalRefresh()
	return nil
}

// Apply folds one watch event into the model. It reports whether the room
// was archived.
func (r *Room) Apply(evt *api.Event) bool {
	r.mu.Lock()
	if r.info != nil && evt.FeedID != "" && evt.FeedID != r.info.FeedID {
		r.mu.Unlock()
		return false
	}
	archived := false
	switch evt.Kind {
	case bus.KindRoomStatus:
		r.state = evt.To
	case bus.KindRoomSnapshot:
		r.messages = evt.Messages
	case bus.KindRoomError:
		r.banner = evt.Error
	case bus.KindRoomArchived:
		r.archived = true
		r.messages = nil
		archived = true
	case bus.KindSendAck:
		r.Flash.Info("sent")
	case bus.KindSendFailed:
		r.Flash.Warn(fmt.Sprintf("send failed at %s", evt.Stage))
	}
	r.mu.Unlock()
	r.signalRefresh()
	return archived
}

// AttachImage selects a local file to upload with the next send. An empty
// path detaches it.
func (r *Room) AttachImage(path string) error {
	path = strings.TrimSpace(path)
	if path != "" {
		fi, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("attach image: %w", err)
		}
		if fi.IsDir() {
			return fmt.Errorf("attach image: %s is a directory", path)
		}
	}
	r.mu.Lock()
	r.image = path
	r.mu.Unlock()
	r.signalRefresh()
	return nil
}

// Send sends text plus the attached image. The attachment is dropped only
// when the daemon accepted the message.
func (r *Room) Send(ctx context.Context, text string) (*api.SendReply, error) {
	r.mu.Lock()
	if r.sending {
		r.mu.Unlock()
		return nil, fmt.Errorf("a message is already being sent")
	}
	r.sending = true
	imagePath := r.image
	r.mu.Unlock()
	r.signalRefresh()

	defer func() {
		r.mu.Lock()
		r.sending = false
		r.mu.Unlock()
		r.signalRefresh()
	}()

	req := api.SendRequest{Text: text}
	if imagePath != "" {
		img, err := api.LoadImage(imagePath)
		if err != nil {
			return nil, err
		}
		req.Image = img
	}

	reply, err := r.client.Send(ctx, req)
	if err != nil {
		if !isNoop(err) {
			r.setBanner(ErrorText(err))
		}
		return nil, err
	}

	r.mu.Lock()
	r.image = ""
	r.mu.Unlock()
	if !reply.Notified || reply.MetaError != "" {
		r.Flash.Warn("message sent, follow-up updates incomplete")
	}
	return reply, nil
}

// Archive archives the room. The model flips to archived when the daemon's
// event arrives.
func (r *Room) Archive(ctx context.Context) error {
	if err := r.client.Archive(ctx); err != nil {
		r.setBanner(ErrorText(err))
		return err
	}
	return nil
}

// DismissError clears the banner locally and on the daemon.
func (r *Room) DismissError(ctx context.Context) error {
	r.setBanner("")
	return r.client.DismissError(ctx)
}

func (r *Room) setBanner(msg string) {
	r.mu.Lock()
	r.banner = msg
	r.mu.Unlock()
	r.signalRefresh()
}

// Info returns the room details from the last Open.
func (r *Room) Info() *api.RoomInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.info
}

// MyID is the local user's id, or 0 before a room is open.
func (r *Room) MyID() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.info == nil {
		return 0
	}
	return r.info.Me.ID
}

// Messages returns a copy of the displayed messages.
func (r *Room) Messages() []feed.Message {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.messages)
}

func (r *Room) State() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

func (r *Room) Banner() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.banner
}

func (r *Room) Image() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.image
}

func (r *Room) Sending() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sending
}

func (r *Room) Archived() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.archived
}

// isNoop reports whether the daemon refused to start the send at all.
func isNoop(err error) bool {
	switch grpcstatus.Code(err) {
	case codes.Aborted, codes.InvalidArgument, codes.FailedPrecondition:
		return true
	}
	return false
}

// ErrorText is the user-facing text of a daemon error.
func ErrorText(err error) string {
	if s, ok := grpcstatus.FromError(err); ok {
		return s.Message()
	}
	return err.Error()
}
