// Package room owns the lifecycle of one open chat room: resolving the feed
// id against the REST backend, listening to the feed, initializing feeds that
// do not exist yet, sending messages and archiving.
package room

import (
	"context"
	"errors"

	"github.com/HornetGeek/petow-frontend-sub000/internal/backend"
	"github.com/HornetGeek/petow-frontend-sub000/internal/feed"
)

// User-facing strings. The product UI is Arabic.
const (
	SystemSenderName    = "النظام"
	ChatCreatedText     = "تم إنشاء المحادثة بنجاح"
	UploadFailedText    = "فشل في رفع الصورة"
	ImagePlaceholder    = "صورة"
	LiveUnavailableText = "المحادثة المباشرة غير متاحة حالياً، وسيتم إرسال رسائلك رغم ذلك"
)

var (
	// ErrEmptyFeedID is returned by Resolve for a blank feed id.
	ErrEmptyFeedID = errors.New("feed id is empty")
	// ErrSendInProgress means another send from this session has not finished.
	ErrSendInProgress = errors.New("send already in progress")
	// ErrNotResolved means no room has been resolved yet.
	ErrNotResolved = errors.New("room not resolved")
	// ErrEmptyDraft means there is neither text nor an image to send.
	ErrEmptyDraft = errors.New("nothing to send")
	// ErrRoomChanged means the room was changed or closed while the call
	// was in flight; its result was discarded.
	ErrRoomChanged = errors.New("room changed")
)

// IsNoop reports whether err is a send precondition failure, meaning nothing
// was called.
func IsNoop(err error) bool {
	return errors.Is(err, ErrSendInProgress) || errors.Is(err, ErrNotResolved) || errors.Is(err, ErrEmptyDraft)
}

// UploadError aborts a send before anything is written to the feed.
type UploadError struct {
	Err error
}

func (e *UploadError) Error() string { return UploadFailedText + ": " + e.Err.Error() }

func (e *UploadError) Unwrap() error { return e.Err }

// User is the local user.
type User struct {
	ID   int64
	Name string
}

// Resolved is a room that passed resolution. It is immutable.
type Resolved struct {
	FeedID      string
	Room        backend.Room
	Context     backend.RoomContext
	User        User
	Counterpart backend.Participant
}

// RoomLookup is the part of the REST backend the resolver needs.
type RoomLookup interface {
	RoomByFeedID(ctx context.Context, feedID string) (*backend.Room, error)
	RoomContext(ctx context.Context, roomID int64) (*backend.RoomContext, error)
}

// ImageUploader stores an image out of band and returns its URL.
type ImageUploader interface {
	UploadChatImage(ctx context.Context, img backend.Image) (string, error)
}

// Notifier asks the backend to push a notification to the counterpart.
type Notifier interface {
	SendChatNotification(ctx context.Context, feedID, text string) error
}

// RoomDeactivator marks a room inactive.
type RoomDeactivator interface {
	ArchiveRoom(ctx context.Context, roomID int64) error
}

// Backend is the full REST surface used by a Session.
type Backend interface {
	RoomLookup
	ImageUploader
	Notifier
	RoomDeactivator
}

var _ Backend = (*backend.Client)(nil)

// metaFor builds a fresh metadata record for r. Participants hold only the
// local user unless withCounterpart is set.
func metaFor(r *Resolved, withCounterpart bool) feed.Meta {
	participants := []int64{r.User.ID}
	if withCounterpart && r.Counterpart.ID != 0 {
		participants = append(participants, r.Counterpart.ID)
	}
	return feed.Meta{Participants: participants, Active: true}
}
