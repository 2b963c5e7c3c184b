// Package feed defines the contract of the hosted real-time store that holds
// each room's ordered message feed and its metadata record.
package feed

import (
	"context"
	"errors"
	"slices"
	"strings"
)

// Kind classifies a message.
type Kind string

const (
	KindText   Kind = "text"
	KindImage  Kind = "image"
	KindSystem Kind = "system"
)

// SystemSenderID is the sender id of messages not written by a real user.
const SystemSenderID int64 = 0

var (
	// ErrNotFound means the feed or its metadata record does not exist.
	ErrNotFound = errors.New("feed not found")
	// ErrPermissionDenied means the store refused access to the feed.
	ErrPermissionDenied = errors.New("feed permission denied")
)

// IsAbsent reports whether err means the feed has not been created yet.
// Hosted stores answer "permission denied" for collections that do not exist
// under their security rules, so both classes count.
func IsAbsent(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrPermissionDenied)
}

// Message is one immutable entry of a feed. ID and Timestamp are assigned by
// the store on write.
type Message struct {
	ID          string `json:"id"`
	FeedID      string `json:"feed_id"`
	ClientMsgID string `json:"client_msg_id,omitempty"`
	Text        string `json:"text"`
	SenderID    int64  `json:"sender_id"`
	SenderName  string `json:"sender_name"`
	Kind        Kind   `json:"kind"`
	ImageURL    string `json:"image_url,omitempty"`
	Timestamp   int64  `json:"timestamp"` // server time, unix ms
}

// Meta is the denormalized per-feed record caching last-message info.
type Meta struct {
	LastMessage   string
	LastSenderID  int64
	LastMessageAt int64
	CreatedAt     int64
	UpdatedAt     int64
	Participants  []int64
	Active        bool
}

// MetaUpdate carries the last-message fields written after a send. The store
// stamps LastMessageAt and UpdatedAt with its own clock.
type MetaUpdate struct {
	LastMessage  string
	LastSenderID int64
}

// Handler receives subscription output. OnSnapshot gets the complete ordered
// feed on every change; OnError is called at most once, after which the
// subscription delivers nothing more.
type Handler struct {
	OnSnapshot func(msgs []Message)
	OnError    func(err error)
}

// Subscription is a standing feed subscription.
type Subscription interface {
	// Close releases the subscription. No snapshot is delivered after Close
	// returns. Close must not be called from inside a Handler callback.
	Close()
}

// Store is the real-time store holding feeds and metadata records.
type Store interface {
	// Subscribe attaches to feedID ordered by ascending server timestamp.
	// It fails with an absent-class error if the feed does not exist.
	Subscribe(ctx context.Context, feedID string, h Handler) (Subscription, error)
	// AddMessage appends m to feedID and returns the stored copy with ID
	// and Timestamp assigned.
	AddMessage(ctx context.Context, feedID string, m Message) (*Message, error)
	// GetMeta returns the metadata record or ErrNotFound.
	GetMeta(ctx context.Context, feedID string) (*Meta, error)
	// SetMeta creates or replaces the metadata record. Zero CreatedAt and
	// UpdatedAt are stamped with the store clock.
	SetMeta(ctx context.Context, feedID string, meta Meta) error
	// UpdateMeta updates last-message fields or fails with ErrNotFound.
	UpdateMeta(ctx context.Context, feedID string, u MetaUpdate) error
	Close() error
}

// SortMessages orders msgs by server timestamp, then by id for equal stamps.
func SortMessages(msgs []Message) {
	slices.SortStableFunc(msgs, func(a, b Message) int {
		if a.Timestamp != b.Timestamp {
			if a.Timestamp < b.Timestamp {
				return -1
			}
			return 1
		}
		return strings.Compare(a.ID, b.ID)
	})
}
