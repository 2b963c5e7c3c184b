package room

import "github.com/HornetGeek/petow-frontend-sub000/internal/feed"

// Snapshot is the payload of bus.KindRoomSnapshot.
type Snapshot struct {
	FeedID   string
	Messages []feed.Message
}

// ErrorNotice is the payload of bus.KindRoomError. An empty Message means
// the banner was dismissed.
type ErrorNotice struct {
	FeedID  string
	Message string
}

// Archived is the payload of bus.KindRoomArchived.
type Archived struct {
	FeedID string
	RoomID int64
}

// SendAck is the payload of bus.KindSendAck.
type SendAck struct {
	FeedID      string
	ClientMsgID string
	MessageID   string
	Kind        feed.Kind
}

// SendFailed is the payload of bus.KindSendFailed.
type SendFailed struct {
	FeedID      string
	ClientMsgID string
	Stage       string // "upload" or "write"
	Error       string
}
