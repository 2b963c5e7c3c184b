package bus

import "time"

// Event kinds published by the room lifecycle and the feed stores.
const (
	KindRoomStatus   = "room.status_changed"
	KindRoomSnapshot = "room.snapshot"
	KindRoomError    = "room.error"
	KindRoomArchived = "room.archived"
	KindSendAck      = "message.send_ack"
	KindSendFailed   = "message.send_failed"
	KindFeedChanged  = "feed.changed"
)

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// NewEvent stamps an event of the given kind with the current time.
func NewEvent(kind string, payload any) Event {
	return Event{Kind: kind, Timestamp: time.Now(), Payload: payload}
}
