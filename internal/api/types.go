package api

import (
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/HornetGeek/petow-frontend-sub000/internal/feed"
)

// StatusInfo is the Status reply.
type StatusInfo struct {
	Profile      string `json:"profile"`
	State        string `json:"state"`
	FeedID       string `json:"feed_id,omitempty"`
	RoomID       int64  `json:"room_id,omitempty"`
	MessageCount int    `json:"message_count"`
	Sending      bool   `json:"sending"`
	Error        string `json:"error,omitempty"`
	DraftText    string `json:"draft_text,omitempty"`
	UptimeMs     int64  `json:"uptime_ms"`
}

// OpenRequest is the Open request.
type OpenRequest struct {
	FeedID string `json:"feed_id"`
}

// Participant is one side of a room as seen by clients.
type Participant struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// RoomInfo is the Open reply.
type RoomInfo struct {
	FeedID        string      `json:"feed_id"`
	RoomID        int64       `json:"room_id"`
	Active        bool        `json:"active"`
	State         string      `json:"state"`
	Me            Participant `json:"me"`
	Counterpart   Participant `json:"counterpart"`
	PetName       string      `json:"pet_name,omitempty"`
	RequestKind   string      `json:"request_kind,omitempty"`
	RequestStatus string      `json:"request_status,omitempty"`
}

// MessageList is the Messages reply.
type MessageList struct {
	FeedID   string         `json:"feed_id"`
	Messages []feed.Message `json:"messages"`
}

// ImageUpload is an image attached to a SendRequest.
type ImageUpload struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

// LoadImage reads a local file into an ImageUpload, guessing the content
// type from its extension.
func LoadImage(path string) (*ImageUpload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if ct == "" {
		ct = "application/octet-stream"
	}
	return &ImageUpload{Name: filepath.Base(path), ContentType: ct, Data: data}, nil
}

// SendRequest is the Send request.
type SendRequest struct {
	Text  string       `json:"text"`
	Image *ImageUpload `json:"image,omitempty"`
}

// SendReply is the Send reply.
type SendReply struct {
	Message     feed.Message `json:"message"`
	Notified    bool         `json:"notified"`
	NotifyError string       `json:"notify_error,omitempty"`
	MetaUpdated bool         `json:"meta_updated"`
	MetaCreated bool         `json:"meta_created"`
	MetaError   string       `json:"meta_error,omitempty"`
}

// Event is one Watch stream item.
type Event struct {
	EventID          string         `json:"event_id"`
	Profile          string         `json:"profile"`
	Kind             string         `json:"kind"`
	OccurredAtUnixMs int64          `json:"occurred_at_unix_ms"`
	FeedID           string         `json:"feed_id,omitempty"`
	From             string         `json:"from,omitempty"`
	To               string         `json:"to,omitempty"`
	Messages         []feed.Message `json:"messages,omitempty"`
	Error            string         `json:"error,omitempty"`
	RoomID           int64          `json:"room_id,omitempty"`
	ClientMsgID      string         `json:"client_msg_id,omitempty"`
	MessageID        string         `json:"message_id,omitempty"`
	Stage            string         `json:"stage,omitempty"`
}

// encode converts a JSON-tagged value into a structpb.Struct.
func encode(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	return structpb.NewStruct(m)
}

// decode fills v from a structpb.Struct. Numbers travel as doubles, which
// hold unix ms timestamps and ids exactly.
func decode(s *structpb.Struct, v any) error {
	data, err := json.Marshal(s.AsMap())
	if err != nil {
		return fmt.Errorf("decode %T: %w", v, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %T: %w", v, err)
	}
	return nil
}
