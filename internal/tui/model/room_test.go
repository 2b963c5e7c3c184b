package model

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"

	"github.com/HornetGeek/petow-frontend-sub000/internal/api"
	"github.com/HornetGeek/petow-frontend-sub000/internal/bus"
	"github.com/HornetGeek/petow-frontend-sub000/internal/feed"
)

type fakeClient struct {
	status    api.StatusInfo
	messages  []feed.Message
	opened    []string
	sent      []api.SendRequest
	sendErr   error
	archives  int
	dismissed int
}

func (f *fakeClient) Status(context.Context) (*api.StatusInfo, error) {
	st := f.status
	return &st, nil
}

func (f *fakeClient) Open(_ context.Context, feedID string) (*api.RoomInfo, error) {
	f.opened = append(f.opened, feedID)
	f.status.FeedID = feedID
	f.status.State = "ATTACHING"
	return &api.RoomInfo{FeedID: feedID, RoomID: 7, State: "ATTACHING", Me: api.Participant{ID: 1, Name: "Sara"}}, nil
}

func (f *fakeClient) Messages(context.Context) (*api.MessageList, error) {
	return &api.MessageList{FeedID: f.status.FeedID, Messages: f.messages}, nil
}

func (f *fakeClient) Send(_ context.Context, req api.SendRequest) (*api.SendReply, error) {
	f.sent = append(f.sent, req)
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	return &api.SendReply{Message: feed.Message{ID: "m1", Text: req.Text}, Notified: true, MetaUpdated: true}, nil
}

func (f *fakeClient) Archive(context.Context) error {
	f.archives++
	return nil
}

func (f *fakeClient) DismissError(context.Context) error {
	f.dismissed++
	return nil
}

func TestOpenLoadsMessages(t *testing.T) {
	c := &fakeClient{messages: []feed.Message{{ID: "a", Text: "hi", Timestamp: 1}}}
	r := NewRoom(c)

	if err := r.Open(context.Background(), "room_42"); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if len(c.opened) != 1 || c.opened[0] != "room_42" {
		t.Errorf("opened = %v", c.opened)
	}
	if r.MyID() != 1 {
		t.Errorf("MyID = %d, want 1", r.MyID())
	}
	if got := r.Messages(); len(got) != 1 || got[0].Text != "hi" {
		t.Errorf("messages = %+v", got)
	}
}

func TestOpenUsesDaemonRoomWhenNoneGiven(t *testing.T) {
	c := &fakeClient{status: api.StatusInfo{FeedID: "room_43", State: "STREAMING"}}
	r := NewRoom(c)

	if err := r.Open(context.Background(), ""); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if len(c.opened) != 1 || c.opened[0] != "room_43" {
		t.Errorf("opened = %v", c.opened)
	}
}

func TestOpenWithoutAnyRoomFails(t *testing.T) {
	r := NewRoom(&fakeClient{})
	if err := r.Open(context.Background(), ""); err == nil {
		t.Fatal("expected error")
	}
}

func TestApplyEvents(t *testing.T) {
	c := &fakeClient{}
	r := NewRoom(c)
	if err := r.Open(context.Background(), "room_42"); err != nil {
		t.Fatal(err)
	}

	r.Apply(&api.Event{Kind: bus.KindRoomStatus, FeedID: "room_42", From: "ATTACHING", To: "STREAMING"})
	if r.State() != "STREAMING" {
		t.Errorf("state = %q", r.State())
	}

	r.Apply(&api.Event{Kind: bus.KindRoomSnapshot, FeedID: "room_42", Messages: []feed.Message{{ID: "x"}, {ID: "y"}}})
	if len(r.Messages()) != 2 {
		t.Errorf("messages = %d, want 2", len(r.Messages()))
	}

	// Events for another room are ignored.
	r.Apply(&api.Event{Kind: bus.KindRoomSnapshot, FeedID: "room_99", Messages: nil})
	if len(r.Messages()) != 2 {
		t.Errorf("foreign snapshot replaced messages")
	}

	r.Apply(&api.Event{Kind: bus.KindRoomError, FeedID: "room_42", Error: "boom"})
	if r.Banner() != "boom" {
		t.Errorf("banner = %q", r.Banner())
	}
	r.Apply(&api.Event{Kind: bus.KindRoomError, FeedID: "room_42"})
	if r.Banner() != "" {
		t.Errorf("banner not cleared: %q", r.Banner())
	}

	if !r.Apply(&api.Event{Kind: bus.KindRoomArchived, FeedID: "room_42", RoomID: 7}) {
		t.Error("archived event not reported")
	}
	if !r.Archived() {
		t.Error("model not archived")
	}
}

func TestSendWithImage(t *testing.T) {
	c := &fakeClient{}
	r := NewRoom(c)
	if err := r.Open(context.Background(), "room_42"); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "cat.png")
	if err := os.WriteFile(path, []byte("png"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := r.AttachImage(path); err != nil {
		t.Fatalf("AttachImage: %v", err)
	}

	if _, err := r.Send(context.Background(), "look"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(c.sent) != 1 {
		t.Fatalf("sent = %d, want 1", len(c.sent))
	}
	img := c.sent[0].Image
	if img == nil || img.Name != "cat.png" || img.ContentType != "image/png" || string(img.Data) != "png" {
		t.Errorf("image = %+v", img)
	}
	if r.Image() != "" {
		t.Error("attachment kept after successful send")
	}
	if r.Sending() {
		t.Error("still sending")
	}
}

func TestSendFailureKeepsAttachmentAndSetsBanner(t *testing.T) {
	c := &fakeClient{sendErr: grpcstatus.Error(codes.Unavailable, "فشل في رفع الصورة")}
	r := NewRoom(c)

	path := filepath.Join(t.TempDir(), "dog.jpg")
	if err := os.WriteFile(path, []byte("jpg"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := r.AttachImage(path); err != nil {
		t.Fatal(err)
	}

	if _, err := r.Send(context.Background(), ""); err == nil {
		t.Fatal("expected error")
	}
	if r.Image() != path {
		t.Errorf("image = %q, want kept", r.Image())
	}
	if r.Banner() != "فشل في رفع الصورة" {
		t.Errorf("banner = %q", r.Banner())
	}

	if err := r.DismissError(context.Background()); err != nil {
		t.Fatal(err)
	}
	if r.Banner() != "" || c.dismissed != 1 {
		t.Errorf("banner = %q, dismissed = %d", r.Banner(), c.dismissed)
	}
}

func TestSendNoopDoesNotSetBanner(t *testing.T) {
	c := &fakeClient{sendErr: grpcstatus.Error(codes.InvalidArgument, "nothing to send")}
	r := NewRoom(c)

	if _, err := r.Send(context.Background(), ""); err == nil {
		t.Fatal("expected error")
	}
	if r.Banner() != "" {
		t.Errorf("banner = %q, want empty", r.Banner())
	}
}

func TestAttachImageRejectsMissingFile(t *testing.T) {
	r := NewRoom(&fakeClient{})
	if err := r.AttachImage(filepath.Join(t.TempDir(), "nope.png")); err == nil {
		t.Fatal("expected error")
	}
	if err := r.AttachImage(t.TempDir()); err == nil {
		t.Fatal("expected error for directory")
	}
}

func TestFlashExpires(t *testing.T) {
	now := time.Unix(1000, 0)
	f := Flash{now: func() time.Time { return now }}

	if f.Get() != nil {
		t.Fatal("empty flash returned a message")
	}
	f.Warn("careful")
	if m := f.Get(); m == nil || m.Text != "careful" || m.Level != FlashWarn {
		t.Fatalf("flash = %+v", m)
	}
	now = now.Add(9 * time.Second)
	if f.Get() != nil {
		t.Error("flash did not expire")
	}
}
