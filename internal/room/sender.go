package room

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/HornetGeek/petow-frontend-sub000/internal/bus"
	"github.com/HornetGeek/petow-frontend-sub000/internal/feed"
	"github.com/HornetGeek/petow-frontend-sub000/internal/logging"
	"github.com/HornetGeek/petow-frontend-sub000/internal/metrics"
)

// SendResult separates the feed write from the best-effort effects that
// follow it. A non-nil result means the message exists in the feed.
type SendResult struct {
	Message     *feed.Message
	Notified    bool
	NotifyErr   error
	MetaUpdated bool
	MetaCreated bool
	MetaErr     error
}

// Sender uploads, writes and announces messages. One send runs at a time.
type Sender struct {
	uploader        ImageUploader
	notifier        Notifier
	store           feed.Store
	withCounterpart bool
	bus             *bus.Bus
	logger          *zap.Logger

	sending atomic.Bool
}

// NewSender creates a sender.
func NewSender(uploader ImageUploader, notifier Notifier, store feed.Store, withCounterpart bool, b *bus.Bus, logger *zap.Logger) *Sender {
	return &Sender{
		uploader:        uploader,
		notifier:        notifier,
		store:           store,
		withCounterpart: withCounterpart,
		bus:             b,
		logger:          logging.OrNop(logger),
	}
}

// Sending reports whether a send is in flight.
func (s *Sender) Sending() bool { return s.sending.Load() }

// Send delivers d to the room. Precondition failures return ErrSendInProgress,
// ErrNotResolved or ErrEmptyDraft without any I/O. An upload failure returns
// *UploadError and nothing is written.
func (s *Sender) Send(ctx context.Context, r *Resolved, d Draft) (*SendResult, error) {
	if !s.begin() {
		return nil, ErrSendInProgress
	}
	defer s.end()
	return s.deliver(ctx, r, d)
}

// begin takes the send latch. It reports false when a send is in flight.
func (s *Sender) begin() bool { return s.sending.CompareAndSwap(false, true) }

func (s *Sender) end() { s.sending.Store(false) }

// deliver runs one send. The caller holds the latch.
func (s *Sender) deliver(ctx context.Context, r *Resolved, d Draft) (*SendResult, error) {
	if r == nil {
		return nil, ErrNotResolved
	}
	if d.Empty() {
		return nil, ErrEmptyDraft
	}

	text := strings.TrimSpace(d.Text)
	clientMsgID := uuid.NewString()
	log := s.logger.With(zap.String("feed_id", r.FeedID), zap.String("client_msg_id", clientMsgID))

	msg := feed.Message{
		ClientMsgID: clientMsgID,
		Text:        text,
		SenderID:    r.User.ID,
		SenderName:  r.User.Name,
		Kind:        feed.KindText,
	}

	if d.Image != nil {
		url, err := s.uploader.UploadChatImage(ctx, *d.Image)
		if err != nil {
			log.Error("image upload failed", zap.Error(err))
			s.failed(r.FeedID, clientMsgID, "upload", err)
			return nil, &UploadError{Err: err}
		}
		msg.Kind = feed.KindImage
		msg.ImageURL = url
	}

	stored, err := s.store.AddMessage(ctx, r.FeedID, msg)
	if err != nil {
		log.Error("failed to write message", zap.Error(err))
		s.failed(r.FeedID, clientMsgID, "write", err)
		return nil, fmt.Errorf("write message: %w", err)
	}
	metrics.MessagesSent.WithLabelValues(string(stored.Kind)).Inc()

	res := &SendResult{Message: stored}
	preview := text
	if preview == "" {
		preview = ImagePlaceholder
	}

	if err := s.notifier.SendChatNotification(ctx, r.FeedID, preview); err != nil {
		res.NotifyErr = err
		metrics.SecondaryFailures.WithLabelValues("notify").Inc()
		log.Warn("chat notification failed", zap.Error(err))
	} else {
		res.Notified = true
	}

	s.updateMeta(ctx, r, stored, preview, res, log)

	log.Info("message sent", zap.String("msg_id", stored.ID), zap.String("kind", string(stored.Kind)))
	s.bus.Publish(bus.NewEvent(bus.KindSendAck, SendAck{
		FeedID:      r.FeedID,
		ClientMsgID: clientMsgID,
		MessageID:   stored.ID,
		Kind:        stored.Kind,
	}))
	return res, nil
}

// updateMeta refreshes the last-message fields, creating the record when it
// does not exist.
func (s *Sender) updateMeta(ctx context.Context, r *Resolved, stored *feed.Message, preview string, res *SendResult, log *zap.Logger) {
	err := s.store.UpdateMeta(ctx, r.FeedID, feed.MetaUpdate{LastMessage: preview, LastSenderID: r.User.ID})
	if err == nil {
		res.MetaUpdated = true
		return
	}
	if !errors.Is(err, feed.ErrNotFound) {
		res.MetaErr = err
		metrics.SecondaryFailures.WithLabelValues("meta").Inc()
		log.Warn("metadata update failed", zap.Error(err))
		return
	}

	meta := metaFor(r, s.withCounterpart)
	meta.LastMessage = preview
	meta.LastSenderID = r.User.ID
	meta.LastMessageAt = stored.Timestamp
	if err := s.store.SetMeta(ctx, r.FeedID, meta); err != nil {
		res.MetaErr = err
		metrics.SecondaryFailures.WithLabelValues("meta").Inc()
		log.Warn("metadata create failed", zap.Error(err))
		return
	}
	res.MetaCreated = true
}

func (s *Sender) failed(feedID, clientMsgID, stage string, err error) {
	metrics.SendFailures.WithLabelValues(stage).Inc()
	s.bus.Publish(bus.NewEvent(bus.KindSendFailed, SendFailed{
		FeedID:      feedID,
		ClientMsgID: clientMsgID,
		Stage:       stage,
		Error:       err.Error(),
	}))
}
