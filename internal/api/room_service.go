package api

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/HornetGeek/petow-frontend-sub000/internal/backend"
	"github.com/HornetGeek/petow-frontend-sub000/internal/bus"
	"github.com/HornetGeek/petow-frontend-sub000/internal/logging"
	"github.com/HornetGeek/petow-frontend-sub000/internal/room"
	"github.com/HornetGeek/petow-frontend-sub000/internal/status"
)

// RoomService implements RoomServiceServer on top of a room session.
type RoomService struct {
	profile   string
	startedAt time.Time
	session   *room.Session
	bus       *bus.Bus
	logger    *zap.Logger
}

var _ RoomServiceServer = (*RoomService)(nil)

// NewRoomService creates a new room service.
func NewRoomService(profile string, session *room.Session, b *bus.Bus, logger *zap.Logger) *RoomService {
	return &RoomService{
		profile:   profile,
		startedAt: time.Now(),
		session:   session,
		bus:       b,
		logger:    logging.OrNop(logger),
	}
}

func (s *RoomService) Status(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	info := StatusInfo{
		Profile:      s.profile,
		State:        string(s.session.State()),
		FeedID:       s.session.FeedID(),
		MessageCount: len(s.session.Messages()),
		Sending:      s.session.Sending(),
		Error:        s.session.Error(),
		DraftText:    s.session.Composer().Draft().Text,
		UptimeMs:     time.Since(s.startedAt).Milliseconds(),
	}
	if r := s.session.Resolved(); r != nil {
		info.RoomID = r.Room.ID
	}
	return reply(encode(info))
}

func (s *RoomService) Open(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req OpenRequest
	if err := decode(in, &req); err != nil {
		return nil, grpcstatus.Errorf(codes.InvalidArgument, "%v", err)
	}
	if err := s.session.Open(ctx, req.FeedID); err != nil {
		return nil, toStatus(err)
	}
	r := s.session.Resolved()
	if r == nil {
		return nil, toStatus(room.ErrRoomChanged)
	}
	return reply(encode(roomInfo(r, s.session.State())))
}

func roomInfo(r *room.Resolved, state status.State) RoomInfo {
	return RoomInfo{
		FeedID:        r.FeedID,
		RoomID:        r.Room.ID,
		Active:        r.Room.Active,
		State:         string(state),
		Me:            Participant{ID: r.User.ID, Name: r.User.Name},
		Counterpart:   Participant{ID: r.Counterpart.ID, Name: r.Counterpart.Name},
		PetName:       r.Context.Pet.Name,
		RequestKind:   r.Context.Request.Kind,
		RequestStatus: r.Context.Request.Status,
	}
}

func (s *RoomService) Messages(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return reply(encode(MessageList{
		FeedID:   s.session.FeedID(),
		Messages: s.session.Messages(),
	}))
}

func (s *RoomService) Send(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req SendRequest
	if err := decode(in, &req); err != nil {
		return nil, grpcstatus.Errorf(codes.InvalidArgument, "%v", err)
	}
	d := room.Draft{Text: req.Text}
	if req.Image != nil {
		d.Image = &backend.Image{Name: req.Image.Name, ContentType: req.Image.ContentType, Data: req.Image.Data}
	}

	res, err := s.session.SendDraft(ctx, d)
	if err != nil {
		return nil, toStatus(err)
	}
	out := SendReply{
		Message:     *res.Message,
		Notified:    res.Notified,
		MetaUpdated: res.MetaUpdated,
		MetaCreated: res.MetaCreated,
	}
	if res.NotifyErr != nil {
		out.NotifyError = res.NotifyErr.Error()
	}
	if res.MetaErr != nil {
		out.MetaError = res.MetaErr.Error()
	}
	return reply(encode(out))
}

func (s *RoomService) Archive(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	if err := s.session.Archive(ctx); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

func (s *RoomService) DismissError(_ context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	s.session.DismissError()
	return &emptypb.Empty{}, nil
}

// Watch streams room and send events until the client leaves or the room is
// archived.
func (s *RoomService) Watch(_ *emptypb.Empty, stream RoomService_WatchServer) error {
	roomCh, unsubRoom := s.bus.Subscribe("room.", 256)
	defer unsubRoom()
	msgCh, unsubMsg := s.bus.Subscribe("message.", 64)
	defer unsubMsg()

	send := func(evt bus.Event) error {
		out, err := encode(s.envelope(evt))
		if err != nil {
			s.logger.Warn("dropping unencodable event", zap.String("kind", evt.Kind), zap.Error(err))
			return nil
		}
		return stream.Send(out)
	}

	for {
		select {
		case evt := <-roomCh:
			if err := send(evt); err != nil {
				return err
			}
			if evt.Kind == bus.KindRoomArchived {
				return nil
			}
		case evt := <-msgCh:
			if err := send(evt); err != nil {
				return err
			}
		case <-stream.Context().Done():
			return nil
		}
	}
}

func (s *RoomService) envelope(evt bus.Event) Event {
	out := Event{
		EventID:          uuid.New().String(),
		Profile:          s.profile,
		Kind:             evt.Kind,
		OccurredAtUnixMs: evt.Timestamp.UnixMilli(),
	}
	switch p := evt.Payload.(type) {
	case status.StatusChange:
		out.FeedID, out.From, out.To = p.FeedID, string(p.From), string(p.To)
	case room.Snapshot:
		out.FeedID, out.Messages = p.FeedID, p.Messages
	case room.ErrorNotice:
		out.FeedID, out.Error = p.FeedID, p.Message
	case room.Archived:
		out.FeedID, out.RoomID = p.FeedID, p.RoomID
	case room.SendAck:
		out.FeedID, out.ClientMsgID, out.MessageID = p.FeedID, p.ClientMsgID, p.MessageID
	case room.SendFailed:
		out.FeedID, out.ClientMsgID, out.Stage, out.Error = p.FeedID, p.ClientMsgID, p.Stage, p.Error
	}
	return out
}

func reply(s *structpb.Struct, err error) (*structpb.Struct, error) {
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "%v", err)
	}
	return s, nil
}

// toStatus maps room and backend errors to gRPC status codes. The message is
// the text a user should see.
func toStatus(err error) error {
	msg := room.UserMessage(err)
	var uerr *room.UploadError
	switch {
	case errors.Is(err, room.ErrSendInProgress), errors.Is(err, room.ErrRoomChanged):
		return grpcstatus.Error(codes.Aborted, msg)
	case errors.Is(err, room.ErrEmptyFeedID), errors.Is(err, room.ErrEmptyDraft):
		return grpcstatus.Error(codes.InvalidArgument, msg)
	case errors.Is(err, room.ErrNotResolved):
		return grpcstatus.Error(codes.FailedPrecondition, msg)
	case errors.Is(err, backend.ErrUnauthorized):
		return grpcstatus.Error(codes.Unauthenticated, msg)
	case errors.Is(err, backend.ErrNotFound):
		return grpcstatus.Error(codes.NotFound, msg)
	case errors.As(err, &uerr):
		return grpcstatus.Error(codes.Unavailable, msg)
	default:
		return grpcstatus.Error(codes.Internal, msg)
	}
}
