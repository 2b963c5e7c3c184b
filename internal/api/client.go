package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client is a typed RoomService client.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an existing connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// MaxMessageSize bounds one RPC message in either direction. Send carries
// the image inline as base64, so this must exceed the largest accepted
// image by a third.
const MaxMessageSize = 32 << 20

// ServerOptions are the options a RoomService server must be built with to
// accept what Dial'd clients send.
func ServerOptions() []grpc.ServerOption {
	return []grpc.ServerOption{
		grpc.MaxRecvMsgSize(MaxMessageSize),
		grpc.MaxSendMsgSize(MaxMessageSize),
	}
}

// Dial connects to a daemon listening on a Unix socket.
func Dial(socketPath string) (*grpc.ClientConn, error) {
	return grpc.NewClient(
		"unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(MaxMessageSize),
			grpc.MaxCallSendMsgSize(MaxMessageSize),
		),
	)
}

func (c *Client) call(ctx context.Context, method string, in any, out any) error {
	var req any = &emptypb.Empty{}
	if in != nil {
		s, err := encode(in)
		if err != nil {
			return err
		}
		req = s
	}
	if out == nil {
		return c.cc.Invoke(ctx, method, req, &emptypb.Empty{})
	}
	resp := &structpb.Struct{}
	if err := c.cc.Invoke(ctx, method, req, resp); err != nil {
		return err
	}
	return decode(resp, out)
}

func (c *Client) Status(ctx context.Context) (*StatusInfo, error) {
	var out StatusInfo
	if err := c.call(ctx, methodStatus, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Open(ctx context.Context, feedID string) (*RoomInfo, error) {
	var out RoomInfo
	if err := c.call(ctx, methodOpen, OpenRequest{FeedID: feedID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Messages(ctx context.Context) (*MessageList, error) {
	var out MessageList
	if err := c.call(ctx, methodMessages, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Send(ctx context.Context, req SendRequest) (*SendReply, error) {
	var out SendReply
	if err := c.call(ctx, methodSend, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Archive(ctx context.Context) error {
	return c.call(ctx, methodArchive, nil, nil)
}

func (c *Client) DismissError(ctx context.Context) error {
	return c.call(ctx, methodDismissError, nil, nil)
}

// Watcher reads the Watch stream.
type Watcher struct {
	stream grpc.ClientStream
}

// Watch opens the event stream. It ends with io.EOF after the room is
// archived.
func (c *Client) Watch(ctx context.Context) (*Watcher, error) {
	stream, err := c.cc.NewStream(ctx, &RoomService_ServiceDesc.Streams[0], methodWatch)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(&emptypb.Empty{}); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &Watcher{stream: stream}, nil
}

// Recv blocks for the next event.
func (w *Watcher) Recv() (*Event, error) {
	m := &structpb.Struct{}
	if err := w.stream.RecvMsg(m); err != nil {
		return nil, err
	}
	var evt Event
	if err := decode(m, &evt); err != nil {
		return nil, err
	}
	return &evt, nil
}
