package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "peto.room.v1.RoomService"

const (
	methodStatus       = "/" + ServiceName + "/Status"
	methodOpen         = "/" + ServiceName + "/Open"
	methodMessages     = "/" + ServiceName + "/Messages"
	methodSend         = "/" + ServiceName + "/Send"
	methodArchive      = "/" + ServiceName + "/Archive"
	methodDismissError = "/" + ServiceName + "/DismissError"
	methodWatch        = "/" + ServiceName + "/Watch"
)

// RoomServiceServer is the server API for RoomService. Requests and replies
// are JSON-shaped structpb values; see types.go for their fields.
type RoomServiceServer interface {
	Status(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Open(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Messages(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Send(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Archive(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
	DismissError(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
	Watch(*emptypb.Empty, RoomService_WatchServer) error
}

// RoomService_WatchServer is the server side of the Watch stream.
type RoomService_WatchServer interface {
	Send(*structpb.Struct) error
	grpc.ServerStream
}

type roomServiceWatchServer struct {
	grpc.ServerStream
}

func (x *roomServiceWatchServer) Send(m *structpb.Struct) error {
	return x.ServerStream.SendMsg(m)
}

// unaryHandler adapts a typed server method to grpc.MethodHandler.
func unaryHandler[Req proto.Message](fullMethod string, newReq func() Req, call func(RoomServiceServer, context.Context, Req) (any, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := newReq()
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(RoomServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(RoomServiceServer), ctx, req.(Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func newEmpty() *emptypb.Empty    { return new(emptypb.Empty) }
func newStruct() *structpb.Struct { return new(structpb.Struct) }

func watchHandler(srv any, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(RoomServiceServer).Watch(in, &roomServiceWatchServer{stream})
}

// RoomService_ServiceDesc is the grpc.ServiceDesc for RoomService.
var RoomService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RoomServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Status",
			Handler: unaryHandler(methodStatus, newEmpty, func(s RoomServiceServer, ctx context.Context, in *emptypb.Empty) (any, error) {
				return s.Status(ctx, in)
			}),
		},
		{
			MethodName: "Open",
			Handler: unaryHandler(methodOpen, newStruct, func(s RoomServiceServer, ctx context.Context, in *structpb.Struct) (any, error) {
				return s.Open(ctx, in)
			}),
		},
		{
			MethodName: "Messages",
			Handler: unaryHandler(methodMessages, newEmpty, func(s RoomServiceServer, ctx context.Context, in *emptypb.Empty) (any, error) {
				return s.Messages(ctx, in)
			}),
		},
		{
			MethodName: "Send",
			Handler: unaryHandler(methodSend, newStruct, func(s RoomServiceServer, ctx context.Context, in *structpb.Struct) (any, error) {
				return s.Send(ctx, in)
			}),
		},
		{
			MethodName: "Archive",
			Handler: unaryHandler(methodArchive, newEmpty, func(s RoomServiceServer, ctx context.Context, in *emptypb.Empty) (any, error) {
				return s.Archive(ctx, in)
			}),
		},
		{
			MethodName: "DismissError",
			Handler: unaryHandler(methodDismissError, newEmpty, func(s RoomServiceServer, ctx context.Context, in *emptypb.Empty) (any, error) {
				return s.DismissError(ctx, in)
			}),
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Watch",
			Handler:       watchHandler,
			ServerStreams: true,
		},
	},
	Metadata: "peto/room/v1/room.proto",
}

// RegisterRoomServiceServer registers srv on s.
func RegisterRoomServiceServer(s grpc.ServiceRegistrar, srv RoomServiceServer) {
	s.RegisterService(&RoomService_ServiceDesc, srv)
}
