package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "jobmate.swipe.v1.SwipeService"

// SwipeServiceServer is the server API. Requests and responses are free-form
// google.protobuf.Struct messages whose fields mirror the HTTP JSON bodies.
type SwipeServiceServer interface {
	Refresh(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Current(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Swipe(context.Context, *structpb.Struct) (*structpb.Struct, error)
	StartOver(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListFavorites(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RemoveFavorite(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(SwipeServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

// ServiceDesc describes SwipeService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SwipeServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Refresh", SwipeServiceServer.Refresh),
		unary("Current", SwipeServiceServer.Current),
		unary("Swipe", SwipeServiceServer.Swipe),
		unary("StartOver", SwipeServiceServer.StartOver),
		unary("ListFavorites", SwipeServiceServer.ListFavorites),
		unary("RemoveFavorite", SwipeServiceServer.RemoveFavorite),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "jobmate/swipe/v1/swipe.proto",
}

func unary(name string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(SwipeServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(SwipeServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// FullMethod returns the wire name of method, e.g. /jobmate.swipe.v1.SwipeService/Swipe.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// Client calls SwipeService over conn.
type Client struct {
	conn grpc.ClientConnInterface
}

// NewClient wraps conn.
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// Call invokes method with req and returns the response struct.
func (c *Client) Call(ctx context.Context, method string, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if req == nil {
		req = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, FullMethod(method), req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
