package grpcx

import (
	"context"

	"google.golang.org/grpc"

	"github.com/inference-sim/pisim/sim/comm"
)

const serviceName = "pisim.comm.Collective"

// Full method names.
const (
	methodHello = "/" + serviceName + "/Hello"
	methodJoin  = "/" + serviceName + "/Join"
	methodAbort = "/" + serviceName + "/Abort"
)

// HelloRequest registers a remote rank with the coordinator.
type HelloRequest struct {
	Rank int `json:"rank"`
	Size int `json:"size"`
}

// HelloResponse carries the session every later request must quote.
type HelloResponse struct {
	Session string `json:"session"`
}

// JoinRequest is one rank's contribution to a collective.
type JoinRequest struct {
	Session string  `json:"session"`
	Rank    int     `json:"rank"`
	Seq     uint64  `json:"seq"`
	Op      comm.Op `json:"op"`
	Root    int     `json:"root"`
	Value   int64   `json:"value"`
}

// JoinResponse carries the combined value once every rank has joined.
type JoinResponse struct {
	Value int64 `json:"value"`
}

// AbortRequest asks the coordinator to fail the group.
type AbortRequest struct {
	Session string `json:"session"`
	Rank    int    `json:"rank"`
	Reason  string `json:"reason"`
}

// AbortResponse is empty.
type AbortResponse struct{}

// collectiveServer is the server-side contract of the service.
type collectiveServer interface {
	Hello(context.Context, *HelloRequest) (*HelloResponse, error)
	Join(context.Context, *JoinRequest) (*JoinResponse, error)
	Abort(context.Context, *AbortRequest) (*AbortResponse, error)
}

var collectiveServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*collectiveServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Hello", Handler: helloHandler},
		{MethodName: "Join", Handler: joinHandler},
		{MethodName: "Abort", Handler: abortHandler},
	},
	Streams: []grpc.StreamDesc{},
}

func helloHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(HelloRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(collectiveServer).Hello(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodHello}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(collectiveServer).Hello(ctx, req.(*HelloRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func joinHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(JoinRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(collectiveServer).Join(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodJoin}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(collectiveServer).Join(ctx, req.(*JoinRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func abortHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(AbortRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(collectiveServer).Abort(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodAbort}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(collectiveServer).Abort(ctx, req.(*AbortRequest))
	}
	return interceptor(ctx, in, info, handler)
}
