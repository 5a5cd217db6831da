package core

import (
	"context"

	"google.golang.org/grpc"
)

// OverlayServer is the seven-verb contract every handler (real node or
// bootstrap-only node) must implement. Bootstrap nodes expose only Ping
// and FindNode; the rest return a ProtocolViolation.
type OverlayServer interface {
	Ping(context.Context, *PingRequest) (*PongResponse, error)
	FindNode(context.Context, *FindNodeRequest) (*FindNodeResponse, error)
	FindValue(context.Context, *FindValueRequest) (*FindValueResponse, error)
	Store(context.Context, *StoreRequest) (*StoreResponse, error)
	SendMarco(context.Context, *SendMarcoRequest) (*Ack, error)
	SendBlock(context.Context, *SendBlockRequest) (*Ack, error)
	GetBlock(context.Context, *GetBlockRequest) (*GetBlockResponse, error)
}

// serviceName is the gRPC full method prefix; there is no .proto file to
// generate it from, so it is spelled out by hand once, here.
const serviceName = "marconet.Overlay"

func overlayHandler[Req, Resp any](call func(OverlayServer, context.Context, *Req) (*Resp, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := new(Req)
		if err := dec(req); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(OverlayServer), ctx, req)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: serviceName}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(OverlayServer), ctx, req.(*Req))
		}
		return interceptor(ctx, req, info, handler)
	}
}

// OverlayServiceDesc is the hand-written equivalent of a protoc-generated
// grpc.ServiceDesc: one streaming-free unary entry per verb, dispatching
// through the jsonCodec registered in rpc_codec.go.
var OverlayServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*OverlayServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Ping", Handler: pingHandler},
		{MethodName: "FindNode", Handler: findNodeHandler},
		{MethodName: "FindValue", Handler: findValueHandler},
		{MethodName: "Store", Handler: storeHandler},
		{MethodName: "SendMarco", Handler: sendMarcoHandler},
		{MethodName: "SendBlock", Handler: sendBlockHandler},
		{MethodName: "GetBlock", Handler: getBlockHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "marconet/overlay.proto",
}

func pingHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return overlayHandler(func(s OverlayServer, ctx context.Context, req *PingRequest) (*PongResponse, error) {
		return s.Ping(ctx, req)
	})(srv, ctx, dec, interceptor)
}

func findNodeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return overlayHandler(func(s OverlayServer, ctx context.Context, req *FindNodeRequest) (*FindNodeResponse, error) {
		return s.FindNode(ctx, req)
	})(srv, ctx, dec, interceptor)
}

func findValueHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return overlayHandler(func(s OverlayServer, ctx context.Context, req *FindValueRequest) (*FindValueResponse, error) {
		return s.FindValue(ctx, req)
	})(srv, ctx, dec, interceptor)
}

func storeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return overlayHandler(func(s OverlayServer, ctx context.Context, req *StoreRequest) (*StoreResponse, error) {
		return s.Store(ctx, req)
	})(srv, ctx, dec, interceptor)
}

func sendMarcoHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return overlayHandler(func(s OverlayServer, ctx context.Context, req *SendMarcoRequest) (*Ack, error) {
		return s.SendMarco(ctx, req)
	})(srv, ctx, dec, interceptor)
}

func sendBlockHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return overlayHandler(func(s OverlayServer, ctx context.Context, req *SendBlockRequest) (*Ack, error) {
		return s.SendBlock(ctx, req)
	})(srv, ctx, dec, interceptor)
}

func getBlockHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return overlayHandler(func(s OverlayServer, ctx context.Context, req *GetBlockRequest) (*GetBlockResponse, error) {
		return s.GetBlock(ctx, req)
	})(srv, ctx, dec, interceptor)
}
