package core

import (
	"context"

	"google.golang.org/grpc"
)

// OverlayClient is the client-side mirror of OverlayServer, implemented by
// overlayClient below against any grpc.ClientConnInterface (a real
// *grpc.ClientConn or a fake for tests).
type OverlayClient interface {
	Ping(context.Context, *PingRequest, ...grpc.CallOption) (*PongResponse, error)
	FindNode(context.Context, *FindNodeRequest, ...grpc.CallOption) (*FindNodeResponse, error)
	FindValue(context.Context, *FindValueRequest, ...grpc.CallOption) (*FindValueResponse, error)
	Store(context.Context, *StoreRequest, ...grpc.CallOption) (*StoreResponse, error)
	SendMarco(context.Context, *SendMarcoRequest, ...grpc.CallOption) (*Ack, error)
	SendBlock(context.Context, *SendBlockRequest, ...grpc.CallOption) (*Ack, error)
	GetBlock(context.Context, *GetBlockRequest, ...grpc.CallOption) (*GetBlockResponse, error)
}

type overlayClient struct {
	cc grpc.ClientConnInterface
}

// NewOverlayClient wraps a dialed connection (mTLS already configured at
// Dial time) with the seven-verb stub.
func NewOverlayClient(cc grpc.ClientConnInterface) OverlayClient {
	return &overlayClient{cc: cc}
}

// jsonSubtype selects the hand-rolled codec registered in rpc_codec.go for
// every call this stub makes.
func jsonSubtype(opts []grpc.CallOption) []grpc.CallOption {
	return append(opts, grpc.CallContentSubtype(jsonCodecName))
}

func (c *overlayClient) Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PongResponse, error) {
	out := new(PongResponse)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Ping", in, out, jsonSubtype(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *overlayClient) FindNode(ctx context.Context, in *FindNodeRequest, opts ...grpc.CallOption) (*FindNodeResponse, error) {
	out := new(FindNodeResponse)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/FindNode", in, out, jsonSubtype(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *overlayClient) FindValue(ctx context.Context, in *FindValueRequest, opts ...grpc.CallOption) (*FindValueResponse, error) {
	out := new(FindValueResponse)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/FindValue", in, out, jsonSubtype(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *overlayClient) Store(ctx context.Context, in *StoreRequest, opts ...grpc.CallOption) (*StoreResponse, error) {
	out := new(StoreResponse)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Store", in, out, jsonSubtype(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *overlayClient) SendMarco(ctx context.Context, in *SendMarcoRequest, opts ...grpc.CallOption) (*Ack, error) {
	out := new(Ack)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/SendMarco", in, out, jsonSubtype(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *overlayClient) SendBlock(ctx context.Context, in *SendBlockRequest, opts ...grpc.CallOption) (*Ack, error) {
	out := new(Ack)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/SendBlock", in, out, jsonSubtype(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *overlayClient) GetBlock(ctx context.Context, in *GetBlockRequest, opts ...grpc.CallOption) (*GetBlockResponse, error) {
	out := new(GetBlockResponse)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/GetBlock", in, out, jsonSubtype(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}
