package core

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
)

// jsonCodecName is registered with grpc/encoding and selected per-call via
// grpc.CallContentSubtype, letting this package carry a hand-rolled
// request/response protocol over genuine gRPC/mTLS transport without a
// protoc-generated .pb.go file.
const jsonCodecName = "marcojson"

// jsonCodec implements encoding.Codec by delegating to encoding/json. gRPC
// calls Marshal/Unmarshal on whatever Go value the handler or client stub
// passes it, so the wire types in rpc_wire.go/rpc_marshal.go need no
// special treatment beyond their json tags.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("core: marshal rpc payload: %w", err)
	}
	return b, nil
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("core: unmarshal rpc payload: %w", err)
	}
	return nil
}

func (jsonCodec) Name() string { return jsonCodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
