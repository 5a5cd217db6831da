package core

import (
	"context"
	"testing"

	"google.golang.org/grpc"
)

// echoPingClient answers every Ping by echoing the nonce, the minimum a
// fake peer needs to pass Overlay's liveness preamble.
type echoPingClient struct{}

func (echoPingClient) Ping(_ context.Context, req *PingRequest, _ ...grpc.CallOption) (*PongResponse, error) {
	return &PongResponse{RandID: req.RandID}, nil
}
func (echoPingClient) FindNode(context.Context, *FindNodeRequest, ...grpc.CallOption) (*FindNodeResponse, error) {
	return &FindNodeResponse{}, nil
}
func (echoPingClient) FindValue(context.Context, *FindValueRequest, ...grpc.CallOption) (*FindValueResponse, error) {
	return &FindValueResponse{}, nil
}
func (echoPingClient) Store(context.Context, *StoreRequest, ...grpc.CallOption) (*StoreResponse, error) {
	return &StoreResponse{}, nil
}
func (echoPingClient) SendMarco(context.Context, *SendMarcoRequest, ...grpc.CallOption) (*Ack, error) {
	return &Ack{}, nil
}
func (echoPingClient) SendBlock(context.Context, *SendBlockRequest, ...grpc.CallOption) (*Ack, error) {
	return &Ack{}, nil
}
func (echoPingClient) GetBlock(context.Context, *GetBlockRequest, ...grpc.CallOption) (*GetBlockResponse, error) {
	return &GetBlockResponse{}, nil
}

func echoDial(ctx context.Context, addr string) (OverlayClient, func() error, error) {
	return echoPingClient{}, func() error { return nil }, nil
}

func deadDial(ctx context.Context, addr string) (OverlayClient, func() error, error) {
	return nil, nil, newTransportError("dial refused")
}

func newTestOverlay(t *testing.T, dial dialFunc, bootstrapOnly bool) (*Overlay, Node) {
	t.Helper()
	self, err := NewNode(NewIdentifier("self"), "127.0.0.1", 9000)
	if err != nil {
		t.Fatalf("NewNode: %v", err)
	}
	kad := NewKademlia(self)
	chain := NewBlockchainEngine(false, "self", 1)
	return NewOverlay(kad, chain, dial, bootstrapOnly, nil), self
}

func TestOverlayPingEchoesNonce(t *testing.T) {
	o, self := newTestOverlay(t, echoDial, false)
	peer := mustNode(t, "peer", "10.0.0.1")
	resp, err := o.Ping(context.Background(), &PingRequest{
		Src:    ToWireAddress(peer),
		Dst:    ToWireAddress(self),
		RandID: []byte{1, 2, 3},
	})
	if err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if !bytesEqual(resp.RandID, []byte{1, 2, 3}) {
		t.Fatalf("expected the nonce to be echoed back unchanged")
	}
}

func TestOverlayPingRejectsWrongDestination(t *testing.T) {
	o, _ := newTestOverlay(t, echoDial, false)
	peer := mustNode(t, "peer", "10.0.0.1")
	other := mustNode(t, "someone-else", "10.0.0.9")
	_, err := o.Ping(context.Background(), &PingRequest{
		Src: ToWireAddress(peer),
		Dst: ToWireAddress(other),
	})
	if err == nil {
		t.Fatalf("expected a protocol violation when dst does not match self")
	}
	if kind, ok := KindOf(err); !ok || kind != KindProtocolViolation {
		t.Fatalf("expected KindProtocolViolation, got %v", err)
	}
}

func TestOverlayFindNodeDirectHit(t *testing.T) {
	o, self := newTestOverlay(t, echoDial, false)
	target := mustNode(t, "target", "10.0.0.2")
	o.kad.AddNode(target)
	peer := mustNode(t, "peer", "10.0.0.1")

	resp, err := o.FindNode(context.Background(), &FindNodeRequest{
		Src:    ToWireAddress(peer),
		Dst:    ToWireAddress(self),
		Target: target.ID.Bytes(),
	})
	if err != nil {
		t.Fatalf("FindNode: %v", err)
	}
	if resp.Kind != KindFound || resp.Node == nil {
		t.Fatalf("expected a direct hit for a known target")
	}
}

func TestOverlayFindNodeLivenessFailure(t *testing.T) {
	o, self := newTestOverlay(t, deadDial, false)
	peer := mustNode(t, "peer", "10.0.0.1")
	_, err := o.FindNode(context.Background(), &FindNodeRequest{
		Src:    ToWireAddress(peer),
		Dst:    ToWireAddress(self),
		Target: NewIdentifier("target").Bytes(),
	})
	if err == nil {
		t.Fatalf("expected the liveness ping to fail against an unreachable peer")
	}
	if kind, ok := KindOf(err); !ok || kind != KindLivenessFailure {
		t.Fatalf("expected KindLivenessFailure, got %v", err)
	}
}

func TestOverlayBootstrapOnlyRejectsFindValue(t *testing.T) {
	o, self := newTestOverlay(t, echoDial, true)
	peer := mustNode(t, "peer", "10.0.0.1")
	_, err := o.FindValue(context.Background(), &FindValueRequest{
		Src:    ToWireAddress(peer),
		Dst:    ToWireAddress(self),
		Target: NewIdentifier("key").Bytes(),
	})
	if err == nil {
		t.Fatalf("expected a bootstrap-only node to refuse FindValue")
	}
}

func TestOverlaySendMarcoDropsOutOfRangeTTL(t *testing.T) {
	o, self := newTestOverlay(t, echoDial, false)
	m := ToWireMarco(NewMarco(NewTransaction(1, "a", 1, "b")))
	peer := mustNode(t, "peer", "10.0.0.1")
	ack, err := o.SendMarco(context.Background(), &SendMarcoRequest{
		Src:   ToWireAddress(peer),
		Dst:   ToWireAddress(self),
		Marco: m,
		TTL:   0,
	})
	if err != nil || ack == nil {
		t.Fatalf("an out-of-range TTL should be silently dropped, not errored: %v", err)
	}
}

func TestOverlaySendMarcoAdmitsValidMarco(t *testing.T) {
	o, self := newTestOverlay(t, echoDial, false)
	m := ToWireMarco(NewMarco(NewTransaction(1, "a", 1, "b")))
	peer := mustNode(t, "peer", "10.0.0.1")
	_, err := o.SendMarco(context.Background(), &SendMarcoRequest{
		Src:   ToWireAddress(peer),
		Dst:   ToWireAddress(self),
		Marco: m,
		TTL:   5,
	})
	if err != nil {
		t.Fatalf("SendMarco: %v", err)
	}
	if _, ok := o.chain.GetBlockByHash(""); ok {
		t.Fatalf("sanity: empty hash should never match")
	}
}

func TestOverlaySendBlockRejectsUnmineBlock(t *testing.T) {
	o, self := newTestOverlay(t, echoDial, false)
	bad := NewBlock(99, "unknown-prev", 64, "miner", 1) // never mined, will fail CheckHash
	peer := mustNode(t, "peer", "10.0.0.1")
	_, err := o.SendBlock(context.Background(), &SendBlockRequest{
		Src:   ToWireAddress(peer),
		Dst:   ToWireAddress(self),
		Block: ToWireBlock(bad),
		TTL:   5,
	})
	if err == nil {
		t.Fatalf("expected an unmined block to fail its proof-of-work check")
	}
	if kind, ok := KindOf(err); !ok || kind != KindValidationError {
		t.Fatalf("expected KindValidationError, got %v", err)
	}
}

func TestOverlaySendBlockRejectsForgedHashWithValidPrefix(t *testing.T) {
	o, self := newTestOverlay(t, echoDial, false)
	genesis := o.chain.Head()

	forged := NewBlock(genesis.Index+1, genesis.Hash, 1, "attacker", 1)
	cancel := make(chan struct{})
	if !forged.Mine(cancel) {
		t.Fatalf("Mine should succeed")
	}
	genuineHash := forged.Hash
	forged.Nonce++ // content now differs from what genuineHash was computed over
	forged.Hash = genuineHash

	peer := mustNode(t, "peer", "10.0.0.1")
	_, err := o.SendBlock(context.Background(), &SendBlockRequest{
		Src:   ToWireAddress(peer),
		Dst:   ToWireAddress(self),
		Block: ToWireBlock(forged),
		TTL:   5,
	})
	if err == nil {
		t.Fatalf("expected a block whose stored Hash no longer matches its content to be rejected")
	}
	if kind, ok := KindOf(err); !ok || kind != KindValidationError {
		t.Fatalf("expected KindValidationError, got %v", err)
	}
}

func TestOverlayGetBlockDirectHit(t *testing.T) {
	o, self := newTestOverlay(t, echoDial, false)
	genesis := o.chain.Head()
	peer := mustNode(t, "peer", "10.0.0.1")
	resp, err := o.GetBlock(context.Background(), &GetBlockRequest{
		Src:       ToWireAddress(peer),
		Dst:       ToWireAddress(self),
		BlockHash: genesis.Hash,
	})
	if err != nil {
		t.Fatalf("GetBlock: %v", err)
	}
	if resp.Kind != KindFound || resp.Block == nil {
		t.Fatalf("expected a direct hit for the genesis block")
	}
}

func TestBytesEqual(t *testing.T) {
	if !bytesEqual([]byte{1, 2}, []byte{1, 2}) {
		t.Fatalf("expected identical byte slices to be equal")
	}
	if bytesEqual([]byte{1, 2}, []byte{1, 2, 3}) {
		t.Fatalf("expected different-length slices to be unequal")
	}
	if bytesEqual([]byte{1, 2}, []byte{1, 3}) {
		t.Fatalf("expected differing bytes to be unequal")
	}
}
