package core

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

var overlayLog = logrus.WithField("subsystem", "overlay")

// dialFunc opens a client to addr. TLS sessions are per-call: LocalNode's
// dial implementation dials fresh and the caller is responsible for
// closing it once the RPC completes.
type dialFunc func(ctx context.Context, addr string) (OverlayClient, func() error, error)

// livenessTimeout bounds the handler preamble's spoof-guard Ping and the
// asynchronous eviction-candidate Ping.
const livenessTimeout = 10 * time.Second

// Overlay implements OverlayServer, wiring the Kademlia facade and the
// blockchain engine to the seven RPC verbs and enforcing the universal
// handler preamble ahead of every non-broadcast verb.
type Overlay struct {
	self          Node
	kad           *Kademlia
	chain         *BlockchainEngine
	dial          dialFunc
	bootstrapOnly bool
	verifyPub     *rsa.PublicKey
	broadcast     *BroadcastDriver
}

// NewOverlay builds the server-side RPC handler for a full node (or, with
// bootstrapOnly set, a bootstrap node exposing only Ping/FindNode).
func NewOverlay(kad *Kademlia, chain *BlockchainEngine, dial dialFunc, bootstrapOnly bool, verifyPub *rsa.PublicKey) *Overlay {
	self := kad.Self()
	return &Overlay{
		self:          self,
		kad:           kad,
		chain:         chain,
		dial:          dial,
		bootstrapOnly: bootstrapOnly,
		verifyPub:     verifyPub,
		broadcast:     NewBroadcastDriver(self, kad, dial),
	}
}

// matchesSelf validates that dst names exactly the local node.
func (o *Overlay) matchesSelf(dst WireAddress) error {
	n, err := dst.Node()
	if err != nil {
		return err
	}
	if n.ID != o.self.ID || n.IP != o.self.IP || n.Port != o.self.Port {
		return newProtocolViolation("destination address does not match local node")
	}
	return nil
}

// preamble runs the universal handler preamble used by FindNode, FindValue,
// Store and GetBlock (Ping, SendMarco and SendBlock do not call it):
// validate dst, opportunistically add/refresh src in the routing table,
// and (when requireLiveness is set) run the spoof-guard Ping round trip.
func (o *Overlay) preamble(ctx context.Context, src, dst WireAddress, requireLiveness bool) (Node, error) {
	if err := o.matchesSelf(dst); err != nil {
		return Node{}, err
	}
	srcNode, err := src.Node()
	if err != nil {
		return Node{}, err
	}

	if evictionCandidate, hasCandidate := o.kad.AddNode(srcNode); hasCandidate {
		go o.challengeEvictionCandidate(evictionCandidate, srcNode)
	} else if _, known := o.kad.GetNode(srcNode.ID); known {
		o.kad.SendBack(srcNode.ID)
	}

	if requireLiveness {
		if !o.pingAndAwait(ctx, srcNode) {
			o.kad.RiskPenalty(srcNode.ID)
			return Node{}, newLivenessFailure(fmt.Sprintf("liveness ping to %s failed", srcNode.ID))
		}
	}
	return srcNode, nil
}

// challengeEvictionCandidate pings a bucket's current head when a new peer
// wants its slot: if the head answers, it is promoted and the newcomer is
// dropped; if it times out, the newcomer replaces it.
func (o *Overlay) challengeEvictionCandidate(head, newcomer Node) {
	ctx, cancel := context.WithTimeout(context.Background(), livenessTimeout)
	defer cancel()
	if o.pingAndAwait(ctx, head) {
		o.kad.SendBack(head.ID)
		return
	}
	o.kad.ReplaceNode(newcomer)
}

// pingAndAwait dials n, sends a random nonce, and reports whether the Pong
// echoed it back correctly.
func (o *Overlay) pingAndAwait(ctx context.Context, n Node) bool {
	client, closeFn, err := o.dial(ctx, n.Addr())
	if err != nil {
		return false
	}
	defer closeFn()

	nonce := make([]byte, 32)
	if _, err := rand.Read(nonce); err != nil {
		return false
	}
	resp, err := client.Ping(ctx, &PingRequest{
		Src:    ToWireAddress(o.self),
		Dst:    ToWireAddress(n),
		RandID: nonce,
	})
	if err != nil {
		return false
	}
	return bytesEqual(resp.RandID, nonce)
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Ping answers a liveness check by echoing the nonce unchanged.
func (o *Overlay) Ping(ctx context.Context, req *PingRequest) (*PongResponse, error) {
	if err := o.matchesSelf(req.Dst); err != nil {
		return nil, err
	}
	if srcNode, err := req.Src.Node(); err == nil {
		if _, hasCandidate := o.kad.AddNode(srcNode); !hasCandidate {
			o.kad.SendBack(srcNode.ID)
		}
	}
	return &PongResponse{RandID: req.RandID}, nil
}

// FindNode returns a direct hit when target is known locally, else the K
// nearest known peers.
func (o *Overlay) FindNode(ctx context.Context, req *FindNodeRequest) (*FindNodeResponse, error) {
	src, err := o.preamble(ctx, req.Src, req.Dst, true)
	if err != nil {
		return nil, err
	}
	o.kad.IncrementInteractions(src.ID)
	o.kad.IncrementLookups(src.ID)

	target, err := IdentifierFromBytes(req.Target)
	if err != nil {
		return nil, newProtocolViolation("bad target id length")
	}
	if n, ok := o.kad.GetNode(target); ok {
		wa := ToWireAddress(n)
		return &FindNodeResponse{Kind: KindFound, Node: &wa}, nil
	}
	nearest := o.kad.KNearestTo(target)
	return &FindNodeResponse{Kind: KindKNearest, Nodes: toWireAddresses(nearest)}, nil
}

// FindValue returns a direct hit when key is stored locally, else the K
// nearest known peers.
func (o *Overlay) FindValue(ctx context.Context, req *FindValueRequest) (*FindValueResponse, error) {
	if o.bootstrapOnly {
		return nil, newProtocolViolation("bootstrap nodes do not serve FindValue")
	}
	src, err := o.preamble(ctx, req.Src, req.Dst, true)
	if err != nil {
		return nil, err
	}
	o.kad.IncrementInteractions(src.ID)
	o.kad.IncrementLookups(src.ID)

	target, err := IdentifierFromBytes(req.Target)
	if err != nil {
		return nil, newProtocolViolation("bad target id length")
	}
	if v, ok := o.kad.GetValue(target); ok {
		return &FindValueResponse{Kind: KindFound, Value: v}, nil
	}
	nearest := o.kad.KNearestTo(target)
	return &FindValueResponse{Kind: KindKNearest, Nodes: toWireAddresses(nearest)}, nil
}

// Store saves the value locally when no peer among the K closest known
// nodes is strictly closer to key than this node (see Kademlia.IsClosest).
// Otherwise it answers KindForwarded without storing anything; the response
// carries no peer list, and this handler does not pass the value on to any
// peer itself.
func (o *Overlay) Store(ctx context.Context, req *StoreRequest) (*StoreResponse, error) {
	if o.bootstrapOnly {
		return nil, newProtocolViolation("bootstrap nodes do not serve Store")
	}
	src, err := o.preamble(ctx, req.Src, req.Dst, true)
	if err != nil {
		return nil, err
	}
	o.kad.IncrementInteractions(src.ID)
	o.kad.IncrementLookups(src.ID)

	key, err := IdentifierFromBytes(req.Key)
	if err != nil {
		return nil, newProtocolViolation("bad key length")
	}
	if _, forward := o.kad.IsClosest(key); forward {
		return &StoreResponse{Kind: KindForwarded}, nil
	}
	o.kad.AddKey(key, req.Value)
	return &StoreResponse{Kind: KindLocal}, nil
}

// SendMarco admits a gossiped marco to the blockchain engine. It skips the
// liveness-ping preamble for latency, relying on signature and hash
// validation instead.
func (o *Overlay) SendMarco(ctx context.Context, req *SendMarcoRequest) (*Ack, error) {
	if o.bootstrapOnly {
		return nil, newProtocolViolation("bootstrap nodes do not serve SendMarco")
	}
	if err := o.matchesSelf(req.Dst); err != nil {
		return nil, err
	}
	if req.TTL < 1 || req.TTL > 15 {
		return &Ack{}, nil
	}
	m, err := req.Marco.Marco()
	if err != nil {
		return nil, err
	}
	srcNode, srcErr := req.Src.Node()

	accepted, _, err := o.chain.AddMarco(m, o.verifyPub)
	if err != nil {
		if srcErr == nil {
			o.kad.RiskPenalty(srcNode.ID)
		}
		return nil, err
	}
	if accepted && srcErr == nil {
		o.kad.ReputationReward(srcNode.ID)
	}
	if accepted {
		if nextTTL, ok := ShouldReforward(req.TTL); ok {
			var sender *Identifier
			if srcErr == nil {
				sender = &srcNode.ID
			}
			go o.broadcast.BroadcastMarco(context.Background(), m, nextTTL, sender)
		}
	}
	return &Ack{}, nil
}

// SendBlock admits a gossiped block to the blockchain engine, same
// preamble-skipping rationale as SendMarco.
func (o *Overlay) SendBlock(ctx context.Context, req *SendBlockRequest) (*Ack, error) {
	if o.bootstrapOnly {
		return nil, newProtocolViolation("bootstrap nodes do not serve SendBlock")
	}
	if err := o.matchesSelf(req.Dst); err != nil {
		return nil, err
	}
	if req.TTL < 1 || req.TTL > 15 {
		return &Ack{}, nil
	}
	b, err := req.Block.Block()
	if err != nil {
		return nil, err
	}
	srcNode, srcErr := req.Src.Node()

	if !b.CheckHash() {
		if srcErr == nil {
			o.kad.RiskPenalty(srcNode.ID)
		}
		return nil, newValidationError("block fails proof-of-work check")
	}
	if !o.chain.AddBlock(b) {
		return &Ack{}, newStaleBlock(fmt.Sprintf("unknown prev-hash %s", b.PrevHash))
	}
	if srcErr == nil {
		o.kad.ReputationReward(srcNode.ID)
	}
	if nextTTL, ok := ShouldReforward(req.TTL); ok {
		var sender *Identifier
		if srcErr == nil {
			sender = &srcNode.ID
		}
		go o.broadcast.BroadcastBlock(context.Background(), b, nextTTL, sender)
	}
	return &Ack{}, nil
}

// GetBlock returns a direct hit when block-hash is known locally, else the
// K nearest-by-trust peers (no XOR metric applies to block hashes).
func (o *Overlay) GetBlock(ctx context.Context, req *GetBlockRequest) (*GetBlockResponse, error) {
	if o.bootstrapOnly {
		return nil, newProtocolViolation("bootstrap nodes do not serve GetBlock")
	}
	src, err := o.preamble(ctx, req.Src, req.Dst, true)
	if err != nil {
		return nil, err
	}
	o.kad.IncrementInteractions(src.ID)
	o.kad.IncrementLookups(src.ID)

	if b, ok := o.chain.GetBlockByHash(req.BlockHash); ok {
		wb := ToWireBlock(b)
		return &GetBlockResponse{Kind: KindFound, Block: &wb}, nil
	}
	nearest := o.kad.KNewDistance()
	return &GetBlockResponse{Kind: KindKNearest, Nodes: toWireAddresses(nearest)}, nil
}

func toWireAddresses(nodes []Node) []WireAddress {
	out := make([]WireAddress, len(nodes))
	for i, n := range nodes {
		out[i] = ToWireAddress(n)
	}
	return out
}
