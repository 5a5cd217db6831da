package core

import (
	"context"
	"crypto/rsa"
	"crypto/tls"
	"fmt"
	"net"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
)

var nodeLog = logrus.WithField("subsystem", "overlay")

// DefaultBootstrapPort is the shared, well-known port bootstrap peers
// listen on.
const DefaultBootstrapPort = 8635

// LocalNode wires together the Kademlia facade, the blockchain engine, the
// gRPC/mTLS transport and the lookup/broadcast drivers into one runnable
// overlay peer.
type LocalNode struct {
	self      Node
	kad       *Kademlia
	chain     *BlockchainEngine
	overlay   *Overlay
	lookup    *LookupDriver
	broadcast *BroadcastDriver

	tlsConfig *tls.Config
	privKey   *rsa.PrivateKey
	pubKey    *rsa.PublicKey

	grpcServer *grpc.Server
}

// NodeConfig bundles the construction parameters a LocalNode needs; kept
// separate from pkg/config.Config so this package has no import on the
// CLI-facing configuration layer.
type NodeConfig struct {
	Self          Node
	TLSConfig     *tls.Config
	PrivateKey    *rsa.PrivateKey
	PublicKey     *rsa.PublicKey
	IsMiner       bool
	MiningReward  float64
	BootstrapOnly bool
}

// NewLocalNode constructs a fully wired node: routing table, chain engine,
// RPC server handler, and lookup/broadcast drivers, all bound to the same
// dialer so every outbound call shares the same mTLS credentials.
func NewLocalNode(cfg NodeConfig) *LocalNode {
	n := &LocalNode{
		self:      cfg.Self,
		tlsConfig: cfg.TLSConfig,
		privKey:   cfg.PrivateKey,
		pubKey:    cfg.PublicKey,
	}
	n.kad = NewKademlia(cfg.Self)
	n.chain = NewBlockchainEngine(cfg.IsMiner, cfg.Self.ID.String(), cfg.MiningReward)
	n.overlay = NewOverlay(n.kad, n.chain, n.dial, cfg.BootstrapOnly, cfg.PublicKey)
	n.lookup = NewLookupDriver(cfg.Self, n.kad, n.dial)
	n.broadcast = NewBroadcastDriver(cfg.Self, n.kad, n.dial)
	return n
}

// Kademlia, Chain, Lookup and Broadcast expose the wired subsystems for the
// CLI layer.
func (n *LocalNode) Kademlia() *Kademlia         { return n.kad }
func (n *LocalNode) Chain() *BlockchainEngine    { return n.chain }
func (n *LocalNode) Lookup() *LookupDriver       { return n.lookup }
func (n *LocalNode) Broadcast() *BroadcastDriver { return n.broadcast }
func (n *LocalNode) Self() Node                  { return n.self }

// dial opens a fresh mTLS connection per call; connections are never
// pooled.
func (n *LocalNode) dial(ctx context.Context, addr string) (OverlayClient, func() error, error) {
	creds := credentials.NewTLS(n.tlsConfig)
	conn, err := grpc.DialContext(ctx, addr,
		grpc.WithTransportCredentials(creds),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(jsonCodecName)),
	)
	if err != nil {
		return nil, nil, newTransportError(fmt.Sprintf("dial %s: %v", addr, err))
	}
	return NewOverlayClient(conn), conn.Close, nil
}

// ListenAndServe starts the mTLS gRPC server on listenAddr and blocks until
// it stops or errors.
func (n *LocalNode) ListenAndServe(listenAddr string) error {
	lis, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return fmt.Errorf("core: listen on %s: %w", listenAddr, err)
	}
	creds := credentials.NewTLS(n.tlsConfig)
	n.grpcServer = grpc.NewServer(grpc.Creds(creds))
	n.grpcServer.RegisterService(&OverlayServiceDesc, n.overlay)
	nodeLog.WithField("addr", listenAddr).Info("overlay listening")
	return n.grpcServer.Serve(lis)
}

// Close gracefully stops the gRPC server, if running.
func (n *LocalNode) Close() {
	if n.grpcServer != nil {
		n.grpcServer.GracefulStop()
	}
}

// broadcastStartTTL is the TTL a self-originated marco or block starts its
// gossip life at, matching the upper bound ShouldReforward accepts.
const broadcastStartTTL = 15

// SubmitMarco builds a Marco from data, signs it (when the node carries a
// private key), admits it to the local chain, and fans it out to the mesh —
// the Go-idiom equivalent of the original's Auction::add_and_broadcast.
func (n *LocalNode) SubmitMarco(ctx context.Context, data MarcoData) (*Marco, error) {
	m := NewMarco(data)
	if n.privKey != nil {
		if err := m.Sign(n.privKey); err != nil {
			return nil, fmt.Errorf("core: sign marco: %w", err)
		}
	}
	accepted, block, err := n.chain.AddMarco(m, n.pubKey)
	if err != nil {
		return nil, err
	}
	if !accepted {
		return m, nil
	}
	go n.broadcast.BroadcastMarco(ctx, m, broadcastStartTTL, nil)
	if block != nil {
		go n.broadcast.BroadcastBlock(ctx, block, broadcastStartTTL, nil)
	}
	return m, nil
}

// Bootstrap seeds the routing table from addrs (already-resolved bootstrap
// nodes; see LoadBootstrapFile), then runs a self-lookup to populate
// nearby buckets.
func (n *LocalNode) Bootstrap(ctx context.Context, addrs []Node) error {
	for _, a := range addrs {
		n.kad.AddNode(a)
	}
	if len(addrs) == 0 {
		return nil
	}
	_, err := n.lookup.FindNode(ctx, n.self.ID)
	if err != nil {
		if kind, ok := KindOf(err); ok && kind == KindNotFound {
			return nil
		}
		return err
	}
	return nil
}
