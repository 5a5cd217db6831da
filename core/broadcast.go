package core

import (
	"context"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

var broadcastLog = logrus.WithField("subsystem", "overlay")

// broadcastFanout bounds concurrent outbound broadcast connections.
const broadcastFanout = 16

// broadcastChunks approximates IDLen/16, the number of partitions a large
// mesh's peer set is split into so per-task overhead and burst connection
// counts both stay bounded.
const broadcastChunks = IDLen / 16

// BroadcastDriver fans marcos and blocks out to the overlay, honoring
// TTL-bounded re-gossip.
type BroadcastDriver struct {
	self Node
	kad  *Kademlia
	dial dialFunc
	sem  *semaphore.Weighted
}

// NewBroadcastDriver builds a driver bound to the local node's routing
// table and dialer.
func NewBroadcastDriver(self Node, kad *Kademlia, dial dialFunc) *BroadcastDriver {
	return &BroadcastDriver{self: self, kad: kad, dial: dial, sem: semaphore.NewWeighted(broadcastFanout)}
}

// partition splits targets into up to broadcastChunks roughly-even chunks.
func partition(targets []Node) [][]Node {
	if len(targets) == 0 {
		return nil
	}
	chunks := broadcastChunks
	if chunks > len(targets) {
		chunks = len(targets)
	}
	if chunks < 1 {
		chunks = 1
	}
	out := make([][]Node, chunks)
	for i, n := range targets {
		idx := i % chunks
		out[idx] = append(out[idx], n)
	}
	return out
}

// targetsExcluding returns every known node except sender and self.
func (d *BroadcastDriver) targetsExcluding(sender *Identifier) []Node {
	all := d.kad.GetAllNodes()
	out := make([]Node, 0, len(all))
	for _, n := range all {
		if n.ID == d.self.ID {
			continue
		}
		if sender != nil && n.ID == *sender {
			continue
		}
		out = append(out, n)
	}
	return out
}

// BroadcastMarco fans m out to every peer but sender (if any), at ttl,
// bounded by a semaphore of width broadcastFanout and partitioned into
// ~IDLen/16 chunks handled one task per chunk.
func (d *BroadcastDriver) BroadcastMarco(ctx context.Context, m *Marco, ttl int32, sender *Identifier) {
	wire := ToWireMarco(m)
	chunks := partition(d.targetsExcluding(sender))
	d.fanOut(ctx, chunks, func(ctx context.Context, client OverlayClient, dst Node) error {
		_, err := client.SendMarco(ctx, &SendMarcoRequest{
			Src:   ToWireAddress(d.self),
			Dst:   ToWireAddress(dst),
			Marco: wire,
			TTL:   ttl,
		})
		return err
	})
}

// BroadcastBlock fans b out the same way BroadcastMarco does.
func (d *BroadcastDriver) BroadcastBlock(ctx context.Context, b *Block, ttl int32, sender *Identifier) {
	wire := ToWireBlock(b)
	chunks := partition(d.targetsExcluding(sender))
	d.fanOut(ctx, chunks, func(ctx context.Context, client OverlayClient, dst Node) error {
		_, err := client.SendBlock(ctx, &SendBlockRequest{
			Src:   ToWireAddress(d.self),
			Dst:   ToWireAddress(dst),
			Block: wire,
			TTL:   ttl,
		})
		return err
	})
}

// fanOut spawns one task per chunk, each sequentially posting to every
// target in its chunk, with the whole driver bounded by broadcastFanout.
func (d *BroadcastDriver) fanOut(ctx context.Context, chunks [][]Node, post func(context.Context, OverlayClient, Node) error) {
	done := make(chan struct{}, len(chunks))
	for _, chunk := range chunks {
		go func(chunk []Node) {
			defer func() { done <- struct{}{} }()
			if err := d.sem.Acquire(ctx, 1); err != nil {
				return
			}
			defer d.sem.Release(1)
			for _, dst := range chunk {
				client, closeFn, err := d.dial(ctx, dst.Addr())
				if err != nil {
					broadcastLog.WithError(err).WithField("peer", dst.ID).Warn("broadcast dial failed")
					continue
				}
				if err := post(ctx, client, dst); err != nil {
					broadcastLog.WithError(err).WithField("peer", dst.ID).Warn("broadcast post failed")
				}
				closeFn()
			}
		}(chunk)
	}
	for range chunks {
		<-done
	}
}

// ShouldReforward reports whether an incoming ttl should be re-gossiped
// (1 < ttl <= 15) and returns the decremented ttl. TTLs outside the range
// are dropped silently.
func ShouldReforward(ttl int32) (int32, bool) {
	if ttl > 1 && ttl <= 15 {
		return ttl - 1, true
	}
	return 0, false
}
