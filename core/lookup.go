package core

import (
	"container/heap"
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
)

// lookupAlpha bounds concurrent outbound calls per lookup round.
const lookupAlpha = 7

// nodeNewDistance is a priority-queue entry keyed by trust-weighted
// new-distance, the Go analogue of peer_rpc_client.rs's NodeNewDistance.
// Smaller new-distance is better; container/heap pops the minimum under
// Less, so Less compares newDistance directly and the best candidate pops
// first.
type nodeNewDistance struct {
	node        Node
	newDistance float64
}

type trustPriorityQueue []nodeNewDistance

func (q trustPriorityQueue) Len() int            { return len(q) }
func (q trustPriorityQueue) Less(i, j int) bool  { return q[i].newDistance < q[j].newDistance }
func (q trustPriorityQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *trustPriorityQueue) Push(x any)         { *q = append(*q, x.(nodeNewDistance)) }
func (q *trustPriorityQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// probeResult is what a single outbound RPC attempt yields: either a hit
// (payload set) or a set of neighbour nodes to keep exploring, or an error
// if the call itself failed.
type probeResult struct {
	hit        bool
	value      string
	node       *Node
	block      *Block
	neighbours []Node
	err        error
}

// LookupDriver runs the iterative FindNode/FindValue/GetBlock algorithm
// ported from peer_rpc_client.rs's find_node.
type LookupDriver struct {
	self Node
	kad  *Kademlia
	dial dialFunc
	sem  *semaphore.Weighted
}

// NewLookupDriver builds a driver bound to the local node's routing table
// and dialer.
func NewLookupDriver(self Node, kad *Kademlia, dial dialFunc) *LookupDriver {
	return &LookupDriver{self: self, kad: kad, dial: dial, sem: semaphore.NewWeighted(lookupAlpha)}
}

// lookupState tracks the shared bookkeeping every verb's iterative search
// needs: which peers have already been queried, who recommended whom, and
// the trust-sorted overflow queue once the XOR frontier runs dry.
type lookupState struct {
	alreadyQueried map[Identifier]bool
	queued         map[Identifier]bool
	referredBy     map[Identifier][]Identifier
	queue          trustPriorityQueue
}

func newLookupState() *lookupState {
	return &lookupState{
		alreadyQueried: make(map[Identifier]bool),
		queued:         make(map[Identifier]bool),
		referredBy:     make(map[Identifier][]Identifier),
	}
}

// FindNode iteratively searches for target, returning the node once found.
func (d *LookupDriver) FindNode(ctx context.Context, target Identifier) (Node, error) {
	probe := func(ctx context.Context, client OverlayClient, dst Node) probeResult {
		resp, err := client.FindNode(ctx, &FindNodeRequest{
			Src:    ToWireAddress(d.self),
			Dst:    ToWireAddress(dst),
			Target: target.Bytes(),
		})
		if err != nil {
			return probeResult{err: err}
		}
		if resp.Kind == KindFound && resp.Node != nil {
			n, err := resp.Node.Node()
			if err != nil {
				return probeResult{err: err}
			}
			return probeResult{hit: true, node: &n}
		}
		return probeResult{neighbours: wireNodesToNodes(resp.Nodes)}
	}

	result, err := d.run(ctx, target, d.kad.KNearestTo(target), probe)
	if err != nil {
		return Node{}, err
	}
	return *result.node, nil
}

// FindValue iteratively searches for key, returning the stored value once
// found.
func (d *LookupDriver) FindValue(ctx context.Context, key Identifier) (string, error) {
	probe := func(ctx context.Context, client OverlayClient, dst Node) probeResult {
		resp, err := client.FindValue(ctx, &FindValueRequest{
			Src:    ToWireAddress(d.self),
			Dst:    ToWireAddress(dst),
			Target: key.Bytes(),
		})
		if err != nil {
			return probeResult{err: err}
		}
		if resp.Kind == KindFound {
			return probeResult{hit: true, value: resp.Value}
		}
		return probeResult{neighbours: wireNodesToNodes(resp.Nodes)}
	}

	result, err := d.run(ctx, key, d.kad.KNearestTo(key), probe)
	if err != nil {
		return "", err
	}
	return result.value, nil
}

// GetBlock iteratively searches for the block with the given hash. It
// seeds from trust-ranked peers (k_new_distance) since block hashes live
// in a namespace with no XOR metric.
func (d *LookupDriver) GetBlock(ctx context.Context, blockHash string) (*Block, error) {
	probe := func(ctx context.Context, client OverlayClient, dst Node) probeResult {
		resp, err := client.GetBlock(ctx, &GetBlockRequest{
			Src:       ToWireAddress(d.self),
			Dst:       ToWireAddress(dst),
			BlockHash: blockHash,
		})
		if err != nil {
			return probeResult{err: err}
		}
		if resp.Kind == KindFound && resp.Block != nil {
			b, err := resp.Block.Block()
			if err != nil {
				return probeResult{err: err}
			}
			return probeResult{hit: true, block: b}
		}
		return probeResult{neighbours: wireNodesToNodes(resp.Nodes)}
	}

	seed := d.kad.KNewDistance()
	result, err := d.runNoXOR(ctx, seed, probe)
	if err != nil {
		return nil, err
	}
	return result.block, nil
}

// run drives the common XOR-frontier-then-trust-queue loop shared by
// FindNode and FindValue.
func (d *LookupDriver) run(ctx context.Context, target Identifier, seed []Node, probe func(context.Context, OverlayClient, Node) probeResult) (probeResult, error) {
	if len(seed) == 0 {
		return probeResult{}, newNoPeers("lookup could not seed: routing table empty")
	}
	state := newLookupState()
	frontier := append([]Node(nil), seed...)

	for len(frontier) > 0 {
		batch := frontier
		if len(batch) > lookupAlpha {
			batch = batch[:lookupAlpha]
		}
		frontier = frontier[len(batch):]

		hit, hitResult, err := d.queryBatch(ctx, batch, state, probe)
		if err != nil {
			return probeResult{}, err
		}
		if hit {
			return hitResult, nil
		}
	}

	for state.queue.Len() > 0 {
		batch := state.popBatch(lookupAlpha)
		hit, hitResult, err := d.queryBatch(ctx, batch, state, probe)
		if err != nil {
			return probeResult{}, err
		}
		if hit {
			return hitResult, nil
		}
	}

	return probeResult{}, newNotFound(fmt.Sprintf("target %s not found", target))
}

// runNoXOR is GetBlock's variant: there is no XOR frontier, only the
// trust-sorted queue from the start.
func (d *LookupDriver) runNoXOR(ctx context.Context, seed []Node, probe func(context.Context, OverlayClient, Node) probeResult) (probeResult, error) {
	if len(seed) == 0 {
		return probeResult{}, newNoPeers("lookup could not seed: routing table empty")
	}
	state := newLookupState()
	for _, n := range seed {
		heap.Push(&state.queue, nodeNewDistance{node: n, newDistance: 0})
	}
	for state.queue.Len() > 0 {
		batch := state.popBatch(lookupAlpha)
		hit, hitResult, err := d.queryBatch(ctx, batch, state, probe)
		if err != nil {
			return probeResult{}, err
		}
		if hit {
			return hitResult, nil
		}
	}
	return probeResult{}, newNotFound("block not found")
}

// popBatch pops up to n entries off the trust queue.
func (s *lookupState) popBatch(n int) []Node {
	out := make([]Node, 0, n)
	for s.queue.Len() > 0 && len(out) < n {
		out = append(out, heap.Pop(&s.queue).(nodeNewDistance).node)
	}
	return out
}

// queryBatch fires the given batch of peers concurrently under the
// driver's semaphore, applying the trust reward/penalty rules.
func (d *LookupDriver) queryBatch(ctx context.Context, batch []Node, state *lookupState, probe func(context.Context, OverlayClient, Node) probeResult) (bool, probeResult, error) {
	type outcome struct {
		node   Node
		result probeResult
	}
	results := make(chan outcome, len(batch))

	for _, n := range batch {
		if state.alreadyQueried[n.ID] {
			results <- outcome{node: n, result: probeResult{err: fmt.Errorf("already queried")}}
			continue
		}
		state.alreadyQueried[n.ID] = true
		d.kad.IncrementInteractions(n.ID)
		d.kad.IncrementLookups(n.ID)
		d.kad.SendBack(n.ID)

		go func(n Node) {
			if err := d.sem.Acquire(ctx, 1); err != nil {
				results <- outcome{node: n, result: probeResult{err: err}}
				return
			}
			defer d.sem.Release(1)

			client, closeFn, err := d.dial(ctx, n.Addr())
			if err != nil {
				results <- outcome{node: n, result: probeResult{err: err}}
				return
			}
			defer closeFn()
			results <- outcome{node: n, result: probe(ctx, client, n)}
		}(n)
	}

	var hitNode Node
	var hitResult probeResult
	found := false
	for range batch {
		o := <-results
		if o.result.err != nil {
			d.kad.RiskPenalty(o.node.ID)
			continue
		}
		if o.result.hit {
			found = true
			hitNode = o.node
			hitResult = o.result
			continue
		}
		for _, nb := range o.result.neighbours {
			if nb.ID == d.self.ID || state.alreadyQueried[nb.ID] {
				continue
			}
			state.referredBy[nb.ID] = append(state.referredBy[nb.ID], o.node.ID)
			if state.queued[nb.ID] {
				continue
			}
			state.queued[nb.ID] = true
			trust, ok := d.kad.TrustScoreOf(nb.ID)
			score := scoreEpsilon
			if ok {
				score = trust.Score()
			}
			heap.Push(&state.queue, nodeNewDistance{node: nb, newDistance: 1 / score})
		}
	}

	if !found {
		return false, probeResult{}, nil
	}

	d.rewardChain(hitNode.ID, state)
	for queried := range state.alreadyQueried {
		if !d.inRewardChain(queried, hitNode.ID, state) {
			d.kad.ReputationPenalty(queried)
		}
	}
	return true, hitResult, nil
}

// rewardChain rewards the responder and walks referredBy backward,
// rewarding every ancestor that recommended the path to it.
func (d *LookupDriver) rewardChain(id Identifier, state *lookupState) {
	d.kad.ReputationReward(id)
	for _, ancestor := range state.referredBy[id] {
		d.rewardChain(ancestor, state)
	}
}

// inRewardChain reports whether candidate lies on hit's referral chain.
func (d *LookupDriver) inRewardChain(candidate, hit Identifier, state *lookupState) bool {
	if candidate == hit {
		return true
	}
	for _, ancestor := range state.referredBy[hit] {
		if d.inRewardChain(candidate, ancestor, state) {
			return true
		}
	}
	return false
}

func wireNodesToNodes(addrs []WireAddress) []Node {
	out := make([]Node, 0, len(addrs))
	for _, a := range addrs {
		if n, err := a.Node(); err == nil {
			out = append(out, n)
		}
	}
	return out
}
