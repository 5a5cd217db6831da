package core

import (
	"sort"
	"sync"
)

// trustBeta weights XOR proximity against trust score in the new-distance
// metric (spec: β≈0.65).
const trustBeta = 0.65

// RoutingTable is an array of IDLen k-buckets indexed by distance from the
// local node, with trust-weighted re-ranking layered on top of the raw XOR
// metric. A single mutex protects it; critical sections never perform
// network I/O, so the mutex is never held across a suspension point.
type RoutingTable struct {
	mu      sync.Mutex
	self    Identifier
	buckets [IDLen]*Bucket
}

// NewRoutingTable returns a routing table for the given local node id, with
// every bucket initialized empty.
func NewRoutingTable(self Identifier) *RoutingTable {
	rt := &RoutingTable{self: self}
	for i := range rt.buckets {
		rt.buckets[i] = NewBucket()
	}
	return rt
}

// bucketIndex maps a node id to its bucket slot. XORDistance returns the
// count of leading equal bits (IDLen for an exact match down to 0 for a
// first-bit mismatch); the bucket holding the closest peers is index 0, so
// we invert and shift by one to keep indices in [0, IDLen-1] (self, whose
// distance is IDLen, is rejected by callers before this is ever invoked).
func bucketIndex(self, id Identifier) int {
	d := XORDistance(self, id)
	idx := IDLen - 1 - d
	if idx < 0 {
		idx = 0
	}
	if idx >= IDLen {
		idx = IDLen - 1
	}
	return idx
}

// Add inserts node into its bucket. It returns the bucket's head (oldest
// contact) as an eviction candidate when the bucket was already full; the
// caller is expected to ping that candidate and call Replace or SendBack
// depending on the outcome. Self id is rejected silently, matching the
// data model's "self is never stored" invariant.
func (rt *RoutingTable) Add(n Node) (evictionCandidate Node, hasCandidate bool) {
	if n.ID == rt.self {
		return Node{}, false
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()
	b := rt.buckets[bucketIndex(rt.self, n.ID)]
	if b.Add(n) {
		return Node{}, false
	}
	head, ok := b.Head()
	if !ok {
		return Node{}, false
	}
	return head, true
}

// ReplaceHead evicts the head of n's bucket and appends n at that bucket's
// tail, used after a liveness ping to the old head times out.
func (rt *RoutingTable) ReplaceHead(n Node) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.buckets[bucketIndex(rt.self, n.ID)].Replace(n)
}

// Promote moves id to the tail of its bucket, marking it as just contacted.
func (rt *RoutingTable) Promote(id Identifier) bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.buckets[bucketIndex(rt.self, id)].SendBack(id)
}

// Get looks up id within its bucket.
func (rt *RoutingTable) Get(id Identifier) (Node, bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	n, _, ok := rt.buckets[bucketIndex(rt.self, id)].Get(id)
	return n, ok
}

// Remove drops id from the table entirely.
func (rt *RoutingTable) Remove(id Identifier) bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.buckets[bucketIndex(rt.self, id)].Remove(id)
}

// Trust returns a snapshot copy of id's trust accumulator.
func (rt *RoutingTable) Trust(id Identifier) (TrustScore, bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	t, ok := rt.buckets[bucketIndex(rt.self, id)].Trust(id)
	if !ok {
		return TrustScore{}, false
	}
	return *t, true
}

// mutateTrust applies fn to id's trust accumulator in place, a no-op if the
// node is unknown (an unseen peer has nothing to penalize or reward).
func (rt *RoutingTable) mutateTrust(id Identifier, fn func(*TrustScore)) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	t, ok := rt.buckets[bucketIndex(rt.self, id)].Trust(id)
	if !ok {
		return
	}
	fn(t)
}

// ReputationReward applies a good-reputation update to id.
func (rt *RoutingTable) ReputationReward(id Identifier) {
	rt.mutateTrust(id, (*TrustScore).GoodReputation)
}

// ReputationPenalty applies a bad-reputation update to id.
func (rt *RoutingTable) ReputationPenalty(id Identifier) {
	rt.mutateTrust(id, (*TrustScore).BadReputation)
}

// RiskPenalty records a misbehavior event against id.
func (rt *RoutingTable) RiskPenalty(id Identifier) {
	rt.mutateTrust(id, (*TrustScore).BadInteraction)
}

// IncrementInteractions records that a request/response round-trip with id
// happened at all, successful or not.
func (rt *RoutingTable) IncrementInteractions(id Identifier) {
	rt.mutateTrust(id, (*TrustScore).NewInteraction)
}

// IncrementLookups records that id was consulted during an iterative lookup.
func (rt *RoutingTable) IncrementLookups(id Identifier) {
	rt.mutateTrust(id, (*TrustScore).NewLookup)
}

// candidate pairs a node with its plain XOR distance to some target, used
// internally while collecting n_closest results.
type candidate struct {
	node Node
	dist int
}

// NClosest performs the zig-zag bucket walk from k_buckets.rs's
// get_n_closest_nodes: start at the bucket target would occupy, then probe
// -1, +1, -2, +2, ... in that order, collecting bucket contents (head to
// tail) until n nodes have been gathered or every bucket has been visited.
// Deterministic: lower indices are visited before higher at the same
// zig-zag step.
func (rt *RoutingTable) NClosest(target Identifier, n int) []Node {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	start := bucketIndex(rt.self, target)
	out := make([]candidate, 0, n)
	visited := make(map[int]bool, IDLen)

	collect := func(idx int) bool {
		if idx < 0 || idx >= IDLen || visited[idx] {
			return len(out) >= n
		}
		visited[idx] = true
		for _, node := range rt.buckets[idx].Peers() {
			out = append(out, candidate{node: node, dist: XORDistance(target, node.ID)})
			if len(out) >= n {
				return true
			}
		}
		return len(out) >= n
	}

	if !collect(start) {
		for offset := 1; offset < IDLen && len(visited) < IDLen; offset++ {
			if collect(start - offset) {
				break
			}
			if collect(start + offset) {
				break
			}
		}
	}
	return finalizeClosest(out, n)
}

// finalizeClosest sorts collected candidates by descending XOR distance
// (higher leading-bit count == closer, so "non-decreasing distance" in the
// spec's numeric-proximity sense means descending on our leading-bits
// measure) and truncates to n.
func finalizeClosest(out []candidate, n int) []Node {
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].dist != out[j].dist {
			return out[i].dist > out[j].dist
		}
		return out[i].node.ID.String() < out[j].node.ID.String()
	})
	if len(out) > n {
		out = out[:n]
	}
	nodes := make([]Node, len(out))
	for i, c := range out {
		nodes[i] = c.node
	}
	return nodes
}

// TrustSorted re-ranks candidates by the new-distance metric: β·XOR_distance
// + (1-β)·(1/score), ascending (smaller is better), tie-broken by id. At
// most K results are returned.
func (rt *RoutingTable) TrustSorted(target Identifier, candidates []Node) []Node {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	type scored struct {
		node        Node
		newDistance float64
	}
	scoredNodes := make([]scored, 0, len(candidates))
	for _, n := range candidates {
		dist := float64(IDLen - XORDistance(target, n.ID))
		score := scoreEpsilon
		if ts, ok := rt.buckets[bucketIndex(rt.self, n.ID)].Trust(n.ID); ok {
			score = ts.Score()
		}
		newDistance := trustBeta*dist + (1-trustBeta)*(1/score)
		scoredNodes = append(scoredNodes, scored{node: n, newDistance: newDistance})
	}
	sort.SliceStable(scoredNodes, func(i, j int) bool {
		if scoredNodes[i].newDistance != scoredNodes[j].newDistance {
			return scoredNodes[i].newDistance < scoredNodes[j].newDistance
		}
		return scoredNodes[i].node.ID.String() < scoredNodes[j].node.ID.String()
	})
	if len(scoredNodes) > BucketSize {
		scoredNodes = scoredNodes[:BucketSize]
	}
	nodes := make([]Node, len(scoredNodes))
	for i, s := range scoredNodes {
		nodes[i] = s.node
	}
	return nodes
}

// KNewDistance ranks every known node by trust score alone (no XOR metric),
// used when a structural distance measure does not apply — e.g. GetBlock,
// which is keyed by block hash in a separate namespace from node ids.
func (rt *RoutingTable) KNewDistance() []Node {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	type scored struct {
		node  Node
		score float64
	}
	var all []scored
	for _, b := range rt.buckets {
		for _, n := range b.Peers() {
			ts, ok := b.Trust(n.ID)
			score := scoreEpsilon
			if ok {
				score = ts.Score()
			}
			all = append(all, scored{node: n, score: score})
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].score != all[j].score {
			return all[i].score > all[j].score
		}
		return all[i].node.ID.String() < all[j].node.ID.String()
	})
	if len(all) > BucketSize {
		all = all[:BucketSize]
	}
	nodes := make([]Node, len(all))
	for i, s := range all {
		nodes[i] = s.node
	}
	return nodes
}

// AllNodes returns every node currently in the table, unordered.
func (rt *RoutingTable) AllNodes() []Node {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	var all []Node
	for _, b := range rt.buckets {
		all = append(all, b.Peers()...)
	}
	return all
}
