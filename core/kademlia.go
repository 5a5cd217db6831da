package core

import "sync"

// Kademlia wraps a RoutingTable with a local key/value map, the two pieces
// the rest of the overlay (RPC handlers, lookup driver) actually talk to.
// It owns no network I/O: callers hand it results from the wire and it
// updates local state, matching the concurrency model's "mutate under a
// short-held mutex, then do I/O from local copies" discipline.
type Kademlia struct {
	self  Node
	table *RoutingTable

	mu    sync.RWMutex
	store map[Identifier]string
}

// NewKademlia creates a Kademlia facade bound to the local node.
func NewKademlia(self Node) *Kademlia {
	return &Kademlia{
		self:  self,
		table: NewRoutingTable(self.ID),
		store: make(map[Identifier]string),
	}
}

// Self returns the local node.
func (k *Kademlia) Self() Node { return k.self }

// Table exposes the underlying routing table for RPC handlers that need
// direct bucket operations (add/promote/replace around the liveness-ping
// preamble).
func (k *Kademlia) Table() *RoutingTable { return k.table }

// AddKey stores value under key in the local DHT map.
func (k *Kademlia) AddKey(key Identifier, value string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.store[key] = value
}

// GetValue retrieves a previously stored value.
func (k *Kademlia) GetValue(key Identifier) (string, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	v, ok := k.store[key]
	return v, ok
}

// RemoveKey deletes a key from the local DHT map.
func (k *Kademlia) RemoveKey(key Identifier) {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.store, key)
}

// IsClosest decides whether a Store for key terminates here or must be
// forwarded: it returns (nil, false) iff no peer among the K closest known
// nodes is strictly closer to key than the local node, meaning local
// storage is authoritative. Otherwise it returns those K closest peers so
// the caller can forward Store to them instead.
func (k *Kademlia) IsClosest(key Identifier) ([]Node, bool) {
	ownDistance := XORDistance(k.self.ID, key)
	closest := k.table.NClosest(key, BucketSize)
	for _, n := range closest {
		if XORDistance(n.ID, key) > ownDistance {
			return closest, true
		}
	}
	return nil, false
}

// KNearestTo returns up to K nodes ordered by XOR proximity to target.
func (k *Kademlia) KNearestTo(target Identifier) []Node {
	return k.table.NClosest(target, BucketSize)
}

// KNewDistance returns up to K nodes ordered by trust score alone, used
// when the lookup has no structural XOR key to sort by (GetBlock).
func (k *Kademlia) KNewDistance() []Node {
	return k.table.KNewDistance()
}

// SortByNewDistance re-ranks candidates against target using the
// trust-weighted new-distance metric.
func (k *Kademlia) SortByNewDistance(target Identifier, candidates []Node) []Node {
	return k.table.TrustSorted(target, candidates)
}

// AddNode inserts a discovered node into the routing table. It returns the
// bucket's eviction candidate (if any) the same way RoutingTable.Add does.
func (k *Kademlia) AddNode(n Node) (Node, bool) {
	return k.table.Add(n)
}

// GetNode looks up a node by id.
func (k *Kademlia) GetNode(id Identifier) (Node, bool) {
	return k.table.Get(id)
}

// GetAllNodes returns every node currently known.
func (k *Kademlia) GetAllNodes() []Node {
	return k.table.AllNodes()
}

// RemoveNode drops a node from the routing table, e.g. after repeated
// liveness failures.
func (k *Kademlia) RemoveNode(id Identifier) bool {
	return k.table.Remove(id)
}

// ReplaceNode evicts a bucket's head in favor of n, used after a liveness
// ping to the head times out.
func (k *Kademlia) ReplaceNode(n Node) {
	k.table.ReplaceHead(n)
}

// SendBack promotes id to its bucket's tail, marking it just contacted.
func (k *Kademlia) SendBack(id Identifier) bool {
	return k.table.Promote(id)
}

// ReputationReward, ReputationPenalty, RiskPenalty, IncrementInteractions
// and IncrementLookups forward to the routing table's trust mutators.
func (k *Kademlia) ReputationReward(id Identifier)     { k.table.ReputationReward(id) }
func (k *Kademlia) ReputationPenalty(id Identifier)     { k.table.ReputationPenalty(id) }
func (k *Kademlia) RiskPenalty(id Identifier)           { k.table.RiskPenalty(id) }
func (k *Kademlia) IncrementInteractions(id Identifier) { k.table.IncrementInteractions(id) }
func (k *Kademlia) IncrementLookups(id Identifier)      { k.table.IncrementLookups(id) }

// TrustScoreOf returns a snapshot of id's trust accumulator.
func (k *Kademlia) TrustScoreOf(id Identifier) (TrustScore, bool) {
	return k.table.Trust(id)
}
