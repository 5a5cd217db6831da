package core

// BucketSize is the maximum number of peers a single k-bucket holds (K=3).
const BucketSize = 3

// bucketEntry pairs a peer's routing address with its trust accumulator.
type bucketEntry struct {
	node  Node
	trust TrustScore
}

// Bucket is a fixed-capacity, ordered list of peers at a given distance band
// from the local node. Unlike the original's HashMap-backed bucket, entries
// keep insertion order: the head is the least-recently-seen peer and the
// tail the most-recently-seen one, so LRU-style eviction candidates are
// always at index 0.
type Bucket struct {
	entries []bucketEntry
}

// NewBucket returns an empty bucket.
func NewBucket() *Bucket {
	return &Bucket{entries: make([]bucketEntry, 0, BucketSize)}
}

// Len reports how many peers currently occupy the bucket.
func (b *Bucket) Len() int {
	return len(b.entries)
}

// Full reports whether the bucket has reached BucketSize.
func (b *Bucket) Full() bool {
	return len(b.entries) >= BucketSize
}

// indexOf returns the slice index of id, or -1 if absent.
func (b *Bucket) indexOf(id Identifier) int {
	for i, e := range b.entries {
		if e.node.ID == id {
			return i
		}
	}
	return -1
}

// Get returns the peer and trust score stored for id.
func (b *Bucket) Get(id Identifier) (Node, *TrustScore, bool) {
	i := b.indexOf(id)
	if i < 0 {
		return Node{}, nil, false
	}
	return b.entries[i].node, &b.entries[i].trust, true
}

// Add inserts peer if the bucket has room and it is not already present. It
// reports whether the insertion happened; a full bucket is the caller's cue
// to try SendBack against the head before giving up on the new peer.
func (b *Bucket) Add(p Node) bool {
	if b.indexOf(p.ID) >= 0 {
		return false
	}
	if b.Full() {
		return false
	}
	b.entries = append(b.entries, bucketEntry{node: p, trust: NewTrustScore()})
	return true
}

// Head returns the least-recently-seen peer, the classic eviction candidate
// for a liveness ping when a bucket is full.
func (b *Bucket) Head() (Node, bool) {
	if len(b.entries) == 0 {
		return Node{}, false
	}
	return b.entries[0].node, true
}

// Remove drops id from the bucket, if present.
func (b *Bucket) Remove(id Identifier) bool {
	i := b.indexOf(id)
	if i < 0 {
		return false
	}
	b.entries = append(b.entries[:i], b.entries[i+1:]...)
	return true
}

// Replace evicts the head and appends the given peer at the tail as the
// most-recently-seen entry, used when a liveness ping to the head goes
// unanswered.
func (b *Bucket) Replace(p Node) {
	if len(b.entries) == 0 {
		b.entries = append(b.entries, bucketEntry{node: p, trust: NewTrustScore()})
		return
	}
	b.entries[0] = bucketEntry{node: p, trust: NewTrustScore()}
	b.moveToTail(0)
}

// SendBack moves id to the tail, marking it as most-recently-seen. Used
// whenever a peer answers a liveness check and should not be considered for
// eviction again until everyone else in the bucket has had a turn.
func (b *Bucket) SendBack(id Identifier) bool {
	i := b.indexOf(id)
	if i < 0 {
		return false
	}
	b.moveToTail(i)
	return true
}

func (b *Bucket) moveToTail(i int) {
	e := b.entries[i]
	b.entries = append(b.entries[:i], b.entries[i+1:]...)
	b.entries = append(b.entries, e)
}

// Peers returns a snapshot slice of every peer currently in the bucket,
// ordered head-to-tail (oldest to newest).
func (b *Bucket) Peers() []Node {
	out := make([]Node, len(b.entries))
	for i, e := range b.entries {
		out[i] = e.node
	}
	return out
}

// Trust returns the trust accumulator for id, creating none if absent.
func (b *Bucket) Trust(id Identifier) (*TrustScore, bool) {
	i := b.indexOf(id)
	if i < 0 {
		return nil, false
	}
	return &b.entries[i].trust, true
}
