package core

import "testing"

func TestBucketIndexExactMatchClamped(t *testing.T) {
	self := NewIdentifier("self")
	if got := bucketIndex(self, self); got != 0 {
		t.Fatalf("exact match should clamp to 0, got %d", got)
	}
}

func TestBucketIndexFirstBitDiffers(t *testing.T) {
	var self, other Identifier
	other[0] = 0x80
	if got := bucketIndex(self, other); got != IDLen-1 {
		t.Fatalf("a first-bit mismatch should land in bucket %d, got %d", IDLen-1, got)
	}
}

func TestRoutingTableAddRejectsSelf(t *testing.T) {
	self := NewIdentifier("self")
	rt := NewRoutingTable(self)
	selfNode, _ := NewNode(self, "127.0.0.1", 9000)
	if _, has := rt.Add(selfNode); has {
		t.Fatalf("adding self should never report an eviction candidate")
	}
	if _, ok := rt.Get(self); ok {
		t.Fatalf("self should never be stored in the routing table")
	}
}

func TestRoutingTableAddAndGet(t *testing.T) {
	self := NewIdentifier("self")
	rt := NewRoutingTable(self)
	n := mustNode(t, "peer", "10.0.0.1")
	if _, has := rt.Add(n); has {
		t.Fatalf("first insert into an empty bucket should not need eviction")
	}
	got, ok := rt.Get(n.ID)
	if !ok || got.ID != n.ID {
		t.Fatalf("expected to find the added node")
	}
}

func TestRoutingTableAddEvictionCandidate(t *testing.T) {
	self := NewIdentifier("self")
	rt := NewRoutingTable(self)

	// Find BucketSize+1 peers that all land in the same bucket as the first.
	first := mustNode(t, "bucket-fill-0", "10.0.0.1")
	idx := bucketIndex(self, first.ID)
	filled := []Node{first}
	for i := 1; len(filled) < BucketSize+1; i++ {
		cand := mustNode(t, "bucket-fill-"+string(rune('0'+i)), "10.0.0.1")
		if bucketIndex(self, cand.ID) == idx {
			filled = append(filled, cand)
		}
		if i > 10000 {
			t.Fatalf("could not find enough colliding identifiers")
		}
	}
	for i := 0; i < BucketSize; i++ {
		if _, has := rt.Add(filled[i]); has {
			t.Fatalf("bucket should not be full yet at insert %d", i)
		}
	}
	candidate, has := rt.Add(filled[BucketSize])
	if !has {
		t.Fatalf("expected an eviction candidate once the bucket is full")
	}
	if candidate.ID != filled[0].ID {
		t.Fatalf("eviction candidate should be the oldest (first-inserted) node")
	}
}

func TestRoutingTableTrustMutators(t *testing.T) {
	self := NewIdentifier("self")
	rt := NewRoutingTable(self)
	n := mustNode(t, "peer", "10.0.0.1")
	rt.Add(n)

	rt.IncrementLookups(n.ID)
	rt.ReputationReward(n.ID)
	ts, ok := rt.Trust(n.ID)
	if !ok {
		t.Fatalf("expected a trust score for a known node")
	}
	if ts.Reputation() != 1 {
		t.Fatalf("expected reputation 1 after one lookup + reward, got %v", ts.Reputation())
	}

	// Mutating an unknown id must be a silent no-op.
	unknown := NewIdentifier("never-added")
	rt.ReputationReward(unknown)
	if _, ok := rt.Trust(unknown); ok {
		t.Fatalf("an unknown id should never gain a trust score")
	}
}

func TestRoutingTableNClosestOrdering(t *testing.T) {
	self := NewIdentifier("self")
	rt := NewRoutingTable(self)
	target := NewIdentifier("target")

	for i := 0; i < 10; i++ {
		rt.Add(mustNode(t, "candidate-"+string(rune('a'+i)), "10.0.0.1"))
	}

	closest := rt.NClosest(target, 3)
	if len(closest) == 0 {
		t.Fatalf("expected at least one candidate")
	}
	if len(closest) > 3 {
		t.Fatalf("NClosest should never return more than n results")
	}
	last := -1
	for _, n := range closest {
		d := XORDistance(target, n.ID)
		if last != -1 && d > last {
			t.Fatalf("NClosest results should be descending in leading-bit count (closer first)")
		}
		last = d
	}
}

func TestRoutingTableKNewDistanceBounded(t *testing.T) {
	self := NewIdentifier("self")
	rt := NewRoutingTable(self)
	for i := 0; i < BucketSize+5; i++ {
		rt.Add(mustNode(t, "knd-"+string(rune('a'+i)), "10.0.0.1"))
	}
	got := rt.KNewDistance()
	if len(got) > BucketSize {
		t.Fatalf("KNewDistance should truncate to BucketSize, got %d", len(got))
	}
}
