package core

import "testing"

func mustNode(t *testing.T, seed, ip string) Node {
	t.Helper()
	n, err := NewNode(NewIdentifier(seed), ip, 9000)
	if err != nil {
		t.Fatalf("NewNode(%q): %v", seed, err)
	}
	return n
}

func TestBucketAddAndFull(t *testing.T) {
	b := NewBucket()
	for i := 0; i < BucketSize; i++ {
		n := mustNode(t, string(rune('a'+i)), "127.0.0.1")
		if !b.Add(n) {
			t.Fatalf("expected Add to succeed for entry %d", i)
		}
	}
	if !b.Full() {
		t.Fatalf("expected bucket to report Full at BucketSize")
	}
	extra := mustNode(t, "overflow", "127.0.0.1")
	if b.Add(extra) {
		t.Fatalf("Add should fail once the bucket is full")
	}
}

func TestBucketAddDuplicateRejected(t *testing.T) {
	b := NewBucket()
	n := mustNode(t, "dup", "127.0.0.1")
	if !b.Add(n) {
		t.Fatalf("first Add should succeed")
	}
	if b.Add(n) {
		t.Fatalf("second Add of the same id should be rejected")
	}
	if b.Len() != 1 {
		t.Fatalf("expected length 1, got %d", b.Len())
	}
}

func TestBucketHeadIsOldest(t *testing.T) {
	b := NewBucket()
	first := mustNode(t, "first", "127.0.0.1")
	second := mustNode(t, "second", "127.0.0.1")
	b.Add(first)
	b.Add(second)
	head, ok := b.Head()
	if !ok || head.ID != first.ID {
		t.Fatalf("expected head to be the first-inserted node")
	}
}

func TestBucketSendBackPromotesToTail(t *testing.T) {
	b := NewBucket()
	first := mustNode(t, "first", "127.0.0.1")
	second := mustNode(t, "second", "127.0.0.1")
	b.Add(first)
	b.Add(second)
	if !b.SendBack(first.ID) {
		t.Fatalf("SendBack should find the existing id")
	}
	head, _ := b.Head()
	if head.ID != second.ID {
		t.Fatalf("expected second node to become head after first is sent back")
	}
}

func TestBucketReplaceEvictsHead(t *testing.T) {
	b := NewBucket()
	for i := 0; i < BucketSize; i++ {
		b.Add(mustNode(t, string(rune('a'+i)), "127.0.0.1"))
	}
	oldHead, _ := b.Head()
	newcomer := mustNode(t, "newcomer", "127.0.0.1")
	b.Replace(newcomer)
	if _, _, ok := b.Get(oldHead.ID); ok {
		t.Fatalf("old head should have been evicted")
	}
	if _, _, ok := b.Get(newcomer.ID); !ok {
		t.Fatalf("newcomer should now be present")
	}
	if b.Len() != BucketSize {
		t.Fatalf("expected length to remain %d, got %d", BucketSize, b.Len())
	}
}

func TestBucketRemove(t *testing.T) {
	b := NewBucket()
	n := mustNode(t, "removable", "127.0.0.1")
	b.Add(n)
	if !b.Remove(n.ID) {
		t.Fatalf("Remove should report success for a present id")
	}
	if b.Remove(n.ID) {
		t.Fatalf("Remove should report failure for an absent id")
	}
	if b.Len() != 0 {
		t.Fatalf("expected empty bucket, got length %d", b.Len())
	}
}

func TestBucketTrust(t *testing.T) {
	b := NewBucket()
	n := mustNode(t, "trusted", "127.0.0.1")
	b.Add(n)
	trust, ok := b.Trust(n.ID)
	if !ok {
		t.Fatalf("expected to find a trust accumulator for a present node")
	}
	trust.NewLookup()
	trust.GoodReputation()
	got, _ := b.Trust(n.ID)
	if got.Reputation() != 1 {
		t.Fatalf("expected mutation through the returned pointer to persist, got reputation %v", got.Reputation())
	}
}
