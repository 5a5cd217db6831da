package core

import "testing"

func newTestKademlia(t *testing.T, seed string) *Kademlia {
	t.Helper()
	self, err := NewNode(NewIdentifier(seed), "127.0.0.1", 9000)
	if err != nil {
		t.Fatalf("NewNode: %v", err)
	}
	return NewKademlia(self)
}

func TestKademliaAddKeyGetValueRemoveKey(t *testing.T) {
	k := newTestKademlia(t, "self")
	key := NewIdentifier("key")
	k.AddKey(key, "value")
	got, ok := k.GetValue(key)
	if !ok || got != "value" {
		t.Fatalf("expected to retrieve the stored value, got %q, %v", got, ok)
	}
	k.RemoveKey(key)
	if _, ok := k.GetValue(key); ok {
		t.Fatalf("expected the key to be gone after RemoveKey")
	}
}

func TestKademliaIsClosestEmptyTableStoresLocally(t *testing.T) {
	k := newTestKademlia(t, "self")
	key := NewIdentifier("some-key")
	if nodes, forward := k.IsClosest(key); forward || nodes != nil {
		t.Fatalf("an empty routing table should always store locally")
	}
}

func TestKademliaAddNodeAndGetNode(t *testing.T) {
	k := newTestKademlia(t, "self")
	peer := mustNode(t, "peer", "10.0.0.1")
	if _, has := k.AddNode(peer); has {
		t.Fatalf("first insert should never need eviction")
	}
	got, ok := k.GetNode(peer.ID)
	if !ok || got.ID != peer.ID {
		t.Fatalf("expected to find the added node")
	}
}

func TestKademliaTrustForwarding(t *testing.T) {
	k := newTestKademlia(t, "self")
	peer := mustNode(t, "peer", "10.0.0.1")
	k.AddNode(peer)
	k.IncrementLookups(peer.ID)
	k.ReputationReward(peer.ID)
	ts, ok := k.TrustScoreOf(peer.ID)
	if !ok {
		t.Fatalf("expected a trust score for a known node")
	}
	if ts.Reputation() != 1 {
		t.Fatalf("expected reputation 1, got %v", ts.Reputation())
	}
}
