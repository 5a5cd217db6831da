package core

import "testing"

func TestTrustScoreZeroValueFloors(t *testing.T) {
	ts := NewTrustScore()
	if got := ts.Score(); got != scoreEpsilon {
		t.Fatalf("a fresh TrustScore should floor to %v, got %v", scoreEpsilon, got)
	}
}

func TestTrustScoreGoodReputationAtZeroLookups(t *testing.T) {
	ts := NewTrustScore()
	ts.reputation = 5 // simulate a stale value
	ts.GoodReputation()
	if ts.Reputation() != 0 {
		t.Fatalf("GoodReputation at zero lookups should reset to 0, got %v", ts.Reputation())
	}
}

func TestTrustScoreGoodReputationAccumulates(t *testing.T) {
	ts := NewTrustScore()
	ts.NewLookup()
	ts.NewLookup()
	ts.GoodReputation()
	want := 1.0 / 2.0
	if got := ts.Reputation(); got != want {
		t.Fatalf("expected reputation %v, got %v", want, got)
	}
}

func TestTrustScoreBadReputationRequiresLookups(t *testing.T) {
	ts := NewTrustScore()
	ts.BadReputation() // no-op, totalLookups == 0
	if ts.Reputation() != 0 {
		t.Fatalf("BadReputation with no lookups should not move reputation")
	}
	ts.NewLookup()
	ts.BadReputation()
	if got := ts.Reputation(); got != -2.0 {
		t.Fatalf("expected reputation -2, got %v", got)
	}
}

func TestTrustScoreRisk(t *testing.T) {
	ts := NewTrustScore()
	ts.NewInteraction()
	ts.NewInteraction()
	ts.BadInteraction()
	if got := ts.Risk(); got != 0.5 {
		t.Fatalf("expected risk 0.5 for 1 bad of 2 interactions, got %v", got)
	}
	if ts.TotalInteractions() != 2 {
		t.Fatalf("expected 2 total interactions, got %d", ts.TotalInteractions())
	}
	if ts.BadInteractions() != 1 {
		t.Fatalf("expected 1 bad interaction, got %d", ts.BadInteractions())
	}
}

func TestTrustScoreComposite(t *testing.T) {
	ts := NewTrustScore()
	ts.NewLookup()
	ts.GoodReputation() // reputation = 1
	ts.NewInteraction()
	ts.BadInteraction() // risk = 1
	want := weightReputation*1 + weightRisk*1
	if got := ts.Score(); got != want {
		t.Fatalf("expected composite score %v, got %v", want, got)
	}
}
