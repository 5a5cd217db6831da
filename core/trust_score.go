package core

import "math"

// Trust-score weighting constants (spec: W_r=0.40, W_k=0.60).
const (
	weightReputation = 0.40
	weightRisk       = 0.60
	// scoreEpsilon floors the composite score so it can always be
	// inverted by the new-distance formula without dividing by zero.
	scoreEpsilon = 1e-6
)

// TrustScore accumulates a peer's reputation and risk, composing them into a
// single score used by trust-weighted routing decisions. All mutators are
// named methods rather than field access so every update composes
// atomically under the routing table's mutex.
type TrustScore struct {
	reputation        float64
	risk              float64
	totalInteractions int64
	totalLookups      int64
	badInteractions   int64
}

// NewTrustScore returns a fresh accumulator for a never-before-seen peer.
func NewTrustScore() TrustScore {
	return TrustScore{}
}

// GoodReputation rewards a responsive/useful interaction. Per spec, if no
// lookups have been recorded yet the reputation is reset to exactly zero
// rather than left untouched.
func (t *TrustScore) GoodReputation() {
	if t.totalLookups == 0 {
		t.reputation = 0
		return
	}
	t.reputation += 1 / float64(t.totalLookups)
}

// BadReputation penalizes an unresponsive or dishonest interaction.
func (t *TrustScore) BadReputation() {
	if t.totalLookups != 0 {
		t.reputation -= 2 / float64(t.totalLookups)
	}
}

// BadInteraction records a misbehavior event, feeding the risk calculation.
func (t *TrustScore) BadInteraction() {
	t.badInteractions++
}

// NewInteraction records that a request/response round-trip happened at all
// (successful or not), feeding the risk denominator.
func (t *TrustScore) NewInteraction() {
	t.totalInteractions++
}

// NewLookup records that this peer was consulted during an iterative
// lookup, feeding the reputation denominator.
func (t *TrustScore) NewLookup() {
	t.totalLookups++
}

// updateRisk recomputes risk from the interaction counters.
func (t *TrustScore) updateRisk() {
	if t.totalInteractions == 0 {
		t.risk = 0
		return
	}
	t.risk = float64(t.badInteractions) / float64(t.totalInteractions)
}

// Score returns the composite trust score, always >= scoreEpsilon and never
// NaN, so callers can safely invert it for the new-distance formula.
func (t *TrustScore) Score() float64 {
	t.updateRisk()
	score := weightReputation*t.reputation + weightRisk*t.risk
	if math.IsNaN(score) || score < scoreEpsilon {
		return scoreEpsilon
	}
	return score
}

// Reputation, Risk, TotalInteractions, TotalLookups and BadInteractions
// expose read-only snapshots for diagnostics and tests.
func (t *TrustScore) Reputation() float64      { return t.reputation }
func (t *TrustScore) Risk() float64            { t.updateRisk(); return t.risk }
func (t *TrustScore) TotalInteractions() int64 { return t.totalInteractions }
func (t *TrustScore) TotalLookups() int64      { return t.totalLookups }
func (t *TrustScore) BadInteractions() int64   { return t.badInteractions }
