// Package conflict implements the entropy-based conflict accumulator, per
// spec §4.5: as peers report divergent stances on a claim, the accumulator
// tracks the resulting disagreement as a score in [0,1].
package conflict

import (
	"math"
	"sync"

	"github.com/swarmcore/governance/belief"
	"github.com/swarmcore/governance/coremetrics"
	"github.com/swarmcore/governance/identity"
	"github.com/swarmcore/governance/internal/multiset"
)

// DetectedHandler is invoked when a claim's score crosses the divergence
// threshold upward from below.
type DetectedHandler func(claim string, score float64)

// ResolvedHandler is invoked when a claim's conflict is explicitly resolved.
type ResolvedHandler func(claim string)

type claimState struct {
	stances map[identity.PeerId]belief.Stance
	counts  *multiset.Multiset[belief.Stance]
	score   float64
}

// Accumulator tracks per-claim stance divergence.
type Accumulator struct {
	mu        sync.Mutex
	threshold float64
	metrics   *coremetrics.Metrics
	claims    map[string]*claimState

	onDetected []DetectedHandler
	onResolved []ResolvedHandler
}

// NewAccumulator returns an Accumulator using threshold as the divergence
// crossing point (spec: belief_divergence_threshold, default 0.6).
func NewAccumulator(threshold float64, metrics *coremetrics.Metrics) *Accumulator {
	return &Accumulator{
		threshold: threshold,
		metrics:   metrics,
		claims:    make(map[string]*claimState),
	}
}

// OnConflictDetected subscribes a handler invoked on every upward threshold
// crossing.
func (a *Accumulator) OnConflictDetected(h DetectedHandler) {
	a.onDetected = append(a.onDetected, h)
}

// OnConflictResolved subscribes a handler invoked on every Resolve call.
func (a *Accumulator) OnConflictResolved(h ResolvedHandler) {
	a.onResolved = append(a.onResolved, h)
}

// ObserveBelief updates claim's stance mapping for peer and recomputes its
// conflict score, firing onDetected if the score crosses threshold upward.
func (a *Accumulator) ObserveBelief(peer identity.PeerId, claim string, stance belief.Stance) {
	a.mu.Lock()
	cs, ok := a.claims[claim]
	if !ok {
		cs = &claimState{
			stances: make(map[identity.PeerId]belief.Stance),
			counts:  multiset.New[belief.Stance](),
		}
		a.claims[claim] = cs
	}

	if prev, had := cs.stances[peer]; had {
		cs.counts.Remove(prev)
	}
	cs.stances[peer] = stance
	cs.counts.Add(stance)

	before := cs.score
	cs.score = score(cs.counts)
	after := cs.score
	a.mu.Unlock()

	if a.metrics != nil {
		a.metrics.SetConflictScore(claim, after)
	}
	if before < a.threshold && after >= a.threshold {
		for _, h := range a.onDetected {
			h(claim, after)
		}
	}
}

// Score returns claim's current conflict score.
func (a *Accumulator) Score(claim string) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	cs, ok := a.claims[claim]
	if !ok {
		return 0
	}
	return cs.score
}

// Resolve zeros claim's score and clears its stances/counts, firing
// onResolved.
func (a *Accumulator) Resolve(claim string) {
	a.mu.Lock()
	delete(a.claims, claim)
	a.mu.Unlock()

	if a.metrics != nil {
		a.metrics.SetConflictScore(claim, 0)
	}
	for _, h := range a.onResolved {
		h(claim)
	}
}

// score computes the normalized Shannon entropy over non-unknown stances,
// per the §4.5 formula.
func score(counts *multiset.Multiset[belief.Stance]) float64 {
	unique := 0
	for _, s := range counts.Keys() {
		if s != belief.StanceUnknown {
			unique++
		}
	}
	total := counts.Len() // |stances|, including unknown entries
	if total <= 1 || unique <= 1 {
		return 0
	}

	var h float64
	for _, s := range counts.Keys() {
		if s == belief.StanceUnknown {
			continue
		}
		p := float64(counts.Count(s)) / float64(total)
		if p > 0 {
			h -= p * math.Log2(p)
		}
	}
	denom := math.Log2(math.Max(2, float64(unique)))
	v := h / denom
	if v > 1 {
		v = 1
	}
	return v
}
