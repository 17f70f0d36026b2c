// Package reputation tracks per-peer trustworthiness, per spec §4.8. It is
// grounded on the teacher's benchlist-style peer tracker (per-peer counters
// behind a mutex, read via a score query), generalized from a single
// pass/fail counter to the accuracy/consistency/age/violations model the
// spec requires.
package reputation

import (
	"sync"

	"github.com/swarmcore/governance/identity"
	"github.com/swarmcore/governance/utils/math"
)

// Score is one peer's tracked reputation state. Score is cached and
// recomputed from Accuracy/Consistency/Age/Violations after every update
// except RecordViolation, which instead decrements it directly.
type Score struct {
	Score       float64
	Accuracy    float64
	Consistency float64
	Age         int
	Violations  int
}

// recompute derives Score from the accuracy/consistency/age/violations
// formula in spec §4.8.
func (s *Score) recompute() {
	base := 0.4*s.Accuracy + 0.3*s.Consistency + 0.2*math.MinFloat64(1, float64(s.Age)/100)
	s.Score = math.Clamp01(base - 0.1*float64(s.Violations))
}

// Tracker holds reputation state for every observed peer.
type Tracker struct {
	mu               sync.Mutex
	newPeerInfluence float64
	minVoteScore     float64
	scores           map[identity.PeerId]Score
}

// NewTracker returns a Tracker using newPeerInfluence as the floor of the
// influence range (the influence of an unseen peer, whose score starts at 0),
// and minVoteScore as the can-vote gate.
func NewTracker(newPeerInfluence, minVoteScore float64) *Tracker {
	return &Tracker{
		newPeerInfluence: newPeerInfluence,
		minVoteScore:     minVoteScore,
		scores:           make(map[identity.PeerId]Score),
	}
}

func (t *Tracker) track(peer identity.PeerId) Score {
	s, ok := t.scores[peer]
	if !ok {
		// Score starts at 0 so GetInfluence maps an untested peer to exactly
		// newPeerInfluence, its documented floor; Accuracy/Consistency start
		// at a neutral 0.5 for whenever the first recompute actually runs.
		s = Score{Score: 0, Accuracy: 0.5, Consistency: 0.5}
		t.scores[peer] = s
	}
	return s
}

// RecordSuccess rewards a peer for a verified, accepted signal.
func (t *Tracker) RecordSuccess(peer identity.PeerId) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.track(peer)
	s.Accuracy = math.MinFloat64(1, s.Accuracy+0.05)
	s.recompute()
	t.scores[peer] = s
}

// RecordFailure penalizes a peer for a failed verification.
func (t *Tracker) RecordFailure(peer identity.PeerId) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.track(peer)
	s.Accuracy = math.MaxFloat64(0, s.Accuracy-0.10)
	s.recompute()
	t.scores[peer] = s
}

// RecordConsistency rewards a peer for staying in agreement over time and
// ages the peer by one observation cycle.
func (t *Tracker) RecordConsistency(peer identity.PeerId) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.track(peer)
	s.Consistency = math.MinFloat64(1, s.Consistency+0.02)
	s.Age++
	s.recompute()
	t.scores[peer] = s
}

// RecordViolation records a protocol violation and drops the cached score
// directly by 0.20, bypassing the usual recompute (the violation counter
// still lowers the formula's baseline on the next recompute too).
func (t *Tracker) RecordViolation(peer identity.PeerId, reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.track(peer)
	s.Violations++
	s.Score = math.MaxFloat64(0, s.Score-0.20)
	t.scores[peer] = s
}

// GetScore returns peer's current reputation score in [0,1].
func (t *Tracker) GetScore(peer identity.PeerId) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.track(peer).Score
}

// GetInfluence returns peer's current voting/forwarding influence, in
// [newPeerInfluence, 1].
func (t *Tracker) GetInfluence(peer identity.PeerId) float64 {
	score := t.GetScore(peer)
	return t.newPeerInfluence + (1-t.newPeerInfluence)*score
}

// CanVote reports whether peer's score clears the voting gate.
func (t *Tracker) CanVote(peer identity.PeerId) bool {
	return t.GetScore(peer) >= t.minVoteScore
}

// Violations returns the violation count recorded against peer.
func (t *Tracker) Violations(peer identity.PeerId) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.track(peer).Violations
}

// CanAdmit reports whether a returning peer with this tracked history may be
// re-admitted; peers with more than three violations are permanently denied.
func (t *Tracker) CanAdmit(peer identity.PeerId) bool {
	return t.Violations(peer) <= 3
}

// Get returns a copy of peer's full tracked state.
func (t *Tracker) Get(peer identity.PeerId) Score {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.track(peer)
}
