// Package belief implements the per-node belief store: one current Belief
// per claim, resolved via the (timestamp, confidence) rule in spec §4.2,
// with a bounded insertion-ordered history per claim.
package belief

import (
	"sync"

	"github.com/swarmcore/governance/identity"
	"github.com/swarmcore/governance/signal"
	"github.com/swarmcore/governance/utils/linked"
)

// Stance is a node's current position on a claim.
type Stance string

const (
	StanceStrengthen Stance = "strengthen"
	StanceWeaken     Stance = "weaken"
	StanceRetract    Stance = "retract"
	StanceUnknown    Stance = "unknown"
)

func stanceFromDirection(d signal.Direction) Stance {
	switch d {
	case signal.Strengthen:
		return StanceStrengthen
	case signal.Weaken:
		return StanceWeaken
	case signal.Retract:
		return StanceRetract
	default:
		return StanceUnknown
	}
}

// Belief is a node's current state on a single claim.
type Belief struct {
	ClaimHash    string
	Stance       Stance
	Confidence   float64
	UpdatedAt    int64
	LastSignalID uint64
	LastSourceID identity.PeerId
}

// HistoryEntry is one accepted replacement recorded for a claim.
type HistoryEntry struct {
	Timestamp  int64
	Stance     Stance
	Confidence float64
	SignalID   uint64
	SourceID   identity.PeerId
}

// maxHistory is the bounded per-claim history length (spec §3: cap 100).
const maxHistory = 100

// Store holds every claim's current belief and bounded history. It is
// exclusively owned by one node; callers observing it should copy fields of
// interest rather than retain pointers across goroutines.
type Store struct {
	mu       sync.RWMutex
	beliefs  map[string]Belief
	history  map[string]*linked.Hashmap[int, HistoryEntry]
	histSeq  map[string]int
}

// NewStore returns an empty belief store.
func NewStore() *Store {
	return &Store{
		beliefs: make(map[string]Belief),
		history: make(map[string]*linked.Hashmap[int, HistoryEntry]),
		histSeq: make(map[string]int),
	}
}

// Get returns the current belief for claimHash, if any.
func (s *Store) Get(claimHash string) (Belief, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.beliefs[claimHash]
	return b, ok
}

// All returns a copy of every current belief, keyed by claim hash.
func (s *Store) All() map[string]Belief {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Belief, len(s.beliefs))
	for k, v := range s.beliefs {
		out[k] = v
	}
	return out
}

// Apply applies sig's belief update to the store under the §4.2 resolution
// rule, returning true if it replaced the prior belief. Ties (equal
// timestamp) are broken toward the incoming signal when its confidence is
// >= the prior belief's, guaranteeing convergence among peers that observed
// the same signals in any order.
func (s *Store) Apply(sig signal.Signal) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	claim := sig.Payload.ClaimHash
	prev, hasPrev := s.beliefs[claim]

	accept := !hasPrev ||
		sig.Timestamp > prev.UpdatedAt ||
		(sig.Timestamp == prev.UpdatedAt && sig.Payload.Confidence >= prev.Confidence)
	if !accept {
		return false
	}

	next := Belief{
		ClaimHash:    claim,
		Stance:       stanceFromDirection(sig.Payload.Direction),
		Confidence:   sig.Payload.Confidence,
		UpdatedAt:    sig.Timestamp,
		LastSignalID: sig.SignalID,
		LastSourceID: sig.SourceID,
	}
	s.beliefs[claim] = next
	s.appendHistory(claim, HistoryEntry{
		Timestamp:  next.UpdatedAt,
		Stance:     next.Stance,
		Confidence: next.Confidence,
		SignalID:   next.LastSignalID,
		SourceID:   next.LastSourceID,
	})
	return true
}

func (s *Store) appendHistory(claim string, e HistoryEntry) {
	h, ok := s.history[claim]
	if !ok {
		h = linked.NewHashmap[int, HistoryEntry]()
		s.history[claim] = h
	}
	seq := s.histSeq[claim]
	s.histSeq[claim] = seq + 1
	h.Put(seq, e)
	if h.Len() > maxHistory {
		h.DeleteOldest()
	}
}

// GetHistory returns claimHash's bounded history in insertion (oldest
// first) order.
func (s *Store) GetHistory(claimHash string) []HistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.history[claimHash]
	if !ok {
		return nil
	}
	out := make([]HistoryEntry, 0, h.Len())
	h.Iterate(func(_ int, e HistoryEntry) bool {
		out = append(out, e)
		return true
	})
	return out
}

// Snapshot captures the entire current belief set for later Restore.
type Snapshot struct {
	Beliefs map[string]Belief
}

// Snapshot returns a point-in-time copy of every current belief.
func (s *Store) Snapshot() Snapshot {
	return Snapshot{Beliefs: s.All()}
}

// Restore replaces the current belief set wholesale. It does not touch
// history, and it does not enforce the §4.2 resolution rule: a restore may
// legitimately move updated_at backward (spec §3's rollback invariant).
func (s *Store) Restore(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.beliefs = make(map[string]Belief, len(snap.Beliefs))
	for k, v := range snap.Beliefs {
		s.beliefs[k] = v
	}
}

// Consensus is the per-claim stance+confidence view other components
// (drift, pattern) read from the belief store.
type Consensus map[string]Belief

// GetConsensus returns the current stance and confidence for every claim.
func (s *Store) GetConsensus() Consensus {
	return Consensus(s.All())
}
