// Package quarantine implements exponential-backoff peer isolation, per
// spec §4.9. It is grounded on the teacher's benchlist manager
// (map[peer]expiry with a fixed duration per offense), generalized to a
// duration that doubles with each successive violation instead of a flat
// bench length.
package quarantine

import (
	"sync"
	"time"

	"github.com/swarmcore/governance/clock"
	"github.com/swarmcore/governance/identity"
)

// Entry records one peer's quarantine state.
type Entry struct {
	Peer          identity.PeerId
	Reason        string
	QuarantinedAt time.Time
	ExpiresAt     time.Time
	Violations    int
}

// Manager tracks quarantined peers with exponential backoff: duration =
// base * 2^(violations-1).
type Manager struct {
	mu      sync.Mutex
	base    time.Duration
	clock   clock.Clock
	entries map[identity.PeerId]Entry
}

// NewManager returns a Manager with the given base quarantine duration.
func NewManager(base time.Duration, clk clock.Clock) *Manager {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Manager{
		base:    base,
		clock:   clk,
		entries: make(map[identity.PeerId]Entry),
	}
}

// Quarantine isolates peer for reason, replacing any prior entry. The
// violation count accumulates across quarantines so repeated offenders are
// isolated for exponentially longer.
func (m *Manager) Quarantine(peer identity.PeerId, reason string) Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	violations := 1
	if prev, ok := m.entries[peer]; ok {
		violations = prev.Violations + 1
	}
	duration := m.base * time.Duration(1<<uint(violations-1))

	e := Entry{
		Peer:          peer,
		Reason:        reason,
		QuarantinedAt: now,
		ExpiresAt:     now.Add(duration),
		Violations:    violations,
	}
	m.entries[peer] = e
	return e
}

// IsQuarantined reports whether peer is currently isolated, self-releasing
// the entry if it has expired.
func (m *Manager) IsQuarantined(peer identity.PeerId) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[peer]
	if !ok {
		return false
	}
	if m.clock.Now().After(e.ExpiresAt) {
		delete(m.entries, peer)
		return false
	}
	return true
}

// GetInfluenceMultiplier returns 0 for a quarantined peer, else 1. Receivers
// may still receive signals from a quarantined peer; only propagation from
// that peer is blocked.
func (m *Manager) GetInfluenceMultiplier(peer identity.PeerId) float64 {
	if m.IsQuarantined(peer) {
		return 0
	}
	return 1
}

// Get returns the current entry for peer, if any (expired entries are
// treated as absent, matching IsQuarantined's self-release).
func (m *Manager) Get(peer identity.PeerId) (Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[peer]
	if !ok {
		return Entry{}, false
	}
	if m.clock.Now().After(e.ExpiresAt) {
		delete(m.entries, peer)
		return Entry{}, false
	}
	return e, true
}

// Count returns the number of currently quarantined peers (expired entries
// are pruned as part of the count).
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	n := 0
	for peer, e := range m.entries {
		if now.After(e.ExpiresAt) {
			delete(m.entries, peer)
			continue
		}
		n++
	}
	return n
}
