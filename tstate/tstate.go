// Package tstate implements the swarm-wide T-state ladder: a single
// degraded-authority level derived from how stale and low-confidence peer
// observations have become, per spec §4.10. The singleton value is held in
// an internal/xatomic.Atomic so reads never block the observation path.
package tstate

import (
	"sync"
	"time"

	"github.com/swarmcore/governance/identity"
	"github.com/swarmcore/governance/internal/xatomic"
)

// State is one rung of the T-state ladder.
type State int

const (
	T0 State = iota
	T1
	T2
	T3
	T4
)

// String names the state for logs and metrics labels.
func (s State) String() string {
	switch s {
	case T0:
		return "T0"
	case T1:
		return "T1"
	case T2:
		return "T2"
	case T3:
		return "T3"
	case T4:
		return "T4"
	default:
		return "T?"
	}
}

// Multiplier returns the authority-duration multiplier for s.
func (s State) Multiplier() float64 {
	switch s {
	case T0:
		return 1.0
	case T1:
		return 0.7
	case T2:
		return 0.4
	case T3:
		return 0.1
	case T4:
		return 1.0
	default:
		return 1.0
	}
}

// CanGrantNewAuthority reports whether new authority windows may be granted
// while in state s.
func (s State) CanGrantNewAuthority() bool {
	return s == T0 || s == T1 || s == T4
}

// CanPropagateLearning reports whether pattern bundles may be emitted while
// in state s.
func (s State) CanPropagateLearning() bool {
	return s == T0 || s == T4
}

// Observation is one peer's latest reported liveness snapshot.
type Observation struct {
	Timestamp  time.Time
	Confidence float64
}

// Listener is notified on every T-state transition. The authority manager
// subscribes to shrink its windows on degradation.
type Listener func(prev, next State)

// Manager tracks per-peer observations and derives the current T-state.
type Manager struct {
	mu               sync.Mutex
	staleThreshold   time.Duration
	observations     map[identity.PeerId]Observation
	listeners        []Listener
	current          *xatomic.Atomic[State]
}

// NewManager returns a Manager starting in T0, using staleThreshold as the
// unit of the staleness ladder (spec: stale_comms_threshold_ms).
func NewManager(staleThreshold time.Duration) *Manager {
	return &Manager{
		staleThreshold: staleThreshold,
		observations:   make(map[identity.PeerId]Observation),
		current:        xatomic.NewAtomic(T0),
	}
}

// Current returns the swarm's current T-state.
func (m *Manager) Current() State {
	return m.current.Get()
}

// Subscribe registers a listener invoked synchronously on every transition.
func (m *Manager) Subscribe(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// Observe records peer's latest liveness snapshot. It does not itself
// trigger a recompute; callers drive that via Update on tick.
func (m *Manager) Observe(peer identity.PeerId, now time.Time, confidence float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observations[peer] = Observation{Timestamp: now, Confidence: confidence}
}

// Forget drops a peer's observation, e.g. once it is evicted from
// membership.
func (m *Manager) Forget(peer identity.PeerId) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.observations, peer)
}

// Update recomputes the T-state from the current observation set, per the
// §4.10 staleness/confidence ladder, and notifies listeners on change.
func (m *Manager) Update(now time.Time) State {
	m.mu.Lock()
	var maxStale time.Duration
	minConf := 1.0
	hasObs := false
	for _, obs := range m.observations {
		hasObs = true
		stale := now.Sub(obs.Timestamp)
		if stale > maxStale {
			maxStale = stale
		}
		if obs.Confidence < minConf {
			minConf = obs.Confidence
		}
	}
	m.mu.Unlock()

	if !hasObs {
		return m.transitionTo(T0)
	}

	var next State
	switch {
	case maxStale > 3*m.staleThreshold:
		next = T3
	case maxStale > 2*m.staleThreshold:
		next = T2
	case maxStale > m.staleThreshold || minConf < 0.5:
		next = T1
	default:
		next = T0
	}
	return m.transitionTo(next)
}

// Force externally sets the T-state, for tests and operator-driven
// recontact flows.
func (m *Manager) Force(s State) State {
	return m.transitionTo(s)
}

// InitiateRecontact transitions out of a degraded state (T2/T3) into the
// recontact-in-progress state T4. It is a no-op from any other state.
func (m *Manager) InitiateRecontact() State {
	m.mu.Lock()
	cur := m.current.Get()
	m.mu.Unlock()
	if cur != T2 && cur != T3 {
		return cur
	}
	return m.transitionTo(T4)
}

// CompleteRecontact transitions T4 back to T0. It is a no-op from any other
// state.
func (m *Manager) CompleteRecontact() State {
	m.mu.Lock()
	cur := m.current.Get()
	m.mu.Unlock()
	if cur != T4 {
		return cur
	}
	return m.transitionTo(T0)
}

func (m *Manager) transitionTo(next State) State {
	prev := m.current.Get()
	if prev == next {
		return next
	}
	m.current.Set(next)

	m.mu.Lock()
	listeners := append([]Listener(nil), m.listeners...)
	m.mu.Unlock()
	for _, l := range listeners {
		l(prev, next)
	}
	return next
}
