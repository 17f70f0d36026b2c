// Package drift detects per-peer degradation against four independent
// triggers, per spec §4.10. Each peer fires at most one trigger per cycle;
// once triggered it is skipped on subsequent checks until reset.
package drift

import (
	"time"

	"github.com/swarmcore/governance/belief"
	"github.com/swarmcore/governance/identity"
)

// Reason names the trigger that fired for a peer.
type Reason string

const (
	ReasonHoldTooLong      Reason = "HOLD_TOO_LONG"
	ReasonStaleComms       Reason = "STALE_COMMS"
	ReasonConfidenceDecay  Reason = "CONFIDENCE_DECAY"
	ReasonBeliefDivergence Reason = "BELIEF_DIVERGENCE"
)

// Event describes one peer's drift trigger.
type Event struct {
	Peer    identity.PeerId
	Reason  Reason
	Details string
}

// Listener is notified for every drift Event. The authority manager
// subscribes to revoke the peer's window on any trigger.
type Listener func(Event)

// peerState tracks the observations needed to evaluate every trigger for
// one peer.
type peerState struct {
	lastComms  time.Time
	confidence float64
	stances    map[string]belief.Belief
	holdStart  time.Time
	hasHold    bool
	triggered  bool
}

// Config bundles the threshold values the detector checks against.
type Config struct {
	HoldDriftThreshold      time.Duration
	StaleCommsThreshold     time.Duration
	ConfidenceDriftThreshold float64
	BeliefDivergenceThreshold float64
}

// Detector evaluates the four drift triggers across all tracked peers.
type Detector struct {
	cfg       Config
	peers     map[identity.PeerId]*peerState
	listeners []Listener
}

// NewDetector returns an empty Detector using cfg's thresholds.
func NewDetector(cfg Config) *Detector {
	return &Detector{
		cfg:   cfg,
		peers: make(map[identity.PeerId]*peerState),
	}
}

// Subscribe registers l to be invoked for every future drift Event.
func (d *Detector) Subscribe(l Listener) {
	d.listeners = append(d.listeners, l)
}

func (d *Detector) state(peer identity.PeerId) *peerState {
	s, ok := d.peers[peer]
	if !ok {
		s = &peerState{stances: make(map[string]belief.Belief)}
		d.peers[peer] = s
	}
	return s
}

// ObserveComms records that peer communicated at ts.
func (d *Detector) ObserveComms(peer identity.PeerId, ts time.Time) {
	s := d.state(peer)
	s.lastComms = ts
	if !s.hasHold {
		s.holdStart = ts
		s.hasHold = true
	}
}

// ObserveConfidence records peer's latest confidence level.
func (d *Detector) ObserveConfidence(peer identity.PeerId, confidence float64) {
	d.state(peer).confidence = confidence
}

// ObserveStance records peer's current stance on claim as of now, resetting
// the HOLD_TOO_LONG clock whenever the stance changes.
func (d *Detector) ObserveStance(peer identity.PeerId, claim string, b belief.Belief, now time.Time) {
	s := d.state(peer)
	prev, had := s.stances[claim]
	s.stances[claim] = b
	if !had || prev.Stance != b.Stance {
		s.holdStart = now
		s.hasHold = true
	}
}

// Reset clears peer's triggered flag, allowing it to fire again on a future
// cycle.
func (d *Detector) Reset(peer identity.PeerId) {
	if s, ok := d.peers[peer]; ok {
		s.triggered = false
	}
}

// Check evaluates every non-triggered peer against the four triggers in
// fixed order, firing at most one Event per peer per call.
func (d *Detector) Check(consensus belief.Consensus, now time.Time) []Event {
	var events []Event
	for peer, s := range d.peers {
		if s.triggered {
			continue
		}
		if ev, ok := d.evaluate(peer, s, consensus, now); ok {
			s.triggered = true
			events = append(events, ev)
			for _, l := range d.listeners {
				l(ev)
			}
		}
	}
	return events
}

func (d *Detector) evaluate(peer identity.PeerId, s *peerState, consensus belief.Consensus, now time.Time) (Event, bool) {
	if s.hasHold && now.Sub(s.holdStart) > d.cfg.HoldDriftThreshold {
		return Event{Peer: peer, Reason: ReasonHoldTooLong, Details: "stance held past threshold"}, true
	}
	if !s.lastComms.IsZero() && now.Sub(s.lastComms) > d.cfg.StaleCommsThreshold {
		return Event{Peer: peer, Reason: ReasonStaleComms, Details: "no communication past threshold"}, true
	}
	if s.confidence < d.cfg.ConfidenceDriftThreshold {
		return Event{Peer: peer, Reason: ReasonConfidenceDecay, Details: "confidence below threshold"}, true
	}
	if score := divergence(s.stances, consensus); score > d.cfg.BeliefDivergenceThreshold {
		return Event{Peer: peer, Reason: ReasonBeliefDivergence, Details: "belief diverges from consensus"}, true
	}
	return Event{}, false
}

// divergence computes the mean contribution over claims the peer and the
// consensus both hold: 1.0 if stances differ (and neither is unknown), else
// the absolute confidence delta.
func divergence(peerStances map[string]belief.Belief, consensus belief.Consensus) float64 {
	var total float64
	var n int
	for claim, peerBelief := range peerStances {
		consensusBelief, ok := consensus[claim]
		if !ok {
			continue
		}
		n++
		if peerBelief.Stance != consensusBelief.Stance &&
			peerBelief.Stance != belief.StanceUnknown &&
			consensusBelief.Stance != belief.StanceUnknown {
			total += 1.0
			continue
		}
		delta := peerBelief.Confidence - consensusBelief.Confidence
		if delta < 0 {
			delta = -delta
		}
		total += delta
	}
	if n == 0 {
		return 0
	}
	return total / float64(n)
}
