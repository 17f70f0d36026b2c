// Package propagation implements signal publish/forward, per spec §4.4:
// signature verification, TTL decrement, dedup, quarantine gating, and
// reputation feedback.
package propagation

import (
	"encoding/json"
	"errors"

	"github.com/swarmcore/governance/coremetrics"
	"github.com/swarmcore/governance/identity"
	"github.com/swarmcore/governance/quarantine"
	"github.com/swarmcore/governance/reputation"
	"github.com/swarmcore/governance/signal"
	"github.com/swarmcore/governance/transport"
	"github.com/swarmcore/governance/utils/linked"
)

// ErrInvalidSignature is returned by Publish when asked to send an unsigned
// or malformed signal; publishing an unverifiable signal is a programmer
// contract violation, not a recoverable wire error.
var ErrInvalidSignature = errors.New("propagation: signal does not verify")

// AcceptedHandler is invoked for every signal accepted by on_incoming.
type AcceptedHandler func(sig signal.Signal, from identity.PeerId)

// RejectedHandler is invoked for every signal dropped by on_incoming, except
// silent replay and duplicate drops.
type RejectedHandler func(sig signal.Signal, from identity.PeerId, reason string)

// BroadcastHandler is invoked for every signal this node puts on the wire,
// whether locally originated (Publish) or forwarded (OnIncoming).
type BroadcastHandler func(sig signal.Signal)

// Manager implements the propagation component: verify, dedup, forward.
type Manager struct {
	self        identity.PeerId
	transport   transport.Transport
	quarantine  *quarantine.Manager
	reputation  *reputation.Tracker
	metrics     *coremetrics.Metrics
	maxSeen     int

	seen        *linked.Hashmap[signal.DedupKey, struct{}]
	maxSeenID   map[identity.PeerId]uint64

	onAccepted  []AcceptedHandler
	onRejected  []RejectedHandler
	onBroadcast []BroadcastHandler
}

// NewManager returns a Manager for self. maxSeen bounds the dedup set (spec:
// max_seen_signals); on overflow the oldest 10% is evicted.
func NewManager(self identity.PeerId, tr transport.Transport, q *quarantine.Manager, rep *reputation.Tracker, metrics *coremetrics.Metrics, maxSeen int) *Manager {
	return &Manager{
		self:       self,
		transport:  tr,
		quarantine: q,
		reputation: rep,
		metrics:    metrics,
		maxSeen:    maxSeen,
		seen:       linked.NewHashmap[signal.DedupKey, struct{}](),
		maxSeenID:  make(map[identity.PeerId]uint64),
	}
}

// OnAccepted subscribes a handler invoked for every accepted signal.
func (m *Manager) OnAccepted(h AcceptedHandler) { m.onAccepted = append(m.onAccepted, h) }

// OnRejected subscribes a handler invoked for every non-silent rejection.
func (m *Manager) OnRejected(h RejectedHandler) { m.onRejected = append(m.onRejected, h) }

// OnBroadcast subscribes a handler invoked for every signal this node puts
// on the wire.
func (m *Manager) OnBroadcast(h BroadcastHandler) { m.onBroadcast = append(m.onBroadcast, h) }

// Publish broadcasts a locally originated, already-signed signal. It fails
// fatally if the signal does not verify: publishing an unsigned signal is a
// programmer error, not a wire-level failure.
func (m *Manager) Publish(sig signal.Signal) error {
	if !signal.Verify(sig) {
		return ErrInvalidSignature
	}
	m.markSeen(sig)
	return m.broadcast(sig)
}

// OnIncoming processes a signal received from a peer, per the §4.4 pipeline.
// A signal delivered with from equal to this node's own id is ignored.
func (m *Manager) OnIncoming(sig signal.Signal, from identity.PeerId) {
	if from == m.self {
		return
	}
	if m.quarantine != nil && m.quarantine.IsQuarantined(from) {
		m.reject(sig, from, "Sender quarantined")
		return
	}
	if !signal.Verify(sig) {
		if m.reputation != nil {
			m.reputation.RecordFailure(from)
		}
		m.reject(sig, from, "Invalid signature")
		return
	}
	if sig.TTL <= 0 {
		m.reject(sig, from, "TTL expired")
		return
	}
	if lastSeen, ok := m.maxSeenID[sig.SourceID]; ok && sig.SignalID <= lastSeen {
		return // replay: silent drop, no rejection event
	}
	if m.isSeen(sig) {
		return // duplicate: silent drop, no rejection event
	}

	m.markSeen(sig)
	if cur, ok := m.maxSeenID[sig.SourceID]; !ok || sig.SignalID > cur {
		m.maxSeenID[sig.SourceID] = sig.SignalID
	}
	if m.reputation != nil {
		m.reputation.RecordSuccess(from)
	}

	if m.quarantine == nil || !m.quarantine.IsQuarantined(m.self) {
		fwd := sig
		fwd.TTL--
		m.broadcast(fwd)
	}

	if m.metrics != nil {
		m.metrics.ObserveSignalAccepted()
	}
	for _, h := range m.onAccepted {
		h(sig, from)
	}
}

func (m *Manager) isSeen(sig signal.Signal) bool {
	_, ok := m.seen.Get(sig.Key())
	return ok
}

func (m *Manager) markSeen(sig signal.Signal) {
	m.seen.Put(sig.Key(), struct{}{})
	if m.maxSeen > 0 && m.seen.Len() > m.maxSeen {
		target := m.maxSeen - m.maxSeen/10 // retain most recent ~90%
		for m.seen.Len() > target {
			m.seen.DeleteOldest()
		}
	}
}

func (m *Manager) broadcast(sig signal.Signal) error {
	if m.transport == nil {
		return nil
	}
	body, err := json.Marshal(transport.LearningSignalBody{Signal: sig})
	if err != nil {
		return err
	}
	if err := m.transport.Broadcast(transport.Envelope{
		Type: transport.TypeLearningSignal,
		From: m.self,
		TS:   sig.Timestamp,
		Body: body,
	}); err != nil {
		return err
	}
	for _, h := range m.onBroadcast {
		h(sig)
	}
	return nil
}

func (m *Manager) reject(sig signal.Signal, from identity.PeerId, reason string) {
	if m.metrics != nil {
		m.metrics.ObserveSignalDropped(reason)
	}
	for _, h := range m.onRejected {
		h(sig, from, reason)
	}
}
