// Package membership tracks peer liveness and drives HELLO/HEARTBEAT/
// PEER_LIST exchange, per spec §4.3.
package membership

import (
	"encoding/json"
	"time"

	"github.com/swarmcore/governance/admission"
	"github.com/swarmcore/governance/coremetrics"
	"github.com/swarmcore/governance/identity"
	"github.com/swarmcore/governance/transport"
	"github.com/swarmcore/governance/tstate"
	"github.com/swarmcore/governance/utils/set"
)

// PeerInfo is one tracked peer's liveness state.
type PeerInfo struct {
	LastSeen   time.Time
	Alive      bool
	Confidence float64
}

// Manager tracks every known peer and drives the periodic HELLO/HEARTBEAT/
// PEER_LIST cadence.
type Manager struct {
	self             identity.PeerId
	transport        transport.Transport
	tstate           *tstate.Manager
	admission        *admission.Controller
	metrics          *coremetrics.Metrics
	heartbeatInterval time.Duration
	peerTimeout      time.Duration
	maxPeers         int

	peers            map[identity.PeerId]*PeerInfo
	lastHeartbeat    time.Time
	lastPeerList     time.Time
}

// NewManager returns a Manager for self, using tr to send/broadcast, ts to
// feed liveness observations, and adm (optional) to gate a returning peer's
// re-admission per spec §4.8.
func NewManager(self identity.PeerId, tr transport.Transport, ts *tstate.Manager, adm *admission.Controller, metrics *coremetrics.Metrics, heartbeatInterval, peerTimeout time.Duration, maxPeers int) *Manager {
	return &Manager{
		self:              self,
		transport:         tr,
		tstate:            ts,
		admission:         adm,
		metrics:           metrics,
		heartbeatInterval: heartbeatInterval,
		peerTimeout:       peerTimeout,
		maxPeers:          maxPeers,
		peers:             make(map[identity.PeerId]*PeerInfo),
	}
}

func (m *Manager) observe(peer identity.PeerId, now time.Time, confidence float64) {
	if peer == m.self {
		return
	}
	if m.admission != nil && !m.admission.Admit(peer) {
		return
	}
	info, ok := m.peers[peer]
	if !ok {
		info = &PeerInfo{}
		m.peers[peer] = info
	}
	info.LastSeen = now
	if confidence > 0 {
		info.Confidence = confidence
	}
	info.Alive = true
	if m.tstate != nil {
		m.tstate.Observe(peer, now, info.Confidence)
	}
	m.enforceMaxPeers()
}

// OnHello observes the sender and replies point-to-point with PEER_LIST.
func (m *Manager) OnHello(from identity.PeerId, now time.Time) {
	m.observe(from, now, 0)
	if m.transport == nil {
		return
	}
	body, err := json.Marshal(transport.PeerListBody{Peers: m.AlivePeers().List()})
	if err != nil {
		return
	}
	m.transport.Send(from, transport.Envelope{
		Type: transport.TypePeerList,
		From: m.self,
		TS:   now.UnixMilli(),
		Body: body,
	})
}

// OnHeartbeat observes the sender's liveness and reported confidence.
func (m *Manager) OnHeartbeat(from identity.PeerId, confidence float64, now time.Time) {
	m.observe(from, now, confidence)
}

// OnPeerList observes the sender and every listed peer as a liveness hint
// only; it never extends transitive trust.
func (m *Manager) OnPeerList(from identity.PeerId, peers []identity.PeerId, now time.Time) {
	m.observe(from, now, 0)
	for _, p := range peers {
		m.observe(p, now, 0)
	}
}

// AlivePeers returns the set of peers currently considered alive.
func (m *Manager) AlivePeers() set.Set[identity.PeerId] {
	s := set.NewSet[identity.PeerId](len(m.peers))
	for id, info := range m.peers {
		if info.Alive {
			s.Add(id)
		}
	}
	return s
}

// Count returns the number of tracked peers.
func (m *Manager) Count() int {
	return len(m.peers)
}

func (m *Manager) enforceMaxPeers() {
	if m.maxPeers <= 0 || len(m.peers) <= m.maxPeers {
		return
	}
	for len(m.peers) > m.maxPeers {
		var oldest identity.PeerId
		var oldestTime time.Time
		first := true
		for id, info := range m.peers {
			if first || info.LastSeen.Before(oldestTime) {
				oldest = id
				oldestTime = info.LastSeen
				first = false
			}
		}
		delete(m.peers, oldest)
		if m.tstate != nil {
			m.tstate.Forget(oldest)
		}
	}
}

// Tick drives the periodic cadence: heartbeat every heartbeatInterval,
// PEER_LIST every 2×heartbeatInterval, liveness recompute, and T-state
// update. It must be called regularly by the owning node's scheduler.
func (m *Manager) Tick(now time.Time) {
	if m.lastHeartbeat.IsZero() || now.Sub(m.lastHeartbeat) >= m.heartbeatInterval {
		m.lastHeartbeat = now
		if m.transport != nil {
			hb := transport.HeartbeatBody{Confidence: 1}
			if m.tstate != nil {
				hb.TState = m.tstate.Current().String()
			}
			if body, err := json.Marshal(hb); err == nil {
				m.transport.Broadcast(transport.Envelope{
					Type: transport.TypeHeartbeat,
					From: m.self,
					TS:   now.UnixMilli(),
					Body: body,
				})
			}
		}
	}
	if m.lastPeerList.IsZero() || now.Sub(m.lastPeerList) >= 2*m.heartbeatInterval {
		m.lastPeerList = now
		if m.transport != nil {
			if body, err := json.Marshal(transport.PeerListBody{Peers: m.AlivePeers().List()}); err == nil {
				m.transport.Broadcast(transport.Envelope{
					Type: transport.TypePeerList,
					From: m.self,
					TS:   now.UnixMilli(),
					Body: body,
				})
			}
		}
	}

	for id, info := range m.peers {
		info.Alive = now.Sub(info.LastSeen) <= m.peerTimeout
		if m.tstate != nil {
			m.tstate.Observe(id, info.LastSeen, info.Confidence)
		}
	}
	if m.tstate != nil {
		m.tstate.Update(now)
		if m.metrics != nil {
			m.metrics.SetTState(int(m.tstate.Current()))
		}
	}
}
