// Package authority manages time-bounded authority windows, per spec §4.10.
// A peer holds at most one window at a time; windows shrink (never extend)
// as the swarm's T-state degrades, and expire on wall-clock time.
package authority

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/swarmcore/governance/clock"
	"github.com/swarmcore/governance/identity"
	"github.com/swarmcore/governance/transport"
	"github.com/swarmcore/governance/tstate"
)

// Request is a pending authority request awaiting grant or denial.
type Request struct {
	ID     string
	Peer   identity.PeerId
	Scope  string
	Reason string
}

// Window is a materialized, time-bounded authority grant.
type Window struct {
	Peer      identity.PeerId
	Scope     string
	GrantedAt time.Time
	ExpiresAt time.Time
}

// RevokeListener is notified when a window is revoked, e.g. by drift
// detection. The manager's own Revoke invokes it after removing the window.
type RevokeListener func(peer identity.PeerId, reason string)

// ExpireListener is notified when a window lapses on its own.
type ExpireListener func(peer identity.PeerId)

// DenyListener is notified when a request is denied, either because the
// current T-state forbids granting new authority or via an explicit Deny.
type DenyListener func(peer identity.PeerId, reason string)

// Manager grants, revokes, and expires authority windows.
type Manager struct {
	mu            sync.Mutex
	self          identity.PeerId
	transport     transport.Transport
	baseDuration  time.Duration
	clock         clock.Clock
	tstate        *tstate.Manager
	pending       map[string]Request
	windows       map[identity.PeerId]Window
	onRevoke      []RevokeListener
	onExpire      []ExpireListener
	onDeny        []DenyListener
}

// NewManager returns a Manager for self, announcing every request/grant/
// deny/revoke over tr. baseDuration is the T0 window length (spec:
// base_authority_duration_ms). ts supplies the current T-state for both the
// grant gate and the shrink-on-degradation behavior; the manager subscribes
// to ts's transitions.
func NewManager(self identity.PeerId, tr transport.Transport, baseDuration time.Duration, clk clock.Clock, ts *tstate.Manager) *Manager {
	if clk == nil {
		clk = clock.Real{}
	}
	m := &Manager{
		self:         self,
		transport:    tr,
		baseDuration: baseDuration,
		clock:        clk,
		tstate:       ts,
		pending:      make(map[string]Request),
		windows:      make(map[identity.PeerId]Window),
	}
	if ts != nil {
		ts.Subscribe(func(prev, next tstate.State) {
			m.shrinkWindows(next)
		})
	}
	return m
}

func (m *Manager) broadcast(t transport.MessageType, now time.Time, v interface{}) {
	if m.transport == nil {
		return
	}
	body, err := json.Marshal(v)
	if err != nil {
		return
	}
	m.transport.Broadcast(transport.Envelope{
		Type: t,
		From: m.self,
		TS:   now.UnixMilli(),
		Body: body,
	})
}

// OnRevoke subscribes a listener invoked whenever a window is revoked.
func (m *Manager) OnRevoke(l RevokeListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onRevoke = append(m.onRevoke, l)
}

// OnExpire subscribes a listener invoked whenever a window lapses.
func (m *Manager) OnExpire(l ExpireListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onExpire = append(m.onExpire, l)
}

// OnDeny subscribes a listener invoked whenever a request is denied.
func (m *Manager) OnDeny(l DenyListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onDeny = append(m.onDeny, l)
}

func (m *Manager) fireDeny(peer identity.PeerId, reason string) {
	m.mu.Lock()
	listeners := append([]DenyListener(nil), m.onDeny...)
	m.mu.Unlock()
	for _, l := range listeners {
		l(peer, reason)
	}
}

// Request records a pending authority request for peer, returning nil if
// the current T-state forbids granting new authority.
func (m *Manager) Request(peer identity.PeerId, scope, reason string) *Request {
	if m.tstate != nil && !m.tstate.Current().CanGrantNewAuthority() {
		m.fireDeny(peer, "T-state forbids granting new authority")
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	req := Request{ID: uuid.NewString(), Peer: peer, Scope: scope, Reason: reason}
	m.pending[req.ID] = req
	m.broadcast(transport.TypeAuthorityRequest, m.clock.Now(), transport.AuthorityRequestBody{
		RequestID: req.ID,
		Scope:     scope,
		Reason:    reason,
	})
	return &req
}

// Grant materializes a window for a pending request, sized by the current
// T-state multiplier. It is a no-op returning false for an unknown request
// id (UnknownRequest).
func (m *Manager) Grant(requestID string) (Window, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	req, ok := m.pending[requestID]
	if !ok {
		return Window{}, false
	}
	delete(m.pending, requestID)

	mult := 1.0
	if m.tstate != nil {
		mult = m.tstate.Current().Multiplier()
	}
	now := m.clock.Now()
	w := Window{
		Peer:      req.Peer,
		Scope:     req.Scope,
		GrantedAt: now,
		ExpiresAt: now.Add(time.Duration(float64(m.baseDuration) * mult)),
	}
	m.windows[req.Peer] = w
	m.broadcast(transport.TypeAuthorityGrant, now, transport.AuthorityGrantBody{
		RequestID: requestID,
		ExpiresAt: w.ExpiresAt.UnixMilli(),
	})
	return w, true
}

// Deny discards a pending request. It is a no-op returning false for an
// unknown request id.
func (m *Manager) Deny(requestID string) bool {
	m.mu.Lock()
	req, ok := m.pending[requestID]
	if !ok {
		m.mu.Unlock()
		return false
	}
	delete(m.pending, requestID)
	m.mu.Unlock()

	m.broadcast(transport.TypeAuthorityDeny, m.clock.Now(), transport.AuthorityDenyBody{RequestID: requestID})
	m.fireDeny(req.Peer, "denied")
	return true
}

// Revoke removes peer's window, if any, and notifies onRevoke listeners.
func (m *Manager) Revoke(peer identity.PeerId, reason string) bool {
	m.mu.Lock()
	_, ok := m.windows[peer]
	if ok {
		delete(m.windows, peer)
	}
	listeners := append([]RevokeListener(nil), m.onRevoke...)
	m.mu.Unlock()

	if !ok {
		return false
	}
	m.broadcast(transport.TypeAuthorityRevoke, m.clock.Now(), transport.AuthorityRevokeBody{Reason: reason})
	for _, l := range listeners {
		l(peer, reason)
	}
	return true
}

// HasAuthority reports whether peer currently holds a live window.
func (m *Manager) HasAuthority(peer identity.PeerId, now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.windows[peer]
	if !ok {
		return false
	}
	if now.After(w.ExpiresAt) {
		delete(m.windows, peer)
		return false
	}
	return true
}

// CheckExpirations removes every window that has lapsed as of now, notifying
// onExpire listeners for each.
func (m *Manager) CheckExpirations(now time.Time) {
	m.mu.Lock()
	var expired []identity.PeerId
	for peer, w := range m.windows {
		if now.After(w.ExpiresAt) {
			expired = append(expired, peer)
			delete(m.windows, peer)
		}
	}
	listeners := append([]ExpireListener(nil), m.onExpire...)
	m.mu.Unlock()

	for _, peer := range expired {
		for _, l := range listeners {
			l(peer)
		}
	}
}

// shrinkWindows multiplies each remaining window's remaining time by next's
// multiplier. It never extends a window past its original grant; it is
// invoked automatically on every T-state transition.
func (m *Manager) shrinkWindows(next tstate.State) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	mult := next.Multiplier()
	for peer, w := range m.windows {
		remaining := w.ExpiresAt.Sub(now)
		if remaining <= 0 {
			continue
		}
		shrunk := time.Duration(float64(remaining) * mult)
		w.ExpiresAt = now.Add(shrunk)
		m.windows[peer] = w
	}
}

// Windows returns a copy of every currently tracked window.
func (m *Manager) Windows() map[identity.PeerId]Window {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[identity.PeerId]Window, len(m.windows))
	for k, v := range m.windows {
		out[k] = v
	}
	return out
}

// Count returns the number of currently tracked windows (not pruned for
// expiry; call CheckExpirations first for an exact live count).
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.windows)
}
