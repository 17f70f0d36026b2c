// Package checkpoint implements the request/response stance-snapshot
// protocol, per spec §4.6.
package checkpoint

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/swarmcore/governance/belief"
	"github.com/swarmcore/governance/conflict"
	"github.com/swarmcore/governance/identity"
	"github.com/swarmcore/governance/transport"
)

// Response is one peer's reply to a CHECKPOINT_REQ.
type Response struct {
	From       identity.PeerId
	Stance     belief.Stance
	Confidence float64
	Meaning    string
}

// Callback is invoked with every response received for a request. It is not
// invoked when the request is pruned.
type Callback func(resp Response)

type pendingRequest struct {
	claim     string
	createdAt time.Time
	responses []Response
	callback  Callback
}

// Manager tracks outstanding checkpoint requests and answers incoming ones.
type Manager struct {
	mu        sync.Mutex
	self      identity.PeerId
	transport transport.Transport
	beliefs   *belief.Store
	conflicts *conflict.Accumulator
	maxAge    time.Duration
	pending   map[string]*pendingRequest
}

// NewManager returns a Manager for self, answering CHECKPOINT_REQ from b and
// feeding responses into conflicts. maxAge bounds how long a request is kept
// before pruning (spec default 30s).
func NewManager(self identity.PeerId, tr transport.Transport, b *belief.Store, conflicts *conflict.Accumulator, maxAge time.Duration) *Manager {
	return &Manager{
		self:      self,
		transport: tr,
		beliefs:   b,
		conflicts: conflicts,
		maxAge:    maxAge,
		pending:   make(map[string]*pendingRequest),
	}
}

// RequestCheckpoint broadcasts a CHECKPOINT_REQ for claim and tracks the
// pending request, invoking cb (if non-nil) for every future response.
func (m *Manager) RequestCheckpoint(claim string, now time.Time, cb Callback) string {
	id := uuid.NewString()

	m.mu.Lock()
	m.pending[id] = &pendingRequest{claim: claim, createdAt: now, callback: cb}
	m.mu.Unlock()

	if m.transport != nil {
		body, err := json.Marshal(transport.CheckpointReqBody{ClaimHash: claim})
		if err == nil {
			m.transport.Broadcast(transport.Envelope{
				Type: transport.TypeCheckpointReq,
				From: m.self,
				TS:   now.UnixMilli(),
				Body: body,
			})
		}
	}
	return id
}

// OnCheckpointReq answers an incoming CHECKPOINT_REQ with our current stance
// on claim, or (unknown, 0) if we hold no belief.
func (m *Manager) OnCheckpointReq(claim string, from identity.PeerId, now time.Time) transport.CheckpointRespBody {
	b, ok := m.beliefs.Get(claim)
	if !ok {
		return transport.CheckpointRespBody{ClaimHash: claim, Stance: string(belief.StanceUnknown), Confidence: 0}
	}
	return transport.CheckpointRespBody{
		ClaimHash:  claim,
		Stance:     string(b.Stance),
		Confidence: b.Confidence,
	}
}

// OnCheckpointResp records a response against requestID, feeds it into the
// conflict accumulator, and invokes the request's callback.
func (m *Manager) OnCheckpointResp(requestID string, from identity.PeerId, stance belief.Stance, confidence float64, meaning string) {
	m.mu.Lock()
	req, ok := m.pending[requestID]
	if !ok {
		m.mu.Unlock()
		return
	}
	resp := Response{From: from, Stance: stance, Confidence: confidence, Meaning: meaning}
	req.responses = append(req.responses, resp)
	claim := req.claim
	cb := req.callback
	m.mu.Unlock()

	if m.conflicts != nil {
		m.conflicts.ObserveBelief(from, claim, stance)
	}
	if cb != nil {
		cb(resp)
	}
}

// PendingIDsForClaim returns every currently tracked request id awaiting
// responses for claim. CHECKPOINT_RESP carries claimHash, not the
// requestID the requester generated, so the transport-facing dispatcher
// resolves the wire response against this set.
func (m *Manager) PendingIDsForClaim(claim string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id, req := range m.pending {
		if req.claim == claim {
			ids = append(ids, id)
		}
	}
	return ids
}

// Responses returns every response recorded so far for requestID.
func (m *Manager) Responses(requestID string) []Response {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.pending[requestID]
	if !ok {
		return nil
	}
	out := make([]Response, len(req.responses))
	copy(out, req.responses)
	return out
}

// Prune removes every pending request older than maxAge as of now.
func (m *Manager) Prune(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, req := range m.pending {
		if now.Sub(req.createdAt) > m.maxAge {
			delete(m.pending, id)
		}
	}
}

// PendingCount returns the number of requests currently tracked.
func (m *Manager) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}
