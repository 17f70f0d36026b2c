// Package arbitration implements the proposal/vote/tally lifecycle, per
// spec §4.7, including vote-weight anti-inflation against current
// influence.
package arbitration

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"github.com/swarmcore/governance/coremetrics"
	"github.com/swarmcore/governance/conflict"
	"github.com/swarmcore/governance/identity"
	"github.com/swarmcore/governance/quarantine"
	"github.com/swarmcore/governance/reputation"
	"github.com/swarmcore/governance/transport"
)

// Status is a proposal's lifecycle state.
type Status string

const (
	StatusOpen     Status = "open"
	StatusResolved Status = "resolved"
)

type vote struct {
	option string
	weight float64
}

// Proposal is one open or resolved arbitration round.
type Proposal struct {
	ID      string
	Claim   string
	Options []string
	Status  Status
	Winner  string

	votes map[identity.PeerId]vote
}

// ResolvedHandler is invoked when a proposal is resolved.
type ResolvedHandler func(p *Proposal)

// Manager owns every tracked proposal.
type Manager struct {
	mu          sync.Mutex
	self        identity.PeerId
	transport   transport.Transport
	quarantine  *quarantine.Manager
	reputation  *reputation.Tracker
	conflicts   *conflict.Accumulator
	metrics     *coremetrics.Metrics
	minVoteRep  float64
	proposals   map[string]*Proposal
	onResolved  []ResolvedHandler
}

// NewManager returns a Manager for self.
func NewManager(self identity.PeerId, tr transport.Transport, q *quarantine.Manager, rep *reputation.Tracker, conflicts *conflict.Accumulator, metrics *coremetrics.Metrics, minVoteRep float64) *Manager {
	return &Manager{
		self:       self,
		transport:  tr,
		quarantine: q,
		reputation: rep,
		conflicts:  conflicts,
		metrics:    metrics,
		minVoteRep: minVoteRep,
		proposals:  make(map[string]*Proposal),
	}
}

// OnResolved subscribes a handler invoked when any proposal resolves.
func (m *Manager) OnResolved(h ResolvedHandler) { m.onResolved = append(m.onResolved, h) }

// Propose opens a new proposal for claim with the given options and
// broadcasts ARBITRATION_PROPOSAL.
func (m *Manager) Propose(claim string, options []string) *Proposal {
	p := &Proposal{
		ID:      uuid.NewString(),
		Claim:   claim,
		Options: options,
		Status:  StatusOpen,
		votes:   make(map[identity.PeerId]vote),
	}
	m.mu.Lock()
	m.proposals[p.ID] = p
	m.mu.Unlock()

	if m.transport != nil {
		body, err := json.Marshal(transport.ArbitrationProposalBody{
			ProposalID: p.ID,
			ClaimHash:  claim,
			Options:    options,
		})
		if err == nil {
			m.transport.Broadcast(transport.Envelope{
				Type: transport.TypeArbitrationProposal,
				From: m.self,
				Body: body,
			})
		}
	}
	return p
}

// OnPropose records a proposal received from another peer under its
// originating id, so subsequent OnVote calls against that id resolve. It is
// a no-op if id is already tracked.
func (m *Manager) OnPropose(id, claim string, options []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.proposals[id]; ok {
		return
	}
	m.proposals[id] = &Proposal{
		ID:      id,
		Claim:   claim,
		Options: options,
		Status:  StatusOpen,
		votes:   make(map[identity.PeerId]vote),
	}
}

func (m *Manager) canVote(peer identity.PeerId) bool {
	if m.quarantine != nil && m.quarantine.IsQuarantined(peer) {
		return false
	}
	if m.reputation != nil {
		return m.reputation.CanVote(peer)
	}
	return true
}

func (m *Manager) influence(peer identity.PeerId) float64 {
	if m.reputation != nil {
		return m.reputation.GetInfluence(peer)
	}
	return 1
}

// Vote casts the local node's vote for option on proposalID, broadcasting
// ARBITRATION_VOTE. It is a no-op returning false if the voter cannot vote
// or the proposal is unknown/resolved.
func (m *Manager) Vote(proposalID, option string) bool {
	return m.recordVote(proposalID, m.self, option, m.influence(m.self))
}

// OnVote records an incoming vote from a peer, applying the same
// eligibility checks and weight anti-inflation as a local vote.
func (m *Manager) OnVote(proposalID string, from identity.PeerId, option string, claimedWeight float64) bool {
	weight := claimedWeight
	if cur := m.influence(from); cur < weight {
		weight = cur
	}
	return m.recordVote(proposalID, from, option, weight)
}

func (m *Manager) recordVote(proposalID string, voter identity.PeerId, option string, weight float64) bool {
	if !m.canVote(voter) {
		return false
	}
	m.mu.Lock()
	p, ok := m.proposals[proposalID]
	if !ok || p.Status != StatusOpen {
		m.mu.Unlock()
		return false
	}
	valid := false
	for _, o := range p.Options {
		if o == option {
			valid = true
			break
		}
	}
	if !valid {
		m.mu.Unlock()
		return false
	}
	p.votes[voter] = vote{option: option, weight: weight} // duplicate votes overwrite
	m.mu.Unlock()

	if voter == m.self && m.transport != nil {
		body, err := json.Marshal(transport.ArbitrationVoteBody{
			ProposalID: proposalID,
			Option:     option,
			Weight:     weight,
		})
		if err == nil {
			m.transport.Broadcast(transport.Envelope{
				Type: transport.TypeArbitrationVote,
				From: m.self,
				Body: body,
			})
		}
	}
	return true
}

// Tally computes the current score per option, restricted to non-quarantined
// voters with anti-inflated weight, and resolves the proposal on its winner.
func (m *Manager) Tally(proposalID string) (winner string, resolved bool) {
	m.mu.Lock()
	p, ok := m.proposals[proposalID]
	if !ok {
		m.mu.Unlock()
		return "", false
	}
	scores := make(map[string]float64, len(p.Options))
	for _, opt := range p.Options {
		scores[opt] = 0
	}
	for voter, v := range p.votes {
		if m.quarantine != nil && m.quarantine.IsQuarantined(voter) {
			continue
		}
		w := v.weight
		if cur := m.influence(voter); cur < w {
			w = cur
		}
		scores[v.option] += w
	}

	best := ""
	bestScore := -1.0
	for _, opt := range p.Options { // fixed order: earliest option index wins ties
		if scores[opt] > bestScore {
			best = opt
			bestScore = scores[opt]
		}
	}
	p.Status = StatusResolved
	p.Winner = best
	claim := p.Claim
	m.mu.Unlock()

	if m.conflicts != nil {
		m.conflicts.Resolve(claim)
	}
	if m.metrics != nil {
		m.metrics.ObserveArbitrationWinner(best)
	}
	for _, h := range m.onResolved {
		h(p)
	}
	return best, true
}

// Get returns the proposal for id, if tracked.
func (m *Manager) Get(id string) (*Proposal, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.proposals[id]
	return p, ok
}
