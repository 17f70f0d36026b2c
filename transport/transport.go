// Package transport defines the wire contract every governance-core node
// runs over, per spec §6. It is interfaces and message types only; a
// concrete transport (gRPC, libp2p gossip, in-memory test bus) is supplied
// by the embedding application.
package transport

import (
	"encoding/json"

	"github.com/swarmcore/governance/identity"
	"github.com/swarmcore/governance/signal"
)

// MessageType names one of the wire message kinds in §6.
type MessageType string

const (
	TypeHello               MessageType = "HELLO"
	TypeHeartbeat           MessageType = "HEARTBEAT"
	TypePeerList            MessageType = "PEER_LIST"
	TypeLearningSignal      MessageType = "LEARNING_SIGNAL"
	TypeCheckpointReq       MessageType = "CHECKPOINT_REQ"
	TypeCheckpointResp      MessageType = "CHECKPOINT_RESP"
	TypeArbitrationProposal MessageType = "ARBITRATION_PROPOSAL"
	TypeArbitrationVote     MessageType = "ARBITRATION_VOTE"
	TypeAuthorityRequest    MessageType = "AUTHORITY_REQUEST"
	TypeAuthorityGrant      MessageType = "AUTHORITY_GRANT"
	TypeAuthorityDeny       MessageType = "AUTHORITY_DENY"
	TypeAuthorityRevoke     MessageType = "AUTHORITY_REVOKE"
	TypePatternBundle       MessageType = "PATTERN_BUNDLE"
	TypeQuarantineNotice    MessageType = "QUARANTINE_NOTICE"
)

// Envelope is the outer wire frame every message travels in. Implementations
// MUST ignore unknown fields on decode for forward compatibility.
type Envelope struct {
	Type MessageType     `json:"type"`
	From identity.PeerId `json:"from"`
	TS   int64           `json:"ts"`
	Body json.RawMessage `json:"body,omitempty"`
}

// HelloBody is HELLO's payload.
type HelloBody struct {
	KnownPeers []identity.PeerId `json:"knownPeers,omitempty"`
	TState     string            `json:"tState,omitempty"`
}

// HeartbeatBody is HEARTBEAT's payload.
type HeartbeatBody struct {
	TState     string  `json:"tState,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// PeerListBody is PEER_LIST's payload.
type PeerListBody struct {
	Peers []identity.PeerId `json:"peers"`
}

// LearningSignalBody is LEARNING_SIGNAL's payload.
type LearningSignalBody struct {
	Signal signal.Signal `json:"signal"`
}

// CheckpointReqBody is CHECKPOINT_REQ's payload.
type CheckpointReqBody struct {
	ClaimHash string `json:"claimHash"`
}

// CheckpointRespBody is CHECKPOINT_RESP's payload.
type CheckpointRespBody struct {
	ClaimHash  string  `json:"claimHash"`
	Stance     string  `json:"stance"`
	Confidence float64 `json:"confidence"`
	Meaning    string  `json:"meaning,omitempty"`
}

// ArbitrationProposalBody is ARBITRATION_PROPOSAL's payload.
type ArbitrationProposalBody struct {
	ProposalID string   `json:"proposalId"`
	ClaimHash  string   `json:"claimHash"`
	Options    []string `json:"options"`
}

// ArbitrationVoteBody is ARBITRATION_VOTE's payload.
type ArbitrationVoteBody struct {
	ProposalID string  `json:"proposalId"`
	Option     string  `json:"option"`
	Weight     float64 `json:"weight"`
}

// AuthorityRequestBody is AUTHORITY_REQUEST's payload.
type AuthorityRequestBody struct {
	RequestID string `json:"requestId"`
	Scope     string `json:"scope"`
	Reason    string `json:"reason"`
}

// AuthorityGrantBody is AUTHORITY_GRANT's payload.
type AuthorityGrantBody struct {
	RequestID string `json:"requestId"`
	ExpiresAt int64  `json:"expiresAt"`
}

// AuthorityDenyBody is AUTHORITY_DENY's payload.
type AuthorityDenyBody struct {
	RequestID string `json:"requestId"`
}

// AuthorityRevokeBody is AUTHORITY_REVOKE's payload.
type AuthorityRevokeBody struct {
	Reason string `json:"reason"`
}

// PatternBundleBody is PATTERN_BUNDLE's payload.
type PatternBundleBody struct {
	Bundle json.RawMessage `json:"bundle"`
}

// QuarantineNoticeBody is QUARANTINE_NOTICE's payload.
type QuarantineNoticeBody struct {
	TargetPeer identity.PeerId `json:"targetPeer"`
	Reason     string          `json:"reason"`
}

// Handler processes one incoming Envelope from a peer.
type Handler func(env Envelope)

// Transport is the narrow send/broadcast/receive contract every node runs
// over. Implementations MUST NOT deliver a node's own broadcasts back to
// it, and MUST silently drop point-to-point sends to an unknown recipient.
type Transport interface {
	ID() identity.PeerId
	Send(to identity.PeerId, env Envelope) error
	Broadcast(env Envelope) error
	OnMessage(h Handler)
}
