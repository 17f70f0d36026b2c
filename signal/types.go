// Package signal implements the wire Signal type: canonical serialization,
// SHA-256 hashing, and Ed25519 sign/verify, per spec §4.1.
package signal

import "github.com/swarmcore/governance/identity"

// Direction is the stance direction a signal asserts about a claim.
type Direction string

const (
	Strengthen Direction = "strengthen"
	Weaken     Direction = "weaken"
	Retract    Direction = "retract"
)

// Type distinguishes the kind of belief update a signal carries.
type Type string

const (
	TypeDelta       Type = "delta"
	TypeCorrection  Type = "correction"
	TypeDeprecation Type = "deprecation"
)

// Scope bounds how widely a signal is meant to propagate.
type Scope string

const (
	ScopeLocal   Scope = "local"
	ScopeCluster Scope = "cluster"
	ScopeGlobal  Scope = "global"
)

// Payload is the belief-update body of a signal.
type Payload struct {
	ClaimHash    string  `json:"claim_hash"`
	Direction    Direction `json:"direction"`
	Confidence   float64 `json:"confidence"`
	EvidenceHash string  `json:"evidence_hash,omitempty"`
}

// Signal is immutable once signed. Field order here matches the canonical
// encoding order (source_id, signal_id, timestamp, domain, signal_type,
// payload, ttl, scope, prior_signal). CanonicalBytes (codec.go) encodes
// through a separate signature-free struct with that same field order.
type Signal struct {
	SourceID     identity.PeerId `json:"source_id"`
	SignalID     uint64          `json:"signal_id"`
	Timestamp    int64           `json:"timestamp"`
	Domain       string          `json:"domain"`
	SignalType   Type            `json:"signal_type"`
	Payload      Payload         `json:"payload"`
	TTL          int             `json:"ttl"`
	Scope        Scope           `json:"scope"`
	PriorSignal  *string         `json:"prior_signal,omitempty"`
	Signature    string          `json:"signature"`
}

// DedupKey identifies a signal for deduplication purposes: it is a function
// of (source_id, signal_id, payload, domain), per spec §4.4 step 4 — NOT of
// timestamp/ttl/scope, so retransmissions with a decremented TTL still
// collide with the original.
type DedupKey struct {
	SourceID identity.PeerId
	SignalID uint64
	Domain   string
	Payload  Payload
}
