package signal

import (
	"crypto/sha256"
	"encoding/json"

	"github.com/swarmcore/governance/identity"
)

// canonical is the signature-free projection of Signal in the exact field
// order spec §4.1 mandates. Keeping it as a distinct type (rather than
// reusing Signal with an omitted Signature) guarantees the signature field
// can never leak into the bytes that get hashed and signed.
type canonical struct {
	SourceID    identity.PeerId  `json:"source_id"`
	SignalID    uint64      `json:"signal_id"`
	Timestamp   int64       `json:"timestamp"`
	Domain      string      `json:"domain"`
	SignalType  Type        `json:"signal_type"`
	Payload     canonicalPayload `json:"payload"`
	TTL         int         `json:"ttl"`
	Scope       Scope       `json:"scope"`
	PriorSignal *string     `json:"prior_signal,omitempty"`
}

type canonicalPayload struct {
	ClaimHash    string    `json:"claim_hash"`
	Direction    Direction `json:"direction"`
	Confidence   float64   `json:"confidence"`
	EvidenceHash string    `json:"evidence_hash,omitempty"`
}

// CanonicalBytes serializes s into the deterministic JSON form used for
// hashing and signing: UTF-8, fixed field order, no insignificant
// whitespace (encoding/json's default compact output already satisfies
// this).
func (s Signal) CanonicalBytes() ([]byte, error) {
	c := canonical{
		SourceID:   s.SourceID,
		SignalID:   s.SignalID,
		Timestamp:  s.Timestamp,
		Domain:     s.Domain,
		SignalType: s.SignalType,
		Payload: canonicalPayload{
			ClaimHash:    s.Payload.ClaimHash,
			Direction:    s.Payload.Direction,
			Confidence:   s.Payload.Confidence,
			EvidenceHash: s.Payload.EvidenceHash,
		},
		TTL:         s.TTL,
		Scope:       s.Scope,
		PriorSignal: s.PriorSignal,
	}
	return json.Marshal(c)
}

// Hash returns SHA-256(utf8(canonical(s))), the digest signed and verified
// per spec §4.1.
func (s Signal) Hash() ([32]byte, error) {
	b, err := s.CanonicalBytes()
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(b), nil
}

// Key returns the dedup key for s (spec §4.4 step 4: a function of
// source_id, signal_id, payload, domain).
func (s Signal) Key() DedupKey {
	return DedupKey{
		SourceID: s.SourceID,
		SignalID: s.SignalID,
		Domain:   s.Domain,
		Payload:  s.Payload,
	}
}
