package signal

import (
	"crypto/ed25519"
	"encoding/hex"
)

// Sign computes the canonical hash of s and signs it with priv, returning a
// copy of s with Signature populated. s.SourceID must already equal
// identity.FromPublicKey(priv.Public()) — Sign does not set SourceID.
func Sign(s Signal, priv ed25519.PrivateKey) (Signal, error) {
	h, err := s.Hash()
	if err != nil {
		return Signal{}, err
	}
	sig := ed25519.Sign(priv, h[:])
	s.Signature = hex.EncodeToString(sig)
	return s, nil
}

// Verify reports whether s carries a valid Ed25519 signature over its own
// canonical hash, produced by the key named in s.SourceID. It never panics:
// malformed hex, a wrong-length signature, or an algebraic verification
// failure all simply return false.
func Verify(s Signal) bool {
	pub, err := s.SourceID.PublicKey()
	if err != nil {
		return false
	}
	sig, err := hex.DecodeString(s.Signature)
	if err != nil {
		return false
	}
	if len(sig) != ed25519.SignatureSize {
		return false
	}
	h, err := s.Hash()
	if err != nil {
		return false
	}
	return ed25519.Verify(pub, h[:], sig)
}
