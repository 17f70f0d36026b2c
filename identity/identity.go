// Package identity defines the PeerId type: an opaque, stable identifier
// that is byte-exact equal to the hex encoding of an Ed25519 public key.
package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
)

// PeerId is the hex encoding of an Ed25519 public key. It is compared by
// value (string equality), never by pointer.
type PeerId string

// ErrInvalidPeerId is returned when a PeerId does not decode to a
// well-formed Ed25519 public key.
var ErrInvalidPeerId = errors.New("identity: invalid peer id")

// String returns the PeerId's hex string.
func (p PeerId) String() string { return string(p) }

// PublicKey decodes the PeerId back into an Ed25519 public key, validating
// its length.
func (p PeerId) PublicKey() (ed25519.PublicKey, error) {
	b, err := hex.DecodeString(string(p))
	if err != nil {
		return nil, ErrInvalidPeerId
	}
	if len(b) != ed25519.PublicKeySize {
		return nil, ErrInvalidPeerId
	}
	return ed25519.PublicKey(b), nil
}

// FromPublicKey derives the PeerId for a given Ed25519 public key.
func FromPublicKey(pub ed25519.PublicKey) PeerId {
	return PeerId(hex.EncodeToString(pub))
}

// KeyPair bundles an Ed25519 key pair with the PeerId derived from its
// public half.
type KeyPair struct {
	ID        PeerId
	PublicKey ed25519.PublicKey
	Private   ed25519.PrivateKey
}

// GenerateKeyPair creates a fresh Ed25519 key pair and its derived PeerId.
func GenerateKeyPair() (KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return KeyPair{}, err
	}
	return KeyPair{
		ID:        FromPublicKey(pub),
		PublicKey: pub,
		Private:   priv,
	}, nil
}
