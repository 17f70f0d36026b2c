package signal_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/swarmcore/governance/identity"
	"github.com/swarmcore/governance/signal"
)

func newSignedSignal(t *testing.T, kp identity.KeyPair, id uint64) signal.Signal {
	t.Helper()
	s := signal.Signal{
		SourceID:   kp.ID,
		SignalID:   id,
		Timestamp:  1000,
		Domain:     "test.domain",
		SignalType: signal.TypeDelta,
		Payload: signal.Payload{
			ClaimHash:  "claim-1",
			Direction:  signal.Strengthen,
			Confidence: 0.8,
		},
		TTL:   8,
		Scope: signal.ScopeCluster,
	}
	signed, err := signal.Sign(s, kp.Private)
	require.NoError(t, err)
	return signed
}

func TestSignVerifyRoundTrip(t *testing.T) {
	kp, err := identity.GenerateKeyPair()
	require.NoError(t, err)

	s := newSignedSignal(t, kp, 1)
	require.True(t, signal.Verify(s))
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	kp, err := identity.GenerateKeyPair()
	require.NoError(t, err)

	s := newSignedSignal(t, kp, 1)
	s.Payload.Confidence = 0.99
	require.False(t, signal.Verify(s))
}

func TestVerifyRejectsMalformedSignature(t *testing.T) {
	kp, err := identity.GenerateKeyPair()
	require.NoError(t, err)

	s := newSignedSignal(t, kp, 1)
	s.Signature = "not-hex!!"
	require.False(t, signal.Verify(s))

	s.Signature = "ab"
	require.False(t, signal.Verify(s))
}

func TestVerifyRejectsMalformedSourceID(t *testing.T) {
	kp, err := identity.GenerateKeyPair()
	require.NoError(t, err)

	s := newSignedSignal(t, kp, 1)
	s.SourceID = "zz-not-hex"
	require.False(t, signal.Verify(s))
}

func TestCanonicalBytesFixedFieldOrder(t *testing.T) {
	kp, err := identity.GenerateKeyPair()
	require.NoError(t, err)

	s := newSignedSignal(t, kp, 1)
	b, err := s.CanonicalBytes()
	require.NoError(t, err)
	require.Contains(t, string(b), `"source_id"`)
	require.True(t, indexOf(string(b), "source_id") < indexOf(string(b), "signal_id"))
	require.True(t, indexOf(string(b), "payload") < indexOf(string(b), "ttl"))
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}
