package propagation_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/swarmcore/governance/clock"
	"github.com/swarmcore/governance/identity"
	"github.com/swarmcore/governance/propagation"
	"github.com/swarmcore/governance/quarantine"
	"github.com/swarmcore/governance/reputation"
	"github.com/swarmcore/governance/signal"
	"github.com/swarmcore/governance/transport"
)

type fakeTransport struct {
	id        identity.PeerId
	broadcast []transport.Envelope
}

func (f *fakeTransport) ID() identity.PeerId { return f.id }
func (f *fakeTransport) Send(to identity.PeerId, env transport.Envelope) error { return nil }
func (f *fakeTransport) Broadcast(env transport.Envelope) error {
	f.broadcast = append(f.broadcast, env)
	return nil
}
func (f *fakeTransport) OnMessage(h transport.Handler) {}

func signedSignal(t *testing.T, kp identity.KeyPair, id uint64, ttl int) signal.Signal {
	t.Helper()
	s := signal.Signal{
		SourceID:  kp.ID,
		SignalID:  id,
		Timestamp: 1000,
		Domain:    "test",
		Payload: signal.Payload{
			ClaimHash:  "claim-1",
			Direction:  signal.Strengthen,
			Confidence: 0.8,
		},
		TTL: ttl,
	}
	signed, err := signal.Sign(s, kp.Private)
	require.NoError(t, err)
	return signed
}

func TestOnIncomingAcceptsAndForwards(t *testing.T) {
	kp, _ := identity.GenerateKeyPair()
	tr := &fakeTransport{id: "self"}
	rep := reputation.NewTracker(0.1, 0.2)
	m := propagation.NewManager("self", tr, nil, rep, nil, 100)

	var accepted bool
	m.OnAccepted(func(sig signal.Signal, from identity.PeerId) { accepted = true })

	s := signedSignal(t, kp, 1, 8)
	m.OnIncoming(s, kp.ID)

	require.True(t, accepted)
	require.Len(t, tr.broadcast, 1)
}

func TestOnIncomingRejectsQuarantinedSender(t *testing.T) {
	kp, _ := identity.GenerateKeyPair()
	tr := &fakeTransport{id: "self"}
	mock := clock.NewMock(time.Unix(0, 0))
	q := quarantine.NewManager(10*time.Second, mock)
	q.Quarantine(kp.ID, "bad")

	m := propagation.NewManager("self", tr, q, nil, nil, 100)
	var rejectedReason string
	m.OnRejected(func(sig signal.Signal, from identity.PeerId, reason string) { rejectedReason = reason })

	s := signedSignal(t, kp, 1, 8)
	m.OnIncoming(s, kp.ID)

	require.Equal(t, "Sender quarantined", rejectedReason)
	require.Len(t, tr.broadcast, 0)
}

func TestOnIncomingRejectsInvalidSignature(t *testing.T) {
	kp, _ := identity.GenerateKeyPair()
	tr := &fakeTransport{id: "self"}
	rep := reputation.NewTracker(0.1, 0.2)
	m := propagation.NewManager("self", tr, nil, rep, nil, 100)

	s := signedSignal(t, kp, 1, 8)
	s.Payload.Confidence = 0.99 // tamper after signing

	rep.RecordConsistency(kp.ID)
	before := rep.GetScore(kp.ID)
	m.OnIncoming(s, kp.ID)
	require.Less(t, rep.GetScore(kp.ID), before)
}

func TestOnIncomingDropsExpiredTTL(t *testing.T) {
	kp, _ := identity.GenerateKeyPair()
	tr := &fakeTransport{id: "self"}
	m := propagation.NewManager("self", tr, nil, nil, nil, 100)

	s := signedSignal(t, kp, 1, 0)
	m.OnIncoming(s, kp.ID)
	require.Len(t, tr.broadcast, 0)
}

func TestOnIncomingSilentlyDropsDuplicate(t *testing.T) {
	kp, _ := identity.GenerateKeyPair()
	tr := &fakeTransport{id: "self"}
	m := propagation.NewManager("self", tr, nil, nil, nil, 100)

	s := signedSignal(t, kp, 1, 8)
	m.OnIncoming(s, kp.ID)
	firstCount := len(tr.broadcast)
	m.OnIncoming(s, kp.ID)
	require.Equal(t, firstCount, len(tr.broadcast))
}

func TestOnIncomingRejectsReplayedOlderSignalID(t *testing.T) {
	kp, _ := identity.GenerateKeyPair()
	tr := &fakeTransport{id: "self"}
	m := propagation.NewManager("self", tr, nil, nil, nil, 100)

	s2 := signedSignal(t, kp, 2, 8)
	m.OnIncoming(s2, kp.ID)

	s1 := signedSignal(t, kp, 1, 8)
	before := len(tr.broadcast)
	m.OnIncoming(s1, kp.ID)
	require.Equal(t, before, len(tr.broadcast))
}

func TestPublishFailsOnUnsignedSignal(t *testing.T) {
	tr := &fakeTransport{id: "self"}
	m := propagation.NewManager("self", tr, nil, nil, nil, 100)
	err := m.Publish(signal.Signal{})
	require.ErrorIs(t, err, propagation.ErrInvalidSignature)
}
