package belief_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/swarmcore/governance/belief"
	"github.com/swarmcore/governance/identity"
	"github.com/swarmcore/governance/signal"
)

func sig(source identity.PeerId, id uint64, ts int64, dir signal.Direction, conf float64) signal.Signal {
	return signal.Signal{
		SourceID:  source,
		SignalID:  id,
		Timestamp: ts,
		Payload: signal.Payload{
			ClaimHash:  "claim-1",
			Direction:  dir,
			Confidence: conf,
		},
	}
}

func TestApplyAcceptsFirstBelief(t *testing.T) {
	s := belief.NewStore()
	ok := s.Apply(sig("p1", 1, 100, signal.Strengthen, 0.7))
	require.True(t, ok)

	b, found := s.Get("claim-1")
	require.True(t, found)
	require.Equal(t, belief.StanceStrengthen, b.Stance)
	require.Equal(t, 0.7, b.Confidence)
}

func TestApplyNewerTimestampWins(t *testing.T) {
	s := belief.NewStore()
	s.Apply(sig("p1", 1, 100, signal.Strengthen, 0.9))
	ok := s.Apply(sig("p2", 2, 200, signal.Weaken, 0.1))
	require.True(t, ok)

	b, _ := s.Get("claim-1")
	require.Equal(t, belief.StanceWeaken, b.Stance)
}

func TestApplyOlderTimestampLoses(t *testing.T) {
	s := belief.NewStore()
	s.Apply(sig("p1", 1, 200, signal.Strengthen, 0.9))
	ok := s.Apply(sig("p2", 2, 100, signal.Weaken, 0.99))
	require.False(t, ok)

	b, _ := s.Get("claim-1")
	require.Equal(t, belief.StanceStrengthen, b.Stance)
}

func TestApplyTieBreaksTowardHigherOrEqualConfidence(t *testing.T) {
	s := belief.NewStore()
	s.Apply(sig("p1", 1, 100, signal.Strengthen, 0.5))

	// Equal timestamp, equal confidence: incoming wins (tie breaks toward
	// the incoming signal per spec §4.2).
	ok := s.Apply(sig("p2", 2, 100, signal.Weaken, 0.5))
	require.True(t, ok)
	b, _ := s.Get("claim-1")
	require.Equal(t, belief.StanceWeaken, b.Stance)

	// Equal timestamp, lower confidence: incoming loses.
	ok = s.Apply(sig("p3", 3, 100, signal.Retract, 0.1))
	require.False(t, ok)
	b, _ = s.Get("claim-1")
	require.Equal(t, belief.StanceWeaken, b.Stance)
}

func TestHistoryBoundedAt100(t *testing.T) {
	s := belief.NewStore()
	for i := 0; i < 150; i++ {
		s.Apply(sig("p1", uint64(i), int64(i), signal.Strengthen, 0.5))
	}
	h := s.GetHistory("claim-1")
	require.Len(t, h, 100)
	// Oldest entries evicted: first surviving entry should be signal 50.
	require.Equal(t, uint64(50), h[0].SignalID)
	require.Equal(t, uint64(149), h[len(h)-1].SignalID)
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	s := belief.NewStore()
	s.Apply(sig("p1", 1, 100, signal.Strengthen, 0.7))
	snap := s.Snapshot()

	s.Apply(sig("p2", 2, 200, signal.Weaken, 0.1))
	b, _ := s.Get("claim-1")
	require.Equal(t, belief.StanceWeaken, b.Stance)

	s.Restore(snap)
	restored, _ := s.Get("claim-1")
	require.Equal(t, belief.StanceStrengthen, restored.Stance)
}

func TestRejectedUpdateRecordsNoHistory(t *testing.T) {
	s := belief.NewStore()
	s.Apply(sig("p1", 1, 200, signal.Strengthen, 0.9))
	s.Apply(sig("p2", 2, 100, signal.Weaken, 0.99))

	require.Len(t, s.GetHistory("claim-1"), 1)
}
