package drift_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/swarmcore/governance/belief"
	"github.com/swarmcore/governance/drift"
)

func cfg() drift.Config {
	return drift.Config{
		HoldDriftThreshold:        3 * time.Second,
		StaleCommsThreshold:       5 * time.Second,
		ConfidenceDriftThreshold:  0.3,
		BeliefDivergenceThreshold: 0.6,
	}
}

func TestHoldTooLongTriggers(t *testing.T) {
	d := drift.NewDetector(cfg())
	base := time.Unix(0, 0)
	d.ObserveComms("peer-a", base)
	d.ObserveConfidence("peer-a", 0.9)

	events := d.Check(belief.Consensus{}, base.Add(4*time.Second))
	require.Len(t, events, 1)
	require.Equal(t, drift.ReasonHoldTooLong, events[0].Reason)
}

func TestStaleCommsTriggersWhenHoldDoesNot(t *testing.T) {
	d := drift.NewDetector(drift.Config{
		HoldDriftThreshold:        100 * time.Second,
		StaleCommsThreshold:       5 * time.Second,
		ConfidenceDriftThreshold:  0.3,
		BeliefDivergenceThreshold: 0.6,
	})
	base := time.Unix(0, 0)
	d.ObserveComms("peer-a", base)
	d.ObserveConfidence("peer-a", 0.9)

	events := d.Check(belief.Consensus{}, base.Add(6*time.Second))
	require.Len(t, events, 1)
	require.Equal(t, drift.ReasonStaleComms, events[0].Reason)
}

func TestConfidenceDecayTriggers(t *testing.T) {
	d := drift.NewDetector(drift.Config{
		HoldDriftThreshold:        100 * time.Second,
		StaleCommsThreshold:       100 * time.Second,
		ConfidenceDriftThreshold:  0.3,
		BeliefDivergenceThreshold: 0.6,
	})
	base := time.Unix(0, 0)
	d.ObserveComms("peer-a", base)
	d.ObserveConfidence("peer-a", 0.1)

	events := d.Check(belief.Consensus{}, base)
	require.Len(t, events, 1)
	require.Equal(t, drift.ReasonConfidenceDecay, events[0].Reason)
}

func TestBeliefDivergenceTriggers(t *testing.T) {
	d := drift.NewDetector(drift.Config{
		HoldDriftThreshold:        100 * time.Second,
		StaleCommsThreshold:       100 * time.Second,
		ConfidenceDriftThreshold:  0.0,
		BeliefDivergenceThreshold: 0.5,
	})
	base := time.Unix(0, 0)
	d.ObserveComms("peer-a", base)
	d.ObserveConfidence("peer-a", 0.9)
	d.ObserveStance("peer-a", "claim-1", belief.Belief{
		Stance: belief.StanceStrengthen, Confidence: 0.9,
	}, base)

	consensus := belief.Consensus{
		"claim-1": belief.Belief{Stance: belief.StanceWeaken, Confidence: 0.9},
	}
	events := d.Check(consensus, base)
	require.Len(t, events, 1)
	require.Equal(t, drift.ReasonBeliefDivergence, events[0].Reason)
}

func TestTriggeredOnlyOncePerCycleUntilReset(t *testing.T) {
	d := drift.NewDetector(cfg())
	base := time.Unix(0, 0)
	d.ObserveComms("peer-a", base)
	d.ObserveConfidence("peer-a", 0.9)

	events := d.Check(belief.Consensus{}, base.Add(4*time.Second))
	require.Len(t, events, 1)

	events = d.Check(belief.Consensus{}, base.Add(5*time.Second))
	require.Len(t, events, 0)

	d.Reset("peer-a")
	events = d.Check(belief.Consensus{}, base.Add(5*time.Second))
	require.Len(t, events, 1)
}

func TestListenerInvokedOnTrigger(t *testing.T) {
	d := drift.NewDetector(cfg())
	var got drift.Event
	d.Subscribe(func(e drift.Event) { got = e })

	base := time.Unix(0, 0)
	d.ObserveComms("peer-a", base)
	d.ObserveConfidence("peer-a", 0.9)
	d.Check(belief.Consensus{}, base.Add(4*time.Second))

	require.Equal(t, drift.ReasonHoldTooLong, got.Reason)
}
