package event_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/swarmcore/governance/event"
)

func TestPublishDispatchesToSubscribersOfSameKind(t *testing.T) {
	b := event.NewBus()
	var got []event.CoreEvent
	b.Subscribe(event.KindDrift, func(ev event.CoreEvent) {
		got = append(got, ev)
	})

	b.Publish(event.CoreEvent{Kind: event.KindDrift, Data: "peer-a"})
	b.Publish(event.CoreEvent{Kind: event.KindConflictDetected, Data: "claim-x"})

	require.Len(t, got, 1)
	require.Equal(t, "peer-a", got[0].Data)
}

func TestSubscribersRunInRegistrationOrder(t *testing.T) {
	b := event.NewBus()
	var order []int
	b.Subscribe(event.KindSignalAccepted, func(event.CoreEvent) { order = append(order, 1) })
	b.Subscribe(event.KindSignalAccepted, func(event.CoreEvent) { order = append(order, 2) })
	b.Subscribe(event.KindSignalAccepted, func(event.CoreEvent) { order = append(order, 3) })

	b.Publish(event.CoreEvent{Kind: event.KindSignalAccepted})

	require.Equal(t, []int{1, 2, 3}, order)
}

func TestPublishWithNoSubscribersIsNoop(t *testing.T) {
	b := event.NewBus()
	require.NotPanics(t, func() {
		b.Publish(event.CoreEvent{Kind: event.KindAuthorityRevoked})
	})
}

func TestMultipleKindsIsolated(t *testing.T) {
	b := event.NewBus()
	var acceptedCount, rejectedCount int
	b.Subscribe(event.KindSignalAccepted, func(event.CoreEvent) { acceptedCount++ })
	b.Subscribe(event.KindSignalRejected, func(event.CoreEvent) { rejectedCount++ })

	b.Publish(event.CoreEvent{Kind: event.KindSignalAccepted})
	b.Publish(event.CoreEvent{Kind: event.KindSignalAccepted})
	b.Publish(event.CoreEvent{Kind: event.KindSignalRejected})

	require.Equal(t, 2, acceptedCount)
	require.Equal(t, 1, rejectedCount)
}
