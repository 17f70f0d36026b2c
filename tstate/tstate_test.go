package tstate_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/swarmcore/governance/tstate"
)

func TestUpdateLadder(t *testing.T) {
	m := tstate.NewManager(5 * time.Second)
	base := time.Unix(0, 0)

	m.Observe("p1", base, 0.9)
	require.Equal(t, tstate.T0, m.Update(base))

	require.Equal(t, tstate.T1, m.Update(base.Add(6*time.Second)))
	require.Equal(t, tstate.T2, m.Update(base.Add(11*time.Second)))
	require.Equal(t, tstate.T3, m.Update(base.Add(16*time.Second)))
}

func TestLowConfidenceForcesT1(t *testing.T) {
	m := tstate.NewManager(5 * time.Second)
	base := time.Unix(0, 0)
	m.Observe("p1", base, 0.2)
	require.Equal(t, tstate.T1, m.Update(base))
}

func TestRecontactCycle(t *testing.T) {
	m := tstate.NewManager(5 * time.Second)
	base := time.Unix(0, 0)
	m.Observe("p1", base, 0.9)
	m.Update(base.Add(16 * time.Second))
	require.Equal(t, tstate.T3, m.Current())

	require.Equal(t, tstate.T4, m.InitiateRecontact())
	require.Equal(t, tstate.T0, m.CompleteRecontact())
}

func TestRecontactNoopFromT0(t *testing.T) {
	m := tstate.NewManager(5 * time.Second)
	require.Equal(t, tstate.T0, m.InitiateRecontact())
}

func TestListenerNotifiedOnTransition(t *testing.T) {
	m := tstate.NewManager(5 * time.Second)
	var transitions [][2]tstate.State
	m.Subscribe(func(prev, next tstate.State) {
		transitions = append(transitions, [2]tstate.State{prev, next})
	})

	base := time.Unix(0, 0)
	m.Observe("p1", base, 0.9)
	m.Update(base.Add(6 * time.Second))

	require.Len(t, transitions, 1)
	require.Equal(t, tstate.T0, transitions[0][0])
	require.Equal(t, tstate.T1, transitions[0][1])
}

func TestMultipliersAndGates(t *testing.T) {
	require.Equal(t, 1.0, tstate.T0.Multiplier())
	require.Equal(t, 0.7, tstate.T1.Multiplier())
	require.Equal(t, 0.4, tstate.T2.Multiplier())
	require.Equal(t, 0.1, tstate.T3.Multiplier())
	require.Equal(t, 1.0, tstate.T4.Multiplier())

	require.True(t, tstate.T0.CanGrantNewAuthority())
	require.True(t, tstate.T1.CanGrantNewAuthority())
	require.False(t, tstate.T2.CanGrantNewAuthority())
	require.False(t, tstate.T3.CanGrantNewAuthority())
	require.True(t, tstate.T4.CanGrantNewAuthority())

	require.True(t, tstate.T0.CanPropagateLearning())
	require.False(t, tstate.T1.CanPropagateLearning())
	require.True(t, tstate.T4.CanPropagateLearning())
}
