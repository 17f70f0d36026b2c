package admission_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/swarmcore/governance/admission"
	"github.com/swarmcore/governance/reputation"
)

func TestAdmitDeniesAfterFourViolations(t *testing.T) {
	rep := reputation.NewTracker(0.1, 0.2)
	c := admission.NewController(rep)

	require.True(t, c.Admit("peer-a"))
	for i := 0; i < 4; i++ {
		rep.RecordViolation("peer-a", "strike")
	}
	require.False(t, c.Admit("peer-a"))
}

func TestAdmitTrueWithNoReputationTracker(t *testing.T) {
	c := admission.NewController(nil)
	require.True(t, c.Admit("peer-a"))
}
