package math_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	gmath "github.com/swarmcore/governance/utils/math"
)

func TestClamp01(t *testing.T) {
	require.Equal(t, 0.0, gmath.Clamp01(-1))
	require.Equal(t, 1.0, gmath.Clamp01(2))
	require.Equal(t, 0.5, gmath.Clamp01(0.5))
}

func TestMinMax(t *testing.T) {
	require.Equal(t, 1, gmath.Min(1, 2))
	require.Equal(t, 2, gmath.Max(1, 2))
	require.Equal(t, int64(2), gmath.MaxInt64(1, 2))
	require.Equal(t, 1.0, gmath.MinFloat64(1, 2))
}
