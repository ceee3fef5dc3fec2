package depth

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSpreadPenalties(t *testing.T) {
	t.Run("Phi is floored at the minimum spread", testPhiFloor)
	t.Run("Phi is infinite exactly beyond the maximum spread", testPhiCutoff)
	t.Run("Phi passes through in-range spreads", testPhiPassThrough)
	t.Run("Phi uses the absolute spread", testPhiAbsolute)
	t.Run("PhiPrime is always finite and bounded below", testPhiPrimeBounds)
}

func testPhiFloor(t *testing.T) {
	require.Equal(t, MinSpread, Phi(0))
	require.Equal(t, MinSpread, Phi(5e-7))
	require.Equal(t, MinSpread, Phi(-5e-7))
}

func testPhiCutoff(t *testing.T) {
	require.True(t, math.IsInf(Phi(0.020001), 1))
	require.True(t, math.IsInf(Phi(-0.03), 1))
	// The boundary itself is still in range.
	require.Equal(t, MaxSpread, Phi(MaxSpread))
	require.Equal(t, MaxSpread, Phi(-MaxSpread))
}

func testPhiPassThrough(t *testing.T) {
	require.Equal(t, 0.01, Phi(0.01))
	require.Equal(t, MinSpread, Phi(MinSpread))
}

func testPhiAbsolute(t *testing.T) {
	require.Equal(t, Phi(0.015), Phi(-0.015))
}

func testPhiPrimeBounds(t *testing.T) {
	min := math.Pow(MinSpread, 3)
	for _, s := range []float64{0, 1e-9, 0.01, 0.02, 0.5, -0.5, 100} {
		p := PhiPrime(s)
		require.False(t, math.IsInf(p, 0), "PhiPrime(%v) must be finite", s)
		require.GreaterOrEqual(t, p, min)
	}
	require.Equal(t, math.Pow(0.01, 3), PhiPrime(0.01))
	require.Equal(t, PhiPrime(0.01), PhiPrime(-0.01))
}
