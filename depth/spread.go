package depth

import "math"

// Scoring parameters. These are protocol constants, not tunables: every
// published epoch was computed with exactly these values, and the
// idempotence check re-derives old outputs against them.
const (
	// MinSpread floors the penalty so offers sitting on the mid price
	// don't blow up the depth value.
	MinSpread = 1e-6
	// MaxSpread is the widest price deviation from mid that still counts
	// as liquidity in the competitive channel.
	MaxSpread = 0.02

	// offerValueCap bounds the USD notional of a single offer, capping
	// whale distortion.
	offerValueCap = 50_000

	// decayExponent (d) concentrates per-block depth utility
	// sub-linearly before it accumulates.
	decayExponent = 0.8
	// uptimeExponent (nu) makes only near-full uptime earn significant
	// credit.
	uptimeExponent = 5
	// volumeExponent (v) weights maker volume sub-linearly.
	volumeExponent = 0.7

	// blockSampleFactor normalizes maker points for the snapshot
	// sampling granularity.
	blockSampleFactor = 30

	// TakerToQuote converts taker USD volume into taker points.
	TakerToQuote = 1
	// MakerToTaker ties total maker point mass to total taker point mass.
	MakerToTaker = 4
	// NonCompToComp caps the non-competitive channel at this fraction of
	// the competitive channel's total mass.
	NonCompToComp = 0.1
)

// Phi maps an offer's signed spread from mid price to the competitive
// liquidity penalty: floored at MinSpread near the mid, infinite (zero
// liquidity value) beyond MaxSpread, the absolute spread otherwise.
func Phi(spread float64) float64 {
	s := math.Abs(spread)
	if s < MinSpread {
		return MinSpread
	}
	if s > MaxSpread {
		return math.Inf(1)
	}
	return s
}

// PhiPrime is the steeper cubic penalty of the non-competitive channel.
// It is always finite, so far-from-mid offers still contribute there.
func PhiPrime(spread float64) float64 {
	return math.Pow(math.Max(math.Abs(spread), MinSpread), 3)
}
