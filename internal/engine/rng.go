package engine

import "math/rand"

// RNG is the random source the market-execution path draws from — the
// latency sleep duration and the fill-ratio sample. Tests inject a seeded
// *rand.Rand (which satisfies this interface) to make scenario S6
// deterministic, per spec.md §9's "tests supply a seeded RNG" design note.
type RNG interface {
	Float64() float64
	NormFloat64() float64
}

// fillRatioFloor is the lower clip on the truncated-normal fill-ratio
// sampler (spec.md §4.6 step 3); a ratio of exactly zero would mean "no
// fill happened", which market orders never report.
const fillRatioFloor = 0.01

// sampleFillRatio draws r from a normal distribution centered on 1 with
// stddev sigma, clipped to [fillRatioFloor, 1]. sigma=0 always returns 1
// (property 9's deterministic full fill). The clip at 1 is what gives
// r=1 non-zero probability mass (property b): every z >= 0 maps there.
func sampleFillRatio(rng RNG, sigma float64) float64 {
	if sigma <= 0 {
		return 1
	}
	r := 1 + rng.NormFloat64()*sigma
	if r > 1 {
		r = 1
	}
	if r < fillRatioFloor {
		r = fillRatioFloor
	}
	return r
}

// sampleLatencySeconds draws a uniform duration in [min, max] seconds
// (spec.md §4.6 step 1).
func sampleLatencySeconds(rng RNG, min, max float64) float64 {
	if max <= min {
		return min
	}
	return min + rng.Float64()*(max-min)
}

// NewRand is a convenience constructor wrapping math/rand with a given
// seed, for callers (tests, cmd/mockexchanged) that want determinism.
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}
