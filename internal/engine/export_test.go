package engine

// Exported wrappers around unexported helpers, for external tests
// (package engine_test) that want to exercise the sampler math without
// standing up a full Engine.

func SampleFillRatioForTest(rng RNG, sigma float64) float64 {
	return sampleFillRatio(rng, sigma)
}

func SampleLatencySecondsForTest(rng RNG, min, max float64) float64 {
	return sampleLatencySeconds(rng, min, max)
}
