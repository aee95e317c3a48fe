package engine_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/didac-crst/mockexchange-api/internal/engine"
)

func TestNewRandIsDeterministicForAGivenSeed(t *testing.T) {
	a := engine.NewRand(42)
	b := engine.NewRand(42)
	for i := 0; i < 5; i++ {
		assert.Equal(t, a.Float64(), b.Float64(), "same seed must produce the same stream")
	}
}

// fixedRNG lets tests pin the sampler's draw instead of depending on a
// particular *rand.Rand sequence.
type fixedRNG struct {
	uniform float64
	normal  float64
}

func (f fixedRNG) Float64() float64     { return f.uniform }
func (f fixedRNG) NormFloat64() float64 { return f.normal }

func TestSampleFillRatioConcentratesNearOneForSmallSigma(t *testing.T) {
	ratio := engine.SampleFillRatioForTest(fixedRNG{normal: 0.01}, 0.01)
	assert.InDelta(t, 1.0, ratio, 0.01)
}

func TestSampleFillRatioReachesExactlyOneOnNonNegativeDraw(t *testing.T) {
	ratio := engine.SampleFillRatioForTest(fixedRNG{normal: 0}, 0.5)
	assert.Equal(t, 1.0, ratio)
}

func TestSampleFillRatioFloorsAtMinimum(t *testing.T) {
	ratio := engine.SampleFillRatioForTest(fixedRNG{normal: -100}, 0.5)
	assert.Equal(t, 0.01, ratio)
}

func TestSampleLatencySecondsStaysWithinWindow(t *testing.T) {
	for _, u := range []float64{0, 0.25, 0.5, 0.75, 1} {
		lat := engine.SampleLatencySecondsForTest(fixedRNG{uniform: u}, 3, 5)
		assert.GreaterOrEqual(t, lat, 3.0)
		assert.LessOrEqual(t, lat, 5.0)
	}
}

func TestSampleLatencySecondsIsLinearInTheUniformDraw(t *testing.T) {
	lat := engine.SampleLatencySecondsForTest(fixedRNG{uniform: 0.5}, 2, 4)
	assert.True(t, math.Abs(lat-3) < 1e-9)
}
