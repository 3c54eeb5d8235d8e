package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetCoefficientsStartupTakesEffectImmediately(t *testing.T) {
	var f Filter
	f.SetCoefficients(2000, 0, 44100, true)
	assert.Equal(t, 0, f.incrCount)
	assert.NotZero(t, f.a1)
}

func TestSetCoefficientsRampsWhenNotStartup(t *testing.T) {
	var f Filter
	f.SetCoefficients(2000, 0, 44100, true)
	f.SetCoefficients(4000, 0, 44100, false)
	assert.Equal(t, FilterTransitionSamples, f.incrCount)

	for i := 0; i < FilterTransitionSamples; i++ {
		f.ProcessSample(0)
	}
	assert.Equal(t, 0, f.incrCount)
	assert.InDelta(t, f.targetA1, f.a1, 1e-9, "ramp should converge exactly to target")
}

func TestProcessSampleDoesNotDiverge(t *testing.T) {
	var f Filter
	f.SetCoefficients(2000, 6, 44100, true)
	for i := 0; i < 1000; i++ {
		in := math.Sin(float64(i) * 0.1)
		out := f.ProcessSample(in)
		if math.IsNaN(out) || math.IsInf(out, 0) {
			t.Fatalf("filter diverged at sample %d: %v", i, out)
		}
	}
}

func TestResetClearsHistory(t *testing.T) {
	var f Filter
	f.SetCoefficients(2000, 0, 44100, true)
	f.ProcessSample(1.0)
	f.Reset()
	assert.Equal(t, 0.0, f.hist1)
	assert.Equal(t, 0.0, f.hist2)
}

func TestFresCentsSumsAllThreeContributions(t *testing.T) {
	got := FresCents(13500, 0.5, 200, -0.25, 100)
	assert.Equal(t, 13500+0.5*200+(-0.25)*100, got)
}
