package chorus

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBuildsSymmetricSincTable(t *testing.T) {
	c := New(44100)
	require.NotNil(t, c)
	// the center tap (i == interpSamples/2, ii == interpSubsamples/2) is the sinc peak.
	assert.InDelta(t, 1.0, c.sincTable[interpSamples/2][interpSubsamples/2], 1e-9)
}

func TestProcessMixSilenceStaysSilent(t *testing.T) {
	c := New(44100)
	in := make([]float64, 512)
	left := make([]float32, 512)
	right := make([]float32, 512)

	c.ProcessMix(in, left, right)

	for i := range left {
		if left[i] != 0 || right[i] != 0 {
			t.Fatalf("silent input produced nonzero chorus output at %d: %v %v", i, left[i], right[i])
		}
	}
}

func TestProcessMixStaysFiniteOnSustainedInput(t *testing.T) {
	c := New(44100)
	n := 8192
	in := make([]float64, n)
	for i := range in {
		in[i] = math.Sin(float64(i) * 0.05)
	}
	left := make([]float32, n)
	right := make([]float32, n)

	c.ProcessMix(in, left, right)

	for i := range left {
		if math.IsNaN(float64(left[i])) || math.IsInf(float64(left[i]), 0) {
			t.Fatalf("chorus diverged in left channel at %d", i)
		}
		if math.IsNaN(float64(right[i])) || math.IsInf(float64(right[i]), 0) {
			t.Fatalf("chorus diverged in right channel at %d", i)
		}
	}
}

func TestSetParamsClampsBlocksAndSpeed(t *testing.T) {
	c := New(44100)
	c.SetParams(500, 100, -5, 50, Triangle)

	assert.Equal(t, MaxBlocks, c.numberBlocks)
	assert.Equal(t, maxSpeedHz, c.speedHz)
	assert.Equal(t, 0.0, c.depthMs)
	assert.Equal(t, 10.0, c.level)
	assert.Equal(t, Triangle, c.waveform)
}

func TestSetParamsRebuildsPhaseSpacing(t *testing.T) {
	c := New(44100)
	c.SetParams(4, 1.0, 4.0, 1.0, Sine)

	for i := 0; i < 4; i++ {
		want := int(float64(c.modulationPeriodSamples) * float64(i) / 4.0)
		assert.Equal(t, want, c.phase[i])
	}
}
