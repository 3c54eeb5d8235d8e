package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequentialSamples(n int) []int16 {
	data := make([]int16, n)
	for i := range data {
		data[i] = int16(i * 100)
	}
	return data
}

func TestInterpolateNoneReproducesSamplesAtUnityRate(t *testing.T) {
	data := sequentialSamples(20)
	s := &State{
		Phase:      NewPhaseFromIndex(0),
		PhaseIncr:  1.0,
		Amp:        1.0,
		Start:      0,
		End:        19,
	}
	out := make([]float32, BufSize)
	n := InterpolateNone(s, data, out)

	require.Greater(t, n, 0)
	for i := 0; i < n; i++ {
		assert.Equal(t, float32(data[i]), out[i])
	}
}

func TestInterpolateLinearReproducesSamplesAtUnityRate(t *testing.T) {
	data := sequentialSamples(20)
	s := &State{
		Phase:     NewPhaseFromIndex(0),
		PhaseIncr: 1.0,
		Amp:       1.0,
		Start:     0,
		End:       19,
	}
	out := make([]float32, BufSize)
	n := InterpolateLinear(s, data, out)

	require.Greater(t, n, 0)
	for i := 0; i < n; i++ {
		assert.InDelta(t, float64(data[i]), float64(out[i]), 1.0)
	}
}

func TestInterpolateNoneLoopsAndSetsHasLooped(t *testing.T) {
	data := sequentialSamples(10)
	s := &State{
		Phase:     NewPhaseFromIndex(0),
		PhaseIncr: 1.0,
		Amp:       1.0,
		Looping:   true,
		Start:     0,
		End:       9,
		LoopStart: 2,
		LoopEnd:   9,
	}
	out := make([]float32, BufSize)
	n := InterpolateNone(s, data, out)

	assert.Equal(t, BufSize, n, "a looping voice should always fill the whole block")
	assert.True(t, s.HasLooped)
}

func TestInterpolateNoneAppliesAmpRamp(t *testing.T) {
	data := sequentialSamples(20)
	s := &State{
		Phase:     NewPhaseFromIndex(0),
		PhaseIncr: 1.0,
		Amp:       0.0,
		AmpIncr:   0.1,
		Start:     0,
		End:       19,
	}
	out := make([]float32, 5)
	InterpolateNone(s, data, out)

	assert.Equal(t, float32(0), out[0])
	assert.Greater(t, out[4], out[1])
}

func TestInterpolateCubicStaysFiniteOnSmoothInput(t *testing.T) {
	data := make([]int16, 64)
	for i := range data {
		data[i] = int16(10000 * math.Sin(float64(i)*0.2))
	}
	s := &State{
		Phase:     NewPhaseFromIndex(3),
		PhaseIncr: 1.0,
		Amp:       1.0,
		Start:     0,
		End:       60,
	}
	out := make([]float32, BufSize)
	n := InterpolateCubic(s, data, out)
	for i := 0; i < n; i++ {
		if math.IsNaN(float64(out[i])) || math.IsInf(float64(out[i]), 0) {
			t.Fatalf("cubic interpolation produced non-finite value at %d", i)
		}
	}
}

func TestInterpolateSinc7StaysFiniteOnSmoothInput(t *testing.T) {
	data := make([]int16, 64)
	for i := range data {
		data[i] = int16(10000 * math.Sin(float64(i)*0.2))
	}
	s := &State{
		Phase:     NewPhaseFromIndex(4),
		PhaseIncr: 1.0,
		Amp:       1.0,
		Start:     0,
		End:       58,
	}
	out := make([]float32, BufSize)
	n := InterpolateSinc7(s, data, out)
	for i := 0; i < n; i++ {
		if math.IsNaN(float64(out[i])) || math.IsInf(float64(out[i]), 0) {
			t.Fatalf("sinc7 interpolation produced non-finite value at %d", i)
		}
	}
}
