// Package chorus implements a modulated delay-line chorus: up to
// MaxBlocks taps into a shared circular delay buffer, each tap's delay
// swept by an evenly phase-spaced LFO and read back through a
// windowed-sinc fractional-delay interpolator.
//
// The original engine's LFO lookup-table generator has a confirmed typo
// (an inner loop that increments with unary `+ii` instead of `++ii`, an
// infinite loop if ever actually executed). This package reimplements the
// sine/triangle LFO tables and the sinc interpolation table from their
// documented intent rather than porting the bug.
package chorus

import "math"

const (
	maxSamplesLn2 = 12
	maxSamples    = 1 << (maxSamplesLn2 - 1)
	maxSamplesMask = maxSamples - 1

	interpSubsamplesLn2 = 8
	interpSubsamples    = 1 << (interpSubsamplesLn2 - 1)
	interpSubsamplesMask = interpSubsamples - 1

	interpSamples = 5

	// MaxBlocks is the largest number of simultaneous chorus taps.
	MaxBlocks = 99

	defaultBlocks = 3
	defaultSpeed  = 0.3
	defaultDepth  = 4.25
	defaultLevel  = 2.0

	minSpeedHz = 0.29
	maxSpeedHz = 5.0
)

// Waveform selects the LFO shape driving each chorus tap's delay.
type Waveform int

const (
	Sine Waveform = iota
	Triangle
)

// Chorus is a stereo modulated-delay chorus effect.
type Chorus struct {
	sampleRate float64
	sincTable  [interpSamples][interpSubsamples]float64

	buf     [maxSamples]float64
	counter int

	lookupTab []int
	phase     [MaxBlocks]int

	numberBlocks int
	level        float64
	speedHz      float64
	depthMs      float64
	waveform     Waveform

	modulationPeriodSamples int
}

// New returns a Chorus configured with the original engine's documented
// default parameters (3 taps, sine modulation, ~0.3 Hz, ~4ms depth).
func New(sampleRate float64) *Chorus {
	c := &Chorus{sampleRate: sampleRate}

	for i := 0; i < interpSamples; i++ {
		for ii := 0; ii < interpSubsamples; ii++ {
			iShifted := float64(i) - float64(interpSamples)/2.0 + float64(ii)/float64(interpSubsamples)
			var v float64
			if math.Abs(iShifted) < 0.000001 {
				v = 1.0
			} else {
				v = math.Sin(iShifted*math.Pi) / (math.Pi * iShifted)
				v *= 0.5 * (1.0 + math.Cos(2.0*math.Pi*iShifted/float64(interpSamples)))
			}
			c.sincTable[i][ii] = v
		}
	}

	c.lookupTab = make([]int, int(sampleRate/minSpeedHz)+1)
	c.numberBlocks = defaultBlocks
	c.level = defaultLevel
	c.speedHz = defaultSpeed
	c.depthMs = defaultDepth
	c.waveform = Sine
	c.update()
	return c
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SetParams reconfigures the chorus; blocks is clamped to [0,MaxBlocks],
// speedHz to [minSpeedHz,maxSpeedHz], level to [0,10].
func (c *Chorus) SetParams(blocks int, speedHz, depthMs, level float64, waveform Waveform) {
	c.numberBlocks = clampInt(blocks, 0, MaxBlocks)
	c.speedHz = clampFloat(speedHz, minSpeedHz, maxSpeedHz)
	if depthMs < 0 {
		depthMs = 0
	}
	c.depthMs = depthMs
	c.level = clampFloat(level, 0, 10)
	c.waveform = waveform
	c.update()
}

func (c *Chorus) update() {
	c.modulationPeriodSamples = int(c.sampleRate / c.speedHz)

	depthSamples := int(c.depthMs / 1000.0 * c.sampleRate)
	if depthSamples > maxSamples {
		depthSamples = maxSamples
	}

	switch c.waveform {
	case Triangle:
		triangleLFO(c.lookupTab, c.modulationPeriodSamples, depthSamples)
	default:
		sineLFO(c.lookupTab, c.modulationPeriodSamples, depthSamples)
	}

	for i := 0; i < c.numberBlocks; i++ {
		c.phase[i] = int(float64(c.modulationPeriodSamples) * float64(i) / float64(c.numberBlocks))
	}
	c.counter = 0
}

// sineLFO fills buf[0:periodLen] with a sine-shaped modulation waveform
// whose value (modulo maxSamples) varies across depth*interpSubsamples,
// biased negative by a few periods so later (position - value)
// subtractions in Process always stay positive.
func sineLFO(buf []int, periodLen, depth int) {
	for i := 0; i < periodLen; i++ {
		val := math.Sin(float64(i) / float64(periodLen) * 2.0 * math.Pi)
		buf[i] = int((1.0+val)*float64(depth)/2.0*float64(interpSubsamples)) -
			3*maxSamples*interpSubsamples
	}
}

// triangleLFO fills buf[0:len] with a symmetric triangle modulation
// waveform, same bias convention as sineLFO.
func triangleLFO(buf []int, periodLen, depth int) {
	i, j := 0, periodLen-1
	for i <= j {
		val := float64(i) * 2.0 / float64(periodLen) * float64(depth) * float64(interpSubsamples)
		v := int(val+0.5) - 3*maxSamples*interpSubsamples
		buf[i] = v
		buf[j] = v
		i++
		j--
	}
}

// ProcessMix runs in through the chorus and adds the result into
// leftOut/rightOut.
func (c *Chorus) ProcessMix(in []float64, leftOut, rightOut []float32) {
	for n := range in {
		dIn := in[n]
		c.buf[c.counter] = dIn

		var dOut float64
		for i := 0; i < c.numberBlocks; i++ {
			posSubsamples := interpSubsamples*c.counter - c.lookupTab[c.phase[i]]
			posSamples := posSubsamples / interpSubsamples
			posSubsamples &= interpSubsamplesMask

			for ii := 0; ii < interpSamples; ii++ {
				dOut += c.buf[posSamples&maxSamplesMask] * c.sincTable[ii][posSubsamples]
				posSamples--
			}

			c.phase[i]++
			c.phase[i] %= c.modulationPeriodSamples
		}

		dOut *= c.level
		leftOut[n] += float32(dOut)
		rightOut[n] += float32(dOut)

		c.counter++
		c.counter %= maxSamples
	}
}
