// Package conv holds the precomputed numeric conversion tables that turn
// SoundFont generator units (timecents, centibels, cents) into the
// amplitudes, frequencies and pan positions the voice renderer works in.
//
// Every table is built once, in NewTables, and never touched per-sample or
// per-voice.
package conv

import "math"

const (
	centsHzSize = 1200
	cbAmpSize   = 961
	attenAmpSize = 1441
	panSize     = 1002

	// attenPowerFactor mirrors the EMU8k/EMU10k non-conforming attenuation
	// curve rather than the SF2.01-spec centibel curve; both tables share
	// the same exponent base but are kept distinct because real hardware
	// behavior (and the banks tuned for it) depends on atten2amp, not
	// cb2amp.
	attenPowerFactor = -200.0

	// MinVolEnvRelease is the floor, in cents, for the volume envelope's
	// release section (SF2.01 implementations clamp release time so it
	// never reaches true silence instantaneously).
	MinVolEnvRelease = -7200.0
)

// Tables bundles every precomputed lookup table used by conversions below.
type Tables struct {
	ct2hz   [centsHzSize]float64
	cb2amp  [cbAmpSize]float64
	atten2amp [attenAmpSize]float64
	concave [128]float64
	convex  [128]float64
	pan     [panSize]float64
}

// NewTables builds all conversion tables. Call once per synth instance.
func NewTables() *Tables {
	t := &Tables{}

	for i := 0; i < centsHzSize; i++ {
		t.ct2hz[i] = math.Pow(2.0, float64(i)/1200.0)
	}

	for i := 0; i < cbAmpSize; i++ {
		t.cb2amp[i] = math.Pow(10.0, float64(i)/-200.0)
	}

	for i := 0; i < attenAmpSize; i++ {
		t.atten2amp[i] = math.Pow(10.0, float64(i)/attenPowerFactor)
	}

	t.concave[0] = 0.0
	t.concave[127] = 1.0
	t.convex[0] = 0.0
	t.convex[127] = 1.0
	for i := 1; i < 127; i++ {
		x := -20.0 / 96.0 * math.Log(float64(i*i)/(127.0*127.0)) / math.Log(10.0)
		t.convex[i] = 1.0 - x
		t.concave[127-i] = x
	}

	step := math.Pi / 2.0 / float64(panSize-1)
	for i := 0; i < panSize; i++ {
		t.pan[i] = math.Sin(float64(i) * step)
	}

	return t
}

// Ct2hzReal converts absolute cents to Hz via the twelve-octave bucket
// table, without the [1500,13500) clamp Ct2hz applies for filter cutoffs.
func (t *Tables) Ct2hzReal(cents float64) float64 {
	switch {
	case cents < 0:
		return 1.0
	case cents < 900:
		return 6.875 * t.ct2hz[int(cents+300)]
	case cents < 2100:
		return 13.75 * t.ct2hz[int(cents-900)]
	case cents < 3300:
		return 27.5 * t.ct2hz[int(cents-2100)]
	case cents < 4500:
		return 55.0 * t.ct2hz[int(cents-3300)]
	case cents < 5700:
		return 110.0 * t.ct2hz[int(cents-4500)]
	case cents < 6900:
		return 220.0 * t.ct2hz[int(cents-5700)]
	case cents < 8100:
		return 440.0 * t.ct2hz[int(cents-6900)]
	case cents < 9300:
		return 880.0 * t.ct2hz[int(cents-8100)]
	case cents < 10500:
		return 1760.0 * t.ct2hz[int(cents-9300)]
	case cents < 11700:
		return 3520.0 * t.ct2hz[int(cents-10500)]
	case cents < 12900:
		return 7040.0 * t.ct2hz[int(cents-11700)]
	case cents < 14100:
		return 14080.0 * t.ct2hz[int(cents-12900)]
	default:
		return 1.0
	}
}

// Ct2hz converts absolute cents to Hz, clamped to the filter cutoff's
// valid range of 20 Hz .. 20 kHz (SF2.01 page 48 item 8) before lookup.
func (t *Tables) Ct2hz(cents float64) float64 {
	if cents >= 13500 {
		cents = 13500
	} else if cents < 1500 {
		cents = 1500
	}
	return t.Ct2hzReal(cents)
}

// Cb2amp converts centibels of attenuation (0 = no attenuation) to a
// linear amplitude in [0,1].
func (t *Tables) Cb2amp(cb float64) float64 {
	if cb < 0 {
		return 1.0
	}
	if cb >= cbAmpSize {
		return 0.0
	}
	return t.cb2amp[int(cb)]
}

// Atten2amp converts the EMU8k/10k-style attenuation value (0..1440) to a
// linear amplitude in [0,1].
func (t *Tables) Atten2amp(atten float64) float64 {
	if atten < 0 {
		return 1.0
	}
	if atten >= attenAmpSize {
		return 0.0
	}
	return t.atten2amp[int(atten)]
}

// Concave evaluates the SF2.01-section-8-defined concave unipolar curve.
func (t *Tables) Concave(val float64) float64 {
	if val < 0 {
		return 0
	}
	if val > 127 {
		return 1
	}
	return t.concave[int(val)]
}

// Convex evaluates the SF2.01-section-8-defined convex unipolar curve.
func (t *Tables) Convex(val float64) float64 {
	if val < 0 {
		return 0
	}
	if val > 127 {
		return 1
	}
	return t.convex[int(val)]
}

// Pan returns the linear gain for one channel of a stereo pair at pan
// position c (cents, -500..500); left selects which ear this call is for.
func (t *Tables) Pan(c float64, left bool) float64 {
	if left {
		c = -c
	}
	if c < -500 {
		return 0.0
	}
	if c > 500 {
		return 1.0
	}
	return t.pan[int(c+500)]
}

// Tc2secDelay converts a timecent delay value to seconds (SF2.01 8.1.2/
// 8.1.3 items 21,23,25,33): the most negative representable value means
// zero delay, range clamped to [-12000,5000].
func Tc2secDelay(tc float64) float64 {
	if tc <= -32768.0 {
		return 0.0
	}
	if tc < -12000.0 {
		tc = -12000.0
	}
	if tc > 5000.0 {
		tc = 5000.0
	}
	return math.Pow(2.0, tc/1200.0)
}

// Tc2secAttack converts a timecent attack value to seconds (items 26,34),
// range clamped to [-12000,8000].
func Tc2secAttack(tc float64) float64 {
	if tc <= -32768.0 {
		return 0.0
	}
	if tc < -12000.0 {
		tc = -12000.0
	}
	if tc > 8000.0 {
		tc = 8000.0
	}
	return math.Pow(2.0, tc/1200.0)
}

// Tc2sec converts a timecent value to seconds with no range checking,
// used internally for hold/decay/sustain section math.
func Tc2sec(tc float64) float64 {
	return math.Pow(2.0, tc/1200.0)
}

// Tc2secRelease converts a timecent release value to seconds (items
// 30,38); like Tc2secDelay the most negative representable value means
// zero, range otherwise clamped to [-12000,8000].
func Tc2secRelease(tc float64) float64 {
	if tc <= -32768.0 {
		return 0.0
	}
	if tc < -12000.0 {
		tc = -12000.0
	}
	if tc > 8000.0 {
		tc = 8000.0
	}
	return math.Pow(2.0, tc/1200.0)
}

// Act2hz converts absolute cents to Hz using the simple exponential form
// (used for LFO frequency generators rather than the bucketed Ct2hz).
func Act2hz(cents float64) float64 {
	return 8.176 * math.Pow(2.0, cents/1200.0)
}

// Hz2ct converts a frequency in Hz to absolute cents.
func Hz2ct(hz float64) float64 {
	return 6900 + 1200*math.Log(hz/440.0)/math.Log(2.0)
}
