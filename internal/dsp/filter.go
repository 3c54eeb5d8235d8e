package dsp

import "math"

// FilterTransitionSamples is how many samples a filter coefficient change
// ramps over before taking full effect, avoiding audible zipper noise
// when cutoff/resonance move under LFO or envelope modulation.
const FilterTransitionSamples = BufSize

// Filter is a Direct-Form-II biquad resonant low-pass filter with
// RBJ-cookbook coefficients and persistent history across render calls.
type Filter struct {
	a1, a2, b02, b1 float64
	hist1, hist2    float64

	targetA1, targetA2, targetB02, targetB1 float64
	incrCount                               int
}

// SetCoefficients installs new filter coefficients computed from a cutoff
// frequency (Hz, already passed through conv.Ct2hz) and a resonance in
// dB. When startup is true the coefficients take effect immediately
// (used when a voice starts or CheckSampleSanity resets playback);
// otherwise they ramp in linearly over FilterTransitionSamples samples.
func (f *Filter) SetCoefficients(cutoffHz, qDB, sampleRate float64, startup bool) {
	// Q in dB is reduced by 3.01dB so a resonance setting of 0dB produces
	// no resonance hump (SF2.01's Q generator is defined this way).
	qDB -= 3.01
	qLin := math.Pow(10.0, qDB/20.0)
	filterGain := 1.0 / math.Sqrt(qLin)

	omega := 2.0 * math.Pi * cutoffHz / sampleRate
	sinOmega := math.Sin(omega)
	cosOmega := math.Cos(omega)
	alpha := sinOmega / (2.0 * qLin)

	a0 := 1.0 + alpha
	a1 := (-2.0 * cosOmega) / a0
	a2 := (1.0 - alpha) / a0
	b1 := (1.0 - cosOmega) / a0 * filterGain
	b0 := b1 / 2.0

	// b2 equals b0 for a low-pass, so Direct-Form-II applies one shared
	// coefficient to the center node and the second history tap together.
	b02 := b0

	if startup {
		f.a1, f.a2, f.b02, f.b1 = a1, a2, b02, b1
		f.incrCount = 0
		return
	}

	f.targetA1, f.targetA2, f.targetB02, f.targetB1 = a1, a2, b02, b1
	f.incrCount = FilterTransitionSamples
}

// Reset clears filter history, used when a sample's phase is reset
// outside of normal envelope/loop playback (CheckSampleSanity).
func (f *Filter) Reset() {
	f.hist1, f.hist2 = 0, 0
}

// ProcessSample runs one input sample through the filter, advancing any
// in-progress coefficient ramp by one step.
func (f *Filter) ProcessSample(in float64) float64 {
	if f.incrCount > 0 {
		t := 1.0 / float64(f.incrCount)
		f.a1 += (f.targetA1 - f.a1) * t
		f.a2 += (f.targetA2 - f.a2) * t
		f.b02 += (f.targetB02 - f.b02) * t
		f.b1 += (f.targetB1 - f.b1) * t
		f.incrCount--
	}

	centerNode := in - f.a1*f.hist1 - f.a2*f.hist2
	out := f.b02*(centerNode+f.hist2) + f.b1*f.hist1

	f.hist2 = f.hist1
	f.hist1 = centerNode
	return out
}

// FresCents combines the static filter cutoff with modulation-LFO and
// modulation-envelope offsets before the single Hz conversion: cents
// accumulate first, then one ct2hz call maps the sum to Hertz. This is
// the intentional, explicit version of what the original engine already
// did inline inside its per-sample voice update.
func FresCents(staticCents, modLFOVal, modLFOToFc, modEnvVal, modEnvToFc float64) float64 {
	return staticCents + modLFOVal*modLFOToFc + modEnvVal*modEnvToFc
}
