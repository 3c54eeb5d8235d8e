// Package voice implements a single sounding voice: one sample played
// back at a pitch and amplitude driven by a pair of DAHDSR envelopes,
// two triangle LFOs and a resonant low-pass filter, all modulated by a
// channel's MIDI controllers through its bank of modulators.
package voice

import (
	"math"

	"github.com/fluidbean/fluidbean/internal/conv"
	"github.com/fluidbean/fluidbean/internal/dsp"
	"github.com/fluidbean/fluidbean/internal/gen"
	"github.com/fluidbean/fluidbean/internal/lfo"
	"github.com/fluidbean/fluidbean/internal/mod"
	"github.com/fluidbean/fluidbean/sfbank"
)

// Status is a voice's lifecycle state.
type Status int

const (
	StatusClean Status = iota
	StatusOn
	StatusSustained
	StatusOff
)

// noiseFloor and synthGain mirror the reference engine's NOISE_FLOOR
// constant and default overall gain; this engine has no runtime gain
// control, so the ratio used for early voice termination is fixed.
const (
	noiseFloor = 0.00003
	synthGain  = 1.0
)

// InterpMethod selects which of the four sample interpolators a voice
// uses to resample its source data to the output rate.
type InterpMethod int

const (
	InterpNone InterpMethod = iota
	InterpLinear
	InterpCubic
	InterpSinc7
)

// Channel is the per-channel state a voice reads each render block: its
// controllers (through mod.Channel) plus the per-generator NRPN offsets
// a channel may have accumulated.
type Channel interface {
	mod.Channel
	NRPNGen(id gen.ID) float64
	NRPNAbsolute(id gen.ID) bool
}

// Params bundles everything Start needs to bring a clean voice to life.
// Gens and Mods are already fully resolved by the caller: Gens holds
// each generator's nominal SoundFont value (preset additively layered
// over instrument, per SF2.01 section 9.4) and Mods holds the complete
// modulator list (the ten built-in default modulators plus instrument
// and preset modulators, with identity-duplicate overrides already
// applied).
type Params struct {
	ID      uint64
	Channel int
	Key     int
	Vel     int

	Gens [gen.Last]float64
	Mods []*mod.Modulator

	Sample *sfbank.Sample

	SampleRate float64
	Tables     *conv.Tables
	Interp     InterpMethod
}

// Voice is one sounding (key, sample) pair.
type Voice struct {
	id      uint64
	channel int
	key     int
	vel     int
	status  Status

	sample *sfbank.Sample
	mods   []*mod.Modulator

	nominal      [gen.Last]float64
	effective    [gen.Last]float64
	chanState    Channel
	tables       *conv.Tables
	sampleRate   float64
	interp       InterpMethod
	interpolate  func(*dsp.State, []int16, []float32) int

	volEnv Envelope
	modEnv Envelope
	modLFO lfo.Triangle
	vibLFO lfo.Triangle
	filter dsp.Filter
	dspState dsp.State

	modLFOVal float64
	vibLFOVal float64
	modEnvVal float64

	ampBlock float64

	// minAttenuationCB is a lower bound on the attenuation this voice's
	// CC-driven modulators could ever produce, computed once at Start
	// and used to decide when the voice has provably decayed below the
	// noise floor even though a controller could still raise it back.
	minAttenuationCB float64

	sustained  bool
	noteOffSet bool

	exclusiveClass int
}

// Key returns the MIDI key this voice is sounding, satisfying
// mod.Voice.
func (v *Voice) Key() int { return v.key }

// Velocity returns the note-on velocity, satisfying mod.Voice.
func (v *Voice) Velocity() int { return v.vel }

// ID returns the voice's monotonic allocation id, used to break ties
// when the voice pool must steal the "oldest" voice.
func (v *Voice) ID() uint64 { return v.id }

// Channel returns the MIDI channel number this voice belongs to.
func (v *Voice) Channel() int { return v.channel }

// Status reports the voice's current lifecycle state.
func (v *Voice) Status() Status { return v.status }

// ExclusiveClass returns the instrument's exclusive class id, or 0 if
// the voice does not belong to one.
func (v *Voice) ExclusiveClass() int { return v.exclusiveClass }

func interpolatorFor(m InterpMethod) func(*dsp.State, []int16, []float32) int {
	switch m {
	case InterpNone:
		return dsp.InterpolateNone
	case InterpLinear:
		return dsp.InterpolateLinear
	case InterpCubic:
		return dsp.InterpolateCubic
	default:
		return dsp.InterpolateSinc7
	}
}

// Start initializes a clean voice and brings it into the On state,
// computing its initial envelope segments, LFO phases and filter
// coefficients from the resolved generator set.
func (v *Voice) Start(p Params, channel Channel) {
	v.id = p.ID
	v.channel = p.Channel
	v.key = p.Key
	v.vel = p.Vel
	v.sample = p.Sample
	v.mods = p.Mods
	v.nominal = p.Gens
	v.chanState = channel
	v.tables = p.Tables
	v.sampleRate = p.SampleRate
	v.interp = p.Interp
	v.interpolate = interpolatorFor(p.Interp)
	v.status = StatusOn
	v.sustained = false
	v.noteOffSet = false
	v.exclusiveClass = int(p.Gens[gen.ExclusiveClass])

	v.modLFOVal = 0
	v.vibLFOVal = 0
	v.modEnvVal = 0

	v.modulate()
	v.minAttenuationCB = v.lowerAttenuationBound()

	v.dspState = dsp.State{
		Phase:     dsp.NewPhaseFromIndex(v.sample.Start),
		Start:     v.sample.Start,
		End:       v.sample.End - 1,
		LoopStart: v.sample.LoopStart,
		LoopEnd:   v.sample.LoopEnd,
		Looping:   v.loopingNow(),
	}

	v.setupEnvelopes()
	v.volEnv.Start()
	v.modEnv.Start()

	delaySamples := delayToSamples(v.effective[gen.ModLFODelay], v.sampleRate)
	v.modLFO.Start(delaySamples, v.effective[gen.ModLFOFreq], dsp.BufSize, v.sampleRate)
	delaySamples = delayToSamples(v.effective[gen.VibLFODelay], v.sampleRate)
	v.vibLFO.Start(delaySamples, v.effective[gen.VibLFOFreq], dsp.BufSize, v.sampleRate)

	v.updatePitch()
	v.updateFilter(true)
	v.ampBlock = v.computeAmplitude()
}

func (v *Voice) loopingNow() bool {
	mode := int(v.effective[gen.SampleMode])
	if mode == gen.SampleModeLoopDuringRelease {
		return true
	}
	if mode == gen.SampleModeLoopUntilRelease {
		return v.volEnv.Section() < EnvRelease
	}
	return false
}

// modulate recomputes every generator's effective value from its
// nominal (SoundFont) value plus the sum of every modulator routed to
// it plus the channel's NRPN offset, following gen.Value (genScale)
// exactly.
func (v *Voice) modulate() {
	var modSum [gen.Last]float64
	for _, m := range v.mods {
		modSum[m.Dest] += m.Value(v.tables, v.chanState, v)
	}

	for id := gen.ID(0); id < gen.Last; id++ {
		nrpnOffset := 0.0
		nrpnAbs := false
		if v.chanState != nil {
			nrpnOffset = v.chanState.NRPNGen(id)
			nrpnAbs = v.chanState.NRPNAbsolute(id)
		}
		v.effective[id] = gen.Value(id, v.nominal[id], modSum[id], nrpnOffset, nrpnAbs)
	}
}

// ModulateAll recomputes every modulated generator from current
// controller state; called when a CC, pitch bend or channel pressure
// the voice's modulators care about changes mid-note.
func (v *Voice) ModulateAll() {
	v.modulate()
}

// setupEnvelopes computes both envelopes' per-segment recurrence
// coefficients from the voice's resolved generator set. Segment counts
// are in render blocks (dsp.BufSize samples) rather than samples, since
// both envelopes are only re-evaluated once per block.
func (v *Voice) setupEnvelopes() {
	v.setupEnvelope(&v.volEnv, gen.VolEnvDelay, gen.VolEnvAttack, gen.VolEnvHold, gen.VolEnvDecay,
		gen.VolEnvSustain, gen.VolEnvRelease, gen.KeyToVolEnvHold, gen.KeyToVolEnvDecay, conv.MinVolEnvRelease)
	v.setupEnvelope(&v.modEnv, gen.ModEnvDelay, gen.ModEnvAttack, gen.ModEnvHold, gen.ModEnvDecay,
		gen.ModEnvSustain, gen.ModEnvRelease, gen.KeyToModEnvHold, gen.KeyToModEnvDecay, -12000.0)
}

func (v *Voice) setupEnvelope(e *Envelope, delayG, attackG, holdG, decayG, sustainG, releaseG, keyHoldG, keyDecayG gen.ID, minRelease float64) {
	blockRate := v.sampleRate / float64(dsp.BufSize)

	delayCount := int(conv.Tc2secDelay(v.effective[delayG]) * blockRate)
	e.SetSegment(EnvDelay, delayCount, 0, 0, -1, 1)

	attackCount := int(conv.Tc2secAttack(v.effective[attackG]) * blockRate)
	incr := 0.0
	if attackCount > 0 {
		incr = 1.0 / float64(attackCount)
	}
	e.SetSegment(EnvAttack, attackCount, 1.0, incr, -1, 1)

	keyToHold := v.effective[keyHoldG] * (60.0 - float64(v.key))
	holdCount := int(conv.Tc2sec(v.effective[holdG]+keyToHold) * blockRate)
	e.SetSegment(EnvHold, holdCount, 1.0, 0, -1, 2)

	keyToDecay := v.effective[keyDecayG] * (60.0 - float64(v.key))
	decayTC := v.effective[decayG] + keyToDecay
	if decayTC < minRelease {
		decayTC = minRelease
	}
	decayCount := int(conv.Tc2sec(decayTC) * blockRate)
	sustainFrac := 1.0 - v.effective[sustainG]/1000.0
	if sustainFrac < 0 {
		sustainFrac = 0
	} else if sustainFrac > 1 {
		sustainFrac = 1
	}
	decayCoeff := 1.0
	if decayCount > 0 {
		decayCoeff = math.Pow(0.001, 1.0/float64(decayCount))
	}
	e.SetSegment(EnvDecay, decayCount, decayCoeff, 0, sustainFrac, 2)

	e.SetSegment(EnvSustain, 0x7fffffff, 1.0, 0, -1, 2)

	releaseTC := v.effective[releaseG]
	if releaseTC < minRelease {
		releaseTC = minRelease
	}
	releaseCount := int(conv.Tc2secRelease(releaseTC) * blockRate)
	releaseCoeff := 0.0
	if releaseCount > 0 {
		releaseCoeff = math.Pow(0.001, 1.0/float64(releaseCount))
	}
	e.SetSegment(EnvRelease, releaseCount, releaseCoeff, 0, 0.0, 2)
}

// computeAmplitude derives the target amplitude for the current block.
// During attack the envelope ramps linearly and only the mod-LFO's
// tremolo contribution applies; afterward the envelope contributes in
// the dB domain instead. Outside attack it also checks the voice's
// amplitude against the cached noise-floor bound and turns the voice
// off early once further decay can no longer produce an audible sample.
func (v *Voice) computeAmplitude() float64 {
	atten := v.effective[gen.Attenuation]
	volEnvVal := v.volEnv.Value()
	modLFOToVol := v.effective[gen.ModLFOToVol]

	if v.volEnv.Section() == EnvAttack {
		return v.tables.Atten2amp(atten) *
			v.tables.Cb2amp(v.modLFOVal*-modLFOToVol) *
			volEnvVal
	}

	targetAmp := v.tables.Atten2amp(atten) *
		v.tables.Cb2amp(960.0*(1.0-volEnvVal)+v.modLFOVal*-modLFOToVol)

	noiseFloorAmp := noiseFloor / synthGain
	ampMax := v.tables.Atten2amp(v.minAttenuationCB) * volEnvVal
	if ampMax < noiseFloorAmp {
		v.status = StatusOff
	}
	return targetAmp
}

// lowerAttenuationBound estimates the smallest attenuation (in
// centibels) this voice's CC-driven modulators could ever produce,
// following voiceGetLowerBoundaryForAttenuation: only modulators that
// can move in response to a live controller count, and each is credited
// with the most negative contribution (most attenuation reduction) it
// could reach given its polarity and sign.
func (v *Voice) lowerAttenuationBound() float64 {
	reduction := 0.0
	for _, m := range v.mods {
		if m.Dest != gen.Attenuation {
			continue
		}
		if m.Xform1&mod.CC == 0 && m.Xform2&mod.CC == 0 {
			continue
		}

		current := m.Value(v.tables, v.chanState, v)
		worst := math.Abs(m.Amount)
		if m.Src1 == mod.SrcPitchWheel || m.Xform1&mod.Bipolar != 0 || m.Xform2&mod.Bipolar != 0 || m.Amount < 0 {
			worst = -worst
		} else {
			worst = 0
		}
		if current > worst {
			reduction += current - worst
		}
	}

	bound := v.effective[gen.Attenuation] - reduction
	if bound < 0 {
		bound = 0
	}
	return bound
}

func (v *Voice) updatePitch() {
	rootKey := v.effective[gen.OverrideRootKey]
	if rootKey < 0 {
		rootKey = float64(v.sample.OriginalPitch)
	}
	scaleTune := v.effective[gen.ScaleTune]

	nominalCents := 6000.0 + (float64(v.key)-60.0)*scaleTune/100.0
	rootCents := 6000.0 + (rootKey - 60.0) - float64(v.sample.PitchCorrection)

	coarse := v.effective[gen.CoarseTune] * 100.0
	fine := v.effective[gen.FineTune]

	// gen.Pitch is not a real SoundFont generator; it only ever carries
	// the default pitch-wheel modulator's contribution (see gen.Pitch's
	// doc comment), which is why it is summed here rather than folded
	// into nominalCents.
	bend := v.effective[gen.Pitch]

	pitch := nominalCents + coarse + fine + bend +
		v.modLFOVal*v.effective[gen.ModLFOToPitch] +
		v.vibLFOVal*v.effective[gen.VibLFOToPitch] +
		v.modEnvVal*v.effective[gen.ModEnvToPitch]

	ratio := float64(v.sample.SampleRate) / v.sampleRate
	v.dspState.PhaseIncr = ratio * math.Pow(2.0, (pitch-rootCents)/1200.0)
}

func (v *Voice) updateFilter(startup bool) {
	fresCents := dsp.FresCents(v.effective[gen.FilterFc], v.modLFOVal, v.effective[gen.ModLFOToFilterFc],
		v.modEnvVal, v.effective[gen.ModEnvToFilterFc])
	fc := v.tables.Ct2hz(fresCents)
	q := v.effective[gen.FilterQ] / 10.0
	v.filter.SetCoefficients(fc, q, v.sampleRate, startup)
}

// delayToSamples converts a timecent delay generator value into a
// sample count at sampleRate.
func delayToSamples(tc, sampleRate float64) int {
	return int(conv.Tc2secDelay(tc) * sampleRate)
}

// Modulate recomputes the per-block modulation state (LFOs, envelopes,
// dependent generators) ahead of the next Write call.
func (v *Voice) Modulate() {
	if v.status != StatusOn && v.status != StatusSustained {
		return
	}

	v.modLFOVal = v.modLFO.Next(dsp.BufSize)
	v.vibLFOVal = v.vibLFO.Next(dsp.BufSize)
	v.modEnvVal = v.modEnv.Next()

	v.volEnv.Next()
	if v.volEnv.Finished() {
		v.status = StatusOff
		return
	}

	v.modulate()
	v.dspState.Looping = v.loopingNow()
	v.updatePitch()
	v.updateFilter(false)

	newAmp := v.computeAmplitude()
	v.dspState.AmpIncr = (newAmp - v.ampBlock) / float64(dsp.BufSize)
	v.dspState.Amp = v.ampBlock
	v.ampBlock = newAmp
}

// NoteOff releases the voice: the volume envelope jumps directly into
// its release segment. A voice still in attack (where the envelope
// value is a linear amplitude) starts the release from the
// release-remapped value of its current amplitude; any later section
// already holds a release-scale value and starts from it unchanged. The
// modulation envelope restarts its own release segment from its own
// current value unchanged.
func (v *Voice) NoteOff() {
	if v.status != StatusOn && v.status != StatusSustained {
		return
	}
	v.noteOffSet = true
	if v.sustained {
		v.status = StatusSustained
		return
	}

	amp := v.volEnv.Value()
	releaseVal := amp
	if v.volEnv.Section() == EnvAttack {
		lfoContribution := v.modLFOVal * v.effective[gen.ModLFOToVol]
		releaseVal = remapToRelease(amp, lfoContribution)
	}
	v.volEnv.Retrigger(releaseVal)
	v.modEnv.Retrigger(v.modEnv.Value())

	v.dspState.Looping = v.loopingNow()
	v.status = StatusOn
}

// remapToRelease converts a volume envelope's linear [0,1] value (plus
// any modulation-LFO tremolo contribution, in the same cb-like units
// used for attenuation) into the release segment's starting point,
// following envValue = -((-200*log10(amp) - lfo)/960 - 1), clamped to
// [0,1].
func remapToRelease(amp, lfoContribution float64) float64 {
	if amp <= 0 {
		amp = 1e-10
	}
	v := -((-200.0*math.Log10(amp) - lfoContribution) / 960.0 - 1.0)
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	return v
}

// Sustain holds the voice in its current envelope section (triggered
// by a sustain-pedal CC64 press) without transitioning to release even
// after NoteOff would otherwise be called.
func (v *Voice) Sustain() { v.sustained = true }

// EndSustain releases a previously sustained voice.
func (v *Voice) EndSustain() {
	if !v.sustained {
		return
	}
	v.sustained = false
	if v.noteOffSet {
		v.status = StatusOn
		v.NoteOff()
	}
}

// IsSustained reports whether the voice is being held by a sustain
// pedal rather than the key itself.
func (v *Voice) IsSustained() bool { return v.sustained }

// Off immediately silences the voice (CC120/123 all-sound/notes-off, or
// exclusive-class stealing), skipping the release segment entirely.
func (v *Voice) Off() {
	v.status = StatusClean
}

// Finished reports whether the voice's volume envelope has completed
// its release segment and the voice can be recycled.
func (v *Voice) Finished() bool {
	return v.status == StatusOff || v.status == StatusClean
}

// Priority scores a voice for voice-stealing purposes against
// currentNoteID, the pool's monotonically increasing note counter: base
// 10000, -2000 if released, -1000 if sustained, minus the voice's age
// (currentNoteID - v.id) so older voices go first among otherwise equal
// candidates, plus volenvVal*1000 unless still in attack (louder voices
// are worth more). Lower is stolen first.
func (v *Voice) Priority(currentNoteID uint64) float64 {
	if v.status == StatusClean || v.status == StatusOff {
		return -1
	}
	base := 10000.0
	if !v.sustained && v.volEnv.Section() == EnvRelease {
		base -= 2000
	}
	if v.sustained {
		base -= 1000
	}
	base -= float64(currentNoteID - v.id)
	if v.volEnv.Section() != EnvAttack {
		base += v.volEnv.Value() * 1000
	}
	return base
}

// Write renders up to len(left) samples into left/right (both already
// holding the dry mix to accumulate into) and into the reverb/chorus
// send buffers, returning the number of samples actually produced
// (fewer than requested only when the sample finishes without
// looping).
func (v *Voice) Write(left, right, reverbSend, chorusSend []float32) int {
	if v.status != StatusOn && v.status != StatusSustained {
		return 0
	}

	raw := make([]float32, len(left))
	n := v.interpolate(&v.dspState, v.sample.Data, raw)

	pan := v.effective[gen.Pan]
	ampL := v.tables.Pan(pan, true)
	ampR := v.tables.Pan(pan, false)
	rev := v.effective[gen.ReverbSend] / 1000.0
	cho := v.effective[gen.ChorusSend] / 1000.0

	for i := 0; i < n; i++ {
		s := v.filter.ProcessSample(float64(raw[i]))
		fs := float32(s)
		left[i] += fs * float32(ampL)
		right[i] += fs * float32(ampR)
		if reverbSend != nil {
			reverbSend[i] += fs * float32(rev)
		}
		if chorusSend != nil {
			chorusSend[i] += fs * float32(cho)
		}
	}

	if n < len(left) {
		v.status = StatusOff
	}
	return n
}
