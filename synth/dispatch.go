package synth

import (
	"github.com/fluidbean/fluidbean/internal/gen"
	"github.com/fluidbean/fluidbean/internal/mod"
)

// MIDI CC numbers the default modulator set reads directly.
const (
	ccModWheel   = 1
	ccVolume     = 7
	ccPan        = 10
	ccExpression = 11
	ccReverbSend = 91
	ccChorusSend = 93
)

// defaultMods is the SF2.01 section 8.4.1 built-in modulator set every
// voice starts with, before any instrument- or preset-level modulator
// is merged on top of it.
var defaultMods = []*mod.Modulator{
	// Note-on velocity -> initial attenuation.
	{Dest: gen.Attenuation, Src1: mod.SrcVelocity, Xform1: mod.GC | mod.Concave | mod.Unipolar | mod.Negative, Amount: 960},

	// Note-on velocity -> filter cutoff (the S. Christian Collins fix
	// disables this one unconditionally inside mod.Modulator.Value).
	{Dest: gen.FilterFc, Src1: mod.SrcVelocity, Xform1: mod.GC | mod.Linear | mod.Unipolar | mod.Negative,
		Src2: mod.SrcVelocity, Xform2: mod.GC | mod.Switch | mod.Unipolar | mod.Positive, Amount: -2400},

	// Channel pressure -> vibrato LFO pitch depth.
	{Dest: gen.VibLFOToPitch, Src1: mod.SrcChannelPressure, Xform1: mod.GC | mod.Linear | mod.Unipolar | mod.Positive, Amount: 50},

	// Mod wheel (CC1) -> vibrato LFO pitch depth.
	{Dest: gen.VibLFOToPitch, Src1: mod.Source(ccModWheel), Xform1: mod.CC | mod.Linear | mod.Unipolar | mod.Positive, Amount: 50},

	// Channel volume (CC7) -> initial attenuation.
	{Dest: gen.Attenuation, Src1: mod.Source(ccVolume), Xform1: mod.CC | mod.Concave | mod.Unipolar | mod.Negative, Amount: 960},

	// Pan (CC10) -> pan.
	{Dest: gen.Pan, Src1: mod.Source(ccPan), Xform1: mod.CC | mod.Linear | mod.Bipolar | mod.Positive, Amount: 500},

	// Expression (CC11) -> initial attenuation.
	{Dest: gen.Attenuation, Src1: mod.Source(ccExpression), Xform1: mod.CC | mod.Concave | mod.Unipolar | mod.Negative, Amount: 960},

	// Reverb send (CC91) -> reverb effects send.
	{Dest: gen.ReverbSend, Src1: mod.Source(ccReverbSend), Xform1: mod.CC | mod.Linear | mod.Unipolar | mod.Positive, Amount: 200},

	// Chorus send (CC93) -> chorus effects send.
	{Dest: gen.ChorusSend, Src1: mod.Source(ccChorusSend), Xform1: mod.CC | mod.Linear | mod.Unipolar | mod.Positive, Amount: 200},

	// Pitch wheel, scaled by pitch wheel sensitivity, -> pitch.
	{Dest: gen.Pitch, Src1: mod.SrcPitchWheel, Xform1: mod.GC | mod.Linear | mod.Bipolar | mod.Positive,
		Src2: mod.SrcPitchWheelSens, Xform2: mod.GC | mod.Linear | mod.Unipolar | mod.Positive, Amount: 12700},
}

func cloneDefaultMods() []*mod.Modulator {
	out := make([]*mod.Modulator, len(defaultMods))
	for i, m := range defaultMods {
		cp := *m
		out[i] = &cp
	}
	return out
}

// mergeMods layers overlay on top of base following SF2.01 section
// 9.5.4: a modulator in overlay with the same (dest,src1,src2,xform1,
// xform2) identity as one already in base replaces it in place rather
// than stacking.
func mergeMods(base, overlay []*mod.Modulator) []*mod.Modulator {
	for _, om := range overlay {
		replaced := false
		for i, bm := range base {
			if bm.TestIdentity(om) {
				base[i] = om
				replaced = true
				break
			}
		}
		if !replaced {
			base = append(base, om)
		}
	}
	return base
}

// resolveNominal builds a voice's starting generator set: defaults,
// overwritten by the instrument zone, then additively layered with the
// preset zone (excluding the generators that only make sense at
// instrument scope), per SF2.01 section 9.4.
func resolveNominal(instGens, presetGens map[gen.ID]float64) [gen.Last]float64 {
	var nominal [gen.Last]float64
	for id := gen.ID(0); id < gen.Last; id++ {
		nominal[id] = gen.Defaults(id).Val
	}
	for id, val := range instGens {
		nominal[id] = val
	}
	for id, val := range presetGens {
		if gen.InstrumentOnly[id] {
			continue
		}
		nominal[id] += val
	}
	return nominal
}

func inRange(v, lo, hi int) bool { return v >= lo && v <= hi }
