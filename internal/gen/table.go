// Package gen defines the 59 SoundFont generator ids plus their default
// metadata (SF2.01 §8.1.3) and the NRPN scaling rules used to map MIDI
// NRPN messages onto generator offsets.
package gen

// ID identifies one SoundFont (or fluidbean-internal) generator.
type ID int

const (
	StartAddrOfs ID = iota
	EndAddrOfs
	StartLoopAddrOfs
	EndLoopAddrOfs
	StartAddrCoarseOfs
	ModLFOToPitch
	VibLFOToPitch
	ModEnvToPitch
	FilterFc
	FilterQ
	ModLFOToFilterFc
	ModEnvToFilterFc
	EndAddrCoarseOfs
	ModLFOToVol
	Unused1
	ChorusSend
	ReverbSend
	Pan
	Unused2
	Unused3
	Unused4
	ModLFODelay
	ModLFOFreq
	VibLFODelay
	VibLFOFreq
	ModEnvDelay
	ModEnvAttack
	ModEnvHold
	ModEnvDecay
	ModEnvSustain
	ModEnvRelease
	KeyToModEnvHold
	KeyToModEnvDecay
	VolEnvDelay
	VolEnvAttack
	VolEnvHold
	VolEnvDecay
	VolEnvSustain
	VolEnvRelease
	KeyToVolEnvHold
	KeyToVolEnvDecay
	Instrument
	Reserved1
	KeyRange
	VelRange
	StartLoopAddrCoarseOfs
	Keynum
	Velocity
	Attenuation
	Reserved2
	EndLoopAddrCoarseOfs
	CoarseTune
	FineTune
	SampleID
	SampleMode
	Reserved3
	ScaleTune
	ExclusiveClass
	OverrideRootKey
	// Pitch is not a real SoundFont generator: it's the destination of the
	// synth's built-in default pitch-wheel modulator.
	Pitch
	Last
)

// SampleMode values for the GenSampleMode generator.
const (
	SampleModeNoLoop           = 0
	SampleModeLoopUntilRelease = 1
	SampleModeUnused           = 2
	SampleModeLoopDuringRelease = 3
)

// Default holds the static metadata for one generator, transcribed from
// gen.c's genDefaultsA table.
type Default struct {
	NeedsInit bool
	NRPNScale float64
	Min       float64
	Max       float64
	Val       float64
}

var defaults = [Last]Default{
	StartAddrOfs:           {true, 1, 0, 4294967295, 0},
	EndAddrOfs:             {true, 1, 0, 4294967295, 0},
	StartLoopAddrOfs:       {true, 1, 0, 4294967295, 0},
	EndLoopAddrOfs:         {true, 1, 0, 4294967295, 0},
	StartAddrCoarseOfs:     {false, 1, 0, 4294967295, 0},
	ModLFOToPitch:          {true, 2, -12000, 12000, 0},
	VibLFOToPitch:          {true, 2, -12000, 12000, 0},
	ModEnvToPitch:          {true, 2, -12000, 12000, 0},
	FilterFc:               {true, 2, 1500, 13500, 13500},
	FilterQ:                {true, 1, 0, 960, 0},
	ModLFOToFilterFc:       {true, 2, -12000, 12000, 0},
	ModEnvToFilterFc:       {true, 2, -12000, 12000, 0},
	EndAddrCoarseOfs:       {false, 1, 0, 0, 0},
	ModLFOToVol:            {true, 1, -960, 960, 0},
	Unused1:                {false, 0, 0, 0, 0},
	ChorusSend:             {true, 1, 0, 1000, 0},
	ReverbSend:             {true, 1, 0, 1000, 0},
	Pan:                    {true, 1, -500, 500, 0},
	Unused2:                {false, 0, 0, 0, 0},
	Unused3:                {false, 0, 0, 0, 0},
	Unused4:                {false, 0, 0, 0, 0},
	ModLFODelay:            {true, 2, -12000, 5000, -12000},
	ModLFOFreq:             {true, 4, -16000, 4500, 0},
	VibLFODelay:            {true, 2, -12000, 5000, -12000},
	VibLFOFreq:             {true, 4, -16000, 4500, 0},
	ModEnvDelay:            {true, 2, -12000, 5000, -12000},
	ModEnvAttack:           {true, 2, -12000, 8000, -12000},
	ModEnvHold:             {true, 2, -12000, 5000, -12000},
	ModEnvDecay:            {true, 2, -12000, 8000, -12000},
	ModEnvSustain:          {false, 1, 0, 1000, 0},
	ModEnvRelease:          {true, 2, -12000, 8000, -12000},
	KeyToModEnvHold:        {false, 1, -1200, 1200, 0},
	KeyToModEnvDecay:       {false, 1, -1200, 1200, 0},
	VolEnvDelay:            {true, 2, -12000, 5000, -12000},
	VolEnvAttack:           {true, 2, -12000, 8000, -12000},
	VolEnvHold:             {true, 2, -12000, 5000, -12000},
	VolEnvDecay:            {true, 2, -12000, 8000, -12000},
	VolEnvSustain:          {false, 1, 0, 1440, 0},
	VolEnvRelease:          {true, 2, -12000, 8000, -12000},
	KeyToVolEnvHold:        {false, 1, -1200, 1200, 0},
	KeyToVolEnvDecay:       {false, 1, -1200, 1200, 0},
	Instrument:             {false, 0, 0, 0, 0},
	Reserved1:              {false, 0, 0, 0, 0},
	KeyRange:               {false, 0, 0, 127, 0},
	VelRange:               {false, 0, 0, 127, 0},
	StartLoopAddrCoarseOfs: {false, 1, 0, 4294967295, 0},
	Keynum:                 {true, 0, 0, 127, -1},
	Velocity:               {true, 1, 0, 127, -1},
	Attenuation:            {true, 1, 0, 1440, 0},
	Reserved2:              {false, 0, 0, 0, 0},
	EndLoopAddrCoarseOfs:   {false, 1, 0, 4294967295, 0},
	CoarseTune:             {false, 1, -120, 120, 0},
	FineTune:               {false, 1, -99, 99, 0},
	SampleID:               {false, 0, 0, 0, 0},
	SampleMode:             {false, 0, 0, 0, 0},
	Reserved3:              {false, 0, 0, 0, 0},
	ScaleTune:              {false, 1, 0, 1200, 100},
	ExclusiveClass:         {false, 0, 0, 0, 0},
	OverrideRootKey:        {true, 0, 0, 127, -1},
	Pitch:                  {true, 0, 0, 127, 0},
}

// Defaults returns the static metadata for id.
func Defaults(id ID) Default {
	return defaults[id]
}

// InstrumentOnly lists the generator ids that only make sense at the
// instrument-zone level and must be excluded when applying preset-level
// generators additively during note-on dispatch.
var InstrumentOnly = map[ID]bool{
	StartAddrOfs:           true,
	EndAddrOfs:             true,
	StartLoopAddrOfs:       true,
	EndLoopAddrOfs:         true,
	StartAddrCoarseOfs:     true,
	EndAddrCoarseOfs:       true,
	Instrument:             true,
	KeyRange:               true,
	VelRange:               true,
	StartLoopAddrCoarseOfs: true,
	Keynum:                 true,
	Velocity:               true,
	EndLoopAddrCoarseOfs:   true,
	SampleID:               true,
	SampleMode:             true,
	ExclusiveClass:         true,
	OverrideRootKey:        true,
}

// Value combines a generator's nominal (SoundFont) value, any modulator
// offset and any NRPN offset into the effective value used at render
// time, following genScale/genScaleNrpn. When nrpnAbsolute is set the
// NRPN value is used alone (an extension beyond the SF2 spec allowing a
// client to replace a generator outright via NRPN).
func Value(id ID, val, modOffset, nrpnOffset float64, nrpnAbsolute bool) float64 {
	if nrpnAbsolute {
		return nrpnOffset
	}
	return val + modOffset + nrpnOffset
}

// ScaleNRPN converts a raw 14-bit NRPN data value (centered on 8192) into
// a generator offset using the generator's NRPN scale factor, clipping
// the centered value to +/-8192 first as genScaleNrpn does.
func ScaleNRPN(id ID, data int) float64 {
	value := float64(data - 8192)
	if value < -8192 {
		value = -8192
	} else if value > 8192 {
		value = 8192
	}
	return value * defaults[id].NRPNScale
}

// Clamp restricts val to the generator's documented [Min,Max] range.
// The effective generator value computed during rendering is never
// passed through Clamp: the engine sums nominal, modulator and NRPN
// contributions unclamped, same as the reference implementation's _GEN
// macro. Callers that need a UI-facing or validated value call Clamp
// explicitly instead.
func Clamp(id ID, val float64) float64 {
	d := defaults[id]
	if val < d.Min {
		return d.Min
	}
	if val > d.Max {
		return d.Max
	}
	return val
}
