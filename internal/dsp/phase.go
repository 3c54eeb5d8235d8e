// Package dsp implements the fixed-point playback-pointer arithmetic,
// sample interpolators and resonant low-pass filter a voice uses to turn
// a PCM sample plus pitch/filter modulation into an audio buffer.
package dsp

// Phase is a 32.32 fixed-point playback pointer: the upper 32 bits hold
// the integer sample index, the lower 32 the fractional position between
// samples. When a sample plays back at a pitch other than its native
// rate, the pointer advances by a non-integer amount each output sample;
// Phase is how that fractional advance is tracked without floating point
// drift over long notes.
type Phase uint64

// FractMax is the value one whole sample's worth of fraction represents.
const FractMax = 4294967296.0 // 2^32

// InterpBits is the number of high fraction bits used to select an
// interpolation table row.
const InterpBits = 8

// InterpMax is the number of rows in each interpolation coefficient table
// (2^InterpBits).
const InterpMax = 256

// NewPhaseFromIndex builds a Phase pointing exactly at sample index idx.
func NewPhaseFromIndex(idx uint32) Phase {
	return Phase(uint64(idx) << 32)
}

// NewPhaseFromFloat builds a Phase representing a playback increment of
// f samples (f need not be an integer).
func NewPhaseFromFloat(f float64) Phase {
	whole := int64(f)
	frac := (f - float64(whole)) * FractMax
	return Phase(uint64(whole)<<32) | Phase(uint32(frac))
}

// Index returns the integer sample index.
func (p Phase) Index() uint32 {
	return uint32(p >> 32)
}

// Fract returns the fractional part as a raw 32-bit value.
func (p Phase) Fract() uint32 {
	return uint32(p & 0xFFFFFFFF)
}

// IndexRound returns the sample index nearest the phase position,
// rounding .5 up.
func (p Phase) IndexRound() uint32 {
	return uint32((p + 0x80000000) >> 32)
}

// FractTableRow maps the fractional part onto a 0..InterpMax-1 row index
// into an interpolation coefficient table.
func (p Phase) FractTableRow() uint32 {
	return (p.Fract() & 0xff000000) >> 24
}

// Incr advances p by step (a Phase representing an increment).
func (p *Phase) Incr(step Phase) { *p += step }

// Decr moves p backward by step.
func (p *Phase) Decr(step Phase) { *p -= step }

// SubInt subtracts n whole samples from p, used to wrap a loop playback
// pointer back to the loop start.
func (p *Phase) SubInt(n uint32) { *p -= Phase(uint64(n) << 32) }
