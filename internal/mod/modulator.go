// Package mod evaluates SoundFont modulators: the (source, transform,
// source, transform, destination, amount) tuples that route MIDI
// controllers and voice state onto generator offsets.
package mod

import (
	"github.com/fluidbean/fluidbean/internal/conv"
	"github.com/fluidbean/fluidbean/internal/gen"
)

// Source identifies a modulator input, matching SF2.01 section 8.2.1's
// general controller enumeration when Xform's MOD_CC bit is clear.
type Source int

const (
	SrcNone             Source = 0
	SrcVelocity         Source = 2
	SrcKey              Source = 3
	SrcKeyPressure      Source = 10
	SrcChannelPressure  Source = 13
	SrcPitchWheel       Source = 14
	SrcPitchWheelSens   Source = 16
)

// Xform bit-packs a modulator source's polarity, direction, curve and
// source-kind, matching enums.h's modFlags exactly.
type Xform int

const (
	Positive Xform = 0
	Negative Xform = 1
	Unipolar Xform = 0
	Bipolar  Xform = 2
	Linear   Xform = 0
	Concave  Xform = 4
	Convex   Xform = 8
	Switch   Xform = 12
	GC       Xform = 0
	CC       Xform = 16
)

// Voice is the minimal read-only view of a sounding voice a modulator
// needs to evaluate its velocity/key-keyed sources.
type Voice interface {
	Key() int
	Velocity() int
}

// Channel is the minimal read-only view of MIDI channel state a
// modulator needs.
type Channel interface {
	CC(num int) int
	KeyPressure(key int) int
	ChannelPressure() int
	PitchBend() int
	PitchWheelSens() int
}

// Modulator is one (src1,xform1,src2,xform2,dest,amount) tuple.
type Modulator struct {
	Dest   gen.ID
	Src1   Source
	Xform1 Xform
	Src2   Source
	Xform2 Xform
	Amount float64
}

// TestIdentity reports whether m and other address the same destination
// through the same pair of sources and transforms, per SF2.01 section
// 9.5.1 bullet 3. Amount deliberately does not participate.
func (m *Modulator) TestIdentity(other *Modulator) bool {
	return m.Dest == other.Dest &&
		m.Src1 == other.Src1 &&
		m.Src2 == other.Src2 &&
		m.Xform1 == other.Xform1 &&
		m.Xform2 == other.Xform2
}

func transform(tables *conv.Tables, xform Xform, v, rng float64) float64 {
	switch xform & 0x0f {
	case 0: // linear, unipolar, positive
		return v / rng
	case 1: // linear, unipolar, negative
		return 1.0 - v/rng
	case 2: // linear, bipolar, positive
		return -1.0 + 2.0*v/rng
	case 3: // linear, bipolar, negative
		return 1.0 - 2.0*v/rng
	case 4: // concave, unipolar, positive
		return tables.Concave(v)
	case 5: // concave, unipolar, negative
		return tables.Concave(127 - v)
	case 6: // concave, bipolar, positive
		if v > 64 {
			return tables.Concave(2 * (v - 64))
		}
		return -tables.Concave(2 * (64 - v))
	case 7: // concave, bipolar, negative
		if v > 64 {
			return -tables.Concave(2 * (v - 64))
		}
		return tables.Concave(2 * (64 - v))
	case 8: // convex, unipolar, positive
		return tables.Convex(v)
	case 9: // convex, unipolar, negative
		return tables.Convex(127 - v)
	case 10: // convex, bipolar, positive
		if v > 64 {
			return tables.Convex(2 * (v - 64))
		}
		return -tables.Convex(2 * (64 - v))
	case 11: // convex, bipolar, negative
		if v > 64 {
			return -tables.Convex(2 * (v - 64))
		}
		return tables.Convex(2 * (64 - v))
	case 12: // switch, unipolar, positive
		if v >= 64 {
			return 1.0
		}
		return 0.0
	case 13: // switch, unipolar, negative
		if v >= 64 {
			return 0.0
		}
		return 1.0
	case 14: // switch, bipolar, positive
		if v >= 64 {
			return 1.0
		}
		return -1.0
	default: // switch, bipolar, negative
		if v >= 64 {
			return -1.0
		}
		return 1.0
	}
}

func sourceValue(src Source, xform Xform, channel Channel, voice Voice, rng *float64) float64 {
	if xform&CC != 0 {
		return float64(channel.CC(int(src)))
	}
	switch src {
	case SrcNone:
		return *rng
	case SrcVelocity:
		return float64(voice.Velocity())
	case SrcKey:
		return float64(voice.Key())
	case SrcKeyPressure:
		return float64(channel.KeyPressure(voice.Key()))
	case SrcChannelPressure:
		return float64(channel.ChannelPressure())
	case SrcPitchWheel:
		*rng = 0x4000
		return float64(channel.PitchBend())
	case SrcPitchWheelSens:
		return float64(channel.PitchWheelSens())
	default:
		return 0.0
	}
}

// Value evaluates m against the given channel/voice state, following
// modGetValue exactly including the SF2.01 section 8.4.2 special-case
// default velocity-to-filter-cutoff modulator, which this engine disables
// (S. Christian Collins' widely adopted fix against overly dark patches
// at low velocity).
func (m *Modulator) Value(tables *conv.Tables, channel Channel, voice Voice) float64 {
	if channel == nil {
		return 0.0
	}

	if m.Src2 == SrcVelocity && m.Src1 == SrcVelocity &&
		m.Xform1 == (GC|Unipolar|Negative|Linear) &&
		m.Xform2 == (GC|Unipolar|Positive|Switch) &&
		m.Dest == gen.FilterFc {
		return 0
	}

	if m.Src1 <= 0 {
		return 0.0
	}
	range1 := 127.0
	v1 := sourceValue(m.Src1, m.Xform1, channel, voice, &range1)
	v1 = transform(tables, m.Xform1, v1, range1)

	if v1 == 0.0 {
		return 0.0
	}

	v2 := 1.0
	if m.Src2 > 0 {
		range2 := 127.0
		v2 = sourceValue(m.Src2, m.Xform2, channel, voice, &range2)
		v2 = transform(tables, m.Xform2, v2, range2)
	}

	return m.Amount * v1 * v2
}
