// Package midichan holds per-MIDI-channel state: controller values, NRPN
// generator overrides, pitch bend and the bindings a voice reads when it
// starts or reacts to a controller change. Named midichan because "chan"
// is a Go keyword.
package midichan

import "github.com/fluidbean/fluidbean/internal/gen"

// Standard MIDI CC numbers this package gives special handling.
const (
	CCBankSelectMSB    = 0
	CCDataEntryMSB     = 6
	CCDataEntryLSB     = 38
	CCSustain          = 64
	CCSostenuto        = 66
	CCNRPNLSB          = 98
	CCNRPNMSB          = 99
	CCAllSoundOff      = 120
	CCAllCtrlOff       = 121
	CCAllNotesOff      = 123
)

// Channel is the mutable state of one MIDI channel.
type Channel struct {
	Num int

	cc [128]int

	nrpnGen      [gen.Last]float64
	nrpnAbsolute [gen.Last]bool
	nrpnActive   bool
	nrpnMSB      int
	nrpnLSB      int
	dataEntryMSB int

	pitchBend           int // 14-bit, center 0x2000
	pitchWheelSensCents int

	program int
	bank    int

	keyPressure     [128]int
	channelPressure int

	tuningBank, tuningProgram int
}

// New returns a Channel reset to its power-on defaults.
func New(num int) *Channel {
	c := &Channel{Num: num}
	c.Reset()
	return c
}

// Reset restores default controller values (center pitch bend, full
// pitch wheel sensitivity range of 2 semitones, no NRPN overrides).
func (c *Channel) Reset() {
	for i := range c.cc {
		c.cc[i] = 0
	}
	for i := range c.nrpnGen {
		c.nrpnGen[i] = 0
		c.nrpnAbsolute[i] = false
	}
	c.nrpnActive = false
	c.pitchBend = 0x2000
	c.pitchWheelSensCents = 200
	c.program = 0
	c.bank = 0
	for i := range c.keyPressure {
		c.keyPressure[i] = 0
	}
	c.channelPressure = 0
}

// CC returns the current value of controller num (0 if never set).
func (c *Channel) CC(num int) int {
	if num < 0 || num >= len(c.cc) {
		return 0
	}
	return c.cc[num]
}

// SetCC processes an incoming Control Change message, updating the raw
// CC array and any derived NRPN state.
func (c *Channel) SetCC(num, val int) {
	if num < 0 || num >= len(c.cc) {
		return
	}
	c.cc[num] = val

	switch num {
	case CCNRPNMSB:
		c.nrpnMSB = val
		c.nrpnActive = true
	case CCNRPNLSB:
		c.nrpnLSB = val
		c.nrpnActive = true
	case CCDataEntryMSB:
		c.dataEntryMSB = val
		if c.nrpnActive {
			c.applyNRPNData(val)
		}
	case CCAllNotesOff, CCAllSoundOff, CCAllCtrlOff:
		// the synth-level dispatcher observes these controller numbers
		// directly via CC() to drive voice-off behavior; no per-channel
		// state changes here beyond the raw array update above.
	}
}

// applyNRPNData implements the SF2/fluidbean NRPN-to-generator mapping:
// the selector (MSB*100+LSB by SoundFont convention here, matching the
// "coarse/fine" convention where LSB==100 denotes the fine offset for the
// generator named by MSB) chooses a generator id, and dataMSB (paired
// with the prior data-entry LSB if any) supplies a 14-bit value centered
// on 8192 that gen.ScaleNRPN turns into an offset.
//
// The original engine's coarse/fine selector rule adds 10000 to the
// selector when the LSB equals 102; when that addition pushes the
// selector past the valid generator id range, this implementation
// ignores the NRPN message rather than remapping it onto a neighboring
// generator id (values outside [0,gen.Last) are simply dropped).
func (c *Channel) applyNRPNData(dataMSB int) {
	selector := c.nrpnMSB*100 + c.nrpnLSB
	if c.nrpnLSB == 102 {
		selector += 10000
	}
	if selector < 0 || selector >= int(gen.Last) {
		return
	}

	id := gen.ID(selector)
	value := dataMSB<<7 | c.cc[CCDataEntryLSB]
	c.nrpnGen[id] = gen.ScaleNRPN(id, value)
	c.nrpnAbsolute[id] = false
}

// NRPNGen returns the NRPN-derived offset for generator id.
func (c *Channel) NRPNGen(id gen.ID) float64 { return c.nrpnGen[id] }

// NRPNAbsolute reports whether generator id has been placed in absolute
// NRPN mode (an engine extension beyond the SF2 spec: the generator's
// effective value becomes the NRPN offset alone, ignoring the
// SoundFont's nominal value and any modulator contribution).
func (c *Channel) NRPNAbsolute(id gen.ID) bool { return c.nrpnAbsolute[id] }

// SetNRPNAbsolute toggles absolute-NRPN mode for generator id.
func (c *Channel) SetNRPNAbsolute(id gen.ID, abs bool) { c.nrpnAbsolute[id] = abs }

// PitchBend returns the current 14-bit pitch bend value (0x2000 = center).
func (c *Channel) PitchBend() int { return c.pitchBend }

// SetPitchBend sets the 14-bit pitch bend value.
func (c *Channel) SetPitchBend(val int) { c.pitchBend = val }

// PitchWheelSens returns the pitch wheel sensitivity in cents.
func (c *Channel) PitchWheelSens() int { return c.pitchWheelSensCents }

// SetPitchWheelSens sets the pitch wheel sensitivity in cents.
func (c *Channel) SetPitchWheelSens(cents int) { c.pitchWheelSensCents = cents }

// Program returns the current MIDI program number.
func (c *Channel) Program() int { return c.program }

// SetProgram sets the current MIDI program number.
func (c *Channel) SetProgram(prog int) { c.program = prog }

// Bank returns the currently selected SoundFont bank number.
func (c *Channel) Bank() int { return c.bank }

// SetBank sets the currently selected SoundFont bank number.
func (c *Channel) SetBank(bank int) { c.bank = bank }

// KeyPressure returns the polyphonic key pressure value for key.
func (c *Channel) KeyPressure(key int) int {
	if key < 0 || key >= len(c.keyPressure) {
		return 0
	}
	return c.keyPressure[key]
}

// SetKeyPressure sets the polyphonic key pressure value for key.
func (c *Channel) SetKeyPressure(key, val int) {
	if key < 0 || key >= len(c.keyPressure) {
		return
	}
	c.keyPressure[key] = val
}

// ChannelPressure returns the current channel (aftertouch) pressure.
func (c *Channel) ChannelPressure() int { return c.channelPressure }

// SetChannelPressure sets the current channel pressure.
func (c *Channel) SetChannelPressure(val int) { c.channelPressure = val }

// BindTuning associates this channel with a tuning bank/program pair.
func (c *Channel) BindTuning(bank, program int) {
	c.tuningBank, c.tuningProgram = bank, program
}

// Tuning returns the bound tuning bank/program pair.
func (c *Channel) Tuning() (bank, program int) {
	return c.tuningBank, c.tuningProgram
}
