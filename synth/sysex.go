package synth

import (
	"fmt"

	"github.com/fluidbean/fluidbean/internal/tuning"
	"github.com/fluidbean/fluidbean/synerr"
)

// MIDI Tuning Standard sub-IDs, as carried in a Universal System
// Exclusive message (F0 7E/7F <device id> 08 <sub-id2> ...).
const (
	midiUniversalNonRealTime = 0x7e
	midiUniversalRealTime    = 0x7f
	midiSubIDTuning          = 0x08
	midiBulkDumpReply        = 0x01
	midiSingleNoteChange     = 0x02
)

// Sysex dispatches a complete System Exclusive message (the leading
// 0xf0 and trailing 0xf7 bytes included) into the synth's tuning
// tables. Messages outside the MIDI Tuning Standard are accepted and
// ignored, matching how the engine's real-time input path forwards
// anything it doesn't specifically understand.
func (s *Synth) Sysex(data []byte) error {
	if len(data) < 2 || data[0] != 0xf0 || data[len(data)-1] != 0xf7 {
		return synerr.New("synth.Sysex", synerr.KindBadArgument, fmt.Errorf("malformed sysex framing"))
	}
	body := data[1 : len(data)-1]
	if len(body) < 2 {
		return nil
	}
	if body[0] != midiUniversalNonRealTime && body[0] != midiUniversalRealTime {
		return nil
	}
	if len(body) < 4 || body[2] != midiSubIDTuning {
		return nil
	}

	payload := body[3:]
	switch payload[0] {
	case midiBulkDumpReply:
		return s.handleBulkTuningDump(payload[1:])
	case midiSingleNoteChange:
		return s.handleSingleNoteTuningChange(payload[1:])
	}
	return nil
}

// handleBulkTuningDump parses a Bulk Tuning Dump (sub-ID2 0x01):
// program number, 16-byte name, 128 three-byte note records, one
// checksum byte. The checksum is accepted but not independently
// verified; a malformed length is the only rejection criterion.
func (s *Synth) handleBulkTuningDump(data []byte) error {
	const wantLen = 1 + 16 + 128*3 + 1
	if len(data) != wantLen {
		return synerr.New("synth.handleBulkTuningDump", synerr.KindTuningError,
			fmt.Errorf("bulk tuning dump: got %d bytes, want %d", len(data), wantLen))
	}

	program := int(data[0])
	name := string(data[1:17])
	t := tuning.NewTuning(name)

	recs := data[17 : 17+128*3]
	for key := 0; key < 128; key++ {
		t.Pitch[key] = noteTuningCents(recs[key*3], recs[key*3+1], recs[key*3+2])
	}

	bank := s.tuningBanks.Bank(0)
	return bank.SetProgram(program, t)
}

// handleSingleNoteTuningChange parses a Single Note Tuning Change
// (sub-ID2 0x02): program number, note count, then one 4-byte record
// (key, xx, yy, zz) per note. Keys not named in the message keep
// whatever tuning the program already had (or 12-TET if the program
// didn't exist yet).
func (s *Synth) handleSingleNoteTuningChange(data []byte) error {
	if len(data) < 2 {
		return synerr.New("synth.handleSingleNoteTuningChange", synerr.KindTuningError,
			fmt.Errorf("single note tuning change: message too short"))
	}
	program := int(data[0])
	count := int(data[1])
	recs := data[2:]
	if len(recs) != count*4 {
		return synerr.New("synth.handleSingleNoteTuningChange", synerr.KindTuningError,
			fmt.Errorf("single note tuning change: got %d note records, expected %d", len(recs)/4, count))
	}

	bank := s.tuningBanks.Bank(0)
	t, err := bank.Program(program)
	if err != nil {
		t = tuning.NewTuning(fmt.Sprintf("program %d", program))
	}

	for i := 0; i < count; i++ {
		key := int(recs[i*4])
		if key < 0 || key >= len(t.Pitch) {
			continue
		}
		t.Pitch[key] = noteTuningCents(recs[i*4+1], recs[i*4+2], recs[i*4+3])
	}
	return bank.SetProgram(program, t)
}

// noteTuningCents converts a MIDI Tuning Standard note record (base
// semitone plus a 14-bit fraction of 100 cents) into absolute cents.
func noteTuningCents(semitone, fracMSB, fracLSB byte) float64 {
	frac := int(fracMSB)<<7 | int(fracLSB)
	return float64(semitone)*100.0 + float64(frac)*100.0/16384.0
}
