// Package tuning implements MIDI Tuning Standard note-pitch tables, as
// exercised through a synth's Sysex bulk/single tuning dump handler.
// Tuning data lives only in memory for the lifetime of the synth; nothing
// here persists a tuning bank to disk.
package tuning

import "github.com/fluidbean/fluidbean/synerr"

// Tuning maps each of the 128 MIDI keys to an absolute pitch in cents. A
// freshly created Tuning is standard 12-tone equal temperament.
type Tuning struct {
	Name  string
	Pitch [128]float64
}

// NewTuning returns a 12-TET tuning (100 cents per semitone) named name.
func NewTuning(name string) *Tuning {
	t := &Tuning{Name: name}
	for i := range t.Pitch {
		t.Pitch[i] = 100.0 * float64(i)
	}
	return t
}

// Bank is a 128-program tuning bank (MIDI Tuning Standard banks are
// addressed 0..127, programs 0..127 within a bank).
type Bank struct {
	programs [128]*Tuning
}

// NewBank returns an empty tuning bank (no programs assigned).
func NewBank() *Bank {
	return &Bank{}
}

// SetProgram installs t as program prog in this bank.
func (b *Bank) SetProgram(prog int, t *Tuning) error {
	if prog < 0 || prog >= len(b.programs) {
		return synerr.New("tuning.SetProgram", synerr.KindTuningError, nil)
	}
	b.programs[prog] = t
	return nil
}

// Program returns the tuning installed at prog, or an error if none has
// been set.
func (b *Bank) Program(prog int) (*Tuning, error) {
	if prog < 0 || prog >= len(b.programs) {
		return nil, synerr.New("tuning.Program", synerr.KindTuningError, nil)
	}
	t := b.programs[prog]
	if t == nil {
		return nil, synerr.New("tuning.Program", synerr.KindTuningError, nil)
	}
	return t, nil
}

// Banks holds every tuning bank a synth knows about, addressed by bank
// number.
type Banks struct {
	banks map[int]*Bank
}

// NewBanks returns an empty tuning-bank collection.
func NewBanks() *Banks {
	return &Banks{banks: make(map[int]*Bank)}
}

// Bank returns the Bank at bankNum, creating it on first use.
func (b *Banks) Bank(bankNum int) *Bank {
	bk, ok := b.banks[bankNum]
	if !ok {
		bk = NewBank()
		b.banks[bankNum] = bk
	}
	return bk
}

// ApplyToKey resolves the pitch, in cents, a channel bound to
// (bankNum, progNum) should play key at. If no tuning is bound the
// caller should fall back to flat 12-TET (100*key).
func (b *Banks) ApplyToKey(bankNum, progNum, key int) (float64, error) {
	bk, ok := b.banks[bankNum]
	if !ok {
		return 0, synerr.New("tuning.ApplyToKey", synerr.KindTuningError, nil)
	}
	t, err := bk.Program(progNum)
	if err != nil {
		return 0, err
	}
	if key < 0 || key >= len(t.Pitch) {
		return 0, synerr.New("tuning.ApplyToKey", synerr.KindBadArgument, nil)
	}
	return t.Pitch[key], nil
}
