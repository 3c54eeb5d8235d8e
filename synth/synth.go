// Package synth assembles the bank loader, per-channel MIDI state,
// voice pool and effects busses into the engine's top-level API: load
// a bank, dispatch MIDI events, render audio.
package synth

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/fluidbean/fluidbean/internal/conv"
	"github.com/fluidbean/fluidbean/internal/dsp"
	"github.com/fluidbean/fluidbean/internal/fx/chorus"
	"github.com/fluidbean/fluidbean/internal/fx/reverb"
	"github.com/fluidbean/fluidbean/internal/gen"
	"github.com/fluidbean/fluidbean/internal/midichan"
	"github.com/fluidbean/fluidbean/internal/tuning"
	"github.com/fluidbean/fluidbean/internal/voice"
	"github.com/fluidbean/fluidbean/sfbank"
	"github.com/fluidbean/fluidbean/synerr"
)

// Synth is a complete MIDI softsynth instance: one loaded bank, sixteen
// MIDI channels, a fixed voice pool and a shared reverb/chorus send.
type Synth struct {
	settings Settings
	tables   *conv.Tables
	bank     *sfbank.Bank

	channels [16]*midichan.Channel
	voices   []*voice.Voice
	nextID   uint64

	reverb *reverb.Reverb
	chorus *chorus.Chorus

	tuningBanks *tuning.Banks

	log *log.Logger

	// renderLeft/renderRight cache the most recently rendered
	// dsp.BufSize-sample internal block; cur is how far into it the
	// caller has already consumed, matching fluid_synth_nwrite_float's
	// cursor so RenderFrame can serve an arbitrary-length request by
	// buffering the remainder across calls.
	renderLeft, renderRight [dsp.BufSize]float32
	cur                     int
}

// New constructs a Synth with no bank loaded yet.
func New(settings Settings) *Synth {
	s := &Synth{
		settings:    settings,
		tables:      conv.NewTables(),
		reverb:      reverb.New(),
		chorus:      chorus.New(settings.SampleRate),
		tuningBanks: tuning.NewBanks(),
		log:         log.New(io.Discard),
		cur:         dsp.BufSize,
	}
	for i := range s.channels {
		s.channels[i] = midichan.New(i)
	}
	s.voices = make([]*voice.Voice, settings.Polyphony)
	for i := range s.voices {
		s.voices[i] = &voice.Voice{}
	}
	return s
}

// SetLogger redirects the synth's debug trace output.
func (s *Synth) SetLogger(l *log.Logger) { s.log = l }

// LoadBank replaces the synth's currently loaded bank.
func (s *Synth) LoadBank(r io.Reader) error {
	bank, err := sfbank.Load(r)
	if err != nil {
		return err
	}
	s.bank = bank
	s.log.Info("loaded bank", "name", bank.Info.Name, "presets", len(bank.Presets))
	return nil
}

func (s *Synth) channel(ch int) (*midichan.Channel, error) {
	if ch < 0 || ch >= len(s.channels) {
		return nil, synerr.New("synth", synerr.KindBadArgument, fmt.Errorf("channel %d out of range", ch))
	}
	return s.channels[ch], nil
}

// allocVoice returns a voice ready to be started: a fully clean one if
// any exists, otherwise the lowest-priority sounding voice is stolen,
// scored against noteID (the id the caller's note-on is about to use).
func (s *Synth) allocVoice(noteID uint64) (*voice.Voice, error) {
	for _, v := range s.voices {
		if v.Status() == voice.StatusClean || v.Finished() {
			return v, nil
		}
	}

	var victim *voice.Voice
	best := 1e18
	for _, v := range s.voices {
		p := v.Priority(noteID)
		if p < best {
			best = p
			victim = v
		}
	}
	if victim == nil {
		return nil, synerr.New("synth.allocVoice", synerr.KindVoiceExhausted, nil)
	}
	victim.Off()
	return victim, nil
}

// NoteOn starts every (preset zone, instrument zone) pair matching key
// and vel on chNum's currently selected preset.
func (s *Synth) NoteOn(chNum, key, vel int) error {
	if s.bank == nil {
		return synerr.New("synth.NoteOn", synerr.KindBankNotLoaded, nil)
	}
	ch, err := s.channel(chNum)
	if err != nil {
		return err
	}
	if vel == 0 {
		return s.NoteOff(chNum, key)
	}

	preset, err := s.bank.PresetByID(ch.Bank(), ch.Program())
	if err != nil {
		return err
	}

	s.nextID++
	noteID := s.nextID

	s.silenceExclusiveClasses(chNum, preset, key, vel)

	for _, pz := range preset.Zones {
		if !inRange(key, pz.KeyLo, pz.KeyHi) || !inRange(vel, pz.VelLo, pz.VelHi) {
			continue
		}
		if pz.Instrument == nil {
			continue
		}
		for _, iz := range pz.Instrument.Zones {
			if !inRange(key, iz.KeyLo, iz.KeyHi) || !inRange(vel, iz.VelLo, iz.VelHi) {
				continue
			}
			if iz.Sample == nil {
				continue
			}
			if err := s.startVoice(chNum, ch, key, vel, pz, iz, noteID); err != nil {
				return err
			}
		}
	}
	return nil
}

// startVoice allocates and starts one voice for a matched (preset zone,
// instrument zone) pair. Every voice started from the same NoteOn call
// shares noteID, so exclusive-class kills and voice-stealing priority
// can tell voices from the same chord apart from voices started earlier.
func (s *Synth) startVoice(chNum int, ch *midichan.Channel, key, vel int, pz, iz *sfbank.Zone, noteID uint64) error {
	v, err := s.allocVoice(noteID)
	if err != nil {
		return err
	}

	mods := mergeMods(mergeMods(cloneDefaultMods(), iz.Mods), pz.Mods)
	nominal := resolveNominal(iz.Gens, pz.Gens)

	v.Start(voice.Params{
		ID:         noteID,
		Channel:    chNum,
		Key:        key,
		Vel:        vel,
		Gens:       nominal,
		Mods:       mods,
		Sample:     iz.Sample,
		SampleRate: s.settings.SampleRate,
		Tables:     s.tables,
		Interp:     s.settings.Interp,
	}, ch)
	return nil
}

// silenceExclusiveClasses implements SF2.01 section 8.1.2's exclusive
// class generator: starting a zone with a nonzero exclusive class mutes
// every other sounding voice on the same channel in that class.
func (s *Synth) silenceExclusiveClasses(chNum int, preset *sfbank.Preset, key, vel int) {
	classes := map[int]bool{}
	for _, pz := range preset.Zones {
		if !inRange(key, pz.KeyLo, pz.KeyHi) || !inRange(vel, pz.VelLo, pz.VelHi) || pz.Instrument == nil {
			continue
		}
		for _, iz := range pz.Instrument.Zones {
			if ec, ok := iz.Gens[gen.ExclusiveClass]; ok && ec != 0 {
				classes[int(ec)] = true
			}
		}
	}
	for _, v := range s.voices {
		if v.Channel() != chNum || v.Finished() {
			continue
		}
		if v.ExclusiveClass() != 0 && classes[v.ExclusiveClass()] {
			v.Off()
		}
	}
}

// NoteOff releases every sounding voice on chNum playing key.
func (s *Synth) NoteOff(chNum, key int) error {
	if _, err := s.channel(chNum); err != nil {
		return err
	}
	for _, v := range s.voices {
		if v.Channel() == chNum && v.Key() == key && !v.Finished() {
			v.NoteOff()
		}
	}
	return nil
}

// CC processes a Control Change message on chNum.
func (s *Synth) CC(chNum, num, val int) error {
	ch, err := s.channel(chNum)
	if err != nil {
		return err
	}
	ch.SetCC(num, val)

	switch num {
	case midichan.CCBankSelectMSB:
		ch.SetBank(val)
	case midichan.CCSustain:
		if val >= 64 {
			s.sustainOn(chNum)
		} else {
			s.sustainOff(chNum)
		}
	case midichan.CCAllNotesOff:
		for _, v := range s.voices {
			if v.Channel() == chNum && !v.Finished() {
				v.NoteOff()
			}
		}
	case midichan.CCAllSoundOff:
		for _, v := range s.voices {
			if v.Channel() == chNum {
				v.Off()
			}
		}
	}

	for _, v := range s.voices {
		if v.Channel() == chNum && !v.Finished() {
			v.ModulateAll()
		}
	}
	return nil
}

func (s *Synth) sustainOn(chNum int) {
	for _, v := range s.voices {
		if v.Channel() == chNum && !v.Finished() {
			v.Sustain()
		}
	}
}

func (s *Synth) sustainOff(chNum int) {
	for _, v := range s.voices {
		if v.Channel() == chNum && !v.Finished() {
			v.EndSustain()
		}
	}
}

// PitchBend sets chNum's 14-bit pitch bend value and re-evaluates its
// sounding voices' pitch-wheel modulator.
func (s *Synth) PitchBend(chNum, val int) error {
	ch, err := s.channel(chNum)
	if err != nil {
		return err
	}
	ch.SetPitchBend(val)
	for _, v := range s.voices {
		if v.Channel() == chNum && !v.Finished() {
			v.ModulateAll()
		}
	}
	return nil
}

// ProgramChange sets chNum's current program number.
func (s *Synth) ProgramChange(chNum, program int) error {
	ch, err := s.channel(chNum)
	if err != nil {
		return err
	}
	ch.SetProgram(program)
	return nil
}

// BankSelect sets chNum's current bank number directly, bypassing the
// CC0 path.
func (s *Synth) BankSelect(chNum, bank int) error {
	ch, err := s.channel(chNum)
	if err != nil {
		return err
	}
	ch.SetBank(bank)
	return nil
}

// ChannelPressure sets chNum's channel (monophonic) aftertouch value.
func (s *Synth) ChannelPressure(chNum, val int) error {
	ch, err := s.channel(chNum)
	if err != nil {
		return err
	}
	ch.SetChannelPressure(val)
	for _, v := range s.voices {
		if v.Channel() == chNum && !v.Finished() {
			v.ModulateAll()
		}
	}
	return nil
}

// KeyPressure sets chNum's polyphonic aftertouch value for key.
func (s *Synth) KeyPressure(chNum, key, val int) error {
	ch, err := s.channel(chNum)
	if err != nil {
		return err
	}
	ch.SetKeyPressure(key, val)
	return nil
}

// RenderFrame fills out with len(out) interleaved stereo frames,
// mixing every sounding voice through the shared reverb and chorus
// sends. len(out) need not be a multiple of dsp.BufSize: internally
// voices are only ever advanced in exactly dsp.BufSize-sample blocks,
// and any unconsumed tail of a block is cached and served to the next
// call before a new block is rendered, following
// fluid_synth_nwrite_float's cursor-based partial-block carryover.
func (s *Synth) RenderFrame(out [][2]float32) (int, error) {
	count := 0
	n := len(out)

	if s.cur < dsp.BufSize {
		available := dsp.BufSize - s.cur
		num := available
		if num > n {
			num = n
		}
		for i := 0; i < num; i++ {
			out[i] = [2]float32{s.renderLeft[s.cur+i], s.renderRight[s.cur+i]}
		}
		count += num
		s.cur += num
	}

	for count < n {
		s.renderBlock()

		num := dsp.BufSize
		if num > n-count {
			num = n - count
		}
		for i := 0; i < num; i++ {
			out[count+i] = [2]float32{s.renderLeft[i], s.renderRight[i]}
		}
		count += num
		s.cur = num
	}

	return count, nil
}

// renderBlock advances every sounding voice by exactly dsp.BufSize
// samples into renderLeft/renderRight, the engine's fixed internal
// render granularity.
func (s *Synth) renderBlock() {
	left := s.renderLeft[:]
	right := s.renderRight[:]
	for i := range left {
		left[i] = 0
		right[i] = 0
	}

	var reverbSend, chorusSend [dsp.BufSize]float32
	var reverbBuf, chorusBuf []float32
	if s.settings.ReverbActive {
		reverbBuf = reverbSend[:]
	}
	if s.settings.ChorusActive {
		chorusBuf = chorusSend[:]
	}

	for _, v := range s.voices {
		if v.Finished() {
			continue
		}
		v.Modulate()
		v.Write(left, right, reverbBuf, chorusBuf)
	}

	if s.settings.ReverbActive {
		reverbIn := make([]float64, dsp.BufSize)
		for i, f := range reverbSend {
			reverbIn[i] = float64(f)
		}
		s.reverb.ProcessMix(reverbIn, left, right)
	}
	if s.settings.ChorusActive {
		chorusIn := make([]float64, dsp.BufSize)
		for i, f := range chorusSend {
			chorusIn[i] = float64(f)
		}
		s.chorus.ProcessMix(chorusIn, left, right)
	}
}

// TuningBanks exposes the synth's in-memory MIDI tuning banks, as
// populated by Sysex bulk/single tuning dumps.
func (s *Synth) TuningBanks() *tuning.Banks { return s.tuningBanks }
