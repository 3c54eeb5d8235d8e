package synth

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluidbean/fluidbean/internal/dsp"
	"github.com/fluidbean/fluidbean/internal/gen"
	"github.com/fluidbean/fluidbean/internal/midichan"
	"github.com/fluidbean/fluidbean/internal/voice"
	"github.com/fluidbean/fluidbean/sfbank"
)

// The structs and helpers below hand-encode a minimal SF2 file byte for
// byte, mirroring the layout sfbank.Load expects (field order and sizes
// are part of the SF2.01 HYDRA chunk spec, not an implementation detail
// private to the sfbank package).

type testPhdr struct {
	Name                               [20]byte
	Preset, Bank, PresetBagNdx         uint16
	Library, Genre, Morphology         uint32
}

type testBag struct {
	GenNdx, ModNdx uint16
}

type testGen struct {
	Oper   uint16
	Amount int16
}

type testInst struct {
	Name       [20]byte
	InstBagNdx uint16
}

type testShdr struct {
	Name                                     [20]byte
	Start, End, StartLoop, EndLoop, SampleRate uint32
	OriginalPitch                             uint8
	PitchCorrection                           int8
	SampleLink, SampleType                    uint16
}

func nameBuf20(s string) [20]byte {
	var n [20]byte
	copy(n[:], s)
	return n
}

func writeChunk(buf *bytes.Buffer, id string, payload []byte) {
	buf.WriteString(id)
	_ = binary.Write(buf, binary.LittleEndian, uint32(len(payload)))
	buf.Write(payload)
}

func le16(v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}

func encodeStruct(t *testing.T, v interface{}) []byte {
	t.Helper()
	var b bytes.Buffer
	require.NoError(t, binary.Write(&b, binary.LittleEndian, v))
	return b.Bytes()
}

// buildTestBank assembles a one-preset, one-instrument, one-sample SF2
// file with an exclusive class set on the instrument zone, exercising
// both NoteOn's zone walk and silenceExclusiveClasses.
func buildTestBank(t *testing.T) []byte {
	t.Helper()

	var info bytes.Buffer
	info.WriteString("INFO")
	writeChunk(&info, "ifil", append(le16(2), le16(1)...))
	writeChunk(&info, "isng", []byte("EMU8000\x00"))
	writeChunk(&info, "INAM", []byte("Synth Test Bank\x00"))

	const sampleLen = 32
	raw := make([]int16, sampleLen+2)
	for i := 0; i < sampleLen; i++ {
		raw[i] = int16(i * 10)
	}
	var sampleData bytes.Buffer
	for _, v := range raw {
		_ = binary.Write(&sampleData, binary.LittleEndian, v)
	}
	var sdta bytes.Buffer
	sdta.WriteString("sdta")
	writeChunk(&sdta, "smpl", sampleData.Bytes())

	phdr := []testPhdr{
		{Name: nameBuf20("Lead"), Preset: 0, Bank: 0, PresetBagNdx: 0},
		{Name: nameBuf20("EOP"), PresetBagNdx: 1},
	}
	pbag := []testBag{{GenNdx: 0, ModNdx: 0}, {GenNdx: 1, ModNdx: 0}}
	pgen := []testGen{{Oper: uint16(gen.Instrument), Amount: 0}}

	inst := []testInst{
		{Name: nameBuf20("LeadInst"), InstBagNdx: 0},
		{Name: nameBuf20("EOI"), InstBagNdx: 1},
	}
	ibag := []testBag{{GenNdx: 0, ModNdx: 0}, {GenNdx: 2, ModNdx: 0}}
	igen := []testGen{
		{Oper: uint16(gen.ExclusiveClass), Amount: 1},
		{Oper: uint16(gen.SampleID), Amount: 0},
	}
	shdr := []testShdr{
		{
			Name: nameBuf20("LeadSample"), Start: 0, End: sampleLen, StartLoop: 4, EndLoop: sampleLen - 4,
			SampleRate: 44100, OriginalPitch: 60, PitchCorrection: 0, SampleLink: 0,
			SampleType: uint16(sfbank.SampleTypeMono),
		},
		{Name: nameBuf20("EOS")},
	}

	var pdta bytes.Buffer
	pdta.WriteString("pdta")
	writeChunk(&pdta, "phdr", encodeStruct(t, phdr))
	writeChunk(&pdta, "pbag", encodeStruct(t, pbag))
	writeChunk(&pdta, "pmod", nil)
	writeChunk(&pdta, "pgen", encodeStruct(t, pgen))
	writeChunk(&pdta, "inst", encodeStruct(t, inst))
	writeChunk(&pdta, "ibag", encodeStruct(t, ibag))
	writeChunk(&pdta, "imod", nil)
	writeChunk(&pdta, "igen", encodeStruct(t, igen))
	writeChunk(&pdta, "shdr", encodeStruct(t, shdr))

	var body bytes.Buffer
	body.WriteString("sfbk")
	writeChunk(&body, "LIST", info.Bytes())
	writeChunk(&body, "LIST", sdta.Bytes())
	writeChunk(&body, "LIST", pdta.Bytes())

	var riff bytes.Buffer
	writeChunk(&riff, "RIFF", body.Bytes())
	return riff.Bytes()
}

func newTestSynth(t *testing.T) *Synth {
	t.Helper()
	s := New(Settings{SampleRate: 44100, Polyphony: 4, Interp: voice.InterpLinear})
	require.NoError(t, s.LoadBank(bytes.NewReader(buildTestBank(t))))
	return s
}

func TestLoadBankPopulatesInfo(t *testing.T) {
	s := newTestSynth(t)
	assert.Equal(t, "Synth Test Bank", s.bank.Info.Name)
}

func TestNoteOnWithoutBankErrors(t *testing.T) {
	s := New(DefaultSettings())
	err := s.NoteOn(0, 60, 100)
	assert.Error(t, err)
}

func TestNoteOnStartsAVoice(t *testing.T) {
	s := newTestSynth(t)
	require.NoError(t, s.NoteOn(0, 60, 100))

	sounding := 0
	for _, v := range s.voices {
		if !v.Finished() {
			sounding++
		}
	}
	assert.Equal(t, 1, sounding)
}

func TestNoteOnWithZeroVelocityIsNoteOff(t *testing.T) {
	s := newTestSynth(t)
	require.NoError(t, s.NoteOn(0, 60, 100))
	require.NoError(t, s.NoteOn(0, 60, 0))

	found := false
	for _, v := range s.voices {
		if v.Key() == 60 && v.Channel() == 0 && !v.Finished() {
			found = true
			assert.False(t, v.IsSustained(), "a zero-velocity note-on is a plain note-off, not a sustain hold")
		}
	}
	assert.True(t, found, "the voice keeps sounding through its release segment")
}

func TestNoteOnOutOfRangeChannelErrors(t *testing.T) {
	s := newTestSynth(t)
	err := s.NoteOn(99, 60, 100)
	assert.Error(t, err)
}

func TestExclusiveClassMutesPriorVoiceOnRetrigger(t *testing.T) {
	s := newTestSynth(t)
	require.NoError(t, s.NoteOn(0, 60, 100))
	require.NoError(t, s.NoteOn(0, 64, 100))

	for _, v := range s.voices {
		if v.Key() == 60 && v.Channel() == 0 {
			assert.True(t, v.Finished(), "starting another voice in the same exclusive class silences the first")
		}
	}

	sounding64 := 0
	for _, v := range s.voices {
		if v.Key() == 64 && !v.Finished() {
			sounding64++
		}
	}
	assert.Equal(t, 1, sounding64)
}

func TestNoteOffReleasesMatchingVoices(t *testing.T) {
	s := newTestSynth(t)
	require.NoError(t, s.NoteOn(0, 60, 100))
	require.NoError(t, s.NoteOff(0, 60))

	for _, v := range s.voices {
		if v.Key() == 60 && v.Channel() == 0 {
			assert.NotEqual(t, voice.StatusOff, v.Status(), "NoteOff moves the voice into its release segment, not immediately Off")
		}
	}
}

func TestAllSoundOffSilencesChannelImmediately(t *testing.T) {
	s := newTestSynth(t)
	require.NoError(t, s.NoteOn(0, 60, 100))
	require.NoError(t, s.CC(0, midichan.CCAllSoundOff, 127))

	for _, v := range s.voices {
		assert.True(t, v.Finished())
	}
}

func TestSustainPedalDefersNoteOff(t *testing.T) {
	s := newTestSynth(t)
	require.NoError(t, s.NoteOn(0, 60, 100))
	require.NoError(t, s.CC(0, midichan.CCSustain, 127))
	require.NoError(t, s.NoteOff(0, 60))

	found := false
	for _, v := range s.voices {
		if v.Key() == 60 && !v.Finished() {
			found = true
			assert.True(t, v.IsSustained())
		}
	}
	assert.True(t, found, "the voice stays alive, held by the sustain pedal")
}

func TestBankSelectAndProgramChangeRoundTrip(t *testing.T) {
	s := newTestSynth(t)
	require.NoError(t, s.BankSelect(0, 2))
	require.NoError(t, s.ProgramChange(0, 5))

	ch, err := s.channel(0)
	require.NoError(t, err)
	assert.Equal(t, 2, ch.Bank())
	assert.Equal(t, 5, ch.Program())
}

func TestPitchBendOutOfRangeChannelErrors(t *testing.T) {
	s := newTestSynth(t)
	assert.Error(t, s.PitchBend(20, 0x3000))
}

func TestRenderFrameAcceptsArbitraryBufferSizes(t *testing.T) {
	s := newTestSynth(t)
	require.NoError(t, s.NoteOn(0, 60, 100))

	out := make([][2]float32, 10)
	n, err := s.RenderFrame(out)
	require.NoError(t, err)
	assert.Equal(t, 10, n, "RenderFrame must support request lengths other than dsp.BufSize")
}

func TestRenderFrameProducesAudibleOutput(t *testing.T) {
	s := newTestSynth(t)
	require.NoError(t, s.NoteOn(0, 60, 100))

	out := make([][2]float32, 64)
	nonZero := false
	for i := 0; i < 20; i++ {
		n, err := s.RenderFrame(out)
		require.NoError(t, err)
		require.Equal(t, 64, n)
		for _, frame := range out {
			if frame[0] != 0 || frame[1] != 0 {
				nonZero = true
			}
		}
	}
	assert.True(t, nonZero, "a sounding voice should leave an audible trace in the render buffer")
}

func TestRenderFrameCarriesOverPartialBlocksAcrossCalls(t *testing.T) {
	whole := newTestSynth(t)
	require.NoError(t, whole.NoteOn(0, 60, 100))
	wholeOut := make([][2]float32, dsp.BufSize)
	n, err := whole.RenderFrame(wholeOut)
	require.NoError(t, err)
	require.Equal(t, dsp.BufSize, n)

	split := newTestSynth(t)
	require.NoError(t, split.NoteOn(0, 60, 100))
	first := make([][2]float32, dsp.BufSize/4)
	second := make([][2]float32, dsp.BufSize-dsp.BufSize/4)
	n1, err := split.RenderFrame(first)
	require.NoError(t, err)
	require.Equal(t, len(first), n1)
	n2, err := split.RenderFrame(second)
	require.NoError(t, err)
	require.Equal(t, len(second), n2)

	splitOut := append(append([][2]float32{}, first...), second...)
	assert.Equal(t, wholeOut, splitOut, "rendering the same block via several small calls must match one large call sample-for-sample")
}

func TestAllocVoiceStealsQuietestWhenPoolExhausted(t *testing.T) {
	s := newTestSynth(t)
	s.voices = make([]*voice.Voice, 1)
	s.voices[0] = &voice.Voice{}

	// Two different channels so the second NoteOn's exclusive-class mute
	// (same-channel only) can't silence the first voice on its own;
	// allocVoice must fall back to priority-based stealing instead.
	require.NoError(t, s.NoteOn(0, 60, 100))
	require.NoError(t, s.NoteOn(1, 64, 100))

	assert.Equal(t, 64, s.voices[0].Key(), "the only voice slot is stolen for the newest note")
}

// TestAllocVoiceStealsOldestNoteWhenEquallyLoud exercises the documented
// voice-stealing formula's age term directly: two equally loud, equally
// released voices started from different NoteOn calls (so they carry
// different noteIDs) must yield the older one to a new note, not whichever
// the pool scan happens to reach first.
func TestAllocVoiceStealsOldestNoteWhenEquallyLoud(t *testing.T) {
	s := newTestSynth(t)
	s.voices = make([]*voice.Voice, 2)
	s.voices[0] = &voice.Voice{}
	s.voices[1] = &voice.Voice{}

	require.NoError(t, s.NoteOn(0, 60, 100)) // older noteID, channel 0
	require.NoError(t, s.NoteOn(1, 64, 100)) // younger noteID, channel 1

	oldest, err := s.allocVoice(999)
	require.NoError(t, err)
	assert.Equal(t, 60, oldest.Key(), "stealing must prefer the older noteID when voices are otherwise identical")
}
