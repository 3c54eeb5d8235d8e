package sfbank

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluidbean/fluidbean/internal/gen"
	"github.com/fluidbean/fluidbean/internal/mod"
)

func writeChunk(buf *bytes.Buffer, id string, payload []byte) {
	buf.WriteString(id)
	_ = binary.Write(buf, binary.LittleEndian, uint32(len(payload)))
	buf.Write(payload)
}

func le16(v uint16) []byte { b := make([]byte, 2); binary.LittleEndian.PutUint16(b, v); return b }

func TestChunkParseAndExpect(t *testing.T) {
	var buf bytes.Buffer
	writeChunk(&buf, "TEST", []byte{1, 2, 3, 4})

	var ck chunk
	require.NoError(t, ck.expect(bytes.NewReader(buf.Bytes()), [4]byte{'T', 'E', 'S', 'T'}))
	assert.Equal(t, []byte{1, 2, 3, 4}, ck.data)
}

func TestChunkExpectWrongIDErrors(t *testing.T) {
	var buf bytes.Buffer
	writeChunk(&buf, "NOPE", []byte{1, 2, 3, 4})

	var ck chunk
	err := ck.expect(bytes.NewReader(buf.Bytes()), [4]byte{'T', 'E', 'S', 'T'})
	assert.Error(t, err)
}

func TestChunkSizeOfRejectsUnevenPayload(t *testing.T) {
	ck := chunk{size: 10}
	_, err := ck.sizeOf(4)
	assert.Error(t, err)
}

func TestChunkSizeOfDividesEvenly(t *testing.T) {
	ck := chunk{size: 12}
	n, err := ck.sizeOf(4)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestExpectLiteralMatches(t *testing.T) {
	ok, err := expectLiteral(bytes.NewReader([]byte("sfbk")), []byte("sfbk"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestExpectLiteralMismatch(t *testing.T) {
	ok, err := expectLiteral(bytes.NewReader([]byte("nope")), []byte("sfbk"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTrimNUL(t *testing.T) {
	assert.Equal(t, "hello", trimNUL([]byte("hello\x00\x00\x00")))
	assert.Equal(t, "nopad", trimNUL([]byte("nopad")))
}

func TestNameOfTruncatesAtNUL(t *testing.T) {
	var raw [20]byte
	copy(raw[:], "Grand Piano")
	assert.Equal(t, "Grand Piano", nameOf(raw))
}

func TestNameOfUsesFullBufferWithoutNUL(t *testing.T) {
	var raw [20]byte
	for i := range raw {
		raw[i] = 'a'
	}
	assert.Equal(t, string(raw[:]), nameOf(raw))
}

func TestDecodeModSrcUnpacksBitLayout(t *testing.T) {
	// direction=1 (negative), polarity=0 (unipolar), curve=1 (concave),
	// CC flag set, controller index 20.
	word := uint16(20) | 1<<7 | 1<<8 | 1<<10
	src, xform := decodeModSrc(word)

	assert.Equal(t, mod.Source(20), src)
	assert.Equal(t, mod.CC|mod.Negative|mod.Concave, xform)
}

func TestDecodeModSrcDefaultIsPositiveUnipolarLinear(t *testing.T) {
	src, xform := decodeModSrc(3)
	assert.Equal(t, mod.Source(3), src)
	assert.Equal(t, mod.Xform(0), xform)
}

func TestReadBagsUnpacksPairs(t *testing.T) {
	ck := chunk{size: 8, data: append(append([]byte{}, le16(1)...), append(le16(2), append(le16(3), le16(4)...)...)...)}
	bags, err := readBags(&ck)
	require.NoError(t, err)
	require.Len(t, bags, 2)
	assert.Equal(t, uint16(1), bags[0].GenNdx)
	assert.Equal(t, uint16(2), bags[0].ModNdx)
	assert.Equal(t, uint16(3), bags[1].GenNdx)
	assert.Equal(t, uint16(4), bags[1].ModNdx)
}

func TestRejectCompressedFlagsOggVorbis(t *testing.T) {
	assert.NoError(t, rejectCompressed(SampleTypeMono))
	assert.Error(t, rejectCompressed(SfSampleType(0x10)))
}

func TestBuildZoneLiftsKeyAndVelRange(t *testing.T) {
	gens := []rawGen{
		{Oper: uint16(gen.KeyRange), Amount: int16(uint16(36) | uint16(uint8(84))<<8)},
		{Oper: uint16(gen.VelRange), Amount: int16(uint16(1) | uint16(uint8(100))<<8)},
		{Oper: uint16(gen.Pan), Amount: 250},
	}
	z := buildZone(gens, nil, nil)

	assert.Equal(t, 36, z.KeyLo)
	assert.Equal(t, 84, z.KeyHi)
	assert.Equal(t, 1, z.VelLo)
	assert.Equal(t, 100, z.VelHi)
	assert.Equal(t, 250.0, z.Gens[gen.Pan])
}

func TestBuildZoneInheritsFromGlobal(t *testing.T) {
	global := &Zone{
		Gens:  map[gen.ID]float64{gen.Pan: 100},
		KeyLo: 0, KeyHi: 60, VelLo: 0, VelHi: 127,
	}
	local := buildZone([]rawGen{{Oper: uint16(gen.FilterFc), Amount: 8000}}, nil, global)

	assert.Equal(t, 100.0, local.Gens[gen.Pan], "global generator carries over")
	assert.Equal(t, 8000.0, local.Gens[gen.FilterFc])
	assert.Equal(t, 60, local.KeyHi, "global key range carries over")
}

func TestBuildZoneLocalModulatorReplacesGlobalByIdentity(t *testing.T) {
	globalMod := &mod.Modulator{Dest: gen.Attenuation, Src1: mod.SrcVelocity, Amount: 100}
	global := &Zone{Gens: map[gen.ID]float64{}, Mods: []*mod.Modulator{globalMod}}

	rawLocalMod := rawMod{SrcOper: 2, DestOper: uint16(gen.Attenuation), Amount: 500, AmtSrcOper: 0, TransOper: 0}
	local := buildZone(nil, []rawMod{rawLocalMod}, global)

	require.Len(t, local.Mods, 1, "identical identity replaces rather than stacks")
	assert.Equal(t, 500.0, local.Mods[0].Amount)
}

func TestSplitGlobalDetectsGlobalZone(t *testing.T) {
	bagGens := [][]rawGen{
		{{Oper: uint16(gen.Pan), Amount: 0}},
		{{Oper: uint16(gen.Instrument), Amount: 0}},
	}
	bagMods := [][]rawMod{nil, nil}

	global, locals := splitGlobal(bagGens, bagMods, gen.Instrument)
	require.NotNil(t, global)
	assert.Equal(t, []int{1}, locals)
}

func TestSplitGlobalNoGlobalWhenFirstZoneHasDest(t *testing.T) {
	bagGens := [][]rawGen{
		{{Oper: uint16(gen.Instrument), Amount: 0}},
	}
	bagMods := [][]rawMod{nil}

	global, locals := splitGlobal(bagGens, bagMods, gen.Instrument)
	assert.Nil(t, global)
	assert.Equal(t, []int{0}, locals)
}

func TestReadSampleDataUnpacks16Bit(t *testing.T) {
	var payload bytes.Buffer
	for _, v := range []int16{100, -200, 300, -400} {
		_ = binary.Write(&payload, binary.LittleEndian, v)
	}
	var buf bytes.Buffer
	writeChunk(&buf, "smpl", payload.Bytes())

	sd, err := readSampleData(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, []int16{100, -200, 300, -400}, sd.high)
}

func buildMinimalBankBytes(t *testing.T) []byte {
	t.Helper()

	var info bytes.Buffer
	info.WriteString("INFO")
	writeChunk(&info, "ifil", append(le16(2), le16(1)...))
	writeChunk(&info, "isng", []byte("EMU8000\x00"))
	writeChunk(&info, "INAM", []byte("Test Bank\x00"))

	var sampleData bytes.Buffer
	for _, v := range []int16{0, 1000, 2000, 1000} {
		_ = binary.Write(&sampleData, binary.LittleEndian, v)
	}
	var sdta bytes.Buffer
	sdta.WriteString("sdta")
	writeChunk(&sdta, "smpl", sampleData.Bytes())

	encodeStruct := func(v interface{}) []byte {
		var b bytes.Buffer
		require.NoError(t, binary.Write(&b, binary.LittleEndian, v))
		return b.Bytes()
	}

	var nameBuf20 = func(s string) [20]byte {
		var n [20]byte
		copy(n[:], s)
		return n
	}

	phdr := []rawPhdr{
		{Name: nameBuf20("TestPreset"), Preset: 0, Bank: 0, PresetBagNdx: 0},
		{Name: nameBuf20("EOP"), PresetBagNdx: 1},
	}
	pbag := []rawBag{{GenNdx: 0, ModNdx: 0}, {GenNdx: 1, ModNdx: 0}}
	pgen := []rawGen{{Oper: uint16(gen.Instrument), Amount: 0}}
	inst := []rawInst{
		{Name: nameBuf20("TestInst"), InstBagNdx: 0},
		{Name: nameBuf20("EOI"), InstBagNdx: 1},
	}
	ibag := []rawBag{{GenNdx: 0, ModNdx: 0}, {GenNdx: 1, ModNdx: 0}}
	igen := []rawGen{{Oper: uint16(gen.SampleID), Amount: 0}}
	shdr := []rawShdr{
		{
			Name: nameBuf20("TestSample"), Start: 0, End: 4, StartLoop: 1, EndLoop: 3,
			SampleRate: 44100, OriginalPitch: 60, PitchCorrection: 0, SampleLink: 0,
			SampleType: uint16(SampleTypeMono),
		},
		{Name: nameBuf20("EOS")},
	}

	var pdta bytes.Buffer
	pdta.WriteString("pdta")
	writeChunk(&pdta, "phdr", encodeStruct(phdr))
	writeChunk(&pdta, "pbag", encodeStruct(pbag))
	writeChunk(&pdta, "pmod", nil)
	writeChunk(&pdta, "pgen", encodeStruct(pgen))
	writeChunk(&pdta, "inst", encodeStruct(inst))
	writeChunk(&pdta, "ibag", encodeStruct(ibag))
	writeChunk(&pdta, "imod", nil)
	writeChunk(&pdta, "igen", encodeStruct(igen))
	writeChunk(&pdta, "shdr", encodeStruct(shdr))

	var body bytes.Buffer
	body.WriteString("sfbk")
	writeChunk(&body, "LIST", info.Bytes())
	writeChunk(&body, "LIST", sdta.Bytes())
	writeChunk(&body, "LIST", pdta.Bytes())

	var riff bytes.Buffer
	writeChunk(&riff, "RIFF", body.Bytes())
	return riff.Bytes()
}

func TestLoadResolvesMinimalBank(t *testing.T) {
	raw := buildMinimalBankBytes(t)

	bank, err := Load(bytes.NewReader(raw))
	require.NoError(t, err)

	assert.Equal(t, "Test Bank", bank.Info.Name)
	assert.Equal(t, uint16(2), bank.Info.VersionMajor)
	assert.Equal(t, uint16(1), bank.Info.VersionMinor)
	require.Len(t, bank.Presets, 1)

	preset, err := bank.PresetByID(0, 0)
	require.NoError(t, err)
	assert.Equal(t, "TestPreset", preset.Name)
	require.Len(t, preset.Zones, 1)

	iz := preset.Zones[0]
	require.NotNil(t, iz.Instrument)
	assert.Equal(t, "TestInst", iz.Instrument.Name)
	require.Len(t, iz.Instrument.Zones, 1)

	sampleZone := iz.Instrument.Zones[0]
	require.NotNil(t, sampleZone.Sample)
	assert.Equal(t, "TestSample", sampleZone.Sample.Name)
	assert.Equal(t, []int16{0, 1000, 2000, 1000}, sampleZone.Sample.Data)
}

func TestLoadRejectsNonRIFFInput(t *testing.T) {
	_, err := Load(bytes.NewReader([]byte("not a soundfont")))
	assert.Error(t, err)
}

func TestLoadRejectsTruncatedInput(t *testing.T) {
	_, err := Load(bytes.NewReader(nil))
	assert.ErrorIs(t, err, io.EOF)
}
