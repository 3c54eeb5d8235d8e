package sfbank

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/fluidbean/fluidbean/internal/gen"
	"github.com/fluidbean/fluidbean/internal/mod"
)

// SfSampleType is a sample header's sfSampleType field: mono, left,
// right or linked in the low bits, 0x8000 marking a ROM sample and 0x10
// marking an SF3 Ogg-Vorbis-compressed sample.
type SfSampleType uint16

const (
	SampleTypeMono      SfSampleType = 1
	SampleTypeRight     SfSampleType = 2
	SampleTypeLeft      SfSampleType = 4
	SampleTypeLinked    SfSampleType = 8
	SampleTypeRomMono   SfSampleType = 0x8001
	SampleTypeRomRight  SfSampleType = 0x8002
	SampleTypeRomLeft   SfSampleType = 0x8004
	SampleTypeRomLinked SfSampleType = 0x8008

	sfSampleTypeOggVorbis SfSampleType = 0x10
)

// Sample is one resolved, playable sample: a window into the bank's
// shared sample pool plus its loop points and root pitch.
type Sample struct {
	Name string
	// Data is the bank's whole decoded sample pool, shared by every
	// Sample; Start/End/LoopStart/LoopEnd index into it directly.
	Data            []int16
	Start           uint32
	End             uint32
	LoopStart       uint32
	LoopEnd         uint32
	SampleRate      uint32
	OriginalPitch   uint8
	PitchCorrection int8
	SampleType      SfSampleType
	Link            *Sample
}

// Zone is one preset or instrument zone: a generator/modulator set plus
// the key/velocity range it applies to, with global-zone defaults
// already folded in (SF2.01 SS9.4-9.5: local values override global,
// global fills in anything a local zone didn't specify).
type Zone struct {
	Gens  map[gen.ID]float64
	Mods  []*mod.Modulator
	KeyLo int
	KeyHi int
	VelLo int
	VelHi int

	// Instrument is set on preset zones.
	Instrument *Instrument
	// Sample is set on instrument zones.
	Sample *Sample
}

// Instrument is a named collection of sample zones.
type Instrument struct {
	Name  string
	Zones []*Zone
}

// Preset is a named collection of instrument zones, addressed by a
// (bank, program) pair.
type Preset struct {
	Name    string
	Bank    int
	Program int
	Zones   []*Zone
}

type rawBag struct {
	GenNdx uint16
	ModNdx uint16
}

type rawMod struct {
	SrcOper    uint16
	DestOper   uint16
	Amount     int16
	AmtSrcOper uint16
	TransOper  uint16
}

type rawGen struct {
	Oper   uint16
	Amount int16
}

type rawPhdr struct {
	Name         [20]byte
	Preset       uint16
	Bank         uint16
	PresetBagNdx uint16
	Library      uint32
	Genre        uint32
	Morphology   uint32
}

type rawInst struct {
	Name      [20]byte
	InstBagNdx uint16
}

type rawShdr struct {
	Name            [20]byte
	Start           uint32
	End             uint32
	StartLoop       uint32
	EndLoop         uint32
	SampleRate      uint32
	OriginalPitch   uint8
	PitchCorrection int8
	SampleLink      uint16
	SampleType      uint16
}

type hydra struct {
	phdr []rawPhdr
	pbag []rawBag
	pmod []rawMod
	pgen []rawGen
	inst []rawInst
	ibag []rawBag
	imod []rawMod
	igen []rawGen
	shdr []rawShdr
}

func readHydra(r io.Reader) (*hydra, error) {
	ok, err := expectLiteral(r, []byte{'p', 'd', 't', 'a'})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("sfbank: expected \"pdta\"")
	}

	h := &hydra{}
	required := map[[4]byte]bool{
		{'p', 'h', 'd', 'r'}: false, {'p', 'b', 'a', 'g'}: false,
		{'p', 'm', 'o', 'd'}: false, {'p', 'g', 'e', 'n'}: false,
		{'i', 'n', 's', 't'}: false, {'i', 'b', 'a', 'g'}: false,
		{'i', 'm', 'o', 'd'}: false, {'i', 'g', 'e', 'n'}: false,
		{'s', 'h', 'd', 'r'}: false,
	}

	for {
		var ck chunk
		if err := ck.parse(r); err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		if _, known := required[ck.id]; !known {
			continue
		}
		required[ck.id] = true

		switch ck.id {
		case [4]byte{'p', 'h', 'd', 'r'}:
			n, err := ck.sizeOf(38)
			if err != nil {
				return nil, err
			}
			h.phdr = make([]rawPhdr, n)
			if err := binary.Read(ck.newReader(), binary.LittleEndian, &h.phdr); err != nil {
				return nil, err
			}
		case [4]byte{'p', 'b', 'a', 'g'}:
			h.pbag, err = readBags(&ck)
			if err != nil {
				return nil, err
			}
		case [4]byte{'p', 'm', 'o', 'd'}:
			n, err := ck.sizeOf(10)
			if err != nil {
				return nil, err
			}
			h.pmod = make([]rawMod, n)
			if err := binary.Read(ck.newReader(), binary.LittleEndian, &h.pmod); err != nil {
				return nil, err
			}
		case [4]byte{'p', 'g', 'e', 'n'}:
			n, err := ck.sizeOf(4)
			if err != nil {
				return nil, err
			}
			h.pgen = make([]rawGen, n)
			if err := binary.Read(ck.newReader(), binary.LittleEndian, &h.pgen); err != nil {
				return nil, err
			}
		case [4]byte{'i', 'n', 's', 't'}:
			n, err := ck.sizeOf(22)
			if err != nil {
				return nil, err
			}
			h.inst = make([]rawInst, n)
			if err := binary.Read(ck.newReader(), binary.LittleEndian, &h.inst); err != nil {
				return nil, err
			}
		case [4]byte{'i', 'b', 'a', 'g'}:
			h.ibag, err = readBags(&ck)
			if err != nil {
				return nil, err
			}
		case [4]byte{'i', 'm', 'o', 'd'}:
			n, err := ck.sizeOf(10)
			if err != nil {
				return nil, err
			}
			h.imod = make([]rawMod, n)
			if err := binary.Read(ck.newReader(), binary.LittleEndian, &h.imod); err != nil {
				return nil, err
			}
		case [4]byte{'i', 'g', 'e', 'n'}:
			n, err := ck.sizeOf(4)
			if err != nil {
				return nil, err
			}
			h.igen = make([]rawGen, n)
			if err := binary.Read(ck.newReader(), binary.LittleEndian, &h.igen); err != nil {
				return nil, err
			}
		case [4]byte{'s', 'h', 'd', 'r'}:
			n, err := ck.sizeOf(46)
			if err != nil {
				return nil, err
			}
			h.shdr = make([]rawShdr, n)
			if err := binary.Read(ck.newReader(), binary.LittleEndian, &h.shdr); err != nil {
				return nil, err
			}
		}
	}

	for id, ok := range required {
		if !ok {
			return nil, fmt.Errorf("sfbank: missing required HYDRA chunk %q", id)
		}
	}

	return h, nil
}

// readBags decodes a PBAG/IBAG sub-chunk. These records are two packed
// uint16 fields; binary.Read handles them directly, but the teacher
// parsed them by hand, so the manual byte unpack is kept here as the
// grounded form.
func readBags(ck *chunk) ([]rawBag, error) {
	n, err := ck.sizeOf(4)
	if err != nil {
		return nil, err
	}
	bags := make([]rawBag, n)
	for i := range bags {
		bags[i].GenNdx = uint16(ck.data[4*i+1])<<8 | uint16(ck.data[4*i])
		bags[i].ModNdx = uint16(ck.data[4*i+3])<<8 | uint16(ck.data[4*i+2])
	}
	return bags, nil
}

// decodeModSrc unpacks one SF2.01 section 8.2.1 modulator source word:
// bits 0-6 the controller index, bit 7 the CC flag, bit 8 direction,
// bit 9 polarity and bits 10-15 the curve type. The result is
// re-packed into this engine's internal mod.Xform bit layout rather
// than the spec's own bit positions.
func decodeModSrc(word uint16) (mod.Source, mod.Xform) {
	index := word & 0x007f
	isCC := (word>>7)&0x1 != 0
	direction := (word >> 8) & 0x1
	polarity := (word >> 9) & 0x1
	curve := (word >> 10) & 0x3f

	var xform mod.Xform
	if direction == 1 {
		xform |= mod.Negative
	}
	if polarity == 1 {
		xform |= mod.Bipolar
	}
	switch curve {
	case 1:
		xform |= mod.Concave
	case 2:
		xform |= mod.Convex
	case 3:
		xform |= mod.Switch
	}
	if isCC {
		xform |= mod.CC
	}

	return mod.Source(index), xform
}

func nameOf(b [20]byte) string {
	i := bytes.IndexByte(b[:], 0)
	if i < 0 {
		return string(b[:])
	}
	return string(b[:i])
}

// buildZone converts the generator/modulator slices for one bag into a
// Zone, folding global defaults in first (local overrides global, per
// generator id and per modulator identity) and lifting out the
// key/velocity range generators, which apply to zone membership rather
// than voice rendering.
func buildZone(gens []rawGen, mods []rawMod, global *Zone) *Zone {
	z := &Zone{
		Gens:  map[gen.ID]float64{},
		KeyLo: 0, KeyHi: 127,
		VelLo: 0, VelHi: 127,
	}
	if global != nil {
		for k, v := range global.Gens {
			z.Gens[k] = v
		}
		z.Mods = append(z.Mods, global.Mods...)
		z.KeyLo, z.KeyHi = global.KeyLo, global.KeyHi
		z.VelLo, z.VelHi = global.VelLo, global.VelHi
	}

	for _, g := range gens {
		id := gen.ID(g.Oper)
		switch id {
		case gen.KeyRange:
			z.KeyLo, z.KeyHi = int(uint8(g.Amount)), int(uint8(g.Amount>>8))
		case gen.VelRange:
			z.VelLo, z.VelHi = int(uint8(g.Amount)), int(uint8(g.Amount>>8))
		default:
			z.Gens[id] = float64(g.Amount)
		}
	}

	for _, m := range mods {
		src1, xform1 := decodeModSrc(m.SrcOper)
		src2, xform2 := decodeModSrc(m.AmtSrcOper)
		nm := &mod.Modulator{
			Dest:   gen.ID(m.DestOper),
			Src1:   src1,
			Xform1: xform1,
			Src2:   src2,
			Xform2: xform2,
			Amount: float64(m.Amount),
		}
		z.Mods = replaceOrAppend(z.Mods, nm)
	}

	return z
}

// replaceOrAppend implements the SF2.01 SS9.5.4 rule that a local
// modulator with the same identity (all fields but amount) as a global
// one replaces it instead of stacking.
func replaceOrAppend(mods []*mod.Modulator, nm *mod.Modulator) []*mod.Modulator {
	for i, m := range mods {
		if m.TestIdentity(nm) {
			mods[i] = nm
			return mods
		}
	}
	return append(mods, nm)
}

// splitGlobal splits bags[lo:hi) into the (possibly absent) global
// zone and the remaining local zones, per SS9.4: a zone with no
// Instrument (or SampleID, for instrument zones) generator is global
// and only legal as the first zone in the range.
func splitGlobal(bagGens [][]rawGen, bagMods [][]rawMod, destGen gen.ID) (*Zone, []int) {
	if len(bagGens) == 0 {
		return nil, nil
	}
	hasDest := false
	for _, g := range bagGens[0] {
		if gen.ID(g.Oper) == destGen {
			hasDest = true
			break
		}
	}
	if hasDest {
		locals := make([]int, len(bagGens))
		for i := range locals {
			locals[i] = i
		}
		return nil, locals
	}
	global := buildZone(bagGens[0], bagMods[0], nil)
	locals := make([]int, 0, len(bagGens)-1)
	for i := 1; i < len(bagGens); i++ {
		locals = append(locals, i)
	}
	return global, locals
}

func bagGenRange(h *hydra, genArr []rawGen, bags []rawBag, bagLo, bagHi int) [][]rawGen {
	out := make([][]rawGen, 0, bagHi-bagLo)
	for i := bagLo; i < bagHi; i++ {
		lo := bags[i].GenNdx
		hi := bags[i+1].GenNdx
		if int(hi) > len(genArr) {
			hi = uint16(len(genArr))
		}
		out = append(out, genArr[lo:hi])
	}
	return out
}

func bagModRange(modArr []rawMod, bags []rawBag, bagLo, bagHi int) [][]rawMod {
	out := make([][]rawMod, 0, bagHi-bagLo)
	for i := bagLo; i < bagHi; i++ {
		lo := bags[i].ModNdx
		hi := bags[i+1].ModNdx
		if int(hi) > len(modArr) {
			hi = uint16(len(modArr))
		}
		out = append(out, modArr[lo:hi])
	}
	return out
}

// resolve turns the raw HYDRA tables into the bank's Preset/Instrument
// graph, with every zone's generators and modulators fully merged
// against its global zone.
func (h *hydra) resolve(samples []*Sample) ([]*Preset, error) {
	instruments := make([]*Instrument, 0, len(h.inst))
	if len(h.inst) < 2 {
		return nil, fmt.Errorf("sfbank: inst table must include a terminal record")
	}
	for i := 0; i < len(h.inst)-1; i++ {
		bagLo := int(h.inst[i].InstBagNdx)
		bagHi := int(h.inst[i+1].InstBagNdx)
		if bagHi > len(h.ibag)-1 {
			bagHi = len(h.ibag) - 1
		}
		gens := bagGenRange(h, h.igen, h.ibag, bagLo, bagHi)
		mods := bagModRange(h.imod, h.ibag, bagLo, bagHi)

		global, locals := splitGlobal(gens, mods, gen.SampleID)
		inst := &Instrument{Name: nameOf(h.inst[i].Name)}
		for _, li := range locals {
			z := buildZone(gens[li], mods[li], global)
			sampleIdx, ok := z.Gens[gen.SampleID]
			if !ok {
				return nil, fmt.Errorf("sfbank: instrument %q zone missing sample id", inst.Name)
			}
			idx := int(sampleIdx)
			if idx < 0 || idx >= len(samples) {
				return nil, fmt.Errorf("sfbank: instrument %q zone references out-of-range sample %d", inst.Name, idx)
			}
			z.Sample = samples[idx]
			delete(z.Gens, gen.SampleID)
			inst.Zones = append(inst.Zones, z)
		}
		instruments = append(instruments, inst)
	}

	if len(h.phdr) < 2 {
		return nil, fmt.Errorf("sfbank: phdr table must include a terminal record")
	}
	presets := make([]*Preset, 0, len(h.phdr)-1)
	for i := 0; i < len(h.phdr)-1; i++ {
		bagLo := int(h.phdr[i].PresetBagNdx)
		bagHi := int(h.phdr[i+1].PresetBagNdx)
		if bagHi > len(h.pbag)-1 {
			bagHi = len(h.pbag) - 1
		}
		gens := bagGenRange(h, h.pgen, h.pbag, bagLo, bagHi)
		mods := bagModRange(h.pmod, h.pbag, bagLo, bagHi)

		global, locals := splitGlobal(gens, mods, gen.Instrument)
		p := &Preset{
			Name:    nameOf(h.phdr[i].Name),
			Bank:    int(h.phdr[i].Bank),
			Program: int(h.phdr[i].Preset),
		}
		for _, li := range locals {
			z := buildZone(gens[li], mods[li], global)
			instIdx, ok := z.Gens[gen.Instrument]
			if !ok {
				return nil, fmt.Errorf("sfbank: preset %q zone missing instrument id", p.Name)
			}
			idx := int(instIdx)
			if idx < 0 || idx >= len(instruments) {
				return nil, fmt.Errorf("sfbank: preset %q zone references out-of-range instrument %d", p.Name, idx)
			}
			z.Instrument = instruments[idx]
			delete(z.Gens, gen.Instrument)
			p.Zones = append(p.Zones, z)
		}
		presets = append(presets, p)
	}

	return presets, nil
}

func buildSamples(sd *sampleData, shdr []rawShdr) ([]*Sample, error) {
	if len(shdr) < 1 {
		return nil, fmt.Errorf("sfbank: shdr table must include a terminal record")
	}
	samples := make([]*Sample, len(shdr)-1)
	for i := 0; i < len(shdr)-1; i++ {
		raw := shdr[i]
		s := &Sample{
			Name:            nameOf(raw.Name),
			Start:           raw.Start,
			End:             raw.End,
			LoopStart:       raw.StartLoop,
			LoopEnd:         raw.EndLoop,
			SampleRate:      raw.SampleRate,
			OriginalPitch:   raw.OriginalPitch,
			PitchCorrection: raw.PitchCorrection,
			SampleType:      SfSampleType(raw.SampleType),
		}
		if err := rejectCompressed(s.SampleType); err != nil {
			return nil, err
		}
		if raw.End > uint32(len(sd.high)) {
			return nil, fmt.Errorf("sfbank: sample %q end offset %d exceeds sample pool of %d", s.Name, raw.End, len(sd.high))
		}
		s.Data = sd.high
		samples[i] = s
	}
	for i, raw := range shdr[:len(shdr)-1] {
		if SfSampleType(raw.SampleType)&(SampleTypeLeft|SampleTypeRight) != 0 {
			link := int(raw.SampleLink)
			if link >= 0 && link < len(samples) {
				samples[i].Link = samples[link]
			}
		}
	}
	return samples, nil
}
