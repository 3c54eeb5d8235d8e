package sfbank

import (
	"fmt"
	"io"

	"github.com/fluidbean/fluidbean/synerr"
)

// Bank is a fully resolved SoundFont 2.01 bank: every preset's zones
// carry their merged generator/modulator set and resolve directly to
// an Instrument and, through it, a Sample.
type Bank struct {
	Info    *Info
	Presets []*Preset

	byBankProgram map[[2]int]*Preset
}

// Load reads a complete SF2 file from r.
func Load(r io.Reader) (*Bank, error) {
	var riffHeader chunk
	if err := riffHeader.expect(r, [4]byte{'R', 'I', 'F', 'F'}); err != nil {
		return nil, synerr.New("sfbank.Load", synerr.KindBadBankFormat, err)
	}
	body := riffHeader.newReader()

	ok, err := expectLiteral(body, []byte{'s', 'f', 'b', 'k'})
	if err != nil {
		return nil, synerr.New("sfbank.Load", synerr.KindBadBankFormat, err)
	}
	if !ok {
		return nil, synerr.New("sfbank.Load", synerr.KindBadBankFormat, fmt.Errorf("missing sfbk form type"))
	}

	var listInfo chunk
	if err := listInfo.expect(body, [4]byte{'L', 'I', 'S', 'T'}); err != nil {
		return nil, synerr.New("sfbank.Load", synerr.KindBadBankFormat, err)
	}
	info, err := readInfo(listInfo.newReader())
	if err != nil {
		return nil, synerr.New("sfbank.Load", synerr.KindBadBankFormat, err)
	}

	var listSdta chunk
	if err := listSdta.expect(body, [4]byte{'L', 'I', 'S', 'T'}); err != nil {
		return nil, synerr.New("sfbank.Load", synerr.KindBadBankFormat, err)
	}
	sdtaReader := listSdta.newReader()
	ok, err = expectLiteral(sdtaReader, []byte{'s', 'd', 't', 'a'})
	if err != nil {
		return nil, synerr.New("sfbank.Load", synerr.KindBadBankFormat, err)
	}
	if !ok {
		return nil, synerr.New("sfbank.Load", synerr.KindBadBankFormat, fmt.Errorf("missing sdta list type"))
	}
	sd, err := readSampleData(sdtaReader)
	if err != nil {
		return nil, synerr.New("sfbank.Load", synerr.KindBadBankFormat, err)
	}

	var listPdta chunk
	if err := listPdta.expect(body, [4]byte{'L', 'I', 'S', 'T'}); err != nil {
		return nil, synerr.New("sfbank.Load", synerr.KindBadBankFormat, err)
	}
	h, err := readHydra(listPdta.newReader())
	if err != nil {
		return nil, synerr.New("sfbank.Load", synerr.KindBadBankFormat, err)
	}

	samples, err := buildSamples(sd, h.shdr)
	if err != nil {
		return nil, err
	}

	presets, err := h.resolve(samples)
	if err != nil {
		return nil, synerr.New("sfbank.Load", synerr.KindBadBankFormat, err)
	}

	bank := &Bank{
		Info:          info,
		Presets:       presets,
		byBankProgram: make(map[[2]int]*Preset, len(presets)),
	}
	for _, p := range presets {
		bank.byBankProgram[[2]int{p.Bank, p.Program}] = p
	}

	return bank, nil
}

// PresetByID looks up the preset bound to (bank, program), the address
// a MIDI bank-select/program-change pair names.
func (b *Bank) PresetByID(bankNum, program int) (*Preset, error) {
	p, ok := b.byBankProgram[[2]int{bankNum, program}]
	if !ok {
		return nil, synerr.New("sfbank.PresetByID", synerr.KindBadArgument,
			fmt.Errorf("no preset at bank %d program %d", bankNum, program))
	}
	return p, nil
}
