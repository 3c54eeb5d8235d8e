package sfbank

import (
	"fmt"
	"io"

	"github.com/fluidbean/fluidbean/synerr"
)

// sampleData holds the decoded 16-bit (plus optional 24-bit extension)
// sample pool shared by every SampleHeader's Start/End offsets.
type sampleData struct {
	high []int16
	low  []int8
}

func readSampleData(r io.Reader) (*sampleData, error) {
	sd := &sampleData{}

	var smpl chunk
	if err := smpl.expect(r, [4]byte{'s', 'm', 'p', 'l'}); err != nil {
		return nil, err
	}

	sd.high = make([]int16, smpl.size/2)
	for i := range sd.high {
		lo := uint16(smpl.data[i*2])
		hi := uint16(smpl.data[i*2+1])
		sd.high[i] = int16(hi<<8 | lo)
	}

	var sm24 chunk
	if err := sm24.expect(r, [4]byte{'s', 'm', '2', '4'}); err != nil {
		if err == io.EOF {
			return sd, nil
		}
		return sd, nil
	}

	sd.low = make([]int8, sm24.size)
	for i := range sd.low {
		sd.low[i] = int8(sm24.data[i])
	}

	return sd, nil
}

// rejectCompressed returns an error for any sample header whose type bit
// marks it as SF3 Ogg Vorbis compressed data; this bank loader only
// understands uncompressed PCM samples.
func rejectCompressed(sampleType SfSampleType) error {
	if sampleType&sfSampleTypeOggVorbis != 0 {
		return synerr.New("sfbank.Load", synerr.KindUnsupportedBankFeature,
			fmt.Errorf("compressed (SF3) sample data is not supported"))
	}
	return nil
}
