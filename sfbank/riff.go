// Package sfbank loads SoundFont 2.01 (SF2) banks from their RIFF
// container into a resolved Preset/Instrument/Zone/Sample graph, with
// generator and modulator inheritance (SF2.01 SS9.4-9.5) folded in at
// load time so the rest of the engine never has to walk global zones.
package sfbank

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// chunk is one RIFF chunk: a four-character id, a little-endian size and
// that many bytes of payload.
type chunk struct {
	id   [4]byte
	size uint32
	data []byte
}

func (ck *chunk) parse(r io.Reader) error {
	if _, err := io.ReadFull(r, ck.id[:]); err != nil {
		return err
	}
	if err := binary.Read(r, binary.LittleEndian, &ck.size); err != nil {
		return err
	}
	ck.data = make([]byte, ck.size)
	if _, err := io.ReadFull(r, ck.data); err != nil {
		return err
	}
	return nil
}

func (ck *chunk) expect(r io.Reader, id [4]byte) error {
	if err := ck.parse(r); err != nil {
		return err
	}
	if ck.id != id {
		return fmt.Errorf("sfbank: expected chunk id %q, got %q", id, ck.id)
	}
	return nil
}

// sizeOf reports whether the chunk's payload divides evenly into
// recSize-byte records, and how many records it holds.
func (ck *chunk) sizeOf(recSize int) (int, error) {
	if int(ck.size)%recSize != 0 {
		return 0, fmt.Errorf("sfbank: chunk %q size %d is not a multiple of %d", ck.id, ck.size, recSize)
	}
	return int(ck.size) / recSize, nil
}

func (ck *chunk) newReader() io.Reader {
	return bytes.NewReader(ck.data)
}

func expectLiteral(r io.Reader, b []byte) (bool, error) {
	buf := make([]byte, len(b))
	if _, err := io.ReadFull(r, buf); err != nil {
		return false, err
	}
	return bytes.Equal(buf, b), nil
}
