package sfbank

import (
	"fmt"
	"io"
)

// Info holds the descriptive metadata from a bank's INFO list.
type Info struct {
	VersionMajor, VersionMinor uint16
	Engine                     string
	Name                       string
	ROM                        string
	ROMVerMajor, ROMVerMinor   uint16
	CreationDate               string
	Engineers                  string
	Product                    string
	Copyright                  string
	Comments                   string
	Software                   string
}

func (info Info) String() string {
	return fmt.Sprintf("Info{Version: %d.%d, Name: %q, Engine: %q}",
		info.VersionMajor, info.VersionMinor, info.Name, info.Engine)
}

func readInfo(r io.Reader) (*Info, error) {
	info := &Info{}

	ok, err := expectLiteral(r, []byte{'I', 'N', 'F', 'O'})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("sfbank: expected \"INFO\"")
	}

	seen := make(map[[4]byte]bool)
	for _, id := range [][4]byte{
		{'i', 'f', 'i', 'l'}, {'i', 's', 'n', 'g'}, {'I', 'N', 'A', 'M'},
		{'i', 'r', 'o', 'm'}, {'i', 'v', 'e', 'r'}, {'I', 'C', 'R', 'D'},
		{'I', 'E', 'N', 'G'}, {'I', 'P', 'R', 'D'}, {'I', 'C', 'O', 'P'},
		{'I', 'C', 'M', 'T'}, {'I', 'S', 'F', 'T'},
	} {
		seen[id] = false
	}

	for {
		var ck chunk
		if err := ck.parse(r); err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}

		if _, known := seen[ck.id]; !known {
			continue
		}
		if seen[ck.id] {
			return nil, fmt.Errorf("sfbank: duplicate INFO chunk %q", ck.id)
		}
		seen[ck.id] = true

		switch ck.id {
		case [4]byte{'i', 'f', 'i', 'l'}:
			if ck.size != 4 {
				return nil, fmt.Errorf("sfbank: ifil subchunk must contain 4 bytes")
			}
			info.VersionMajor = uint16(ck.data[1])<<8 | uint16(ck.data[0])
			info.VersionMinor = uint16(ck.data[3])<<8 | uint16(ck.data[2])
		case [4]byte{'i', 's', 'n', 'g'}:
			if ck.size > 256 {
				return nil, fmt.Errorf("sfbank: isng subchunk must contain 256 or fewer bytes")
			}
			info.Engine = trimNUL(ck.data)
		case [4]byte{'I', 'N', 'A', 'M'}:
			if ck.size > 256 {
				return nil, fmt.Errorf("sfbank: INAM subchunk must contain 256 or fewer bytes")
			}
			info.Name = trimNUL(ck.data)
		case [4]byte{'i', 'r', 'o', 'm'}:
			if ck.size > 256 {
				return nil, fmt.Errorf("sfbank: irom subchunk must contain 256 or fewer bytes")
			}
			info.ROM = trimNUL(ck.data)
		case [4]byte{'i', 'v', 'e', 'r'}:
			if ck.size != 4 {
				return nil, fmt.Errorf("sfbank: iver subchunk must contain 4 bytes")
			}
			info.ROMVerMajor = uint16(ck.data[1])<<8 | uint16(ck.data[0])
			info.ROMVerMinor = uint16(ck.data[3])<<8 | uint16(ck.data[2])
		case [4]byte{'I', 'C', 'R', 'D'}:
			info.CreationDate = trimNUL(ck.data)
		case [4]byte{'I', 'E', 'N', 'G'}:
			info.Engineers = trimNUL(ck.data)
		case [4]byte{'I', 'P', 'R', 'D'}:
			info.Product = trimNUL(ck.data)
		case [4]byte{'I', 'C', 'O', 'P'}:
			info.Copyright = trimNUL(ck.data)
		case [4]byte{'I', 'C', 'M', 'T'}:
			if ck.size > 65536 {
				return nil, fmt.Errorf("sfbank: ICMT subchunk must contain 65536 or fewer bytes")
			}
			info.Comments = trimNUL(ck.data)
		case [4]byte{'I', 'S', 'F', 'T'}:
			info.Software = trimNUL(ck.data)
		}
	}

	if !seen[[4]byte{'i', 'f', 'i', 'l'}] {
		return nil, fmt.Errorf("sfbank: ifil chunk is missing")
	}
	if !seen[[4]byte{'i', 's', 'n', 'g'}] {
		info.Engine = "EMU8000"
	}

	return info, nil
}

func trimNUL(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
