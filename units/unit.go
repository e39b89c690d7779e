package units

import (
	"fmt"
)

type Format uint8

const (
	FormatSWF Format = iota + 1
	FormatClass
	FormatXAP
	FormatDCR
)

func (f Format) String() string {
	switch f {
	case FormatSWF:
		return "swf"
	case FormatClass:
		return "class"
	case FormatXAP:
		return "xap"
	case FormatDCR:
		return "dcr"
	}
	return "unknown"
}

// Unit is one decoded artifact. Implementations are immutable once returned
// and share no memory with the input buffer.
type Unit interface {
	Format() Format
}

type Decoder interface {
	Format() Format
	// Match reports whether data starts with the format's magic.
	Match(data []byte) bool
	Decode(data []byte) (Unit, error)
}

// Decode hands data to the first decoder whose magic matches.
func Decode(data []byte, decoders ...Decoder) (Unit, error) {
	for _, decoder := range decoders {
		if decoder.Match(data) {
			unit, err := decoder.Decode(data)
			if err != nil {
				return nil, err
			}
			return unit, nil
		}
	}
	n := min(len(data), 4)
	return nil, &ParseError{
		Kind:   BadMagic,
		Reason: fmt.Sprintf("unrecognized signature %q", data[:n]),
	}
}
