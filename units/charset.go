package units

import (
	"fmt"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
)

const DefaultLegacyCharset = "windows-1252"

// Charset resolves a WHATWG label; "macintosh" maps to Mac OS Roman, which
// Director movies authored on classic Mac OS use.
func Charset(name string) (encoding.Encoding, error) {
	switch name {
	case "":
		return charmap.Windows1252, nil
	case "macintosh", "mac", "macroman":
		return charmap.Macintosh, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("charset %q: %w", name, err)
	}
	return enc, nil
}

// DecodeString converts legacy-encoded bytes; undecodable input falls back
// to the raw bytes so no string is ever dropped.
func DecodeString(enc encoding.Encoding, data []byte) string {
	if enc == nil {
		return string(data)
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return string(data)
	}
	return string(out)
}
