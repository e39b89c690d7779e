package dcr

import (
	"bytes"
	"encoding/binary"
	"slices"

	"github.com/klauspost/compress/zlib"
	"github.com/reusee/relic/units"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// Decoder reads Director containers. Legacy text defaults to Mac OS Roman.
type Decoder struct {
	Limits  units.Limits
	Charset encoding.Encoding
}

var _ units.Decoder = Decoder{}

func (Decoder) Format() units.Format {
	return units.FormatDCR
}

func (Decoder) Match(data []byte) bool {
	return bytes.HasPrefix(data, []byte("RIFX")) || bytes.HasPrefix(data, []byte("XFIR"))
}

func (d Decoder) Decode(data []byte) (units.Unit, error) {
	return d.DecodeMovie(data)
}

func Decode(data []byte) (*Unit, error) {
	return Decoder{}.DecodeMovie(data)
}

type decoder struct {
	order   binary.ByteOrder
	swapped bool
	charset encoding.Encoding
	budget  int64
	limits  units.Limits
}

// fourCC reads a chunk id; little endian files store ids reversed.
func (d *decoder) fourCC(r *units.Reader) (string, error) {
	b, err := r.ReadBytes(4)
	if err != nil {
		return "", err
	}
	if d.swapped {
		slices.Reverse(b)
	}
	return string(b), nil
}

func (d Decoder) DecodeMovie(data []byte) (*Unit, error) {
	dec := &decoder{
		charset: d.Charset,
		limits:  d.Limits,
		budget:  d.Limits.Max(),
	}
	if dec.charset == nil {
		dec.charset = charmap.Macintosh
	}
	switch {
	case bytes.HasPrefix(data, []byte("RIFX")):
		dec.order = binary.BigEndian
	case bytes.HasPrefix(data, []byte("XFIR")):
		dec.order = binary.LittleEndian
		dec.swapped = true
	case len(data) < 4 && (bytes.HasPrefix([]byte("RIFX"), data) || bytes.HasPrefix([]byte("XFIR"), data)):
		return nil, units.Errorf(units.FormatDCR, units.Truncated, len(data), "short header")
	default:
		return nil, units.Errorf(units.FormatDCR, units.BadMagic, 0, "not a RIFX container")
	}

	r := units.NewReader(units.FormatDCR, dec.order, data)
	unit := &Unit{
		Scripts: make(map[int]*Script),
	}
	if err := r.Skip(4); err != nil {
		return nil, err
	}
	unit.Header.Magic = string(data[:4])
	var err error
	if unit.Header.Length, err = r.ReadUint32(); err != nil {
		return nil, err
	}
	if unit.Header.FormType, err = dec.fourCC(r); err != nil {
		return nil, err
	}
	switch unit.Header.FormType {
	case "MV93", "FGDM":
	default:
		return nil, units.Errorf(units.FormatDCR, units.UnsupportedVersion, 8,
			"form type %q", unit.Header.FormType)
	}
	if int64(unit.Header.Length) > int64(len(data)-8) {
		return nil, units.Errorf(units.FormatDCR, units.Truncated, 4,
			"container length %d exceeds %d available bytes", unit.Header.Length, len(data)-8)
	}
	if unit.Header.Length < 4 {
		return nil, units.Errorf(units.FormatDCR, units.MalformedField, 4,
			"container length %d", unit.Header.Length)
	}
	body, err := r.Sub(int(unit.Header.Length) - 4)
	if err != nil {
		return nil, err
	}

	haveConfig := false
	for body.Remaining() > 0 {
		at := body.Offset()
		id, err := dec.fourCC(body)
		if err != nil {
			return nil, err
		}
		size, err := body.ReadUint32()
		if err != nil {
			return nil, err
		}
		if int64(size) > int64(body.Remaining()) {
			return nil, units.Errorf(units.FormatDCR, units.Truncated, at,
				"chunk %s size %d exceeds remaining %d", id, size, body.Remaining())
		}
		chunk, err := body.Sub(int(size))
		if err != nil {
			return nil, err
		}
		// chunks are padded to even sizes; the final pad byte may be missing
		if size%2 == 1 && body.Remaining() > 0 {
			if err := body.Skip(1); err != nil {
				return nil, err
			}
		}
		if unit.Header.Compressed() {
			if chunk, err = dec.inflate(chunk); err != nil {
				return nil, err
			}
		}

		switch id {
		case "VWCF":
			if haveConfig {
				return nil, units.Errorf(units.FormatDCR, units.MalformedField, at, "duplicate VWCF")
			}
			haveConfig = true
			if err := chunk.Unpack(&unit.Config); err != nil {
				return nil, err
			}
		case "VWSC":
			if unit.Frames != nil {
				return nil, units.Errorf(units.FormatDCR, units.MalformedField, at, "duplicate VWSC")
			}
			if unit.Frames, err = dec.decodeScore(chunk); err != nil {
				return nil, err
			}
		case "Lscr":
			script, err := dec.decodeScript(chunk)
			if err != nil {
				return nil, err
			}
			if _, ok := unit.Scripts[script.Frame]; ok {
				return nil, units.Errorf(units.FormatDCR, units.MalformedField, at,
					"second script for frame %d", script.Frame)
			}
			unit.Scripts[script.Frame] = script
		case "STXT":
			text, err := dec.decodeText(chunk)
			if err != nil {
				return nil, err
			}
			unit.Texts = append(unit.Texts, text)
		default:
			raw, err := chunk.ReadBytes(chunk.Remaining())
			if err != nil {
				return nil, err
			}
			unit.Chunks = append(unit.Chunks, Chunk{
				ID:     id,
				Offset: at,
				Data:   raw,
			})
		}
	}

	if !haveConfig {
		return nil, units.Errorf(units.FormatDCR, units.MalformedField, 12, "missing VWCF")
	}
	unit.Sprites = sprites(unit.Frames)
	for n := range unit.Scripts {
		if n < 1 || (unit.Frames != nil && n > len(unit.Frames)) {
			return nil, units.Errorf(units.FormatDCR, units.MalformedField, 0,
				"script for frame %d outside score of %d frames", n, len(unit.Frames))
		}
	}
	return unit, nil
}

func (d *decoder) inflate(chunk *units.Reader) (*units.Reader, error) {
	at := chunk.Offset()
	raw, err := chunk.ReadBytes(chunk.Remaining())
	if err != nil {
		return nil, err
	}
	zr, err := zlib.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, &units.ParseError{
			Format: units.FormatDCR,
			Kind:   units.MalformedField,
			Offset: at,
			Reason: "zlib header",
			Err:    err,
		}
	}
	defer zr.Close()
	data, err := units.Limits{MaxDecodedBytes: d.budget}.ReadAll(units.FormatDCR, at, zr, -1)
	if err != nil {
		return nil, err
	}
	d.budget -= int64(len(data))
	if d.budget <= 0 {
		return nil, units.Errorf(units.FormatDCR, units.MalformedField, at,
			"decompressed size exceeds limit %d", d.limits.Max())
	}
	return units.NewReaderAt(units.FormatDCR, d.order, data, at), nil
}

type scoreHeader struct {
	FrameCount   uint32
	ChannelCount uint16
}

func (d *decoder) decodeScore(r *units.Reader) ([]Frame, error) {
	var h scoreHeader
	if err := r.Unpack(&h); err != nil {
		return nil, err
	}
	// each frame needs at least its entry count
	if int64(h.FrameCount)*2 > int64(r.Remaining()) {
		return nil, r.Errorf(units.Truncated, "%d frames in %d bytes", h.FrameCount, r.Remaining())
	}
	frames := make([]Frame, 0, h.FrameCount)
	for i := range int(h.FrameCount) {
		count, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		frame := Frame{
			Number: i + 1,
		}
		for range count {
			at := r.Offset()
			var entry SpriteEntry
			if err := r.Unpack(&entry); err != nil {
				return nil, err
			}
			if entry.Channel == 0 || entry.Channel > h.ChannelCount {
				return nil, units.Errorf(units.FormatDCR, units.MalformedField, at,
					"channel %d outside 1..%d", entry.Channel, h.ChannelCount)
			}
			frame.Sprites = append(frame.Sprites, entry)
		}
		frames = append(frames, frame)
	}
	return frames, nil
}

func (d *decoder) decodeScript(r *units.Reader) (*Script, error) {
	frame, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}
	code, err := r.ReadBytes(r.Remaining())
	if err != nil {
		return nil, err
	}
	return &Script{
		Frame:    int(frame),
		Bytecode: code,
	}, nil
}

type textHeader struct {
	HeaderLength uint32
	TextLength   uint32
	FormatLength uint32
}

func (d *decoder) decodeText(r *units.Reader) (Text, error) {
	at := r.Offset()
	var h textHeader
	if err := r.Unpack(&h); err != nil {
		return Text{}, err
	}
	if h.HeaderLength < 12 || int64(h.HeaderLength) > int64(r.Len()) {
		return Text{}, units.Errorf(units.FormatDCR, units.MalformedField, at,
			"text header length %d", h.HeaderLength)
	}
	if err := r.Seek(int(h.HeaderLength)); err != nil {
		return Text{}, err
	}
	text, err := r.ReadBytes(int(min(h.TextLength, 1<<31-1)))
	if err != nil {
		return Text{}, err
	}
	format, err := r.ReadBytes(int(min(h.FormatLength, uint32(r.Remaining()))))
	if err != nil {
		return Text{}, err
	}
	return Text{
		Offset: at,
		Text:   units.DecodeString(d.charset, bytes.ReplaceAll(text, []byte{'\r'}, []byte{'\n'})),
		Format: format,
	}, nil
}

func sprites(frames []Frame) []Sprite {
	byChannel := make(map[uint16]*Sprite)
	for _, frame := range frames {
		for _, entry := range frame.Sprites {
			s, ok := byChannel[entry.Channel]
			if !ok {
				s = &Sprite{
					Channel:    entry.Channel,
					FirstFrame: frame.Number,
				}
				byChannel[entry.Channel] = s
			}
			s.LastFrame = frame.Number
		}
	}
	ret := make([]Sprite, 0, len(byChannel))
	for _, s := range byChannel {
		ret = append(ret, *s)
	}
	slices.SortFunc(ret, func(a, b Sprite) int {
		return int(a.Channel) - int(b.Channel)
	})
	return ret
}
