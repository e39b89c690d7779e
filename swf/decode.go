package swf

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"

	"github.com/klauspost/compress/zlib"
	"github.com/reusee/relic/units"
	"github.com/ulikunitz/xz/lzma"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

const (
	MinVersion = 1
	MaxVersion = 50
)

// sprites may not nest in valid files; this only bounds recursion
const maxSpriteNesting = 8

type Header struct {
	Signature  string
	Version    uint8
	FileLength uint32
	FrameSize  Rect
	// frames per second
	FrameRate  float64
	FrameCount uint16
}

func (h Header) Compressed() bool {
	return h.Signature != "FWS"
}

type Unit struct {
	Header Header
	Tags   []Tag
}

var _ units.Unit = new(Unit)

func (u *Unit) Format() units.Format {
	return units.FormatSWF
}

// Decoder decodes SWF movies. The zero value uses the default limits and
// windows-1252 for strings in movies older than version 6.
type Decoder struct {
	Limits  units.Limits
	Charset encoding.Encoding
}

var _ units.Decoder = Decoder{}

func (Decoder) Format() units.Format {
	return units.FormatSWF
}

func (Decoder) Match(data []byte) bool {
	if len(data) < 3 {
		return false
	}
	switch string(data[:3]) {
	case "FWS", "CWS", "ZWS":
		return true
	}
	return false
}

func (d Decoder) Decode(data []byte) (units.Unit, error) {
	return d.DecodeMovie(data)
}

func Decode(data []byte) (*Unit, error) {
	return Decoder{}.DecodeMovie(data)
}

type prefix struct {
	Signature  [3]byte
	Version    uint8
	FileLength uint32
}

type decoder struct {
	version uint8
	charset encoding.Encoding
}

func (d Decoder) DecodeMovie(data []byte) (*Unit, error) {
	r := units.NewReader(units.FormatSWF, binary.LittleEndian, data)
	if len(data) >= 3 && !d.Match(data) {
		return nil, r.Errorf(units.BadMagic, "signature %q", data[:3])
	}
	if len(data) < 3 && !bytes.HasPrefix([]byte("FWS"), data) &&
		!bytes.HasPrefix([]byte("CWS"), data) &&
		!bytes.HasPrefix([]byte("ZWS"), data) {
		return nil, r.Errorf(units.BadMagic, "signature %q", data)
	}
	var p prefix
	if err := r.Unpack(&p); err != nil {
		return nil, err
	}
	if p.Version < MinVersion || p.Version > MaxVersion {
		return nil, units.Errorf(units.FormatSWF, units.UnsupportedVersion, 3,
			"version %d", p.Version)
	}
	if p.FileLength < 8 {
		return nil, units.Errorf(units.FormatSWF, units.MalformedField, 4,
			"file length %d", p.FileLength)
	}

	body, err := d.body(string(p.Signature[:]), p.FileLength, data)
	if err != nil {
		return nil, err
	}
	if p.Signature[0] != 'F' && int64(len(body)) < int64(p.FileLength)-8 {
		return nil, units.Errorf(units.FormatSWF, units.Truncated, 8+len(body),
			"decompressed %d bytes, header declares %d", len(body), p.FileLength-8)
	}

	unit := &Unit{
		Header: Header{
			Signature:  string(p.Signature[:]),
			Version:    p.Version,
			FileLength: p.FileLength,
		},
	}
	br := units.NewReaderAt(units.FormatSWF, binary.LittleEndian, body, 8)
	if unit.Header.FrameSize, err = readRect(br); err != nil {
		return nil, err
	}
	rate, err := br.ReadUint16()
	if err != nil {
		return nil, err
	}
	unit.Header.FrameRate = float64(rate) / 256
	if unit.Header.FrameCount, err = br.ReadUint16(); err != nil {
		return nil, err
	}

	dec := &decoder{
		version: p.Version,
		charset: d.Charset,
	}
	if dec.charset == nil {
		dec.charset = charmap.Windows1252
	}
	if unit.Tags, err = dec.decodeTags(br, 0); err != nil {
		return nil, err
	}
	return unit, nil
}

// DecodeActions decodes a bare action block as found in a DoAction tag of
// a movie with the given version.
func (d Decoder) DecodeActions(version uint8, data []byte) (Actions, error) {
	dec := &decoder{
		version: version,
		charset: d.Charset,
	}
	if dec.charset == nil {
		dec.charset = charmap.Windows1252
	}
	return dec.decodeActions(units.NewReader(units.FormatSWF, binary.LittleEndian, data))
}

// body returns the bytes after the 8-byte prefix, decompressed.
func (d Decoder) body(signature string, fileLength uint32, data []byte) ([]byte, error) {
	expected := int64(fileLength) - 8
	switch signature {

	case "CWS":
		zr, err := zlib.NewReader(bytes.NewReader(data[8:]))
		if err != nil {
			return nil, &units.ParseError{
				Format: units.FormatSWF,
				Kind:   kindOf(err),
				Offset: 8,
				Reason: "zlib header",
				Err:    err,
			}
		}
		defer zr.Close()
		return d.Limits.ReadAll(units.FormatSWF, 8, zr, expected)

	case "ZWS":
		// u32 compressed length, then the 5 LZMA property bytes
		if len(data) < 17 {
			return nil, units.Errorf(units.FormatSWF, units.Truncated, len(data),
				"lzma header needs 17 bytes")
		}
		if expected > d.Limits.Max() {
			return nil, units.Errorf(units.FormatSWF, units.MalformedField, 4,
				"declared size %d exceeds limit %d", expected, d.Limits.Max())
		}
		header := make([]byte, 13)
		copy(header, data[12:17])
		// a window larger than the output is never referenced
		if dict := binary.LittleEndian.Uint32(header[1:]); int64(dict) > expected {
			binary.LittleEndian.PutUint32(header[1:], uint32(max(expected, 4096)))
		}
		binary.LittleEndian.PutUint64(header[5:], uint64(expected))
		lr, err := lzma.NewReader(io.MultiReader(
			bytes.NewReader(header),
			bytes.NewReader(data[17:]),
		))
		if err != nil {
			return nil, &units.ParseError{
				Format: units.FormatSWF,
				Kind:   kindOf(err),
				Offset: 12,
				Reason: "lzma header",
				Err:    err,
			}
		}
		return d.Limits.ReadAll(units.FormatSWF, 17, lr, expected)
	}

	return bytes.Clone(data[8:]), nil
}

func kindOf(err error) units.ErrorKind {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return units.Truncated
	}
	return units.MalformedField
}

func (d *decoder) readString(r *units.Reader) (string, error) {
	b, err := r.ReadCString()
	if err != nil {
		return "", err
	}
	if d.version < 6 {
		return units.DecodeString(d.charset, b), nil
	}
	return string(b), nil
}

// decodeTags reads tags until End or the end of r. A missing End tag is
// tolerated; a tag body running past the data is not.
func (d *decoder) decodeTags(r *units.Reader, nesting int) ([]Tag, error) {
	var tags []Tag
	for r.Remaining() > 0 {
		at := r.Offset()
		v, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		code := TagCode(v >> 6)
		length := int(v & 0x3f)
		if length == 0x3f {
			l, err := r.ReadUint32()
			if err != nil {
				return nil, err
			}
			if l > math.MaxInt32 {
				return nil, units.Errorf(units.FormatSWF, units.MalformedField, at,
					"tag %v length %d", code, l)
			}
			length = int(l)
		}
		if length > r.Remaining() {
			return nil, units.Errorf(units.FormatSWF, units.Truncated, at,
				"tag %v length %d exceeds remaining %d", code, length, r.Remaining())
		}
		body, err := r.Sub(length)
		if err != nil {
			return nil, err
		}
		tag, err := d.decodeTag(code, body, nesting)
		var u unsupported
		if errors.As(err, &u) {
			if err := body.Seek(0); err != nil {
				return nil, err
			}
			raw, err := body.ReadBytes(body.Len())
			if err != nil {
				return nil, err
			}
			tag = &UnknownTag{
				TagCode: code,
				Raw:     raw,
				Reason:  string(u),
			}
		} else if err != nil {
			return nil, err
		}
		tags = append(tags, tag)
		if code == TagEnd {
			break
		}
	}
	return tags, nil
}

type unsupported string

func (u unsupported) Error() string {
	return string(u)
}

func (d *decoder) decodeTag(code TagCode, r *units.Reader, nesting int) (Tag, error) {
	switch code {

	case TagEnd:
		return End{}, nil

	case TagShowFrame:
		return ShowFrame{}, nil

	case TagDefineShape, TagDefineShape2, TagDefineShape3, TagDefineShape4:
		tag := &DefineShape{
			Version: map[TagCode]int{
				TagDefineShape:  1,
				TagDefineShape2: 2,
				TagDefineShape3: 3,
				TagDefineShape4: 4,
			}[code],
		}
		var err error
		if tag.ID, err = r.ReadUint16(); err != nil {
			return nil, err
		}
		if tag.Bounds, err = readRect(r); err != nil {
			return nil, err
		}
		if tag.Records, err = r.ReadBytes(r.Remaining()); err != nil {
			return nil, err
		}
		return tag, nil

	case TagPlaceObject:
		tag := new(PlaceObject)
		var err error
		if tag.CharacterID, err = r.ReadUint16(); err != nil {
			return nil, err
		}
		if tag.Depth, err = r.ReadUint16(); err != nil {
			return nil, err
		}
		if tag.Matrix, err = readMatrix(r); err != nil {
			return nil, err
		}
		if r.Remaining() > 0 {
			cx, err := readColorTransform(r, false)
			if err != nil {
				return nil, err
			}
			tag.ColorTransform = &cx
		}
		return tag, nil

	case TagPlaceObject2:
		return d.decodePlaceObject2(r)

	case TagRemoveObject:
		tag := new(RemoveObject)
		var err error
		if tag.CharacterID, err = r.ReadUint16(); err != nil {
			return nil, err
		}
		if tag.Depth, err = r.ReadUint16(); err != nil {
			return nil, err
		}
		return tag, nil

	case TagRemoveObject2:
		depth, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		return &RemoveObject2{Depth: depth}, nil

	case TagSetBackgroundColor:
		color, err := readRGB(r)
		if err != nil {
			return nil, err
		}
		return &SetBackgroundColor{Color: color}, nil

	case TagDoAction:
		actions, err := d.decodeActions(r)
		if err != nil {
			return nil, err
		}
		return &DoAction{Actions: actions}, nil

	case TagDefineButton:
		return d.decodeButton(r)

	case TagDefineButton2:
		return d.decodeButton2(r)

	case TagDefineSprite:
		if nesting >= maxSpriteNesting {
			return nil, r.Errorf(units.MalformedField, "sprites nested %d deep", nesting)
		}
		tag := new(DefineSprite)
		var err error
		if tag.ID, err = r.ReadUint16(); err != nil {
			return nil, err
		}
		if tag.FrameCount, err = r.ReadUint16(); err != nil {
			return nil, err
		}
		if tag.Tags, err = d.decodeTags(r, nesting+1); err != nil {
			return nil, err
		}
		return tag, nil

	case TagFrameLabel:
		tag := new(FrameLabel)
		var err error
		if tag.Name, err = d.readString(r); err != nil {
			return nil, err
		}
		if r.Remaining() > 0 {
			anchor, err := r.ReadUint8()
			if err != nil {
				return nil, err
			}
			tag.Anchor = anchor == 1
		}
		return tag, nil

	case TagFileAttributes:
		flags, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		return &FileAttributes{Flags: flags}, nil
	}

	return nil, unsupported("")
}

func (d *decoder) decodePlaceObject2(r *units.Reader) (Tag, error) {
	flags, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	tag := &PlaceObject2{
		Move:         flags&0x01 != 0,
		HasCharacter: flags&0x02 != 0,
		HasMatrix:    flags&0x04 != 0,
		HasRatio:     flags&0x10 != 0,
		Matrix:       Identity,
	}
	if tag.Depth, err = r.ReadUint16(); err != nil {
		return nil, err
	}
	if tag.HasCharacter {
		if tag.CharacterID, err = r.ReadUint16(); err != nil {
			return nil, err
		}
	}
	if tag.HasMatrix {
		if tag.Matrix, err = readMatrix(r); err != nil {
			return nil, err
		}
	}
	if flags&0x08 != 0 {
		cx, err := readColorTransform(r, true)
		if err != nil {
			return nil, err
		}
		tag.ColorTransform = &cx
	}
	if tag.HasRatio {
		if tag.Ratio, err = r.ReadUint16(); err != nil {
			return nil, err
		}
	}
	if flags&0x20 != 0 {
		if tag.Name, err = d.readString(r); err != nil {
			return nil, err
		}
	}
	if flags&0x40 != 0 {
		if tag.ClipDepth, err = r.ReadUint16(); err != nil {
			return nil, err
		}
	}
	if flags&0x80 != 0 {
		if tag.ClipActions, err = r.ReadBytes(r.Remaining()); err != nil {
			return nil, err
		}
	}
	return tag, nil
}

func (d *decoder) decodeButtonRecords(r *units.Reader, version int) ([]ButtonRecord, error) {
	var records []ButtonRecord
	for {
		flags, err := r.ReadUint8()
		if err != nil {
			return nil, err
		}
		if flags == 0 {
			return records, nil
		}
		rec := ButtonRecord{
			States: ButtonStates(flags & 0x0f),
		}
		if rec.CharacterID, err = r.ReadUint16(); err != nil {
			return nil, err
		}
		if rec.Depth, err = r.ReadUint16(); err != nil {
			return nil, err
		}
		if rec.Matrix, err = readMatrix(r); err != nil {
			return nil, err
		}
		if version == 2 {
			cx, err := readColorTransform(r, true)
			if err != nil {
				return nil, err
			}
			rec.ColorTransform = &cx
			if flags&0x10 != 0 {
				return nil, unsupported("button filter list")
			}
			if flags&0x20 != 0 {
				if rec.BlendMode, err = r.ReadUint8(); err != nil {
					return nil, err
				}
			}
		}
		records = append(records, rec)
	}
}

func (d *decoder) decodeButton(r *units.Reader) (Tag, error) {
	tag := &DefineButton{
		Version: 1,
	}
	var err error
	if tag.ID, err = r.ReadUint16(); err != nil {
		return nil, err
	}
	if tag.Records, err = d.decodeButtonRecords(r, 1); err != nil {
		return nil, err
	}
	actions, err := d.decodeActions(r)
	if err != nil {
		return nil, err
	}
	tag.Actions = []ButtonCondAction{
		{
			Conditions: CondOverDownToOverUp,
			Actions:    actions,
		},
	}
	return tag, nil
}

func (d *decoder) decodeButton2(r *units.Reader) (Tag, error) {
	tag := &DefineButton{
		Version: 2,
	}
	var err error
	if tag.ID, err = r.ReadUint16(); err != nil {
		return nil, err
	}
	flags, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	tag.TrackAsMenu = flags&0x01 != 0
	actionOffset, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}
	if tag.Records, err = d.decodeButtonRecords(r, 2); err != nil {
		return nil, err
	}
	if actionOffset == 0 {
		return tag, nil
	}
	for r.Remaining() > 0 {
		at := r.Offset()
		size, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		cond, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		body := r
		if size != 0 {
			if size < 4 {
				return nil, units.Errorf(units.FormatSWF, units.MalformedField, at,
					"button action size %d", size)
			}
			if body, err = r.Sub(int(size) - 4); err != nil {
				return nil, err
			}
		}
		actions, err := d.decodeActions(body)
		if err != nil {
			return nil, err
		}
		tag.Actions = append(tag.Actions, ButtonCondAction{
			Conditions: ButtonCondition(cond),
			Actions:    actions,
		})
		if size == 0 {
			break
		}
	}
	return tag, nil
}
