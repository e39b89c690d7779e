package units

import (
	"encoding/binary"
	"math"

	"github.com/go-restruct/restruct"
)

// Reader is a bounds-checked cursor over an input buffer. Every failed read
// is a Truncated ParseError carrying the absolute offset.
type Reader struct {
	format Format
	order  binary.ByteOrder
	data   []byte
	pos    int
	base   int
}

func NewReader(format Format, order binary.ByteOrder, data []byte) *Reader {
	return &Reader{
		format: format,
		order:  order,
		data:   data,
	}
}

// NewReaderAt is NewReader for data that begins at base in the original input.
func NewReaderAt(format Format, order binary.ByteOrder, data []byte, base int) *Reader {
	r := NewReader(format, order, data)
	r.base = base
	return r
}

func (r *Reader) Format() Format { return r.format }

func (r *Reader) Order() binary.ByteOrder { return r.order }

// Offset is the absolute position in the original input.
func (r *Reader) Offset() int { return r.base + r.pos }

func (r *Reader) Position() int { return r.pos }

func (r *Reader) Remaining() int { return len(r.data) - r.pos }

func (r *Reader) Len() int { return len(r.data) }

func (r *Reader) Seek(pos int) error {
	if pos < 0 || pos > len(r.data) {
		return r.Errorf(Truncated, "seek to %d outside %d bytes", pos, len(r.data))
	}
	r.pos = pos
	return nil
}

func (r *Reader) Errorf(kind ErrorKind, reason string, args ...any) *ParseError {
	return Errorf(r.format, kind, r.Offset(), reason, args...)
}

func (r *Reader) need(n int) error {
	if n < 0 {
		return r.Errorf(MalformedField, "negative length %d", n)
	}
	if n > len(r.data)-r.pos {
		return r.Errorf(Truncated, "need %d bytes, have %d", n, len(r.data)-r.pos)
	}
	return nil
}

func (r *Reader) ReadByte() (byte, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *Reader) ReadUint8() (uint8, error) {
	return r.ReadByte()
}

func (r *Reader) ReadInt8() (int8, error) {
	b, err := r.ReadByte()
	return int8(b), err
}

func (r *Reader) ReadUint16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := r.order.Uint16(r.data[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *Reader) ReadInt16() (int16, error) {
	v, err := r.ReadUint16()
	return int16(v), err
}

func (r *Reader) ReadUint32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := r.order.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *Reader) ReadInt32() (int32, error) {
	v, err := r.ReadUint32()
	return int32(v), err
}

func (r *Reader) ReadUint64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := r.order.Uint64(r.data[r.pos:])
	r.pos += 8
	return v, nil
}

func (r *Reader) ReadFloat32() (float32, error) {
	v, err := r.ReadUint32()
	return math.Float32frombits(v), err
}

func (r *Reader) ReadFloat64() (float64, error) {
	v, err := r.ReadUint64()
	return math.Float64frombits(v), err
}

// ReadBytes returns a copy; units never alias the caller's buffer.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, r.data[r.pos:r.pos+n])
	r.pos += n
	return out, nil
}

func (r *Reader) Skip(n int) error {
	if err := r.need(n); err != nil {
		return err
	}
	r.pos += n
	return nil
}

// Sub consumes n bytes and returns a reader confined to them.
func (r *Reader) Sub(n int) (*Reader, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	sub := &Reader{
		format: r.format,
		order:  r.order,
		data:   r.data[r.pos : r.pos+n],
		base:   r.base + r.pos,
	}
	r.pos += n
	return sub, nil
}

// ReadCString reads a NUL-terminated string, without the terminator.
func (r *Reader) ReadCString() ([]byte, error) {
	for i := r.pos; i < len(r.data); i++ {
		if r.data[i] == 0 {
			out := make([]byte, i-r.pos)
			copy(out, r.data[r.pos:i])
			r.pos = i + 1
			return out, nil
		}
	}
	return nil, r.Errorf(Truncated, "unterminated string")
}

// Unpack decodes a fixed-layout struct with restruct.
func (r *Reader) Unpack(v any) error {
	size, err := restruct.SizeOf(v)
	if err != nil {
		return r.Errorf(MalformedField, "layout: %v", err)
	}
	if err := r.need(size); err != nil {
		return err
	}
	if err := restruct.Unpack(r.data[r.pos:r.pos+size], r.order, v); err != nil {
		return r.Errorf(MalformedField, "unpack: %v", err)
	}
	r.pos += size
	return nil
}
