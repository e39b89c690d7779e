package swf

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"math/bits"

	"github.com/klauspost/compress/zlib"
	"github.com/ulikunitz/xz/lzma"
)

// MovieBuilder writes SWF tag streams. Movies produced here are decoded by
// the same path as files from disk.
type MovieBuilder struct {
	Version   uint8
	FrameSize Rect
	FrameRate float64

	tags   []byte
	frames uint16
}

func NewMovieBuilder(version uint8) *MovieBuilder {
	return &MovieBuilder{
		Version:   version,
		FrameSize: Rect{Xmax: 550 * 20, Ymax: 400 * 20},
		FrameRate: 12,
	}
}

func (b *MovieBuilder) Tag(code TagCode, body []byte) *MovieBuilder {
	if len(body) < 0x3f {
		b.tags = binary.LittleEndian.AppendUint16(b.tags, uint16(code)<<6|uint16(len(body)))
	} else {
		b.tags = binary.LittleEndian.AppendUint16(b.tags, uint16(code)<<6|0x3f)
		b.tags = binary.LittleEndian.AppendUint32(b.tags, uint32(len(body)))
	}
	b.tags = append(b.tags, body...)
	return b
}

func (b *MovieBuilder) ShowFrame() *MovieBuilder {
	b.frames++
	return b.Tag(TagShowFrame, nil)
}

func (b *MovieBuilder) DefineShape(id uint16, bounds Rect) *MovieBuilder {
	body := binary.LittleEndian.AppendUint16(nil, id)
	body = appendRect(body, bounds)
	// empty fill and line style arrays, then an end-of-shape record
	body = append(body, 0, 0, 0, 0)
	return b.Tag(TagDefineShape, body)
}

func (b *MovieBuilder) PlaceObject2(depth, id uint16, m Matrix, name string) *MovieBuilder {
	flags := byte(0x02 | 0x04)
	if name != "" {
		flags |= 0x20
	}
	body := []byte{flags}
	body = binary.LittleEndian.AppendUint16(body, depth)
	body = binary.LittleEndian.AppendUint16(body, id)
	body = appendMatrix(body, m)
	if name != "" {
		body = append(append(body, name...), 0)
	}
	return b.Tag(TagPlaceObject2, body)
}

func (b *MovieBuilder) MoveObject2(depth uint16, m Matrix) *MovieBuilder {
	body := []byte{0x01 | 0x04}
	body = binary.LittleEndian.AppendUint16(body, depth)
	body = appendMatrix(body, m)
	return b.Tag(TagPlaceObject2, body)
}

func (b *MovieBuilder) RemoveObject2(depth uint16) *MovieBuilder {
	return b.Tag(TagRemoveObject2, binary.LittleEndian.AppendUint16(nil, depth))
}

func (b *MovieBuilder) SetBackgroundColor(c RGBA) *MovieBuilder {
	return b.Tag(TagSetBackgroundColor, []byte{c.R, c.G, c.B})
}

func (b *MovieBuilder) FrameLabel(name string) *MovieBuilder {
	return b.Tag(TagFrameLabel, append([]byte(name), 0))
}

func (b *MovieBuilder) DoAction(actions []byte) *MovieBuilder {
	return b.Tag(TagDoAction, actions)
}

// DefineButton2 writes a button whose records use the identity color
// transform. actions maps condition bits to encoded action blocks.
func (b *MovieBuilder) DefineButton2(id uint16, records []ButtonRecord, conds []ButtonCondition, actions [][]byte) *MovieBuilder {
	body := binary.LittleEndian.AppendUint16(nil, id)
	body = append(body, 0)
	offsetAt := len(body)
	body = append(body, 0, 0)
	for _, rec := range records {
		body = append(body, byte(rec.States))
		body = binary.LittleEndian.AppendUint16(body, rec.CharacterID)
		body = binary.LittleEndian.AppendUint16(body, rec.Depth)
		body = appendMatrix(body, rec.Matrix)
		// no add, no mult, 1 bit
		body = append(body, 0x04)
	}
	body = append(body, 0)
	if len(conds) > 0 {
		binary.LittleEndian.PutUint16(body[offsetAt:], uint16(len(body)-offsetAt))
	}
	for i, cond := range conds {
		size := uint16(4 + len(actions[i]))
		if i == len(conds)-1 {
			size = 0
		}
		body = binary.LittleEndian.AppendUint16(body, size)
		body = binary.LittleEndian.AppendUint16(body, uint16(cond))
		body = append(body, actions[i]...)
	}
	return b.Tag(TagDefineButton2, body)
}

func (b *MovieBuilder) DefineSprite(id uint16, inner *MovieBuilder) *MovieBuilder {
	body := binary.LittleEndian.AppendUint16(nil, id)
	body = binary.LittleEndian.AppendUint16(body, inner.frames)
	body = append(body, inner.tags...)
	body = binary.LittleEndian.AppendUint16(body, 0)
	return b.Tag(TagDefineSprite, body)
}

func (b *MovieBuilder) header() []byte {
	var out []byte
	out = appendRect(out, b.FrameSize)
	rate := uint16(math.Round(b.FrameRate * 256))
	out = binary.LittleEndian.AppendUint16(out, rate)
	out = binary.LittleEndian.AppendUint16(out, b.frames)
	out = append(out, b.tags...)
	return binary.LittleEndian.AppendUint16(out, 0)
}

// Bytes returns an uncompressed FWS movie.
func (b *MovieBuilder) Bytes() []byte {
	body := b.header()
	out := append([]byte("FWS"), b.Version)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(body)+8))
	return append(out, body...)
}

// Compressed returns the movie with a CWS or ZWS signature.
func (b *MovieBuilder) Compressed(signature string) ([]byte, error) {
	body := b.header()
	out := append([]byte(signature), b.Version)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(body)+8))
	switch signature {
	case "CWS":
		buf := new(bytes.Buffer)
		w := zlib.NewWriter(buf)
		if _, err := w.Write(body); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return append(out, buf.Bytes()...), nil
	case "ZWS":
		buf := new(bytes.Buffer)
		w, err := lzma.WriterConfig{
			SizeInHeader: true,
			Size:         int64(len(body)),
		}.NewWriter(buf)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(body); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		stream := buf.Bytes()
		out = binary.LittleEndian.AppendUint32(out, uint32(len(stream)-13))
		out = append(out, stream[:5]...)
		return append(out, stream[13:]...), nil
	}
	return nil, fmt.Errorf("unknown signature %q", signature)
}

type bitWriter struct {
	out  []byte
	cur  byte
	used uint
}

func (w *bitWriter) write(v uint32, n uint) {
	for i := int(n) - 1; i >= 0; i-- {
		w.cur = w.cur<<1 | byte(v>>uint(i)&1)
		w.used++
		if w.used == 8 {
			w.out = append(w.out, w.cur)
			w.cur, w.used = 0, 0
		}
	}
}

func (w *bitWriter) flush() []byte {
	if w.used > 0 {
		w.out = append(w.out, w.cur<<(8-w.used))
		w.cur, w.used = 0, 0
	}
	return w.out
}

func signedBits(vs ...int32) uint {
	n := uint(1)
	for _, v := range vs {
		if v < 0 {
			v = ^v
		}
		n = max(n, uint(bits.Len32(uint32(v)))+1)
	}
	return n
}

func appendRect(out []byte, r Rect) []byte {
	n := signedBits(r.Xmin, r.Xmax, r.Ymin, r.Ymax)
	w := &bitWriter{out: out}
	w.write(uint32(n), 5)
	for _, v := range []int32{r.Xmin, r.Xmax, r.Ymin, r.Ymax} {
		w.write(uint32(v), n)
	}
	return w.flush()
}

func fixed(v float64) int32 {
	return int32(math.Round(v * 65536))
}

func appendMatrix(out []byte, m Matrix) []byte {
	w := &bitWriter{out: out}
	if m.ScaleX != 1 || m.ScaleY != 1 {
		sx, sy := fixed(m.ScaleX), fixed(m.ScaleY)
		n := signedBits(sx, sy)
		w.write(1, 1)
		w.write(uint32(n), 5)
		w.write(uint32(sx), n)
		w.write(uint32(sy), n)
	} else {
		w.write(0, 1)
	}
	if m.RotateSkew0 != 0 || m.RotateSkew1 != 0 {
		r0, r1 := fixed(m.RotateSkew0), fixed(m.RotateSkew1)
		n := signedBits(r0, r1)
		w.write(1, 1)
		w.write(uint32(n), 5)
		w.write(uint32(r0), n)
		w.write(uint32(r1), n)
	} else {
		w.write(0, 1)
	}
	n := signedBits(m.TranslateX, m.TranslateY)
	w.write(uint32(n), 5)
	w.write(uint32(m.TranslateX), n)
	w.write(uint32(m.TranslateY), n)
	return w.flush()
}

// ActionWriter encodes action blocks with symbolic branch labels.
type ActionWriter struct {
	buf    []byte
	labels map[string]int
	fixups []actionFixup
}

type actionFixup struct {
	at    int
	end   int
	label string
}

func NewActionWriter() *ActionWriter {
	return &ActionWriter{
		labels: make(map[string]int),
	}
}

func (w *ActionWriter) Op(code ActionCode) *ActionWriter {
	w.buf = append(w.buf, byte(code))
	return w
}

func (w *ActionWriter) long(code ActionCode, payload []byte) *ActionWriter {
	w.buf = append(w.buf, byte(code))
	w.buf = binary.LittleEndian.AppendUint16(w.buf, uint16(len(payload)))
	w.buf = append(w.buf, payload...)
	return w
}

func cstring(s string) []byte {
	return append([]byte(s), 0)
}

func (w *ActionWriter) PushString(ss ...string) *ActionWriter {
	var payload []byte
	for _, s := range ss {
		payload = append(payload, byte(PushString))
		payload = append(payload, cstring(s)...)
	}
	return w.long(ActionPush, payload)
}

func (w *ActionWriter) PushNumber(f float64) *ActionWriter {
	bits := math.Float64bits(f)
	payload := []byte{byte(PushDouble)}
	payload = binary.LittleEndian.AppendUint32(payload, uint32(bits>>32))
	payload = binary.LittleEndian.AppendUint32(payload, uint32(bits))
	return w.long(ActionPush, payload)
}

func (w *ActionWriter) PushInt(i int32) *ActionWriter {
	payload := binary.LittleEndian.AppendUint32([]byte{byte(PushInt)}, uint32(i))
	return w.long(ActionPush, payload)
}

func (w *ActionWriter) PushBool(v bool) *ActionWriter {
	b := byte(0)
	if v {
		b = 1
	}
	return w.long(ActionPush, []byte{byte(PushBool), b})
}

func (w *ActionWriter) PushNull() *ActionWriter {
	return w.long(ActionPush, []byte{byte(PushNull)})
}

func (w *ActionWriter) PushUndefined() *ActionWriter {
	return w.long(ActionPush, []byte{byte(PushUndefined)})
}

func (w *ActionWriter) PushConstant(i uint8) *ActionWriter {
	return w.long(ActionPush, []byte{byte(PushConstant8), i})
}

func (w *ActionWriter) ConstantPool(ss ...string) *ActionWriter {
	payload := binary.LittleEndian.AppendUint16(nil, uint16(len(ss)))
	for _, s := range ss {
		payload = append(payload, cstring(s)...)
	}
	return w.long(ActionConstantPool, payload)
}

func (w *ActionWriter) Label(name string) *ActionWriter {
	w.labels[name] = len(w.buf)
	return w
}

func (w *ActionWriter) branch(code ActionCode, label string) *ActionWriter {
	w.long(code, []byte{0, 0})
	w.fixups = append(w.fixups, actionFixup{
		at:    len(w.buf) - 2,
		end:   len(w.buf),
		label: label,
	})
	return w
}

func (w *ActionWriter) Jump(label string) *ActionWriter {
	return w.branch(ActionJump, label)
}

func (w *ActionWriter) If(label string) *ActionWriter {
	return w.branch(ActionIf, label)
}

func (w *ActionWriter) GotoFrame(frame uint16) *ActionWriter {
	return w.long(ActionGotoFrame, binary.LittleEndian.AppendUint16(nil, frame))
}

func (w *ActionWriter) GotoLabel(label string) *ActionWriter {
	return w.long(ActionGotoLabel, cstring(label))
}

func (w *ActionWriter) GetURL(url, target string) *ActionWriter {
	return w.long(ActionGetURL, append(cstring(url), cstring(target)...))
}

func (w *ActionWriter) SetTarget(target string) *ActionWriter {
	return w.long(ActionSetTarget, cstring(target))
}

// DefineFunction emits the function header followed by body, which must
// not contain an End action.
func (w *ActionWriter) DefineFunction(name string, params []string, body *ActionWriter) *ActionWriter {
	code, err := body.encode()
	if err != nil {
		panic(err)
	}
	payload := cstring(name)
	payload = binary.LittleEndian.AppendUint16(payload, uint16(len(params)))
	for _, p := range params {
		payload = append(payload, cstring(p)...)
	}
	payload = binary.LittleEndian.AppendUint16(payload, uint16(len(code)))
	w.long(ActionDefineFunction, payload)
	w.buf = append(w.buf, code...)
	return w
}

func (w *ActionWriter) encode() ([]byte, error) {
	out := bytes.Clone(w.buf)
	for _, f := range w.fixups {
		target, ok := w.labels[f.label]
		if !ok {
			return nil, fmt.Errorf("undefined label %q", f.label)
		}
		binary.LittleEndian.PutUint16(out[f.at:], uint16(int16(target-f.end)))
	}
	return out, nil
}

// Bytes returns the block terminated by an End action.
func (w *ActionWriter) Bytes() []byte {
	out, err := w.encode()
	if err != nil {
		panic(err)
	}
	return append(out, byte(ActionEnd))
}
