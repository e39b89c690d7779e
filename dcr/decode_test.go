package dcr

import (
	"bytes"
	"encoding/binary"
	"errors"
	"reflect"
	"slices"
	"testing"

	"github.com/klauspost/compress/zlib"
	"github.com/reusee/relic/units"
)

type byteOrder interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

type movieBuilder struct {
	order      byteOrder
	compressed bool
	chunks     []byte
}

func (b *movieBuilder) id(s string) []byte {
	id := []byte(s)
	if b.order == binary.LittleEndian {
		slices.Reverse(id)
	}
	return id
}

func (b *movieBuilder) chunk(t testing.TB, id string, data []byte) *movieBuilder {
	if b.compressed {
		buf := new(bytes.Buffer)
		w := zlib.NewWriter(buf)
		if _, err := w.Write(data); err != nil {
			t.Fatal(err)
		}
		if err := w.Close(); err != nil {
			t.Fatal(err)
		}
		data = buf.Bytes()
	}
	b.chunks = append(b.chunks, b.id(id)...)
	b.chunks = b.order.AppendUint32(b.chunks, uint32(len(data)))
	b.chunks = append(b.chunks, data...)
	if len(data)%2 == 1 {
		b.chunks = append(b.chunks, 0)
	}
	return b
}

func (b *movieBuilder) bytes() []byte {
	out := b.id("RIFX")
	out = b.order.AppendUint32(out, uint32(len(b.chunks)+4))
	form := "MV93"
	if b.compressed {
		form = "FGDM"
	}
	out = append(out, b.id(form)...)
	return append(out, b.chunks...)
}

func sampleMovie(t testing.TB, order byteOrder, compressed bool) []byte {
	b := &movieBuilder{
		order:      order,
		compressed: compressed,
	}
	u16 := func(out []byte, vs ...int) []byte {
		for _, v := range vs {
			out = order.AppendUint16(out, uint16(v))
		}
		return out
	}

	config := u16(nil, 18, 0x4c7, 0, 0, 480, 640, 1, 10, 15)
	b.chunk(t, "VWCF", config)

	score := order.AppendUint32(nil, 3)
	score = u16(score, 4)
	// frame 1: channel 1
	score = u16(score, 1)
	score = u16(score, 1, 5, 10, 20, 100, 50)
	score = append(score, 8, 0)
	// frame 2: channels 1 and 3
	score = u16(score, 2)
	score = u16(score, 1, 5, 12, 20, 100, 50)
	score = append(score, 8, 0)
	score = u16(score, 3, 6, 0, 0, 10, 10)
	score = append(score, 0, 0)
	// frame 3: empty
	score = u16(score, 0)
	b.chunk(t, "VWSC", score)

	b.chunk(t, "Lscr", append(u16(nil, 2), 0x41, 0x42, 0x43))

	text := order.AppendUint32(nil, 12)
	text = order.AppendUint32(text, 6)
	text = order.AppendUint32(text, 2)
	text = append(text, 'c', 'a', 'f', 0x8e, '\r', '!')
	text = append(text, 9, 9)
	b.chunk(t, "STXT", text)

	b.chunk(t, "CASt", []byte{1, 2, 3})
	return b.bytes()
}

func TestDecodeMovie(t *testing.T) {
	for _, c := range []struct {
		name       string
		order      byteOrder
		compressed bool
	}{
		{"rifx", binary.BigEndian, false},
		{"xfir", binary.LittleEndian, false},
		{"fgdm", binary.BigEndian, true},
	} {
		t.Run(c.name, func(t *testing.T) {
			data := sampleMovie(t, c.order, c.compressed)
			unit, err := Decode(data)
			if err != nil {
				t.Fatal(err)
			}
			if unit.Header.Compressed() != c.compressed {
				t.Fatalf("got %+v", unit.Header)
			}
			if unit.Config.StageWidth() != 640 || unit.Config.StageHeight() != 480 || unit.Config.FrameRate != 15 {
				t.Fatalf("got %+v", unit.Config)
			}
			if len(unit.Frames) != 3 {
				t.Fatalf("got %d frames", len(unit.Frames))
			}
			f2, ok := unit.Frame(2)
			if !ok || len(f2.Sprites) != 2 || f2.Sprites[0].X != 12 || f2.Sprites[0].Ink != 8 {
				t.Fatalf("got %+v", f2)
			}
			if _, ok := unit.Frame(4); ok {
				t.Fatal("frame 4 does not exist")
			}
			want := []Sprite{
				{Channel: 1, FirstFrame: 1, LastFrame: 2},
				{Channel: 3, FirstFrame: 2, LastFrame: 2},
			}
			if !reflect.DeepEqual(unit.Sprites, want) {
				t.Fatalf("got %+v", unit.Sprites)
			}
			if frames := unit.ScriptFrames(); !reflect.DeepEqual(frames, []int{2}) {
				t.Fatalf("got %v", frames)
			}
			if string(unit.Scripts[2].Bytecode) != "ABC" {
				t.Fatalf("got %q", unit.Scripts[2].Bytecode)
			}
			if len(unit.Texts) != 1 || unit.Texts[0].Text != "café\n!" {
				t.Fatalf("got %+v", unit.Texts)
			}
			if len(unit.Chunks) != 1 || unit.Chunks[0].ID != "CASt" {
				t.Fatalf("got %+v", unit.Chunks)
			}

			again, err := Decode(data)
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(unit, again) {
				t.Fatal("not idempotent")
			}
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	data := sampleMovie(t, binary.BigEndian, false)

	if _, err := Decode(append([]byte("RIFF"), data[4:]...)); !errors.Is(err, units.ErrBadMagic) {
		t.Fatalf("got %v", err)
	}

	form := append([]byte(nil), data...)
	copy(form[8:], "MV85")
	if _, err := Decode(form); !errors.Is(err, units.ErrUnsupportedVersion) {
		t.Fatalf("got %v", err)
	}

	for n := 0; n < len(data); n++ {
		_, err := Decode(data[:n])
		var pe *units.ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("%d: got %v", n, err)
		}
	}

	// channel outside the declared count
	b := &movieBuilder{order: binary.BigEndian}
	b.chunk(t, "VWCF", make([]byte, 18))
	score := binary.BigEndian.AppendUint32(nil, 1)
	score = binary.BigEndian.AppendUint16(score, 1)
	score = binary.BigEndian.AppendUint16(score, 1)
	score = append(score, 0, 9)
	score = append(score, make([]byte, 12)...)
	b.chunk(t, "VWSC", score)
	if _, err := Decode(b.bytes()); !errors.Is(err, units.ErrMalformedField) {
		t.Fatalf("got %v", err)
	}
}

func FuzzDecode(f *testing.F) {
	f.Add(sampleMovie(f, binary.BigEndian, false))
	f.Add(sampleMovie(f, binary.LittleEndian, false))
	f.Add(sampleMovie(f, binary.BigEndian, true))
	f.Fuzz(func(t *testing.T, data []byte) {
		_, err := Decode(data)
		if err == nil {
			return
		}
		var pe *units.ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("got %T %v", err, err)
		}
	})
}
