package classfile

import (
	"encoding/binary"
	"errors"
	"reflect"
	"testing"

	"github.com/reusee/relic/units"
)

func sampleClass(t testing.TB) []byte {
	b := NewBuilder("demo/Counter", "java/lang/Object").
		Implements("java/lang/Runnable").
		SourceFile("Counter.java")
	b.Field(AccPrivate, "count", "I")
	b.ConstField(AccPublic|AccFinal, "LIMIT", "J", b.Long(1<<40))
	b.Method(AccPublic, "<init>", "()V").
		Line(3).
		Local(Aload, 0).
		Invoke(Invokespecial, "java/lang/Object", "<init>", "()V").
		Op(Return).
		Var(0, "this", "Ldemo/Counter;")
	b.Method(AccPublic|AccStatic, "div", "(II)I").
		Label("start").
		Line(7).
		Local(Iload, 0).
		Local(Iload, 1).
		Op(Idiv).
		Label("end").
		Op(Ireturn).
		Label("handler").
		Line(9).
		Op(Pop).
		Push(-1).
		Op(Ireturn).
		Catch("start", "end", "handler", "java/lang/ArithmeticException")
	b.Method(AccPublic|AccAbstract, "run", "()V")
	data, err := b.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestDecode(t *testing.T) {
	data := sampleClass(t)
	unit, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if unit.Name != "demo/Counter" || unit.SuperName != "java/lang/Object" {
		t.Fatalf("got %s %s", unit.Name, unit.SuperName)
	}
	if !reflect.DeepEqual(unit.InterfaceSet, []string{"java/lang/Runnable"}) {
		t.Fatalf("got %v", unit.InterfaceSet)
	}
	if unit.SourceFile != "Counter.java" {
		t.Fatalf("got %q", unit.SourceFile)
	}
	if unit.Major != 52 {
		t.Fatalf("got %d", unit.Major)
	}

	limit := unit.Field("LIMIT")
	if limit == nil || limit.ConstantValue == 0 {
		t.Fatal("expecting LIMIT")
	}
	c, err := unit.Pool.Get(limit.ConstantValue)
	if err != nil || c.Long != 1<<40 {
		t.Fatalf("got %+v %v", c, err)
	}
	// the slot after a long is unusable
	if _, err := unit.Pool.Get(limit.ConstantValue + 1); err == nil {
		t.Fatal("expecting error")
	}

	div := unit.Method("div", "")
	if div == nil || div.Code == nil {
		t.Fatal("expecting div")
	}
	if len(div.Code.ExceptionTable) != 1 {
		t.Fatalf("got %+v", div.Code.ExceptionTable)
	}
	entry := div.Code.ExceptionTable[0]
	if entry.StartPC != 0 || entry.EndPC != 3 || entry.HandlerPC != 4 {
		t.Fatalf("got %+v", entry)
	}
	if name, err := unit.Pool.ClassName(entry.CatchType); err != nil || name != "java/lang/ArithmeticException" {
		t.Fatalf("got %s %v", name, err)
	}
	if line := div.Code.Line(5); line != 9 {
		t.Fatalf("got %d", line)
	}
	if !div.Code.LineStart(4) || div.Code.LineStart(1) {
		t.Fatal("bad line starts")
	}

	init := unit.Method("<init>", "()V")
	if name, ok := init.Code.LocalName(0, 0); !ok || name != "this" {
		t.Fatalf("got %q", name)
	}
	if ref, err := unit.Pool.MemberRef(Handle(binary.BigEndian.Uint16(init.Code.Bytecode[2:]))); err != nil ||
		ref.String() != "java/lang/Object.<init>()V" {
		t.Fatalf("got %v %v", ref, err)
	}

	run := unit.Method("run", "()V")
	if run == nil || run.Code != nil || !run.IsAbstract() {
		t.Fatal("bad abstract method")
	}

	// idempotent
	again, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(unit, again) {
		t.Fatal("decode is not deterministic")
	}

	// no aliasing of the input
	for i := range data {
		data[i] = 0
	}
	if unit.Method("div", "").Code.Bytecode[0] != byte(Iload0) {
		t.Fatal("unit aliases input")
	}
}

func TestDecodeErrors(t *testing.T) {
	data := sampleClass(t)

	t.Run("bad magic", func(t *testing.T) {
		bad := append([]byte(nil), data...)
		bad[1] = 0
		if _, err := Decode(bad); !errors.Is(err, units.ErrBadMagic) {
			t.Fatalf("got %v", err)
		}
		if _, err := Decode([]byte("PK")); !errors.Is(err, units.ErrBadMagic) {
			t.Fatalf("got %v", err)
		}
	})

	t.Run("version", func(t *testing.T) {
		for _, major := range []uint16{44, 70} {
			bad := append([]byte(nil), data...)
			binary.BigEndian.PutUint16(bad[6:], major)
			_, err := Decode(bad)
			if !errors.Is(err, units.ErrUnsupportedVersion) {
				t.Fatalf("got %v", err)
			}
		}
	})

	t.Run("truncated", func(t *testing.T) {
		for n := 0; n < len(data); n++ {
			_, err := Decode(data[:n])
			var pe *units.ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("%d: got %v", n, err)
			}
			if pe.Kind != units.Truncated && pe.Kind != units.MalformedField {
				t.Fatalf("%d: got %v", n, err)
			}
		}
	})

	t.Run("dangling reference", func(t *testing.T) {
		b := NewBuilder("A", "java/lang/Object")
		b.add(Constant{Tag: TagString, A: 999})
		bad, err := b.Bytes()
		if err != nil {
			t.Fatal(err)
		}
		if _, err := Decode(bad); !errors.Is(err, units.ErrMalformedField) {
			t.Fatalf("got %v", err)
		}
	})

	t.Run("wrong typed reference", func(t *testing.T) {
		b := NewBuilder("A", "java/lang/Object")
		b.add(Constant{Tag: TagClass, A: b.Int(1)})
		bad, err := b.Bytes()
		if err != nil {
			t.Fatal(err)
		}
		if _, err := Decode(bad); !errors.Is(err, units.ErrMalformedField) {
			t.Fatalf("got %v", err)
		}
	})

	t.Run("trailing", func(t *testing.T) {
		bad := append(append([]byte(nil), data...), 0)
		if _, err := Decode(bad); !errors.Is(err, units.ErrMalformedField) {
			t.Fatalf("got %v", err)
		}
	})
}

func TestDecoderMatch(t *testing.T) {
	data := sampleClass(t)
	unit, err := units.Decode(data, Decoder{})
	if err != nil {
		t.Fatal(err)
	}
	if unit.Format() != units.FormatClass {
		t.Fatalf("got %v", unit.Format())
	}
}

func FuzzDecode(f *testing.F) {
	f.Add(sampleClass(f))
	f.Add([]byte{0xca, 0xfe, 0xba, 0xbe, 0, 0, 0, 52, 0, 0})
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
