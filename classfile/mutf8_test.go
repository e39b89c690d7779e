package classfile

import "testing"

func TestModifiedUTF8(t *testing.T) {
	for _, s := range []string{
		"",
		"plain",
		"nul\x00inside",
		"héllo",
		"😀 astral",
	} {
		enc := encodeModifiedUTF8(s)
		for _, b := range enc {
			if b == 0 {
				t.Fatalf("%q: raw zero byte", s)
			}
		}
		dec, ok := decodeModifiedUTF8(enc)
		if !ok || dec != s {
			t.Fatalf("%q: got %q %v", s, dec, ok)
		}
	}
	if _, ok := decodeModifiedUTF8([]byte{0xe0, 0x80}); ok {
		t.Fatal("expecting failure")
	}
}

func TestMethodDescriptor(t *testing.T) {
	mt, err := ParseMethodDescriptor("(I[JLjava/lang/String;[[D)Ljava/lang/Object;")
	if err != nil {
		t.Fatal(err)
	}
	if len(mt.Params) != 4 || mt.Params[2] != "Ljava/lang/String;" || mt.Params[3] != "[[D" {
		t.Fatalf("got %v", mt.Params)
	}
	if mt.Return != "Ljava/lang/Object;" {
		t.Fatalf("got %s", mt.Return)
	}
	for _, bad := range []string{"", "I", "(V)V", "(L;)V", "(I", "()", "()VV"} {
		if _, err := ParseMethodDescriptor(bad); err == nil {
			t.Fatalf("%q: expecting error", bad)
		}
	}
	if !ValidFieldDescriptor("[Ljava/lang/String;") || ValidFieldDescriptor("II") {
		t.Fatal("bad field descriptor check")
	}
}

func TestOpcodeString(t *testing.T) {
	for op, want := range map[Opcode]string{
		Iadd:    "iadd",
		Aload1:  "aload_1",
		Istore0: "istore_0",
		0x4e:    "astore_3",
		0xfe:    "opcode(0xfe)",
	} {
		if got := op.String(); got != want {
			t.Fatalf("got %s, want %s", got, want)
		}
	}
}
