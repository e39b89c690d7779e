package jvm

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/reusee/dscope"
	"github.com/reusee/relic/classfile"
	"github.com/reusee/relic/logs"
)

func newTestEngine(t *testing.T, opts Options) (e *Engine) {
	dscope.New(new(logs.Module)).Fork(
		func() logs.Writer {
			return io.Discard
		},
	).Call(func(
		logger logs.Logger,
	) {
		e = NewEngine(opts, logger)
	})
	return e
}

func load(t *testing.T, e *Engine, b *classfile.Builder) {
	t.Helper()
	unit, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	if err := e.LoadUnit(unit.Name+".class", unit); err != nil {
		t.Fatal(err)
	}
}

func expectFault(t *testing.T, err error, kind FaultKind) *Fault {
	t.Helper()
	var fault *Fault
	if !errors.As(err, &fault) {
		t.Fatalf("expecting fault, got %v", err)
	}
	if fault.Kind != kind {
		t.Fatalf("expecting %v, got %v", kind, fault)
	}
	return fault
}

func counterClass() *classfile.Builder {
	b := classfile.NewBuilder("demo/Counter", "java/lang/Object")
	b.Method(classfile.AccPublic|classfile.AccStatic, "div", "(II)I").
		Label("start").
		Line(7).
		Local(classfile.Iload, 0).
		Local(classfile.Iload, 1).
		Op(classfile.Idiv).
		Label("end").
		Op(classfile.Ireturn).
		Label("handler").
		Line(9).
		Op(classfile.Pop).
		Push(-1).
		Op(classfile.Ireturn).
		Catch("start", "end", "handler", "java/lang/ArithmeticException")
	// rawDiv has no handler, safeDiv catches what it throws
	b.Method(classfile.AccPublic|classfile.AccStatic, "rawDiv", "(II)I").
		Local(classfile.Iload, 0).
		Local(classfile.Iload, 1).
		Op(classfile.Idiv).
		Op(classfile.Ireturn)
	b.Method(classfile.AccPublic|classfile.AccStatic, "safeDiv", "(II)I").
		Push(100).
		Label("start").
		Local(classfile.Iload, 0).
		Local(classfile.Iload, 1).
		Invoke(classfile.Invokestatic, "demo/Counter", "rawDiv", "(II)I").
		Op(classfile.Iadd).
		Op(classfile.Ireturn).
		Label("end").
		Label("handler").
		Op(classfile.Pop).
		Invoke(classfile.Invokestatic, "demo/Counter", "stackSize", "()I").
		Op(classfile.Ireturn).
		Catch("start", "end", "handler", "java/lang/RuntimeException")
	b.Method(classfile.AccPublic|classfile.AccStatic|classfile.AccNative, "stackSize", "()I")
	b.Method(classfile.AccPublic|classfile.AccStatic, "fail", "()V").
		Type(classfile.New, "java/lang/IllegalStateException").
		Op(classfile.Dup).
		LdcString("boom").
		Invoke(classfile.Invokespecial, "java/lang/IllegalStateException", "<init>", "(Ljava/lang/String;)V").
		Op(classfile.Athrow)
	return b
}

func TestTryCatch(t *testing.T) {
	e := newTestEngine(t, DefaultOptions())
	if err := e.RegisterNative("demo/Counter", "stackSize", "()I", func(t *Thread, args []Value) (Value, error) {
		frames := t.Frames()
		return int32(len(frames[len(frames)-1].Stack)), nil
	}); err != nil {
		t.Fatal(err)
	}
	load(t, e, counterClass())
	ctx := t.Context()

	v, err := e.Invoke(ctx, "demo/Counter", "div", 7, 2)
	if err != nil {
		t.Fatal(err)
	}
	if v != int32(3) {
		t.Fatalf("got %v", v)
	}

	v, err = e.Invoke(ctx, "demo/Counter", "div", 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if v != int32(-1) {
		t.Fatalf("got %v", v)
	}

	// thrown in the callee, caught in the caller with the stack truncated
	v, err = e.Invoke(ctx, "demo/Counter", "safeDiv", 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if v != int32(0) {
		t.Fatalf("got %v", v)
	}
	v, err = e.Invoke(ctx, "demo/Counter", "safeDiv", 8, 2)
	if err != nil {
		t.Fatal(err)
	}
	if v != int32(104) {
		t.Fatalf("got %v", v)
	}
}

func TestUncaught(t *testing.T) {
	e := newTestEngine(t, DefaultOptions())
	if err := e.RegisterNative("demo/Counter", "stackSize", "()I", func(t *Thread, args []Value) (Value, error) {
		return int32(0), nil
	}); err != nil {
		t.Fatal(err)
	}
	load(t, e, counterClass())
	ctx := t.Context()

	_, err := e.Invoke(ctx, "demo/Counter", "fail")
	fault := expectFault(t, err, UncaughtFault)
	if fault.Thrown == nil || fault.Thrown.Class.Name != "java/lang/IllegalStateException" {
		t.Fatalf("got %+v", fault)
	}
	if fault.Message != "java.lang.IllegalStateException: boom" {
		t.Fatalf("got %q", fault.Message)
	}
	if fault.Class != "demo/Counter" || fault.FrameDepth != 1 {
		t.Fatalf("got %+v", fault)
	}

	_, err = e.Invoke(ctx, "demo/Counter", "rawDiv", 1, 0)
	fault = expectFault(t, err, UncaughtFault)
	if fault.PC != 2 {
		t.Fatalf("got pc %d", fault.PC)
	}

	// still usable
	v, err := e.Invoke(ctx, "demo/Counter", "rawDiv", 9, 3)
	if err != nil {
		t.Fatal(err)
	}
	if v != int32(3) {
		t.Fatalf("got %v", v)
	}
}

func TestVirtualDispatch(t *testing.T) {
	e := newTestEngine(t, DefaultOptions())

	speaker := classfile.NewBuilder("demo/Speaker", "java/lang/Object")
	speaker.Access = classfile.AccPublic | classfile.AccInterface | classfile.AccAbstract
	speaker.Method(classfile.AccPublic|classfile.AccAbstract, "volume", "()I")

	derived := classfile.NewBuilder("demo/Derived", "demo/Base")
	derived.Method(classfile.AccPublic, "<init>", "()V").
		Local(classfile.Aload, 0).
		Invoke(classfile.Invokespecial, "demo/Base", "<init>", "()V").
		Op(classfile.Return)
	derived.Method(classfile.AccPublic, "speak", "()I").
		Push(2).
		Op(classfile.Ireturn)

	mid := classfile.NewBuilder("demo/Mid", "demo/Base")
	mid.Method(classfile.AccPublic, "<init>", "()V").
		Local(classfile.Aload, 0).
		Invoke(classfile.Invokespecial, "demo/Base", "<init>", "()V").
		Op(classfile.Return)

	base := classfile.NewBuilder("demo/Base", "java/lang/Object").
		Implements("demo/Speaker")
	base.Method(classfile.AccPublic, "<init>", "()V").
		Local(classfile.Aload, 0).
		Invoke(classfile.Invokespecial, "java/lang/Object", "<init>", "()V").
		Op(classfile.Return)
	base.Method(classfile.AccPublic, "speak", "()I").
		Push(1).
		Op(classfile.Ireturn)
	base.Method(classfile.AccPublic, "volume", "()I").
		Local(classfile.Aload, 0).
		Invoke(classfile.Invokevirtual, "demo/Base", "speak", "()I").
		Push(10).
		Op(classfile.Imul).
		Op(classfile.Ireturn)
	for _, class := range []string{"demo/Derived", "demo/Mid", "demo/Base"} {
		base.Method(classfile.AccPublic|classfile.AccStatic, "make"+class[5:], "()I").
			Type(classfile.New, class).
			Op(classfile.Dup).
			Invoke(classfile.Invokespecial, class, "<init>", "()V").
			Invoke(classfile.Invokeinterface, "demo/Speaker", "volume", "()I").
			Op(classfile.Ireturn)
	}

	// subclasses load before their superclass
	load(t, e, derived)
	load(t, e, mid)
	load(t, e, speaker)
	load(t, e, base)

	for method, expect := range map[string]int32{
		"makeDerived": 20,
		"makeMid":     10,
		"makeBase":    10,
	} {
		v, err := e.Invoke(t.Context(), "demo/Base", method)
		if err != nil {
			t.Fatal(err)
		}
		if v != expect {
			t.Fatalf("%s: got %v", method, v)
		}
	}

	// the cache does not outlive a new class
	if len(e.dispatch) == 0 {
		t.Fatal("expecting cached dispatch")
	}
	load(t, e, classfile.NewBuilder("demo/Other", "java/lang/Object"))
	if len(e.dispatch) != 0 {
		t.Fatal("dispatch cache not cleared")
	}
}

func TestStaticFields(t *testing.T) {
	e := newTestEngine(t, DefaultOptions())
	b := classfile.NewBuilder("demo/Tally", "java/lang/Object")
	b.Field(classfile.AccStatic, "count", "I")
	b.Method(classfile.AccStatic, "<clinit>", "()V").
		Push(10).
		Field(classfile.Putstatic, "demo/Tally", "count", "I").
		Op(classfile.Return)
	b.Method(classfile.AccPublic|classfile.AccStatic, "inc", "()I").
		Field(classfile.Getstatic, "demo/Tally", "count", "I").
		Push(1).
		Op(classfile.Iadd).
		Op(classfile.Dup).
		Field(classfile.Putstatic, "demo/Tally", "count", "I").
		Op(classfile.Ireturn)
	load(t, e, b)

	for _, expect := range []int32{11, 12, 13} {
		v, err := e.Invoke(t.Context(), "demo/Tally", "inc")
		if err != nil {
			t.Fatal(err)
		}
		if v != expect {
			t.Fatalf("got %v, expected %v", v, expect)
		}
	}
	c, _ := e.Class("demo/Tally")
	if v, _ := c.Static("count"); v != int32(13) {
		t.Fatalf("got %v", v)
	}
}

func TestFaults(t *testing.T) {
	e := newTestEngine(t, Options{
		MaxInstructions: 1000,
		MaxCallDepth:    32,
	})
	b := classfile.NewBuilder("demo/Bad", "java/lang/Object")
	b.Method(classfile.AccStatic, "unsupported", "()V").
		Push(1).
		Op(classfile.Pop).
		Op(classfile.Jsr, 0, 0).
		Op(classfile.Return)
	b.Method(classfile.AccStatic, "underflow", "()V").
		Op(classfile.Pop).
		Op(classfile.Return)
	b.Method(classfile.AccStatic, "spin", "()V").
		Label("top").
		Jump(classfile.Goto, "top")
	b.Method(classfile.AccStatic, "missing", "()V").
		Invoke(classfile.Invokestatic, "demo/Nowhere", "call", "()V").
		Op(classfile.Return)
	b.Method(classfile.AccStatic, "recurse", "()V").
		Invoke(classfile.Invokestatic, "demo/Bad", "recurse", "()V").
		Op(classfile.Return)
	b.Method(classfile.AccStatic, "nested", "()V").
		Invoke(classfile.Invokestatic, "demo/Bad", "unsupported", "()V").
		Op(classfile.Return)
	load(t, e, b)
	ctx := t.Context()

	_, err := e.Invoke(ctx, "demo/Bad", "unsupported")
	fault := expectFault(t, err, UnsupportedOpcode)
	if fault.PC != 2 || fault.FrameDepth != 1 || fault.Method != "unsupported()V" {
		t.Fatalf("got %+v", fault)
	}

	_, err = e.Invoke(ctx, "demo/Bad", "nested")
	fault = expectFault(t, err, UnsupportedOpcode)
	if fault.FrameDepth != 2 {
		t.Fatalf("got %+v", fault)
	}

	_, err = e.Invoke(ctx, "demo/Bad", "underflow")
	expectFault(t, err, StackUnderflow)

	_, err = e.Invoke(ctx, "demo/Bad", "spin")
	expectFault(t, err, Aborted)
	if !errors.Is(err, &Fault{Kind: Aborted}) {
		t.Fatal("expecting errors.Is match")
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = e.Invoke(cancelled, "demo/Bad", "spin")
	expectFault(t, err, Aborted)

	_, err = e.Invoke(ctx, "demo/Bad", "missing")
	expectFault(t, err, MissingSymbol)

	_, err = e.Invoke(ctx, "demo/Bad", "recurse")
	fault = expectFault(t, err, UncaughtFault)
	if fault.Thrown.Class.Name != "java/lang/StackOverflowError" {
		t.Fatalf("got %v", fault)
	}

	_, err = e.Invoke(ctx, "demo/Nowhere", "call")
	expectFault(t, err, MissingSymbol)

	unit, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	err = e.LoadUnit("again", unit)
	expectFault(t, err, DuplicateClass)
}

func TestInstructions(t *testing.T) {
	e := newTestEngine(t, DefaultOptions())
	b := classfile.NewBuilder("demo/Ops", "java/lang/Object")

	// sum of i*i for i in 0..n-1 through an int array
	b.Method(classfile.AccStatic, "squares", "(I)I").
		Local(classfile.Iload, 0).
		Op(classfile.Newarray, classfile.TInt).
		Local(classfile.Astore, 1).
		Push(0).
		Local(classfile.Istore, 2).
		Label("fill").
		Local(classfile.Iload, 2).
		Local(classfile.Aload, 1).
		Op(classfile.Arraylength).
		Jump(classfile.IfIcmpge, "sum").
		Local(classfile.Aload, 1).
		Local(classfile.Iload, 2).
		Local(classfile.Iload, 2).
		Local(classfile.Iload, 2).
		Op(classfile.Imul).
		Op(classfile.Iastore).
		Iinc(2, 1).
		Jump(classfile.Goto, "fill").
		Label("sum").
		Push(0).
		Local(classfile.Istore, 3).
		Push(0).
		Local(classfile.Istore, 2).
		Label("loop").
		Local(classfile.Iload, 2).
		Local(classfile.Iload, 0).
		Jump(classfile.IfIcmpge, "done").
		Local(classfile.Iload, 3).
		Local(classfile.Aload, 1).
		Local(classfile.Iload, 2).
		Op(classfile.Iaload).
		Op(classfile.Iadd).
		Local(classfile.Istore, 3).
		Iinc(2, 1).
		Jump(classfile.Goto, "loop").
		Label("done").
		Local(classfile.Iload, 3).
		Op(classfile.Ireturn)

	b.Method(classfile.AccStatic, "table", "(I)I").
		Local(classfile.Iload, 0).
		Tableswitch(1, "other", "one", "two").
		Label("one").Push(10).Op(classfile.Ireturn).
		Label("two").Push(20).Op(classfile.Ireturn).
		Label("other").Push(-1).Op(classfile.Ireturn)

	b.Method(classfile.AccStatic, "lookup", "(I)I").
		Local(classfile.Iload, 0).
		Lookupswitch("other", []int32{-5, 1000}, []string{"neg", "big"}).
		Label("neg").Push(1).Op(classfile.Ireturn).
		Label("big").Push(2).Op(classfile.Ireturn).
		Label("other").Push(0).Op(classfile.Ireturn)

	// (a << 40) / 3 as long, then back to int through double
	b.Method(classfile.AccStatic, "wide", "(J)I").
		Local(classfile.Lload, 0).
		Push(40).
		Op(classfile.Lshl).
		Ldc(b.Long(3)).
		Op(classfile.Ldiv).
		Op(classfile.L2d).
		Ldc(b.Double(1<<30)).
		Op(classfile.Ddiv).
		Op(classfile.D2i).
		Op(classfile.Ireturn)

	b.Method(classfile.AccStatic, "strings", "()I").
		LdcString("héllo").
		LdcString(" world").
		Invoke(classfile.Invokevirtual, "java/lang/String", "concat", "(Ljava/lang/String;)Ljava/lang/String;").
		Op(classfile.Dup).
		Local(classfile.Astore, 0).
		Invoke(classfile.Invokevirtual, "java/lang/String", "length", "()I").
		Local(classfile.Aload, 0).
		LdcString("héllo world").
		Invoke(classfile.Invokevirtual, "java/lang/Object", "equals", "(Ljava/lang/Object;)Z").
		Op(classfile.Iadd).
		Op(classfile.Ireturn)

	b.Method(classfile.AccStatic, "cast", "(Ljava/lang/Object;)I").
		Label("start").
		Local(classfile.Aload, 0).
		Type(classfile.Checkcast, "java/lang/String").
		Op(classfile.Pop).
		Local(classfile.Aload, 0).
		Type(classfile.Instanceof, "java/lang/Throwable").
		Op(classfile.Ireturn).
		Label("end").
		Label("handler").
		Op(classfile.Pop).
		Push(-1).
		Op(classfile.Ireturn).
		Catch("start", "end", "handler", "")

	b.Method(classfile.AccStatic, "bounds", "()I").
		Push(2).
		Op(classfile.Newarray, classfile.TByte).
		Push(5).
		Op(classfile.Baload).
		Op(classfile.Ireturn)

	load(t, e, b)
	ctx := t.Context()

	for _, c := range []struct {
		method string
		args   []any
		expect Value
	}{
		{"squares", []any{5}, int32(30)},
		{"table", []any{1}, int32(10)},
		{"table", []any{2}, int32(20)},
		{"table", []any{7}, int32(-1)},
		{"lookup", []any{-5}, int32(1)},
		{"lookup", []any{1000}, int32(2)},
		{"lookup", []any{3}, int32(0)},
		{"wide", []any{int64(3)}, int32(1024)},
		{"strings", nil, int32(12)},
		{"cast", []any{"s"}, int32(0)},
		{"cast", []any{nil}, int32(0)},
	} {
		v, err := e.Invoke(ctx, "demo/Ops", c.method, c.args...)
		if err != nil {
			t.Fatalf("%s: %v", c.method, err)
		}
		if v != c.expect {
			t.Fatalf("%s%v: got %#v, expected %#v", c.method, c.args, v, c.expect)
		}
	}

	obj, err := e.NewObject("java/lang/Exception")
	if err != nil {
		t.Fatal(err)
	}
	v, err := e.Invoke(ctx, "demo/Ops", "cast", obj)
	if err != nil {
		t.Fatal(err)
	}
	if v != int32(-1) {
		t.Fatalf("got %v", v)
	}

	_, err = e.Invoke(ctx, "demo/Ops", "bounds")
	fault := expectFault(t, err, UncaughtFault)
	if fault.Thrown.Class.Name != "java/lang/ArrayIndexOutOfBoundsException" {
		t.Fatalf("got %v", fault)
	}
}

func TestOperandFaults(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxOperandStack = 2
	e := newTestEngine(t, opts)
	b := classfile.NewBuilder("demo/Operands", "java/lang/Object")
	b.Method(classfile.AccStatic, "deep", "()V").
		Push(1).
		Push(2).
		Push(3).
		Op(classfile.Pop).
		Op(classfile.Pop).
		Op(classfile.Pop).
		Op(classfile.Return)
	b.Method(classfile.AccStatic, "length", "()V").
		Push(1).
		Op(classfile.Arraylength).
		Op(classfile.Pop).
		Op(classfile.Return)
	b.Method(classfile.AccStatic, "elements", "()V").
		Push(1).
		Op(classfile.Newarray, 99).
		Op(classfile.Pop).
		Op(classfile.Return)
	load(t, e, b)

	for _, c := range []struct {
		method string
		kind   FaultKind
		name   string
	}{
		{"deep", StackOverflow, "stack overflow"},
		{"length", BadOperand, "bad operand"},
		{"elements", MalformedCode, "malformed code"},
	} {
		_, err := e.Invoke(t.Context(), "demo/Operands", c.method)
		fault := expectFault(t, err, c.kind)
		if fault.Kind.String() != c.name || fault.Method != c.method+"()V" {
			t.Fatalf("got %+v", fault)
		}
	}
}
