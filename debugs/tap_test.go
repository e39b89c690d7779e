package debugs

import (
	"testing"

	"github.com/reusee/dscope"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

func starlarkEqual(t *testing.T, got starlark.Value, expect int) {
	t.Helper()
	ok, err := starlark.Equal(got, starlark.MakeInt(expect))
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatalf("got %v, expected %d", got, expect)
	}
}

func TestTap(t *testing.T) {
	dscope.New(
		new(Module),
	).Call(func(
		tap Tap,
	) {
		tap(t.Context(), "test", map[string]any{
			"foo": 42,
		})
	})
}

func TestTapGlobals(t *testing.T) {
	d := newTestDebugger(t)
	engine := callProgram()
	if err := d.Attach(engine); err != nil {
		t.Fatal(err)
	}
	if err := d.Pause(); err != nil {
		t.Fatal(err)
	}
	if !engine.run() {
		t.Fatal("expected pause")
	}

	globals := tapGlobals(d.TapGlobals())
	starlarkEqual(t, globals["x"], 1)

	thread := &starlark.Thread{Name: "test"}
	v, err := starlark.Call(thread, globals["watch"], starlark.Tuple{starlark.String("x + 41")}, nil)
	if err != nil {
		t.Fatal(err)
	}
	starlarkEqual(t, v, 42)
	if _, err := starlark.Call(thread, globals["watch"], starlark.Tuple{starlark.String("nope()")}, nil); err == nil {
		t.Fatal("expected error")
	}

	v, err = starlark.Call(thread, globals["stack"], nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	list, ok := v.(*starlark.List)
	if !ok || list.Len() != 1 {
		t.Fatalf("got %v", v)
	}

	v, err = starlark.EvalOptions(&syntax.FileOptions{}, thread, "expr", "x + 1", globals)
	if err != nil {
		t.Fatal(err)
	}
	starlarkEqual(t, v, 2)
}
