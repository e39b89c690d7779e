package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/reusee/dscope"
	"github.com/reusee/relic/classfile"
	"github.com/reusee/relic/configs"
	"github.com/reusee/relic/debugs"
	"github.com/reusee/relic/jvm"
	"github.com/reusee/relic/logs"
	"github.com/reusee/relic/modes"
	"github.com/reusee/relic/relicconfigs"
	"github.com/reusee/relic/stage"
	"github.com/reusee/relic/swf"
)

func testScope(t *testing.T) dscope.Scope {
	return dscope.New(
		new(Module),
		modes.ForTest(t),
	).Fork(
		func() logs.Writer {
			return io.Discard
		},
		func() configs.Loader {
			return configs.NewSourceLoader(nil, nil, "")
		},
	)
}

func writeFile(t *testing.T, name string, data []byte) string {
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func loopClass(t *testing.T) string {
	b := classfile.NewBuilder("demo/Loop", "java/lang/Object")
	b.Method(classfile.AccStatic, "main", "()I").
		Line(10).
		Push(3).
		Local(classfile.Istore, 0).
		Line(11).
		Local(classfile.Iload, 0).
		Push(4).
		Op(classfile.Iadd).
		Local(classfile.Istore, 1).
		Line(12).
		Local(classfile.Iload, 1).
		Op(classfile.Ireturn).
		Var(0, "x", "I").
		Var(1, "y", "I")
	data, err := b.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	return writeFile(t, "Loop.class", data)
}

func twoFrameMovie(t *testing.T) string {
	trace := func(msg string) []byte {
		return swf.NewActionWriter().PushString(msg).Op(swf.ActionTrace).Bytes()
	}
	b := swf.NewMovieBuilder(8).
		DoAction(trace("hello")).
		ShowFrame().
		DoAction(trace("two")).
		ShowFrame()
	return writeFile(t, "two.swf", b.Bytes())
}

func expectOutput(t *testing.T, out *bytes.Buffer, parts ...string) {
	t.Helper()
	s := out.String()
	for _, part := range parts {
		if !strings.Contains(s, part) {
			t.Fatalf("expecting %q in output:\n%s", part, s)
		}
	}
	out.Reset()
}

func newConsole(t *testing.T, paths ...string) (c *console, out *bytes.Buffer) {
	out = new(bytes.Buffer)
	testScope(t).Call(func(
		engine *jvm.Engine,
		player *stage.Player,
		decoders relicconfigs.Decoders,
		debugger *debugs.Debugger,
		logger logs.Logger,
	) {
		s, err := newSession(out, engine, player, decoders, logger, paths)
		if err != nil {
			t.Fatal(err)
		}
		if err := debugger.Attach(s); err != nil {
			t.Fatal(err)
		}
		c = &console{
			out:      out,
			debugger: debugger,
			session:  s,
		}
	})
	return
}

func TestConsoleClassFile(t *testing.T) {
	c, out := newConsole(t, loopClass(t))
	ctx := t.Context()
	exec := func(line string) {
		t.Helper()
		if err := c.exec(ctx, line); err != nil {
			t.Fatalf("%s: %v", line, err)
		}
	}

	exec("break demo/Loop.main:11 x > 2")
	expectOutput(t, out, "breakpoint 1 at demo/Loop.main:11")
	exec("watch x * 2")
	out.Reset()

	exec("cont")
	expectOutput(t, out,
		"paused at demo/Loop.main()I:11@",
		"(breakpoint 1)",
		"watch 2 x * 2 = 6",
	)

	exec("print x + 1")
	expectOutput(t, out, "4\n")
	exec("vars")
	expectOutput(t, out, "x = 3")
	exec("stack")
	expectOutput(t, out, "#0 demo/Loop.main()I:11@")
	exec("info")
	expectOutput(t, out, "breakpoint 1 at", "hits 1", "if x > 2")

	exec("next")
	expectOutput(t, out, "main()I:12@", "(step)")

	exec("cont")
	expectOutput(t, out, "result: 7", "program ended")

	if err := c.exec(ctx, "cont"); err == nil {
		t.Fatal("expecting error after end")
	}
	if err := c.exec(ctx, "print x"); err == nil {
		t.Fatal("expecting error when not paused")
	}
	if err := c.exec(ctx, "bogus"); err == nil {
		t.Fatal("expecting unknown command")
	}
	if err := c.exec(ctx, "quit"); err != errQuit {
		t.Fatalf("got %v", err)
	}
}

func TestConsoleStepFromStart(t *testing.T) {
	c, out := newConsole(t, loopClass(t))
	if err := c.exec(t.Context(), "step"); err != nil {
		t.Fatal(err)
	}
	expectOutput(t, out, "main()I:10@0", "(pause)")

	path := filepath.Join(t.TempDir(), "state.cbor")
	if err := c.exec(t.Context(), "dump "+path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	state, err := debugs.DecodeState(data)
	if err != nil {
		t.Fatal(err)
	}
	if !state.Paused || state.Location == nil || state.Location.Line != 10 {
		t.Fatalf("got %+v", state)
	}
}

func TestConsoleMovie(t *testing.T) {
	c, out := newConsole(t, twoFrameMovie(t))
	ctx := t.Context()
	for _, line := range []string{
		"break _level0.frame1@0",
		"cont",
	} {
		if err := c.exec(ctx, line); err != nil {
			t.Fatal(err)
		}
	}
	expectOutput(t, out, "suspended", "paused at _level0.frame1@0")

	if err := c.exec(ctx, "cont"); err != nil {
		t.Fatal(err)
	}
	expectOutput(t, out,
		"trace _level0: hello",
		"trace _level0: two",
		"program ended",
	)
}

func TestPlay(t *testing.T) {
	path := twoFrameMovie(t)
	testScope(t).Call(func(
		player *stage.Player,
		decoders relicconfigs.Decoders,
	) {
		out := new(bytes.Buffer)
		if err := play(t.Context(), out, player, decoders, 20, path, 3); err != nil {
			t.Fatal(err)
		}
		expectOutput(t, out,
			"frame 1\n  trace _level0: hello",
			"frame 2\n  trace _level0: two",
		)
	})
}

func TestDecodeAll(t *testing.T) {
	testScope(t).Call(func(
		decoders relicconfigs.Decoders,
	) {
		out := new(bytes.Buffer)
		class, movie := loopClass(t), twoFrameMovie(t)
		if err := decodeAll(t.Context(), out, decoders, []string{class, movie}, 2); err != nil {
			t.Fatal(err)
		}
		s := out.String()
		if strings.Index(s, class+": class") > strings.Index(s, movie+": swf") {
			t.Fatalf("out of order:\n%s", s)
		}
		expectOutput(t, out,
			"class demo/Loop extends java/lang/Object",
			"method main()I",
			"version 8, 2 frames",
			"DoAction                 2",
		)

		bad := writeFile(t, "bad.bin", []byte("nope"))
		if err := decodeAll(t.Context(), out, decoders, []string{class, bad}, 1); err == nil {
			t.Fatal("expecting error")
		}
	})
}
