package avm

import (
	"context"
	"errors"
	"testing"

	"github.com/reusee/relic/debugs"
	"github.com/reusee/relic/swf"
)

func TestDebugStepping(t *testing.T) {
	host := newTestHost()
	m := newTestMachine(t, DefaultOptions(), host)
	s := script(t, "frame1", w().
		PushString("count").PushNumber(3).Op(swf.ActionSetVariable).
		DefineFunction("double", []string{"x"}, w().
			PushString("x").Op(swf.ActionGetVariable).
			PushNumber(2).
			Op(swf.ActionMultiply).
			Op(swf.ActionReturn)).
		PushString("y").
		PushNumber(4).PushNumber(1).PushString("double").
		Op(swf.ActionCallFunction).
		Op(swf.ActionSetVariable).
		PushString("y").Op(swf.ActionGetVariable).
		Op(swf.ActionTrace))

	offsetOf := func(code swf.ActionCode) (int, int) {
		for i, act := range s.Actions {
			if act.Code == code {
				return act.Offset, s.Actions[i+1].Offset
			}
		}
		t.Fatalf("no %s", code)
		return 0, 0
	}
	callAt, afterCall := offsetOf(swf.ActionCallFunction)
	_, bodyAt := offsetOf(swf.ActionDefineFunction)

	d := debugs.NewDebugger(m.logger)
	if err := d.Attach(m); err != nil {
		t.Fatal(err)
	}
	if _, err := d.SetBreakpoint(debugs.Location{
		Unit:   "_level0",
		Member: "frame1",
		PC:     callAt,
	}, "count > 2"); err != nil {
		t.Fatal(err)
	}

	type pause struct {
		member string
		pc     int
		depth  int
	}
	expected := []pause{
		{"frame1", callAt, 1},
		{"double", bodyAt, 2},
		{"frame1", afterCall, 1},
	}
	actions := []func() error{
		d.StepInto,
		d.StepOut,
		d.Resume,
	}

	thread := m.NewThread(t.Context(), s, host.clips["_level0"])
	n := 0
	for intr, err := range thread.Run {
		if err != nil {
			t.Fatal(err)
		}
		if n >= len(expected) {
			t.Fatalf("unexpected pause at %v", intr.Location)
		}
		want := expected[n]
		if intr.Location.Unit != "_level0" ||
			intr.Location.Member != want.member ||
			intr.Location.PC != want.pc ||
			intr.Depth != want.depth {
			t.Fatalf("pause %d: got %v depth %d", n, intr.Location, intr.Depth)
		}

		state := d.State()
		switch n {
		case 0:
			if state.Variables["count"] != float64(3) {
				t.Fatalf("got %v", state.Variables)
			}
		case 1:
			if state.Variables["x"] != float64(4) {
				t.Fatalf("got %v", state.Variables)
			}
			if len(state.CallStack) != 2 || state.CallStack[1].Location.Member != "frame1" {
				t.Fatalf("got %+v", state.CallStack)
			}
			v, err := d.Evaluate("x * 2 + count")
			if err != nil {
				t.Fatal(err)
			}
			if v != float64(11) {
				t.Fatalf("got %v", v)
			}
		case 2:
			// the return value is still on the stack
			if _, ok := state.Variables["y"]; ok {
				t.Fatalf("got %v", state.Variables)
			}
		}

		if err := actions[n](); err != nil {
			t.Fatal(err)
		}
		n++
	}
	if n != len(expected) {
		t.Fatalf("got %d pauses", n)
	}
	if len(host.traces) != 1 || host.traces[0] != "8" {
		t.Fatalf("got %q", host.traces)
	}
	if d.Breakpoints()[0].Hits != 1 {
		t.Fatalf("got %+v", d.Breakpoints())
	}
}

func TestDebugRunDrainsPauses(t *testing.T) {
	host := newTestHost()
	m := newTestMachine(t, DefaultOptions(), host)
	d := debugs.NewDebugger(m.logger)
	if err := d.Attach(m); err != nil {
		t.Fatal(err)
	}
	if err := d.Pause(); err != nil {
		t.Fatal(err)
	}
	s := script(t, "frame1", w().PushString("done").Op(swf.ActionTrace))
	if err := m.Run(t.Context(), s, host.clips["_level0"]); err != nil {
		t.Fatal(err)
	}
	if len(host.traces) != 1 {
		t.Fatalf("got %q", host.traces)
	}
	if d.Status() != debugs.Running {
		t.Fatalf("got %v", d.Status())
	}
	d.Detach()
}

func TestDebugAbortWhilePaused(t *testing.T) {
	host := newTestHost()
	m := newTestMachine(t, DefaultOptions(), host)
	d := debugs.NewDebugger(m.logger)
	if err := d.Attach(m); err != nil {
		t.Fatal(err)
	}
	if _, err := d.AddWatchExpression("count"); err != nil {
		t.Fatal(err)
	}
	s := script(t, "frame1", w().
		PushString("count").PushNumber(3).Op(swf.ActionSetVariable).
		PushString("done").Op(swf.ActionTrace))
	if err := d.Pause(); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	thread := m.NewThread(ctx, s, host.clips["_level0"])
	pauses := 0
	var runErr error
	for intr, err := range thread.Run {
		if err != nil {
			runErr = err
			break
		}
		pauses++
		if intr.Location.PC != 0 || intr.Depth != 1 {
			t.Fatalf("got %v depth %d", intr.Location, intr.Depth)
		}
		cancel()
	}
	if pauses != 1 {
		t.Fatalf("got %d pauses", pauses)
	}
	var fault *Fault
	if !errors.As(runErr, &fault) || fault.Kind != Aborted {
		t.Fatalf("got %v", runErr)
	}
	if fault.Script != "_level0.frame1" || fault.Offset != 0 {
		t.Fatalf("got %+v", fault)
	}
	if !thread.Done() || thread.Depth() != 0 {
		t.Fatal("expecting frames discarded")
	}
	if len(host.traces) != 0 {
		t.Fatalf("got %q", host.traces)
	}

	if d.Status() != debugs.Running {
		t.Fatalf("got %v", d.Status())
	}
	if state := d.State(); state.Paused || state.Location != nil {
		t.Fatalf("got %+v", state)
	}
	if _, err := d.Evaluate("count"); !errors.Is(err, debugs.ErrUnavailable) {
		t.Fatalf("got %v", err)
	}
	if w := d.Watches()[0]; !errors.Is(w.Err, debugs.ErrUnavailable) {
		t.Fatalf("got %+v", w)
	}

	if err := m.Run(t.Context(), s, host.clips["_level0"]); err != nil {
		t.Fatal(err)
	}
	if len(host.traces) != 1 || host.traces[0] != "done" {
		t.Fatalf("got %q", host.traces)
	}
}
