package stage

import (
	"errors"
	"testing"

	"github.com/reusee/relic/debugs"
	"github.com/reusee/relic/swf"
)

func TestDebuggerSuspendsTick(t *testing.T) {
	p := newTestPlayer(t, DefaultOptions())
	d := debugs.NewDebugger(p.logger)
	if err := d.Attach(p); err != nil {
		t.Fatal(err)
	}
	h := load(t, p, swf.NewMovieBuilder(10).
		DoAction(aw().
			PushString("greeting").PushString("hello").Op(swf.ActionSetVariable).
			PushString("greeting").Op(swf.ActionGetVariable).Op(swf.ActionTrace).
			Bytes()).
		DoAction(trace("second")).
		ShowFrame().
		ShowFrame())

	loc, err := debugs.ParseLocation("_level0.frame1@24")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.SetBreakpoint(loc, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := d.AddWatchExpression("greeting"); err != nil {
		t.Fatal(err)
	}

	tick := advance(t, p, h)
	if !tick.Suspended {
		t.Fatalf("got %+v", tick)
	}
	expectTraces(t, tick)
	state := d.State()
	if !state.Paused || state.Watches[0].Value != "hello" {
		t.Fatalf("got %+v", state)
	}

	if _, err := p.AdvanceFrame(t.Context(), h); !errors.Is(err, ErrSuspended) {
		t.Fatalf("got %v", err)
	}

	if err := d.Resume(); err != nil {
		t.Fatal(err)
	}
	tick, err = p.Resume(t.Context(), h)
	if err != nil {
		t.Fatal(err)
	}
	if tick.Suspended {
		t.Fatal("expecting finished tick")
	}
	expectTraces(t, tick, "hello", "second")
	expectTraces(t, advance(t, p, h))
}

func TestUnloadWhileSuspended(t *testing.T) {
	p := newTestPlayer(t, DefaultOptions())
	d := debugs.NewDebugger(p.logger)
	if err := d.Attach(p); err != nil {
		t.Fatal(err)
	}
	h := load(t, p, swf.NewMovieBuilder(10).
		DoAction(trace("never")).
		ShowFrame())
	if err := d.Pause(); err != nil {
		t.Fatal(err)
	}
	if _, err := d.AddWatchExpression("1 + 1"); err != nil {
		t.Fatal(err)
	}
	tick := advance(t, p, h)
	if !tick.Suspended || d.Status() != debugs.Paused {
		t.Fatalf("got %+v %v", tick, d.Status())
	}
	if err := p.Unload(h); err != nil {
		t.Fatal(err)
	}
	if d.Status() != debugs.Running {
		t.Fatalf("got %v", d.Status())
	}
	if w := d.Watches()[0]; !errors.Is(w.Err, debugs.ErrUnavailable) {
		t.Fatalf("got %+v", w)
	}
}
