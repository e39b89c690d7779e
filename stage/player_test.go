package stage

import (
	"errors"
	"io"
	"slices"
	"strings"
	"testing"

	"github.com/reusee/dscope"
	"github.com/reusee/relic/avm"
	"github.com/reusee/relic/input"
	"github.com/reusee/relic/logs"
	"github.com/reusee/relic/swf"
)

func newTestPlayer(t *testing.T, opts Options) (p *Player) {
	dscope.New(
		new(Module),
		dscope.Provide(opts),
	).Fork(
		func() logs.Writer {
			return io.Discard
		},
	).Call(func(
		player *Player,
	) {
		p = player
	})
	return p
}

func load(t *testing.T, p *Player, b *swf.MovieBuilder) MovieHandle {
	t.Helper()
	unit, err := swf.Decode(b.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	h, err := p.Load(t.Name(), unit)
	if err != nil {
		t.Fatal(err)
	}
	return h
}

func aw() *swf.ActionWriter {
	return swf.NewActionWriter()
}

func trace(msg string) []byte {
	return aw().PushString(msg).Op(swf.ActionTrace).Bytes()
}

func at(x, y int32) swf.Matrix {
	m := swf.Identity
	m.TranslateX = x
	m.TranslateY = y
	return m
}

func square(size int32) swf.Rect {
	return swf.Rect{Xmax: size, Ymax: size}
}

func traces(tick Tick) []string {
	var ret []string
	for _, cmd := range tick.Commands {
		if tr, ok := cmd.(Trace); ok {
			ret = append(ret, tr.Message)
		}
	}
	return ret
}

func advance(t *testing.T, p *Player, h MovieHandle) Tick {
	t.Helper()
	tick, err := p.AdvanceFrame(t.Context(), h)
	if err != nil {
		t.Fatal(err)
	}
	return tick
}

func expectTraces(t *testing.T, tick Tick, expected ...string) {
	t.Helper()
	if got := traces(tick); !slices.Equal(got, expected) {
		t.Fatalf("got traces %q, expected %q", got, expected)
	}
}

func TestAdvanceFrames(t *testing.T) {
	p := newTestPlayer(t, DefaultOptions())
	h := load(t, p, swf.NewMovieBuilder(10).
		SetBackgroundColor(swf.RGBA{R: 1, G: 2, B: 3, A: 0xff}).
		DefineShape(1, square(100)).
		PlaceObject2(1, 1, at(10, 20), "box").
		DoAction(trace("f1")).
		ShowFrame().
		MoveObject2(1, at(100, 0)).
		DoAction(trace("f2")).
		ShowFrame().
		RemoveObject2(1).
		ShowFrame())

	tick := advance(t, p, h)
	if tick.Frame != 1 || len(tick.Commands) != 3 {
		t.Fatalf("got %+v", tick)
	}
	if bg, ok := tick.Commands[0].(SetBackground); !ok || bg.Color.B != 3 {
		t.Fatalf("got %+v", tick.Commands[0])
	}
	place, ok := tick.Commands[1].(Place)
	if !ok || place.CharacterID != 1 || place.Depth != 1 || place.Name != "box" || place.Kind != KindShape {
		t.Fatalf("got %+v", tick.Commands[1])
	}
	expectTraces(t, tick, "f1")

	scene, err := p.Scene(h)
	if err != nil {
		t.Fatal(err)
	}
	box, ok := scene.At(scene.Root, 1)
	if !ok || box.ID != place.Object || box.Path != "_level0/box" {
		t.Fatalf("got %+v", box)
	}

	tick = advance(t, p, h)
	if tick.Frame != 2 {
		t.Fatalf("got %d", tick.Frame)
	}
	if move, ok := tick.Commands[0].(Move); !ok || move.Object != box.ID || move.Matrix.TranslateX != 100 {
		t.Fatalf("got %+v", tick.Commands)
	}
	expectTraces(t, tick, "f2")

	tick = advance(t, p, h)
	if tick.Frame != 3 || len(tick.Commands) != 1 {
		t.Fatalf("got %+v", tick)
	}
	if _, ok := tick.Commands[0].(Remove); !ok {
		t.Fatalf("got %+v", tick.Commands)
	}
	if _, ok := scene.Object(box.ID); ok {
		t.Fatal("removed object still in scene")
	}

	// loops back to the first frame
	tick = advance(t, p, h)
	if tick.Frame != 1 {
		t.Fatalf("got %d", tick.Frame)
	}
	expectTraces(t, tick, "f1")
	if len(scene.Children(scene.Root)) != 1 {
		t.Fatalf("got %v", scene.Children(scene.Root))
	}
}

func TestPlaceBeforeDefinition(t *testing.T) {
	p := newTestPlayer(t, DefaultOptions())
	h := load(t, p, swf.NewMovieBuilder(10).
		PlaceObject2(1, 5, swf.Identity, "early").
		DefineShape(5, square(100)).
		DoAction(trace("still running")).
		ShowFrame().
		PlaceObject2(2, 5, swf.Identity, "late").
		ShowFrame())

	tick := advance(t, p, h)
	for _, cmd := range tick.Commands {
		if _, ok := cmd.(Place); ok {
			t.Fatalf("got %+v", tick.Commands)
		}
	}
	if len(tick.Diagnostics) != 1 || !strings.Contains(tick.Diagnostics[0], "before its definition") {
		t.Fatalf("got %q", tick.Diagnostics)
	}
	expectTraces(t, tick, "still running")

	tick = advance(t, p, h)
	if place, ok := tick.Commands[0].(Place); !ok || place.Name != "late" {
		t.Fatalf("got %+v", tick.Commands)
	}
}

func TestScopePersistsAcrossGoto(t *testing.T) {
	p := newTestPlayer(t, DefaultOptions())
	h := load(t, p, swf.NewMovieBuilder(10).
		DefineShape(1, square(100)).
		PlaceObject2(1, 1, swf.Identity, "").
		DoAction(aw().PushString("count").PushNumber(0).Op(swf.ActionSetVariable).Bytes()).
		ShowFrame().
		DoAction(aw().
			PushString("count").
			PushString("count").Op(swf.ActionGetVariable).
			Op(swf.ActionIncrement).
			Op(swf.ActionSetVariable).
			PushString("count").Op(swf.ActionGetVariable).
			Op(swf.ActionTrace).
			Bytes()).
		ShowFrame().
		DoAction(aw().GotoFrame(1).Bytes()).
		ShowFrame())

	expectTraces(t, advance(t, p, h))
	expectTraces(t, advance(t, p, h), "1")

	// jumping back replays frame 1 tags without its script
	tick := advance(t, p, h)
	expectTraces(t, tick, "2")
	if tick.Frame != 2 {
		t.Fatalf("got %d", tick.Frame)
	}
	var removed, placed int
	for _, cmd := range tick.Commands {
		switch cmd.(type) {
		case Remove:
			removed++
		case Place:
			placed++
		}
	}
	if removed != 1 || placed != 1 {
		t.Fatalf("got %+v", tick.Commands)
	}

	expectTraces(t, advance(t, p, h), "3")
}

func TestSpritesAndPaths(t *testing.T) {
	p := newTestPlayer(t, DefaultOptions())
	menu := swf.NewMovieBuilder(10).
		DoAction(aw().
			PushString("score").Op(swf.ActionGetVariable).Op(swf.ActionTrace).
			PushString("_parent.title").Op(swf.ActionGetVariable).Op(swf.ActionTrace).
			GetURL("http://example.com", "_self").
			Bytes()).
		ShowFrame().
		DoAction(trace("menu2")).
		ShowFrame()
	h := load(t, p, swf.NewMovieBuilder(10).
		DefineSprite(7, menu).
		PlaceObject2(1, 7, at(100, 100), "menu").
		DoAction(aw().
			PushString("menu:score").PushNumber(5).Op(swf.ActionSetVariable).
			PushString("title").PushString("main").Op(swf.ActionSetVariable).
			PushString("/menu").Op(swf.ActionGetVariable).Op(swf.ActionTypeOf).Op(swf.ActionTrace).
			Op(swf.ActionStop).
			Bytes()).
		ShowFrame().
		ShowFrame())

	tick := advance(t, p, h)
	expectTraces(t, tick, "movieclip", "5", "main")
	var clips []string
	for _, cmd := range tick.Commands {
		switch cmd := cmd.(type) {
		case Trace:
			clips = append(clips, cmd.Clip)
		case GetURL:
			if cmd.URL != "http://example.com" || cmd.Clip != "_level0/menu" {
				t.Fatalf("got %+v", cmd)
			}
		}
	}
	if !slices.Equal(clips, []string{"_level0", "_level0/menu", "_level0/menu"}) {
		t.Fatalf("got %q", clips)
	}

	// root is stopped, the sprite keeps playing
	tick = advance(t, p, h)
	if tick.Frame != 1 {
		t.Fatalf("got %d", tick.Frame)
	}
	expectTraces(t, tick, "menu2")

	scene, err := p.Scene(h)
	if err != nil {
		t.Fatal(err)
	}
	obj, ok := scene.Find("_level0/menu")
	if !ok || obj.Kind != KindSprite || obj.scope.Props["score"] != float64(5) {
		t.Fatalf("got %+v", obj)
	}
}

func TestFaultIsolation(t *testing.T) {
	p := newTestPlayer(t, DefaultOptions())
	broken := swf.NewMovieBuilder(10).
		DoAction(aw().Op(swf.ActionPop).Bytes()).
		ShowFrame().
		DoAction(trace("a2")).
		ShowFrame()
	healthy := swf.NewMovieBuilder(10).
		DoAction(trace("b1")).
		ShowFrame().
		DoAction(trace("b2")).
		ShowFrame()
	h := load(t, p, swf.NewMovieBuilder(10).
		DefineSprite(10, broken).
		DefineSprite(11, healthy).
		PlaceObject2(1, 10, swf.Identity, "a").
		PlaceObject2(2, 11, swf.Identity, "b").
		ShowFrame().
		DoAction(trace("root2")).
		ShowFrame())

	tick := advance(t, p, h)
	if len(tick.Faults) != 1 || tick.Faults[0].Clip != "_level0/a" {
		t.Fatalf("got %+v", tick.Faults)
	}
	var fault *avm.Fault
	if !errors.As(tick.Faults[0], &fault) || fault.Kind != avm.StackUnderflow {
		t.Fatalf("got %v", tick.Faults[0])
	}
	expectTraces(t, tick, "b1")

	tick = advance(t, p, h)
	if len(tick.Faults) != 0 {
		t.Fatalf("got %+v", tick.Faults)
	}
	expectTraces(t, tick, "root2", "b2")
}

func buttonMovie() *swf.MovieBuilder {
	enter := swf.ButtonCondition(13 << 9)
	return swf.NewMovieBuilder(10).
		DefineShape(1, square(1000)).
		DefineButton2(2,
			[]swf.ButtonRecord{
				{States: swf.StateUp | swf.StateOver | swf.StateDown | swf.StateHitTest, CharacterID: 1, Depth: 1, Matrix: swf.Identity},
			},
			[]swf.ButtonCondition{
				swf.CondIdleToOverUp,
				swf.CondOverUpToIdle,
				swf.CondOverUpToOverDown,
				swf.CondOverDownToOverUp,
				enter,
			},
			[][]byte{
				trace("over"),
				trace("out"),
				trace("press"),
				aw().PushString("click").Op(swf.ActionTrace).Op(swf.ActionPlay).Bytes(),
				trace("enter"),
			},
		).
		PlaceObject2(1, 2, at(2000, 2000), "btn").
		DoAction(aw().Op(swf.ActionStop).Bytes()).
		ShowFrame().
		DoAction(trace("frame2")).
		ShowFrame()
}

func TestButtons(t *testing.T) {
	p := newTestPlayer(t, DefaultOptions())
	h := load(t, p, buttonMovie())
	advance(t, p, h)
	n, err := p.Normalizer(h, 20)
	if err != nil {
		t.Fatal(err)
	}
	scene, err := p.Scene(h)
	if err != nil {
		t.Fatal(err)
	}
	btn, ok := scene.Find("_level0/btn")
	if !ok || btn.Kind != KindButton || btn.Bounds != square(1000) {
		t.Fatalf("got %+v", btn)
	}

	dispatch := func(raw input.RawEvent) Tick {
		t.Helper()
		tick, err := p.DispatchEvent(t.Context(), h, n.Feed(raw))
		if err != nil {
			t.Fatal(err)
		}
		return tick
	}
	state := func(tick Tick) []ButtonState {
		var ret []ButtonState
		for _, cmd := range tick.Commands {
			if s, ok := cmd.(SetButtonState); ok && s.Object == btn.ID {
				ret = append(ret, s.State)
			}
		}
		return ret
	}

	tick := dispatch(input.RawEvent{Kind: input.RawPointerMove, X: 10, Y: 10})
	expectTraces(t, tick)

	tick = dispatch(input.RawEvent{Kind: input.RawPointerMove, X: 110, Y: 110})
	expectTraces(t, tick, "over")
	if !slices.Equal(state(tick), []ButtonState{Over}) {
		t.Fatalf("got %v", state(tick))
	}

	// moving inside keeps the state
	tick = dispatch(input.RawEvent{Kind: input.RawPointerMove, X: 120, Y: 120})
	if len(tick.Commands) != 0 {
		t.Fatalf("got %+v", tick.Commands)
	}

	tick = dispatch(input.RawEvent{Kind: input.RawPointerMove, X: 500, Y: 500})
	expectTraces(t, tick, "out")
	if btn.Button != Up {
		t.Fatalf("got %v", btn.Button)
	}

	dispatch(input.RawEvent{Kind: input.RawPointerMove, X: 110, Y: 110})
	tick = dispatch(input.RawEvent{Kind: input.RawPointerDown, X: 110, Y: 110})
	expectTraces(t, tick, "press")
	if btn.Button != Down {
		t.Fatalf("got %v", btn.Button)
	}

	tick = dispatch(input.RawEvent{Kind: input.RawPointerUp, X: 110, Y: 110})
	expectTraces(t, tick, "click")
	if !slices.Equal(state(tick), []ButtonState{Up}) {
		t.Fatalf("got %v", state(tick))
	}

	// the click resumed the timeline
	expectTraces(t, advance(t, p, h), "frame2")

	tick = dispatch(input.RawEvent{Kind: input.RawKeyDown, Key: "Enter"})
	expectTraces(t, tick, "enter")
	tick = dispatch(input.RawEvent{Kind: input.RawKeyDown, Key: "Escape"})
	expectTraces(t, tick)
}

func TestPressReleasedOutside(t *testing.T) {
	p := newTestPlayer(t, DefaultOptions())
	h := load(t, p, buttonMovie())
	advance(t, p, h)
	scene, err := p.Scene(h)
	if err != nil {
		t.Fatal(err)
	}
	btn, _ := scene.Find("_level0/btn")
	hit := input.Event{Kind: input.PointerDown, X: 2100, Y: 2100, Target: btn.ID, Hit: true}
	tick, err := p.DispatchEvent(t.Context(), h, hit)
	if err != nil {
		t.Fatal(err)
	}
	expectTraces(t, tick, "over", "press")

	if _, err := p.DispatchEvent(t.Context(), h, input.Event{Kind: input.PointerMove}); err != nil {
		t.Fatal(err)
	}
	if btn.Button != Up {
		t.Fatalf("got %v", btn.Button)
	}
	tick, err = p.DispatchEvent(t.Context(), h, input.Event{Kind: input.PointerUp})
	if err != nil {
		t.Fatal(err)
	}
	expectTraces(t, tick)
	if scene.Frame() != 1 {
		t.Fatal("release outside must not click")
	}
}

func TestLoadErrors(t *testing.T) {
	p := newTestPlayer(t, DefaultOptions())
	if _, err := p.Load("nil", nil); err == nil {
		t.Fatal("expecting error")
	}
	unit, err := swf.Decode(swf.NewMovieBuilder(10).
		Tag(swf.TagFileAttributes, []byte{0x08, 0, 0, 0}).
		ShowFrame().
		Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Load("as3", unit); !errors.Is(err, ErrActionScript3) {
		t.Fatalf("got %v", err)
	}

	h := load(t, p, swf.NewMovieBuilder(10).ShowFrame())
	if _, err := p.Resume(t.Context(), h); !errors.Is(err, ErrNotSuspended) {
		t.Fatalf("got %v", err)
	}
	if err := p.Unload(h); err != nil {
		t.Fatal(err)
	}
	if _, err := p.AdvanceFrame(t.Context(), h); !errors.Is(err, ErrUnknownMovie) {
		t.Fatalf("got %v", err)
	}
	if err := p.Unload(h); !errors.Is(err, ErrUnknownMovie) {
		t.Fatalf("got %v", err)
	}
}

func TestTickScriptLimit(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxScriptsPerTick = 3
	p := newTestPlayer(t, opts)
	// every run of frame 2 jumps back to frame 2
	h := load(t, p, swf.NewMovieBuilder(10).
		ShowFrame().
		DoAction(aw().PushString("x").Op(swf.ActionTrace).GotoFrame(0).GotoFrame(1).Bytes()).
		ShowFrame())
	advance(t, p, h)
	tick := advance(t, p, h)
	if len(traces(tick)) != 3 {
		t.Fatalf("got %q", traces(tick))
	}
	if len(tick.Diagnostics) != 1 {
		t.Fatalf("got %q", tick.Diagnostics)
	}
}
