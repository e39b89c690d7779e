package input

import (
	"slices"
	"testing"

	"github.com/reusee/relic/swf"
)

type testScene []Candidate

func (s testScene) Candidates() []Candidate {
	return s
}

func box(w, h int32) swf.Rect {
	return swf.Rect{Xmax: w, Ymax: h}
}

func at(x, y int32) swf.Matrix {
	m := swf.Identity
	m.TranslateX = x
	m.TranslateY = y
	return m
}

func TestHitTest(t *testing.T) {
	scaled := at(2000, 0)
	scaled.ScaleX = 2
	scaled.ScaleY = 2
	scene := testScene{
		{ID: 1, Order: []uint16{1}, Matrix: at(0, 0), Bounds: box(1000, 1000), Interactive: true},
		{ID: 2, Order: []uint16{3}, Matrix: at(500, 500), Bounds: box(1000, 1000), Interactive: true},
		// nested under depth 2, below depth 3
		{ID: 3, Order: []uint16{2, 9}, Matrix: at(400, 400), Bounds: box(200, 200), Interactive: true},
		{ID: 4, Order: []uint16{4}, Matrix: at(0, 0), Bounds: box(3000, 3000)},
		{ID: 5, Order: []uint16{1, 1}, Matrix: scaled, Bounds: box(100, 100), Interactive: true},
	}
	before := slices.Clone(scene)
	n := NewNormalizer(scene, 20)

	cases := []struct {
		x, y   int32
		id     ObjectID
		hit    bool
	}{
		{100, 100, 1, true},
		{600, 600, 2, true},
		{450, 450, 3, true},
		{1499, 1499, 2, true},
		{1500, 1500, 0, false},
		{2150, 150, 5, true},
		{2201, 150, 0, false},
		{-1, 0, 0, false},
	}
	for _, c := range cases {
		id, ok := n.HitTest(c.x, c.y)
		if id != c.id || ok != c.hit {
			t.Fatalf("(%d,%d): got %d %v", c.x, c.y, id, ok)
		}
	}

	for i := range scene {
		if scene[i].ID != before[i].ID {
			t.Fatal("scene reordered")
		}
	}
}

func TestFeedPointer(t *testing.T) {
	scene := testScene{
		{ID: 7, Order: []uint16{1}, Matrix: at(200, 200), Bounds: box(400, 400), Interactive: true},
	}
	n := NewNormalizer(scene, 0)
	if n.Scale() != 20 {
		t.Fatalf("got %v", n.Scale())
	}

	ev := n.Feed(RawEvent{Kind: RawPointerDown, X: 15.5, Y: 20})
	if ev.Kind != PointerDown || ev.X != 310 || ev.Y != 400 {
		t.Fatalf("got %v", ev)
	}
	if !ev.Hit || ev.Target != 7 {
		t.Fatalf("got %v", ev)
	}

	ev = n.Feed(RawEvent{Kind: RawPointerMove, X: 100, Y: 100})
	if ev.Kind != PointerMove || ev.Hit {
		t.Fatalf("got %v", ev)
	}

	ev = n.Feed(RawEvent{Kind: RawPointerUp, X: 1e300, Y: -1e300})
	if ev.X != 2147483647 || ev.Y != -2147483648 {
		t.Fatalf("got %v", ev)
	}

	if ev := NewNormalizer(nil, 20).Feed(RawEvent{Kind: RawPointerMove, X: 1, Y: 1}); ev.Hit {
		t.Fatalf("got %v", ev)
	}
}

func TestFeedKeys(t *testing.T) {
	n := NewNormalizer(nil, 20)
	cases := []struct {
		raw    RawEvent
		kind   Kind
		code   uint8
		button uint8
		char   rune
	}{
		{RawEvent{Kind: RawKeyDown, Key: "ArrowLeft"}, KeyDown, 37, 1, 0},
		{RawEvent{Kind: RawKeyDown, Key: "Left"}, KeyDown, 37, 1, 0},
		{RawEvent{Kind: RawKeyUp, Key: "Enter"}, KeyUp, 13, 13, 0},
		{RawEvent{Kind: RawKeyDown, Key: "Escape"}, KeyDown, 27, 19, 0},
		{RawEvent{Kind: RawKeyDown, Key: "Tab"}, KeyDown, 9, 18, 0},
		{RawEvent{Kind: RawKeyDown, Key: "F5"}, KeyDown, 116, 0, 0},
		{RawEvent{Kind: RawKeyDown, Key: "Space"}, KeyDown, 32, 32, ' '},
		{RawEvent{Kind: RawKeyDown, Rune: 'a'}, KeyDown, 65, 'a', 'a'},
		{RawEvent{Kind: RawKeyDown, Key: "A"}, KeyDown, 65, 'A', 'A'},
		{RawEvent{Kind: RawKeyDown, Rune: '7'}, KeyDown, 55, '7', '7'},
		{RawEvent{Kind: RawKeyDown, Rune: '?'}, KeyDown, 191, '?', '?'},
		{RawEvent{Kind: RawKeyDown, Rune: 'é'}, KeyDown, 0, 0, 'é'},
		{RawEvent{Kind: RawKeyDown, Key: "MediaPlay"}, KeyDown, 0, 0, 0},
	}
	for _, c := range cases {
		ev := n.Feed(c.raw)
		if ev.Kind != c.kind || ev.KeyCode != c.code || ev.ButtonKey != c.button || ev.Char != c.char {
			t.Fatalf("%+v: got %+v", c.raw, ev)
		}
		if ev.Hit {
			t.Fatal("key events do not hit")
		}
	}
}
