package input

import (
	"math"
	"slices"

	"github.com/reusee/relic/swf"
)

// Candidate is a display object the normalizer may hit. Order is the depth
// path from the root timeline; larger paths are drawn on top. Bounds are in
// the object's own space and Matrix maps them to stage twips.
type Candidate struct {
	ID          ObjectID
	Order       []uint16
	Matrix      swf.Matrix
	Bounds      swf.Rect
	Interactive bool
}

// Scene is the read-only view of a display list used for hit testing.
type Scene interface {
	Candidates() []Candidate
}

// Normalizer translates raw host input into events. It keeps no state
// besides the scale and never changes the scene.
type Normalizer struct {
	scene Scene
	scale float64
}

// NewNormalizer converts pixels to twips with scale, 20 when not positive.
func NewNormalizer(scene Scene, scale float64) *Normalizer {
	if scale <= 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		scale = 20
	}
	return &Normalizer{
		scene: scene,
		scale: scale,
	}
}

func (n *Normalizer) Scale() float64 {
	return n.scale
}

func (n *Normalizer) twips(px float64) int32 {
	v := math.Round(px * n.scale)
	switch {
	case math.IsNaN(v):
		return 0
	case v > math.MaxInt32:
		return math.MaxInt32
	case v < math.MinInt32:
		return math.MinInt32
	}
	return int32(v)
}

func (n *Normalizer) Feed(raw RawEvent) Event {
	var ev Event
	switch raw.Kind {
	case RawPointerMove, RawPointerDown, RawPointerUp:
		ev.Kind = map[RawKind]Kind{
			RawPointerMove: PointerMove,
			RawPointerDown: PointerDown,
			RawPointerUp:   PointerUp,
		}[raw.Kind]
		ev.X = n.twips(raw.X)
		ev.Y = n.twips(raw.Y)
		ev.Target, ev.Hit = n.HitTest(ev.X, ev.Y)
	case RawKeyDown, RawKeyUp:
		ev.Kind = KeyDown
		if raw.Kind == RawKeyUp {
			ev.Kind = KeyUp
		}
		ev.KeyCode, ev.ButtonKey, ev.Char = mapKey(raw.Key, raw.Rune)
	}
	return ev
}

// HitTest returns the topmost interactive candidate containing the point,
// given in twips.
func (n *Normalizer) HitTest(x, y int32) (ObjectID, bool) {
	if n.scene == nil {
		return 0, false
	}
	candidates := slices.Clone(n.scene.Candidates())
	slices.SortStableFunc(candidates, func(a, b Candidate) int {
		return slices.Compare(b.Order, a.Order)
	})
	for _, c := range candidates {
		if !c.Interactive || c.Bounds.Empty() {
			continue
		}
		if contains(c, x, y) {
			return c.ID, true
		}
	}
	return 0, false
}

func contains(c Candidate, x, y int32) bool {
	lx, ly, ok := c.Matrix.Invert(x, y)
	if !ok {
		// degenerate transforms fall back to the transformed box
		return c.Matrix.Bounds(c.Bounds).Contains(x, y)
	}
	return c.Bounds.Contains(lx, ly)
}
