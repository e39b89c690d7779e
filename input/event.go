package input

import "fmt"

// ObjectID identifies a display object in a scene.
type ObjectID uint32

type RawKind uint8

const (
	RawPointerMove RawKind = iota + 1
	RawPointerDown
	RawPointerUp
	RawKeyDown
	RawKeyUp
)

// RawEvent is host input. Pointer coordinates are in pixels relative to the
// stage origin. Key is a host key name such as "ArrowLeft" or "Enter", or
// empty when Rune carries a printable character.
type RawEvent struct {
	Kind   RawKind
	X, Y   float64
	Button int
	Key    string
	Rune   rune
}

type Kind uint8

const (
	PointerMove Kind = iota + 1
	PointerDown
	PointerUp
	KeyDown
	KeyUp
)

var kindNames = map[Kind]string{
	PointerMove: "PointerMove",
	PointerDown: "PointerDown",
	PointerUp:   "PointerUp",
	KeyDown:     "KeyDown",
	KeyUp:       "KeyUp",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

func (k Kind) IsPointer() bool {
	return k == PointerMove || k == PointerDown || k == PointerUp
}

// Event is a normalized event. X and Y are in twips. Target is the topmost
// interactive object under the pointer when Hit is set. KeyCode is the
// script-visible key code and ButtonKey the code matched against button
// key conditions; both are zero when the key has no mapping.
type Event struct {
	Kind      Kind
	X, Y      int32
	Target    ObjectID
	Hit       bool
	KeyCode   uint8
	ButtonKey uint8
	Char      rune
}

func (e Event) String() string {
	switch {
	case e.Kind.IsPointer() && e.Hit:
		return fmt.Sprintf("%s(%d,%d -> #%d)", e.Kind, e.X, e.Y, e.Target)
	case e.Kind.IsPointer():
		return fmt.Sprintf("%s(%d,%d)", e.Kind, e.X, e.Y)
	}
	return fmt.Sprintf("%s(%d)", e.Kind, e.KeyCode)
}
