package swf

// ButtonRecord is one character of a button's state layers.
type ButtonRecord struct {
	States         ButtonStates
	CharacterID    uint16
	Depth          uint16
	Matrix         Matrix
	ColorTransform *ColorTransform
	BlendMode      uint8
}

type ButtonStates uint8

const (
	StateUp ButtonStates = 1 << iota
	StateOver
	StateDown
	StateHitTest
)

// Condition bits of DefineButton2 actions, with the key code in bits 9..15.
type ButtonCondition uint16

const (
	CondIdleToOverUp ButtonCondition = 1 << iota
	CondOverUpToIdle
	CondOverUpToOverDown
	CondOverDownToOverUp
	CondOverDownToOutDown
	CondOutDownToOverDown
	CondOutDownToIdle
	CondIdleToOverDown
	CondOverDownToIdle
)

func (c ButtonCondition) KeyCode() uint8 {
	return uint8(c >> 9)
}

func (c ButtonCondition) Has(cond ButtonCondition) bool {
	return c&cond != 0
}

type ButtonCondAction struct {
	Conditions ButtonCondition
	Actions    Actions
}

// DefineButton is shared by both button versions. Version 1 buttons have a
// single action list run on release, stored as a CondOverDownToOverUp entry.
type DefineButton struct {
	Version     int
	ID          uint16
	TrackAsMenu bool
	Records     []ButtonRecord
	Actions     []ButtonCondAction
}

func (t *DefineButton) Code() TagCode {
	if t.Version == 2 {
		return TagDefineButton2
	}
	return TagDefineButton
}

func (t *DefineButton) CharacterID() uint16 { return t.ID }

// HitBounds is the union of the hit-test layer's character bounds, looked up
// with boundsOf.
func (t *DefineButton) HitBounds(boundsOf func(id uint16) (Rect, bool)) Rect {
	var ret Rect
	for _, rec := range t.Records {
		if rec.States&StateHitTest == 0 {
			continue
		}
		b, ok := boundsOf(rec.CharacterID)
		if !ok {
			continue
		}
		ret = ret.Union(rec.Matrix.Bounds(b))
	}
	return ret
}
