package stage

import (
	"fmt"
	"maps"
	"slices"

	"github.com/reusee/relic/avm"
	"github.com/reusee/relic/input"
	"github.com/reusee/relic/swf"
)

type ObjectID = input.ObjectID

type Kind uint8

const (
	KindShape Kind = iota + 1
	KindSprite
	KindButton
	KindOther
)

var kindNames = map[Kind]string{
	KindShape:  "shape",
	KindSprite: "sprite",
	KindButton: "button",
	KindOther:  "other",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

type ButtonState uint8

const (
	Up ButtonState = iota
	Over
	Down
)

var buttonStateNames = map[ButtonState]string{
	Up:   "up",
	Over: "over",
	Down: "down",
}

func (s ButtonState) String() string {
	if name, ok := buttonStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("ButtonState(%d)", uint8(s))
}

// DisplayObject is an entry of the scene arena. Parent and Children are
// handles into the same arena; the root timeline has no parent.
type DisplayObject struct {
	ID          ObjectID
	Parent      ObjectID
	Depth       uint16
	CharacterID uint16
	Kind        Kind
	Name        string
	Path        string
	Matrix      swf.Matrix
	// Bounds are local; for buttons they cover the hit-test records.
	Bounds   swf.Rect
	Button   ButtonState
	Children map[uint16]ObjectID

	timeline *timeline
	button   *swf.DefineButton
	scope    *avm.Object
	halted   bool
}

// SceneState is the display state of one movie.
type SceneState struct {
	Root       ObjectID
	Background swf.RGBA
	FrameCount int

	objects    map[ObjectID]*DisplayObject
	nextID     ObjectID
	dictionary map[uint16]swf.Definition
}

var _ input.Scene = new(SceneState)

func newScene(frameCount int) *SceneState {
	s := &SceneState{
		FrameCount: frameCount,
		objects:    make(map[ObjectID]*DisplayObject),
		dictionary: make(map[uint16]swf.Definition),
	}
	return s
}

func (s *SceneState) add(obj *DisplayObject) *DisplayObject {
	s.nextID++
	obj.ID = s.nextID
	if obj.Kind == KindSprite {
		obj.Children = make(map[uint16]ObjectID)
	}
	s.objects[obj.ID] = obj
	return obj
}

func (s *SceneState) Object(id ObjectID) (*DisplayObject, bool) {
	obj, ok := s.objects[id]
	return obj, ok
}

func (s *SceneState) Len() int {
	return len(s.objects)
}

// Frame is the root timeline's current frame, 1 based, 0 before the first
// advance.
func (s *SceneState) Frame() int {
	root, ok := s.objects[s.Root]
	if !ok {
		return 0
	}
	return root.timeline.current + 1
}

// Children lists a clip's children by depth, bottom first.
func (s *SceneState) Children(id ObjectID) []ObjectID {
	obj, ok := s.objects[id]
	if !ok {
		return nil
	}
	depths := slices.Sorted(maps.Keys(obj.Children))
	ret := make([]ObjectID, 0, len(depths))
	for _, depth := range depths {
		ret = append(ret, obj.Children[depth])
	}
	return ret
}

// At returns the child of parent at depth.
func (s *SceneState) At(parent ObjectID, depth uint16) (*DisplayObject, bool) {
	obj, ok := s.objects[parent]
	if !ok {
		return nil, false
	}
	id, ok := obj.Children[depth]
	if !ok {
		return nil, false
	}
	return s.objects[id], true
}

// Find returns the object with the given target path.
func (s *SceneState) Find(path string) (*DisplayObject, bool) {
	for _, obj := range s.objects {
		if obj.Path == path {
			return obj, true
		}
	}
	return nil, false
}

// Walk visits the display list in drawing order with each object's
// stage matrix.
func (s *SceneState) Walk(fn func(obj *DisplayObject, matrix swf.Matrix, order []uint16) bool) {
	root, ok := s.objects[s.Root]
	if !ok {
		return
	}
	var walk func(obj *DisplayObject, matrix swf.Matrix, order []uint16) bool
	walk = func(obj *DisplayObject, matrix swf.Matrix, order []uint16) bool {
		for _, id := range s.Children(obj.ID) {
			child := s.objects[id]
			m := matrix.Concat(child.Matrix)
			o := append(slices.Clip(order), child.Depth)
			if !fn(child, m, o) {
				return false
			}
			if child.Kind == KindSprite && !walk(child, m, o) {
				return false
			}
		}
		return true
	}
	walk(root, swf.Identity, nil)
}

// Candidates lists buttons for hit testing.
func (s *SceneState) Candidates() []input.Candidate {
	var ret []input.Candidate
	s.Walk(func(obj *DisplayObject, matrix swf.Matrix, order []uint16) bool {
		if obj.Kind == KindButton {
			ret = append(ret, input.Candidate{
				ID:          obj.ID,
				Order:       order,
				Matrix:      matrix,
				Bounds:      obj.Bounds,
				Interactive: !obj.halted,
			})
		}
		return true
	})
	return ret
}

// shapeBounds is the local bounds of a shape definition. Button records
// naming anything else do not contribute to the hit area.
func (s *SceneState) shapeBounds(id uint16) (swf.Rect, bool) {
	def, ok := s.dictionary[id].(*swf.DefineShape)
	if !ok {
		return swf.Rect{}, false
	}
	return def.Bounds, true
}
