package stage

import (
	"fmt"

	"github.com/reusee/relic/avm"
	"github.com/reusee/relic/input"
	"github.com/reusee/relic/swf"
)

// pointer drives the button state machine. States change only on hit
// results and the pointer button; scripts never move them.
func (m *movie) pointer(ev input.Event) {
	var target *DisplayObject
	if ev.Hit {
		if obj, ok := m.scene.Object(ev.Target); ok && obj.Kind == KindButton && !obj.halted {
			target = obj
		}
	}
	hover, _ := m.scene.Object(m.hover)
	pressed, _ := m.scene.Object(m.pressed)

	switch ev.Kind {

	case input.PointerMove:
		if target == hover {
			return
		}
		if hover != nil {
			switch hover.Button {
			case Over:
				m.transition(hover, Up, swf.CondOverUpToIdle)
			case Down:
				m.transition(hover, Up, swf.CondOverDownToOutDown)
			}
		}
		m.hover = 0
		if target != nil {
			m.hover = target.ID
			switch {
			case !m.pointerDown:
				m.transition(target, Over, swf.CondIdleToOverUp)
			case target == pressed:
				m.transition(target, Down, swf.CondOutDownToOverDown)
			}
		}

	case input.PointerDown:
		m.pointerDown = true
		m.pressed = 0
		if target == nil {
			return
		}
		if target != hover && hover != nil && hover.Button == Over {
			m.transition(hover, Up, swf.CondOverUpToIdle)
		}
		if target.Button == Up {
			m.transition(target, Over, swf.CondIdleToOverUp)
		}
		m.transition(target, Down, swf.CondOverUpToOverDown)
		m.hover = target.ID
		m.pressed = target.ID

	case input.PointerUp:
		m.pointerDown = false
		m.pressed = 0
		if pressed == nil {
			return
		}
		if target == pressed && pressed.Button == Down {
			// click
			m.transition(pressed, Up, swf.CondOverDownToOverUp)
			m.hover = 0
			return
		}
		m.transition(pressed, Up, swf.CondOutDownToIdle)
	}
}

func (m *movie) transition(obj *DisplayObject, state ButtonState, cond swf.ButtonCondition) {
	if obj.Button != state {
		obj.Button = state
		m.tick.emit(SetButtonState{
			Object: obj.ID,
			State:  state,
		})
	}
	for _, action := range obj.button.Actions {
		if action.Conditions.Has(cond) {
			m.buttonScript(obj, action.Actions)
		}
	}
}

// key fires key-press button actions matching the event's button key,
// bottom buttons first.
func (m *movie) key(ev input.Event) {
	if ev.Kind != input.KeyDown || ev.ButtonKey == 0 {
		return
	}
	var buttons []*DisplayObject
	m.scene.Walk(func(obj *DisplayObject, _ swf.Matrix, _ []uint16) bool {
		if obj.Kind == KindButton && !obj.halted {
			buttons = append(buttons, obj)
		}
		return true
	})
	for _, obj := range buttons {
		for _, action := range obj.button.Actions {
			if action.Conditions.KeyCode() == ev.ButtonKey {
				m.buttonScript(obj, action.Actions)
			}
		}
	}
}

// buttonScript queues actions to run in the scope of the button's clip.
func (m *movie) buttonScript(obj *DisplayObject, actions swf.Actions) {
	parent, ok := m.scene.Object(obj.Parent)
	if !ok {
		return
	}
	m.pending = append(m.pending, job{
		obj:  obj.ID,
		clip: parent.ID,
		script: avm.Script{
			Unit:    parent.Path,
			Name:    fmt.Sprintf("button%d", obj.CharacterID),
			Actions: actions,
		},
	})
}
