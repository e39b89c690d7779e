package stage

import (
	"fmt"

	"github.com/reusee/relic/swf"
)

// Command is a scene change for the renderer.
type Command interface {
	isCommand()
}

type Place struct {
	Object      ObjectID
	Parent      ObjectID
	Depth       uint16
	CharacterID uint16
	Kind        Kind
	Name        string
	Matrix      swf.Matrix
}

type Move struct {
	Object ObjectID
	Matrix swf.Matrix
}

type Remove struct {
	Object ObjectID
	Parent ObjectID
	Depth  uint16
}

type SetBackground struct {
	Color swf.RGBA
}

type SetButtonState struct {
	Object ObjectID
	State  ButtonState
}

type Trace struct {
	Clip    string
	Message string
}

type GetURL struct {
	Clip   string
	URL    string
	Window string
}

func (Place) isCommand()          {}
func (Move) isCommand()           {}
func (Remove) isCommand()         {}
func (SetBackground) isCommand()  {}
func (SetButtonState) isCommand() {}
func (Trace) isCommand()          {}
func (GetURL) isCommand()         {}

// ScriptFault is a script failure. Only the clip at Clip halts.
type ScriptFault struct {
	Clip   string
	Object ObjectID
	Err    error
}

func (s ScriptFault) Error() string {
	return fmt.Sprintf("%s: %v", s.Clip, s.Err)
}

func (s ScriptFault) Unwrap() error {
	return s.Err
}

// Tick is the outcome of one advance, event or resume. Suspended is set
// when a script is paused by the debugger; Player.Resume continues it.
type Tick struct {
	Frame       int
	Commands    []Command
	Faults      []ScriptFault
	Diagnostics []string
	Suspended   bool
}

func (t *Tick) emit(cmd Command) {
	t.Commands = append(t.Commands, cmd)
}

func (t *Tick) diagnose(format string, args ...any) {
	t.Diagnostics = append(t.Diagnostics, fmt.Sprintf(format, args...))
}
