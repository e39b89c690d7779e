package debugs

import (
	"github.com/fxamacker/cbor/v2"
)

// State is a detached snapshot for inspection UIs.
type State struct {
	Status      string            `cbor:"status"`
	Running     bool              `cbor:"running"`
	Paused      bool              `cbor:"paused"`
	Reason      string            `cbor:"reason,omitempty"`
	Location    *Location         `cbor:"location,omitempty"`
	Depth       int               `cbor:"depth"`
	Breakpoints []BreakpointState `cbor:"breakpoints"`
	CallStack   []StackFrame      `cbor:"callStack"`
	Variables   map[string]any    `cbor:"variables"`
	Watches     []WatchState      `cbor:"watches"`
}

type BreakpointState struct {
	ID        int      `cbor:"id"`
	Location  Location `cbor:"location"`
	Enabled   bool     `cbor:"enabled"`
	Condition string   `cbor:"condition,omitempty"`
	Hits      int      `cbor:"hits"`
	Error     string   `cbor:"error,omitempty"`
}

type WatchState struct {
	ID    int    `cbor:"id"`
	Expr  string `cbor:"expr"`
	Value any    `cbor:"value"`
	Error string `cbor:"error,omitempty"`
}

func (d *Debugger) State() State {
	state := State{
		Status:    d.status.String(),
		Running:   d.status == Running,
		Paused:    d.status == Paused,
		Reason:    d.reason,
		Depth:     d.depth,
		CallStack: append([]StackFrame{}, d.callStack...),
		Variables: make(map[string]any, len(d.variables)),
	}
	if d.stop != nil {
		loc := d.stop.Location
		state.Location = &loc
		state.Depth = d.stop.Depth
	}
	for name, v := range d.variables {
		state.Variables[name] = v
	}
	for _, bp := range d.breakpoints {
		s := BreakpointState{
			ID:        bp.ID,
			Location:  bp.Location,
			Enabled:   bp.Enabled,
			Condition: bp.Condition,
			Hits:      bp.Hits,
		}
		if bp.Err != nil {
			s.Error = bp.Err.Error()
		}
		state.Breakpoints = append(state.Breakpoints, s)
	}
	for _, w := range d.watches {
		s := WatchState{
			ID:    w.ID,
			Expr:  w.Expr,
			Value: w.Value,
		}
		if w.Err != nil {
			s.Error = w.Err.Error()
		}
		state.Watches = append(state.Watches, s)
	}
	return state
}

var stateEncMode = func() cbor.EncMode {
	mode, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return mode
}()

func (s State) MarshalCBOR() ([]byte, error) {
	type plain State
	return stateEncMode.Marshal(plain(s))
}

func DecodeState(data []byte) (state State, err error) {
	type plain State
	var p plain
	if err := cbor.Unmarshal(data, &p); err != nil {
		return state, err
	}
	return State(p), nil
}

func (Undefined) MarshalCBOR() ([]byte, error) {
	return []byte{0xf7}, nil
}
