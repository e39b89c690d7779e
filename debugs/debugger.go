package debugs

import (
	"errors"
	"fmt"
	"slices"
	"sync/atomic"

	"github.com/reusee/relic/logs"
)

type Status uint8

const (
	Stopped Status = iota
	Running
	Paused
)

func (s Status) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Running:
		return "running"
	case Paused:
		return "paused"
	}
	return fmt.Sprintf("status(%d)", s)
}

var (
	ErrNotAttached = errors.New("debugger not attached")
	ErrAttached    = errors.New("debugger already attached")
	ErrNotPaused   = errors.New("not paused")
	ErrNotFound    = errors.New("not found")
)

type Breakpoint struct {
	ID        int
	Location  Location
	Enabled   bool
	Condition string
	Hits      int
	// Err is the last condition failure
	Err  error
	cond *Expr
}

type Watch struct {
	ID    int
	Expr  string
	Value any
	Err   error
	expr  *Expr
}

type stepMode uint8

const (
	stepNone stepMode = iota
	stepOver
	stepInto
	stepOut
)

// variableDepth bounds how far snapshots descend into engine objects.
const variableDepth = 3

// Debugger observes one engine at a time. Control methods are called by
// the host between ticks or while paused, Pause may also be called from
// another goroutine.
type Debugger struct {
	logger logs.Logger

	target Target
	status Status

	breakpoints []*Breakpoint
	watches     []*Watch
	nextID      int

	pauseRequested atomic.Bool
	step           stepMode
	stepDepth      int
	depth          int

	stop      *Stop
	reason    string
	variables map[string]any
	callStack []StackFrame
}

var _ Observer = new(Debugger)

func NewDebugger(logger logs.Logger) *Debugger {
	return &Debugger{
		logger: logger,
	}
}

func (d *Debugger) Status() Status {
	return d.status
}

func (d *Debugger) Attach(target Target) error {
	if d.target != nil {
		return ErrAttached
	}
	d.target = target
	d.status = Running
	target.SetObserver(d)
	d.logger.Info("debugger attached")
	return nil
}

func (d *Debugger) Detach() {
	if d.target != nil {
		d.target.SetObserver(nil)
		d.target = nil
	}
	d.status = Stopped
	d.step = stepNone
	d.pauseRequested.Store(false)
	d.depth = 0
	d.invalidate()
	d.logger.Info("debugger detached")
}

// Unloaded is called by engines when a unit is unloaded or an invocation
// is abandoned. A pause inside that unit ends and watches become
// unavailable.
func (d *Debugger) Unloaded(unit string) {
	if d.stop == nil || d.stop.Location.Unit != unit && unit != "" {
		return
	}
	d.invalidate()
	if d.status == Paused {
		d.status = Running
	}
	d.step = stepNone
	d.logger.Info("paused unit unloaded", "unit", unit)
}

func (d *Debugger) invalidate() {
	d.stop = nil
	d.reason = ""
	d.variables = nil
	d.callStack = nil
	for _, w := range d.watches {
		w.Value = nil
		w.Err = ErrUnavailable
	}
}

func (d *Debugger) SetBreakpoint(loc Location, condition string) (int, error) {
	bp := &Breakpoint{
		Location:  loc,
		Enabled:   true,
		Condition: condition,
	}
	if condition != "" {
		expr, err := Compile(condition)
		if err != nil {
			return 0, err
		}
		bp.cond = expr
	}
	d.nextID++
	bp.ID = d.nextID
	d.breakpoints = append(d.breakpoints, bp)
	return bp.ID, nil
}

func (d *Debugger) RemoveBreakpoint(id int) error {
	i := slices.IndexFunc(d.breakpoints, func(bp *Breakpoint) bool {
		return bp.ID == id
	})
	if i < 0 {
		return fmt.Errorf("breakpoint %d: %w", id, ErrNotFound)
	}
	d.breakpoints = slices.Delete(d.breakpoints, i, i+1)
	return nil
}

// ToggleBreakpoint flips the enabled flag and returns the new value.
func (d *Debugger) ToggleBreakpoint(id int) (bool, error) {
	for _, bp := range d.breakpoints {
		if bp.ID == id {
			bp.Enabled = !bp.Enabled
			return bp.Enabled, nil
		}
	}
	return false, fmt.Errorf("breakpoint %d: %w", id, ErrNotFound)
}

// SetCondition replaces the condition of a breakpoint, "" clears it.
func (d *Debugger) SetCondition(id int, condition string) error {
	for _, bp := range d.breakpoints {
		if bp.ID != id {
			continue
		}
		var expr *Expr
		if condition != "" {
			var err error
			expr, err = Compile(condition)
			if err != nil {
				return err
			}
		}
		bp.Condition = condition
		bp.cond = expr
		bp.Err = nil
		return nil
	}
	return fmt.Errorf("breakpoint %d: %w", id, ErrNotFound)
}

func (d *Debugger) Breakpoints() []Breakpoint {
	ret := make([]Breakpoint, 0, len(d.breakpoints))
	for _, bp := range d.breakpoints {
		ret = append(ret, *bp)
	}
	return ret
}

func (d *Debugger) AddWatchExpression(src string) (int, error) {
	expr, err := Compile(src)
	if err != nil {
		return 0, err
	}
	d.nextID++
	w := &Watch{
		ID:   d.nextID,
		Expr: src,
		expr: expr,
	}
	d.evalWatch(w)
	d.watches = append(d.watches, w)
	return w.ID, nil
}

func (d *Debugger) RemoveWatchExpression(id int) error {
	i := slices.IndexFunc(d.watches, func(w *Watch) bool {
		return w.ID == id
	})
	if i < 0 {
		return fmt.Errorf("watch %d: %w", id, ErrNotFound)
	}
	d.watches = slices.Delete(d.watches, i, i+1)
	return nil
}

func (d *Debugger) Watches() []Watch {
	ret := make([]Watch, 0, len(d.watches))
	for _, w := range d.watches {
		ret = append(ret, *w)
	}
	return ret
}

func (d *Debugger) evalWatch(w *Watch) {
	if d.stop == nil || d.stop.Scope == nil {
		w.Value = nil
		w.Err = ErrUnavailable
		return
	}
	v, err := w.expr.Eval(d.stop.Scope.Lookup)
	if err != nil {
		w.Value = nil
		w.Err = err
		return
	}
	w.Value = Plain(v, variableDepth)
	w.Err = nil
}

// Pause asks the engine to stop before its next instruction.
func (d *Debugger) Pause() error {
	if d.status == Stopped {
		return ErrNotAttached
	}
	d.pauseRequested.Store(true)
	return nil
}

func (d *Debugger) Resume() error {
	return d.resume(stepNone)
}

func (d *Debugger) StepOver() error {
	return d.resume(stepOver)
}

func (d *Debugger) StepInto() error {
	return d.resume(stepInto)
}

func (d *Debugger) StepOut() error {
	return d.resume(stepOut)
}

func (d *Debugger) resume(mode stepMode) error {
	if d.status != Paused {
		return ErrNotPaused
	}
	d.step = mode
	if d.stop != nil {
		d.stepDepth = d.stop.Depth
	} else {
		d.stepDepth = d.depth
	}
	d.stop = nil
	d.variables = nil
	d.callStack = nil
	d.status = Running
	return nil
}

func (d *Debugger) Enter(depth int) {
	d.depth = depth
}

func (d *Debugger) Leave(depth int) {
	d.depth = depth
	if depth == 0 {
		// invocation finished, a pending step has nowhere to land
		d.step = stepNone
	}
}

func (d *Debugger) Check(stop Stop) bool {
	if d.status != Running {
		return false
	}
	d.depth = stop.Depth

	var reason string
	if d.pauseRequested.Swap(false) {
		reason = "pause"
	} else if d.stepDone(stop) {
		reason = "step"
	} else if bp := d.matchBreakpoint(stop); bp != nil {
		reason = fmt.Sprintf("breakpoint %d", bp.ID)
	}
	if reason == "" {
		return false
	}

	d.status = Paused
	d.step = stepNone
	d.stop = &stop
	d.reason = reason
	if stop.Scope != nil {
		vars := stop.Scope.Variables()
		d.variables = make(map[string]any, len(vars))
		for name, v := range vars {
			d.variables[name] = Plain(v, variableDepth)
		}
		d.callStack = slices.Clone(stop.Scope.CallStack())
	}
	for _, w := range d.watches {
		d.evalWatch(w)
	}
	d.logger.Info("paused",
		"reason", reason,
		"unit", stop.Location.Unit,
		"method", stop.Location.Member,
		"pc", stop.Location.PC,
		"depth", stop.Depth,
	)
	return true
}

func (d *Debugger) stepDone(stop Stop) bool {
	atLine := stop.LineStart || stop.Location.Line == 0
	switch d.step {
	case stepOver:
		return stop.Depth <= d.stepDepth && atLine
	case stepInto:
		return stop.Depth > d.stepDepth && atLine
	case stepOut:
		return stop.Depth <= d.stepDepth-1
	}
	return false
}

func (d *Debugger) matchBreakpoint(stop Stop) *Breakpoint {
	for _, bp := range d.breakpoints {
		if !bp.Enabled || !bp.Location.matches(stop.Location, stop.LineStart) {
			continue
		}
		if bp.cond != nil {
			var lookup Lookup
			if stop.Scope != nil {
				lookup = stop.Scope.Lookup
			}
			v, err := bp.cond.Eval(lookup)
			if err != nil {
				bp.Err = err
				d.logger.Debug("breakpoint condition failed",
					"breakpoint", bp.ID,
					"error", err,
				)
				continue
			}
			bp.Err = nil
			if !truthy(v) {
				continue
			}
		}
		bp.Hits++
		return bp
	}
	return nil
}

// Lookup resolves a name in the paused frame.
func (d *Debugger) Lookup(name string) (any, bool) {
	if d.stop == nil || d.stop.Scope == nil {
		return nil, false
	}
	return d.stop.Scope.Lookup(name)
}

// Evaluate runs a restricted expression against the paused frame.
func (d *Debugger) Evaluate(src string) (any, error) {
	if d.stop == nil || d.stop.Scope == nil {
		return nil, ErrUnavailable
	}
	v, err := Eval(src, d.stop.Scope.Lookup)
	if err != nil {
		return nil, err
	}
	return Plain(v, variableDepth), nil
}
