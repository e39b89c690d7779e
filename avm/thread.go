package avm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/reusee/relic/debugs"
	"github.com/reusee/relic/logs"
	"github.com/reusee/relic/swf"
)

// Script is an action block run against a clip. Unit and Name locate it
// for the debugger, e.g. "_level0/menu" and "frame2".
type Script struct {
	Unit    string
	Name    string
	Actions swf.Actions
}

type Frame struct {
	Unit      string
	Member    string
	Actions   swf.Actions
	IP        int
	Env       *Env
	Pool      []string
	Registers [4]any
	base      int
	fn        *Function
}

type Interrupt struct {
	Pause    bool
	Location debugs.Location
	Depth    int
}

type Thread struct {
	machine  *Machine
	ctx      context.Context
	script   Script
	clip     *Object
	target   string
	frames   []*Frame
	stack    []any
	result   any
	started  bool
	done     bool
	resumed  bool
	executed int64

	// pausedUnit is the unit of the last pause yielded to the caller
	pausedUnit string
}

const abortCheckInterval = 1024

func (m *Machine) NewThread(ctx context.Context, script Script, clip *Object) *Thread {
	if clip == nil {
		clip = NewClip("_level0", nil)
	}
	return &Thread{
		machine: m,
		ctx:     logs.WithUnit(ctx, script.Unit),
		script:  script,
		clip:    clip,
		target:  clip.Target,
		result:  Undefined{},
	}
}

func (t *Thread) Result() any {
	return t.result
}

func (t *Thread) Done() bool {
	return t.done
}

func (t *Thread) Depth() int {
	return len(t.frames)
}

func (t *Thread) Frames() []*Frame {
	return t.frames
}

func (t *Thread) Machine() *Machine {
	return t.machine
}

// Target is the clip path timeline actions currently apply to.
func (t *Thread) Target() string {
	return t.target
}

func (t *Thread) Run(yield func(*Interrupt, error) bool) {
	for !t.done {
		if !t.started {
			t.started = true
			t.pushFrame(&Frame{
				Unit:    t.script.Unit,
				Member:  t.script.Name,
				Actions: t.script.Actions,
				Env:     t.machine.Scope(t.clip),
			})
			continue
		}

		if len(t.frames) == 0 {
			t.done = true
			t.machine.logger.DebugContext(t.ctx, "script finished",
				"script", t.script.Name,
				"actions", t.executed,
			)
			t.release()
			return
		}
		f := t.frames[len(t.frames)-1]
		if f.IP >= len(f.Actions) {
			// running off the end returns undefined
			t.ret(Undefined{})
			continue
		}

		if err := t.checkAbort(); err != nil {
			t.fault(err)
			yield(nil, err)
			return
		}

		if obs := t.machine.observer; obs != nil && !t.resumed {
			stop := t.stop(f)
			if obs.Check(stop) {
				t.resumed = true
				t.pausedUnit = stop.Location.Unit
				t.machine.logger.InfoContext(t.ctx, "script paused",
					"script", stop.Location.Member,
					"pc", stop.Location.PC,
					"depth", stop.Depth,
				)
				if !yield(&Interrupt{
					Pause:    true,
					Location: stop.Location,
					Depth:    stop.Depth,
				}, nil) {
					return
				}
				continue
			}
		}
		t.resumed = false

		t.executed++
		if err := t.exec(f); err != nil {
			t.fault(err)
			yield(nil, err)
			return
		}
	}
}

func (t *Thread) checkAbort() error {
	limit := t.machine.opts.MaxInstructions
	if limit > 0 && t.executed >= limit {
		return t.locate(&Fault{
			Kind:    Aborted,
			Message: fmt.Sprintf("action budget %d exhausted", limit),
		})
	}
	if t.resumed || t.executed%abortCheckInterval == 0 {
		if err := t.ctx.Err(); err != nil {
			return t.locate(&Fault{
				Kind:    Aborted,
				Message: err.Error(),
			})
		}
	}
	return nil
}

func (t *Thread) locate(fault *Fault) *Fault {
	if len(t.frames) == 0 {
		return fault
	}
	loc := t.location(t.frames[len(t.frames)-1])
	fault.Script = loc.Unit + "." + loc.Member
	fault.Offset = loc.PC
	fault.Depth = len(t.frames)
	return fault
}

// fault discards all frames and the operand stack.
func (t *Thread) fault(err error) {
	for len(t.frames) > 0 {
		t.popFrame()
	}
	clear(t.stack)
	t.stack = t.stack[:0]
	t.done = true
	args := []any{
		"script", t.script.Name,
		"error", err,
	}
	var fault *Fault
	if errors.As(err, &fault) {
		args = append(args,
			"kind", fault.Kind.String(),
			"pc", fault.Offset,
			"depth", fault.Depth,
		)
	}
	t.machine.logger.WarnContext(t.ctx, "script fault", args...)
	t.release()
}

// release tells a unit observer that the frames of the last pause are gone.
func (t *Thread) release() {
	unit := t.pausedUnit
	if unit == "" {
		return
	}
	t.pausedUnit = ""
	if obs, ok := t.machine.observer.(debugs.UnitObserver); ok {
		obs.Unloaded(unit)
	}
}

func (t *Thread) location(f *Frame) debugs.Location {
	loc := debugs.Location{
		Unit:   f.Unit,
		Member: f.Member,
	}
	switch {
	case f.IP < len(f.Actions):
		loc.PC = f.Actions[f.IP].Offset
	case len(f.Actions) > 0:
		loc.PC = f.Actions[len(f.Actions)-1].End
	}
	return loc
}

func (t *Thread) stop(f *Frame) debugs.Stop {
	return debugs.Stop{
		Location: t.location(f),
		Depth:    len(t.frames),
		Scope: &frameScope{
			thread: t,
			frame:  f,
		},
	}
}

func (t *Thread) exec(f *Frame) (err error) {
	fault := t.locate(&Fault{})
	defer func() {
		if p := recover(); p != nil {
			raised, ok := p.(*Fault)
			if !ok {
				panic(p)
			}
			raised.Script = fault.Script
			raised.Offset = fault.Offset
			raised.Depth = fault.Depth
			err = raised
		}
	}()
	t.step(f)
	return nil
}

func catch(err *error) {
	if p := recover(); p != nil {
		fault, ok := p.(*Fault)
		if !ok {
			panic(p)
		}
		*err = fault
	}
}

func (t *Thread) enter(fn *Function, this any, args []any) (err error) {
	defer catch(&err)
	t.call(fn, this, args)
	return nil
}

func (t *Thread) pushFrame(f *Frame) {
	for i := range f.Registers {
		f.Registers[i] = Undefined{}
	}
	t.frames = append(t.frames, f)
	if obs := t.machine.observer; obs != nil {
		obs.Enter(len(t.frames))
	}
}

func (t *Thread) popFrame() {
	t.frames[len(t.frames)-1] = nil
	t.frames = t.frames[:len(t.frames)-1]
	if obs := t.machine.observer; obs != nil {
		obs.Leave(len(t.frames))
	}
}

func (t *Thread) base() int {
	if len(t.frames) == 0 {
		return 0
	}
	return t.frames[len(t.frames)-1].base
}

func (t *Thread) push(v any) {
	if len(t.stack) >= t.machine.opts.MaxOperandStack {
		fail(StackOverflow, "operand stack exceeds %d", t.machine.opts.MaxOperandStack)
	}
	t.stack = append(t.stack, v)
}

func (t *Thread) pop() any {
	if len(t.stack) <= t.base() {
		fail(StackUnderflow, "pop on empty stack")
	}
	v := t.stack[len(t.stack)-1]
	t.stack[len(t.stack)-1] = nil
	t.stack = t.stack[:len(t.stack)-1]
	return v
}

func (t *Thread) peek() any {
	if len(t.stack) <= t.base() {
		fail(StackUnderflow, "peek on empty stack")
	}
	return t.stack[len(t.stack)-1]
}

// call runs natives in place and pushes a frame for script functions.
func (t *Thread) call(callee any, this any, args []any) {
	fn, ok := callee.(*Function)
	if !ok {
		fail(MissingSymbol, "%s is not a function", TypeOf(callee))
	}
	if fn.Native != nil {
		v, err := fn.Native(t, this, args)
		if err != nil {
			var fault *Fault
			if errors.As(err, &fault) {
				panic(fault)
			}
			fail(BadOperand, "%s: %v", fn.Name, err)
		}
		t.push(v)
		return
	}
	if len(t.frames) >= t.machine.opts.MaxCallDepth {
		fail(StackOverflow, "call depth exceeds %d", t.machine.opts.MaxCallDepth)
	}
	parent := fn.Env
	if parent == nil {
		parent = t.machine.globals
	}
	env := parent.NewChild()
	for i, param := range fn.Params {
		var v any = Undefined{}
		if i < len(args) {
			v = args[i]
		}
		env.Def(param, v)
	}
	env.Def("arguments", NewArray(args...))
	if this != nil {
		env.Def("this", this)
	}
	member := fn.Name
	if member == "" {
		member = "function"
	}
	t.pushFrame(&Frame{
		Unit:    fn.Unit,
		Member:  member,
		Actions: fn.Body,
		Env:     env,
		Pool:    fn.Pool,
		base:    len(t.stack),
		fn:      fn,
	})
}

// ret pops the current frame, handing v to the calling function.
func (t *Thread) ret(v any) {
	f := t.frames[len(t.frames)-1]
	clear(t.stack[f.base:])
	t.stack = t.stack[:f.base]
	t.popFrame()
	if len(t.frames) == 0 {
		t.result = v
		return
	}
	t.push(v)
}

func (t *Thread) resolve(path string) (*Object, bool) {
	return t.machine.host.Resolve(t.target, path)
}

func (t *Thread) getVariable(f *Frame, name string) any {
	if path, variable, ok := splitTarget(name); ok {
		obj, found := t.resolve(path)
		if !found {
			return Undefined{}
		}
		return t.getMember(obj, variable)
	}
	if v, ok := f.Env.Get(name); ok {
		return v
	}
	if i := strings.LastIndex(name, "."); i > 0 {
		return t.getMember(t.getVariable(f, name[:i]), name[i+1:])
	}
	if obj, ok := t.resolve(name); ok {
		return obj
	}
	return Undefined{}
}

func (t *Thread) setVariable(f *Frame, name string, v any) {
	if path, variable, ok := splitTarget(name); ok {
		if obj, found := t.resolve(path); found {
			obj.Set(variable, v)
		}
		return
	}
	globals := t.machine.globals
	if owner := f.Env.lookup(name); owner != nil && owner != globals {
		owner.Def(name, v)
		return
	}
	if i := strings.LastIndex(name, "."); i > 0 {
		t.setMember(t.getVariable(f, name[:i]), name[i+1:], v)
		return
	}
	// new variables belong to the clip scope the frame runs in
	scope := f.Env
	for scope.Parent != nil && scope.Parent != globals {
		scope = scope.Parent
	}
	scope.Def(name, v)
}

func (t *Thread) getMember(obj any, name string) any {
	switch o := obj.(type) {
	case *Object:
		if v, ok := o.Props[name]; ok {
			return v
		}
		if o.IsClip() {
			if child, ok := t.machine.host.Resolve(o.Target, name); ok {
				return child
			}
		}
	case *Array:
		return o.Get(name)
	case string:
		if name == "length" {
			return float64(len([]rune(o)))
		}
	}
	return Undefined{}
}

func (t *Thread) setMember(obj any, name string, v any) {
	switch o := obj.(type) {
	case *Object:
		o.Set(name, v)
	case *Array:
		o.Set(name, v)
	default:
		t.machine.logger.DebugContext(t.ctx, "member set on primitive ignored",
			"type", TypeOf(obj),
			"member", name,
		)
	}
}
