package jvm

import (
	"context"
	"errors"
	"fmt"

	"github.com/reusee/relic/debugs"
	"github.com/reusee/relic/logs"
)

// Frame is one method activation.
type Frame struct {
	Class  *Class
	Method *Method
	PC     int
	Locals []Value
	Stack  []Value

	maxStack int
	// returnPC is where PC moves when the callee returns
	returnPC int
	// reentry skips the debugger check when an instruction re-executes
	// after a class initializer
	reentry bool
}

// Interrupt is yielded by Thread.Run when a debugger pauses the thread.
type Interrupt struct {
	Pause    bool
	Location debugs.Location
	Depth    int
}

// Thread is one call stack. Run executes it until completion, a fault or
// a debugger pause; calling Run again resumes after a pause.
type Thread struct {
	engine *Engine
	ctx    context.Context
	frames []*Frame
	result Value

	entry     *Method
	entryArgs []Value
	started   bool
	done      bool
	resumed   bool
	executed  int64

	// pausedUnit is the unit of the last pause yielded to the caller
	pausedUnit string
}

const abortCheckInterval = 1024

func (e *Engine) NewThread(ctx context.Context, className, methodName, desc string, args ...any) (t *Thread, err error) {
	defer catch(&err)
	c, ok := e.Class(className)
	if !ok {
		return nil, &Fault{
			Kind:    MissingSymbol,
			Message: fmt.Sprintf("class %s not loaded", className),
		}
	}
	m := c.Method(methodName, desc)
	if m == nil {
		return nil, &Fault{
			Kind:    MissingSymbol,
			Message: fmt.Sprintf("method %s.%s%s not found", className, methodName, desc),
		}
	}
	want := len(m.Type.Params)
	if !m.IsStatic() {
		want++
	}
	if len(args) != want {
		return nil, fmt.Errorf("%s: expecting %d arguments, got %d", m, want, len(args))
	}
	values := make([]Value, 0, len(args))
	for i, arg := range args {
		v, err := e.ToValue(arg)
		if err != nil {
			return nil, fmt.Errorf("%s: argument %d: %w", m, i, err)
		}
		if !m.IsStatic() {
			if i == 0 {
				if v == nil {
					return nil, fmt.Errorf("%s: nil receiver", m)
				}
				values = append(values, v)
				continue
			}
			i--
		}
		v, err = coerce(m.Type.Params[i], v)
		if err != nil {
			return nil, fmt.Errorf("%s: argument %d: %w", m, i, err)
		}
		values = append(values, v)
	}

	return &Thread{
		engine:    e,
		ctx:       logs.WithUnit(ctx, className),
		entry:     m,
		entryArgs: values,
	}, nil
}

func coerce(desc string, v Value) (Value, error) {
	switch desc[0] {
	case 'Z', 'B', 'C', 'S', 'I':
		if _, ok := v.(int32); ok {
			return v, nil
		}
	case 'J':
		switch v := v.(type) {
		case int64:
			return v, nil
		case int32:
			return int64(v), nil
		}
	case 'F':
		switch v := v.(type) {
		case float32:
			return v, nil
		case int32:
			return float32(v), nil
		}
	case 'D':
		switch v := v.(type) {
		case float64:
			return v, nil
		case float32:
			return float64(v), nil
		case int32:
			return float64(v), nil
		}
	case 'L', '[':
		switch v.(type) {
		case nil, *Object, *Array, *String:
			return v, nil
		}
	}
	return nil, fmt.Errorf("%T does not fit %s", v, desc)
}

func (t *Thread) Result() Value {
	return t.result
}

func (t *Thread) Done() bool {
	return t.done
}

func (t *Thread) Depth() int {
	return len(t.frames)
}

// Frames returns the live frames, outermost first.
func (t *Thread) Frames() []*Frame {
	return t.frames
}

func (t *Thread) Engine() *Engine {
	return t.engine
}

func (t *Thread) Run(yield func(*Interrupt, error) bool) {
	for !t.done {
		if !t.started {
			t.started = true
			if err := t.start(); err != nil {
				t.fault(err)
				yield(nil, err)
				return
			}
			continue
		}

		if len(t.frames) == 0 {
			t.done = true
			t.engine.logger.DebugContext(t.ctx, "invocation finished",
				"method", t.entry.String(),
				"instructions", t.executed,
			)
			t.release()
			return
		}
		f := t.frames[len(t.frames)-1]

		if err := t.checkAbort(); err != nil {
			t.fault(err)
			yield(nil, err)
			return
		}

		if obs := t.engine.observer; obs != nil && !t.resumed && !f.reentry {
			stop := t.stop(f)
			if obs.Check(stop) {
				t.resumed = true
				t.pausedUnit = stop.Location.Unit
				t.engine.logger.InfoContext(t.ctx, "thread paused",
					"method", stop.Location.Member,
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
		f.reentry = false

		t.executed++
		if err := t.exec(f); err != nil {
			t.fault(err)
			yield(nil, err)
			return
		}
	}
}

func (t *Thread) start() (err error) {
	defer catch(&err)
	if thrown := t.invoke(nil, t.entry, t.entryArgs); thrown != nil {
		return t.unwind(thrown)
	}
	return nil
}

func (t *Thread) checkAbort() error {
	limit := t.engine.opts.MaxInstructions
	if limit > 0 && t.executed >= limit {
		return &Fault{
			Kind:    Aborted,
			Message: fmt.Sprintf("instruction budget %d exhausted", limit),
		}
	}
	if t.resumed || t.executed%abortCheckInterval == 0 {
		if err := t.ctx.Err(); err != nil {
			return &Fault{
				Kind:    Aborted,
				Message: err.Error(),
			}
		}
	}
	return nil
}

// fault discards all frames.
func (t *Thread) fault(err error) {
	var fault *Fault
	if errors.As(err, &fault) && fault.Class == "" && len(t.frames) > 0 {
		t.locate(fault, t.frames[len(t.frames)-1])
	}
	for len(t.frames) > 0 {
		t.popFrame()
	}
	t.done = true
	args := []any{
		"method", t.entry.String(),
		"error", err,
	}
	if fault != nil {
		args = append(args,
			"kind", fault.Kind.String(),
			"pc", fault.PC,
			"depth", fault.FrameDepth,
		)
	}
	t.engine.logger.WarnContext(t.ctx, "invocation fault", args...)
	t.release()
}

// release tells a unit observer that the frames of the last pause are gone.
func (t *Thread) release() {
	unit := t.pausedUnit
	if unit == "" {
		return
	}
	t.pausedUnit = ""
	if obs, ok := t.engine.observer.(debugs.UnitObserver); ok {
		obs.Unloaded(unit)
	}
}

func (t *Thread) locate(fault *Fault, f *Frame) {
	fault.PC = f.PC
	fault.FrameDepth = len(t.frames)
	fault.Class = f.Class.Name
	fault.Method = f.Method.Name + f.Method.Descriptor
}

func (t *Thread) stop(f *Frame) debugs.Stop {
	return debugs.Stop{
		Location:  t.location(f),
		Depth:     len(t.frames),
		LineStart: f.Method.Code.LineStart(f.PC),
		Scope: &frameScope{
			thread: t,
			frame:  f,
		},
	}
}

func (t *Thread) location(f *Frame) debugs.Location {
	return debugs.Location{
		Unit:   f.Class.Name,
		Member: f.Method.Name + f.Method.Descriptor,
		Line:   f.Method.Code.Line(f.PC),
		PC:     f.PC,
	}
}

// exec runs one instruction, converting panicked faults to errors.
func (t *Thread) exec(f *Frame) (err error) {
	defer func() {
		if p := recover(); p != nil {
			fault, ok := p.(*Fault)
			if !ok {
				panic(p)
			}
			if fault.Class == "" {
				t.locate(fault, f)
			}
			err = fault
		}
	}()
	if thrown := t.step(f); thrown != nil {
		return t.unwind(thrown)
	}
	return nil
}

func (t *Thread) pushFrame(f *Frame) {
	t.frames = append(t.frames, f)
	if obs := t.engine.observer; obs != nil {
		obs.Enter(len(t.frames))
	}
}

func (t *Thread) popFrame() {
	t.frames[len(t.frames)-1] = nil
	t.frames = t.frames[:len(t.frames)-1]
	if obs := t.engine.observer; obs != nil {
		obs.Leave(len(t.frames))
	}
}

// invoke calls m with args. Natives run at once and push their result on
// caller, bytecode methods get a new frame. A non-nil return is a thrown
// exception.
func (t *Thread) invoke(caller *Frame, m *Method, args []Value) *Object {
	if m.Native != nil {
		ret, err := m.Native(t, args)
		if err != nil {
			var thrown *Thrown
			var fault *Fault
			switch {
			case errors.As(err, &thrown):
				return thrown.Object
			case errors.As(err, &fault):
				panic(fault)
			}
			return t.newThrowable("java/lang/RuntimeException", err.Error())
		}
		if m.Type.Return != "V" {
			if caller == nil {
				t.result = ret
			} else {
				caller.push(ret)
			}
		}
		if caller != nil {
			caller.PC = caller.returnPC
		}
		return nil
	}

	if m.IsAbstract() {
		return t.newThrowable("java/lang/AbstractMethodError", m.String())
	}
	if m.Code == nil {
		fail(MissingSymbol, "no code for %s", m)
	}
	if len(t.frames) >= t.engine.opts.MaxCallDepth {
		return t.newThrowable("java/lang/StackOverflowError", fmt.Sprintf("call depth %d", len(t.frames)))
	}

	locals := make([]Value, max(int(m.Code.MaxLocals), m.argSlots))
	slot := 0
	i := 0
	if !m.IsStatic() {
		locals[0] = args[0]
		slot, i = 1, 1
	}
	for _, param := range m.Type.Params {
		locals[slot] = args[i]
		slot += slotSize(param)
		i++
	}
	t.pushFrame(&Frame{
		Class:    m.Class,
		Method:   m,
		Locals:   locals,
		Stack:    make([]Value, 0, min(int(m.Code.MaxStack), t.engine.opts.MaxOperandStack)),
		maxStack: t.engine.opts.MaxOperandStack,
	})
	return nil
}

// ret pops the current frame and hands v to the caller.
func (t *Thread) ret(v Value, hasValue bool) {
	t.popFrame()
	if len(t.frames) == 0 {
		if hasValue {
			t.result = v
		}
		return
	}
	caller := t.frames[len(t.frames)-1]
	caller.PC = caller.returnPC
	if hasValue {
		caller.push(v)
	}
}

// unwind searches exception tables from the current frame outwards.
func (t *Thread) unwind(obj *Object) error {
	var origin Fault
	if len(t.frames) > 0 {
		t.locate(&origin, t.frames[len(t.frames)-1])
	}
	for len(t.frames) > 0 {
		f := t.frames[len(t.frames)-1]
		if pc, ok := t.handler(f, obj); ok {
			f.Stack = append(f.Stack[:0], obj)
			f.PC = pc
			return nil
		}
		t.popFrame()
	}
	origin.Kind = UncaughtFault
	origin.Thrown = obj
	origin.Message = describeThrowable(obj)
	return &origin
}

func (t *Thread) handler(f *Frame, obj *Object) (int, bool) {
	for _, entry := range f.Method.Code.ExceptionTable {
		if f.PC < int(entry.StartPC) || f.PC >= int(entry.EndPC) {
			continue
		}
		if entry.CatchType == 0 {
			return int(entry.HandlerPC), true
		}
		name, err := f.Class.Unit.Pool.ClassName(entry.CatchType)
		if err != nil {
			continue
		}
		if t.engine.isSubclass(obj.Class, name) {
			return int(entry.HandlerPC), true
		}
	}
	return 0, false
}

// newThrowable allocates a built-in exception with a message.
func (t *Thread) newThrowable(className, message string) *Object {
	obj := t.engine.newObject(t.engine.mustClass(className))
	if message != "" {
		obj.Fields[messageField] = t.engine.NewString(message)
	}
	return obj
}

// throwable is newThrowable for natives.
func (t *Thread) throwable(className, message string) error {
	return &Thrown{
		Object: t.newThrowable(className, message),
	}
}

// Throw lets natives throw an exception by class name.
func (t *Thread) Throw(className, message string) (err error) {
	defer catch(&err)
	return t.throwable(className, message)
}
