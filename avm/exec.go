package avm

import (
	"math"
	"strings"

	"github.com/reusee/relic/swf"
)

func payload[T any](act swf.Action) T {
	p, ok := act.Payload.(T)
	if !ok {
		fail(BadOperand, "%s without payload", act.Code)
	}
	return p
}

// step executes the action at f.IP.
func (t *Thread) step(f *Frame) {
	m := t.machine
	host := m.host
	act := f.Actions[f.IP]
	f.IP++

	switch act.Code {

	case swf.ActionEnd:
		t.ret(Undefined{})

	case swf.ActionPush:
		for _, v := range payload[swf.Push](act).Values {
			t.push(t.pushValue(f, v))
		}

	case swf.ActionPop:
		t.pop()

	case swf.ActionPushDuplicate:
		t.push(t.peek())

	case swf.ActionStackSwap:
		a := t.pop()
		b := t.pop()
		t.push(a)
		t.push(b)

	case swf.ActionAdd, swf.ActionSubtract, swf.ActionMultiply, swf.ActionDivide, swf.ActionModulo:
		a := m.ToNumber(t.pop())
		b := m.ToNumber(t.pop())
		var r float64
		switch act.Code {
		case swf.ActionAdd:
			r = b + a
		case swf.ActionSubtract:
			r = b - a
		case swf.ActionMultiply:
			r = b * a
		case swf.ActionDivide:
			r = b / a
		case swf.ActionModulo:
			r = math.Mod(b, a)
		}
		t.push(r)

	case swf.ActionAdd2:
		a := t.pop()
		b := t.pop()
		t.push(m.add2(b, a))

	case swf.ActionEquals:
		a := m.ToNumber(t.pop())
		b := m.ToNumber(t.pop())
		t.push(b == a)

	case swf.ActionLess:
		a := m.ToNumber(t.pop())
		b := m.ToNumber(t.pop())
		t.push(b < a)

	case swf.ActionEquals2:
		a := t.pop()
		b := t.pop()
		t.push(m.looseEquals(b, a))

	case swf.ActionStrictEquals:
		a := t.pop()
		b := t.pop()
		t.push(strictEquals(b, a))

	case swf.ActionLess2, swf.ActionGreater:
		a := t.pop()
		b := t.pop()
		var less, ok bool
		if act.Code == swf.ActionLess2 {
			less, ok = m.looseLess(b, a)
		} else {
			less, ok = m.looseLess(a, b)
		}
		if !ok {
			t.push(Undefined{})
		} else {
			t.push(less)
		}

	case swf.ActionAnd:
		a := m.ToBool(t.pop())
		b := m.ToBool(t.pop())
		t.push(b && a)

	case swf.ActionOr:
		a := m.ToBool(t.pop())
		b := m.ToBool(t.pop())
		t.push(b || a)

	case swf.ActionNot:
		t.push(!m.ToBool(t.pop()))

	case swf.ActionStringAdd:
		a := m.ToString(t.pop())
		b := m.ToString(t.pop())
		t.push(b + a)

	case swf.ActionStringEquals:
		a := m.ToString(t.pop())
		b := m.ToString(t.pop())
		t.push(b == a)

	case swf.ActionStringLess:
		a := m.ToString(t.pop())
		b := m.ToString(t.pop())
		t.push(b < a)

	case swf.ActionStringLength:
		t.push(float64(len([]rune(m.ToString(t.pop())))))

	case swf.ActionToNumber:
		t.push(m.ToNumber(t.pop()))

	case swf.ActionToString:
		t.push(m.ToString(t.pop()))

	case swf.ActionToInteger:
		n := m.ToNumber(t.pop())
		if math.IsNaN(n) {
			n = 0
		}
		t.push(math.Trunc(n))

	case swf.ActionIncrement:
		t.push(m.ToNumber(t.pop()) + 1)

	case swf.ActionDecrement:
		t.push(m.ToNumber(t.pop()) - 1)

	case swf.ActionTypeOf:
		t.push(TypeOf(t.pop()))

	case swf.ActionGetVariable:
		name := m.ToString(t.pop())
		t.push(t.getVariable(f, name))

	case swf.ActionSetVariable:
		v := t.pop()
		name := m.ToString(t.pop())
		t.setVariable(f, name, v)

	case swf.ActionDefineLocal:
		v := t.pop()
		name := m.ToString(t.pop())
		f.Env.Def(name, v)

	case swf.ActionDefineLocal2:
		name := m.ToString(t.pop())
		if _, ok := f.Env.Vars[name]; !ok {
			f.Env.Def(name, Undefined{})
		}

	case swf.ActionGetMember:
		name := m.ToString(t.pop())
		obj := t.pop()
		t.push(t.getMember(obj, name))

	case swf.ActionSetMember:
		v := t.pop()
		name := m.ToString(t.pop())
		obj := t.pop()
		t.setMember(obj, name, v)

	case swf.ActionInitObject:
		n := t.popCount()
		obj := NewObject()
		for range n {
			v := t.pop()
			obj.Set(m.ToString(t.pop()), v)
		}
		t.push(obj)

	case swf.ActionInitArray:
		n := t.popCount()
		elems := make([]any, n)
		for i := range elems {
			elems[i] = t.pop()
		}
		t.push(NewArray(elems...))

	case swf.ActionJump:
		t.branch(f, act, payload[swf.Jump](act).Offset)

	case swf.ActionIf:
		offset := payload[swf.If](act).Offset
		if m.ToBool(t.pop()) {
			t.branch(f, act, offset)
		}

	case swf.ActionConstantPool:
		f.Pool = payload[swf.ConstantPool](act).Strings

	case swf.ActionStoreRegister:
		r := payload[swf.StoreRegister](act).Register
		if int(r) >= len(f.Registers) {
			fail(BadOperand, "register %d", r)
		}
		f.Registers[r] = t.peek()

	case swf.ActionDefineFunction:
		def := payload[swf.DefineFunction](act)
		end := act.End + int(def.CodeSize)
		j := f.IP
		for j < len(f.Actions) && f.Actions[j].Offset < end {
			j++
		}
		fn := &Function{
			Name:   def.Name,
			Params: def.Params,
			Body:   f.Actions[f.IP:j],
			Env:    f.Env,
			Pool:   f.Pool,
			Unit:   f.Unit,
		}
		f.IP = j
		if def.Name != "" {
			f.Env.Def(def.Name, fn)
		} else {
			t.push(fn)
		}

	case swf.ActionCallFunction:
		name := m.ToString(t.pop())
		args := t.popArgs()
		callee := t.getVariable(f, name)
		if _, ok := callee.(*Function); !ok {
			fail(MissingSymbol, "function %s not defined", name)
		}
		t.call(callee, nil, args)

	case swf.ActionCallMethod:
		name := t.pop()
		obj := t.pop()
		args := t.popArgs()
		callee := obj
		if _, ok := name.(Undefined); !ok {
			if s := m.ToString(name); s != "" {
				callee = t.getMember(obj, s)
			}
		}
		if _, ok := callee.(*Function); !ok {
			fail(MissingSymbol, "method %s not defined", m.ToString(name))
		}
		t.call(callee, obj, args)

	case swf.ActionReturn:
		var v any = Undefined{}
		if len(t.stack) > t.base() {
			v = t.pop()
		}
		t.ret(v)

	case swf.ActionPlay:
		host.Play(t.target)

	case swf.ActionStop:
		host.Stop(t.target)

	case swf.ActionNextFrame:
		host.NextFrame(t.target)

	case swf.ActionPrevFrame:
		host.PrevFrame(t.target)

	case swf.ActionGotoFrame:
		host.GotoFrame(t.target, int(payload[swf.GotoFrame](act).Frame))

	case swf.ActionGotoLabel:
		label := payload[swf.GotoLabel](act).Label
		if !host.GotoLabel(t.target, label) {
			m.logger.DebugContext(t.ctx, "frame label not found",
				"target", t.target,
				"label", label,
			)
		}

	case swf.ActionSetTarget:
		target := payload[swf.SetTarget](act).Target
		switch {
		case target == "":
			t.target = t.clip.Target
		default:
			if obj, ok := host.Resolve(t.clip.Target, target); ok {
				t.target = obj.Target
			} else {
				t.target = target
			}
		}

	case swf.ActionWaitForFrame:
		// movies are fully decoded before playback, every frame is loaded

	case swf.ActionTrace:
		msg := m.ToString(t.pop())
		m.logger.DebugContext(t.ctx, "trace",
			"message", msg,
		)
		host.Trace(msg)

	case swf.ActionGetURL:
		u := payload[swf.GetURL](act)
		host.GetURL(u.URL, u.Target)

	default:
		fail(UnsupportedOpcode, "%s", act.Code)
	}
}

func (t *Thread) pushValue(f *Frame, v swf.PushValue) any {
	switch v.Type {
	case swf.PushString:
		return v.String
	case swf.PushFloat, swf.PushDouble, swf.PushInt:
		return v.Number
	case swf.PushNull:
		return nil
	case swf.PushUndefined:
		return Undefined{}
	case swf.PushBool:
		return v.Bool
	case swf.PushRegister:
		if int(v.Register) >= len(f.Registers) {
			fail(BadOperand, "register %d", v.Register)
		}
		return f.Registers[v.Register]
	case swf.PushConstant8, swf.PushConstant16:
		if int(v.Constant) >= len(f.Pool) {
			fail(BadOperand, "constant %d outside pool of %d", v.Constant, len(f.Pool))
		}
		return f.Pool[v.Constant]
	}
	fail(BadOperand, "push type %d", v.Type)
	return nil
}

// branch jumps relative to the end of act.
func (t *Thread) branch(f *Frame, act swf.Action, offset int16) {
	target := act.End + int(offset)
	i, ok := f.Actions.IndexAt(target)
	if !ok {
		fail(BadOperand, "branch to offset %d", target)
	}
	f.IP = i
}

// popCount pops an element count that must fit the stack.
func (t *Thread) popCount() int {
	n := t.machine.ToNumber(t.pop())
	if math.IsNaN(n) || n < 0 {
		return 0
	}
	if avail := len(t.stack) - t.base(); n > float64(avail) {
		fail(StackUnderflow, "count %s exceeds %d stack values", FormatNumber(n), avail)
	}
	return int(n)
}

func (t *Thread) popArgs() []any {
	n := t.popCount()
	args := make([]any, n)
	for i := range args {
		args[i] = t.pop()
	}
	return args
}

// splitTarget splits "path:var" into its clip path and variable.
func splitTarget(name string) (path, variable string, ok bool) {
	i := strings.LastIndex(name, ":")
	if i < 0 {
		return "", name, false
	}
	return name[:i], name[i+1:], true
}
