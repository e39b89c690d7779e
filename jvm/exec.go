package jvm

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/reusee/relic/classfile"
)

// step executes the instruction at f.PC. A returned object is a thrown
// exception, faults are raised with fail.
func (t *Thread) step(f *Frame) *Object {
	pc := f.PC
	op := classfile.Opcode(f.u1(pc))
	next := pc + 1
	e := t.engine

	switch {
	case op >= classfile.Iload0 && op <= classfile.Aload3:
		f.push(f.local(int(op-classfile.Iload0) % 4))
		f.PC = next
		return nil
	case op >= classfile.Istore0 && op <= classfile.Astore0+3:
		kind := (op - classfile.Istore0) / 4
		t.store(f, "ILFDA"[kind], int(op-classfile.Istore0)%4)
		f.PC = next
		return nil
	}

	switch op {

	case classfile.Nop:
	case classfile.AconstNull:
		f.push(nil)
	case classfile.IconstM1, classfile.Iconst0, classfile.Iconst1, classfile.Iconst2, classfile.Iconst3, classfile.Iconst4, classfile.Iconst5:
		f.push(int32(op) - int32(classfile.Iconst0))
	case classfile.Lconst0, classfile.Lconst1:
		f.push(int64(op - classfile.Lconst0))
	case classfile.Fconst0, classfile.Fconst1, classfile.Fconst2:
		f.push(float32(op - classfile.Fconst0))
	case classfile.Dconst0, classfile.Dconst1:
		f.push(float64(op - classfile.Dconst0))
	case classfile.Bipush:
		f.push(int32(f.s1(pc + 1)))
		next = pc + 2
	case classfile.Sipush:
		f.push(int32(f.s2(pc + 1)))
		next = pc + 3
	case classfile.Ldc:
		f.push(t.constant(f, classfile.Handle(f.u1(pc+1)), false))
		next = pc + 2
	case classfile.LdcW:
		f.push(t.constant(f, classfile.Handle(f.u2(pc+1)), false))
		next = pc + 3
	case classfile.Ldc2W:
		f.push(t.constant(f, classfile.Handle(f.u2(pc+1)), true))
		next = pc + 3

	case classfile.Iload, classfile.Lload, classfile.Fload, classfile.Dload, classfile.Aload:
		f.push(f.local(f.u1(pc + 1)))
		next = pc + 2
	case classfile.Istore, classfile.Lstore, classfile.Fstore, classfile.Dstore, classfile.Astore:
		t.store(f, "ILFDA"[op-classfile.Istore], f.u1(pc+1))
		next = pc + 2

	case classfile.Iaload, classfile.Laload, classfile.Faload, classfile.Daload, classfile.Aaload, classfile.Baload, classfile.Caload, classfile.Saload:
		i := f.popInt()
		arr, thrown := t.array(f.popRef(), i)
		if thrown != nil {
			return thrown
		}
		f.push(arr.Values[i])
	case classfile.Iastore, classfile.Lastore, classfile.Fastore, classfile.Dastore, classfile.Aastore, classfile.Bastore, classfile.Castore, classfile.Sastore:
		var v Value
		switch op {
		case classfile.Lastore:
			v = f.popLong()
		case classfile.Fastore:
			v = f.popFloat()
		case classfile.Dastore:
			v = f.popDouble()
		case classfile.Aastore:
			v = f.popRef()
		default:
			v = f.popInt()
		}
		i := f.popInt()
		arr, thrown := t.array(f.popRef(), i)
		if thrown != nil {
			return thrown
		}
		switch op {
		case classfile.Bastore:
			if arr.Type == "Z" {
				v = v.(int32) & 1
			} else {
				v = int32(int8(v.(int32)))
			}
		case classfile.Castore:
			v = int32(uint16(v.(int32)))
		case classfile.Sastore:
			v = int32(int16(v.(int32)))
		case classfile.Aastore:
			if v != nil && !e.isInstance(v, elementClass(arr.Type)) {
				return t.newThrowable("java/lang/ArrayStoreException", describeValue(v))
			}
		}
		arr.Values[i] = v

	case classfile.Pop:
		f.pop()
	case classfile.Pop2:
		if !isWide(f.pop()) {
			f.pop()
		}
	case classfile.Dup:
		f.push(f.peek(0))
	case classfile.DupX1:
		v1, v2 := f.pop(), f.pop()
		f.push(v1)
		f.push(v2)
		f.push(v1)
	case classfile.DupX2:
		v1, v2 := f.pop(), f.pop()
		if isWide(v2) {
			f.push(v1)
			f.push(v2)
			f.push(v1)
			break
		}
		v3 := f.pop()
		f.push(v1)
		f.push(v3)
		f.push(v2)
		f.push(v1)
	case classfile.Dup2:
		v1 := f.peek(0)
		if isWide(v1) {
			f.push(v1)
			break
		}
		v2 := f.peek(1)
		f.push(v2)
		f.push(v1)
	case classfile.Dup2X1:
		v1, v2 := f.pop(), f.pop()
		if isWide(v1) {
			f.push(v1)
			f.push(v2)
			f.push(v1)
			break
		}
		v3 := f.pop()
		f.push(v2)
		f.push(v1)
		f.push(v3)
		f.push(v2)
		f.push(v1)
	case classfile.Dup2X2:
		v1, v2 := f.pop(), f.pop()
		switch {
		case isWide(v1) && isWide(v2):
			f.push(v1)
			f.push(v2)
			f.push(v1)
		case isWide(v1):
			v3 := f.pop()
			f.push(v1)
			f.push(v3)
			f.push(v2)
			f.push(v1)
		default:
			v3 := f.pop()
			if isWide(v3) {
				f.push(v2)
				f.push(v1)
				f.push(v3)
				f.push(v2)
				f.push(v1)
				break
			}
			v4 := f.pop()
			f.push(v2)
			f.push(v1)
			f.push(v4)
			f.push(v3)
			f.push(v2)
			f.push(v1)
		}
	case classfile.Swap:
		v1, v2 := f.pop(), f.pop()
		f.push(v1)
		f.push(v2)

	case classfile.Iadd, classfile.Isub, classfile.Imul, classfile.Idiv, classfile.Irem, classfile.Ishl, classfile.Ishr, classfile.Iushr, classfile.Iand, classfile.Ior, classfile.Ixor:
		b, a := f.popInt(), f.popInt()
		if (op == classfile.Idiv || op == classfile.Irem) && b == 0 {
			return t.newThrowable("java/lang/ArithmeticException", "/ by zero")
		}
		f.push(intOp(op, a, b))
	case classfile.Ladd, classfile.Lsub, classfile.Lmul, classfile.Ldiv, classfile.Lrem, classfile.Land, classfile.Lor, classfile.Lxor:
		b, a := f.popLong(), f.popLong()
		if (op == classfile.Ldiv || op == classfile.Lrem) && b == 0 {
			return t.newThrowable("java/lang/ArithmeticException", "/ by zero")
		}
		f.push(longOp(op, a, b))
	case classfile.Lshl, classfile.Lshr, classfile.Lushr:
		s, a := f.popInt(), f.popLong()
		s &= 63
		switch op {
		case classfile.Lshl:
			f.push(a << s)
		case classfile.Lshr:
			f.push(a >> s)
		default:
			f.push(int64(uint64(a) >> s))
		}
	case classfile.Fadd, classfile.Fsub, classfile.Fmul, classfile.Fdiv, classfile.Frem:
		b, a := f.popFloat(), f.popFloat()
		f.push(float32(floatOp(op-classfile.Fadd+classfile.Dadd, float64(a), float64(b))))
	case classfile.Dadd, classfile.Dsub, classfile.Dmul, classfile.Ddiv, classfile.Drem:
		b, a := f.popDouble(), f.popDouble()
		f.push(floatOp(op, a, b))
	case classfile.Ineg:
		f.push(-f.popInt())
	case classfile.Lneg:
		f.push(-f.popLong())
	case classfile.Fneg:
		f.push(-f.popFloat())
	case classfile.Dneg:
		f.push(-f.popDouble())
	case classfile.Iinc:
		slot := f.u1(pc + 1)
		t.iinc(f, slot, int32(f.s1(pc+2)))
		next = pc + 3

	case classfile.I2l:
		f.push(int64(f.popInt()))
	case classfile.I2f:
		f.push(float32(f.popInt()))
	case classfile.I2d:
		f.push(float64(f.popInt()))
	case classfile.L2i:
		f.push(int32(f.popLong()))
	case classfile.L2f:
		f.push(float32(f.popLong()))
	case classfile.L2d:
		f.push(float64(f.popLong()))
	case classfile.F2i:
		f.push(toInt32(float64(f.popFloat())))
	case classfile.F2l:
		f.push(toInt64(float64(f.popFloat())))
	case classfile.F2d:
		f.push(float64(f.popFloat()))
	case classfile.D2i:
		f.push(toInt32(f.popDouble()))
	case classfile.D2l:
		f.push(toInt64(f.popDouble()))
	case classfile.D2f:
		f.push(float32(f.popDouble()))
	case classfile.I2b:
		f.push(int32(int8(f.popInt())))
	case classfile.I2c:
		f.push(int32(uint16(f.popInt())))
	case classfile.I2s:
		f.push(int32(int16(f.popInt())))

	case classfile.Lcmp:
		b, a := f.popLong(), f.popLong()
		f.push(cmp3(a < b, a > b))
	case classfile.Fcmpl, classfile.Fcmpg:
		b, a := f.popFloat(), f.popFloat()
		f.push(floatCmp(float64(a), float64(b), op == classfile.Fcmpg))
	case classfile.Dcmpl, classfile.Dcmpg:
		b, a := f.popDouble(), f.popDouble()
		f.push(floatCmp(a, b, op == classfile.Dcmpg))

	case classfile.Ifeq, classfile.Ifne, classfile.Iflt, classfile.Ifge, classfile.Ifgt, classfile.Ifle:
		v := f.popInt()
		if intCond(op-classfile.Ifeq, v, 0) {
			f.jump(pc, f.s2(pc+1))
			return nil
		}
		next = pc + 3
	case classfile.IfIcmpeq, classfile.IfIcmpne, classfile.IfIcmplt, classfile.IfIcmpge, classfile.IfIcmpgt, classfile.IfIcmple:
		b, a := f.popInt(), f.popInt()
		if intCond(op-classfile.IfIcmpeq, a, b) {
			f.jump(pc, f.s2(pc+1))
			return nil
		}
		next = pc + 3
	case classfile.IfAcmpeq, classfile.IfAcmpne:
		b, a := f.popRef(), f.popRef()
		if (a == b) == (op == classfile.IfAcmpeq) {
			f.jump(pc, f.s2(pc+1))
			return nil
		}
		next = pc + 3
	case classfile.Ifnull, classfile.Ifnonnull:
		v := f.popRef()
		if (v == nil) == (op == classfile.Ifnull) {
			f.jump(pc, f.s2(pc+1))
			return nil
		}
		next = pc + 3
	case classfile.Goto:
		f.jump(pc, f.s2(pc+1))
		return nil
	case classfile.GotoW:
		f.jump(pc, f.s4(pc+1))
		return nil

	case classfile.Tableswitch:
		pos := pc + 1
		pos += (4 - pos%4) % 4
		dflt := f.s4(pos)
		low, high := f.s4(pos+4), f.s4(pos+8)
		if high < low || high-low >= 1<<16 {
			fail(MalformedCode, "tableswitch range %d..%d", low, high)
		}
		key := int(f.popInt())
		if key < low || key > high {
			f.jump(pc, dflt)
		} else {
			f.jump(pc, f.s4(pos+12+4*(key-low)))
		}
		return nil
	case classfile.Lookupswitch:
		pos := pc + 1
		pos += (4 - pos%4) % 4
		dflt := f.s4(pos)
		n := f.s4(pos + 4)
		if n < 0 || n >= 1<<16 {
			fail(MalformedCode, "lookupswitch with %d pairs", n)
		}
		key := int(f.popInt())
		target := dflt
		for i := range n {
			if f.s4(pos+8+8*i) == key {
				target = f.s4(pos + 12 + 8*i)
				break
			}
		}
		f.jump(pc, target)
		return nil

	case classfile.Ireturn:
		t.ret(f.popInt(), true)
		return nil
	case classfile.Lreturn:
		t.ret(f.popLong(), true)
		return nil
	case classfile.Freturn:
		t.ret(f.popFloat(), true)
		return nil
	case classfile.Dreturn:
		t.ret(f.popDouble(), true)
		return nil
	case classfile.Areturn:
		t.ret(f.popRef(), true)
		return nil
	case classfile.Return:
		t.ret(nil, false)
		return nil

	case classfile.Getstatic, classfile.Putstatic:
		ref := t.memberRef(f, classfile.Handle(f.u2(pc+1)))
		owner := e.staticOwner(ref.Class, ref.Name)
		if t.initialize(f, owner) {
			return nil
		}
		if op == classfile.Getstatic {
			f.push(owner.statics[ref.Name])
		} else {
			owner.statics[ref.Name] = t.popField(f, ref.Descriptor)
		}
		next = pc + 3
	case classfile.Getfield:
		ref := t.memberRef(f, classfile.Handle(f.u2(pc+1)))
		obj, thrown := t.object(f.popRef())
		if thrown != nil {
			return thrown
		}
		v, ok := obj.Fields[ref.Name]
		if !ok {
			fail(MissingSymbol, "field %s not found in %s", ref, obj.Class.Name)
		}
		f.push(v)
		next = pc + 3
	case classfile.Putfield:
		ref := t.memberRef(f, classfile.Handle(f.u2(pc+1)))
		v := t.popField(f, ref.Descriptor)
		obj, thrown := t.object(f.popRef())
		if thrown != nil {
			return thrown
		}
		if _, ok := obj.Fields[ref.Name]; !ok {
			fail(MissingSymbol, "field %s not found in %s", ref, obj.Class.Name)
		}
		obj.Fields[ref.Name] = v
		next = pc + 3

	case classfile.Invokevirtual, classfile.Invokespecial, classfile.Invokestatic, classfile.Invokeinterface:
		ref := t.memberRef(f, classfile.Handle(f.u2(pc+1)))
		next = pc + 3
		if op == classfile.Invokeinterface {
			next = pc + 5
		}
		return t.invokeRef(f, op, ref, next)

	case classfile.New:
		c := e.mustClass(t.className(f, classfile.Handle(f.u2(pc+1))))
		if c.IsInterface() || c.Flags&classfile.AccAbstract != 0 {
			return t.newThrowable("java/lang/InstantiationError", c.Name)
		}
		if t.initialize(f, c) {
			return nil
		}
		f.push(e.newObject(c))
		next = pc + 3
	case classfile.Newarray:
		typ, ok := primitiveArrayTypes[f.u1(pc+1)]
		if !ok {
			fail(MalformedCode, "newarray type %d", f.u1(pc+1))
		}
		arr, thrown := t.newArray(typ, f.popInt())
		if thrown != nil {
			return thrown
		}
		f.push(arr)
		next = pc + 2
	case classfile.Anewarray:
		name := t.className(f, classfile.Handle(f.u2(pc+1)))
		typ := name
		if !strings.HasPrefix(name, "[") {
			typ = "L" + name + ";"
		}
		arr, thrown := t.newArray(typ, f.popInt())
		if thrown != nil {
			return thrown
		}
		f.push(arr)
		next = pc + 3
	case classfile.Arraylength:
		v := f.popRef()
		arr, ok := v.(*Array)
		if !ok {
			if v == nil {
				return t.newThrowable("java/lang/NullPointerException", "array length of null")
			}
			fail(BadOperand, "arraylength of %T", v)
		}
		f.push(int32(len(arr.Values)))
	case classfile.Athrow:
		v := f.popRef()
		if v == nil {
			return t.newThrowable("java/lang/NullPointerException", "throw null")
		}
		obj, ok := v.(*Object)
		if !ok || !e.isSubclass(obj.Class, throwableClass) {
			fail(BadOperand, "throwing non-throwable %s", describeValue(v))
		}
		return obj
	case classfile.Checkcast:
		name := t.className(f, classfile.Handle(f.u2(pc+1)))
		v := f.peek(0)
		if v != nil && !e.isInstance(v, name) {
			return t.newThrowable("java/lang/ClassCastException",
				describeValue(v)+" cannot be cast to "+strings.ReplaceAll(name, "/", "."))
		}
		next = pc + 3
	case classfile.Instanceof:
		name := t.className(f, classfile.Handle(f.u2(pc+1)))
		v := f.popRef()
		f.push(boolValue(v != nil && e.isInstance(v, name)))
		next = pc + 3
	case classfile.Monitorenter, classfile.Monitorexit:
		if f.popRef() == nil {
			return t.newThrowable("java/lang/NullPointerException", "monitor of null")
		}

	case classfile.Wide:
		inner := classfile.Opcode(f.u1(pc + 1))
		slot := f.u2(pc + 2)
		switch inner {
		case classfile.Iload, classfile.Lload, classfile.Fload, classfile.Dload, classfile.Aload:
			f.push(f.local(slot))
			next = pc + 4
		case classfile.Istore, classfile.Lstore, classfile.Fstore, classfile.Dstore, classfile.Astore:
			t.store(f, "ILFDA"[inner-classfile.Istore], slot)
			next = pc + 4
		case classfile.Iinc:
			t.iinc(f, slot, int32(f.s2(pc+4)))
			next = pc + 6
		default:
			fail(UnsupportedOpcode, "wide %s", inner)
		}

	default:
		fail(UnsupportedOpcode, "%s", op)
	}

	f.PC = next
	return nil
}

var primitiveArrayTypes = map[int]string{
	classfile.TBoolean: "Z",
	classfile.TChar:    "C",
	classfile.TFloat:   "F",
	classfile.TDouble:  "D",
	classfile.TByte:    "B",
	classfile.TShort:   "S",
	classfile.TInt:     "I",
	classfile.TLong:    "J",
}

func (t *Thread) store(f *Frame, kind byte, slot int) {
	var v Value
	switch kind {
	case 'I':
		v = f.popInt()
	case 'L':
		v = f.popLong()
	case 'F':
		v = f.popFloat()
	case 'D':
		v = f.popDouble()
	default:
		v = f.pop()
	}
	f.setLocal(slot, v)
}

func (t *Thread) iinc(f *Frame, slot int, delta int32) {
	i, ok := f.local(slot).(int32)
	if !ok {
		fail(BadOperand, "iinc on %T", f.local(slot))
	}
	f.setLocal(slot, i+delta)
}

func (t *Thread) popField(f *Frame, desc string) Value {
	switch desc[0] {
	case 'J':
		return f.popLong()
	case 'F':
		return f.popFloat()
	case 'D':
		return f.popDouble()
	case 'L', '[':
		return f.popRef()
	case 'Z':
		return f.popInt() & 1
	case 'B':
		return int32(int8(f.popInt()))
	case 'C':
		return int32(uint16(f.popInt()))
	case 'S':
		return int32(int16(f.popInt()))
	}
	return f.popInt()
}

func (t *Thread) constant(f *Frame, h classfile.Handle, wide bool) Value {
	c, err := f.Class.Unit.Pool.Get(h)
	if err != nil {
		fail(MissingSymbol, "%v", err)
	}
	switch c.Tag {
	case classfile.TagInteger:
		if !wide {
			return c.Int
		}
	case classfile.TagFloat:
		if !wide {
			return c.Float
		}
	case classfile.TagString:
		if !wide {
			s, err := f.Class.Unit.Pool.Utf8(c.A)
			if err != nil {
				fail(MissingSymbol, "%v", err)
			}
			return t.engine.intern(s)
		}
	case classfile.TagLong:
		if wide {
			return c.Long
		}
	case classfile.TagDouble:
		if wide {
			return c.Double
		}
	}
	fail(UnsupportedOpcode, "ldc of %v constant", c.Tag)
	return nil
}

func (t *Thread) memberRef(f *Frame, h classfile.Handle) classfile.MemberRef {
	ref, err := f.Class.Unit.Pool.MemberRef(h)
	if err != nil {
		fail(MissingSymbol, "%v", err)
	}
	return ref
}

func (t *Thread) className(f *Frame, h classfile.Handle) string {
	name, err := f.Class.Unit.Pool.ClassName(h)
	if err != nil {
		fail(MissingSymbol, "%v", err)
	}
	return name
}

// initialize runs static initializers from the topmost uninitialized
// superclass down. It returns true when a <clinit> frame was pushed and
// the current instruction must run again.
func (t *Thread) initialize(f *Frame, c *Class) bool {
	chain := t.engine.chain(c)
	for i := len(chain) - 1; i >= 0; i-- {
		k := chain[i]
		if k.initialized {
			continue
		}
		k.initialized = true
		clinit := k.methods["<clinit>()V"]
		if clinit == nil || clinit.Code == nil {
			continue
		}
		f.returnPC = f.PC
		f.reentry = true
		if thrown := t.invoke(f, clinit, nil); thrown != nil {
			panic(&Fault{
				Kind:    UncaughtFault,
				Message: "static initializer: " + describeThrowable(thrown),
				Thrown:  thrown,
			})
		}
		return true
	}
	return false
}

func (t *Thread) invokeRef(f *Frame, op classfile.Opcode, ref classfile.MemberRef, next int) *Object {
	e := t.engine
	typ, err := classfile.ParseMethodDescriptor(ref.Descriptor)
	if err != nil {
		fail(MalformedCode, "%v", err)
	}
	n := len(typ.Params)
	if op != classfile.Invokestatic {
		n++
	}
	if len(f.Stack) < n {
		fail(StackUnderflow, "%s needs %d arguments", ref, n)
	}
	args := make([]Value, n)
	copy(args, f.Stack[len(f.Stack)-n:])
	for i := len(f.Stack) - n; i < len(f.Stack); i++ {
		f.Stack[i] = nil
	}
	f.Stack = f.Stack[:len(f.Stack)-n]

	var m *Method
	switch op {
	case classfile.Invokestatic:
		m = e.resolveStatic(ref.Class, ref.Name, ref.Descriptor)
		if t.initialize(f, m.Class) {
			// arguments go back for the re-executed instruction
			f.Stack = append(f.Stack, args...)
			return nil
		}
	case classfile.Invokespecial:
		if args[0] == nil {
			return t.newThrowable("java/lang/NullPointerException", "invoke "+ref.Name+" on null")
		}
		m = e.resolveStatic(ref.Class, ref.Name, ref.Descriptor)
	default:
		if args[0] == nil {
			return t.newThrowable("java/lang/NullPointerException", "invoke "+ref.Name+" on null")
		}
		c := e.classOf(args[0])
		if c == nil {
			fail(BadOperand, "invoke %s on %T", ref.Name, args[0])
		}
		m = e.resolveVirtual(c, ref.Name, ref.Descriptor)
	}
	if m.IsStatic() != (op == classfile.Invokestatic) {
		return t.newThrowable("java/lang/IncompatibleClassChangeError", m.String())
	}
	f.returnPC = next
	return t.invoke(f, m, args)
}

func (t *Thread) object(v Value) (*Object, *Object) {
	switch v := v.(type) {
	case *Object:
		if v != nil {
			return v, nil
		}
	case nil:
	default:
		fail(BadOperand, "field access on %T", v)
	}
	return nil, t.newThrowable("java/lang/NullPointerException", "field access on null")
}

func (t *Thread) array(v Value, i int32) (*Array, *Object) {
	arr, ok := v.(*Array)
	if !ok && v != nil {
		fail(BadOperand, "array access on %T", v)
	}
	if arr == nil {
		return nil, t.newThrowable("java/lang/NullPointerException", "array access on null")
	}
	if i < 0 || int(i) >= len(arr.Values) {
		return nil, t.newThrowable("java/lang/ArrayIndexOutOfBoundsException",
			fmt.Sprintf("Index %d out of bounds for length %d", i, len(arr.Values)))
	}
	return arr, nil
}

const maxArrayLength = 1 << 24

func (t *Thread) newArray(typ string, n int32) (*Array, *Object) {
	if n < 0 {
		return nil, t.newThrowable("java/lang/NegativeArraySizeException", strconv.Itoa(int(n)))
	}
	if n > maxArrayLength {
		return nil, t.newThrowable("java/lang/OutOfMemoryError", fmt.Sprintf("array of %d elements", n))
	}
	values := make([]Value, n)
	zero := zeroValue(typ)
	for i := range values {
		values[i] = zero
	}
	return &Array{
		Type:   typ,
		Values: values,
	}, nil
}

func elementClass(typ string) string {
	if strings.HasPrefix(typ, "L") {
		return strings.TrimSuffix(typ[1:], ";")
	}
	return "[" + strings.TrimPrefix(typ, "[")
}

func describeValue(v Value) string {
	switch v := v.(type) {
	case *Object:
		return strings.ReplaceAll(v.Class.Name, "/", ".")
	case *String:
		return "java.lang.String"
	case *Array:
		return "[" + v.Type
	}
	return "value"
}

func intOp(op classfile.Opcode, a, b int32) int32 {
	switch op {
	case classfile.Iadd:
		return a + b
	case classfile.Isub:
		return a - b
	case classfile.Imul:
		return a * b
	case classfile.Idiv:
		if a == math.MinInt32 && b == -1 {
			return a
		}
		return a / b
	case classfile.Irem:
		if b == -1 {
			return 0
		}
		return a % b
	case classfile.Ishl:
		return a << (b & 31)
	case classfile.Ishr:
		return a >> (b & 31)
	case classfile.Iushr:
		return int32(uint32(a) >> (b & 31))
	case classfile.Iand:
		return a & b
	case classfile.Ior:
		return a | b
	}
	return a ^ b
}

func longOp(op classfile.Opcode, a, b int64) int64 {
	switch op {
	case classfile.Ladd:
		return a + b
	case classfile.Lsub:
		return a - b
	case classfile.Lmul:
		return a * b
	case classfile.Ldiv:
		if a == math.MinInt64 && b == -1 {
			return a
		}
		return a / b
	case classfile.Lrem:
		if b == -1 {
			return 0
		}
		return a % b
	case classfile.Land:
		return a & b
	case classfile.Lor:
		return a | b
	}
	return a ^ b
}

func floatOp(op classfile.Opcode, a, b float64) float64 {
	switch op {
	case classfile.Dadd:
		return a + b
	case classfile.Dsub:
		return a - b
	case classfile.Dmul:
		return a * b
	case classfile.Ddiv:
		return a / b
	}
	return math.Mod(a, b)
}

func toInt32(x float64) int32 {
	switch {
	case math.IsNaN(x):
		return 0
	case x >= math.MaxInt32:
		return math.MaxInt32
	case x <= math.MinInt32:
		return math.MinInt32
	}
	return int32(x)
}

func toInt64(x float64) int64 {
	switch {
	case math.IsNaN(x):
		return 0
	case x >= math.MaxInt64:
		return math.MaxInt64
	case x <= math.MinInt64:
		return math.MinInt64
	}
	return int64(x)
}

func cmp3(less, greater bool) int32 {
	switch {
	case less:
		return -1
	case greater:
		return 1
	}
	return 0
}

func floatCmp(a, b float64, nanGreater bool) int32 {
	if math.IsNaN(a) || math.IsNaN(b) {
		if nanGreater {
			return 1
		}
		return -1
	}
	return cmp3(a < b, a > b)
}

// intCond evaluates eq, ne, lt, ge, gt, le by offset from the first
// opcode of the group.
func intCond(cond classfile.Opcode, a, b int32) bool {
	switch cond {
	case 0:
		return a == b
	case 1:
		return a != b
	case 2:
		return a < b
	case 3:
		return a >= b
	case 4:
		return a > b
	}
	return a <= b
}
