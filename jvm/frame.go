package jvm

import (
	"encoding/binary"
)

func (f *Frame) push(v Value) {
	if len(f.Stack) >= f.maxStack {
		fail(StackOverflow, "operand stack exceeds %d", f.maxStack)
	}
	f.Stack = append(f.Stack, v)
}

func (f *Frame) pop() Value {
	n := len(f.Stack)
	if n == 0 {
		fail(StackUnderflow, "pop from empty operand stack")
	}
	v := f.Stack[n-1]
	f.Stack[n-1] = nil
	f.Stack = f.Stack[:n-1]
	return v
}

func (f *Frame) peek(i int) Value {
	n := len(f.Stack)
	if i >= n {
		fail(StackUnderflow, "operand stack has %d values", n)
	}
	return f.Stack[n-1-i]
}

func (f *Frame) popInt() int32 {
	v := f.pop()
	i, ok := v.(int32)
	if !ok {
		fail(BadOperand, "expecting int, got %T", v)
	}
	return i
}

func (f *Frame) popLong() int64 {
	v := f.pop()
	i, ok := v.(int64)
	if !ok {
		fail(BadOperand, "expecting long, got %T", v)
	}
	return i
}

func (f *Frame) popFloat() float32 {
	v := f.pop()
	x, ok := v.(float32)
	if !ok {
		fail(BadOperand, "expecting float, got %T", v)
	}
	return x
}

func (f *Frame) popDouble() float64 {
	v := f.pop()
	x, ok := v.(float64)
	if !ok {
		fail(BadOperand, "expecting double, got %T", v)
	}
	return x
}

func (f *Frame) popRef() Value {
	v := f.pop()
	switch v.(type) {
	case nil, *Object, *Array, *String:
		return v
	}
	fail(BadOperand, "expecting reference, got %T", v)
	return nil
}

func (f *Frame) local(slot int) Value {
	if slot < 0 || slot >= len(f.Locals) {
		fail(MalformedCode, "local %d out of range", slot)
	}
	return f.Locals[slot]
}

func (f *Frame) setLocal(slot int, v Value) {
	if slot < 0 || slot >= len(f.Locals) {
		fail(MalformedCode, "local %d out of range", slot)
	}
	f.Locals[slot] = v
	if isWide(v) && slot+1 < len(f.Locals) {
		f.Locals[slot+1] = nil
	}
}

func (f *Frame) code(pc, n int) []byte {
	code := f.Method.Code.Bytecode
	if pc < 0 || pc+n > len(code) {
		fail(MalformedCode, "instruction at %d runs past code end", pc)
	}
	return code[pc : pc+n]
}

func (f *Frame) u1(pc int) int {
	return int(f.code(pc, 1)[0])
}

func (f *Frame) s1(pc int) int {
	return int(int8(f.code(pc, 1)[0]))
}

func (f *Frame) u2(pc int) int {
	return int(binary.BigEndian.Uint16(f.code(pc, 2)))
}

func (f *Frame) s2(pc int) int {
	return int(int16(binary.BigEndian.Uint16(f.code(pc, 2))))
}

func (f *Frame) s4(pc int) int {
	return int(int32(binary.BigEndian.Uint32(f.code(pc, 4))))
}

func (f *Frame) jump(pc, offset int) {
	target := pc + offset
	if target < 0 || target >= len(f.Method.Code.Bytecode) {
		fail(MalformedCode, "branch to %d outside code", target)
	}
	f.PC = target
}
