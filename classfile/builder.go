package classfile

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-restruct/restruct"
)

// Builder assembles class files. It is used to synthesize fixtures and
// small host-side classes; nothing it produces bypasses Decode.
type Builder struct {
	Major  uint16
	Minor  uint16
	Access uint16

	name       string
	super      string
	interfaces []string
	sourceFile string
	pool       ConstantPool
	index      map[Constant]Handle
	fields     []*builtField
	methods    []*Assembler
}

type builtField struct {
	access   uint16
	name     string
	desc     string
	constant Handle
}

func NewBuilder(name, super string) *Builder {
	return &Builder{
		Major:  52,
		Access: AccPublic | AccSuper,
		name:   name,
		super:  super,
		pool:   ConstantPool{{}},
		index:  make(map[Constant]Handle),
	}
}

func (b *Builder) Implements(names ...string) *Builder {
	b.interfaces = append(b.interfaces, names...)
	return b
}

func (b *Builder) SourceFile(name string) *Builder {
	b.sourceFile = name
	return b
}

func (b *Builder) add(c Constant) Handle {
	if h, ok := b.index[c]; ok {
		return h
	}
	h := Handle(len(b.pool))
	b.pool = append(b.pool, c)
	if c.Tag == TagLong || c.Tag == TagDouble {
		b.pool = append(b.pool, Constant{})
	}
	b.index[c] = h
	return h
}

func (b *Builder) Utf8(s string) Handle {
	return b.add(Constant{Tag: TagUtf8, Utf8: s})
}

func (b *Builder) Class(name string) Handle {
	return b.add(Constant{Tag: TagClass, A: b.Utf8(name)})
}

func (b *Builder) StringConst(s string) Handle {
	return b.add(Constant{Tag: TagString, A: b.Utf8(s)})
}

func (b *Builder) Int(v int32) Handle {
	return b.add(Constant{Tag: TagInteger, Int: v})
}

func (b *Builder) Float(v float32) Handle {
	return b.add(Constant{Tag: TagFloat, Float: v})
}

func (b *Builder) Long(v int64) Handle {
	return b.add(Constant{Tag: TagLong, Long: v})
}

func (b *Builder) Double(v float64) Handle {
	return b.add(Constant{Tag: TagDouble, Double: v})
}

func (b *Builder) NameAndType(name, desc string) Handle {
	return b.add(Constant{Tag: TagNameAndType, A: b.Utf8(name), B: b.Utf8(desc)})
}

func (b *Builder) Fieldref(class, name, desc string) Handle {
	return b.add(Constant{Tag: TagFieldref, A: b.Class(class), B: b.NameAndType(name, desc)})
}

func (b *Builder) Methodref(class, name, desc string) Handle {
	return b.add(Constant{Tag: TagMethodref, A: b.Class(class), B: b.NameAndType(name, desc)})
}

func (b *Builder) InterfaceMethodref(class, name, desc string) Handle {
	return b.add(Constant{Tag: TagInterfaceMethodref, A: b.Class(class), B: b.NameAndType(name, desc)})
}

func (b *Builder) Field(access uint16, name, desc string) *Builder {
	b.fields = append(b.fields, &builtField{
		access: access,
		name:   name,
		desc:   desc,
	})
	return b
}

// ConstField declares a static field initialized from a ConstantValue attribute.
func (b *Builder) ConstField(access uint16, name, desc string, value Handle) *Builder {
	b.fields = append(b.fields, &builtField{
		access:   access | AccStatic,
		name:     name,
		desc:     desc,
		constant: value,
	})
	return b
}

// Method starts a method body. Abstract and native methods get no Code
// attribute regardless of what is emitted.
func (b *Builder) Method(access uint16, name, desc string) *Assembler {
	a := &Assembler{
		b:         b,
		access:    access,
		name:      name,
		desc:      desc,
		MaxStack:  16,
		MaxLocals: 16,
		labels:    make(map[string]int),
	}
	b.methods = append(b.methods, a)
	return a
}

func (b *Builder) Bytes() ([]byte, error) {
	thisClass := b.Class(b.name)
	var superClass Handle
	if b.super != "" {
		superClass = b.Class(b.super)
	}
	var interfaces []Handle
	for _, name := range b.interfaces {
		interfaces = append(interfaces, b.Class(name))
	}

	// members first: they may still add constants
	var body []byte
	body = binary.BigEndian.AppendUint16(body, b.Access)
	body = binary.BigEndian.AppendUint16(body, uint16(thisClass))
	body = binary.BigEndian.AppendUint16(body, uint16(superClass))
	body = binary.BigEndian.AppendUint16(body, uint16(len(interfaces)))
	for _, h := range interfaces {
		body = binary.BigEndian.AppendUint16(body, uint16(h))
	}

	body = binary.BigEndian.AppendUint16(body, uint16(len(b.fields)))
	for _, f := range b.fields {
		body = binary.BigEndian.AppendUint16(body, f.access)
		body = binary.BigEndian.AppendUint16(body, uint16(b.Utf8(f.name)))
		body = binary.BigEndian.AppendUint16(body, uint16(b.Utf8(f.desc)))
		if f.constant == 0 {
			body = binary.BigEndian.AppendUint16(body, 0)
			continue
		}
		body = binary.BigEndian.AppendUint16(body, 1)
		body = b.appendAttribute(body, "ConstantValue",
			binary.BigEndian.AppendUint16(nil, uint16(f.constant)))
	}

	body = binary.BigEndian.AppendUint16(body, uint16(len(b.methods)))
	for _, m := range b.methods {
		body = binary.BigEndian.AppendUint16(body, m.access)
		body = binary.BigEndian.AppendUint16(body, uint16(b.Utf8(m.name)))
		body = binary.BigEndian.AppendUint16(body, uint16(b.Utf8(m.desc)))
		if m.access&(AccAbstract|AccNative) != 0 {
			body = binary.BigEndian.AppendUint16(body, 0)
			continue
		}
		code, err := m.encode()
		if err != nil {
			return nil, fmt.Errorf("method %s%s: %w", m.name, m.desc, err)
		}
		body = binary.BigEndian.AppendUint16(body, 1)
		body = b.appendAttribute(body, "Code", code)
	}

	if b.sourceFile != "" {
		body = binary.BigEndian.AppendUint16(body, 1)
		body = b.appendAttribute(body, "SourceFile",
			binary.BigEndian.AppendUint16(nil, uint16(b.Utf8(b.sourceFile))))
	} else {
		body = binary.BigEndian.AppendUint16(body, 0)
	}

	out, err := restruct.Pack(binary.BigEndian, &header{
		Magic: Magic,
		Minor: b.Minor,
		Major: b.Major,
	})
	if err != nil {
		return nil, err
	}
	out = binary.BigEndian.AppendUint16(out, uint16(len(b.pool)))
	for _, c := range b.pool[1:] {
		if c.Tag == 0 {
			continue
		}
		out = append(out, byte(c.Tag))
		switch c.Tag {
		case TagUtf8:
			s := encodeModifiedUTF8(c.Utf8)
			out = binary.BigEndian.AppendUint16(out, uint16(len(s)))
			out = append(out, s...)
		case TagInteger:
			out = binary.BigEndian.AppendUint32(out, uint32(c.Int))
		case TagFloat:
			out = binary.BigEndian.AppendUint32(out, math.Float32bits(c.Float))
		case TagLong:
			out = binary.BigEndian.AppendUint64(out, uint64(c.Long))
		case TagDouble:
			out = binary.BigEndian.AppendUint64(out, math.Float64bits(c.Double))
		case TagClass, TagString, TagMethodType, TagModule, TagPackage:
			out = binary.BigEndian.AppendUint16(out, uint16(c.A))
		case TagMethodHandle:
			out = append(out, c.RefKind)
			out = binary.BigEndian.AppendUint16(out, uint16(c.B))
		default:
			out = binary.BigEndian.AppendUint16(out, uint16(c.A))
			out = binary.BigEndian.AppendUint16(out, uint16(c.B))
		}
	}
	return append(out, body...), nil
}

// Build assembles and decodes.
func (b *Builder) Build() (*Unit, error) {
	data, err := b.Bytes()
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

func (b *Builder) appendAttribute(out []byte, name string, data []byte) []byte {
	out = binary.BigEndian.AppendUint16(out, uint16(b.Utf8(name)))
	out = binary.BigEndian.AppendUint32(out, uint32(len(data)))
	return append(out, data...)
}

// Assembler emits one method body with symbolic labels.
type Assembler struct {
	MaxStack  uint16
	MaxLocals uint16

	b        *Builder
	access   uint16
	name     string
	desc     string
	code     []byte
	labels   map[string]int
	fixups   []fixup
	handlers []handler
	lines    []LineNumber
	locals   []LocalVariable
}

type fixup struct {
	at    int
	from  int
	label string
	wide  bool
}

type handler struct {
	start, end, target string
	catchType          Handle
}

func (a *Assembler) PC() int {
	return len(a.code)
}

func (a *Assembler) Limits(maxStack, maxLocals uint16) *Assembler {
	a.MaxStack = maxStack
	a.MaxLocals = maxLocals
	return a
}

func (a *Assembler) Op(op Opcode, operands ...byte) *Assembler {
	a.code = append(a.code, byte(op))
	a.code = append(a.code, operands...)
	return a
}

func (a *Assembler) u2(op Opcode, v uint16) *Assembler {
	a.code = append(a.code, byte(op))
	a.code = binary.BigEndian.AppendUint16(a.code, v)
	return a
}

// Push emits the shortest instruction that pushes an int constant.
func (a *Assembler) Push(v int32) *Assembler {
	switch {
	case v >= -1 && v <= 5:
		return a.Op(IconstM1 + Opcode(v+1))
	case v >= math.MinInt8 && v <= math.MaxInt8:
		return a.Op(Bipush, byte(int8(v)))
	case v >= math.MinInt16 && v <= math.MaxInt16:
		return a.u2(Sipush, uint16(int16(v)))
	}
	return a.Ldc(a.b.Int(v))
}

func (a *Assembler) Ldc(h Handle) *Assembler {
	if c := a.b.pool[h]; c.Tag == TagLong || c.Tag == TagDouble {
		return a.u2(Ldc2W, uint16(h))
	}
	if h < 256 {
		return a.Op(Ldc, byte(h))
	}
	return a.u2(LdcW, uint16(h))
}

func (a *Assembler) LdcString(s string) *Assembler {
	return a.Ldc(a.b.StringConst(s))
}

// Local emits a load or store on slot, using the _n forms when possible.
func (a *Assembler) Local(op Opcode, slot int) *Assembler {
	if slot < 4 {
		switch op {
		case Iload, Lload, Fload, Dload, Aload:
			return a.Op(Iload0 + (op-Iload)*4 + Opcode(slot))
		case Istore, Lstore, Fstore, Dstore, Astore:
			return a.Op(Istore0 + (op-Istore)*4 + Opcode(slot))
		}
	}
	if slot > 0xff {
		a.Op(Wide, byte(op))
		a.code = binary.BigEndian.AppendUint16(a.code, uint16(slot))
		return a
	}
	return a.Op(op, byte(slot))
}

func (a *Assembler) Iinc(slot int, delta int8) *Assembler {
	return a.Op(Iinc, byte(slot), byte(delta))
}

func (a *Assembler) Field(op Opcode, class, name, desc string) *Assembler {
	return a.u2(op, uint16(a.b.Fieldref(class, name, desc)))
}

func (a *Assembler) Invoke(op Opcode, class, name, desc string) *Assembler {
	if op == Invokeinterface {
		mt, _ := ParseMethodDescriptor(desc)
		count := 1
		for _, p := range mt.Params {
			count++
			if p == "J" || p == "D" {
				count++
			}
		}
		a.u2(op, uint16(a.b.InterfaceMethodref(class, name, desc)))
		a.code = append(a.code, byte(count), 0)
		return a
	}
	return a.u2(op, uint16(a.b.Methodref(class, name, desc)))
}

// Type emits new, anewarray, checkcast or instanceof.
func (a *Assembler) Type(op Opcode, class string) *Assembler {
	return a.u2(op, uint16(a.b.Class(class)))
}

func (a *Assembler) Label(name string) *Assembler {
	a.labels[name] = len(a.code)
	return a
}

func (a *Assembler) Jump(op Opcode, label string) *Assembler {
	from := len(a.code)
	a.code = append(a.code, byte(op))
	wide := op == GotoW
	a.fixups = append(a.fixups, fixup{
		at:    len(a.code),
		from:  from,
		label: label,
		wide:  wide,
	})
	if wide {
		a.code = append(a.code, 0, 0, 0, 0)
	} else {
		a.code = append(a.code, 0, 0)
	}
	return a
}

func (a *Assembler) pad() {
	for len(a.code)%4 != 0 {
		a.code = append(a.code, 0)
	}
}

func (a *Assembler) target(from int, label string) {
	a.fixups = append(a.fixups, fixup{
		at:    len(a.code),
		from:  from,
		label: label,
		wide:  true,
	})
	a.code = append(a.code, 0, 0, 0, 0)
}

func (a *Assembler) Tableswitch(low int32, dflt string, targets ...string) *Assembler {
	from := len(a.code)
	a.code = append(a.code, byte(Tableswitch))
	a.pad()
	a.target(from, dflt)
	a.code = binary.BigEndian.AppendUint32(a.code, uint32(low))
	a.code = binary.BigEndian.AppendUint32(a.code, uint32(low+int32(len(targets))-1))
	for _, t := range targets {
		a.target(from, t)
	}
	return a
}

// Lookupswitch takes keys in ascending order.
func (a *Assembler) Lookupswitch(dflt string, keys []int32, targets []string) *Assembler {
	from := len(a.code)
	a.code = append(a.code, byte(Lookupswitch))
	a.pad()
	a.target(from, dflt)
	a.code = binary.BigEndian.AppendUint32(a.code, uint32(len(keys)))
	for i, k := range keys {
		a.code = binary.BigEndian.AppendUint32(a.code, uint32(k))
		a.target(from, targets[i])
	}
	return a
}

// Catch registers an exception table entry; class "" catches everything.
func (a *Assembler) Catch(start, end, target, class string) *Assembler {
	var h Handle
	if class != "" {
		h = a.b.Class(class)
	}
	a.handlers = append(a.handlers, handler{
		start:     start,
		end:       end,
		target:    target,
		catchType: h,
	})
	return a
}

func (a *Assembler) Line(line int) *Assembler {
	a.lines = append(a.lines, LineNumber{
		StartPC: uint16(len(a.code)),
		Line:    uint16(line),
	})
	return a
}

// Var names a local slot for the whole method.
func (a *Assembler) Var(slot int, name, desc string) *Assembler {
	a.locals = append(a.locals, LocalVariable{
		Index:      uint16(slot),
		Name:       name,
		Descriptor: desc,
	})
	return a
}

func (a *Assembler) resolve(label string) (int, error) {
	pc, ok := a.labels[label]
	if !ok {
		return 0, fmt.Errorf("undefined label %q", label)
	}
	return pc, nil
}

func (a *Assembler) encode() ([]byte, error) {
	code := append([]byte(nil), a.code...)
	for _, f := range a.fixups {
		pc, err := a.resolve(f.label)
		if err != nil {
			return nil, err
		}
		delta := pc - f.from
		if f.wide {
			binary.BigEndian.PutUint32(code[f.at:], uint32(int32(delta)))
		} else {
			if delta < math.MinInt16 || delta > math.MaxInt16 {
				return nil, fmt.Errorf("branch to %q out of range", f.label)
			}
			binary.BigEndian.PutUint16(code[f.at:], uint16(int16(delta)))
		}
	}

	var out []byte
	out = binary.BigEndian.AppendUint16(out, a.MaxStack)
	out = binary.BigEndian.AppendUint16(out, a.MaxLocals)
	out = binary.BigEndian.AppendUint32(out, uint32(len(code)))
	out = append(out, code...)

	out = binary.BigEndian.AppendUint16(out, uint16(len(a.handlers)))
	for _, h := range a.handlers {
		for _, label := range []string{h.start, h.end, h.target} {
			pc, err := a.resolve(label)
			if err != nil {
				return nil, err
			}
			out = binary.BigEndian.AppendUint16(out, uint16(pc))
		}
		out = binary.BigEndian.AppendUint16(out, uint16(h.catchType))
	}

	var attrs [][]byte
	if len(a.lines) > 0 {
		data := binary.BigEndian.AppendUint16(nil, uint16(len(a.lines)))
		for _, ln := range a.lines {
			data = binary.BigEndian.AppendUint16(data, ln.StartPC)
			data = binary.BigEndian.AppendUint16(data, ln.Line)
		}
		attrs = append(attrs, a.b.appendAttribute(nil, "LineNumberTable", data))
	}
	if len(a.locals) > 0 {
		data := binary.BigEndian.AppendUint16(nil, uint16(len(a.locals)))
		for _, lv := range a.locals {
			data = binary.BigEndian.AppendUint16(data, 0)
			data = binary.BigEndian.AppendUint16(data, uint16(len(code)))
			data = binary.BigEndian.AppendUint16(data, uint16(a.b.Utf8(lv.Name)))
			data = binary.BigEndian.AppendUint16(data, uint16(a.b.Utf8(lv.Descriptor)))
			data = binary.BigEndian.AppendUint16(data, lv.Index)
		}
		attrs = append(attrs, a.b.appendAttribute(nil, "LocalVariableTable", data))
	}
	out = binary.BigEndian.AppendUint16(out, uint16(len(attrs)))
	for _, attr := range attrs {
		out = append(out, attr...)
	}
	return out, nil
}
