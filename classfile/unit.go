package classfile

import (
	"github.com/reusee/relic/units"
)

const Magic = 0xCAFEBABE

const (
	MinMajorVersion = 45
	MaxMajorVersion = 69
)

const (
	AccPublic    = 0x0001
	AccPrivate   = 0x0002
	AccProtected = 0x0004
	AccStatic    = 0x0008
	AccFinal     = 0x0010
	AccSuper     = 0x0020
	AccNative    = 0x0100
	AccInterface = 0x0200
	AccAbstract  = 0x0400
)

type Unit struct {
	Magic        uint32
	Minor        uint16
	Major        uint16
	Pool         ConstantPool
	AccessFlags  uint16
	ThisClass    Handle
	SuperClass   Handle
	Interfaces   []Handle
	Fields       []*Member
	Methods      []*Member
	Attributes   []Attribute
	SourceFile   string
	Name         string
	SuperName    string
	InterfaceSet []string
}

var _ units.Unit = new(Unit)

func (u *Unit) Format() units.Format {
	return units.FormatClass
}

func (u *Unit) IsInterface() bool {
	return u.AccessFlags&AccInterface != 0
}

// Method finds a method by name and, when desc is non-empty, descriptor.
func (u *Unit) Method(name, desc string) *Member {
	for _, m := range u.Methods {
		if m.Name == name && (desc == "" || m.Descriptor == desc) {
			return m
		}
	}
	return nil
}

func (u *Unit) Field(name string) *Member {
	for _, f := range u.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

type Member struct {
	AccessFlags   uint16
	Name          string
	Descriptor    string
	Attributes    []Attribute
	Code          *Code
	ConstantValue Handle
}

func (m *Member) IsStatic() bool {
	return m.AccessFlags&AccStatic != 0
}

func (m *Member) IsAbstract() bool {
	return m.AccessFlags&AccAbstract != 0
}

func (m *Member) IsNative() bool {
	return m.AccessFlags&AccNative != 0
}

// Attribute is an attribute the decoder keeps but does not interpret.
type Attribute struct {
	Name string
	Data []byte
}

type Code struct {
	MaxStack       uint16
	MaxLocals      uint16
	Bytecode       []byte
	ExceptionTable []ExceptionEntry
	LineNumbers    []LineNumber
	LocalVariables []LocalVariable
	Attributes     []Attribute
}

// ExceptionEntry covers pcs in [StartPC, EndPC). CatchType zero catches
// everything.
type ExceptionEntry struct {
	StartPC   uint16
	EndPC     uint16
	HandlerPC uint16
	CatchType Handle
}

type LineNumber struct {
	StartPC uint16
	Line    uint16
}

type LocalVariable struct {
	StartPC    uint16
	Length     uint16
	Name       string
	Descriptor string
	Index      uint16
}

// Line maps a pc to its source line, or 0 without a line table.
func (c *Code) Line(pc int) int {
	line := 0
	best := -1
	for _, ln := range c.LineNumbers {
		if int(ln.StartPC) <= pc && int(ln.StartPC) > best {
			best = int(ln.StartPC)
			line = int(ln.Line)
		}
	}
	return line
}

// LineStart reports whether pc begins a line table entry.
func (c *Code) LineStart(pc int) bool {
	for _, ln := range c.LineNumbers {
		if int(ln.StartPC) == pc {
			return true
		}
	}
	return false
}

// LocalName names slot at pc using the local variable table.
func (c *Code) LocalName(slot, pc int) (string, bool) {
	for _, lv := range c.LocalVariables {
		if int(lv.Index) == slot &&
			pc >= int(lv.StartPC) &&
			pc < int(lv.StartPC)+int(lv.Length) {
			return lv.Name, true
		}
	}
	return "", false
}
