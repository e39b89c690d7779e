package classfile

import (
	"fmt"
)

// Handle is a constant pool index. Zero is never a valid entry.
type Handle uint16

type Tag uint8

const (
	TagUtf8               Tag = 1
	TagInteger            Tag = 3
	TagFloat              Tag = 4
	TagLong               Tag = 5
	TagDouble             Tag = 6
	TagClass              Tag = 7
	TagString             Tag = 8
	TagFieldref           Tag = 9
	TagMethodref          Tag = 10
	TagInterfaceMethodref Tag = 11
	TagNameAndType        Tag = 12
	TagMethodHandle       Tag = 15
	TagMethodType         Tag = 16
	TagDynamic            Tag = 17
	TagInvokeDynamic      Tag = 18
	TagModule             Tag = 19
	TagPackage            Tag = 20
)

func (t Tag) String() string {
	switch t {
	case 0:
		return "(unusable)"
	case TagUtf8:
		return "Utf8"
	case TagInteger:
		return "Integer"
	case TagFloat:
		return "Float"
	case TagLong:
		return "Long"
	case TagDouble:
		return "Double"
	case TagClass:
		return "Class"
	case TagString:
		return "String"
	case TagFieldref:
		return "Fieldref"
	case TagMethodref:
		return "Methodref"
	case TagInterfaceMethodref:
		return "InterfaceMethodref"
	case TagNameAndType:
		return "NameAndType"
	case TagMethodHandle:
		return "MethodHandle"
	case TagMethodType:
		return "MethodType"
	case TagDynamic:
		return "Dynamic"
	case TagInvokeDynamic:
		return "InvokeDynamic"
	case TagModule:
		return "Module"
	case TagPackage:
		return "Package"
	}
	return fmt.Sprintf("Tag(%d)", uint8(t))
}

// Constant is one pool entry. Which fields are meaningful depends on Tag:
// A and B hold the referenced indices (class/name, name/descriptor,
// bootstrap/name-and-type), RefKind is set for MethodHandle.
type Constant struct {
	Tag     Tag
	Utf8    string
	Int     int32
	Long    int64
	Float   float32
	Double  float64
	A       Handle
	B       Handle
	RefKind uint8
}

// ConstantPool is indexed by Handle; slot 0 and the slot after a Long or
// Double are unusable entries with a zero Tag.
type ConstantPool []Constant

func (p ConstantPool) Get(h Handle) (Constant, error) {
	if h == 0 || int(h) >= len(p) {
		return Constant{}, fmt.Errorf("constant #%d out of range (pool size %d)", h, len(p))
	}
	c := p[h]
	if c.Tag == 0 {
		return Constant{}, fmt.Errorf("constant #%d is unusable", h)
	}
	return c, nil
}

func (p ConstantPool) expect(h Handle, tags ...Tag) (Constant, error) {
	c, err := p.Get(h)
	if err != nil {
		return c, err
	}
	for _, tag := range tags {
		if c.Tag == tag {
			return c, nil
		}
	}
	return c, fmt.Errorf("constant #%d is %v, expecting %v", h, c.Tag, tags)
}

func (p ConstantPool) Utf8(h Handle) (string, error) {
	c, err := p.expect(h, TagUtf8)
	if err != nil {
		return "", err
	}
	return c.Utf8, nil
}

func (p ConstantPool) ClassName(h Handle) (string, error) {
	c, err := p.expect(h, TagClass)
	if err != nil {
		return "", err
	}
	return p.Utf8(c.A)
}

func (p ConstantPool) StringConst(h Handle) (string, error) {
	c, err := p.expect(h, TagString)
	if err != nil {
		return "", err
	}
	return p.Utf8(c.A)
}

func (p ConstantPool) NameAndType(h Handle) (name, descriptor string, err error) {
	c, err := p.expect(h, TagNameAndType)
	if err != nil {
		return "", "", err
	}
	if name, err = p.Utf8(c.A); err != nil {
		return
	}
	descriptor, err = p.Utf8(c.B)
	return
}

type MemberRef struct {
	Tag        Tag
	Class      string
	Name       string
	Descriptor string
}

func (m MemberRef) String() string {
	return m.Class + "." + m.Name + m.Descriptor
}

// MemberRef resolves a Fieldref, Methodref or InterfaceMethodref.
func (p ConstantPool) MemberRef(h Handle) (ref MemberRef, err error) {
	c, err := p.expect(h, TagFieldref, TagMethodref, TagInterfaceMethodref)
	if err != nil {
		return
	}
	ref.Tag = c.Tag
	if ref.Class, err = p.ClassName(c.A); err != nil {
		return
	}
	ref.Name, ref.Descriptor, err = p.NameAndType(c.B)
	return
}
