package jvm

import (
	"github.com/reusee/relic/classfile"
)

// ClassID indexes the engine's class arena. IDs are assigned from a
// counter and never reused.
type ClassID uint32

type Class struct {
	ID         ClassID
	Name       string
	SuperName  string
	Interfaces []string
	Flags      uint16
	// Source is the unit name given to LoadUnit, empty for built-ins
	Source string
	Unit   *classfile.Unit

	methods    map[string]*Method
	methodList []*Method
	fields     []*classfile.Member
	statics    map[string]Value
	// super is resolved lazily so subclasses may load first
	super       ClassID
	initialized bool
}

func (c *Class) IsInterface() bool {
	return c.Flags&classfile.AccInterface != 0
}

// Method finds a declared method, desc may be empty.
func (c *Class) Method(name, desc string) *Method {
	if desc != "" {
		return c.methods[name+desc]
	}
	for _, m := range c.methodList {
		if m.Name == name {
			return m
		}
	}
	return nil
}

func (c *Class) Methods() []*Method {
	return c.methodList
}

func (c *Class) Static(name string) (Value, bool) {
	v, ok := c.statics[name]
	return v, ok
}

func (c *Class) addMethod(m *Method) {
	m.Class = c
	key := m.Name + m.Descriptor
	if old, ok := c.methods[key]; ok {
		*old = *m
		return
	}
	c.methods[key] = m
	c.methodList = append(c.methodList, m)
}

type NativeFunc func(t *Thread, args []Value) (Value, error)

type Method struct {
	Class      *Class
	Name       string
	Descriptor string
	Type       classfile.MethodType
	Flags      uint16
	Code       *classfile.Code
	Native     NativeFunc
	// argSlots counts local slots taken by parameters and the receiver
	argSlots int
}

func (m *Method) IsStatic() bool {
	return m.Flags&classfile.AccStatic != 0
}

func (m *Method) IsAbstract() bool {
	return m.Flags&classfile.AccAbstract != 0
}

func (m *Method) String() string {
	return m.Class.Name + "." + m.Name + m.Descriptor
}

func newMethod(name, desc string, flags uint16) (*Method, error) {
	typ, err := classfile.ParseMethodDescriptor(desc)
	if err != nil {
		return nil, err
	}
	m := &Method{
		Name:       name,
		Descriptor: desc,
		Type:       typ,
		Flags:      flags,
	}
	if !m.IsStatic() {
		m.argSlots++
	}
	for _, p := range typ.Params {
		m.argSlots += slotSize(p)
	}
	return m, nil
}
