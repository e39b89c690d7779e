package jvm

import (
	"context"
	"fmt"
	"strings"

	"github.com/reusee/relic/classfile"
	"github.com/reusee/relic/debugs"
	"github.com/reusee/relic/logs"
)

// Engine owns a class arena, static fields and the dispatch cache.
// It is driven by one goroutine at a time.
type Engine struct {
	opts     Options
	logger   logs.Logger
	observer debugs.Observer

	classes []*Class
	byName  map[string]ClassID
	nextID  ClassID

	dispatch map[dispatchKey]*Method
	natives  map[string]NativeFunc
	strings  map[string]*String
}

type dispatchKey struct {
	class     ClassID
	signature string
}

var _ debugs.Target = new(Engine)

func NewEngine(opts Options, logger logs.Logger) *Engine {
	e := &Engine{
		opts:     opts.withDefaults(),
		logger:   logger,
		byName:   make(map[string]ClassID),
		dispatch: make(map[dispatchKey]*Method),
		natives:  make(map[string]NativeFunc),
		strings:  make(map[string]*String),
	}
	e.loadBuiltins()
	return e
}

func (e *Engine) SetObserver(o debugs.Observer) {
	e.observer = o
}

func (e *Engine) Options() Options {
	return e.opts
}

func (e *Engine) newClass(name, super string, flags uint16) *Class {
	e.nextID++
	c := &Class{
		ID:        e.nextID,
		Name:      name,
		SuperName: super,
		Flags:     flags,
		methods:   make(map[string]*Method),
		statics:   make(map[string]Value),
	}
	e.classes = append(e.classes, c)
	e.byName[name] = c.ID
	clear(e.dispatch)
	return c
}

// LoadUnit registers the class in unit under its own name. name labels
// the unit in logs.
func (e *Engine) LoadUnit(name string, unit *classfile.Unit) error {
	if unit == nil {
		return fmt.Errorf("nil unit")
	}
	if _, ok := e.byName[unit.Name]; ok {
		return &Fault{
			Kind:    DuplicateClass,
			Message: fmt.Sprintf("class %s already loaded", unit.Name),
		}
	}

	var methods []*Method
	for _, member := range unit.Methods {
		m, err := newMethod(member.Name, member.Descriptor, member.AccessFlags)
		if err != nil {
			return fmt.Errorf("load %s: %w", unit.Name, err)
		}
		m.Code = member.Code
		if member.IsNative() {
			m.Native = e.natives[unit.Name+"."+member.Name+member.Descriptor]
		}
		methods = append(methods, m)
	}

	c := e.newClass(unit.Name, unit.SuperName, unit.AccessFlags)
	c.Source = name
	c.Unit = unit
	c.Interfaces = unit.InterfaceSet
	for _, m := range methods {
		c.addMethod(m)
	}
	for _, field := range unit.Fields {
		if field.IsStatic() {
			c.statics[field.Name] = e.constantValue(unit, field)
		} else {
			c.fields = append(c.fields, field)
		}
	}

	e.logger.Info("class loaded",
		"unit", name,
		"class", c.Name,
		"id", c.ID,
		"methods", len(c.methodList),
	)
	return nil
}

func (e *Engine) constantValue(unit *classfile.Unit, field *classfile.Member) Value {
	zero := zeroValue(field.Descriptor)
	if field.ConstantValue == 0 {
		return zero
	}
	c, err := unit.Pool.Get(field.ConstantValue)
	if err != nil {
		return zero
	}
	switch c.Tag {
	case classfile.TagInteger:
		return c.Int
	case classfile.TagLong:
		return c.Long
	case classfile.TagFloat:
		return c.Float
	case classfile.TagDouble:
		return c.Double
	case classfile.TagString:
		s, err := unit.Pool.Utf8(c.A)
		if err != nil {
			return zero
		}
		return e.intern(s)
	}
	return zero
}

func (e *Engine) intern(s string) *String {
	if str, ok := e.strings[s]; ok {
		return str
	}
	str := &String{Value: s}
	e.strings[s] = str
	return str
}

// NewString allocates a string that is not interned.
func (e *Engine) NewString(s string) *String {
	return &String{Value: s}
}

func (e *Engine) Class(name string) (*Class, bool) {
	id, ok := e.byName[name]
	if !ok {
		return nil, false
	}
	return e.classes[id-1], true
}

func (e *Engine) ClassByID(id ClassID) (*Class, bool) {
	if id == 0 || int(id) > len(e.classes) {
		return nil, false
	}
	return e.classes[id-1], true
}

func (e *Engine) mustClass(name string) *Class {
	c, ok := e.Class(name)
	if !ok {
		fail(MissingSymbol, "class %s not loaded", name)
	}
	return c
}

// superOf resolves the superclass, nil for java/lang/Object.
func (e *Engine) superOf(c *Class) *Class {
	if c.SuperName == "" {
		return nil
	}
	if c.super != 0 {
		return e.classes[c.super-1]
	}
	super := e.mustClass(c.SuperName)
	c.super = super.ID
	return super
}

// chain lists c and its superclasses, most derived first.
func (e *Engine) chain(c *Class) []*Class {
	var ret []*Class
	for c != nil && len(ret) <= len(e.classes) {
		ret = append(ret, c)
		c = e.superOf(c)
	}
	return ret
}

// isSubclass reports whether c is name or extends or implements it.
func (e *Engine) isSubclass(c *Class, name string) bool {
	seen := make(map[string]bool)
	var walk func(c *Class) bool
	walk = func(c *Class) bool {
		for _, k := range e.chain(c) {
			if k.Name == name {
				return true
			}
			for _, iface := range k.Interfaces {
				if seen[iface] {
					continue
				}
				seen[iface] = true
				if iface == name {
					return true
				}
				if ic, ok := e.Class(iface); ok && walk(ic) {
					return true
				}
			}
		}
		return false
	}
	return walk(c)
}

// isInstance implements instanceof and checkcast for class names and
// array descriptors.
func (e *Engine) isInstance(v Value, target string) bool {
	switch v := v.(type) {
	case *Object:
		return e.isSubclass(v.Class, target)
	case *String:
		return target == stringClass || target == objectClass ||
			target == "java/lang/CharSequence" || target == "java/lang/Comparable"
	case *Array:
		if target == objectClass {
			return true
		}
		if !strings.HasPrefix(target, "[") {
			return false
		}
		elem := target[1:]
		if elem == v.Type {
			return true
		}
		if !strings.HasPrefix(elem, "L") && !strings.HasPrefix(elem, "[") {
			return false
		}
		if !strings.HasPrefix(v.Type, "L") && !strings.HasPrefix(v.Type, "[") {
			return false
		}
		if elem == "L"+objectClass+";" {
			return true
		}
		if strings.HasPrefix(v.Type, "L") && strings.HasPrefix(elem, "L") {
			c, ok := e.Class(strings.TrimSuffix(v.Type[1:], ";"))
			return ok && e.isSubclass(c, strings.TrimSuffix(elem[1:], ";"))
		}
	}
	return false
}

func (e *Engine) classOf(v Value) *Class {
	switch v := v.(type) {
	case *Object:
		return v.Class
	case *String:
		return e.mustClass(stringClass)
	case *Array:
		return e.mustClass(objectClass)
	}
	return nil
}

// resolveStatic finds a method for invokestatic and invokespecial,
// walking superclasses from the named class.
func (e *Engine) resolveStatic(className, name, desc string) *Method {
	c := e.mustClass(className)
	for _, k := range e.chain(c) {
		if m := k.methods[name+desc]; m != nil {
			return m
		}
	}
	if m := e.resolveDefault(c, name+desc); m != nil {
		return m
	}
	fail(MissingSymbol, "method %s.%s%s not found", className, name, desc)
	return nil
}

// resolveVirtual dispatches on the receiver's dynamic class. Results are
// cached until the next class load.
func (e *Engine) resolveVirtual(c *Class, name, desc string) *Method {
	key := dispatchKey{
		class:     c.ID,
		signature: name + desc,
	}
	if m, ok := e.dispatch[key]; ok {
		return m
	}
	var found *Method
	for _, k := range e.chain(c) {
		if m := k.methods[key.signature]; m != nil && !m.IsStatic() {
			found = m
			break
		}
	}
	if found == nil || found.IsAbstract() {
		if m := e.resolveDefault(c, key.signature); m != nil {
			found = m
		}
	}
	if found == nil {
		fail(MissingSymbol, "method %s.%s%s not found", c.Name, name, desc)
	}
	e.dispatch[key] = found
	return found
}

// resolveDefault searches implemented interfaces for a method with code.
func (e *Engine) resolveDefault(c *Class, signature string) *Method {
	seen := make(map[string]bool)
	var walk func(names []string) *Method
	walk = func(names []string) *Method {
		for _, name := range names {
			if seen[name] {
				continue
			}
			seen[name] = true
			ic, ok := e.Class(name)
			if !ok {
				continue
			}
			if m := ic.methods[signature]; m != nil && !m.IsAbstract() && !m.IsStatic() {
				return m
			}
			if m := walk(ic.Interfaces); m != nil {
				return m
			}
		}
		return nil
	}
	for _, k := range e.chain(c) {
		if m := walk(k.Interfaces); m != nil {
			return m
		}
	}
	return nil
}

// staticOwner finds the class declaring a static field, starting at name.
func (e *Engine) staticOwner(className, field string) *Class {
	c := e.mustClass(className)
	for _, k := range e.chain(c) {
		if _, ok := k.statics[field]; ok {
			return k
		}
	}
	fail(MissingSymbol, "static field %s.%s not found", className, field)
	return nil
}

// RegisterNative binds fn to a method. Built-in and loaded classes get
// the method immediately, classes loaded later pick it up when they
// declare the method native.
func (e *Engine) RegisterNative(class, name, desc string, fn NativeFunc) error {
	e.natives[class+"."+name+desc] = fn
	c, ok := e.Class(class)
	if !ok {
		return nil
	}
	if m := c.methods[name+desc]; m != nil {
		m.Native = fn
		return nil
	}
	m, err := newMethod(name, desc, classfile.AccPublic|classfile.AccNative)
	if err != nil {
		return err
	}
	m.Native = fn
	c.addMethod(m)
	clear(e.dispatch)
	return nil
}

// NewObject allocates an instance with default field values, without
// running a constructor.
func (e *Engine) NewObject(className string) (obj *Object, err error) {
	defer catch(&err)
	return e.newObject(e.mustClass(className)), nil
}

func (e *Engine) newObject(c *Class) *Object {
	obj := &Object{
		Class:  c,
		Fields: make(map[string]Value),
	}
	chain := e.chain(c)
	for i := len(chain) - 1; i >= 0; i-- {
		for _, f := range chain[i].fields {
			obj.Fields[f.Name] = zeroValue(f.Descriptor)
		}
		if chain[i].Name == throwableClass {
			obj.Fields[messageField] = nil
		}
	}
	return obj
}

// Invoke runs the first method named methodName. A debugger pause during
// Invoke is released at once and execution continues; use NewThread to
// drive pauses.
func (e *Engine) Invoke(ctx context.Context, className, methodName string, args ...any) (Value, error) {
	return e.InvokeDesc(ctx, className, methodName, "", args...)
}

func (e *Engine) InvokeDesc(ctx context.Context, className, methodName, desc string, args ...any) (Value, error) {
	t, err := e.NewThread(ctx, className, methodName, desc, args...)
	if err != nil {
		return nil, err
	}
	for intr, err := range t.Run {
		if err != nil {
			return nil, err
		}
		if intr.Pause {
			t.release()
		}
	}
	return t.Result(), nil
}
