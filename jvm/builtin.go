package jvm

import (
	"fmt"
	"strings"

	"github.com/reusee/relic/classfile"
)

const (
	objectClass    = "java/lang/Object"
	stringClass    = "java/lang/String"
	throwableClass = "java/lang/Throwable"

	messageField = "detailMessage"
)

// exception hierarchy, parents listed before children
var builtinThrowables = [][2]string{
	{"java/lang/Exception", throwableClass},
	{"java/lang/Error", throwableClass},
	{"java/lang/RuntimeException", "java/lang/Exception"},
	{"java/lang/ArithmeticException", "java/lang/RuntimeException"},
	{"java/lang/NullPointerException", "java/lang/RuntimeException"},
	{"java/lang/IndexOutOfBoundsException", "java/lang/RuntimeException"},
	{"java/lang/ArrayIndexOutOfBoundsException", "java/lang/IndexOutOfBoundsException"},
	{"java/lang/StringIndexOutOfBoundsException", "java/lang/IndexOutOfBoundsException"},
	{"java/lang/NegativeArraySizeException", "java/lang/RuntimeException"},
	{"java/lang/ClassCastException", "java/lang/RuntimeException"},
	{"java/lang/ArrayStoreException", "java/lang/RuntimeException"},
	{"java/lang/IllegalArgumentException", "java/lang/RuntimeException"},
	{"java/lang/IllegalStateException", "java/lang/RuntimeException"},
	{"java/lang/UnsupportedOperationException", "java/lang/RuntimeException"},
	{"java/lang/LinkageError", "java/lang/Error"},
	{"java/lang/IncompatibleClassChangeError", "java/lang/LinkageError"},
	{"java/lang/AbstractMethodError", "java/lang/IncompatibleClassChangeError"},
	{"java/lang/InstantiationError", "java/lang/IncompatibleClassChangeError"},
	{"java/lang/VirtualMachineError", "java/lang/Error"},
	{"java/lang/StackOverflowError", "java/lang/VirtualMachineError"},
	{"java/lang/OutOfMemoryError", "java/lang/VirtualMachineError"},
}

func (e *Engine) loadBuiltins() {
	object := e.newClass(objectClass, "", classfile.AccPublic)
	e.builtin(object, "<init>", "()V", func(t *Thread, args []Value) (Value, error) {
		return nil, nil
	})
	e.builtin(object, "hashCode", "()I", func(t *Thread, args []Value) (Value, error) {
		return identityHash(args[0]), nil
	})
	e.builtin(object, "equals", "(Ljava/lang/Object;)Z", func(t *Thread, args []Value) (Value, error) {
		return boolValue(args[0] == args[1]), nil
	})
	e.builtin(object, "toString", "()Ljava/lang/String;", func(t *Thread, args []Value) (Value, error) {
		return t.engine.NewString(fmt.Sprint(args[0])), nil
	})

	str := e.newClass(stringClass, objectClass, classfile.AccPublic|classfile.AccFinal)
	str.Interfaces = []string{"java/lang/CharSequence", "java/lang/Comparable"}
	e.builtin(str, "length", "()I", func(t *Thread, args []Value) (Value, error) {
		s, err := t.stringArg(args[0])
		if err != nil {
			return nil, err
		}
		return int32(len(utf16Units(s))), nil
	})
	e.builtin(str, "charAt", "(I)C", func(t *Thread, args []Value) (Value, error) {
		s, err := t.stringArg(args[0])
		if err != nil {
			return nil, err
		}
		units := utf16Units(s)
		i := args[1].(int32)
		if i < 0 || int(i) >= len(units) {
			return nil, t.throwable("java/lang/StringIndexOutOfBoundsException", fmt.Sprintf("index %d, length %d", i, len(units)))
		}
		return int32(units[i]), nil
	})
	e.builtin(str, "concat", "(Ljava/lang/String;)Ljava/lang/String;", func(t *Thread, args []Value) (Value, error) {
		s, err := t.stringArg(args[0])
		if err != nil {
			return nil, err
		}
		other, err := t.stringArg(args[1])
		if err != nil {
			return nil, err
		}
		return t.engine.NewString(s + other), nil
	})
	e.builtin(str, "equals", "(Ljava/lang/Object;)Z", func(t *Thread, args []Value) (Value, error) {
		s, err := t.stringArg(args[0])
		if err != nil {
			return nil, err
		}
		other, ok := args[1].(*String)
		return boolValue(ok && other != nil && other.Value == s), nil
	})
	e.builtin(str, "hashCode", "()I", func(t *Thread, args []Value) (Value, error) {
		s, err := t.stringArg(args[0])
		if err != nil {
			return nil, err
		}
		var h int32
		for _, u := range utf16Units(s) {
			h = 31*h + int32(u)
		}
		return h, nil
	})
	e.builtin(str, "toString", "()Ljava/lang/String;", func(t *Thread, args []Value) (Value, error) {
		return args[0], nil
	})

	throwable := e.newClass(throwableClass, objectClass, classfile.AccPublic)
	e.builtin(throwable, "<init>", "()V", func(t *Thread, args []Value) (Value, error) {
		return nil, nil
	})
	e.builtin(throwable, "<init>", "(Ljava/lang/String;)V", func(t *Thread, args []Value) (Value, error) {
		obj, ok := args[0].(*Object)
		if !ok {
			return nil, t.throwable("java/lang/ClassCastException", "not a throwable")
		}
		obj.Fields[messageField] = args[1]
		return nil, nil
	})
	e.builtin(throwable, "getMessage", "()Ljava/lang/String;", func(t *Thread, args []Value) (Value, error) {
		obj, ok := args[0].(*Object)
		if !ok {
			return nil, t.throwable("java/lang/ClassCastException", "not a throwable")
		}
		return obj.Fields[messageField], nil
	})
	e.builtin(throwable, "toString", "()Ljava/lang/String;", func(t *Thread, args []Value) (Value, error) {
		obj, _ := args[0].(*Object)
		return t.engine.NewString(describeThrowable(obj)), nil
	})

	for _, pair := range builtinThrowables {
		e.newClass(pair[0], pair[1], classfile.AccPublic)
	}
	for _, name := range []string{"java/lang/CharSequence", "java/lang/Comparable", "java/lang/Runnable"} {
		e.newClass(name, objectClass, classfile.AccPublic|classfile.AccInterface|classfile.AccAbstract)
	}
}

func (e *Engine) builtin(c *Class, name, desc string, fn NativeFunc) {
	m, err := newMethod(name, desc, classfile.AccPublic|classfile.AccNative)
	if err != nil {
		panic(err)
	}
	m.Native = fn
	c.addMethod(m)
}

func boolValue(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

func identityHash(v Value) int32 {
	var h uint64
	for _, c := range fmt.Sprintf("%p", v) {
		h = h*31 + uint64(c)
	}
	return int32(h)
}

func utf16Units(s string) []uint16 {
	var units []uint16
	for _, r := range s {
		if r >= 0x10000 {
			r -= 0x10000
			units = append(units, uint16(0xd800+(r>>10)), uint16(0xdc00+(r&0x3ff)))
			continue
		}
		units = append(units, uint16(r))
	}
	return units
}

func (t *Thread) stringArg(v Value) (string, error) {
	switch v := v.(type) {
	case *String:
		if v != nil {
			return v.Value, nil
		}
	case *Object:
		if v == nil {
			break
		}
		if v.Class.Name == stringClass {
			// allocated by new without a backing value
			return "", nil
		}
		return "", t.throwable("java/lang/ClassCastException", strings.ReplaceAll(v.Class.Name, "/", ".")+" is not a string")
	}
	return "", t.throwable("java/lang/NullPointerException", "")
}
