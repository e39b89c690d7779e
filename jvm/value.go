package jvm

import (
	"fmt"
	"maps"
	"slices"
)

// Value is one of int32, int64, float32, float64, *Object, *Array,
// *String or nil. Booleans, bytes, chars and shorts are int32.
type Value = any

type Object struct {
	Class  *Class
	Fields map[string]Value
}

func (o *Object) Member(name string) (any, bool) {
	v, ok := o.Fields[name]
	return v, ok
}

func (o *Object) MemberNames() []string {
	return slices.Sorted(maps.Keys(o.Fields))
}

func (o *Object) String() string {
	return fmt.Sprintf("%s@%p", o.Class.Name, o)
}

type Array struct {
	// Type is the element descriptor, such as "I" or "Ljava/lang/String;"
	Type   string
	Values []Value
}

func (a *Array) Len() int {
	return len(a.Values)
}

func (a *Array) Index(i int) (any, bool) {
	if i < 0 || i >= len(a.Values) {
		return nil, false
	}
	return a.Values[i], true
}

func (a *Array) String() string {
	return fmt.Sprintf("[%s@%p", a.Type, a)
}

type String struct {
	Value string
}

func (s *String) String() string {
	return s.Value
}

// zeroValue is the default for a field or array element descriptor.
func zeroValue(desc string) Value {
	if desc == "" {
		return nil
	}
	switch desc[0] {
	case 'J':
		return int64(0)
	case 'F':
		return float32(0)
	case 'D':
		return float64(0)
	case 'L', '[':
		return nil
	}
	return int32(0)
}

// slotSize is the local variable width of a descriptor.
func slotSize(desc string) int {
	if desc == "J" || desc == "D" {
		return 2
	}
	return 1
}

func isWide(v Value) bool {
	switch v.(type) {
	case int64, float64:
		return true
	}
	return false
}

// ToValue converts host values for Invoke arguments.
func (e *Engine) ToValue(v any) (Value, error) {
	switch v := v.(type) {
	case nil, int32, int64, float32, float64, *Object, *Array, *String:
		return v, nil
	case int:
		if int(int32(v)) != v {
			return nil, fmt.Errorf("int %d out of range", v)
		}
		return int32(v), nil
	case int8:
		return int32(v), nil
	case int16:
		return int32(v), nil
	case uint16:
		return int32(v), nil
	case bool:
		if v {
			return int32(1), nil
		}
		return int32(0), nil
	case string:
		return &String{Value: v}, nil
	}
	return nil, fmt.Errorf("unsupported argument type %T", v)
}
