package debugs

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
)

// Undefined is the value of a missing member in script engines.
type Undefined struct{}

func (Undefined) String() string {
	return "undefined"
}

// Object is implemented by engine values with named members.
type Object interface {
	Member(name string) (any, bool)
	MemberNames() []string
}

// Indexable is implemented by engine arrays.
type Indexable interface {
	Len() int
	Index(i int) (any, bool)
}

// normalize maps host numbers to the evaluator's int64 and float64.
func normalize(v any) any {
	switch v := v.(type) {
	case int:
		return int64(v)
	case int8:
		return int64(v)
	case int16:
		return int64(v)
	case int32:
		return int64(v)
	case int64:
		return v
	case uint8:
		return int64(v)
	case uint16:
		return int64(v)
	case uint32:
		return int64(v)
	case uint:
		if uint64(v) <= math.MaxInt64 {
			return int64(v)
		}
		return float64(v)
	case uint64:
		if v <= math.MaxInt64 {
			return int64(v)
		}
		return float64(v)
	case float32:
		return float64(v)
	case fmt.Stringer:
		if _, ok := v.(Object); ok {
			return v
		}
		if _, ok := v.(Indexable); ok {
			return v
		}
		if _, ok := v.(Undefined); ok {
			return v
		}
		return v.String()
	}
	return v
}

func truthy(v any) bool {
	switch v := v.(type) {
	case nil, Undefined:
		return false
	case bool:
		return v
	case int64:
		return v != 0
	case float64:
		return v != 0 && !math.IsNaN(v)
	case string:
		return v != ""
	case Indexable:
		return v.Len() > 0
	}
	return true
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case Undefined:
		return "undefined"
	case bool:
		return "bool"
	case int64:
		return "int"
	case float64:
		return "float"
	case string:
		return "string"
	case Indexable:
		return "array"
	case Object:
		return "object"
	}
	return fmt.Sprintf("%T", v)
}

// Format renders a value for display.
func Format(v any) string {
	switch v := normalize(v).(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(v)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return fmt.Sprint(Plain(v, 2))
}

// Plain copies v into nil, bool, int64, float64, string, Undefined,
// []any and map[string]any, descending at most depth levels. Deeper
// containers become their type name.
func Plain(v any, depth int) any {
	v = normalize(v)
	switch v := v.(type) {
	case nil, bool, int64, float64, string, Undefined:
		return v
	case Indexable:
		if depth <= 0 {
			return "<array>"
		}
		ret := make([]any, 0, v.Len())
		for i := range v.Len() {
			e, _ := v.Index(i)
			ret = append(ret, Plain(e, depth-1))
		}
		return ret
	case Object:
		if depth <= 0 {
			return "<object>"
		}
		ret := make(map[string]any)
		for _, name := range v.MemberNames() {
			e, _ := v.Member(name)
			ret[name] = Plain(e, depth-1)
		}
		return ret
	case []byte:
		return string(v)
	case []any:
		if depth <= 0 {
			return "<array>"
		}
		ret := make([]any, len(v))
		for i, e := range v {
			ret[i] = Plain(e, depth-1)
		}
		return ret
	case map[string]any:
		if depth <= 0 {
			return "<object>"
		}
		ret := make(map[string]any, len(v))
		for k, e := range v {
			ret[k] = Plain(e, depth-1)
		}
		return ret
	}

	value := reflect.ValueOf(v)
	switch value.Kind() {
	case reflect.Slice, reflect.Array:
		if depth <= 0 {
			return "<array>"
		}
		ret := make([]any, value.Len())
		for i := range value.Len() {
			ret[i] = Plain(value.Index(i).Interface(), depth-1)
		}
		return ret
	case reflect.Map:
		if depth <= 0 {
			return "<object>"
		}
		ret := make(map[string]any, value.Len())
		iter := value.MapRange()
		for iter.Next() {
			ret[fmt.Sprint(iter.Key().Interface())] = Plain(iter.Value().Interface(), depth-1)
		}
		return ret
	case reflect.Pointer, reflect.Interface:
		if value.IsNil() {
			return nil
		}
		return Plain(value.Elem().Interface(), depth)
	case reflect.Struct:
		if depth <= 0 {
			return "<object>"
		}
		typ := value.Type()
		ret := make(map[string]any)
		for i := range value.NumField() {
			if !typ.Field(i).IsExported() {
				continue
			}
			ret[typ.Field(i).Name] = Plain(value.Field(i).Interface(), depth-1)
		}
		return ret
	}
	return fmt.Sprint(v)
}

func sortedNames(m map[string]any) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
