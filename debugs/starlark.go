package debugs

import (
	"reflect"

	"github.com/reusee/starlarkutil"
	"go.starlark.net/starlark"
)

// toStarlarkValue converts a snapshot value. Engine objects are flattened
// by Plain first so the console never holds live references.
func toStarlarkValue(v any) starlark.Value {
	switch v := v.(type) {
	case starlark.Value:
		return v
	case nil:
		return starlark.None
	case Undefined:
		return starlark.None
	case bool:
		return starlark.Bool(v)
	case int64:
		return starlark.MakeInt64(v)
	case float64:
		return starlark.Float(v)
	case string:
		return starlark.String(v)
	case []byte:
		return starlark.Bytes(v)
	case []any:
		elems := make([]starlark.Value, len(v))
		for i, e := range v {
			elems[i] = toStarlarkValue(e)
		}
		return starlark.NewList(elems)
	case map[string]any:
		d := starlark.NewDict(len(v))
		for _, k := range sortedNames(v) {
			d.SetKey(starlark.String(k), toStarlarkValue(v[k]))
		}
		return d
	}
	if reflect.TypeOf(v).Kind() == reflect.Func {
		return starlarkutil.MakeFunc("", v)
	}
	return toStarlarkValue(Plain(v, variableDepth))
}
