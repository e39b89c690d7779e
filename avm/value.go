package avm

import (
	"maps"
	"math"
	"slices"
	"strconv"

	"github.com/reusee/relic/debugs"
	"github.com/reusee/relic/swf"
)

// Undefined is the value of missing variables and members.
type Undefined = debugs.Undefined

// Object is a script object. Objects standing for movie clips carry the
// clip's target path and share their Props with the clip's scope.
type Object struct {
	Target string
	Props  map[string]any
}

var _ debugs.Object = new(Object)

func NewObject() *Object {
	return &Object{
		Props: make(map[string]any),
	}
}

func NewClip(target string, vars map[string]any) *Object {
	if vars == nil {
		vars = make(map[string]any)
	}
	return &Object{
		Target: target,
		Props:  vars,
	}
}

func (o *Object) IsClip() bool {
	return o.Target != ""
}

func (o *Object) Get(name string) any {
	if v, ok := o.Props[name]; ok {
		return v
	}
	return Undefined{}
}

func (o *Object) Set(name string, v any) {
	o.Props[name] = v
}

func (o *Object) Member(name string) (any, bool) {
	v, ok := o.Props[name]
	return v, ok
}

func (o *Object) MemberNames() []string {
	return slices.Sorted(maps.Keys(o.Props))
}

// Array is a dense script array.
type Array struct {
	Elements []any
}

var _ debugs.Indexable = new(Array)

func NewArray(elems ...any) *Array {
	return &Array{
		Elements: elems,
	}
}

func (a *Array) Len() int {
	return len(a.Elements)
}

func (a *Array) Index(i int) (any, bool) {
	if i < 0 || i >= len(a.Elements) {
		return nil, false
	}
	return a.Elements[i], true
}

// maxArrayLength bounds arrays grown by index or length assignment.
const maxArrayLength = 1 << 20

func (a *Array) Get(name string) any {
	if name == "length" {
		return float64(len(a.Elements))
	}
	if i, err := strconv.Atoi(name); err == nil && i >= 0 && i < len(a.Elements) {
		return a.Elements[i]
	}
	return Undefined{}
}

func (a *Array) Set(name string, v any) {
	if name == "length" {
		n, ok := v.(float64)
		if !ok || math.IsNaN(n) || n < 0 || n > maxArrayLength {
			return
		}
		a.resize(int(n))
		return
	}
	i, err := strconv.Atoi(name)
	if err != nil || i < 0 || i >= maxArrayLength {
		return
	}
	if i >= len(a.Elements) {
		a.resize(i + 1)
	}
	a.Elements[i] = v
}

func (a *Array) resize(n int) {
	for len(a.Elements) < n {
		a.Elements = append(a.Elements, Undefined{})
	}
	clear(a.Elements[n:])
	a.Elements = a.Elements[:n]
}

// Function is a script function or a host native. Script functions close
// over the scope they were defined in.
type Function struct {
	Name   string
	Params []string
	Body   swf.Actions
	Env    *Env
	Pool   []string
	Unit   string
	Native NativeFunc
}

type NativeFunc func(t *Thread, this any, args []any) (any, error)

func (f *Function) String() string {
	if f.Name == "" {
		return "[function]"
	}
	return "[function " + f.Name + "]"
}
