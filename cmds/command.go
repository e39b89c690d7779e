package cmds

import (
	"fmt"
	"reflect"
)

// Command is either a function bound to positional arguments or a set of
// sub commands that become visible once the command is seen.
type Command struct {
	Func        reflect.Value
	Subs        map[string]*Command
	Description string
	ArgsUsage   string
	Aliases     []string
}

func (c *Command) Desc(desc string) *Command {
	c.Description = desc
	return c
}

func (c *Command) Args(usage string) *Command {
	c.ArgsUsage = usage
	return c
}

func (c *Command) Alias(names ...string) *Command {
	c.Aliases = append(c.Aliases, names...)
	return c
}

var (
	errorType       = reflect.TypeFor[error]()
	stringSliceType = reflect.TypeFor[[]string]()
)

// Func wraps fn. fn may take scalar arguments, pointers to scalars (optional),
// and a trailing []string that swallows every remaining argument. It returns
// nothing or an error.
func Func(fn any) *Command {
	fnValue := reflect.ValueOf(fn)
	if fnValue.Kind() != reflect.Func {
		panic(fmt.Errorf("must be function, got %T", fn))
	}

	fnType := fnValue.Type()
	switch fnType.NumOut() {
	case 0:
	case 1:
		if fnType.Out(0) != errorType {
			panic(fmt.Errorf("must return error, got %v", fnType.Out(0)))
		}
	default:
		panic(fmt.Errorf("must return 0 or 1 value"))
	}
	for i := 0; i < fnType.NumIn()-1; i++ {
		if fnType.In(i) == stringSliceType {
			panic(fmt.Errorf("[]string must be the last parameter"))
		}
	}

	return &Command{
		Func: fnValue,
	}
}

func Sub(subs map[string]*Command) *Command {
	return &Command{
		Subs: subs,
	}
}
