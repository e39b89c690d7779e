package debugs

import (
	"context"
	"maps"
	"slices"

	"github.com/reusee/relic/logs"
	"go.starlark.net/repl"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Tap opens an interactive console over globals. Values are copied in.
type Tap func(ctx context.Context, what string, globals map[string]any)

func (Module) Tap(
	logger logs.Logger,
) Tap {
	return func(ctx context.Context, what string, globals map[string]any) {
		logger.InfoContext(ctx, "tap: "+what,
			"globals", slices.Sorted(maps.Keys(globals)),
		)
		defer func() {
			logger.InfoContext(ctx, "tap end: "+what)
		}()

		thread := &starlark.Thread{
			Name: "repl",
		}
		repl.REPLOptions(&syntax.FileOptions{
			Set:             true,
			While:           true,
			TopLevelControl: true,
		}, thread, tapGlobals(globals))
	}
}

func tapGlobals(globals map[string]any) starlark.StringDict {
	mappings := make(starlark.StringDict, len(globals))
	for name, value := range globals {
		mappings[name] = toStarlarkValue(value)
	}
	return mappings
}

// TapGlobals returns the paused variables plus stack() and watch(expr)
// helpers.
func (d *Debugger) TapGlobals() map[string]any {
	globals := make(map[string]any, len(d.variables)+2)
	for name, v := range d.variables {
		globals[name] = v
	}

	frames := make([]any, 0, len(d.callStack))
	for _, frame := range d.callStack {
		frames = append(frames, map[string]any{
			"unit":   frame.Location.Unit,
			"member": frame.Location.Member,
			"line":   int64(frame.Location.Line),
			"pc":     int64(frame.Location.PC),
			"depth":  int64(frame.Depth),
		})
	}
	globals["stack"] = starlark.NewBuiltin("stack", func(
		thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple,
	) (starlark.Value, error) {
		if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
			return nil, err
		}
		return toStarlarkValue(frames), nil
	})

	globals["watch"] = starlark.NewBuiltin("watch", func(
		thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple,
	) (starlark.Value, error) {
		var src string
		if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &src); err != nil {
			return nil, err
		}
		v, err := d.Evaluate(src)
		if err != nil {
			return nil, err
		}
		return toStarlarkValue(v), nil
	})

	return globals
}
