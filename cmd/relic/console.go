package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/reusee/relic/debugs"
)

var errQuit = errors.New("quit")

// console drives a debugger over one session with line commands.
type console struct {
	out      io.Writer
	debugger *debugs.Debugger
	session  session
	tap      debugs.Tap
	done     bool
}

func (c *console) help() {
	fmt.Fprint(c.out, `commands:
  break <unit.member:line | unit.member@pc> [condition]
  cond <id> [condition]
  toggle <id>
  delete <id>
  watch <expr>
  unwatch <id>
  cont, step, next, out
  print <expr>
  stack, vars, info
  tap
  dump <file>
  quit
`)
}

func (c *console) exec(ctx context.Context, line string) error {
	name, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	rest = strings.TrimSpace(rest)
	d := c.debugger

	switch name {

	case "":
		return nil

	case "help", "h", "?":
		c.help()

	case "quit", "q", "exit":
		return errQuit

	case "break", "b":
		spec, cond, _ := strings.Cut(rest, " ")
		loc, err := debugs.ParseLocation(spec)
		if err != nil {
			return err
		}
		id, err := d.SetBreakpoint(loc, strings.TrimSpace(cond))
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "breakpoint %d at %v\n", id, loc)

	case "cond":
		idStr, cond, _ := strings.Cut(rest, " ")
		id, err := strconv.Atoi(idStr)
		if err != nil {
			return err
		}
		return d.SetCondition(id, strings.TrimSpace(cond))

	case "toggle":
		id, err := strconv.Atoi(rest)
		if err != nil {
			return err
		}
		enabled, err := d.ToggleBreakpoint(id)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "breakpoint %d enabled: %v\n", id, enabled)

	case "delete":
		id, err := strconv.Atoi(rest)
		if err != nil {
			return err
		}
		return d.RemoveBreakpoint(id)

	case "watch":
		id, err := d.AddWatchExpression(rest)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "watch %d: %s\n", id, rest)

	case "unwatch":
		id, err := strconv.Atoi(rest)
		if err != nil {
			return err
		}
		return d.RemoveWatchExpression(id)

	case "cont", "c", "run":
		return c.resume(ctx, d.Resume, false)

	case "step", "s":
		return c.resume(ctx, d.StepInto, true)

	case "next", "n":
		return c.resume(ctx, d.StepOver, true)

	case "out", "o":
		return c.resume(ctx, d.StepOut, true)

	case "print", "p":
		v, err := d.Evaluate(rest)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "%v\n", v)

	case "stack", "bt":
		for i, frame := range d.State().CallStack {
			fmt.Fprintf(c.out, "#%d %v\n", i, frame.Location)
		}

	case "vars":
		vars := d.State().Variables
		for _, name := range slices.Sorted(maps.Keys(vars)) {
			fmt.Fprintf(c.out, "%s = %v\n", name, vars[name])
		}

	case "info":
		for _, bp := range d.Breakpoints() {
			fmt.Fprintf(c.out, "breakpoint %d at %v enabled %v hits %d", bp.ID, bp.Location, bp.Enabled, bp.Hits)
			if bp.Condition != "" {
				fmt.Fprintf(c.out, " if %s", bp.Condition)
			}
			if bp.Err != nil {
				fmt.Fprintf(c.out, " (%v)", bp.Err)
			}
			fmt.Fprintln(c.out)
		}
		c.printWatches()

	case "tap":
		if d.Status() != debugs.Paused {
			return debugs.ErrNotPaused
		}
		c.tap(ctx, "paused", d.TapGlobals())

	case "dump":
		data, err := d.State().MarshalCBOR()
		if err != nil {
			return err
		}
		if err := os.WriteFile(rest, data, 0644); err != nil {
			return err
		}
		fmt.Fprintf(c.out, "%d bytes written to %s\n", len(data), rest)

	default:
		return fmt.Errorf("unknown command: %s", name)
	}

	return nil
}

// resume continues a paused program. Before the first pause, stepping
// stops at the first instruction.
func (c *console) resume(ctx context.Context, step func() error, stepping bool) error {
	if c.done {
		return fmt.Errorf("program ended")
	}
	d := c.debugger
	if d.Status() == debugs.Paused {
		if err := step(); err != nil {
			return err
		}
	} else if stepping {
		if err := d.Pause(); err != nil {
			return err
		}
	}

	done, err := c.session.run(ctx)
	if done {
		c.done = true
		fmt.Fprintln(c.out, "program ended")
	}
	if err != nil {
		return err
	}
	if d.Status() == debugs.Paused {
		c.printPause()
	}
	return nil
}

func (c *console) printPause() {
	state := c.debugger.State()
	if state.Location == nil {
		return
	}
	fmt.Fprintf(c.out, "paused at %v depth %d", *state.Location, state.Depth)
	if state.Reason != "" {
		fmt.Fprintf(c.out, " (%s)", state.Reason)
	}
	fmt.Fprintln(c.out)
	c.printWatches()
}

func (c *console) printWatches() {
	for _, w := range c.debugger.Watches() {
		if w.Err != nil {
			fmt.Fprintf(c.out, "watch %d %s: %v\n", w.ID, w.Expr, w.Err)
			continue
		}
		fmt.Fprintf(c.out, "watch %d %s = %v\n", w.ID, w.Expr, w.Value)
	}
}
