package avm

import (
	"context"

	"github.com/reusee/relic/debugs"
	"github.com/reusee/relic/logs"
)

// Machine runs action scripts for one movie. Globals are shared by every
// clip scope created from it.
type Machine struct {
	opts     Options
	host     Host
	logger   logs.Logger
	observer debugs.Observer
	globals  *Env
}

var _ debugs.Target = new(Machine)

func NewMachine(opts Options, host Host, logger logs.Logger) *Machine {
	if host == nil {
		host = nopHost{}
	}
	m := &Machine{
		opts:    opts.withDefaults(),
		host:    host,
		logger:  logger,
		globals: &Env{},
	}
	m.defineBuiltins()
	return m
}

func (m *Machine) SetObserver(o debugs.Observer) {
	m.observer = o
}

func (m *Machine) Options() Options {
	return m.opts
}

// Define adds a global visible to every scope.
func (m *Machine) Define(name string, v any) {
	m.globals.Def(name, v)
}

// DefineNative adds a global host function.
func (m *Machine) DefineNative(name string, fn NativeFunc) {
	m.Define(name, &Function{
		Name:   name,
		Native: fn,
	})
}

// Scope returns the variable scope backed by a clip's props.
func (m *Machine) Scope(clip *Object) *Env {
	return &Env{
		Parent: m.globals,
		Vars:   clip.Props,
	}
}

// Run executes script to completion. Debugger pauses are released at once.
func (m *Machine) Run(ctx context.Context, script Script, clip *Object) error {
	t := m.NewThread(ctx, script, clip)
	for intr, err := range t.Run {
		if err != nil {
			return err
		}
		if intr.Pause {
			t.release()
		}
	}
	return nil
}

// Call invokes a script function from the host.
func (m *Machine) Call(ctx context.Context, fn *Function, clip *Object, args ...any) (any, error) {
	t := m.NewThread(ctx, Script{
		Unit: fn.Unit,
		Name: fn.Name,
	}, clip)
	t.started = true
	if err := t.enter(fn, clip, args); err != nil {
		t.fault(err)
		return nil, err
	}
	if len(t.frames) == 0 {
		// natives complete without a frame
		return t.pop(), nil
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
