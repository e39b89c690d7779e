package avm

import (
	"fmt"

	"github.com/reusee/relic/debugs"
)

// frameScope shows a paused frame: its scope chain below the globals,
// innermost bindings winning, plus the registers in use.
type frameScope struct {
	thread *Thread
	frame  *Frame
}

var _ debugs.Scope = new(frameScope)

func (s *frameScope) Lookup(name string) (any, bool) {
	v := s.thread.getVariable(s.frame, name)
	if _, ok := v.(Undefined); ok {
		if _, defined := s.frame.Env.Get(name); !defined {
			return nil, false
		}
	}
	return v, true
}

func (s *frameScope) Variables() map[string]any {
	var chain []*Env
	for env := s.frame.Env; env != nil && env != s.thread.machine.globals; env = env.Parent {
		chain = append(chain, env)
	}
	vars := make(map[string]any)
	for i := len(chain) - 1; i >= 0; i-- {
		for name, v := range chain[i].Vars {
			vars[name] = v
		}
	}
	for i, v := range s.frame.Registers {
		if _, ok := v.(Undefined); !ok {
			vars[fmt.Sprintf("register%d", i)] = v
		}
	}
	return vars
}

func (s *frameScope) CallStack() []debugs.StackFrame {
	frames := s.thread.frames
	ret := make([]debugs.StackFrame, 0, len(frames))
	for i := len(frames) - 1; i >= 0; i-- {
		ret = append(ret, debugs.StackFrame{
			Location: s.thread.location(frames[i]),
			Depth:    i + 1,
		})
	}
	return ret
}
