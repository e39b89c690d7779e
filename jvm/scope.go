package jvm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/reusee/relic/debugs"
)

// frameScope exposes a paused frame to the debugger. Locals are named
// from the local variable table, unnamed slots as local0, local1 and so
// on. Static fields of the frame's class are visible when not shadowed.
type frameScope struct {
	thread *Thread
	frame  *Frame
}

var _ debugs.Scope = new(frameScope)

func (s *frameScope) Lookup(name string) (any, bool) {
	f := s.frame
	code := f.Method.Code
	for slot := range f.Locals {
		if local, ok := code.LocalName(slot, f.PC); ok && local == name {
			return f.Locals[slot], true
		}
	}
	if name == "this" && !f.Method.IsStatic() && len(f.Locals) > 0 {
		return f.Locals[0], true
	}
	if rest, ok := strings.CutPrefix(name, "local"); ok {
		if slot, err := strconv.Atoi(rest); err == nil && slot >= 0 && slot < len(f.Locals) {
			return f.Locals[slot], true
		}
	}
	v, ok := f.Class.statics[name]
	return v, ok
}

func (s *frameScope) Variables() map[string]any {
	f := s.frame
	code := f.Method.Code
	vars := make(map[string]any)
	for name, v := range f.Class.statics {
		vars[name] = v
	}
	for slot, v := range f.Locals {
		if name, ok := code.LocalName(slot, f.PC); ok {
			vars[name] = v
			continue
		}
		if slot == 0 && !f.Method.IsStatic() {
			vars["this"] = v
			continue
		}
		if v != nil {
			vars[fmt.Sprintf("local%d", slot)] = v
		}
	}
	return vars
}

// CallStack lists frames innermost first.
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
