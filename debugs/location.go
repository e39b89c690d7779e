package debugs

import (
	"fmt"
	"strings"
)

// Location names a point in loaded code without referring to engine
// objects. Unit is a class or movie clip name, Member a method name with
// its descriptor or a script name such as "frame 3".
type Location struct {
	Unit   string
	Member string
	Line   int
	PC     int
}

func (l Location) String() string {
	var b strings.Builder
	b.WriteString(l.Unit)
	if l.Member != "" {
		b.WriteString(".")
		b.WriteString(l.Member)
	}
	if l.Line > 0 {
		fmt.Fprintf(&b, ":%d", l.Line)
	}
	fmt.Fprintf(&b, "@%d", l.PC)
	return b.String()
}

// ParseLocation reads "Unit.member:line" or "Unit.member@pc". The member
// may omit its descriptor.
func ParseLocation(s string) (loc Location, err error) {
	rest := s
	if i := strings.LastIndex(rest, "@"); i >= 0 {
		if _, err := fmt.Sscanf(rest[i+1:], "%d", &loc.PC); err != nil {
			return loc, fmt.Errorf("bad pc in %q", s)
		}
		rest = rest[:i]
	} else if i := strings.LastIndex(rest, ":"); i >= 0 {
		if _, err := fmt.Sscanf(rest[i+1:], "%d", &loc.Line); err != nil || loc.Line <= 0 {
			return loc, fmt.Errorf("bad line in %q", s)
		}
		rest = rest[:i]
	}
	// member starts after the last dot that precedes any descriptor
	head := rest
	if i := strings.Index(head, "("); i >= 0 {
		head = head[:i]
	}
	i := strings.LastIndex(head, ".")
	if i < 0 {
		return loc, fmt.Errorf("no member in %q", s)
	}
	loc.Unit = rest[:i]
	loc.Member = rest[i+1:]
	if loc.Unit == "" || loc.Member == "" {
		return loc, fmt.Errorf("bad location %q", s)
	}
	return loc, nil
}

// matches reports whether the breakpoint location l selects cur.
func (l Location) matches(cur Location, lineStart bool) bool {
	if l.Unit != cur.Unit {
		return false
	}
	if l.Member != cur.Member &&
		!(strings.HasPrefix(cur.Member, l.Member) && strings.HasPrefix(cur.Member[len(l.Member):], "(")) {
		return false
	}
	if l.Line > 0 {
		return lineStart && cur.Line == l.Line
	}
	return l.PC == cur.PC
}

type StackFrame struct {
	Location Location
	Depth    int
}

// Scope is the paused frame as seen by the debugger. It is only valid
// during the Check call that received it.
type Scope interface {
	Lookup(name string) (any, bool)
	Variables() map[string]any
	CallStack() []StackFrame
}

// Stop describes the instruction about to execute.
type Stop struct {
	Location  Location
	Depth     int
	LineStart bool
	Scope     Scope
}

// Observer is notified by an engine. Enter and Leave report the depth after
// a frame is pushed or popped. Check is called before every instruction
// and returns true to pause before it.
type Observer interface {
	Enter(depth int)
	Leave(depth int)
	Check(stop Stop) bool
}

// UnitObserver is an Observer told when an engine drops a unit.
type UnitObserver interface {
	Observer
	Unloaded(unit string)
}

var _ UnitObserver = new(Debugger)

// Target is an engine that accepts an observer.
type Target interface {
	SetObserver(Observer)
}
