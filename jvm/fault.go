package jvm

import (
	"fmt"
	"strings"
)

type FaultKind uint8

const (
	UnsupportedOpcode FaultKind = iota + 1
	StackUnderflow
	StackOverflow
	MissingSymbol
	UncaughtFault
	DuplicateClass
	Aborted
	BadOperand
	MalformedCode
)

func (k FaultKind) String() string {
	switch k {
	case UnsupportedOpcode:
		return "unsupported opcode"
	case StackUnderflow:
		return "stack underflow"
	case StackOverflow:
		return "stack overflow"
	case MissingSymbol:
		return "missing symbol"
	case UncaughtFault:
		return "uncaught exception"
	case DuplicateClass:
		return "duplicate class"
	case Aborted:
		return "aborted"
	case BadOperand:
		return "bad operand"
	case MalformedCode:
		return "malformed code"
	}
	return fmt.Sprintf("FaultKind(%d)", k)
}

// Fault is a failed invocation. The engine discards the frames of the
// failed thread and stays usable.
type Fault struct {
	Kind       FaultKind
	PC         int
	FrameDepth int
	Class      string
	Method     string
	Message    string
	// Thrown is set for UncaughtFault
	Thrown *Object
}

func (f *Fault) Error() string {
	var b strings.Builder
	b.WriteString(f.Kind.String())
	if f.Message != "" {
		b.WriteString(": ")
		b.WriteString(f.Message)
	}
	if f.Class != "" {
		fmt.Fprintf(&b, " (%s.%s pc %d depth %d)", f.Class, f.Method, f.PC, f.FrameDepth)
	}
	return b.String()
}

// Is matches faults by kind, so errors.Is(err, &Fault{Kind: Aborted})
// works.
func (f *Fault) Is(target error) bool {
	t, ok := target.(*Fault)
	return ok && t.Kind == f.Kind && t.Class == "" && t.Message == ""
}

func fail(kind FaultKind, format string, args ...any) {
	panic(&Fault{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	})
}

func catch(err *error) {
	if p := recover(); p != nil {
		fault, ok := p.(*Fault)
		if !ok {
			panic(p)
		}
		*err = fault
	}
}

// Thrown is returned by natives to throw a Java exception.
type Thrown struct {
	Object *Object
}

func (t *Thrown) Error() string {
	return "thrown " + describeThrowable(t.Object)
}

func describeThrowable(obj *Object) string {
	if obj == nil {
		return "null"
	}
	name := strings.ReplaceAll(obj.Class.Name, "/", ".")
	if msg, ok := obj.Fields[messageField].(*String); ok && msg != nil {
		return name + ": " + msg.Value
	}
	return name
}
