package avm

import (
	"errors"
	"fmt"
)

type FaultKind uint8

const (
	UnsupportedOpcode FaultKind = iota + 1
	StackUnderflow
	StackOverflow
	MissingSymbol
	BadOperand
	Aborted
)

var faultKindNames = map[FaultKind]string{
	UnsupportedOpcode: "UnsupportedOpcode",
	StackUnderflow:    "StackUnderflow",
	StackOverflow:     "StackOverflow",
	MissingSymbol:     "MissingSymbol",
	BadOperand:        "BadOperand",
	Aborted:           "Aborted",
}

func (k FaultKind) String() string {
	if name, ok := faultKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("FaultKind(%d)", uint8(k))
}

// Fault ends a script run. Offset is the action's byte offset inside its
// block and Depth the number of active frames.
type Fault struct {
	Kind    FaultKind
	Offset  int
	Depth   int
	Script  string
	Message string
}

func (f *Fault) Error() string {
	if f.Script == "" {
		return fmt.Sprintf("avm: %s: %s", f.Kind, f.Message)
	}
	return fmt.Sprintf("avm: %s at %s+%d (depth %d): %s",
		f.Kind, f.Script, f.Offset, f.Depth, f.Message)
}

func (f *Fault) Is(target error) bool {
	var t *Fault
	return errors.As(target, &t) && t.Kind == f.Kind
}

func fail(kind FaultKind, format string, args ...any) {
	panic(&Fault{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	})
}
