package units

import (
	"fmt"
)

type ErrorKind uint8

const (
	BadMagic ErrorKind = iota + 1
	Truncated
	UnsupportedVersion
	MalformedField
)

func (k ErrorKind) String() string {
	switch k {
	case BadMagic:
		return "bad magic"
	case Truncated:
		return "truncated"
	case UnsupportedVersion:
		return "unsupported version"
	case MalformedField:
		return "malformed field"
	}
	return fmt.Sprintf("ErrorKind(%d)", uint8(k))
}

// ParseError is the only error decoders return for structural problems.
// Offset is relative to the start of the (decompressed) input.
type ParseError struct {
	Format Format
	Kind   ErrorKind
	Offset int
	Reason string
	Err    error
}

var (
	ErrBadMagic           = &ParseError{Kind: BadMagic}
	ErrTruncated          = &ParseError{Kind: Truncated}
	ErrUnsupportedVersion = &ParseError{Kind: UnsupportedVersion}
	ErrMalformedField     = &ParseError{Kind: MalformedField}
)

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("%s: %s at offset %d", e.Format, e.Kind, e.Offset)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is matches the sentinels above by kind, optionally narrowed by format.
func (e *ParseError) Is(target error) bool {
	t, ok := target.(*ParseError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind &&
		(t.Format == 0 || t.Format == e.Format)
}

func Errorf(format Format, kind ErrorKind, offset int, reason string, args ...any) *ParseError {
	return &ParseError{
		Format: format,
		Kind:   kind,
		Offset: offset,
		Reason: fmt.Sprintf(reason, args...),
	}
}
