package classfile

import (
	"fmt"
)

// MethodType splits a method descriptor such as "(I[Ljava/lang/String;)V".
type MethodType struct {
	Params []string
	Return string
}

func ParseMethodDescriptor(desc string) (ret MethodType, err error) {
	if len(desc) < 3 || desc[0] != '(' {
		return ret, fmt.Errorf("bad method descriptor %q", desc)
	}
	i := 1
	for i < len(desc) && desc[i] != ')' {
		n, err := fieldTypeLen(desc[i:])
		if err != nil {
			return ret, fmt.Errorf("bad method descriptor %q: %w", desc, err)
		}
		ret.Params = append(ret.Params, desc[i:i+n])
		i += n
	}
	if i >= len(desc) {
		return ret, fmt.Errorf("bad method descriptor %q: missing ')'", desc)
	}
	i++
	rest := desc[i:]
	if rest == "V" {
		ret.Return = rest
		return ret, nil
	}
	n, err := fieldTypeLen(rest)
	if err != nil || n != len(rest) {
		return ret, fmt.Errorf("bad method descriptor %q: bad return type", desc)
	}
	ret.Return = rest
	return ret, nil
}

func fieldTypeLen(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("empty type")
	}
	switch s[0] {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
		return 1, nil
	case 'L':
		for i := 1; i < len(s); i++ {
			if s[i] == ';' {
				if i == 1 {
					return 0, fmt.Errorf("empty class name")
				}
				return i + 1, nil
			}
		}
		return 0, fmt.Errorf("unterminated class type")
	case '[':
		n, err := fieldTypeLen(s[1:])
		if err != nil {
			return 0, err
		}
		return n + 1, nil
	}
	return 0, fmt.Errorf("unknown type %q", s[0])
}

// ValidFieldDescriptor reports whether desc is exactly one field type.
func ValidFieldDescriptor(desc string) bool {
	n, err := fieldTypeLen(desc)
	return err == nil && n == len(desc)
}
