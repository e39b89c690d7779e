package avm

import (
	"math"
	"strconv"
	"strings"
)

// FormatNumber renders numbers the way scripts see them: integers
// without a fraction, others with up to 15 significant digits.
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	case f == math.Trunc(f) && math.Abs(f) < 1e15:
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', 15, 64)
}

func (m *Machine) ToNumber(v any) float64 {
	switch v := v.(type) {
	case float64:
		return v
	case bool:
		if v {
			return 1
		}
		return 0
	case string:
		return m.parseNumber(v)
	case nil, Undefined:
		if m.opts.Version >= 7 {
			return math.NaN()
		}
		return 0
	}
	return math.NaN()
}

func (m *Machine) parseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		if m.opts.Version >= 7 {
			return math.NaN()
		}
		return 0
	}
	lower := strings.ToLower(s)
	if hex, ok := strings.CutPrefix(lower, "0x"); ok {
		i, err := strconv.ParseInt(hex, 16, 64)
		if err != nil {
			return math.NaN()
		}
		return float64(i)
	}
	if strings.ContainsAny(lower, "_abcdfghijklmnopqrstuvwxyz") {
		// ParseFloat accepts inf, nan and digit separators
		return math.NaN()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

func (m *Machine) ToString(v any) string {
	return m.toString(v, 0)
}

const maxJoinDepth = 8

func (m *Machine) toString(v any, depth int) string {
	switch v := v.(type) {
	case string:
		return v
	case float64:
		return FormatNumber(v)
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return "null"
	case Undefined:
		if m.opts.Version >= 7 {
			return "undefined"
		}
		return ""
	case *Object:
		if v.IsClip() {
			return v.Target
		}
		return "[object Object]"
	case *Array:
		if depth >= maxJoinDepth {
			return ""
		}
		parts := make([]string, len(v.Elements))
		for i, e := range v.Elements {
			switch e.(type) {
			case nil, Undefined:
			default:
				parts[i] = m.toString(e, depth+1)
			}
		}
		return strings.Join(parts, ",")
	case *Function:
		return "[type Function]"
	}
	return ""
}

func (m *Machine) ToBool(v any) bool {
	switch v := v.(type) {
	case bool:
		return v
	case float64:
		return v != 0 && !math.IsNaN(v)
	case string:
		if m.opts.Version >= 7 {
			return v != ""
		}
		n := m.parseNumber(v)
		return n != 0 && !math.IsNaN(n)
	case nil, Undefined:
		return false
	}
	return true
}

func TypeOf(v any) string {
	switch v := v.(type) {
	case nil:
		return "null"
	case Undefined:
		return "undefined"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case string:
		return "string"
	case *Function:
		return "function"
	case *Object:
		if v.IsClip() {
			return "movieclip"
		}
	}
	return "object"
}

func isNullish(v any) bool {
	switch v.(type) {
	case nil, Undefined:
		return true
	}
	return false
}

func isPrimitive(v any) bool {
	switch v.(type) {
	case nil, Undefined, float64, bool, string:
		return true
	}
	return false
}

func (m *Machine) toPrimitive(v any) any {
	if isPrimitive(v) {
		return v
	}
	return m.ToString(v)
}

// looseEquals is the Equals2 comparison.
func (m *Machine) looseEquals(a, b any) bool {
	if isNullish(a) || isNullish(b) {
		return isNullish(a) && isNullish(b)
	}
	switch x := a.(type) {
	case float64:
		switch y := b.(type) {
		case float64:
			return x == y
		case string, bool:
			return x == m.ToNumber(y)
		}
	case string:
		switch y := b.(type) {
		case string:
			return x == y
		case float64:
			return m.ToNumber(x) == y
		case bool:
			return m.ToNumber(x) == m.ToNumber(y)
		}
	case bool:
		if y, ok := b.(bool); ok {
			return x == y
		}
		return m.looseEquals(m.ToNumber(x), b)
	}
	if isPrimitive(a) != isPrimitive(b) {
		return m.looseEquals(m.toPrimitive(a), m.toPrimitive(b))
	}
	return a == b
}

func strictEquals(a, b any) bool {
	switch x := a.(type) {
	case float64:
		y, ok := b.(float64)
		return ok && x == y
	case string:
		y, ok := b.(string)
		return ok && x == y
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	case nil:
		return b == nil
	case Undefined:
		_, ok := b.(Undefined)
		return ok
	}
	return a == b
}

// looseLess is the Less2 comparison; ok is false when either side is NaN.
func (m *Machine) looseLess(a, b any) (less bool, ok bool) {
	a, b = m.toPrimitive(a), m.toPrimitive(b)
	if x, isString := a.(string); isString {
		if y, isString := b.(string); isString {
			return x < y, true
		}
	}
	x, y := m.ToNumber(a), m.ToNumber(b)
	if math.IsNaN(x) || math.IsNaN(y) {
		return false, false
	}
	return x < y, true
}

func (m *Machine) add2(a, b any) any {
	a, b = m.toPrimitive(a), m.toPrimitive(b)
	_, sa := a.(string)
	_, sb := b.(string)
	if sa || sb {
		return m.ToString(a) + m.ToString(b)
	}
	return m.ToNumber(a) + m.ToNumber(b)
}
