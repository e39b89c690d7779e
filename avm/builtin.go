package avm

import (
	"math"
	"strconv"
	"strings"
)

const maxNumberLength = 400

func arg(args []any, i int) any {
	if i < len(args) {
		return args[i]
	}
	return Undefined{}
}

func (m *Machine) defineBuiltins() {
	m.DefineNative("Number", func(t *Thread, this any, args []any) (any, error) {
		if len(args) == 0 {
			return float64(0), nil
		}
		return m.ToNumber(args[0]), nil
	})
	m.DefineNative("String", func(t *Thread, this any, args []any) (any, error) {
		if len(args) == 0 {
			return "", nil
		}
		return m.ToString(args[0]), nil
	})
	m.DefineNative("Boolean", func(t *Thread, this any, args []any) (any, error) {
		return m.ToBool(arg(args, 0)), nil
	})
	m.DefineNative("isNaN", func(t *Thread, this any, args []any) (any, error) {
		return math.IsNaN(m.ToNumber(arg(args, 0))), nil
	})
	m.DefineNative("parseFloat", func(t *Thread, this any, args []any) (any, error) {
		s := strings.TrimSpace(m.ToString(arg(args, 0)))
		// longest numeric prefix
		end := 0
		for i := range min(len(s), maxNumberLength) + 1 {
			if _, err := strconv.ParseFloat(s[:i], 64); err == nil && !strings.ContainsAny(s[:i], "_xXpP") {
				end = i
			}
		}
		if end == 0 {
			return math.NaN(), nil
		}
		f, _ := strconv.ParseFloat(s[:end], 64)
		return f, nil
	})
	m.DefineNative("parseInt", func(t *Thread, this any, args []any) (any, error) {
		s := strings.TrimSpace(m.ToString(arg(args, 0)))
		radix := 10
		if r := m.ToNumber(arg(args, 1)); !math.IsNaN(r) && r != 0 {
			radix = int(r)
		}
		neg := false
		if rest, ok := strings.CutPrefix(s, "-"); ok {
			neg = true
			s = rest
		} else {
			s = strings.TrimPrefix(s, "+")
		}
		if rest, ok := strings.CutPrefix(strings.ToLower(s), "0x"); ok && (radix == 16 || radix == 10 && len(args) < 2) {
			radix = 16
			s = rest
		}
		if radix < 2 || radix > 36 {
			return math.NaN(), nil
		}
		var n float64
		digits := 0
		for _, c := range strings.ToLower(s) {
			d := strings.IndexRune("0123456789abcdefghijklmnopqrstuvwxyz", c)
			if d < 0 || d >= radix {
				break
			}
			n = n*float64(radix) + float64(d)
			digits++
		}
		if digits == 0 {
			return math.NaN(), nil
		}
		if neg {
			n = -n
		}
		return n, nil
	})

	mathObject := NewObject()
	unary := map[string]func(float64) float64{
		"abs":   math.Abs,
		"ceil":  math.Ceil,
		"floor": math.Floor,
		"sqrt":  math.Sqrt,
		"sin":   math.Sin,
		"cos":   math.Cos,
		"round": func(x float64) float64 {
			return math.Floor(x + 0.5)
		},
	}
	for name, fn := range unary {
		mathObject.Set(name, &Function{
			Name: name,
			Native: func(t *Thread, this any, args []any) (any, error) {
				return fn(m.ToNumber(arg(args, 0))), nil
			},
		})
	}
	binary := map[string]func(float64, float64) float64{
		"min": math.Min,
		"max": math.Max,
		"pow": math.Pow,
	}
	for name, fn := range binary {
		mathObject.Set(name, &Function{
			Name: name,
			Native: func(t *Thread, this any, args []any) (any, error) {
				return fn(m.ToNumber(arg(args, 0)), m.ToNumber(arg(args, 1))), nil
			},
		})
	}
	mathObject.Set("PI", math.Pi)
	m.Define("Math", mathObject)
}
