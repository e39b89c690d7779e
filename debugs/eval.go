package debugs

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"

	"go.starlark.net/syntax"
)

var ErrUnavailable = errors.New("unavailable")

// EvalError reports an expression that failed to compile or evaluate.
type EvalError struct {
	Expr   string
	Reason string
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("eval %q: %s", e.Expr, e.Reason)
}

// Expr is a compiled watch or condition expression. Only literals,
// identifiers, unary and binary operators, member access and index access
// are accepted.
type Expr struct {
	src  string
	root syntax.Expr
}

var constants = map[string]any{
	"True":      true,
	"False":     false,
	"None":      nil,
	"true":      true,
	"false":     false,
	"null":      nil,
	"undefined": Undefined{},
}

const maxExprLength = 4096

func Compile(src string) (*Expr, error) {
	if len(src) > maxExprLength {
		return nil, &EvalError{Expr: src, Reason: "expression too long"}
	}
	if strings.TrimSpace(src) == "" {
		return nil, &EvalError{Expr: src, Reason: "empty expression"}
	}
	root, err := new(syntax.FileOptions).ParseExpr("expr", src, 0)
	if err != nil {
		return nil, &EvalError{Expr: src, Reason: err.Error()}
	}
	if err := check(root); err != nil {
		return nil, &EvalError{Expr: src, Reason: err.Error()}
	}
	return &Expr{
		src:  src,
		root: root,
	}, nil
}

func (e *Expr) String() string {
	return e.src
}

func check(expr syntax.Expr) error {
	switch expr := expr.(type) {
	case *syntax.Literal:
		if expr.Token == syntax.BYTES {
			return fmt.Errorf("unsupported literal: %s", expr.Raw)
		}
		switch expr.Value.(type) {
		case int64, float64, string:
			return nil
		case *big.Int:
			return fmt.Errorf("integer literal out of range: %s", expr.Raw)
		}
		return fmt.Errorf("unsupported literal: %s", expr.Raw)
	case *syntax.Ident:
		return nil
	case *syntax.ParenExpr:
		return check(expr.X)
	case *syntax.UnaryExpr:
		switch expr.Op {
		case syntax.MINUS, syntax.PLUS, syntax.NOT, syntax.TILDE:
		default:
			return fmt.Errorf("unsupported operator: %s", expr.Op)
		}
		if expr.X == nil {
			return fmt.Errorf("missing operand")
		}
		return check(expr.X)
	case *syntax.BinaryExpr:
		switch expr.Op {
		case syntax.PLUS, syntax.MINUS, syntax.STAR, syntax.SLASH, syntax.SLASHSLASH, syntax.PERCENT,
			syntax.EQL, syntax.NEQ, syntax.LT, syntax.GT, syntax.LE, syntax.GE,
			syntax.AND, syntax.OR,
			syntax.AMP, syntax.PIPE, syntax.CIRCUMFLEX, syntax.LTLT, syntax.GTGT:
		default:
			return fmt.Errorf("unsupported operator: %s", expr.Op)
		}
		if err := check(expr.X); err != nil {
			return err
		}
		return check(expr.Y)
	case *syntax.DotExpr:
		return check(expr.X)
	case *syntax.IndexExpr:
		if err := check(expr.X); err != nil {
			return err
		}
		return check(expr.Y)
	case *syntax.CallExpr:
		return fmt.Errorf("calls are not allowed")
	case *syntax.LambdaExpr:
		return fmt.Errorf("lambdas are not allowed")
	case *syntax.Comprehension:
		return fmt.Errorf("comprehensions are not allowed")
	case *syntax.SliceExpr:
		return fmt.Errorf("slices are not allowed")
	}
	return fmt.Errorf("unsupported expression: %T", expr)
}

// Lookup resolves identifiers during evaluation.
type Lookup func(name string) (any, bool)

// Eval evaluates the expression against bindings.
func (e *Expr) Eval(lookup Lookup) (ret any, err error) {
	defer func() {
		if p := recover(); p != nil {
			// engine values may panic in Member or Index
			err = &EvalError{Expr: e.src, Reason: fmt.Sprint(p)}
		}
	}()
	ret, err = eval(e.root, lookup)
	if err != nil {
		var evalErr *EvalError
		if errors.As(err, &evalErr) || errors.Is(err, ErrUnavailable) {
			return nil, err
		}
		return nil, &EvalError{Expr: e.src, Reason: err.Error()}
	}
	return ret, nil
}

// Eval compiles and evaluates src in one step.
func Eval(src string, lookup Lookup) (any, error) {
	expr, err := Compile(src)
	if err != nil {
		return nil, err
	}
	return expr.Eval(lookup)
}

func eval(expr syntax.Expr, lookup Lookup) (any, error) {
	switch expr := expr.(type) {

	case *syntax.Literal:
		return expr.Value, nil

	case *syntax.Ident:
		if v, ok := constants[expr.Name]; ok {
			return v, nil
		}
		if lookup == nil {
			return nil, fmt.Errorf("undefined: %s", expr.Name)
		}
		v, ok := lookup(expr.Name)
		if !ok {
			return nil, fmt.Errorf("undefined: %s", expr.Name)
		}
		return normalize(v), nil

	case *syntax.ParenExpr:
		return eval(expr.X, lookup)

	case *syntax.UnaryExpr:
		x, err := eval(expr.X, lookup)
		if err != nil {
			return nil, err
		}
		return unary(expr.Op, x)

	case *syntax.BinaryExpr:
		x, err := eval(expr.X, lookup)
		if err != nil {
			return nil, err
		}
		switch expr.Op {
		case syntax.AND:
			if !truthy(x) {
				return x, nil
			}
			return eval(expr.Y, lookup)
		case syntax.OR:
			if truthy(x) {
				return x, nil
			}
			return eval(expr.Y, lookup)
		}
		y, err := eval(expr.Y, lookup)
		if err != nil {
			return nil, err
		}
		return binary(expr.Op, x, y)

	case *syntax.DotExpr:
		x, err := eval(expr.X, lookup)
		if err != nil {
			return nil, err
		}
		return member(x, expr.Name.Name)

	case *syntax.IndexExpr:
		x, err := eval(expr.X, lookup)
		if err != nil {
			return nil, err
		}
		y, err := eval(expr.Y, lookup)
		if err != nil {
			return nil, err
		}
		return index(x, y)

	}
	return nil, fmt.Errorf("unsupported expression: %T", expr)
}

func member(x any, name string) (any, error) {
	switch x := x.(type) {
	case Object:
		v, ok := x.Member(name)
		if !ok {
			return nil, fmt.Errorf("no member %s in %s", name, typeName(x))
		}
		return normalize(v), nil
	case map[string]any:
		v, ok := x[name]
		if !ok {
			return nil, fmt.Errorf("no member %s", name)
		}
		return normalize(v), nil
	case string:
		if name == "length" {
			return int64(len([]rune(x))), nil
		}
	case Indexable:
		if name == "length" {
			return int64(x.Len()), nil
		}
	case []any:
		if name == "length" {
			return int64(len(x)), nil
		}
	}
	return nil, fmt.Errorf("%s has no member %s", typeName(x), name)
}

func index(x, y any) (any, error) {
	switch x := x.(type) {
	case Object:
		if name, ok := y.(string); ok {
			return member(x, name)
		}
	case map[string]any:
		if name, ok := y.(string); ok {
			return member(x, name)
		}
	}
	i, ok := y.(int64)
	if !ok {
		return nil, fmt.Errorf("cannot index %s with %s", typeName(x), typeName(y))
	}
	switch x := x.(type) {
	case Indexable:
		n := int64(x.Len())
		if i < 0 {
			i += n
		}
		if i < 0 || i >= n {
			return nil, fmt.Errorf("index %d out of range [0, %d)", i, n)
		}
		v, ok := x.Index(int(i))
		if !ok {
			return nil, fmt.Errorf("index %d unavailable", i)
		}
		return normalize(v), nil
	case []any:
		n := int64(len(x))
		if i < 0 {
			i += n
		}
		if i < 0 || i >= n {
			return nil, fmt.Errorf("index %d out of range [0, %d)", i, n)
		}
		return normalize(x[i]), nil
	case string:
		runes := []rune(x)
		n := int64(len(runes))
		if i < 0 {
			i += n
		}
		if i < 0 || i >= n {
			return nil, fmt.Errorf("index %d out of range [0, %d)", i, n)
		}
		return string(runes[i]), nil
	}
	return nil, fmt.Errorf("%s is not indexable", typeName(x))
}

func unary(op syntax.Token, x any) (any, error) {
	switch op {
	case syntax.NOT:
		return !truthy(x), nil
	case syntax.MINUS:
		switch x := x.(type) {
		case int64:
			if x == math.MinInt64 {
				return nil, fmt.Errorf("integer overflow")
			}
			return -x, nil
		case float64:
			return -x, nil
		}
	case syntax.PLUS:
		switch x := x.(type) {
		case int64, float64:
			return x, nil
		}
	case syntax.TILDE:
		if x, ok := x.(int64); ok {
			return ^x, nil
		}
	}
	return nil, fmt.Errorf("bad operand %s for %s", typeName(x), op)
}

func binary(op syntax.Token, x, y any) (any, error) {
	switch op {
	case syntax.EQL:
		return equal(x, y), nil
	case syntax.NEQ:
		return !equal(x, y), nil
	case syntax.LT, syntax.GT, syntax.LE, syntax.GE:
		c, err := compare(x, y)
		if err != nil {
			return nil, err
		}
		switch op {
		case syntax.LT:
			return c < 0, nil
		case syntax.GT:
			return c > 0, nil
		case syntax.LE:
			return c <= 0, nil
		}
		return c >= 0, nil
	}

	if xs, ok := x.(string); ok {
		if ys, ok := y.(string); ok && op == syntax.PLUS {
			return xs + ys, nil
		}
		return nil, fmt.Errorf("bad operands %s %s %s", typeName(x), op, typeName(y))
	}

	xi, xInt := x.(int64)
	yi, yInt := y.(int64)
	if xInt && yInt {
		return intBinary(op, xi, yi)
	}

	switch op {
	case syntax.AMP, syntax.PIPE, syntax.CIRCUMFLEX, syntax.LTLT, syntax.GTGT:
		return nil, fmt.Errorf("bad operands %s %s %s", typeName(x), op, typeName(y))
	}
	xf, ok1 := toFloat(x)
	yf, ok2 := toFloat(y)
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("bad operands %s %s %s", typeName(x), op, typeName(y))
	}
	switch op {
	case syntax.PLUS:
		return xf + yf, nil
	case syntax.MINUS:
		return xf - yf, nil
	case syntax.STAR:
		return xf * yf, nil
	case syntax.SLASH:
		if yf == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return xf / yf, nil
	case syntax.SLASHSLASH:
		if yf == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return math.Floor(xf / yf), nil
	case syntax.PERCENT:
		if yf == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		m := math.Mod(xf, yf)
		if m != 0 && (m < 0) != (yf < 0) {
			m += yf
		}
		return m, nil
	}
	return nil, fmt.Errorf("unsupported operator: %s", op)
}

func intBinary(op syntax.Token, x, y int64) (any, error) {
	switch op {
	case syntax.PLUS:
		r := x + y
		if (r > x) != (y > 0) {
			return nil, fmt.Errorf("integer overflow")
		}
		return r, nil
	case syntax.MINUS:
		r := x - y
		if (r < x) != (y > 0) {
			return nil, fmt.Errorf("integer overflow")
		}
		return r, nil
	case syntax.STAR:
		if x != 0 && y != 0 {
			r := x * y
			if r/y != x || (x == -1 && y == math.MinInt64) || (y == -1 && x == math.MinInt64) {
				return nil, fmt.Errorf("integer overflow")
			}
			return r, nil
		}
		return int64(0), nil
	case syntax.SLASH:
		if y == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return float64(x) / float64(y), nil
	case syntax.SLASHSLASH:
		if y == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		if x == math.MinInt64 && y == -1 {
			return nil, fmt.Errorf("integer overflow")
		}
		q := x / y
		if (x%y != 0) && ((x < 0) != (y < 0)) {
			q--
		}
		return q, nil
	case syntax.PERCENT:
		if y == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		if y == -1 {
			return int64(0), nil
		}
		m := x % y
		if m != 0 && (m < 0) != (y < 0) {
			m += y
		}
		return m, nil
	case syntax.AMP:
		return x & y, nil
	case syntax.PIPE:
		return x | y, nil
	case syntax.CIRCUMFLEX:
		return x ^ y, nil
	case syntax.LTLT, syntax.GTGT:
		if y < 0 {
			return nil, fmt.Errorf("negative shift count")
		}
		if y >= 64 {
			if op == syntax.GTGT && x < 0 {
				return int64(-1), nil
			}
			if op == syntax.LTLT && x != 0 {
				return nil, fmt.Errorf("integer overflow")
			}
			return int64(0), nil
		}
		if op == syntax.GTGT {
			return x >> y, nil
		}
		r := x << y
		if r>>y != x {
			return nil, fmt.Errorf("integer overflow")
		}
		return r, nil
	}
	return nil, fmt.Errorf("unsupported operator: %s", op)
}

func toFloat(v any) (float64, bool) {
	switch v := v.(type) {
	case int64:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

func equal(x, y any) bool {
	if xf, ok := toFloat(x); ok {
		if yf, ok := toFloat(y); ok {
			if xi, ok := x.(int64); ok {
				if yi, ok := y.(int64); ok {
					return xi == yi
				}
			}
			return xf == yf
		}
		return false
	}
	switch x := x.(type) {
	case nil:
		return y == nil
	case Undefined:
		_, ok := y.(Undefined)
		return ok
	case bool:
		yb, ok := y.(bool)
		return ok && x == yb
	case string:
		ys, ok := y.(string)
		return ok && x == ys
	}
	// reference identity for engine objects
	defer func() {
		recover()
	}()
	return x == y
}

func compare(x, y any) (int, error) {
	if xs, ok := x.(string); ok {
		if ys, ok := y.(string); ok {
			return strings.Compare(xs, ys), nil
		}
	}
	if xi, ok := x.(int64); ok {
		if yi, ok := y.(int64); ok {
			switch {
			case xi < yi:
				return -1, nil
			case xi > yi:
				return 1, nil
			}
			return 0, nil
		}
	}
	xf, ok1 := toFloat(x)
	yf, ok2 := toFloat(y)
	if !ok1 || !ok2 {
		return 0, fmt.Errorf("cannot compare %s and %s", typeName(x), typeName(y))
	}
	if math.IsNaN(xf) || math.IsNaN(yf) {
		return 0, fmt.Errorf("cannot compare NaN")
	}
	switch {
	case xf < yf:
		return -1, nil
	case xf > yf:
		return 1, nil
	}
	return 0, nil
}
