package logs

import (
	"context"
	"errors"
	"fmt"
)

// WrapSpan attaches the span and unit found in ctx to err.
func WrapSpan(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if v, ok := ctx.Value(SpanKey).(Span); ok {
		err = errors.Join(err, fmt.Errorf("span: %s", v))
	}
	if unit := UnitOf(ctx); unit != "" {
		err = errors.Join(err, fmt.Errorf("unit: %s", unit))
	}
	return err
}
