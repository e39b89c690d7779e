package logs

import "context"

// Span names one load, invocation or playback session.
type Span string

type spanKey struct{}

var SpanKey spanKey

type unitKey struct{}

// WithUnit tags ctx with the name of the unit being decoded or executed.
func WithUnit(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, unitKey{}, name)
}

func UnitOf(ctx context.Context) string {
	name, _ := ctx.Value(unitKey{}).(string)
	return name
}
