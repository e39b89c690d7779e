package logs

import (
	"context"
	"crypto/rand"
)

// NewSpan opens a span for one load, invocation or playback of unit. A span
// already in ctx becomes the parent.
type NewSpan func(ctx context.Context, unit string) (context.Context, Span)

func (Module) NewSpan(
	logger Logger,
) NewSpan {
	return func(ctx context.Context, unit string) (context.Context, Span) {
		parent, _ := ctx.Value(SpanKey).(Span)

		span := Span(rand.Text())
		ctx = context.WithValue(ctx, SpanKey, span)
		if unit != "" {
			ctx = WithUnit(ctx, unit)
		}

		var args []any
		if parent != "" {
			args = append(args, "parent", parent)
		}
		logger.DebugContext(ctx, "new span", args...)

		return ctx, span
	}
}
