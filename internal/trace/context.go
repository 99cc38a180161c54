package trace

import (
	"context"
	"fmt"
)

type ctxKey uint8

const (
	keyTracer ctxKey = iota
	keySpan
	keyHeartbeat
)

// FromContext returns the tracer of ctx, or Nop.
func FromContext(ctx context.Context) Tracer {
	if ctx != nil {
		if t, ok := ctx.Value(keyTracer).(Tracer); ok {
			return t
		}
	}
	return Nop
}

// WithTracer attaches t (Nop when nil).
func WithTracer(ctx context.Context, t Tracer) context.Context {
	if t == nil {
		t = Nop
	}
	return context.WithValue(ctx, keyTracer, t)
}

// SpanContext is the enclosing span that new spans attach to.
type SpanContext struct {
	SpanID uint64
	GID    uint64
}

// CurrentSpan returns the enclosing span, zero at the root.
func CurrentSpan(ctx context.Context) SpanContext {
	if ctx != nil {
		if sc, ok := ctx.Value(keySpan).(SpanContext); ok {
			return sc
		}
	}
	return SpanContext{}
}

// WithSpanContext makes sc the parent of spans begun under ctx.
func WithSpanContext(ctx context.Context, sc SpanContext) context.Context {
	return context.WithValue(ctx, keySpan, sc)
}

// WithHeartbeat lets code under ctx update the heartbeat status.
func WithHeartbeat(ctx context.Context, h *Heartbeat) context.Context {
	if h == nil {
		return ctx
	}
	return context.WithValue(ctx, keyHeartbeat, h)
}

// ReportStatus sets the status the next heartbeat carries. It is a no-op
// without a heartbeat, so the driver calls it unconditionally.
func ReportStatus(ctx context.Context, format string, args ...any) {
	if ctx == nil {
		return
	}
	h, ok := ctx.Value(keyHeartbeat).(*Heartbeat)
	if !ok {
		return
	}
	h.SetStatus(fmt.Sprintf(format, args...))
}
