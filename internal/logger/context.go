package logger

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

type (
	loggerKey struct{}
	eventKey  struct{}
)

// event collects fields for the one log line emitted per request.
type event struct {
	mu     sync.Mutex
	fields []zap.Field
}

// ContextWithLogger stores a logger in the context.
func ContextWithLogger(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// FromContext returns the request logger, or a no-op logger outside a request.
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}

// WithEvent attaches an empty field set for the request's canonical log line.
func WithEvent(ctx context.Context) context.Context {
	return context.WithValue(ctx, eventKey{}, &event{})
}

// Annotate adds fields to the request's canonical log line. It is a no-op
// when the context carries no event.
func Annotate(ctx context.Context, fields ...zap.Field) {
	ev, ok := ctx.Value(eventKey{}).(*event)
	if !ok {
		return
	}
	ev.mu.Lock()
	ev.fields = append(ev.fields, fields...)
	ev.mu.Unlock()
}

// EventFields returns a copy of the annotated fields.
func EventFields(ctx context.Context) []zap.Field {
	ev, ok := ctx.Value(eventKey{}).(*event)
	if !ok {
		return nil
	}
	ev.mu.Lock()
	defer ev.mu.Unlock()
	return append([]zap.Field(nil), ev.fields...)
}
