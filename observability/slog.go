package observability

import (
	"context"
	"log/slog"
)

// SlogObserver renders events through a slog.Logger: the event type becomes
// the log message, the level maps via SlogLevel, and the source plus every
// Data entry become attributes.
type SlogObserver struct {
	logger *slog.Logger
}

// NewSlogObserver wraps logger as an Observer.
func NewSlogObserver(logger *slog.Logger) *SlogObserver {
	return &SlogObserver{logger: logger}
}

func (o *SlogObserver) OnEvent(ctx context.Context, event Event) {
	attrs := []slog.Attr{slog.String("source", event.Source)}
	for name, value := range event.Data {
		attrs = append(attrs, slog.Any(name, value))
	}

	o.logger.LogAttrs(ctx, event.Level.SlogLevel(), string(event.Type), attrs...)
}
