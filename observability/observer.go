// Package observability provides event-based observability for the bridge,
// hub transports, and CLI tooling. Level values align with OpenTelemetry
// SeverityNumbers for zero-translation compatibility with OTel collectors.
package observability

import (
	"context"
	"log/slog"
	"time"
)

// Level grades event severity on the OTel SeverityNumber scale.
type Level int

const (
	LevelVerbose Level = 5  // OTel DEBUG range (5-8)
	LevelInfo    Level = 9  // OTel INFO range (9-12)
	LevelWarning Level = 13 // OTel WARN range (13-16)
	LevelError   Level = 17 // OTel ERROR range (17-20)
)

// SlogLevel maps this level to the slog.Level used for log emission.
// Values below LevelInfo read as debug; values at or above LevelError as
// error.
func (l Level) SlogLevel() slog.Level {
	switch {
	case l < LevelInfo:
		return slog.LevelDebug
	case l < LevelWarning:
		return slog.LevelInfo
	case l < LevelError:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

func (l Level) String() string {
	return l.SlogLevel().String()
}

// EventType identifies the kind of event. Each subsystem defines its own
// constants using this type (e.g., "bridge.call.start", "bridge.hub.lost").
type EventType string

// Event is one observability event. Fields map to OTel LogRecord fields:
// Type to EventName, Level to SeverityNumber, Source to the
// instrumentation scope, Data to attributes.
type Event struct {
	Type      EventType
	Level     Level
	Timestamp time.Time
	Source    string
	Data      map[string]any
}

// Observer receives events from subsystems for logging, tracing, or metrics.
type Observer interface {
	OnEvent(ctx context.Context, event Event)
}

// Emit constructs an Event stamped with the current time and hands it to the
// observer. A nil observer is a no-op, so callers never need to guard.
func Emit(ctx context.Context, obs Observer, source string, eventType EventType, level Level, data map[string]any) {
	if obs == nil {
		return
	}
	obs.OnEvent(ctx, Event{
		Type:      eventType,
		Level:     level,
		Timestamp: time.Now(),
		Source:    source,
		Data:      data,
	})
}
