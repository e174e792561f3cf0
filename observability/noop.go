package observability

import "context"

// NoOpObserver drops every event. It suits tests and programs that bring
// their own telemetry.
type NoOpObserver struct{}

func (NoOpObserver) OnEvent(context.Context, Event) {}
