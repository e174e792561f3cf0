package observability

import "context"

// MultiObserver forwards each event to a fixed set of observers, so a
// deployment can log through slog while also feeding a metrics sink.
type MultiObserver struct {
	observers []Observer
}

// NewMultiObserver builds a fan-out observer. Nil entries are dropped so
// callers can pass optional sinks without guarding.
func NewMultiObserver(observers ...Observer) *MultiObserver {
	m := &MultiObserver{}
	for _, obs := range observers {
		if obs != nil {
			m.observers = append(m.observers, obs)
		}
	}
	return m
}

// OnEvent hands the event to every observer in registration order.
func (m *MultiObserver) OnEvent(ctx context.Context, event Event) {
	for _, obs := range m.observers {
		obs.OnEvent(ctx, event)
	}
}
