package bridge

import "github.com/samp-tools/ds9samp/observability"

// Bridge event types emitted across a session's lifetime.
const (
	EventConnect        observability.EventType = "bridge.connect"
	EventDisconnect     observability.EventType = "bridge.disconnect"
	EventResolve        observability.EventType = "bridge.resolve"
	EventCallStart      observability.EventType = "bridge.call.start"
	EventCallComplete   observability.EventType = "bridge.call.complete"
	EventCallTimeout    observability.EventType = "bridge.call.timeout"
	EventStaleReply     observability.EventType = "bridge.call.stale_reply"
	EventUnexpectedCall observability.EventType = "bridge.call.unexpected"
	EventHubLost        observability.EventType = "bridge.hub.lost"
	EventError          observability.EventType = "bridge.error"
)
