// Package memhub provides an in-process messaging hub implementing the
// hub.Transport seam, used by tests and embedded harnesses.
//
// # Connecting
//
// A Hub routes between transports obtained from Connect:
//
//	h := memhub.New(ctx, memhub.DefaultConfig())
//	t := h.Connect()
//	t.SetReceiver(receiver)
//	id, err := t.Register(ctx)
//
// Client identifiers are assigned in registration order: c1, c2, and so on.
//
// # Routing
//
// Calls are assigned a hub-generated message ID and queued on the
// recipient's delivery channel; the hub remembers (caller, tag) per message
// ID and routes the recipient's Reply back to the caller's receiver under
// the original tag. Notifications are delivered the same way with an empty
// message ID, marking that no reply is expected.
//
// # Shutdown
//
// Shutdown drops all registrations and delivers Disconnected(hub.ErrClosed)
// to every connected receiver, which is how a hub crash appears to clients
// of a remote transport.
package memhub
