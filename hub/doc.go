// Package hub defines the transport seam between the call bridge and a
// SAMP-style messaging hub.
//
// A Transport is one client's connection: registration, metadata and
// subscription declaration, peer introspection, and the asynchronous
// call/reply/notify primitives. Replies and incoming calls are pushed to a
// Receiver from the transport's delivery goroutine; correlation of a reply
// back to its call is the caller's job, keyed by the tag passed to Call.
//
// Two implementations ship with this module:
//
//   - hub/memhub: an in-process hub for tests and embedded harnesses
//   - hub/wsclient: a client for a remote hub spoken over WebSocket
//
// The bridge package consumes only the Transport interface and never
// depends on a concrete implementation.
package hub
