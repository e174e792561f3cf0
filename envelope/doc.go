// Package envelope provides the message and reply payloads exchanged with a
// SAMP-style messaging hub, independent of any particular transport.
//
// # Payload Shapes
//
// A Message names an operation (its mtype) and carries string-valued
// parameters. A Reply carries a status plus either named result values or
// the target's error text:
//
//	msg := envelope.NewCommand("ds9.set", "cmap grey").Build()
//
//	rep := envelope.NewSuccess().Value("grey").Build()
//	rep := envelope.NewFault("unknown command").Build()
//
// # Wire Encoding
//
// Hubs exchange payloads as self-describing string maps. EncodeMessage,
// DecodeMessage, EncodeReply, and DecodeReply convert between the typed
// forms and the map wire form:
//
//	{"samp.mtype": "ds9.get", "samp.params": {"cmd": "cmap"}}
//	{"samp.status": "samp.ok", "samp.result": {"value": "grey"}}
//
// # Correlation Tags
//
// NewTag issues the caller-chosen correlation tag linking a sent call to its
// eventual asynchronous reply. Tags are UUIDv7 and therefore time-sortable.
package envelope
