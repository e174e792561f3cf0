// Package wsclient implements hub.Transport against a remote hub spoken
// over WebSocket.
//
// # Wire Protocol
//
// Both directions exchange one JSON frame shape. Client-initiated
// operations carry a sequence number and receive exactly one ack or error
// frame with the same number:
//
//	→ {"op": "register", "seq": 1}
//	← {"op": "ack", "seq": 1, "client_id": "c4"}
//
//	→ {"op": "call", "seq": 7, "recipient": "c2", "tag": "...",
//	   "message": {"samp.mtype": "ds9.get", "samp.params": {"cmd": "cmap"}}}
//	← {"op": "ack", "seq": 7}
//
// Replies and incoming calls are hub-initiated pushes with no sequence
// number and are delivered through the hub.Receiver:
//
//	← {"op": "deliver-reply", "tag": "...",
//	   "reply": {"samp.status": "samp.ok", "samp.result": {"value": "grey"}}}
//
// # Failure Model
//
// A read failure fails every in-flight round trip with hub.ErrClosed and
// notifies the receiver via Disconnected, unless the close was requested
// locally through Close.
package wsclient
