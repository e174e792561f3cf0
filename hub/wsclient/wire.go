package wsclient

import (
	"github.com/samp-tools/ds9samp/hub"
)

// Frame ops sent by the client.
const (
	opRegister             = "register"
	opUnregister           = "unregister"
	opDeclareMetadata      = "declare-metadata"
	opDeclareSubscriptions = "declare-subscriptions"
	opClients              = "clients"
	opGetMetadata          = "get-metadata"
	opGetSubscriptions     = "get-subscriptions"
	opCall                 = "call"
	opReply                = "reply"
	opNotify               = "notify"
)

// Frame ops sent by the hub.
const (
	opAck          = "ack"
	opError        = "error"
	opDeliverCall  = "deliver-call"
	opDeliverReply = "deliver-reply"
)

// Error codes carried on op:"error" frames.
const (
	codeClientNotFound = "client-not-found"
	codeNotRegistered  = "not-registered"
)

// frame is the single JSON message shape exchanged with the hub in both
// directions. Seq correlates a client request with its ack or error; the
// deliver ops are hub-initiated pushes and carry no Seq.
type frame struct {
	Op  string `json:"op"`
	Seq uint64 `json:"seq,omitempty"`

	// Error reporting
	Code  string `json:"code,omitempty"`
	Error string `json:"error,omitempty"`

	// Registration and introspection
	ClientID  string        `json:"client_id,omitempty"`
	ClientIDs []string      `json:"client_ids,omitempty"`
	Metadata  *hub.Metadata `json:"metadata,omitempty"`
	MTypes    []string      `json:"mtypes,omitempty"`

	// Messaging
	Recipient string         `json:"recipient,omitempty"`
	Sender    string         `json:"sender,omitempty"`
	Tag       string         `json:"tag,omitempty"`
	MsgID     string         `json:"msg_id,omitempty"`
	Message   map[string]any `json:"message,omitempty"`
	Reply     map[string]any `json:"reply,omitempty"`
}
