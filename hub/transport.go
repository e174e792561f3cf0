package hub

import (
	"context"
	"errors"

	"github.com/samp-tools/ds9samp/envelope"
)

// Errors shared by all transport implementations.
var (
	// ErrNotRegistered is returned by operations that require a live
	// registration when none exists.
	ErrNotRegistered = errors.New("hub: not registered")
	// ErrClientNotFound is returned when the named peer is unknown to the hub.
	ErrClientNotFound = errors.New("hub: client not found")
	// ErrClosed is returned once the transport has been closed or the hub
	// connection has dropped.
	ErrClosed = errors.New("hub: connection closed")
)

// Metadata is the self-description a client declares after registering.
// Peers read it back through GetMetadata during discovery.
type Metadata struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version,omitempty"`
}

// Receiver is the asynchronous delivery hook a transport invokes from its
// own goroutine. Implementations must not block: hand off through a channel
// and return.
type Receiver interface {
	// ReceiveCall delivers an incoming call addressed to this client.
	// Replying is done through Transport.Reply with the same msgID.
	ReceiveCall(senderID, msgID string, msg *envelope.Message)

	// ReceiveReply delivers the reply to an earlier outgoing call,
	// identified by the caller-chosen correlation tag.
	ReceiveReply(tag string, rep *envelope.Reply)

	// Disconnected reports that the hub connection is gone. No further
	// deliveries will occur and pending calls will never complete.
	Disconnected(err error)
}

// Transport is a single client's connection to a messaging hub. One
// Transport corresponds to at most one hub registration at a time.
//
// Register/Unregister bracket the registration; the introspection calls
// (RegisteredClients, GetMetadata, GetSubscriptions) and the messaging calls
// (Call, Reply, Notify) require a live registration. SetReceiver must be
// called before Register so that no delivery is dropped.
type Transport interface {
	Register(ctx context.Context) (clientID string, err error)
	Unregister(ctx context.Context) error

	DeclareMetadata(ctx context.Context, meta Metadata) error
	DeclareSubscriptions(ctx context.Context, mtypes []string) error

	RegisteredClients(ctx context.Context) ([]string, error)
	GetMetadata(ctx context.Context, clientID string) (Metadata, error)
	GetSubscriptions(ctx context.Context, clientID string) ([]string, error)

	// Call sends msg to the recipient and asks the hub to route the
	// eventual reply back, keyed by tag. Call itself does not wait.
	Call(ctx context.Context, recipientID, tag string, msg *envelope.Message) error

	// Reply answers an incoming call previously delivered with msgID.
	Reply(ctx context.Context, msgID string, rep *envelope.Reply) error

	// Notify sends a one-way message with no reply routing.
	Notify(ctx context.Context, recipientID string, msg *envelope.Message) error

	SetReceiver(r Receiver)

	// Close releases the underlying connection. A registered client is
	// unregistered as a side effect where the transport can still reach
	// the hub. Close is idempotent.
	Close() error
}
