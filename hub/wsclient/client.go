package wsclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/samp-tools/ds9samp/envelope"
	"github.com/samp-tools/ds9samp/hub"
)

const (
	defaultHandshakeTimeout = 10 * time.Second
	writeTimeout            = 10 * time.Second
)

// Option configures a Client before it dials.
type Option func(*Client)

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// Client speaks the hub's JSON frame protocol over a WebSocket connection
// and implements hub.Transport. Synchronous operations are correlated with
// their ack by sequence number; calls and replies pushed by the hub are
// handed to the receiver from the read loop.
type Client struct {
	conn   *websocket.Conn
	logger *slog.Logger

	// writeMutex serializes frame writes; gorilla connections allow only
	// one concurrent writer.
	writeMutex sync.Mutex

	mutex      sync.Mutex
	receiver   hub.Receiver
	pending    map[uint64]chan frame
	clientID   string
	localClose bool
	closed     bool
	closeErr   error

	seq  atomic.Uint64
	done chan struct{}
}

var _ hub.Transport = (*Client)(nil)

// Dial connects to a hub at a ws:// or wss:// URL. The returned client is
// not yet registered; call SetReceiver and then Register.
func Dial(ctx context.Context, url string, opts ...Option) (*Client, error) {
	dialer := websocket.Dialer{HandshakeTimeout: defaultHandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("wsclient: dial %s: %w", url, err)
	}

	c := &Client{
		conn:    conn,
		logger:  slog.Default(),
		pending: make(map[uint64]chan frame),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	go c.readLoop()
	return c, nil
}

func (c *Client) SetReceiver(r hub.Receiver) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.receiver = r
}

func (c *Client) Register(ctx context.Context) (string, error) {
	resp, err := c.roundTrip(ctx, frame{Op: opRegister})
	if err != nil {
		return "", err
	}

	c.mutex.Lock()
	c.clientID = resp.ClientID
	c.mutex.Unlock()

	return resp.ClientID, nil
}

func (c *Client) Unregister(ctx context.Context) error {
	_, err := c.roundTrip(ctx, frame{Op: opUnregister})
	if errors.Is(err, hub.ErrNotRegistered) {
		err = nil
	}
	if err == nil {
		c.mutex.Lock()
		c.clientID = ""
		c.mutex.Unlock()
	}
	return err
}

func (c *Client) DeclareMetadata(ctx context.Context, meta hub.Metadata) error {
	_, err := c.roundTrip(ctx, frame{Op: opDeclareMetadata, Metadata: &meta})
	return err
}

func (c *Client) DeclareSubscriptions(ctx context.Context, mtypes []string) error {
	_, err := c.roundTrip(ctx, frame{Op: opDeclareSubscriptions, MTypes: mtypes})
	return err
}

func (c *Client) RegisteredClients(ctx context.Context) ([]string, error) {
	resp, err := c.roundTrip(ctx, frame{Op: opClients})
	if err != nil {
		return nil, err
	}
	return resp.ClientIDs, nil
}

func (c *Client) GetMetadata(ctx context.Context, clientID string) (hub.Metadata, error) {
	resp, err := c.roundTrip(ctx, frame{Op: opGetMetadata, ClientID: clientID})
	if err != nil {
		return hub.Metadata{}, err
	}
	if resp.Metadata == nil {
		return hub.Metadata{}, nil
	}
	return *resp.Metadata, nil
}

func (c *Client) GetSubscriptions(ctx context.Context, clientID string) ([]string, error) {
	resp, err := c.roundTrip(ctx, frame{Op: opGetSubscriptions, ClientID: clientID})
	if err != nil {
		return nil, err
	}
	return resp.MTypes, nil
}

func (c *Client) Call(ctx context.Context, recipientID, tag string, msg *envelope.Message) error {
	_, err := c.roundTrip(ctx, frame{
		Op:        opCall,
		Recipient: recipientID,
		Tag:       tag,
		Message:   envelope.EncodeMessage(msg),
	})
	return err
}

func (c *Client) Reply(ctx context.Context, msgID string, rep *envelope.Reply) error {
	_, err := c.roundTrip(ctx, frame{
		Op:    opReply,
		MsgID: msgID,
		Reply: envelope.EncodeReply(rep),
	})
	return err
}

func (c *Client) Notify(ctx context.Context, recipientID string, msg *envelope.Message) error {
	_, err := c.roundTrip(ctx, frame{
		Op:        opNotify,
		Recipient: recipientID,
		Message:   envelope.EncodeMessage(msg),
	})
	return err
}

// Close tears down the connection. A still-registered client is
// unregistered first, fire and forget. The receiver does not get a
// Disconnected callback for a local close.
func (c *Client) Close() error {
	c.mutex.Lock()
	if c.closed {
		c.mutex.Unlock()
		return nil
	}
	c.localClose = true
	registered := c.clientID != ""
	c.mutex.Unlock()

	if registered {
		// No ack expected; the hub drops the registration on socket
		// close regardless.
		_ = c.writeFrame(frame{Op: opUnregister, Seq: c.seq.Add(1)})
	}

	// Best effort close handshake before dropping the connection.
	c.writeMutex.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMutex.Unlock()

	return c.conn.Close()
}

// roundTrip sends one frame and waits for the hub's ack or error with the
// matching sequence number.
func (c *Client) roundTrip(ctx context.Context, f frame) (*frame, error) {
	seq := c.seq.Add(1)
	f.Seq = seq
	ch := make(chan frame, 1)

	c.mutex.Lock()
	if c.closed {
		err := c.closeErr
		c.mutex.Unlock()
		return nil, fmt.Errorf("%w: %v", hub.ErrClosed, err)
	}
	c.pending[seq] = ch
	c.mutex.Unlock()

	defer func() {
		c.mutex.Lock()
		delete(c.pending, seq)
		c.mutex.Unlock()
	}()

	if err := c.writeFrame(f); err != nil {
		return nil, fmt.Errorf("%w: %v", hub.ErrClosed, err)
	}

	select {
	case resp := <-ch:
		if resp.Op == opError {
			return nil, decodeError(&resp)
		}
		return &resp, nil
	case <-c.done:
		return nil, hub.ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Client) writeFrame(f frame) error {
	c.writeMutex.Lock()
	defer c.writeMutex.Unlock()

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(f)
}

// readLoop owns the receive side: acks are routed to pending round trips,
// pushes are handed to the receiver, and a read failure fails everything.
func (c *Client) readLoop() {
	for {
		var f frame
		if err := c.conn.ReadJSON(&f); err != nil {
			c.fail(err)
			return
		}

		switch f.Op {
		case opAck, opError:
			c.mutex.Lock()
			ch, ok := c.pending[f.Seq]
			c.mutex.Unlock()
			if ok {
				ch <- f
			}

		case opDeliverCall:
			msg, err := envelope.DecodeMessage(f.Message)
			if err != nil {
				c.logger.Warn("dropping malformed call", slog.String("error", err.Error()))
				continue
			}
			if r := c.currentReceiver(); r != nil {
				r.ReceiveCall(f.Sender, f.MsgID, msg)
			}

		case opDeliverReply:
			rep, err := envelope.DecodeReply(f.Reply)
			if err != nil {
				c.logger.Warn("dropping malformed reply",
					slog.String("tag", f.Tag),
					slog.String("error", err.Error()))
				continue
			}
			if r := c.currentReceiver(); r != nil {
				r.ReceiveReply(f.Tag, rep)
			}

		default:
			c.logger.Warn("dropping unknown frame", slog.String("op", f.Op))
		}
	}
}

// fail marks the connection dead, wakes all pending round trips, and
// notifies the receiver unless the close was requested locally.
func (c *Client) fail(err error) {
	c.mutex.Lock()
	if c.closed {
		c.mutex.Unlock()
		return
	}
	c.closed = true
	c.closeErr = err
	local := c.localClose
	receiver := c.receiver
	c.mutex.Unlock()

	close(c.done)
	_ = c.conn.Close()

	if !local && receiver != nil {
		receiver.Disconnected(fmt.Errorf("%w: %v", hub.ErrClosed, err))
	}
}

func (c *Client) currentReceiver() hub.Receiver {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.receiver
}

func decodeError(f *frame) error {
	switch f.Code {
	case codeClientNotFound:
		return fmt.Errorf("%w: %s", hub.ErrClientNotFound, f.Error)
	case codeNotRegistered:
		return hub.ErrNotRegistered
	default:
		return fmt.Errorf("wsclient: hub error: %s", f.Error)
	}
}
