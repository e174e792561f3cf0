package memhub

import (
	"context"
	"sync"

	"github.com/samp-tools/ds9samp/envelope"
	"github.com/samp-tools/ds9samp/hub"
)

// Transport is one client's connection to an in-process Hub. It implements
// hub.Transport. The zero value is not usable; obtain one from Hub.Connect.
type Transport struct {
	hub *Hub

	mutex    sync.Mutex
	receiver hub.Receiver
	reg      *registration
	closed   bool
}

var _ hub.Transport = (*Transport)(nil)

func (t *Transport) SetReceiver(r hub.Receiver) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.receiver = r
}

func (t *Transport) currentReceiver() hub.Receiver {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.receiver
}

func (t *Transport) Register(ctx context.Context) (string, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.closed {
		return "", hub.ErrClosed
	}
	if t.reg != nil {
		return t.reg.ID, nil
	}

	reg, err := t.hub.register()
	if err != nil {
		return "", err
	}
	t.reg = reg

	t.hub.loops.Add(1)
	go t.deliveryLoop(reg)

	return reg.ID, nil
}

func (t *Transport) Unregister(ctx context.Context) error {
	t.mutex.Lock()
	reg := t.reg
	t.reg = nil
	t.closed = true
	t.mutex.Unlock()

	if reg == nil {
		return nil
	}
	return t.hub.unregister(reg.ID)
}

func (t *Transport) DeclareMetadata(ctx context.Context, meta hub.Metadata) error {
	reg, err := t.registered()
	if err != nil {
		return err
	}
	return t.hub.declareMetadata(reg.ID, meta)
}

func (t *Transport) DeclareSubscriptions(ctx context.Context, mtypes []string) error {
	reg, err := t.registered()
	if err != nil {
		return err
	}
	return t.hub.declareSubscriptions(reg.ID, mtypes)
}

func (t *Transport) RegisteredClients(ctx context.Context) ([]string, error) {
	if _, err := t.registered(); err != nil {
		return nil, err
	}
	return t.hub.clientIDs(), nil
}

func (t *Transport) GetMetadata(ctx context.Context, clientID string) (hub.Metadata, error) {
	if _, err := t.registered(); err != nil {
		return hub.Metadata{}, err
	}
	return t.hub.metadata(clientID)
}

func (t *Transport) GetSubscriptions(ctx context.Context, clientID string) ([]string, error) {
	if _, err := t.registered(); err != nil {
		return nil, err
	}
	return t.hub.subscriptions(clientID)
}

func (t *Transport) Call(ctx context.Context, recipientID, tag string, msg *envelope.Message) error {
	reg, err := t.registered()
	if err != nil {
		return err
	}
	return t.hub.routeCall(ctx, reg.ID, recipientID, tag, msg)
}

func (t *Transport) Reply(ctx context.Context, msgID string, rep *envelope.Reply) error {
	if _, err := t.registered(); err != nil {
		return err
	}
	return t.hub.routeReply(ctx, msgID, rep)
}

func (t *Transport) Notify(ctx context.Context, recipientID string, msg *envelope.Message) error {
	reg, err := t.registered()
	if err != nil {
		return err
	}
	return t.hub.routeNotify(ctx, reg.ID, recipientID, msg)
}

func (t *Transport) Close() error {
	return t.Unregister(context.Background())
}

func (t *Transport) registered() (*registration, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.closed {
		return nil, hub.ErrClosed
	}
	if t.reg == nil {
		return nil, hub.ErrNotRegistered
	}
	return t.reg, nil
}

// deliveryLoop drains this client's queue, handing each event to the
// receiver. It exits when the channel closes: silently after a local
// Unregister/Close, with a Disconnected callback when the hub went away.
func (t *Transport) deliveryLoop(reg *registration) {
	defer t.hub.loops.Done()

	for {
		ev, ok := reg.Channel.Receive(context.Background())
		if !ok {
			t.mutex.Lock()
			locallyClosed := t.closed
			t.mutex.Unlock()

			if !locallyClosed {
				if r := t.currentReceiver(); r != nil {
					r.Disconnected(hub.ErrClosed)
				}
			}
			return
		}

		r := t.currentReceiver()
		if r == nil {
			continue
		}

		switch ev.kind {
		case deliverCall, deliverNotify:
			r.ReceiveCall(ev.senderID, ev.msgID, ev.msg)
		case deliverReply:
			r.ReceiveReply(ev.tag, ev.rep)
		case deliverDisconnect:
			r.Disconnected(ev.err)
			return
		}
	}
}
