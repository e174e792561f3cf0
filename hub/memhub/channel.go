package memhub

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/samp-tools/ds9samp/envelope"
	"github.com/samp-tools/ds9samp/hub"
)

type deliveryKind int

const (
	deliverCall deliveryKind = iota
	deliverNotify
	deliverReply
	deliverDisconnect
)

// delivery is one queued event for a connected client: an incoming call or
// notification, a routed reply, or the hub going away.
type delivery struct {
	kind     deliveryKind
	senderID string
	msgID    string
	tag      string
	msg      *envelope.Message
	rep      *envelope.Reply
	err      error
}

// deliveryChannel is one client's event queue. Senders hold the read side
// of mu for the duration of the send and Close takes the write side before
// closing the channel, so a racing unregister can never close the channel
// out from under an in-flight send.
type deliveryChannel struct {
	channel chan delivery
	context context.Context

	mu     sync.RWMutex
	closed atomic.Int32
	done   chan struct{}
}

func newDeliveryChannel(ctx context.Context, bufferSize int) *deliveryChannel {
	return &deliveryChannel{
		channel: make(chan delivery, bufferSize),
		context: ctx,
		done:    make(chan struct{}),
	}
}

// Send queues ev, blocking while the queue is full. It fails with
// hub.ErrClosed once the channel is closed or closing.
func (dc *deliveryChannel) Send(ctx context.Context, ev delivery) error {
	dc.mu.RLock()
	defer dc.mu.RUnlock()

	if dc.closed.Load() == 1 {
		return hub.ErrClosed
	}

	select {
	case dc.channel <- ev:
		return nil
	case <-dc.done:
		return hub.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	case <-dc.context.Done():
		return dc.context.Err()
	}
}

// TrySend queues ev without blocking; false means the queue is full or the
// channel is closed.
func (dc *deliveryChannel) TrySend(ev delivery) bool {
	dc.mu.RLock()
	defer dc.mu.RUnlock()

	if dc.closed.Load() == 1 {
		return false
	}

	select {
	case dc.channel <- ev:
		return true
	default:
		return false
	}
}

func (dc *deliveryChannel) Receive(ctx context.Context) (delivery, bool) {
	select {
	case ev, ok := <-dc.channel:
		return ev, ok
	case <-ctx.Done():
		return delivery{}, false
	case <-dc.context.Done():
		return delivery{}, false
	}
}

// Close is idempotent. Blocked senders are released through done before the
// channel itself is closed under the write lock.
func (dc *deliveryChannel) Close() {
	if !dc.closed.CompareAndSwap(0, 1) {
		return
	}
	close(dc.done)

	dc.mu.Lock()
	close(dc.channel)
	dc.mu.Unlock()
}

func (dc *deliveryChannel) IsClosed() bool {
	return dc.closed.Load() == 1
}
