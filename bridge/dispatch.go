package bridge

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/samp-tools/ds9samp/envelope"
	"github.com/samp-tools/ds9samp/hub"
	"github.com/samp-tools/ds9samp/observability"
)

type callOutcome struct {
	rep *envelope.Reply
	err error
}

// pendingCall is one outstanding correlated call. The outcome channel is
// buffered so the delivery goroutine fulfils it without blocking, exactly
// once, whether or not the caller is still waiting.
type pendingCall struct {
	tag     string
	issued  time.Time
	outcome chan callOutcome
}

// dispatcher is the synchronous call engine. It owns the pending-call table
// and is the hub.Receiver wired into the transport: replies arrive on the
// transport's delivery goroutine and are handed to the blocked caller
// through the pending entry's one-shot channel.
type dispatcher struct {
	transport hub.Transport
	clk       clock.Clock
	observer  observability.Observer

	mutex    sync.Mutex
	pending  map[string]*pendingCall
	inFlight bool
	closed   bool
	cause    error
}

var _ hub.Receiver = (*dispatcher)(nil)

func newDispatcher(transport hub.Transport, clk clock.Clock, observer observability.Observer) *dispatcher {
	return &dispatcher{
		transport: transport,
		clk:       clk,
		observer:  observer,
		pending:   make(map[string]*pendingCall),
	}
}

// call sends one correlated call and blocks until the reply arrives, the
// timeout elapses, the hub connection drops, or ctx is cancelled. A zero
// timeout blocks indefinitely. Calls are strictly sequential: a second call
// while one is pending fails with ErrCallInProgress.
func (d *dispatcher) call(ctx context.Context, recipientID, mtype, command string, timeout time.Duration) (string, error) {
	pc := &pendingCall{
		tag:     envelope.NewTag(),
		issued:  time.Now(),
		outcome: make(chan callOutcome, 1),
	}

	d.mutex.Lock()
	if d.closed {
		d.mutex.Unlock()
		return "", transportErrorf(KindConnectionLost, d.cause, "hub connection lost")
	}
	if d.inFlight {
		d.mutex.Unlock()
		return "", ErrCallInProgress
	}
	d.inFlight = true
	d.pending[pc.tag] = pc
	d.mutex.Unlock()

	// Remove the handler on every exit path so a late reply can never be
	// misdelivered to a subsequent call.
	defer func() {
		d.mutex.Lock()
		delete(d.pending, pc.tag)
		d.inFlight = false
		d.mutex.Unlock()
	}()

	observability.Emit(ctx, d.observer, "bridge.Call", EventCallStart,
		observability.LevelVerbose, map[string]any{
			"tag":     pc.tag,
			"mtype":   mtype,
			"timeout": timeout.String(),
		})

	msg := envelope.NewCommand(mtype, command).Build()
	if err := d.transport.Call(ctx, recipientID, pc.tag, msg); err != nil {
		return "", classifyTransport(err)
	}

	var deadline <-chan time.Time
	if timeout > 0 {
		timer := d.clk.Timer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	select {
	case out := <-pc.outcome:
		if out.err != nil {
			return "", out.err
		}
		value, err := classifyReply(command, out.rep)
		observability.Emit(ctx, d.observer, "bridge.Call", EventCallComplete,
			observability.LevelVerbose, map[string]any{
				"tag":      pc.tag,
				"status":   string(out.rep.Status),
				"duration": time.Since(pc.issued).String(),
			})
		return value, err

	case <-deadline:
		observability.Emit(ctx, d.observer, "bridge.Call", EventCallTimeout,
			observability.LevelWarning, map[string]any{
				"tag":     pc.tag,
				"timeout": timeout.String(),
			})
		return "", transportErrorf(KindTimeout, nil, "no reply from target within %v", timeout)

	case <-ctx.Done():
		return "", classifyTransport(ctx.Err())
	}
}

// ReceiveReply fulfils the pending call registered under tag. Replies for
// unknown tags belong to calls that already timed out and are discarded.
func (d *dispatcher) ReceiveReply(tag string, rep *envelope.Reply) {
	d.mutex.Lock()
	pc, ok := d.pending[tag]
	if ok {
		delete(d.pending, tag)
	}
	d.mutex.Unlock()

	if !ok {
		observability.Emit(context.Background(), d.observer, "bridge.dispatcher", EventStaleReply,
			observability.LevelVerbose, map[string]any{"tag": tag})
		return
	}

	pc.outcome <- callOutcome{rep: rep}
}

// ReceiveCall handles calls addressed to the bridge itself. The bridge is
// caller-only, so these are dropped after a debug event.
func (d *dispatcher) ReceiveCall(senderID, msgID string, msg *envelope.Message) {
	observability.Emit(context.Background(), d.observer, "bridge.dispatcher", EventUnexpectedCall,
		observability.LevelVerbose, map[string]any{
			"sender": senderID,
			"mtype":  msg.MType,
		})
}

// Disconnected fails the pending call, if any, with KindConnectionLost and
// refuses all further calls.
func (d *dispatcher) Disconnected(err error) {
	d.mutex.Lock()
	if d.closed {
		d.mutex.Unlock()
		return
	}
	d.closed = true
	d.cause = err
	stranded := make([]*pendingCall, 0, len(d.pending))
	for tag, pc := range d.pending {
		delete(d.pending, tag)
		stranded = append(stranded, pc)
	}
	d.mutex.Unlock()

	observability.Emit(context.Background(), d.observer, "bridge.dispatcher", EventHubLost,
		observability.LevelWarning, map[string]any{"error": err.Error()})

	for _, pc := range stranded {
		pc.outcome <- callOutcome{
			err: transportErrorf(KindConnectionLost, err, "hub connection lost"),
		}
	}
}
