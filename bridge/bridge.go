// Package bridge implements the synchronous call bridge: it turns a hub's
// asynchronous notify/call/reply messaging into a blocking call-and-response
// primitive with timeout, against exactly one resolved target peer.
//
// A bridge owns one hub session. Connect registers with the hub and wires
// the reply dispatcher; ResolveTarget fixes the single peer advertising the
// configured get/set capability pair; Get and Set then issue strictly
// sequential, correlated calls:
//
//	err := bridge.WithConnection(ctx, &cfg, func(b *bridge.Bridge) error {
//	    if _, err := b.ResolveTarget(ctx, ""); err != nil {
//	        return err
//	    }
//	    value, err := b.Get(ctx, "cmap")
//	    ...
//	})
//
// Failures split into two tiers: a CommandError means the target rejected
// the command text and the session stays usable; a TransportError is fatal
// to the operation and, for KindConnectionLost, to the session.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/samp-tools/ds9samp/hub"
	"github.com/samp-tools/ds9samp/hub/wsclient"
	"github.com/samp-tools/ds9samp/observability"
)

// Version of the ds9samp module, declared in hub metadata and printed by
// the CLI tools.
const Version = "0.2.0"

// ErrNotBound is returned by calls issued before ResolveTarget has bound a
// target peer.
var ErrNotBound = errors.New("bridge: no target bound, resolve a target first")

// Option configures a Bridge before it connects.
type Option func(*Bridge)

// WithTransport supplies the hub transport directly, bypassing the
// config-driven WebSocket dial. Used by tests and embedded hubs.
func WithTransport(t hub.Transport) Option {
	return func(b *Bridge) { b.transport = t }
}

// WithObserver overrides the default SlogObserver.
func WithObserver(o observability.Observer) Option {
	return func(b *Bridge) { b.observer = o }
}

// WithClock overrides the wall clock used for call deadlines.
func WithClock(c clock.Clock) Option {
	return func(b *Bridge) { b.clk = c }
}

// Bridge is a single synchronous call bridge instance: one hub session, at
// most one target binding, at most one call in flight.
type Bridge struct {
	cfg        Config
	transport  hub.Transport
	dispatcher *dispatcher
	observer   observability.Observer
	clk        clock.Clock

	mutex   sync.Mutex
	session *Session
	binding *TargetBinding
	timeout time.Duration
	closed  bool
}

// Connect creates a bridge and registers it with the hub. Without a
// WithTransport option the hub is dialled over WebSocket at cfg.HubURL.
// Registration failures are TransportError(KindRegistrationFailed).
//
// The caller owns the returned bridge and must Disconnect it; prefer
// WithConnection, which guarantees that on every exit path.
func Connect(ctx context.Context, cfg *Config, opts ...Option) (*Bridge, error) {
	merged := DefaultConfig()
	if cfg != nil {
		merged.Merge(cfg)
	}

	b := &Bridge{
		cfg:      merged,
		observer: observability.NewSlogObserver(slog.Default()),
		clk:      clock.New(),
		timeout:  merged.CallTimeout(),
	}
	for _, opt := range opts {
		opt(b)
	}

	if b.transport == nil {
		if merged.HubURL == "" {
			return nil, transportErrorf(KindRegistrationFailed, nil,
				"no hub URL configured: set %s or pass hub_url", EnvHubURL)
		}
		t, err := wsclient.Dial(ctx, merged.HubURL)
		if err != nil {
			return nil, transportErrorf(KindRegistrationFailed, err,
				"cannot reach hub at %s: %v", merged.HubURL, err)
		}
		b.transport = t
	}

	b.dispatcher = newDispatcher(b.transport, b.clk, b.observer)
	b.transport.SetReceiver(b.dispatcher)

	session, err := openSession(ctx, b.transport, &merged)
	if err != nil {
		_ = b.transport.Close()
		return nil, err
	}
	b.session = session

	observability.Emit(ctx, b.observer, "bridge.Connect", EventConnect,
		observability.LevelVerbose, map[string]any{
			"client_id": session.ID,
			"name":      merged.Name,
		})

	return b, nil
}

// WithConnection runs fn with a connected bridge and disconnects on every
// exit path: normal return, command error, transport error, or panic.
func WithConnection(ctx context.Context, cfg *Config, fn func(*Bridge) error, opts ...Option) error {
	b, err := Connect(ctx, cfg, opts...)
	if err != nil {
		return err
	}
	defer b.Disconnect()
	return fn(b)
}

// Disconnect unregisters from the hub and releases the transport. It is
// idempotent: repeat calls are no-ops and it never fails. A call pending in
// another goroutine observes KindConnectionLost.
func (b *Bridge) Disconnect() {
	b.mutex.Lock()
	if b.closed {
		b.mutex.Unlock()
		return
	}
	b.closed = true
	session := b.session
	b.mutex.Unlock()

	b.dispatcher.Disconnected(hub.ErrClosed)

	// Unregister is best effort: the hub may already be gone.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = b.transport.Unregister(ctx)
	_ = b.transport.Close()

	data := map[string]any{}
	if session != nil {
		data["client_id"] = session.ID
	}
	observability.Emit(ctx, b.observer, "bridge.Disconnect", EventDisconnect,
		observability.LevelVerbose, data)
}

// Session returns the live hub session, or nil after Disconnect.
func (b *Bridge) Session() *Session {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if b.closed {
		return nil
	}
	return b.session
}

// Binding returns the resolved target, or nil before ResolveTarget.
func (b *Bridge) Binding() *TargetBinding {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.binding
}

// Timeout returns the per-call deadline applied by Get and Set.
func (b *Bridge) Timeout() time.Duration {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.timeout
}

// SetTimeout changes the per-call deadline. Zero disables it, which calls
// needing interactive target-side action (pointer clicks) require.
func (b *Bridge) SetTimeout(d time.Duration) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.timeout = d
}

// Call issues one correlated call with an explicit mtype and timeout and
// returns the target's value, which may be empty. Most callers want Get or
// Set instead.
func (b *Bridge) Call(ctx context.Context, mtype, command string, timeout time.Duration) (string, error) {
	b.mutex.Lock()
	binding := b.binding
	closed := b.closed
	b.mutex.Unlock()

	if closed {
		return "", transportErrorf(KindConnectionLost, nil, "bridge is disconnected")
	}
	if binding == nil {
		return "", ErrNotBound
	}

	return b.dispatcher.call(ctx, binding.Peer.ID, mtype, command, timeout)
}

// Get queries the target and returns its answer; a query the target answers
// with no value yields "".
func (b *Bridge) Get(ctx context.Context, command string) (string, error) {
	return b.Call(ctx, b.cfg.GetMType, command, b.Timeout())
}

// Set sends one command to the target.
func (b *Bridge) Set(ctx context.Context, command string) error {
	_, err := b.Call(ctx, b.cfg.SetMType, command, b.Timeout())
	return err
}

// SetAll submits each non-blank command as an independent Set call. Command
// errors are reported through report (when non-nil) and do not stop the
// batch; the first transport error aborts it. The returned error joins all
// command errors, or is the aborting transport error.
func (b *Bridge) SetAll(ctx context.Context, commands []string, report func(command string, err error)) error {
	var failed []error
	for _, command := range commands {
		if strings.TrimSpace(command) == "" {
			continue
		}

		err := b.Set(ctx, command)
		if err == nil {
			continue
		}
		if !IsCommandError(err) {
			return err
		}

		if report != nil {
			report(command, err)
		}
		failed = append(failed, err)
	}
	return errors.Join(failed...)
}

// String identifies the bridge in debug output.
func (b *Bridge) String() string {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	id := "unregistered"
	if b.session != nil {
		id = b.session.ID
	}
	target := "unbound"
	if b.binding != nil {
		target = b.binding.Peer.Label()
	}
	return fmt.Sprintf("Bridge{client: %s, target: %s, timeout: %v}", id, target, b.timeout)
}

// currentSession returns the session or a ConnectionLost error after
// Disconnect.
func (b *Bridge) currentSession() (*Session, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if b.closed || b.session == nil {
		return nil, transportErrorf(KindConnectionLost, nil, "bridge is disconnected")
	}
	return b.session, nil
}
