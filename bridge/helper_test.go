package bridge_test

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/samp-tools/ds9samp/bridge"
	"github.com/samp-tools/ds9samp/envelope"
	"github.com/samp-tools/ds9samp/hub"
	"github.com/samp-tools/ds9samp/hub/memhub"
	"github.com/samp-tools/ds9samp/observability"
)

func createTestHub(t *testing.T) *memhub.Hub {
	t.Helper()
	cfg := memhub.DefaultConfig()
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	h := memhub.New(context.Background(), cfg)
	t.Cleanup(func() { h.Shutdown(5 * time.Second) })
	return h
}

// fakeDS9 emulates a DS9 peer: it registers on the hub, advertises the
// ds9.get/ds9.set pair, and answers commands from a small key-value state.
// A set whose value is "badname" is rejected the way DS9 rejects an unknown
// colormap.
type fakeDS9 struct {
	t         *testing.T
	transport hub.Transport
	id        string

	mu      sync.Mutex
	state   map[string]string
	mute    bool          // swallow calls without replying
	delay   time.Duration // wait before answering
	replied chan struct{}
}

func connectFakeDS9(t *testing.T, h *memhub.Hub) *fakeDS9 {
	t.Helper()
	ctx := context.Background()

	f := &fakeDS9{
		t:         t,
		transport: h.Connect(),
		state:     map[string]string{"cmap": "viridis", "scale": "linear"},
		replied:   make(chan struct{}, 16),
	}
	f.transport.SetReceiver(f)

	id, err := f.transport.Register(ctx)
	if err != nil {
		t.Fatalf("fake ds9 Register() error = %v", err)
	}
	f.id = id

	meta := hub.Metadata{Name: "ds9", Description: "image display", Version: "8.6"}
	if err := f.transport.DeclareMetadata(ctx, meta); err != nil {
		t.Fatalf("fake ds9 DeclareMetadata() error = %v", err)
	}
	if err := f.transport.DeclareSubscriptions(ctx, []string{"ds9.get", "ds9.set"}); err != nil {
		t.Fatalf("fake ds9 DeclareSubscriptions() error = %v", err)
	}

	t.Cleanup(func() { f.transport.Close() })
	return f
}

// setMute controls whether the peer answers at all; used for timeout tests.
func (f *fakeDS9) setMute(mute bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mute = mute
}

// setDelay makes the peer sit on each call before answering.
func (f *fakeDS9) setDelay(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delay = d
}

func (f *fakeDS9) ReceiveCall(senderID, msgID string, msg *envelope.Message) {
	// Receivers must not block; answer from a fresh goroutine.
	go f.handle(msgID, msg)
}

func (f *fakeDS9) handle(msgID string, msg *envelope.Message) {
	f.mu.Lock()
	delay := f.delay
	f.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.mute || msgID == "" {
		return
	}

	var rep *envelope.Reply
	switch msg.MType {
	case "ds9.get":
		rep = envelope.NewSuccess().Value(f.state[msg.Command()]).Build()
	case "ds9.set":
		key, value, _ := strings.Cut(msg.Command(), " ")
		if value == "badname" {
			rep = envelope.NewFault("unknown colormap badname").Build()
		} else {
			f.state[key] = value
			rep = envelope.NewSuccess().Build()
		}
	default:
		rep = envelope.NewFault("unsupported mtype " + msg.MType).Build()
	}

	if err := f.transport.Reply(context.Background(), msgID, rep); err != nil {
		return
	}
	select {
	case f.replied <- struct{}{}:
	default:
	}
}

func (f *fakeDS9) ReceiveReply(tag string, rep *envelope.Reply) {}

func (f *fakeDS9) Disconnected(err error) {}

// connectBridge wires a bridge to the hub with quiet observability.
func connectBridge(t *testing.T, h *memhub.Hub, opts ...bridge.Option) *bridge.Bridge {
	t.Helper()

	opts = append([]bridge.Option{
		bridge.WithTransport(h.Connect()),
		bridge.WithObserver(observability.NoOpObserver{}),
	}, opts...)

	b, err := bridge.Connect(context.Background(), nil, opts...)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(b.Disconnect)
	return b
}

// resolveBridge additionally binds the single qualifying peer.
func resolveBridge(t *testing.T, h *memhub.Hub) *bridge.Bridge {
	t.Helper()
	b := connectBridge(t, h)
	if _, err := b.ResolveTarget(context.Background(), ""); err != nil {
		t.Fatalf("ResolveTarget() error = %v", err)
	}
	return b
}
