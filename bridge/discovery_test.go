package bridge_test

import (
	"context"
	"testing"

	"github.com/samp-tools/ds9samp/bridge"
	"github.com/samp-tools/ds9samp/hub/memhub"
)

// advanceClientCounter burns hub client IDs so later registrations get
// higher numbers, mimicking a hub that has seen clients come and go.
func advanceClientCounter(t *testing.T, h *memhub.Hub, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		transport := h.Connect()
		if _, err := transport.Register(ctx); err != nil {
			t.Fatalf("Register() error = %v", err)
		}
		if err := transport.Unregister(ctx); err != nil {
			t.Fatalf("Unregister() error = %v", err)
		}
	}
}

func TestResolveTarget_NoPeers(t *testing.T) {
	h := createTestHub(t)
	b := connectBridge(t, h)

	_, err := b.ResolveTarget(context.Background(), "")
	trErr, ok := bridge.AsTransportError(err)
	if !ok || trErr.Kind != bridge.KindNoPeers {
		t.Fatalf("ResolveTarget() error = %v, want KindNoPeers", err)
	}
}

func TestResolveTarget_NonQualifyingPeersIgnored(t *testing.T) {
	h := createTestHub(t)

	// A peer advertising only half the pair does not qualify.
	ctx := context.Background()
	half := h.Connect()
	if _, err := half.Register(ctx); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	defer half.Close()
	if err := half.DeclareSubscriptions(ctx, []string{"ds9.get"}); err != nil {
		t.Fatalf("DeclareSubscriptions() error = %v", err)
	}

	b := connectBridge(t, h)
	_, err := b.ResolveTarget(ctx, "")
	trErr, ok := bridge.AsTransportError(err)
	if !ok || trErr.Kind != bridge.KindNoPeers {
		t.Fatalf("ResolveTarget() error = %v, want KindNoPeers", err)
	}
}

func TestResolveTarget_SinglePeerBinds(t *testing.T) {
	h := createTestHub(t)
	fake := connectFakeDS9(t, h)
	b := connectBridge(t, h)

	binding, err := b.ResolveTarget(context.Background(), "")
	if err != nil {
		t.Fatalf("ResolveTarget() error = %v", err)
	}
	if binding.Peer.ID != fake.id {
		t.Errorf("bound peer = %q, want %q", binding.Peer.ID, fake.id)
	}
	if binding.Peer.Name != "ds9" {
		t.Errorf("bound peer name = %q, want ds9", binding.Peer.Name)
	}
	if binding.BoundAt.IsZero() {
		t.Error("BoundAt should be set")
	}
}

func TestResolveTarget_Ambiguous(t *testing.T) {
	h := createTestHub(t)

	first := connectFakeDS9(t, h) // c1
	advanceClientCounter(t, h, 5)
	second := connectFakeDS9(t, h) // c7

	if first.id != "c1" || second.id != "c7" {
		t.Fatalf("fake ids = %q, %q, want c1, c7", first.id, second.id)
	}

	b := connectBridge(t, h)
	ctx := context.Background()

	_, err := b.ResolveTarget(ctx, "")
	trErr, ok := bridge.AsTransportError(err)
	if !ok || trErr.Kind != bridge.KindAmbiguousPeers {
		t.Fatalf("ResolveTarget() error = %v, want KindAmbiguousPeers", err)
	}
	if len(trErr.Peers) != 2 {
		t.Fatalf("ambiguous peer list = %v, want both peers", trErr.Peers)
	}
	if trErr.Peers[0].ID != "c1" || trErr.Peers[1].ID != "c7" {
		t.Errorf("peer ids = %q, %q, want c1, c7", trErr.Peers[0].ID, trErr.Peers[1].ID)
	}

	// Selecting by explicit name must succeed after the ambiguity failure.
	binding, err := b.ResolveTarget(ctx, "c7")
	if err != nil {
		t.Fatalf("ResolveTarget(c7) error = %v", err)
	}
	if binding.Peer.ID != "c7" {
		t.Errorf("bound peer = %q, want c7", binding.Peer.ID)
	}
}

func TestResolveTarget_ExplicitNameNotFound(t *testing.T) {
	h := createTestHub(t)
	connectFakeDS9(t, h)
	b := connectBridge(t, h)

	_, err := b.ResolveTarget(context.Background(), "c99")
	trErr, ok := bridge.AsTransportError(err)
	if !ok || trErr.Kind != bridge.KindPeerNotFound {
		t.Fatalf("ResolveTarget(c99) error = %v, want KindPeerNotFound", err)
	}
}

func TestResolveTarget_BindingIsImmutable(t *testing.T) {
	h := createTestHub(t)
	connectFakeDS9(t, h)
	b := connectBridge(t, h)

	ctx := context.Background()
	first, err := b.ResolveTarget(ctx, "")
	if err != nil {
		t.Fatalf("ResolveTarget() error = %v", err)
	}

	// A second DS9 appearing later must not change the binding.
	connectFakeDS9(t, h)

	second, err := b.ResolveTarget(ctx, "")
	if err != nil {
		t.Fatalf("second ResolveTarget() error = %v", err)
	}
	if second != first {
		t.Error("ResolveTarget() re-resolved an already bound session")
	}
	if b.Binding() != first {
		t.Error("Binding() disagrees with the resolved target")
	}
}

func TestListPeers_ExcludesSelf(t *testing.T) {
	h := createTestHub(t)
	connectFakeDS9(t, h)
	b := connectBridge(t, h)

	peers, err := b.ListPeers(context.Background())
	if err != nil {
		t.Fatalf("ListPeers() error = %v", err)
	}
	if len(peers) != 1 {
		t.Fatalf("ListPeers() = %v, want exactly the fake peer", peers)
	}
	if peers[0].ID == b.Session().ID {
		t.Error("ListPeers() must exclude the bridge's own registration")
	}
}
