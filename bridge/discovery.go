package bridge

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/samp-tools/ds9samp/hub"
	"github.com/samp-tools/ds9samp/observability"
)

// PeerDescriptor is one hub client as seen during discovery.
type PeerDescriptor struct {
	// ID is the hub-assigned client identifier.
	ID string
	// Name is the peer's declared human label; may be empty.
	Name string
	// MTypes is the peer's advertised capability set.
	MTypes []string
}

// Label renders the peer for user-facing listings.
func (p PeerDescriptor) Label() string {
	if p.Name == "" {
		return p.ID
	}
	return fmt.Sprintf("%s (%s)", p.ID, p.Name)
}

func (p PeerDescriptor) advertises(mtype string) bool {
	return slices.Contains(p.MTypes, mtype)
}

// TargetBinding is the single resolved peer the bridge talks to for the
// lifetime of its session. Immutable once set.
type TargetBinding struct {
	Peer    PeerDescriptor
	BoundAt time.Time
}

// ListPeers returns every peer advertising both configured mtypes, sorted
// by identifier. The bridge's own registration is excluded. Qualification
// is a subset check: peers advertising more than the pair still qualify.
func (b *Bridge) ListPeers(ctx context.Context) ([]PeerDescriptor, error) {
	session, err := b.currentSession()
	if err != nil {
		return nil, err
	}

	ids, err := b.transport.RegisteredClients(ctx)
	if err != nil {
		return nil, classifyTransport(err)
	}

	peers := make([]PeerDescriptor, 0, len(ids))
	for _, id := range ids {
		if id == session.ID {
			continue
		}

		mtypes, err := b.transport.GetSubscriptions(ctx, id)
		if err != nil {
			// The peer may have unregistered between the two queries.
			if errors.Is(err, hub.ErrClientNotFound) {
				continue
			}
			return nil, classifyTransport(err)
		}

		peer := PeerDescriptor{ID: id, MTypes: mtypes}
		if !peer.advertises(b.cfg.GetMType) || !peer.advertises(b.cfg.SetMType) {
			continue
		}

		meta, err := b.transport.GetMetadata(ctx, id)
		if err != nil {
			if errors.Is(err, hub.ErrClientNotFound) {
				continue
			}
			return nil, classifyTransport(err)
		}
		peer.Name = meta.Name

		peers = append(peers, peer)
	}

	slices.SortFunc(peers, func(a, b PeerDescriptor) int {
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	return peers, nil
}

// ResolveTarget fixes the peer all subsequent calls go to. With an explicit
// name, the peer whose identifier matches is bound, or KindPeerNotFound is
// returned. Without one, exactly one qualifying peer must exist: zero fails
// KindNoPeers and several fail KindAmbiguousPeers carrying the full list,
// since the bridge never silently picks one of many.
//
// The binding is immutable: once resolved, further calls return it as is.
func (b *Bridge) ResolveTarget(ctx context.Context, explicitName string) (*TargetBinding, error) {
	b.mutex.Lock()
	if b.binding != nil {
		binding := b.binding
		b.mutex.Unlock()
		return binding, nil
	}
	b.mutex.Unlock()

	peers, err := b.ListPeers(ctx)
	if err != nil {
		return nil, err
	}

	var chosen PeerDescriptor
	switch {
	case explicitName != "":
		idx := slices.IndexFunc(peers, func(p PeerDescriptor) bool {
			return p.ID == explicitName
		})
		if idx < 0 {
			return nil, transportErrorf(KindPeerNotFound, nil,
				"no qualifying peer named %q", explicitName)
		}
		chosen = peers[idx]

	case len(peers) == 0:
		return nil, transportErrorf(KindNoPeers, nil, "no qualifying peers connected to the hub")

	case len(peers) > 1:
		return nil, &TransportError{
			Kind:    KindAmbiguousPeers,
			Message: fmt.Sprintf("%d qualifying peers connected, select one by name", len(peers)),
			Peers:   peers,
		}

	default:
		chosen = peers[0]
	}

	binding := &TargetBinding{Peer: chosen, BoundAt: time.Now()}

	b.mutex.Lock()
	if b.binding == nil {
		b.binding = binding
	} else {
		binding = b.binding
	}
	b.mutex.Unlock()

	observability.Emit(ctx, b.observer, "bridge.ResolveTarget", EventResolve,
		observability.LevelVerbose, map[string]any{
			"peer_id":   binding.Peer.ID,
			"peer_name": binding.Peer.Name,
		})

	return binding, nil
}
