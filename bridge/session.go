package bridge

import (
	"context"
	"time"

	"github.com/samp-tools/ds9samp/hub"
)

// Session is the live hub registration backing a bridge. There is exactly
// one per bridge instance; it is torn down exactly once by Disconnect.
type Session struct {
	// ID is the self-identifier the hub assigned at registration.
	ID string

	// ConnectedAt is the registration time.
	ConnectedAt time.Time

	// Subscriptions lists the mtypes this client announced it receives:
	// the reply notifications for the configured get/set pair.
	Subscriptions []string
}

// replyMType names the reply notification for a call mtype.
func replyMType(mtype string) string {
	return mtype + ".reply"
}

// openSession registers with the hub and declares metadata plus the reply
// subscriptions. On a partial failure the registration is rolled back so a
// failed connect never leaves a ghost client on the hub.
func openSession(ctx context.Context, transport hub.Transport, cfg *Config) (*Session, error) {
	id, err := transport.Register(ctx)
	if err != nil {
		return nil, transportErrorf(KindRegistrationFailed, err, "hub registration failed: %v", err)
	}

	rollback := func() {
		_ = transport.Unregister(context.WithoutCancel(ctx))
	}

	meta := hub.Metadata{
		Name:        cfg.Name,
		Description: "Synchronous call bridge for hub-connected visualization targets",
		Version:     Version,
	}
	if err := transport.DeclareMetadata(ctx, meta); err != nil {
		rollback()
		return nil, transportErrorf(KindRegistrationFailed, err, "metadata declaration failed: %v", err)
	}

	subs := []string{replyMType(cfg.GetMType), replyMType(cfg.SetMType)}
	if err := transport.DeclareSubscriptions(ctx, subs); err != nil {
		rollback()
		return nil, transportErrorf(KindRegistrationFailed, err, "subscription declaration failed: %v", err)
	}

	return &Session{
		ID:            id,
		ConnectedAt:   time.Now(),
		Subscriptions: subs,
	}, nil
}
