package memhub

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/samp-tools/ds9samp/hub"
)

func TestDeliveryChannel_SendAfterClose(t *testing.T) {
	dc := newDeliveryChannel(context.Background(), 4)
	dc.Close()

	if err := dc.Send(context.Background(), delivery{kind: deliverCall}); !errors.Is(err, hub.ErrClosed) {
		t.Errorf("Send() after Close error = %v, want ErrClosed", err)
	}
	if dc.TrySend(delivery{kind: deliverCall}) {
		t.Error("TrySend() after Close should fail")
	}
}

func TestDeliveryChannel_CloseIdempotent(t *testing.T) {
	dc := newDeliveryChannel(context.Background(), 1)
	dc.Close()
	dc.Close()

	if !dc.IsClosed() {
		t.Error("IsClosed() = false after Close")
	}
}

func TestDeliveryChannel_ConcurrentSendAndClose(t *testing.T) {
	// Senders racing a Close must either deliver or fail cleanly with
	// ErrClosed; a send on the closed channel would panic here.
	for i := 0; i < 100; i++ {
		dc := newDeliveryChannel(context.Background(), 1)

		var wg sync.WaitGroup
		for j := 0; j < 4; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := dc.Send(context.Background(), delivery{kind: deliverCall})
				if err != nil && !errors.Is(err, hub.ErrClosed) {
					t.Errorf("Send() error = %v, want nil or ErrClosed", err)
				}
			}()
		}

		go dc.Close()

		// Drain so blocked senders can finish before the close lands.
		for range dc.channel {
		}
		wg.Wait()
	}
}
