package memhub

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/samp-tools/ds9samp/envelope"
	"github.com/samp-tools/ds9samp/hub"
)

type registration struct {
	ID       string
	Meta     hub.Metadata
	Subs     map[string]struct{}
	Channel  *deliveryChannel
	LastSeen time.Time
}

// callRoute remembers where the reply to an in-flight call must go.
type callRoute struct {
	CallerID string
	Tag      string
}

// Hub is an in-process messaging hub. Clients connect through Connect,
// which returns a hub.Transport bound to this hub; all routing happens in
// memory with per-client delivery queues.
type Hub struct {
	name string

	clients      map[string]*registration
	clientsMutex sync.RWMutex

	routes      map[string]callRoute
	routesMutex sync.Mutex

	nextClient int64

	bufferSize int
	logger     *slog.Logger
	metrics    *Metrics

	ctx    context.Context
	cancel context.CancelFunc
	loops  sync.WaitGroup
}

func New(ctx context.Context, cfg Config) *Hub {
	hubCtx, cancel := context.WithCancel(ctx)

	return &Hub{
		name:       cfg.Name,
		clients:    make(map[string]*registration),
		routes:     make(map[string]callRoute),
		bufferSize: cfg.ChannelBufferSize,
		logger:     cfg.Logger,
		metrics:    NewMetrics(),
		ctx:        hubCtx,
		cancel:     cancel,
	}
}

// Connect returns a new, unregistered transport bound to this hub.
func (h *Hub) Connect() *Transport {
	return &Transport{hub: h}
}

func (h *Hub) Metrics() MetricsSnapshot {
	return h.metrics.Snapshot()
}

// Shutdown disconnects every client and stops delivery. Connected clients
// observe Disconnected(hub.ErrClosed). Returns an error if delivery loops
// have not drained within the timeout.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.logger.Debug("shutting down hub", slog.String("hub_name", h.name))

	h.clientsMutex.Lock()
	for id, reg := range h.clients {
		delete(h.clients, id)
		// Best effort: a full queue still sees the channel close below.
		reg.Channel.TrySend(delivery{kind: deliverDisconnect, err: hub.ErrClosed})
		reg.Channel.Close()
	}
	h.clientsMutex.Unlock()

	h.cancel()

	done := make(chan struct{})
	go func() {
		h.loops.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("hub shutdown timeout after %v", timeout)
	}
}

func (h *Hub) register() (*registration, error) {
	select {
	case <-h.ctx.Done():
		return nil, hub.ErrClosed
	default:
	}

	h.clientsMutex.Lock()
	defer h.clientsMutex.Unlock()

	h.nextClient++
	reg := &registration{
		ID:       fmt.Sprintf("c%d", h.nextClient),
		Subs:     make(map[string]struct{}),
		Channel:  newDeliveryChannel(h.ctx, h.bufferSize),
		LastSeen: time.Now(),
	}
	h.clients[reg.ID] = reg
	h.metrics.RecordClient(1)

	h.logger.Debug(
		"client registered",
		slog.String("hub_name", h.name),
		slog.String("client_id", reg.ID),
	)

	return reg, nil
}

func (h *Hub) unregister(clientID string) error {
	h.clientsMutex.Lock()
	reg, exists := h.clients[clientID]
	if exists {
		delete(h.clients, clientID)
		reg.Channel.Close()
	}
	h.clientsMutex.Unlock()

	if !exists {
		return fmt.Errorf("%w: %s", hub.ErrClientNotFound, clientID)
	}

	h.routesMutex.Lock()
	for msgID, route := range h.routes {
		if route.CallerID == clientID {
			delete(h.routes, msgID)
		}
	}
	h.routesMutex.Unlock()

	h.metrics.RecordClient(-1)
	h.logger.Debug(
		"client unregistered",
		slog.String("hub_name", h.name),
		slog.String("client_id", clientID),
	)

	return nil
}

func (h *Hub) lookup(clientID string) (*registration, error) {
	h.clientsMutex.RLock()
	defer h.clientsMutex.RUnlock()

	reg, exists := h.clients[clientID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", hub.ErrClientNotFound, clientID)
	}
	return reg, nil
}

func (h *Hub) declareMetadata(clientID string, meta hub.Metadata) error {
	h.clientsMutex.Lock()
	defer h.clientsMutex.Unlock()

	reg, exists := h.clients[clientID]
	if !exists {
		return fmt.Errorf("%w: %s", hub.ErrClientNotFound, clientID)
	}
	reg.Meta = meta
	reg.LastSeen = time.Now()
	return nil
}

func (h *Hub) declareSubscriptions(clientID string, mtypes []string) error {
	h.clientsMutex.Lock()
	defer h.clientsMutex.Unlock()

	reg, exists := h.clients[clientID]
	if !exists {
		return fmt.Errorf("%w: %s", hub.ErrClientNotFound, clientID)
	}

	reg.Subs = make(map[string]struct{}, len(mtypes))
	for _, mtype := range mtypes {
		reg.Subs[mtype] = struct{}{}
	}
	reg.LastSeen = time.Now()
	return nil
}

func (h *Hub) clientIDs() []string {
	h.clientsMutex.RLock()
	defer h.clientsMutex.RUnlock()

	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	return ids
}

func (h *Hub) metadata(clientID string) (hub.Metadata, error) {
	reg, err := h.lookup(clientID)
	if err != nil {
		return hub.Metadata{}, err
	}
	return reg.Meta, nil
}

func (h *Hub) subscriptions(clientID string) ([]string, error) {
	h.clientsMutex.RLock()
	defer h.clientsMutex.RUnlock()

	reg, exists := h.clients[clientID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", hub.ErrClientNotFound, clientID)
	}

	mtypes := make([]string, 0, len(reg.Subs))
	for mtype := range reg.Subs {
		mtypes = append(mtypes, mtype)
	}
	return mtypes, nil
}

func (h *Hub) routeCall(ctx context.Context, callerID, recipientID, tag string, msg *envelope.Message) error {
	reg, err := h.lookup(recipientID)
	if err != nil {
		return err
	}

	msgID := uuid.Must(uuid.NewV7()).String()

	h.routesMutex.Lock()
	h.routes[msgID] = callRoute{CallerID: callerID, Tag: tag}
	h.routesMutex.Unlock()

	ev := delivery{
		kind:     deliverCall,
		senderID: callerID,
		msgID:    msgID,
		msg:      msg.Clone(),
	}
	if err := reg.Channel.Send(ctx, ev); err != nil {
		h.routesMutex.Lock()
		delete(h.routes, msgID)
		h.routesMutex.Unlock()
		return fmt.Errorf("failed to deliver call: %w", err)
	}

	h.metrics.RecordCall(1)
	return nil
}

func (h *Hub) routeReply(ctx context.Context, msgID string, rep *envelope.Reply) error {
	h.routesMutex.Lock()
	route, exists := h.routes[msgID]
	if exists {
		delete(h.routes, msgID)
	}
	h.routesMutex.Unlock()

	if !exists {
		return fmt.Errorf("hub: no pending call for message %s", msgID)
	}

	reg, err := h.lookup(route.CallerID)
	if err != nil {
		// Caller unregistered while the call was in flight; drop.
		h.logger.Debug(
			"dropping reply for departed caller",
			slog.String("hub_name", h.name),
			slog.String("caller_id", route.CallerID),
		)
		return nil
	}

	ev := delivery{
		kind: deliverReply,
		tag:  route.Tag,
		rep:  rep,
	}
	if err := reg.Channel.Send(ctx, ev); err != nil {
		return fmt.Errorf("failed to deliver reply: %w", err)
	}

	h.metrics.RecordReply(1)
	return nil
}

func (h *Hub) routeNotify(ctx context.Context, senderID, recipientID string, msg *envelope.Message) error {
	reg, err := h.lookup(recipientID)
	if err != nil {
		return err
	}

	ev := delivery{
		kind:     deliverNotify,
		senderID: senderID,
		msg:      msg.Clone(),
	}
	if err := reg.Channel.Send(ctx, ev); err != nil {
		return fmt.Errorf("failed to deliver notification: %w", err)
	}

	h.metrics.RecordNotification(1)
	return nil
}
