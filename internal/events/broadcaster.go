package events

import (
	"context"
	"iter"
	"log/slog"
	"sync"
	"time"

	"github.com/recall-app/recall-server/internal/id"
)

// Client represents a connected SSE client.
type Client struct {
	ConnectedAt time.Time
	EventChan   chan Event
	Done        chan struct{}
	ID          string
}

// Broadcaster manages SSE connections and fans events out to them.
type Broadcaster struct {
	clients           map[string]*Client
	events            chan Event
	logger            *slog.Logger
	wg                sync.WaitGroup
	heartbeatInterval time.Duration
	mu                sync.RWMutex

	// Shutdown state - protected by shutdownMu
	shutdownMu sync.RWMutex
	shutdown   bool
}

// NewBroadcaster creates a new event Broadcaster.
func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		clients:           make(map[string]*Client),
		events:            make(chan Event, 1000), // Buffer 1000 events
		logger:            logger,
		heartbeatInterval: 30 * time.Second,
	}
}

// Start begins the event broadcasting loop.
// This should be called once at server startup in a goroutine.
func (b *Broadcaster) Start(ctx context.Context) {
	b.wg.Add(1)
	defer b.wg.Done()

	b.logger.Info("event broadcaster starting")

	heartbeatTicker := time.NewTicker(b.heartbeatInterval)
	defer heartbeatTicker.Stop()

	for {
		select {
		case event := <-b.events:
			b.broadcast(event)

		case <-heartbeatTicker.C:
			b.broadcast(NewHeartbeatEvent())

		case <-ctx.Done():
			b.logger.Info("event broadcaster stopping")
			b.closeAllClients()
			return
		}
	}
}

// Shutdown gracefully shuts down the broadcaster.
// It stops accepting new events, drains remaining events, and closes all clients.
func (b *Broadcaster) Shutdown(ctx context.Context) error {
	b.logger.Info("event broadcaster shutdown initiated")

	// Mark as shutdown AND close channel atomically while holding lock.
	// This prevents a race with Emit() which holds read lock during send.
	b.shutdownMu.Lock()
	b.shutdown = true
	close(b.events)
	b.shutdownMu.Unlock()

	// Drain remaining events with context timeout.
	done := make(chan struct{})
	go func() {
		for event := range b.events {
			b.broadcast(event)
		}
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("events drained successfully")
	case <-ctx.Done():
		b.logger.Warn("event drain timeout, some events may be lost")
	}

	b.wg.Wait()

	b.logger.Info("event broadcaster shutdown complete")
	return nil
}

// broadcast sends an event to all connected clients.
func (b *Broadcaster) broadcast(event Event) {
	var delivered, dropped int

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, client := range b.clients {
		// Non-blocking send (drop if client is slow/stuck).
		select {
		case client.EventChan <- event:
			delivered++
		default:
			dropped++
			b.logger.Warn("dropped event for slow client",
				slog.String("client_id", client.ID),
				slog.String("event_type", string(event.Type)))
		}
	}

	if event.Type != EventHeartbeat {
		b.logger.Debug("event broadcast",
			slog.String("event_type", string(event.Type)),
			slog.Group("stats",
				slog.Int("delivered", delivered),
				slog.Int("dropped", dropped)))
	}
}

// Connect registers a new SSE client and returns the client object.
func (b *Broadcaster) Connect() (*Client, error) {
	clientID, err := id.Generate("sse")
	if err != nil {
		return nil, err
	}

	client := &Client{
		ID:          clientID,
		EventChan:   make(chan Event, 100), // Buffer 100 events per client
		Done:        make(chan struct{}),
		ConnectedAt: time.Now(),
	}

	b.mu.Lock()
	b.clients[client.ID] = client
	totalClients := len(b.clients)
	b.mu.Unlock()

	b.logger.Info("SSE client connected",
		slog.String("client_id", clientID),
		slog.Int("total_clients", totalClients))
	return client, nil
}

// Disconnect removes a client and closes its channels.
func (b *Broadcaster) Disconnect(clientID string) {
	b.mu.Lock()
	client, ok := b.clients[clientID]
	if !ok {
		b.mu.Unlock()
		return
	}
	delete(b.clients, clientID)
	totalClients := len(b.clients)
	b.mu.Unlock()

	close(client.Done)
	close(client.EventChan)

	b.logger.Info("SSE client disconnected",
		slog.String("client_id", clientID),
		slog.Duration("duration", time.Since(client.ConnectedAt)),
		slog.Int("total_clients", totalClients))
}

// Emit queues an event for broadcasting to clients.
// This implements the store.EventEmitter interface.
func (b *Broadcaster) Emit(event any) {
	// Type assert to Event first (before acquiring lock).
	evt, ok := event.(Event)
	if !ok {
		b.logger.Error("invalid event type emitted",
			slog.String("type", "unknown"))
		return
	}

	// Hold read lock through the entire send operation.
	// This prevents a race with Shutdown() which holds write lock when
	// closing the channel.
	b.shutdownMu.RLock()
	defer b.shutdownMu.RUnlock()

	if b.shutdown {
		// Silently drop events after shutdown - this is expected.
		return
	}

	select {
	case b.events <- evt:
		// Event queued for broadcast.
	default:
		// Event channel full, log and drop.
		// May occur during import runs with many rapid changes.
		b.logger.Error("event channel full, dropping event",
			slog.String("event_type", string(evt.Type)))
	}
}

// Clients returns an iterator over all connected clients.
func (b *Broadcaster) Clients() iter.Seq[*Client] {
	return func(yield func(*Client) bool) {
		b.mu.RLock()
		defer b.mu.RUnlock()

		for _, client := range b.clients {
			if !yield(client) {
				return
			}
		}
	}
}

// ClientCount returns the number of connected clients.
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// closeAllClients closes all client connections (used during shutdown).
func (b *Broadcaster) closeAllClients() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, client := range b.clients {
		close(client.Done)
		close(client.EventChan)
	}
	b.clients = make(map[string]*Client)

	b.logger.Info("all SSE clients disconnected")
}
