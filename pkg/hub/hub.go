package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/teslashibe/go-wayfind/internal/log"
	"github.com/teslashibe/go-wayfind/pkg/navigation"
	"github.com/teslashibe/go-wayfind/pkg/protocol"
)

// Hub maintains the set of active clients and broadcasts messages to them.
// A newly registered client is sent the most recent broadcast so it starts
// with the current state.
type Hub struct {
	name   string
	logger *slog.Logger

	// Registered clients, owned by Run
	clients map[*Client]bool

	broadcast  chan Message
	register   chan *Client
	unregister chan *Client

	mu    sync.RWMutex // guards count and last
	count int
	last  *Message

	running atomic.Bool
	done    chan struct{}
}

// New creates a new Hub
func New(name string, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = log.Component("hub")
	}
	return &Hub{
		name:       name,
		logger:     logger.With("hub", name),
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run is the hub's main loop. It returns when ctx is cancelled, closing
// every client's send channel.
func (h *Hub) Run(ctx context.Context) {
	h.running.Store(true)
	defer func() {
		for client := range h.clients {
			h.drop(client)
		}
		h.running.Store(false)
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.clients[client] = true
			h.mu.Lock()
			h.count = len(h.clients)
			last := h.last
			h.mu.Unlock()
			if last != nil {
				h.deliver(client, *last)
			}
			h.logger.Info("client connected", "clients", len(h.clients))

		case client := <-h.unregister:
			if h.clients[client] {
				h.drop(client)
			}
			h.logger.Info("client disconnected", "clients", len(h.clients))

		case message := <-h.broadcast:
			h.mu.Lock()
			h.last = &message
			h.mu.Unlock()
			for client := range h.clients {
				h.deliver(client, message)
			}
		}
	}
}

// deliver queues message for client, dropping the client if it is too slow.
func (h *Hub) deliver(client *Client, message Message) {
	select {
	case client.send <- message:
	default:
		h.drop(client)
		h.logger.Warn("dropped slow client")
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.send)
	h.mu.Lock()
	h.count = len(h.clients)
	h.mu.Unlock()
}

// Done is closed when Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Broadcast sends a message to all connected clients
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("broadcast channel full, dropping message")
	}
}

// BroadcastJSON encodes and broadcasts a JSON message
func (h *Hub) BroadcastJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(NewJSONMessage(data))
	return nil
}

// OnState broadcasts a navigation snapshot as a protocol state message,
// making the hub a navigation.Observer.
func (h *Hub) OnState(s navigation.State) {
	msg, err := protocol.NewStateMessage(s)
	if err != nil {
		h.logger.Error("encode state", "error", err)
		return
	}
	if err := h.BroadcastJSON(msg); err != nil {
		h.logger.Error("broadcast state", "error", err)
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// IsRunning returns whether the hub is running
func (h *Hub) IsRunning() bool {
	return h.running.Load()
}

var _ navigation.Observer = (*Hub)(nil)
