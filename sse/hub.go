package sse

import (
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kbukum/faultline/logger"
)

const (
	defaultBufferSize = 64
	defaultKeepAlive  = 30 * time.Second
)

// Client is one connected stream.
type Client struct {
	id       string
	metadata map[string]string
	events   chan Event
	log      *logger.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithMetadata adds a metadata key-value pair to the client.
func WithMetadata(key, value string) ClientOption {
	return func(c *Client) { c.metadata[key] = value }
}

// WithSessionID tags the client with the browser session it belongs to.
func WithSessionID(sessionID string) ClientOption {
	return WithMetadata("session_id", sessionID)
}

// NewClient creates a client with a buffered event channel.
func NewClient(id string, opts ...ClientOption) *Client {
	return newClient(id, defaultBufferSize, logger.Get("sse"), opts...)
}

func newClient(id string, buffer int, log *logger.Logger, opts ...ClientOption) *Client {
	c := &Client{
		id:       id,
		metadata: make(map[string]string),
		events:   make(chan Event, buffer),
		log:      log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ID returns the client's unique identifier.
func (c *Client) ID() string { return c.id }

// Metadata returns the client metadata.
func (c *Client) Metadata() map[string]string { return c.metadata }

// SessionID returns the session the client was tagged with.
func (c *Client) SessionID() string { return c.metadata["session_id"] }

// Events returns the channel the stream handler reads from.
func (c *Client) Events() <-chan Event { return c.events }

// Send queues ev. It returns false and drops the event when the client is
// not keeping up.
func (c *Client) Send(ev Event) bool {
	select {
	case c.events <- ev:
		return true
	default:
		c.log.Warn("sse client too slow, dropping event", logger.Fields(
			"client_id", c.id,
			"event", ev.Type,
		))
		return false
	}
}

func (c *Client) close() { close(c.events) }

// Broadcaster sends events to the clients matching a glob pattern.
type Broadcaster interface {
	Broadcast(pattern string, ev Event)
}

type message struct {
	pattern string
	event   Event
}

// Hub routes events to connected clients. Registration and broadcasts go
// through Run's goroutine; after Stop they become no-ops.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan message
	done       chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex

	log        *logger.Logger
	keepAlive  time.Duration
	bufferSize int
	dropped    atomic.Int64
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithLogger sets the hub logger.
func WithLogger(l *logger.Logger) HubOption {
	return func(h *Hub) { h.log = l }
}

// WithKeepAlive sets the interval of keep-alive comments on idle streams.
func WithKeepAlive(d time.Duration) HubOption {
	return func(h *Hub) { h.keepAlive = d }
}

// WithBufferSize sets the per-client event buffer.
func WithBufferSize(n int) HubOption {
	return func(h *Hub) { h.bufferSize = n }
}

// NewHub creates a hub. Call Run in a goroutine before use.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan message, 256),
		done:       make(chan struct{}),
		keepAlive:  defaultKeepAlive,
		bufferSize: defaultBufferSize,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.log == nil {
		h.log = logger.Get("sse")
	}
	return h
}

// NewClient creates a client sized and logged the way this hub is configured.
func (h *Hub) NewClient(id string, opts ...ClientOption) *Client {
	return newClient(id, h.bufferSize, h.log, opts...)
}

// Run is the hub's event loop. It returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.closeAllClients()
			return

		case client := <-h.register:
			h.mu.Lock()
			if old, ok := h.clients[client.id]; ok {
				old.close()
			}
			h.clients[client.id] = client
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("sse client registered", logger.Fields("client_id", client.id, "total_clients", total))

		case client := <-h.unregister:
			h.mu.Lock()
			if cur, ok := h.clients[client.id]; ok && cur == client {
				delete(h.clients, client.id)
				client.close()
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("sse client unregistered", logger.Fields("client_id", client.id, "total_clients", total))

		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

// Stop shuts the hub down and closes every client. Safe to call multiple times.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, client := range h.clients {
		client.close()
		delete(h.clients, id)
	}
}

// Register adds a client. A client with the same id replaces the old one.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.close()
	}
}

// Unregister removes a client.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast queues ev for every client whose id matches pattern.
func (h *Hub) Broadcast(pattern string, ev Event) {
	select {
	case h.broadcast <- message{pattern: pattern, event: ev}:
	case <-h.done:
	}
}

func (h *Hub) deliver(msg message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for id, client := range h.clients {
		matched, err := filepath.Match(msg.pattern, id)
		if err != nil {
			h.log.Error("invalid sse pattern", logger.Fields("pattern", msg.pattern, "error", err.Error()))
			return
		}
		if !matched {
			continue
		}
		if client.Send(msg.event) {
			sent++
		} else {
			h.dropped.Add(1)
		}
	}
	h.log.Debug("sse event broadcast", logger.Fields(
		"pattern", msg.pattern,
		"event", msg.event.Type,
		"delivered", sent,
	))
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped counts events discarded because a client's buffer was full.
func (h *Hub) Dropped() int64 { return h.dropped.Load() }

// ClientIDs returns the ids of all connected clients.
func (h *Hub) ClientIDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	return ids
}

var _ Broadcaster = (*Hub)(nil)
