package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"
)

// Event is the envelope broadcast to connected terminals
type Event struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Hub maintains the set of connected POS terminals and fans sync
// lifecycle events out to them.
type Hub struct {
	// Registered clients map: TerminalID -> Client
	clients map[string]*Client

	// Register requests
	register chan *Client

	// Unregister requests
	unregister chan *Client

	// Mutex for thread-safe access to clients map
	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[string]*Client),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if client.TerminalID != "" {
				// If a terminal reconnects, close the old connection
				if old, ok := h.clients[client.TerminalID]; ok {
					close(old.send)
					delete(h.clients, client.TerminalID)
				}
				h.clients[client.TerminalID] = client
				log.Printf("🖥️  Terminal connected: %s", client.TerminalID)
			}
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if client.TerminalID != "" {
				if _, ok := h.clients[client.TerminalID]; ok {
					delete(h.clients, client.TerminalID)
					close(client.send)
					log.Printf("📴 Terminal disconnected: %s", client.TerminalID)
				}
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastEvent sends a sync lifecycle event to every connected terminal
func (h *Hub) BroadcastEvent(event string, payload interface{}) {
	message, err := json.Marshal(Event{
		Type:      event,
		Payload:   payload,
		Timestamp: time.Now(),
	})
	if err != nil {
		log.Printf("Error marshaling event %s: %v", event, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		select {
		case client.send <- message:
		default:
			// Slow consumer, drop the event rather than block the engine
		}
	}
}

// ConnectedTerminals returns the number of connected terminals
func (h *Hub) ConnectedTerminals() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
