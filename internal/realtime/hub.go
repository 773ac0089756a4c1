package realtime

import (
	"encoding/json"
	"log"
	"sync"
)

// Event types pushed to the front-end.
const (
	EventLessonCompleted = "lesson.completed"
	EventLessonProgress  = "lesson.progress"
	EventNetOnline       = "net.online"
	EventNetOffline      = "net.offline"
)

// Event is one push message. Score is nil for a malformed (NaN) score so
// the payload stays valid JSON; the front-end passes it through unchanged.
type Event struct {
	Type     string   `json:"type"`
	LessonID string   `json:"lessonId,omitempty"`
	Score    *float64 `json:"score,omitempty"`
}

// Client represents a single websocket client connection.
// We keep it minimal here; the actual network conn is managed in the ws handler.
type Client interface {
	Send(message []byte) bool
	Close()
}

// Hub maintains active front-end connections and broadcasts events to all
// of them. The companion serves one browser profile, so there is no
// per-user routing.
type Hub struct {
	mu      sync.RWMutex
	clients map[Client]struct{}
}

// NewHub constructs an empty hub. main owns the instance and hands it to
// the ws handler and the event producers.
func NewHub() *Hub {
	return &Hub{clients: make(map[Client]struct{})}
}

// Register adds a client.
func (h *Hub) Register(client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = struct{}{}
}

// Unregister removes a client.
func (h *Hub) Unregister(client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, client)
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends an event to all connected clients.
func (h *Hub) Broadcast(event Event) {
	message, err := json.Marshal(event)
	if err != nil {
		log.Printf("realtime: dropping unencodable event %q: %v", event.Type, err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		// A failed write is cleaned up on the connection handler's side.
		c.Send(message)
	}
}
