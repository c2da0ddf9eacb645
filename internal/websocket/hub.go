// Package websocket pushes change notifications to every open client so a
// kitchen tablet and a parent's phone stay on the same star totals without
// polling.
package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// Message is one sync notification. Entity mutations carry entity/action/id;
// ledger movements additionally carry the profile and the signed star delta
// so clients can animate balances without a refetch.
type Message struct {
	Type      string `json:"type"`
	Entity    string `json:"entity,omitempty"`
	Action    string `json:"action,omitempty"`
	ID        string `json:"id,omitempty"`
	ProfileID int64  `json:"profile_id,omitempty"`
	Stars     int    `json:"stars,omitempty"`
	Title     string `json:"title,omitempty"`
}

// EntityChanged builds the standard mutation message for a CRUD change.
func EntityChanged(entity, action, id string) Message {
	return Message{
		Type:   fmt.Sprintf("%s_%s", entity, action),
		Entity: entity,
		Action: action,
		ID:     id,
	}
}

// StarsMoved builds the message for a committed ledger movement.
func StarsMoved(eventType string, profileID int64, title string, stars int) Message {
	return Message{
		Type:      eventType,
		ProfileID: profileID,
		Title:     title,
		Stars:     stars,
	}
}

// Hub holds the active connections and fans broadcasts out to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger.With("component", "websocket"),
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Broadcast sends the message to every connected client. A client whose
// buffer is full is skipped rather than allowed to stall the rest.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
