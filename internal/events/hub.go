// Package events streams session events to connected clients over SSE.
package events

import (
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mcoot/quill/internal/api/response"
	"github.com/mcoot/quill/internal/model"
)

// Hub manages SSE clients for a single identity
type Hub struct {
	identityID model.IdentityID
	clients    map[*Client]bool
	mu         sync.RWMutex
	logger     *slog.Logger

	// Channels for managing clients
	register   chan *Client
	unregister chan *Client
	broadcast  chan model.SessionEvent
	done       chan struct{}
	closeOnce  sync.Once
}

// NewHub creates a new Hub for an identity
func NewHub(identityID model.IdentityID, logger *slog.Logger) *Hub {
	return &Hub{
		identityID: identityID,
		clients:    make(map[*Client]bool),
		logger:     logger.With(slog.String("identity_id", string(identityID))),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan model.SessionEvent, 256),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's event loop
func (h *Hub) Run() {
	h.logger.Debug("sse hub started")
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			clientCount := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("sse client registered",
				slog.String("session_id", string(client.sessionID)),
				slog.Int("total_clients", clientCount))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				clientCount := len(h.clients)
				h.mu.Unlock()
				h.logger.Info("sse client unregistered",
					slog.String("session_id", string(client.sessionID)),
					slog.Duration("connection_duration", time.Since(client.connectedAt)),
					slog.Int("total_clients", clientCount))
			} else {
				h.mu.Unlock()
			}

		case event := <-h.broadcast:
			message, err := encodeEvent(event)
			if err != nil {
				h.logger.Error("sse failed to encode event", slog.Any("error", err))
				continue
			}
			h.mu.RLock()
			for client := range h.clients {
				if !event.AppliesTo(client.sessionID) {
					continue
				}
				select {
				case client.send <- message:
				default:
					h.logger.Warn("sse message dropped - client buffer full",
						slog.String("session_id", string(client.sessionID)))
				}
			}
			h.mu.RUnlock()

		case <-h.done:
			h.mu.Lock()
			clientCount := len(h.clients)
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			h.logger.Debug("sse hub stopped", slog.Int("disconnected_clients", clientCount))
			return
		}
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.send)
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish queues an event for every client it applies to
func (h *Hub) Publish(event model.SessionEvent) {
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("sse broadcast dropped - hub buffer full")
	}
}

// Close shuts down the hub
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func encodeEvent(event model.SessionEvent) ([]byte, error) {
	data, err := json.Marshal(response.SessionEventFromModel(event))
	if err != nil {
		return nil, err
	}
	return formatSSEMessage(string(event.Type), string(data)), nil
}

// formatSSEMessage formats an SSE message with event name and data
// Multi-line data is properly formatted with "data: " prefix on each line
func formatSSEMessage(eventName, data string) []byte {
	var b strings.Builder
	b.WriteString("event: " + eventName + "\n")
	// SSE requires each line of data to be prefixed with "data: "
	for _, line := range splitLines(data) {
		b.WriteString("data: " + line + "\n")
	}
	b.WriteString("\n")
	return []byte(b.String())
}

// splitLines splits a string into lines, handling various line endings
func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.TrimSuffix(s, "\n")
	return strings.Split(s, "\n")
}

// HubManager manages hubs for all identities with live streams
type HubManager struct {
	hubs   map[model.IdentityID]*Hub
	mu     sync.RWMutex
	logger *slog.Logger
}

// NewHubManager creates a new HubManager
func NewHubManager(logger *slog.Logger) *HubManager {
	return &HubManager{
		hubs:   make(map[model.IdentityID]*Hub),
		logger: logger.With(slog.String("component", "sse")),
	}
}

// GetOrCreateHub returns the hub for an identity, creating one if it doesn't exist
func (m *HubManager) GetOrCreateHub(identityID model.IdentityID) *Hub {
	m.mu.Lock()
	defer m.mu.Unlock()

	if hub, ok := m.hubs[identityID]; ok {
		return hub
	}

	hub := NewHub(identityID, m.logger)
	m.hubs[identityID] = hub
	go hub.Run()
	return hub
}

// GetHub returns the hub for an identity, or nil if it doesn't exist
func (m *HubManager) GetHub(identityID model.IdentityID) *Hub {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hubs[identityID]
}

// Publish delivers an event to the identity's connected clients, if any
func (m *HubManager) Publish(identityID model.IdentityID, event model.SessionEvent) {
	hub := m.GetHub(identityID)
	if hub == nil {
		return
	}
	hub.Publish(event)
}

// RemoveHub removes and closes a hub
func (m *HubManager) RemoveHub(identityID model.IdentityID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if hub, ok := m.hubs[identityID]; ok {
		hub.Close()
		delete(m.hubs, identityID)
	}
}

// CleanupEmptyHubs removes hubs with no clients
func (m *HubManager) CleanupEmptyHubs() {
	m.mu.Lock()
	defer m.mu.Unlock()

	removedCount := 0
	for id, hub := range m.hubs {
		if hub.ClientCount() == 0 {
			hub.Close()
			delete(m.hubs, id)
			removedCount++
		}
	}
	if removedCount > 0 {
		m.logger.Info("sse empty hubs cleaned up", slog.Int("removed", removedCount))
	}
}

// Close shuts down every hub
func (m *HubManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, hub := range m.hubs {
		hub.Close()
		delete(m.hubs, id)
	}
}
