package service

import (
	"context"
	"sync"

	"dario/internal/metrics"
	"dario/internal/model"
)

// subscriberBuffer is the number of events a slow client may lag behind
const subscriberBuffer = 32

// Broadcaster delivers realtime events to every open connection of a user
type Broadcaster interface {
	Publish(ctx context.Context, userID string, event model.SocketEvent) error
}

// Hub manages the realtime connections of this instance, grouped by user
type Hub struct {
	clients map[string]map[string]chan model.SocketEvent
	mu      sync.RWMutex
	metrics *metrics.Metrics
}

// NewHub creates a new hub
func NewHub(m *metrics.Metrics) *Hub {
	return &Hub{
		clients: make(map[string]map[string]chan model.SocketEvent),
		metrics: m,
	}
}

// Subscribe registers a connection of userID and returns its event channel
func (h *Hub) Subscribe(userID, clientID string) <-chan model.SocketEvent {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan model.SocketEvent, subscriberBuffer)
	conns, ok := h.clients[userID]
	if !ok {
		conns = make(map[string]chan model.SocketEvent)
		h.clients[userID] = conns
	}
	conns[clientID] = ch

	if h.metrics != nil {
		h.metrics.RealtimeConnections.Inc()
	}
	return ch
}

// Unsubscribe removes a connection and closes its channel
func (h *Hub) Unsubscribe(userID, clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.clients[userID]
	if !ok {
		return
	}
	ch, ok := conns[clientID]
	if !ok {
		return
	}
	close(ch)
	delete(conns, clientID)
	if len(conns) == 0 {
		delete(h.clients, userID)
	}

	if h.metrics != nil {
		h.metrics.RealtimeConnections.Dec()
	}
}

// Publish implements Broadcaster. Events for a client whose buffer is full
// are dropped.
func (h *Hub) Publish(_ context.Context, userID string, event model.SocketEvent) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.clients[userID] {
		select {
		case ch <- event:
		default:
			if h.metrics != nil {
				h.metrics.RealtimeDroppedEvents.Inc()
			}
		}
	}
	return nil
}

// ClientCount returns the number of open connections
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for _, conns := range h.clients {
		n += len(conns)
	}
	return n
}
