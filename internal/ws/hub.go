package ws

import (
	"encoding/json"
	"sync"

	"tareas_api/internal/domain"
	"tareas_api/internal/logger"
)

// Hub tracks open connections per user and fans task events out to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[int64]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[int64]map[*Client]struct{})}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	set, ok := h.clients[c.UserID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.UserID] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()

	ActiveConnections.Inc()
	logger.Debug("ws: client registered", "user_id", c.UserID)
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	set, ok := h.clients[c.UserID]
	if ok {
		if _, ok = set[c]; ok {
			delete(set, c)
			if len(set) == 0 {
				delete(h.clients, c.UserID)
			}
		}
	}
	h.mu.Unlock()

	if ok {
		ActiveConnections.Dec()
		logger.Debug("ws: client unregistered", "user_id", c.UserID)
	}
}

// Publish delivers ev to every connection of userID. Slow clients miss the
// event rather than block the caller.
func (h *Hub) Publish(userID int64, ev domain.TaskEvent) {
	h.mu.RLock()
	set := h.clients[userID]
	targets := make([]*Client, 0, len(set))
	for c := range set {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		return
	}

	msg, err := json.Marshal(ev)
	if err != nil {
		logger.Error("ws: failed to encode event", "error", err, "type", ev.Type)
		return
	}

	for _, c := range targets {
		if c.trySend(msg) {
			EventsSent.WithLabelValues(ev.Type).Inc()
		} else {
			EventsDropped.WithLabelValues(ev.Type).Inc()
			logger.Warn("ws: dropping event for slow client", "user_id", userID, "type", ev.Type)
		}
	}
}

// DisconnectUser closes every connection of userID and returns how many
// there were. Used on logout so a revoked token cannot keep a live feed.
func (h *Hub) DisconnectUser(userID int64) int {
	h.mu.RLock()
	set := h.clients[userID]
	targets := make([]*Client, 0, len(set))
	for c := range set {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.Close()
	}
	return len(targets)
}

// Connections returns the number of open connections for userID.
func (h *Hub) Connections(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}
