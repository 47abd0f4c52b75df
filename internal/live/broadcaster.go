// Package live provides WebSocket event broadcasting for real-time booth
// occupancy updates. Clients subscribe per floor plan and receive status
// changes as they are committed; the feed is read-only.
package live

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// BoothEvent is one committed booth status change on a floor plan.
type BoothEvent struct {
	FloorPlanID string    `json:"floorPlanId"`
	ShapeID     string    `json:"shapeId"`
	BoothNumber string    `json:"boothNumber,omitempty"`
	Status      string    `json:"status"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// EventBroadcaster manages WebSocket connections and broadcasts booth events.
type EventBroadcaster struct {
	mu          sync.RWMutex
	connections map[string]map[*websocket.Conn]bool // floorPlanID -> connections
}

// NewEventBroadcaster creates a new event broadcaster.
func NewEventBroadcaster() *EventBroadcaster {
	return &EventBroadcaster{
		connections: make(map[string]map[*websocket.Conn]bool),
	}
}

// Subscribe registers a WebSocket connection for a floor plan.
func (b *EventBroadcaster) Subscribe(floorPlanID string, conn *websocket.Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.connections[floorPlanID] == nil {
		b.connections[floorPlanID] = make(map[*websocket.Conn]bool)
	}
	b.connections[floorPlanID][conn] = true
}

// Unsubscribe removes a WebSocket connection from all floor plans.
func (b *EventBroadcaster) Unsubscribe(conn *websocket.Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for planID, conns := range b.connections {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(b.connections, planID)
		}
	}
}

// Broadcast sends a booth event to all subscribers of a floor plan.
func (b *EventBroadcaster) Broadcast(floorPlanID string, event *BoothEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	conns, exists := b.connections[floorPlanID]
	if !exists || len(conns) == 0 {
		return
	}

	// Serialize event once
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to marshal booth event", "error", err)
		return
	}

	for conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			slog.Warn("failed to send message to websocket client",
				"error", err,
				"floor_plan_id", floorPlanID,
			)
			// Connection will be cleaned up when client disconnects
		}
	}
}

// ConnectionCount returns the number of active WebSocket connections for a plan.
func (b *EventBroadcaster) ConnectionCount(floorPlanID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if conns, exists := b.connections[floorPlanID]; exists {
		return len(conns)
	}
	return 0
}
