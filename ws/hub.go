package ws

import (
	"context"
	"encoding/json"

	"github.com/susaninz/geosite-manager/errors"
	"github.com/susaninz/geosite-manager/logging"
	"github.com/susaninz/geosite-manager/monitor"
	"go.uber.org/zap"
)

// Hub holds all active dashboard clients and manages centralized
// broadcasting of device status updates.
type Hub struct {
	// clients holds all online clients.
	clients map[*Client]struct{}
	// register receives when a Client wants to register itself.
	register chan *Client
	// unregister receives when a Client wants to unregister itself.
	unregister chan *Client
	// broadcast receives messages that go out to every connected client.
	broadcast chan []byte
}

// NewHub creates a new Hub. Start it with Hub.Run.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 16),
	}
}

// Run starts the Hub. It blocks so you need to start a goroutine.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			h.clients[c] = struct{}{}
			logging.WSLogger.Info("dashboard client connected", zap.String("client_id", c.ID.String()))
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				logging.WSLogger.Info("dashboard client disconnected", zap.String("client_id", c.ID.String()))
				// Close the send-channel which leads to stopping the write-pump.
				close(c.Send)
			}
		case message := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.Send <- message:
				default:
					// Slow client, drop the update instead of blocking the hub.
				}
			}
		}
	}
}

// deviceUpdate is the JSON envelope for broadcast device snapshots.
type deviceUpdate struct {
	Type   string           `json:"type"`
	Device monitor.Snapshot `json:"device"`
}

// BroadcastDeviceUpdate sends the given snapshot to all connected clients.
func (h *Hub) BroadcastDeviceUpdate(ctx context.Context, snapshot monitor.Snapshot) {
	message, err := json.Marshal(deviceUpdate{
		Type:   "device_update",
		Device: snapshot,
	})
	if err != nil {
		errors.Log(logging.WSLogger, errors.NewInternalErrorFromErr(err, "marshal device update",
			errors.Details{"device_key": snapshot.Key}))
		return
	}
	select {
	case <-ctx.Done():
	case h.broadcast <- message:
	}
}
