// Package hub fans control frames out to monitor WebSocket clients.
package hub

import (
	"encoding/json"
	"sync"

	"github.com/lxzan/gws"
	"github.com/sirupsen/logrus"
)

// Hub tracks connected monitor clients. It implements gws.Event.
type Hub struct {
	gws.BuiltinEventHandler

	clients map[*gws.Conn]struct{}
	mu      sync.RWMutex

	// onOpen is called for every newly connected client.
	onOpen func(*gws.Conn)
	// onResync is called when a client asks for a full frame.
	onResync func(*gws.Conn)
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*gws.Conn]struct{}),
	}
}

// Upgrader returns a gws upgrader that registers connections with h.
func (h *Hub) Upgrader() *gws.Upgrader {
	return gws.NewUpgrader(h, &gws.ServerOption{
		Recovery: gws.Recovery,
	})
}

func (h *Hub) OnOpen(c *gws.Conn) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	logrus.WithFields(logrus.Fields{"remote": c.RemoteAddr().String(), "total": n}).Info("monitor client connected")

	if h.onOpen != nil {
		h.onOpen(c)
	}
}

func (h *Hub) OnClose(c *gws.Conn, err error) {
	h.mu.Lock()
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()
	logrus.WithFields(logrus.Fields{"total": n}).WithError(err).Info("monitor client disconnected")
}

func (h *Hub) OnMessage(c *gws.Conn, message *gws.Message) {
	defer message.Close()

	var msg ClientMessage
	if err := json.Unmarshal(message.Bytes(), &msg); err != nil {
		logrus.WithError(err).Debug("error parsing client message")
		return
	}
	switch msg.Type {
	case ClientResync:
		if h.onResync != nil {
			h.onResync(c)
		}
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends msg to every client.
func (h *Hub) Broadcast(msg []byte) {
	b := gws.NewBroadcaster(gws.OpcodeText, msg)
	defer b.Close()

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		_ = b.Broadcast(c)
	}
}
