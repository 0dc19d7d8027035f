package hub

import (
	"time"

	"github.com/soar/dianach/internal/control"
)

// WSMessage represents a WebSocket message sent from server to client.
type WSMessage struct {
	Type      string         `json:"type"`              // "full" or "delta"
	Seq       int64          `json:"seq"`               // Sequence number for ordering
	Timestamp int64          `json:"timestamp"`         // Unix timestamp in milliseconds
	Data      *control.Frame `json:"data,omitempty"`    // Full frame for type "full"
	Changes   *DeltaChanges  `json:"changes,omitempty"` // Changed parts for type "delta"
}

// NewFullMessage creates a "full" type message containing a complete frame.
func NewFullMessage(seq int64, frame *control.Frame) *WSMessage {
	return &WSMessage{
		Type:      "full",
		Seq:       seq,
		Timestamp: time.Now().UnixMilli(),
		Data:      frame,
	}
}

// NewDeltaMessage creates a "delta" type message containing only changed parts.
func NewDeltaMessage(seq int64, changes *DeltaChanges) *WSMessage {
	return &WSMessage{
		Type:      "delta",
		Seq:       seq,
		Timestamp: time.Now().UnixMilli(),
		Changes:   changes,
	}
}

const ClientResync = "resync"

// ClientMessage represents a message sent from the client to the server.
type ClientMessage struct {
	Type string `json:"type"`
}
