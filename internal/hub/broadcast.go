package hub

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lxzan/gws"
	"github.com/sirupsen/logrus"

	"github.com/soar/dianach/internal/control"
)

const (
	fullSyncInterval = 5 * time.Second
	deltaCountSync   = 100
)

// Broadcaster receives control frames and broadcasts them to the hub.
// It implements control.FrameSink.
type Broadcaster struct {
	hub    *Hub
	frames chan control.Frame

	mu        sync.RWMutex
	lastFrame control.Frame
	seq       atomic.Int64
}

// NewBroadcaster creates a broadcaster for h. New and resyncing clients get
// the latest frame in full.
func NewBroadcaster(h *Hub) *Broadcaster {
	b := &Broadcaster{
		hub:    h,
		frames: make(chan control.Frame, 64),
	}
	h.onOpen = b.SendInitialState
	h.onResync = b.SendInitialState
	return b
}

// Publish queues a frame. Frames are dropped when the queue is full so the
// control loop never blocks on monitor clients.
func (b *Broadcaster) Publish(f control.Frame) {
	select {
	case b.frames <- f:
	default:
	}
}

// Latest returns the most recent frame.
func (b *Broadcaster) Latest() control.Frame {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastFrame
}

// Run starts the broadcaster loop. It returns when ctx is done.
func (b *Broadcaster) Run(ctx context.Context) {
	ticker := time.NewTicker(fullSyncInterval)
	defer ticker.Stop()

	var deltaCount int64

	for {
		select {
		case <-ctx.Done():
			return

		case frame := <-b.frames:
			b.mu.Lock()
			delta := ComputeDelta(b.lastFrame, frame)
			b.lastFrame = frame
			b.mu.Unlock()

			if delta.IsEmpty() {
				continue
			}

			seq := b.seq.Add(1)
			deltaCount++

			// Send full sync periodically
			if deltaCount >= deltaCountSync {
				b.sendFull(seq, frame)
				deltaCount = 0
			} else {
				b.sendDelta(seq, delta)
			}

		case <-ticker.C:
			last := b.Latest()
			if last.Connected {
				b.sendFull(b.seq.Add(1), last)
			}
		}
	}
}

// SendInitialState sends the latest full frame to one client.
func (b *Broadcaster) SendInitialState(c *gws.Conn) {
	last := b.Latest()
	data, err := json.Marshal(NewFullMessage(b.seq.Add(1), &last))
	if err != nil {
		logrus.WithError(err).Error("error marshaling initial state")
		return
	}
	if err := c.WriteMessage(gws.OpcodeText, data); err != nil {
		logrus.WithError(err).Debug("error sending initial state")
	}
}

func (b *Broadcaster) sendFull(seq int64, frame control.Frame) {
	data, err := json.Marshal(NewFullMessage(seq, &frame))
	if err != nil {
		logrus.WithError(err).Error("error marshaling full message")
		return
	}
	b.hub.Broadcast(data)
}

func (b *Broadcaster) sendDelta(seq int64, delta *DeltaChanges) {
	data, err := json.Marshal(NewDeltaMessage(seq, delta))
	if err != nil {
		logrus.WithError(err).Error("error marshaling delta message")
		return
	}
	b.hub.Broadcast(data)
}
