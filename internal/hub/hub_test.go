package hub

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/soar/dianach/internal/control"
	"github.com/soar/dianach/internal/ship"
	"github.com/soar/dianach/internal/yoke"
)

func TestComputeDelta(t *testing.T) {
	base := control.Frame{
		Connected: true,
		Device:    "CH FLIGHT SIM YOKE USB",
		Raw:       yoke.Readings{Yaw: 10},
		Controls:  control.Controls{Steering: 0.1, Impulse: 0.5},
		Ship:      ship.State{MainScreen: ship.ViewForward},
	}

	tests := []struct {
		name   string
		mutate func(*control.Frame)
		check  func(*DeltaChanges) bool
	}{
		{
			name:   "identical",
			mutate: func(*control.Frame) {},
			check:  func(d *DeltaChanges) bool { return d.IsEmpty() },
		},
		{
			name:   "sequence only",
			mutate: func(f *control.Frame) { f.Seq = 42; f.Timestamp = 1 },
			check:  func(d *DeltaChanges) bool { return d.IsEmpty() },
		},
		{
			name:   "tiny control jitter",
			mutate: func(f *control.Frame) { f.Controls.Steering = 0.105 },
			check:  func(d *DeltaChanges) bool { return d.Controls == nil },
		},
		{
			name:   "control change",
			mutate: func(f *control.Frame) { f.Controls.Impulse = 0.8 },
			check:  func(d *DeltaChanges) bool { return d.Controls != nil && d.Controls.Impulse == 0.8 },
		},
		{
			name:   "raw change",
			mutate: func(f *control.Frame) { f.Raw.Pitch = 300 },
			check:  func(d *DeltaChanges) bool { return d.Raw != nil && d.Raw.Pitch == 300 && d.Controls == nil },
		},
		{
			name:   "button and hat",
			mutate: func(f *control.Frame) { f.Buttons.Shields = true; f.Hat = yoke.HatDown },
			check: func(d *DeltaChanges) bool {
				return d.Buttons != nil && d.Buttons.Shields && d.Hat != nil && *d.Hat == yoke.HatDown
			},
		},
		{
			name:   "ship update",
			mutate: func(f *control.Frame) { f.Ship.UpdatedAt = time.Unix(100, 0) },
			check:  func(d *DeltaChanges) bool { return d.Ship != nil },
		},
		{
			name:   "disconnect",
			mutate: func(f *control.Frame) { f.Connected = false },
			check:  func(d *DeltaChanges) bool { return d.Connected != nil && !*d.Connected },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := base
			tt.mutate(&next)
			if d := ComputeDelta(base, next); !tt.check(d) {
				t.Fatalf("unexpected delta: %+v", d)
			}
		})
	}
}

func readMessage(t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(3 * time.Second)); err != nil {
		t.Fatal(err)
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("bad message %s: %v", data, err)
	}
	return msg
}

func TestBroadcasterEndToEnd(t *testing.T) {
	h := NewHub()
	b := NewBroadcaster(h)
	upgrader := h.Upgrader()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		socket, err := upgrader.Upgrade(w, r)
		if err != nil {
			return
		}
		go socket.ReadLoop()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	if msg := readMessage(t, conn); msg.Type != "full" || msg.Data == nil {
		t.Fatalf("expected initial full message, got %+v", msg)
	}
	if h.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", h.Count())
	}

	b.Publish(control.Frame{Connected: true, Controls: control.Controls{Steering: 0.5}})
	msg := readMessage(t, conn)
	if msg.Type != "delta" || msg.Changes == nil || msg.Changes.Controls == nil || msg.Changes.Controls.Steering != 0.5 {
		t.Fatalf("expected steering delta, got %+v", msg)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"resync"}`)); err != nil {
		t.Fatal(err)
	}
	msg = readMessage(t, conn)
	if msg.Type != "full" || msg.Data == nil || msg.Data.Controls.Steering != 0.5 {
		t.Fatalf("expected full resync, got %+v", msg)
	}
	if b.Latest().Controls.Steering != 0.5 {
		t.Fatalf("Latest not updated")
	}
}
