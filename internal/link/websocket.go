package link

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/soar/dianach/internal/ship"
)

// WebSocket is a Transport over a single WebSocket connection.
type WebSocket struct {
	conn    *websocket.Conn
	url     string
	timeout time.Duration

	writeMu sync.Mutex
	closeMu sync.Mutex
	closed  bool
}

func webSocketURL(server string, port, shipIndex int) string {
	return fmt.Sprintf("ws://%s/ship/%d", net.JoinHostPort(server, strconv.Itoa(port)), shipIndex)
}

// DialWebSocket connects to url.
func DialWebSocket(ctx context.Context, url string, timeout time.Duration) (*WebSocket, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: timeout,
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
	}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to connect to %s", url)
	}
	logrus.WithField("url", url).Info("connected to simulation server")

	return &WebSocket{
		conn:    conn,
		url:     url,
		timeout: timeout,
	}, nil
}

func (w *WebSocket) Send(ctx context.Context, cmd Command) error {
	if w.isClosed() {
		return ErrNotConnected
	}
	data, err := EncodeCommand(cmd)
	if err != nil {
		return err
	}

	deadline := time.Now().Add(w.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	if err := w.conn.SetWriteDeadline(deadline); err != nil {
		return pkgerrors.Wrapf(err, "failed to set write deadline")
	}
	if err := w.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return pkgerrors.Wrapf(err, "failed to send %s command", cmd.Kind)
	}
	return nil
}

func (w *WebSocket) Listen(ctx context.Context, handle func(ship.Update)) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			// Unblocks ReadMessage.
			_ = w.Close()
		case <-stop:
		}
	}()

	for {
		_, message, err := w.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return pkgerrors.Wrapf(err, "connection to %s lost", w.url)
		}

		u, err := DecodeUpdate(message)
		if err != nil {
			logrus.WithError(err).Debug("skipping inbound message")
			continue
		}
		handle(u)
	}
}

func (w *WebSocket) Close() error {
	w.closeMu.Lock()
	defer w.closeMu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true

	w.writeMu.Lock()
	_ = w.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	w.writeMu.Unlock()
	return w.conn.Close()
}

func (w *WebSocket) isClosed() bool {
	w.closeMu.Lock()
	defer w.closeMu.Unlock()
	return w.closed
}
