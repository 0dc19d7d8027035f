// Package link carries commands to the simulation server bridge and ship
// state updates back from it.
package link

import (
	"context"
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/soar/dianach/internal/ship"
)

var (
	// ErrUnknownTransport is returned by Dial for an unsupported transport name.
	ErrUnknownTransport = errors.New("unknown transport")

	// ErrNotConnected is returned when sending on a closed transport.
	ErrNotConnected = errors.New("transport not connected")

	// ErrUnexpectedMessage is returned when an inbound message is not a ship state update.
	ErrUnexpectedMessage = errors.New("unexpected message type")
)

const (
	TransportWebSocket = "ws"
	TransportMQTT      = "mqtt"

	defaultTimeout = 5 * time.Second
)

// Transport is a connection to the simulation server for one ship.
type Transport interface {
	// Send delivers one command.
	Send(ctx context.Context, cmd Command) error
	// Listen delivers inbound updates to handle until ctx is done or the
	// connection fails. It returns nil on cancellation.
	Listen(ctx context.Context, handle func(ship.Update)) error
	Close() error
}

// Options selects and configures a transport.
type Options struct {
	Transport string
	Server    string
	Port      int
	Ship      int
	Timeout   time.Duration
	MQTT      MQTTOptions
}

// MQTTOptions configures the MQTT transport.
type MQTTOptions struct {
	Broker      string
	ClientID    string
	TopicPrefix string
}

// Dial connects with the transport named in opts.
func Dial(ctx context.Context, opts Options) (Transport, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	switch opts.Transport {
	case TransportWebSocket, "":
		ws, err := DialWebSocket(ctx, webSocketURL(opts.Server, opts.Port, opts.Ship), opts.Timeout)
		if err != nil {
			return nil, err
		}
		return ws, nil
	case TransportMQTT:
		m, err := DialMQTT(ctx, opts.MQTT, opts.Ship, opts.Timeout)
		if err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, pkgerrors.Wrapf(ErrUnknownTransport, "%q", opts.Transport)
	}
}
