package link

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/soar/dianach/internal/ship"
)

const (
	defaultTopicPrefix = "dianach"
	mqttQoS            = 1
)

// MQTT is a Transport over an MQTT broker. Commands are published on
// <prefix>/ship/<n>/command and updates read from <prefix>/ship/<n>/state.
type MQTT struct {
	client       mqtt.Client
	commandTopic string
	stateTopic   string
	timeout      time.Duration
}

func mqttTopics(prefix string, shipIndex int) (command, state string) {
	if prefix == "" {
		prefix = defaultTopicPrefix
	}
	base := fmt.Sprintf("%s/ship/%d", prefix, shipIndex)
	return base + "/command", base + "/state"
}

// DialMQTT connects to the broker in opts.
func DialMQTT(ctx context.Context, opts MQTTOptions, shipIndex int, timeout time.Duration) (*MQTT, error) {
	clientID := opts.ClientID
	if clientID == "" {
		clientID = fmt.Sprintf("dianach-ship-%d", shipIndex)
	}

	co := mqtt.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(clientID).
		SetKeepAlive(2 * time.Second).
		SetPingTimeout(time.Second).
		SetConnectTimeout(timeout).
		SetAutoReconnect(true)

	client := mqtt.NewClient(co)
	if err := waitToken(ctx, client.Connect(), timeout); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to connect to MQTT broker %s", opts.Broker)
	}

	command, state := mqttTopics(opts.TopicPrefix, shipIndex)
	logrus.WithFields(logrus.Fields{
		"broker":  opts.Broker,
		"command": command,
		"state":   state,
	}).Info("connected to MQTT broker")

	return &MQTT{
		client:       client,
		commandTopic: command,
		stateTopic:   state,
		timeout:      timeout,
	}, nil
}

func (m *MQTT) Send(ctx context.Context, cmd Command) error {
	if !m.client.IsConnectionOpen() {
		return ErrNotConnected
	}
	data, err := EncodeCommand(cmd)
	if err != nil {
		return err
	}
	if err := waitToken(ctx, m.client.Publish(m.commandTopic, mqttQoS, false, data), m.timeout); err != nil {
		return pkgerrors.Wrapf(err, "failed to publish %s command", cmd.Kind)
	}
	return nil
}

func (m *MQTT) Listen(ctx context.Context, handle func(ship.Update)) error {
	token := m.client.Subscribe(m.stateTopic, mqttQoS, func(_ mqtt.Client, msg mqtt.Message) {
		u, err := DecodeUpdate(msg.Payload())
		if err != nil {
			logrus.WithError(err).WithField("topic", msg.Topic()).Debug("skipping inbound message")
			return
		}
		handle(u)
	})
	if err := waitToken(ctx, token, m.timeout); err != nil {
		return pkgerrors.Wrapf(err, "failed to subscribe to %s", m.stateTopic)
	}
	logrus.WithField("topic", m.stateTopic).Info("subscribed to ship state")

	<-ctx.Done()
	m.client.Unsubscribe(m.stateTopic).WaitTimeout(m.timeout)
	return nil
}

func (m *MQTT) Close() error {
	m.client.Disconnect(250)
	return nil
}

func waitToken(ctx context.Context, token mqtt.Token, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-token.Done():
		return token.Error()
	case <-timer.C:
		return pkgerrors.Errorf("timed out after %s", timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}
