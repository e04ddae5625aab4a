// Package telemetry publishes health events over MQTT so shop
// monitoring picks up stalled axes without polling the controller.
package telemetry

import (
	"encoding/json"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/intelliservenz/firecnc/internal/axis"
)

const connectTimeout = 5 * time.Second

// Publisher forwards events to an MQTT broker. Publishes are
// fire-and-forget: the poller must never block on the network.
type Publisher struct {
	cli   mqtt.Client
	topic string
	log   zerolog.Logger
}

type alertPayload struct {
	Time    string `json:"time"`
	Kind    string `json:"kind"`
	Axis    string `json:"axis,omitempty"`
	Message string `json:"message"`
}

// Connect dials the broker. The paho client reconnects on its own after
// transient broker loss; a failed first connect is returned to the
// caller, who runs without telemetry.
func Connect(broker, topic string, log zerolog.Logger) (*Publisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID("firecnc").
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout)
	cli := mqtt.NewClient(opts)
	tok := cli.Connect()
	if !tok.WaitTimeout(connectTimeout) {
		return nil, mqtt.ErrNotConnected
	}
	if err := tok.Error(); err != nil {
		return nil, err
	}
	return &Publisher{cli: cli, topic: topic, log: log}, nil
}

func (p *Publisher) AxisStalled(a axis.ID) {
	p.publish(alertPayload{
		Time:    time.Now().UTC().Format(time.RFC3339),
		Kind:    "axis_stalled",
		Axis:    a.String(),
		Message: "axis " + a.String() + " not responding",
	})
}

func (p *Publisher) Alert(msg string) {
	p.publish(alertPayload{
		Time:    time.Now().UTC().Format(time.RFC3339),
		Kind:    "alert",
		Message: msg,
	})
}

func (p *Publisher) publish(pl alertPayload) {
	b, err := json.Marshal(pl)
	if err != nil {
		return
	}
	// QoS 0, not retained: the token resolves in the background and is
	// only checked for logging.
	tok := p.cli.Publish(p.topic, 0, false, b)
	go func() {
		tok.Wait()
		if err := tok.Error(); err != nil {
			p.log.Debug().Err(err).Msg("mqtt publish")
		}
	}()
}

func (p *Publisher) Close() {
	p.cli.Disconnect(250)
}
