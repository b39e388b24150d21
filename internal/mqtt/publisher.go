package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/Movelgroup/movel-RestAPI/internal/models"
)

const (
	QoS            = 1
	publishTimeout = 5 * time.Second
)

// Topic returns "{prefix}/chargers/{chargerId}/{messageType}"
func Topic(prefix string, rec models.Record) string {
	return fmt.Sprintf("%s/chargers/%s/%s", prefix, rec.Charger(), rec.Type())
}

// Connect opens a client to broker
func Connect(broker, clientID, user, pass string) (pahomqtt.Client, error) {
	opts := pahomqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true)
	if user != "" {
		opts.SetUsername(user).SetPassword(pass)
	}

	client := pahomqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}
	return client, nil
}

// Publisher relays processed records to MQTT
type Publisher struct {
	client pahomqtt.Client
	prefix string
}

// NewPublisher creates the relay
func NewPublisher(client pahomqtt.Client, prefix string) *Publisher {
	return &Publisher{client: client, prefix: prefix}
}

// Name sink name for logs
func (p *Publisher) Name() string { return "mqtt" }

// Write publishes rec as JSON
func (p *Publisher) Write(ctx context.Context, rec models.Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	topic := Topic(p.prefix, rec)
	token := p.client.Publish(topic, QoS, false, payload)

	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(publishTimeout):
		return fmt.Errorf("publish %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Close disconnects the client
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
