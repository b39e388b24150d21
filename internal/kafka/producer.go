package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Shopify/sarama"

	"github.com/Movelgroup/movel-RestAPI/internal/models"
)

// Envelope value of every produced message
type Envelope struct {
	MessageType string        `json:"messageType"`
	ChargerID   string        `json:"chargerId"`
	ProducedAt  time.Time     `json:"producedAt"`
	Record      models.Record `json:"record"`
}

// Producer mirrors processed records to a Kafka topic, keyed by charger id
// so one charger's records stay in one partition.
type Producer struct {
	producer sarama.SyncProducer
	topic    string
}

// NewProducer connects a synchronous producer
func NewProducer(brokers []string, topic string) (*Producer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = 3
	saramaConfig.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewSyncProducer(brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return NewProducerWith(producer, topic), nil
}

// NewProducerWith wraps an existing producer
func NewProducerWith(producer sarama.SyncProducer, topic string) *Producer {
	return &Producer{producer: producer, topic: topic}
}

// Name sink name for logs
func (p *Producer) Name() string { return "kafka" }

// Write produces rec and waits for the broker ack
func (p *Producer) Write(_ context.Context, rec models.Record) error {
	value, err := json.Marshal(Envelope{
		MessageType: rec.Type(),
		ChargerID:   rec.Charger(),
		ProducedAt:  time.Now().UTC(),
		Record:      rec,
	})
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(rec.Charger()),
		Value: sarama.ByteEncoder(value),
		Headers: []sarama.RecordHeader{
			{Key: []byte("messageType"), Value: []byte(rec.Type())},
		},
	}
	if _, _, err := p.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("produce to %s: %w", p.topic, err)
	}
	return nil
}

// Close flushes and closes the producer
func (p *Producer) Close() error {
	return p.producer.Close()
}
