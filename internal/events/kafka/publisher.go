// Package kafka publishes payment events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cinewave/momoflow/internal/events"
	"github.com/segmentio/kafka-go"
)

// Publisher writes payment events to a Kafka topic
type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher creates a publisher for the given brokers and topic
func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

// Publish writes one payment event keyed by payer id
func (p *Publisher) Publish(ctx context.Context, event events.PaymentDecided) error {
	msg, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.PayerID),
		Value: msg,
		Time:  time.Now(),
	})
}

// Close flushes and closes the underlying writer
func (p *Publisher) Close() error {
	return p.writer.Close()
}

var _ events.Publisher = (*Publisher)(nil)
