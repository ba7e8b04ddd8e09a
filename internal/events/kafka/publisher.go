package kafka

import (
	"context"       // carries the caller's deadline into WriteMessages
	"encoding/json" // events are published as JSON
	"fmt"

	"github.com/segmentio/kafka-go" // Kafka client library
)

// keyed events are partitioned by their key so one run's events stay ordered.
type keyed interface {
	Key() string
}

// Publisher sends events to Kafka. It implements interfaces.EventPublisher.
type Publisher struct {
	writer *kafka.Writer // kafka-go writer, safe for concurrent use
}

// NewPublisher builds a writer without a fixed topic; each message names its own.
func NewPublisher(brokers []string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...), // broker addresses
			Balancer:               &kafka.LeastBytes{},   // send to the partition with the least queued bytes
			AllowAutoTopicCreation: true,                  // first run on a fresh cluster creates the topic
		},
	}
}

// Publish encodes event and writes it to topic.
func (p *Publisher) Publish(ctx context.Context, topic string, event any) error {
	msg, err := encode(topic, event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil { // blocks until the brokers ack or ctx ends
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

func encode(topic string, event any) (kafka.Message, error) {
	data, err := json.Marshal(event) // convert the event struct to JSON bytes
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode event for %s: %w", topic, err)
	}

	msg := kafka.Message{
		Topic: topic, // per message, the writer has no default topic
		Value: data,
	}
	if k, ok := event.(keyed); ok {
		msg.Key = []byte(k.Key()) // same key, same partition
	}
	return msg, nil
}
