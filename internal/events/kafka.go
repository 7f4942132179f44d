package events

import (
	"context"
	"fmt"
	"time"

	"github.com/josh-kwaku/pix-relay/internal/domain"
	"github.com/segmentio/kafka-go"
)

// Bounds on a synchronous publish while the broker is unreachable.
const (
	publishTimeout = 5 * time.Second
	writeTimeout   = 2 * time.Second
	writeAttempts  = 2
)

type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
			BatchTimeout:           10 * time.Millisecond,
			WriteTimeout:           writeTimeout,
			MaxAttempts:            writeAttempts,
		},
	}
}

// Publish keys messages by transaction id so events for one transaction stay
// ordered within a partition.
func (p *KafkaPublisher) Publish(ctx context.Context, evt domain.PaymentEvent) error {
	data, err := encode(evt)
	if err != nil {
		return fmt.Errorf("KafkaPublisher.Publish: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(evt.TransactionID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(evt.Type)},
		},
	})
	if err != nil {
		return fmt.Errorf("KafkaPublisher.Publish: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
