package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/josh-kwaku/pix-relay/internal/config"
	"github.com/josh-kwaku/pix-relay/internal/domain"
	"github.com/josh-kwaku/pix-relay/internal/logging"
)

// Publisher fans payment events out to whatever is listening. Publishing is
// best effort: callers log failures and carry on.
type Publisher interface {
	Publish(ctx context.Context, evt domain.PaymentEvent) error
	Close() error
}

func New(cfg *config.Config) (Publisher, error) {
	switch cfg.EventsBackend {
	case "kafka":
		return NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic), nil
	case "nats":
		p, err := NewNATSPublisher(cfg.NATSURL, cfg.NATSSubject)
		if err != nil {
			return nil, fmt.Errorf("events.New: %w", err)
		}
		return p, nil
	default:
		return LogPublisher{}, nil
	}
}

func encode(evt domain.PaymentEvent) ([]byte, error) {
	data, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", evt.Type, err)
	}
	return data, nil
}

// LogPublisher only writes events to the request logger.
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, evt domain.PaymentEvent) error {
	logging.FromContext(ctx).Info("payment event",
		"event_id", evt.ID,
		"event_type", evt.Type,
		"transaction_id", evt.TransactionID,
		"user_id", evt.UserID,
		"amount", evt.Amount.StringFixed(2),
	)
	return nil
}

func (LogPublisher) Close() error { return nil }
