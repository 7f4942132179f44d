package events

import (
	"context"
	"fmt"
	"time"

	"github.com/josh-kwaku/pix-relay/internal/domain"
	"github.com/nats-io/nats.go"
)

type NATSPublisher struct {
	nc      *nats.Conn
	subject string
}

func NewNATSPublisher(url, subject string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("pix-relay"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("NewNATSPublisher: %w", err)
	}
	return &NATSPublisher{nc: nc, subject: subject}, nil
}

// Publish sends to "<subject>.<event type>", e.g. pix.payments.deposit.confirmed.
func (p *NATSPublisher) Publish(_ context.Context, evt domain.PaymentEvent) error {
	data, err := encode(evt)
	if err != nil {
		return fmt.Errorf("NATSPublisher.Publish: %w", err)
	}
	if err := p.nc.Publish(p.subject+"."+string(evt.Type), data); err != nil {
		return fmt.Errorf("NATSPublisher.Publish: %w", err)
	}
	return nil
}

func (p *NATSPublisher) Close() error {
	return p.nc.Drain()
}
