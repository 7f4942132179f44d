package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/josh-kwaku/pix-relay/internal/domain"
	"github.com/josh-kwaku/pix-relay/internal/gateway"
	"github.com/josh-kwaku/pix-relay/internal/logging"
	"github.com/josh-kwaku/pix-relay/internal/reconciler"
	"github.com/shopspring/decimal"
)

type transactionRepo interface {
	List(ctx context.Context) ([]domain.Transaction, error)
	FindByRef(ctx context.Context, ref string) (*domain.Transaction, error)
	Prepend(ctx context.Context, tx *domain.Transaction) error
	Save(ctx context.Context, tx *domain.Transaction) error
	Clear(ctx context.Context) error
}

type balanceRepo interface {
	Get(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
	Set(ctx context.Context, userID uuid.UUID, bal decimal.Decimal) error
	Remove(ctx context.Context, userID uuid.UUID) error
}

type userRepo interface {
	List(ctx context.Context) ([]domain.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	FirstAdmin(ctx context.Context) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	Update(ctx context.Context, u *domain.User) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type providerConfigRepo interface {
	Get(ctx context.Context) domain.ProviderConfig
	Save(ctx context.Context, cfg domain.ProviderConfig) error
	Clear(ctx context.Context) error
}

type paymentGateway interface {
	CreateCharge(ctx context.Context, amount decimal.Decimal) (*gateway.Charge, error)
	CreateTransfer(ctx context.Context, pixKey string, keyType gateway.KeyType, amount decimal.Decimal) (*gateway.Transfer, error)
}

type pollingEngine interface {
	Watch(ctx context.Context, w reconciler.Watch) error
	Confirm(ctx context.Context, ref string) (*domain.UpdateOutcome, error)
	Cancel(ref string) bool
	State(ref string) (reconciler.Snapshot, bool)
}

type statusLedger interface {
	UpdateStatus(ctx context.Context, upd domain.StatusUpdate) (*domain.UpdateOutcome, error)
}

type balanceAccumulator interface {
	Get(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
	Credit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error)
	Debit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error)
}

type eventPublisher interface {
	Publish(ctx context.Context, evt domain.PaymentEvent) error
}

func publish(ctx context.Context, events eventPublisher, evt domain.PaymentEvent) {
	if events == nil {
		return
	}
	if err := events.Publish(ctx, evt); err != nil {
		logging.FromContext(ctx).Warn("failed to publish payment event",
			"event_type", evt.Type,
			"transaction_id", evt.TransactionID,
			"error", err,
		)
	}
}
