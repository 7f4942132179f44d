package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/josh-kwaku/pix-relay/internal/domain"
	"github.com/josh-kwaku/pix-relay/internal/logging"
	"github.com/shopspring/decimal"
)

type balanceCrediter interface {
	Credit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error)
}

// LedgerService owns status transitions of ledger records. Updates are
// serialized, so a poll tick and a manual confirmation racing on one charge
// always see each other's result.
type LedgerService struct {
	mu       sync.Mutex
	txs      transactionRepo
	balances balanceCrediter
	events   eventPublisher
}

func NewLedgerService(txs transactionRepo, balances balanceCrediter, events eventPublisher) *LedgerService {
	return &LedgerService{txs: txs, balances: balances, events: events}
}

// UpdateStatus looks the record up by charge id or local id. A record that is
// already Paid is never changed again, which is what keeps a charge from being
// credited twice. Credit is applied only on the transition into Paid.
// The deposit event is published after the lock is released.
func (s *LedgerService) UpdateStatus(ctx context.Context, upd domain.StatusUpdate) (*domain.UpdateOutcome, error) {
	out, evt, err := s.updateStatus(ctx, upd)
	if err != nil {
		return nil, err
	}
	if evt != nil {
		publish(ctx, s.events, *evt)
	}
	return out, nil
}

func (s *LedgerService) updateStatus(ctx context.Context, upd domain.StatusUpdate) (*domain.UpdateOutcome, *domain.PaymentEvent, error) {
	log := logging.FromContext(ctx).With("ref", upd.Ref)

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.txs.FindByRef(ctx, upd.Ref)
	if err != nil {
		return nil, nil, fmt.Errorf("UpdateStatus: %w", err)
	}

	if tx.Status.IsPaid() {
		log.Info("record already paid, update ignored",
			"requested_status", upd.Status,
			"credit_requested", upd.Credit != nil,
		)
		return &domain.UpdateOutcome{Transaction: tx, Ignored: true}, nil, nil
	}

	prev := *tx
	tx.Status = upd.Status
	if upd.ProviderStatus != "" {
		tx.ProviderStatus = upd.ProviderStatus
	}

	if err := s.txs.Save(ctx, tx); err != nil {
		return nil, nil, fmt.Errorf("UpdateStatus: %w", err)
	}

	credit := upd.Status.IsPaid() && upd.Credit != nil
	if !credit {
		log.Info("transaction status updated", "from", prev.Status, "to", tx.Status)
		return &domain.UpdateOutcome{Transaction: tx}, nil, nil
	}

	userID := upd.UserID
	if userID == uuid.Nil {
		userID = tx.InitiatedBy
	}
	if _, err := s.balances.Credit(ctx, userID, *upd.Credit); err != nil {
		if rerr := s.txs.Save(ctx, &prev); rerr != nil {
			log.Error("failed to revert status after credit failure", "error", rerr)
		}
		return nil, nil, fmt.Errorf("UpdateStatus: credit: %w", err)
	}

	log.Info("deposit credited",
		"user_id", userID,
		"credit", upd.Credit.StringFixed(2),
		"provider_status", tx.ProviderStatus,
	)
	evt := domain.NewPaymentEvent(domain.PaymentEventDepositConfirmed, tx, userID, *upd.Credit)

	return &domain.UpdateOutcome{Transaction: tx, Credited: true}, &evt, nil
}

func (s *LedgerService) List(ctx context.Context) ([]domain.Transaction, error) {
	txs, err := s.txs.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	return txs, nil
}

func (s *LedgerService) Get(ctx context.Context, ref string) (*domain.Transaction, error) {
	tx, err := s.txs.FindByRef(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return tx, nil
}

func (s *LedgerService) Record(ctx context.Context, tx *domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.txs.Prepend(ctx, tx); err != nil {
		return fmt.Errorf("Record: %w", err)
	}
	return nil
}

func (s *LedgerService) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.txs.Clear(ctx); err != nil {
		return fmt.Errorf("Clear: %w", err)
	}
	return nil
}

// Attach links a vendor charge id to a local record.
func (s *LedgerService) Attach(ctx context.Context, ref, chargeID string) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.txs.FindByRef(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("Attach: %w", err)
	}
	tx.ChargeID = chargeID
	if err := s.txs.Save(ctx, tx); err != nil {
		return nil, fmt.Errorf("Attach: %w", err)
	}
	return tx, nil
}
