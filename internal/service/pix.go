package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/josh-kwaku/pix-relay/internal/domain"
	"github.com/josh-kwaku/pix-relay/internal/gateway"
	"github.com/josh-kwaku/pix-relay/internal/logging"
	"github.com/josh-kwaku/pix-relay/internal/pricing"
	"github.com/josh-kwaku/pix-relay/internal/reconciler"
	"github.com/shopspring/decimal"
)

const (
	chargeKeyLabel  = "QR Code"
	chargeTypeLabel = "Recebimento"

	providerStatusTransferDone   = "concluída"
	providerStatusTransferFailed = "falhou"
	providerStatusAwaitingAPI    = "Aguardando Confirmação da API"
	providerStatusAwaiting       = "Aguardando Pagamento"
	providerStatusChargeFailed   = "Erro ao gerar QR Code"
	providerStatusManual         = "CONFIRMADO"
)

type ledgerBook interface {
	statusLedger
	Record(ctx context.Context, tx *domain.Transaction) error
	Get(ctx context.Context, ref string) (*domain.Transaction, error)
	List(ctx context.Context) ([]domain.Transaction, error)
	Clear(ctx context.Context) error
	Attach(ctx context.Context, ref, chargeID string) (*domain.Transaction, error)
}

type PixService struct {
	gateway  paymentGateway
	ledger   ledgerBook
	balances balanceAccumulator
	polling  pollingEngine
	rules    *pricing.Rules
	events   eventPublisher
	now      func() time.Time
}

func NewPixService(
	gw paymentGateway,
	ledger ledgerBook,
	balances balanceAccumulator,
	polling pollingEngine,
	rules *pricing.Rules,
	events eventPublisher,
) *PixService {
	return &PixService{
		gateway:  gw,
		ledger:   ledger,
		balances: balances,
		polling:  polling,
		rules:    rules,
		events:   events,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type TransferRequest struct {
	PixKey  string
	PixType string
	Amount  decimal.Decimal
}

type TransferResult struct {
	Transaction *domain.Transaction
	VendorID    string
	Balance     decimal.Decimal
}

// Transfer sends money out. The displayed fee is informational; the balance
// is debited by the full amount and stays debited only when the vendor accepts.
func (s *PixService) Transfer(ctx context.Context, userID uuid.UUID, req TransferRequest) (*TransferResult, error) {
	log := logging.FromContext(ctx)

	kt, ok := gateway.ParseKeyType(req.PixType)
	if !ok {
		return nil, fmt.Errorf("Transfer: %w", domain.NewProviderError(domain.ErrInvalidPixKey, "Tipo de chave Pix inválido"))
	}
	if err := gateway.ValidatePixKey(req.PixKey, kt); err != nil {
		return nil, fmt.Errorf("Transfer: %w", err)
	}
	fee, err := s.rules.TransferFee(req.Amount)
	if err != nil {
		return nil, fmt.Errorf("Transfer: %w", domain.NewProviderError(domain.ErrInvalidAmount, "O valor deve ser maior que zero"))
	}

	// The amount is held while the vendor call is in flight and returned if
	// the send fails.
	newBal, err := s.balances.Debit(ctx, userID, req.Amount)
	if err != nil {
		return nil, fmt.Errorf("Transfer: reserve %s: %w", req.Amount.StringFixed(2), err)
	}

	now := s.now()
	tx := &domain.Transaction{
		ID:          uuid.NewString(),
		Date:        domain.FormatDisplayDate(now),
		CreatedAt:   now,
		PixKey:      strings.TrimSpace(req.PixKey),
		PixType:     kt.Label(),
		Amount:      req.Amount,
		Fee:         &fee,
		Kind:        domain.KindTransfer,
		InitiatedBy: userID,
	}

	res, err := s.gateway.CreateTransfer(ctx, req.PixKey, kt, req.Amount)
	if err != nil {
		if _, cerr := s.balances.Credit(context.WithoutCancel(ctx), userID, req.Amount); cerr != nil {
			log.Error("failed to release reserved transfer amount",
				"transaction_id", tx.ID,
				"amount", req.Amount.StringFixed(2),
				"error", cerr,
			)
		}
		if reachedVendor(err) {
			tx.Status = domain.StatusError
			tx.ProviderStatus = providerStatusTransferFailed
			if rerr := s.ledger.Record(ctx, tx); rerr != nil {
				log.Error("failed to record failed transfer", "error", rerr)
			}
		}
		return nil, fmt.Errorf("Transfer: %w", err)
	}

	tx.ChargeID = res.TransactionID
	tx.Status = domain.StatusPaid
	tx.ProviderStatus = providerStatusTransferDone

	if err := s.ledger.Record(ctx, tx); err != nil {
		log.Error("failed to record transfer", "transaction_id", tx.ID, "error", err)
	}

	log.Info("transfer completed",
		"transaction_id", tx.ID,
		"vendor_id", res.TransactionID,
		"amount", req.Amount.StringFixed(2),
		"fee", fee.StringFixed(2),
	)
	publish(ctx, s.events, domain.NewPaymentEvent(domain.PaymentEventTransferCompleted, tx, userID, req.Amount))

	return &TransferResult{Transaction: tx, VendorID: res.TransactionID, Balance: newBal}, nil
}

// reachedVendor reports whether err came back from the vendor rather than
// from a local check.
func reachedVendor(err error) bool {
	for _, local := range []error{
		domain.ErrMissingCredentials,
		domain.ErrInvalidCredentials,
		domain.ErrMissingEndpoint,
		domain.ErrInvalidPixKey,
		domain.ErrInvalidAmount,
	} {
		if errors.Is(err, local) {
			return false
		}
	}
	return true
}

type ChargeResult struct {
	Transaction *domain.Transaction
	ChargeID    string
	QRCode      string
	CopyPaste   string
	ChargeTotal decimal.Decimal
	Credit      decimal.Decimal
	Quote       *pricing.Quote
}

// Receive creates a charge for amount, records it as awaiting payment and
// starts polling. The record shows what will be credited, not what is paid.
func (s *PixService) Receive(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*ChargeResult, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("Receive: %w", domain.NewProviderError(domain.ErrInvalidAmount, "O valor deve ser maior que zero"))
	}

	charge, err := s.gateway.CreateCharge(ctx, amount)
	if err != nil {
		return nil, fmt.Errorf("Receive: %w", err)
	}

	credit := s.rules.CreditForPaid(amount)
	basis := amount
	now := s.now()
	tx := &domain.Transaction{
		ID:             charge.ChargeID,
		Date:           domain.FormatDisplayDate(now),
		CreatedAt:      now,
		PixKey:         chargeKeyLabel,
		PixType:        chargeTypeLabel,
		Amount:         credit,
		Status:         domain.StatusAwaitingConfirmation,
		ProviderStatus: providerStatusAwaitingAPI,
		ChargeID:       charge.ChargeID,
		Kind:           domain.KindDeposit,
		CreditBasis:    &basis,
		InitiatedBy:    userID,
	}
	if err := s.ledger.Record(ctx, tx); err != nil {
		return nil, fmt.Errorf("Receive: %w", err)
	}

	if err := s.polling.Watch(ctx, reconciler.Watch{Ref: charge.ChargeID, UserID: userID, PaidAmount: amount}); err != nil {
		return nil, fmt.Errorf("Receive: %w", err)
	}

	logging.FromContext(ctx).Info("charge created",
		"charge_id", charge.ChargeID,
		"amount", amount.StringFixed(2),
		"credit", credit.StringFixed(2),
	)

	return &ChargeResult{
		Transaction: tx,
		ChargeID:    charge.ChargeID,
		QRCode:      charge.QRCode,
		CopyPaste:   charge.CopyPaste,
		ChargeTotal: amount,
		Credit:      credit,
	}, nil
}

// RegenerateCharge turns a past transfer into a payable charge carrying a 10%
// fee, or 12% once the transfer is more than 30 days old.
func (s *PixService) RegenerateCharge(ctx context.Context, userID uuid.UUID, transferRef string) (*ChargeResult, error) {
	log := logging.FromContext(ctx)

	orig, err := s.ledger.Get(ctx, transferRef)
	if err != nil {
		return nil, fmt.Errorf("RegenerateCharge: %w", err)
	}
	if orig.Kind != domain.KindTransfer {
		return nil, fmt.Errorf("RegenerateCharge: %w", domain.ErrNotTransfer)
	}

	now := s.now()
	created, err := orig.Created()
	if err != nil {
		log.Warn("unparseable transaction date, treating as new", "transaction_id", orig.ID, "date", orig.Date)
		created = now
	}

	quote, err := s.rules.Quote(orig.Amount, created, now)
	if err != nil {
		return nil, fmt.Errorf("RegenerateCharge: %w", err)
	}

	basis := quote.CreditBasis
	pending := &domain.Transaction{
		ID:             newLocalChargeID(now),
		Date:           domain.FormatDisplayDate(now),
		CreatedAt:      now,
		PixKey:         chargeKeyLabel,
		PixType:        chargeTypeLabel,
		Amount:         quote.Credit,
		Status:         domain.StatusAwaitingConfirmation,
		ProviderStatus: providerStatusAwaiting,
		Kind:           domain.KindDeposit,
		CreditBasis:    &basis,
		InitiatedBy:    userID,
	}
	if err := s.ledger.Record(ctx, pending); err != nil {
		return nil, fmt.Errorf("RegenerateCharge: %w", err)
	}

	charge, err := s.gateway.CreateCharge(ctx, quote.Total)
	if err != nil {
		if _, uerr := s.ledger.UpdateStatus(ctx, domain.StatusUpdate{
			Ref:            pending.ID,
			Status:         domain.StatusError,
			ProviderStatus: providerStatusChargeFailed,
		}); uerr != nil {
			log.Error("failed to mark pending charge as failed", "transaction_id", pending.ID, "error", uerr)
		}
		return nil, fmt.Errorf("RegenerateCharge: %w", err)
	}

	pending, err = s.ledger.Attach(ctx, pending.ID, charge.ChargeID)
	if err != nil {
		return nil, fmt.Errorf("RegenerateCharge: %w", err)
	}

	if err := s.polling.Watch(ctx, reconciler.Watch{Ref: charge.ChargeID, UserID: userID, PaidAmount: quote.CreditBasis}); err != nil {
		return nil, fmt.Errorf("RegenerateCharge: %w", err)
	}

	log.Info("charge regenerated from transfer",
		"transfer_id", orig.ID,
		"charge_id", charge.ChargeID,
		"fee_rate", quote.FeeRate.String(),
		"total", quote.Total.StringFixed(2),
		"overdue", quote.Overdue,
	)

	return &ChargeResult{
		Transaction: pending,
		ChargeID:    charge.ChargeID,
		QRCode:      charge.QRCode,
		CopyPaste:   charge.CopyPaste,
		ChargeTotal: quote.Total,
		Credit:      quote.Credit,
		Quote:       quote,
	}, nil
}

func newLocalChargeID(now time.Time) string {
	return fmt.Sprintf("QR-%d-%s", now.UnixMilli(), strings.ReplaceAll(uuid.NewString(), "-", "")[:9])
}

// ConfirmReceived is the manual "payment received" action. It goes through
// the live polling job when there is one; otherwise it credits from the
// record's stored basis. Either way the ledger's paid guard applies.
func (s *PixService) ConfirmReceived(ctx context.Context, ref string) (*domain.UpdateOutcome, error) {
	out, err := s.polling.Confirm(ctx, ref)
	if err == nil {
		return out, nil
	}
	if !errors.Is(err, domain.ErrWatchNotFound) {
		return nil, fmt.Errorf("ConfirmReceived: %w", err)
	}

	tx, err := s.ledger.Get(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("ConfirmReceived: %w", err)
	}
	if tx.Kind != domain.KindDeposit || tx.CreditBasis == nil {
		return nil, fmt.Errorf("ConfirmReceived: %s is not a charge: %w", ref, domain.ErrInvalidRequest)
	}

	credit := s.rules.CreditForPaid(*tx.CreditBasis)
	out, err = s.ledger.UpdateStatus(ctx, domain.StatusUpdate{
		Ref:            ref,
		Status:         domain.StatusPaid,
		ProviderStatus: providerStatusManual,
		Credit:         &credit,
		UserID:         tx.InitiatedBy,
	})
	if err != nil {
		return nil, fmt.Errorf("ConfirmReceived: %w", err)
	}
	return out, nil
}

// StopPolling is called when the charge view is closed.
func (s *PixService) StopPolling(ref string) bool {
	return s.polling.Cancel(ref)
}

func (s *PixService) PollingState(ref string) (reconciler.Snapshot, bool) {
	return s.polling.State(ref)
}

type HistoryEntry struct {
	domain.Transaction
	DisplayStatus domain.TxStatus
	DueDate       time.Time
	Overdue       bool
}

func (s *PixService) History(ctx context.Context) ([]HistoryEntry, error) {
	txs, err := s.ledger.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("History: %w", err)
	}

	now := s.now()
	out := make([]HistoryEntry, 0, len(txs))
	for _, tx := range txs {
		e := HistoryEntry{Transaction: tx, DisplayStatus: tx.DisplayStatus(now), Overdue: tx.IsOverdue(now)}
		if created, err := tx.Created(); err == nil {
			e.DueDate = s.rules.DueDate(created)
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *PixService) ClearHistory(ctx context.Context) error {
	if err := s.ledger.Clear(ctx); err != nil {
		return fmt.Errorf("ClearHistory: %w", err)
	}
	logging.FromContext(ctx).Info("transaction history cleared")
	return nil
}

func (s *PixService) Balance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	bal, err := s.balances.Get(ctx, userID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("Balance: %w", err)
	}
	return bal, nil
}

// SetStatus is the admin override for a record's status. Paid credits the
// initiator through the inbound credit rule when the record carries a basis.
func (s *PixService) SetStatus(ctx context.Context, ref, rawStatus string) (*domain.UpdateOutcome, error) {
	status, ok := domain.ParseStatus(rawStatus)
	if !ok {
		return nil, fmt.Errorf("SetStatus: unknown status %q: %w", rawStatus, domain.ErrInvalidRequest)
	}

	upd := domain.StatusUpdate{Ref: ref, Status: status, ProviderStatus: rawStatus}
	if status.IsPaid() {
		tx, err := s.ledger.Get(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("SetStatus: %w", err)
		}
		if tx.Kind == domain.KindDeposit && tx.CreditBasis != nil {
			s.polling.Cancel(ref)
			credit := s.rules.CreditForPaid(*tx.CreditBasis)
			upd.Credit = &credit
			upd.UserID = tx.InitiatedBy
		}
	}

	out, err := s.ledger.UpdateStatus(ctx, upd)
	if err != nil {
		return nil, fmt.Errorf("SetStatus: %w", err)
	}
	return out, nil
}
