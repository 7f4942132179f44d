package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/josh-kwaku/pix-relay/internal/domain"
	"github.com/josh-kwaku/pix-relay/internal/gateway"
	"github.com/josh-kwaku/pix-relay/internal/pricing"
	"github.com/josh-kwaku/pix-relay/internal/reconciler"
	"github.com/josh-kwaku/pix-relay/internal/repository"
	"github.com/josh-kwaku/pix-relay/internal/store"
	"github.com/josh-kwaku/pix-relay/internal/testutil"
	"github.com/shopspring/decimal"
)

type fakeGateway struct {
	mu        sync.Mutex
	chargeErr error
	sendErr   error
	charges   []decimal.Decimal
	transfers []decimal.Decimal
	seq       int
	sendDelay time.Duration
}

func (f *fakeGateway) CreateCharge(_ context.Context, amount decimal.Decimal) (*gateway.Charge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.chargeErr != nil {
		return nil, f.chargeErr
	}
	f.seq++
	f.charges = append(f.charges, amount)
	id := fmt.Sprintf("vendor-charge-%d", f.seq)
	return &gateway.Charge{
		QRCode:    "data:image/png;base64,AAAA",
		CopyPaste: "00020126580014br.gov.bcb.pix",
		ChargeID:  id,
		Amount:    amount,
	}, nil
}

func (f *fakeGateway) CreateTransfer(_ context.Context, _ string, _ gateway.KeyType, amount decimal.Decimal) (*gateway.Transfer, error) {
	time.Sleep(f.sendDelay)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.transfers = append(f.transfers, amount)
	return &gateway.Transfer{TransactionID: "vendor-transfer-1", Amount: amount}, nil
}

type fakePolling struct {
	mu        sync.Mutex
	watches   []reconciler.Watch
	cancelled []string
	confirm   func(ctx context.Context, ref string) (*domain.UpdateOutcome, error)
}

func (f *fakePolling) Watch(_ context.Context, w reconciler.Watch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.watches = append(f.watches, w)
	return nil
}

func (f *fakePolling) Confirm(ctx context.Context, ref string) (*domain.UpdateOutcome, error) {
	if f.confirm != nil {
		return f.confirm(ctx, ref)
	}
	return nil, domain.ErrWatchNotFound
}

func (f *fakePolling) Cancel(ref string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, ref)
	return true
}

func (f *fakePolling) State(ref string) (reconciler.Snapshot, bool) {
	return reconciler.Snapshot{Ref: ref, State: reconciler.StateChecking}, true
}

type fakeEvents struct {
	mu     sync.Mutex
	events []domain.PaymentEvent
}

func (f *fakeEvents) Publish(_ context.Context, evt domain.PaymentEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, evt)
	return nil
}

func (f *fakeEvents) types() []domain.PaymentEventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.PaymentEventType, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Type)
	}
	return out
}

type harness struct {
	store    *store.Memory
	txs      *repository.TransactionRepository
	users    *repository.UserRepository
	balances *BalanceService
	ledger   *LedgerService
	gateway  *fakeGateway
	polling  *fakePolling
	events   *fakeEvents
	pix      *PixService
	now      time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	s := store.NewMemory()
	users := repository.NewUserRepository(s)
	balanceRepo := repository.NewBalanceRepository(s)
	txs := repository.NewTransactionRepository(s)

	h := &harness{
		store:   s,
		txs:     txs,
		users:   users,
		gateway: &fakeGateway{},
		polling: &fakePolling{},
		events:  &fakeEvents{},
		now:     time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC),
	}
	h.balances = NewBalanceService(balanceRepo, users, testutil.Dec("100.00"))
	h.ledger = NewLedgerService(txs, h.balances, h.events)
	h.pix = NewPixService(h.gateway, h.ledger, h.balances, h.polling, pricing.NewRules(), h.events)
	h.pix.now = func() time.Time { return h.now }
	return h
}

func (h *harness) seedUser(t *testing.T, balance string) *domain.User {
	t.Helper()
	return testutil.SeedTestUser(t, h.store, uuid.NewString()+"@test.com", "Maria", domain.RoleUser, balance)
}

func (h *harness) balance(t *testing.T, id uuid.UUID) decimal.Decimal {
	t.Helper()
	return testutil.GetBalance(t, h.store, id)
}
