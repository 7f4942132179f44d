package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/josh-kwaku/pix-relay/internal/domain"
	"github.com/josh-kwaku/pix-relay/internal/repository"
	"github.com/josh-kwaku/pix-relay/internal/store"
	"github.com/josh-kwaku/pix-relay/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedDeposit(t *testing.T, h *harness, user *domain.User, id, chargeID string) {
	t.Helper()
	basis := testutil.Dec("110")
	testutil.SeedTestTransaction(t, h.store, domain.Transaction{
		ID:          id,
		ChargeID:    chargeID,
		PixKey:      "QR Code",
		PixType:     "Recebimento",
		Amount:      testutil.Dec("130"),
		Status:      domain.StatusAwaitingConfirmation,
		Kind:        domain.KindDeposit,
		CreditBasis: &basis,
		InitiatedBy: user.ID,
	})
}

func completo(t *testing.T) domain.TxStatus {
	t.Helper()
	st, ok := domain.ParseStatus("COMPLETO")
	require.True(t, ok)
	return st
}

func TestLedger_UpdateStatus_CreditsOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := h.seedUser(t, "0")
	seedDeposit(t, h, user, "local-1", "chg-1")

	credit := testutil.Dec("130.00")
	upd := domain.StatusUpdate{Ref: "chg-1", Status: completo(t), ProviderStatus: "COMPLETO", Credit: &credit, UserID: user.ID}

	first, err := h.ledger.UpdateStatus(ctx, upd)
	require.NoError(t, err)
	assert.True(t, first.Credited)
	assert.False(t, first.Ignored)

	second, err := h.ledger.UpdateStatus(ctx, upd)
	require.NoError(t, err)
	assert.False(t, second.Credited)
	assert.True(t, second.Ignored)

	assert.Equal(t, "130.00", h.balance(t, user.ID).StringFixed(2))
	assert.Equal(t, []domain.PaymentEventType{domain.PaymentEventDepositConfirmed}, h.events.types())

	tx, err := h.txs.FindByRef(ctx, "local-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, tx.Status)
	assert.Equal(t, "PAGO", tx.Status.String())
}

func TestLedger_UpdateStatus_ConcurrentPaidUpdates(t *testing.T) {
	h := newHarness(t)
	user := h.seedUser(t, "0")
	seedDeposit(t, h, user, "local-1", "chg-1")

	credit := testutil.Dec("130.00")
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = h.ledger.UpdateStatus(context.Background(), domain.StatusUpdate{
				Ref: "chg-1", Status: domain.StatusPaid, Credit: &credit, UserID: user.ID,
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, "130.00", h.balance(t, user.ID).StringFixed(2))
}

type blockingEvents struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingEvents) Publish(context.Context, domain.PaymentEvent) error {
	close(b.entered)
	<-b.release
	return nil
}

func TestLedger_SlowPublishDoesNotHoldLedger(t *testing.T) {
	h := newHarness(t)
	user := h.seedUser(t, "0")
	seedDeposit(t, h, user, "local-1", "chg-1")

	ev := &blockingEvents{entered: make(chan struct{}), release: make(chan struct{})}
	defer close(ev.release)
	ledger := NewLedgerService(h.txs, h.balances, ev)

	credit := testutil.Dec("130.00")
	go func() {
		_, _ = ledger.UpdateStatus(context.Background(), domain.StatusUpdate{
			Ref: "chg-1", Status: domain.StatusPaid, Credit: &credit, UserID: user.ID,
		})
	}()

	select {
	case <-ev.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("event never published")
	}

	recorded := make(chan error, 1)
	go func() {
		recorded <- ledger.Record(context.Background(), &domain.Transaction{ID: "local-2", InitiatedBy: user.ID})
	}()

	select {
	case err := <-recorded:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("ledger write blocked behind event publish")
	}
	assert.Equal(t, "130.00", h.balance(t, user.ID).StringFixed(2))
}

func TestLedger_UpdateStatus_MatchesLocalID(t *testing.T) {
	h := newHarness(t)
	user := h.seedUser(t, "0")
	seedDeposit(t, h, user, "local-1", "chg-1")

	out, err := h.ledger.UpdateStatus(context.Background(), domain.StatusUpdate{
		Ref: "local-1", Status: domain.StatusPending, ProviderStatus: "PENDING",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, out.Transaction.Status)
	assert.Equal(t, "PENDING", out.Transaction.ProviderStatus)
	assert.True(t, h.balance(t, user.ID).IsZero())
}

func TestLedger_UpdateStatus_NoCreditWithoutAmount(t *testing.T) {
	h := newHarness(t)
	user := h.seedUser(t, "5")
	seedDeposit(t, h, user, "local-1", "chg-1")

	out, err := h.ledger.UpdateStatus(context.Background(), domain.StatusUpdate{Ref: "chg-1", Status: domain.StatusPaid})
	require.NoError(t, err)
	assert.False(t, out.Credited)
	assert.Equal(t, "5.00", h.balance(t, user.ID).StringFixed(2))
}

func TestLedger_UpdateStatus_CreditsInitiatorByDefault(t *testing.T) {
	h := newHarness(t)
	user := h.seedUser(t, "1")
	seedDeposit(t, h, user, "local-1", "chg-1")

	credit := testutil.Dec("13")
	_, err := h.ledger.UpdateStatus(context.Background(), domain.StatusUpdate{Ref: "chg-1", Status: domain.StatusPaid, Credit: &credit})
	require.NoError(t, err)
	assert.Equal(t, "14.00", h.balance(t, user.ID).StringFixed(2))
}

func TestLedger_UpdateStatus_NotFound(t *testing.T) {
	h := newHarness(t)

	_, err := h.ledger.UpdateStatus(context.Background(), domain.StatusUpdate{Ref: "missing", Status: domain.StatusPaid})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

type failingCrediter struct{}

func (failingCrediter) Credit(context.Context, uuid.UUID, decimal.Decimal) (decimal.Decimal, error) {
	return decimal.Zero, errors.New("balance store down")
}

func TestLedger_UpdateStatus_RevertsOnCreditFailure(t *testing.T) {
	s := store.NewMemory()
	txs := repository.NewTransactionRepository(s)
	ledger := NewLedgerService(txs, failingCrediter{}, nil)

	basis := testutil.Dec("110")
	testutil.SeedTestTransaction(t, s, domain.Transaction{
		ID: "local-1", ChargeID: "chg-1", Status: domain.StatusAwaitingConfirmation,
		Kind: domain.KindDeposit, CreditBasis: &basis, InitiatedBy: uuid.New(),
	})

	credit := testutil.Dec("130")
	_, err := ledger.UpdateStatus(context.Background(), domain.StatusUpdate{Ref: "chg-1", Status: domain.StatusPaid, Credit: &credit})
	require.Error(t, err)

	tx, err := txs.FindByRef(context.Background(), "chg-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAwaitingConfirmation, tx.Status)
}

func TestLedger_AttachAndRecord(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.ledger.Record(ctx, &domain.Transaction{ID: "QR-1", Status: domain.StatusAwaitingConfirmation}))
	require.NoError(t, h.ledger.Record(ctx, &domain.Transaction{ID: "QR-2", Status: domain.StatusAwaitingConfirmation}))

	tx, err := h.ledger.Attach(ctx, "QR-1", "vendor-9")
	require.NoError(t, err)
	assert.Equal(t, "vendor-9", tx.ChargeID)

	got, err := h.ledger.Get(ctx, "vendor-9")
	require.NoError(t, err)
	assert.Equal(t, "QR-1", got.ID)

	list, err := h.ledger.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "QR-2", list[0].ID)

	require.NoError(t, h.ledger.Clear(ctx))
	list, err = h.ledger.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}
