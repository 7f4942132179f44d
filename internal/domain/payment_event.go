package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentEventType string

const (
	PaymentEventDepositConfirmed  PaymentEventType = "deposit.confirmed"
	PaymentEventTransferCompleted PaymentEventType = "transfer.completed"
	PaymentEventChargeTimedOut    PaymentEventType = "charge.timed_out"
)

type PaymentEvent struct {
	ID            uuid.UUID        `json:"id"`
	Type          PaymentEventType `json:"type"`
	TransactionID string           `json:"transactionId"`
	ChargeID      string           `json:"chargeId,omitempty"`
	UserID        uuid.UUID        `json:"userId"`
	Amount        decimal.Decimal  `json:"amount"`
	Status        TxStatus         `json:"status"`
	OccurredAt    time.Time        `json:"occurredAt"`
}

func NewPaymentEvent(typ PaymentEventType, tx *Transaction, userID uuid.UUID, amount decimal.Decimal) PaymentEvent {
	return PaymentEvent{
		ID:            uuid.New(),
		Type:          typ,
		TransactionID: tx.ID,
		ChargeID:      tx.ChargeID,
		UserID:        userID,
		Amount:        amount,
		Status:        tx.Status,
		OccurredAt:    time.Now().UTC(),
	}
}
