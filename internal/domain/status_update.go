package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StatusUpdate asks the ledger to move the record matching Ref (charge id or
// local id) to Status. Credit, when set, is added to UserID's balance only on
// a transition into Paid.
type StatusUpdate struct {
	Ref            string
	Status         TxStatus
	ProviderStatus string
	Credit         *decimal.Decimal
	UserID         uuid.UUID
}

type UpdateOutcome struct {
	Transaction *Transaction
	Credited    bool
	// Ignored is set when the record was already Paid and the update was dropped.
	Ignored bool
}
