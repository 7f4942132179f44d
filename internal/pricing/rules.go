package pricing

import (
	"fmt"
	"time"

	"github.com/josh-kwaku/pix-relay/internal/domain"
	"github.com/shopspring/decimal"
)

const OverdueAfterDays = 30

// Quote is the price of re-issuing a transfer as a payable charge.
type Quote struct {
	Amount      decimal.Decimal
	FeeRate     decimal.Decimal
	Fee         decimal.Decimal
	Total       decimal.Decimal
	CreditBasis decimal.Decimal
	Credit      decimal.Decimal
	DueDate     time.Time
	Overdue     bool
}

type Rules struct {
	transferFeeRate decimal.Decimal
	chargeMarkup    decimal.Decimal
	creditFactor    decimal.Decimal
	regularRate     decimal.Decimal
	overdueRate     decimal.Decimal
}

func NewRules() *Rules {
	return &Rules{
		transferFeeRate: decimal.RequireFromString("0.10"),
		chargeMarkup:    decimal.RequireFromString("1.1"),
		creditFactor:    decimal.RequireFromString("1.3"),
		regularRate:     decimal.RequireFromString("0.10"),
		overdueRate:     decimal.RequireFromString("0.12"),
	}
}

// TransferFee is informational only. The full amount is what gets debited.
func (r *Rules) TransferFee(amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("TransferFee: %w", domain.ErrInvalidAmount)
	}
	return amount.Mul(r.transferFeeRate), nil
}

// CreditForPaid returns what a confirmed deposit adds to the balance.
// The paid amount already carries a 10% markup; the principal is credited
// with a 30% bonus. Division happens first.
func (r *Rules) CreditForPaid(paid decimal.Decimal) decimal.Decimal {
	base := paid.Div(r.chargeMarkup)
	return base.Mul(r.creditFactor)
}

func (r *Rules) FeeRate(createdAt, now time.Time) decimal.Decimal {
	if domain.WholeDaysBetween(createdAt, now) > OverdueAfterDays {
		return r.overdueRate
	}
	return r.regularRate
}

func (r *Rules) DueDate(createdAt time.Time) time.Time {
	return createdAt.AddDate(0, 0, OverdueAfterDays)
}

func (r *Rules) Quote(amount decimal.Decimal, createdAt, now time.Time) (*Quote, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("Quote: %w", domain.ErrInvalidAmount)
	}

	rate := r.FeeRate(createdAt, now)
	fee := amount.Mul(rate)
	basis := amount.Mul(r.chargeMarkup)

	return &Quote{
		Amount:      amount,
		FeeRate:     rate,
		Fee:         fee,
		Total:       amount.Add(fee),
		CreditBasis: basis,
		Credit:      r.CreditForPaid(basis),
		DueDate:     r.DueDate(createdAt),
		Overdue:     rate.Equal(r.overdueRate),
	}, nil
}
