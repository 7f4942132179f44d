package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TxKind string

const (
	KindTransfer TxKind = "transfer"
	KindDeposit  TxKind = "deposit"
)

const DisplayDateLayout = "02/01/2006 15:04:05"

// Brazil has not observed DST since 2019.
var DisplayLocation = time.FixedZone("BRT", -3*60*60)

type Transaction struct {
	ID             string           `json:"id"`
	Date           string           `json:"date"`
	CreatedAt      time.Time        `json:"createdAt"`
	PixKey         string           `json:"pixKey"`
	PixType        string           `json:"pixType"`
	Amount         decimal.Decimal  `json:"amount"`
	Status         TxStatus         `json:"status"`
	ProviderStatus string           `json:"providerStatus,omitempty"`
	ChargeID       string           `json:"chargeId,omitempty"`
	Fee            *decimal.Decimal `json:"fee,omitempty"`
	Kind           TxKind           `json:"type,omitempty"`
	CreditBasis    *decimal.Decimal `json:"creditBasis,omitempty"` // what the credit rule is applied to on confirmation
	InitiatedBy    uuid.UUID        `json:"initiatedBy"`
}

// MatchesRef reports whether ref is this record's charge id or local id.
func (t *Transaction) MatchesRef(ref string) bool {
	if ref == "" {
		return false
	}
	return t.ChargeID == ref || t.ID == ref
}

// Created returns the creation instant, falling back to the display date for
// records written before CreatedAt was stored.
func (t *Transaction) Created() (time.Time, error) {
	if !t.CreatedAt.IsZero() {
		return t.CreatedAt, nil
	}
	return ParseDisplayDate(t.Date)
}

func (t *Transaction) IsOverdue(now time.Time) bool {
	created, err := t.Created()
	if err != nil {
		return false
	}
	return WholeDaysBetween(created, now) > 30
}

// DisplayStatus is the status shown in history: unpaid records past their
// due date read as Overdue unless a charge for them is awaiting payment.
func (t *Transaction) DisplayStatus(now time.Time) TxStatus {
	if !t.Status.IsPaid() && t.Status != StatusAwaitingConfirmation && t.IsOverdue(now) {
		return StatusOverdue
	}
	return t.Status
}

// WholeDaysBetween counts complete 24h periods from from to to.
func WholeDaysBetween(from, to time.Time) int {
	return int(to.Sub(from) / (24 * time.Hour))
}

func FormatDisplayDate(t time.Time) string {
	return t.In(DisplayLocation).Format(DisplayDateLayout)
}

var displayDateRe = regexp.MustCompile(`(\d{2})/(\d{2})/(\d{4})[,\s]+(\d{2}):(\d{2})(?::(\d{2}))?`)

// ParseDisplayDate parses "DD/MM/YYYY HH:mm[:ss]", tolerating the ", " and
// " às " separators, and falls back to RFC 3339.
func ParseDisplayDate(s string) (time.Time, error) {
	clean := strings.TrimSpace(strings.Replace(strings.Replace(s, " às ", " ", 1), ",", "", 1))

	if m := displayDateRe.FindStringSubmatch(clean); m != nil {
		n := make([]int, 6)
		for i := range 6 {
			if m[i+1] == "" {
				continue
			}
			v, err := strconv.Atoi(m[i+1])
			if err != nil {
				return time.Time{}, fmt.Errorf("ParseDisplayDate: %w", err)
			}
			n[i] = v
		}
		day, month, year, hour, minute, second := n[0], n[1], n[2], n[3], n[4], n[5]
		return time.Date(year, time.Month(month), day, hour, minute, second, 0, DisplayLocation), nil
	}

	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("ParseDisplayDate: unrecognized date %q", s)
	}
	return t, nil
}
