package domain

import (
	"fmt"
	"strings"
)

// TxStatus is the closed set of states a ledger record can be in.
type TxStatus uint8

const (
	StatusPending TxStatus = iota
	StatusAwaitingConfirmation
	StatusPaid
	StatusOverdue
	StatusTimedOut
	StatusError
)

var statusLabels = map[TxStatus]string{
	StatusPending:              "Pendente",
	StatusAwaitingConfirmation: "Aguardando Pagamento",
	StatusPaid:                 "PAGO",
	StatusOverdue:              "Vencimento",
	StatusTimedOut:             "Tempo Esgotado",
	StatusError:                "Erro",
}

// statusAliases maps every spelling the UI, the vendor or older records use.
// Keys are lower-cased.
var statusAliases = map[string]TxStatus{
	"pendente": StatusPending,
	"pending":  StatusPending,

	"aguardando pagamento":          StatusAwaitingConfirmation,
	"aguardando confirmação da api": StatusAwaitingConfirmation,
	"aguardando confirmacao da api": StatusAwaitingConfirmation,
	"aguardando":                    StatusAwaitingConfirmation,

	"pago":       StatusPaid,
	"completo":   StatusPaid,
	"recebido":   StatusPaid,
	"concluída":  StatusPaid,
	"concluida":  StatusPaid,
	"confirmado": StatusPaid,
	"paid":       StatusPaid,
	"completed":  StatusPaid,
	"confirmed":  StatusPaid,

	"vencimento": StatusOverdue,
	"vencido":    StatusOverdue,
	"overdue":    StatusOverdue,

	"tempo esgotado": StatusTimedOut,
	"timeout":        StatusTimedOut,

	"erro":      StatusError,
	"falhou":    StatusError,
	"cancelado": StatusError,
	"failed":    StatusError,
	"error":     StatusError,
}

// ParseStatus maps a free-form status string onto the closed variant.
func ParseStatus(s string) (TxStatus, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	if st, ok := statusAliases[key]; ok {
		return st, true
	}
	if strings.Contains(key, "erro") {
		return StatusError, true
	}
	return StatusPending, false
}

func (s TxStatus) String() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return fmt.Sprintf("TxStatus(%d)", uint8(s))
}

func (s TxStatus) IsPaid() bool { return s == StatusPaid }

func (s TxStatus) IsTerminal() bool {
	return s == StatusPaid || s == StatusTimedOut || s == StatusError
}

func (s TxStatus) MarshalText() ([]byte, error) {
	l, ok := statusLabels[s]
	if !ok {
		return nil, fmt.Errorf("MarshalText: unknown status %d", uint8(s))
	}
	return []byte(l), nil
}

func (s *TxStatus) UnmarshalText(b []byte) error {
	st, ok := ParseStatus(string(b))
	if !ok {
		return fmt.Errorf("UnmarshalText: unknown status %q", string(b))
	}
	*s = st
	return nil
}
