package domain

import (
	"errors"
	"fmt"
)

// Provider-facing taxonomy. Every gateway failure unwraps to exactly one of these.
var (
	ErrMissingCredentials   = errors.New("provider credentials not configured")
	ErrInvalidCredentials   = errors.New("provider credentials are placeholders or too short")
	ErrMissingEndpoint      = errors.New("provider endpoint not configured")
	ErrInvalidPixKey        = errors.New("invalid pix key")
	ErrInvalidAmount        = errors.New("amount must be greater than zero")
	ErrTimeout              = errors.New("provider timed out")
	ErrNetwork              = errors.New("provider unreachable")
	ErrInsufficientBalance  = errors.New("provider account has insufficient balance")
	ErrIPNotAuthorized      = errors.New("server ip not authorized by provider")
	ErrAPI                  = errors.New("provider api error")
	ErrIncompleteResponse   = errors.New("provider response missing qr code fields")
	ErrInvalidResponse      = errors.New("provider response is not valid json")
	ErrWebhook              = errors.New("webhook payload could not be processed")
	ErrMissingTransactionID = errors.New("transaction id required")
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidRequest    = errors.New("invalid request")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrEmailTaken        = errors.New("email already registered")
	ErrInvalidLogin      = errors.New("invalid email or password")
	ErrForbidden         = errors.New("forbidden")
	ErrNotTransfer       = errors.New("transaction is not a transfer")
	ErrWatchNotFound     = errors.New("no payment polling for this charge")
	ErrNegativeBalance   = errors.New("balance cannot be negative")
)

// ProviderError carries what the vendor told us about a failed call.
// It unwraps to Kind so callers only ever match on sentinels.
type ProviderError struct {
	Kind       error
	Message    string
	StatusCode int
	VendorCode string
	Body       string
	DetectedIP string
	Shortfall  string
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%v (status %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%v: %s", e.Kind, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Kind }

func NewProviderError(kind error, message string) *ProviderError {
	return &ProviderError{Kind: kind, Message: message}
}
