package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/josh-kwaku/pix-relay/internal/domain"
)

type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data"`
	Error   *APIError `json:"error"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// providerDetails is what a vendor failure exposes to the caller.
type providerDetails struct {
	StatusCode int    `json:"statusCode,omitempty"`
	VendorCode string `json:"vendorCode,omitempty"`
	DetectedIP string `json:"detectedIp,omitempty"`
	Shortfall  string `json:"shortfall,omitempty"`
	Body       string `json:"body,omitempty"`
}

func RespondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func RespondSuccess(w http.ResponseWriter, status int, data any) {
	RespondJSON(w, status, APIResponse{
		Success: true,
		Data:    data,
		Error:   nil,
	})
}

func RespondAppError(w http.ResponseWriter, appErr *AppError, details any) {
	RespondJSON(w, appErr.Status, APIResponse{
		Success: false,
		Data:    nil,
		Error: &APIError{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: details,
		},
	})
}

func RespondValidationError(w http.ResponseWriter, fields []FieldError) {
	RespondAppError(w, ErrValidationFailed, fields)
}

var domainErrors = []struct {
	err    error
	appErr *AppError
}{
	{domain.ErrNotFound, ErrResourceNotFound},
	{domain.ErrInsufficientFunds, ErrInsufficientFunds},
	{domain.ErrNegativeBalance, ErrNegativeBalance},
	{domain.ErrEmailTaken, ErrEmailTaken},
	{domain.ErrInvalidLogin, ErrInvalidCredentials},
	{domain.ErrForbidden, ErrForbidden},
	{domain.ErrNotTransfer, ErrNotTransfer},
	{domain.ErrWatchNotFound, ErrPollingNotFound},
	{domain.ErrInvalidRequest, ErrInvalidRequest},
	{domain.ErrMissingCredentials, ErrMissingCredentials},
	{domain.ErrInvalidCredentials, ErrProviderCredentials},
	{domain.ErrMissingEndpoint, ErrMissingEndpoint},
	{domain.ErrInvalidPixKey, ErrInvalidPixKey},
	{domain.ErrInvalidAmount, ErrInvalidAmount},
	{domain.ErrMissingTransactionID, ErrMissingTransactionID},
	{domain.ErrTimeout, ErrProviderTimeout},
	{domain.ErrNetwork, ErrProviderNetwork},
	{domain.ErrInsufficientBalance, ErrProviderBalance},
	{domain.ErrIPNotAuthorized, ErrIPNotAuthorized},
	{domain.ErrAPI, ErrProviderAPI},
	{domain.ErrIncompleteResponse, ErrIncompleteResponse},
	{domain.ErrInvalidResponse, ErrInvalidResponse},
	{domain.ErrWebhook, ErrWebhook},
}

// RespondDomainError maps err onto the response table. Vendor failures keep
// the vendor's message and their parsed details.
func RespondDomainError(w http.ResponseWriter, err error) {
	var appErr *AppError
	for _, m := range domainErrors {
		if errors.Is(err, m.err) {
			appErr = m.appErr
			break
		}
	}
	if appErr == nil {
		slog.Error("unhandled domain error", "error", err)
		RespondAppError(w, ErrInternalError, nil)
		return
	}

	var pe *domain.ProviderError
	if !errors.As(err, &pe) {
		RespondAppError(w, appErr, nil)
		return
	}

	resp := *appErr
	if pe.Message != "" {
		resp.Message = pe.Message
	}
	var details any
	if pe.StatusCode != 0 || pe.VendorCode != "" || pe.DetectedIP != "" || pe.Shortfall != "" || pe.Body != "" {
		details = providerDetails{
			StatusCode: pe.StatusCode,
			VendorCode: pe.VendorCode,
			DetectedIP: pe.DetectedIP,
			Shortfall:  pe.Shortfall,
			Body:       pe.Body,
		}
	}
	RespondAppError(w, &resp, details)
}
