package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/josh-kwaku/pix-relay/internal/domain"
	"github.com/josh-kwaku/pix-relay/internal/logging"
	"github.com/josh-kwaku/pix-relay/internal/service"
	"github.com/shopspring/decimal"
)

type userAdmin interface {
	List(ctx context.Context) ([]domain.User, error)
	Update(ctx context.Context, id uuid.UUID, upd service.UserUpdate) (*domain.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
	AdjustBalance(ctx context.Context, id uuid.UUID, op service.BalanceOp, amount decimal.Decimal) (decimal.Decimal, error)
}

type providerConfigAdmin interface {
	Get(ctx context.Context) service.ProviderConfigView
	Save(ctx context.Context, cfg domain.ProviderConfig) (service.ProviderConfigView, error)
	Clear(ctx context.Context) error
}

type ledgerAdmin interface {
	ClearHistory(ctx context.Context) error
	SetStatus(ctx context.Context, ref, rawStatus string) (*domain.UpdateOutcome, error)
}

type AdminHandler struct {
	users    userAdmin
	provider providerConfigAdmin
	ledger   ledgerAdmin
}

func NewAdminHandler(users userAdmin, provider providerConfigAdmin, ledger ledgerAdmin) *AdminHandler {
	return &AdminHandler{users: users, provider: provider, ledger: ledger}
}

func (h *AdminHandler) GetProviderConfig(w http.ResponseWriter, r *http.Request) {
	RespondSuccess(w, http.StatusOK, h.provider.Get(r.Context()))
}

func (h *AdminHandler) SaveProviderConfig(w http.ResponseWriter, r *http.Request) {
	var req domain.ProviderConfig
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	var fields []FieldError
	if req.ClientID == "" {
		fields = append(fields, FieldError{Field: "clientId", Message: "required"})
	}
	if req.ClientSecret == "" {
		fields = append(fields, FieldError{Field: "clientSecret", Message: "required"})
	}
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	view, err := h.provider.Save(r.Context(), req)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, view)
}

func (h *AdminHandler) ClearProviderConfig(w http.ResponseWriter, r *http.Request) {
	if err := h.provider.Clear(r.Context()); err != nil {
		logging.FromContext(r.Context()).Error("failed to clear provider config", "error", err)
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, map[string]bool{"cleared": true})
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to list users", "error", err)
		RespondDomainError(w, err)
		return
	}

	out := make([]userDTO, 0, len(users))
	for i := range users {
		out = append(out, toUserDTO(&users[i]))
	}
	RespondSuccess(w, http.StatusOK, out)
}

type updateUserRequest struct {
	Name  *string      `json:"name"`
	Email *string      `json:"email"`
	Role  *domain.Role `json:"role"`
}

func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	userID, appErr := userFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	user, err := h.users.Update(r.Context(), userID, service.UserUpdate{Name: req.Name, Email: req.Email, Role: req.Role})
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toUserDTO(user))
}

func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, appErr := userFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	if err := h.users.Delete(r.Context(), userID); err != nil {
		RespondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type adjustBalanceRequest struct {
	Operation service.BalanceOp `json:"operation"`
	Amount    decimal.Decimal   `json:"amount"`
}

func (r adjustBalanceRequest) Validate() []FieldError {
	var errs []FieldError
	switch r.Operation {
	case service.BalanceOpSet, service.BalanceOpAdd, service.BalanceOpRemove:
	default:
		errs = append(errs, FieldError{Field: "operation", Message: "must be set, add, or remove"})
	}
	if r.Amount.IsNegative() {
		errs = append(errs, FieldError{Field: "amount", Message: "must not be negative"})
	}
	return errs
}

func (h *AdminHandler) AdjustBalance(w http.ResponseWriter, r *http.Request) {
	userID, appErr := userFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req adjustBalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	bal, err := h.users.AdjustBalance(r.Context(), userID, req.Operation, req.Amount)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	logging.FromContext(r.Context()).Info("balance adjusted by admin",
		"target_user_id", userID,
		"operation", req.Operation,
		"amount", req.Amount.StringFixed(2),
	)
	RespondSuccess(w, http.StatusOK, map[string]any{"userId": userID, "balance": bal})
}

func (h *AdminHandler) ClearTransactions(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.ClearHistory(r.Context()); err != nil {
		logging.FromContext(r.Context()).Error("failed to clear transactions", "error", err)
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, map[string]bool{"cleared": true})
}

type setStatusRequest struct {
	Status string `json:"status"`
}

func (h *AdminHandler) SetTransactionStatus(w http.ResponseWriter, r *http.Request) {
	var req setStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if req.Status == "" {
		RespondValidationError(w, []FieldError{{Field: "status", Message: "required"}})
		return
	}

	out, err := h.ledger.SetStatus(r.Context(), r.PathValue("ref"), req.Status)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, confirmResponse{
		Transaction: toTransactionDTO(out.Transaction),
		Credited:    out.Credited,
		AlreadyPaid: out.Ignored,
	})
}
