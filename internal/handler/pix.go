package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/josh-kwaku/pix-relay/internal/domain"
	"github.com/josh-kwaku/pix-relay/internal/gateway"
	"github.com/josh-kwaku/pix-relay/internal/logging"
	"github.com/josh-kwaku/pix-relay/internal/reconciler"
	"github.com/josh-kwaku/pix-relay/internal/service"
	"github.com/shopspring/decimal"
)

type pixService interface {
	Transfer(ctx context.Context, userID uuid.UUID, req service.TransferRequest) (*service.TransferResult, error)
	Receive(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*service.ChargeResult, error)
	RegenerateCharge(ctx context.Context, userID uuid.UUID, transferRef string) (*service.ChargeResult, error)
	ConfirmReceived(ctx context.Context, ref string) (*domain.UpdateOutcome, error)
	StopPolling(ref string) bool
	PollingState(ref string) (reconciler.Snapshot, bool)
	History(ctx context.Context) ([]service.HistoryEntry, error)
	Balance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
}

type statusChecker interface {
	CheckStatus(ctx context.Context, transactionID string) (*gateway.Status, error)
}

type PixHandler struct {
	pix     pixService
	checker statusChecker
}

func NewPixHandler(pix pixService, checker statusChecker) *PixHandler {
	return &PixHandler{pix: pix, checker: checker}
}

type transferRequest struct {
	PixKey  string          `json:"pixKey"`
	PixType string          `json:"pixType"`
	Amount  decimal.Decimal `json:"amount"`
}

func (r transferRequest) Validate() []FieldError {
	var errs []FieldError
	if strings.TrimSpace(r.PixKey) == "" {
		errs = append(errs, FieldError{Field: "pixKey", Message: "required"})
	}
	if r.PixType == "" {
		errs = append(errs, FieldError{Field: "pixType", Message: "required"})
	}
	if !r.Amount.IsPositive() {
		errs = append(errs, FieldError{Field: "amount", Message: "must be greater than 0"})
	}
	return errs
}

type chargeRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type transactionDTO struct {
	ID             string           `json:"id"`
	Date           string           `json:"date"`
	PixKey         string           `json:"pixKey"`
	PixType        string           `json:"pixType"`
	Amount         decimal.Decimal  `json:"amount"`
	Status         domain.TxStatus  `json:"status"`
	ProviderStatus string           `json:"providerStatus,omitempty"`
	ChargeID       string           `json:"chargeId,omitempty"`
	Fee            *decimal.Decimal `json:"fee,omitempty"`
	Kind           domain.TxKind    `json:"type,omitempty"`
	DueDate        *time.Time       `json:"dueDate,omitempty"`
	Overdue        bool             `json:"overdue"`
}

func toTransactionDTO(tx *domain.Transaction) transactionDTO {
	return transactionDTO{
		ID:             tx.ID,
		Date:           tx.Date,
		PixKey:         tx.PixKey,
		PixType:        tx.PixType,
		Amount:         tx.Amount,
		Status:         tx.Status,
		ProviderStatus: tx.ProviderStatus,
		ChargeID:       tx.ChargeID,
		Fee:            tx.Fee,
		Kind:           tx.Kind,
	}
}

func toHistoryDTO(e service.HistoryEntry) transactionDTO {
	dto := toTransactionDTO(&e.Transaction)
	dto.Status = e.DisplayStatus
	dto.Overdue = e.Overdue
	if !e.DueDate.IsZero() {
		due := e.DueDate
		dto.DueDate = &due
	}
	return dto
}

type transferResponse struct {
	Transaction transactionDTO  `json:"transaction"`
	VendorID    string          `json:"vendorId"`
	Balance     decimal.Decimal `json:"balance"`
}

type chargeResponse struct {
	ChargeID    string           `json:"chargeId"`
	QRCode      string           `json:"qrCode"`
	CopyPaste   string           `json:"copyPaste"`
	Amount      decimal.Decimal  `json:"amount"`
	Credit      decimal.Decimal  `json:"credit"`
	FeeRate     *decimal.Decimal `json:"feeRate,omitempty"`
	Fee         *decimal.Decimal `json:"fee,omitempty"`
	Overdue     bool             `json:"overdue"`
	Transaction transactionDTO   `json:"transaction"`
}

func toChargeResponse(res *service.ChargeResult) chargeResponse {
	out := chargeResponse{
		ChargeID:    res.ChargeID,
		QRCode:      res.QRCode,
		CopyPaste:   res.CopyPaste,
		Amount:      res.ChargeTotal,
		Credit:      res.Credit,
		Transaction: toTransactionDTO(res.Transaction),
	}
	if q := res.Quote; q != nil {
		out.FeeRate = &q.FeeRate
		out.Fee = &q.Fee
		out.Overdue = q.Overdue
	}
	return out
}

func (h *PixHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	userID, appErr := callerID(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	res, err := h.pix.Transfer(r.Context(), userID, service.TransferRequest{
		PixKey:  req.PixKey,
		PixType: req.PixType,
		Amount:  req.Amount,
	})
	if err != nil {
		logging.FromContext(r.Context()).Warn("transfer failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, transferResponse{
		Transaction: toTransactionDTO(res.Transaction),
		VendorID:    res.VendorID,
		Balance:     res.Balance,
	})
}

func (h *PixHandler) CreateCharge(w http.ResponseWriter, r *http.Request) {
	userID, appErr := callerID(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req chargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if !req.Amount.IsPositive() {
		RespondValidationError(w, []FieldError{{Field: "amount", Message: "must be greater than 0"}})
		return
	}

	res, err := h.pix.Receive(r.Context(), userID, req.Amount)
	if err != nil {
		logging.FromContext(r.Context()).Warn("charge creation failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toChargeResponse(res))
}

func (h *PixHandler) RegenerateCharge(w http.ResponseWriter, r *http.Request) {
	userID, appErr := callerID(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	res, err := h.pix.RegenerateCharge(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		logging.FromContext(r.Context()).Warn("charge regeneration failed", "transaction_id", r.PathValue("id"), "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toChargeResponse(res))
}

type confirmResponse struct {
	Transaction transactionDTO `json:"transaction"`
	Credited    bool           `json:"credited"`
	AlreadyPaid bool           `json:"alreadyPaid"`
}

func (h *PixHandler) ConfirmReceived(w http.ResponseWriter, r *http.Request) {
	ref := r.PathValue("ref")

	out, err := h.pix.ConfirmReceived(r.Context(), ref)
	if err != nil {
		logging.FromContext(r.Context()).Warn("manual confirmation failed", "ref", ref, "error", err)
		RespondDomainError(w, err)
		return
	}

	resp := confirmResponse{Credited: out.Credited, AlreadyPaid: out.Ignored}
	if out.Transaction != nil {
		resp.Transaction = toTransactionDTO(out.Transaction)
	}
	RespondSuccess(w, http.StatusOK, resp)
}

func (h *PixHandler) PollingState(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.pix.PollingState(r.PathValue("ref"))
	if !ok {
		RespondAppError(w, ErrPollingNotFound, nil)
		return
	}
	RespondSuccess(w, http.StatusOK, snap)
}

// StopPolling is sent when the charge view is closed.
func (h *PixHandler) StopPolling(w http.ResponseWriter, r *http.Request) {
	ref := r.PathValue("ref")
	stopped := h.pix.StopPolling(ref)
	RespondSuccess(w, http.StatusOK, map[string]any{"ref": ref, "stopped": stopped})
}

type chargeStatusResponse struct {
	ChargeID string `json:"chargeId"`
	Status   string `json:"status"`
	Paid     bool   `json:"paid"`
	Message  string `json:"message"`
}

// ChargeStatus asks the vendor once, without touching the ledger.
func (h *PixHandler) ChargeStatus(w http.ResponseWriter, r *http.Request) {
	ref := r.PathValue("ref")

	st, err := h.checker.CheckStatus(r.Context(), ref)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	msg := "Aguardando pagamento"
	if st.Paid {
		msg = "Pagamento confirmado"
	}
	RespondSuccess(w, http.StatusOK, chargeStatusResponse{ChargeID: ref, Status: st.State, Paid: st.Paid, Message: msg})
}

func (h *PixHandler) History(w http.ResponseWriter, r *http.Request) {
	entries, err := h.pix.History(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to list transactions", "error", err)
		RespondDomainError(w, err)
		return
	}

	out := make([]transactionDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, toHistoryDTO(e))
	}
	RespondSuccess(w, http.StatusOK, out)
}

func (h *PixHandler) Balance(w http.ResponseWriter, r *http.Request) {
	userID, appErr := callerID(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	bal, err := h.pix.Balance(r.Context(), userID)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to get balance", "error", err)
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, map[string]decimal.Decimal{"balance": bal})
}
