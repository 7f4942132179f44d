package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/josh-kwaku/pix-relay/internal/logging"
	"github.com/shopspring/decimal"
)

// WebhookHandler accepts vendor push notifications. It normalizes and echoes
// them; the ledger is settled by polling and manual confirmation only.
type WebhookHandler struct {
	secret string
}

func NewWebhookHandler(secret string) *WebhookHandler {
	return &WebhookHandler{secret: secret}
}

// webhookPayload lists every field name the vendor has been seen to use.
type webhookPayload struct {
	TransactionID     string          `json:"transactionId"`
	ID                string          `json:"id"`
	TransactionState  string          `json:"transactionState"`
	Status            string          `json:"status"`
	State             string          `json:"state"`
	TransactionAmount json.RawMessage `json:"transactionAmount"`
	Amount            json.RawMessage `json:"amount"`
}

type webhookNotification struct {
	ChargeID  string           `json:"chargeId"`
	Amount    *decimal.Decimal `json:"amount"`
	Status    string           `json:"status"`
	Confirmed bool             `json:"confirmed"`
	Message   string           `json:"message"`
}

var confirmedWebhookStates = map[string]bool{
	"confirmed": true,
	"completed": true,
	"paid":      true,
}

func (p webhookPayload) normalize() webhookNotification {
	n := webhookNotification{
		ChargeID: firstNonEmpty(p.TransactionID, p.ID),
		Status:   firstNonEmpty(p.TransactionState, p.Status, p.State),
	}
	for _, raw := range []json.RawMessage{p.TransactionAmount, p.Amount} {
		if amt, ok := parseAmount(raw); ok {
			n.Amount = &amt
			break
		}
	}

	n.Confirmed = confirmedWebhookStates[strings.ToLower(n.Status)] && n.Amount != nil
	if n.Confirmed {
		n.Message = "Pagamento processado com sucesso"
	} else {
		n.Message = "Webhook recebido, aguardando confirmação"
	}
	return n
}

// parseAmount accepts numbers and numeric strings. Zero counts as absent.
func parseAmount(raw json.RawMessage) (decimal.Decimal, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return decimal.Zero, false
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(raw); err != nil || d.IsZero() {
		return decimal.Zero, false
	}
	return d, true
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func (h *WebhookHandler) ReceivePixWebhook(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		log.Error("failed to read webhook body", "error", err)
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if h.secret != "" {
		sig := r.Header.Get("X-Webhook-Signature")
		if !verifyHMAC(body, sig, h.secret) {
			log.Warn("webhook signature verification failed")
			RespondAppError(w, ErrInvalidSignature, nil)
			return
		}
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Warn("failed to parse webhook payload", "error", err)
		RespondAppError(w, ErrWebhook, nil)
		return
	}

	n := payload.normalize()
	log.Info("pix webhook received",
		"charge_id", n.ChargeID,
		"status", n.Status,
		"confirmed", n.Confirmed,
	)

	RespondSuccess(w, http.StatusOK, n)
}

// WebhookStatus answers status lookups on the webhook route. Live status is
// only available through polling, so a known id always reads PENDING.
func (h *WebhookHandler) WebhookStatus(w http.ResponseWriter, r *http.Request) {
	chargeID := r.URL.Query().Get("chargeId")
	if chargeID == "" {
		RespondAppError(w, ErrMissingChargeID, nil)
		return
	}

	RespondSuccess(w, http.StatusOK, map[string]string{
		"chargeId": chargeID,
		"status":   "PENDING",
		"message":  "Consulta de status não implementada. Use o webhook para receber notificações.",
	})
}

func verifyHMAC(body []byte, signature, secret string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
