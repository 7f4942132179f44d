package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

// Pix keys containing these markers trigger the vendor's failure replies.
const (
	triggerNoBalance = "semsaldo"
	triggerBlockedIP = "bloqueado"
	triggerAcquirer  = "adquirente"
)

type charge struct {
	amount decimal.Decimal
	checks int
}

// provider imitates the vendor closely enough for the gateway client: the
// same paths, headers, field names and Portuguese error text.
type provider struct {
	completeAfter int
	blockedIP     string

	mu      sync.Mutex
	balance decimal.Decimal
	charges map[string]*charge
}

func newProvider(balance decimal.Decimal, completeAfter int, blockedIP string) *provider {
	return &provider{
		completeAfter: completeAfter,
		blockedIP:     blockedIP,
		balance:       balance,
		charges:       make(map[string]*charge),
	}
}

func (p *provider) routes() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	api := r.PathPrefix("/api/transactions").Subrouter()
	api.Use(requireCredentials)
	api.HandleFunc("/create", p.create).Methods(http.MethodPost)
	api.HandleFunc("/withdraw", p.withdraw).Methods(http.MethodPost)
	api.HandleFunc("/check", p.check).Methods(http.MethodPost)
	return r
}

func requireCredentials(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("ci") == "" || r.Header.Get("cs") == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "UNAUTHORIZED", "message": "Credenciais inválidas"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

type createRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	TransactionID string          `json:"transactionId"`
}

func (p *provider) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.Amount.IsPositive() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "BAD_REQUEST", "message": "Valor inválido"})
		return
	}

	id := uuid.NewString()
	p.mu.Lock()
	p.charges[id] = &charge{amount: req.Amount}
	p.mu.Unlock()

	slog.Info("charge created", "transaction_id", id, "reference", req.TransactionID, "amount", req.Amount.StringFixed(2))
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Cobrança criada",
		"data": map[string]any{
			"transactionId":     id,
			"transactionState":  "PENDENTE",
			"transactionAmount": req.Amount,
			"transactionFee":    decimal.Zero,
			"qrcodeUrl":         "https://mock-provider.local/qr/" + id + ".png",
			"copyPaste":         "00020126580014br.gov.bcb.pix0136" + id + "5204000053039865802BR6304ABCD",
		},
	})
}

type withdrawRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	PixKey        string          `json:"pixKey"`
	PixKeyType    string          `json:"pixKeyType"`
	TransactionID string          `json:"transactionId"`
}

func (p *provider) withdraw(w http.ResponseWriter, r *http.Request) {
	var req withdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.Amount.IsPositive() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "BAD_REQUEST", "message": "Dados inválidos"})
		return
	}

	key := strings.ToLower(req.PixKey)
	switch {
	case strings.Contains(key, triggerBlockedIP):
		writeJSON(w, http.StatusForbidden, map[string]string{
			"error":   "FORBIDDEN",
			"message": "IP não autorizado. Seu IP " + p.blockedIP + " não está na lista de IPs permitidos",
		})
		return
	case strings.Contains(key, triggerAcquirer):
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Falha de comunicação com a adquirente"})
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if strings.Contains(key, triggerNoBalance) || req.Amount.GreaterThan(p.balance) {
		short := req.Amount.Sub(p.balance)
		if !short.IsPositive() {
			short = req.Amount
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":   "INSUFFICIENT_BALANCE",
			"message": "Saldo insuficiente, faltam " + short.StringFixed(2) + " reais",
		})
		return
	}

	p.balance = p.balance.Sub(req.Amount)
	id := uuid.NewString()
	slog.Info("withdraw accepted", "transaction_id", id, "reference", req.TransactionID, "amount", req.Amount.StringFixed(2))
	writeJSON(w, http.StatusOK, map[string]any{
		"transactionId":     id,
		"transactionState":  "COMPLETO",
		"transactionAmount": req.Amount,
		"transactionFee":    decimal.Zero,
	})
}

type checkRequest struct {
	TransactionID string `json:"transactionId"`
}

// check reports COMPLETO once a charge has been checked completeAfter times.
func (p *provider) check(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TransactionID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "BAD_REQUEST", "message": "transactionId obrigatório"})
		return
	}

	p.mu.Lock()
	c, ok := p.charges[req.TransactionID]
	if ok {
		c.checks++
	}
	var state string
	var amount decimal.Decimal
	if ok {
		amount = c.amount
		state = "PENDENTE"
		if c.checks >= p.completeAfter {
			state = "COMPLETO"
		}
	}
	p.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "NOT_FOUND", "message": "Transação não encontrada"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"transaction": map[string]any{
			"transactionId":     req.TransactionID,
			"transactionState":  state,
			"transactionAmount": amount,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
