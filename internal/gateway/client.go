package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/josh-kwaku/pix-relay/internal/domain"
	"github.com/josh-kwaku/pix-relay/internal/logging"
	"github.com/shopspring/decimal"
)

const (
	pathCreate   = "/api/transactions/create"
	pathWithdraw = "/api/transactions/withdraw"
	pathCheck    = "/api/transactions/check"

	maxResponseBytes = 1 << 20
)

type credentialSource interface {
	Get(ctx context.Context) domain.ProviderConfig
}

type Charge struct {
	QRCode    string
	CopyPaste string
	ChargeID  string
	Reference string
	Fee       decimal.Decimal
	Amount    decimal.Decimal
	State     string
}

type Transfer struct {
	TransactionID string
	Fee           decimal.Decimal
	Amount        decimal.Decimal
}

type Status struct {
	State string
	Paid  bool
	Raw   map[string]any
}

// Client talks to the payment vendor. Every call is a single request with no
// retry; only transfers carry their own deadline.
type Client struct {
	creds           credentialSource
	httpClient      *http.Client
	defaultEndpoint string
	transferTimeout time.Duration
}

func NewClient(creds credentialSource, defaultEndpoint string, transferTimeout time.Duration) *Client {
	if defaultEndpoint == "" {
		defaultEndpoint = domain.DefaultProviderEndpoint
	}
	return &Client{
		creds:           creds,
		httpClient:      &http.Client{},
		defaultEndpoint: defaultEndpoint,
		transferTimeout: transferTimeout,
	}
}

func newReference(prefix string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixMilli(), suffix)
}

type chargePayload struct {
	Amount        json.Number `json:"amount"`
	PayerName     string      `json:"payerName"`
	PayerDocument string      `json:"payerDocument"`
	TransactionID string      `json:"transactionId"`
	Description   string      `json:"description"`
}

func (c *Client) CreateCharge(ctx context.Context, amount decimal.Decimal) (*Charge, error) {
	cfg := c.creds.Get(ctx)
	if !cfg.HasCredentials() {
		return nil, fmt.Errorf("CreateCharge: %w", domain.NewProviderError(domain.ErrMissingCredentials, "Credenciais da API não configuradas"))
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("CreateCharge: %w", domain.NewProviderError(domain.ErrInvalidAmount, "Valor inválido"))
	}

	ref := newReference("CHG")
	payload := chargePayload{
		Amount:        json.Number(amount.String()),
		PayerName:     "Cliente PixFácil",
		PayerDocument: "000.000.000-00",
		TransactionID: ref,
		Description:   "Recebimento via PixFácil - R$ " + amount.StringFixed(2),
	}

	status, raw, err := c.post(ctx, cfg, c.endpoint(cfg), pathCreate, payload)
	if err != nil {
		return nil, fmt.Errorf("CreateCharge: %w", err)
	}

	body, err := decodeObject(raw)
	if err != nil {
		return nil, fmt.Errorf("CreateCharge: %w", invalidResponse(status, raw))
	}
	if !isSuccess(status) {
		return nil, fmt.Errorf("CreateCharge: %w", classifyError(status, body, raw, "Erro ao gerar cobrança Pix"))
	}

	nested := object(body, "data")
	qr := firstString(body, "qrcodeUrl", "qrCodeUrl", "qrcode", "qrCode")
	if qr == "" {
		qr = firstString(nested, "qrcodeUrl", "qrCode")
	}
	copyPaste := firstString(body, "copyPaste", "copy_paste", "pixCopyPaste")
	if copyPaste == "" {
		copyPaste = firstString(nested, "copyPaste", "pixCopyPaste")
	}
	if qr == "" || copyPaste == "" {
		return nil, fmt.Errorf("CreateCharge: %w", &domain.ProviderError{
			Kind:       domain.ErrIncompleteResponse,
			Message:    "API retornou dados incompletos (faltam QR Code ou código Pix)",
			StatusCode: status,
			Body:       truncate(string(raw), 512),
		})
	}

	charge := &Charge{
		QRCode:    qr,
		CopyPaste: copyPaste,
		ChargeID:  orDefault(firstString(body, "transactionId"), orDefault(firstString(nested, "transactionId"), ref)),
		Reference: ref,
		State:     orDefault(firstString(body, "transactionState"), firstString(nested, "transactionState")),
	}
	if fee, ok := firstDecimal(body, "transactionFee"); ok {
		charge.Fee = fee
	} else if fee, ok := firstDecimal(nested, "transactionFee"); ok {
		charge.Fee = fee
	}
	if amt, ok := firstDecimal(body, "transactionAmount"); ok {
		charge.Amount = amt
	} else if amt, ok := firstDecimal(nested, "transactionAmount"); ok {
		charge.Amount = amt
	}
	return charge, nil
}

type transferPayload struct {
	Amount        json.Number `json:"amount"`
	PixKey        string      `json:"pixKey"`
	PixKeyType    string      `json:"pixKeyType"`
	TransactionID string      `json:"transactionId"`
	Description   string      `json:"description"`
}

func (c *Client) CreateTransfer(ctx context.Context, pixKey string, keyType KeyType, amount decimal.Decimal) (*Transfer, error) {
	cfg := c.creds.Get(ctx)
	if !cfg.HasCredentials() {
		return nil, fmt.Errorf("CreateTransfer: %w", domain.NewProviderError(domain.ErrMissingCredentials, "Configure Client ID e Client Secret no painel admin"))
	}
	if cfg.LooksPlaceholder() {
		return nil, fmt.Errorf("CreateTransfer: %w", domain.NewProviderError(domain.ErrInvalidCredentials, "Configure credenciais reais no painel admin. As credenciais padrão são apenas placeholders."))
	}
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, fmt.Errorf("CreateTransfer: %w", domain.NewProviderError(domain.ErrMissingEndpoint, "Endpoint não configurado"))
	}
	if err := ValidatePixKey(pixKey, keyType); err != nil {
		return nil, fmt.Errorf("CreateTransfer: %w", err)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("CreateTransfer: %w", domain.NewProviderError(domain.ErrInvalidAmount, "Valor inválido"))
	}

	ref := newReference("TRF")
	payload := transferPayload{
		Amount:        json.Number(amount.String()),
		PixKey:        strings.TrimSpace(pixKey),
		PixKeyType:    strings.ToLower(string(keyType)),
		TransactionID: ref,
		Description:   "Transferência Pix - R$ " + amount.StringFixed(2),
	}

	tctx := ctx
	if c.transferTimeout > 0 {
		var cancel context.CancelFunc
		tctx, cancel = context.WithTimeout(ctx, c.transferTimeout)
		defer cancel()
	}

	status, raw, err := c.post(tctx, cfg, strings.TrimSpace(cfg.Endpoint), pathWithdraw, payload)
	if err != nil {
		return nil, fmt.Errorf("CreateTransfer: %w", err)
	}

	body, err := decodeObject(raw)
	if err != nil {
		return nil, fmt.Errorf("CreateTransfer: %w", invalidResponse(status, raw))
	}
	if !isSuccess(status) {
		return nil, fmt.Errorf("CreateTransfer: %w", classifyTransferError(status, body, raw))
	}

	t := &Transfer{
		TransactionID: orDefault(firstString(body, "transactionId", "id"), ref),
		Amount:        amount,
	}
	if fee, ok := firstDecimal(body, "transactionFee", "fee"); ok {
		t.Fee = fee
	}
	if amt, ok := firstDecimal(body, "transactionAmount", "amount"); ok {
		t.Amount = amt
	}
	return t, nil
}

// CheckStatus reports the vendor state of a charge. Paid is true only for the
// vendor's completed tokens.
func (c *Client) CheckStatus(ctx context.Context, transactionID string) (*Status, error) {
	cfg := c.creds.Get(ctx)
	if !cfg.HasCredentials() {
		return nil, fmt.Errorf("CheckStatus: %w", domain.NewProviderError(domain.ErrMissingCredentials, "Credenciais da API não configuradas"))
	}
	if strings.TrimSpace(transactionID) == "" {
		return nil, fmt.Errorf("CheckStatus: %w", domain.NewProviderError(domain.ErrMissingTransactionID, "ID da transação não fornecido"))
	}

	status, raw, err := c.post(ctx, cfg, c.endpoint(cfg), pathCheck, map[string]string{"transactionId": transactionID})
	if err != nil {
		return nil, fmt.Errorf("CheckStatus: %w", err)
	}
	if !isSuccess(status) {
		return nil, fmt.Errorf("CheckStatus: %w", &domain.ProviderError{
			Kind:       domain.ErrAPI,
			Message:    fmt.Sprintf("Erro ao verificar status: %d", status),
			StatusCode: status,
			Body:       truncate(string(raw), 512),
		})
	}

	body, err := decodeObject(raw)
	if err != nil {
		return nil, fmt.Errorf("CheckStatus: %w", invalidResponse(status, raw))
	}

	tx := object(body, "transaction")
	if tx == nil {
		tx = body
	}
	state := firstString(tx, "transactionState", "status")
	return &Status{
		State: state,
		Paid:  isPaidState(tx),
		Raw:   tx,
	}, nil
}

func isPaidState(tx map[string]any) bool {
	for _, key := range []string{"transactionState", "status"} {
		switch firstString(tx, key) {
		case "COMPLETO", "PAID":
			return true
		}
	}
	paid, _ := tx["paid"].(bool)
	return paid
}

func (c *Client) endpoint(cfg domain.ProviderConfig) string {
	if ep := strings.TrimSpace(cfg.Endpoint); ep != "" {
		return ep
	}
	return c.defaultEndpoint
}

func (c *Client) post(ctx context.Context, cfg domain.ProviderConfig, endpoint, path string, payload any) (int, []byte, error) {
	log := logging.FromContext(ctx)

	body, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("marshal: %w", err)
	}

	url := strings.TrimRight(endpoint, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, domain.NewProviderError(domain.ErrNetwork, "Erro de conexão com a API: "+err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("ci", strings.TrimSpace(cfg.ClientID))
	req.Header.Set("cs", strings.TrimSpace(cfg.ClientSecret))

	start := time.Now()
	log.Info("provider request sent", "provider", "misticpay", "path", path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return 0, nil, domain.NewProviderError(domain.ErrTimeout, "A API demorou muito para responder")
		}
		return 0, nil, domain.NewProviderError(domain.ErrNetwork, "Erro de conexão com a API: "+err.Error())
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return 0, nil, domain.NewProviderError(domain.ErrTimeout, "A API demorou muito para responder")
		}
		return 0, nil, domain.NewProviderError(domain.ErrNetwork, "Erro ao ler resposta da API: "+err.Error())
	}

	log.Info("provider response received",
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return resp.StatusCode, raw, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

func invalidResponse(status int, raw []byte) *domain.ProviderError {
	return &domain.ProviderError{
		Kind:       domain.ErrInvalidResponse,
		Message:    "Resposta inválida da API. Verifique as credenciais.",
		StatusCode: status,
		Body:       truncate(string(raw), 512),
	}
}

func decodeObject(raw []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]any{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}

func object(m map[string]any, key string) map[string]any {
	if m == nil {
		return nil
	}
	o, _ := m[key].(map[string]any)
	return o
}

// firstString returns the first non-empty value among keys. Numbers are
// rendered as their literal text.
func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case json.Number:
			return v.String()
		}
	}
	return ""
}

// firstDecimal skips zero values, matching the vendor's habit of sending 0
// for fields it did not fill.
func firstDecimal(m map[string]any, keys ...string) (decimal.Decimal, bool) {
	for _, k := range keys {
		var s string
		switch v := m[k].(type) {
		case json.Number:
			s = v.String()
		case string:
			s = v
		default:
			continue
		}
		d, err := decimal.NewFromString(s)
		if err != nil || d.IsZero() {
			continue
		}
		return d, true
	}
	return decimal.Zero, false
}
