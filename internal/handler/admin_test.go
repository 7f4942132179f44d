package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/josh-kwaku/pix-relay/internal/domain"
	"github.com/josh-kwaku/pix-relay/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockUserAdmin struct {
	users     []domain.User
	deleted   uuid.UUID
	op        service.BalanceOp
	amount    decimal.Decimal
	adjustErr error
}

func (m *mockUserAdmin) List(context.Context) ([]domain.User, error) { return m.users, nil }

func (m *mockUserAdmin) Update(_ context.Context, id uuid.UUID, upd service.UserUpdate) (*domain.User, error) {
	u := &domain.User{ID: id, Name: "old", Role: domain.RoleUser}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.Role != nil {
		u.Role = *upd.Role
	}
	return u, nil
}

func (m *mockUserAdmin) Delete(_ context.Context, id uuid.UUID) error {
	m.deleted = id
	return nil
}

func (m *mockUserAdmin) AdjustBalance(_ context.Context, _ uuid.UUID, op service.BalanceOp, amount decimal.Decimal) (decimal.Decimal, error) {
	m.op, m.amount = op, amount
	if m.adjustErr != nil {
		return decimal.Zero, m.adjustErr
	}
	return amount, nil
}

type mockProviderAdmin struct {
	saved   domain.ProviderConfig
	saveErr error
	cleared bool
}

func (m *mockProviderAdmin) Get(context.Context) service.ProviderConfigView {
	return service.ProviderConfigView{Configured: m.saved.ClientID != ""}
}

func (m *mockProviderAdmin) Save(_ context.Context, cfg domain.ProviderConfig) (service.ProviderConfigView, error) {
	if m.saveErr != nil {
		return service.ProviderConfigView{}, m.saveErr
	}
	m.saved = cfg
	return service.ProviderConfigView{Configured: true}, nil
}

func (m *mockProviderAdmin) Clear(context.Context) error {
	m.cleared = true
	return nil
}

type mockLedgerAdmin struct {
	cleared bool
	ref     string
	status  string
}

func (m *mockLedgerAdmin) ClearHistory(context.Context) error {
	m.cleared = true
	return nil
}

func (m *mockLedgerAdmin) SetStatus(_ context.Context, ref, rawStatus string) (*domain.UpdateOutcome, error) {
	m.ref, m.status = ref, rawStatus
	if ref == "missing" {
		return nil, domain.ErrNotFound
	}
	return &domain.UpdateOutcome{
		Transaction: &domain.Transaction{ID: ref, Status: domain.StatusPaid},
		Credited:    true,
	}, nil
}

func newAdminHandler() (*AdminHandler, *mockUserAdmin, *mockProviderAdmin, *mockLedgerAdmin) {
	users := &mockUserAdmin{}
	provider := &mockProviderAdmin{}
	ledger := &mockLedgerAdmin{}
	return NewAdminHandler(users, provider, ledger), users, provider, ledger
}

func TestAdminHandler_SaveProviderConfig(t *testing.T) {
	h, _, provider, _ := newAdminHandler()

	rr := httptest.NewRecorder()
	h.SaveProviderConfig(rr, httptest.NewRequest(http.MethodPut, "/api/v1/admin/provider", strings.NewReader(`{"clientId":"ci_live_123456","clientSecret":"cs_live_123456"}`)))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ci_live_123456", provider.saved.ClientID)

	rr = httptest.NewRecorder()
	h.SaveProviderConfig(rr, httptest.NewRequest(http.MethodPut, "/api/v1/admin/provider", strings.NewReader(`{"clientId":""}`)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "VALIDATION_FAILED", decodeResponse(t, rr).Error.Code)
}

func TestAdminHandler_SaveProviderConfig_BadEndpoint(t *testing.T) {
	h, _, provider, _ := newAdminHandler()
	provider.saveErr = domain.ErrMissingEndpoint

	rr := httptest.NewRecorder()
	h.SaveProviderConfig(rr, httptest.NewRequest(http.MethodPut, "/api/v1/admin/provider", strings.NewReader(`{"clientId":"a","clientSecret":"b","endpoint":"not a url"}`)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "MISSING_ENDPOINT", decodeResponse(t, rr).Error.Code)
}

func TestAdminHandler_ListUsers(t *testing.T) {
	h, users, _, _ := newAdminHandler()
	users.users = []domain.User{
		{ID: uuid.New(), Name: "Ana", Email: "ana@example.com", Role: domain.RoleUser, Balance: decimal.RequireFromString("100")},
	}

	rr := httptest.NewRecorder()
	h.ListUsers(rr, httptest.NewRequest(http.MethodGet, "/api/v1/admin/users", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"email":"ana@example.com"`)
	assert.NotContains(t, rr.Body.String(), "passwordHash")
}

func TestAdminHandler_UpdateAndDeleteUser(t *testing.T) {
	h, users, _, _ := newAdminHandler()
	id := uuid.New()

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/admin/users/"+id.String(), strings.NewReader(`{"name":"Bia","role":"admin"}`))
	req.SetPathValue("id", id.String())
	rr := httptest.NewRecorder()
	h.UpdateUser(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"name":"Bia"`)
	assert.Contains(t, rr.Body.String(), `"role":"admin"`)

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/admin/users/"+id.String(), nil)
	req.SetPathValue("id", id.String())
	rr = httptest.NewRecorder()
	h.DeleteUser(rr, req)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, id, users.deleted)

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/admin/users/nope", nil)
	req.SetPathValue("id", "nope")
	rr = httptest.NewRecorder()
	h.DeleteUser(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAdminHandler_AdjustBalance(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name       string
		body       string
		svcErr     error
		wantStatus int
		wantCode   string
	}{
		{name: "add", body: `{"operation":"add","amount":"25.50"}`, wantStatus: http.StatusOK},
		{name: "unknown operation", body: `{"operation":"double","amount":1}`, wantStatus: http.StatusBadRequest, wantCode: "VALIDATION_FAILED"},
		{name: "negative amount", body: `{"operation":"set","amount":-1}`, wantStatus: http.StatusBadRequest, wantCode: "VALIDATION_FAILED"},
		{
			name:       "below zero",
			body:       `{"operation":"remove","amount":500}`,
			svcErr:     domain.ErrNegativeBalance,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "NEGATIVE_BALANCE",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h, users, _, _ := newAdminHandler()
			users.adjustErr = tc.svcErr

			req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/users/"+id.String()+"/balance", strings.NewReader(tc.body))
			req.SetPathValue("id", id.String())
			rr := httptest.NewRecorder()
			h.AdjustBalance(rr, req)

			assert.Equal(t, tc.wantStatus, rr.Code)
			if tc.wantCode != "" {
				assert.Equal(t, tc.wantCode, decodeResponse(t, rr).Error.Code)
				return
			}
			assert.Equal(t, service.BalanceOpAdd, users.op)
			assert.Equal(t, "25.5", users.amount.String())
		})
	}
}

func TestAdminHandler_Transactions(t *testing.T) {
	h, _, _, ledger := newAdminHandler()

	rr := httptest.NewRecorder()
	h.ClearTransactions(rr, httptest.NewRequest(http.MethodDelete, "/api/v1/admin/transactions", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, ledger.cleared)

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/admin/transactions/chg-1/status", strings.NewReader(`{"status":"PAGO"}`))
	req.SetPathValue("ref", "chg-1")
	rr = httptest.NewRecorder()
	h.SetTransactionStatus(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "PAGO", ledger.status)
	assert.Contains(t, rr.Body.String(), `"credited":true`)

	req = httptest.NewRequest(http.MethodPatch, "/api/v1/admin/transactions/missing/status", strings.NewReader(`{"status":"PAGO"}`))
	req.SetPathValue("ref", "missing")
	rr = httptest.NewRecorder()
	h.SetTransactionStatus(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	req = httptest.NewRequest(http.MethodPatch, "/api/v1/admin/transactions/chg-1/status", strings.NewReader(`{}`))
	req.SetPathValue("ref", "chg-1")
	rr = httptest.NewRecorder()
	h.SetTransactionStatus(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
