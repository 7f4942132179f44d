package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWebhookSecret = "test-secret-key"

func signPayload(body, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	return hex.EncodeToString(mac.Sum(nil))
}

type notificationResponse struct {
	Success bool                `json:"success"`
	Data    webhookNotification `json:"data"`
	Error   *APIError           `json:"error"`
}

func TestVerifyHMAC(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		signature string
		secret    string
		want      bool
	}{
		{
			name:      "valid signature",
			body:      `{"transactionId":"abc"}`,
			signature: signPayload(`{"transactionId":"abc"}`, testWebhookSecret),
			secret:    testWebhookSecret,
			want:      true,
		},
		{
			name:      "wrong signature",
			body:      `{"transactionId":"abc"}`,
			signature: "deadbeef",
			secret:    testWebhookSecret,
			want:      false,
		},
		{
			name:      "empty signature",
			body:      `{"transactionId":"abc"}`,
			signature: "",
			secret:    testWebhookSecret,
			want:      false,
		},
		{
			name:      "wrong secret",
			body:      `{"transactionId":"abc"}`,
			signature: signPayload(`{"transactionId":"abc"}`, "other-secret"),
			secret:    testWebhookSecret,
			want:      false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := verifyHMAC([]byte(tc.body), tc.signature, tc.secret)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestReceivePixWebhook_Normalizes(t *testing.T) {
	tests := []struct {
		name          string
		body          string
		wantChargeID  string
		wantStatus    string
		wantAmount    string
		wantConfirmed bool
	}{
		{
			name:          "vendor field names",
			body:          `{"transactionId":"chg-1","transactionState":"COMPLETED","transactionAmount":110.5}`,
			wantChargeID:  "chg-1",
			wantStatus:    "COMPLETED",
			wantAmount:    "110.50",
			wantConfirmed: true,
		},
		{
			name:          "short field names",
			body:          `{"id":"chg-2","status":"paid","amount":"25.00"}`,
			wantChargeID:  "chg-2",
			wantStatus:    "paid",
			wantAmount:    "25.00",
			wantConfirmed: true,
		},
		{
			name:          "state field",
			body:          `{"id":"chg-3","state":"CONFIRMED","amount":10}`,
			wantChargeID:  "chg-3",
			wantStatus:    "CONFIRMED",
			wantAmount:    "10.00",
			wantConfirmed: true,
		},
		{
			name:          "confirmed without amount",
			body:          `{"id":"chg-4","status":"PAID"}`,
			wantChargeID:  "chg-4",
			wantStatus:    "PAID",
			wantConfirmed: false,
		},
		{
			name:          "pending",
			body:          `{"transactionId":"chg-5","status":"PENDING","amount":5}`,
			wantChargeID:  "chg-5",
			wantStatus:    "PENDING",
			wantAmount:    "5.00",
			wantConfirmed: false,
		},
		{
			name:          "transactionState wins over status",
			body:          `{"transactionId":"chg-6","transactionState":"PENDING","status":"PAID","amount":5}`,
			wantChargeID:  "chg-6",
			wantStatus:    "PENDING",
			wantAmount:    "5.00",
			wantConfirmed: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewWebhookHandler("")
			req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/pix", strings.NewReader(tc.body))
			rr := httptest.NewRecorder()

			h.ReceivePixWebhook(rr, req)

			require.Equal(t, http.StatusOK, rr.Code)
			var resp notificationResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.True(t, resp.Success)
			assert.Equal(t, tc.wantChargeID, resp.Data.ChargeID)
			assert.Equal(t, tc.wantStatus, resp.Data.Status)
			assert.Equal(t, tc.wantConfirmed, resp.Data.Confirmed)
			if tc.wantAmount == "" {
				assert.Nil(t, resp.Data.Amount)
			} else {
				require.NotNil(t, resp.Data.Amount)
				assert.Equal(t, tc.wantAmount, resp.Data.Amount.StringFixed(2))
			}
		})
	}
}

func TestReceivePixWebhook_Signature(t *testing.T) {
	body := `{"transactionId":"chg-1","status":"PAID","amount":10}`

	tests := []struct {
		name       string
		signature  string
		wantStatus int
		wantCode   string
	}{
		{name: "valid signature", signature: signPayload(body, testWebhookSecret), wantStatus: http.StatusOK},
		{name: "missing signature", wantStatus: http.StatusUnauthorized, wantCode: "INVALID_SIGNATURE"},
		{name: "bad signature", signature: "deadbeefdeadbeef", wantStatus: http.StatusUnauthorized, wantCode: "INVALID_SIGNATURE"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewWebhookHandler(testWebhookSecret)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/pix", strings.NewReader(body))
			if tc.signature != "" {
				req.Header.Set("X-Webhook-Signature", tc.signature)
			}
			rr := httptest.NewRecorder()

			h.ReceivePixWebhook(rr, req)

			assert.Equal(t, tc.wantStatus, rr.Code)
			var resp APIResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			if tc.wantCode == "" {
				assert.True(t, resp.Success)
			} else {
				require.NotNil(t, resp.Error)
				assert.Equal(t, tc.wantCode, resp.Error.Code)
			}
		})
	}
}

func TestReceivePixWebhook_InvalidJSON(t *testing.T) {
	h := NewWebhookHandler("")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/pix", strings.NewReader("not-json"))
	rr := httptest.NewRecorder()

	h.ReceivePixWebhook(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	var resp APIResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "WEBHOOK_ERROR", resp.Error.Code)
}

func TestWebhookStatus(t *testing.T) {
	h := NewWebhookHandler("")

	rr := httptest.NewRecorder()
	h.WebhookStatus(rr, httptest.NewRequest(http.MethodGet, "/api/v1/webhooks/pix", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	var resp APIResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "MISSING_CHARGE_ID", resp.Error.Code)

	rr = httptest.NewRecorder()
	h.WebhookStatus(rr, httptest.NewRequest(http.MethodGet, "/api/v1/webhooks/pix?chargeId=chg-1", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"PENDING"`)
}
