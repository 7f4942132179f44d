package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/josh-kwaku/pix-relay/internal/auth"
	"github.com/josh-kwaku/pix-relay/internal/domain"
	"github.com/josh-kwaku/pix-relay/internal/handler"
	"github.com/josh-kwaku/pix-relay/internal/repository"
	"github.com/josh-kwaku/pix-relay/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "middleware-secret"

func tokenFor(t *testing.T, role domain.Role) (string, uuid.UUID) {
	t.Helper()
	u := &domain.User{ID: uuid.New(), Email: "u@test.com", Role: role}
	tok, err := auth.GenerateToken(u, testSecret, time.Hour)
	require.NoError(t, err)
	return tok, u.ID
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp handler.APIResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	return resp.Error.Code
}

func TestAuth(t *testing.T) {
	userTok, userID := tokenFor(t, domain.RoleUser)

	var seen auth.Principal
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = auth.PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	h := Auth(testSecret)(next)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantCode   string
	}{
		{name: "valid token", header: "Bearer " + userTok, wantStatus: http.StatusNoContent},
		{name: "missing header", wantStatus: http.StatusUnauthorized, wantCode: "MISSING_TOKEN"},
		{name: "no bearer prefix", header: userTok, wantStatus: http.StatusUnauthorized, wantCode: "INVALID_TOKEN"},
		{name: "garbage token", header: "Bearer abc", wantStatus: http.StatusUnauthorized, wantCode: "INVALID_TOKEN"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/balance", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			assert.Equal(t, tc.wantStatus, rr.Code)
			if tc.wantCode != "" {
				assert.Equal(t, tc.wantCode, errorCode(t, rr))
			}
		})
	}

	assert.Equal(t, userID, seen.UserID)
	assert.Equal(t, domain.RoleUser, seen.Role)
}

func TestRequireAdmin(t *testing.T) {
	userTok, _ := tokenFor(t, domain.RoleUser)
	adminTok, _ := tokenFor(t, domain.RoleAdmin)

	h := Auth(testSecret)(RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/users", nil)
	req.Header.Set("Authorization", "Bearer "+userTok)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "FORBIDDEN", errorCode(t, rr))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/admin/users", nil)
	req.Header.Set("Authorization", "Bearer "+adminTok)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestTracing(t *testing.T) {
	var got string
	h := Tracing(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = TraceIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, "abc-123", got)
	assert.Equal(t, "abc-123", rr.Header().Get("X-Request-ID"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", strings.Repeat("x", 200))
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	_, err := uuid.Parse(got)
	assert.NoError(t, err)
}

func TestRecovery(t *testing.T) {
	h := Recovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "INTERNAL_ERROR", errorCode(t, rr))
}

func TestIdempotency(t *testing.T) {
	tok, _ := tokenFor(t, domain.RoleUser)
	repo := repository.NewIdempotencyRepository(store.NewMemory())

	var calls atomic.Int32
	h := Auth(testSecret)(Idempotency(repo)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler.RespondSuccess(w, http.StatusCreated, map[string]int32{"n": calls.Load()})
	})))

	send := func(key, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/pix/transfers", strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+tok)
		if key != "" {
			req.Header.Set("Idempotency-Key", key)
		}
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	first := send("k1", `{"amount":"10"}`)
	require.Equal(t, http.StatusCreated, first.Code)

	replay := send("k1", `{"amount":"10"}`)
	assert.Equal(t, http.StatusCreated, replay.Code)
	assert.Equal(t, "true", replay.Header().Get("X-Idempotent-Replayed"))
	assert.Equal(t, first.Body.String(), replay.Body.String())
	assert.Equal(t, int32(1), calls.Load())

	conflict := send("k1", `{"amount":"20"}`)
	assert.Equal(t, http.StatusConflict, conflict.Code)
	assert.Equal(t, "IDEMPOTENCY_CONFLICT", errorCode(t, conflict))

	send("", `{"amount":"10"}`)
	send("", `{"amount":"10"}`)
	assert.Equal(t, int32(3), calls.Load())
}

func TestIdempotency_ServerErrorsNotCached(t *testing.T) {
	tok, _ := tokenFor(t, domain.RoleUser)
	repo := repository.NewIdempotencyRepository(store.NewMemory())

	var calls atomic.Int32
	h := Auth(testSecret)(Idempotency(repo)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler.RespondAppError(w, handler.ErrProviderTimeout, nil)
	})))

	for range 2 {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/pix/transfers", strings.NewReader(`{}`))
		req.Header.Set("Authorization", "Bearer "+tok)
		req.Header.Set("Idempotency-Key", "retry-me")
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
	assert.Equal(t, int32(2), calls.Load())
}

func TestIdempotency_ConcurrentResendRejected(t *testing.T) {
	tok, _ := tokenFor(t, domain.RoleUser)
	repo := repository.NewIdempotencyRepository(store.NewMemory())

	entered := make(chan struct{})
	release := make(chan struct{})
	h := Auth(testSecret)(Idempotency(repo)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
		handler.RespondSuccess(w, http.StatusCreated, nil)
	})))

	newReq := func() *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/pix/transfers", strings.NewReader(`{"amount":"10"}`))
		req.Header.Set("Authorization", "Bearer "+tok)
		req.Header.Set("Idempotency-Key", "slow")
		return req
	}

	done := make(chan *httptest.ResponseRecorder)
	go func() {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, newReq())
		done <- rr
	}()
	<-entered

	second := httptest.NewRecorder()
	h.ServeHTTP(second, newReq())
	assert.Equal(t, http.StatusConflict, second.Code)
	assert.Equal(t, "IDEMPOTENCY_IN_PROGRESS", errorCode(t, second))

	close(release)
	first := <-done
	assert.Equal(t, http.StatusCreated, first.Code)

	third := httptest.NewRecorder()
	h.ServeHTTP(third, newReq())
	assert.Equal(t, "true", third.Header().Get("X-Idempotent-Replayed"))
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	assert.Equal(t, "10.1.2.3", clientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", clientIP(req))
}
