package handler

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	store   pinger
	backend string
}

func NewHealthHandler(store pinger, backend string) *HealthHandler {
	return &HealthHandler{store: store, backend: backend}
}

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	RespondJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"version":   "1.0.0",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	storeStatus := "ok"
	httpStatus := http.StatusOK

	if err := h.store.Ping(r.Context()); err != nil {
		slog.Warn("readiness check failed: store unreachable", "backend", h.backend, "error", err)
		storeStatus = "down"
		httpStatus = http.StatusServiceUnavailable
	}

	overallStatus := "ok"
	if httpStatus != http.StatusOK {
		overallStatus = "down"
	}

	RespondJSON(w, httpStatus, map[string]any{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks": map[string]string{
			"store": storeStatus,
		},
		"backend": h.backend,
	})
}

type serverIPResponse struct {
	IP       *string `json:"ip"`
	Message  string  `json:"message"`
	IsFixed  bool    `json:"isFixed"`
	IsPublic bool    `json:"isPublic"`
}

// ServerIP reports the outbound IP admins must allow-list at the vendor.
func ServerIP(fixedIP string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if fixedIP == "" {
			RespondSuccess(w, http.StatusOK, serverIPResponse{
				Message: "IP não configurado. Configure via variáveis de ambiente.",
			})
			return
		}
		ip := fixedIP
		parsed := net.ParseIP(ip)
		RespondSuccess(w, http.StatusOK, serverIPResponse{
			IP:       &ip,
			Message:  "IP fixo configurado",
			IsFixed:  true,
			IsPublic: parsed != nil && !parsed.IsPrivate() && !parsed.IsLoopback(),
		})
	}
}
