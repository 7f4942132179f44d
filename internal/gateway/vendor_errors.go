package gateway

import (
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/josh-kwaku/pix-relay/internal/domain"
)

// The vendor reports several failures only as Portuguese free text. All of
// that matching lives here.
var (
	shortfallRe  = regexp.MustCompile(`(?i)faltam\s+([\d.,]+)\s+reais?`)
	detectedIPRe = regexp.MustCompile(`(?i)seu IP (\d+\.\d+\.\d+\.\d+)`)
)

const (
	phraseInsufficientBalance = "saldo insuficiente"
	phraseIPNotAuthorized     = "ip não autorizado"
	phraseAcquirer            = "adquirente"
)

func vendorMessage(body map[string]any) string {
	return firstString(body, "message")
}

// classifyTransferError turns a non-2xx withdraw response into a ProviderError.
func classifyTransferError(status int, body map[string]any, raw []byte) *domain.ProviderError {
	msg := vendorMessage(body)
	lower := strings.ToLower(msg)

	pe := &domain.ProviderError{
		Kind:       domain.ErrAPI,
		StatusCode: status,
		VendorCode: firstString(body, "error"),
		Body:       truncate(string(raw), 512),
	}

	switch {
	case status == http.StatusBadRequest && strings.Contains(lower, phraseInsufficientBalance):
		pe.Kind = domain.ErrInsufficientBalance
		if m := shortfallRe.FindStringSubmatch(msg); m != nil {
			pe.Shortfall = m[1]
		}
		pe.Message = "Saldo insuficiente na conta do provedor"
		if pe.Shortfall != "" {
			pe.Message += ". Faltam R$ " + pe.Shortfall
		}
		pe.Message += ". Adicione saldo na conta do provedor."
		return pe

	case (status == http.StatusUnauthorized || status == http.StatusForbidden) && strings.Contains(lower, phraseIPNotAuthorized):
		pe.Kind = domain.ErrIPNotAuthorized
		if m := detectedIPRe.FindStringSubmatch(msg); m != nil {
			pe.DetectedIP = m[1]
		}
		pe.Message = "IP não autorizado no painel do provedor"
		if pe.DetectedIP != "" {
			pe.Message += " (" + pe.DetectedIP + ")"
		}
		pe.Message += ". Adicione este IP à lista de IPs permitidos."
		return pe

	case status == http.StatusInternalServerError:
		if pe.VendorCode == "" {
			pe.VendorCode = "SERVER_ERROR"
		}
		switch {
		case strings.Contains(lower, phraseAcquirer):
			pe.Message = "Erro no processamento do Pix. Possíveis causas: chave Pix inválida ou inexistente, conta sem saldo ou bloqueada, ou problema temporário no sistema."
		case msg != "":
			pe.Message = msg
		default:
			pe.Message = "Erro no servidor do provedor. Tente novamente mais tarde."
		}
		return pe
	}

	switch status {
	case http.StatusUnauthorized:
		pe.Message = "Credenciais inválidas. Verifique Client ID e Secret no painel admin."
	case http.StatusForbidden:
		pe.Message = "Acesso negado. Verifique as permissões e IPs autorizados no painel do provedor."
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		pe.Message = orDefault(msg, "Dados inválidos. Verifique os campos preenchidos.")
	default:
		pe.Message = orDefault(msg, "Erro ao processar transferência")
	}
	return pe
}

func classifyError(status int, body map[string]any, raw []byte, fallback string) *domain.ProviderError {
	return &domain.ProviderError{
		Kind:       domain.ErrAPI,
		Message:    orDefault(vendorMessage(body), fallback),
		StatusCode: status,
		VendorCode: firstString(body, "error"),
		Body:       truncate(string(raw), 512),
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
