package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrMissingToken       = &AppError{http.StatusUnauthorized, "MISSING_TOKEN", "Authorization header required"}
	ErrInvalidToken       = &AppError{http.StatusUnauthorized, "INVALID_TOKEN", "Token is invalid or expired"}
	ErrInvalidCredentials = &AppError{http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password"}
	ErrForbidden          = &AppError{http.StatusForbidden, "FORBIDDEN", "Admin access required"}
	ErrInvalidRequest     = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body"}
	ErrValidationFailed   = &AppError{http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed"}
	ErrResourceNotFound   = &AppError{http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found"}
	ErrInternalError      = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}

	ErrInsufficientFunds = &AppError{http.StatusUnprocessableEntity, "INSUFFICIENT_FUNDS", "Saldo insuficiente"}
	ErrNegativeBalance   = &AppError{http.StatusUnprocessableEntity, "NEGATIVE_BALANCE", "O saldo não pode ficar negativo"}
	ErrEmailTaken        = &AppError{http.StatusConflict, "EMAIL_TAKEN", "Este email já está cadastrado"}
	ErrNotTransfer       = &AppError{http.StatusUnprocessableEntity, "NOT_A_TRANSFER", "Apenas transferências podem gerar cobrança"}
	ErrPollingNotFound   = &AppError{http.StatusNotFound, "POLLING_NOT_FOUND", "Nenhuma verificação ativa para esta cobrança"}
	ErrMissingChargeID   = &AppError{http.StatusBadRequest, "MISSING_CHARGE_ID", "chargeId é obrigatório"}
	ErrInvalidSignature  = &AppError{http.StatusUnauthorized, "INVALID_SIGNATURE", "Webhook signature is invalid"}

	ErrIdempotencyConflict   = &AppError{http.StatusConflict, "IDEMPOTENCY_CONFLICT", "Idempotency key already used with a different request"}
	ErrIdempotencyInFlight   = &AppError{http.StatusConflict, "IDEMPOTENCY_IN_PROGRESS", "A request with this Idempotency-Key is still being processed"}
	ErrInvalidIdempotencyKey = &AppError{http.StatusBadRequest, "INVALID_IDEMPOTENCY_KEY", "Idempotency-Key header is too long"}

	ErrMissingCredentials   = &AppError{http.StatusBadRequest, "MISSING_CREDENTIALS", "Credenciais da API não configuradas"}
	ErrProviderCredentials  = &AppError{http.StatusBadRequest, "INVALID_PROVIDER_CREDENTIALS", "Credenciais da API inválidas"}
	ErrMissingEndpoint      = &AppError{http.StatusBadRequest, "MISSING_ENDPOINT", "Endpoint da API não configurado"}
	ErrInvalidPixKey        = &AppError{http.StatusBadRequest, "INVALID_PIX_KEY", "Chave Pix inválida"}
	ErrInvalidAmount        = &AppError{http.StatusBadRequest, "INVALID_AMOUNT", "O valor deve ser maior que zero"}
	ErrMissingTransactionID = &AppError{http.StatusBadRequest, "MISSING_TRANSACTION_ID", "ID da transação não fornecido"}
	ErrProviderTimeout      = &AppError{http.StatusGatewayTimeout, "TIMEOUT", "A operadora demorou demais para responder"}
	ErrProviderNetwork      = &AppError{http.StatusBadGateway, "NETWORK_ERROR", "Não foi possível conectar à operadora"}
	ErrProviderBalance      = &AppError{http.StatusUnprocessableEntity, "INSUFFICIENT_BALANCE", "Saldo insuficiente na conta da operadora"}
	ErrIPNotAuthorized      = &AppError{http.StatusForbidden, "IP_NOT_AUTHORIZED", "IP do servidor não autorizado pela operadora"}
	ErrProviderAPI          = &AppError{http.StatusBadGateway, "API_ERROR", "Erro na API da operadora"}
	ErrIncompleteResponse   = &AppError{http.StatusBadGateway, "INCOMPLETE_RESPONSE", "Resposta da operadora sem QR Code"}
	ErrInvalidResponse      = &AppError{http.StatusBadGateway, "INVALID_RESPONSE", "Resposta da operadora inválida"}
	ErrWebhook              = &AppError{http.StatusBadRequest, "WEBHOOK_ERROR", "Erro ao processar webhook"}
)
