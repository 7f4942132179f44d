package gateway

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/josh-kwaku/pix-relay/internal/domain"
)

type KeyType string

const (
	KeyCPF    KeyType = "cpf"
	KeyCNPJ   KeyType = "cnpj"
	KeyPhone  KeyType = "phone"
	KeyEmail  KeyType = "email"
	KeyRandom KeyType = "random"
)

var keyTypeLabels = map[KeyType]string{
	KeyCPF:    "CPF",
	KeyCNPJ:   "CNPJ",
	KeyPhone:  "Telefone",
	KeyEmail:  "E-mail",
	KeyRandom: "Chave Aleatória",
}

// ParseKeyType is case-insensitive.
func ParseKeyType(s string) (KeyType, bool) {
	kt := KeyType(strings.ToLower(strings.TrimSpace(s)))
	_, ok := keyTypeLabels[kt]
	return kt, ok
}

func (k KeyType) Label() string {
	if l, ok := keyTypeLabels[k]; ok {
		return l
	}
	return string(k)
}

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

func isRepeatedDigits(s string) bool {
	return s != "" && strings.Count(s, s[:1]) == len(s)
}

// ValidatePixKey checks the key's shape for its type before anything is sent
// to the vendor.
func ValidatePixKey(key string, keyType KeyType) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return domain.NewProviderError(domain.ErrInvalidPixKey, "Informe a chave Pix.")
	}

	digits := digitsOnly(key)
	switch keyType {
	case KeyCPF:
		if len(digits) != 11 {
			return domain.NewProviderError(domain.ErrInvalidPixKey, "CPF inválido. Deve conter 11 dígitos.")
		}
		if isRepeatedDigits(digits) {
			return domain.NewProviderError(domain.ErrInvalidPixKey, "CPF inválido. Use um CPF real.")
		}
	case KeyCNPJ:
		if len(digits) != 14 {
			return domain.NewProviderError(domain.ErrInvalidPixKey, "CNPJ inválido. Deve conter 14 dígitos.")
		}
	case KeyPhone:
		if len(digits) < 10 || len(digits) > 11 {
			return domain.NewProviderError(domain.ErrInvalidPixKey, "Telefone inválido. Deve conter 10 ou 11 dígitos.")
		}
	case KeyEmail:
		if !strings.Contains(key, "@") {
			return domain.NewProviderError(domain.ErrInvalidPixKey, "Email inválido.")
		}
	case KeyRandom:
		if len(key) != 32 {
			return domain.NewProviderError(domain.ErrInvalidPixKey, "Chave aleatória inválida. Deve conter 32 caracteres.")
		}
	default:
		return domain.NewProviderError(domain.ErrInvalidPixKey, fmt.Sprintf("Tipo de chave Pix desconhecido: %q", keyType))
	}
	return nil
}
