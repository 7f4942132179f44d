package domain

import "strings"

const (
	PlaceholderClientID     = "seu-client-id-aqui"
	PlaceholderClientSecret = "seu-client-secret-aqui"
	DefaultProviderEndpoint = "https://api.misticpay.com"
)

// ProviderConfig holds the vendor credentials edited by admins.
type ProviderConfig struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
	Endpoint     string `json:"endpoint"`
}

func DefaultProviderConfig(endpoint string) ProviderConfig {
	if endpoint == "" {
		endpoint = DefaultProviderEndpoint
	}
	return ProviderConfig{
		ClientID:     PlaceholderClientID,
		ClientSecret: PlaceholderClientSecret,
		Endpoint:     endpoint,
	}
}

func (c ProviderConfig) HasCredentials() bool {
	return strings.TrimSpace(c.ClientID) != "" && strings.TrimSpace(c.ClientSecret) != ""
}

// LooksPlaceholder reports whether either credential is still a template value
// or too short to be real.
func (c ProviderConfig) LooksPlaceholder() bool {
	for _, v := range []string{c.ClientID, c.ClientSecret} {
		if strings.Contains(v, "seu-client") || strings.Contains(v, "aqui") || len(v) < 10 {
			return true
		}
	}
	return false
}

// Masked returns a copy safe to show in admin views.
func (c ProviderConfig) Masked() ProviderConfig {
	out := c
	if len(c.ClientSecret) > 4 {
		out.ClientSecret = strings.Repeat("*", len(c.ClientSecret)-4) + c.ClientSecret[len(c.ClientSecret)-4:]
	} else if c.ClientSecret != "" {
		out.ClientSecret = "****"
	}
	return out
}
