package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/josh-kwaku/pix-relay/internal/domain"
	"github.com/josh-kwaku/pix-relay/internal/logging"
)

type ProviderConfigService struct {
	repo providerConfigRepo
}

func NewProviderConfigService(repo providerConfigRepo) *ProviderConfigService {
	return &ProviderConfigService{repo: repo}
}

// ProviderConfigView is what admins see: the secret is masked and the
// placeholder state is spelled out.
type ProviderConfigView struct {
	domain.ProviderConfig
	Configured  bool `json:"configured"`
	Placeholder bool `json:"placeholder"`
}

func (s *ProviderConfigService) Get(ctx context.Context) ProviderConfigView {
	return view(s.repo.Get(ctx))
}

func (s *ProviderConfigService) Save(ctx context.Context, cfg domain.ProviderConfig) (ProviderConfigView, error) {
	cfg.ClientID = strings.TrimSpace(cfg.ClientID)
	cfg.ClientSecret = strings.TrimSpace(cfg.ClientSecret)
	cfg.Endpoint = strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")

	if !cfg.HasCredentials() {
		return ProviderConfigView{}, fmt.Errorf("Save: %w", domain.ErrMissingCredentials)
	}
	if cfg.Endpoint != "" {
		u, err := url.Parse(cfg.Endpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return ProviderConfigView{}, fmt.Errorf("Save: endpoint %q: %w", cfg.Endpoint, domain.ErrMissingEndpoint)
		}
	}

	if err := s.repo.Save(ctx, cfg); err != nil {
		return ProviderConfigView{}, fmt.Errorf("Save: %w", err)
	}

	saved := s.repo.Get(ctx)
	logging.FromContext(ctx).Info("provider config saved",
		"endpoint", saved.Endpoint,
		"placeholder", saved.LooksPlaceholder(),
	)
	return view(saved), nil
}

func (s *ProviderConfigService) Clear(ctx context.Context) error {
	if err := s.repo.Clear(ctx); err != nil {
		return fmt.Errorf("Clear: %w", err)
	}
	logging.FromContext(ctx).Info("provider config cleared")
	return nil
}

func view(cfg domain.ProviderConfig) ProviderConfigView {
	return ProviderConfigView{
		ProviderConfig: cfg.Masked(),
		Configured:     cfg.HasCredentials() && !cfg.LooksPlaceholder(),
		Placeholder:    cfg.LooksPlaceholder(),
	}
}
