package oidc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/benvon/crux-journal/internal/models"
)

// DefaultProviderName is the identity provider used when none is configured
const DefaultProviderName = "cognito"

// ConfigStore reads identity provider settings
type ConfigStore interface {
	GetByProvider(ctx context.Context, provider string) (*models.OIDCConfig, error)
}

// Provider resolves the configured identity provider's settings and endpoints
type Provider struct {
	store      ConfigStore
	name       string
	httpClient *http.Client
}

// NewProvider creates a provider for the named identity provider
func NewProvider(store ConfigStore, name string) *Provider {
	if name == "" {
		name = DefaultProviderName
	}
	return &Provider{
		store:      store,
		name:       name,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// Name returns the identity provider name
func (p *Provider) Name() string {
	return p.name
}

// GetConfig retrieves the stored provider configuration
func (p *Provider) GetConfig(ctx context.Context) (*models.OIDCConfig, error) {
	config, err := p.store.GetByProvider(ctx, p.name)
	if err != nil {
		return nil, fmt.Errorf("failed to get OIDC config for %s: %w", p.name, err)
	}
	return config, nil
}

// LoginConfig contains OIDC login configuration for frontend
type LoginConfig struct {
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	ClientID              string `json:"client_id"`
	RedirectURI           string `json:"redirect_uri"`
	Scope                 string `json:"scope"`
}

// GetLoginConfig returns the configuration needed for frontend OIDC login
func (p *Provider) GetLoginConfig(ctx context.Context) (*LoginConfig, error) {
	config, err := p.GetConfig(ctx)
	if err != nil {
		return nil, err
	}

	authEndpoint, tokenEndpoint := p.endpoints(ctx, config)
	return &LoginConfig{
		AuthorizationEndpoint: authEndpoint,
		TokenEndpoint:         tokenEndpoint,
		ClientID:              config.ClientID,
		RedirectURI:           config.RedirectURI,
		Scope:                 strings.Join(defaultScopes, " "),
	}, nil
}

// NewOAuthClient builds a code-exchange client for the provider
func (p *Provider) NewOAuthClient(ctx context.Context) (*Client, error) {
	config, err := p.GetConfig(ctx)
	if err != nil {
		return nil, err
	}
	authEndpoint, tokenEndpoint := p.endpoints(ctx, config)
	return NewClient(config, authEndpoint, tokenEndpoint), nil
}

// endpoints resolves the authorization and token endpoints. A Cognito hosted-UI domain
// takes precedence, then the discovery document, then paths under the issuer.
func (p *Provider) endpoints(ctx context.Context, config *models.OIDCConfig) (string, string) {
	if base := cognitoDomainBase(config); base != "" {
		return base + "/oauth2/authorize", base + "/oauth2/token"
	}

	issuer := strings.TrimRight(config.Issuer, "/")
	authEndpoint := issuer + "/oauth2/authorize"
	tokenEndpoint := issuer + "/oauth2/token"

	if doc, err := p.discover(ctx, issuer); err == nil {
		if doc.AuthorizationEndpoint != "" {
			authEndpoint = doc.AuthorizationEndpoint
		}
		if doc.TokenEndpoint != "" {
			tokenEndpoint = doc.TokenEndpoint
		}
	}
	return authEndpoint, tokenEndpoint
}

type discoveryDocument struct {
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
}

func (p *Provider) discover(ctx context.Context, issuer string) (*discoveryDocument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, issuer+"/.well-known/openid-configuration", nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discovery returned status %d", resp.StatusCode)
	}

	var doc discoveryDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode discovery document: %w", err)
	}
	return &doc, nil
}

// cognitoDomainBase returns the https base URL of a configured Cognito domain, or ""
func cognitoDomainBase(config *models.OIDCConfig) string {
	if config.Domain == nil || *config.Domain == "" || !strings.Contains(config.Issuer, "cognito-idp.") {
		return ""
	}
	domain := strings.TrimRight(*config.Domain, "/")
	if strings.HasPrefix(domain, "https://") {
		return domain
	}
	return "https://" + domain
}
