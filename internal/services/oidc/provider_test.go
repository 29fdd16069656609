package oidc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/benvon/crux-journal/internal/models"
)

type mockConfigStore struct {
	config    *models.OIDCConfig
	err       error
	requested string
}

func (m *mockConfigStore) GetByProvider(ctx context.Context, provider string) (*models.OIDCConfig, error) {
	m.requested = provider
	return m.config, m.err
}

func TestProvider_GetLoginConfig(t *testing.T) {
	t.Parallel()

	discovery := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/.well-known/openid-configuration" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"authorization_endpoint": "https://idp.example.com/authorize",
			"token_endpoint":         "https://idp.example.com/token",
		})
	}))
	t.Cleanup(discovery.Close)

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(broken.Close)

	domain := "auth.example.com"
	tests := []struct {
		name      string
		config    *models.OIDCConfig
		wantAuth  string
		wantToken string
	}{
		{
			name:      "discovery document",
			config:    &models.OIDCConfig{Issuer: discovery.URL, ClientID: "c"},
			wantAuth:  "https://idp.example.com/authorize",
			wantToken: "https://idp.example.com/token",
		},
		{
			name:      "discovery fails",
			config:    &models.OIDCConfig{Issuer: broken.URL + "/", ClientID: "c"},
			wantAuth:  broken.URL + "/oauth2/authorize",
			wantToken: broken.URL + "/oauth2/token",
		},
		{
			name: "cognito domain",
			config: &models.OIDCConfig{
				Issuer:   "https://cognito-idp.us-east-1.amazonaws.com/pool",
				Domain:   &domain,
				ClientID: "c",
			},
			wantAuth:  "https://auth.example.com/oauth2/authorize",
			wantToken: "https://auth.example.com/oauth2/token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			store := &mockConfigStore{config: tt.config}
			p := NewProvider(store, "")

			login, err := p.GetLoginConfig(context.Background())
			if err != nil {
				t.Fatalf("GetLoginConfig() error = %v", err)
			}
			if store.requested != DefaultProviderName {
				t.Errorf("requested provider = %q, want %q", store.requested, DefaultProviderName)
			}
			if login.AuthorizationEndpoint != tt.wantAuth || login.TokenEndpoint != tt.wantToken {
				t.Errorf("endpoints = %q, %q, want %q, %q", login.AuthorizationEndpoint, login.TokenEndpoint, tt.wantAuth, tt.wantToken)
			}
			if login.Scope != "openid email profile" {
				t.Errorf("scope = %q", login.Scope)
			}
		})
	}
}

func TestProvider_GetConfig_Error(t *testing.T) {
	t.Parallel()

	p := NewProvider(&mockConfigStore{err: errors.New("no rows")}, "okta")
	if _, err := p.GetLoginConfig(context.Background()); err == nil {
		t.Error("expected an error")
	}
	if p.Name() != "okta" {
		t.Errorf("Name() = %q", p.Name())
	}
}
