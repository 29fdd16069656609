package oidc

import (
	"net/url"
	"testing"

	"github.com/benvon/crux-journal/internal/models"
)

func TestNewClient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		secret     *string
		wantSecret string
	}{
		{"confidential client", stringPtr("test-secret"), "test-secret"},
		{"public client", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			client := NewClient(&models.OIDCConfig{
				ClientID:     "test-client-id",
				ClientSecret: tt.secret,
				RedirectURI:  "http://localhost:3000/callback",
				Issuer:       "https://auth.example.com",
			}, "https://auth.example.com/authorize", "https://auth.example.com/token")

			if client.config.ClientSecret != tt.wantSecret {
				t.Errorf("ClientSecret = %q, want %q", client.config.ClientSecret, tt.wantSecret)
			}
			if client.config.Endpoint.TokenURL != "https://auth.example.com/token" {
				t.Errorf("TokenURL = %q", client.config.Endpoint.TokenURL)
			}
		})
	}
}

func TestClient_AuthCodeURL(t *testing.T) {
	t.Parallel()

	client := NewClient(&models.OIDCConfig{
		ClientID:    "test-client-id",
		RedirectURI: "http://localhost:3000/callback",
	}, "https://auth.example.com/authorize", "https://auth.example.com/token")

	raw := client.AuthCodeURL("state-123")
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("AuthCodeURL() returned an invalid URL: %v", err)
	}
	q := u.Query()
	if q.Get("state") != "state-123" || q.Get("client_id") != "test-client-id" {
		t.Errorf("query = %v", q)
	}
	if q.Get("scope") != "openid email profile" {
		t.Errorf("scope = %q", q.Get("scope"))
	}
}

func stringPtr(s string) *string {
	return &s
}
