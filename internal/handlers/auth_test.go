package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"github.com/benvon/crux-journal/internal/models"
	"github.com/benvon/crux-journal/internal/services/oidc"
)

type mockLoginProvider struct {
	login     *oidc.LoginConfig
	tokenURL  string
	err       error
	clientErr error
}

func (m *mockLoginProvider) GetLoginConfig(ctx context.Context) (*oidc.LoginConfig, error) {
	return m.login, m.err
}

func (m *mockLoginProvider) NewOAuthClient(ctx context.Context) (*oidc.Client, error) {
	if m.clientErr != nil {
		return nil, m.clientErr
	}
	cfg := &models.OIDCConfig{ClientID: "crux-client", RedirectURI: "https://app.example.com/callback"}
	return oidc.NewClient(cfg, "https://auth.example.com/authorize", m.tokenURL), nil
}

func serveAuth(h *AuthHandler, req *http.Request) *httptest.ResponseRecorder {
	r := mux.NewRouter()
	sub := r.PathPrefix("/api/v1/auth").Subrouter()
	h.RegisterRoutes(sub)
	h.RegisterProtectedRoutes(sub)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// tokenServer is a fake token endpoint that requires the PKCE verifier when expectVerifier is set
func tokenServer(t *testing.T, expectVerifier string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm() error = %v", err)
		}
		if r.PostForm.Get("code") != "good-code" || r.PostForm.Get("code_verifier") != expectVerifier {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "access-123",
			"id_token":      "id-456",
			"refresh_token": "refresh-789",
			"token_type":    "Bearer",
			"expires_in":    3600,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAuthHandler_GetOIDCLogin(t *testing.T) {
	t.Parallel()

	login := &oidc.LoginConfig{
		AuthorizationEndpoint: "https://auth.example.com/oauth2/authorize",
		TokenEndpoint:         "https://auth.example.com/oauth2/token",
		ClientID:              "crux-client",
		Scope:                 "openid email profile",
	}

	w := serveAuth(NewAuthHandler(&mockLoginProvider{login: login}, nil), httptest.NewRequest(http.MethodGet, "/api/v1/auth/oidc/login", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var got oidc.LoginConfig
	decodeData(t, w, &got)
	if got != *login {
		t.Errorf("login config = %+v", got)
	}

	w = serveAuth(NewAuthHandler(&mockLoginProvider{err: errors.New("no rows")}, nil), httptest.NewRequest(http.MethodGet, "/api/v1/auth/oidc/login", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if strings.Contains(w.Body.String(), "no rows") {
		t.Error("internal error leaked to client")
	}
}

func TestAuthHandler_ExchangeCode(t *testing.T) {
	t.Parallel()

	verifier := strings.Repeat("v", 43)
	srv := tokenServer(t, verifier)
	h := NewAuthHandler(&mockLoginProvider{tokenURL: srv.URL}, nil)

	body := map[string]string{"code": "good-code", "code_verifier": verifier}
	w := serveAuth(h, newTestRequest(http.MethodPost, "/api/v1/auth/oidc/callback", body))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	var tok TokenResponse
	decodeData(t, w, &tok)
	if tok.AccessToken != "access-123" || tok.IDToken != "id-456" || tok.RefreshToken != "refresh-789" || tok.TokenType != "Bearer" {
		t.Errorf("token = %+v", tok)
	}
	if tok.ExpiresAt.IsZero() {
		t.Error("expected expires_at")
	}
}

func TestAuthHandler_ExchangeCode_Errors(t *testing.T) {
	t.Parallel()

	srv := tokenServer(t, "")

	tests := []struct {
		name       string
		provider   *mockLoginProvider
		body       any
		wantStatus int
	}{
		{"missing code", &mockLoginProvider{tokenURL: srv.URL}, map[string]string{}, http.StatusBadRequest},
		{"short verifier", &mockLoginProvider{tokenURL: srv.URL}, map[string]string{"code": "good-code", "code_verifier": "short"}, http.StatusBadRequest},
		{"rejected code", &mockLoginProvider{tokenURL: srv.URL}, map[string]string{"code": "stale-code"}, http.StatusUnauthorized},
		{"provider unavailable", &mockLoginProvider{clientErr: errors.New("no rows")}, map[string]string{"code": "good-code"}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			w := serveAuth(NewAuthHandler(tt.provider, nil), newTestRequest(http.MethodPost, "/api/v1/auth/oidc/callback", tt.body))
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d: %s", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

func TestAuthHandler_GetMe(t *testing.T) {
	t.Parallel()

	h := NewAuthHandler(&mockLoginProvider{}, nil)
	user := testUser()

	w := serveAuth(h, withUser(httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil), user))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var got models.User
	decodeData(t, w, &got)
	if got.ID != user.ID || got.Email != user.Email {
		t.Errorf("user = %+v", got)
	}

	w = serveAuth(h, httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}
