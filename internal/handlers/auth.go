package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	logpkg "github.com/benvon/crux-journal/internal/logger"
	"github.com/benvon/crux-journal/internal/services/oidc"
)

// LoginProvider exposes the identity provider settings the frontend needs to sign in
type LoginProvider interface {
	GetLoginConfig(ctx context.Context) (*oidc.LoginConfig, error)
	NewOAuthClient(ctx context.Context) (*oidc.Client, error)
}

var _ LoginProvider = (*oidc.Provider)(nil)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	provider LoginProvider
	logger   *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(provider LoginProvider, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{provider: provider, logger: logger}
}

// RegisterRoutes registers the public auth routes. The router should already have the /api/v1/auth prefix.
func (h *AuthHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/oidc/login", h.GetOIDCLogin).Methods("GET")
	r.HandleFunc("/oidc/callback", h.ExchangeCode).Methods("POST")
}

// RegisterProtectedRoutes registers auth routes that need an authenticated user
func (h *AuthHandler) RegisterProtectedRoutes(r *mux.Router) {
	r.HandleFunc("/me", h.GetMe).Methods("GET")
}

// GetOIDCLogin returns OIDC configuration for frontend
func (h *AuthHandler) GetOIDCLogin(w http.ResponseWriter, r *http.Request) {
	loginConfig, err := h.provider.GetLoginConfig(r.Context())
	if err != nil {
		h.logger.Error("oidc_login_config_failed", zap.String("error", logpkg.SanitizeError(err)))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to get OIDC configuration")
		return
	}

	respondJSON(w, http.StatusOK, loginConfig)
}

// CodeExchangeRequest carries the authorization code returned to the frontend's redirect URI
type CodeExchangeRequest struct {
	Code         string `json:"code" validate:"required,nonblank,max=2048"`
	CodeVerifier string `json:"code_verifier" validate:"omitempty,min=43,max=128"`
}

// TokenResponse is what the frontend stores after sign-in; the id_token is the API bearer
type TokenResponse struct {
	AccessToken  string    `json:"access_token"`
	IDToken      string    `json:"id_token,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// ExchangeCode trades an authorization code (with optional PKCE verifier) for tokens
func (h *AuthHandler) ExchangeCode(w http.ResponseWriter, r *http.Request) {
	var req CodeExchangeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx := r.Context()
	client, err := h.provider.NewOAuthClient(ctx)
	if err != nil {
		h.logger.Error("oidc_client_unavailable", zap.String("error", logpkg.SanitizeError(err)))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to get OIDC configuration")
		return
	}

	token, err := client.ExchangeCode(ctx, req.Code, req.CodeVerifier)
	if err != nil {
		h.logger.Info("oidc_code_exchange_failed", zap.String("error", logpkg.SanitizeError(err)))
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Authorization code was rejected")
		return
	}

	resp := TokenResponse{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.Type(),
		ExpiresAt:    token.Expiry,
	}
	if idToken, ok := token.Extra("id_token").(string); ok {
		resp.IDToken = idToken
	}
	respondJSON(w, http.StatusOK, resp)
}

// GetMe returns current user information
func (h *AuthHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	respondJSON(w, http.StatusOK, user)
}
