package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/benvon/crux-journal/internal/database"
	logpkg "github.com/benvon/crux-journal/internal/logger"
	"github.com/benvon/crux-journal/internal/models"
	"github.com/benvon/crux-journal/internal/request"
	"github.com/benvon/crux-journal/internal/services/oidc"
)

// UserFromContext extracts the user from the request context
func UserFromContext(r *http.Request) *models.User {
	return request.UserFromContext(r)
}

// UserStore finds and provisions users by their identity provider subject
type UserStore interface {
	GetByProviderID(ctx context.Context, providerID string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
}

var _ UserStore = (*database.UserRepository)(nil)

// IdentityConfig supplies the identity provider's issuer and JWKS URL
type IdentityConfig interface {
	GetConfig(ctx context.Context) (*models.OIDCConfig, error)
}

var _ IdentityConfig = (*oidc.Provider)(nil)

// Auth creates authentication middleware that validates bearer JWTs and loads the
// matching user into the request context, provisioning it on first sight
func Auth(users UserStore, identity IdentityConfig, keys oidc.KeySource, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := bearerToken(r)
			if !ok {
				writeError(w, r, http.StatusUnauthorized, "Missing or invalid Authorization header")
				return
			}

			ctx := r.Context()
			oidcConfig, err := identity.GetConfig(ctx)
			if err != nil {
				logger.Error("oidc_config_unavailable", zap.String("error", logpkg.SanitizeError(err)))
				writeError(w, r, http.StatusInternalServerError, "Failed to get OIDC configuration")
				return
			}
			if oidcConfig.JWKSUrl == nil || *oidcConfig.JWKSUrl == "" {
				writeError(w, r, http.StatusInternalServerError, "JWKS URL not configured")
				return
			}

			claims, err := oidc.NewVerifier(keys, oidcConfig.Issuer).Verify(ctx, tokenString, *oidcConfig.JWKSUrl)
			if err != nil {
				logger.Info("token_verification_failed",
					zap.String("issuer", oidcConfig.Issuer),
					zap.String("error", logpkg.SanitizeError(err)),
				)
				writeError(w, r, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			user, err := resolveUser(ctx, users, claims, logger)
			if err != nil {
				logger.Error("user_resolution_failed", zap.String("error", logpkg.SanitizeError(err)))
				writeError(w, r, http.StatusInternalServerError, "Database error")
				return
			}

			next.ServeHTTP(w, r.WithContext(request.WithUser(ctx, user)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || scheme != "Bearer" || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

// resolveUser loads the user for the token subject, creating it if unknown and
// refreshing email and name when the provider reports new values
func resolveUser(ctx context.Context, users UserStore, claims *oidc.Claims, logger *zap.Logger) (*models.User, error) {
	user, err := users.GetByProviderID(ctx, claims.Subject)
	if errors.Is(err, database.ErrNotFound) {
		subject, name := claims.Subject, claims.Name
		user = &models.User{
			ID:            uuid.New(),
			Email:         claims.Email,
			ProviderID:    &subject,
			EmailVerified: true,
		}
		if name != "" {
			user.Name = &name
		}
		if err := users.Create(ctx, user); err != nil {
			return nil, err
		}
		return user, nil
	}
	if err != nil {
		return nil, err
	}

	changed := false
	if claims.Email != "" && user.Email != claims.Email {
		user.Email = claims.Email
		changed = true
	}
	if claims.Name != "" && (user.Name == nil || *user.Name != claims.Name) {
		name := claims.Name
		user.Name = &name
		changed = true
	}
	if changed {
		if err := users.Update(ctx, user); err != nil {
			logger.Warn("user_profile_update_failed", zap.String("error", logpkg.SanitizeError(err)))
		}
	}
	return user, nil
}
