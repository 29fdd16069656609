package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/benvon/crux-journal/internal/models"
)

const oidcColumns = `id, provider, issuer, domain, client_id, client_secret, redirect_uri, jwks_url, created_at, updated_at`

// OIDCConfigRepository stores identity provider registrations, one row per provider name.
type OIDCConfigRepository struct {
	db *DB
}

// NewOIDCConfigRepository creates a new OIDC config repository
func NewOIDCConfigRepository(db *DB) *OIDCConfigRepository {
	return &OIDCConfigRepository{db: db}
}

// Create registers a new provider.
func (r *OIDCConfigRepository) Create(ctx context.Context, config *models.OIDCConfig) error {
	if config.ID == uuid.Nil {
		config.ID = uuid.New()
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO oidc_config (id, provider, issuer, domain, client_id, client_secret, redirect_uri, jwks_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`, config.ID, config.Provider, config.Issuer, config.Domain, config.ClientID,
		config.ClientSecret, config.RedirectURI, config.JWKSUrl,
	).Scan(&config.CreatedAt, &config.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create oidc config %s: %w", config.Provider, err)
	}
	return nil
}

// GetByProvider returns ErrNotFound for an unregistered provider.
func (r *OIDCConfigRepository) GetByProvider(ctx context.Context, provider string) (*models.OIDCConfig, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+oidcColumns+` FROM oidc_config WHERE provider = $1`, provider)
	config, err := scanOIDCConfig(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("oidc provider %s: %w", provider, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get oidc config %s: %w", provider, err)
	}
	return config, nil
}

// GetAll lists every provider ordered by name.
func (r *OIDCConfigRepository) GetAll(ctx context.Context) ([]*models.OIDCConfig, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+oidcColumns+` FROM oidc_config ORDER BY provider`)
	if err != nil {
		return nil, fmt.Errorf("list oidc configs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var configs []*models.OIDCConfig
	for rows.Next() {
		config, err := scanOIDCConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("scan oidc config: %w", err)
		}
		configs = append(configs, config)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate oidc configs: %w", err)
	}
	return configs, nil
}

// Update rewrites the provider's settings, matched by provider name.
func (r *OIDCConfigRepository) Update(ctx context.Context, config *models.OIDCConfig) error {
	err := r.db.QueryRowContext(ctx, `
		UPDATE oidc_config
		SET issuer = $2, domain = $3, client_id = $4, client_secret = $5, redirect_uri = $6, jwks_url = $7, updated_at = NOW()
		WHERE provider = $1
		RETURNING updated_at
	`, config.Provider, config.Issuer, config.Domain, config.ClientID,
		config.ClientSecret, config.RedirectURI, config.JWKSUrl,
	).Scan(&config.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("oidc provider %s: %w", config.Provider, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update oidc config %s: %w", config.Provider, err)
	}
	return nil
}

// Delete removes a provider registration.
func (r *OIDCConfigRepository) Delete(ctx context.Context, provider string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM oidc_config WHERE provider = $1`, provider)
	if err != nil {
		return fmt.Errorf("delete oidc config %s: %w", provider, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete oidc config %s: %w", provider, err)
	}
	if n == 0 {
		return fmt.Errorf("oidc provider %s: %w", provider, ErrNotFound)
	}
	return nil
}

func scanOIDCConfig(row rowScanner) (*models.OIDCConfig, error) {
	c := &models.OIDCConfig{}
	err := row.Scan(&c.ID, &c.Provider, &c.Issuer, &c.Domain, &c.ClientID,
		&c.ClientSecret, &c.RedirectURI, &c.JWKSUrl, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}
