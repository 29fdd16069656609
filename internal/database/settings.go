package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/benvon/crux-journal/internal/models"
)

// settings reads and writes JSON documents in app_settings.
type settings struct {
	db *DB
}

// load decodes the document stored under key into dest. It reports false when the key is unset.
func (s settings) load(ctx context.Context, key string, dest any) (time.Time, bool, error) {
	var (
		raw     []byte
		updated time.Time
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT value, updated_at FROM app_settings WHERE key = $1`, key,
	).Scan(&raw, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("get setting %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return time.Time{}, false, fmt.Errorf("decode setting %s: %w", key, err)
	}
	return updated, true, nil
}

func (s settings) store(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode setting %s: %w", key, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO app_settings (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`, key, raw)
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

// CorsConfigRepository persists the CORS policy.
type CorsConfigRepository struct {
	settings settings
}

// NewCorsConfigRepository creates a new CORS config repository.
func NewCorsConfigRepository(db *DB) *CorsConfigRepository {
	return &CorsConfigRepository{settings: settings{db: db}}
}

// Get returns the stored policy, or nil when none has been set.
func (r *CorsConfigRepository) Get(ctx context.Context) (*models.CorsConfig, error) {
	c := &models.CorsConfig{}
	updated, ok, err := r.settings.load(ctx, models.SettingCORS, c)
	if err != nil || !ok {
		return nil, err
	}
	c.UpdatedAt = updated
	return c, nil
}

// Set replaces the stored policy.
func (r *CorsConfigRepository) Set(ctx context.Context, c *models.CorsConfig) error {
	normalized, err := normalizeCORS(c)
	if err != nil {
		return err
	}
	return r.settings.store(ctx, models.SettingCORS, normalized)
}

func normalizeCORS(c *models.CorsConfig) (*models.CorsConfig, error) {
	origins := AllowedOriginsSlice(c.AllowedOrigins)
	if len(origins) == 0 {
		return nil, errors.New("allowed_origins cannot be empty")
	}
	if c.MaxAge < 0 {
		return nil, errors.New("max_age cannot be negative")
	}
	return &models.CorsConfig{
		AllowedOrigins:   strings.Join(origins, ","),
		AllowCredentials: c.AllowCredentials,
		MaxAge:           c.MaxAge,
	}, nil
}

// AllowedOriginsSlice splits a comma-separated origin list, trimming blanks and duplicates.
func AllowedOriginsSlice(raw string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(raw, ",") {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		if _, dup := seen[origin]; dup {
			continue
		}
		seen[origin] = struct{}{}
		out = append(out, origin)
	}
	return out
}

// RatelimitConfigRepository persists the API rate limit.
type RatelimitConfigRepository struct {
	settings settings
}

// NewRatelimitConfigRepository creates a new rate limit config repository.
func NewRatelimitConfigRepository(db *DB) *RatelimitConfigRepository {
	return &RatelimitConfigRepository{settings: settings{db: db}}
}

// Get returns the stored rate, or nil when none has been set.
func (r *RatelimitConfigRepository) Get(ctx context.Context) (*models.RatelimitConfig, error) {
	c := &models.RatelimitConfig{}
	updated, ok, err := r.settings.load(ctx, models.SettingRateLimit, c)
	if err != nil || !ok {
		return nil, err
	}
	c.UpdatedAt = updated
	return c, nil
}

// Set replaces the stored rate.
func (r *RatelimitConfigRepository) Set(ctx context.Context, c *models.RatelimitConfig) error {
	rate := strings.TrimSpace(c.Rate)
	if rate == "" {
		return errors.New("rate cannot be empty")
	}
	return r.settings.store(ctx, models.SettingRateLimit, &models.RatelimitConfig{Rate: rate})
}
