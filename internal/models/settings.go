package models

import "time"

// Settings keys stored in app_settings.
const (
	SettingCORS      = "cors"
	SettingRateLimit = "rate_limit"
)

// CorsConfig is the browser origin policy served by the API.
// AllowedOrigins is a comma-separated list.
type CorsConfig struct {
	AllowedOrigins   string    `json:"allowed_origins"`
	AllowCredentials bool      `json:"allow_credentials"`
	MaxAge           int       `json:"max_age"`
	UpdatedAt        time.Time `json:"-"`
}

// RatelimitConfig is the per-client request budget in limiter notation, e.g. "60-M".
type RatelimitConfig struct {
	Rate      string    `json:"rate"`
	UpdatedAt time.Time `json:"-"`
}
