package middleware

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/benvon/crux-journal/internal/database"
	logpkg "github.com/benvon/crux-journal/internal/logger"
	"github.com/benvon/crux-journal/internal/models"
)

const (
	defaultCORSOrigin = "http://localhost:3000"
	defaultCORSMaxAge = 86400
)

// CORSConfigStore reads the stored CORS policy. Get returns nil, nil when unset.
type CORSConfigStore interface {
	Get(ctx context.Context) (*models.CorsConfig, error)
}

var _ CORSConfigStore = (*database.CorsConfigRepository)(nil)

// CORSReloader applies the stored CORS policy through rs/cors and refreshes it on a timer.
type CORSReloader struct {
	repo     CORSConfigStore
	fallback string // e.g. FRONTEND_URL
	log      *zap.Logger
	interval time.Duration
	initial  sync.Once

	mu     sync.RWMutex
	policy *cors.Cors
}

// NewCORSReloader creates a CORS middleware that loads config from the DB and hot-reloads it.
func NewCORSReloader(repo CORSConfigStore, frontendURLFallback string, log *zap.Logger, reloadInterval time.Duration) *CORSReloader {
	if log == nil {
		log = zap.NewNop()
	}
	return &CORSReloader{
		repo:     repo,
		fallback: strings.TrimSpace(frontendURLFallback),
		log:      log,
		interval: reloadInterval,
	}
}

// Middleware answers preflight requests and decorates responses using the current policy.
func (r *CORSReloader) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		r.initial.Do(func() { r.load(context.Background()) })
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			r.mu.RLock()
			policy := r.policy
			r.mu.RUnlock()
			if policy == nil {
				next.ServeHTTP(w, req)
				return
			}
			policy.Handler(next).ServeHTTP(w, req)
		})
	}
}

// Start reloads the policy every interval until ctx is cancelled.
func (r *CORSReloader) Start(ctx context.Context) {
	r.initial.Do(func() { r.load(ctx) })
	reloadEvery(ctx, r.interval, r.load)
}

// corsOptions builds the policy from the stored config, falling back to the frontend URL
func (r *CORSReloader) corsOptions(ctx context.Context) cors.Options {
	origins := database.AllowedOriginsSlice(r.fallback)
	allowCreds, maxAge := true, defaultCORSMaxAge

	if r.repo != nil {
		cfg, err := r.repo.Get(ctx)
		if err != nil {
			r.log.Warn("failed_to_load_cors_config_using_fallback", zap.String("error", logpkg.SanitizeError(err)))
		} else if cfg != nil {
			origins = database.AllowedOriginsSlice(cfg.AllowedOrigins)
			allowCreds = cfg.AllowCredentials
			maxAge = cfg.MaxAge
		}
	}
	if len(origins) == 0 {
		origins = []string{defaultCORSOrigin}
	}
	return cors.Options{
		AllowedOrigins:   origins,
		AllowCredentials: allowCreds,
		MaxAge:           maxAge,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "Last-Event-ID"},
		ExposedHeaders:   []string{"Retry-After", "X-Ratelimit-Limit", "X-Ratelimit-Remaining", "X-Ratelimit-Reset"},
	}
}

func (r *CORSReloader) load(ctx context.Context) {
	policy := cors.New(r.corsOptions(ctx))

	r.mu.Lock()
	r.policy = policy
	r.mu.Unlock()
}
