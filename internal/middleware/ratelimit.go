package middleware

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	stdlibmw "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.uber.org/zap"

	"github.com/benvon/crux-journal/internal/database"
	logpkg "github.com/benvon/crux-journal/internal/logger"
	"github.com/benvon/crux-journal/internal/models"
	"github.com/benvon/crux-journal/internal/request"
)

// DefaultRateLimit is used when no rate is stored, in ulule's "<limit>-<period>" format
const DefaultRateLimit = "10-S"

const rateLimitKeyPrefix = "crux:ratelimit"

// RateConfigStore reads and seeds the stored rate limit. Get returns nil, nil when unset.
type RateConfigStore interface {
	Get(ctx context.Context) (*models.RatelimitConfig, error)
	Set(ctx context.Context, c *models.RatelimitConfig) error
}

var _ RateConfigStore = (*database.RatelimitConfigRepository)(nil)

// NewRedisClient parses redisURL and verifies the connection
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// NewRedisLimiterStore returns a limiter store shared by every API instance
func NewRedisLimiterStore(client *redis.Client) (limiter.Store, error) {
	store, err := redisstore.NewStoreWithOptions(client, limiter.StoreOptions{
		Prefix: rateLimitKeyPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit store: %w", err)
	}
	return store, nil
}

// RateLimitReloader enforces the stored rate with ulule/limiter and picks up changes on a
// timer. Callers are keyed by request.RateLimitKey, so it must run after Auth to limit per user.
// One reloader may wrap several routers; the counters live in the shared store.
type RateLimitReloader struct {
	store       limiter.Store
	repo        RateConfigStore
	defaultRate string
	log         *zap.Logger
	interval    time.Duration
	initial     sync.Once

	mu   sync.RWMutex
	mw   *stdlibmw.Middleware
	rate string
}

// NewRateLimitReloader creates a rate limit middleware backed by store
func NewRateLimitReloader(store limiter.Store, repo RateConfigStore, defaultRate string, log *zap.Logger, reloadInterval time.Duration) *RateLimitReloader {
	if defaultRate == "" {
		defaultRate = DefaultRateLimit
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RateLimitReloader{
		store:       store,
		repo:        repo,
		defaultRate: defaultRate,
		log:         log,
		interval:    reloadInterval,
	}
}

// Middleware limits next with whichever rate is current when each request arrives.
// gorilla/mux applies subrouter middleware per request, so wrapping must stay cheap.
func (r *RateLimitReloader) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		r.initial.Do(func() { r.load(context.Background()) })
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			r.mu.RLock()
			mw := r.mw
			r.mu.RUnlock()
			if mw == nil {
				next.ServeHTTP(w, req)
				return
			}
			mw.Handler(next).ServeHTTP(w, req)
		})
	}
}

// Start reloads the rate every interval until ctx is cancelled.
func (r *RateLimitReloader) Start(ctx context.Context) {
	r.initial.Do(func() { r.load(ctx) })
	reloadEvery(ctx, r.interval, r.load)
}

// Rate returns the rate currently enforced
func (r *RateLimitReloader) Rate() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rate
}

func (r *RateLimitReloader) load(ctx context.Context) {
	rateStr := r.storedRate(ctx)

	rate, err := limiter.NewRateFromFormatted(rateStr)
	if err != nil {
		r.log.Error("failed_to_parse_rate_limit_using_default",
			zap.String("rate", rateStr),
			zap.String("default_rate", r.defaultRate),
			zap.String("error", logpkg.SanitizeError(err)),
		)
		rateStr = r.defaultRate
		if rate, err = limiter.NewRateFromFormatted(rateStr); err != nil {
			r.log.Error("failed_to_parse_default_rate_limit", zap.String("default_rate", rateStr))
			return
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.mw != nil && r.rate == rateStr {
		return
	}
	r.mw = stdlibmw.NewMiddleware(limiter.New(r.store, rate),
		stdlibmw.WithKeyGetter(request.RateLimitKey),
		stdlibmw.WithLimitReachedHandler(limitReached),
		stdlibmw.WithErrorHandler(r.limiterFailed),
	)
	r.log.Info("rate_limit_applied", zap.String("rate", rateStr))
	r.rate = rateStr
}

// storedRate reads the configured rate, seeding the default when none is stored
func (r *RateLimitReloader) storedRate(ctx context.Context) string {
	if r.repo == nil {
		return r.defaultRate
	}
	cfg, err := r.repo.Get(ctx)
	if err != nil {
		r.log.Warn("failed_to_load_ratelimit_config_using_default",
			zap.String("default_rate", r.defaultRate),
			zap.String("error", logpkg.SanitizeError(err)),
		)
		return r.defaultRate
	}
	if cfg != nil && cfg.Rate != "" {
		return cfg.Rate
	}
	if err := r.repo.Set(ctx, &models.RatelimitConfig{Rate: r.defaultRate}); err != nil {
		r.log.Warn("failed_to_save_default_ratelimit_config", zap.String("error", logpkg.SanitizeError(err)))
	}
	return r.defaultRate
}

func limitReached(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusTooManyRequests, "Rate limit exceeded, retry later")
}

// limiterFailed answers 503 when the counter store cannot be reached.
func (r *RateLimitReloader) limiterFailed(w http.ResponseWriter, req *http.Request, err error) {
	r.log.Warn("rate_limit_store_unavailable", zap.String("error", logpkg.SanitizeError(err)))
	writeError(w, req, http.StatusServiceUnavailable, "Rate limiting is temporarily unavailable")
}
