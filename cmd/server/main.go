package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"

	"github.com/benvon/crux-journal/internal/app"
	"github.com/benvon/crux-journal/internal/config"
	"github.com/benvon/crux-journal/internal/database"
	"github.com/benvon/crux-journal/internal/handlers"
	"github.com/benvon/crux-journal/internal/logger"
	"github.com/benvon/crux-journal/internal/middleware"
	"github.com/benvon/crux-journal/internal/services/oidc"
	"github.com/benvon/crux-journal/internal/telemetry"
)

const (
	configReloadInterval = time.Minute
	activityInterval     = time.Minute
	chatPathPrefix       = "/api/v1/coach/chat"
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug mode for LLM API logging")
	migrateFlag := flag.Bool("migrate", true, "Apply the database schema on startup")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	debugMode := cfg.ServerDebugMode || *debugFlag

	zapLogger, err := logger.New(logger.Options{Service: telemetry.ServiceAPI, Debug: debugMode, Format: cfg.LogFormat})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync(zapLogger)

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("frontend_url", cfg.FrontendURL),
		zap.String("ai_provider", cfg.AI.Provider),
		zap.String("ai_model", cfg.AI.Model),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing := app.SetupTracing(ctx, cfg, telemetry.ServiceAPI, zapLogger)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
		}
	}()

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()
	if *migrateFlag {
		if err := db.Migrate(ctx); err != nil {
			zapLogger.Fatal("failed_to_migrate_database", zap.Error(err))
		}
	}
	zapLogger.Info("connected_to_database")

	redisClient, err := middleware.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_redis", zap.Error(err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
		}
	}()
	limiterStore, err := middleware.NewRedisLimiterStore(redisClient)
	if err != nil {
		zapLogger.Fatal("failed_to_create_rate_limit_store", zap.Error(err))
	}
	zapLogger.Info("connected_to_redis")

	jobQueue, err := app.ConnectQueue(ctx, nil, cfg.RabbitMQURL, app.DefaultQueueAttempts, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_rabbitmq", zap.Error(err))
	}
	defer func() {
		if err := jobQueue.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()

	provider, err := app.NewAIProvider(cfg.AI, zapLogger, debugMode)
	if err != nil {
		zapLogger.Fatal("failed_to_create_ai_provider", zap.Error(err))
	}
	coachServices := app.NewCoach(cfg, db, provider, zapLogger)

	// Repositories
	userRepo := database.NewUserRepository(db)
	climbRepo := database.NewClimbRepository(db)
	oidcProvider := oidc.NewProvider(database.NewOIDCConfigRepository(db), cfg.OIDCProvider)
	jwksManager := oidc.NewJWKSManager()

	// Reloadable edge policy
	corsReloader := middleware.NewCORSReloader(database.NewCorsConfigRepository(db), cfg.FrontendURL, zapLogger, configReloadInterval)
	rateLimitReloader := middleware.NewRateLimitReloader(limiterStore, database.NewRatelimitConfigRepository(db), cfg.DefaultRateLimit, zapLogger, configReloadInterval)
	activityTracker := middleware.NewActivityTracker(database.NewUserActivityRepository(db), activityInterval, zapLogger)

	// Handlers
	healthChecker := handlers.NewHealthChecker().
		AddCheck("database", db.HealthCheck).
		AddCheck("redis", func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }).
		AddCheck("queue", jobQueue.HealthCheck)
	authHandler := handlers.NewAuthHandler(oidcProvider, zapLogger)

	r := mux.NewRouter()
	if cfg.OTELEnabled {
		r.Use(otelmux.Middleware(telemetry.ServiceAPI))
	}

	r.HandleFunc("/healthz", healthChecker.HealthCheck).Methods("GET")
	handlers.NewOpenAPIHandler(filepath.Join("api", "openapi", "openapi.yaml")).RegisterRoutes(r)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(
		middleware.MaxRequestSize(middleware.DefaultMaxRequestSize),
		middleware.ContentType,
		middleware.Timeout(cfg.RequestTimeout, chatPathPrefix),
	)

	// Login is public but still throttled per IP
	publicAuth := api.PathPrefix("/auth").Subrouter()
	publicAuth.Use(rateLimitReloader.Middleware())
	authHandler.RegisterRoutes(publicAuth)

	protected := api.NewRoute().Subrouter()
	protected.Use(
		middleware.Auth(userRepo, oidcProvider, jwksManager, zapLogger),
		activityTracker.Middleware,
		rateLimitReloader.Middleware(),
	)
	authHandler.RegisterProtectedRoutes(protected.PathPrefix("/auth").Subrouter())
	handlers.NewClimbHandler(climbRepo, coachServices.Tags, jobQueue, zapLogger).RegisterRoutes(protected.PathPrefix("/climbs").Subrouter())
	handlers.NewAnalysisHandler(climbRepo).RegisterRoutes(protected.PathPrefix("/analysis").Subrouter())
	handlers.NewRecommendationHandler(coachServices.Recommendations, zapLogger).RegisterRoutes(protected.PathPrefix("/recommendations").Subrouter())
	handlers.NewChatHandler(coachServices.Chat, zapLogger).RegisterRoutes(protected.PathPrefix("/coach").Subrouter())
	handlers.NewPreferencesHandler(database.NewPreferencesRepository(db)).RegisterRoutes(protected.PathPrefix("/preferences").Subrouter())
	handlers.NewUsageHandler(coachServices.Quota, database.NewUsageRepository(db)).RegisterRoutes(protected.PathPrefix("/usage").Subrouter())

	// Wrapped inside out, so ErrorHandler is outermost and CORS answers preflight before routing
	var handler http.Handler = r
	handler = corsReloader.Middleware()(handler)
	handler = middleware.SecurityHeaders(cfg.EnableHSTS)(handler)
	handler = middleware.Audit(zapLogger)(handler)
	handler = middleware.Logging(zapLogger)(handler)
	handler = middleware.ErrorHandler(zapLogger)(handler)

	// No WriteTimeout: chat responses stream. Deadlines come from the Timeout middleware.
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go corsReloader.Start(ctx)
	go rateLimitReloader.Start(ctx)

	go func() {
		zapLogger.Info("server_starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Error("server_failed_to_start", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	zapLogger.Info("server_shutting_down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("server_forced_to_shutdown", zap.Error(err))
		return
	}
	zapLogger.Info("server_exited")
}
