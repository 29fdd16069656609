package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/benvon/crux-journal/internal/database"
	"github.com/benvon/crux-journal/internal/middleware"
	"github.com/benvon/crux-journal/internal/models"
)

// OIDCStore edits identity provider rows
type OIDCStore interface {
	GetByProvider(ctx context.Context, provider string) (*models.OIDCConfig, error)
	GetAll(ctx context.Context) ([]*models.OIDCConfig, error)
	Create(ctx context.Context, config *models.OIDCConfig) error
	Update(ctx context.Context, config *models.OIDCConfig) error
	Delete(ctx context.Context, provider string) error
}

// CORSStore edits the allowed-origin policy
type CORSStore interface {
	middleware.CORSConfigStore
	Set(ctx context.Context, c *models.CorsConfig) error
}

// QuotaStore reads and clears daily counters
type QuotaStore interface {
	Get(ctx context.Context, userID uuid.UUID, kind models.QuotaKind, now time.Time) (*models.QuotaCounter, error)
	Reset(ctx context.Context, userID uuid.UUID, kind models.QuotaKind) error
}

// UserLookup resolves the account a quota command targets
type UserLookup interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

var (
	_ OIDCStore                  = (*database.OIDCConfigRepository)(nil)
	_ CORSStore                  = (*database.CorsConfigRepository)(nil)
	_ middleware.RateConfigStore = (*database.RatelimitConfigRepository)(nil)
	_ QuotaStore                 = (*database.QuotaRepository)(nil)
	_ UserLookup                 = (*database.UserRepository)(nil)
)

// Stores are the repositories the configure commands work on
type Stores struct {
	OIDC  OIDCStore
	CORS  CORSStore
	Rate  middleware.RateConfigStore
	Quota QuotaStore
	Users UserLookup
	Close func() error
}

// Opener connects to the backing stores
type Opener func(ctx context.Context, databaseURL string) (*Stores, error)

// Options configures the command tree. Zero values use Postgres and a 10s HTTP client.
type Options struct {
	Open       Opener
	HTTPClient *http.Client
	Now        func() time.Time
}

type env struct {
	databaseURL string
	opts        Options
}

// NewRootCmd builds the crux-configure command tree
func NewRootCmd(opts Options) *cobra.Command {
	if opts.Open == nil {
		opts.Open = OpenDatabase
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	e := &env{opts: opts}

	root := &cobra.Command{
		Use:           "crux-configure",
		Short:         "Configuration tool for the crux journal API",
		Long:          "Manage identity providers, CORS, rate limits and daily AI quotas stored in Postgres.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&e.databaseURL, "database-url", os.Getenv("DATABASE_URL"), "Postgres connection string (defaults to $DATABASE_URL)")

	root.AddCommand(
		newOIDCCmd(e),
		newCorsCmd(e),
		newRatelimitCmd(e),
		newQuotaCmd(e),
		newListCmd(e),
	)
	return root
}

// withStores opens the stores, runs fn and closes them
func (e *env) withStores(ctx context.Context, fn func(*Stores) error) error {
	if e.databaseURL == "" {
		return fmt.Errorf("--database-url or DATABASE_URL is required")
	}
	stores, err := e.opts.Open(ctx, e.databaseURL)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer func() {
		if stores.Close != nil {
			if err := stores.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
			}
		}
	}()
	return fn(stores)
}

// OpenDatabase connects to Postgres, applying the schema so a fresh database can be configured
func OpenDatabase(ctx context.Context, databaseURL string) (*Stores, error) {
	db, err := database.New(databaseURL)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Stores{
		OIDC:  database.NewOIDCConfigRepository(db),
		CORS:  database.NewCorsConfigRepository(db),
		Rate:  database.NewRatelimitConfigRepository(db),
		Quota: database.NewQuotaRepository(db),
		Users: database.NewUserRepository(db),
		Close: db.Close,
	}, nil
}
