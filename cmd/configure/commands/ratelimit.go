package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/ulule/limiter/v3"

	"github.com/benvon/crux-journal/internal/middleware"
	"github.com/benvon/crux-journal/internal/models"
)

func newRatelimitCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ratelimit",
		Short: "Manage the per-client request rate",
		Long:  "List or update the rate (e.g. 10-S, 100-M, 1000-H). The API picks up changes within a minute.",
	}
	cmd.AddCommand(newRatelimitListCmd(e), newRatelimitSetCmd(e))
	return cmd
}

func newRatelimitListCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the stored rate",
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withStores(cmd.Context(), func(s *Stores) error {
				return printRate(cmd.Context(), cmd.OutOrStdout(), s.Rate)
			})
		},
	}
}

func printRate(ctx context.Context, out io.Writer, store middleware.RateConfigStore) error {
	c, err := store.Get(ctx)
	if err != nil {
		return fmt.Errorf("get ratelimit config: %w", err)
	}
	if c == nil {
		fmt.Fprintf(out, "No rate limit in database; the API uses RATE_LIMIT_DEFAULT (%s unless set).\n", middleware.DefaultRateLimit)
		return nil
	}
	fmt.Fprintf(out, "Rate limit: %s\n", c.Rate)
	return nil
}

func newRatelimitSetCmd(e *env) *cobra.Command {
	var rate string
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store a new rate",
		RunE: func(cmd *cobra.Command, args []string) error {
			rate = strings.ToUpper(strings.TrimSpace(rate))
			if rate == "" {
				return fmt.Errorf("--rate is required (e.g. 10-S, 100-M)")
			}
			if _, err := limiter.NewRateFromFormatted(rate); err != nil {
				return fmt.Errorf("invalid rate %q: %w", rate, err)
			}
			return e.withStores(cmd.Context(), func(s *Stores) error {
				if err := s.Rate.Set(cmd.Context(), &models.RatelimitConfig{Rate: rate}); err != nil {
					return fmt.Errorf("set ratelimit config: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Rate limit set to %s.\n", rate)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&rate, "rate", "", "Rate as <limit>-<period>, period one of S, M, H, D (required)")
	return cmd
}
