package commands

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/benvon/crux-journal/internal/database"
	"github.com/benvon/crux-journal/internal/models"
)

func newQuotaCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quota",
		Short: "Inspect or reset a user's daily AI quotas",
	}
	cmd.AddCommand(newQuotaShowCmd(e), newQuotaResetCmd(e))
	return cmd
}

func newQuotaShowCmd(e *env) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show today's counters for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withStores(cmd.Context(), func(s *Stores) error {
				ctx := cmd.Context()
				user, err := s.Users.GetByEmail(ctx, strings.TrimSpace(email))
				if err != nil {
					return fmt.Errorf("find user %q: %w", email, err)
				}
				now := e.opts.Now()
				reset := database.UTCDate(now).AddDate(0, 0, 1)
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Quotas for %s (reset %s):\n", user.Email, humanize.RelTime(reset, now, "ago", "from now"))
				for _, kind := range models.QuotaKinds {
					counter, err := s.Quota.Get(ctx, user.ID, kind, now)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "  %-15s %d\n", kind, counter.Count)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "User email (required)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newQuotaResetCmd(e *env) *cobra.Command {
	var email, kind string
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear today's counters for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds := models.QuotaKinds
			if kind != "" {
				k, ok := models.ParseQuotaKind(kind)
				if !ok {
					return fmt.Errorf("unknown quota kind %q", kind)
				}
				kinds = []models.QuotaKind{k}
			}
			return e.withStores(cmd.Context(), func(s *Stores) error {
				ctx := cmd.Context()
				user, err := s.Users.GetByEmail(ctx, strings.TrimSpace(email))
				if err != nil {
					return fmt.Errorf("find user %q: %w", email, err)
				}
				for _, k := range kinds {
					if err := s.Quota.Reset(ctx, user.ID, k); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Reset %s quota for %s\n", k, user.Email)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "User email (required)")
	cmd.Flags().StringVar(&kind, "kind", "", "Counter to reset: recommendation, chat or tag_extraction (default all)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
