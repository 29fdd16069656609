package commands

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/benvon/crux-journal/internal/database"
	"github.com/benvon/crux-journal/internal/models"
)

func newCorsCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cors",
		Short: "Manage CORS configuration",
		Long:  "List or update the allowed origins. The API picks up changes within a minute.",
	}
	cmd.AddCommand(newCorsListCmd(e), newCorsSetCmd(e))
	return cmd
}

func newCorsListCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the CORS configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withStores(cmd.Context(), func(s *Stores) error {
				return printCORS(cmd.Context(), cmd.OutOrStdout(), s.CORS)
			})
		},
	}
}

func printCORS(ctx context.Context, out io.Writer, store CORSStore) error {
	c, err := store.Get(ctx)
	if err != nil {
		return fmt.Errorf("get cors config: %w", err)
	}
	if c == nil {
		fmt.Fprintln(out, "No CORS configuration in database; the API falls back to FRONTEND_URL.")
		return nil
	}
	fmt.Fprintln(out, "CORS configuration:")
	fmt.Fprintf(out, "  Allowed origins: %s\n", strings.Join(database.AllowedOriginsSlice(c.AllowedOrigins), ", "))
	fmt.Fprintf(out, "  Allow credentials: %v\n", c.AllowCredentials)
	fmt.Fprintf(out, "  Max-Age: %d\n", c.MaxAge)
	return nil
}

func newCorsSetCmd(e *env) *cobra.Command {
	var origins string
	var allowCreds bool
	var maxAge int
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Replace the CORS configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := validateOrigins(origins)
			if err != nil {
				return err
			}
			if maxAge < 0 {
				return fmt.Errorf("--max-age must not be negative")
			}
			return e.withStores(cmd.Context(), func(s *Stores) error {
				c := &models.CorsConfig{
					AllowedOrigins:   strings.Join(list, ","),
					AllowCredentials: allowCreds,
					MaxAge:           maxAge,
				}
				if err := s.CORS.Set(cmd.Context(), c); err != nil {
					return fmt.Errorf("set cors config: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "CORS configuration updated.")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&origins, "origins", "", "Comma-separated allowed origins (required)")
	cmd.Flags().BoolVar(&allowCreds, "allow-credentials", true, "Allow credentials")
	cmd.Flags().IntVar(&maxAge, "max-age", 86400, "Access-Control-Max-Age (seconds)")
	return cmd
}

// validateOrigins accepts scheme://host[:port] entries only
func validateOrigins(raw string) ([]string, error) {
	list := database.AllowedOriginsSlice(raw)
	if len(list) == 0 {
		return nil, fmt.Errorf("--origins is required (comma-separated list)")
	}
	for _, origin := range list {
		u, err := url.Parse(origin)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" || u.Path != "" {
			return nil, fmt.Errorf("invalid origin %q: want scheme://host[:port]", origin)
		}
	}
	return list, nil
}
