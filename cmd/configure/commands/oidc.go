package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/benvon/crux-journal/internal/database"
	"github.com/benvon/crux-journal/internal/models"
)

func newOIDCCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "oidc",
		Short: "Manage OIDC providers",
	}
	cmd.AddCommand(newOIDCSetCmd(e), newOIDCListCmd(e), newOIDCTestCmd(e), newOIDCDeleteCmd(e))
	return cmd
}

func newOIDCSetCmd(e *env) *cobra.Command {
	var issuer, domain, clientID, clientSecret, redirectURI, jwksURL string

	cmd := &cobra.Command{
		Use:   "set <provider-name>",
		Short: "Create or update an OIDC provider",
		Long:  "Provider name is any identifier the server selects with OIDC_PROVIDER (e.g. 'cognito', 'okta', 'auth0').",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			provider := strings.TrimSpace(args[0])
			issuer = strings.TrimRight(strings.TrimSpace(issuer), "/")
			if provider == "" {
				return fmt.Errorf("provider name cannot be empty")
			}
			if issuer == "" || clientID == "" || redirectURI == "" {
				return fmt.Errorf("required flags: --issuer, --client-id, --redirect-uri (--client-secret is optional for public clients)")
			}
			if jwksURL == "" {
				jwksURL = issuer + "/.well-known/jwks.json"
			}

			return e.withStores(cmd.Context(), func(s *Stores) error {
				ctx := cmd.Context()
				existing, err := s.OIDC.GetByProvider(ctx, provider)
				creating := errors.Is(err, database.ErrNotFound)
				if err != nil && !creating {
					return fmt.Errorf("failed to get OIDC config: %w", err)
				}
				if creating {
					existing = &models.OIDCConfig{ID: uuid.New(), Provider: provider}
				}

				existing.Issuer = issuer
				existing.ClientID = clientID
				existing.RedirectURI = redirectURI
				existing.JWKSUrl = &jwksURL
				existing.Domain = optional(domain)
				existing.ClientSecret = optional(clientSecret)

				if creating {
					if err := s.OIDC.Create(ctx, existing); err != nil {
						return fmt.Errorf("failed to create OIDC config: %w", err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Created OIDC configuration for provider: %s\n", provider)
					return nil
				}
				if err := s.OIDC.Update(ctx, existing); err != nil {
					return fmt.Errorf("failed to update OIDC config: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated OIDC configuration for provider: %s\n", provider)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&issuer, "issuer", "", "OIDC issuer URL (required)")
	cmd.Flags().StringVar(&domain, "domain", "", "OAuth2 domain, e.g. a Cognito custom domain")
	cmd.Flags().StringVar(&clientID, "client-id", "", "OAuth2 client ID (required)")
	cmd.Flags().StringVar(&clientSecret, "client-secret", "", "OAuth2 client secret (omit for public SPA clients)")
	cmd.Flags().StringVar(&redirectURI, "redirect-uri", "", "OAuth2 redirect URI (required)")
	cmd.Flags().StringVar(&jwksURL, "jwks-url", "", "JWKS URL (defaults to <issuer>/.well-known/jwks.json)")
	return cmd
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func newOIDCListCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured OIDC providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withStores(cmd.Context(), func(s *Stores) error {
				return printOIDC(cmd.Context(), cmd.OutOrStdout(), s.OIDC)
			})
		},
	}
}

func printOIDC(ctx context.Context, out io.Writer, store OIDCStore) error {
	configs, err := store.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to list OIDC configs: %w", err)
	}
	if len(configs) == 0 {
		fmt.Fprintln(out, "No OIDC providers configured")
		return nil
	}
	fmt.Fprintln(out, "Configured OIDC providers:")
	for _, c := range configs {
		fmt.Fprintf(out, "  - Provider: %s\n", c.Provider)
		fmt.Fprintf(out, "    Issuer: %s\n", c.Issuer)
		fmt.Fprintf(out, "    Client ID: %s\n", c.ClientID)
		fmt.Fprintf(out, "    Redirect URI: %s\n", c.RedirectURI)
		if c.JWKSUrl != nil {
			fmt.Fprintf(out, "    JWKS URL: %s\n", *c.JWKSUrl)
		}
	}
	return nil
}

func newOIDCDeleteCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <provider-name>",
		Short: "Remove an OIDC provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withStores(cmd.Context(), func(s *Stores) error {
				if err := s.OIDC.Delete(cmd.Context(), args[0]); err != nil {
					return fmt.Errorf("failed to delete OIDC config: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted OIDC configuration for provider: %s\n", args[0])
				return nil
			})
		},
	}
}

type discoveryDocument struct {
	Issuer                string `json:"issuer"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	JWKSURI               string `json:"jwks_uri"`
}

func newOIDCTestCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "test <provider-name>",
		Short: "Check that a provider's discovery and JWKS endpoints answer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withStores(cmd.Context(), func(s *Stores) error {
				ctx := cmd.Context()
				out := cmd.OutOrStdout()
				config, err := s.OIDC.GetByProvider(ctx, args[0])
				if err != nil {
					return fmt.Errorf("failed to get OIDC config: %w", err)
				}

				fmt.Fprintf(out, "Testing OIDC configuration for provider: %s\n", config.Provider)
				discoveryURL := config.Issuer + "/.well-known/openid-configuration"
				var doc discoveryDocument
				if err := getJSON(ctx, e.opts.HTTPClient, discoveryURL, &doc); err != nil {
					return fmt.Errorf("discovery endpoint: %w", err)
				}
				if doc.Issuer != config.Issuer {
					return fmt.Errorf("discovery issuer %q does not match configured issuer %q", doc.Issuer, config.Issuer)
				}
				fmt.Fprintf(out, "ok   discovery %s\n", discoveryURL)

				jwksURL := doc.JWKSURI
				if config.JWKSUrl != nil {
					jwksURL = *config.JWKSUrl
				}
				if jwksURL == "" {
					return errors.New("no JWKS URL configured or discovered")
				}
				var keys struct {
					Keys []json.RawMessage `json:"keys"`
				}
				if err := getJSON(ctx, e.opts.HTTPClient, jwksURL, &keys); err != nil {
					return fmt.Errorf("JWKS endpoint: %w", err)
				}
				if len(keys.Keys) == 0 {
					return fmt.Errorf("JWKS at %s has no keys", jwksURL)
				}
				fmt.Fprintf(out, "ok   jwks %s (%d keys)\n", jwksURL, len(keys.Keys))
				return nil
			})
		},
	}
}

func getJSON(ctx context.Context, client *http.Client, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}
