package oidc

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/benvon/crux-journal/internal/models"
)

var defaultScopes = []string{"openid", "email", "profile"}

// Client exchanges authorization codes with the identity provider
type Client struct {
	config *oauth2.Config
}

// NewClient creates an OAuth2 client. Public clients have no secret.
func NewClient(oidcConfig *models.OIDCConfig, authURL, tokenURL string) *Client {
	clientSecret := ""
	if oidcConfig.ClientSecret != nil {
		clientSecret = *oidcConfig.ClientSecret
	}

	return &Client{config: &oauth2.Config{
		ClientID:     oidcConfig.ClientID,
		ClientSecret: clientSecret,
		RedirectURL:  oidcConfig.RedirectURI,
		Scopes:       defaultScopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  authURL,
			TokenURL: tokenURL,
		},
	}}
}

// ExchangeCode exchanges an authorization code for tokens. codeVerifier is the PKCE
// verifier the frontend generated, or "" when PKCE is not in use.
func (c *Client) ExchangeCode(ctx context.Context, code, codeVerifier string) (*oauth2.Token, error) {
	var opts []oauth2.AuthCodeOption
	if codeVerifier != "" {
		opts = append(opts, oauth2.VerifierOption(codeVerifier))
	}
	token, err := c.config.Exchange(ctx, code, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	return token, nil
}

// AuthCodeURL returns the authorization URL for state
func (c *Client) AuthCodeURL(state string) string {
	return c.config.AuthCodeURL(state)
}
