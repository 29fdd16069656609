package oidc

import (
	"context"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Claims are the identity claims the API uses from a verified token
type Claims struct {
	Subject  string
	Email    string
	Name     string
	Issuer   string
	Audience string
	Expires  time.Time
}

// KeySource returns the signing keys published at a JWKS URL
type KeySource interface {
	GetJWKS(ctx context.Context, jwksURL string) (jwk.Set, error)
}

var _ KeySource = (*JWKSManager)(nil)

// Verifier verifies bearer tokens against the issuer's published keys
type Verifier struct {
	keys   KeySource
	issuer string
	skew   time.Duration
}

// NewVerifier creates a new JWT verifier
func NewVerifier(keys KeySource, issuer string) *Verifier {
	return &Verifier{
		keys:   keys,
		issuer: issuer,
		skew:   30 * time.Second,
	}
}

// Verify checks the token signature, expiry and issuer, then extracts its claims
func (v *Verifier) Verify(ctx context.Context, tokenString, jwksURL string) (*Claims, error) {
	keys, err := v.keys.GetJWKS(ctx, jwksURL)
	if err != nil {
		return nil, err
	}

	token, err := jwt.Parse([]byte(tokenString),
		jwt.WithKeySet(keys),
		jwt.WithValidate(true),
		jwt.WithIssuer(v.issuer),
		jwt.WithAcceptableSkew(v.skew),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to verify token: %w", err)
	}
	if token.Subject() == "" {
		return nil, fmt.Errorf("token missing sub claim")
	}

	claims := &Claims{
		Subject: token.Subject(),
		Issuer:  token.Issuer(),
		Expires: token.Expiration(),
		Email:   stringClaim(token, "email"),
		Name:    stringClaim(token, "name"),
	}
	if aud := token.Audience(); len(aud) > 0 {
		claims.Audience = aud[0]
	}
	return claims, nil
}

func stringClaim(token jwt.Token, name string) string {
	v, ok := token.Get(name)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}
