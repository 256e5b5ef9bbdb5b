package oidc

import (
	"context"
	"fmt"

	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/taskpilot/api/internal/models"
)

// Verifier verifies session JWTs against the provider's key set
type Verifier struct {
	jwksManager *JWKSManager
	issuer      string
	audience    string // optional; skipped when empty
}

// NewVerifier creates a JWT verifier for the given issuer. audience, when
// set, must match the token's aud claim.
func NewVerifier(jwksManager *JWKSManager, issuer, audience string) *Verifier {
	return &Verifier{
		jwksManager: jwksManager,
		issuer:      issuer,
		audience:    audience,
	}
}

// Verify checks the token's signature, expiry, issuer and audience, and
// extracts the claims the rest of the service needs
func (v *Verifier) Verify(ctx context.Context, tokenString, jwksURL string) (*models.JWTClaims, error) {
	keys, err := v.jwksManager.GetJWKS(ctx, jwksURL)
	if err != nil {
		return nil, fmt.Errorf("failed to get JWKS: %w", err)
	}

	opts := []jwt.ParseOption{
		jwt.WithKeySet(keys),
		jwt.WithValidate(true),
		jwt.WithIssuer(v.issuer),
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	token, err := jwt.Parse([]byte(tokenString), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse/verify token: %w", err)
	}

	claims := &models.JWTClaims{
		Sub: token.Subject(),
		Iss: token.Issuer(),
		Exp: token.Expiration().Unix(),
		Iat: token.IssuedAt().Unix(),
	}

	if aud := token.Audience(); len(aud) > 0 {
		claims.Aud = aud[0]
	}

	if email, ok := token.Get("email"); ok {
		if emailStr, ok := email.(string); ok {
			claims.Email = emailStr
		}
	}

	if name, ok := token.Get("name"); ok {
		if nameStr, ok := name.(string); ok {
			claims.Name = nameStr
		}
	}

	if claims.Sub == "" {
		return nil, fmt.Errorf("token missing subject claim")
	}

	return claims, nil
}
