package oidc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Settings is the static OIDC provider configuration, taken from the
// environment at startup
type Settings struct {
	Issuer       string
	JWKSURL      string
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// Configured reports whether enough settings are present to verify tokens
func (s Settings) Configured() bool {
	return s.Issuer != "" && s.JWKSURL != ""
}

// Provider exposes the identity provider's endpoints
type Provider struct {
	settings Settings
}

// NewProvider creates a provider from static settings
func NewProvider(settings Settings) *Provider {
	return &Provider{settings: settings}
}

// Settings returns the provider settings
func (p *Provider) Settings() Settings {
	return p.settings
}

// LoginConfig contains the OIDC login configuration served to the frontend
type LoginConfig struct {
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	ClientID              string `json:"client_id"`
	RedirectURI           string `json:"redirect_uri"`
	Scope                 string `json:"scope"`
}

// GetLoginConfig resolves the endpoints the frontend needs to start a login.
// Endpoints come from the issuer's OIDC discovery document when reachable;
// otherwise they are constructed from the issuer URL.
func (p *Provider) GetLoginConfig(ctx context.Context) (*LoginConfig, error) {
	if p.settings.Issuer == "" {
		return nil, fmt.Errorf("OIDC issuer not configured")
	}

	authEndpoint, tokenEndpoint := p.discoverEndpoints(ctx)

	if authEndpoint == "" {
		authEndpoint = joinIssuerPath(p.settings.Issuer, "oauth2/authorize")
	}
	if tokenEndpoint == "" {
		tokenEndpoint = joinIssuerPath(p.settings.Issuer, "oauth2/token")
	}

	return &LoginConfig{
		AuthorizationEndpoint: authEndpoint,
		TokenEndpoint:         tokenEndpoint,
		ClientID:              p.settings.ClientID,
		RedirectURI:           p.settings.RedirectURI,
		Scope:                 "openid email profile",
	}, nil
}

func (p *Provider) discoverEndpoints(ctx context.Context) (authEndpoint, tokenEndpoint string) {
	discoveryURL := joinIssuerPath(p.settings.Issuer, ".well-known/openid-configuration")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, discoveryURL, nil)
	if err != nil {
		return "", ""
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		if resp != nil {
			_ = resp.Body.Close()
		}
		return "", ""
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var discovery struct {
		AuthorizationEndpoint string `json:"authorization_endpoint"`
		TokenEndpoint         string `json:"token_endpoint"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&discovery); err != nil {
		return "", ""
	}
	return discovery.AuthorizationEndpoint, discovery.TokenEndpoint
}

func joinIssuerPath(issuer, path string) string {
	return strings.TrimSuffix(issuer, "/") + "/" + path
}
