package oidc

import (
	"context"

	"golang.org/x/oauth2"
)

// Client wraps the OAuth2 authorization-code flow against the provider
type Client struct {
	config *oauth2.Config
}

// NewClient creates an OAuth2 client from provider settings
func NewClient(settings Settings) *Client {
	config := &oauth2.Config{
		ClientID:     settings.ClientID,
		ClientSecret: settings.ClientSecret,
		RedirectURL:  settings.RedirectURI,
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  joinIssuerPath(settings.Issuer, "oauth2/authorize"),
			TokenURL: joinIssuerPath(settings.Issuer, "oauth2/token"),
		},
	}
	return &Client{config: config}
}

// ExchangeCode exchanges an authorization code for tokens
func (c *Client) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	return c.config.Exchange(ctx, code)
}

// AuthCodeURL returns the authorization URL for the given state
func (c *Client) AuthCodeURL(state string) string {
	return c.config.AuthCodeURL(state)
}
