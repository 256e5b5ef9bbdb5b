package commands

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/taskpilot/api/internal/config"
	"github.com/taskpilot/api/internal/services/oidc"
)

// NewTestCmd creates the test command
func NewTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Test OIDC configuration",
		Long:  "Validate the configured OIDC issuer by probing its discovery and JWKS endpoints.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			settings := oidc.Settings{
				Issuer:   cfg.OIDCIssuer,
				JWKSURL:  cfg.OIDCJWKSURL,
				ClientID: cfg.OIDCClientID,
			}
			if !settings.Configured() {
				return fmt.Errorf("OIDC_ISSUER and OIDC_JWKS_URL must be set")
			}

			fmt.Printf("Testing OIDC configuration\n")
			fmt.Printf("Issuer: %s\n", settings.Issuer)

			client := &http.Client{Timeout: 10 * time.Second}

			discoveryURL := settings.Issuer + "/.well-known/openid-configuration"
			fmt.Printf("\nProbing discovery endpoint: %s\n", discoveryURL)
			if err := probe(client, discoveryURL); err != nil {
				fmt.Printf("  FAILED: %v\n", err)
			} else {
				fmt.Println("  OK")
			}

			fmt.Printf("\nFetching JWKS: %s\n", settings.JWKSURL)
			jwksManager := oidc.NewJWKSManager()
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			keys, err := jwksManager.GetJWKS(ctx, settings.JWKSURL)
			if err != nil {
				fmt.Printf("  FAILED: %v\n", err)
				return fmt.Errorf("JWKS fetch failed")
			}
			fmt.Printf("  OK (%d key(s))\n", keys.Len())

			return nil
		},
	}
}

func probe(client *http.Client, url string) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}
