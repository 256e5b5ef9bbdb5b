package oidc

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
)

// jwksEntry is one cached key set
type jwksEntry struct {
	keys    jwk.Set
	expires time.Time
	mu      sync.RWMutex
}

// JWKSManager fetches and caches JWKS key sets per URL. Keys rotate rarely,
// so a fixed TTL keeps verification off the network for most requests.
type JWKSManager struct {
	cache map[string]*jwksEntry
	mu    sync.RWMutex
	ttl   time.Duration
}

// NewJWKSManager creates a JWKS manager with a one hour cache TTL
func NewJWKSManager() *JWKSManager {
	return &JWKSManager{
		cache: make(map[string]*jwksEntry),
		ttl:   1 * time.Hour,
	}
}

// GetJWKS retrieves the key set for a JWKS URL, from cache when fresh
func (m *JWKSManager) GetJWKS(ctx context.Context, jwksURL string) (jwk.Set, error) {
	m.mu.RLock()
	entry, exists := m.cache[jwksURL]
	m.mu.RUnlock()

	if exists {
		entry.mu.RLock()
		if time.Now().Before(entry.expires) && entry.keys != nil {
			keys := entry.keys
			entry.mu.RUnlock()
			return keys, nil
		}
		entry.mu.RUnlock()
	}

	keys, err := m.fetchJWKS(ctx, jwksURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch JWKS: %w", err)
	}

	m.mu.Lock()
	m.cache[jwksURL] = &jwksEntry{
		keys:    keys,
		expires: time.Now().Add(m.ttl),
	}
	m.mu.Unlock()

	return keys, nil
}

func (m *JWKSManager) fetchJWKS(ctx context.Context, jwksURL string) (jwk.Set, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jwksURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch JWKS: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("JWKS endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read JWKS response: %w", err)
	}

	keys, err := jwk.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWKS: %w", err)
	}

	return keys, nil
}
