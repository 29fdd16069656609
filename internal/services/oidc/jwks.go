package oidc

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"golang.org/x/sync/singleflight"
)

const defaultJWKSTTL = time.Hour

type cachedKeySet struct {
	keys    jwk.Set
	expires time.Time
}

// JWKSManager fetches and caches signing keys per JWKS URL.
// Concurrent misses for the same URL share one fetch.
type JWKSManager struct {
	mu         sync.RWMutex
	cache      map[string]cachedKeySet
	group      singleflight.Group
	ttl        time.Duration
	httpClient *http.Client
	now        func() time.Time
}

// NewJWKSManager creates a new JWKS manager
func NewJWKSManager() *JWKSManager {
	return &JWKSManager{
		cache:      make(map[string]cachedKeySet),
		ttl:        defaultJWKSTTL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		now:        time.Now,
	}
}

// GetJWKS returns the key set at jwksURL, fetching it when absent or stale
func (m *JWKSManager) GetJWKS(ctx context.Context, jwksURL string) (jwk.Set, error) {
	m.mu.RLock()
	entry, ok := m.cache[jwksURL]
	m.mu.RUnlock()
	if ok && m.now().Before(entry.expires) {
		return entry.keys, nil
	}

	v, err, _ := m.group.Do(jwksURL, func() (any, error) {
		keys, err := jwk.Fetch(ctx, jwksURL, jwk.WithHTTPClient(m.httpClient))
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.cache[jwksURL] = cachedKeySet{keys: keys, expires: m.now().Add(m.ttl)}
		m.mu.Unlock()
		return keys, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch JWKS: %w", err)
	}
	return v.(jwk.Set), nil
}
