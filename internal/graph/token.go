package graph

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrAuthAcquisition marks a failed token acquisition. Callers must not fall
// back to a stale or absent token when they see it.
var ErrAuthAcquisition = errors.New("token acquisition failed")

// refreshMargin is how long before expiry a cached credential stops being
// handed out.
const refreshMargin = 5 * time.Minute

// TokenCache keeps one app credential in memory and refreshes it before it
// runs into the expiry margin. It is safe for concurrent use; redundant
// refreshes would be harmless since the provider call is idempotent, the
// mutex just avoids them.
type TokenCache struct {
	identity IdentityClient
	scopes   []string
	logger   *zap.Logger

	now func() time.Time

	mu     sync.Mutex
	cached *Credential
}

func NewTokenCache(identity IdentityClient, scopes []string, logger *zap.Logger) *TokenCache {
	return &TokenCache{
		identity: identity,
		scopes:   scopes,
		logger:   logger,
		now:      time.Now,
	}
}

// GetToken returns a credential that is valid for at least the refresh
// margin, acquiring a new one when the cached credential is absent, forced
// out, or too close to expiry.
func (tc *TokenCache) GetToken(ctx context.Context, forceRefresh bool) (Credential, error) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	if !forceRefresh && tc.cached != nil && tc.now().Add(refreshMargin).Before(tc.cached.ExpiresAt) {
		return *tc.cached, nil
	}

	cred, err := tc.identity.AcquireToken(ctx, tc.scopes, forceRefresh)
	if err != nil {
		tc.cached = nil
		return Credential{}, fmt.Errorf("%w: %v", ErrAuthAcquisition, err)
	}

	tc.logger.Info("acquired drive API token", zap.Time("expires_at", cred.ExpiresAt))
	tc.cached = &cred
	return cred, nil
}
