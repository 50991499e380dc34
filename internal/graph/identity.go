package graph

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2/clientcredentials"
)

// Credential is a bearer token for the remote drive API together with its
// absolute expiry.
type Credential struct {
	AccessToken string
	ExpiresAt   time.Time
}

// IdentityClient acquires app-only credentials from the identity provider.
// skipCache asks the provider client to bypass any caching of its own; the
// portal-side caching lives in TokenCache.
type IdentityClient interface {
	AcquireToken(ctx context.Context, scopes []string, skipCache bool) (Credential, error)
}

// OAuthIdentityClient implements IdentityClient with the standard
// client-credential grant. No user interaction is involved.
type OAuthIdentityClient struct {
	conf *clientcredentials.Config
}

func NewOAuthIdentityClient(tokenURL, clientID, clientSecret string, scopes []string) *OAuthIdentityClient {
	return &OAuthIdentityClient{
		conf: &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
			Scopes:       scopes,
		},
	}
}

func (c *OAuthIdentityClient) AcquireToken(ctx context.Context, scopes []string, skipCache bool) (Credential, error) {
	conf := c.conf
	if len(scopes) > 0 {
		clone := *c.conf
		clone.Scopes = scopes
		conf = &clone
	}
	// Config.Token builds a fresh token source per call, so every invocation
	// hits the provider; skipCache is implicit here.
	_ = skipCache
	tok, err := conf.Token(ctx)
	if err != nil {
		return Credential{}, fmt.Errorf("client credential exchange failed: %w", err)
	}
	return Credential{AccessToken: tok.AccessToken, ExpiresAt: tok.Expiry}, nil
}
