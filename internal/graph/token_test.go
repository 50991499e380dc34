package graph

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeIdentity struct {
	calls int
	cred  Credential
	err   error
}

func (f *fakeIdentity) AcquireToken(ctx context.Context, scopes []string, skipCache bool) (Credential, error) {
	f.calls++
	if f.err != nil {
		return Credential{}, f.err
	}
	return f.cred, nil
}

func TestTokenCache_RefreshMargin(t *testing.T) {
	now := time.Now()
	expiry := now.Add(time.Hour)
	identity := &fakeIdentity{cred: Credential{AccessToken: "tok", ExpiresAt: expiry}}

	tc := NewTokenCache(identity, nil, zaptest.NewLogger(t))
	tc.now = func() time.Time { return now }

	_, err := tc.GetToken(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, 1, identity.calls)

	// 6 minutes before expiry: cached credential still served.
	tc.now = func() time.Time { return expiry.Add(-6 * time.Minute) }
	_, err = tc.GetToken(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, 1, identity.calls)

	// 4 minutes before expiry: within the margin, must refresh.
	identity.cred.ExpiresAt = expiry.Add(time.Hour)
	tc.now = func() time.Time { return expiry.Add(-4 * time.Minute) }
	_, err = tc.GetToken(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, 2, identity.calls)
}

func TestTokenCache_ForceRefresh(t *testing.T) {
	now := time.Now()
	identity := &fakeIdentity{cred: Credential{AccessToken: "tok", ExpiresAt: now.Add(time.Hour)}}

	tc := NewTokenCache(identity, nil, zaptest.NewLogger(t))
	tc.now = func() time.Time { return now }

	_, err := tc.GetToken(context.Background(), false)
	require.NoError(t, err)
	_, err = tc.GetToken(context.Background(), true)
	require.NoError(t, err)
	require.Equal(t, 2, identity.calls)
}

func TestTokenCache_AcquisitionFailure(t *testing.T) {
	identity := &fakeIdentity{err: errors.New("provider down")}
	tc := NewTokenCache(identity, nil, zaptest.NewLogger(t))

	_, err := tc.GetToken(context.Background(), false)
	require.ErrorIs(t, err, ErrAuthAcquisition)

	// A previously cached token must not be served after a forced refresh
	// fails.
	identity.err = nil
	identity.cred = Credential{AccessToken: "tok", ExpiresAt: time.Now().Add(time.Hour)}
	_, err = tc.GetToken(context.Background(), false)
	require.NoError(t, err)

	identity.err = errors.New("provider down again")
	_, err = tc.GetToken(context.Background(), true)
	require.ErrorIs(t, err, ErrAuthAcquisition)

	identity.err = nil
	_, err = tc.GetToken(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, 4, identity.calls)
}
