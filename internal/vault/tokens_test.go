package vault

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aegisline/corectl/internal/xerr"
)

func newTestManager(t *testing.T) *TokenManager {
	t.Helper()
	ring, err := NewKeyRing("HS256", 32, time.Hour)
	require.NoError(t, err)
	return NewTokenManager("test-issuer", ring, NewMemoryRevocationStore())
}

func TestTokenRoundTrip(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	token, claims, err := m.Mint("svc", "test-issuer", TokenAccess, time.Hour, []string{"read"}, nil, nil)
	require.NoError(t, err)

	got, err := m.Validate(ctx, token, "")
	require.NoError(t, err)
	require.Equal(t, claims.Subject, got.Subject)
	require.Equal(t, claims.Audience, got.Audience)
	require.Equal(t, claims.Roles, got.Roles)
	require.WithinDuration(t, claims.ExpiresAt, got.ExpiresAt, time.Second)
}

func TestRevocationClosure(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	token, claims, err := m.Mint("svc", "test-issuer", TokenAccess, time.Hour, nil, nil, nil)
	require.NoError(t, err)

	require.NoError(t, m.Revoke(ctx, claims.ID))

	_, err = m.Validate(ctx, token, "")
	require.Error(t, err)
	require.Equal(t, xerr.Unauthenticated, xerr.KindOf(err))

	// Idempotent: revoking again does not error.
	require.NoError(t, m.Revoke(ctx, claims.ID))
}

func TestKeyOverlap(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	t1, _, err := m.Mint("svc", "test-issuer", TokenAccess, time.Hour, nil, nil, nil)
	require.NoError(t, err)

	_, err = m.RotateKeys("")
	require.NoError(t, err)

	t2, _, err := m.Mint("svc", "test-issuer", TokenAccess, time.Hour, nil, nil, nil)
	require.NoError(t, err)

	_, err = m.Validate(ctx, t1, "")
	require.NoError(t, err, "token minted before rotation must still validate during the overlap window")

	_, err = m.Validate(ctx, t2, "")
	require.NoError(t, err)
}

func TestGarbageTokenIsUnauthenticated(t *testing.T) {
	m := newTestManager(t)
	// Three dot-separated segments whose header does not decode.
	_, err := m.Validate(context.Background(), "not.a.jwt", "")
	require.Error(t, err)
	require.Equal(t, xerr.Unauthenticated, xerr.KindOf(err))
}

func TestRefreshRequiresRefreshTypeAndIssuerAudience(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	access, _, err := m.Mint("svc", "test-issuer", TokenAccess, time.Hour, []string{"read"}, nil, nil)
	require.NoError(t, err)
	_, _, err = m.Refresh(ctx, access, time.Hour)
	require.Error(t, err, "an access token must not be usable as a refresh token")

	refresh, _, err := m.Mint("svc", "test-issuer", TokenRefresh, time.Hour, []string{"read"}, nil, nil)
	require.NoError(t, err)
	newAccess, claims, err := m.Refresh(ctx, refresh, time.Minute)
	require.NoError(t, err)
	require.Equal(t, TokenAccess, claims.Type)
	require.Equal(t, []string{"read"}, claims.Roles)

	_, err = m.Validate(ctx, newAccess, "")
	require.NoError(t, err)
}
