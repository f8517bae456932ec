package secretsclient

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aegisline/corectl/internal/vault"
	"github.com/aegisline/corectl/internal/xerr"
)

type fakeVault struct {
	generateCalls int
	getSecretCalls int
	validateCalls int

	secrets map[string][]byte
	failNextGetSecretWith error
}

func newFakeVault() *fakeVault {
	return &fakeVault{secrets: map[string][]byte{"db-password": []byte("hunter2")}}
}

func (f *fakeVault) GenerateToken(ctx context.Context, serviceID, serviceSecret string, ttl time.Duration, roles []string) (string, time.Time, []string, error) {
	f.generateCalls++
	return "tok-" + serviceID, time.Now().Add(ttl), roles, nil
}

func (f *fakeVault) ValidateToken(ctx context.Context, token string, expectedAudience string) (vault.Claims, error) {
	f.validateCalls++
	if token == "bad" {
		return vault.Claims{}, xerr.New(xerr.Unauthenticated, "bad token")
	}
	return vault.Claims{Subject: "agentcore", ID: token, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (f *fakeVault) GetSecret(ctx context.Context, key string, token vault.Claims) ([]byte, error) {
	f.getSecretCalls++
	if f.failNextGetSecretWith != nil {
		err := f.failNextGetSecretWith
		f.failNextGetSecretWith = nil
		return nil, err
	}
	v, ok := f.secrets[key]
	if !ok {
		return nil, xerr.New(xerr.NotFound, "secret not found")
	}
	return v, nil
}

func (f *fakeVault) AuthenticateService(ctx context.Context, token, resource, action string) (bool, bool, []string) {
	if token == "" {
		return false, false, nil
	}
	return true, action == "read", []string{"reader"}
}

func TestGetSecretCachesAfterFirstFetch(t *testing.T) {
	fv := newFakeVault()
	c := NewClient(fv, "agentcore", "secret")

	v, err := c.GetSecret(context.Background(), "db-password")
	require.NoError(t, err)
	require.Equal(t, []byte("hunter2"), v)
	require.Equal(t, 1, fv.getSecretCalls)
	require.Equal(t, 1, fv.generateCalls)

	v, err = c.GetSecret(context.Background(), "db-password")
	require.NoError(t, err)
	require.Equal(t, []byte("hunter2"), v)
	require.Equal(t, 1, fv.getSecretCalls, "second call must be served from cache")
	require.Equal(t, 1, fv.generateCalls, "second call must reuse the cached service token")
}

func TestGetSecretReauthenticatesOnUnauthenticated(t *testing.T) {
	fv := newFakeVault()
	fv.failNextGetSecretWith = xerr.New(xerr.Unauthenticated, "token rejected")
	c := NewClient(fv, "agentcore", "secret")

	_, err := c.GetSecret(context.Background(), "db-password")
	require.Error(t, err)
	require.Equal(t, xerr.Unauthenticated, xerr.KindOf(err))

	v, err := c.GetSecret(context.Background(), "db-password")
	require.NoError(t, err)
	require.Equal(t, []byte("hunter2"), v)
	require.Equal(t, 2, fv.generateCalls, "an unauthenticated failure must force re-authentication")
}

func TestVerifyTokenCachesUntilClaimsExpiry(t *testing.T) {
	fv := newFakeVault()
	c := NewClient(fv, "agentcore", "secret")

	claims, err := c.VerifyToken(context.Background(), "tok-1")
	require.NoError(t, err)
	require.Equal(t, "agentcore", claims.Subject)
	require.Equal(t, 1, fv.validateCalls)

	_, err = c.VerifyToken(context.Background(), "tok-1")
	require.NoError(t, err)
	require.Equal(t, 1, fv.validateCalls, "second call must be served from the claims cache")
}

func TestVerifyTokenPropagatesRejection(t *testing.T) {
	fv := newFakeVault()
	c := NewClient(fv, "agentcore", "secret")

	_, err := c.VerifyToken(context.Background(), "bad")
	require.Error(t, err)
	require.Equal(t, xerr.Unauthenticated, xerr.KindOf(err))
}

func TestIsAuthorizedDelegatesToAuthenticateService(t *testing.T) {
	fv := newFakeVault()
	c := NewClient(fv, "agentcore", "secret")

	ok, err := c.IsAuthorized(context.Background(), "secret/x", "read")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = c.IsAuthorized(context.Background(), "secret/x", "write")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMockModeServesOnlyConfiguredFallbacks(t *testing.T) {
	c := NewClient(nil, "agentcore", "secret", WithMockFallback("k1", []byte("fallback")))
	require.True(t, c.IsMock())

	v, err := c.GetSecret(context.Background(), "k1")
	require.NoError(t, err)
	require.Equal(t, []byte("fallback"), v)

	_, err = c.GetSecret(context.Background(), "k2")
	require.Error(t, err)
	require.Equal(t, xerr.FailedPrecondition, xerr.KindOf(err))
}

func TestReconnectForcesReauthentication(t *testing.T) {
	fv := newFakeVault()
	c := NewClient(fv, "agentcore", "secret")

	_, err := c.GetSecret(context.Background(), "db-password")
	require.NoError(t, err)
	require.Equal(t, 1, fv.generateCalls)

	require.NoError(t, c.Reconnect())

	_, err = c.GetSecret(context.Background(), "db-password")
	require.NoError(t, err)
	require.Equal(t, 2, fv.generateCalls, "reconnect must force a fresh token on the next call")
}

func TestIsHealthy(t *testing.T) {
	fv := newFakeVault()
	c := NewClient(fv, "agentcore", "secret")
	require.True(t, c.IsHealthy(context.Background()))
	require.False(t, NewClient(nil, "agentcore", "secret").IsHealthy(context.Background()))
}
