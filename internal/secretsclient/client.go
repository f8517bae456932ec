// Package secretsclient gives every non-core service cached, authenticated,
// resilient access to the Vault & Token Service: it owns its own service
// token, refreshes it ahead of expiry, caches secret reads and token
// verifications, and trips a circuit breaker rather than hammering a
// struggling Vault. Grounded in the go-zero-based service client pattern
// at services/gateway/services/auth/rpc/authClient/auth.go and in
// go-zero's own core/collection and core/breaker packages.
package secretsclient

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/zeromicro/go-zero/core/breaker"
	"github.com/zeromicro/go-zero/core/collection"
	"github.com/zeromicro/go-zero/core/logx"

	"github.com/aegisline/corectl/internal/vault"
	"github.com/aegisline/corectl/internal/xerr"
)

// DefaultRefreshMargin is how far ahead of a cached token's expiry the
// client mints a fresh one, so a call never starts with a token that
// expires mid-flight.
const DefaultRefreshMargin = 300 * time.Second

// DefaultSecretCacheTTL bounds how long a secret value is served from
// cache. Get-secret's Vault contract returns only the byte value (secrets
// do not each carry a client-visible expiry), so this is the client's own
// freshness bound rather than a value relayed from Vault.
const DefaultSecretCacheTTL = 5 * time.Minute

const breakerName = "vault-secrets-client"
const maxRetryAttempts = 3

// VaultAPI is the subset of vault.Service this client depends on. Kept as
// an interface so the client can front either the in-process vault.Service
// directly or grpcsrv.RemoteVaultAPI, which carries the same method set
// over RPC.
type VaultAPI interface {
	GenerateToken(ctx context.Context, serviceID, serviceSecret string, ttl time.Duration, roles []string) (string, time.Time, []string, error)
	ValidateToken(ctx context.Context, token string, expectedAudience string) (vault.Claims, error)
	GetSecret(ctx context.Context, key string, token vault.Claims) ([]byte, error)
	AuthenticateService(ctx context.Context, token, resource, action string) (authenticated, authorized bool, roles []string)
}

type cachedSecret struct {
	value  []byte
	expiry time.Time
}

type cachedClaims struct {
	claims vault.Claims
	expiry time.Time
}

// Client is the Secrets Client's public contract.
type Client struct {
	vault         VaultAPI
	serviceID     string
	serviceSecret string
	audience      string
	tokenTTL      time.Duration
	refreshMargin time.Duration

	secretCache *collection.Cache
	claimsCache *collection.Cache

	tokenMu     sync.Mutex
	token       string
	tokenClaims vault.Claims
	tokenExpiry time.Time

	mock          bool
	mockFallbacks map[string][]byte
}

// Option configures a Client at construction.
type Option func(*Client)

// WithAudience sets the audience Vault tokens are validated against.
func WithAudience(audience string) Option {
	return func(c *Client) { c.audience = audience }
}

// WithTokenTTL overrides the ttl requested on each generate-token call.
func WithTokenTTL(ttl time.Duration) Option {
	return func(c *Client) { c.tokenTTL = ttl }
}

// WithMockFallback registers a value GetSecret returns for key while the
// client is in mock mode.
func WithMockFallback(key string, value []byte) Option {
	return func(c *Client) {
		if c.mockFallbacks == nil {
			c.mockFallbacks = make(map[string][]byte)
		}
		c.mockFallbacks[key] = value
	}
}

// NewClient builds a Secrets Client in front of vaultAPI. A nil vaultAPI
// puts the client into mock mode immediately: a warning is logged so this
// is never silently reached in production, and GetSecret serves only
// configured fallbacks, failing closed otherwise.
func NewClient(vaultAPI VaultAPI, serviceID, serviceSecret string, opts ...Option) *Client {
	c := &Client{
		vault:         vaultAPI,
		serviceID:     serviceID,
		serviceSecret: serviceSecret,
		tokenTTL:      time.Hour,
		refreshMargin: DefaultRefreshMargin,
		secretCache:   mustCache(),
		claimsCache:   mustCache(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if vaultAPI == nil {
		c.mock = true
		logx.Errorf("secrets client %s constructed with no Vault transport, entering mock mode", serviceID)
	}
	return c
}

func mustCache() *collection.Cache {
	c, err := collection.NewCache(DefaultSecretCacheTTL)
	if err != nil {
		// collection.NewCache only fails on a malformed option, and this
		// package never supplies one.
		panic(err)
	}
	return c
}

// IsMock reports whether the client is operating without a live Vault
// transport.
func (c *Client) IsMock() bool { return c.mock }

// authenticate returns a usable service token, minting a fresh one if the
// cached one is within refreshMargin of expiring.
func (c *Client) authenticate(ctx context.Context) (string, vault.Claims, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry.Add(-c.refreshMargin)) {
		return c.token, c.tokenClaims, nil
	}

	var token string
	var expiry time.Time
	err := c.callVault(ctx, "generate-token", func() error {
		var genErr error
		token, expiry, _, genErr = c.vault.GenerateToken(ctx, c.serviceID, c.serviceSecret, c.tokenTTL, nil)
		return genErr
	})
	if err != nil {
		return "", vault.Claims{}, err
	}

	claims, err := c.vault.ValidateToken(ctx, token, c.audience)
	if err != nil {
		return "", vault.Claims{}, err
	}

	c.token, c.tokenExpiry, c.tokenClaims = token, expiry, claims
	return token, claims, nil
}

// invalidateToken drops the cached service token, forcing the next
// authenticate call to mint a fresh one.
func (c *Client) invalidateToken() {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()
	c.token = ""
	c.tokenClaims = vault.Claims{}
	c.tokenExpiry = time.Time{}
}

// GetSecret returns key's value, serving from cache when fresh.
func (c *Client) GetSecret(ctx context.Context, key string) ([]byte, error) {
	if c.mock {
		if v, ok := c.mockFallbacks[key]; ok {
			return v, nil
		}
		return nil, xerr.New(xerr.FailedPrecondition, "no Vault transport and no mock fallback configured").WithDetail("configuration_error")
	}

	if v, ok := c.secretCache.Get(key); ok {
		entry := v.(cachedSecret)
		if time.Now().Before(entry.expiry) {
			return entry.value, nil
		}
	}

	_, claims, err := c.authenticate(ctx)
	if err != nil {
		return nil, err
	}

	var value []byte
	err = c.callVault(ctx, "get-secret", func() error {
		var getErr error
		value, getErr = c.vault.GetSecret(ctx, key, claims)
		return getErr
	})
	if err != nil {
		if xerr.KindOf(err) == xerr.Unauthenticated {
			c.invalidateToken()
		}
		return nil, err
	}

	c.secretCache.Set(key, cachedSecret{value: value, expiry: time.Now().Add(DefaultSecretCacheTTL)})
	return value, nil
}

// VerifyToken validates an arbitrary caller-supplied token, caching the
// decoded claims until the token's own expiry.
func (c *Client) VerifyToken(ctx context.Context, token string) (vault.Claims, error) {
	if c.mock {
		return vault.Claims{}, xerr.New(xerr.FailedPrecondition, "no Vault transport configured").WithDetail("configuration_error")
	}

	if v, ok := c.claimsCache.Get(token); ok {
		entry := v.(cachedClaims)
		if time.Now().Before(entry.expiry) {
			return entry.claims, nil
		}
	}

	var claims vault.Claims
	err := c.callVault(ctx, "validate-token", func() error {
		var verr error
		claims, verr = c.vault.ValidateToken(ctx, token, c.audience)
		return verr
	})
	if err != nil {
		return vault.Claims{}, err
	}

	c.claimsCache.Set(token, cachedClaims{claims: claims, expiry: claims.ExpiresAt})
	return claims, nil
}

// IsAuthorized authenticates as this client's own service identity and
// asks Vault whether that identity may perform action on resource.
func (c *Client) IsAuthorized(ctx context.Context, resource, action string) (bool, error) {
	if c.mock {
		return false, xerr.New(xerr.FailedPrecondition, "no Vault transport configured").WithDetail("configuration_error")
	}

	token, _, err := c.authenticate(ctx)
	if err != nil {
		return false, err
	}

	var authorized bool
	err = c.callVault(ctx, "authenticate-service", func() error {
		authenticated, ok, _ := c.vault.AuthenticateService(ctx, token, resource, action)
		if !authenticated {
			return xerr.New(xerr.Unauthenticated, "service token rejected by vault")
		}
		authorized = ok
		return nil
	})
	if err != nil {
		if xerr.KindOf(err) == xerr.Unauthenticated {
			c.invalidateToken()
		}
		return false, err
	}
	return authorized, nil
}

// Reconnect re-establishes the client's working state after a dropped
// transport. There is no persistent connection object to reset here (the
// client calls Vault per-request), so reconnecting means discarding the
// cached token and letting the next call re-authenticate; it is a no-op,
// and safe to call repeatedly, in mock mode.
func (c *Client) Reconnect() error {
	if c.mock {
		return nil
	}
	c.invalidateToken()
	return nil
}

// IsHealthy attempts authenticate with no side effects beyond refreshing
// the cached token.
func (c *Client) IsHealthy(ctx context.Context) bool {
	if c.mock {
		return false
	}
	_, _, err := c.authenticate(ctx)
	return err == nil
}

// callVault runs fn behind a circuit breaker, retrying only
// Unavailable/DeadlineExceeded failures, up to maxRetryAttempts.
func (c *Client) callVault(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 0; attempt < maxRetryAttempts; attempt++ {
		err = throughBreaker(op, fn)
		if err == nil || !xerr.Retryable(err) {
			return err
		}
		logx.WithContext(ctx).Infof("retrying vault %s after retryable error: %v", op, err)
	}
	return err
}

func throughBreaker(name string, fn func() error) error {
	acceptable := func(err error) bool {
		if err == nil {
			return true
		}
		switch xerr.KindOf(err) {
		case xerr.Unavailable, xerr.DeadlineExceeded, xerr.Internal:
			return false
		default:
			return true
		}
	}
	err := breaker.GetBreaker(breakerName + ":" + name).DoWithAcceptable(fn, acceptable)
	if errors.Is(err, breaker.ErrServiceUnavailable) {
		return xerr.New(xerr.Unavailable, "vault circuit breaker open").WithDetail(name)
	}
	return err
}
