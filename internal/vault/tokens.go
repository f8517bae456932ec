package vault

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/zeromicro/go-zero/core/logx"

	"github.com/aegisline/corectl/internal/xerr"
)

// RevocationRetention is the default grace period a revoked token-id stays
// rejected for.
const RevocationRetention = 30 * 24 * time.Hour

// RevocationStore records revoked token-ids with a retention deadline.
// Revocation writes must fail closed: if the store can't record a
// revocation, the Revoke call fails rather than let the caller believe a
// token is revoked when it is not.
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, retainUntil time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// TokenManager owns the signing key ring and the revocation store, and
// implements the Vault's token lifecycle: generate, validate, refresh,
// revoke, rotate-keys. It serializes issuance across all callers of one
// TokenManager, so a generate-then-validate pair from the same caller
// always observes the mint.
type TokenManager struct {
	keys       *KeyRing
	revocation RevocationStore
	issuer     string

	mintMu sync.Mutex // serializes issuance per TokenManager instance
}

func NewTokenManager(issuer string, keys *KeyRing, revocation RevocationStore) *TokenManager {
	return &TokenManager{issuer: issuer, keys: keys, revocation: revocation}
}

// Mint signs a fresh token for subject/audience/type/roles/scopes with the
// given ttl, under the current signing key. notBefore defaults to now.
func (m *TokenManager) Mint(subject, audience string, typ TokenType, ttl time.Duration, roles, scopes []string, custom map[string]interface{}) (string, Claims, error) {
	m.mintMu.Lock()
	defer m.mintMu.Unlock()

	key := m.keys.Current()
	if key == nil {
		return "", Claims{}, xerr.New(xerr.Internal, "no current signing key")
	}

	now := time.Now()
	claims := Claims{
		ID:        uuid.NewString(),
		Subject:   subject,
		Audience:  audience,
		Type:      typ,
		Roles:     append([]string(nil), roles...),
		Scopes:    append([]string(nil), scopes...),
		IssuedAt:  now,
		NotBefore: now,
		ExpiresAt: now.Add(ttl),
		KeyID:     key.ID,
		Custom:    custom,
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claimsToJWT(claims))
	tok.Header["kid"] = key.ID

	signed, err := tok.SignedString(key.secret)
	if err != nil {
		return "", Claims{}, xerr.Wrap(xerr.Internal, err, "sign token")
	}
	return signed, claims, nil
}

// Validate decodes token, resolves its signing key by kid, verifies the
// signature and time bounds, checks the revocation set, and optionally the
// audience. Every failure path here - bad signature, expiry, revocation,
// unknown key-id - returns the same Unauthenticated kind so a caller cannot
// distinguish them by oracle, except a missing kid header, which is
// InvalidArgument since that is a malformed request rather than a rejected
// credential.
func (m *TokenManager) Validate(ctx context.Context, token string, expectedAudience string) (Claims, error) {
	var claims jwtClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		kidRaw, ok := t.Header["kid"]
		if !ok {
			return nil, errMissingKID
		}
		kid, _ := kidRaw.(string)
		if kid == "" {
			return nil, errMissingKID
		}
		key, ok := m.keys.Lookup(kid)
		if !ok {
			return nil, errUnauthenticated
		}
		return key.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))

	if errors.Is(err, errMissingKID) {
		return Claims{}, xerr.New(xerr.InvalidArgument, "token header lacks a key id")
	}
	if err != nil || !parsed.Valid {
		return Claims{}, xerr.New(xerr.Unauthenticated, "token validation failed")
	}

	kid, _ := parsed.Header["kid"].(string)
	if !m.keys.Valid(kid) {
		return Claims{}, xerr.New(xerr.Unauthenticated, "token validation failed")
	}

	revoked, err := m.revocation.IsRevoked(ctx, claims.ID)
	if err != nil {
		return Claims{}, xerr.Wrap(xerr.Internal, err, "check revocation")
	}
	if revoked {
		return Claims{}, xerr.New(xerr.Unauthenticated, "token validation failed")
	}

	out := jwtToClaims(claims, kid)
	if expectedAudience != "" && out.Audience != expectedAudience {
		return Claims{}, xerr.New(xerr.Unauthenticated, "token validation failed")
	}
	return out, nil
}

// Refresh mints an access token from a valid refresh token. The refresh
// token's type must be TokenRefresh and its audience must equal the issuer,
// so a refresh token minted for one issuer cannot be replayed against
// another.
func (m *TokenManager) Refresh(ctx context.Context, refreshToken string, accessTTL time.Duration) (string, Claims, error) {
	claims, err := m.Validate(ctx, refreshToken, m.issuer)
	if err != nil {
		return "", Claims{}, err
	}
	if claims.Type != TokenRefresh {
		return "", Claims{}, xerr.New(xerr.Unauthenticated, "token validation failed")
	}
	return m.Mint(claims.Subject, claims.Audience, TokenAccess, accessTTL, claims.Roles, claims.Scopes, claims.Custom)
}

// Revoke adds tokenID to the revocation set with the default retention
// deadline. Idempotent.
func (m *TokenManager) Revoke(ctx context.Context, tokenID string) error {
	until := time.Now().Add(RevocationRetention)
	if err := m.revocation.Revoke(ctx, tokenID, until); err != nil {
		logx.WithContext(ctx).Errorf("revoke %s failed, failing closed: %v", tokenID, err)
		return xerr.Wrap(xerr.Internal, err, "revoke token")
	}
	return nil
}

// RotateKeys generates a fresh signing key and returns its id.
func (m *TokenManager) RotateKeys(algorithm string) (string, error) {
	return m.keys.Rotate(algorithm)
}

var (
	errMissingKID      = fmt.Errorf("missing kid")
	errUnauthenticated = fmt.Errorf("unauthenticated")
)
