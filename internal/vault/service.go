// Package vault implements the Vault & Token Service (component A): the
// secret store and the token lifecycle, fronted by a single authoritative
// authorization predicate. Grounded in the go-zero auth service's domain
// layer and in the gourdiantoken library's token lifecycle, generalized
// from a user/session shape to a service-id/roles/scopes shape.
package vault

import (
	"context"
	"time"

	"github.com/zeromicro/go-zero/core/logx"
	"golang.org/x/crypto/bcrypt"

	"github.com/aegisline/corectl/internal/xerr"
)

// ServiceCredential is a registered caller of generate-token: a service-id,
// its bcrypt-hashed secret (grounded in auth.go's
// HashPassword/CheckPassword), and the roles it is permitted to request.
type ServiceCredential struct {
	ServiceID      string
	SecretHash     string
	PermittedRoles []string
}

// CredentialStore resolves a service-id to its registered credential.
type CredentialStore interface {
	Lookup(serviceID string) (ServiceCredential, bool)
}

type staticCredentialStore map[string]ServiceCredential

func (s staticCredentialStore) Lookup(serviceID string) (ServiceCredential, bool) {
	c, ok := s[serviceID]
	return c, ok
}

func NewStaticCredentialStore(creds ...ServiceCredential) CredentialStore {
	m := make(staticCredentialStore, len(creds))
	for _, c := range creds {
		m[c.ServiceID] = c
	}
	return m
}

// HashSecret bcrypt-hashes a service-secret for storage in a
// ServiceCredential, mirroring auth.HashPassword.
func HashSecret(secret string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", xerr.Wrap(xerr.Internal, err, "hash service secret")
	}
	return string(h), nil
}

func checkSecret(hash, secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}

// Service is the Vault & Token Service's public contract: token issuance,
// validation, rotation, revocation, and secret CRUD behind a single
// authorization predicate.
type Service struct {
	tokens      *TokenManager
	secrets     SecretStore
	policy      *PolicyTable
	credentials CredentialStore
	issuer      string
}

func NewService(issuer string, tokens *TokenManager, secrets SecretStore, policy *PolicyTable, credentials CredentialStore) *Service {
	return &Service{issuer: issuer, tokens: tokens, secrets: secrets, policy: policy, credentials: credentials}
}

// GenerateToken authenticates the caller by the service-id/service-secret
// pair; on success mints a token whose roles are the intersection of
// requested roles and those the service is permitted.
func (s *Service) GenerateToken(ctx context.Context, serviceID, serviceSecret string, ttl time.Duration, roles []string) (string, time.Time, []string, error) {
	if serviceID == "" || serviceSecret == "" {
		return "", time.Time{}, nil, xerr.New(xerr.InvalidArgument, "service-id and service-secret are required")
	}
	cred, ok := s.credentials.Lookup(serviceID)
	if !ok || !checkSecret(cred.SecretHash, serviceSecret) {
		return "", time.Time{}, nil, xerr.New(xerr.Unauthenticated, "invalid service credentials")
	}

	granted := IntersectRoles(roles, cred.PermittedRoles)
	token, claims, err := s.tokens.Mint(serviceID, s.issuer, TokenService, ttl, granted, nil, nil)
	if err != nil {
		return "", time.Time{}, nil, err
	}
	logx.WithContext(ctx).Infof("generated token for service %s with roles %v", serviceID, granted)
	return token, claims.ExpiresAt, granted, nil
}

// ValidateToken decodes token, verifies signature/time-bounds/revocation,
// and optionally checks the audience.
func (s *Service) ValidateToken(ctx context.Context, token string, expectedAudience string) (Claims, error) {
	return s.tokens.Validate(ctx, token, expectedAudience)
}

// Refresh mints an access token from a valid refresh token.
func (s *Service) Refresh(ctx context.Context, refreshToken string, accessTTL time.Duration) (string, Claims, error) {
	return s.tokens.Refresh(ctx, refreshToken, accessTTL)
}

// Revoke adds the token-id to the revocation set. Accepts either a raw
// token-id or a full token string for caller convenience; a full token is
// decoded (without requiring it to still be valid) to recover its id.
func (s *Service) Revoke(ctx context.Context, tokenIDOrToken string) error {
	id := tokenIDOrToken
	if looksLikeJWT(tokenIDOrToken) {
		if claims, err := decodeClaimsUnverified(tokenIDOrToken); err == nil {
			id = claims.ID
		} else if subject, legacyErr := decodeLegacyUnverified(tokenIDOrToken); legacyErr == nil {
			logx.WithContext(ctx).Infof("revoking legacy-format token for subject %s", subject)
			id = subject
		}
	}
	return s.tokens.Revoke(ctx, id)
}

// RotateKeys generates a fresh signing key and returns its id.
func (s *Service) RotateKeys(algorithm string) (string, error) {
	return s.tokens.RotateKeys(algorithm)
}

const (
	actionRead   = "read"
	actionWrite  = "write"
	actionDelete = "delete"
	actionList   = "list"
)

func secretResource(key string) string { return "secret/" + key }

// GetSecret authorizes then reads a secret.
func (s *Service) GetSecret(ctx context.Context, key string, token Claims) ([]byte, error) {
	if !s.IsAuthorized(token, secretResource(key), actionRead) {
		return nil, xerr.New(xerr.PermissionDenied, "not authorized to read secret")
	}
	sec, ok, err := s.secrets.Get(key)
	if err != nil {
		return nil, xerr.Wrap(xerr.Internal, err, "get secret")
	}
	if !ok {
		return nil, xerr.New(xerr.NotFound, "secret not found")
	}
	return sec.Value, nil
}

// SetSecret authorizes then writes a secret, optionally with a ttl and
// labels. Rotation is implicit: the store bumps the version on an existing
// key.
func (s *Service) SetSecret(ctx context.Context, key string, value []byte, ttl time.Duration, labels map[string]string, token Claims) error {
	if !s.IsAuthorized(token, secretResource(key), actionWrite) {
		return xerr.New(xerr.PermissionDenied, "not authorized to write secret")
	}
	sec := Secret{Key: key, Value: value, Labels: labels}
	if ttl > 0 {
		exp := time.Now().Add(ttl)
		sec.ExpiresAt = &exp
	}
	if err := s.secrets.Set(sec); err != nil {
		return xerr.Wrap(xerr.Internal, err, "set secret")
	}
	return nil
}

// DeleteSecret authorizes then deletes a secret.
func (s *Service) DeleteSecret(ctx context.Context, key string, token Claims) error {
	if !s.IsAuthorized(token, secretResource(key), actionDelete) {
		return xerr.New(xerr.PermissionDenied, "not authorized to delete secret")
	}
	if err := s.secrets.Delete(key); err != nil {
		return xerr.Wrap(xerr.Internal, err, "delete secret")
	}
	return nil
}

// ListSecrets authorizes then lists secrets under prefix.
func (s *Service) ListSecrets(ctx context.Context, prefix string, token Claims) ([]Secret, error) {
	if !s.IsAuthorized(token, secretResource(prefix), actionList) {
		return nil, xerr.New(xerr.PermissionDenied, "not authorized to list secrets")
	}
	secs, err := s.secrets.List(prefix)
	if err != nil {
		return nil, xerr.Wrap(xerr.Internal, err, "list secrets")
	}
	return secs, nil
}

// AuthenticateService validates token and checks authorization for
// (resource, action) in a single call, returning both bits plus the role
// set, for other services to use as a one-shot trust check.
func (s *Service) AuthenticateService(ctx context.Context, token, resource, action string) (authenticated, authorized bool, roles []string) {
	claims, err := s.tokens.Validate(ctx, token, "")
	if err != nil {
		return false, false, nil
	}
	return true, s.IsAuthorized(claims, resource, action), claims.Roles
}

// IsAuthorized is the predicate used internally by every gated operation.
func (s *Service) IsAuthorized(token Claims, resource, action string) bool {
	return s.policy.IsAuthorized(token.Roles, resource, action)
}
