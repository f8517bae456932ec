package grpcsrv

import (
	"context"
	"time"

	"github.com/aegisline/corectl/internal/vault"
	"github.com/aegisline/corectl/internal/xerr"
)

// bearerTokenKey stashes the raw bearer token a RemoteVaultAPI validated
// inside the Claims it hands back, since GetSecret's wire contract needs
// the original token (vaultd re-validates it server-side) but
// secretsclient.VaultAPI's GetSecret only carries Claims forward from a
// prior ValidateToken call. The token never leaves this process: Claims
// built this way are never re-serialized, only read back by GetSecret
// below.
const bearerTokenKey = "_corectl_bearer_token"

// RemoteVaultAPI adapts a *Client to secretsclient.VaultAPI, letting
// cmd/agentcore's Secrets Client front the Vault & Token Service over a
// real gRPC connection instead of the in-process *vault.Service the
// server-side tests in server_test.go use directly.
type RemoteVaultAPI struct {
	client *Client
}

func NewRemoteVaultAPI(client *Client) *RemoteVaultAPI {
	return &RemoteVaultAPI{client: client}
}

func (r *RemoteVaultAPI) GenerateToken(ctx context.Context, serviceID, serviceSecret string, ttl time.Duration, roles []string) (string, time.Time, []string, error) {
	resp, err := r.client.GenerateToken(ctx, &GenerateTokenRequest{
		ServiceID:     serviceID,
		ServiceSecret: serviceSecret,
		TTLSeconds:    int64(ttl.Seconds()),
		Roles:         roles,
	})
	if err != nil {
		return "", time.Time{}, nil, err
	}
	return resp.Token, time.Unix(resp.ExpiresAt, 0).UTC(), resp.Roles, nil
}

func (r *RemoteVaultAPI) ValidateToken(ctx context.Context, token, expectedAudience string) (vault.Claims, error) {
	resp, err := r.client.ValidateToken(ctx, &ValidateTokenRequest{Token: token, ExpectedAudience: expectedAudience})
	if err != nil {
		return vault.Claims{}, err
	}
	claims := msgToClaims(resp.Claims)
	if claims.Custom == nil {
		claims.Custom = make(map[string]interface{}, 1)
	}
	claims.Custom[bearerTokenKey] = token
	return claims, nil
}

func (r *RemoteVaultAPI) GetSecret(ctx context.Context, key string, token vault.Claims) ([]byte, error) {
	raw, ok := token.Custom[bearerTokenKey].(string)
	if !ok || raw == "" {
		return nil, xerr.New(xerr.Unauthenticated, "claims did not originate from this client's ValidateToken call").WithDetail("missing_bearer_token")
	}
	resp, err := r.client.GetSecret(ctx, &GetSecretRequest{Key: key, Token: raw})
	if err != nil {
		return nil, err
	}
	return resp.Value, nil
}

func (r *RemoteVaultAPI) AuthenticateService(ctx context.Context, token, resource, action string) (authenticated, authorized bool, roles []string) {
	resp, err := r.client.AuthenticateService(ctx, &AuthenticateServiceRequest{Token: token, Resource: resource, Action: action})
	if err != nil {
		return false, false, nil
	}
	return resp.Authenticated, resp.Authorized, resp.Roles
}
