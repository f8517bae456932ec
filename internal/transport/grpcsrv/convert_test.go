package grpcsrv

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aegisline/corectl/internal/vault"
)

func TestClaimsRoundTripThroughMsg(t *testing.T) {
	now := time.Now().Truncate(time.Second).UTC()
	claims := vault.Claims{
		ID:        "jti-1",
		Subject:   "agentcore",
		Audience:  "corectl",
		Type:      vault.TokenService,
		Roles:     []string{"secrets-reader"},
		IssuedAt:  now,
		NotBefore: now,
		ExpiresAt: now.Add(time.Hour),
		KeyID:     "k1",
	}

	msg := claimsToMsg(claims)
	back := msgToClaims(msg)

	require.Equal(t, claims.ID, back.ID)
	require.Equal(t, claims.Roles, back.Roles)
	require.True(t, claims.ExpiresAt.Equal(back.ExpiresAt))
	require.Equal(t, claims.KeyID, back.KeyID)
}

func TestSecretToMsgOmitsExpiryWhenUnset(t *testing.T) {
	sec := vault.Secret{Key: "k", Version: 1}
	msg := secretToMsg(sec)
	require.Zero(t, msg.ExpiresAt)
}
