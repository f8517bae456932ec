package vault

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	hash, err := HashSecret("correct-horse")
	require.NoError(t, err)

	creds := NewStaticCredentialStore(ServiceCredential{
		ServiceID:      "agentcore",
		SecretHash:     hash,
		PermittedRoles: []string{"secrets-reader", "secrets-writer"},
	})
	policy := NewPolicyTable(
		Role{Name: "secrets-reader", Permissions: []Permission{{ResourcePattern: "secret/*", Action: actionRead}}},
		Role{Name: "secrets-writer", Permissions: []Permission{
			{ResourcePattern: "secret/*", Action: actionWrite},
			{ResourcePattern: "secret/*", Action: actionDelete},
			{ResourcePattern: "secret/*", Action: actionList},
		}},
	)
	return NewService("corectl", newTestManager(t), NewMemorySecretStore(), policy, creds)
}

func TestGenerateTokenRejectsBadCredentials(t *testing.T) {
	s := newTestService(t)
	_, _, _, err := s.GenerateToken(context.Background(), "agentcore", "wrong", time.Hour, []string{"secrets-reader"})
	require.Error(t, err)
}

func TestGenerateTokenGrantsOnlyPermittedRoles(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	token, _, roles, err := s.GenerateToken(ctx, "agentcore", "correct-horse", time.Hour, []string{"secrets-reader", "nonexistent-role"})
	require.NoError(t, err)
	require.Equal(t, []string{"secrets-reader"}, roles)

	claims, err := s.ValidateToken(ctx, token, "")
	require.NoError(t, err)
	require.Equal(t, []string{"secrets-reader"}, claims.Roles)
}

func TestSecretLifecycleIsGatedByRole(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	readToken, _, _, err := s.GenerateToken(ctx, "agentcore", "correct-horse", time.Hour, []string{"secrets-reader"})
	require.NoError(t, err)
	readClaims, err := s.ValidateToken(ctx, readToken, "")
	require.NoError(t, err)

	writeToken, _, _, err := s.GenerateToken(ctx, "agentcore", "correct-horse", time.Hour, []string{"secrets-writer"})
	require.NoError(t, err)
	writeClaims, err := s.ValidateToken(ctx, writeToken, "")
	require.NoError(t, err)

	err = s.SetSecret(ctx, "llm-api-key/prod", []byte("sk-test"), 0, nil, readClaims)
	require.Error(t, err, "a reader must not be able to write")

	err = s.SetSecret(ctx, "llm-api-key/prod", []byte("sk-test"), 0, nil, writeClaims)
	require.NoError(t, err)

	got, err := s.GetSecret(ctx, "llm-api-key/prod", readClaims)
	require.NoError(t, err)
	require.Equal(t, []byte("sk-test"), got)

	_, err = s.GetSecret(ctx, "llm-api-key/prod", writeClaims)
	require.Error(t, err, "a writer without the reader role must not be able to read")

	require.NoError(t, s.DeleteSecret(ctx, "llm-api-key/prod", writeClaims))
	_, err = s.GetSecret(ctx, "llm-api-key/prod", readClaims)
	require.Error(t, err)
}

func TestAuthenticateServiceReportsBothBits(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	token, _, _, err := s.GenerateToken(ctx, "agentcore", "correct-horse", time.Hour, []string{"secrets-reader"})
	require.NoError(t, err)

	authenticated, authorized, roles := s.AuthenticateService(ctx, token, "secret/llm-api-key/prod", actionRead)
	require.True(t, authenticated)
	require.True(t, authorized)
	require.Equal(t, []string{"secrets-reader"}, roles)

	_, authorized, _ = s.AuthenticateService(ctx, token, "secret/llm-api-key/prod", actionWrite)
	require.False(t, authorized)

	authenticated, _, _ = s.AuthenticateService(ctx, "garbage", "secret/x", actionRead)
	require.False(t, authenticated)
}
