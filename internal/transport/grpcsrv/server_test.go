package grpcsrv

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/aegisline/corectl/internal/transport"
	"github.com/aegisline/corectl/internal/vault"
)

const bufSize = 1 << 20

func newTestVaultService(t *testing.T) *vault.Service {
	t.Helper()
	hash, err := vault.HashSecret("correct-horse")
	require.NoError(t, err)
	creds := vault.NewStaticCredentialStore(vault.ServiceCredential{
		ServiceID:      "agentcore",
		SecretHash:     hash,
		PermittedRoles: []string{"secrets-reader", "secrets-writer"},
	})
	policy := vault.NewPolicyTable(
		vault.Role{Name: "secrets-reader", Permissions: []vault.Permission{{ResourcePattern: "secret/*", Action: "read"}}},
		vault.Role{Name: "secrets-writer", Permissions: []vault.Permission{
			{ResourcePattern: "secret/*", Action: "write"},
			{ResourcePattern: "secret/*", Action: "delete"},
			{ResourcePattern: "secret/*", Action: "list"},
		}},
	)
	keys, err := vault.NewKeyRing("HS256", 32, time.Hour)
	require.NoError(t, err)
	tokens := vault.NewTokenManager("corectl-test", keys, vault.NewMemoryRevocationStore())
	return vault.NewService("corectl-test", tokens, vault.NewMemorySecretStore(), policy, creds)
}

func dialTestServer(t *testing.T, srv *VaultServer) *Client {
	t.Helper()
	lis := bufconn.Listen(bufSize)
	s := grpc.NewServer()
	Register(s, srv)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	dialer := func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }
	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(dialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return NewClient(conn)
}

func TestGenerateTokenThenValidateTokenRoundTrips(t *testing.T) {
	client := dialTestServer(t, NewVaultServer(newTestVaultService(t), nil))
	ctx := context.Background()

	genResp, err := client.GenerateToken(ctx, &GenerateTokenRequest{
		ServiceID:     "agentcore",
		ServiceSecret: "correct-horse",
		TTLSeconds:    3600,
		Roles:         []string{"secrets-reader"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, genResp.Token)
	require.Equal(t, []string{"secrets-reader"}, genResp.Roles)

	valResp, err := client.ValidateToken(ctx, &ValidateTokenRequest{Token: genResp.Token})
	require.NoError(t, err)
	require.Equal(t, []string{"secrets-reader"}, valResp.Claims.Roles)
}

func TestGenerateTokenRejectsBadCredentialsOverRPC(t *testing.T) {
	client := dialTestServer(t, NewVaultServer(newTestVaultService(t), nil))
	_, err := client.GenerateToken(context.Background(), &GenerateTokenRequest{
		ServiceID:     "agentcore",
		ServiceSecret: "wrong",
		TTLSeconds:    3600,
	})
	require.Error(t, err)
}

func TestSetSecretThenGetSecretRoundTripsOverRPC(t *testing.T) {
	client := dialTestServer(t, NewVaultServer(newTestVaultService(t), nil))
	ctx := context.Background()

	genResp, err := client.GenerateToken(ctx, &GenerateTokenRequest{
		ServiceID: "agentcore", ServiceSecret: "correct-horse", TTLSeconds: 3600,
		Roles: []string{"secrets-writer"},
	})
	require.NoError(t, err)

	_, err = client.SetSecret(ctx, &SetSecretRequest{Key: "llm-api-key/prod", Value: []byte("sk-test"), Token: genResp.Token})
	require.NoError(t, err)

	getResp, err := client.GetSecret(ctx, &GetSecretRequest{Key: "llm-api-key/prod", Token: genResp.Token})
	require.NoError(t, err)
	require.Equal(t, []byte("sk-test"), getResp.Value)
}

func TestSetSecretRejectsReaderRole(t *testing.T) {
	client := dialTestServer(t, NewVaultServer(newTestVaultService(t), nil))
	ctx := context.Background()

	readerResp, err := client.GenerateToken(ctx, &GenerateTokenRequest{
		ServiceID: "agentcore", ServiceSecret: "correct-horse", TTLSeconds: 3600,
		Roles: []string{"secrets-reader"},
	})
	require.NoError(t, err)

	_, err = client.SetSecret(ctx, &SetSecretRequest{Key: "llm-api-key/prod", Value: []byte("sk-test"), Token: readerResp.Token})
	require.Error(t, err)
}

func TestHealthCheckReportsRegistryState(t *testing.T) {
	registry := transport.NewRegistry("vaultd")
	client := dialTestServer(t, NewVaultServer(newTestVaultService(t), registry))

	resp, err := client.HealthCheck(context.Background(), "")
	require.NoError(t, err)
	require.True(t, resp.Healthy)
	require.Equal(t, "vaultd", resp.ServiceName)
	require.Equal(t, string(transport.StatusServing), resp.Status)
}
