package grpcsrv

import (
	"context"
	"time"

	"google.golang.org/grpc"

	"github.com/aegisline/corectl/internal/transport"
	"github.com/aegisline/corectl/internal/vault"
	"github.com/aegisline/corectl/internal/xerr"
)

// VaultServer implements the Vault & Token Service's RPC surface on top of a
// *vault.Service, translating the wire structs in messages.go to and from
// the service's native Go types. Grounded in the rpc server
// pattern (services/gateway/services/auth exposes its domain behind an RPC
// boundary the same way), adapted here to hand-registered methods since no
// protoc-generated ServiceServer interface exists to implement.
type VaultServer struct {
	vault    *vault.Service
	registry *transport.Registry
}

func NewVaultServer(v *vault.Service, registry *transport.Registry) *VaultServer {
	return &VaultServer{vault: v, registry: registry}
}

func (s *VaultServer) generateToken(ctx context.Context, req *GenerateTokenRequest) (*GenerateTokenResponse, error) {
	token, expiresAt, roles, err := s.vault.GenerateToken(ctx, req.ServiceID, req.ServiceSecret, time.Duration(req.TTLSeconds)*time.Second, req.Roles)
	if err != nil {
		return nil, statusOf(err)
	}
	return &GenerateTokenResponse{Token: token, ExpiresAt: expiresAt.Unix(), Roles: roles}, nil
}

func (s *VaultServer) validateToken(ctx context.Context, req *ValidateTokenRequest) (*ValidateTokenResponse, error) {
	claims, err := s.vault.ValidateToken(ctx, req.Token, req.ExpectedAudience)
	if err != nil {
		return nil, statusOf(err)
	}
	return &ValidateTokenResponse{Claims: claimsToMsg(claims)}, nil
}

// validateApiKey treats the supplied key as an unscoped token: it validates
// the same way validateToken does with no audience requirement, per
// messages.go's ValidateApiKeyRequest doc.
func (s *VaultServer) validateApiKey(ctx context.Context, req *ValidateApiKeyRequest) (*ValidateApiKeyResponse, error) {
	claims, err := s.vault.ValidateToken(ctx, req.ApiKey, "")
	if err != nil {
		return &ValidateApiKeyResponse{Valid: false}, nil
	}
	return &ValidateApiKeyResponse{Valid: true, Claims: claimsToMsg(claims)}, nil
}

func (s *VaultServer) checkPermission(ctx context.Context, req *CheckPermissionRequest) (*CheckPermissionResponse, error) {
	claims, err := s.vault.ValidateToken(ctx, resolveToken(ctx, req.Token), "")
	if err != nil {
		return nil, statusOf(err)
	}
	return &CheckPermissionResponse{Authorized: s.vault.IsAuthorized(claims, req.Resource, req.Action)}, nil
}

func (s *VaultServer) tokenRevoke(ctx context.Context, req *TokenRevokeRequest) (*TokenRevokeResponse, error) {
	if err := s.vault.Revoke(ctx, req.TokenOrID); err != nil {
		return nil, statusOf(err)
	}
	return &TokenRevokeResponse{}, nil
}

func (s *VaultServer) getSecret(ctx context.Context, req *GetSecretRequest) (*GetSecretResponse, error) {
	claims, err := s.vault.ValidateToken(ctx, resolveToken(ctx, req.Token), "")
	if err != nil {
		return nil, statusOf(err)
	}
	value, err := s.vault.GetSecret(ctx, req.Key, claims)
	if err != nil {
		return nil, statusOf(err)
	}
	return &GetSecretResponse{Value: value}, nil
}

func (s *VaultServer) setSecret(ctx context.Context, req *SetSecretRequest) (*SetSecretResponse, error) {
	claims, err := s.vault.ValidateToken(ctx, resolveToken(ctx, req.Token), "")
	if err != nil {
		return nil, statusOf(err)
	}
	ttl := time.Duration(req.TTLSeconds) * time.Second
	if err := s.vault.SetSecret(ctx, req.Key, req.Value, ttl, req.Labels, claims); err != nil {
		return nil, statusOf(err)
	}
	return &SetSecretResponse{}, nil
}

func (s *VaultServer) deleteSecret(ctx context.Context, req *DeleteSecretRequest) (*DeleteSecretResponse, error) {
	claims, err := s.vault.ValidateToken(ctx, resolveToken(ctx, req.Token), "")
	if err != nil {
		return nil, statusOf(err)
	}
	if err := s.vault.DeleteSecret(ctx, req.Key, claims); err != nil {
		return nil, statusOf(err)
	}
	return &DeleteSecretResponse{}, nil
}

func (s *VaultServer) listSecrets(ctx context.Context, req *ListSecretsRequest) (*ListSecretsResponse, error) {
	claims, err := s.vault.ValidateToken(ctx, resolveToken(ctx, req.Token), "")
	if err != nil {
		return nil, statusOf(err)
	}
	secrets, err := s.vault.ListSecrets(ctx, req.Prefix, claims)
	if err != nil {
		return nil, statusOf(err)
	}
	out := make([]SecretMsg, 0, len(secrets))
	for _, sec := range secrets {
		out = append(out, secretToMsg(sec))
	}
	return &ListSecretsResponse{Secrets: out}, nil
}

func (s *VaultServer) authenticateService(ctx context.Context, req *AuthenticateServiceRequest) (*AuthenticateServiceResponse, error) {
	authenticated, authorized, roles := s.vault.AuthenticateService(ctx, resolveToken(ctx, req.Token), req.Resource, req.Action)
	return &AuthenticateServiceResponse{Authenticated: authenticated, Authorized: authorized, Roles: roles}, nil
}

func (s *VaultServer) healthCheck(ctx context.Context, _ *HealthCheckRequest) (*HealthCheckResponse, error) {
	if s.registry == nil {
		return nil, statusOf(xerr.New(xerr.FailedPrecondition, "no health registry configured"))
	}
	report := s.registry.Report(ctx)
	return &HealthCheckResponse{
		Healthy:       report.Healthy,
		ServiceName:   report.ServiceName,
		UptimeSeconds: report.UptimeSeconds,
		Status:        string(report.Status),
		Dependencies:  report.Dependencies,
	}, nil
}

// vaultServiceName is the gRPC service name clients dial against.
const vaultServiceName = "corectl.vault.VaultService"

func unaryHandler[Req any, Resp any](fn func(*VaultServer, context.Context, *Req) (*Resp, error)) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		req := new(Req)
		if err := dec(req); err != nil {
			return nil, err
		}
		s := srv.(*VaultServer)
		if interceptor == nil {
			return fn(s, ctx, req)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: vaultServiceName}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return fn(s, ctx, req.(*Req))
		}
		return interceptor(ctx, req, info, handler)
	}
}

var vaultServiceDesc = grpc.ServiceDesc{
	ServiceName: vaultServiceName,
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GenerateToken", Handler: unaryHandler((*VaultServer).generateToken)},
		{MethodName: "ValidateToken", Handler: unaryHandler((*VaultServer).validateToken)},
		{MethodName: "ValidateApiKey", Handler: unaryHandler((*VaultServer).validateApiKey)},
		{MethodName: "CheckPermission", Handler: unaryHandler((*VaultServer).checkPermission)},
		{MethodName: "TokenRevoke", Handler: unaryHandler((*VaultServer).tokenRevoke)},
		{MethodName: "GetSecret", Handler: unaryHandler((*VaultServer).getSecret)},
		{MethodName: "SetSecret", Handler: unaryHandler((*VaultServer).setSecret)},
		{MethodName: "DeleteSecret", Handler: unaryHandler((*VaultServer).deleteSecret)},
		{MethodName: "ListSecrets", Handler: unaryHandler((*VaultServer).listSecrets)},
		{MethodName: "AuthenticateService", Handler: unaryHandler((*VaultServer).authenticateService)},
		{MethodName: "HealthCheck", Handler: unaryHandler((*VaultServer).healthCheck)},
	},
	Metadata: "corectl/vault.proto",
}

// Register attaches srv's methods to s, using the json codec registered in
// codec.go rather than a protoc-generated RegisterVaultServiceServer.
func Register(s *grpc.Server, srv *VaultServer) {
	s.RegisterService(&vaultServiceDesc, srv)
}
