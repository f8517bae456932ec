package grpcsrv

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

// Client wraps a *grpc.ClientConn to the Vault & Token Service, the plain
// Go analogue of the defaultAuth{cli zrpc.Client} wrapper
// (services/gateway/services/auth/rpc/authClient/auth.go): one typed method
// per RPC, each invoking the codec-registered call under the hood instead
// of a protoc-generated client stub.
type Client struct {
	conn *grpc.ClientConn
}

// Dial opens a connection to target (host:port) with the json codec
// negotiated for every call. Pass grpc.WithTransportCredentials(credentials.NewTLS(...))
// in opts for mutual TLS; insecure.NewCredentials() is used only when the
// caller supplies no transport credential option.
func Dial(target string, opts ...grpc.DialOption) (*Client, error) {
	// Put the insecure default first so a caller-supplied
	// WithTransportCredentials (mutual TLS) in opts overrides it.
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

func NewClient(conn *grpc.ClientConn) *Client {
	return &Client{conn: conn}
}

func (c *Client) Close() error { return c.conn.Close() }

func callOpts() []grpc.CallOption {
	return []grpc.CallOption{grpc.CallContentSubtype(codecName)}
}

func fullMethod(name string) string {
	return "/" + vaultServiceName + "/" + name
}

// withBearer attaches token as the authorization metadata entry, for
// methods (HealthCheck) with no request field to carry it.
func withBearer(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, "authorization", bearerPrefix+token)
}

func (c *Client) GenerateToken(ctx context.Context, req *GenerateTokenRequest) (*GenerateTokenResponse, error) {
	resp := new(GenerateTokenResponse)
	if err := c.conn.Invoke(ctx, fullMethod("GenerateToken"), req, resp, callOpts()...); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) ValidateToken(ctx context.Context, req *ValidateTokenRequest) (*ValidateTokenResponse, error) {
	resp := new(ValidateTokenResponse)
	if err := c.conn.Invoke(ctx, fullMethod("ValidateToken"), req, resp, callOpts()...); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) ValidateApiKey(ctx context.Context, req *ValidateApiKeyRequest) (*ValidateApiKeyResponse, error) {
	resp := new(ValidateApiKeyResponse)
	if err := c.conn.Invoke(ctx, fullMethod("ValidateApiKey"), req, resp, callOpts()...); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) CheckPermission(ctx context.Context, req *CheckPermissionRequest) (*CheckPermissionResponse, error) {
	resp := new(CheckPermissionResponse)
	if err := c.conn.Invoke(ctx, fullMethod("CheckPermission"), req, resp, callOpts()...); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) TokenRevoke(ctx context.Context, req *TokenRevokeRequest) (*TokenRevokeResponse, error) {
	resp := new(TokenRevokeResponse)
	if err := c.conn.Invoke(ctx, fullMethod("TokenRevoke"), req, resp, callOpts()...); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) GetSecret(ctx context.Context, req *GetSecretRequest) (*GetSecretResponse, error) {
	resp := new(GetSecretResponse)
	if err := c.conn.Invoke(ctx, fullMethod("GetSecret"), req, resp, callOpts()...); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) SetSecret(ctx context.Context, req *SetSecretRequest) (*SetSecretResponse, error) {
	resp := new(SetSecretResponse)
	if err := c.conn.Invoke(ctx, fullMethod("SetSecret"), req, resp, callOpts()...); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) DeleteSecret(ctx context.Context, req *DeleteSecretRequest) (*DeleteSecretResponse, error) {
	resp := new(DeleteSecretResponse)
	if err := c.conn.Invoke(ctx, fullMethod("DeleteSecret"), req, resp, callOpts()...); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) ListSecrets(ctx context.Context, req *ListSecretsRequest) (*ListSecretsResponse, error) {
	resp := new(ListSecretsResponse)
	if err := c.conn.Invoke(ctx, fullMethod("ListSecrets"), req, resp, callOpts()...); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) AuthenticateService(ctx context.Context, req *AuthenticateServiceRequest) (*AuthenticateServiceResponse, error) {
	resp := new(AuthenticateServiceResponse)
	if err := c.conn.Invoke(ctx, fullMethod("AuthenticateService"), req, resp, callOpts()...); err != nil {
		return nil, err
	}
	return resp, nil
}

// HealthCheck takes an optional bearer token since some deployments gate
// the health route; most do not, and an empty token is simply omitted from
// the call's metadata.
func (c *Client) HealthCheck(ctx context.Context, bearerToken string) (*HealthCheckResponse, error) {
	resp := new(HealthCheckResponse)
	ctx = withBearer(ctx, bearerToken)
	if err := c.conn.Invoke(ctx, fullMethod("HealthCheck"), &HealthCheckRequest{}, resp, callOpts()...); err != nil {
		return nil, err
	}
	return resp, nil
}
