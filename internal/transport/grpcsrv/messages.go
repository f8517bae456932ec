package grpcsrv

// ClaimsMsg is the wire shape of vault.Claims: times travel as unix seconds
// since the JSON codec has no native time.Time framing guarantee across
// languages, matching how a protobuf Timestamp would have been flattened.
type ClaimsMsg struct {
	ID        string                 `json:"jti"`
	Subject   string                 `json:"sub"`
	Audience  string                 `json:"aud"`
	Type      string                 `json:"typ"`
	Roles     []string               `json:"roles"`
	Scopes    []string               `json:"scopes,omitempty"`
	IssuedAt  int64                  `json:"issued_at"`
	NotBefore int64                  `json:"not_before"`
	ExpiresAt int64                  `json:"expires_at"`
	KeyID     string                 `json:"kid"`
	Custom    map[string]interface{} `json:"custom,omitempty"`
}

type GenerateTokenRequest struct {
	ServiceID     string   `json:"service_id"`
	ServiceSecret string   `json:"service_secret"`
	TTLSeconds    int64    `json:"ttl_seconds"`
	Roles         []string `json:"roles"`
}

type GenerateTokenResponse struct {
	Token     string   `json:"token"`
	ExpiresAt int64    `json:"expires_at"`
	Roles     []string `json:"roles"`
}

type ValidateTokenRequest struct {
	Token            string `json:"token"`
	ExpectedAudience string `json:"expected_audience"`
}

type ValidateTokenResponse struct {
	Claims ClaimsMsg `json:"claims"`
}

// ValidateApiKeyRequest validates a bearer credential the same way
// ValidateToken does, without requiring an audience match; it exists as its
// own method per the canonical RPC surface for callers that treat a Vault
// token as an opaque API key rather than a scoped access token.
type ValidateApiKeyRequest struct {
	ApiKey string `json:"api_key"`
}

type ValidateApiKeyResponse struct {
	Valid  bool      `json:"valid"`
	Claims ClaimsMsg `json:"claims"`
}

type CheckPermissionRequest struct {
	Token    string `json:"token"`
	Resource string `json:"resource"`
	Action   string `json:"action"`
}

type CheckPermissionResponse struct {
	Authorized bool `json:"authorized"`
}

type TokenRevokeRequest struct {
	TokenOrID string `json:"token_or_id"`
}

type TokenRevokeResponse struct{}

type GetSecretRequest struct {
	Key   string `json:"key"`
	Token string `json:"token"`
}

type GetSecretResponse struct {
	Value []byte `json:"value"`
}

type SetSecretRequest struct {
	Key        string            `json:"key"`
	Value      []byte            `json:"value"`
	TTLSeconds int64             `json:"ttl_seconds"`
	Labels     map[string]string `json:"labels,omitempty"`
	Token      string            `json:"token"`
}

type SetSecretResponse struct{}

type DeleteSecretRequest struct {
	Key   string `json:"key"`
	Token string `json:"token"`
}

type DeleteSecretResponse struct{}

type ListSecretsRequest struct {
	Prefix string `json:"prefix"`
	Token  string `json:"token"`
}

type SecretMsg struct {
	Key       string            `json:"key"`
	CreatedAt int64             `json:"created_at"`
	UpdatedAt int64             `json:"updated_at"`
	ExpiresAt int64             `json:"expires_at,omitempty"`
	Version   int64             `json:"version"`
	Labels    map[string]string `json:"labels,omitempty"`
}

type ListSecretsResponse struct {
	Secrets []SecretMsg `json:"secrets"`
}

type AuthenticateServiceRequest struct {
	Token    string `json:"token"`
	Resource string `json:"resource"`
	Action   string `json:"action"`
}

type AuthenticateServiceResponse struct {
	Authenticated bool     `json:"authenticated"`
	Authorized    bool     `json:"authorized"`
	Roles         []string `json:"roles"`
}

type HealthCheckRequest struct{}

type HealthCheckResponse struct {
	Healthy       bool              `json:"healthy"`
	ServiceName   string            `json:"service_name"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Status        string            `json:"status"`
	Dependencies  map[string]string `json:"dependencies"`
}
