// Package config loads and validates the settings every cmd/ entrypoint
// needs: the zrpc listen conf, Vault connection details, mutual TLS
// material, the sandboxed executor's resource caps and command allow-list,
// and the safety filter's tunables. Grounded in the rpc services'
// internal/config packages (services/gateway/services/auth/rpc/internal/config,
// services/gateway/services/articles/rpc/internal/config): a struct embedding
// zrpc.RpcServerConf, loaded with github.com/zeromicro/go-zero/core/conf and
// its `json:",env=..."` tag convention for environment overrides. The bounds
// in Validate and the field set come from original_source/executor-rs/src/config.rs's
// ExecutorConfig and ConfigValidator.
package config

import (
	"github.com/zeromicro/go-zero/rest"
	"github.com/zeromicro/go-zero/zrpc"

	"github.com/aegisline/corectl/internal/executor"
	"github.com/aegisline/corectl/internal/vault"
	"github.com/aegisline/corectl/internal/xerr"
	"github.com/aegisline/corectl/third_party/cache"
	"github.com/aegisline/corectl/third_party/database"
)

// Config is the top-level settings struct loaded from a YAML file (etc/*.yaml)
// with every field overridable by the environment variable named in its tag.
// cmd/vaultd loads every field below; cmd/agentcore serves no RPC of its
// own (its health check is the REST route configured by Health) and reads
// only Name, Vault, MTLS, Signing.Issuer, Executor, and Safety, leaving
// Database/Redis/Credentials/Roles at their zero value.
type Config struct {
	zrpc.RpcServerConf

	// Health serves the plain-HTTP health route (internal/transport/healthrest)
	// alongside the gRPC listener above.
	Health rest.RestConf `json:",optional"`

	Vault       VaultConfig
	MTLS        MTLSConfig
	Executor    ExecutorConfig
	Safety      SafetyConfig
	Signing     SigningConfig
	Database    database.PostgresConfig   `json:",optional"`
	Redis       cache.RedisConfig         `json:",optional"`
	Credentials []ServiceCredentialConfig `json:",optional"`
	Roles       []RoleConfig              `json:",optional"`
}

// VaultConfig is how a service other than vaultd itself reaches the Vault
// & Token Service: the address to dial and the service credential used in
// GenerateToken.
type VaultConfig struct {
	Addr          string `json:",env=VAULT_ADDR"`
	Token         string `json:",optional,env=VAULT_TOKEN"`
	ServiceID     string `json:",optional,env=SERVICE_ID"`
	ServiceSecret string `json:",optional,env=SERVICE_SECRET"`
}

// SigningConfig parameterizes vaultd's own signing-key ring and its
// backing stores, mirroring the knobs services/gateway/services/auth/rpc/internal/config
// hard-coded as AccessSecret/AccessExpire, generalized to a rotating
// multi-key ring plus a pluggable secret/revocation backend.
type SigningConfig struct {
	Issuer              string               `json:",default=corectl-vault,env=VAULT_ISSUER"`
	Algorithm           string               `json:",default=HS256,env=VAULT_SIGNING_ALGORITHM"`
	KeyBytes            int                  `json:",default=32,env=VAULT_SIGNING_KEY_BYTES"`
	KeyOverlapSeconds   int64                `json:",default=3600,env=VAULT_KEY_OVERLAP_SECONDS"`
	SecretStoreKind     vault.StoreKind      `json:",default=memory,options=memory|postgres,env=VAULT_SECRET_STORE"`
	RevocationStoreKind vault.RevocationKind `json:",default=memory,options=memory|redis|gorm,env=VAULT_REVOCATION_STORE"`
}

// ServiceCredentialConfig is one registered caller of generate-token, as
// loaded from etc/vaultd.yaml: a service-id, its bcrypt secret hash (never
// a raw secret, even in a config file), and the roles it may request.
// HashSecret produces the value that belongs in SecretHash.
type ServiceCredentialConfig struct {
	ServiceID      string
	SecretHash     string
	PermittedRoles []string
}

// RoleConfig is one named role and the permissions it grants, the
// yaml-loadable counterpart of vault.Role/vault.Permission.
type RoleConfig struct {
	Name        string
	Permissions []PermissionConfig
}

// PermissionConfig is a (resource-pattern, action) pair, matching
// vault.Permission.
type PermissionConfig struct {
	ResourcePattern string
	Action          string
}

// ToCredentialStore builds the CredentialStore vaultd authenticates
// generate-token callers against.
func (c Config) ToCredentialStore() vault.CredentialStore {
	creds := make([]vault.ServiceCredential, 0, len(c.Credentials))
	for _, sc := range c.Credentials {
		creds = append(creds, vault.ServiceCredential{
			ServiceID:      sc.ServiceID,
			SecretHash:     sc.SecretHash,
			PermittedRoles: sc.PermittedRoles,
		})
	}
	return vault.NewStaticCredentialStore(creds...)
}

// ToPolicyTable builds the PolicyTable vaultd authorizes secret and token
// operations against.
func (c Config) ToPolicyTable() *vault.PolicyTable {
	roles := make([]vault.Role, 0, len(c.Roles))
	for _, rc := range c.Roles {
		perms := make([]vault.Permission, 0, len(rc.Permissions))
		for _, pc := range rc.Permissions {
			perms = append(perms, vault.Permission{ResourcePattern: pc.ResourcePattern, Action: pc.Action})
		}
		roles = append(roles, vault.Role{Name: rc.Name, Permissions: perms})
	}
	return vault.NewPolicyTable(roles...)
}

// MTLSConfig switches the gRPC transport from insecure to mutual TLS, per
// SERVICE_ID/SERVICE_SECRET and the USE_MTLS family of environment variables
// named in original_source/executor-rs/src/config.rs's peer counterpart.
type MTLSConfig struct {
	Enable   bool   `json:",default=false,env=USE_MTLS"`
	CertPath string `json:",optional,env=TLS_CERT_PATH"`
	KeyPath  string `json:",optional,env=TLS_KEY_PATH"`
	CAPath   string `json:",optional,env=TLS_CA_PATH"`
}

// ExecutorConfig mirrors executor-rs's ExecutorConfig: the sandboxed
// executor's working directory and resource caps, plus its command
// allow-list. DefaultExecutorConfig's values match the Rust defaults
// exactly so a service that never sets EXECUTOR_* behaves the same as the
// original.
type ExecutorConfig struct {
	SandboxDir                string   `json:",default=/tmp/corectl-sandbox,env=EXECUTOR_SANDBOX_DIR"`
	MaxMemoryMB               int64    `json:",default=512,env=EXECUTOR_MAX_MEMORY_MB"`
	MaxCPUPercent             int      `json:",default=50,env=EXECUTOR_MAX_CPU_PERCENT"`
	ExecutionTimeoutSeconds   int      `json:",default=10,env=EXECUTOR_TIMEOUT_SECONDS"`
	MaxProcesses              int      `json:",default=5,env=EXECUTOR_MAX_PROCESSES"`
	AllowedCommands           []string `json:",optional,env=EXECUTOR_ALLOWED_COMMANDS"`
	ResourceMonitorIntervalMS int      `json:",default=100,env=EXECUTOR_MONITOR_INTERVAL_MS"`
	EnableLowIntegrity        bool     `json:",default=true,env=EXECUTOR_ENABLE_LOW_INTEGRITY"`
	EnableWatchdog            bool     `json:",default=true,env=EXECUTOR_ENABLE_WATCHDOG"`
	EnableResourceLogging     bool     `json:",default=true,env=EXECUTOR_ENABLE_RESOURCE_LOGGING"`
}

// SafetyConfig tunes the agent's risk scoring: the threshold above which a
// proposed action is blocked outright, and a sensitivity multiplier applied
// to the threat-pattern scan's raw score.
type SafetyConfig struct {
	RiskThreshold     float64 `json:",default=0.7,env=AGENT_SAFETY_RISK_THRESHOLD"`
	FilterSensitivity float64 `json:",default=1.0,env=AGENT_SAFETY_FILTER_SENSITIVITY"`
}

// DefaultExecutorConfig returns the Rust source's production_config
// defaults, useful as a starting point before applying environment
// overrides in tests or one-off tools.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		SandboxDir:                "/tmp/corectl-sandbox",
		MaxMemoryMB:               512,
		MaxCPUPercent:             50,
		ExecutionTimeoutSeconds:   10,
		MaxProcesses:              5,
		AllowedCommands:           append([]string(nil), executor.DefaultAllowList...),
		ResourceMonitorIntervalMS: 100,
		EnableLowIntegrity:        true,
		EnableWatchdog:            true,
		EnableResourceLogging:     true,
	}
}

// Validate enforces the same bounds as ConfigValidator::validate in
// original_source/executor-rs/src/config.rs: memory 10-4096MB, CPU
// 10-100%, timeout 1-300s, process count 1-20, and a non-empty command
// allow-list.
func (c Config) Validate() error {
	if err := c.Executor.Validate(); err != nil {
		return err
	}
	if c.Safety.RiskThreshold < 0 || c.Safety.RiskThreshold > 1 {
		return xerr.New(xerr.InvalidArgument, "safety risk threshold must be between 0 and 1").WithDetail("risk_threshold")
	}
	if c.Safety.FilterSensitivity <= 0 {
		return xerr.New(xerr.InvalidArgument, "safety filter sensitivity must be positive").WithDetail("filter_sensitivity")
	}
	if c.MTLS.Enable && (c.MTLS.CertPath == "" || c.MTLS.KeyPath == "") {
		return xerr.New(xerr.InvalidArgument, "mutual TLS requires both a cert and key path").WithDetail("mtls")
	}
	if c.Signing.KeyBytes > 0 && c.Signing.KeyBytes < 16 {
		return xerr.New(xerr.InvalidArgument, "signing key must be at least 16 bytes").WithDetail("signing_key_bytes")
	}
	return nil
}

func (e ExecutorConfig) Validate() error {
	if e.MaxMemoryMB < 10 || e.MaxMemoryMB > 4096 {
		return xerr.New(xerr.InvalidArgument, "executor max memory must be between 10 and 4096 MB").WithDetail("max_memory_mb")
	}
	if e.MaxCPUPercent < 10 || e.MaxCPUPercent > 100 {
		return xerr.New(xerr.InvalidArgument, "executor max CPU percent must be between 10 and 100").WithDetail("max_cpu_percent")
	}
	if e.ExecutionTimeoutSeconds < 1 || e.ExecutionTimeoutSeconds > 300 {
		return xerr.New(xerr.InvalidArgument, "executor timeout must be between 1 and 300 seconds").WithDetail("execution_timeout_seconds")
	}
	if e.MaxProcesses < 1 || e.MaxProcesses > 20 {
		return xerr.New(xerr.InvalidArgument, "executor max processes must be between 1 and 20").WithDetail("max_processes")
	}
	if len(e.AllowedCommands) == 0 {
		return xerr.New(xerr.InvalidArgument, "executor allowed command list must not be empty").WithDetail("allowed_commands")
	}
	return nil
}

// ToLimits converts the validated config into the executor.Limits the
// sandboxed executor actually runs with.
func (e ExecutorConfig) ToLimits() executor.Limits {
	return executor.Limits{
		Wall:            secondsToDuration(e.ExecutionTimeoutSeconds),
		MaxMemoryMB:     e.MaxMemoryMB,
		MaxCPUPercent:   e.MaxCPUPercent,
		MaxProcesses:    e.MaxProcesses,
		MonitorInterval: millisToDuration(e.ResourceMonitorIntervalMS),
	}
}

// ToCommandSet builds the allow-list CommandSet the executor should run
// with, falling back to executor.DefaultAllowList when AllowedCommands is
// empty (Validate rejects that case, so this only matters for callers that
// build a CommandSet ahead of Validate).
func (e ExecutorConfig) ToCommandSet() *executor.CommandSet {
	allow := e.AllowedCommands
	if len(allow) == 0 {
		allow = executor.DefaultAllowList
	}
	return executor.NewCommandSet(allow, nil)
}
