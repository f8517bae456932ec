package config

import "testing"

func validExecutorConfig() ExecutorConfig {
	c := DefaultExecutorConfig()
	return c
}

func TestDefaultExecutorConfigValidates(t *testing.T) {
	if err := validExecutorConfig().Validate(); err != nil {
		t.Fatalf("default executor config should validate, got %v", err)
	}
}

func TestExecutorConfigRejectsMemoryOutOfBounds(t *testing.T) {
	c := validExecutorConfig()
	c.MaxMemoryMB = 5
	if err := c.Validate(); err == nil {
		t.Fatal("expected an error for memory below 10MB")
	}
	c.MaxMemoryMB = 8192
	if err := c.Validate(); err == nil {
		t.Fatal("expected an error for memory above 4096MB")
	}
}

func TestExecutorConfigRejectsCPUOutOfBounds(t *testing.T) {
	c := validExecutorConfig()
	c.MaxCPUPercent = 5
	if err := c.Validate(); err == nil {
		t.Fatal("expected an error for CPU below 10%")
	}
	c.MaxCPUPercent = 150
	if err := c.Validate(); err == nil {
		t.Fatal("expected an error for CPU above 100%")
	}
}

func TestExecutorConfigRejectsTimeoutOutOfBounds(t *testing.T) {
	c := validExecutorConfig()
	c.ExecutionTimeoutSeconds = 0
	if err := c.Validate(); err == nil {
		t.Fatal("expected an error for a zero timeout")
	}
	c.ExecutionTimeoutSeconds = 301
	if err := c.Validate(); err == nil {
		t.Fatal("expected an error for a timeout above 300s")
	}
}

func TestExecutorConfigRejectsProcessCountOutOfBounds(t *testing.T) {
	c := validExecutorConfig()
	c.MaxProcesses = 0
	if err := c.Validate(); err == nil {
		t.Fatal("expected an error for zero max processes")
	}
	c.MaxProcesses = 21
	if err := c.Validate(); err == nil {
		t.Fatal("expected an error for max processes above 20")
	}
}

func TestExecutorConfigRejectsEmptyAllowedCommands(t *testing.T) {
	c := validExecutorConfig()
	c.AllowedCommands = nil
	if err := c.Validate(); err == nil {
		t.Fatal("expected an error for an empty allowed command list")
	}
}

func TestConfigValidateRejectsMTLSMissingPaths(t *testing.T) {
	c := Config{Executor: validExecutorConfig(), Safety: SafetyConfig{RiskThreshold: 0.7, FilterSensitivity: 1.0}}
	c.MTLS.Enable = true
	if err := c.Validate(); err == nil {
		t.Fatal("expected an error when mTLS is enabled without cert/key paths")
	}
	c.MTLS.CertPath = "cert.pem"
	c.MTLS.KeyPath = "key.pem"
	if err := c.Validate(); err != nil {
		t.Fatalf("expected validation to pass once cert/key paths are set, got %v", err)
	}
}

func TestConfigValidateRejectsRiskThresholdOutOfBounds(t *testing.T) {
	c := Config{Executor: validExecutorConfig(), Safety: SafetyConfig{RiskThreshold: 1.5, FilterSensitivity: 1.0}}
	if err := c.Validate(); err == nil {
		t.Fatal("expected an error for a risk threshold above 1")
	}
}

func TestExecutorConfigToLimitsConvertsUnits(t *testing.T) {
	c := validExecutorConfig()
	c.ExecutionTimeoutSeconds = 30
	c.ResourceMonitorIntervalMS = 250
	limits := c.ToLimits()
	if limits.Wall.Seconds() != 30 {
		t.Fatalf("expected a 30s wall clock limit, got %v", limits.Wall)
	}
	if limits.MonitorInterval.Milliseconds() != 250 {
		t.Fatalf("expected a 250ms monitor interval, got %v", limits.MonitorInterval)
	}
	if limits.MaxMemoryMB != c.MaxMemoryMB || limits.MaxCPUPercent != c.MaxCPUPercent || limits.MaxProcesses != c.MaxProcesses {
		t.Fatal("expected ToLimits to carry memory/CPU/process caps through unchanged")
	}
}

func TestExecutorConfigToCommandSetUsesConfiguredAllowList(t *testing.T) {
	c := validExecutorConfig()
	c.AllowedCommands = []string{"ls"}
	cs := c.ToCommandSet()
	if !cs.Allow["ls"] {
		t.Fatal("expected the configured command to be in the allow-list")
	}
	if cs.Allow["cat"] {
		t.Fatal("expected only the configured command to be allowed, not the full default list")
	}
}

func TestToCredentialStoreBuildsLookupFromConfig(t *testing.T) {
	c := Config{Credentials: []ServiceCredentialConfig{
		{ServiceID: "agentcore", SecretHash: "hash", PermittedRoles: []string{"reader"}},
	}}
	store := c.ToCredentialStore()
	cred, ok := store.Lookup("agentcore")
	if !ok {
		t.Fatal("expected the configured service-id to be found")
	}
	if cred.SecretHash != "hash" || len(cred.PermittedRoles) != 1 || cred.PermittedRoles[0] != "reader" {
		t.Fatalf("expected the credential fields to round-trip, got %+v", cred)
	}
	if _, ok := store.Lookup("unknown"); ok {
		t.Fatal("expected an unconfigured service-id to be absent")
	}
}

func TestToPolicyTableBuildsRolesFromConfig(t *testing.T) {
	c := Config{Roles: []RoleConfig{
		{Name: "reader", Permissions: []PermissionConfig{{ResourcePattern: "secret/*", Action: "read"}}},
	}}
	table := c.ToPolicyTable()
	if !table.IsAuthorized([]string{"reader"}, "secret/foo", "read") {
		t.Fatal("expected the configured role to authorize a matching read")
	}
	if table.IsAuthorized([]string{"reader"}, "secret/foo", "write") {
		t.Fatal("expected the configured role to reject an action it was not granted")
	}
}
