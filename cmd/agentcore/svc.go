package main

import (
	"context"
	"crypto/tls"

	"github.com/zeromicro/go-zero/core/logx"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"

	"github.com/aegisline/corectl/internal/config"
	"github.com/aegisline/corectl/internal/executor"
	"github.com/aegisline/corectl/internal/secretsclient"
	"github.com/aegisline/corectl/internal/snapshot"
	"github.com/aegisline/corectl/internal/transport"
	"github.com/aegisline/corectl/internal/transport/grpcsrv"
)

// agentSnapshotDir is where agentcore's own Snapshot Manager keeps its
// point-in-time captures of the directory the sandboxed executor runs
// against, separate from any storage vaultd owns.
const agentSnapshotDir = "/var/lib/corectl/agentcore/snapshots"

// ServiceContext wires agentcore's three components together: a Secrets
// Client fronting a remote Vault & Token Service connection, a Snapshot
// Manager guarding the directory the executor touches, and the Sandboxed
// Executor itself, with its resource-breach handler calling straight into
// the manager's emergency rollback path.
type ServiceContext struct {
	Config   config.Config
	Secrets  *secretsclient.Client
	Snapshot *snapshot.Manager
	Executor *executor.Executor
	Registry *transport.Registry
}

// NewServiceContext dials c.Vault.Addr, builds the Snapshot Manager at
// agentSnapshotDir, and constructs the Executor with its resource-breach
// handler wired to an emergency rollback.
func NewServiceContext(c config.Config) (*ServiceContext, error) {
	registry := transport.NewRegistry(c.Name)

	dialOpts := []grpc.DialOption{}
	var clientTLS *tls.Config
	if c.MTLS.Enable {
		tlsConfig, err := c.MTLS.ClientTLSConfig()
		if err != nil {
			return nil, err
		}
		clientTLS = tlsConfig
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(credentials.NewTLS(clientTLS)))
	}

	var vaultAPI secretsclient.VaultAPI
	if c.Vault.Addr != "" {
		conn, err := grpcsrv.Dial(c.Vault.Addr, dialOpts...)
		if err != nil {
			return nil, err
		}
		vaultAPI = grpcsrv.NewRemoteVaultAPI(conn)
		registry.Register("vault_connection", func(ctx context.Context) (transport.Status, string) {
			resp, err := conn.HealthCheck(ctx, "")
			if err != nil {
				return transport.StatusCritical, err.Error()
			}
			if !resp.Healthy {
				return transport.StatusDegraded, "remote vault reports unhealthy"
			}
			return transport.StatusServing, "ok"
		})
	}

	secrets := secretsclient.NewClient(vaultAPI, c.Vault.ServiceID, c.Vault.ServiceSecret, secretsclient.WithAudience(c.Signing.Issuer))

	snapMgr, err := snapshot.NewManager(agentSnapshotDir, snapshot.DefaultMaxSnapshots)
	if err != nil {
		return nil, err
	}

	breachHandler := func(ctx context.Context) {
		logx.WithContext(ctx).Errorf("executor resource cap breached, triggering emergency rollback")
		if err := snapMgr.Rollback(ctx, snapshot.CriticalResourceBreach); err != nil {
			logx.WithContext(ctx).Errorf("emergency rollback failed: %v", err)
		}
	}

	exec := executor.New(
		executor.WithLimits(c.Executor.ToLimits()),
		executor.WithCommandSet(c.Executor.ToCommandSet()),
		executor.WithPolicyTable(executor.NewPolicyTable(int(c.Safety.RiskThreshold*100), c.Safety.FilterSensitivity)),
		executor.WithThreatSensitivity(c.Safety.FilterSensitivity),
		executor.WithResourceBreachHandler(breachHandler),
	)

	return &ServiceContext{Config: c, Secrets: secrets, Snapshot: snapMgr, Executor: exec, Registry: registry}, nil
}
