package main

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/zeromicro/go-zero/core/logx"
	"gorm.io/gorm"

	"github.com/aegisline/corectl/internal/config"
	"github.com/aegisline/corectl/internal/transport"
	"github.com/aegisline/corectl/internal/vault"
	"github.com/aegisline/corectl/third_party/cache"
	"github.com/aegisline/corectl/third_party/database"
)

// ServiceContext wires every dependency handle vaultd owns: the signing key
// ring, the secret and revocation stores (backed by Postgres/Redis/gorm only
// when the configured kind needs them), the policy and credential tables
// loaded from config, and the health registry shared by both transports.
// Grounded in the goctl-scaffolded svc.ServiceContext convention
// (services/gateway/services/articles/rpc/internal/svc), generalized from a
// single struct literal assignment to a construction step that can fail.
type ServiceContext struct {
	Config   config.Config
	Vault    *vault.Service
	Registry *transport.Registry
}

// NewServiceContext builds every handle c names and returns a ready-to-serve
// ServiceContext, or the first construction error encountered.
func NewServiceContext(c config.Config) (*ServiceContext, error) {
	registry := transport.NewRegistry(c.Name)

	keys, err := vault.NewKeyRing(c.Signing.Algorithm, c.Signing.KeyBytes, time.Duration(c.Signing.KeyOverlapSeconds)*time.Second)
	if err != nil {
		return nil, err
	}

	var sqlDB *sqlx.DB
	if c.Signing.SecretStoreKind == vault.StorePostgres {
		sqlDB, err = database.NewPostgresConnection(c.Database)
		if err != nil {
			return nil, err
		}
		registry.Register("secret_store_postgres", pingSqlxCheck(sqlDB))
	}
	secrets, err := vault.NewSecretStore(c.Signing.SecretStoreKind, sqlDB)
	if err != nil {
		return nil, err
	}

	var redisClient *redis.Client
	var gormDB *gorm.DB
	switch c.Signing.RevocationStoreKind {
	case vault.RevocationRedis:
		rc, err := cache.NewRedisConnection(c.Redis)
		if err != nil {
			return nil, err
		}
		redisClient = rc.GetClient()
		registry.Register("revocation_store_redis", pingRedisCheck(redisClient))
	case vault.RevocationGorm:
		gormDB, err = database.NewGormConnection(c.Database)
		if err != nil {
			return nil, err
		}
		registry.Register("revocation_store_gorm", pingGormCheck(gormDB))
	}
	revocation, err := vault.NewRevocationStore(c.Signing.RevocationStoreKind, redisClient, gormDB)
	if err != nil {
		return nil, err
	}

	tokens := vault.NewTokenManager(c.Signing.Issuer, keys, revocation)
	v := vault.NewService(c.Signing.Issuer, tokens, secrets, c.ToPolicyTable(), c.ToCredentialStore())

	logx.Infof("vaultd service context ready: secret_store=%s revocation_store=%s", c.Signing.SecretStoreKind, c.Signing.RevocationStoreKind)
	return &ServiceContext{Config: c, Vault: v, Registry: registry}, nil
}

func pingSqlxCheck(db *sqlx.DB) transport.Checker {
	return func(ctx context.Context) (transport.Status, string) {
		if err := db.PingContext(ctx); err != nil {
			return transport.StatusCritical, err.Error()
		}
		return transport.StatusServing, "ok"
	}
}

func pingRedisCheck(client *redis.Client) transport.Checker {
	return func(ctx context.Context) (transport.Status, string) {
		if err := client.Ping(ctx).Err(); err != nil {
			return transport.StatusCritical, err.Error()
		}
		return transport.StatusServing, "ok"
	}
}

func pingGormCheck(db *gorm.DB) transport.Checker {
	return func(ctx context.Context) (transport.Status, string) {
		sqlDB, err := db.DB()
		if err != nil {
			return transport.StatusCritical, err.Error()
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			return transport.StatusCritical, err.Error()
		}
		return transport.StatusServing, "ok"
	}
}
