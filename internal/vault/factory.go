package vault

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// NewSecretStore selects a SecretStore backend by kind, mirroring the
// original's create_storage_backend factory
// (original_source/auth-service-rs/src/storage.rs).
func NewSecretStore(kind StoreKind, db *sqlx.DB) (SecretStore, error) {
	switch kind {
	case StoreMemory, "":
		return NewMemorySecretStore(), nil
	case StorePostgres:
		if db == nil {
			return nil, fmt.Errorf("postgres secret store requires a *sqlx.DB")
		}
		return NewPostgresSecretStore(db)
	default:
		return nil, fmt.Errorf("unknown secret store kind %q", kind)
	}
}

// RevocationKind selects a RevocationStore backend at construction.
type RevocationKind string

const (
	RevocationMemory RevocationKind = "memory"
	RevocationRedis  RevocationKind = "redis"
	RevocationGorm   RevocationKind = "gorm"
)

// NewRevocationStore selects a RevocationStore backend by kind. Exactly one
// of redisClient/gormDB is required depending on kind; the other is ignored.
func NewRevocationStore(kind RevocationKind, redisClient *redis.Client, gormDB *gorm.DB) (RevocationStore, error) {
	switch kind {
	case RevocationMemory, "":
		return NewMemoryRevocationStore(), nil
	case RevocationRedis:
		return NewRedisRevocationStore(redisClient)
	case RevocationGorm:
		if gormDB == nil {
			return nil, fmt.Errorf("gorm revocation store requires a *gorm.DB")
		}
		return NewGormRevocationStore(gormDB)
	default:
		return nil, fmt.Errorf("unknown revocation store kind %q", kind)
	}
}
