package vault

import "time"

// Secret is a named opaque byte string. A key has at most one
// current version; older versions are retained only long enough to decrypt
// outstanding ciphertexts, which this repository does not need to model
// since it stores opaque bytes rather than envelope-encrypted payloads.
type Secret struct {
	Key       string
	Value     []byte
	CreatedAt time.Time
	UpdatedAt time.Time
	ExpiresAt *time.Time
	Version   int64
	Labels    map[string]string
}

// SecretStore is the persistence boundary for secrets, generalizing the
// original's JSON-entity StorageBackend (original_source/auth-service-rs/
// src/storage.rs) to a single entity type since the Vault only ever stores
// Secret rows (revocation and rotation ledgers have their own stores).
type SecretStore interface {
	Get(key string) (Secret, bool, error)
	Set(s Secret) error
	Delete(key string) error
	List(prefix string) ([]Secret, error)
}

// StoreKind selects a SecretStore backend at construction, mirroring the
// original's create_storage_backend factory.
type StoreKind string

const (
	StoreMemory   StoreKind = "memory"
	StorePostgres StoreKind = "postgres"
)
