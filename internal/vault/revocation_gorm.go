package vault

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// revokedTokenRow is the persisted shape of a revocation record. Only the
// SHA-256 hash of the token-id is stored, not the id itself, following the
// gourdiantoken library's GormTokenRepository convention of hashing before
// persisting.
//
// Database schema:
//   - id: primary key, auto-increment
//   - token_hash: SHA-256 hash of the token-id (64 hex chars), unique
//   - expires_at: retention deadline; indexed for cleanup sweeps
//   - created_at: audit trail of when the revocation was recorded
type revokedTokenRow struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	TokenHash string    `gorm:"uniqueIndex:idx_vault_revoked_hash;type:varchar(64);not null"`
	ExpiresAt time.Time `gorm:"index:idx_vault_revoked_expires;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (revokedTokenRow) TableName() string { return "vault_revoked_tokens" }

// gormRevocationStore is an ORM-backed alternative to the Redis revocation
// store, for deployments that already run Postgres for the secret store and
// want one fewer infrastructure dependency for the auth plane. Selected by
// NewRevocationStore in factory.go.
type gormRevocationStore struct {
	db *gorm.DB
}

func NewGormRevocationStore(db *gorm.DB) (RevocationStore, error) {
	if err := db.AutoMigrate(&revokedTokenRow{}); err != nil {
		return nil, err
	}
	return &gormRevocationStore{db: db}, nil
}

func hashTokenID(tokenID string) string {
	sum := sha256.Sum256([]byte(tokenID))
	return hex.EncodeToString(sum[:])
}

// Revoke upserts the row on conflict so repeated revocation of the same
// token-id is idempotent and extends the retention deadline to the latest
// requested value rather than erroring.
func (s *gormRevocationStore) Revoke(ctx context.Context, tokenID string, retainUntil time.Time) error {
	row := revokedTokenRow{
		TokenHash: hashTokenID(tokenID),
		ExpiresAt: retainUntil,
		CreatedAt: time.Now(),
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "token_hash"}},
			DoUpdates: clause.AssignmentColumns([]string{"expires_at"}),
		}).
		Create(&row).Error
}

func (s *gormRevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	var row revokedTokenRow
	err := s.db.WithContext(ctx).
		Where("token_hash = ? AND expires_at > ?", hashTokenID(tokenID), time.Now()).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
