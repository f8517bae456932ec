package vault

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/zeromicro/go-zero/core/logx"
)

// secretRow is the JSONB-entity persisted shape, generalizing the original's
// JSON-entity table (original_source/auth-service-rs/src/storage.rs) and the
// BaseRepository query-constant convention at
// shared/repository/repository.go (adapted here) to a single `vault_secrets`
// table keyed by path.
type secretRow struct {
	Key       string         `db:"key"`
	Value     []byte         `db:"value"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
	ExpiresAt sql.NullTime   `db:"expires_at"`
	Version   int64          `db:"version"`
	Labels    []byte         `db:"labels"` // JSONB
}

const (
	upsertSecretQuery = `
		INSERT INTO vault_secrets (key, value, created_at, updated_at, expires_at, version, labels)
		VALUES (:key, :value, :created_at, :updated_at, :expires_at, :version, :labels)
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at,
			expires_at = EXCLUDED.expires_at,
			version = vault_secrets.version + 1,
			labels = EXCLUDED.labels`

	selectSecretQuery = `
		SELECT key, value, created_at, updated_at, expires_at, version, labels
		FROM vault_secrets WHERE key = $1`

	deleteSecretQuery = `DELETE FROM vault_secrets WHERE key = $1`

	listSecretsPrefixQuery = `
		SELECT key, value, created_at, updated_at, expires_at, version, labels
		FROM vault_secrets WHERE key LIKE $1`
)

// postgresSecretStore is the production SecretStore backend, pooled through
// the same *sqlx.DB connection helper used elsewhere in this repository
// (third_party/database.NewPostgresConnection).
type postgresSecretStore struct {
	db *sqlx.DB
}

func NewPostgresSecretStore(db *sqlx.DB) (SecretStore, error) {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS vault_secrets (
			key         TEXT PRIMARY KEY,
			value       BYTEA NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL,
			updated_at  TIMESTAMPTZ NOT NULL,
			expires_at  TIMESTAMPTZ,
			version     BIGINT NOT NULL DEFAULT 1,
			labels      JSONB NOT NULL DEFAULT '{}'::jsonb
		)`)
	if err != nil {
		return nil, fmt.Errorf("migrate vault_secrets: %w", err)
	}
	return &postgresSecretStore{db: db}, nil
}

func (s *postgresSecretStore) Get(key string) (Secret, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var row secretRow
	if err := s.db.GetContext(ctx, &row, selectSecretQuery, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Secret{}, false, nil
		}
		logx.Errorf("get secret %s: %v", key, err)
		return Secret{}, false, fmt.Errorf("get secret: %w", err)
	}
	sec := rowToSecret(row)
	if sec.ExpiresAt != nil && sec.ExpiresAt.Before(time.Now()) {
		return Secret{}, false, nil
	}
	return sec, true, nil
}

func (s *postgresSecretStore) Set(sec Secret) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	now := time.Now()
	labels, err := json.Marshal(sec.Labels)
	if err != nil {
		return fmt.Errorf("marshal labels: %w", err)
	}
	row := secretRow{
		Key:       sec.Key,
		Value:     sec.Value,
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
		Labels:    labels,
	}
	if sec.ExpiresAt != nil {
		row.ExpiresAt = sql.NullTime{Time: *sec.ExpiresAt, Valid: true}
	}

	if _, err := s.db.NamedExecContext(ctx, upsertSecretQuery, row); err != nil {
		logx.Errorf("set secret %s: %v", sec.Key, err)
		return fmt.Errorf("set secret: %w", err)
	}
	return nil
}

func (s *postgresSecretStore) Delete(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := s.db.ExecContext(ctx, deleteSecretQuery, key); err != nil {
		logx.Errorf("delete secret %s: %v", key, err)
		return fmt.Errorf("delete secret: %w", err)
	}
	return nil
}

func (s *postgresSecretStore) List(prefix string) ([]Secret, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var rows []secretRow
	if err := s.db.SelectContext(ctx, &rows, listSecretsPrefixQuery, escapeLike(prefix)+"%"); err != nil {
		logx.Errorf("list secrets prefix %s: %v", prefix, err)
		return nil, fmt.Errorf("list secrets: %w", err)
	}
	out := make([]Secret, 0, len(rows))
	for _, r := range rows {
		out = append(out, rowToSecret(r))
	}
	return out, nil
}

func rowToSecret(row secretRow) Secret {
	sec := Secret{
		Key:       row.Key,
		Value:     row.Value,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
		Version:   row.Version,
	}
	if row.ExpiresAt.Valid {
		t := row.ExpiresAt.Time
		sec.ExpiresAt = &t
	}
	if len(row.Labels) > 0 {
		_ = json.Unmarshal(row.Labels, &sec.Labels)
	}
	return sec
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
