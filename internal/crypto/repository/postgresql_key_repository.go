// Package repository implements persistence for encryption keys and key
// lifecycle audit events, with PostgreSQL and MySQL implementations over
// database/sql. All methods are transaction-aware via database.GetTx, so
// multi-step operations such as rotation (deactivate old + insert new) run
// atomically inside a TxManager.WithTx block.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/credfolio/fieldvault/internal/crypto/domain"
	"github.com/credfolio/fieldvault/internal/database"
	apperrors "github.com/credfolio/fieldvault/internal/errors"
)

// PostgreSQLKeyRepository implements key persistence for PostgreSQL.
//
// Schema (encryption_keys):
//   - id: UUID PRIMARY KEY
//   - scope: TEXT ("global" or tenant id)
//   - key_type: TEXT (DATA | TRANSPORT | SIGNING)
//   - algorithm: TEXT
//   - version: INTEGER, strictly increasing per (scope, key_type)
//   - encrypted_material: BYTEA (key material wrapped under the master key)
//   - nonce: BYTEA
//   - is_active: BOOLEAN, at most one true per (scope, key_type) enforced by
//     a partial unique index
//   - created_at, expires_at: TIMESTAMPTZ
//   - rotated_at, revoked_at: TIMESTAMPTZ NULL
//   - rotated_by, revoked_by: TEXT NULL
//   - metadata: JSONB
type PostgreSQLKeyRepository struct {
	db *sql.DB
}

// NewPostgreSQLKeyRepository creates a new PostgreSQL key repository instance.
func NewPostgreSQLKeyRepository(db *sql.DB) *PostgreSQLKeyRepository {
	return &PostgreSQLKeyRepository{db: db}
}

const pgKeyColumns = `id, scope, key_type, algorithm, version, encrypted_material, nonce,
	is_active, created_at, expires_at, rotated_at, rotated_by, revoked_at, revoked_by, metadata`

// Create inserts a new key row. Key material is immutable after this point.
func (p *PostgreSQLKeyRepository) Create(ctx context.Context, key *cryptoDomain.EncryptionKey) error {
	querier := database.GetTx(ctx, p.db)

	metadata, err := marshalMetadata(key.Metadata)
	if err != nil {
		return err
	}

	query := `INSERT INTO encryption_keys (` + pgKeyColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err = querier.ExecContext(
		ctx,
		query,
		key.ID,
		key.Scope,
		key.KeyType,
		key.Algorithm,
		key.Version,
		key.EncryptedMaterial,
		key.Nonce,
		key.IsActive,
		key.CreatedAt,
		key.ExpiresAt,
		nullTime(key.RotatedAt),
		nullString(key.RotatedBy),
		nullTime(key.RevokedAt),
		nullString(key.RevokedBy),
		metadata,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create encryption key")
	}
	return nil
}

// Update persists lifecycle mutations: is_active, rotation stamps, revocation
// stamps and metadata. The material columns are deliberately not updatable.
func (p *PostgreSQLKeyRepository) Update(ctx context.Context, key *cryptoDomain.EncryptionKey) error {
	querier := database.GetTx(ctx, p.db)

	metadata, err := marshalMetadata(key.Metadata)
	if err != nil {
		return err
	}

	query := `UPDATE encryption_keys
			  SET is_active = $1,
				  rotated_at = $2,
				  rotated_by = $3,
				  revoked_at = $4,
				  revoked_by = $5,
				  metadata = $6
			  WHERE id = $7`

	_, err = querier.ExecContext(
		ctx,
		query,
		key.IsActive,
		nullTime(key.RotatedAt),
		nullString(key.RotatedBy),
		nullTime(key.RevokedAt),
		nullString(key.RevokedBy),
		metadata,
		key.ID,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update encryption key")
	}
	return nil
}

// GetByID retrieves a single key. Returns ErrKeyNotFound for unknown ids.
func (p *PostgreSQLKeyRepository) GetByID(ctx context.Context, id uuid.UUID) (*cryptoDomain.EncryptionKey, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + pgKeyColumns + ` FROM encryption_keys WHERE id = $1`
	return scanKey(querier.QueryRowContext(ctx, query, id))
}

// List retrieves all keys ordered by scope, key type and version descending,
// so the newest key of each slot appears first within its group.
func (p *PostgreSQLKeyRepository) List(ctx context.Context) ([]*cryptoDomain.EncryptionKey, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + pgKeyColumns + ` FROM encryption_keys
			  ORDER BY scope, key_type, version DESC`

	rows, err := querier.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list encryption keys")
	}
	return scanKeys(rows)
}

// ListByScope retrieves all keys for a scope ordered by version descending.
func (p *PostgreSQLKeyRepository) ListByScope(ctx context.Context, scope string) ([]*cryptoDomain.EncryptionKey, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + pgKeyColumns + ` FROM encryption_keys
			  WHERE scope = $1 ORDER BY key_type, version DESC`

	rows, err := querier.QueryContext(ctx, query, scope)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list encryption keys by scope")
	}
	return scanKeys(rows)
}

// MaxVersion returns the highest version for a (scope, key type), or zero
// when no key exists yet. Callers compute the next version inside the same
// transaction so versions are never reused.
func (p *PostgreSQLKeyRepository) MaxVersion(ctx context.Context, scope string, keyType cryptoDomain.KeyType) (uint, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT COALESCE(MAX(version), 0) FROM encryption_keys
			  WHERE scope = $1 AND key_type = $2`

	var version uint
	if err := querier.QueryRowContext(ctx, query, scope, keyType).Scan(&version); err != nil {
		return 0, apperrors.Wrap(err, "failed to get max key version")
	}
	return version, nil
}

// DeactivateActive flips is_active off for the current active key of a
// (scope, key type) and returns its id, or uuid.Nil when none was active.
func (p *PostgreSQLKeyRepository) DeactivateActive(ctx context.Context, scope string, keyType cryptoDomain.KeyType) (uuid.UUID, error) {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE encryption_keys SET is_active = FALSE
			  WHERE scope = $1 AND key_type = $2 AND is_active = TRUE
			  RETURNING id`

	var id uuid.UUID
	err := querier.QueryRowContext(ctx, query, scope, keyType).Scan(&id)
	if err == sql.ErrNoRows {
		return uuid.Nil, nil
	}
	if err != nil {
		return uuid.Nil, apperrors.Wrap(err, "failed to deactivate active key")
	}
	return id, nil
}

// ExpiringBefore lists non-revoked keys whose expiry falls before the cutoff.
func (p *PostgreSQLKeyRepository) ExpiringBefore(ctx context.Context, cutoff time.Time) ([]*cryptoDomain.EncryptionKey, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + pgKeyColumns + ` FROM encryption_keys
			  WHERE expires_at < $1 AND revoked_at IS NULL
			  ORDER BY expires_at`

	rows, err := querier.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list expiring keys")
	}
	return scanKeys(rows)
}

// ExistsVersion reports whether a (scope, key type, version) row already
// exists. Used by backup import to skip conflicts without failing.
func (p *PostgreSQLKeyRepository) ExistsVersion(ctx context.Context, scope string, keyType cryptoDomain.KeyType, version uint) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT EXISTS(SELECT 1 FROM encryption_keys
			  WHERE scope = $1 AND key_type = $2 AND version = $3)`

	var exists bool
	if err := querier.QueryRowContext(ctx, query, scope, keyType, version).Scan(&exists); err != nil {
		return false, apperrors.Wrap(err, "failed to check key version existence")
	}
	return exists, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanKey(row rowScanner) (*cryptoDomain.EncryptionKey, error) {
	var key cryptoDomain.EncryptionKey
	var rotatedAt, revokedAt sql.NullTime
	var rotatedBy, revokedBy sql.NullString
	var metadata []byte

	err := row.Scan(
		&key.ID,
		&key.Scope,
		&key.KeyType,
		&key.Algorithm,
		&key.Version,
		&key.EncryptedMaterial,
		&key.Nonce,
		&key.IsActive,
		&key.CreatedAt,
		&key.ExpiresAt,
		&rotatedAt,
		&rotatedBy,
		&revokedAt,
		&revokedBy,
		&metadata,
	)
	if err == sql.ErrNoRows {
		return nil, cryptoDomain.ErrKeyNotFound
	}
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to scan encryption key")
	}

	if rotatedAt.Valid {
		t := rotatedAt.Time
		key.RotatedAt = &t
	}
	key.RotatedBy = rotatedBy.String
	if revokedAt.Valid {
		t := revokedAt.Time
		key.RevokedAt = &t
	}
	key.RevokedBy = revokedBy.String

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &key.Metadata); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal key metadata")
		}
	}

	return &key, nil
}

func scanKeys(rows *sql.Rows) ([]*cryptoDomain.EncryptionKey, error) {
	defer func() {
		_ = rows.Close()
	}()

	var keys []*cryptoDomain.EncryptionKey
	for rows.Next() {
		key, err := scanKey(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

func marshalMetadata(metadata map[string]string) ([]byte, error) {
	if metadata == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal key metadata")
	}
	return data, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
