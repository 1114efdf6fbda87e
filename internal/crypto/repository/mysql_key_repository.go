package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/credfolio/fieldvault/internal/crypto/domain"
	"github.com/credfolio/fieldvault/internal/database"
	apperrors "github.com/credfolio/fieldvault/internal/errors"
)

// MySQLKeyRepository implements key persistence for MySQL.
//
// Differences from PostgreSQL: UUIDs are stored as CHAR(36), metadata as
// JSON, and MySQL has no UPDATE ... RETURNING, so DeactivateActive selects
// the active row first inside the caller's transaction.
type MySQLKeyRepository struct {
	db *sql.DB
}

// NewMySQLKeyRepository creates a new MySQL key repository instance.
func NewMySQLKeyRepository(db *sql.DB) *MySQLKeyRepository {
	return &MySQLKeyRepository{db: db}
}

const mysqlKeyColumns = `id, scope, key_type, algorithm, version, encrypted_material, nonce,
	is_active, created_at, expires_at, rotated_at, rotated_by, revoked_at, revoked_by, metadata`

// Create inserts a new key row.
func (m *MySQLKeyRepository) Create(ctx context.Context, key *cryptoDomain.EncryptionKey) error {
	querier := database.GetTx(ctx, m.db)

	metadata, err := marshalMetadata(key.Metadata)
	if err != nil {
		return err
	}

	query := `INSERT INTO encryption_keys (` + mysqlKeyColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		key.ID.String(),
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

// Update persists lifecycle mutations; material columns stay immutable.
func (m *MySQLKeyRepository) Update(ctx context.Context, key *cryptoDomain.EncryptionKey) error {
	querier := database.GetTx(ctx, m.db)

	metadata, err := marshalMetadata(key.Metadata)
	if err != nil {
		return err
	}

	query := `UPDATE encryption_keys
			  SET is_active = ?, rotated_at = ?, rotated_by = ?,
				  revoked_at = ?, revoked_by = ?, metadata = ?
			  WHERE id = ?`

	_, err = querier.ExecContext(
		ctx,
		query,
		key.IsActive,
		nullTime(key.RotatedAt),
		nullString(key.RotatedBy),
		nullTime(key.RevokedAt),
		nullString(key.RevokedBy),
		metadata,
		key.ID.String(),
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update encryption key")
	}
	return nil
}

// GetByID retrieves a single key. Returns ErrKeyNotFound for unknown ids.
func (m *MySQLKeyRepository) GetByID(ctx context.Context, id uuid.UUID) (*cryptoDomain.EncryptionKey, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + mysqlKeyColumns + ` FROM encryption_keys WHERE id = ?`
	return scanKey(querier.QueryRowContext(ctx, query, id.String()))
}

// List retrieves all keys ordered by scope, key type and version descending.
func (m *MySQLKeyRepository) List(ctx context.Context) ([]*cryptoDomain.EncryptionKey, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + mysqlKeyColumns + ` FROM encryption_keys
			  ORDER BY scope, key_type, version DESC`

	rows, err := querier.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list encryption keys")
	}
	return scanKeys(rows)
}

// ListByScope retrieves all keys for a scope ordered by version descending.
func (m *MySQLKeyRepository) ListByScope(ctx context.Context, scope string) ([]*cryptoDomain.EncryptionKey, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + mysqlKeyColumns + ` FROM encryption_keys
			  WHERE scope = ? ORDER BY key_type, version DESC`

	rows, err := querier.QueryContext(ctx, query, scope)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list encryption keys by scope")
	}
	return scanKeys(rows)
}

// MaxVersion returns the highest version for a (scope, key type), or zero.
func (m *MySQLKeyRepository) MaxVersion(ctx context.Context, scope string, keyType cryptoDomain.KeyType) (uint, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT COALESCE(MAX(version), 0) FROM encryption_keys
			  WHERE scope = ? AND key_type = ?`

	var version uint
	if err := querier.QueryRowContext(ctx, query, scope, keyType).Scan(&version); err != nil {
		return 0, apperrors.Wrap(err, "failed to get max key version")
	}
	return version, nil
}

// DeactivateActive flips is_active off for the current active key of a
// (scope, key type) and returns its id, or uuid.Nil when none was active.
func (m *MySQLKeyRepository) DeactivateActive(ctx context.Context, scope string, keyType cryptoDomain.KeyType) (uuid.UUID, error) {
	querier := database.GetTx(ctx, m.db)

	var idStr string
	selectQuery := `SELECT id FROM encryption_keys
					WHERE scope = ? AND key_type = ? AND is_active = TRUE`
	err := querier.QueryRowContext(ctx, selectQuery, scope, keyType).Scan(&idStr)
	if err == sql.ErrNoRows {
		return uuid.Nil, nil
	}
	if err != nil {
		return uuid.Nil, apperrors.Wrap(err, "failed to find active key")
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, apperrors.Wrap(err, "failed to parse active key id")
	}

	updateQuery := `UPDATE encryption_keys SET is_active = FALSE WHERE id = ?`
	if _, err := querier.ExecContext(ctx, updateQuery, idStr); err != nil {
		return uuid.Nil, apperrors.Wrap(err, "failed to deactivate active key")
	}
	return id, nil
}

// ExpiringBefore lists non-revoked keys whose expiry falls before the cutoff.
func (m *MySQLKeyRepository) ExpiringBefore(ctx context.Context, cutoff time.Time) ([]*cryptoDomain.EncryptionKey, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + mysqlKeyColumns + ` FROM encryption_keys
			  WHERE expires_at < ? AND revoked_at IS NULL
			  ORDER BY expires_at`

	rows, err := querier.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list expiring keys")
	}
	return scanKeys(rows)
}

// ExistsVersion reports whether a (scope, key type, version) row exists.
func (m *MySQLKeyRepository) ExistsVersion(ctx context.Context, scope string, keyType cryptoDomain.KeyType, version uint) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT EXISTS(SELECT 1 FROM encryption_keys
			  WHERE scope = ? AND key_type = ? AND version = ?)`

	var exists bool
	if err := querier.QueryRowContext(ctx, query, scope, keyType, version).Scan(&exists); err != nil {
		return false, apperrors.Wrap(err, "failed to check key version existence")
	}
	return exists, nil
}
