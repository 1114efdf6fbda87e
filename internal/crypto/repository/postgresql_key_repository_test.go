package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/credfolio/fieldvault/internal/crypto/domain"
)

func newMockDB(t *testing.T) (sqlmock.Sqlmock, *PostgreSQLKeyRepository) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return mock, NewPostgreSQLKeyRepository(db)
}

func sampleKey() *cryptoDomain.EncryptionKey {
	now := time.Now().UTC()
	return &cryptoDomain.EncryptionKey{
		ID:                uuid.Must(uuid.NewV7()),
		Scope:             "org-1",
		KeyType:           cryptoDomain.KeyTypeData,
		Algorithm:         cryptoDomain.AESGCM,
		Version:           1,
		EncryptedMaterial: []byte("wrapped-material"),
		Nonce:             []byte("nonce-123456"),
		IsActive:          true,
		CreatedAt:         now,
		ExpiresAt:         now.Add(90 * 24 * time.Hour),
	}
}

func keyRowColumns() []string {
	return []string{
		"id", "scope", "key_type", "algorithm", "version", "encrypted_material", "nonce",
		"is_active", "created_at", "expires_at", "rotated_at", "rotated_by", "revoked_at", "revoked_by", "metadata",
	}
}

func addKeyRow(rows *sqlmock.Rows, key *cryptoDomain.EncryptionKey, metadata string) *sqlmock.Rows {
	return rows.AddRow(
		key.ID.String(), key.Scope, string(key.KeyType), string(key.Algorithm), key.Version,
		key.EncryptedMaterial, key.Nonce, key.IsActive, key.CreatedAt, key.ExpiresAt,
		nil, nil, nil, nil, []byte(metadata),
	)
}

func TestPostgreSQLKeyRepository_Create(t *testing.T) {
	mock, repo := newMockDB(t)
	key := sampleKey()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO encryption_keys")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), key))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLKeyRepository_Update(t *testing.T) {
	mock, repo := newMockDB(t)
	key := sampleKey()
	now := time.Now().UTC()
	key.IsActive = false
	key.RevokedAt = &now
	key.RevokedBy = "secops"

	mock.ExpectExec(regexp.QuoteMeta("UPDATE encryption_keys")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Update(context.Background(), key))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLKeyRepository_GetByID(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		mock, repo := newMockDB(t)
		key := sampleKey()
		key.Metadata = map[string]string{"revocation_reason": "compromised"}

		rows := addKeyRow(sqlmock.NewRows(keyRowColumns()), key, `{"revocation_reason":"compromised"}`)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT")).
			WithArgs(key.ID).
			WillReturnRows(rows)

		got, err := repo.GetByID(context.Background(), key.ID)
		require.NoError(t, err)

		assert.Equal(t, key.ID, got.ID)
		assert.Equal(t, key.Scope, got.Scope)
		assert.Equal(t, key.KeyType, got.KeyType)
		assert.Equal(t, key.EncryptedMaterial, got.EncryptedMaterial)
		assert.True(t, got.IsActive)
		assert.Equal(t, "compromised", got.Metadata["revocation_reason"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock, repo := newMockDB(t)
		id := uuid.Must(uuid.NewV7())

		mock.ExpectQuery(regexp.QuoteMeta("SELECT")).
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows(keyRowColumns()))

		_, err := repo.GetByID(context.Background(), id)
		assert.ErrorIs(t, err, cryptoDomain.ErrKeyNotFound)
	})
}

func TestPostgreSQLKeyRepository_List(t *testing.T) {
	mock, repo := newMockDB(t)
	first := sampleKey()
	second := sampleKey()
	second.Scope = "org-2"
	second.IsActive = false

	rows := sqlmock.NewRows(keyRowColumns())
	addKeyRow(rows, first, "{}")
	addKeyRow(rows, second, "{}")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT")).WillReturnRows(rows)

	keys, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, keys, 2)
	assert.Equal(t, first.ID, keys[0].ID)
	assert.Equal(t, "org-2", keys[1].Scope)
}

func TestPostgreSQLKeyRepository_ListByScope(t *testing.T) {
	mock, repo := newMockDB(t)
	key := sampleKey()

	rows := addKeyRow(sqlmock.NewRows(keyRowColumns()), key, "{}")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT")).
		WithArgs("org-1").
		WillReturnRows(rows)

	keys, err := repo.ListByScope(context.Background(), "org-1")
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, key.ID, keys[0].ID)
}

func TestPostgreSQLKeyRepository_MaxVersion(t *testing.T) {
	mock, repo := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(version), 0)")).
		WithArgs("org-1", cryptoDomain.KeyTypeData).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(3))

	version, err := repo.MaxVersion(context.Background(), "org-1", cryptoDomain.KeyTypeData)
	require.NoError(t, err)
	assert.Equal(t, uint(3), version)
}

func TestPostgreSQLKeyRepository_DeactivateActive(t *testing.T) {
	t.Run("active key deactivated", func(t *testing.T) {
		mock, repo := newMockDB(t)
		id := uuid.Must(uuid.NewV7())

		mock.ExpectQuery(regexp.QuoteMeta("UPDATE encryption_keys SET is_active = FALSE")).
			WithArgs("org-1", cryptoDomain.KeyTypeData).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(id.String()))

		got, err := repo.DeactivateActive(context.Background(), "org-1", cryptoDomain.KeyTypeData)
		require.NoError(t, err)
		assert.Equal(t, id, got)
	})

	t.Run("no active key", func(t *testing.T) {
		mock, repo := newMockDB(t)

		mock.ExpectQuery(regexp.QuoteMeta("UPDATE encryption_keys SET is_active = FALSE")).
			WithArgs("org-1", cryptoDomain.KeyTypeData).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		got, err := repo.DeactivateActive(context.Background(), "org-1", cryptoDomain.KeyTypeData)
		require.NoError(t, err)
		assert.Equal(t, uuid.Nil, got)
	})
}

func TestPostgreSQLKeyRepository_ExpiringBefore(t *testing.T) {
	mock, repo := newMockDB(t)
	key := sampleKey()
	cutoff := time.Now().UTC().Add(30 * 24 * time.Hour)

	rows := addKeyRow(sqlmock.NewRows(keyRowColumns()), key, "{}")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT")).
		WithArgs(cutoff).
		WillReturnRows(rows)

	keys, err := repo.ExpiringBefore(context.Background(), cutoff)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, key.ID, keys[0].ID)
}

func TestPostgreSQLKeyRepository_ExistsVersion(t *testing.T) {
	mock, repo := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("org-1", cryptoDomain.KeyTypeData, 2).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsVersion(context.Background(), "org-1", cryptoDomain.KeyTypeData, 2)
	require.NoError(t, err)
	assert.True(t, exists)
}
