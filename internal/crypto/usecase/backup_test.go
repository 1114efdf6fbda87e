package usecase

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/credfolio/fieldvault/internal/crypto/domain"
	cryptoService "github.com/credfolio/fieldvault/internal/crypto/service"
	apperrors "github.com/credfolio/fieldvault/internal/errors"
	"github.com/credfolio/fieldvault/internal/registry"
)

// newRestoreTarget builds a second use case over its own empty repositories,
// sharing the master secret with the source deployment.
func newRestoreTarget(t *testing.T) useCaseFixture {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	svc, err := cryptoService.NewEncryptionService("test-secret", "test-salt", cryptoService.NewAEADManager(), logger)
	require.NoError(t, err)
	t.Cleanup(svc.Close)

	reg, err := registry.New([]registry.FieldConfig{{Table: "clients", Column: "bank_account"}}, nil)
	require.NoError(t, err)

	keyRepo := &fakeKeyRepo{}
	auditRepo := &fakeAuditRepo{}
	uc := NewKeyUseCase(fakeTxManager{}, keyRepo, auditRepo, svc, cryptoService.NewAEADManager(),
		cryptoService.NewReencryptor(reg, svc, emptyRowStore{}, 10, 1, logger), 90*24*time.Hour, logger)
	return useCaseFixture{uc: uc, keyRepo: keyRepo, auditRepo: auditRepo, svc: svc}
}

func TestKeyUseCase_ExportImportKeys(t *testing.T) {
	ctx := context.Background()
	source := newTestKeyUseCase(t, emptyRowStore{})

	first, err := source.uc.GenerateKey(ctx, "org-1", cryptoDomain.KeyTypeData, cryptoDomain.AESGCM, "tester")
	require.NoError(t, err)
	_, err = source.uc.GenerateKey(ctx, "org-2", cryptoDomain.KeyTypeData, cryptoDomain.ChaCha20, "tester")
	require.NoError(t, err)

	encrypted, err := source.svc.Encrypt("survives restore", cryptoService.EncryptOptions{Scope: "org-1"})
	require.NoError(t, err)

	blob, err := source.uc.ExportKeys(ctx, "backup-password", "admin")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(blob, "fvbackup:v1:"))
	assert.Equal(t, cryptoDomain.AuditActionKeysExported, source.auditRepo.lastAction())

	t.Run("round trip into an empty deployment", func(t *testing.T) {
		target := newRestoreTarget(t)

		result, err := target.uc.ImportKeys(ctx, blob, "backup-password", "admin")
		require.NoError(t, err)
		assert.Equal(t, 2, result.Imported)
		assert.Zero(t, result.Skipped)
		assert.Equal(t, cryptoDomain.AuditActionKeysImported, target.auditRepo.lastAction())

		// Imported keys land inactive regardless of their exported state.
		keys, err := target.uc.ListKeys(ctx, "")
		require.NoError(t, err)
		require.Len(t, keys, 2)
		for _, key := range keys {
			assert.False(t, key.IsActive)
		}

		// The reloaded chain decrypts envelopes written before the restore.
		decrypted, err := target.svc.Decrypt(encrypted)
		require.NoError(t, err)
		assert.Equal(t, "survives restore", decrypted)
	})

	t.Run("wrong password fails before anything is written", func(t *testing.T) {
		target := newRestoreTarget(t)

		_, err := target.uc.ImportKeys(ctx, blob, "wrong-password", "admin")
		assert.ErrorIs(t, err, cryptoDomain.ErrInvalidCredentials)

		keys, err := target.uc.ListKeys(ctx, "")
		require.NoError(t, err)
		assert.Empty(t, keys)
	})

	t.Run("existing versions are skipped, never overwritten", func(t *testing.T) {
		result, err := source.uc.ImportKeys(ctx, blob, "backup-password", "admin")
		require.NoError(t, err)
		assert.Zero(t, result.Imported)
		assert.Equal(t, 2, result.Skipped)

		// The original active key is untouched.
		key, err := source.uc.GetKey(ctx, first.ID)
		require.NoError(t, err)
		assert.True(t, key.IsActive)
	})

	t.Run("revoked keys survive the round trip", func(t *testing.T) {
		require.NoError(t, source.uc.RevokeKey(ctx, first.ID, "secops", "decommissioned"))

		revokedBlob, err := source.uc.ExportKeys(ctx, "backup-password", "admin")
		require.NoError(t, err)

		target := newRestoreTarget(t)
		_, err = target.uc.ImportKeys(ctx, revokedBlob, "backup-password", "admin")
		require.NoError(t, err)

		restored, err := target.uc.GetKey(ctx, first.ID)
		require.NoError(t, err)
		require.NotNil(t, restored.RevokedAt)
		assert.Equal(t, "secops", restored.RevokedBy)
	})
}

func TestKeyUseCase_ExportKeys_Validation(t *testing.T) {
	ctx := context.Background()
	fx := newTestKeyUseCase(t, emptyRowStore{})

	_, err := fx.uc.ExportKeys(ctx, "", "admin")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestKeyUseCase_ImportKeys_Validation(t *testing.T) {
	ctx := context.Background()
	fx := newTestKeyUseCase(t, emptyRowStore{})

	t.Run("empty password", func(t *testing.T) {
		_, err := fx.uc.ImportKeys(ctx, "fvbackup:v1:a:b:c", "", "admin")
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("missing prefix", func(t *testing.T) {
		_, err := fx.uc.ImportKeys(ctx, "not a backup", "pw", "admin")
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("wrong segment count", func(t *testing.T) {
		_, err := fx.uc.ImportKeys(ctx, "fvbackup:v1:only", "pw", "admin")
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("unsupported version", func(t *testing.T) {
		_, err := fx.uc.ImportKeys(ctx, "fvbackup:v9:YQ==:YQ==:YQ==", "pw", "admin")
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("invalid base64 segment", func(t *testing.T) {
		_, err := fx.uc.ImportKeys(ctx, "fvbackup:v1:!!!:YQ==:YQ==", "pw", "admin")
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})
}
