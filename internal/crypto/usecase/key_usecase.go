package usecase

import (
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/credfolio/fieldvault/internal/crypto/domain"
	cryptoService "github.com/credfolio/fieldvault/internal/crypto/service"
	"github.com/credfolio/fieldvault/internal/database"
	apperrors "github.com/credfolio/fieldvault/internal/errors"
)

// workingKeyLen is the size of generated working-key material. All supported
// AEAD algorithms take 256-bit keys.
const workingKeyLen = 32

type keyUseCase struct {
	txManager   database.TxManager
	keyRepo     KeyRepository
	auditRepo   AuditLogRepository
	encryptor   cryptoService.Encryptor
	aeadManager cryptoService.AEADManager
	reencryptor *cryptoService.Reencryptor
	keyExpiry   time.Duration
	logger      *slog.Logger
}

// NewKeyUseCase creates the key management use case. keyExpiry is the horizon
// stamped on newly generated keys.
func NewKeyUseCase(
	txManager database.TxManager,
	keyRepo KeyRepository,
	auditRepo AuditLogRepository,
	encryptor cryptoService.Encryptor,
	aeadManager cryptoService.AEADManager,
	reencryptor *cryptoService.Reencryptor,
	keyExpiry time.Duration,
	logger *slog.Logger,
) KeyUseCase {
	return &keyUseCase{
		txManager:   txManager,
		keyRepo:     keyRepo,
		auditRepo:   auditRepo,
		encryptor:   encryptor,
		aeadManager: aeadManager,
		reencryptor: reencryptor,
		keyExpiry:   keyExpiry,
		logger:      logger,
	}
}

// audit appends a lifecycle event inside the caller's transaction.
func (k *keyUseCase) audit(ctx context.Context, keyID uuid.UUID, scope, action, actor, details string) error {
	return k.auditRepo.Create(ctx, &cryptoDomain.KeyAuditEvent{
		ID:        uuid.Must(uuid.NewV7()),
		KeyID:     keyID,
		Scope:     scope,
		Action:    action,
		Actor:     actor,
		Details:   details,
		CreatedAt: time.Now().UTC(),
	})
}

// newWorkingKey generates and wraps fresh key material. The returned key is
// fully populated except for Version and lifecycle stamps.
func (k *keyUseCase) newWorkingKey(
	scope string,
	keyType cryptoDomain.KeyType,
	alg cryptoDomain.Algorithm,
) (*cryptoDomain.EncryptionKey, error) {
	if !k.encryptor.Enabled() {
		return nil, fmt.Errorf("%w: cannot manage keys without a master secret", apperrors.ErrInvalidInput)
	}

	material := make([]byte, workingKeyLen)
	if _, err := rand.Read(material); err != nil {
		return nil, apperrors.Wrap(err, "failed to generate key material")
	}

	encrypted, nonce, err := k.encryptor.WrapKey(material)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &cryptoDomain.EncryptionKey{
		ID:                uuid.Must(uuid.NewV7()),
		Scope:             cryptoDomain.NormalizeScope(scope),
		KeyType:           keyType,
		Algorithm:         alg,
		EncryptedMaterial: encrypted,
		Nonce:             nonce,
		Key:               material,
		IsActive:          true,
		CreatedAt:         now,
		ExpiresAt:         now.Add(k.keyExpiry),
	}, nil
}

// LoadKeyChain loads and unwraps all persisted keys into the in-memory chain.
// In degraded mode (no master secret) this is a logged no-op.
func (k *keyUseCase) LoadKeyChain(ctx context.Context) error {
	if !k.encryptor.Enabled() {
		k.logger.Warn("skipping key chain load, encryption disabled")
		return nil
	}

	keys, err := k.keyRepo.List(ctx)
	if err != nil {
		return err
	}

	for _, key := range keys {
		material, err := k.encryptor.UnwrapKey(key)
		if err != nil {
			return fmt.Errorf("failed to unwrap key %s: %w", key.ID, err)
		}
		key.Key = material
	}

	chain := k.encryptor.KeyChain()
	chain.Close()
	for _, key := range keys {
		chain.Store(key)
	}

	k.logger.Info("key chain loaded", slog.Int("keys", len(keys)))
	return nil
}

func (k *keyUseCase) GenerateKey(
	ctx context.Context,
	scope string,
	keyType cryptoDomain.KeyType,
	alg cryptoDomain.Algorithm,
	actor string,
) (*cryptoDomain.EncryptionKey, error) {
	key, err := k.newWorkingKey(scope, keyType, alg)
	if err != nil {
		return nil, err
	}

	var previousID uuid.UUID
	err = k.txManager.WithTx(ctx, func(ctx context.Context) error {
		version, err := k.keyRepo.MaxVersion(ctx, key.Scope, keyType)
		if err != nil {
			return err
		}
		key.Version = version + 1

		previousID, err = k.keyRepo.DeactivateActive(ctx, key.Scope, keyType)
		if err != nil {
			return err
		}

		if err := k.keyRepo.Create(ctx, key); err != nil {
			return err
		}

		return k.audit(ctx, key.ID, key.Scope, cryptoDomain.AuditActionKeyGenerated, actor,
			fmt.Sprintf("type=%s algorithm=%s version=%d", keyType, alg, key.Version))
	})
	if err != nil {
		return nil, err
	}

	chain := k.encryptor.KeyChain()
	if previousID != uuid.Nil {
		chain.Deactivate(previousID)
	}
	chain.Store(key)

	k.logger.Info("encryption key generated",
		slog.String("key_id", key.ID.String()),
		slog.String("scope", key.Scope),
		slog.String("key_type", string(keyType)),
		slog.Uint64("version", uint64(key.Version)))

	return key, nil
}

func (k *keyUseCase) RotateKey(
	ctx context.Context,
	scope string,
	keyType cryptoDomain.KeyType,
	alg cryptoDomain.Algorithm,
	actor string,
	reencrypt bool,
) (*cryptoDomain.RotationResult, error) {
	scope = cryptoDomain.NormalizeScope(scope)

	if k.reencryptor.InProgress(scope) {
		return nil, cryptoDomain.ErrRotationInProgress
	}

	key, err := k.newWorkingKey(scope, keyType, alg)
	if err != nil {
		return nil, err
	}

	result := &cryptoDomain.RotationResult{NewKeyID: key.ID}
	err = k.txManager.WithTx(ctx, func(ctx context.Context) error {
		version, err := k.keyRepo.MaxVersion(ctx, scope, keyType)
		if err != nil {
			return err
		}
		key.Version = version + 1
		result.Version = key.Version

		oldID, err := k.keyRepo.DeactivateActive(ctx, scope, keyType)
		if err != nil {
			return err
		}
		result.OldKeyID = oldID

		if oldID != uuid.Nil {
			old, err := k.keyRepo.GetByID(ctx, oldID)
			if err != nil {
				return err
			}
			now := time.Now().UTC()
			old.IsActive = false
			old.RotatedAt = &now
			old.RotatedBy = actor
			if err := k.keyRepo.Update(ctx, old); err != nil {
				return err
			}
		}

		if err := k.keyRepo.Create(ctx, key); err != nil {
			return err
		}

		return k.audit(ctx, key.ID, scope, cryptoDomain.AuditActionKeyRotated, actor,
			fmt.Sprintf("type=%s algorithm=%s version=%d previous=%s", keyType, alg, key.Version, result.OldKeyID))
	})
	if err != nil {
		return nil, err
	}

	chain := k.encryptor.KeyChain()
	if result.OldKeyID != uuid.Nil {
		chain.Deactivate(result.OldKeyID)
	}
	chain.Store(key)

	// Re-encryption only makes sense when older envelopes exist.
	if reencrypt && result.OldKeyID != uuid.Nil {
		if err := k.reencryptor.Start(scope, key.ID); err != nil {
			return nil, err
		}
		result.ReencryptionStarted = true
	}

	k.logger.Info("encryption key rotated",
		slog.String("scope", scope),
		slog.String("new_key_id", key.ID.String()),
		slog.String("old_key_id", result.OldKeyID.String()),
		slog.Bool("reencryption_started", result.ReencryptionStarted))

	return result, nil
}

func (k *keyUseCase) RevokeKey(ctx context.Context, id uuid.UUID, actor, reason string) error {
	var revoked *cryptoDomain.EncryptionKey
	err := k.txManager.WithTx(ctx, func(ctx context.Context) error {
		key, err := k.keyRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if key.Revoked() {
			return fmt.Errorf("%w: key %s is already revoked", apperrors.ErrConflict, id)
		}

		now := time.Now().UTC()
		key.IsActive = false
		key.RevokedAt = &now
		key.RevokedBy = actor
		if reason != "" {
			if key.Metadata == nil {
				key.Metadata = make(map[string]string)
			}
			key.Metadata["revocation_reason"] = reason
		}

		if err := k.keyRepo.Update(ctx, key); err != nil {
			return err
		}
		revoked = key

		return k.audit(ctx, key.ID, key.Scope, cryptoDomain.AuditActionKeyRevoked, actor, reason)
	})
	if err != nil {
		return err
	}

	k.encryptor.KeyChain().Revoke(id, *revoked.RevokedAt, revoked.RevokedBy)

	// Revocation is a security event, not routine maintenance: data encrypted
	// under this key stays readable, but the slot may be left with no active
	// key until the operator generates a replacement.
	k.logger.Warn("security event: encryption key revoked",
		slog.String("key_id", id.String()),
		slog.String("scope", revoked.Scope),
		slog.String("actor", actor),
		slog.String("reason", reason))

	return nil
}

func (k *keyUseCase) GetKey(ctx context.Context, id uuid.UUID) (*cryptoDomain.EncryptionKey, error) {
	return k.keyRepo.GetByID(ctx, id)
}

func (k *keyUseCase) ListKeys(ctx context.Context, scope string) ([]*cryptoDomain.EncryptionKey, error) {
	if scope == "" {
		return k.keyRepo.List(ctx)
	}
	return k.keyRepo.ListByScope(ctx, cryptoDomain.NormalizeScope(scope))
}

// VerifyKey unwraps the key's material, round-trips a probe value through the
// key's own algorithm, and checks the expiry horizon. An unhealthy key yields
// Valid=false, not an error.
func (k *keyUseCase) VerifyKey(ctx context.Context, id uuid.UUID) (*cryptoDomain.KeyIntegrity, error) {
	key, err := k.keyRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	material, err := k.encryptor.UnwrapKey(key)
	if err != nil {
		return &cryptoDomain.KeyIntegrity{
			Valid:   false,
			Message: "key material failed to unwrap under the master key",
		}, nil
	}
	defer cryptoDomain.Zero(material)

	aead, err := k.aeadManager.CreateCipher(material, key.Algorithm)
	if err != nil {
		return &cryptoDomain.KeyIntegrity{
			Valid:   false,
			Message: fmt.Sprintf("cipher construction failed: %v", err),
		}, nil
	}

	probe := []byte("integrity-probe")
	sealed, nonce, err := aead.Encrypt(probe, nil)
	if err == nil {
		var opened []byte
		opened, err = aead.Decrypt(sealed, nonce, nil)
		if err == nil && !bytes.Equal(opened, probe) {
			err = fmt.Errorf("probe mismatch")
		}
	}
	if err != nil {
		return &cryptoDomain.KeyIntegrity{
			Valid:   false,
			Message: fmt.Sprintf("probe round-trip failed: %v", err),
		}, nil
	}

	if key.Expired(time.Now().UTC()) {
		return &cryptoDomain.KeyIntegrity{
			Valid:   false,
			Message: fmt.Sprintf("key material verified but key expired at %s", key.ExpiresAt.UTC().Format(time.RFC3339)),
		}, nil
	}

	return &cryptoDomain.KeyIntegrity{Valid: true, Message: "key material verified"}, nil
}

func (k *keyUseCase) ExpiringKeys(ctx context.Context, within time.Duration) ([]*cryptoDomain.EncryptionKey, error) {
	return k.keyRepo.ExpiringBefore(ctx, time.Now().UTC().Add(within))
}

func (k *keyUseCase) Stats(ctx context.Context) (*cryptoDomain.KeyStats, error) {
	keys, err := k.keyRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	stats := &cryptoDomain.KeyStats{
		ByScope: make(map[string]int),
		ByType:  make(map[string]int),
	}

	for _, key := range keys {
		stats.TotalKeys++
		stats.ByScope[key.Scope]++
		stats.ByType[string(key.KeyType)]++

		switch key.Status(now) {
		case cryptoDomain.KeyStatusActive:
			stats.ActiveKeys++
		case cryptoDomain.KeyStatusRotated:
			stats.RotatedKeys++
		case cryptoDomain.KeyStatusRevoked:
			stats.RevokedKeys++
		case cryptoDomain.KeyStatusExpired:
			stats.ExpiredKeys++
		}
	}

	return stats, nil
}

func (k *keyUseCase) RotationStatus(scope string) (cryptoDomain.RotationStatus, bool) {
	return k.reencryptor.Status(scope)
}

func (k *keyUseCase) CancelRotation(scope string) error {
	return k.reencryptor.Cancel(scope)
}

func (k *keyUseCase) AuditLog(ctx context.Context, scope string, limit int) ([]*cryptoDomain.KeyAuditEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	return k.auditRepo.List(ctx, cryptoDomain.NormalizeScope(scope), limit)
}
