package usecase

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/credfolio/fieldvault/internal/crypto/domain"
	cryptoService "github.com/credfolio/fieldvault/internal/crypto/service"
	apperrors "github.com/credfolio/fieldvault/internal/errors"
)

// Backup blob wire format: "fvbackup:v1:<salt>:<nonce>:<ciphertext>" with
// base64 standard encoding for the binary segments. The ciphertext is the
// JSON payload sealed with AES-256-GCM under a key stretched from the backup
// password, so integrity and password verification come from the same tag
// check: a wrong password is indistinguishable from a corrupted blob, and
// both fail before anything touches the database.
const (
	backupPrefix   = "fvbackup:"
	backupVersion  = 1
	backupSegments = 5
	backupSaltLen  = 16
)

// backupPayload is the serialized content of an export.
type backupPayload struct {
	Version    int          `json:"version"`
	ExportedAt time.Time    `json:"exportedAt"`
	Keys       []backupItem `json:"keys"`
}

// backupItem carries one key row. Material stays wrapped under the master
// key, so restoring a backup requires the same master secret; the backup
// password alone never yields plaintext key material.
type backupItem struct {
	ID                uuid.UUID              `json:"id"`
	Scope             string                 `json:"scope"`
	KeyType           cryptoDomain.KeyType   `json:"keyType"`
	Algorithm         cryptoDomain.Algorithm `json:"algorithm"`
	Version           uint                   `json:"version"`
	EncryptedMaterial []byte                 `json:"encryptedMaterial"`
	Nonce             []byte                 `json:"nonce"`
	CreatedAt         time.Time              `json:"createdAt"`
	ExpiresAt         time.Time              `json:"expiresAt"`
	RotatedAt         *time.Time             `json:"rotatedAt,omitempty"`
	RotatedBy         string                 `json:"rotatedBy,omitempty"`
	RevokedAt         *time.Time             `json:"revokedAt,omitempty"`
	RevokedBy         string                 `json:"revokedBy,omitempty"`
	Metadata          map[string]string      `json:"metadata,omitempty"`
}

// ExportKeys serializes every key (all scopes, all lifecycle states) into a
// password-protected blob. Rotated and revoked keys are included: a backup
// that omitted them could not decrypt historical data after a restore.
func (k *keyUseCase) ExportKeys(ctx context.Context, password, actor string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("%w: backup password must not be empty", apperrors.ErrInvalidInput)
	}

	keys, err := k.keyRepo.List(ctx)
	if err != nil {
		return "", err
	}

	payload := backupPayload{
		Version:    backupVersion,
		ExportedAt: time.Now().UTC(),
		Keys:       make([]backupItem, 0, len(keys)),
	}
	for _, key := range keys {
		payload.Keys = append(payload.Keys, backupItem{
			ID:                key.ID,
			Scope:             key.Scope,
			KeyType:           key.KeyType,
			Algorithm:         key.Algorithm,
			Version:           key.Version,
			EncryptedMaterial: key.EncryptedMaterial,
			Nonce:             key.Nonce,
			CreatedAt:         key.CreatedAt,
			ExpiresAt:         key.ExpiresAt,
			RotatedAt:         key.RotatedAt,
			RotatedBy:         key.RotatedBy,
			RevokedAt:         key.RevokedAt,
			RevokedBy:         key.RevokedBy,
			Metadata:          key.Metadata,
		})
	}

	blob, err := k.sealBackup(payload, password)
	if err != nil {
		return "", err
	}

	if err := k.audit(ctx, uuid.Nil, cryptoDomain.ScopeGlobal, cryptoDomain.AuditActionKeysExported, actor,
		fmt.Sprintf("keys=%d", len(keys))); err != nil {
		return "", err
	}

	k.logger.Info("keys exported", slog.Int("keys", len(keys)), slog.String("actor", actor))
	return blob, nil
}

// ImportKeys restores keys from a backup blob inside one transaction: either
// every non-conflicting key lands or none do. Keys whose (scope, key type,
// version) already exists are skipped, never overwritten. Imported keys are
// stored inactive; the operator rotates or generates afterwards to establish
// active keys, which keeps the one-active-per-slot invariant unconditionally.
func (k *keyUseCase) ImportKeys(ctx context.Context, blob, password, actor string) (*ImportResult, error) {
	payload, err := k.openBackup(blob, password)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{}
	err = k.txManager.WithTx(ctx, func(ctx context.Context) error {
		for _, item := range payload.Keys {
			exists, err := k.keyRepo.ExistsVersion(ctx, item.Scope, item.KeyType, item.Version)
			if err != nil {
				return err
			}
			if exists {
				result.Skipped++
				continue
			}

			key := &cryptoDomain.EncryptionKey{
				ID:                item.ID,
				Scope:             item.Scope,
				KeyType:           item.KeyType,
				Algorithm:         item.Algorithm,
				Version:           item.Version,
				EncryptedMaterial: item.EncryptedMaterial,
				Nonce:             item.Nonce,
				IsActive:          false,
				CreatedAt:         item.CreatedAt,
				ExpiresAt:         item.ExpiresAt,
				RotatedAt:         item.RotatedAt,
				RotatedBy:         item.RotatedBy,
				RevokedAt:         item.RevokedAt,
				RevokedBy:         item.RevokedBy,
				Metadata:          item.Metadata,
			}
			if err := k.keyRepo.Create(ctx, key); err != nil {
				return err
			}
			result.Imported++
		}

		return k.audit(ctx, uuid.Nil, cryptoDomain.ScopeGlobal, cryptoDomain.AuditActionKeysImported, actor,
			fmt.Sprintf("imported=%d skipped=%d", result.Imported, result.Skipped))
	})
	if err != nil {
		return nil, err
	}

	if err := k.LoadKeyChain(ctx); err != nil {
		return nil, err
	}

	k.logger.Info("keys imported",
		slog.Int("imported", result.Imported),
		slog.Int("skipped", result.Skipped),
		slog.String("actor", actor))
	return result, nil
}

func (k *keyUseCase) sealBackup(payload backupPayload, password string) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", apperrors.Wrap(err, "failed to marshal backup payload")
	}

	salt := make([]byte, backupSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", apperrors.Wrap(err, "failed to generate backup salt")
	}

	key, err := cryptoService.DeriveBackupKey(password, salt)
	if err != nil {
		return "", err
	}
	defer cryptoDomain.Zero(key)

	aead, err := k.aeadManager.CreateCipher(key, cryptoDomain.AESGCM)
	if err != nil {
		return "", err
	}
	sealed, nonce, err := aead.Encrypt(data, nil)
	if err != nil {
		return "", apperrors.Wrap(err, "failed to seal backup")
	}

	var b strings.Builder
	b.WriteString(backupPrefix)
	b.WriteString(fmt.Sprintf("v%d:", backupVersion))
	b.WriteString(base64.StdEncoding.EncodeToString(salt))
	b.WriteString(":")
	b.WriteString(base64.StdEncoding.EncodeToString(nonce))
	b.WriteString(":")
	b.WriteString(base64.StdEncoding.EncodeToString(sealed))
	return b.String(), nil
}

func (k *keyUseCase) openBackup(blob, password string) (*backupPayload, error) {
	if password == "" {
		return nil, fmt.Errorf("%w: backup password must not be empty", apperrors.ErrInvalidInput)
	}
	if !strings.HasPrefix(blob, backupPrefix) {
		return nil, fmt.Errorf("%w: missing backup prefix", apperrors.ErrInvalidInput)
	}

	parts := strings.Split(blob, ":")
	if len(parts) != backupSegments {
		return nil, fmt.Errorf("%w: expected %d backup segments, got %d",
			apperrors.ErrInvalidInput, backupSegments, len(parts))
	}
	if parts[1] != fmt.Sprintf("v%d", backupVersion) {
		return nil, fmt.Errorf("%w: unsupported backup version %q", apperrors.ErrInvalidInput, parts[1])
	}

	salt, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		return nil, fmt.Errorf("%w: invalid salt encoding", apperrors.ErrInvalidInput)
	}
	nonce, err := base64.StdEncoding.DecodeString(parts[3])
	if err != nil {
		return nil, fmt.Errorf("%w: invalid nonce encoding", apperrors.ErrInvalidInput)
	}
	sealed, err := base64.StdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, fmt.Errorf("%w: invalid ciphertext encoding", apperrors.ErrInvalidInput)
	}

	key, err := cryptoService.DeriveBackupKey(password, salt)
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(key)

	aead, err := k.aeadManager.CreateCipher(key, cryptoDomain.AESGCM)
	if err != nil {
		return nil, err
	}
	data, err := aead.Decrypt(sealed, nonce, nil)
	if err != nil {
		return nil, cryptoDomain.ErrInvalidCredentials
	}

	var payload backupPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal backup payload")
	}
	return &payload, nil
}
