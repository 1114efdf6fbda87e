package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/credfolio/fieldvault/internal/crypto/domain"
	"github.com/credfolio/fieldvault/internal/metrics"
)

// keyUseCaseWithMetrics decorates KeyUseCase with metrics instrumentation.
type keyUseCaseWithMetrics struct {
	next    KeyUseCase
	metrics metrics.BusinessMetrics
}

// NewKeyUseCaseWithMetrics wraps a KeyUseCase with metrics recording.
func NewKeyUseCaseWithMetrics(useCase KeyUseCase, m metrics.BusinessMetrics) KeyUseCase {
	return &keyUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (k *keyUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	k.metrics.RecordOperation(ctx, "keys", operation, status)
	k.metrics.RecordDuration(ctx, "keys", operation, time.Since(start), status)
}

func (k *keyUseCaseWithMetrics) LoadKeyChain(ctx context.Context) error {
	start := time.Now()
	err := k.next.LoadKeyChain(ctx)
	k.record(ctx, "key_chain_load", start, err)
	return err
}

func (k *keyUseCaseWithMetrics) GenerateKey(
	ctx context.Context,
	scope string,
	keyType cryptoDomain.KeyType,
	alg cryptoDomain.Algorithm,
	actor string,
) (*cryptoDomain.EncryptionKey, error) {
	start := time.Now()
	key, err := k.next.GenerateKey(ctx, scope, keyType, alg, actor)
	k.record(ctx, "key_generate", start, err)
	return key, err
}

func (k *keyUseCaseWithMetrics) RotateKey(
	ctx context.Context,
	scope string,
	keyType cryptoDomain.KeyType,
	alg cryptoDomain.Algorithm,
	actor string,
	reencrypt bool,
) (*cryptoDomain.RotationResult, error) {
	start := time.Now()
	result, err := k.next.RotateKey(ctx, scope, keyType, alg, actor, reencrypt)
	k.record(ctx, "key_rotate", start, err)
	return result, err
}

func (k *keyUseCaseWithMetrics) RevokeKey(ctx context.Context, id uuid.UUID, actor, reason string) error {
	start := time.Now()
	err := k.next.RevokeKey(ctx, id, actor, reason)
	k.record(ctx, "key_revoke", start, err)
	return err
}

func (k *keyUseCaseWithMetrics) GetKey(ctx context.Context, id uuid.UUID) (*cryptoDomain.EncryptionKey, error) {
	start := time.Now()
	key, err := k.next.GetKey(ctx, id)
	k.record(ctx, "key_get", start, err)
	return key, err
}

func (k *keyUseCaseWithMetrics) ListKeys(ctx context.Context, scope string) ([]*cryptoDomain.EncryptionKey, error) {
	start := time.Now()
	keys, err := k.next.ListKeys(ctx, scope)
	k.record(ctx, "key_list", start, err)
	return keys, err
}

func (k *keyUseCaseWithMetrics) VerifyKey(ctx context.Context, id uuid.UUID) (*cryptoDomain.KeyIntegrity, error) {
	start := time.Now()
	integrity, err := k.next.VerifyKey(ctx, id)
	k.record(ctx, "key_verify", start, err)
	return integrity, err
}

func (k *keyUseCaseWithMetrics) ExpiringKeys(
	ctx context.Context,
	within time.Duration,
) ([]*cryptoDomain.EncryptionKey, error) {
	start := time.Now()
	keys, err := k.next.ExpiringKeys(ctx, within)
	k.record(ctx, "key_expiring", start, err)
	return keys, err
}

func (k *keyUseCaseWithMetrics) Stats(ctx context.Context) (*cryptoDomain.KeyStats, error) {
	start := time.Now()
	stats, err := k.next.Stats(ctx)
	k.record(ctx, "key_stats", start, err)
	return stats, err
}

func (k *keyUseCaseWithMetrics) RotationStatus(scope string) (cryptoDomain.RotationStatus, bool) {
	return k.next.RotationStatus(scope)
}

func (k *keyUseCaseWithMetrics) CancelRotation(scope string) error {
	return k.next.CancelRotation(scope)
}

func (k *keyUseCaseWithMetrics) AuditLog(
	ctx context.Context,
	scope string,
	limit int,
) ([]*cryptoDomain.KeyAuditEvent, error) {
	start := time.Now()
	events, err := k.next.AuditLog(ctx, scope, limit)
	k.record(ctx, "audit_log_list", start, err)
	return events, err
}

func (k *keyUseCaseWithMetrics) ExportKeys(ctx context.Context, password, actor string) (string, error) {
	start := time.Now()
	blob, err := k.next.ExportKeys(ctx, password, actor)
	k.record(ctx, "keys_export", start, err)
	return blob, err
}

func (k *keyUseCaseWithMetrics) ImportKeys(
	ctx context.Context,
	blob, password, actor string,
) (*ImportResult, error) {
	start := time.Now()
	result, err := k.next.ImportKeys(ctx, blob, password, actor)
	k.record(ctx, "keys_import", start, err)
	return result, err
}
