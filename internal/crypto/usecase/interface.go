// Package usecase orchestrates key management: generation, rotation with
// background re-encryption, revocation, integrity checks, reporting, and
// password-protected export/import. Use cases coordinate the encryption
// service, the repositories, and the transaction manager, and they emit audit
// events for every lifecycle mutation.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/credfolio/fieldvault/internal/crypto/domain"
)

// KeyRepository is the persistence port for encryption keys.
//
// All methods are transaction-aware via context propagation, so multi-step
// flows (deactivate old + insert new during rotation) run atomically inside a
// TxManager.WithTx block. Implementations exist for PostgreSQL and MySQL.
type KeyRepository interface {
	// Create inserts a fully populated key row. Material is immutable after.
	Create(ctx context.Context, key *cryptoDomain.EncryptionKey) error

	// Update persists lifecycle mutations: is_active, rotation and revocation
	// stamps, metadata.
	Update(ctx context.Context, key *cryptoDomain.EncryptionKey) error

	// GetByID returns ErrKeyNotFound for unknown ids.
	GetByID(ctx context.Context, id uuid.UUID) (*cryptoDomain.EncryptionKey, error)

	// List returns all keys ordered by scope, key type, version descending.
	List(ctx context.Context) ([]*cryptoDomain.EncryptionKey, error)

	// ListByScope returns a scope's keys ordered by key type, version descending.
	ListByScope(ctx context.Context, scope string) ([]*cryptoDomain.EncryptionKey, error)

	// MaxVersion returns the highest version for a (scope, key type), or zero.
	MaxVersion(ctx context.Context, scope string, keyType cryptoDomain.KeyType) (uint, error)

	// DeactivateActive flips is_active off for the slot's active key and
	// returns its id, or uuid.Nil when none was active.
	DeactivateActive(ctx context.Context, scope string, keyType cryptoDomain.KeyType) (uuid.UUID, error)

	// ExpiringBefore lists non-revoked keys expiring before the cutoff.
	ExpiringBefore(ctx context.Context, cutoff time.Time) ([]*cryptoDomain.EncryptionKey, error)

	// ExistsVersion reports whether a (scope, key type, version) row exists.
	ExistsVersion(ctx context.Context, scope string, keyType cryptoDomain.KeyType, version uint) (bool, error)
}

// AuditLogRepository is the persistence port for key lifecycle audit events.
type AuditLogRepository interface {
	Create(ctx context.Context, event *cryptoDomain.KeyAuditEvent) error
	List(ctx context.Context, scope string, limit int) ([]*cryptoDomain.KeyAuditEvent, error)
}

// ImportResult summarizes a backup import.
type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// KeyUseCase is the key management surface consumed by the HTTP handlers and
// the CLI commands.
type KeyUseCase interface {
	// LoadKeyChain loads all persisted keys, unwraps their material, and
	// refreshes the in-memory key chain. Called at startup and after import.
	LoadKeyChain(ctx context.Context) error

	// GenerateKey creates a new active working key for a (scope, key type),
	// deactivating any previous active key without rotation stamps.
	GenerateKey(
		ctx context.Context,
		scope string,
		keyType cryptoDomain.KeyType,
		alg cryptoDomain.Algorithm,
		actor string,
	) (*cryptoDomain.EncryptionKey, error)

	// RotateKey atomically deactivates the current active key, stamps it
	// rotated, and creates a successor with the next version. When reencrypt
	// is true a detached background job rewrites existing data onto the new
	// key. A second rotation for a scope whose re-encryption is still running
	// is rejected with ErrRotationInProgress.
	RotateKey(
		ctx context.Context,
		scope string,
		keyType cryptoDomain.KeyType,
		alg cryptoDomain.Algorithm,
		actor string,
		reencrypt bool,
	) (*cryptoDomain.RotationResult, error)

	// RevokeKey permanently marks a key revoked: it stops encrypting
	// immediately but its material is retained for decryption. Irreversible.
	RevokeKey(ctx context.Context, id uuid.UUID, actor, reason string) error

	// GetKey retrieves a single key without plaintext material.
	GetKey(ctx context.Context, id uuid.UUID) (*cryptoDomain.EncryptionKey, error)

	// ListKeys lists keys, scoped when scope is non-empty.
	ListKeys(ctx context.Context, scope string) ([]*cryptoDomain.EncryptionKey, error)

	// VerifyKey checks that a key's material unwraps, round-trips a probe
	// value, and has not passed its expiry horizon. Non-mutating.
	VerifyKey(ctx context.Context, id uuid.UUID) (*cryptoDomain.KeyIntegrity, error)

	// ExpiringKeys lists non-revoked keys expiring within the window.
	ExpiringKeys(ctx context.Context, within time.Duration) ([]*cryptoDomain.EncryptionKey, error)

	// Stats aggregates lifecycle counters across all keys.
	Stats(ctx context.Context) (*cryptoDomain.KeyStats, error)

	// RotationStatus returns the progress of the scope's current or last
	// background re-encryption job.
	RotationStatus(scope string) (cryptoDomain.RotationStatus, bool)

	// CancelRotation stops the scope's running re-encryption job.
	CancelRotation(scope string) error

	// AuditLog lists recent lifecycle events for a scope, newest first.
	AuditLog(ctx context.Context, scope string, limit int) ([]*cryptoDomain.KeyAuditEvent, error)

	// ExportKeys serializes all keys into a password-protected backup blob.
	ExportKeys(ctx context.Context, password, actor string) (string, error)

	// ImportKeys restores keys from a backup blob. A wrong password fails with
	// ErrInvalidCredentials before anything is written; version conflicts are
	// skipped; any write failure rolls the whole import back.
	ImportKeys(ctx context.Context, blob, password, actor string) (*ImportResult, error)
}
