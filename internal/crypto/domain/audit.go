package domain

import (
	"time"

	"github.com/google/uuid"
)

// Audit actions recorded for key lifecycle events. Every generation, rotation,
// revocation, import and export is logged; revocation is additionally surfaced
// as a security event because data encrypted under a revoked key becomes
// inaccessible for new writes.
const (
	AuditActionKeyGenerated = "key.generated"
	AuditActionKeyRotated   = "key.rotated"
	AuditActionKeyRevoked   = "key.revoked"
	AuditActionKeysExported = "keys.exported"
	AuditActionKeysImported = "keys.imported"
)

// KeyAuditEvent records one key lifecycle event for the audit sink.
type KeyAuditEvent struct {
	ID        uuid.UUID
	KeyID     uuid.UUID // Nil UUID for events not tied to a single key (export/import)
	Scope     string
	Action    string
	Actor     string
	Details   string
	CreatedAt time.Time
}
