package dto

import (
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/credfolio/fieldvault/internal/crypto/domain"
	cryptoUseCase "github.com/credfolio/fieldvault/internal/crypto/usecase"
)

// KeyResponse represents an encryption key in API responses. Key material,
// wrapped or plaintext, is never serialized.
type KeyResponse struct {
	ID        string            `json:"id"`
	Scope     string            `json:"scope"`
	KeyType   string            `json:"key_type"`
	Algorithm string            `json:"algorithm"`
	Version   uint              `json:"version"`
	Status    string            `json:"status"`
	IsActive  bool              `json:"is_active"`
	CreatedAt time.Time         `json:"created_at"`
	ExpiresAt time.Time         `json:"expires_at"`
	RotatedAt *time.Time        `json:"rotated_at,omitempty"`
	RotatedBy string            `json:"rotated_by,omitempty"`
	RevokedAt *time.Time        `json:"revoked_at,omitempty"`
	RevokedBy string            `json:"revoked_by,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// MapKeyToResponse converts a domain key to an API response.
func MapKeyToResponse(key *cryptoDomain.EncryptionKey) KeyResponse {
	return KeyResponse{
		ID:        key.ID.String(),
		Scope:     key.Scope,
		KeyType:   string(key.KeyType),
		Algorithm: string(key.Algorithm),
		Version:   key.Version,
		Status:    string(key.Status(time.Now().UTC())),
		IsActive:  key.IsActive,
		CreatedAt: key.CreatedAt,
		ExpiresAt: key.ExpiresAt,
		RotatedAt: key.RotatedAt,
		RotatedBy: key.RotatedBy,
		RevokedAt: key.RevokedAt,
		RevokedBy: key.RevokedBy,
		Metadata:  key.Metadata,
	}
}

// MapKeysToResponse converts a slice of domain keys.
func MapKeysToResponse(keys []*cryptoDomain.EncryptionKey) []KeyResponse {
	out := make([]KeyResponse, 0, len(keys))
	for _, key := range keys {
		out = append(out, MapKeyToResponse(key))
	}
	return out
}

// ListKeysResponse wraps a paginated key listing.
type ListKeysResponse struct {
	Keys   []KeyResponse `json:"keys"`
	Offset int           `json:"offset"`
	Limit  int           `json:"limit"`
	Total  int           `json:"total"`
}

// RotationResponse represents the outcome of a rotate call.
type RotationResponse struct {
	OldKeyID            string `json:"old_key_id,omitempty"`
	NewKeyID            string `json:"new_key_id"`
	Version             uint   `json:"version"`
	ReencryptionStarted bool   `json:"reencryption_started"`
}

// MapRotationToResponse converts a domain rotation result.
func MapRotationToResponse(result *cryptoDomain.RotationResult) RotationResponse {
	resp := RotationResponse{
		NewKeyID:            result.NewKeyID.String(),
		Version:             result.Version,
		ReencryptionStarted: result.ReencryptionStarted,
	}
	if result.OldKeyID != uuid.Nil {
		resp.OldKeyID = result.OldKeyID.String()
	}
	return resp
}

// AuditEventResponse represents one key lifecycle audit event.
type AuditEventResponse struct {
	ID        string    `json:"id"`
	KeyID     string    `json:"key_id,omitempty"`
	Scope     string    `json:"scope"`
	Action    string    `json:"action"`
	Actor     string    `json:"actor"`
	Details   string    `json:"details,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// MapAuditEventsToResponse converts domain audit events.
func MapAuditEventsToResponse(events []*cryptoDomain.KeyAuditEvent) []AuditEventResponse {
	out := make([]AuditEventResponse, 0, len(events))
	for _, event := range events {
		resp := AuditEventResponse{
			ID:        event.ID.String(),
			Scope:     event.Scope,
			Action:    event.Action,
			Actor:     event.Actor,
			Details:   event.Details,
			CreatedAt: event.CreatedAt,
		}
		if event.KeyID != uuid.Nil {
			resp.KeyID = event.KeyID.String()
		}
		out = append(out, resp)
	}
	return out
}

// ExportKeysResponse wraps the password-protected backup blob.
type ExportKeysResponse struct {
	Backup string `json:"backup"`
}

// ImportKeysResponse reports import counts.
type ImportKeysResponse struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// MapImportToResponse converts a use case import result.
func MapImportToResponse(result *cryptoUseCase.ImportResult) ImportKeysResponse {
	return ImportKeysResponse{
		Imported: result.Imported,
		Skipped:  result.Skipped,
	}
}

// EncryptionStatusResponse reports whether field encryption is active or the
// service is running in degraded pass-through mode.
type EncryptionStatusResponse struct {
	Enabled    bool `json:"enabled"`
	KeysLoaded int  `json:"keys_loaded"`
}
