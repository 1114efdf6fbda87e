package domain

import (
	"time"

	"github.com/google/uuid"
)

// RotationResult summarizes a completed rotateKey call. Re-encryption, when
// requested, runs as a detached background task; ReencryptionStarted reports
// whether one was launched, never whether it finished.
type RotationResult struct {
	OldKeyID            uuid.UUID // Nil UUID when this rotation created the first key
	NewKeyID            uuid.UUID
	Version             uint
	ReencryptionStarted bool
}

// RotationStatus is the pollable progress record of a background
// re-encryption pass for one scope.
type RotationStatus struct {
	Scope           string     `json:"scope"`
	NewKeyID        uuid.UUID  `json:"new_key_id"`
	InProgress      bool       `json:"in_progress"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	Cancelled       bool       `json:"cancelled"`
	Progress        float64    `json:"progress"` // 0.0 to 1.0 across all tables
	TablesProcessed []string   `json:"tables_processed"`
	RecordsUpdated  int        `json:"records_updated"`
	// Errors collects per-row failures. A malformed row never aborts the
	// batch; operators consult this list after the pass completes.
	Errors []string `json:"errors"`
}

// KeyIntegrity is the result of a non-mutating key health check.
type KeyIntegrity struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
}

// KeyStats aggregates read-only reporting counters for operational tooling.
type KeyStats struct {
	TotalKeys   int            `json:"total_keys"`
	ActiveKeys  int            `json:"active_keys"`
	RotatedKeys int            `json:"rotated_keys"`
	RevokedKeys int            `json:"revoked_keys"`
	ExpiredKeys int            `json:"expired_keys"`
	ByScope     map[string]int `json:"by_scope"`
	ByType      map[string]int `json:"by_type"`
}
