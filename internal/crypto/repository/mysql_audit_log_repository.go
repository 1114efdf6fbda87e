package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	cryptoDomain "github.com/credfolio/fieldvault/internal/crypto/domain"
	"github.com/credfolio/fieldvault/internal/database"
	apperrors "github.com/credfolio/fieldvault/internal/errors"
)

// MySQLAuditLogRepository persists key lifecycle audit events for MySQL.
type MySQLAuditLogRepository struct {
	db *sql.DB
}

// NewMySQLAuditLogRepository creates a new MySQL audit log repository.
func NewMySQLAuditLogRepository(db *sql.DB) *MySQLAuditLogRepository {
	return &MySQLAuditLogRepository{db: db}
}

// Create appends a key lifecycle event.
func (m *MySQLAuditLogRepository) Create(ctx context.Context, event *cryptoDomain.KeyAuditEvent) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO key_audit_logs (id, key_id, scope, action, actor, details, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?)`

	var keyID any
	if event.KeyID != uuid.Nil {
		keyID = event.KeyID.String()
	}

	_, err := querier.ExecContext(
		ctx,
		query,
		event.ID.String(),
		keyID,
		event.Scope,
		event.Action,
		event.Actor,
		event.Details,
		event.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create key audit log")
	}
	return nil
}

// List retrieves audit events for a scope, newest first, bounded by limit.
func (m *MySQLAuditLogRepository) List(ctx context.Context, scope string, limit int) ([]*cryptoDomain.KeyAuditEvent, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, key_id, scope, action, actor, details, created_at
			  FROM key_audit_logs WHERE scope = ?
			  ORDER BY created_at DESC LIMIT ?`

	rows, err := querier.QueryContext(ctx, query, scope, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list key audit logs")
	}
	return scanAuditEvents(rows)
}
