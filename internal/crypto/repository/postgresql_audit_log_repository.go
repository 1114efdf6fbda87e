package repository

import (
	"context"
	"database/sql"

	cryptoDomain "github.com/credfolio/fieldvault/internal/crypto/domain"
	"github.com/credfolio/fieldvault/internal/database"
	apperrors "github.com/credfolio/fieldvault/internal/errors"
)

// PostgreSQLAuditLogRepository persists key lifecycle audit events.
// Events are append-only; there is no update or delete path.
type PostgreSQLAuditLogRepository struct {
	db *sql.DB
}

// NewPostgreSQLAuditLogRepository creates a new PostgreSQL audit log repository.
func NewPostgreSQLAuditLogRepository(db *sql.DB) *PostgreSQLAuditLogRepository {
	return &PostgreSQLAuditLogRepository{db: db}
}

// Create appends a key lifecycle event.
func (p *PostgreSQLAuditLogRepository) Create(ctx context.Context, event *cryptoDomain.KeyAuditEvent) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO key_audit_logs (id, key_id, scope, action, actor, details, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := querier.ExecContext(
		ctx,
		query,
		event.ID,
		nullUUID(event.KeyID),
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
func (p *PostgreSQLAuditLogRepository) List(ctx context.Context, scope string, limit int) ([]*cryptoDomain.KeyAuditEvent, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, key_id, scope, action, actor, details, created_at
			  FROM key_audit_logs WHERE scope = $1
			  ORDER BY created_at DESC LIMIT $2`

	rows, err := querier.QueryContext(ctx, query, scope, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list key audit logs")
	}
	return scanAuditEvents(rows)
}
