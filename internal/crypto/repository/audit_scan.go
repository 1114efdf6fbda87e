package repository

import (
	"database/sql"

	"github.com/google/uuid"

	cryptoDomain "github.com/credfolio/fieldvault/internal/crypto/domain"
	apperrors "github.com/credfolio/fieldvault/internal/errors"
)

func scanAuditEvents(rows *sql.Rows) ([]*cryptoDomain.KeyAuditEvent, error) {
	defer func() {
		_ = rows.Close()
	}()

	var events []*cryptoDomain.KeyAuditEvent
	for rows.Next() {
		var event cryptoDomain.KeyAuditEvent
		var keyID sql.NullString

		err := rows.Scan(
			&event.ID,
			&keyID,
			&event.Scope,
			&event.Action,
			&event.Actor,
			&event.Details,
			&event.CreatedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan key audit log")
		}

		if keyID.Valid {
			id, err := uuid.Parse(keyID.String)
			if err != nil {
				return nil, apperrors.Wrap(err, "failed to parse audit key id")
			}
			event.KeyID = id
		}

		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func nullUUID(id uuid.UUID) any {
	if id == uuid.Nil {
		return nil
	}
	return id
}
