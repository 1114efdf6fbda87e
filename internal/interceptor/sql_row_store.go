package interceptor

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	cryptoDomain "github.com/credfolio/fieldvault/internal/crypto/domain"
	cryptoService "github.com/credfolio/fieldvault/internal/crypto/service"
	"github.com/credfolio/fieldvault/internal/database"
	apperrors "github.com/credfolio/fieldvault/internal/errors"
)

// Dialect selects placeholder syntax for the row store.
type Dialect string

const (
	DialectPostgreSQL Dialect = "postgresql"
	DialectMySQL      Dialect = "mysql"
)

// SQLRowStore streams and rewrites application rows for bulk encryption jobs.
// It implements the service RowStore port over database/sql for both dialects.
//
// Table and column names are interpolated into SQL text, never taken from
// request input: they come exclusively from the compiled field registry, which
// is deployment-time configuration.
type SQLRowStore struct {
	db          *sql.DB
	dialect     Dialect
	idColumn    string
	scopeColumn string
}

// NewSQLRowStore creates a row store. idColumn is the primary key column and
// scopeColumn the tenant column used to filter non-global scopes.
func NewSQLRowStore(db *sql.DB, dialect Dialect, idColumn, scopeColumn string) *SQLRowStore {
	return &SQLRowStore{
		db:          db,
		dialect:     dialect,
		idColumn:    idColumn,
		scopeColumn: scopeColumn,
	}
}

// placeholder renders the n-th bind parameter for the dialect (1-based).
func (s *SQLRowStore) placeholder(n int) string {
	if s.dialect == DialectPostgreSQL {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// ListRows returns up to limit rows with id > afterID ordered by id, carrying
// the requested columns. Non-global scopes filter on the tenant column.
func (s *SQLRowStore) ListRows(
	ctx context.Context,
	table, scope, afterID string,
	columns []string,
	limit int,
) ([]cryptoService.Row, error) {
	querier := database.GetTx(ctx, s.db)

	selectCols := append([]string{s.idColumn}, columns...)
	var b strings.Builder
	args := make([]any, 0, 3)

	fmt.Fprintf(&b, "SELECT %s FROM %s WHERE %s > %s",
		strings.Join(selectCols, ", "), table, s.idColumn, s.placeholder(1))
	args = append(args, afterID)

	if cryptoDomain.NormalizeScope(scope) != cryptoDomain.ScopeGlobal {
		fmt.Fprintf(&b, " AND %s = %s", s.scopeColumn, s.placeholder(len(args)+1))
		args = append(args, scope)
	}

	fmt.Fprintf(&b, " ORDER BY %s LIMIT %s", s.idColumn, s.placeholder(len(args)+1))
	args = append(args, limit)

	rows, err := querier.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list rows")
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []cryptoService.Row
	for rows.Next() {
		values := make([]sql.NullString, len(columns))
		dest := make([]any, 0, len(columns)+1)
		var id string
		dest = append(dest, &id)
		for i := range values {
			dest = append(dest, &values[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan row")
		}

		fields := make(map[string]string, len(columns))
		for i, column := range columns {
			if values[i].Valid {
				fields[column] = values[i].String
			}
		}
		out = append(out, cryptoService.Row{ID: id, Fields: fields})
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateRow rewrites the given columns of one row.
func (s *SQLRowStore) UpdateRow(ctx context.Context, table, id string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	querier := database.GetTx(ctx, s.db)

	columns := make([]string, 0, len(fields))
	for column := range fields {
		columns = append(columns, column)
	}
	// Stable order keeps generated SQL deterministic for tests.
	sort.Strings(columns)

	assignments := make([]string, 0, len(columns))
	args := make([]any, 0, len(columns)+1)
	for i, column := range columns {
		assignments = append(assignments, fmt.Sprintf("%s = %s", column, s.placeholder(i+1)))
		args = append(args, fields[column])
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s",
		table, strings.Join(assignments, ", "), s.idColumn, s.placeholder(len(columns)+1))

	if _, err := querier.ExecContext(ctx, query, args...); err != nil {
		return apperrors.Wrap(err, "failed to update row")
	}
	return nil
}

// CountRows returns the number of rows of table visible to the scope.
func (s *SQLRowStore) CountRows(ctx context.Context, table, scope string) (int64, error) {
	querier := database.GetTx(ctx, s.db)

	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", table)
	var args []any
	if cryptoDomain.NormalizeScope(scope) != cryptoDomain.ScopeGlobal {
		query += fmt.Sprintf(" WHERE %s = %s", s.scopeColumn, s.placeholder(1))
		args = append(args, scope)
	}

	var count int64
	if err := querier.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, apperrors.Wrap(err, "failed to count rows")
	}
	return count, nil
}
