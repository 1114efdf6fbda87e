package service

import "context"

// Row is a single record as seen by bulk encryption jobs: its primary key and
// the values of the registered encrypted columns only.
type Row struct {
	ID     string
	Fields map[string]string
}

// RowStore is the port bulk jobs use to stream and rewrite application rows.
// Implementations filter by scope on the tenant column when scope is not
// global, and page with keyset pagination (afterID) so jobs never hold a
// cursor open across batches.
type RowStore interface {
	// ListRows returns up to limit rows of table with id > afterID, ordered by
	// id, carrying the requested columns.
	ListRows(ctx context.Context, table, scope, afterID string, columns []string, limit int) ([]Row, error)

	// UpdateRow rewrites the given columns of one row.
	UpdateRow(ctx context.Context, table, id string, fields map[string]string) error

	// CountRows returns the number of rows of table visible to the scope.
	CountRows(ctx context.Context, table, scope string) (int64, error)
}
