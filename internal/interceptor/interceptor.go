// Package interceptor hooks field encryption into the persistence path:
// records are encrypted just before they are written and decrypted just after
// they are read, so application code above the data layer only ever sees
// plaintext. It also provides bulk tooling to encrypt pre-existing plaintext
// data and to verify a table's encryption coverage.
package interceptor

import (
	"context"
	"fmt"
	"log/slog"

	cryptoService "github.com/credfolio/fieldvault/internal/crypto/service"
	apperrors "github.com/credfolio/fieldvault/internal/errors"
	"github.com/credfolio/fieldvault/internal/fieldenc"
	"github.com/credfolio/fieldvault/internal/registry"
)

// ScopeField is the record field carrying the tenant identifier. Records
// without it fall into the global scope.
const ScopeField = "organization_id"

// BulkResult summarizes an EncryptExistingData sweep over one table.
type BulkResult struct {
	Table   string   `json:"table"`
	Scanned int      `json:"scanned"`
	Updated int      `json:"updated"`
	Skipped int      `json:"skipped"` // rows already fully encrypted or empty
	DryRun  bool     `json:"dry_run"`
	Errors  []string `json:"errors,omitempty"`
}

// TableReport is the result of a VerifyTable coverage check.
type TableReport struct {
	Table              string `json:"table"`
	TotalRecords       int    `json:"total_records"`
	EncryptedRecords   int    `json:"encrypted_records"`
	UnencryptedRecords int    `json:"unencrypted_records"`
	// PlaintextByColumn counts, per registered column, values still stored
	// as plaintext.
	PlaintextByColumn map[string]int `json:"plaintext_by_column"`
}

// Interceptor applies field encryption transparently around persistence
// operations.
type Interceptor struct {
	registry  *registry.Registry
	fields    *fieldenc.FieldEncryptor
	encryptor cryptoService.Encryptor
	store     cryptoService.RowStore
	logger    *slog.Logger
	batchSize int
}

// New creates a persistence interceptor. The row store is only needed by the
// bulk operations; hook-only callers may pass nil.
func New(
	reg *registry.Registry,
	fields *fieldenc.FieldEncryptor,
	encryptor cryptoService.Encryptor,
	store cryptoService.RowStore,
	batchSize int,
	logger *slog.Logger,
) *Interceptor {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Interceptor{
		registry:  reg,
		fields:    fields,
		encryptor: encryptor,
		store:     store,
		logger:    logger,
		batchSize: batchSize,
	}
}

// scopeOf extracts the tenant scope from a record.
func scopeOf(record fieldenc.Record) string {
	if value, ok := record[ScopeField]; ok && value.Kind() == fieldenc.KindString {
		return value.Str()
	}
	return ""
}

// BeforeWrite encrypts the registered fields of a record about to be
// persisted. Tables with no registered fields pass through untouched, so the
// hook is safe to install unconditionally on every write path.
func (i *Interceptor) BeforeWrite(ctx context.Context, table string, record fieldenc.Record) (fieldenc.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !i.registry.HasFields(table) {
		return record, nil
	}
	return i.fields.EncryptRecord(table, record, scopeOf(record))
}

// AfterRead decrypts the registered fields of a record just loaded. Legacy
// plaintext values pass through unchanged.
func (i *Interceptor) AfterRead(ctx context.Context, table string, record fieldenc.Record) (fieldenc.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !i.registry.HasFields(table) {
		return record, nil
	}
	return i.fields.DecryptRecord(table, record)
}

// EncryptExistingData sweeps a table and encrypts plaintext values in every
// registered column, for migrating data that predates field encryption. Each
// row's scope comes from its own tenant column. With dryRun set, rows are
// scanned and counted but nothing is written.
func (i *Interceptor) EncryptExistingData(
	ctx context.Context,
	table, scope string,
	dryRun bool,
) (*BulkResult, error) {
	configs := i.registry.FieldsFor(table)
	if len(configs) == 0 {
		return nil, fmt.Errorf("%w: table %q has no registered encrypted fields", apperrors.ErrInvalidInput, table)
	}

	columns := make([]string, 0, len(configs)+1)
	for _, cfg := range configs {
		columns = append(columns, cfg.Column)
	}
	// The tenant column rides along so each row encrypts under its own scope.
	columns = append(columns, ScopeField)

	result := &BulkResult{Table: table, DryRun: dryRun}
	afterID := ""

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rows, err := i.store.ListRows(ctx, table, scope, afterID, columns, i.batchSize)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			break
		}

		for _, row := range rows {
			result.Scanned++

			changed, err := i.encryptRow(configs, row)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("%s[%s]: %v", table, row.ID, err))
				continue
			}
			if len(changed) == 0 {
				result.Skipped++
				continue
			}
			if dryRun {
				result.Updated++
				continue
			}
			if err := i.store.UpdateRow(ctx, table, row.ID, changed); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("%s[%s]: update: %v", table, row.ID, err))
				continue
			}
			result.Updated++
		}

		afterID = rows[len(rows)-1].ID
	}

	i.logger.Info("bulk encryption sweep finished",
		slog.String("table", table),
		slog.Bool("dry_run", dryRun),
		slog.Int("scanned", result.Scanned),
		slog.Int("updated", result.Updated),
		slog.Int("errors", len(result.Errors)))

	return result, nil
}

// encryptRow returns the plaintext columns of one row rewritten as envelopes.
func (i *Interceptor) encryptRow(configs []registry.FieldConfig, row cryptoService.Row) (map[string]string, error) {
	rowScope := row.Fields[ScopeField]
	changed := make(map[string]string)

	for _, cfg := range configs {
		value := row.Fields[cfg.Column]
		if value == "" || i.encryptor.IsEncrypted(value) {
			continue
		}
		encrypted, err := i.encryptor.Encrypt(value, cryptoService.EncryptOptions{
			Deterministic: cfg.Deterministic,
			Scope:         rowScope,
		})
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", cfg.Column, err)
		}
		changed[cfg.Column] = encrypted
	}
	return changed, nil
}

// VerifyTable reports a table's encryption coverage without mutating anything.
// A record counts as encrypted when every non-empty registered field carries
// the envelope prefix.
func (i *Interceptor) VerifyTable(ctx context.Context, table, scope string) (*TableReport, error) {
	configs := i.registry.FieldsFor(table)
	if len(configs) == 0 {
		return nil, fmt.Errorf("%w: table %q has no registered encrypted fields", apperrors.ErrInvalidInput, table)
	}

	columns := make([]string, 0, len(configs))
	for _, cfg := range configs {
		columns = append(columns, cfg.Column)
	}

	report := &TableReport{
		Table:             table,
		PlaintextByColumn: make(map[string]int),
	}
	afterID := ""

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rows, err := i.store.ListRows(ctx, table, scope, afterID, columns, i.batchSize)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			break
		}

		for _, row := range rows {
			report.TotalRecords++

			plaintextSeen := false
			for _, column := range columns {
				value := row.Fields[column]
				if value == "" {
					continue
				}
				if !i.encryptor.IsEncrypted(value) {
					plaintextSeen = true
					report.PlaintextByColumn[column]++
				}
			}
			if plaintextSeen {
				report.UnencryptedRecords++
			} else {
				report.EncryptedRecords++
			}
		}

		afterID = rows[len(rows)-1].ID
	}

	return report, nil
}
