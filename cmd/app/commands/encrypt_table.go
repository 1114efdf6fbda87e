package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/credfolio/fieldvault/internal/interceptor"
)

// RunEncryptTable sweeps a table and encrypts plaintext values in every
// registered column. With dryRun set, reports what would change without
// writing anything.
func RunEncryptTable(
	ctx context.Context,
	ic *interceptor.Interceptor,
	logger *slog.Logger,
	writer io.Writer,
	table, scope string,
	dryRun bool,
) error {
	result, err := ic.EncryptExistingData(ctx, table, scope, dryRun)
	if err != nil {
		return fmt.Errorf("failed to encrypt table: %w", err)
	}

	logger.Info("table encryption sweep finished",
		slog.String("table", table),
		slog.Bool("dry_run", dryRun),
		slog.Int("scanned", result.Scanned),
		slog.Int("updated", result.Updated),
	)

	return writeJSON(writer, result)
}
