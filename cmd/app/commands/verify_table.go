package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/credfolio/fieldvault/internal/interceptor"
)

// RunVerifyTable reports a table's encryption coverage without mutating
// anything.
func RunVerifyTable(
	ctx context.Context,
	ic *interceptor.Interceptor,
	writer io.Writer,
	table, scope string,
) error {
	report, err := ic.VerifyTable(ctx, table, scope)
	if err != nil {
		return fmt.Errorf("failed to verify table: %w", err)
	}
	return writeJSON(writer, report)
}
