package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	cryptoUseCase "github.com/credfolio/fieldvault/internal/crypto/usecase"
)

// RunExportKeys serializes all stored keys into a password-protected backup
// blob. Key material stays wrapped under the master key inside the blob, the
// password protects the metadata layer on top. Writes to the output file when
// set, otherwise to the writer.
func RunExportKeys(
	ctx context.Context,
	keyUseCase cryptoUseCase.KeyUseCase,
	logger *slog.Logger,
	writer io.Writer,
	password, outputPath string,
) error {
	blob, err := keyUseCase.ExportKeys(ctx, password, cliActor)
	if err != nil {
		return fmt.Errorf("failed to export keys: %w", err)
	}

	if outputPath != "" {
		if err := os.WriteFile(outputPath, []byte(blob), 0o600); err != nil {
			return fmt.Errorf("failed to write backup file: %w", err)
		}
		logger.Info("keys exported", slog.String("output", outputPath))
		fmt.Fprintf(writer, "Backup written to %s\n", outputPath)
		return nil
	}

	fmt.Fprintln(writer, blob)
	return nil
}
