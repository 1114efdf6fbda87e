package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	cryptoUseCase "github.com/credfolio/fieldvault/internal/crypto/usecase"
)

// RunImportKeys restores keys from a backup blob file. Keys whose
// (scope, type, version) already exists are skipped; imported keys arrive
// inactive and must be activated through generation or rotation.
func RunImportKeys(
	ctx context.Context,
	keyUseCase cryptoUseCase.KeyUseCase,
	logger *slog.Logger,
	writer io.Writer,
	filePath, password string,
) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read backup file: %w", err)
	}

	result, err := keyUseCase.ImportKeys(ctx, strings.TrimSpace(string(data)), password, cliActor)
	if err != nil {
		return fmt.Errorf("failed to import keys: %w", err)
	}

	logger.Info("keys imported",
		slog.Int("imported", result.Imported),
		slog.Int("skipped", result.Skipped),
	)

	fmt.Fprintf(writer, "Imported %d keys, skipped %d existing\n", result.Imported, result.Skipped)
	return nil
}
