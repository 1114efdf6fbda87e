package commands

import (
	"context"
	"fmt"
	"io"

	cryptoUseCase "github.com/credfolio/fieldvault/internal/crypto/usecase"
)

// RunKeyStats prints aggregate lifecycle counters across all stored keys.
func RunKeyStats(
	ctx context.Context,
	keyUseCase cryptoUseCase.KeyUseCase,
	writer io.Writer,
) error {
	stats, err := keyUseCase.Stats(ctx)
	if err != nil {
		return fmt.Errorf("failed to load key stats: %w", err)
	}
	return writeJSON(writer, stats)
}
