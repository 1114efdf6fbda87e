package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	cryptoUseCase "github.com/credfolio/fieldvault/internal/crypto/usecase"
)

// RunVerifyKey checks that a key's stored material unwraps and round-trips a
// probe value.
func RunVerifyKey(
	ctx context.Context,
	keyUseCase cryptoUseCase.KeyUseCase,
	logger *slog.Logger,
	writer io.Writer,
	idStr string,
) error {
	id, err := uuid.Parse(idStr)
	if err != nil {
		return fmt.Errorf("invalid key id: %w", err)
	}

	integrity, err := keyUseCase.VerifyKey(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to verify key: %w", err)
	}

	logger.Info("key verified",
		slog.String("key_id", id.String()),
		slog.Bool("valid", integrity.Valid),
	)

	return writeJSON(writer, integrity)
}
