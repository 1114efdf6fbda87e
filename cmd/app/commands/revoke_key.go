package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	cryptoUseCase "github.com/credfolio/fieldvault/internal/crypto/usecase"
)

// RunRevokeKey permanently revokes a key. The key stops encrypting immediately
// but its material is retained so existing ciphertext stays readable.
func RunRevokeKey(
	ctx context.Context,
	keyUseCase cryptoUseCase.KeyUseCase,
	logger *slog.Logger,
	writer io.Writer,
	idStr, reason string,
) error {
	id, err := uuid.Parse(idStr)
	if err != nil {
		return fmt.Errorf("invalid key id: %w", err)
	}

	if err := keyUseCase.RevokeKey(ctx, id, cliActor, reason); err != nil {
		return fmt.Errorf("failed to revoke key: %w", err)
	}

	logger.Info("key revoked",
		slog.String("key_id", id.String()),
		slog.String("reason", reason),
	)

	fmt.Fprintf(writer, "Revoked key %s\n", id)
	return nil
}
