package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	cryptoDomain "github.com/credfolio/fieldvault/internal/crypto/domain"
	cryptoUseCase "github.com/credfolio/fieldvault/internal/crypto/usecase"
)

// RunGenerateKey creates a new active working key for a scope, deactivating
// any previous active key in the same slot.
func RunGenerateKey(
	ctx context.Context,
	keyUseCase cryptoUseCase.KeyUseCase,
	logger *slog.Logger,
	writer io.Writer,
	scope, keyTypeStr, algorithmStr string,
) error {
	keyType, err := cryptoDomain.ParseKeyType(strings.ToUpper(keyTypeStr))
	if err != nil {
		return err
	}
	algorithm, err := cryptoDomain.ParseAlgorithm(algorithmStr)
	if err != nil {
		return err
	}

	key, err := keyUseCase.GenerateKey(ctx, scope, keyType, algorithm, cliActor)
	if err != nil {
		return fmt.Errorf("failed to generate key: %w", err)
	}

	logger.Info("key generated",
		slog.String("key_id", key.ID.String()),
		slog.String("scope", key.Scope),
		slog.String("key_type", string(key.KeyType)),
		slog.Uint64("version", uint64(key.Version)),
	)

	fmt.Fprintf(writer, "Generated key %s (scope=%s type=%s version=%d)\n",
		key.ID, key.Scope, key.KeyType, key.Version)
	return nil
}
