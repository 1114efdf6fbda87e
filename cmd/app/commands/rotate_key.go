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

// RunRotateKey rotates the active working key for a scope. With reencrypt set,
// a background job rewrites existing ciphertext onto the new key; the command
// returns as soon as the job starts, progress is visible through the
// rotation-status endpoint.
func RunRotateKey(
	ctx context.Context,
	keyUseCase cryptoUseCase.KeyUseCase,
	logger *slog.Logger,
	writer io.Writer,
	scope, keyTypeStr, algorithmStr string,
	reencrypt bool,
) error {
	keyType, err := cryptoDomain.ParseKeyType(strings.ToUpper(keyTypeStr))
	if err != nil {
		return err
	}
	algorithm, err := cryptoDomain.ParseAlgorithm(algorithmStr)
	if err != nil {
		return err
	}

	result, err := keyUseCase.RotateKey(ctx, scope, keyType, algorithm, cliActor, reencrypt)
	if err != nil {
		return fmt.Errorf("failed to rotate key: %w", err)
	}

	normalized := cryptoDomain.NormalizeScope(scope)
	logger.Info("key rotated",
		slog.String("new_key_id", result.NewKeyID.String()),
		slog.String("scope", normalized),
		slog.Bool("reencryption_started", result.ReencryptionStarted),
	)

	fmt.Fprintf(writer, "Rotated key for scope %s: new key %s (version %d)\n",
		normalized, result.NewKeyID, result.Version)
	if result.ReencryptionStarted {
		fmt.Fprintln(writer, "Background re-encryption started")
	}
	return nil
}
