package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	cryptoUseCase "github.com/credfolio/fieldvault/internal/crypto/usecase"
)

// RunExpiringKeys lists non-revoked keys expiring within the given window.
func RunExpiringKeys(
	ctx context.Context,
	keyUseCase cryptoUseCase.KeyUseCase,
	writer io.Writer,
	days int,
) error {
	if days <= 0 {
		days = 30
	}

	keys, err := keyUseCase.ExpiringKeys(ctx, time.Duration(days)*24*time.Hour)
	if err != nil {
		return fmt.Errorf("failed to list expiring keys: %w", err)
	}

	if len(keys) == 0 {
		fmt.Fprintf(writer, "No keys expiring within %d days\n", days)
		return nil
	}

	for _, key := range keys {
		fmt.Fprintf(writer, "%s scope=%s type=%s version=%d expires=%s\n",
			key.ID, key.Scope, key.KeyType, key.Version, key.ExpiresAt.Format(time.RFC3339))
	}
	return nil
}
