package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/credfolio/fieldvault/cmd/app/commands"
	"github.com/credfolio/fieldvault/internal/app"
	"github.com/credfolio/fieldvault/internal/config"
	cryptoUseCase "github.com/credfolio/fieldvault/internal/crypto/usecase"
)

// withKeyUseCase builds a container, loads the key chain, and hands the key
// use case to the command body.
func withKeyUseCase(
	ctx context.Context,
	fn func(ctx context.Context, container *app.Container, keyUseCase cryptoUseCase.KeyUseCase) error,
) error {
	cfg := config.Load()
	container := app.NewContainer(cfg)
	defer func() { _ = container.Shutdown(ctx) }()

	keyUseCase, err := container.KeyUseCase()
	if err != nil {
		return err
	}
	if err := container.LoadKeys(ctx); err != nil {
		return err
	}

	return fn(ctx, container, keyUseCase)
}

func getKeyCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "generate-key",
			Usage: "Generate a new active working key for a scope",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "scope",
					Aliases: []string{"s"},
					Value:   "",
					Usage:   "Tenant scope (empty for global)",
				},
				&cli.StringFlag{
					Name:    "type",
					Aliases: []string{"t"},
					Value:   "data",
					Usage:   "Key type (data, transport, signing)",
				},
				&cli.StringFlag{
					Name:    "algorithm",
					Aliases: []string{"alg"},
					Value:   "aes-gcm",
					Usage:   "Encryption algorithm to use (aes-gcm or chacha20-poly1305)",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withKeyUseCase(ctx, func(ctx context.Context, container *app.Container, keyUseCase cryptoUseCase.KeyUseCase) error {
					return commands.RunGenerateKey(
						ctx,
						keyUseCase,
						container.Logger(),
						commands.DefaultIO().Writer,
						cmd.String("scope"),
						cmd.String("type"),
						cmd.String("algorithm"),
					)
				})
			},
		},
		{
			Name:  "rotate-key",
			Usage: "Rotate the active working key for a scope",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "scope",
					Aliases: []string{"s"},
					Value:   "",
					Usage:   "Tenant scope (empty for global)",
				},
				&cli.StringFlag{
					Name:    "type",
					Aliases: []string{"t"},
					Value:   "data",
					Usage:   "Key type (data, transport, signing)",
				},
				&cli.StringFlag{
					Name:    "algorithm",
					Aliases: []string{"alg"},
					Value:   "aes-gcm",
					Usage:   "Encryption algorithm to use (aes-gcm or chacha20-poly1305)",
				},
				&cli.BoolFlag{
					Name:    "reencrypt",
					Aliases: []string{"r"},
					Value:   false,
					Usage:   "Start a background job re-encrypting existing data onto the new key",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withKeyUseCase(ctx, func(ctx context.Context, container *app.Container, keyUseCase cryptoUseCase.KeyUseCase) error {
					return commands.RunRotateKey(
						ctx,
						keyUseCase,
						container.Logger(),
						commands.DefaultIO().Writer,
						cmd.String("scope"),
						cmd.String("type"),
						cmd.String("algorithm"),
						cmd.Bool("reencrypt"),
					)
				})
			},
		},
		{
			Name:  "revoke-key",
			Usage: "Permanently revoke a key (it remains usable for decryption)",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "id",
					Aliases:  []string{"i"},
					Required: true,
					Usage:    "Key ID (UUID)",
				},
				&cli.StringFlag{
					Name:     "reason",
					Required: true,
					Usage:    "Reason recorded in the audit log",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withKeyUseCase(ctx, func(ctx context.Context, container *app.Container, keyUseCase cryptoUseCase.KeyUseCase) error {
					return commands.RunRevokeKey(
						ctx,
						keyUseCase,
						container.Logger(),
						commands.DefaultIO().Writer,
						cmd.String("id"),
						cmd.String("reason"),
					)
				})
			},
		},
		{
			Name:  "verify-key",
			Usage: "Verify a key's material unwraps and round-trips a probe value",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "id",
					Aliases:  []string{"i"},
					Required: true,
					Usage:    "Key ID (UUID)",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withKeyUseCase(ctx, func(ctx context.Context, container *app.Container, keyUseCase cryptoUseCase.KeyUseCase) error {
					return commands.RunVerifyKey(
						ctx,
						keyUseCase,
						container.Logger(),
						commands.DefaultIO().Writer,
						cmd.String("id"),
					)
				})
			},
		},
		{
			Name:  "key-stats",
			Usage: "Print aggregate lifecycle counters across all keys",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withKeyUseCase(ctx, func(ctx context.Context, container *app.Container, keyUseCase cryptoUseCase.KeyUseCase) error {
					return commands.RunKeyStats(ctx, keyUseCase, commands.DefaultIO().Writer)
				})
			},
		},
		{
			Name:  "expiring-keys",
			Usage: "List non-revoked keys expiring within a window",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:    "days",
					Aliases: []string{"d"},
					Value:   30,
					Usage:   "Window in days",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withKeyUseCase(ctx, func(ctx context.Context, container *app.Container, keyUseCase cryptoUseCase.KeyUseCase) error {
					return commands.RunExpiringKeys(ctx, keyUseCase, commands.DefaultIO().Writer, int(cmd.Int("days")))
				})
			},
		},
		{
			Name:  "export-keys",
			Usage: "Export all keys into a password-protected backup blob",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "password",
					Aliases:  []string{"p"},
					Required: true,
					Usage:    "Backup password (minimum 12 characters)",
				},
				&cli.StringFlag{
					Name:    "output",
					Aliases: []string{"o"},
					Value:   "",
					Usage:   "Output file path (prints to stdout when omitted)",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withKeyUseCase(ctx, func(ctx context.Context, container *app.Container, keyUseCase cryptoUseCase.KeyUseCase) error {
					return commands.RunExportKeys(
						ctx,
						keyUseCase,
						container.Logger(),
						commands.DefaultIO().Writer,
						cmd.String("password"),
						cmd.String("output"),
					)
				})
			},
		},
		{
			Name:  "import-keys",
			Usage: "Restore keys from a backup blob file",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "file",
					Aliases:  []string{"f"},
					Required: true,
					Usage:    "Backup file path",
				},
				&cli.StringFlag{
					Name:     "password",
					Aliases:  []string{"p"},
					Required: true,
					Usage:    "Backup password",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withKeyUseCase(ctx, func(ctx context.Context, container *app.Container, keyUseCase cryptoUseCase.KeyUseCase) error {
					return commands.RunImportKeys(
						ctx,
						keyUseCase,
						container.Logger(),
						commands.DefaultIO().Writer,
						cmd.String("file"),
						cmd.String("password"),
					)
				})
			},
		},
	}
}
