package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/credfolio/fieldvault/cmd/app/commands"
	"github.com/credfolio/fieldvault/internal/app"
	"github.com/credfolio/fieldvault/internal/config"
	"github.com/credfolio/fieldvault/internal/interceptor"
)

// withInterceptor builds a container, loads the key chain, and hands the
// persistence interceptor to the command body.
func withInterceptor(
	ctx context.Context,
	fn func(ctx context.Context, container *app.Container, ic *interceptor.Interceptor) error,
) error {
	cfg := config.Load()
	container := app.NewContainer(cfg)
	defer func() { _ = container.Shutdown(ctx) }()

	ic, err := container.Interceptor()
	if err != nil {
		return err
	}
	if err := container.LoadKeys(ctx); err != nil {
		return err
	}

	return fn(ctx, container, ic)
}

func getTableCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "encrypt-table",
			Usage: "Encrypt plaintext values in a table's registered columns",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "table",
					Aliases:  []string{"t"},
					Required: true,
					Usage:    "Table name (must have registered encrypted fields)",
				},
				&cli.StringFlag{
					Name:    "scope",
					Aliases: []string{"s"},
					Value:   "",
					Usage:   "Limit the sweep to one tenant scope (empty for all rows)",
				},
				&cli.BoolFlag{
					Name:    "dry-run",
					Aliases: []string{"n"},
					Value:   false,
					Usage:   "Report what would change without writing",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withInterceptor(ctx, func(ctx context.Context, container *app.Container, ic *interceptor.Interceptor) error {
					return commands.RunEncryptTable(
						ctx,
						ic,
						container.Logger(),
						commands.DefaultIO().Writer,
						cmd.String("table"),
						cmd.String("scope"),
						cmd.Bool("dry-run"),
					)
				})
			},
		},
		{
			Name:  "verify-table",
			Usage: "Report a table's encryption coverage",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "table",
					Aliases:  []string{"t"},
					Required: true,
					Usage:    "Table name (must have registered encrypted fields)",
				},
				&cli.StringFlag{
					Name:    "scope",
					Aliases: []string{"s"},
					Value:   "",
					Usage:   "Limit the check to one tenant scope (empty for all rows)",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withInterceptor(ctx, func(ctx context.Context, container *app.Container, ic *interceptor.Interceptor) error {
					return commands.RunVerifyTable(
						ctx,
						ic,
						commands.DefaultIO().Writer,
						cmd.String("table"),
						cmd.String("scope"),
					)
				})
			},
		},
	}
}
