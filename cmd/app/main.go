// Package main provides the entry point for the application with CLI commands.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"
)

const version = "1.0.0"

func main() {
	var appCommands []*cli.Command
	appCommands = append(appCommands, getSystemCommands()...)
	appCommands = append(appCommands, getKeyCommands()...)
	appCommands = append(appCommands, getTableCommands()...)

	cmd := &cli.Command{
		Name:     "fieldvault",
		Usage:    "Field-level encryption for the loan management platform",
		Version:  version,
		Commands: appCommands,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.Any("error", err))
		os.Exit(1)
	}
}
