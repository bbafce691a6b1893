package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/justSteve/ts-trades/internal/observability"
)

// Execute runs the root command with the given context and arguments.
func Execute(ctx context.Context, args []string, version, commit string) error {
	cmd := &cli.Command{
		Name:    "ts-trades",
		Usage:   "TradeStation brokerage API client",
		Version: fmt.Sprintf("%s (%s)", version, commit),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "path to the JSON config file",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (debug|info|warn|error)",
				Value: slog.LevelWarn.String(),
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "log format (text|json)",
				Value: "text",
			},
		},
		Commands: []*cli.Command{
			authCommand(),
			accountsCommand(),
			balancesCommand(),
			positionsCommand(),
			snapshotCommand(),
		},
	}

	return cmd.Run(ctx, args)
}

// setupLogging configures the default slog logger from the root flags.
// Every action calls this first.
func setupLogging(cmd *cli.Command) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cmd.String("log-level"))); err != nil {
		return err
	}

	if err := observability.Instrument(level, cmd.String("log-format")); err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}

	return nil
}
