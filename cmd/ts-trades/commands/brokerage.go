package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/justSteve/ts-trades/internal/auth"
	"github.com/justSteve/ts-trades/internal/tokenstore"
	"github.com/justSteve/ts-trades/internal/tsapi"
)

func accountsCommand() *cli.Command {
	return &cli.Command{
		Name:  "accounts",
		Usage: "List the brokerage accounts of a user",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "user-id",
				Usage:    "TradeStation user ID",
				Required: true,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			client, err := newAPIClient(ctx, cmd)
			if err != nil {
				return err
			}

			accounts, err := client.GetAccounts(ctx, cmd.String("user-id"))
			if err != nil {
				return err
			}

			return printJSON(accounts)
		},
	}
}

func balancesCommand() *cli.Command {
	return &cli.Command{
		Name:  "balances",
		Usage: "Show balances for one or more accounts",
		Flags: []cli.Flag{
			accountFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			client, err := newAPIClient(ctx, cmd)
			if err != nil {
				return err
			}

			balances, err := client.GetBalances(ctx, cmd.StringSlice("account"))
			if err != nil {
				return err
			}

			return printJSON(balances)
		},
	}
}

func positionsCommand() *cli.Command {
	return &cli.Command{
		Name:  "positions",
		Usage: "Show open positions for one or more accounts",
		Flags: []cli.Flag{
			accountFlag(),
			&cli.StringSliceFlag{
				Name:  "symbol",
				Usage: "restrict to the given symbol (repeatable)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			client, err := newAPIClient(ctx, cmd)
			if err != nil {
				return err
			}

			// Distinguish "no filter" (nil) from an explicit empty filter,
			// which the client rejects.
			var symbols []string
			if cmd.IsSet("symbol") {
				symbols = cmd.StringSlice("symbol")
			}

			positions, err := client.GetPositions(ctx, cmd.StringSlice("account"), symbols)
			if err != nil {
				return err
			}

			return printJSON(positions)
		},
	}
}

func snapshotCommand() *cli.Command {
	return &cli.Command{
		Name:  "snapshot",
		Usage: "Show balances and positions for one or more accounts",
		Flags: []cli.Flag{
			accountFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			client, err := newAPIClient(ctx, cmd)
			if err != nil {
				return err
			}

			snapshot, err := client.Snapshot(ctx, cmd.StringSlice("account"))
			if err != nil {
				return err
			}

			return printJSON(snapshot)
		},
	}
}

func accountFlag() cli.Flag {
	return &cli.StringSliceFlag{
		Name:     "account",
		Usage:    "account key (repeatable, max 25)",
		Required: true,
	}
}

// newAPIClient wires config, token store, session, and API client together
// for the brokerage commands.
func newAPIClient(ctx context.Context, cmd *cli.Command) (*tsapi.Client, error) {
	if err := setupLogging(cmd); err != nil {
		return nil, err
	}

	cfg, err := loadConfig(cmd.String("config"), os.Environ)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	store, err := cfg.NewTokenStore()
	if err != nil {
		return nil, fmt.Errorf("failed to create token store: %w", err)
	}

	token, err := store.Load(ctx)
	if err != nil {
		if errors.Is(err, tokenstore.ErrNotFound) {
			return nil, errors.New("not authenticated: run 'ts-trades auth login' first")
		}
		return nil, fmt.Errorf("failed to load token: %w", err)
	}

	session := auth.NewSession(cfg.OAuthCredentials(), auth.Endpoint, slog.Default(),
		auth.WithSaveFunc(store.Save))
	session.SetToken(token)

	return tsapi.New(session, slog.Default(), tsapi.WithBaseURL(cfg.BaseURL())), nil
}

// printJSON writes the value to stdout as indented JSON.
func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "    ")
	return encoder.Encode(v)
}
