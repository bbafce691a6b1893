package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
	"golang.org/x/term"

	"github.com/justSteve/ts-trades/internal/auth"
	"github.com/justSteve/ts-trades/internal/tokenstore"
)

// authCommand returns the 'auth' subcommand for managing API authentication.
func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage TradeStation authentication",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Run the OAuth2 authorization flow and save the token",
				Action: authLoginAction,
			},
			{
				Name:   "status",
				Usage:  "Show the stored token and its remaining validity",
				Action: authStatusAction,
			},
		},
	}
}

// authLoginAction runs the manual OAuth2 authorization-code flow.
func authLoginAction(ctx context.Context, cmd *cli.Command) error {
	if err := setupLogging(cmd); err != nil {
		return err
	}

	cfg, err := loadConfig(cmd.String("config"), os.Environ)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	store, err := cfg.NewTokenStore()
	if err != nil {
		return fmt.Errorf("failed to create token store: %w", err)
	}

	authorizer := auth.NewAuthorizer(cfg.OAuthCredentials(), auth.Endpoint)
	state := oauth2.GenerateVerifier()

	fmt.Println("=== TradeStation OAuth Login ===")
	fmt.Println()
	fmt.Printf("1. Visit this URL in your browser:\n   %s\n\n", authorizer.AuthCodeURL(state))
	fmt.Println("2. Authorize the application")
	fmt.Println("3. Paste the full redirect URL you were returned to")

	redirectURL, err := readSecureInput(ctx, "\nRedirect URL: ")
	if err != nil {
		return err
	}

	code, returnedState, err := auth.ParseRedirect(redirectURL)
	if err != nil {
		return fmt.Errorf("invalid redirect URL: %w", err)
	}
	if err := auth.VerifyState(returnedState, state); err != nil {
		return err
	}

	token, err := authorizer.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	if err := store.Save(ctx, token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	fmt.Println()
	fmt.Println("=== Login Successful ===")
	fmt.Println("Token saved to configured storage")

	return nil
}

// authStatusAction reports on the stored token.
func authStatusAction(ctx context.Context, cmd *cli.Command) error {
	if err := setupLogging(cmd); err != nil {
		return err
	}

	cfg, err := loadConfig(cmd.String("config"), os.Environ)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	store, err := cfg.NewTokenStore()
	if err != nil {
		return fmt.Errorf("failed to create token store: %w", err)
	}

	token, err := store.Load(ctx)
	if err != nil {
		if errors.Is(err, tokenstore.ErrNotFound) {
			fmt.Println("Not authenticated. Run 'ts-trades auth login' first.")
			return nil
		}
		return fmt.Errorf("failed to load token: %w", err)
	}

	session := auth.NewSession(cfg.OAuthCredentials(), auth.Endpoint, slog.Default())
	session.SetToken(token)

	remaining := session.Remaining()
	switch {
	case remaining > 0:
		fmt.Printf("Authenticated. Access token valid for %s.\n", remaining.Round(time.Second))
	case token.RefreshToken != "":
		fmt.Println("Access token expired; it will be refreshed on the next API call.")
	default:
		fmt.Println("Token has no refresh capability. Run 'ts-trades auth login' again.")
	}

	return nil
}

// readSecureInput reads user input with hidden display and context cancellation support.
// Goroutine+select pattern required because term.ReadPassword has no native context support.
func readSecureInput(ctx context.Context, prompt string) (string, error) {
	fmt.Print(prompt)
	defer fmt.Println()

	type result struct {
		value string
		err   error
	}
	resultCh := make(chan result, 1)

	go func() {
		inputBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		resultCh <- result{value: string(inputBytes), err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-resultCh:
		if res.err != nil {
			return "", fmt.Errorf("failed to read input: %w", res.err)
		}
		return res.value, nil
	}
}
