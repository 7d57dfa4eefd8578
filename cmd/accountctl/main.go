// Command accountctl drives the account service from the terminal. The credential cookie is
// kept in a file or in redis between invocations, so a login survives until logout.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	goAuthClient "github.com/MrEthical07/goAuthClient"
	"github.com/joho/godotenv"
)

const envPrefix = "ACCOUNT_"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		usage(stdout)
		return 0
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
		usage(stderr)
		return 2
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(stderr, "read .env: %v\n", err)
		return 1
	}
	logger := newLogger(stderr, os.Getenv("LOG_LEVEL"))

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	engine, err := goAuthClient.New().
		WithConfig(cfg).
		WithLogger(logger).
		Build()
	if err != nil {
		fmt.Fprintf(stderr, "build session: %v\n", err)
		return 1
	}
	defer engine.Close()

	if cmd.session {
		if err := engine.LoginSilently(ctx); err != nil {
			logger.Debug("silent login skipped", "error", err)
		}
	}

	c := newCLI(engine, stdin, stdout, stderr)
	if err := cmd.run(ctx, c, args[1:]); err != nil {
		c.printError(err)
		if errors.Is(err, errUsage) {
			return 2
		}
		return 1
	}
	return 0
}

func newLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// loadConfig reads ACCOUNT_* variables. Without an explicit backend the credential is kept
// in the user config directory.
func loadConfig() (goAuthClient.Config, error) {
	cfg, err := goAuthClient.LoadConfig(envPrefix)
	if err != nil {
		return cfg, err
	}
	if _, set := os.LookupEnv(envPrefix + "CREDENTIAL_BACKEND"); !set {
		dir, err := os.UserConfigDir()
		if err != nil {
			return cfg, fmt.Errorf("locate credential file: %w", err)
		}
		cfg.Credential.Backend = goAuthClient.CredentialFile
		cfg.Credential.File = filepath.Join(dir, "accountctl", "credential.json")
	}
	return cfg, nil
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: accountctl <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")
	for _, name := range commandOrder {
		fmt.Fprintf(w, "  %-14s %s\n", name, commands[name].summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "environment: "+strings.Join([]string{
		envPrefix + "API_URL",
		envPrefix + "CREDENTIAL_BACKEND",
		envPrefix + "CREDENTIAL_FILE",
		envPrefix + "CREDENTIAL_REDIS_ADDR",
		"LOG_LEVEL",
	}, ", "))
}
