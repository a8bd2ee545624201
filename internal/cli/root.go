// Package cli implements the command-line interface for cmc.
package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/kilupskalvis/cmc/internal/apierr"
	"github.com/kilupskalvis/cmc/internal/config"
	"github.com/kilupskalvis/cmc/internal/content"
	"github.com/kilupskalvis/cmc/internal/content/rest"
	"github.com/kilupskalvis/cmc/internal/engine"
	"github.com/kilupskalvis/cmc/internal/store"
	"github.com/kilupskalvis/cmc/internal/weaviate"
)

// cmdContext holds common resources for CLI commands
type cmdContext struct {
	Config *config.Config
	Store  *store.Store
	API    content.API
	Engine *engine.Engine
}

// Close releases resources held by cmdContext
func (c *cmdContext) Close() {
	if c.Store != nil {
		c.Store.Close()
	}
}

// initContext initializes config and store (no API client)
func initContext() *cmdContext {
	cfg, err := config.Load()
	if err != nil {
		exitError("%v", err)
	}

	st, err := store.New(cfg.DatabasePath())
	if err != nil {
		exitError("failed to open store: %v", err)
	}

	return &cmdContext{Config: cfg, Store: st}
}

// initContextWithMigrations initializes config, store, and runs migrations
func initContextWithMigrations() *cmdContext {
	c := initContext()

	if err := c.Store.RunMigrations(); err != nil {
		c.Close()
		exitError("failed to run migrations: %v", err)
	}

	return c
}

// initFullContext initializes config, store, migrations, API client and
// engine, and warms the cache from stored snapshots.
func initFullContext() *cmdContext {
	c := initContextWithMigrations()

	api, err := buildAPI(c.Config.Backend, c.Config.APIURL, c.Config.APIToken)
	if err != nil {
		c.Close()
		exitError("failed to create API client: %v", err)
	}
	c.API = api

	c.Engine = engine.New(api, c.Store, newLogger(), &engine.Config{
		PageSize: c.Config.PageSize,
		Retry:    c.Config.RetryPolicy(),
	})

	if err := c.Engine.WarmStart(); err != nil {
		c.Close()
		exitError("failed to warm cache: %v", err)
	}

	return c
}

// buildAPI constructs the content API client for a backend.
func buildAPI(backend, url, token string) (content.API, error) {
	switch backend {
	case config.BackendWeaviate:
		return weaviate.NewClient(url)
	case config.BackendREST, "":
		return rest.NewClient(url, token), nil
	default:
		return nil, fmt.Errorf("unknown backend %q (want %s or %s)", backend, config.BackendREST, config.BackendWeaviate)
	}
}

var rootCmd = &cobra.Command{
	Use:   "cmc",
	Short: "Content Management Console",
	Long: `cmc is a console for managing content collections over a remote
content API. Edits show up in the local view immediately and are
confirmed or rolled back once the server answers.`,
}

var logLevel string

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(collectionsCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(syncCmd)
}

// newLogger builds the CLI logger honoring --log-level. Output goes to
// stderr so tables and item output stay clean on stdout.
func newLogger() *slog.Logger {
	var level slog.Level
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// exitError prints an error and exits
func exitError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

// exitAPIError renders a classified failure with its recovery hint and
// exits.
func exitAPIError(err error) {
	var cerr *apierr.Error
	if !errors.As(err, &cerr) {
		exitError("%v", err)
	}

	fmt.Fprintf(os.Stderr, "error: %s\n", cerr.UserMessage)
	if cerr.Err != nil {
		fmt.Fprintf(os.Stderr, "  %v\n", cerr.Err)
	}
	if hint := recoveryHint(cerr); hint != "" {
		fmt.Fprintf(os.Stderr, "  %s\n", hint)
	}
	os.Exit(1)
}

// recoveryHint suggests the next step for failures the user can act on.
func recoveryHint(cerr *apierr.Error) string {
	switch cerr.Kind {
	case apierr.KindAuth:
		return "set " + config.TokenEnv + " or update api_token in .cmc/config"
	case apierr.KindValidation:
		return "fix the field values and retry"
	case apierr.KindRateLimit:
		return "wait a moment and retry"
	case apierr.KindNetwork, apierr.KindService:
		return "check api_url in .cmc/config and retry"
	}
	return ""
}

// shortID returns first 8 characters of an ID
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
