package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kilupskalvis/cmc/internal/config"
	"github.com/kilupskalvis/cmc/internal/store"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new cmc workspace",
	Long: `Initialize a new cmc workspace in the current directory.
This creates a .cmc directory holding the configuration, page
snapshots, and the mutation journal.`,
	Run: runInit,
}

var (
	initURL     string
	initBackend string
)

func init() {
	initCmd.Flags().StringVar(&initURL, "url", "http://localhost:8080", "Content API URL")
	initCmd.Flags().StringVar(&initBackend, "backend", config.BackendREST, "API backend (rest or weaviate)")
}

func runInit(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	// Check if already initialized
	if _, err := config.FindRoot(); err == nil {
		exitError("cmc workspace already exists")
	}

	fmt.Printf("Initializing cmc workspace...\n")
	fmt.Printf("Content API: %s (%s)\n", initURL, initBackend)

	api, err := buildAPI(initBackend, initURL, os.Getenv(config.TokenEnv))
	if err != nil {
		exitError("%v", err)
	}

	fmt.Printf("Checking the content API...\n")
	infos, err := api.Collections(ctx)
	if err != nil {
		exitError("failed to reach content API: %v", err)
	}
	if len(infos) > 0 {
		fmt.Printf("Found %d collections\n", len(infos))
	}

	cfg, err := config.Initialize(initURL, initBackend)
	if err != nil {
		exitError("failed to initialize config: %v", err)
	}

	st, err := store.New(cfg.DatabasePath())
	if err != nil {
		exitError("failed to create store: %v", err)
	}
	defer st.Close()

	if err := st.Initialize(); err != nil {
		exitError("failed to initialize store: %v", err)
	}

	fmt.Printf("\nInitialized empty cmc workspace in .cmc/\n")
	fmt.Printf("Tracking content at %s\n", initURL)
	fmt.Printf("\nRun 'cmc sync' to fetch collection snapshots.\n")
}
