// Package config manages cmc configuration and the .cmc directory
// structure. It handles loading, saving, and initializing the workspace
// configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/kilupskalvis/cmc/internal/retry"
)

const (
	CMCDir       = ".cmc"
	ConfigFile   = "config"
	DatabaseFile = "cmc.db"
)

// Backends the content API client can be built against.
const (
	BackendREST     = "rest"
	BackendWeaviate = "weaviate"
)

// TokenEnv overrides the stored API token, so the token can stay out
// of the config file entirely.
const TokenEnv = "CMC_API_TOKEN"

// DefaultPageSize is the fetch window written into new workspaces.
const DefaultPageSize = 25

// Retry tunes backoff for transient API failures. Zero values fall
// back to the built-in defaults.
type Retry struct {
	MaxAttempts int     `toml:"max_attempts"`
	BaseDelayMS int     `toml:"base_delay_ms"`
	MaxDelayMS  int     `toml:"max_delay_ms"`
	Factor      float64 `toml:"factor"`
}

// Config represents the cmc workspace configuration
type Config struct {
	APIURL      string   `toml:"api_url"`
	APIToken    string   `toml:"api_token,omitempty"`
	Backend     string   `toml:"backend"`
	Collections []string `toml:"collections,omitempty"` // managed collections, empty means all
	PageSize    int      `toml:"page_size"`
	Retry       Retry    `toml:"retry"`

	path string // path to .cmc directory
}

// FindRoot finds the .cmc directory by walking up from current directory
func FindRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		cmcPath := filepath.Join(dir, CMCDir)
		if info, err := os.Stat(cmcPath); err == nil && info.IsDir() {
			return cmcPath, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not a cmc workspace (or any parent up to root)")
		}
		dir = parent
	}
}

// Load loads the configuration from the .cmc directory. A token in
// CMC_API_TOKEN overrides the stored one.
func Load() (*Config, error) {
	cmcPath, err := FindRoot()
	if err != nil {
		return nil, err
	}

	configPath := filepath.Join(cmcPath, ConfigFile)
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.path = cmcPath
	if cfg.Backend == "" {
		cfg.Backend = BackendREST
	}
	if token := os.Getenv(TokenEnv); token != "" {
		cfg.APIToken = token
	}
	return &cfg, nil
}

// Save saves the configuration to disk
func (c *Config) Save() error {
	configPath := filepath.Join(c.path, ConfigFile)
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(configPath, data, 0644)
}

// CMCPath returns the path to the .cmc directory
func (c *Config) CMCPath() string {
	return c.path
}

// DatabasePath returns the path to the local sqlite database
func (c *Config) DatabasePath() string {
	return filepath.Join(c.path, DatabaseFile)
}

// RetryPolicy converts the retry section into an engine policy.
// Returns nil when the section is unset so the defaults apply.
func (c *Config) RetryPolicy() *retry.Policy {
	if c.Retry == (Retry{}) {
		return nil
	}

	p := retry.DefaultPolicy()
	if c.Retry.MaxAttempts > 0 {
		p.MaxAttempts = c.Retry.MaxAttempts
	}
	if c.Retry.BaseDelayMS > 0 {
		p.BaseDelay = time.Duration(c.Retry.BaseDelayMS) * time.Millisecond
	}
	if c.Retry.MaxDelayMS > 0 {
		p.MaxDelay = time.Duration(c.Retry.MaxDelayMS) * time.Millisecond
	}
	if c.Retry.Factor > 0 {
		p.Factor = c.Retry.Factor
	}
	return p
}

// Initialize creates a new .cmc directory with initial configuration
func Initialize(apiURL, backend string) (*Config, error) {
	if backend == "" {
		backend = BackendREST
	}
	if backend != BackendREST && backend != BackendWeaviate {
		return nil, fmt.Errorf("unknown backend %q (want %s or %s)", backend, BackendREST, BackendWeaviate)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	cmcPath := filepath.Join(cwd, CMCDir)

	// Check if already initialized
	if _, err := os.Stat(cmcPath); err == nil {
		return nil, fmt.Errorf("cmc workspace already exists")
	}

	if err := os.MkdirAll(cmcPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create .cmc directory: %w", err)
	}

	defaults := retry.DefaultPolicy()
	cfg := &Config{
		APIURL:   apiURL,
		Backend:  backend,
		PageSize: DefaultPageSize,
		Retry: Retry{
			MaxAttempts: defaults.MaxAttempts,
			BaseDelayMS: int(defaults.BaseDelay / time.Millisecond),
			MaxDelayMS:  int(defaults.MaxDelay / time.Millisecond),
			Factor:      defaults.Factor,
		},
		path: cmcPath,
	}

	if err := cfg.Save(); err != nil {
		// Cleanup on failure
		os.RemoveAll(cmcPath)
		return nil, err
	}

	return cfg, nil
}
