// Package config resolves neix's directories and loads its YAML config file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/blackwell-systems/neix/internal/nix"
	"github.com/blackwell-systems/neix/internal/store"
	"gopkg.in/yaml.v3"
)

const (
	appName        = "neix"
	configFileName = "config.yaml"
	dbFileName     = "neix.db"
	lockFileName   = "neix.lock"
	backupDirName  = "backups"
)

// Config is the resolved configuration passed to the store, indexer and
// commands. Nothing below this package reads the environment.
type Config struct {
	Limit        int    `yaml:"limit"`
	Source       string `yaml:"source"`
	Flake        string `yaml:"flake"`
	EvalFile     string `yaml:"eval_file"`
	SnapshotFile string `yaml:"snapshot_file"`
	VersionOrder string `yaml:"version_order"`
	Prune        bool   `yaml:"prune"`
	KeepBackups  int    `yaml:"keep_backups"`
	LogLevel     string `yaml:"log_level"`
	LogFormat    string `yaml:"log_format"`

	// DataDir holds the database, lock file and backups.
	DataDir string `yaml:"-"`

	// DB overrides <DataDir>/neix.db when set.
	DB string `yaml:"-"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Limit:        store.DefaultLimit,
		Source:       nix.KindSearch,
		Flake:        "nixpkgs",
		VersionOrder: string(store.OrderLexical),
		KeepBackups:  5,
		LogLevel:     "warn",
		LogFormat:    "text",
	}
}

// Dir returns the neix config directory, respecting XDG_CONFIG_HOME.
// Defaults to ~/.config/neix if XDG_CONFIG_HOME is not set.
func Dir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, appName), nil
}

// Path returns the config file location.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// DataDir returns the neix data directory: NEIX_DATA_DIR if set, otherwise
// $XDG_DATA_HOME/neix, otherwise ~/.local/share/neix.
func DataDir() (string, error) {
	if dir := os.Getenv("NEIX_DATA_DIR"); dir != "" {
		return dir, nil
	}
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(base, appName), nil
}

// Load builds the configuration in order of increasing precedence:
//  1. Defaults
//  2. The config file at path (missing is fine)
//  3. NEIX_* environment variables
//
// An empty path means the default location from Path. Load does not
// validate: callers apply command-line overrides first and then call
// Validate.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		p, err := Path()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve config path: %w", err)
		}
		path = p
	}
	if err := cfg.loadYAML(path); err != nil {
		return nil, err
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	dataDir, err := DataDir()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory: %w", err)
	}
	cfg.DataDir = dataDir
	return cfg, nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	// Fields absent from the file keep their defaults.
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("NEIX_LIMIT"); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid NEIX_LIMIT %q: %w", v, err)
		}
		c.Limit = n
	}
	if v := os.Getenv("NEIX_VERSION_ORDER"); v != "" {
		c.VersionOrder = v
	}
	if v := os.Getenv("NEIX_PRUNE"); v != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid NEIX_PRUNE %q: %w", v, err)
		}
		c.Prune = b
	}
	if v := os.Getenv("NEIX_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	return nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if c.Limit <= 0 {
		return fmt.Errorf("limit must be positive, got %d", c.Limit)
	}
	switch c.Source {
	case nix.KindSearch, nix.KindEval, nix.KindFile:
	default:
		return fmt.Errorf("source must be %s, %s or %s, got %q", nix.KindSearch, nix.KindEval, nix.KindFile, c.Source)
	}
	if _, err := store.ParseVersionOrder(c.VersionOrder); err != nil {
		return err
	}
	// Restore depends on the pre-prune backup, so at least one is kept.
	if c.KeepBackups < 1 {
		return fmt.Errorf("keep_backups must be at least 1, got %d", c.KeepBackups)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn or error, got %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// DBPath returns the database file path.
func (c *Config) DBPath() string {
	if c.DB != "" {
		return c.DB
	}
	return filepath.Join(c.DataDir, dbFileName)
}

// LockPath returns the reindex lock file path.
func (c *Config) LockPath() string {
	return filepath.Join(c.DataDir, lockFileName)
}

// BackupDir returns the directory holding pre-prune backups.
func (c *Config) BackupDir() string {
	return filepath.Join(c.DataDir, backupDirName)
}

// Order returns the parsed version order. Call after Validate.
func (c *Config) Order() store.VersionOrder {
	order, _ := store.ParseVersionOrder(c.VersionOrder)
	return order
}

// SourceOptions returns the settings for nix.NewSource.
func (c *Config) SourceOptions() nix.SourceOptions {
	return nix.SourceOptions{
		Flake:    c.Flake,
		EvalFile: c.EvalFile,
		File:     c.SnapshotFile,
	}
}
