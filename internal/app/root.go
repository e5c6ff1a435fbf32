package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/blackwell-systems/neix/internal/config"
	"github.com/blackwell-systems/neix/internal/logging"
	"github.com/blackwell-systems/neix/internal/output"
	"github.com/spf13/cobra"
)

var (
	dbPath       string
	dataDir      string
	configPath   string
	logLevel     string
	logFormat    string
	versionOrder string

	rootUpdate bool
	queryLimit int

	// cfg is resolved by PersistentPreRunE before any command runs.
	cfg *config.Config

	// RootCmd is the root command for neix
	RootCmd = &cobra.Command{
		Use:   "neix [TERM]",
		Short: "Blazing fast eix-like search for nixpkgs",
		Long: heredoc.Doc(`
			neix keeps a local SQLite index of nixpkgs package metadata and answers
			name queries from it instantly, without evaluating nixpkgs.

			Results are ranked exact match first, then prefix matches, then names
			that merely contain the term. Only the latest version of each package
			name is shown.

			Build the index once (this runs 'nix search nixpkgs . --json'):
			  neix --update

			Then search it:
			  neix firefox
		`),
		Example: heredoc.Doc(`
			# Rebuild the index, then search it
			neix --update
			neix python3

			# Show up to 25 results
			neix -l 25 rust

			# Update and search in one go
			neix --update hello
		`),
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd)
		},
		RunE: runRoot,
	}
)

func init() {
	pf := RootCmd.PersistentFlags()
	pf.StringVar(&dbPath, "db", "", "database path (default: <data-dir>/neix.db)")
	pf.StringVar(&dataDir, "data-dir", "", "data directory (default: $XDG_DATA_HOME/neix)")
	pf.StringVar(&configPath, "config", "", "config file (default: $XDG_CONFIG_HOME/neix/config.yaml)")
	pf.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&logFormat, "log-format", "", "log format: text, json")
	pf.StringVar(&versionOrder, "version-order", "", "latest-version ordering: lexical, natural")

	RootCmd.Flags().BoolVar(&rootUpdate, "update", false, "rebuild the index before searching")
	RootCmd.Flags().IntVarP(&queryLimit, "limit", "l", 0, "maximum number of results (default 10)")
	addSourceFlags(RootCmd)

	// Enable cobra's built-in suggestion feature for unknown subcommands
	RootCmd.SuggestionsMinimumDistance = 2

	RootCmd.AddCommand(searchCmd)
	RootCmd.AddCommand(updateCmd)
	RootCmd.AddCommand(infoCmd)
	RootCmd.AddCommand(exportCmd)
	RootCmd.AddCommand(restoreCmd)
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command's
// context, which rolls back an in-flight reindex.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return RootCmd.ExecuteContext(ctx)
}

func runRoot(cmd *cobra.Command, args []string) error {
	if !rootUpdate && len(args) == 0 {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "neix: eix-like search for nixpkgs")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Run 'neix --update' to build the index.")
		fmt.Fprintln(out, "Run 'neix TERM' to search it.")
		fmt.Fprintln(out, "Run 'neix --help' for the full reference.")
		return nil
	}

	if rootUpdate {
		if err := runUpdateOnce(cmd); err != nil {
			return err
		}
	}
	if len(args) == 1 {
		return runQuery(cmd, args[0], false)
	}
	return nil
}

// loadConfig resolves cfg from the config file, the environment and the
// command line, then installs the logger.
func loadConfig(cmd *cobra.Command) error {
	c, err := config.Load(configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	changed := func(name string) bool {
		f := flags.Lookup(name)
		return f != nil && f.Changed
	}

	if changed("data-dir") {
		c.DataDir = dataDir
	}
	if changed("db") {
		c.DB = dbPath
	}
	if changed("log-level") {
		c.LogLevel = logLevel
	}
	if changed("log-format") {
		c.LogFormat = logFormat
	}
	if changed("version-order") {
		c.VersionOrder = versionOrder
	}
	if changed("limit") {
		c.Limit = queryLimit
	}
	applySourceFlags(c, changed)

	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logging.Setup(c.LogLevel, c.LogFormat, cmd.ErrOrStderr())
	cfg = c
	return nil
}

// styles returns output styles for the command's stdout.
func styles(cmd *cobra.Command) output.Styles {
	return output.NewStyles(output.ColorEnabled(cmd.OutOrStdout()))
}
