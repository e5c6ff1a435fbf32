package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/blackwell-systems/neix/internal/config"
	"github.com/blackwell-systems/neix/internal/indexer"
	"github.com/blackwell-systems/neix/internal/nix"
	"github.com/blackwell-systems/neix/internal/output"
	"github.com/blackwell-systems/neix/internal/snapshots"
	"github.com/blackwell-systems/neix/internal/store"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	sourceKind string
	flakeRef   string
	evalFile   string
	fromFile   string
	prune      bool
)

// addSourceFlags registers the flags that pick where a reindex reads from.
// The root command and update share the same variables.
func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&sourceKind, "source", "", "snapshot source: search, eval, file (default search)")
	cmd.Flags().StringVar(&flakeRef, "flake", "", "flake reference for the search source (default nixpkgs)")
	cmd.Flags().StringVar(&evalFile, "eval-file", "", "nix expression file for the eval source")
	cmd.Flags().StringVar(&fromFile, "from-file", "", "read the snapshot from a JSON file (implies --source file)")
	cmd.Flags().BoolVar(&prune, "prune", false, "delete records missing from the new snapshot")
}

func applySourceFlags(c *config.Config, changed func(string) bool) {
	if changed("flake") {
		c.Flake = flakeRef
	}
	if changed("eval-file") {
		c.EvalFile = evalFile
	}
	if changed("from-file") {
		c.SnapshotFile = fromFile
		c.Source = nix.KindFile
	}
	if changed("source") {
		c.Source = sourceKind
	}
	if changed("prune") {
		c.Prune = prune
	}
}

// openStore opens the configured database.
func openStore() (*store.Store, error) {
	st, err := store.New(cfg.DBPath(), store.WithVersionOrder(cfg.Order()))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return st, nil
}

// backups returns the snapshot manager for st.
func backups(st *store.Store) *snapshots.Manager {
	return snapshots.New(st, cfg.BackupDir(), cfg.KeepBackups)
}

// runReindex rebuilds st from src, drawing a spinner while the snapshot is
// fetched and a progress bar while records are written. Progress goes to
// stderr so stdout stays clean for results.
func runReindex(cmd *cobra.Command, st *store.Store, src nix.Source, pruneMissing bool) (*indexer.Result, error) {
	errw := cmd.ErrOrStderr()

	spinner := output.NewSpinner(errw, "Fetching "+src.Describe())
	var bar *output.ProgressBar

	ix := indexer.New(st, src, indexer.Options{
		Prune:    pruneMissing,
		LockPath: cfg.LockPath(),
		Backups:  backups(st),
		OnFetched: func(total int) {
			spinner.Stop()
			bar = output.NewProgress(errw, total, "Indexing packages")
		},
		OnUpserted: func(done, total int) {
			bar.Set(done, total)
		},
	})

	spinner.Start()
	res, err := ix.Reindex(cmd.Context())
	spinner.Stop()
	if err != nil {
		return nil, err
	}
	if bar != nil {
		bar.Finish()
	}
	return res, nil
}

// runUpdateOnce rebuilds the index from the configured source and reports
// the outcome.
func runUpdateOnce(cmd *cobra.Command) error {
	src, err := nix.NewSource(cfg.Source, cfg.SourceOptions())
	if err != nil {
		return fmt.Errorf("index update failed: %w", err)
	}

	st, err := openStore()
	if err != nil {
		return fmt.Errorf("index update failed: %w", err)
	}
	defer st.Close()

	res, err := runReindex(cmd, st, src, cfg.Prune)
	if err != nil {
		return fmt.Errorf("index update failed: %w", err)
	}
	reportReindex(cmd, res, "index updated")
	return nil
}

func reportReindex(cmd *cobra.Command, res *indexer.Result, verb string) {
	out := cmd.OutOrStdout()
	st := styles(cmd)
	output.Success(out, st, fmt.Sprintf("%s: %s packages from %s in %s",
		verb, humanize.Comma(int64(res.Packages)), res.Source, res.Duration.Round(time.Millisecond)))
	if res.Backup != "" {
		fmt.Fprintf(out, "  previous index saved to %s\n", res.Backup)
	}
}

// runQuery runs a ranked query and renders the results. A database that
// has never been indexed renders like an empty result.
func runQuery(cmd *cobra.Command, term string, asJSON bool) error {
	st, err := openStore()
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	defer st.Close()

	pkgs, err := st.Query(cmd.Context(), term, cfg.Limit)
	if errors.Is(err, store.ErrNotInitialized) {
		pkgs, err = nil, nil
	}
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if asJSON {
		return output.RenderJSON(cmd.OutOrStdout(), pkgs)
	}
	output.RenderResults(cmd.OutOrStdout(), pkgs, styles(cmd))
	return nil
}
