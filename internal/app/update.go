package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/blackwell-systems/neix/internal/nix"
	"github.com/blackwell-systems/neix/internal/output"
	"github.com/blackwell-systems/neix/internal/watcher"
	"github.com/spf13/cobra"
)

var (
	updateWatch bool

	updateCmd = &cobra.Command{
		Use:   "update",
		Short: "Rebuild the package index from a nix snapshot",
		Long: heredoc.Doc(`
			Rebuild the package index from one snapshot of nixpkgs metadata.

			The whole rebuild runs in a single transaction: if fetching, parsing
			or writing fails the previous index is left untouched.

			Sources:
			  search  run 'nix search <flake> . --json' (default)
			  eval    run 'nix eval --json --file <file>'
			  file    read a snapshot JSON file, e.g. one written by 'neix export'

			By default records missing from the new snapshot are kept. With
			--prune they are deleted, and the current index is backed up first.
		`),
		Example: heredoc.Doc(`
			# Rebuild from nixpkgs
			neix update

			# Rebuild from a pinned flake and drop packages that disappeared
			neix update --flake github:NixOS/nixpkgs/nixos-24.05 --prune

			# Load a snapshot file and reindex whenever it changes
			neix update --from-file packages.json --watch
		`),
		Args: cobra.NoArgs,
		RunE: runUpdate,
	}
)

func init() {
	addSourceFlags(updateCmd)
	updateCmd.Flags().BoolVar(&updateWatch, "watch", false, "keep running and reindex when the snapshot or expression file changes")
}

func runUpdate(cmd *cobra.Command, args []string) error {
	if !updateWatch {
		return runUpdateOnce(cmd)
	}

	path, err := watchPath()
	if err != nil {
		return err
	}

	if err := runUpdateOnce(cmd); err != nil {
		return err
	}

	reindex := func(ctx context.Context) error {
		return runUpdateOnce(cmd)
	}
	w, err := watcher.New(path, reindex, watcher.OnReindex(func(err error) {
		if err != nil {
			output.Failure(cmd.ErrOrStderr(), styles(cmd), err.Error())
		}
	}))
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Watching %s for changes (Ctrl+C to stop)\n", w.Path())
	return w.Run(cmd.Context())
}

// watchPath returns the file whose changes should trigger a reindex. Only
// sources backed by a local file can be watched.
func watchPath() (string, error) {
	switch cfg.Source {
	case nix.KindFile:
		if cfg.SnapshotFile == "" {
			return "", errors.New("--watch requires a snapshot file (--from-file)")
		}
		return cfg.SnapshotFile, nil
	case nix.KindEval:
		if cfg.EvalFile == "" {
			return "", errors.New("--watch requires an expression file (--eval-file)")
		}
		return cfg.EvalFile, nil
	default:
		return "", fmt.Errorf("--watch requires the %s or %s source", nix.KindFile, nix.KindEval)
	}
}
