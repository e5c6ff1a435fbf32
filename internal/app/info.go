package app

import (
	"errors"
	"fmt"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/blackwell-systems/neix/internal/output"
	"github.com/blackwell-systems/neix/internal/store"
	"github.com/spf13/cobra"
)

var (
	infoJSON bool

	infoCmd = &cobra.Command{
		Use:   "info [ATTR]",
		Short: "Show index statistics, or one package by attribute path",
		Long: heredoc.Doc(`
			Show the database path, record and name counts, when and from what
			source the index was last rebuilt, and the backups on disk.

			With ATTR, show that single record instead.
		`),
		Example: heredoc.Doc(`
			# Index summary
			neix info

			# A single record
			neix info legacyPackages.x86_64-linux.hello
		`),
		Args: cobra.MaximumNArgs(1),
		RunE: runInfo,
	}
)

func init() {
	infoCmd.Flags().BoolVar(&infoJSON, "json", false, "print the package as JSON (with ATTR)")
}

func runInfo(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if len(args) == 1 {
		pkg, err := st.Get(cmd.Context(), args[0])
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrNotInitialized) {
			return fmt.Errorf("package %s not found", args[0])
		}
		if err != nil {
			return err
		}
		if infoJSON {
			return output.RenderJSON(cmd.OutOrStdout(), []store.Package{*pkg})
		}
		output.RenderResults(cmd.OutOrStdout(), []store.Package{*pkg}, styles(cmd))
		return nil
	}

	info, err := st.Info(cmd.Context())
	if errors.Is(err, store.ErrNotInitialized) {
		info, err = &store.Info{}, nil
	}
	if err != nil {
		return fmt.Errorf("failed to read index info: %w", err)
	}

	list, err := backups(st).List()
	if err != nil {
		return err
	}

	summary := output.IndexSummary{
		DBPath:       cfg.DBPath(),
		Info:         info,
		VersionOrder: st.VersionOrder(),
		Backups:      len(list),
	}
	if len(list) > 0 {
		summary.LastBackup = list[0].CreatedAt
	}
	output.RenderInfo(cmd.OutOrStdout(), summary, styles(cmd))
	return nil
}
