package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/blackwell-systems/neix/internal/nix"
	"github.com/blackwell-systems/neix/internal/snapshots"
	"github.com/spf13/cobra"
)

var restoreCmd = &cobra.Command{
	Use:   "restore [BACKUP]",
	Short: "Replace the index with a backup taken before a prune",
	Long: heredoc.Doc(`
		Replace the index with the contents of a backup. Without an argument
		the newest backup is used. BACKUP may be a file name inside the backup
		directory or a path to any snapshot JSON file.

		The current index is itself backed up before it is replaced, so a
		restore can be undone with another restore.
	`),
	Example: heredoc.Doc(`
		neix restore
		neix restore 2026-03-01-120000.json
	`),
	Args: cobra.MaximumNArgs(1),
	RunE: runRestore,
}

func runRestore(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	mgr := backups(st)

	var path string
	if len(args) == 1 {
		path = resolveBackup(mgr, args[0])
	} else {
		latest, err := mgr.Latest()
		if errors.Is(err, snapshots.ErrNoBackups) {
			return fmt.Errorf("no backups found in %s", mgr.Dir())
		}
		if err != nil {
			return err
		}
		path = latest.Path
	}

	res, err := runReindex(cmd, st, &nix.FileSource{Path: path}, true)
	if err != nil {
		return fmt.Errorf("restore failed: %w", err)
	}
	reportReindex(cmd, res, "index restored")
	return nil
}

// resolveBackup prefers an existing path and falls back to a name inside
// the backup directory.
func resolveBackup(mgr *snapshots.Manager, arg string) string {
	if _, err := os.Stat(arg); err == nil || filepath.IsAbs(arg) {
		return arg
	}
	return filepath.Join(mgr.Dir(), arg)
}
