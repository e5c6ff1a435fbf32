package app

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/blackwell-systems/neix/internal/output"
	"github.com/spf13/cobra"
)

var (
	exportOutput string

	exportCmd = &cobra.Command{
		Use:   "export",
		Short: "Write the index as a snapshot JSON file",
		Long: heredoc.Doc(`
			Write every record in the index as a JSON object keyed by attribute
			path, in the same shape 'nix search --json' produces. The file can be
			loaded back with 'neix update --from-file'.
		`),
		Example: heredoc.Doc(`
			neix export > packages.json
			neix export -o packages.json
		`),
		Args: cobra.NoArgs,
		RunE: runExport,
	}
)

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "write to file instead of stdout")
}

func runExport(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if exportOutput == "" {
		_, err := backups(st).Export(cmd.Context(), cmd.OutOrStdout())
		return err
	}

	n, err := writeFileAtomic(exportOutput, func(w io.Writer) (int, error) {
		return backups(st).Export(cmd.Context(), w)
	})
	if err != nil {
		return err
	}
	output.Success(cmd.ErrOrStderr(), output.NewStyles(output.ColorEnabled(cmd.ErrOrStderr())),
		fmt.Sprintf("exported %d packages to %s", n, exportOutput))
	return nil
}

// writeFileAtomic writes through a temp file in the target directory so a
// failed export never leaves a truncated file behind.
func writeFileAtomic(path string, write func(io.Writer) (int, error)) (int, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".neix-export-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	n, err := write(tmp)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return n, nil
}
