package app

import (
	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
)

var (
	searchJSON bool

	searchCmd = &cobra.Command{
		Use:   "search TERM",
		Short: "Search the index by package name",
		Long: heredoc.Doc(`
			Search the index for package names containing TERM.

			Exact matches rank first, then names starting with TERM, then names
			containing it anywhere. Only the exact tier is case-sensitive; the
			prefix and substring tiers ignore ASCII case. Ties are broken by
			attribute path, and only the latest version of each name is
			returned.
		`),
		Example: heredoc.Doc(`
			neix search hello
			neix search --limit 3 --json python
		`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, args[0], searchJSON)
		},
	}
)

func init() {
	searchCmd.Flags().IntVarP(&queryLimit, "limit", "l", 0, "maximum number of results (default 10)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "print results as JSON")
}
