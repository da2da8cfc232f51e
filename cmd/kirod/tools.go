package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/kirod/internal/mcp"
)

func newToolsCmd() *cobra.Command {
	var search string

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the MCP tools kirod serves",
		Long: `List the MCP tools kirod serves.

--search matches names, descriptions and keywords, and accepts regular
expressions.

Examples:
  kirod tools
  kirod tools --search task`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			registry := mcp.DefaultRegistry()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)

			if search == "" {
				fmt.Fprintln(w, "NAME\tCATEGORY\tDESCRIPTION")
				for _, t := range registry.List() {
					fmt.Fprintf(w, "%s\t%s\t%s\n", t.Name, t.Category, t.Description)
				}
				return w.Flush()
			}

			results := registry.Search(search)
			if len(results) == 0 {
				return fmt.Errorf("no tools match %q", search)
			}
			fmt.Fprintln(w, "NAME\tSCORE\tMATCH\tDESCRIPTION")
			for _, r := range results {
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", r.Tool.Name, r.Score, r.MatchReason, r.Tool.Description)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "filter tools by query")
	return cmd
}
