package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"beqcat/internal/catalogue"
	"beqcat/internal/materialize"
)

const suggestionLimit = 3

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Fuzzy-search the published catalogue by title",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			entries, err := catalogue.ReadJSON(filepath.Join(cfg.DocsDir(), materialize.JSONFile))
			if err != nil {
				return err
			}
			query := strings.Join(args, " ")
			matches := catalogue.Search(entries, query, limit)

			if jsonOutput {
				found := make([]catalogue.Entry, 0, len(matches))
				for _, m := range matches {
					found = append(found, m.Entry)
				}
				return writeJSON(cmd, found)
			}

			out := cmd.OutOrStdout()
			if len(matches) == 0 {
				fmt.Fprintf(out, "No matches for %q\n", query)
				if hints := catalogue.Suggest(entries, query, suggestionLimit); len(hints) > 0 {
					fmt.Fprintf(out, "Did you mean: %s\n", strings.Join(hints, ", "))
				}
				return nil
			}
			rows := make([][]string, 0, len(matches))
			for _, m := range matches {
				e := m.Entry
				rows = append(rows, []string{e.Title, e.Year, materialize.FormatLabel(e.Format), e.Author, e.Links.Catalogue})
			}
			fmt.Fprintln(out, renderTable(out, []string{"Title", "Year", "Format", "Author", "Link"}, rows, nil))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of matches")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print matching entries as JSON")
	return cmd
}
