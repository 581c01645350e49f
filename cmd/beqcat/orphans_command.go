package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"beqcat/internal/engine"
)

func newOrphansCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "orphans",
		Short: "List pages the last run no longer produces",
		Long:  "List catalogue pages that the last run neither produced nor retained. beqcat never deletes them; review and remove them by hand.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			report, err := engine.ReadReport(cfg.MetaDir())
			if err != nil {
				return err
			}
			if report == nil {
				return fmt.Errorf("no run report in %s; run `beqcat run` first", cfg.MetaDir())
			}
			if jsonOutput {
				return writeJSON(cmd, report.Orphans)
			}
			out := cmd.OutOrStdout()
			if len(report.Orphans) == 0 {
				fmt.Fprintln(out, "No orphaned pages")
				return nil
			}
			for _, rel := range report.Orphans {
				fmt.Fprintln(out, filepath.Join(cfg.DocsDir(), filepath.FromSlash(rel)))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print orphans as JSON")
	return cmd
}
