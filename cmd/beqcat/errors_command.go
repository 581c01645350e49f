package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"beqcat/internal/errreport"
)

func newErrorsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "errors [source]",
		Short: "Show record errors from the last run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			ids := cfg.SourceIDs()
			if len(args) == 1 {
				if !slices.Contains(ids, args[0]) {
					return fmt.Errorf("unknown source %q", args[0])
				}
				ids = []string{args[0]}
			}

			type sourceError struct {
				Source  string `json:"source"`
				Path    string `json:"path"`
				Message string `json:"message"`
			}
			var all []sourceError
			for _, id := range ids {
				entries, err := errreport.Read(cfg.MetaDir(), id)
				if err != nil {
					return fmt.Errorf("read errors for %s: %w", id, err)
				}
				for _, e := range entries {
					all = append(all, sourceError{Source: id, Path: e.Path, Message: e.Message})
				}
			}

			if jsonOutput {
				if all == nil {
					all = []sourceError{}
				}
				return writeJSON(cmd, all)
			}
			out := cmd.OutOrStdout()
			if len(all) == 0 {
				fmt.Fprintln(out, "No record errors")
				return nil
			}
			rows := make([][]string, 0, len(all))
			for _, e := range all {
				rows = append(rows, []string{e.Source, e.Path, e.Message})
			}
			fmt.Fprintln(out, renderTable(out, []string{"Source", "Path", "Message"}, rows, nil))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print errors as JSON")
	return cmd
}
