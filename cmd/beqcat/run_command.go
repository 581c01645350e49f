package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"beqcat/internal/engine"
	"beqcat/internal/history"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var nowFlag string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Rebuild and publish the catalogue from every configured source",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			var now time.Time
			if value := strings.TrimSpace(nowFlag); value != "" {
				now, err = time.Parse(time.RFC3339, value)
				if err != nil {
					return fmt.Errorf("parse --now: %w", err)
				}
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}

			eng, err := engine.New(engine.Options{Config: cfg, Logger: logger, Now: now})
			if err != nil {
				return err
			}
			report, runErr := eng.Run(cmd.Context())
			if report == nil {
				return runErr
			}
			if jsonOutput {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
			} else {
				printRunSummary(cmd, report)
			}
			return runErr
		},
	}

	cmd.Flags().StringVar(&nowFlag, "now", "", "Reference time for the feed window (RFC3339); defaults to the current time")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the run report as JSON")
	return cmd
}

func printRunSummary(cmd *cobra.Command, report *engine.Report) {
	out := cmd.OutOrStdout()

	rows := make([][]string, 0, len(report.Sources))
	for _, s := range report.Sources {
		status := colorize(out, s.Status, text.Colors{text.FgGreen})
		if s.Status == engine.SourceFailed {
			status = colorize(out, s.Status, text.Colors{text.FgRed})
		}
		rows = append(rows, []string{
			s.ID,
			status,
			strconv.Itoa(s.Records),
			strconv.Itoa(s.Titles),
			strconv.Itoa(s.Entries),
			strconv.Itoa(s.RecordErrors),
		})
	}
	headers := []string{"Source", "Status", "Records", "Titles", "Entries", "Errors"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight}
	fmt.Fprintln(out, renderTable(out, headers, rows, aligns))

	status := report.Status
	switch status {
	case history.StatusSucceeded:
		status = colorize(out, status, text.Colors{text.FgGreen})
	case history.StatusPartial:
		status = colorize(out, status, text.Colors{text.FgYellow})
	default:
		status = colorize(out, status, text.Colors{text.FgRed})
	}
	fmt.Fprintf(out, "Run %s %s\n", report.RunID, status)
	fmt.Fprintf(out, "Entries: %d (retained %d, in feed %d)\n", report.Entries, report.Retained, report.FeedItems)
	fmt.Fprintf(out, "Published files: %d\n", report.Published)
	if n := len(report.ProvenanceGaps); n > 0 {
		fmt.Fprintf(out, "Provenance gaps: %d\n", n)
	}
	if n := len(report.Collisions); n > 0 {
		fmt.Fprintf(out, "Identity collisions: %d\n", n)
	}
	if n := len(report.Orphans); n > 0 {
		fmt.Fprintf(out, "Orphaned pages: %d (see `beqcat orphans`)\n", n)
	}
	if failed := report.FailedSources(); len(failed) > 0 {
		fmt.Fprintf(out, "Retained output for failed sources: %s\n", strings.Join(failed, ", "))
	}
}
