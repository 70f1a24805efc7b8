package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"licensesync/internal/api"
	"licensesync/internal/app"
	"licensesync/internal/ingest"
)

func newIngestCommand(ctx *commandContext) *cobra.Command {
	var opts ingest.RunOptions
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Fetch license details since the last checkpoint and upsert them",
		Long: "Fetch every report page for the sync window, normalize each row and upsert it.\n" +
			"The window runs from the stored checkpoint (or the full-history start date)\n" +
			"to today. --from/--to override it; only a run ending today advances the checkpoint.",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.From = strings.TrimSpace(opts.From)
			opts.To = strings.TrimSpace(opts.To)
			if opts.Limit < 0 {
				return fmt.Errorf("--limit must not be negative")
			}
			return ctx.withRuntime(cmd, func(rt *app.Runtime) error {
				report, runErr := rt.Orchestrator.RunWithOptions(cmd.Context(), opts)
				out := cmd.OutOrStdout()
				if jsonOutput {
					if runErr != nil {
						if err := writeJSON(cmd, api.ErrorResponse{OK: false, Error: runErr.Error()}); err != nil {
							return err
						}
						return runErr
					}
					return writeJSON(cmd, api.IngestResponse{OK: true, Report: api.FromReport(report)})
				}
				if runErr != nil {
					if report.FailureDump != "" {
						fmt.Fprintf(cmd.ErrOrStderr(), "Failure details written to %s\n", report.FailureDump)
					}
					return runErr
				}
				printIngestReport(out, report, shouldColorize(out))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&opts.From, "from", "", "Window start (YYYY-MM-DD); defaults to the checkpoint")
	cmd.Flags().StringVar(&opts.To, "to", "", "Window end (YYYY-MM-DD); defaults to today")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Fetch and normalize without writing")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Write at most N rows (never advances the checkpoint)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func printIngestReport(out io.Writer, report ingest.Report, colorize bool) {
	title := "Ingest"
	if report.DryRun {
		title = "Ingest (dry run)"
	}
	for _, line := range renderSectionHeader(title, colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, renderStatusLine("Run", statusInfo, report.RunID, colorize))
	fmt.Fprintln(out, renderStatusLine("Window", statusInfo, report.FromDate+" .. "+report.ToDate, colorize))

	rows := [][]string{
		{"Fetched", strconv.Itoa(report.Fetched)},
		{"Upserted", strconv.Itoa(report.Upserted)},
		{"Failed", strconv.Itoa(report.Failed)},
		{"Audit failures", strconv.Itoa(report.AuditFailures)},
		{"Provisional", strconv.Itoa(report.Provisional)},
		{"Duration", fmt.Sprintf("%.1fs", report.DurationSeconds)},
	}
	fmt.Fprintln(out, renderTable([]column{textColumn("Metric"), numericColumn("Value")}, rows, ""))

	switch {
	case report.Failed > 0:
		fmt.Fprintln(out, renderStatusLine("Rows", statusWarn, fmt.Sprintf("%d rows failed to write", report.Failed), colorize))
	case report.AuditFailures > 0:
		fmt.Fprintln(out, renderStatusLine("Audit", statusWarn, fmt.Sprintf("%d audit rows not written", report.AuditFailures), colorize))
	}
	if report.CheckpointAdvanced {
		fmt.Fprintln(out, renderStatusLine("Checkpoint", statusOK, "advanced to "+report.ToDate, colorize))
	} else {
		fmt.Fprintln(out, renderStatusLine("Checkpoint", statusInfo, "unchanged", colorize))
	}
}
