package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"licensesync/internal/app"
	"licensesync/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check directories, credentials, store and upstream reachability",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(cmd, func(rt *app.Runtime) error {
				results := preflight.RunAll(cmd.Context(), rt.Config, preflight.Targets{
					Store:    rt.Store,
					Upstream: rt.Transport,
				})
				failed := preflight.Failed(results)
				if jsonOutput {
					if err := writeJSON(cmd, results); err != nil {
						return err
					}
				} else {
					out := cmd.OutOrStdout()
					colorize := shouldColorize(out)
					for _, line := range renderSectionHeader("Preflight", colorize) {
						fmt.Fprintln(out, line)
					}
					for _, line := range preflightLines(results, colorize) {
						fmt.Fprintln(out, line)
					}
				}
				if len(failed) > 0 {
					return fmt.Errorf("%d of %d checks failed", len(failed), len(results))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func preflightLines(results []preflight.Result, colorize bool) []string {
	lines := make([]string, 0, len(results))
	for _, r := range results {
		kind := statusOK
		if !r.Passed {
			kind = statusError
		}
		lines = append(lines, renderStatusLine(r.Name, kind, r.Detail, colorize))
	}
	return lines
}
