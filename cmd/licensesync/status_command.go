package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"licensesync/internal/app"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show checkpoint, store counts and recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(cmd, func(rt *app.Runtime) error {
				status, err := rt.Licenses.Status(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, status)
				}
				out := cmd.OutOrStdout()
				for _, line := range statusLines(status, rt.Config.Store.Driver, shouldColorize(out)) {
					fmt.Fprintln(out, line)
				}
				if len(status.RecentRuns) > 0 {
					fmt.Fprintln(out)
					fmt.Fprintln(out, runsTable(status.RecentRuns))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newCheckpointCommand(ctx *commandContext) *cobra.Command {
	checkpointCmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Inspect or override the sync checkpoint",
	}

	checkpointCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the last synced date",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(cmd, func(rt *app.Runtime) error {
				last, ok, err := rt.Checkpoint.GetLast(cmd.Context())
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintf(cmd.OutOrStdout(), "No checkpoint; next run starts at %s\n", rt.Config.Ingest.FullStartDate)
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), last)
				return nil
			})
		},
	})

	checkpointCmd.AddCommand(&cobra.Command{
		Use:   "set <YYYY-MM-DD>",
		Short: "Overwrite the last synced date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date := strings.TrimSpace(args[0])
			return ctx.withRuntime(cmd, func(rt *app.Runtime) error {
				if err := rt.Checkpoint.SetLast(cmd.Context(), date); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Checkpoint set to %s\n", date)
				return nil
			})
		},
	})

	return checkpointCmd
}
