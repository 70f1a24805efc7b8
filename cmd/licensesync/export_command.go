package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"licensesync/internal/api"
	"licensesync/internal/app"
	"licensesync/internal/export"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var req api.LicenseDetailsRequest
	var outPath string
	var upload bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every matching license row to CSV, optionally uploading it over SFTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(cmd, func(rt *app.Runtime) error {
				target := strings.TrimSpace(outPath)
				if target == "" {
					target = filepath.Join(rt.Config.Paths.DataDir,
						fmt.Sprintf("licenses-%s.csv", time.Now().UTC().Format("20060102T150405Z")))
				}

				uploader := export.NewUploader(rt.Config.Export, ctx.log())
				if upload && !uploader.Configured() {
					return fmt.Errorf("--upload requires export.sftp_host, export.sftp_user and export.sftp_password")
				}

				rows, err := rt.Licenses.Export(cmd.Context(), req)
				if err != nil {
					return err
				}
				if err := export.WriteFile(target, rows); err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Wrote %d rows to %s\n", len(rows), target)

				if upload {
					remote, err := uploader.Upload(cmd.Context(), target)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Uploaded to %s:%s\n", rt.Config.Export.SFTPHost, remote)
				}
				return nil
			})
		},
	}

	addFilterFlags(cmd, &req)
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Destination CSV path (defaults to the data directory)")
	cmd.Flags().BoolVar(&upload, "upload", false, "Upload the CSV to the configured SFTP server")
	return cmd
}
