package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/weibo-relay/internal/app"
)

func newScanCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run a single scan cycle and print its report",
		Long: `Fetches the timeline once (with retries), forwards every unseen post and
prints the scan report as JSON. With --dry-run nothing is recorded or sent.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, app.Options{Scan: true, DryRun: dryRun}, func(ctx context.Context, a *app.App) error {
				report, err := a.RunScan(ctx)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return fmt.Errorf("write report: %w", err)
				}
				if report.FetchFailed {
					return fmt.Errorf("scan %s: timeline could not be fetched", report.RunID)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report new posts without recording or forwarding them")
	return cmd
}
