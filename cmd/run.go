package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/weibo-relay/internal/app"
	"github.com/JakeFAU/weibo-relay/internal/server"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Scan and send heartbeats on schedule until interrupted",
		Long: `Starts the browser session, runs a scan and a heartbeat immediately, then
keeps both on their configured schedules. SIGINT or SIGTERM stops the loop.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, app.Options{Scan: true, Heartbeat: true}, func(ctx context.Context, a *app.App) error {
				return server.Run(ctx, a)
			})
		},
	}
}
