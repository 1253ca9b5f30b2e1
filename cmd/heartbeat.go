package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/weibo-relay/internal/app"
)

func newHeartbeatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "heartbeat",
		Short: "Send one status message to the status webhook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, app.Options{Heartbeat: true}, func(ctx context.Context, a *app.App) error {
				return a.Beat(ctx)
			})
		},
	}
}
