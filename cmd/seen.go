package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/weibo-relay/internal/app"
)

func newSeenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seen",
		Short: "Inspect or seed the seen-item store",
	}
	cmd.AddCommand(newSeenCountCmd())
	cmd.AddCommand(newSeenMarkCmd())
	return cmd
}

func newSeenCountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print how many post ids are recorded",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, app.Options{}, func(ctx context.Context, a *app.App) error {
				n, err := a.Store().Count(ctx)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), n)
				return err
			})
		},
	}
}

func newSeenMarkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mark <id>...",
		Short: "Record post ids as already forwarded",
		Long: `Marks the given post ids as seen so they are never forwarded. Useful when
moving to a new store without re-sending the current timeline.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := strconv.ParseInt(arg, 10, 64)
				if err != nil {
					return fmt.Errorf("invalid post id %q: %w", arg, err)
				}
				ids = append(ids, id)
			}
			return withApp(cmd, app.Options{}, func(ctx context.Context, a *app.App) error {
				for _, id := range ids {
					if err := a.Store().MarkSeen(ctx, id); err != nil {
						return fmt.Errorf("mark %d: %w", id, err)
					}
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "marked %d id(s)\n", len(ids))
				return err
			})
		},
	}
}
