// Package cmd defines the CLI commands for the weibo-relay executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/weibo-relay/internal/app"
	"github.com/JakeFAU/weibo-relay/internal/config"
	"github.com/JakeFAU/weibo-relay/internal/logging"
)

// runtimeKeyType is the key for storing the loaded runtime in the context.
type runtimeKeyType struct{}

// runtime is what PersistentPreRunE prepares for every subcommand.
type runtime struct {
	cfg    config.Config
	logger *zap.Logger
}

// loadConfig and newApp are variables so tests can swap them.
var (
	loadConfig = config.Load
	newApp     = func(ctx context.Context, cfg config.Config, logger *zap.Logger, opts app.Options) (*app.App, error) {
		return app.New(ctx, cfg, logger, opts)
	}
)

func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "weibo-relay",
		Short: "Relays new Weibo posts to a Discord webhook.",
		Long: `weibo-relay polls a rendered Weibo timeline, remembers which posts it has
already forwarded, and posts every new one to a Discord webhook. A periodic
heartbeat goes to a separate status webhook.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.New(logging.Options{
				Development: cfg.Logging.Development,
				Level:       cfg.Logging.Level,
			})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			zap.ReplaceGlobals(logger)
			cmd.SetContext(context.WithValue(cmd.Context(), runtimeKeyType{}, &runtime{cfg: cfg, logger: logger}))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if rt, ok := cmd.Context().Value(runtimeKeyType{}).(*runtime); ok {
				_ = rt.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML); environment variables override it")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newScanCmd())
	cmd.AddCommand(newHeartbeatCmd())
	cmd.AddCommand(newSeenCmd())

	return cmd
}

func resolveRuntime(ctx context.Context) (*runtime, error) {
	rt, ok := ctx.Value(runtimeKeyType{}).(*runtime)
	if !ok || rt == nil {
		return nil, errors.New("runtime not initialized")
	}
	return rt, nil
}

// withApp builds the services a command needs, runs fn and releases them.
func withApp(cmd *cobra.Command, opts app.Options, fn func(ctx context.Context, a *app.App) error) error {
	rt, err := resolveRuntime(cmd.Context())
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), rt.cfg, rt.logger, opts)
	if err != nil {
		return fmt.Errorf("initialize application services: %w", err)
	}
	defer a.Close()
	return fn(cmd.Context(), a)
}

// Execute is the main entry point.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		logger, lerr := logging.New(logging.Options{})
		if lerr != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		logger.Fatal("command execution failed", zap.Error(err))
	}
}
