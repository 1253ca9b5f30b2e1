// Package server runs the long-lived relay process: the task scheduler plus
// the optional ops HTTP server.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/weibo-relay/internal/api"
	"github.com/JakeFAU/weibo-relay/internal/app"
	"github.com/JakeFAU/weibo-relay/internal/scheduler"
)

// Task names.
const (
	TaskScan      = "scan"
	TaskHeartbeat = "heartbeat"
)

// Tasks builds the periodic scan and heartbeat tasks from the app's schedule.
func Tasks(a *app.App) ([]scheduler.Task, error) {
	cfg := a.Config().Schedule
	logger := a.Logger()

	scan, err := scheduler.NewTask(TaskScan, cfg.Scan, func(ctx context.Context) {
		if _, err := a.RunScan(ctx); err != nil {
			logger.Error("scan task failed", zap.Error(err))
		}
	})
	if err != nil {
		return nil, err
	}
	beat, err := scheduler.NewTask(TaskHeartbeat, cfg.Heartbeat, func(ctx context.Context) {
		// Beat logs its own delivery failures.
		_ = a.Beat(ctx)
	})
	if err != nil {
		return nil, err
	}
	return []scheduler.Task{scan, beat}, nil
}

// Run blocks until ctx is cancelled. The scheduler runs on the calling
// goroutine; the ops server, when configured, runs alongside it.
func Run(ctx context.Context, a *app.App) error {
	logger := a.Logger()
	cfg := a.Config()

	tasks, err := Tasks(a)
	if err != nil {
		return err
	}

	var srv *http.Server
	if cfg.Server.Addr != "" {
		ln, err := net.Listen("tcp", cfg.Server.Addr)
		if err != nil {
			return fmt.Errorf("listen %s: %w", cfg.Server.Addr, err)
		}
		srv = &http.Server{
			Handler:           api.NewServer(a.Store(), a, logger.Named("api")).Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("ops server started", zap.String("addr", ln.Addr().String()))
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("ops server error", zap.Error(err))
			}
		}()
	}

	logger.Info("relay started",
		zap.String("scan_schedule", cfg.Schedule.Scan),
		zap.String("heartbeat_schedule", cfg.Schedule.Heartbeat),
	)
	sched := scheduler.New(a.Clock(), a.Clock(), cfg.Schedule.Tick, logger.Named("scheduler"), tasks...)
	runErr := sched.Run(ctx)
	logger.Info("shutdown initiated")

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("ops server shutdown error", zap.Error(err))
		}
	}
	return runErr
}
