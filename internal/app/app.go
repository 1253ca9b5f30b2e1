// Package app initializes and holds long-lived services, acting as the
// dependency injection container for the relay commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/weibo-relay/internal/clock/system"
	"github.com/JakeFAU/weibo-relay/internal/config"
	"github.com/JakeFAU/weibo-relay/internal/fetcher/headless"
	"github.com/JakeFAU/weibo-relay/internal/heartbeat"
	"github.com/JakeFAU/weibo-relay/internal/id/uuid"
	"github.com/JakeFAU/weibo-relay/internal/notify/discord"
	"github.com/JakeFAU/weibo-relay/internal/relay"
	"github.com/JakeFAU/weibo-relay/internal/retry"
	"github.com/JakeFAU/weibo-relay/internal/storage/memory"
	"github.com/JakeFAU/weibo-relay/internal/storage/postgres"
	"github.com/JakeFAU/weibo-relay/internal/storage/sqlite"
	"github.com/JakeFAU/weibo-relay/internal/worker"
)

// Options selects which services a command needs. The store is always opened.
type Options struct {
	// Scan builds the browser session, fetcher and scan worker.
	Scan bool
	// Heartbeat loads the heartbeat content and builds the beater.
	Heartbeat bool
	// DryRun builds the worker without a notifier; it never writes to the store.
	DryRun bool
	// Session replaces the chromedp session, mainly for tests.
	Session relay.Session
	// Clock replaces the system clock and sleeper, mainly for tests.
	Clock Clock
}

// Clock is the time source shared by every component.
type Clock interface {
	relay.Clock
	relay.Sleeper
}

// App holds the shared, long-lived services.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	clock    Clock
	store    relay.SeenStore
	session  relay.Session
	notifier *discord.Client
	worker   *worker.Worker
	beater   *heartbeat.Beater

	mu         sync.Mutex
	lastReport relay.ScanReport
	lastAt     time.Time
	hasReport  bool
}

// New builds the services requested by opts. It fails fast when any of them
// cannot be initialized and releases what was already opened.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, opts Options) (a *App, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a = &App{cfg: cfg, logger: logger, clock: opts.Clock}
	if a.clock == nil {
		a.clock = system.New()
	}
	defer func() {
		if err != nil {
			a.Close()
			a = nil
		}
	}()

	if a.store, err = openStore(ctx, cfg.Store, logger.Named("store")); err != nil {
		return a, err
	}

	if opts.Scan || opts.Heartbeat {
		if a.notifier, err = newNotifier(cfg.Notify, logger.Named("notify")); err != nil {
			return a, err
		}
	}

	if opts.Heartbeat {
		if a.beater, err = newBeater(cfg.Heartbeat, a.notifier, a.clock, logger.Named("heartbeat")); err != nil {
			return a, err
		}
	}

	if opts.Scan {
		a.session = opts.Session
		if a.session == nil {
			session, err := headless.NewSession(ctx, headless.Config{
				UserAgent:         cfg.Headless.UserAgent,
				ExecPath:          cfg.Headless.ExecPath,
				ElementTimeout:    cfg.Source.ElementTimeout,
				NavigationTimeout: cfg.Headless.NavigationTimeout,
			}, logger.Named("browser"))
			if err != nil {
				return a, fmt.Errorf("start browser session: %w", err)
			}
			a.session = session
		}
		fetcher := headless.NewFetcher(a.session, headless.FetcherConfig{
			URL:         cfg.Source.URL,
			SettleDelay: cfg.Source.SettleDelay,
		}, logger.Named("fetcher"))
		controller := retry.New(fetcher, a.clock, retry.Policy{
			MaxRetries: cfg.Retry.MaxRetries,
			Interval:   cfg.Retry.Interval,
		}, logger.Named("retry"))

		var notifier relay.ItemNotifier
		if !opts.DryRun {
			notifier = a.notifier
		}
		a.worker = worker.New(controller, a.store, notifier, a.clock, a.clock, uuid.New(), worker.Config{
			PaceDelay: cfg.Scan.PaceDelay,
			DryRun:    opts.DryRun,
		}, logger.Named("worker"))
	}

	logger.Info("application services initialized",
		zap.String("store_driver", cfg.Store.Driver),
		zap.Bool("scan", opts.Scan),
		zap.Bool("heartbeat", opts.Heartbeat),
		zap.Bool("dry_run", opts.DryRun),
	)
	return a, nil
}

func openStore(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (relay.SeenStore, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		logger.Info("opening sqlite store", zap.String("path", cfg.Path))
		s, err := sqlite.Open(ctx, sqlite.Config{Path: cfg.Path, Table: cfg.Table})
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return s, nil
	case config.DriverPostgres:
		logger.Info("connecting to postgres store")
		s, err := postgres.New(ctx, postgres.Config{DSN: cfg.DSN, Table: cfg.Table})
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return s, nil
	case config.DriverMemory:
		logger.Warn("using in-memory store; seen items are lost on exit")
		return memory.NewStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver: %s", cfg.Driver)
	}
}

func newNotifier(cfg config.NotifyConfig, logger *zap.Logger) (*discord.Client, error) {
	loc, err := system.FixedZone(cfg.DisplayOffset)
	if err != nil {
		return nil, fmt.Errorf("notify display offset: %w", err)
	}
	return discord.NewClient(discord.Config{
		MessageWebhookURL: cfg.MessageWebhookURL,
		StatusWebhookURL:  cfg.StatusWebhookURL,
		Item: discord.ItemTemplate{
			Title:    cfg.ItemTitle,
			Link:     cfg.ItemLink,
			Location: loc,
		},
		Timeout:       cfg.Timeout,
		RatePerSecond: cfg.RatePerSecond,
	}, nil, logger), nil
}

func newBeater(cfg config.HeartbeatConfig, notifier heartbeat.StatusNotifier, clock relay.Clock, logger *zap.Logger) (*heartbeat.Beater, error) {
	content, err := heartbeat.LoadContent(cfg.ContentPath)
	if err != nil {
		return nil, err
	}
	loc, err := system.FixedZone(cfg.Offset)
	if err != nil {
		return nil, fmt.Errorf("heartbeat offset: %w", err)
	}
	return heartbeat.NewBeater(heartbeat.NewGenerator(content, loc, nil), notifier, clock, logger), nil
}

// Config returns the configuration the App was built from.
func (a *App) Config() config.Config { return a.cfg }

// Logger returns the root logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Clock returns the shared clock.
func (a *App) Clock() Clock { return a.clock }

// Store returns the seen-item store.
func (a *App) Store() relay.SeenStore { return a.store }

// Beater returns the heartbeat sender, or nil when not requested.
func (a *App) Beater() *heartbeat.Beater { return a.beater }

// RunScan runs one scan cycle and records its report.
func (a *App) RunScan(ctx context.Context) (relay.ScanReport, error) {
	if a.worker == nil {
		return relay.ScanReport{}, errors.New("scan services were not initialized")
	}
	report := a.worker.RunScan(ctx)
	a.mu.Lock()
	a.lastReport, a.lastAt, a.hasReport = report, a.clock.Now(), true
	a.mu.Unlock()
	return report, nil
}

// Beat sends one heartbeat.
func (a *App) Beat(ctx context.Context) error {
	if a.beater == nil {
		return errors.New("heartbeat services were not initialized")
	}
	return a.beater.Beat(ctx)
}

// LastReport returns the most recent scan report, if any.
func (a *App) LastReport() (relay.ScanReport, time.Time, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastReport, a.lastAt, a.hasReport
}

// Close releases the browser session and the store.
func (a *App) Close() {
	if a.session != nil {
		a.session.Close()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("error closing store", zap.Error(err))
		}
	}
}
