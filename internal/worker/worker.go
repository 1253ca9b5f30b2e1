// Package worker implements the scan pipeline: fetch, dedup, notify.
package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/weibo-relay/internal/metrics"
	"github.com/JakeFAU/weibo-relay/internal/relay"
)

// Item outcomes as reported to metrics.
const (
	outcomeNew        = "new"
	outcomeSkipped    = "skipped"
	outcomeStoreError = "store_error"
)

// Config controls Worker behavior.
type Config struct {
	// PaceDelay is the pause after each dispatched item.
	PaceDelay time.Duration
	// DryRun diffs against the store without writing or notifying.
	DryRun bool
}

// Worker runs scan cycles.
type Worker struct {
	fetcher  relay.ItemFetcher
	store    relay.SeenStore
	notifier relay.ItemNotifier
	sleeper  relay.Sleeper
	clock    relay.Clock
	idGen    relay.IDGenerator
	cfg      Config
	logger   *zap.Logger
}

// New constructs a Worker. The notifier may be nil in dry-run mode.
func New(
	fetcher relay.ItemFetcher,
	store relay.SeenStore,
	notifier relay.ItemNotifier,
	sleeper relay.Sleeper,
	clock relay.Clock,
	idGen relay.IDGenerator,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		fetcher:  fetcher,
		store:    store,
		notifier: notifier,
		sleeper:  sleeper,
		clock:    clock,
		idGen:    idGen,
		cfg:      cfg,
		logger:   logger,
	}
}

// RunScan executes one scan cycle. Nothing is returned as an error: every
// failure is logged and reflected in the report.
func (w *Worker) RunScan(ctx context.Context) relay.ScanReport {
	report := relay.ScanReport{RunID: w.newRunID(), DryRun: w.cfg.DryRun}
	logger := w.logger.With(zap.String("run_id", report.RunID))
	logger.Info("scan started", zap.Bool("dry_run", w.cfg.DryRun))

	items := w.fetcher.FetchWithRetry(ctx)
	if items == nil {
		report.FetchFailed = true
		metrics.ObserveScan("fetch_failed")
		logger.Error("scan aborted; no content fetched")
		return report
	}
	report.Fetched = len(items)

	for _, item := range items {
		if ctx.Err() != nil {
			logger.Info("scan interrupted", zap.Error(ctx.Err()))
			break
		}
		w.processItem(ctx, logger, item, &report)
	}

	metrics.ObserveScan("ok")
	if !w.cfg.DryRun {
		metrics.SetLastSuccessfulScan(w.clock.Now())
	}
	logger.Info("scan finished",
		zap.Int("fetched", report.Fetched),
		zap.Int("new", report.New),
		zap.Int("skipped", report.Skipped),
		zap.Int("store_errors", report.StoreErrors),
		zap.Int("dispatch_errors", report.DispatchErrors),
	)
	return report
}

func (w *Worker) processItem(ctx context.Context, logger *zap.Logger, item relay.Item, report *relay.ScanReport) {
	itemLogger := logger.With(zap.Int64("item_id", item.ID))

	seen, err := w.store.HasSeen(ctx, item.ID)
	if err != nil {
		report.StoreErrors++
		metrics.ObserveItem(outcomeStoreError)
		itemLogger.Error("seen lookup failed; skipping item", zap.Error(err))
		return
	}
	if seen {
		report.Skipped++
		metrics.ObserveItem(outcomeSkipped)
		return
	}

	if w.cfg.DryRun {
		report.New++
		itemLogger.Info("would notify", zap.String("created_at", item.CreatedAt), zap.String("text", item.TextRaw))
		return
	}

	if err := w.store.MarkSeen(ctx, item.ID); err != nil {
		report.StoreErrors++
		metrics.ObserveItem(outcomeStoreError)
		itemLogger.Error("recording item failed; skipping item", zap.Error(err))
		return
	}
	report.New++
	metrics.ObserveItem(outcomeNew)

	status, err := w.notifier.NotifyItem(ctx, item)
	if err != nil {
		report.DispatchErrors++
		itemLogger.Error("notification failed", zap.Int("status", status), zap.Error(err))
	} else {
		itemLogger.Info("item notified", zap.Int("status", status))
	}

	if err := w.sleeper.Sleep(ctx, w.cfg.PaceDelay); err != nil {
		itemLogger.Debug("pacing interrupted", zap.Error(err))
	}
}

func (w *Worker) newRunID() string {
	if w.idGen == nil {
		return ""
	}
	id, err := w.idGen.NewID()
	if err != nil {
		w.logger.Warn("run id generation failed", zap.Error(err))
		return ""
	}
	return id
}
