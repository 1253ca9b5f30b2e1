package headless

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/weibo-relay/internal/metrics"
	"github.com/JakeFAU/weibo-relay/internal/relay"
)

// Failure causes reported in relay.FetchOutcome.
const (
	CauseSession       = "session"
	CauseNavigate      = "navigate"
	CauseMissingRegion = "missing_region"
	CauseParse         = "parse"
)

// FetcherConfig names the source and how long it takes to settle.
type FetcherConfig struct {
	URL            string
	SettleDelay    time.Duration
	RegionSelector string
}

// Fetcher performs one render-and-extract attempt per call. It never retries.
type Fetcher struct {
	session relay.Session
	cfg     FetcherConfig
	logger  *zap.Logger
}

// NewFetcher creates a Fetcher over an open session.
func NewFetcher(session relay.Session, cfg FetcherConfig, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RegionSelector == "" {
		cfg.RegionSelector = "pre"
	}
	return &Fetcher{session: session, cfg: cfg, logger: logger}
}

// FetchOnce checks the session, recreating it when dead, then renders and parses the source.
func (f *Fetcher) FetchOnce(ctx context.Context) relay.FetchOutcome {
	if !f.session.IsHealthy(ctx) {
		f.logger.Warn("rendering session is not alive; recreating")
		err := f.session.Reopen(ctx)
		metrics.ObserveSessionReopen(err == nil)
		if err != nil {
			return f.fail(CauseSession, err)
		}
	}

	html, err := f.session.Render(ctx, f.cfg.URL, f.cfg.SettleDelay)
	if err != nil {
		return f.fail(CauseNavigate, err)
	}

	items, err := ExtractItems(html, f.cfg.RegionSelector)
	switch {
	case errors.Is(err, ErrRegionNotFound):
		return f.fail(CauseMissingRegion, err)
	case err != nil:
		return f.fail(CauseParse, err)
	}

	metrics.ObserveFetchAttempt("success")
	f.logger.Debug("timeline fetched", zap.Int("items", len(items)))
	return relay.Success(items)
}

func (f *Fetcher) fail(cause string, err error) relay.FetchOutcome {
	metrics.ObserveFetchAttempt(cause)
	f.logger.Warn("fetch attempt failed", zap.String("cause", cause), zap.Error(err))
	return relay.Failure(cause, fmt.Errorf("%w: %s", relay.ErrFetch, cause))
}
