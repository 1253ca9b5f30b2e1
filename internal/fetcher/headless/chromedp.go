// Package headless renders the source page in headless Chrome and extracts the timeline.
package headless

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// ErrSessionClosed is returned when rendering is attempted on a closed session.
var ErrSessionClosed = errors.New("rendering session closed")

// Config controls the browser session.
type Config struct {
	UserAgent string
	// ExecPath points at a Chrome binary; empty lets chromedp search the usual locations.
	ExecPath string
	// RegionSelector is the element waited for after the settle delay.
	RegionSelector string
	// ElementTimeout bounds the wait for RegionSelector.
	ElementTimeout time.Duration
	// NavigationTimeout bounds a whole render; zero leaves it to the transport.
	NavigationTimeout time.Duration
	HealthTimeout     time.Duration
}

// Session owns one headless Chrome process and hands out a fresh tab per render.
type Session struct {
	cfg    Config
	logger *zap.Logger

	mu            sync.Mutex
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// NewSession launches Chrome and warms the browser up.
func NewSession(ctx context.Context, cfg Config, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RegionSelector == "" {
		cfg.RegionSelector = "pre"
	}
	s := &Session{cfg: cfg, logger: logger}
	if err := s.open(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) open(ctx context.Context) error {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	if s.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(s.cfg.ExecPath))
	}
	if s.cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(s.cfg.UserAgent))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	stop := forwardCancel(ctx, browserCancel)
	err := chromedp.Run(browserCtx)
	stop()
	if err != nil {
		browserCancel()
		allocCancel()
		return fmt.Errorf("chromedp warmup: %w", err)
	}

	s.mu.Lock()
	s.allocCancel = allocCancel
	s.browserCtx = browserCtx
	s.browserCancel = browserCancel
	s.mu.Unlock()
	return nil
}

// IsHealthy evaluates a trivial expression in the browser to confirm it still answers.
func (s *Session) IsHealthy(ctx context.Context) bool {
	browserCtx := s.browser()
	if browserCtx == nil || browserCtx.Err() != nil {
		return false
	}
	hctx, cancel := context.WithTimeout(browserCtx, s.healthTimeout())
	defer cancel()
	stop := forwardCancel(ctx, cancel)
	defer stop()

	var two int
	if err := chromedp.Run(hctx, chromedp.Evaluate(`1+1`, &two)); err != nil {
		s.logger.Warn("rendering session health check failed", zap.Error(err))
		return false
	}
	return two == 2
}

// Reopen tears the browser down and starts a new one.
func (s *Session) Reopen(ctx context.Context) error {
	s.Close()
	if err := s.open(ctx); err != nil {
		return fmt.Errorf("reopen session: %w", err)
	}
	s.logger.Info("rendering session recreated")
	return nil
}

// Close cancels the browser and allocator contexts, terminating Chrome.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.browserCancel != nil {
		s.browserCancel()
	}
	if s.allocCancel != nil {
		s.allocCancel()
	}
	s.browserCtx = nil
	s.browserCancel = nil
	s.allocCancel = nil
}

// Render opens a tab, navigates to rawURL, waits settle plus the region, and returns the DOM.
func (s *Session) Render(ctx context.Context, rawURL string, settle time.Duration) (string, error) {
	browserCtx := s.browser()
	if browserCtx == nil {
		return "", ErrSessionClosed
	}

	tabCtx, cancelTab := chromedp.NewContext(browserCtx)
	defer cancelTab()

	taskCtx, cancelTask := tabCtx, context.CancelFunc(func() {})
	if s.cfg.NavigationTimeout > 0 {
		taskCtx, cancelTask = context.WithTimeout(tabCtx, s.cfg.NavigationTimeout+settle)
	}
	defer cancelTask()

	stopForward := forwardCancel(ctx, cancelTask)
	defer stopForward()

	var html string
	tasks := chromedp.Tasks{
		s.networkSetupAction(),
		chromedp.Navigate(rawURL),
		chromedp.Sleep(settle),
		s.waitRegionAction(),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	}
	if err := chromedp.Run(taskCtx, tasks); err != nil {
		return "", fmt.Errorf("chromedp run: %w", err)
	}
	return html, nil
}

func (s *Session) networkSetupAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if s.cfg.UserAgent != "" {
			if err := emulation.SetUserAgentOverride(s.cfg.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		return nil
	})
}

// waitRegionAction waits for the region selector but lets a missing region
// through, so extraction can report it as such.
func (s *Session) waitRegionAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		wctx, cancel := context.WithTimeout(ctx, s.elementTimeout())
		defer cancel()
		err := chromedp.WaitReady(s.cfg.RegionSelector, chromedp.ByQuery).Do(wctx)
		if err != nil && ctx.Err() == nil {
			s.logger.Debug("region wait expired", zap.String("selector", s.cfg.RegionSelector), zap.Error(err))
			return nil
		}
		if err != nil {
			return fmt.Errorf("wait region: %w", err)
		}
		return nil
	})
}

func (s *Session) browser() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.browserCtx
}

func (s *Session) elementTimeout() time.Duration {
	if s.cfg.ElementTimeout > 0 {
		return s.cfg.ElementTimeout
	}
	return 20 * time.Second
}

func (s *Session) healthTimeout() time.Duration {
	if s.cfg.HealthTimeout > 0 {
		return s.cfg.HealthTimeout
	}
	return 5 * time.Second
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
