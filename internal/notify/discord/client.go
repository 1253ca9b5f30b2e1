package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/weibo-relay/internal/metrics"
	"github.com/JakeFAU/weibo-relay/internal/notify/ratelimit"
	"github.com/JakeFAU/weibo-relay/internal/relay"
)

// ErrUnexpectedStatus is returned when the webhook answers outside 2xx.
var ErrUnexpectedStatus = errors.New("unexpected webhook status")

// Config wires the client to its two webhooks.
type Config struct {
	MessageWebhookURL string
	StatusWebhookURL  string
	Item              ItemTemplate
	Timeout           time.Duration
	// RatePerSecond limits outgoing requests per webhook. Zero disables limiting.
	RatePerSecond float64
}

// Client sends item and status notifications. It never retries.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *ratelimit.Limiter
	logger  *zap.Logger
}

// NewClient constructs a Client. A nil httpClient gets one with cfg.Timeout.
func NewClient(cfg Config, httpClient *http.Client, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	limiter := ratelimit.New(ratelimit.Config{RPS: cfg.RatePerSecond, Burst: 1})
	return &Client{cfg: cfg, http: httpClient, limiter: limiter, logger: logger}
}

// NotifyItem posts item to the message webhook and returns the HTTP status.
func (c *Client) NotifyItem(ctx context.Context, item relay.Item) (int, error) {
	msg, parsed := c.cfg.Item.Build(item)
	if !parsed {
		c.logger.Warn("created_at not parseable; sending without timestamp",
			zap.Int64("item_id", item.ID),
			zap.String("created_at", item.CreatedAt),
		)
	}
	status, err := c.post(ctx, c.cfg.MessageWebhookURL, msg)
	metrics.ObserveNotification(metrics.ChannelMessage, err == nil)
	return status, err
}

// NotifyStatus posts msg to the status webhook and returns the HTTP status.
func (c *Client) NotifyStatus(ctx context.Context, msg Message) (int, error) {
	status, err := c.post(ctx, c.cfg.StatusWebhookURL, msg)
	metrics.ObserveNotification(metrics.ChannelStatus, err == nil)
	return status, err
}

func (c *Client) post(ctx context.Context, url string, msg Message) (int, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return 0, fmt.Errorf("%w: marshal message: %w", relay.ErrDispatch, err)
	}
	if err := c.limiter.Wait(ctx, url); err != nil {
		return 0, fmt.Errorf("%w: %w", relay.ErrDispatch, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("%w: create request: %w", relay.ErrDispatch, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: send request: %w", relay.ErrDispatch, err)
	}
	defer func() {
		// Drain so the keep-alive connection goes back to the pool.
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, fmt.Errorf("%w: %w: %d", relay.ErrDispatch, ErrUnexpectedStatus, resp.StatusCode)
	}
	return resp.StatusCode, nil
}

var _ relay.ItemNotifier = (*Client)(nil)
