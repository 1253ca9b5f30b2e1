package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/weibo-relay/internal/app"
	"github.com/JakeFAU/weibo-relay/internal/config"
)

type staticSession struct{}

func (staticSession) IsHealthy(context.Context) bool { return true }
func (staticSession) Reopen(context.Context) error   { return nil }
func (staticSession) Render(context.Context, string, time.Duration) (string, error) {
	return `<pre>{"data":{"list":[{"id":1,"text_raw":"x","created_at":"Mon Jan 02 15:04:05 +0800 2024"}]}}</pre>`, nil
}
func (staticSession) Close() {}

// stoppingClock advances simulated time on every sleep and cancels once the
// horizon is reached.
type stoppingClock struct {
	mu      sync.Mutex
	now     time.Time
	horizon time.Time
	cancel  context.CancelFunc
}

func (c *stoppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stoppingClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.now = c.now.Add(d)
	done := !c.now.Before(c.horizon)
	c.mu.Unlock()
	if done {
		c.cancel()
	}
	return nil
}

type hits struct {
	mu sync.Mutex
	n  int
}

func (h *hits) get() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.n
}

func hook(t *testing.T) (string, *hits) {
	t.Helper()
	h := &hits{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		h.mu.Lock()
		h.n++
		h.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv.URL, h
}

func TestRun(t *testing.T) {
	msgURL, msgHits := hook(t)
	statusURL, statusHits := hook(t)
	content := filepath.Join(t.TempDir(), "kawaii_content.json")
	require.NoError(t, os.WriteFile(content,
		[]byte(`{"kawaii_emojis":["^_^"],"kawaii_texts":["hi"],"kawaii_titles":["alive"]}`), 0o600))

	cfg := config.Config{
		Source: config.SourceConfig{URL: "https://weibo.test", ElementTimeout: time.Second},
		Retry:  config.RetryConfig{Interval: time.Minute},
		Notify: config.NotifyConfig{
			MessageWebhookURL: msgURL,
			StatusWebhookURL:  statusURL,
			DisplayOffset:     "+08:00",
			Timeout:           5 * time.Second,
		},
		Heartbeat: config.HeartbeatConfig{ContentPath: content, Offset: "+09:00"},
		Schedule:  config.ScheduleConfig{Scan: "@every 10m", Heartbeat: "@every 1h", Tick: time.Second},
		Store:     config.StoreConfig{Driver: config.DriverMemory},
		Server:    config.ServerConfig{Addr: "127.0.0.1:0"},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := &stoppingClock{now: start, horizon: start.Add(90 * time.Minute), cancel: cancel}

	a, err := app.New(ctx, cfg, zap.NewNop(), app.Options{
		Scan: true, Heartbeat: true, Session: staticSession{}, Clock: clock,
	})
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, Run(ctx, a))

	assert.Equal(t, 1, msgHits.get(), "the same item is only relayed once")
	assert.Equal(t, 2, statusHits.get())

	report, _, ok := a.LastReport()
	require.True(t, ok)
	assert.Equal(t, 1, report.Skipped)
}

func TestTasksRejectsBadSchedule(t *testing.T) {
	cfg := config.Config{
		Schedule: config.ScheduleConfig{Scan: "whenever", Heartbeat: "@every 1h"},
		Store:    config.StoreConfig{Driver: config.DriverMemory},
	}
	a, err := app.New(context.Background(), cfg, zap.NewNop(), app.Options{})
	require.NoError(t, err)
	defer a.Close()

	_, err = Tasks(a)
	require.Error(t, err)
}
