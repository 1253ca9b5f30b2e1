package app

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

	"github.com/JakeFAU/weibo-relay/internal/config"
)

type fakeSession struct {
	html   string
	closed bool
}

func (s *fakeSession) IsHealthy(context.Context) bool { return true }
func (s *fakeSession) Reopen(context.Context) error   { return nil }
func (s *fakeSession) Render(context.Context, string, time.Duration) (string, error) {
	return s.html, nil
}
func (s *fakeSession) Close() { s.closed = true }

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return nil
}

type hookCounter struct {
	mu    sync.Mutex
	calls int
}

func (h *hookCounter) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls
}

func newHook(t *testing.T) (*httptest.Server, *hookCounter) {
	t.Helper()
	c := &hookCounter{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		c.mu.Lock()
		c.calls++
		c.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv, c
}

func testConfig(t *testing.T, messageURL, statusURL string) config.Config {
	t.Helper()
	content := filepath.Join(t.TempDir(), "kawaii_content.json")
	require.NoError(t, os.WriteFile(content,
		[]byte(`{"kawaii_emojis":["^_^"],"kawaii_texts":["hi"],"kawaii_titles":["alive"]}`), 0o600))

	return config.Config{
		Source: config.SourceConfig{URL: "https://weibo.test/timeline", SettleDelay: time.Second, ElementTimeout: time.Second},
		Retry:  config.RetryConfig{Interval: time.Minute, MaxRetries: 2},
		Scan:   config.ScanConfig{PaceDelay: 5 * time.Second},
		Notify: config.NotifyConfig{
			MessageWebhookURL: messageURL,
			StatusWebhookURL:  statusURL,
			ItemTitle:         "title",
			ItemLink:          "https://weibo.test/u/1",
			DisplayOffset:     "+08:00",
			Timeout:           5 * time.Second,
		},
		Heartbeat: config.HeartbeatConfig{ContentPath: content, Offset: "+09:00"},
		Schedule:  config.ScheduleConfig{Scan: "@every 10m", Heartbeat: "@every 1h", Tick: time.Second},
		Store:     config.StoreConfig{Driver: config.DriverMemory},
	}
}

const timeline = `<pre>{"data":{"list":[{"id":101,"text_raw":"a","created_at":"Mon Jan 02 15:04:05 +0800 2024"},` +
	`{"id":102,"text_raw":"b","created_at":"Mon Jan 02 16:04:05 +0800 2024"}]}}</pre>`

func TestApp_ScanAndBeat(t *testing.T) {
	msgSrv, msgHook := newHook(t)
	statusSrv, statusHook := newHook(t)
	session := &fakeSession{html: timeline}
	clock := &fakeClock{now: time.Unix(1700000000, 0)}

	a, err := New(context.Background(), testConfig(t, msgSrv.URL, statusSrv.URL), zap.NewNop(),
		Options{Scan: true, Heartbeat: true, Session: session, Clock: clock})
	require.NoError(t, err)

	_, _, ok := a.LastReport()
	assert.False(t, ok)

	report, err := a.RunScan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.New)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 2, msgHook.count())

	report, err = a.RunScan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.New)
	assert.Equal(t, 2, report.Skipped)
	assert.Equal(t, 2, msgHook.count())

	last, at, ok := a.LastReport()
	require.True(t, ok)
	assert.Equal(t, report, last)
	assert.Equal(t, clock.Now(), at)

	require.NoError(t, a.Beat(context.Background()))
	assert.Equal(t, 1, statusHook.count())

	n, err := a.Store().Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	a.Close()
	assert.True(t, session.closed)
}

func TestApp_DryRunDoesNotNotify(t *testing.T) {
	msgSrv, msgHook := newHook(t)
	a, err := New(context.Background(), testConfig(t, msgSrv.URL, msgSrv.URL), zap.NewNop(),
		Options{Scan: true, DryRun: true, Session: &fakeSession{html: timeline}, Clock: &fakeClock{}})
	require.NoError(t, err)
	defer a.Close()

	report, err := a.RunScan(context.Background())
	require.NoError(t, err)
	assert.True(t, report.DryRun)
	assert.Equal(t, 2, report.New)
	assert.Zero(t, msgHook.count())

	n, err := a.Store().Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestApp_StoreOnly(t *testing.T) {
	a, err := New(context.Background(), testConfig(t, "http://unused", "http://unused"), nil, Options{})
	require.NoError(t, err)
	defer a.Close()

	_, err = a.RunScan(context.Background())
	require.Error(t, err)
	require.Error(t, a.Beat(context.Background()))
	require.Nil(t, a.Beater())
}

func TestApp_SQLiteStore(t *testing.T) {
	cfg := testConfig(t, "http://unused", "http://unused")
	cfg.Store = config.StoreConfig{Driver: config.DriverSQLite, Path: filepath.Join(t.TempDir(), "weibo.db"), Table: "weibo"}

	a, err := New(context.Background(), cfg, zap.NewNop(), Options{})
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.Store().MarkSeen(context.Background(), 7))
	seen, err := a.Store().HasSeen(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestApp_MissingHeartbeatContent(t *testing.T) {
	cfg := testConfig(t, "http://unused", "http://unused")
	cfg.Heartbeat.ContentPath = filepath.Join(t.TempDir(), "absent.json")

	a, err := New(context.Background(), cfg, zap.NewNop(), Options{Heartbeat: true})
	require.Error(t, err)
	assert.Nil(t, a)
}

func TestApp_UnknownDriver(t *testing.T) {
	cfg := testConfig(t, "http://unused", "http://unused")
	cfg.Store.Driver = "redis"

	_, err := New(context.Background(), cfg, zap.NewNop(), Options{})
	require.ErrorContains(t, err, "unknown store driver")
}
