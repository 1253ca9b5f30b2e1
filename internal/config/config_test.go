package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("WEIBO_URL", "https://weibo.test/ajax/statuses/mymblog?uid=1")
	t.Setenv("MESSAGE_WEBHOOK_URL", "https://discord.test/api/webhooks/1/msg")
	t.Setenv("STATUS_WEBHOOK_URL", "https://discord.test/api/webhooks/1/status")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := load("", "")
	require.NoError(t, err)

	assert.Equal(t, "https://weibo.test/ajax/statuses/mymblog?uid=1", cfg.Source.URL)
	assert.Equal(t, 10*time.Second, cfg.Source.SettleDelay)
	assert.Equal(t, 20*time.Second, cfg.Source.ElementTimeout)
	assert.Equal(t, time.Minute, cfg.Retry.Interval)
	assert.Equal(t, 10, cfg.Retry.MaxRetries)
	assert.Equal(t, 5*time.Second, cfg.Scan.PaceDelay)
	assert.Equal(t, "塔菲の新微博喵~", cfg.Notify.ItemTitle)
	assert.Equal(t, "+08:00", cfg.Notify.DisplayOffset)
	assert.Equal(t, 30*time.Second, cfg.Notify.Timeout)
	assert.Equal(t, "kawaii_content.json", cfg.Heartbeat.ContentPath)
	assert.Equal(t, "+09:00", cfg.Heartbeat.Offset)
	assert.Equal(t, "@every 10m", cfg.Schedule.Scan)
	assert.Equal(t, "@every 1h", cfg.Schedule.Heartbeat)
	assert.Equal(t, time.Second, cfg.Schedule.Tick)
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "weibo.db", cfg.Store.Path)
	assert.Equal(t, "weibo", cfg.Store.Table)
	assert.Empty(t, cfg.Server.Addr)
}

func TestLoadWithFileOverrides(t *testing.T) {
	setRequiredEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
source:
  settle_delay: 3s
retry:
  interval: 15s
  max_retries: 2
notify:
  item_title: custom
  rate_per_second: 0.5
schedule:
  scan: "*/5 * * * *"
store:
  driver: postgres
  dsn: postgres://relay@localhost/relay
server:
  addr: ":9090"
logging:
  development: true
`
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o600))

	cfg, err := load(path, "")
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, cfg.Source.SettleDelay)
	assert.Equal(t, 15*time.Second, cfg.Retry.Interval)
	assert.Equal(t, 2, cfg.Retry.MaxRetries)
	assert.Equal(t, "custom", cfg.Notify.ItemTitle)
	assert.InDelta(t, 0.5, cfg.Notify.RatePerSecond, 1e-9)
	assert.Equal(t, "*/5 * * * *", cfg.Schedule.Scan)
	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.True(t, cfg.Logging.Development)
}

func TestLoadPrefixedEnvWinsOverLegacy(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("RELAY_SOURCE_URL", "https://weibo.test/prefixed")
	t.Setenv("RELAY_SCAN_PACE_DELAY", "1s")

	cfg, err := load("", "")
	require.NoError(t, err)
	assert.Equal(t, "https://weibo.test/prefixed", cfg.Source.URL)
	assert.Equal(t, time.Second, cfg.Scan.PaceDelay)
}

func TestLoadEnvOnlyKeys(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("RELAY_STORE_DRIVER", "postgres")
	t.Setenv("RELAY_STORE_DSN", "postgres://u:p@db/relay")
	t.Setenv("RELAY_HEADLESS_EXEC_PATH", "/usr/bin/chromium")
	t.Setenv("RELAY_HEADLESS_USER_AGENT", "relay-test/1.0")

	cfg, err := load("", "")
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, "postgres://u:p@db/relay", cfg.Store.DSN)
	assert.Equal(t, "/usr/bin/chromium", cfg.Headless.ExecPath)
	assert.Equal(t, "relay-test/1.0", cfg.Headless.UserAgent)
}

func TestLoadReadsDotenv(t *testing.T) {
	dir := t.TempDir()
	dotenv := filepath.Join(dir, ".env")
	body := "WEIBO_URL=https://weibo.test/from-dotenv\n" +
		"MESSAGE_WEBHOOK_URL=https://discord.test/msg\n" +
		"STATUS_WEBHOOK_URL=https://discord.test/status\n"
	require.NoError(t, os.WriteFile(dotenv, []byte(body), 0o600))

	// Registered with t.Setenv so the exported values are restored afterwards.
	t.Setenv("WEIBO_URL", "")
	t.Setenv("MESSAGE_WEBHOOK_URL", "")
	t.Setenv("STATUS_WEBHOOK_URL", "")
	require.NoError(t, os.Unsetenv("WEIBO_URL"))
	require.NoError(t, os.Unsetenv("MESSAGE_WEBHOOK_URL"))
	require.NoError(t, os.Unsetenv("STATUS_WEBHOOK_URL"))

	cfg, err := load("", dotenv)
	require.NoError(t, err)
	assert.Equal(t, "https://weibo.test/from-dotenv", cfg.Source.URL)
	assert.Equal(t, "https://discord.test/status", cfg.Notify.StatusWebhookURL)
}

func TestLoadDotenvDoesNotOverrideEnvironment(t *testing.T) {
	setRequiredEnv(t)
	dir := t.TempDir()
	dotenv := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(dotenv, []byte("WEIBO_URL=https://weibo.test/ignored\n"), 0o600))

	cfg, err := load("", dotenv)
	require.NoError(t, err)
	assert.Equal(t, "https://weibo.test/ajax/statuses/mymblog?uid=1", cfg.Source.URL)
}

func TestLoadMissingRequired(t *testing.T) {
	t.Setenv("WEIBO_URL", "")
	t.Setenv("MESSAGE_WEBHOOK_URL", "https://discord.test/msg")
	t.Setenv("STATUS_WEBHOOK_URL", "https://discord.test/status")

	_, err := load("", "")
	require.ErrorContains(t, err, "WEIBO_URL")
}

func TestValidate(t *testing.T) {
	setRequiredEnv(t)
	base, err := load("", "")
	require.NoError(t, err)

	cases := map[string]func(*Config){
		"status webhook":  func(c *Config) { c.Notify.StatusWebhookURL = "" },
		"retry interval":  func(c *Config) { c.Retry.Interval = 0 },
		"negative retry":  func(c *Config) { c.Retry.MaxRetries = -1 },
		"display offset":  func(c *Config) { c.Notify.DisplayOffset = "Asia/Shanghai" },
		"heartbeat zone":  func(c *Config) { c.Heartbeat.Offset = "+25:00" },
		"scan schedule":   func(c *Config) { c.Schedule.Scan = "sometimes" },
		"unknown driver":  func(c *Config) { c.Store.Driver = "redis" },
		"postgres no dsn": func(c *Config) { c.Store.Driver = DriverPostgres },
		"bad table":       func(c *Config) { c.Store.Table = "weibo; drop table x" },
		"negative rate":   func(c *Config) { c.Notify.RatePerSecond = -1 },
		"zero tick":       func(c *Config) { c.Schedule.Tick = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := base
			mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}

	memory := base
	memory.Store.Driver = DriverMemory
	require.NoError(t, memory.Validate())
}
