// Package config loads and validates relay configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/weibo-relay/internal/clock/system"
	"github.com/JakeFAU/weibo-relay/internal/scheduler"
	"github.com/JakeFAU/weibo-relay/internal/storage"
)

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Source    SourceConfig    `mapstructure:"source"`
	Retry     RetryConfig     `mapstructure:"retry"`
	Scan      ScanConfig      `mapstructure:"scan"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Heartbeat HeartbeatConfig `mapstructure:"heartbeat"`
	Schedule  ScheduleConfig  `mapstructure:"schedule"`
	Store     StoreConfig     `mapstructure:"store"`
	Headless  HeadlessConfig  `mapstructure:"headless"`
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// SourceConfig names the timeline page and how it is waited on.
type SourceConfig struct {
	URL            string        `mapstructure:"url"`
	SettleDelay    time.Duration `mapstructure:"settle_delay"`
	ElementTimeout time.Duration `mapstructure:"element_timeout"`
}

// RetryConfig bounds the fetch-retry loop.
type RetryConfig struct {
	Interval   time.Duration `mapstructure:"interval"`
	MaxRetries int           `mapstructure:"max_retries"`
}

// ScanConfig tunes a scan cycle.
type ScanConfig struct {
	PaceDelay time.Duration `mapstructure:"pace_delay"`
}

// NotifyConfig configures the Discord webhooks.
type NotifyConfig struct {
	MessageWebhookURL string        `mapstructure:"message_webhook_url"`
	StatusWebhookURL  string        `mapstructure:"status_webhook_url"`
	ItemTitle         string        `mapstructure:"item_title"`
	ItemLink          string        `mapstructure:"item_link"`
	DisplayOffset     string        `mapstructure:"display_offset"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RatePerSecond     float64       `mapstructure:"rate_per_second"`
}

// HeartbeatConfig configures the status message.
type HeartbeatConfig struct {
	ContentPath string `mapstructure:"content_path"`
	Offset      string `mapstructure:"offset"`
}

// ScheduleConfig holds cron specs for the periodic tasks.
type ScheduleConfig struct {
	Scan      string        `mapstructure:"scan"`
	Heartbeat string        `mapstructure:"heartbeat"`
	Tick      time.Duration `mapstructure:"tick"`
}

// StoreConfig selects and configures the seen-item store.
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
	DSN    string `mapstructure:"dsn"`
	Table  string `mapstructure:"table"`
}

// HeadlessConfig configures the browser session.
type HeadlessConfig struct {
	ExecPath          string        `mapstructure:"exec_path"`
	UserAgent         string        `mapstructure:"user_agent"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout"`
}

// ServerConfig controls the ops HTTP server. An empty Addr disables it.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// legacyEnv maps config keys to the environment names used by earlier deployments.
var legacyEnv = map[string]string{
	"source.url":                 "WEIBO_URL",
	"notify.message_webhook_url": "MESSAGE_WEBHOOK_URL",
	"notify.status_webhook_url":  "STATUS_WEBHOOK_URL",
}

// Load builds a Config from an optional .env file, an optional config file and
// the environment. Environment variables win over file values.
func Load(path string) (Config, error) {
	return load(path, ".env")
}

func load(path, dotenvPath string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	for key, env := range legacyEnv {
		prefixed := "RELAY_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, env); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	if err := loadDotenv(dotenvPath); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// loadDotenv exports KEY=VALUE pairs from a dotenv file into the process
// environment without overriding variables that are already set.
func loadDotenv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	dv := viper.New()
	dv.SetConfigFile(path)
	dv.SetConfigType("dotenv")
	if err := dv.ReadInConfig(); err != nil {
		return fmt.Errorf("read dotenv %s: %w", path, err)
	}
	for _, key := range dv.AllKeys() {
		name := strings.ToUpper(key)
		if _, set := os.LookupEnv(name); set {
			continue
		}
		if err := os.Setenv(name, dv.GetString(key)); err != nil {
			return fmt.Errorf("export %s: %w", name, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("source.settle_delay", 10*time.Second)
	v.SetDefault("source.element_timeout", 20*time.Second)
	v.SetDefault("retry.interval", time.Minute)
	v.SetDefault("retry.max_retries", 10)
	v.SetDefault("scan.pace_delay", 5*time.Second)
	v.SetDefault("notify.item_title", "塔菲の新微博喵~")
	v.SetDefault("notify.item_link", "https://weibo.com/7618923072?refer_flag=1001030103_")
	v.SetDefault("notify.display_offset", "+08:00")
	v.SetDefault("notify.timeout", 30*time.Second)
	v.SetDefault("notify.rate_per_second", 0)
	v.SetDefault("heartbeat.content_path", "kawaii_content.json")
	v.SetDefault("heartbeat.offset", "+09:00")
	v.SetDefault("schedule.scan", "@every 10m")
	v.SetDefault("schedule.heartbeat", "@every 1h")
	v.SetDefault("schedule.tick", time.Second)
	v.SetDefault("store.driver", DriverSQLite)
	v.SetDefault("store.path", "weibo.db")
	v.SetDefault("store.table", storage.DefaultTable)
	v.SetDefault("store.dsn", "")
	v.SetDefault("headless.exec_path", "")
	v.SetDefault("headless.user_agent", "")
	v.SetDefault("headless.navigation_timeout", 60*time.Second)
	v.SetDefault("server.addr", "")
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Source.URL == "" {
		return fmt.Errorf("source.url (WEIBO_URL) is required")
	}
	if c.Notify.MessageWebhookURL == "" {
		return fmt.Errorf("notify.message_webhook_url (MESSAGE_WEBHOOK_URL) is required")
	}
	if c.Notify.StatusWebhookURL == "" {
		return fmt.Errorf("notify.status_webhook_url (STATUS_WEBHOOK_URL) is required")
	}
	if c.Source.SettleDelay < 0 || c.Scan.PaceDelay < 0 {
		return fmt.Errorf("source.settle_delay and scan.pace_delay must be >= 0")
	}
	if c.Source.ElementTimeout <= 0 {
		return fmt.Errorf("source.element_timeout must be > 0")
	}
	if c.Retry.Interval <= 0 {
		return fmt.Errorf("retry.interval must be > 0")
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries must be >= 0")
	}
	if c.Notify.Timeout <= 0 {
		return fmt.Errorf("notify.timeout must be > 0")
	}
	if c.Notify.RatePerSecond < 0 {
		return fmt.Errorf("notify.rate_per_second must be >= 0")
	}
	if _, err := system.FixedZone(c.Notify.DisplayOffset); err != nil {
		return fmt.Errorf("notify.display_offset: %w", err)
	}
	if _, err := system.FixedZone(c.Heartbeat.Offset); err != nil {
		return fmt.Errorf("heartbeat.offset: %w", err)
	}
	if _, err := scheduler.ParseSchedule(c.Schedule.Scan); err != nil {
		return fmt.Errorf("schedule.scan: %w", err)
	}
	if _, err := scheduler.ParseSchedule(c.Schedule.Heartbeat); err != nil {
		return fmt.Errorf("schedule.heartbeat: %w", err)
	}
	if c.Schedule.Tick <= 0 {
		return fmt.Errorf("schedule.tick must be > 0")
	}
	if _, err := storage.TableName(c.Store.Table); err != nil {
		return fmt.Errorf("store.table: %w", err)
	}
	switch c.Store.Driver {
	case DriverSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for the postgres driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("store.driver %q is not one of sqlite, postgres, memory", c.Store.Driver)
	}
	return nil
}
