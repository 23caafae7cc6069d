package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

const (
	appName            = "kbo-news-crawl"
	defaultTimezone    = "Asia/Seoul"
	defaultQuery       = "국내 야구 스포츠"
	configPathEnv      = "NEWS_CRAWLER_CONFIG"
	keywordEnv         = "KEYWORD"
	naverClientIDEnv   = "NAVER_CLIENT_ID"
	naverSecretEnv     = "NAVER_CLIENT_SECRET"
	slackWebhookEnv    = "SLACK_WEBHOOK_URL"
	slackImageBaseEnv  = "SLACK_IMAGE_BASE_URL"
	telegramTokenEnv   = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv  = "TELEGRAM_CHAT_ID"
	databaseDSNEnv     = "DATABASE_DSN"
	logLevelEnv        = "LOG_LEVEL"
	channelSlack       = "slack"
	channelTelegram    = "telegram"
	dispatchModeAll    = "all"
	dispatchModeLatest = "latest"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Search        SearchConfig       `yaml:"search"`
	Pipeline      PipelineConfig     `yaml:"pipeline"`
	Storage       StorageConfig      `yaml:"storage"`
	Notifications NotificationConfig `yaml:"notifications"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Server        ServerConfig       `yaml:"server"`
}

// LoggingConfig selects level and handler format ("text" or "json").
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SearchConfig describes the upstream search API.
type SearchConfig struct {
	Query          string `yaml:"query"`
	ResultsPerMode int    `yaml:"resultsPerMode"`
	Endpoint       string `yaml:"endpoint"`
	Timeout        string `yaml:"timeout"`
	ClientID       string `yaml:"clientId"`
	ClientSecret   string `yaml:"clientSecret"`
}

// TimeoutDuration returns the HTTP timeout for search calls.
func (s SearchConfig) TimeoutDuration() time.Duration {
	d, err := ParseDuration(s.Timeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// PipelineConfig holds the run policies.
type PipelineConfig struct {
	RecencyWindow           string `yaml:"recencyWindow"`
	DispatchMode            string `yaml:"dispatchMode"`
	MarkSentOnNotifyFailure bool   `yaml:"markSentOnNotifyFailure"`
}

// RecencyWindowDuration returns the filter window; zero disables the filter.
func (p PipelineConfig) RecencyWindowDuration() time.Duration {
	d, _ := ParseDuration(p.RecencyWindow)
	return d
}

// StorageConfig locates the sent records, output logs and images.
type StorageConfig struct {
	Driver          string `yaml:"driver"`
	SentPath        string `yaml:"sentPath"`
	DSN             string `yaml:"dsn"`
	CSVPath         string `yaml:"csvPath"`
	MarkdownPath    string `yaml:"markdownPath"`
	ImageDir        string `yaml:"imageDir"`
	ImageLinkPrefix string `yaml:"imageLinkPrefix"`
}

// NotificationConfig encapsulates outbound channels.
type NotificationConfig struct {
	Channel      string         `yaml:"channel"`
	ImageBaseURL string         `yaml:"imageBaseUrl"`
	Slack        SlackConfig    `yaml:"slack"`
	Telegram     TelegramConfig `yaml:"telegram"`
}

// SlackConfig wires the incoming webhook.
type SlackConfig struct {
	WebhookURL string `yaml:"webhookUrl"`
	Text       string `yaml:"text"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
	// Text heads every message; empty means the Slack default header.
	Text string `yaml:"text"`
}

// SchedulerConfig defines how often watch mode runs.
type SchedulerConfig struct {
	Interval string         `yaml:"interval"`
	Timezone string         `yaml:"timezone"`
	location *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, err := time.LoadLocation(defaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IntervalDuration returns the time between watch runs.
func (s SchedulerConfig) IntervalDuration() time.Duration {
	d, err := ParseDuration(s.Interval)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// ServerConfig is the listen address of the HTTP surface.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// ResolvePath picks the configuration file: explicit flag, then the environment,
// then the XDG config search path. An empty result means defaults only.
func ResolvePath(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	if path := os.Getenv(configPathEnv); path != "" {
		return path
	}
	if path, err := xdg.SearchConfigFile(appName + "/config.yaml"); err == nil {
		return path
	}
	return ""
}

// Load reads YAML configuration (if path is set) over the defaults and applies
// environment overrides.
func Load(path string) (Config, error) {
	cfg := defaultConfig()

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return Config{}, fmt.Errorf("config file %s not found", path)
		case err != nil:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	if err := cfg.bindTimezone(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate rejects values the application cannot run with.
func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Search.Query) == "" {
		errs = append(errs, errors.New("search.query must not be empty"))
	}
	if c.Search.ResultsPerMode <= 0 {
		errs = append(errs, fmt.Errorf("search.resultsPerMode must be positive, got %d", c.Search.ResultsPerMode))
	}
	if d, err := ParseDuration(c.Pipeline.RecencyWindow); err != nil || d < 0 {
		errs = append(errs, fmt.Errorf("pipeline.recencyWindow %q is not a valid duration", c.Pipeline.RecencyWindow))
	}
	switch c.Pipeline.DispatchMode {
	case dispatchModeAll, dispatchModeLatest:
	default:
		errs = append(errs, fmt.Errorf("pipeline.dispatchMode must be %q or %q, got %q", dispatchModeAll, dispatchModeLatest, c.Pipeline.DispatchMode))
	}
	switch c.Storage.Driver {
	case "file", "sqlite":
		if c.Storage.SentPath == "" {
			errs = append(errs, errors.New("storage.sentPath must not be empty"))
		}
	case "postgres":
		if c.Storage.DSN == "" {
			errs = append(errs, errors.New("storage.dsn is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage.driver %q", c.Storage.Driver))
	}
	switch c.Notifications.Channel {
	case channelSlack, channelTelegram:
	default:
		errs = append(errs, fmt.Errorf("unknown notifications.channel %q", c.Notifications.Channel))
	}

	return errors.Join(errs...)
}

func (c *Config) applyEnvOverrides() {
	overrides := []struct {
		env    string
		target *string
	}{
		{keywordEnv, &c.Search.Query},
		{naverClientIDEnv, &c.Search.ClientID},
		{naverSecretEnv, &c.Search.ClientSecret},
		{slackWebhookEnv, &c.Notifications.Slack.WebhookURL},
		{slackImageBaseEnv, &c.Notifications.ImageBaseURL},
		{telegramTokenEnv, &c.Notifications.Telegram.BotToken},
		{telegramChatIDEnv, &c.Notifications.Telegram.ChatID},
		{databaseDSNEnv, &c.Storage.DSN},
		{logLevelEnv, &c.Logging.Level},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.target = v
		}
	}
}

func (c *Config) bindTimezone() error {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return fmt.Errorf("unknown scheduler.timezone %q: %w", tz, err)
	}
	c.Scheduler.location = loc
	return nil
}

// ParseDuration accepts time.ParseDuration syntax plus whole days ("3d").
// An empty string is zero.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if len(s) > 1 && s[len(s)-1] == 'd' {
		var days int
		if _, err := fmt.Sscanf(s, "%dd", &days); err == nil {
			return time.Duration(days) * 24 * time.Hour, nil
		}
	}
	return time.ParseDuration(s)
}

func defaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Search: SearchConfig{
			Query:          defaultQuery,
			ResultsPerMode: 10,
			Endpoint:       "https://openapi.naver.com/v1/search",
			Timeout:        "10s",
		},
		Pipeline: PipelineConfig{
			RecencyWindow: "72h",
			DispatchMode:  dispatchModeAll,
		},
		Storage: StorageConfig{
			Driver:          "file",
			SentPath:        "sent_articles.txt",
			CSVPath:         "baseball_news.csv",
			MarkdownPath:    "baseball_news.md",
			ImageDir:        "images",
			ImageLinkPrefix: "images",
		},
		Notifications: NotificationConfig{Channel: channelSlack},
		Scheduler:     SchedulerConfig{Interval: "1h", Timezone: defaultTimezone},
		Server:        ServerConfig{Addr: ":8080"},
	}
}
