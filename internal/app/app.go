package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/thousandyehyang-archive/kbo-news-crawl/internal/config"
	"github.com/thousandyehyang-archive/kbo-news-crawl/internal/domain"
	"github.com/thousandyehyang-archive/kbo-news-crawl/internal/infrastructure/httpserver"
	"github.com/thousandyehyang-archive/kbo-news-crawl/internal/infrastructure/image"
	"github.com/thousandyehyang-archive/kbo-news-crawl/internal/infrastructure/naver"
	"github.com/thousandyehyang-archive/kbo-news-crawl/internal/infrastructure/scheduler"
	"github.com/thousandyehyang-archive/kbo-news-crawl/internal/infrastructure/slack"
	"github.com/thousandyehyang-archive/kbo-news-crawl/internal/infrastructure/storage"
	"github.com/thousandyehyang-archive/kbo-news-crawl/internal/infrastructure/telegram"
	"github.com/thousandyehyang-archive/kbo-news-crawl/internal/logging"
	"github.com/thousandyehyang-archive/kbo-news-crawl/internal/ports"
	"github.com/thousandyehyang-archive/kbo-news-crawl/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	store    storage.SentStore
	pipeline *usecase.Pipeline
}

// New opens the sent store and builds the pipeline from configuration.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	store, err := storage.OpenSentStore(ctx, cfg.Storage.Driver, cfg.Storage.SentPath, cfg.Storage.DSN)
	if err != nil {
		return nil, fmt.Errorf("open sent store: %w", err)
	}

	if cfg.Search.ClientID == "" || cfg.Search.ClientSecret == "" {
		baseLogger.Warn("search credentials are empty, the API will reject requests")
	}
	client := naver.NewClient(cfg.Search.ClientID, cfg.Search.ClientSecret,
		naver.WithEndpoint(cfg.Search.Endpoint),
		naver.WithHTTPClient(&http.Client{Timeout: cfg.Search.TimeoutDuration()}),
	)

	var images ports.ImageResolver
	if cfg.Storage.ImageDir != "" {
		images = image.NewResolver(client, cfg.Storage.ImageDir, baseLogger.With("component", "image"))
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:   naver.NewNewsSource(client, baseLogger.With("component", "source")),
		Store:    store,
		Images:   images,
		Notifier: newNotifier(cfg.Notifications, baseLogger),
		Sink: storage.NewLogSink(
			cfg.Storage.CSVPath,
			cfg.Storage.MarkdownPath,
			cfg.Storage.ImageLinkPrefix,
			cfg.Scheduler.Location(),
		),
		Logger: baseLogger.With("component", "pipeline"),
		Options: usecase.Options{
			RecencyWindow:           cfg.Pipeline.RecencyWindowDuration(),
			DispatchMode:            domain.DispatchMode(cfg.Pipeline.DispatchMode),
			ImageBaseURL:            cfg.Notifications.ImageBaseURL,
			MarkSentOnNotifyFailure: cfg.Pipeline.MarkSentOnNotifyFailure,
		},
	})

	return &Application{
		cfg:      cfg,
		logger:   baseLogger,
		store:    store,
		pipeline: pipeline,
	}, nil
}

func newNotifier(cfg config.NotificationConfig, logger *slog.Logger) ports.Notifier {
	if cfg.Channel == "telegram" {
		return telegram.NewNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, telegramHeader(cfg.Telegram), logger.With("component", "notifier.telegram"))
	}
	return slack.NewNotifier(cfg.Slack.WebhookURL, cfg.Slack.Text, logger.With("component", "notifier.slack"))
}

func telegramHeader(cfg config.TelegramConfig) string {
	if cfg.Text != "" {
		return cfg.Text
	}
	return slack.DefaultText
}

// Run performs a single pipeline execution for the configured query.
func (a *Application) Run(ctx context.Context) error {
	return a.pipeline.Run(ctx, a.cfg.Search.Query, a.cfg.Search.ResultsPerMode)
}

// Watch repeats runs every interval until ctx is cancelled. A non-positive
// interval falls back to the configured one.
func (a *Application) Watch(ctx context.Context, interval time.Duration) error {
	stop, err := a.startScheduler(ctx, interval)
	if err != nil {
		return err
	}
	<-ctx.Done()
	return stop()
}

// Serve exposes images and the JSON API on addr until ctx is cancelled. With
// watch set, scheduled runs happen in the same process.
func (a *Application) Serve(ctx context.Context, addr string, watch bool) error {
	if addr == "" {
		addr = a.cfg.Server.Addr
	}

	if watch {
		stop, err := a.startScheduler(ctx, 0)
		if err != nil {
			return err
		}
		defer func() {
			if err := stop(); err != nil {
				a.logger.Warn("scheduler did not stop cleanly", "error", err)
			}
		}()
	}

	router := httpserver.NewRouter(httpserver.Deps{
		ImageDir: a.cfg.Storage.ImageDir,
		Store:    a.store,
		Run:      a.Run,
		Logger:   a.logger.With("component", "http"),
	})
	return httpserver.Serve(ctx, addr, router, a.logger.With("component", "http"))
}

func (a *Application) startScheduler(ctx context.Context, interval time.Duration) (func() error, error) {
	if interval <= 0 {
		interval = a.cfg.Scheduler.IntervalDuration()
	}

	driver := scheduler.NewIntervalScheduler(interval, a.cfg.Scheduler.Location())
	runner := usecase.NewScheduler(driver, a.pipeline, a.cfg.Search.Query, a.cfg.Search.ResultsPerMode, a.logger.With("component", "scheduler"))
	if err := runner.Start(ctx); err != nil {
		return nil, fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("scheduler started", "interval", interval)

	return func() error {
		stopCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		return runner.Stop(stopCtx)
	}, nil
}

// SentCount returns how many links have been delivered so far.
func (a *Application) SentCount(ctx context.Context) (int, error) {
	set, err := a.store.Load(ctx)
	if err != nil {
		return 0, err
	}
	return set.Len(), nil
}

// Close releases the sent store.
func (a *Application) Close() error {
	return a.store.Close()
}
