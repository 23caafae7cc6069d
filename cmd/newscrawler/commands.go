package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/thousandyehyang-archive/kbo-news-crawl/internal/app"
	"github.com/thousandyehyang-archive/kbo-news-crawl/internal/config"
	"github.com/thousandyehyang-archive/kbo-news-crawl/internal/logging"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "newscrawler",
		Short:         "Deliver new KBO news articles to Slack or Telegram",
		Long:          "newscrawler searches the Naver news API by date and by relevance, and delivers every article it has not delivered before.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd.Context(), opts)
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")

	root.AddCommand(
		newRunCmd(opts),
		newWatchCmd(opts),
		newServeCmd(opts),
		newSentCmd(opts),
		newVersionCmd(),
	)
	return root
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd.Context(), opts)
		},
	}
}

func newWatchCmd(opts *rootOptions) *cobra.Command {
	var every time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the pipeline now and then on every interval",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(ctx context.Context, a *app.Application) error {
				return a.Watch(ctx, every)
			})
		},
	}
	cmd.Flags().DurationVar(&every, "every", 0, "interval between runs (default scheduler.interval)")
	return cmd
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	var (
		addr  string
		watch bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve downloaded images and the HTTP API",
		Long: `Serve the image directory under /images so notifications can link to it,
plus /healthz, GET /api/sent and POST /api/run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(ctx context.Context, a *app.Application) error {
				return a.Serve(ctx, addr, watch)
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default server.addr)")
	cmd.Flags().BoolVar(&watch, "watch", false, "also run the pipeline on scheduler.interval")
	return cmd
}

func newSentCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sent",
		Short: "Show how many articles have been delivered",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(ctx context.Context, a *app.Application) error {
				count, err := a.SentCount(ctx)
				if err != nil {
					return fmt.Errorf("reading sent records: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Delivered articles: %d\n", count)
				return nil
			})
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "newscrawler %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

func runOnce(ctx context.Context, opts *rootOptions) error {
	return withApp(ctx, opts, func(ctx context.Context, a *app.Application) error {
		return a.Run(ctx)
	})
}

// withApp loads configuration, builds the application and runs fn until it
// returns or the process receives an interrupt.
func withApp(ctx context.Context, opts *rootOptions, fn func(context.Context, *app.Application) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(config.ResolvePath(opts.configPath))
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		return fmt.Errorf("loading config: %w", err)
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("cannot start", "error", err)
		return err
	}
	defer func() {
		if err := application.Close(); err != nil {
			logger.Warn("close application", "error", err)
		}
	}()

	if err := fn(ctx, application); err != nil {
		logger.Error("application stopped", "error", err)
		return err
	}
	return nil
}
