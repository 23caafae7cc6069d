package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/thousandyehyang-archive/kbo-news-crawl/internal/ports"
)

// RunFunc triggers one aggregation run.
type RunFunc func(ctx context.Context) error

// Deps are the collaborators exposed over HTTP. Run may be nil.
type Deps struct {
	ImageDir string
	Store    ports.SentArticleStore
	Run      RunFunc
	Logger   *slog.Logger
}

// NewRouter serves downloaded images under /images so the public image base URL
// can point at this process, plus a health check and a small JSON API.
func NewRouter(deps Deps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if deps.ImageDir != "" {
		r.Static("/images", deps.ImageDir)
	}

	api := r.Group("/api")
	{
		api.GET("/sent", func(c *gin.Context) {
			if deps.Store == nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": "store not configured"})
				return
			}
			set, err := deps.Store.Load(c.Request.Context())
			if err != nil {
				logger.Error("cannot load sent records", "error", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "cannot load sent records"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"count": set.Len()})
		})

		if deps.Run != nil {
			api.POST("/run", func(c *gin.Context) {
				if err := deps.Run(c.Request.Context()); err != nil {
					logger.Error("triggered run failed", "error", err)
					c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
					return
				}
				c.JSON(http.StatusOK, gin.H{"status": "done"})
			})
		}
	}

	return r
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	logger.Info("http server stopped")
	return nil
}
