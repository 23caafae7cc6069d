package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/thousandyehyang-archive/kbo-news-crawl/internal/domain"
	"github.com/thousandyehyang-archive/kbo-news-crawl/internal/ports"
)

// ErrNotConfigured is returned when the pipeline is run without its collaborators.
var ErrNotConfigured = errors.New("pipeline dependencies not configured")

// Clock is the time source, replaced in tests.
type Clock func() time.Time

// Options are the run policies of the pipeline.
type Options struct {
	// RecencyWindow drops articles older than now-window; zero disables the filter.
	RecencyWindow time.Duration
	// DispatchMode bounds the dispatch loop to every eligible article or the first one.
	DispatchMode domain.DispatchMode
	// ImageBaseURL turns an image reference into a public URL for notifications.
	ImageBaseURL string
	// MarkSentOnNotifyFailure treats a failed notification as delivered anyway.
	MarkSentOnNotifyFailure bool
}

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Source   ports.ArticleSource
	Store    ports.SentArticleStore
	Images   ports.ImageResolver
	Notifier ports.Notifier
	Sink     ports.ArticleSink
	Clock    Clock
	Logger   *slog.Logger
	Options  Options
}

// Pipeline fetches, merges, filters and dispatches search results. Runs on one
// instance are serialized.
type Pipeline struct {
	mu sync.Mutex

	source   ports.ArticleSource
	store    ports.SentArticleStore
	images   ports.ImageResolver
	notifier ports.Notifier
	sink     ports.ArticleSink
	clock    Clock
	logger   *slog.Logger
	opts     Options
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	opts := deps.Options
	if opts.DispatchMode == "" {
		opts.DispatchMode = domain.DispatchAll
	}

	return &Pipeline{
		source:   deps.Source,
		store:    deps.Store,
		images:   deps.Images,
		notifier: deps.Notifier,
		sink:     deps.Sink,
		clock:    clock,
		logger:   logger,
		opts:     opts,
	}
}

// Run executes one aggregation pass for query, requesting perMode results from each
// ranking mode. Only fetch and sent-store load failures abort the run; per-article
// failures are logged and skipped.
func (p *Pipeline) Run(ctx context.Context, query string, perMode int) error {
	if err := p.validateDeps(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	query = strings.TrimSpace(query)
	if query == "" {
		return fmt.Errorf("%w: empty query", domain.ErrInvalidRequest)
	}
	if perMode <= 0 {
		return fmt.Errorf("%w: result count %d", domain.ErrInvalidRequest, perMode)
	}

	log := p.logger.With("run_id", uuid.NewString(), "query", query)
	log.Info("run started", "per_mode", perMode, "dispatch_mode", p.opts.DispatchMode, "recency_window", p.opts.RecencyWindow)

	byDate, err := p.fetch(ctx, log, query, domain.RankByDate, perMode)
	if err != nil {
		return err
	}
	bySimilarity, err := p.fetch(ctx, log, query, domain.RankBySimilarity, perMode)
	if err != nil {
		return err
	}

	candidates := Merge(byDate, bySimilarity)
	candidates = FilterRecent(candidates, p.clock(), p.opts.RecencyWindow)
	SortByRecency(candidates)
	log.Info("candidates ready", "date", len(byDate), "sim", len(bySimilarity), "candidates", len(candidates))

	sent, err := p.store.Load(ctx)
	if err != nil {
		log.Error("cannot load sent records", "error", err)
		return fmt.Errorf("%w: %w", domain.ErrSentStoreLoad, err)
	}
	if sent == nil {
		sent = domain.NewSentSet()
	}

	batch := make([]domain.DispatchResult, 0, len(candidates))
	attempted := 0
	for _, article := range candidates {
		if sent.Contains(article.Link) {
			log.Info("already delivered", "title", article.Title, "link", article.Link)
			continue
		}
		if p.opts.DispatchMode == domain.DispatchLatest && attempted > 0 {
			log.Debug("single-shot mode, leaving article for a later run", "link", article.Link)
			break
		}
		attempted++

		result, err := p.dispatch(ctx, log, article)
		if err != nil {
			log.Warn("dispatch failed, article stays eligible", "title", article.Title, "link", article.Link, "error", err)
			continue
		}
		sent.Add(article.Link)
		batch = append(batch, result)
		log.Info("article delivered", "title", article.Title, "link", article.Link, "image", result.ImageRef)
	}

	if err := p.sink.Append(ctx, batch); err != nil {
		log.Error("cannot append output logs", "delivered", len(batch), "error", err)
		return fmt.Errorf("append output logs: %w", err)
	}

	log.Info("run finished", "attempted", attempted, "delivered", len(batch))
	return nil
}

func (p *Pipeline) fetch(ctx context.Context, log *slog.Logger, query string, mode domain.RankMode, count int) ([]domain.Article, error) {
	raws, err := p.source.Fetch(ctx, domain.SearchRequest{
		Query: query,
		Mode:  mode,
		Count: count,
		Start: 1,
	})
	if err != nil {
		log.Error("cannot fetch search results", "mode", mode, "error", err)
		return nil, fmt.Errorf("%w (%s): %w", domain.ErrFetch, mode, err)
	}

	articles := make([]domain.Article, 0, len(raws))
	for _, raw := range raws {
		article, err := Normalize(raw)
		if err != nil {
			log.Warn("dropping search record", "mode", mode, "title", raw.Title, "link", raw.Link, "error", err)
			continue
		}
		articles = append(articles, article)
	}
	log.Debug("fetched", "mode", mode, "records", len(raws), "articles", len(articles))
	return articles, nil
}

// dispatch resolves the image, notifies and marks the article sent. Nothing that
// happens here may escape the dispatch loop, panics included. A failed dispatch
// releases the image it downloaded; the next run fetches a fresh one.
func (p *Pipeline) dispatch(ctx context.Context, log *slog.Logger, article domain.Article) (result domain.DispatchResult, err error) {
	var imageRef string
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", domain.ErrDispatch, r)
		}
		if err != nil && imageRef != "" {
			p.images.Release(context.WithoutCancel(ctx), imageRef)
		}
	}()

	if p.images != nil {
		if ref, ok := p.images.Resolve(ctx, article.Title); ok {
			imageRef = ref
		}
	}

	notification := domain.Notification{
		Title:    article.Title,
		Link:     article.Link,
		Summary:  article.Summary,
		ImageURL: p.publicImageURL(imageRef),
	}
	if err := p.notifier.Notify(ctx, notification); err != nil {
		if !p.opts.MarkSentOnNotifyFailure {
			return domain.DispatchResult{}, fmt.Errorf("%w: notify: %w", domain.ErrDispatch, err)
		}
		log.Warn("notification failed, marking sent anyway", "title", article.Title, "link", article.Link, "error", err)
	}

	// The notification is out; recording it must survive a cancelled run.
	if err := p.store.MarkSent(context.WithoutCancel(ctx), article.Link); err != nil {
		return domain.DispatchResult{}, fmt.Errorf("%w: mark sent: %w", domain.ErrDispatch, err)
	}

	return domain.DispatchResult{Article: article, ImageRef: imageRef}, nil
}

func (p *Pipeline) publicImageURL(imageRef string) string {
	base := strings.TrimSpace(p.opts.ImageBaseURL)
	if base == "" || imageRef == "" {
		return ""
	}
	joined, err := url.JoinPath(base, imageRef)
	if err != nil {
		return strings.TrimSuffix(base, "/") + "/" + imageRef
	}
	return joined
}

func (p *Pipeline) validateDeps() error {
	switch {
	case p.source == nil,
		p.store == nil,
		p.notifier == nil,
		p.sink == nil:
		return ErrNotConfigured
	default:
		return nil
	}
}
