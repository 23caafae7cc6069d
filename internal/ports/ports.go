package ports

import (
	"context"
	"time"

	"github.com/thousandyehyang-archive/kbo-news-crawl/internal/domain"
)

// ArticleSource returns one ranked page of raw search records.
type ArticleSource interface {
	Fetch(ctx context.Context, req domain.SearchRequest) ([]domain.RawArticle, error)
}

// SentArticleStore is the durable record of delivered links.
// Only one pipeline may write to a given store at a time.
type SentArticleStore interface {
	Load(ctx context.Context) (domain.SentSet, error)
	MarkSent(ctx context.Context, link string) error
}

// ImageResolver materializes one representative image for a title.
// ok is false when no image could be produced; that is not an error.
// Release discards a resolved image whose article was not delivered.
type ImageResolver interface {
	Resolve(ctx context.Context, title string) (ref string, ok bool)
	Release(ctx context.Context, ref string)
}

// Notifier announces a delivered article on an outbound channel.
// A missing destination is a no-op, not an error.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}

// ArticleSink appends delivered articles to the durable output logs.
type ArticleSink interface {
	Append(ctx context.Context, results []domain.DispatchResult) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
