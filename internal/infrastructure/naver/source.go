package naver

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/thousandyehyang-archive/kbo-news-crawl/internal/domain"
	"github.com/thousandyehyang-archive/kbo-news-crawl/internal/ports"
)

// NewsSource adapts the news resource to the article source port.
type NewsSource struct {
	client *Client
	logger *slog.Logger
}

var _ ports.ArticleSource = (*NewsSource)(nil)

// NewNewsSource wraps a client.
func NewNewsSource(client *Client, logger *slog.Logger) *NewsSource {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &NewsSource{client: client, logger: logger}
}

// Fetch returns one ranked page of news records.
func (s *NewsSource) Fetch(ctx context.Context, req domain.SearchRequest) ([]domain.RawArticle, error) {
	resp, err := s.client.Search(ctx, Query{
		Resource: ResourceNews,
		Text:     req.Query,
		Display:  req.Count,
		Start:    req.Start,
		Sort:     string(req.Mode),
	})
	if err != nil {
		return nil, fmt.Errorf("search news: %w", err)
	}

	out := make([]domain.RawArticle, 0, len(resp.Items))
	for _, item := range resp.Items {
		out = append(out, domain.RawArticle{
			Title:        item.Title,
			Link:         item.Link,
			OriginalLink: item.OriginalLink,
			Description:  item.Description,
			PubDate:      item.PubDate,
		})
	}
	s.logger.Debug("news page fetched", "mode", req.Mode, "total", resp.Total, "items", len(out))
	return out, nil
}

// FirstImage searches the image resource and returns the link of the best match.
// ok is false when the search returned nothing.
func (c *Client) FirstImage(ctx context.Context, text string) (link string, ok bool, err error) {
	resp, err := c.Search(ctx, Query{
		Resource: ResourceImage,
		Text:     text,
		Display:  1,
		Start:    1,
		Sort:     string(domain.RankBySimilarity),
	})
	if err != nil {
		return "", false, fmt.Errorf("search image: %w", err)
	}
	for _, item := range resp.Items {
		if link := strings.TrimSpace(item.Link); link != "" {
			return link, true, nil
		}
	}
	return "", false, nil
}
