package usecase

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/thousandyehyang-archive/kbo-news-crawl/internal/domain"
	"github.com/thousandyehyang-archive/kbo-news-crawl/internal/markup"
)

// PubDateLayout is the timestamp grammar used by the search API.
const PubDateLayout = time.RFC1123Z

// Normalize converts a raw search record into an Article.
func Normalize(raw domain.RawArticle) (domain.Article, error) {
	link := strings.TrimSpace(raw.Link)
	if link == "" {
		return domain.Article{}, fmt.Errorf("%w: empty link", domain.ErrMalformedRecord)
	}

	publishedAt, err := time.Parse(PubDateLayout, strings.TrimSpace(raw.PubDate))
	if err != nil {
		return domain.Article{}, fmt.Errorf("%w: pubDate %q: %w", domain.ErrMalformedRecord, raw.PubDate, err)
	}

	return domain.Article{
		Title:          markup.StripTags(raw.Title),
		Link:           link,
		Summary:        markup.NormalizeEmphasis(raw.Description),
		PublishedAt:    publishedAt,
		PublishedAtRaw: raw.PubDate,
	}, nil
}

// Merge unions ranked lists keyed by link. The first occurrence of a link wins and
// the result keeps first-seen order.
func Merge(lists ...[]domain.Article) []domain.Article {
	total := 0
	for _, list := range lists {
		total += len(list)
	}

	seen := make(map[string]struct{}, total)
	merged := make([]domain.Article, 0, total)
	for _, list := range lists {
		for _, article := range list {
			if _, ok := seen[article.Key()]; ok {
				continue
			}
			seen[article.Key()] = struct{}{}
			merged = append(merged, article)
		}
	}
	return merged
}

// FilterRecent keeps articles published at or after now-window.
// A non-positive window disables the filter.
func FilterRecent(articles []domain.Article, now time.Time, window time.Duration) []domain.Article {
	if window <= 0 {
		return articles
	}

	cutoff := now.Add(-window)
	kept := make([]domain.Article, 0, len(articles))
	for _, article := range articles {
		if article.PublishedAt.Before(cutoff) {
			continue
		}
		kept = append(kept, article)
	}
	return kept
}

// SortByRecency orders articles most recent first. Articles sharing a timestamp keep
// their relative order.
func SortByRecency(articles []domain.Article) {
	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].PublishedAt.After(articles[j].PublishedAt)
	})
}
