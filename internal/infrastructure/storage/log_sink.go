package storage

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/thousandyehyang-archive/kbo-news-crawl/internal/domain"
	"github.com/thousandyehyang-archive/kbo-news-crawl/internal/ports"
)

// TimestampLayout formats the publication time in both logs.
const TimestampLayout = "2006-01-02 15:04:05"

var (
	csvHeader = []string{"timestamp", "title", "image"}

	markdownHeader = "| Timestamp           | Title                             | Image                                     |\n" +
		"|---------------------|-----------------------------------|-------------------------------------------|\n"
)

// LogSink appends delivered articles to a CSV file and a Markdown table.
type LogSink struct {
	csvPath         string
	markdownPath    string
	imageLinkPrefix string
	location        *time.Location
}

var _ ports.ArticleSink = (*LogSink)(nil)

// NewLogSink writes timestamps in loc and links images under imageLinkPrefix.
func NewLogSink(csvPath, markdownPath, imageLinkPrefix string, loc *time.Location) *LogSink {
	if loc == nil {
		loc = time.Local
	}
	return &LogSink{
		csvPath:         csvPath,
		markdownPath:    markdownPath,
		imageLinkPrefix: strings.TrimSuffix(imageLinkPrefix, "/"),
		location:        loc,
	}
}

// Append writes one row per result to both files. Headers are written only to
// new or empty files; existing content is never rewritten.
func (s *LogSink) Append(ctx context.Context, results []domain.DispatchResult) error {
	if err := s.appendCSV(results); err != nil {
		return err
	}
	return s.appendMarkdown(results)
}

func (s *LogSink) appendCSV(results []domain.DispatchResult) error {
	f, fresh, err := openAppend(s.csvPath)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if fresh {
		_ = w.Write(csvHeader)
	}
	for _, r := range results {
		_ = w.Write([]string{s.timestamp(r.Article), r.Article.Title, r.ImageRef})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", s.csvPath, err)
	}
	return f.Close()
}

func (s *LogSink) appendMarkdown(results []domain.DispatchResult) error {
	f, fresh, err := openAppend(s.markdownPath)
	if err != nil {
		return err
	}

	var b strings.Builder
	if fresh {
		b.WriteString(markdownHeader)
	}
	for _, r := range results {
		fmt.Fprintf(&b, "| %s | %s | %s |\n", s.timestamp(r.Article), markdownCell(r.Article.Title), s.imageMarkdown(r))
	}

	if _, err := f.WriteString(b.String()); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", s.markdownPath, err)
	}
	return f.Close()
}

func (s *LogSink) timestamp(a domain.Article) string {
	return a.PublishedAt.In(s.location).Format(TimestampLayout)
}

func (s *LogSink) imageMarkdown(r domain.DispatchResult) string {
	if !r.HasImage() {
		return ""
	}
	if s.imageLinkPrefix == "" {
		return fmt.Sprintf("![Image](%s)", r.ImageRef)
	}
	return fmt.Sprintf("![Image](%s/%s)", s.imageLinkPrefix, r.ImageRef)
}

// markdownCell keeps a title inside its table cell.
func markdownCell(v string) string {
	v = strings.NewReplacer("\r", " ", "\n", " ").Replace(v)
	return strings.ReplaceAll(v, "|", `\|`)
}

// openAppend opens path for appending and reports whether it is new or empty.
func openAppend(path string) (*os.File, bool, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, false, fmt.Errorf("create dir for %s: %w", path, err)
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, false, fmt.Errorf("open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, false, fmt.Errorf("stat %s: %w", path, err)
	}
	return f, info.Size() == 0, nil
}
