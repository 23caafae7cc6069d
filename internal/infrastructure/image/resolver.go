package image

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/thousandyehyang-archive/kbo-news-crawl/internal/ports"
)

const (
	maxTitleRunes = 20
	fallbackExt   = "jpg"
	maxExtLen     = 5
)

// Searcher finds a candidate image link for free text.
type Searcher interface {
	FirstImage(ctx context.Context, text string) (link string, ok bool, err error)
}

// Resolver downloads the first image found for a title into a directory.
type Resolver struct {
	searcher Searcher
	dir      string
	http     *http.Client
	now      func() time.Time
	logger   *slog.Logger
}

var _ ports.ImageResolver = (*Resolver)(nil)

// NewResolver stores images under dir.
func NewResolver(searcher Searcher, dir string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Resolver{
		searcher: searcher,
		dir:      dir,
		http:     &http.Client{Timeout: 15 * time.Second},
		now:      time.Now,
		logger:   logger,
	}
}

// Resolve never fails: any problem is logged and reported as "no image".
func (r *Resolver) Resolve(ctx context.Context, title string) (string, bool) {
	ref, err := r.resolve(ctx, title)
	if err != nil {
		r.logger.Warn("no image for article", "title", title, "error", err)
		return "", false
	}
	if ref == "" {
		r.logger.Info("image search returned nothing", "title", title)
		return "", false
	}
	return ref, true
}

// Release deletes a previously resolved image.
func (r *Resolver) Release(ctx context.Context, ref string) {
	if ref == "" || ref != filepath.Base(ref) {
		return
	}
	err := os.Remove(filepath.Join(r.dir, ref))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		r.logger.Warn("cannot remove undelivered image", "ref", ref, "error", err)
		return
	}
	r.logger.Debug("undelivered image removed", "ref", ref)
}

func (r *Resolver) resolve(ctx context.Context, title string) (string, error) {
	if r.searcher == nil {
		return "", errors.New("image search not configured")
	}
	link, ok, err := r.searcher.FirstImage(ctx, title)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}

	link = stripQuery(link)
	name := FileName(r.now(), title, link)
	if err := r.download(ctx, link, name); err != nil {
		return "", err
	}
	return name, nil
}

func (r *Resolver) download(ctx context.Context, link, name string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	resp, err := r.http.Do(req)
	if err != nil {
		return fmt.Errorf("download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("download image: status %s", resp.Status)
	}

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("create image dir: %w", err)
	}
	tmp, err := os.CreateTemp(r.dir, ".download-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close image: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(r.dir, name)); err != nil {
		return fmt.Errorf("store image: %w", err)
	}
	return nil
}

// FileName builds "<unix-millis>_<sanitized title>_image.<ext>".
func FileName(at time.Time, title, link string) string {
	return fmt.Sprintf("%d_%s_image.%s", at.UnixMilli(), Sanitize(title), extension(link))
}

// Sanitize keeps latin letters, digits and Hangul syllables, replaces every other
// rune with '_' and truncates to 20 runes.
func Sanitize(title string) string {
	var b strings.Builder
	n := 0
	for _, r := range title {
		if n == maxTitleRunes {
			break
		}
		if keepRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
		n++
	}
	return b.String()
}

func keepRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r >= '가' && r <= '힣':
		return true
	default:
		return false
	}
}

func stripQuery(link string) string {
	if i := strings.IndexAny(link, "?#"); i >= 0 {
		return link[:i]
	}
	return link
}

func extension(link string) string {
	link = stripQuery(link)
	slash := strings.LastIndex(link, "/")
	dot := strings.LastIndex(link, ".")
	if dot < 0 || dot < slash {
		return fallbackExt
	}
	ext := strings.ToLower(link[dot+1:])
	if ext == "" || utf8.RuneCountInString(ext) > maxExtLen {
		return fallbackExt
	}
	for _, r := range ext {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9') {
			return fallbackExt
		}
	}
	return ext
}
