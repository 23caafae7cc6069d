package storage

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/thousandyehyang-archive/kbo-news-crawl/internal/domain"
	"github.com/thousandyehyang-archive/kbo-news-crawl/internal/ports"
)

// FileSentStore keeps delivered links in a newline-delimited append-only file.
type FileSentStore struct {
	path string
}

var _ ports.SentArticleStore = (*FileSentStore)(nil)

// NewFileSentStore binds the store to path. The file is created on first write.
func NewFileSentStore(path string) *FileSentStore {
	return &FileSentStore{path: path}
}

// Load reads every recorded link. A missing file is an empty set.
func (s *FileSentStore) Load(ctx context.Context) (domain.SentSet, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.NewSentSet(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open sent records: %w", err)
	}
	defer f.Close()

	set := domain.NewSentSet()
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		set.Add(strings.TrimSpace(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read sent records: %w", err)
	}
	return set, nil
}

// MarkSent appends link and syncs the file before returning.
func (s *FileSentStore) MarkSent(ctx context.Context, link string) error {
	link = strings.TrimSpace(link)
	if link == "" || strings.ContainsAny(link, "\r\n") {
		return fmt.Errorf("mark sent: invalid link %q", link)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create sent records dir: %w", err)
		}
	}
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open sent records: %w", err)
	}
	if _, err := f.WriteString(link + "\n"); err != nil {
		_ = f.Close()
		return fmt.Errorf("append sent record: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sync sent records: %w", err)
	}
	return f.Close()
}

// Close is a no-op; the file is opened per operation.
func (s *FileSentStore) Close() error {
	return nil
}
