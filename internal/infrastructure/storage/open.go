package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/thousandyehyang-archive/kbo-news-crawl/internal/ports"
)

const DriverFile = "file"

// SentStore is a sent-article store that owns resources.
type SentStore interface {
	ports.SentArticleStore
	Close() error
}

// OpenSentStore selects the backend by driver name. path is used by the file and
// sqlite drivers, dsn by postgres.
func OpenSentStore(ctx context.Context, driver, path, dsn string) (SentStore, error) {
	switch driver {
	case "", DriverFile:
		return NewFileSentStore(path), nil
	case DriverSQLite:
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite dir: %w", err)
			}
		}
		return openSQL(ctx, DriverSQLite, path)
	case DriverPostgres:
		return openSQL(ctx, DriverPostgres, dsn)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}

func openSQL(ctx context.Context, driver, dsn string) (SentStore, error) {
	s, err := OpenSQLSentStore(ctx, driver, dsn)
	if err != nil {
		return nil, err
	}
	return s, nil
}
