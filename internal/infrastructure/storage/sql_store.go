package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/thousandyehyang-archive/kbo-news-crawl/internal/domain"
	"github.com/thousandyehyang-archive/kbo-news-crawl/internal/ports"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	sentTable = "sent_articles"
)

// SQLSentStore persists delivered links into a SQL table.
type SQLSentStore struct {
	db      *sql.DB
	builder sq.StatementBuilderType
	now     func() time.Time
}

var _ ports.SentArticleStore = (*SQLSentStore)(nil)

// OpenSQLSentStore connects with the given database/sql driver and creates the
// table if needed.
func OpenSQLSentStore(ctx context.Context, driver, dsn string) (*SQLSentStore, error) {
	var placeholder sq.PlaceholderFormat
	switch driver {
	case DriverPostgres:
		placeholder = sq.Dollar
	case DriverSQLite:
		placeholder = sq.Question
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}

	s := NewSQLSentStore(db, placeholder)
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLSentStore wires an existing sql.DB.
func NewSQLSentStore(db *sql.DB, placeholder sq.PlaceholderFormat) *SQLSentStore {
	return &SQLSentStore{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(placeholder),
		now:     time.Now,
	}
}

func (s *SQLSentStore) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+sentTable+` (
		link    TEXT PRIMARY KEY,
		sent_at TIMESTAMP NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("create %s: %w", sentTable, err)
	}
	return nil
}

// Load returns every delivered link.
func (s *SQLSentStore) Load(ctx context.Context) (domain.SentSet, error) {
	query, args, err := s.builder.Select("link").From(sentTable).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sent: %w", err)
	}

	set := domain.NewSentSet()
	for rows.Next() {
		var link string
		if err := rows.Scan(&link); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan link: %w", err)
		}
		set.Add(link)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return set, nil
}

// MarkSent inserts link; recording an existing link is a no-op.
func (s *SQLSentStore) MarkSent(ctx context.Context, link string) error {
	query, args, err := s.builder.
		Insert(sentTable).
		Columns("link", "sent_at").
		Values(link, s.now().UTC()).
		Suffix("ON CONFLICT (link) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert sent: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *SQLSentStore) Close() error {
	return s.db.Close()
}
