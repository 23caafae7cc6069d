package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/thousandyehyang-archive/kbo-news-crawl/internal/domain"
)

func TestFileSentStoreMissingFileIsEmpty(t *testing.T) {
	t.Parallel()

	store := NewFileSentStore(filepath.Join(t.TempDir(), "sent_articles.txt"))
	set, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if set.Len() != 0 {
		t.Fatalf("expected empty set, got %d", set.Len())
	}
}

func TestFileSentStoreRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state", "sent_articles.txt")
	store := NewFileSentStore(path)
	ctx := context.Background()

	for _, link := range []string{"https://a/1", "https://a/2", "https://a/1"} {
		if err := store.MarkSent(ctx, link); err != nil {
			t.Fatalf("MarkSent(%s) returned error: %v", link, err)
		}
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if string(raw) != "https://a/1\nhttps://a/2\nhttps://a/1\n" {
		t.Fatalf("unexpected layout %q", raw)
	}

	set, err := NewFileSentStore(path).Load(ctx)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if set.Len() != 2 || !set.Contains("https://a/1") || !set.Contains("https://a/2") {
		t.Fatalf("unexpected set: %v", set)
	}
}

func TestFileSentStoreIgnoresBlankLines(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sent_articles.txt")
	if err := os.WriteFile(path, []byte("https://a/1\n\n  \r\nhttps://a/2\r\n"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	set, err := NewFileSentStore(path).Load(context.Background())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if set.Len() != 2 || !set.Contains("https://a/2") {
		t.Fatalf("unexpected set: %v", set)
	}
}

func TestFileSentStoreUnreadable(t *testing.T) {
	t.Parallel()

	// a directory in place of the file cannot be read
	path := t.TempDir()
	if _, err := NewFileSentStore(path).Load(context.Background()); err == nil {
		t.Fatalf("expected read error")
	}
}

func TestFileSentStoreRejectsMultilineLink(t *testing.T) {
	t.Parallel()

	store := NewFileSentStore(filepath.Join(t.TempDir(), "sent.txt"))
	if err := store.MarkSent(context.Background(), "https://a/1\nhttps://a/2"); err == nil {
		t.Fatalf("expected error for a link spanning lines")
	}
}

func TestSQLiteSentStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "db", "sent.db")

	store, err := OpenSentStore(ctx, DriverSQLite, path, "")
	if err != nil {
		t.Fatalf("OpenSentStore returned error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	set, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if set.Len() != 0 {
		t.Fatalf("expected empty store, got %d", set.Len())
	}

	for _, link := range []string{"https://a/1", "https://a/2", "https://a/1"} {
		if err := store.MarkSent(ctx, link); err != nil {
			t.Fatalf("MarkSent(%s) returned error: %v", link, err)
		}
	}

	set, err = store.Load(ctx)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if set.Len() != 2 || !set.Contains("https://a/1") || !set.Contains("https://a/2") {
		t.Fatalf("unexpected set: %v", set)
	}
}

func TestOpenSentStoreUnknownDriver(t *testing.T) {
	t.Parallel()

	if _, err := OpenSentStore(context.Background(), "mongo", "", ""); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func result(title, link, ref string, at time.Time) domain.DispatchResult {
	return domain.DispatchResult{
		Article:  domain.Article{Title: title, Link: link, PublishedAt: at},
		ImageRef: ref,
	}
}

func TestLogSinkWritesHeadersOnce(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	csvPath := filepath.Join(dir, "baseball_news.csv")
	mdPath := filepath.Join(dir, "baseball_news.md")
	kst := time.FixedZone("KST", 9*60*60)
	sink := NewLogSink(csvPath, mdPath, "images/", kst)
	ctx := context.Background()

	at := time.Date(2025, time.March, 20, 5, 30, 0, 0, time.UTC)
	if err := sink.Append(ctx, []domain.DispatchResult{
		result(`KT "위즈" 연패 탈출`, "https://a/1", "1_KT_image.jpg", at),
	}); err != nil {
		t.Fatalf("first Append returned error: %v", err)
	}
	if err := sink.Append(ctx, []domain.DispatchResult{
		result("NC | 롯데 경기 취소", "https://a/2", "", at.Add(time.Hour)),
	}); err != nil {
		t.Fatalf("second Append returned error: %v", err)
	}

	csvRaw, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	wantCSV := "timestamp,title,image\n" +
		"2025-03-20 14:30:00,\"KT \"\"위즈\"\" 연패 탈출\",1_KT_image.jpg\n" +
		"2025-03-20 15:30:00,NC | 롯데 경기 취소,\n"
	if string(csvRaw) != wantCSV {
		t.Fatalf("unexpected csv:\n%s\nwant:\n%s", csvRaw, wantCSV)
	}

	mdRaw, err := os.ReadFile(mdPath)
	if err != nil {
		t.Fatalf("read markdown: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(string(mdRaw), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 2 header rows and 2 data rows, got %d:\n%s", len(lines), mdRaw)
	}
	if !strings.HasPrefix(lines[0], "| Timestamp ") || !strings.HasPrefix(lines[1], "|----") {
		t.Fatalf("unexpected header rows:\n%s", mdRaw)
	}
	if lines[2] != `| 2025-03-20 14:30:00 | KT "위즈" 연패 탈출 | ![Image](images/1_KT_image.jpg) |` {
		t.Fatalf("unexpected first row %q", lines[2])
	}
	if lines[3] != `| 2025-03-20 15:30:00 | NC \| 롯데 경기 취소 |  |` {
		t.Fatalf("unexpected second row %q", lines[3])
	}
}

func TestLogSinkEmptyBatchKeepsExistingContent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	csvPath := filepath.Join(dir, "out.csv")
	mdPath := filepath.Join(dir, "out.md")
	existing := "timestamp,title,image\n2025-01-01 00:00:00,old,\n"
	if err := os.WriteFile(csvPath, []byte(existing), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	sink := NewLogSink(csvPath, mdPath, "", time.UTC)
	if err := sink.Append(context.Background(), nil); err != nil {
		t.Fatalf("Append returned error: %v", err)
	}

	raw, _ := os.ReadFile(csvPath)
	if string(raw) != existing {
		t.Fatalf("existing csv must be untouched, got %q", raw)
	}
	md, _ := os.ReadFile(mdPath)
	if !strings.HasPrefix(string(md), "| Timestamp") {
		t.Fatalf("new markdown file must start with the header, got %q", md)
	}
}

func TestLogSinkFailsOnUnwritablePath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	sink := NewLogSink(dir, filepath.Join(dir, "out.md"), "", time.UTC)
	if err := sink.Append(context.Background(), nil); err == nil {
		t.Fatalf("expected error when the csv path is a directory")
	}
}
