package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/thousandyehyang-archive/kbo-news-crawl/internal/domain"
)

func TestNotifySendsMessage(t *testing.T) {
	t.Parallel()

	var path, chatID, text, mode string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		path = r.URL.Path
		chatID, text, mode = r.PostForm.Get("chat_id"), r.PostForm.Get("text"), r.PostForm.Get("parse_mode")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(srv.Close)

	n := NewNotifier("123:abc", "-100", "새 뉴스", nil)
	n.apiURL = srv.URL

	err := n.Notify(context.Background(), domain.Notification{
		Title:   "[단독] 한화 영입",
		Link:    "https://n.news.naver.com/article/3",
		Summary: "**한화**가 영입했다",
	})
	if err != nil {
		t.Fatalf("Notify returned error: %v", err)
	}

	if path != "/bot123:abc/sendMessage" {
		t.Fatalf("unexpected path %q", path)
	}
	if chatID != "-100" || mode != "HTML" {
		t.Fatalf("unexpected form: chat_id=%q parse_mode=%q", chatID, mode)
	}
	want := "새 뉴스\n\n<a href=\"https://n.news.naver.com/article/3\">[단독] 한화 영입</a>\n<b>한화</b>가 영입했다"
	if text != want {
		t.Fatalf("unexpected text:\n%s\nwant:\n%s", text, want)
	}
}

func TestNotifyEscapesMarkupInArticleText(t *testing.T) {
	t.Parallel()

	var text string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		text = r.PostForm.Get("text")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(srv.Close)

	n := NewNotifier("token", "chat", "KBO <속보>", nil)
	n.apiURL = srv.URL

	err := n.Notify(context.Background(), domain.Notification{
		Title:    "LG_트윈스 3*4 <승리> & 개막",
		Link:     "https://n.news.naver.com/article/1?a=1&b=2",
		Summary:  "3*4 점수, **LG** 승리 `기록`",
		ImageURL: "https://img.example/images/1700000000000_KBO_한화_영입_image.jpg",
	})
	if err != nil {
		t.Fatalf("Notify returned error: %v", err)
	}

	want := "KBO &lt;속보&gt;\n\n" +
		"<a href=\"https://n.news.naver.com/article/1?a=1&amp;b=2\">LG_트윈스 3*4 &lt;승리&gt; &amp; 개막</a>\n" +
		"3*4 점수, <b>LG</b> 승리 `기록`\n" +
		"https://img.example/images/1700000000000_KBO_한화_영입_image.jpg"
	if text != want {
		t.Fatalf("unexpected text:\n%s\nwant:\n%s", text, want)
	}
}

func TestBoldSummary(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{in: "**a** and **b**", want: "<b>a</b> and <b>b</b>"},
		{in: "no markers", want: "no markers"},
		{in: "dangling **marker", want: "dangling **marker"},
		{in: "**a** then **", want: "**a** then **"},
	}
	for _, tt := range tests {
		if got := boldSummary(tt.in); got != tt.want {
			t.Fatalf("boldSummary(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNotifyReportsAPIFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	n := NewNotifier("token", "chat", "", nil)
	n.apiURL = srv.URL
	if err := n.Notify(context.Background(), domain.Notification{Title: "t", Link: "l"}); err == nil {
		t.Fatalf("expected error for 403")
	}
}

func TestNotifyWithoutCredentialsIsNoop(t *testing.T) {
	t.Parallel()

	n := NewNotifier("", "chat", "", nil)
	if err := n.Notify(context.Background(), domain.Notification{Title: "t", Link: "l"}); err != nil {
		t.Fatalf("missing token must not be an error, got %v", err)
	}
}
