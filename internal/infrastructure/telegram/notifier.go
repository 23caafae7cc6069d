package telegram

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/thousandyehyang-archive/kbo-news-crawl/internal/domain"
	"github.com/thousandyehyang-archive/kbo-news-crawl/internal/ports"
)

const defaultAPIURL = "https://api.telegram.org"

// Notifier sends articles to a Telegram chat via bot API.
type Notifier struct {
	botToken string
	chatID   string
	header   string
	apiURL   string
	client   *http.Client
	logger   *slog.Logger
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier.
func NewNotifier(botToken, chatID, header string, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Notifier{
		botToken: strings.TrimSpace(botToken),
		chatID:   strings.TrimSpace(chatID),
		header:   header,
		apiURL:   defaultAPIURL,
		client:   &http.Client{Timeout: 5 * time.Second},
		logger:   logger,
	}
}

// Notify posts an HTML formatted message to Telegram.
func (n *Notifier) Notify(ctx context.Context, msg domain.Notification) error {
	if n.botToken == "" || n.chatID == "" {
		n.logger.Warn("telegram notifier not configured, skipping notification", "title", msg.Title)
		return nil
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.apiURL, n.botToken)
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", formatMessage(n.header, msg))
	form.Set("parse_mode", "HTML")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram error: %s", resp.Status)
	}

	return nil
}

// formatMessage renders header, linked title, summary and image link. Every piece
// of text is HTML escaped; only the tags built here reach Telegram's parser.
func formatMessage(header string, msg domain.Notification) string {
	var b strings.Builder
	if header != "" {
		b.WriteString(html.EscapeString(header))
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, `<a href="%s">%s</a>`, html.EscapeString(msg.Link), html.EscapeString(msg.Title))
	if msg.Summary != "" {
		b.WriteString("\n")
		b.WriteString(boldSummary(html.EscapeString(msg.Summary)))
	}
	if msg.ImageURL != "" {
		b.WriteString("\n")
		b.WriteString(html.EscapeString(msg.ImageURL))
	}
	return b.String()
}

// boldSummary turns balanced **emphasis** markers into <b> tags. An unpaired
// marker is left as text.
func boldSummary(s string) string {
	parts := strings.Split(s, "**")
	if len(parts)%2 == 0 {
		return s
	}
	var b strings.Builder
	for i, part := range parts {
		if i%2 == 1 {
			b.WriteString("<b>" + part + "</b>")
			continue
		}
		b.WriteString(part)
	}
	return b.String()
}
