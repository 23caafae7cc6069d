package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/thousandyehyang-archive/kbo-news-crawl/internal/domain"
	"github.com/thousandyehyang-archive/kbo-news-crawl/internal/ports"
)

// DefaultText is the message header shown above every attachment.
const DefaultText = "✉️ 새 KBO 뉴스가 도착했습니다!"

type attachment struct {
	Title     string `json:"title"`
	TitleLink string `json:"title_link"`
	Text      string `json:"text,omitempty"`
	ImageURL  string `json:"image_url,omitempty"`
}

type payload struct {
	Text        string       `json:"text"`
	Attachments []attachment `json:"attachments"`
}

// Notifier posts articles to a Slack incoming webhook.
type Notifier struct {
	webhookURL string
	text       string
	client     *http.Client
	logger     *slog.Logger
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers the webhook. An empty text falls back to DefaultText.
func NewNotifier(webhookURL, text string, logger *slog.Logger) *Notifier {
	if strings.TrimSpace(text) == "" {
		text = DefaultText
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Notifier{
		webhookURL: strings.TrimSpace(webhookURL),
		text:       text,
		client:     &http.Client{Timeout: 5 * time.Second},
		logger:     logger,
	}
}

// Notify posts one attachment. Without a webhook it only logs a warning.
func (n *Notifier) Notify(ctx context.Context, msg domain.Notification) error {
	if n.webhookURL == "" {
		n.logger.Warn("slack webhook not configured, skipping notification", "title", msg.Title)
		return nil
	}

	body, err := json.Marshal(payload{
		Text: n.text,
		Attachments: []attachment{{
			Title:     msg.Title,
			TitleLink: msg.Link,
			Text:      msg.Summary,
			ImageURL:  msg.ImageURL,
		}},
	})
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
		return fmt.Errorf("slack error: %s: %s", resp.Status, strings.TrimSpace(string(detail)))
	}

	n.logger.Debug("slack notification sent", "title", msg.Title)
	return nil
}
