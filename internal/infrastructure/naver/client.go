package naver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultEndpoint is the Naver Open API search root.
	DefaultEndpoint = "https://openapi.naver.com/v1/search"

	ResourceNews  = "news.json"
	ResourceImage = "image.json"

	headerClientID     = "X-Naver-Client-Id"
	headerClientSecret = "X-Naver-Client-Secret"

	maxErrorBody = 4 << 10
)

// APIError is returned when the search API answers with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("naver api status %d", e.StatusCode)
	}
	return fmt.Sprintf("naver api status %d: %s", e.StatusCode, e.Body)
}

// Item is one search record. News and image resources share the envelope and
// fill different fields.
type Item struct {
	Title        string `json:"title"`
	Link         string `json:"link"`
	OriginalLink string `json:"originallink"`
	Description  string `json:"description"`
	PubDate      string `json:"pubDate"`
	Thumbnail    string `json:"thumbnail"`
	SizeHeight   string `json:"sizeheight"`
	SizeWidth    string `json:"sizewidth"`
}

// SearchResponse is the JSON envelope of every search resource.
type SearchResponse struct {
	LastBuildDate string `json:"lastBuildDate"`
	Total         int    `json:"total"`
	Start         int    `json:"start"`
	Display       int    `json:"display"`
	Items         []Item `json:"items"`
}

// Query is one search call.
type Query struct {
	Resource string
	Text     string
	Display  int
	Start    int
	Sort     string
}

// Client talks to the Naver search API.
type Client struct {
	endpoint     string
	clientID     string
	clientSecret string
	http         *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithEndpoint overrides the API root, used by tests and proxies.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		if endpoint = strings.TrimSpace(endpoint); endpoint != "" {
			c.endpoint = strings.TrimSuffix(endpoint, "/")
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// NewClient builds a search client with the application credentials.
func NewClient(clientID, clientSecret string, opts ...Option) *Client {
	c := &Client{
		endpoint:     DefaultEndpoint,
		clientID:     clientID,
		clientSecret: clientSecret,
		http:         &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search performs one GET against a search resource.
func (c *Client) Search(ctx context.Context, q Query) (*SearchResponse, error) {
	params := url.Values{}
	params.Set("query", q.Text)
	if q.Display > 0 {
		params.Set("display", strconv.Itoa(q.Display))
	}
	if q.Start > 0 {
		params.Set("start", strconv.Itoa(q.Start))
	}
	if q.Sort != "" {
		params.Set("sort", q.Sort)
	}
	endpoint := c.endpoint + "/" + strings.TrimPrefix(q.Resource, "/") + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set(headerClientID, c.clientID)
	req.Header.Set(headerClientSecret, c.clientSecret)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var out SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", q.Resource, err)
	}
	return &out, nil
}
