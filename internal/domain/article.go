package domain

import "time"

// RankMode is the ordering requested from the search API.
type RankMode string

const (
	RankByDate       RankMode = "date"
	RankBySimilarity RankMode = "sim"
)

// RawArticle is a search record exactly as the upstream returned it.
type RawArticle struct {
	Title        string
	Link         string
	OriginalLink string
	Description  string
	PubDate      string
}

// Article is a normalized search result. Two articles are the same article
// when their links are equal, whatever the other fields say.
type Article struct {
	Title          string
	Link           string
	Summary        string
	PublishedAt    time.Time
	PublishedAtRaw string
}

// Key returns the identity of the article.
func (a Article) Key() string {
	return a.Link
}

// SearchRequest describes one ranked page of results.
type SearchRequest struct {
	Query string
	Mode  RankMode
	Count int
	Start int
}

// Notification is what gets announced for a delivered article.
type Notification struct {
	Title    string
	Link     string
	Summary  string
	ImageURL string
}

// DispatchResult is the outcome of a successful per-article dispatch.
type DispatchResult struct {
	Article  Article
	ImageRef string
}

// HasImage reports whether an image was materialized for the article.
func (r DispatchResult) HasImage() bool {
	return r.ImageRef != ""
}

// DispatchMode bounds how many eligible articles a run dispatches.
type DispatchMode string

const (
	DispatchAll    DispatchMode = "all"
	DispatchLatest DispatchMode = "latest"
)
