package search

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/claimlens/internal/model"
	"github.com/ppiankov/claimlens/internal/sources"
)

// Query is a news search request
type Query struct {
	Text       string   // Free-text query, usually the target headline
	Domains    []string // Restrict results to these sites when non-empty
	MaxResults int
}

// Rendered returns the query with "site:" operators appended for Domains
func (q Query) Rendered() string {
	text := strings.TrimSpace(q.Text)
	if len(q.Domains) == 0 {
		return text
	}
	return text + " " + sources.SiteQuery(q.Domains)
}

// Result is one search hit
type Result struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	Snippet       string `json:"snippet,omitempty"`
	Source        string `json:"source,omitempty"`
	PublishedDate string `json:"date,omitempty"` // YYYY-MM-DD or empty
}

// Searcher finds candidate reference articles
type Searcher interface {
	Name() string
	Search(ctx context.Context, q Query) ([]Result, error)
}

// New creates the searcher selected by cfg.Provider
func New(cfg model.SearchConfig, timeout time.Duration, userAgent string) (Searcher, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "googlenews", "google":
		return NewGoogleNewsSearcher(cfg, timeout, userAgent), nil

	case "newsapi":
		key := cfg.NewsAPIKey
		if key == "" {
			key = os.Getenv("NEWSAPI_KEY")
		}
		if key == "" {
			return nil, fmt.Errorf("NewsAPI key is required (set search.newsapi_key or NEWSAPI_KEY)")
		}
		return NewNewsAPISearcher(key, cfg, timeout), nil

	default:
		return nil, fmt.Errorf("unknown search provider: %s (supported: googlenews, newsapi)", cfg.Provider)
	}
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}
