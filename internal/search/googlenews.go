package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/ppiankov/claimlens/internal/extract"
	"github.com/ppiankov/claimlens/internal/model"
)

const googleNewsBaseURL = "https://news.google.com/rss/search"

// GoogleNewsSearcher queries the Google News RSS search feed
type GoogleNewsSearcher struct {
	baseURL  string
	language string
	region   string
	parser   *gofeed.Parser
}

// NewGoogleNewsSearcher creates a searcher; cfg.BaseURL overrides the feed endpoint
func NewGoogleNewsSearcher(cfg model.SearchConfig, timeout time.Duration, userAgent string) *GoogleNewsSearcher {
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: timeout}
	parser.UserAgent = userAgent

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = googleNewsBaseURL
	}
	language := cfg.Language
	if language == "" {
		language = "en"
	}
	region := strings.ToUpper(cfg.Region)
	if region == "" {
		region = "US"
	}

	return &GoogleNewsSearcher{
		baseURL:  baseURL,
		language: language,
		region:   region,
		parser:   parser,
	}
}

// Name returns the searcher name
func (s *GoogleNewsSearcher) Name() string {
	return "googlenews"
}

// Search returns feed items in feed order, truncated to q.MaxResults
func (s *GoogleNewsSearcher) Search(ctx context.Context, q Query) ([]Result, error) {
	feed, err := s.parser.ParseURLWithContext(s.FeedURL(q), ctx)
	if err != nil {
		return nil, fmt.Errorf("google news search: %w", err)
	}

	results := make([]Result, 0, len(feed.Items))
	for _, item := range feed.Items {
		if q.MaxResults > 0 && len(results) >= q.MaxResults {
			break
		}
		if r, ok := resultFromItem(item); ok {
			results = append(results, r)
		}
	}
	return results, nil
}

// FeedURL builds the RSS search URL for q
func (s *GoogleNewsSearcher) FeedURL(q Query) string {
	params := url.Values{
		"q":    {q.Rendered()},
		"hl":   {s.language + "-" + s.region},
		"gl":   {s.region},
		"ceid": {s.region + ":" + s.language},
	}
	return s.baseURL + "?" + params.Encode()
}

func resultFromItem(item *gofeed.Item) (Result, bool) {
	link := item.Link
	if link == "" {
		link = item.GUID
	}
	title := strings.TrimSpace(item.Title)
	if link == "" || title == "" {
		return Result{}, false
	}

	// Google News titles end with " - Publisher"
	source := ""
	if idx := strings.LastIndex(title, " - "); idx > 0 {
		source = strings.TrimSpace(title[idx+3:])
		title = strings.TrimSpace(title[:idx])
	}

	published := item.PublishedParsed
	if published == nil {
		published = item.UpdatedParsed
	}

	return Result{
		Title:         title,
		URL:           link,
		Snippet:       extract.HTMLToText(item.Description),
		Source:        source,
		PublishedDate: formatDate(published),
	}, true
}
