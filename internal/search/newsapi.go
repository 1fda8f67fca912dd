package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/claimlens/internal/model"
)

const newsAPIBaseURL = "https://newsapi.org/v2/everything"

// NewsAPISearcher queries the NewsAPI "everything" endpoint
type NewsAPISearcher struct {
	apiKey     string
	baseURL    string
	language   string
	httpClient *http.Client
}

// NewNewsAPISearcher creates a NewsAPI searcher
func NewNewsAPISearcher(apiKey string, cfg model.SearchConfig, timeout time.Duration) *NewsAPISearcher {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = newsAPIBaseURL
	}
	language := cfg.Language
	if language == "" {
		language = "en"
	}
	return &NewsAPISearcher{
		apiKey:     apiKey,
		baseURL:    baseURL,
		language:   language,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Name returns the searcher name
func (s *NewsAPISearcher) Name() string {
	return "newsapi"
}

type newsAPIResponse struct {
	Status   string `json:"status"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Articles []struct {
		URL         string `json:"url"`
		Title       string `json:"title"`
		PublishedAt string `json:"publishedAt"`
		Description string `json:"description"`
		Source      struct {
			Name string `json:"name"`
		} `json:"source"`
	} `json:"articles"`
}

// Search runs q with Domains passed through the domains parameter,
// since NewsAPI does not understand "site:" operators
func (s *NewsAPISearcher) Search(ctx context.Context, q Query) ([]Result, error) {
	pageSize := q.MaxResults
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 100
	}

	params := url.Values{
		"q":        {strings.TrimSpace(q.Text)},
		"language": {s.language},
		"pageSize": {strconv.Itoa(pageSize)},
		"sortBy":   {"relevancy"},
	}
	if len(q.Domains) > 0 {
		params.Set("domains", strings.Join(q.Domains, ","))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Api-Key", s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("newsapi search: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var body newsAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode newsapi response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || body.Status != "ok" {
		return nil, fmt.Errorf("newsapi error: status %d, %s: %s", resp.StatusCode, body.Code, body.Message)
	}

	results := make([]Result, 0, len(body.Articles))
	for _, a := range body.Articles {
		if a.URL == "" || a.Title == "" || a.Title == "[Removed]" || a.URL == "https://removed.com" {
			continue
		}

		var published string
		if t, err := time.Parse(time.RFC3339, a.PublishedAt); err == nil {
			published = formatDate(&t)
		}

		results = append(results, Result{
			Title:         strings.TrimSpace(a.Title),
			URL:           a.URL,
			Snippet:       strings.TrimSpace(a.Description),
			Source:        a.Source.Name,
			PublishedDate: published,
		})
	}
	return results, nil
}
