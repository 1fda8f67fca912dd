package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/ppiankov/claimlens/internal/fetch"
	"github.com/ppiankov/claimlens/internal/gather"
	"github.com/ppiankov/claimlens/internal/search"
)

// maxFetchURLs caps /api/fetch-articles
const maxFetchURLs = 10

// ArticleFetcher downloads and checks single articles. *fetch.Fetcher implements it.
type ArticleFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*fetch.Document, error)
	Probe(ctx context.Context, rawURL string) (*fetch.Probe, error)
}

// WithFetcher enables /api/fetch-article, /api/fetch-articles and /api/validate-url
func WithFetcher(f ArticleFetcher) Option {
	return func(s *Server) { s.fetcher = f }
}

// WithSearcher enables /api/search-news
func WithSearcher(sr search.Searcher) Option {
	return func(s *Server) { s.searcher = sr }
}

type urlRequest struct {
	URL string `json:"url"`
}

type fetchArticleResponse struct {
	Success bool            `json:"success"`
	Data    *fetch.Document `json:"data,omitempty"`
	URL     string          `json:"url,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// checkURL returns the normalized URL or an error message for the client
func checkURL(raw string) (string, string) {
	if strings.TrimSpace(raw) == "" {
		return "", "url is required"
	}
	normalized, err := gather.NormalizeURL(raw)
	if err != nil {
		return "", "Invalid URL format"
	}
	return normalized, ""
}

func (s *Server) handleFetchArticle(w http.ResponseWriter, r *http.Request) {
	var req urlRequest
	if err := readJSON(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	target, msg := checkURL(req.URL)
	if msg != "" {
		s.writeJSON(w, http.StatusBadRequest, fetchArticleResponse{URL: req.URL, Error: msg})
		return
	}

	doc, err := s.fetcher.Fetch(r.Context(), target)
	if err != nil {
		s.log.WithError(err).WithField("url", target).Warn("article fetch failed")
		s.writeJSON(w, http.StatusBadGateway, fetchArticleResponse{URL: req.URL, Error: err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, fetchArticleResponse{Success: true, Data: doc})
}

type fetchArticlesRequest struct {
	URLs []string `json:"urls"`
}

type fetchArticlesResponse struct {
	Success         bool                   `json:"success"`
	TotalRequested  int                    `json:"total_requested"`
	SuccessfulCount int                    `json:"successful_count"`
	FailedCount     int                    `json:"failed_count"`
	Successful      []*fetch.Document      `json:"successful_articles"`
	Failed          []fetchArticleResponse `json:"failed_articles"`
}

func (s *Server) handleFetchArticles(w http.ResponseWriter, r *http.Request) {
	var req fetchArticlesRequest
	if err := readJSON(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(req.URLs) == 0 {
		s.writeError(w, http.StatusBadRequest, "urls is required")
		return
	}
	if len(req.URLs) > maxFetchURLs {
		s.writeError(w, http.StatusBadRequest, "Maximum 10 URLs allowed per request")
		return
	}

	resp := fetchArticlesResponse{
		Success:        true,
		TotalRequested: len(req.URLs),
		Successful:     []*fetch.Document{},
		Failed:         []fetchArticleResponse{},
	}
	for _, raw := range req.URLs {
		if r.Context().Err() != nil {
			return
		}
		target, msg := checkURL(raw)
		if msg != "" {
			resp.Failed = append(resp.Failed, fetchArticleResponse{URL: raw, Error: msg})
			continue
		}
		doc, err := s.fetcher.Fetch(r.Context(), target)
		if err != nil {
			resp.Failed = append(resp.Failed, fetchArticleResponse{URL: raw, Error: err.Error()})
			continue
		}
		resp.Successful = append(resp.Successful, doc)
	}
	resp.SuccessfulCount = len(resp.Successful)
	resp.FailedCount = len(resp.Failed)

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleValidateURL(w http.ResponseWriter, r *http.Request) {
	var req urlRequest
	if err := readJSON(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	target, msg := checkURL(req.URL)
	if msg != "" {
		status := http.StatusOK
		if strings.TrimSpace(req.URL) == "" {
			status = http.StatusBadRequest
		}
		s.writeJSON(w, status, fetch.Probe{URL: req.URL, Error: msg})
		return
	}

	probe, err := s.fetcher.Probe(r.Context(), target)
	if err != nil {
		s.writeJSON(w, http.StatusOK, fetch.Probe{URL: req.URL, Error: err.Error()})
		return
	}
	probe.URL = req.URL
	s.writeJSON(w, http.StatusOK, probe)
}

type searchNewsRequest struct {
	Query      string   `json:"query"`
	Queries    []string `json:"queries"`
	MaxResults int      `json:"maxResults"`
}

type searchNewsResponse struct {
	Success bool            `json:"success"`
	Count   int             `json:"count"`
	Data    []search.Result `json:"data"`
}

func (s *Server) handleSearchNews(w http.ResponseWriter, r *http.Request) {
	var req searchNewsRequest
	if err := readJSON(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	var queries []string
	for _, q := range append([]string{req.Query}, req.Queries...) {
		if q = strings.TrimSpace(q); q != "" {
			queries = append(queries, q)
		}
	}
	if len(queries) == 0 {
		s.writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	seen := make(map[string]bool)
	results := []search.Result{}
	for _, q := range queries {
		hits, err := s.searcher.Search(r.Context(), search.Query{Text: q, MaxResults: req.MaxResults})
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			s.log.WithError(err).WithField("query", q).Warn("news search failed")
			s.writeError(w, http.StatusBadGateway, "Failed to search news articles")
			return
		}
		for _, hit := range hits {
			if seen[hit.URL] {
				continue
			}
			seen[hit.URL] = true
			results = append(results, hit)
		}
	}

	s.writeJSON(w, http.StatusOK, searchNewsResponse{Success: true, Count: len(results), Data: results})
}
