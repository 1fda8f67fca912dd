package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
	"github.com/sirupsen/logrus"

	"github.com/ppiankov/claimlens/internal/cache"
	"github.com/ppiankov/claimlens/internal/extract"
	"github.com/ppiankov/claimlens/internal/logging"
	"github.com/ppiankov/claimlens/internal/model"
	"github.com/ppiankov/claimlens/internal/util"
	"github.com/ppiankov/claimlens/internal/worker"
)

// ErrDisallowed is returned when robots.txt forbids fetching a URL
var ErrDisallowed = errors.New("disallowed by robots.txt")

// fetchSleepFunc is replaced in tests to skip backoff delays
var fetchSleepFunc = sleepContext

// sleepContext waits for d or until ctx is done
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StatusError is a non-2xx HTTP response
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d %s", e.Code, e.Status)
}

// Retryable reports whether the server may succeed on a later attempt
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// Document is a fetched reference article with extracted text
type Document struct {
	URL       string    `json:"url"`
	FinalURL  string    `json:"final_url"`
	Title     string    `json:"title"`
	Byline    string    `json:"byline,omitempty"`
	SiteName  string    `json:"site_name,omitempty"`
	Excerpt   string    `json:"excerpt,omitempty"`
	Text      string    `json:"text"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Page is a raw HTTP response body
type Page struct {
	HTML        string
	FinalURL    string
	StatusCode  int
	ContentType string
}

// Fetcher downloads reference articles and extracts their readable text
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	maxRetries int
	robots     *util.RobotsChecker
	limiter    *worker.Limiter
	cache      cache.Cache
	cacheTTL   time.Duration
	log        *logrus.Entry
}

// Option customizes a Fetcher
type Option func(*Fetcher)

// WithCache stores extracted documents in c
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(f *Fetcher) {
		f.cache = c
		f.cacheTTL = ttl
	}
}

// WithLimiter throttles requests per host
func WithLimiter(l *worker.Limiter) Option {
	return func(f *Fetcher) { f.limiter = l }
}

// WithLogger sets the log entry
func WithLogger(entry *logrus.Entry) Option {
	return func(f *Fetcher) { f.log = entry }
}

// NewFetcher creates a Fetcher from HTTP settings
func NewFetcher(cfg model.HTTPConfig, opts ...Option) *Fetcher {
	maxRedirects := cfg.MaxRedirects
	if maxRedirects <= 0 {
		maxRedirects = 5
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy)

	f := &Fetcher{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		userAgent:  cfg.UserAgent,
		maxBytes:   cfg.MaxBodyBytes,
		maxRetries: cfg.MaxRetries,
		cache:      cache.Noop{},
		log:        logging.Discard(),
	}
	if f.maxBytes <= 0 {
		f.maxBytes = 5 << 20
	}
	if cfg.RespectRobots {
		f.robots = util.NewRobotsChecker(cfg.UserAgent, cfg.Timeout, time.Hour)
	}

	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch returns the readable document at rawURL, consulting the cache first
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Document, error) {
	key := cache.Key("doc", rawURL)
	var cached Document
	if cache.GetJSON(f.cache, key, &cached) {
		f.log.WithField("url", rawURL).Debug("document cache hit")
		return &cached, nil
	}

	// 1. Robots compliance
	var crawlDelay time.Duration
	if f.robots != nil {
		allowed, delay, err := f.robots.CanFetch(ctx, rawURL)
		if err != nil {
			return nil, fmt.Errorf("check robots: %w", err)
		}
		if !allowed {
			return nil, fmt.Errorf("%s: %w", rawURL, ErrDisallowed)
		}
		crawlDelay = delay
	}

	// 2. Per-host throttling
	if f.limiter != nil {
		if err := f.limiter.WaitWithDelay(ctx, rawURL, crawlDelay); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	// 3. Download
	page, err := f.FetchWithRetry(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	// 4. Extract readable text
	doc, err := Extract(page.HTML, page.FinalURL)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", rawURL, err)
	}
	doc.URL = rawURL
	doc.FetchedAt = time.Now().UTC()

	if err := cache.SetJSON(f.cache, key, doc, f.cacheTTL); err != nil {
		f.log.WithError(err).Warn("failed to cache document")
	}

	return doc, nil
}

// FetchWithRetry downloads rawURL, retrying transient failures with backoff
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string) (*Page, error) {
	var lastErr error
	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(1<<uint(attempt-1)) * time.Second
			f.log.WithFields(logrus.Fields{
				"url":     rawURL,
				"attempt": attempt + 1,
				"delay":   delay,
			}).Debug("retrying fetch")
			if err := fetchSleepFunc(ctx, delay); err != nil {
				return nil, err
			}
		}

		page, err := f.fetchOnce(ctx, rawURL)
		if err == nil {
			return page, nil
		}
		lastErr = err

		if !isRetryableFetchError(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

// Probe is the result of checking that a URL serves an HTML page
type Probe struct {
	URL         string `json:"url"`
	FinalURL    string `json:"final_url,omitempty"`
	StatusCode  int    `json:"status_code,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Valid       bool   `json:"valid"`
	Error       string `json:"error,omitempty"`
}

// Probe checks that rawURL answers 200 with an HTML content type without
// downloading the body. Servers that reject HEAD are asked with GET.
func (f *Fetcher) Probe(ctx context.Context, rawURL string) (*Probe, error) {
	resp, err := f.probeRequest(ctx, http.MethodHead, rawURL)
	if err == nil && (resp.StatusCode == http.StatusMethodNotAllowed || resp.StatusCode == http.StatusNotImplemented) {
		resp, err = f.probeRequest(ctx, http.MethodGet, rawURL)
	}
	if err != nil {
		return nil, err
	}

	p := &Probe{
		URL:         rawURL,
		FinalURL:    resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: strings.ToLower(resp.Header.Get("Content-Type")),
	}
	switch {
	case resp.StatusCode != http.StatusOK:
		p.Error = fmt.Sprintf("HTTP %d", resp.StatusCode)
	case !strings.Contains(p.ContentType, "text/html") && !strings.Contains(p.ContentType, "application/xhtml"):
		p.Error = "Invalid content type: " + p.ContentType
	default:
		p.Valid = true
	}
	return p, nil
}

func (f *Fetcher) probeRequest(ctx context.Context, method, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("probe: %w", err)
	}
	_ = resp.Body.Close()
	return resp, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, rawURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Status: http.StatusText(resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &Page{
		HTML:        string(body),
		FinalURL:    resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

// isRetryableFetchError reports whether err is worth another attempt:
// 5xx and 429 responses and transport failures, but never cancellation.
func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Retryable()
	}

	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

// Extract pulls the main article text out of an HTML page.
// Pages readability cannot handle fall back to plain visible text.
func Extract(html, pageURL string) (*Document, error) {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse URL: %w", err)
	}

	doc := &Document{FinalURL: pageURL}

	article, err := readability.FromReader(bytes.NewReader([]byte(html)), parsedURL)
	if err == nil {
		doc.Title = strings.TrimSpace(article.Title)
		doc.Byline = strings.TrimSpace(article.Byline)
		doc.SiteName = strings.TrimSpace(article.SiteName)
		doc.Excerpt = strings.TrimSpace(article.Excerpt)
		doc.Text = normalizeText(article.TextContent)
	}

	if doc.Text == "" {
		doc.Text = normalizeText(extract.HTMLToText(html))
	}
	if doc.Text == "" {
		return nil, errors.New("no readable text")
	}

	return doc, nil
}

// normalizeText collapses runs of spaces and blank lines
func normalizeText(text string) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
