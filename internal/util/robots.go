package util

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// RobotsChecker answers robots.txt questions for reference fetches
type RobotsChecker struct {
	entries    map[string]robotsEntry
	mu         sync.RWMutex
	httpClient *http.Client
	userAgent  string
	agentToken string
	ttl        time.Duration
}

type robotsEntry struct {
	data      *robotstxt.RobotsData
	fetchedAt time.Time
}

// NewRobotsChecker creates a checker that caches each host's rules for ttl
func NewRobotsChecker(userAgent string, timeout, ttl time.Duration) *RobotsChecker {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RobotsChecker{
		entries:    make(map[string]robotsEntry),
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  userAgent,
		agentToken: NormalizeUserAgent(userAgent),
		ttl:        ttl,
	}
}

// CanFetch reports whether rawURL may be fetched and the host's crawl delay.
// Hosts whose robots.txt cannot be retrieved are treated as allowing everything.
func (r *RobotsChecker) CanFetch(ctx context.Context, rawURL string) (bool, time.Duration, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false, 0, fmt.Errorf("parse URL: %w", err)
	}
	if parsed.Host == "" {
		return false, 0, fmt.Errorf("URL has no host: %s", rawURL)
	}

	data, err := r.rulesFor(ctx, parsed)
	if err != nil {
		return true, 0, nil
	}

	path := parsed.EscapedPath()
	if path == "" {
		path = "/"
	}
	if parsed.RawQuery != "" {
		path += "?" + parsed.RawQuery
	}

	var delay time.Duration
	if group := data.FindGroup(r.agentToken); group != nil {
		delay = group.CrawlDelay
	}

	return data.TestAgent(path, r.agentToken), delay, nil
}

func (r *RobotsChecker) rulesFor(ctx context.Context, target *url.URL) (*robotstxt.RobotsData, error) {
	host := strings.ToLower(target.Host)

	r.mu.RLock()
	entry, ok := r.entries[host]
	r.mu.RUnlock()
	if ok && time.Since(entry.fetchedAt) < r.ttl {
		return entry.data, nil
	}

	robotsURL := fmt.Sprintf("%s://%s/robots.txt", target.Scheme, target.Host)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// FromResponse maps 4xx to allow-all and 5xx to disallow-all
	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}

	r.mu.Lock()
	r.entries[host] = robotsEntry{data: data, fetchedAt: time.Now()}
	r.mu.Unlock()

	return data, nil
}

// Forget drops all cached rules
func (r *RobotsChecker) Forget() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[string]robotsEntry)
}

// NormalizeUserAgent reduces "claimlens/0.1 (+url)" to "claimlens"
func NormalizeUserAgent(ua string) string {
	parts := strings.Fields(ua)
	if len(parts) == 0 {
		return ua
	}
	return strings.Split(parts[0], "/")[0]
}
