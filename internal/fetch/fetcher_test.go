package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/claimlens/internal/cache"
	"github.com/ppiankov/claimlens/internal/model"
)

const articleHTML = `<html><head><title>Council approves budget</title></head>
<body>
<nav>Home | World | Politics</nav>
<article>
<h1>Council approves budget</h1>
<p>The city council approved a budget of 4.2 billion dollars on Tuesday after a lengthy debate about transit funding.</p>
<p>Officials said the plan increases spending on public transit by twelve percent compared with last year.</p>
<p>Opponents argued that the increase would require higher property taxes within two years.</p>
</article>
</body></html>`

func testConfig() model.HTTPConfig {
	return model.HTTPConfig{
		Timeout:      5 * time.Second,
		UserAgent:    "test-agent",
		MaxBodyBytes: 1 << 20,
		MaxRedirects: 3,
		MaxRetries:   2,
	}
}

func noSleep(t *testing.T) {
	t.Helper()
	orig := fetchSleepFunc
	fetchSleepFunc = func(context.Context, time.Duration) error { return nil }
	t.Cleanup(func() { fetchSleepFunc = orig })
}

func TestFetch_ExtractsArticleText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "test-agent" {
			t.Errorf("Expected User-Agent test-agent, got %s", r.Header.Get("User-Agent"))
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = fmt.Fprint(w, articleHTML)
	}))
	defer server.Close()

	fetcher := NewFetcher(testConfig())
	doc, err := fetcher.Fetch(context.Background(), server.URL+"/story")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if !strings.Contains(doc.Text, "twelve percent") {
		t.Errorf("Expected article text to be extracted, got %q", doc.Text)
	}
	if doc.URL != server.URL+"/story" {
		t.Errorf("Expected URL to be preserved, got %s", doc.URL)
	}
	if doc.Title == "" {
		t.Error("Expected a title")
	}
}

func TestFetch_UsesCache(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = fmt.Fprint(w, articleHTML)
	}))
	defer server.Close()

	mem := cache.NewMemoryCache(time.Minute, time.Minute)
	fetcher := NewFetcher(testConfig(), WithCache(mem, time.Minute))

	for i := 0; i < 3; i++ {
		if _, err := fetcher.Fetch(context.Background(), server.URL); err != nil {
			t.Fatalf("Fetch %d failed: %v", i, err)
		}
	}
	if hits.Load() != 1 {
		t.Errorf("Expected 1 upstream request, got %d", hits.Load())
	}
}

func TestFetch_RobotsDisallow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = fmt.Fprint(w, "User-agent: *\nDisallow: /\n")
			return
		}
		_, _ = fmt.Fprint(w, articleHTML)
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.RespectRobots = true
	fetcher := NewFetcher(cfg)

	_, err := fetcher.Fetch(context.Background(), server.URL+"/story")
	if !errors.Is(err, ErrDisallowed) {
		t.Errorf("Expected ErrDisallowed, got %v", err)
	}
}

func TestFetchWithRetry_TransientThenSuccess(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = fmt.Fprint(w, "<html>OK</html>")
	}))
	defer server.Close()
	noSleep(t)

	fetcher := NewFetcher(testConfig())
	page, err := fetcher.FetchWithRetry(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if page.HTML != "<html>OK</html>" {
		t.Errorf("Unexpected HTML: %s", page.HTML)
	}
	if attempts.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts.Load())
	}
}

func TestFetchWithRetry_PermanentFailure(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()
	noSleep(t)

	fetcher := NewFetcher(testConfig())
	_, err := fetcher.FetchWithRetry(context.Background(), server.URL)

	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Code != http.StatusNotFound {
		t.Fatalf("Expected 404 StatusError, got %v", err)
	}
	if attempts.Load() != 1 {
		t.Errorf("Expected 404 not to be retried, got %d attempts", attempts.Load())
	}
}

func TestFetchWithRetry_AllRetriesExhausted(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()
	noSleep(t)

	fetcher := NewFetcher(testConfig())
	if _, err := fetcher.FetchWithRetry(context.Background(), server.URL); err == nil {
		t.Fatal("Expected error after all retries exhausted")
	}
	if attempts.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts.Load())
	}
}

func TestSleepContext_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	if err := sleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Expected cancelled sleep to return immediately")
	}
}

func TestFetchWithRetry_CancelledDuringBackoff(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	orig := fetchSleepFunc
	fetchSleepFunc = func(ctx context.Context, d time.Duration) error {
		cancel()
		return sleepContext(ctx, d)
	}
	t.Cleanup(func() { fetchSleepFunc = orig })

	start := time.Now()
	_, err := NewFetcher(testConfig()).FetchWithRetry(ctx, server.URL)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if attempts.Load() != 1 {
		t.Errorf("Expected no attempt after cancellation, got %d", attempts.Load())
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("Expected backoff to stop on cancellation")
	}
}

func TestIsRetryableFetchError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"nil", nil, false},
		{"503", &StatusError{Code: 503}, true},
		{"500", &StatusError{Code: 500}, true},
		{"429", &StatusError{Code: 429}, true},
		{"404", &StatusError{Code: 404}, false},
		{"403", &StatusError{Code: 403}, false},
		{"wrapped 502", fmt.Errorf("get: %w", &StatusError{Code: 502}), true},
		{"transport", fmt.Errorf("fetch: %w", &url.Error{Op: "Get", URL: "http://x", Err: errors.New("connection refused")}), true},
		{"cancelled", fmt.Errorf("fetch: %w", context.Canceled), false},
		{"deadline", &url.Error{Op: "Get", URL: "http://x", Err: context.DeadlineExceeded}, false},
		{"plain", errors.New("read body: unexpected EOF"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryableFetchError(tt.err); got != tt.retryable {
				t.Errorf("isRetryableFetchError(%v) = %v, want %v", tt.err, got, tt.retryable)
			}
		})
	}
}

func TestExtract_FallbackToVisibleText(t *testing.T) {
	doc, err := Extract("<html><body><div>Short note only.</div></body></html>", "https://example.com/x")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !strings.Contains(doc.Text, "Short note only.") {
		t.Errorf("Expected fallback text, got %q", doc.Text)
	}
}

func TestExtract_Empty(t *testing.T) {
	if _, err := Extract("<html><body><script>x()</script></body></html>", "https://example.com/x"); err == nil {
		t.Error("Expected error for page without text")
	}
}

func TestProbe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/article":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
		case "/head-rejected":
			if r.Method == http.MethodHead {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			w.Header().Set("Content-Type", "text/html")
		case "/feed.pdf":
			w.Header().Set("Content-Type", "application/pdf")
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	tests := []struct {
		path      string
		wantValid bool
		wantErr   string
	}{
		{"/article", true, ""},
		{"/head-rejected", true, ""},
		{"/feed.pdf", false, "Invalid content type: application/pdf"},
		{"/missing", false, "HTTP 404"},
	}

	fetcher := NewFetcher(testConfig())
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			p, err := fetcher.Probe(context.Background(), server.URL+tt.path)
			if err != nil {
				t.Fatalf("Probe failed: %v", err)
			}
			if p.Valid != tt.wantValid || p.Error != tt.wantErr {
				t.Errorf("Probe(%s) = %+v, want valid=%v error=%q", tt.path, p, tt.wantValid, tt.wantErr)
			}
		})
	}
}

func TestProbe_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	target := server.URL
	server.Close()

	if _, err := NewFetcher(testConfig()).Probe(context.Background(), target); err == nil {
		t.Error("Expected error for closed server")
	}
}
