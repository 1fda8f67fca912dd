package util

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestRobotsChecker_DisallowedPath(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			hits.Add(1)
			_, _ = fmt.Fprint(w, "User-agent: claimlens\nDisallow: /private\nCrawl-delay: 2\n")
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	checker := NewRobotsChecker("claimlens/0.1 (+https://example.com)", 5*time.Second, time.Hour)
	ctx := context.Background()

	allowed, delay, err := checker.CanFetch(ctx, server.URL+"/private/page")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if allowed {
		t.Error("Expected /private/page to be disallowed")
	}
	if delay != 2*time.Second {
		t.Errorf("Expected crawl delay 2s, got %v", delay)
	}

	allowed, _, _ = checker.CanFetch(ctx, server.URL+"/news/story")
	if !allowed {
		t.Error("Expected /news/story to be allowed")
	}

	if hits.Load() != 1 {
		t.Errorf("Expected robots.txt to be fetched once, got %d", hits.Load())
	}
}

func TestRobotsChecker_MissingRobotsAllows(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	checker := NewRobotsChecker("claimlens", 5*time.Second, time.Hour)
	allowed, _, err := checker.CanFetch(context.Background(), server.URL+"/anything")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !allowed {
		t.Error("Expected missing robots.txt to allow fetching")
	}
}

func TestRobotsChecker_InvalidURL(t *testing.T) {
	checker := NewRobotsChecker("claimlens", time.Second, time.Hour)
	if _, _, err := checker.CanFetch(context.Background(), "/no-host"); err == nil {
		t.Error("Expected error for URL without host")
	}
}

func TestNormalizeUserAgent(t *testing.T) {
	tests := map[string]string{
		"claimlens/0.1 (+https://x)": "claimlens",
		"Mozilla/5.0":                "Mozilla",
		"bot":                        "bot",
		"":                           "",
	}
	for in, want := range tests {
		if got := NormalizeUserAgent(in); got != want {
			t.Errorf("NormalizeUserAgent(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewProxyFunc(t *testing.T) {
	proxy := NewProxyFunc("http://proxy.local:3128", "", "internal.example.com")

	req, _ := http.NewRequest(http.MethodGet, "http://news.example.org/a", nil)
	u, err := proxy(req)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if u == nil || u.Host != "proxy.local:3128" {
		t.Errorf("Expected proxy.local:3128, got %v", u)
	}

	req, _ = http.NewRequest(http.MethodGet, "http://internal.example.com/a", nil)
	u, err = proxy(req)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if u != nil {
		t.Errorf("Expected no proxy for NoProxy host, got %v", u)
	}
}
