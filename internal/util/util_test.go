package util

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"
)

func TestNormalizeUserAgent(t *testing.T) {
	tests := map[string]string{
		"numscan/0.1":                      "numscan",
		"numscan/0.1 (+https://x.example)": "numscan",
		"plain":                            "plain",
		"":                                 "",
	}
	for in, expected := range tests {
		if got := NormalizeUserAgent(in); got != expected {
			t.Errorf("NormalizeUserAgent(%q) = %q, expected %q", in, got, expected)
		}
	}
}

func TestRobotsChecker_CanFetch(t *testing.T) {
	var robotsHits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			robotsHits.Add(1)
			_, _ = fmt.Fprint(w, "User-agent: numscan\nDisallow: /private/\nCrawl-delay: 2\n")
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	checker := NewRobotsChecker("numscan/0.1", 5*time.Second, nil)

	allowed, delay, err := checker.CanFetch(context.Background(), server.URL+"/reports/fy25.pdf")
	if err != nil {
		t.Fatalf("CanFetch failed: %v", err)
	}
	if !allowed {
		t.Error("Expected public path to be allowed")
	}
	if delay != 2*time.Second {
		t.Errorf("Expected crawl delay 2s, got %v", delay)
	}

	allowed, _, _ = checker.CanFetch(context.Background(), server.URL+"/private/budget.pdf")
	if allowed {
		t.Error("Expected private path to be disallowed")
	}

	if robotsHits.Load() != 1 {
		t.Errorf("Expected robots.txt to be fetched once, got %d", robotsHits.Load())
	}

	checker.Clear()
	_, _, _ = checker.CanFetch(context.Background(), server.URL+"/reports/fy25.pdf")
	if robotsHits.Load() != 2 {
		t.Errorf("Expected refetch after Clear, got %d", robotsHits.Load())
	}
}

func TestRobotsChecker_MissingRobotsAllows(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	checker := NewRobotsChecker("numscan/0.1", 5*time.Second, nil)
	allowed, _, err := checker.CanFetch(context.Background(), server.URL+"/anything.pdf")
	if err != nil || !allowed {
		t.Errorf("Expected missing robots.txt to allow, got %v %v", allowed, err)
	}
}

func TestRobotsChecker_NoHost(t *testing.T) {
	checker := NewRobotsChecker("numscan/0.1", time.Second, nil)
	if _, _, err := checker.CanFetch(context.Background(), "relative/path.pdf"); err == nil {
		t.Error("Expected error for URL without host")
	}
}

func TestNewProxyFunc(t *testing.T) {
	proxy := NewProxyFunc("http://proxy.local:3128", "http://secure-proxy.local:3128", "internal.example, .corp.example")

	tests := []struct {
		target   string
		expected string
	}{
		{"http://data.example/a.pdf", "http://proxy.local:3128"},
		{"https://data.example/a.pdf", "http://secure-proxy.local:3128"},
		{"https://internal.example/a.pdf", ""},
		{"https://files.corp.example/a.pdf", ""},
		{"https://corp.example/a.pdf", ""},
	}

	for _, tt := range tests {
		target, _ := url.Parse(tt.target)
		got, err := proxy(&http.Request{URL: target})
		if err != nil {
			t.Fatalf("proxy(%s) error: %v", tt.target, err)
		}
		switch {
		case tt.expected == "" && got != nil:
			t.Errorf("Expected %s to bypass the proxy, got %s", tt.target, got)
		case tt.expected != "" && (got == nil || got.String() != tt.expected):
			t.Errorf("Expected %s via %s, got %v", tt.target, tt.expected, got)
		}
	}
}

func TestNewProxyFunc_InvalidURL(t *testing.T) {
	proxy := NewProxyFunc("://bad", "", "")
	target, _ := url.Parse("http://data.example/a.pdf")
	if _, err := proxy(&http.Request{URL: target}); err == nil {
		t.Error("Expected error for invalid proxy URL")
	}
}
