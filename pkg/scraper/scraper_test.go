package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/webqa/internal/types"
)

func TestScraperConfig(t *testing.T) {
	s := NewWithConfig(ScraperConfig{RateLimit: 1.0, Timeout: 10 * time.Second}, nil)
	assert.Equal(t, 10*time.Second, s.client.Timeout)
	assert.Equal(t, 1.0, s.config.RateLimit)

	s = New()
	assert.Equal(t, 30*time.Second, s.config.Timeout)
	assert.Equal(t, 2.0, s.config.RateLimit)
}

func TestURLFilter(t *testing.T) {
	f := NewURLFilter([]string{"/ignore/", "private"}, []string{".html", "/", ""})

	tests := []struct {
		url      string
		expected bool
	}{
		{"https://example.com/docs/", true},
		{"https://example.com/page.html", true},
		{"https://example.com/docs/intro", true},
		{"https://other-domain.com/page.html", true},
		{"https://example.com/ignore/page.html", false},
		{"https://example.com/private", false},
		{"https://example.com/file.pdf", false},
		{"ftp://example.com/page.html", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.expected, f.Allow(tt.url))
		})
	}

	assert.Equal(t, []string{"https://a.io/x.html"}, f.Filter([]string{"https://a.io/x.html", "https://a.io/y.zip"}))
}

func TestFetchWithMockServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`
			<html>
				<head><title>Test Page</title></head>
				<body>
					<div class="cookie-banner">Accept cookies</div>
					<main>
						<h1>Test Content</h1>
						<p>This is a test paragraph.</p>
					</main>
				</body>
			</html>
		`))
	}))
	defer server.Close()

	var visited []string
	s := NewWithConfig(ScraperConfig{
		RateLimit:  10,
		OnProgress: func(url string) { visited = append(visited, url) },
	}, nil)

	html, err := s.Fetch(context.Background(), server.URL, types.FetchOptions{
		RemoveSelectors: []string{".cookie-banner"},
	})
	require.NoError(t, err)

	assert.Contains(t, html, "Test Content")
	assert.Contains(t, html, "This is a test paragraph.")
	assert.NotContains(t, html, "Accept cookies")
	assert.Equal(t, []string{server.URL}, visited)
}

func TestFetchFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	s := NewWithConfig(ScraperConfig{RateLimit: 10}, nil)

	_, err := s.Fetch(context.Background(), server.URL, types.FetchOptions{})
	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, server.URL, fetchErr.URL)

	html, err := s.Fetch(context.Background(), server.URL, types.FetchOptions{ContinueOnFailure: true})
	assert.NoError(t, err)
	assert.Empty(t, html)
}

func TestNewBrowserDefaults(t *testing.T) {
	b := NewBrowser(BrowserConfig{Headless: true}, nil)
	assert.Equal(t, 30*time.Second, b.config.Timeout)
	assert.NoError(t, b.Close())
}
