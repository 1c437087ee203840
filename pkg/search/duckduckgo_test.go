package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const resultsPage = `<html><body>
<div class="result results_links result--ad">
  <a class="result__a" href="https://ads.example.com/">Ad</a>
</div>
<div class="result results_links">
  <a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fgo.dev%2Fdoc%2F&rut=abc">Go docs</a>
  <a class="result__snippet">Documentation for Go.</a>
</div>
<div class="result results_links">
  <a class="result__a" href="https://pkg.go.dev/">Packages</a>
</div>
<div class="result results_links">
  <a class="result__a" href="https://go.dev/doc/">Duplicate</a>
</div>
<div class="result results_links">
  <a class="result__a" href="https://go.dev/blog/">Blog</a>
</div>
</body></html>`

func TestParseResults(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resultsPage))
	require.NoError(t, err)

	results := ParseResults(doc, 0)
	require.Len(t, results, 3)
	assert.Equal(t, Result{Title: "Go docs", URL: "https://go.dev/doc/", Snippet: "Documentation for Go."}, results[0])
	assert.Equal(t, "https://pkg.go.dev/", results[1].URL)
	assert.Equal(t, "https://go.dev/blog/", results[2].URL)

	assert.Len(t, ParseResults(doc, 2), 2)
}

func TestSearch(t *testing.T) {
	var query string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query().Get("q")
		w.Write([]byte(resultsPage))
	}))
	defer server.Close()

	d := NewDuckDuckGo(DuckDuckGoConfig{Endpoint: server.URL + "/html/", RateLimit: 100}, nil)
	urls, err := d.Search(context.Background(), "golang docs", 5)

	require.NoError(t, err)
	assert.Equal(t, "golang docs", query)
	assert.Equal(t, []string{"https://go.dev/doc/", "https://pkg.go.dev/", "https://go.dev/blog/"}, urls)
}

func TestSearchStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	d := NewDuckDuckGo(DuckDuckGoConfig{Endpoint: server.URL, RateLimit: 100}, nil)
	_, err := d.Search(context.Background(), "q", 5)
	assert.ErrorContains(t, err, "429")
}
