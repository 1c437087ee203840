package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const DefaultEndpoint = "https://html.duckduckgo.com/html/"

type Result struct {
	Title   string
	URL     string
	Snippet string
}

type DuckDuckGoConfig struct {
	Endpoint  string
	Timeout   time.Duration
	RateLimit float64 // queries per second
	UserAgent string
}

// DuckDuckGo queries the HTML endpoint of DuckDuckGo, which needs no API key.
type DuckDuckGo struct {
	config  DuckDuckGoConfig
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

func NewDuckDuckGo(config DuckDuckGoConfig, logger *zap.Logger) *DuckDuckGo {
	if config.Endpoint == "" {
		config.Endpoint = DefaultEndpoint
	}
	if config.Timeout == 0 {
		config.Timeout = 15 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 1
	}
	if config.UserAgent == "" {
		config.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DuckDuckGo{
		config:  config,
		client:  &http.Client{Timeout: config.Timeout},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		logger:  logger,
	}
}

// Search returns up to count result URLs in rank order.
func (d *DuckDuckGo) Search(ctx context.Context, query string, count int) ([]string, error) {
	results, err := d.Results(ctx, query, count)
	if err != nil {
		return nil, err
	}
	urls := make([]string, len(results))
	for i, r := range results {
		urls[i] = r.URL
	}
	return urls, nil
}

func (d *DuckDuckGo) Results(ctx context.Context, query string, count int) ([]Result, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	searchURL := d.config.Endpoint + "?q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("User-Agent", d.config.UserAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse search results: %w", err)
	}

	results := ParseResults(doc, count)
	d.logger.Debug("search finished", zap.String("query", query), zap.Int("results", len(results)))
	return results, nil
}

// ParseResults reads result links from a DuckDuckGo HTML page, skipping ads
// and unwrapping redirect links.
func ParseResults(doc *goquery.Document, count int) []Result {
	var results []Result
	seen := make(map[string]bool)
	doc.Find(".result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if count > 0 && len(results) >= count {
			return false
		}
		if s.HasClass("result--ad") {
			return true
		}
		link := s.Find("a.result__a").First()
		href, ok := link.Attr("href")
		if !ok {
			return true
		}
		target := unwrapRedirect(href)
		if target == "" || seen[target] {
			return true
		}
		seen[target] = true
		results = append(results, Result{
			Title:   strings.TrimSpace(link.Text()),
			URL:     target,
			Snippet: strings.TrimSpace(s.Find(".result__snippet").First().Text()),
		})
		return true
	})
	return results
}

func unwrapRedirect(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if strings.HasSuffix(u.Host, "duckduckgo.com") && strings.HasPrefix(u.Path, "/l/") {
		target := u.Query().Get("uddg")
		if target == "" {
			return ""
		}
		return target
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}
