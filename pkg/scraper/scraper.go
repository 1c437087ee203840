package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/xhad/webqa/internal/types"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// FetchError reports a page that could not be retrieved.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

type ScraperConfig struct {
	RateLimit  float64 // requests per second
	Timeout    time.Duration
	UserAgent  string
	OnProgress func(url string)
}

// Scraper fetches pages over plain HTTP.
type Scraper struct {
	config  ScraperConfig
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

func NewWithConfig(config ScraperConfig, logger *zap.Logger) *Scraper {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 2 // 2 requests per second by default
	}
	if config.UserAgent == "" {
		config.UserAgent = "Mozilla/5.0 (compatible; webqa/1.0)"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scraper{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		logger:  logger,
	}
}

func New() *Scraper {
	return NewWithConfig(ScraperConfig{}, nil)
}

// Fetch downloads a page and returns its HTML with every element matching
// opts.RemoveSelectors removed. With ContinueOnFailure set, failures are
// logged and an empty page is returned instead.
func (s *Scraper) Fetch(ctx context.Context, pageURL string, opts types.FetchOptions) (string, error) {
	html, err := s.fetch(ctx, pageURL, opts.RemoveSelectors)
	if err == nil {
		return html, nil
	}
	if opts.ContinueOnFailure {
		s.logger.Warn("fetch failed", zap.String("url", pageURL), zap.Error(err))
		return "", nil
	}
	return "", err
}

func (s *Scraper) fetch(ctx context.Context, pageURL string, removeSelectors []string) (string, error) {
	if s.config.OnProgress != nil {
		s.config.OnProgress(pageURL)
	}

	// Apply rate limiting
	if err := s.limiter.Wait(ctx); err != nil {
		return "", &FetchError{URL: pageURL, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", &FetchError{URL: pageURL, Err: err}
	}
	req.Header.Set("User-Agent", s.config.UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", &FetchError{URL: pageURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &FetchError{URL: pageURL, Err: fmt.Errorf("received status code %d", resp.StatusCode)}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", &FetchError{URL: pageURL, Err: err}
	}

	for _, sel := range removeSelectors {
		doc.Find(sel).Remove()
	}

	html, err := doc.Html()
	if err != nil {
		return "", &FetchError{URL: pageURL, Err: err}
	}
	return html, nil
}

// URLFilter decides which discovered links are worth following.
type URLFilter struct {
	IgnorePatterns    []string
	AllowedExtensions []string
}

func NewURLFilter(ignorePatterns, allowedExtensions []string) URLFilter {
	if len(allowedExtensions) == 0 {
		allowedExtensions = []string{".html", ".htm", ".php", ".asp", ".aspx", "/", ""}
	}
	return URLFilter{IgnorePatterns: ignorePatterns, AllowedExtensions: allowedExtensions}
}

// Allow accepts http(s) URLs whose path ends in an allowed extension (a path
// without an extension counts as "") and that contain no ignore pattern.
func (f URLFilter) Allow(urlStr string) bool {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return false
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return false
	}

	// Check extensions
	path := strings.ToLower(parsedURL.Path)
	last := path[strings.LastIndex(path, "/")+1:]
	validExt := false
	for _, allowedExt := range f.AllowedExtensions {
		switch {
		case allowedExt == "" && !strings.Contains(last, "."):
			validExt = true
		case allowedExt != "" && strings.HasSuffix(path, allowedExt):
			validExt = true
		}
	}
	if !validExt {
		return false
	}

	// Check ignore patterns
	for _, pattern := range f.IgnorePatterns {
		if strings.Contains(urlStr, pattern) {
			return false
		}
	}

	return true
}

// Filter keeps the allowed URLs, preserving order.
func (f URLFilter) Filter(urls []string) []string {
	var out []string
	for _, u := range urls {
		if f.Allow(u) {
			out = append(out, u)
		}
	}
	return out
}
