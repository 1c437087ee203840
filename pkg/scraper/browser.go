package scraper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/xhad/webqa/internal/types"
	"go.uber.org/zap"
)

type BrowserConfig struct {
	Headless   bool
	ControlURL string // attach to a running Chrome instead of launching one
	Timeout    time.Duration
}

// Browser fetches pages with a headless Chromium so that scripted content
// is rendered before the HTML is read.
type Browser struct {
	config  BrowserConfig
	logger  *zap.Logger
	mu      sync.Mutex
	browser *rod.Browser
}

func NewBrowser(config BrowserConfig, logger *zap.Logger) *Browser {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Browser{config: config, logger: logger}
}

func (b *Browser) connect() (*rod.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browser != nil {
		return b.browser, nil
	}

	controlURL := b.config.ControlURL
	if controlURL == "" {
		u, err := launcher.New().Headless(b.config.Headless).Launch()
		if err != nil {
			return nil, fmt.Errorf("failed to launch browser: %w", err)
		}
		controlURL = u
	}

	// the browser outlives any single request context
	browser := rod.New().ControlURL(controlURL).Context(context.Background())
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	b.logger.Info("browser connected", zap.String("control_url", controlURL))
	b.browser = browser
	return browser, nil
}

// Fetch renders a page and returns its HTML after removing the visible
// elements matching opts.RemoveSelectors.
func (b *Browser) Fetch(ctx context.Context, pageURL string, opts types.FetchOptions) (string, error) {
	html, err := b.fetch(ctx, pageURL, opts.RemoveSelectors)
	if err == nil {
		return html, nil
	}
	if opts.ContinueOnFailure {
		b.logger.Warn("fetch failed", zap.String("url", pageURL), zap.Error(err))
		return "", nil
	}
	return "", err
}

func (b *Browser) fetch(ctx context.Context, pageURL string, removeSelectors []string) (string, error) {
	browser, err := b.connect()
	if err != nil {
		return "", &FetchError{URL: pageURL, Err: err}
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return "", &FetchError{URL: pageURL, Err: err}
	}
	defer func() { _ = page.Close() }()

	p := page.Context(ctx).Timeout(b.config.Timeout)
	if err := p.Navigate(pageURL); err != nil {
		return "", &FetchError{URL: pageURL, Err: err}
	}
	if err := p.WaitLoad(); err != nil {
		return "", &FetchError{URL: pageURL, Err: err}
	}

	for _, sel := range removeSelectors {
		elements, err := p.Elements(sel)
		if err != nil {
			continue
		}
		for _, el := range elements {
			if visible, err := el.Visible(); err == nil && visible {
				_ = el.Remove()
			}
		}
	}

	html, err := p.HTML()
	if err != nil {
		return "", &FetchError{URL: pageURL, Err: err}
	}
	return html, nil
}

func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.browser == nil {
		return nil
	}
	err := b.browser.Close()
	b.browser = nil
	return err
}
