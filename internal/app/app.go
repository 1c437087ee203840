// Package app wires the configured collaborators into a Researcher.
package app

import (
	"context"
	"fmt"

	"github.com/xhad/webqa/internal/types"
	"github.com/xhad/webqa/pkg/config"
	"github.com/xhad/webqa/pkg/grammar"
	"github.com/xhad/webqa/pkg/llm"
	"github.com/xhad/webqa/pkg/processor"
	"github.com/xhad/webqa/pkg/research"
	"github.com/xhad/webqa/pkg/scraper"
	"github.com/xhad/webqa/pkg/search"
	"github.com/xhad/webqa/pkg/store"
	"go.uber.org/zap"
)

type App struct {
	Config     *config.Config
	Researcher *research.Researcher
	Memory     types.Memory // nil without a database

	closers []func()
	logger  *zap.Logger
}

// Build creates every collaborator named by cfg. A database that cannot be
// reached disables page memory instead of failing.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{Config: cfg, logger: logger}

	chat, err := llm.NewWithConfig(llm.ChatConfig{
		Provider:    cfg.LLM.Provider,
		Model:       cfg.LLM.Model,
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Retries:     cfg.LLM.Retries,
		RetryDelay:  cfg.LLM.RetryDelay,
		RateLimit:   cfg.LLM.RateLimit,
		LogDir:      cfg.LLM.LogDir,
	}, logger.Named("llm"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chat engine: %w", err)
	}

	deps := research.Dependencies{
		LM:      chat,
		Fetcher: a.fetcher(cfg),
		Search: search.NewDuckDuckGo(search.DuckDuckGoConfig{
			Endpoint:  cfg.Search.Endpoint,
			UserAgent: cfg.Fetcher.UserAgent,
		}, logger.Named("search")),
	}

	if cfg.Grammar.Enabled {
		deps.Grammar = grammar.NewLanguageTool(grammar.Config{
			URL:      cfg.Grammar.URL,
			Language: cfg.Grammar.Language,
		}, logger.Named("grammar"))
	}

	if cfg.Database.URL != "" {
		memory, err := a.memory(ctx, cfg)
		if err != nil {
			logger.Warn("page memory disabled", zap.Error(err))
		} else {
			a.Memory = memory
			deps.Memory = memory
			a.closers = append(a.closers, memory.Close)
		}
	}

	r, err := research.NewWithConfig(ResearchConfig(cfg), deps, logger.Named("research"))
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Researcher = r
	return a, nil
}

func (a *App) fetcher(cfg *config.Config) types.PageFetcher {
	if cfg.Fetcher.Mode == "browser" {
		b := scraper.NewBrowser(scraper.BrowserConfig{
			Headless:   !cfg.Fetcher.ShowBrowser,
			ControlURL: cfg.Fetcher.ControlURL,
			Timeout:    cfg.Fetcher.Timeout,
		}, a.logger.Named("browser"))
		a.closers = append(a.closers, func() {
			if err := b.Close(); err != nil {
				a.logger.Warn("failed to close browser", zap.Error(err))
			}
		})
		return b
	}
	return scraper.NewWithConfig(scraper.ScraperConfig{
		RateLimit: cfg.Fetcher.RateLimit,
		Timeout:   cfg.Fetcher.Timeout,
		UserAgent: cfg.Fetcher.UserAgent,
	}, a.logger.Named("scraper"))
}

func (a *App) memory(ctx context.Context, cfg *config.Config) (*store.VectorStore, error) {
	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Provider: cfg.Embedder.Provider,
		Model:    cfg.Embedder.Model,
		BaseURL:  cfg.Embedder.BaseURL,
		APIKey:   cfg.LLM.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	return store.NewWithConfig(ctx, store.VectorStoreConfig{
		ConnString: cfg.Database.URL,
		TableName:  cfg.Database.TableName,
		VectorDim:  cfg.Database.VectorDim,
	}, embedder)
}

// ResearchConfig maps the file configuration onto the research loop.
func ResearchConfig(cfg *config.Config) research.ResearchConfig {
	return research.ResearchConfig{
		MaxPages:         cfg.Research.MaxPages,
		SearchResults:    cfg.Search.Results,
		LinkBatchSize:    cfg.Research.LinkBatchSize,
		Concurrency:      cfg.Research.Concurrency,
		DisableCritique:  cfg.Research.DisableCritique,
		CritiqueAttempts: cfg.Research.CritiqueAttempts,
		FailFast:         cfg.Research.FailFast,
		Narrow: processor.ProcessorConfig{
			WindowSize: cfg.Chunking.NarrowWindow,
			Stride:     cfg.Chunking.NarrowStride,
		},
		Broad: processor.ProcessorConfig{
			WindowSize: cfg.Chunking.BroadWindow,
			Stride:     cfg.Chunking.BroadStride,
		},
		SummaryWindow:   cfg.Chunking.SummaryWindow,
		ListWindow:      cfg.Chunking.ListWindow,
		ListThreshold:   cfg.Chunking.ListThreshold,
		RemoveSelectors: cfg.Fetcher.RemoveSelectors,
		Filter:          scraper.NewURLFilter(cfg.Fetcher.IgnorePatterns, cfg.Fetcher.AllowedExtensions),
	}
}

// Close releases the browser and database pool, last opened first.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
