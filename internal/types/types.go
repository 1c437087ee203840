package types

import (
	"context"

	"github.com/xhad/webqa/internal/models"
)

// Core interfaces
type LanguageModel interface {
	Complete(ctx context.Context, system, user string) string
}

type FetchOptions struct {
	RemoveSelectors   []string
	ContinueOnFailure bool
}

type PageFetcher interface {
	Fetch(ctx context.Context, url string, opts FetchOptions) (string, error)
}

type SearchProvider interface {
	Search(ctx context.Context, query string, count int) ([]string, error)
}

type GrammarChecker interface {
	Correct(ctx context.Context, text string) (string, error)
}

type Embedder interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

type Memory interface {
	Remember(ctx context.Context, sessionID string, page models.PageRecord) error
	Recall(ctx context.Context, query string, limit int) ([]models.PageRecord, error)
	Close()
}
