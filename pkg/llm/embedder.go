package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// EmbedderConfig selects the model used to embed page summaries.
type EmbedderConfig struct {
	Provider string
	Model    string
	BaseURL  string
	APIKey   string
}

// EmbeddingModel is implemented by the langchaingo ollama and openai clients.
type EmbeddingModel interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// Embedder turns text into vectors for the page memory.
type Embedder struct {
	Config EmbedderConfig
	model  EmbeddingModel
}

func NewEmbedderWithConfig(config EmbedderConfig) (*Embedder, error) {
	if config.Provider == "" {
		config.Provider = "ollama"
	}
	if config.Model == "" {
		config.Model = "nomic-embed-text:latest" // Default Ollama model
	}

	var (
		model EmbeddingModel
		err   error
	)
	switch config.Provider {
	case "ollama":
		opts := []ollama.Option{ollama.WithModel(config.Model)}
		if config.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(config.BaseURL))
		}
		model, err = ollama.New(opts...)
	case "openai":
		opts := []openai.Option{openai.WithEmbeddingModel(config.Model)}
		if config.APIKey != "" {
			opts = append(opts, openai.WithToken(config.APIKey))
		}
		if config.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(config.BaseURL))
		}
		model, err = openai.New(opts...)
	default:
		return nil, fmt.Errorf("unknown embedder provider %q", config.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	return &Embedder{Config: config, model: model}, nil
}

// NewEmbedderWithModel wraps any model able to create embeddings.
func NewEmbedderWithModel(model EmbeddingModel) *Embedder {
	return &Embedder{model: model}
}

func (e *Embedder) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := e.model.CreateEmbedding(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}
	return vectors, nil
}

func FlattenEmbeddings(embeddings [][]float32) []float32 {
	var flattened []float32
	for _, emb := range embeddings {
		flattened = append(flattened, emb...)
	}
	return flattened
}
