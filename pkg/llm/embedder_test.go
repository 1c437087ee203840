package llm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/webqa/pkg/llm"
)

type fixedEmbeddings struct {
	err error
}

func (f fixedEmbeddings) CreateEmbedding(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i), 1}
	}
	return out, nil
}

func TestNewEmbedderWithConfig(t *testing.T) {
	emb, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{BaseURL: "http://localhost:11434"})
	require.NoError(t, err)
	assert.Equal(t, "nomic-embed-text:latest", emb.Config.Model)

	_, err = llm.NewEmbedderWithConfig(llm.EmbedderConfig{Provider: "nope"})
	assert.Error(t, err)
}

func TestCreateEmbedding(t *testing.T) {
	emb := llm.NewEmbedderWithModel(fixedEmbeddings{})

	vectors, err := emb.CreateEmbedding(context.Background(), []string{"first chunk", "second chunk"})
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1, 1, 1}, llm.FlattenEmbeddings(vectors))

	emb = llm.NewEmbedderWithModel(fixedEmbeddings{err: errors.New("down")})
	_, err = emb.CreateEmbedding(context.Background(), []string{"x"})
	assert.ErrorContains(t, err, "down")
}
