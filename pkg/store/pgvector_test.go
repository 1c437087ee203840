package store

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/webqa/internal/models"
)

// hashEmbedder maps text onto a fixed-size vector without a model.
type hashEmbedder struct {
	dim int
}

func (h hashEmbedder) CreateEmbedding(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v := make([]float32, h.dim)
		for j, r := range text {
			v[(j+int(r))%h.dim] += 1
		}
		v[0] += 0.001
		out[i] = v
	}
	return out, nil
}

func TestSanitizeUTF8(t *testing.T) {
	assert.Equal(t, "plain", sanitizeUTF8("plain"))
	assert.Equal(t, "ab", sanitizeUTF8("a\xffb"))
	assert.Equal(t, "héllo", sanitizeUTF8("héllo"))
}

func TestInvalidTableName(t *testing.T) {
	_, err := NewWithConfig(context.Background(), VectorStoreConfig{TableName: "pages; DROP TABLE x"}, hashEmbedder{dim: 8})
	assert.ErrorContains(t, err, "invalid table name")
}

func TestVectorStore(t *testing.T) {
	connString := os.Getenv("DATABASE_URL")
	if connString == "" {
		t.Skip("DATABASE_URL not set")
	}

	ctx := context.Background()
	s, err := NewWithConfig(ctx, VectorStoreConfig{
		ConnString: connString,
		TableName:  "test_pages",
		VectorDim:  16,
	}, hashEmbedder{dim: 16})
	require.NoError(t, err)
	defer s.Close()

	page := models.PageRecord{
		URL:     "https://example.com/pricing",
		Title:   "Pricing",
		Summary: "Plans start at ten dollars a month.",
		Answers: []string{"Ten dollars."},
	}
	require.NoError(t, s.Remember(ctx, "session-1", page))

	results, err := s.Recall(ctx, "Pricing\nPlans start at ten dollars a month.", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, page.URL, results[0].URL)
	assert.Equal(t, page.Title, results[0].Title)
}

func TestEmbedDimensionMismatch(t *testing.T) {
	vs := &VectorStore{config: VectorStoreConfig{VectorDim: 4}, embedder: hashEmbedder{dim: 8}}
	_, err := vs.embed(context.Background(), "text")
	assert.ErrorContains(t, err, "8 dimensions")
}
