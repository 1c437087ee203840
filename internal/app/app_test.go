package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/webqa/pkg/config"
	"github.com/xhad/webqa/pkg/scraper"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	for _, key := range []string{"OLLAMA_BASE_URL", "OPENAI_API_KEY", "DATABASE_URL", "WEBQA_LOG_LEVEL"} {
		t.Setenv(key, "")
	}
	t.Setenv("HOME", t.TempDir())
	cfg, err := config.LoadConfig("")
	require.NoError(t, err)
	return cfg
}

func TestResearchConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Research.MaxPages = 4
	cfg.Fetcher.IgnorePatterns = []string{"/login"}

	rc := ResearchConfig(cfg)
	assert.Equal(t, 4, rc.MaxPages)
	assert.Equal(t, 5, rc.SearchResults)
	assert.Equal(t, 2000, rc.Narrow.WindowSize)
	assert.Equal(t, 1800, rc.Narrow.Stride)
	assert.Equal(t, 10000, rc.Broad.WindowSize)
	assert.Equal(t, 8000, rc.Broad.Stride)
	assert.False(t, rc.Filter.Allow("https://example.com/login"))
	assert.True(t, rc.Filter.Allow("https://example.com/pricing"))
}

func TestBuild(t *testing.T) {
	cfg := testConfig(t)
	cfg.Grammar.Enabled = true

	a, err := Build(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.Researcher)
	assert.Nil(t, a.Memory)
	assert.Equal(t, 1, a.Researcher.Config().MaxPages)
}

func TestBuildBrowserFetcher(t *testing.T) {
	cfg := testConfig(t)
	cfg.Fetcher.Mode = "browser"

	a, err := Build(context.Background(), cfg, nil)
	require.NoError(t, err)

	_, ok := a.fetcher(cfg).(*scraper.Browser)
	assert.True(t, ok)
	a.Close()
	assert.Empty(t, a.closers)
}

func TestBuildRejectsBadModelConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.LLM.Temperature = 5

	_, err := Build(context.Background(), cfg, nil)
	assert.ErrorContains(t, err, "failed to initialize chat engine")
}
