package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cfgPkg "github.com/xhad/webqa/pkg/config"
)

func TestApplyOverrides(t *testing.T) {
	var o flagOverrides
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().StringVar(&o.Model, "model", "", "")
	cmd.Flags().StringVar(&o.BaseURL, "ollama-url", "", "")
	cmd.Flags().StringVar(&o.DBUrl, "db-url", "", "")
	cmd.Flags().IntVar(&o.MaxPages, "max-pages", 0, "")
	cmd.Flags().IntVar(&o.Concurrency, "concurrency", 0, "")
	cmd.Flags().BoolVar(&o.Browser, "browser", false, "")
	cmd.Flags().BoolVar(&o.DisableCritique, "no-critique", false, "")
	require.NoError(t, cmd.Flags().Parse([]string{"--model", "llama3", "--max-pages", "3", "--browser"}))

	c := &cfgPkg.Config{}
	c.LLM.BaseURL = "http://localhost:11434"
	c.Fetcher.Mode = "http"
	c.Research.Concurrency = 2

	applyOverrides(cmd, c, o)

	assert.Equal(t, "llama3", c.LLM.Model)
	assert.Equal(t, 3, c.Research.MaxPages)
	assert.Equal(t, "browser", c.Fetcher.Mode)
	assert.Equal(t, "http://localhost:11434", c.LLM.BaseURL)
	assert.Equal(t, 2, c.Research.Concurrency)
	assert.False(t, c.Research.DisableCritique)
}

func TestCommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["ask"])
	assert.True(t, names["serve"])
	assert.True(t, names["history"])
}
