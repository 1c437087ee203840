package llm_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"github.com/xhad/webqa/pkg/llm"
)

type scriptedModel struct {
	replies []string
	errs    []error
	calls   int
	last    []llms.MessageContent
}

func (m *scriptedModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	i := m.calls
	m.calls++
	m.last = messages
	if i < len(m.errs) && m.errs[i] != nil {
		return nil, m.errs[i]
	}
	reply := ""
	if i < len(m.replies) {
		reply = m.replies[i]
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: reply}}}, nil
}

func (m *scriptedModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func TestNewWithConfigValidation(t *testing.T) {
	_, err := llm.NewWithConfig(llm.ChatConfig{Temperature: 3}, nil)
	assert.Error(t, err)

	_, err = llm.NewWithConfig(llm.ChatConfig{MaxTokens: -1}, nil)
	assert.Error(t, err)

	_, err = llm.NewWithConfig(llm.ChatConfig{Provider: "carrier-pigeon"}, nil)
	assert.Error(t, err)
}

func TestNewWithConfigOllama(t *testing.T) {
	engine, err := llm.NewWithConfig(llm.ChatConfig{
		Model:       "testmodel",
		Temperature: 0.5,
		BaseURL:     "http://localhost:1234",
	}, nil)
	assert.NoError(t, err)
	assert.NotNil(t, engine)
}

func TestCompleteSendsSystemAndUser(t *testing.T) {
	model := &scriptedModel{replies: []string{"  Yes,\r\n\r\n it  is.\t "}}
	engine, err := llm.NewWithModel(model, llm.ChatConfig{}, nil)
	require.NoError(t, err)

	out := engine.Complete(context.Background(), "system text", "user text")

	assert.Equal(t, "Yes,\n it is.", out)
	require.Len(t, model.last, 2)
	assert.Equal(t, llms.ChatMessageTypeSystem, model.last[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, model.last[1].Role)
	assert.Equal(t, llms.TextContent{Text: "user text"}, model.last[1].Parts[0])
}

func TestCompleteRetriesThenSucceeds(t *testing.T) {
	model := &scriptedModel{
		errs:    []error{errors.New("boom"), errors.New("boom")},
		replies: []string{"", "", "done"},
	}
	engine, err := llm.NewWithModel(model, llm.ChatConfig{Retries: 5}, nil)
	require.NoError(t, err)

	assert.Equal(t, "done", engine.Complete(context.Background(), "s", "u"))
	assert.Equal(t, 3, model.calls)
}

func TestCompleteExhaustedReturnsErrorText(t *testing.T) {
	fail := errors.New("unavailable")
	model := &scriptedModel{errs: []error{fail, fail, fail}}
	engine, err := llm.NewWithModel(model, llm.ChatConfig{Retries: 3}, nil)
	require.NoError(t, err)

	out := engine.Complete(context.Background(), "s", "u")

	assert.True(t, llm.IsErrorText(out))
	assert.Contains(t, out, "unavailable")
	assert.Equal(t, 3, model.calls)
}

func TestCompleteStopsOnCancel(t *testing.T) {
	model := &scriptedModel{errs: []error{context.Canceled}}
	engine, err := llm.NewWithModel(model, llm.ChatConfig{Retries: 5}, nil)
	require.NoError(t, err)

	out := engine.Complete(context.Background(), "s", "u")

	assert.True(t, llm.IsErrorText(out))
	assert.Equal(t, 1, model.calls)
}

func TestCompleteWritesExchangeLog(t *testing.T) {
	dir := t.TempDir()
	model := &scriptedModel{replies: []string{"answer"}}
	engine, err := llm.NewWithModel(model, llm.ChatConfig{LogDir: dir}, nil)
	require.NoError(t, err)

	engine.Complete(context.Background(), "sys", "usr")

	files, err := filepath.Glob(filepath.Join(dir, "*_llm.txt"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	body, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Equal(t, []string{"sys", "usr", "answer"}, strings.Split(string(body), "\n\n==========\n\n"))
}

func TestBackoff(t *testing.T) {
	assert.Zero(t, llm.Backoff(0, 3))
	for attempt := 0; attempt < 10; attempt++ {
		d := llm.Backoff(1e9, attempt)
		assert.GreaterOrEqual(t, int64(d), int64(1e9))
		assert.LessOrEqual(t, int64(d), int64(45e9))
	}
}
