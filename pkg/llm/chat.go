package llm

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrorPrefix starts the text returned in place of a completion once every
// retry has failed.
const ErrorPrefix = "LLM error: "

var (
	lineBreaks = regexp.MustCompile(`[\r\n]+`)
	blanks     = regexp.MustCompile(`[\t ]+`)
)

// ChatConfig represents the configuration for a chat engine.
type ChatConfig struct {
	Provider    string // "ollama" or "openai"
	Model       string
	BaseURL     string
	APIKey      string
	Temperature float64
	MaxTokens   int
	Retries     int
	RetryDelay  time.Duration
	RateLimit   float64 // calls per second, 0 means unlimited
	LogDir      string  // exchange log directory, empty disables it
}

// ChatEngine completes prompts against a language model. It never fails:
// when the model keeps erroring it returns text starting with ErrorPrefix.
type ChatEngine struct {
	config    ChatConfig
	llm       llms.Model
	limiter   *rate.Limiter
	exchanges *ExchangeLog
	logger    *zap.Logger
}

// NewWithConfig creates a new ChatEngine with the given configuration.
func NewWithConfig(config ChatConfig, logger *zap.Logger) (*ChatEngine, error) {
	config, err := withDefaults(config)
	if err != nil {
		return nil, err
	}

	model, err := NewModel(config)
	if err != nil {
		return nil, err
	}

	return NewWithModel(model, config, logger)
}

// NewWithModel wraps an already constructed model.
func NewWithModel(model llms.Model, config ChatConfig, logger *zap.Logger) (*ChatEngine, error) {
	config, err := withDefaults(config)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ce := &ChatEngine{
		config: config,
		llm:    model,
		logger: logger,
	}
	if config.RateLimit > 0 {
		ce.limiter = rate.NewLimiter(rate.Limit(config.RateLimit), 1)
	}
	if config.LogDir != "" {
		ce.exchanges, err = NewExchangeLog(config.LogDir)
		if err != nil {
			return nil, err
		}
	}
	return ce, nil
}

func withDefaults(config ChatConfig) (ChatConfig, error) {
	if config.Provider == "" {
		config.Provider = "ollama"
	}
	if config.Model == "" {
		config.Model = "mistral" // Default Ollama model
	}
	if config.Temperature < 0 || config.Temperature > 2 {
		return config, fmt.Errorf("temperature must be between 0 and 2")
	}
	if config.MaxTokens < 0 {
		return config, fmt.Errorf("max tokens cannot be negative")
	} else if config.MaxTokens == 0 {
		config.MaxTokens = 2000
	}
	if config.Retries <= 0 {
		config.Retries = 5
	}
	if config.RetryDelay < 0 {
		config.RetryDelay = 0
	}
	return config, nil
}

// NewModel builds the langchaingo model for the configured provider.
func NewModel(config ChatConfig) (llms.Model, error) {
	switch config.Provider {
	case "", "ollama":
		opts := []ollama.Option{ollama.WithModel(config.Model)}
		if config.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(config.BaseURL))
		}
		model, err := ollama.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize LLM: %w", err)
		}
		return model, nil
	case "openai":
		opts := []openai.Option{openai.WithModel(config.Model)}
		if config.APIKey != "" {
			opts = append(opts, openai.WithToken(config.APIKey))
		}
		if config.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(config.BaseURL))
		}
		model, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize LLM: %w", err)
		}
		return model, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", config.Provider)
	}
}

// Complete sends a system and a user message and returns the model's reply
// with line breaks and runs of blanks collapsed.
func (ce *ChatEngine) Complete(ctx context.Context, system, user string) string {
	var lastErr error
	for attempt := 0; attempt < ce.config.Retries; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, Backoff(ce.config.RetryDelay, attempt-1)); err != nil {
				lastErr = err
				break
			}
		}

		text, err := ce.generate(ctx, system, user)
		if err == nil {
			ce.record(system, user, text)
			return text
		}
		lastErr = err
		ce.logger.Warn("llm call failed",
			zap.Int("attempt", attempt+1),
			zap.Int("retries", ce.config.Retries),
			zap.Error(err))
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			break
		}
	}

	text := ErrorPrefix + lastErr.Error()
	ce.logger.Error("llm retries exhausted", zap.Error(lastErr))
	ce.record(system, user, text)
	return text
}

func (ce *ChatEngine) generate(ctx context.Context, system, user string) (string, error) {
	if ce.limiter != nil {
		if err := ce.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, user),
	}

	response, err := ce.llm.GenerateContent(ctx, content,
		llms.WithTemperature(ce.config.Temperature),
		llms.WithMaxTokens(ce.config.MaxTokens),
	)
	if err != nil {
		return "", fmt.Errorf("chat error: %w", err)
	}
	if response == nil || len(response.Choices) == 0 || response.Choices[0] == nil {
		return "", errors.New("chat error: empty response")
	}

	text := lineBreaks.ReplaceAllString(response.Choices[0].Content, "\n")
	text = blanks.ReplaceAllString(text, " ")
	return strings.TrimSpace(text), nil
}

func (ce *ChatEngine) record(system, user, response string) {
	if ce.exchanges == nil {
		return
	}
	if _, err := ce.exchanges.Write(system, user, response); err != nil {
		ce.logger.Warn("failed to log exchange", zap.Error(err))
	}
}

// IsErrorText reports whether text is the placeholder returned after the
// model kept failing.
func IsErrorText(text string) bool {
	return strings.HasPrefix(text, ErrorPrefix)
}
