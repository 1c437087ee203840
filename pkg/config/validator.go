package config

import (
	"fmt"
	"net/url"
	"strings"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate LLM config
	switch c.LLM.Provider {
	case "ollama":
		if c.LLM.BaseURL == "" {
			errors = append(errors, ValidationError{
				Field:   "llm.base_url",
				Message: "Ollama base URL is required",
			})
		}
	case "openai":
		if c.LLM.APIKey == "" {
			errors = append(errors, ValidationError{
				Field:   "llm.api_key",
				Message: "an API key is required for openai",
			})
		}
	default:
		errors = append(errors, ValidationError{
			Field:   "llm.provider",
			Message: fmt.Sprintf("unknown provider: %s", c.LLM.Provider),
		})
	}

	if c.LLM.BaseURL != "" && !isHTTPURL(c.LLM.BaseURL) {
		errors = append(errors, ValidationError{
			Field:   "llm.base_url",
			Message: "invalid base URL",
		})
	}

	if c.LLM.MaxTokens < 1 || c.LLM.MaxTokens > 32768 {
		errors = append(errors, ValidationError{
			Field:   "llm.max_tokens",
			Message: "max_tokens must be between 1 and 32768",
		})
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errors = append(errors, ValidationError{
			Field:   "llm.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}

	if c.LLM.Retries < 1 {
		errors = append(errors, ValidationError{
			Field:   "llm.retries",
			Message: "retries must be positive",
		})
	}

	// Validate Database config
	if c.Database.URL != "" {
		if u, err := url.Parse(c.Database.URL); err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
			errors = append(errors, ValidationError{
				Field:   "database.url",
				Message: "invalid database URL",
			})
		}
	}

	if c.Database.VectorDim < 1 {
		errors = append(errors, ValidationError{
			Field:   "database.vector_dim",
			Message: "vector_dim must be positive",
		})
	}

	// Validate Fetcher config
	if c.Fetcher.Mode != "http" && c.Fetcher.Mode != "browser" {
		errors = append(errors, ValidationError{
			Field:   "fetcher.mode",
			Message: "mode must be http or browser",
		})
	}

	if c.Fetcher.RateLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "fetcher.rate_limit",
			Message: "rate_limit must be positive",
		})
	}

	// Validate extensions format
	for _, ext := range c.Fetcher.AllowedExtensions {
		if !strings.HasPrefix(ext, ".") && ext != "" && ext != "/" {
			errors = append(errors, ValidationError{
				Field:   "fetcher.allowed_extensions",
				Message: fmt.Sprintf("invalid extension format: %s", ext),
			})
		}
	}

	if c.Grammar.Enabled && !isHTTPURL(c.Grammar.URL) {
		errors = append(errors, ValidationError{
			Field:   "grammar.url",
			Message: "invalid LanguageTool URL",
		})
	}

	// Validate Chunking config
	for _, w := range []struct {
		field          string
		window, stride int
	}{
		{"chunking.narrow", c.Chunking.NarrowWindow, c.Chunking.NarrowStride},
		{"chunking.broad", c.Chunking.BroadWindow, c.Chunking.BroadStride},
	} {
		if w.window < 1 {
			errors = append(errors, ValidationError{
				Field:   w.field + "_window",
				Message: "window must be positive",
			})
		}
		if w.stride < 0 || w.stride > w.window {
			errors = append(errors, ValidationError{
				Field:   w.field + "_stride",
				Message: "stride must be non-negative and at most the window",
			})
		}
	}

	if c.Chunking.ListThreshold < 2 {
		errors = append(errors, ValidationError{
			Field:   "chunking.list_threshold",
			Message: "list_threshold must be at least 2",
		})
	}

	// Validate Research config
	if c.Research.MaxPages < 1 {
		errors = append(errors, ValidationError{
			Field:   "research.max_pages",
			Message: "max_pages must be positive",
		})
	}

	if c.Research.Concurrency < 1 {
		errors = append(errors, ValidationError{
			Field:   "research.concurrency",
			Message: "concurrency must be positive",
		})
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Message: "format must be json or console",
		})
	}

	return errors
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
