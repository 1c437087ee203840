package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type LLMConfig struct {
	Provider    string        `yaml:"provider"`
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"api_key"`
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature float64       `yaml:"temperature"`
	Retries     int           `yaml:"retries"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
	RateLimit   float64       `yaml:"rate_limit"`
	LogDir      string        `yaml:"log_dir"`
}

type EmbedderConfig struct {
	Provider string `yaml:"provider"`
	BaseURL  string `yaml:"base_url"`
	Model    string `yaml:"model"`
}

type DatabaseConfig struct {
	URL       string `yaml:"url"`
	TableName string `yaml:"table_name"`
	VectorDim int    `yaml:"vector_dim"`
}

type FetcherConfig struct {
	Mode              string        `yaml:"mode"` // http or browser
	RateLimit         float64       `yaml:"rate_limit"`
	Timeout           time.Duration `yaml:"timeout"`
	UserAgent         string        `yaml:"user_agent"`
	ControlURL        string        `yaml:"control_url"`
	ShowBrowser       bool          `yaml:"show_browser"`
	RemoveSelectors   []string      `yaml:"remove_selectors"`
	IgnorePatterns    []string      `yaml:"ignore_patterns"`
	AllowedExtensions []string      `yaml:"allowed_extensions"`
}

type SearchConfig struct {
	Endpoint string `yaml:"endpoint"`
	Results  int    `yaml:"results"`
}

type GrammarConfig struct {
	Enabled  bool   `yaml:"enabled"`
	URL      string `yaml:"url"`
	Language string `yaml:"language"`
}

type ChunkingConfig struct {
	NarrowWindow  int `yaml:"narrow_window"`
	NarrowStride  int `yaml:"narrow_stride"`
	BroadWindow   int `yaml:"broad_window"`
	BroadStride   int `yaml:"broad_stride"`
	SummaryWindow int `yaml:"summary_window"`
	ListWindow    int `yaml:"list_window"`
	ListThreshold int `yaml:"list_threshold"`
}

type ResearchConfig struct {
	MaxPages         int  `yaml:"max_pages"`
	LinkBatchSize    int  `yaml:"link_batch_size"`
	Concurrency      int  `yaml:"concurrency"`
	DisableCritique  bool `yaml:"disable_critique"`
	CritiqueAttempts int  `yaml:"critique_attempts"`
	FailFast         bool `yaml:"fail_fast"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type UIConfig struct {
	NoColor bool   `yaml:"no_color"`
	Theme   string `yaml:"theme"`
}

type Config struct {
	LLM      LLMConfig      `yaml:"llm"`
	Embedder EmbedderConfig `yaml:"embedder"`
	Database DatabaseConfig `yaml:"database"`
	Fetcher  FetcherConfig  `yaml:"fetcher"`
	Search   SearchConfig   `yaml:"search"`
	Grammar  GrammarConfig  `yaml:"grammar"`
	Chunking ChunkingConfig `yaml:"chunking"`
	Research ResearchConfig `yaml:"research"`
	Logging  LoggingConfig  `yaml:"logging"`
	Server   ServerConfig   `yaml:"server"`
	UI       UIConfig       `yaml:"ui"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/webqa/config.yaml"),
			"/etc/webqa/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	// Merge with environment variables
	mergeWithEnv(&config)

	// Apply defaults for unset values
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	mergeWithEnv(config)
	applyDefaults(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.LLM.Provider == "" {
		config.LLM.Provider = "ollama"
	}
	if config.LLM.Model == "" {
		config.LLM.Model = "mistral"
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 2000
	}
	if config.LLM.Temperature == 0 {
		config.LLM.Temperature = 0.7
	}
	if config.LLM.BaseURL == "" && config.LLM.Provider == "ollama" {
		config.LLM.BaseURL = "http://localhost:11434"
	}
	if config.LLM.Retries == 0 {
		config.LLM.Retries = 5
	}
	if config.LLM.RetryDelay == 0 {
		config.LLM.RetryDelay = time.Second
	}

	if config.Embedder.Provider == "" {
		config.Embedder.Provider = config.LLM.Provider
	}
	if config.Embedder.BaseURL == "" {
		config.Embedder.BaseURL = config.LLM.BaseURL
	}
	if config.Embedder.Model == "" && config.Embedder.Provider == "ollama" {
		config.Embedder.Model = "nomic-embed-text:latest"
	}

	if config.Database.TableName == "" {
		config.Database.TableName = "pages"
	}
	if config.Database.VectorDim == 0 {
		config.Database.VectorDim = 768
	}

	if config.Fetcher.Mode == "" {
		config.Fetcher.Mode = "http"
	}
	if config.Fetcher.RateLimit == 0 {
		config.Fetcher.RateLimit = 2.0
	}
	if config.Fetcher.Timeout == 0 {
		config.Fetcher.Timeout = 30 * time.Second
	}
	if len(config.Fetcher.AllowedExtensions) == 0 {
		config.Fetcher.AllowedExtensions = []string{".html", ".htm", ".php", ".asp", ".aspx", "/", ""}
	}

	if config.Search.Results == 0 {
		config.Search.Results = 5
	}

	if config.Grammar.URL == "" {
		config.Grammar.URL = "http://localhost:8081"
	}
	if config.Grammar.Language == "" {
		config.Grammar.Language = "en-US"
	}

	if config.Chunking.NarrowWindow == 0 {
		config.Chunking.NarrowWindow = 2000
	}
	if config.Chunking.NarrowStride == 0 {
		config.Chunking.NarrowStride = 1800
	}
	if config.Chunking.BroadWindow == 0 {
		config.Chunking.BroadWindow = 10000
	}
	if config.Chunking.BroadStride == 0 {
		config.Chunking.BroadStride = 8000
	}
	if config.Chunking.SummaryWindow == 0 {
		config.Chunking.SummaryWindow = 20000
	}
	if config.Chunking.ListWindow == 0 {
		config.Chunking.ListWindow = 2000
	}
	if config.Chunking.ListThreshold == 0 {
		config.Chunking.ListThreshold = 5
	}

	if config.Research.MaxPages == 0 {
		config.Research.MaxPages = 1
	}
	if config.Research.LinkBatchSize == 0 {
		config.Research.LinkBatchSize = 50
	}
	if config.Research.Concurrency == 0 {
		config.Research.Concurrency = 1
	}
	if config.Research.CritiqueAttempts == 0 {
		config.Research.CritiqueAttempts = 3
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}
	if config.Logging.Format == "" {
		config.Logging.Format = "console"
	}

	if config.Server.Addr == "" {
		config.Server.Addr = ":8080"
	}

	if config.UI.Theme == "" {
		config.UI.Theme = "default"
	}
}

func mergeWithEnv(config *Config) {
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
	}
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.LLM.APIKey = apiKey
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
	if level := os.Getenv("WEBQA_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}
