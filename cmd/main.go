package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/xhad/webqa/internal/logging"
	cfgPkg "github.com/xhad/webqa/pkg/config"
	"go.uber.org/zap"
)

var (
	// Global flags
	configPath string
	overrides  flagOverrides
	verbose    bool
	timeout    time.Duration

	cfg    *cfgPkg.Config
	logger *zap.Logger
)

// flagOverrides are the config values that can be set from the command line.
type flagOverrides struct {
	Model           string
	BaseURL         string
	DBUrl           string
	MaxPages        int
	Concurrency     int
	Browser         bool
	DisableCritique bool
}

var rootCmd = &cobra.Command{
	Use:   "webqa",
	Short: "Answer questions by researching live web pages",
	Long: `webqa searches the web for a question, reads the most promising pages,
drafts an answer per chunk of each page, critiques and revises the drafts and
combines them into a final answer.

Run without arguments to start the interactive chat.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = cfgPkg.LoadConfig(configPath)
		if err != nil {
			return err
		}
		applyOverrides(cmd, cfg, overrides)
		if verbose {
			cfg.Logging.Level = "debug"
		}

		if errs := cfg.Validate(); len(errs) > 0 {
			for _, e := range errs {
				color.Red("config: %s", e.Error())
			}
			return fmt.Errorf("invalid configuration (%d errors)", len(errs))
		}

		color.NoColor = color.NoColor || cfg.UI.NoColor
		logger, err = logging.New(cfg.Logging.Level, cfg.Logging.Format)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&overrides.Model, "model", "", "LLM model to use")
	rootCmd.PersistentFlags().StringVar(&overrides.BaseURL, "ollama-url", "", "Ollama server URL")
	rootCmd.PersistentFlags().StringVar(&overrides.DBUrl, "db-url", "", "PostgreSQL connection string for page memory")
	rootCmd.PersistentFlags().IntVar(&overrides.MaxPages, "max-pages", 0, "Maximum number of pages to read per question")
	rootCmd.PersistentFlags().IntVar(&overrides.Concurrency, "concurrency", 0, "Chunk answers drafted in parallel")
	rootCmd.PersistentFlags().BoolVar(&overrides.Browser, "browser", false, "Fetch pages with a headless browser")
	rootCmd.PersistentFlags().BoolVar(&overrides.DisableCritique, "no-critique", false, "Skip the critique and revision step")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Minute, "Time limit per question")

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(historyCmd)
}

// applyOverrides copies the flags the user actually set onto the config.
func applyOverrides(cmd *cobra.Command, c *cfgPkg.Config, o flagOverrides) {
	flags := cmd.Flags()
	if flags.Changed("model") {
		c.LLM.Model = o.Model
	}
	if flags.Changed("ollama-url") {
		c.LLM.BaseURL = o.BaseURL
		c.Embedder.BaseURL = o.BaseURL
	}
	if flags.Changed("db-url") {
		c.Database.URL = o.DBUrl
	}
	if flags.Changed("max-pages") {
		c.Research.MaxPages = o.MaxPages
	}
	if flags.Changed("concurrency") {
		c.Research.Concurrency = o.Concurrency
	}
	if flags.Changed("browser") && o.Browser {
		c.Fetcher.Mode = "browser"
	}
	if flags.Changed("no-critique") {
		c.Research.DisableCritique = o.DisableCritique
	}
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionSetWriter(os.Stderr),
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
