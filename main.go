package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"prowriter/config"
)

var (
	configPath string
	verbose    bool

	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "prowriter",
	Short: "Outline, write and publish long-form articles with an LLM",
	Long: `prowriter turns a topic into a ten-section outline, writes each section
with a language model, and prepares SEO metadata before handing the article
to a publishing endpoint.

Drafts are saved automatically; starting the same topic again resumes the
stored draft instead of generating a new outline.`,
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		logger, err = newLogger(cfg.LogLevel, verbose)
		return err
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "path to config.yaml (default $PROWRITER_CONFIG or "+config.DefaultPath+")")
	pf.BoolVarP(&verbose, "verbose", "v", false, "enable debug logs")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(writeCmd)
	rootCmd.AddCommand(draftsCmd)
	rootCmd.AddCommand(metadataCmd)
	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(methodsCmd)
}

func configPathOrDefault() string {
	switch {
	case configPath != "":
		return configPath
	case os.Getenv("PROWRITER_CONFIG") != "":
		return os.Getenv("PROWRITER_CONFIG")
	}
	return config.DefaultPath
}

// newLogger builds a production zap logger; -v forces debug level.
func newLogger(level string, debug bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if level != "" {
		lvl, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return nil, fmt.Errorf("log_level: %w", err)
		}
		zc.Level = lvl
	}
	if debug {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	l, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return l, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
