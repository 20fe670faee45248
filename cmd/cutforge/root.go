package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/cutforge/cutforge/internal/config"
)

var (
	configPath string
	verbose    bool
	quiet      bool
)

var rootCmd = &cobra.Command{
	Use:   "cutforge",
	Short: "Generate splice-detection training data from speech recordings",
	Long: `CutForge turns raw speech recordings into a labeled splice dataset.
For every recording it detects speech, transcribes it, asks an LLM which
words a careful editor would remove, and renders each cut three ways: a
clean splice at word boundaries and two unnatural variants that invade the
neighboring phonemes.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")
}

// setupLogging installs the default slog logger. The -v and -q flags
// override the configured level.
func setupLogging(level config.LogLevel) {
	lvl := slog.LevelInfo
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	}
	if verbose {
		lvl = slog.LevelDebug
	}
	if quiet {
		lvl = slog.LevelError
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
