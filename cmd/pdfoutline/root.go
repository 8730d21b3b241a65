package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgallion1/pdfoutline/internal/config"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string

	logger = slog.Default()
)

var rootCmd = &cobra.Command{
	Use:   "pdfoutline",
	Short: "Extract titles and heading outlines from PDF documents",
	Long: `pdfoutline reads a PDF and produces its title plus an H1-H3 outline
with page numbers, using font size statistics rather than embedded bookmarks.

Running headers, footers and page stamps are filtered out before heading
levels are assigned. Markdown, HTML and DOCX inputs are read from their own
heading markup.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := newLogger(logLevel, logFormat)
		if err != nil {
			return usageError{err}
		}
		logger = l
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./pdfoutline.yaml or ~/.pdfoutline/pdfoutline.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "info", "log level: debug, info, warn or error",
	)
	rootCmd.PersistentFlags().StringVar(
		&logFormat, "log-format", "text", "log format: text or json",
	)
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError{err}
	})
}

// newLogger builds the process logger. Logs go to stderr so that stdout
// stays usable for output.
func newLogger(level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "text", "":
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil
	}
	return nil, fmt.Errorf("invalid log format %q", format)
}

// loadConfig reads the configuration named by --config, or the default
// search path.
func loadConfig() (*config.Manager, error) {
	mgr, err := config.NewManager(cfgFile, logger)
	if err != nil {
		return nil, &exitError{code: exitInternal, err: err}
	}
	if f := mgr.ConfigFile(); f != "" {
		logger.Debug("config loaded", "file", f)
	}
	return mgr, nil
}

// exactArgs is cobra.ExactArgs reporting a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}
