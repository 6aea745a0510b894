// Package cmd provides the askdoc CLI commands.
//
// Commands:
//   - index: parse a PDF, chunk it, embed it and build the vector index
//   - ask: answer a question grounded in the indexed document
//   - status: show the state of the vector index
//   - version: show version information
//
// All commands cancel cleanly on SIGINT/SIGTERM via context cancellation.
package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/askdoc/askdoc/internal/app"
	"github.com/askdoc/askdoc/internal/config"
	"github.com/askdoc/askdoc/internal/log"
)

var flagJSON bool

var rootCmd = &cobra.Command{
	Use:   "askdoc",
	Short: "askdoc - ask questions about your PDF documents",
	Long: `askdoc answers questions grounded in a PDF document.

Index a document once, then ask as many questions as you like:

  askdoc index report.pdf
  askdoc ask "What were the Q3 findings?"

Answers cite the pages they come from and refuse rather than guess
when the document doesn't cover the question.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "emit machine-readable JSON output")
}

// signalContext returns a context that cancels on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// newLogger builds the CLI logger. Logs go to stderr so stdout stays clean
// for answers and JSON output. DEBUG enables debug level.
func newLogger() log.Logger {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	return log.New(log.Config{Level: level})
}

// setupApp loads configuration and assembles the application.
func setupApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return app.Setup(ctx, cfg, newLogger())
}
