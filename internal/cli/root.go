package cli

import (
	"context"

	"pmtailor/internal/config"
	"pmtailor/internal/errors"

	"github.com/spf13/cobra"
)

// Context keys for the config and logger shared across subcommands.
type configKeyType struct{}
type loggerKeyType struct{}

var (
	configKey = configKeyType{}
	loggerKey = loggerKeyType{}
)

var rootCmd = &cobra.Command{
	Use:   "pmtailor",
	Short: "A CLI tool for tailoring product management resumes",
	Long: `Pmtailor is a command-line tool that tailors product management
resumes for specific job descriptions. It matches a built-in PM keyword
vocabulary against the job text, scores and reorders experiences by
relevance, and reprioritizes skills to match what the job asks for.`,
}

func init() {
	rootCmd.AddCommand(tailorCmd, analyzeCmd, keywordsCmd, versionCmd, serveCmd)
}

// Execute runs the CLI with cfg and logger made available to every
// subcommand through the command context.
func Execute(ctx context.Context, cfg *config.Config, logger *errors.Logger) error {
	ctx = context.WithValue(ctx, configKey, cfg)
	ctx = context.WithValue(ctx, loggerKey, logger)
	rootCmd.SetContext(ctx)
	return rootCmd.Execute()
}

func getConfigFromContext(ctx context.Context) *config.Config {
	cfg, ok := ctx.Value(configKey).(*config.Config)
	if !ok {
		panic("config not found in context")
	}
	return cfg
}

func getLoggerFromContext(ctx context.Context) *errors.Logger {
	logger, ok := ctx.Value(loggerKey).(*errors.Logger)
	if !ok {
		panic("logger not found in context")
	}
	return logger
}
