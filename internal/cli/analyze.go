package cli

import (
	"context"
	"fmt"

	"pmtailor/internal/common"
	"pmtailor/internal/engine"
	"pmtailor/internal/jobtext"
	"pmtailor/internal/types"

	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [job-source]",
	Short: "Analyze a job description for PM keywords and requirements",
	Long: `Analyze a job description against the product management keyword
vocabulary. The job source can be a local text file or an http(s) URL.

The analysis includes:
- Matched keywords grouped by category
- Company, industry, and experience hints extracted from the text
- Key requirements pulled from the requirements section`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		// Apply default format if not specified
		if analyzeConfig.OutputFormat == "" {
			analyzeConfig.OutputFormat = cfg.App.DefaultFormat
		}
		// Validate format against supported formats
		return common.ValidateOutputFormat(analyzeConfig.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runAnalyze,
}

var analyzeConfig common.CommandConfig

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	analyzeCmd.Flags().StringVar(&analyzeConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")

	// Add completion for format flag
	_ = analyzeCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg := getConfigFromContext(cmd.Context())
		return common.GetSupportedFormats(cfg.App.SupportedFormats), cobra.ShellCompDirectiveNoFileComp
	})
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	eng := engine.New(cfg.Engine, logger)
	fetcher := jobtext.NewFetcher(cfg.Fetch, logger)

	loadInput := func(ctx context.Context) (string, error) {
		return fetcher.Load(ctx, args[0])
	}

	logDetails := func(jobText string, cfg common.CommandConfig) {
		logger.Info("Starting job description analysis",
			"job_chars", len(jobText),
			"output_format", cfg.OutputFormat)
	}

	analyzeOperation := func(ctx context.Context, jobText string) (types.AnalyzeJobOutput, *common.RunStats, error) {
		result := eng.AnalyzeJob(jobText)
		stats := &common.RunStats{KeywordMatches: result.TotalMatches}
		return result, stats, nil
	}

	err := common.RunEngineCommand(
		cmd.Context(),
		logger,
		analyzeConfig,
		loadInput,
		analyzeOperation,
		logDetails,
	)

	if err != nil {
		return fmt.Errorf("failed to analyze job description: %w", err)
	}
	logger.Info("Job description analysis completed successfully")
	return nil
}
