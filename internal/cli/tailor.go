package cli

import (
	"context"
	"fmt"

	"pmtailor/internal/common"
	"pmtailor/internal/engine"
	"pmtailor/internal/jobtext"
	"pmtailor/internal/profile"
	"pmtailor/internal/types"

	"github.com/spf13/cobra"
)

var tailorCmd = &cobra.Command{
	Use:   "tailor [profile-file] [job-source]",
	Short: "Tailor a resume profile for a specific job description",
	Long: `Tailor a resume profile for a specific job description.
The command takes two arguments: the path to your profile file (JSON) and
the job description source. The job source can be a local text file or an
http(s) URL, in which case the posting is fetched and its text extracted.`,
	Args: cobra.ExactArgs(2),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		// Apply default format if not specified
		if tailorConfig.OutputFormat == "" {
			tailorConfig.OutputFormat = cfg.App.DefaultFormat
		}
		// Validate format against supported formats
		return common.ValidateOutputFormat(tailorConfig.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runTailor,
}

var tailorConfig common.CommandConfig

func init() {
	tailorCmd.Flags().StringVarP(&tailorConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	tailorCmd.Flags().StringVar(&tailorConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")

	// Add completion for format flag
	_ = tailorCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg := getConfigFromContext(cmd.Context())
		return common.GetSupportedFormats(cfg.App.SupportedFormats), cobra.ShellCompDirectiveNoFileComp
	})
}

// tailorInput carries the loaded profile and job description text.
type tailorInput struct {
	Profile types.Profile
	JobText string
}

func runTailor(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	eng := engine.New(cfg.Engine, logger)
	fetcher := jobtext.NewFetcher(cfg.Fetch, logger)

	loadInput := func(ctx context.Context) (tailorInput, error) {
		prof, err := profile.Load(args[0], logger)
		if err != nil {
			return tailorInput{}, err
		}
		if err := profile.Validate(prof); err != nil {
			return tailorInput{}, err
		}
		for _, warning := range profile.Lint(prof) {
			logger.Warn("Profile quality warning", "warning", warning)
		}

		jobText, err := fetcher.Load(ctx, args[1])
		if err != nil {
			return tailorInput{}, err
		}
		return tailorInput{Profile: prof, JobText: jobText}, nil
	}

	logDetails := func(input tailorInput, cfg common.CommandConfig) {
		logger.Info("Starting resume tailoring",
			"experience_count", len(input.Profile.Experiences),
			"job_chars", len(input.JobText),
			"output_format", cfg.OutputFormat)
	}

	tailorOperation := func(ctx context.Context, input tailorInput) (types.TailoredResume, *common.RunStats, error) {
		result, err := eng.Tailor(input.Profile, input.JobText)
		if err != nil {
			return types.TailoredResume{}, nil, err
		}
		stats := &common.RunStats{
			KeywordMatches:      len(result.MatchedKeywords),
			ExperiencesSelected: len(result.Experiences),
		}
		return result, stats, nil
	}

	err := common.RunEngineCommand(
		cmd.Context(),
		logger,
		tailorConfig,
		loadInput,
		tailorOperation,
		logDetails,
	)

	if err != nil {
		return fmt.Errorf("failed to tailor resume: %w", err)
	}
	logger.Info("Resume tailoring completed successfully")
	return nil
}
