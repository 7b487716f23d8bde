package cli

import (
	"pmtailor/internal/common"
	"pmtailor/internal/engine"

	"github.com/spf13/cobra"
)

var keywordsCmd = &cobra.Command{
	Use:   "keywords",
	Short: "Print the keyword vocabulary",
	Long: `Print the keyword vocabulary used for matching and scoring,
including any custom categories and weights from the configuration.
Keywords are listed in vocabulary order: built-in categories first,
then custom categories.`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		if keywordsConfig.OutputFormat == "" {
			keywordsConfig.OutputFormat = cfg.App.DefaultFormat
		}
		return common.ValidateOutputFormat(keywordsConfig.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runKeywords,
}

var keywordsConfig common.CommandConfig

func init() {
	keywordsCmd.Flags().StringVarP(&keywordsConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	keywordsCmd.Flags().StringVar(&keywordsConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")

	_ = keywordsCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg := getConfigFromContext(cmd.Context())
		return common.GetSupportedFormats(cfg.App.SupportedFormats), cobra.ShellCompDirectiveNoFileComp
	})
}

func runKeywords(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	vocab := engine.BuildVocabulary(cfg.Engine)
	logger.Debug("Built keyword vocabulary", "size", len(vocab))

	return common.NewOutputHandler(logger).HandleOutput(vocab, keywordsConfig)
}
