package common

import (
	"fmt"

	"pmtailor/internal/errors"
	"pmtailor/internal/formatters"
)

// CommandConfig carries the output flags shared by the CLI commands.
type CommandConfig struct {
	OutputFile   string
	OutputFormat string
}

// OutputHandler formats results and writes them to a file or stdout.
type OutputHandler struct {
	fileProcessor *FileProcessor
	registry      *formatters.FormatterRegistry
	logger        *errors.Logger
}

func NewOutputHandler(logger *errors.Logger) *OutputHandler {
	return &OutputHandler{
		fileProcessor: NewFileProcessor(logger),
		registry:      formatters.GlobalRegistry,
		logger:        logger,
	}
}

// HandleOutput formats data per config and delivers it. A missing output
// file means stdout.
func (oh *OutputHandler) HandleOutput(data any, config CommandConfig) error {
	if config.OutputFile != "" {
		if err := oh.fileProcessor.ValidateOutputFile(config.OutputFile); err != nil {
			return err
		}
	}

	formatted, err := oh.registry.Format(data, config.OutputFormat)
	if err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("failed to format output as %s", config.OutputFormat), err)
	}

	if config.OutputFile == "" {
		fmt.Print(formatted)
		return nil
	}

	if err := oh.fileProcessor.WriteFile(config.OutputFile, formatted); err != nil {
		return err
	}
	if oh.logger != nil {
		oh.logger.Info("Output written", "file", config.OutputFile, "format", config.OutputFormat)
	}
	return nil
}

// GetSupportedFormats lists the formats the registry can render.
func (oh *OutputHandler) GetSupportedFormats() []string {
	return oh.registry.GetSupportedFormats()
}
