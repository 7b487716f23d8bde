package common

import (
	"context"
	"fmt"
	"os"

	"pmtailor/internal/errors"
)

// RunStats summarizes one engine run for reporting.
type RunStats struct {
	KeywordMatches      int
	ExperiencesSelected int
}

// LoadInputFunc loads and assembles the operation input. Implementations
// own their I/O (profile files, local job files, remote job URLs).
type LoadInputFunc[Input any] func(ctx context.Context) (Input, error)

// LogDetailsFunc defines how to log the start of an operation.
type LogDetailsFunc[Input any] func(input Input, cfg CommandConfig)

// EngineOperationFunc is a generic signature for an engine operation with
// run statistics.
type EngineOperationFunc[Input, Output any] func(context.Context, Input) (Output, *RunStats, error)

// RunEngineCommand encapsulates the common logic for CLI commands that load
// inputs, run one engine operation, and write the formatted result.
func RunEngineCommand[Input, Output any](
	ctx context.Context,
	logger *errors.Logger,
	cmdConfig CommandConfig,
	loadInput LoadInputFunc[Input],
	operation EngineOperationFunc[Input, Output],
	logDetails LogDetailsFunc[Input],
) error {
	outputHandler := NewOutputHandler(logger)

	input, err := loadInput(ctx)
	if err != nil {
		return err
	}

	logDetails(input, cmdConfig)

	result, stats, err := operation(ctx, input)
	if err != nil {
		return err
	}

	if stats != nil {
		if logger != nil {
			logger.Info("engine run completed",
				"keyword_matches", stats.KeywordMatches,
				"experiences_selected", stats.ExperiencesSelected)
		} else {
			fmt.Fprintf(os.Stderr, "engine run: matches=%d, experiences=%d\n",
				stats.KeywordMatches, stats.ExperiencesSelected)
		}
	}

	return outputHandler.HandleOutput(result, cmdConfig)
}
