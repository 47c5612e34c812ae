package common

import (
	"context"
	"fmt"

	"careerkit/internal/ai"
	"careerkit/internal/errors"
)

// CreateInputFunc defines how to create the specific AI input from file contents.
type CreateInputFunc[Input any] func(contents []string) (Input, error)

// LogDetailsFunc defines how to log the start of an operation.
type LogDetailsFunc[Input any] func(input Input, cfg CommandConfig)

// AIOperationFunc is a generic function signature for any AI operation with context and token usage.
type AIOperationFunc[Input, Output any] func(context.Context, Input) (Output, *ai.TokenUsage, error)

// QueryFunc fetches one result from the backend
type QueryFunc[Output any] func(context.Context) (Output, error)

// RunAICommand reads the input files, runs an AI operation on them, reports
// token usage and writes the formatted result.
func RunAICommand[Input, Output any](
	ctx context.Context,
	logger *errors.Logger,
	cmdConfig CommandConfig,
	args []string,
	createInput CreateInputFunc[Input],
	aiOperation AIOperationFunc[Input, Output],
	logDetails LogDetailsFunc[Input],
) error {
	if logger == nil {
		logger = errors.Discard()
	}
	fileProcessor := NewFileProcessor(logger)

	contents, err := fileProcessor.ValidateAndReadFiles(cmdConfig.MaxFileSize, args...)
	if err != nil {
		return err
	}

	input, err := createInput(contents)
	if err != nil {
		return fmt.Errorf("failed to create input from file contents: %w", err)
	}

	if logDetails != nil {
		logDetails(input, cmdConfig)
	}

	result, tokenUsage, err := aiOperation(ctx, input)
	if err != nil {
		return err
	}

	if tokenUsage != nil {
		logger.Info("AI token usage",
			"input_tokens", tokenUsage.InputTokens,
			"output_tokens", tokenUsage.OutputTokens,
			"total_tokens", tokenUsage.TotalTokens)
	}

	return NewOutputHandler(logger).HandleOutput(result, cmdConfig)
}

// RunQuery runs a backend read and writes the formatted result
func RunQuery[Output any](ctx context.Context, logger *errors.Logger, cmdConfig CommandConfig, query QueryFunc[Output]) error {
	result, err := query(ctx)
	if err != nil {
		return err
	}
	return NewOutputHandler(logger).HandleOutput(result, cmdConfig)
}
