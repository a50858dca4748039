package common

import (
	"context"
	"fmt"

	"resumatch/internal/errors"
	"resumatch/internal/types"
)

// CreateInputFunc defines how to create the scoring input from file contents.
type CreateInputFunc func(contents []string) (types.ScoringInput, error)

// LogDetailsFunc defines how to log the start of an operation.
type LogDetailsFunc func(input types.ScoringInput, cfg CommandConfig)

// OperationFunc runs one engine operation on the input.
type OperationFunc[Output any] func(context.Context, types.ScoringInput) (Output, error)

// RunFileCommand reads the résumé and job description files, runs the
// operation and writes the formatted output.
func RunFileCommand[Output any](
	ctx context.Context,
	logger *errors.Logger,
	cmdConfig CommandConfig,
	args []string,
	createInput CreateInputFunc,
	operation OperationFunc[Output],
	logDetails LogDetailsFunc,
) error {
	return runFileCommand(ctx, logger, NewOutputHandler(logger), cmdConfig, args, createInput, operation, logDetails)
}

func runFileCommand[Output any](
	ctx context.Context,
	logger *errors.Logger,
	outputHandler *OutputHandler,
	cmdConfig CommandConfig,
	args []string,
	createInput CreateInputFunc,
	operation OperationFunc[Output],
	logDetails LogDetailsFunc,
) error {
	fileProcessor := NewFileProcessor(logger)
	fileProcessor.MaxFileSize = cmdConfig.MaxFileSize

	if err := fileProcessor.ValidateOutputFile(cmdConfig.OutputFile); err != nil {
		return err
	}

	contents, err := fileProcessor.ValidateAndReadFiles(args...)
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

	result, err := operation(ctx, input)
	if err != nil {
		return err
	}

	if usage := tokenUsage(result); usage != nil {
		logger.Info("AI token usage",
			"input_tokens", usage.InputTokens,
			"output_tokens", usage.OutputTokens,
			"total_tokens", usage.TotalTokens)
	}

	return outputHandler.HandleOutput(result, cmdConfig)
}

func tokenUsage(result any) *types.TokenUsage {
	if r, ok := result.(*types.ScoringResult); ok && r != nil && r.AIAnalysis != nil {
		return r.AIAnalysis.TokenUsage
	}
	return nil
}
