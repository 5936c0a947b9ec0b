package common

import (
	"context"
	"strings"

	"databank/internal/errors"
)

// CommandConfig is assumed to be defined elsewhere in the common package.

// JobOperationFunc is a generic signature for any backend operation that
// takes the job description and produces a printable result.
type JobOperationFunc[Output any] func(context.Context, string) (Output, error)

// RunJobCommand encapsulates the common logic for commands that read a job
// description from a file and send it to a backend operation: read and
// validate the file, run the operation, format and write the result.
func RunJobCommand[Output any](
	ctx context.Context,
	logger *errors.Logger,
	cmdConfig CommandConfig,
	maxFileSize int64,
	jobDescriptionFile string,
	operation JobOperationFunc[Output],
) error {
	fileProcessor := NewFileProcessor(logger)
	fileProcessor.MaxFileSize = maxFileSize
	outputHandler := NewOutputHandler(logger)

	contents, err := fileProcessor.ValidateAndReadFiles(jobDescriptionFile)
	if err != nil {
		return err
	}

	jobDescription := contents[0]
	if strings.TrimSpace(jobDescription) == "" {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"job description file is empty", nil)
	}

	result, err := operation(ctx, jobDescription)
	if err != nil {
		return err
	}

	return outputHandler.HandleOutput(result, cmdConfig)
}
