package cli

import (
	"context"
	"fmt"

	"databank/internal/config"
	"databank/internal/errors"

	"github.com/spf13/cobra"
)

// Define custom private types for context keys.
type configKeyType struct{}
type loggerKeyType struct{}

// Use variables of these types as the keys.
var configKey = configKeyType{}
var loggerKey = loggerKeyType{}

var rootCmd = &cobra.Command{
	Use:   "databank",
	Short: "A CLI for managing your resume databank and generating tailored resumes",
	Long: `Databank is a command-line client for the resume databank backend.
You maintain a personal databank of skills, work experience, education,
projects, certifications and languages, then analyze job descriptions
against it and generate job-tailored resumes built only from records you
actually have.`,
}

func Execute(ctx context.Context, cfg *config.Config, logger *errors.Logger) error {
	// Attach the config and logger to the context, making them available to all subcommands
	ctx = context.WithValue(ctx, configKey, cfg)
	ctx = context.WithValue(ctx, loggerKey, logger)
	rootCmd.SetContext(ctx)
	return rootCmd.Execute()
}

// getConfigFromContext is a helper function to get config from context
func getConfigFromContext(ctx context.Context) (*config.Config, error) {
	if cfg, ok := ctx.Value(configKey).(*config.Config); ok {
		return cfg, nil
	}
	return nil, fmt.Errorf("configuration not found in command context")
}

// getLoggerFromContext is a helper function to get logger from context
func getLoggerFromContext(ctx context.Context) (*errors.Logger, error) {
	if logger, ok := ctx.Value(loggerKey).(*errors.Logger); ok {
		return logger, nil
	}
	return nil, fmt.Errorf("logger not found in command context")
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(coverageCmd)
	rootCmd.AddCommand(enhanceCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(resumesCmd)
	rootCmd.AddCommand(versionCmd)
}
