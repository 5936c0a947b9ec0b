package cli

import (
	"context"
	"fmt"

	"databank/internal/common"
	"databank/internal/databank"

	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [job-description-file]",
	Short: "Analyze a job description against your databank",
	Long: `Analyze a job description and compare its requirements against your
databank. The output is the structured job breakdown (title, company,
required and preferred skills) plus the match report: which of your skills
match, which required and preferred skills are missing, and an overall
match percentage.`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfigFromContext(cmd.Context())
		if err != nil {
			return err
		}
		// Apply default format if not specified
		if analyzeConfig.OutputFormat == "" {
			analyzeConfig.OutputFormat = cfg.App.DefaultFormat
		}
		// Validate format against supported formats
		return common.ValidateOutputFormat(analyzeConfig.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runAnalyzeJob,
}

var analyzeConfig common.CommandConfig

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	analyzeCmd.Flags().StringVar(&analyzeConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")

	// Add completion for format flag
	_ = analyzeCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg, err := getConfigFromContext(cmd.Context())
		if err != nil {
			return []string{}, cobra.ShellCompDirectiveError
		}
		return common.GetSupportedFormats(cfg.App.SupportedFormats), cobra.ShellCompDirectiveNoFileComp
	})
}

func runAnalyzeJob(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.close()

	operation := func(ctx context.Context, jobDescription string) (databank.AnalysisReport, error) {
		var report databank.AnalysisReport
		err := rt.metrics.TrackOperation(ctx, "analyze", func(ctx context.Context) error {
			analysis, err := rt.analysis.Analyze(ctx, jobDescription)
			if err != nil {
				return err
			}
			match, err := rt.analysis.MatchSkills(ctx, jobDescription)
			if err != nil {
				return err
			}
			report = databank.AnalysisReport{Analysis: analysis, Match: match}
			return nil
		})
		rt.metrics.RecordBusinessMetric(ctx, "job_analyzed", err == nil)
		return report, err
	}

	err = common.RunJobCommand(
		cmd.Context(),
		rt.logger,
		analyzeConfig,
		rt.cfg.App.MaxFileSize,
		args[0],
		operation,
	)
	if err != nil {
		return fmt.Errorf("failed to analyze job description: %w", err)
	}
	rt.logger.Info("Job description analysis completed successfully")
	return nil
}
