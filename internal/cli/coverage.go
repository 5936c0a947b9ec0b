package cli

import (
	"fmt"

	"databank/internal/common"

	"github.com/spf13/cobra"
)

var coverageCmd = &cobra.Command{
	Use:   "coverage [job-description-file]",
	Short: "Check whether your databank can support a truthful resume for a job",
	Long: `Validate databank coverage for a job description. The backend checks
whether your records are rich enough to generate a resume for this job
without inventing facts, and reports the gaps if they are not.`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfigFromContext(cmd.Context())
		if err != nil {
			return err
		}
		if coverageConfig.OutputFormat == "" {
			coverageConfig.OutputFormat = cfg.App.DefaultFormat
		}
		return common.ValidateOutputFormat(coverageConfig.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runCoverage,
}

var coverageConfig common.CommandConfig

func init() {
	coverageCmd.Flags().StringVarP(&coverageConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	coverageCmd.Flags().StringVar(&coverageConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")
}

func runCoverage(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.close()

	err = common.RunJobCommand(
		cmd.Context(),
		rt.logger,
		coverageConfig,
		rt.cfg.App.MaxFileSize,
		args[0],
		rt.analysis.ValidateCoverage,
	)
	if err != nil {
		return fmt.Errorf("failed to validate databank coverage: %w", err)
	}
	return nil
}
