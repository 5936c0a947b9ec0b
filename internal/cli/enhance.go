package cli

import (
	"fmt"

	"databank/internal/common"

	"github.com/spf13/cobra"
)

var enhanceCmd = &cobra.Command{
	Use:   "enhance [job-description-file]",
	Short: "Suggest databank additions that would improve the match for a job",
	Args:  cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfigFromContext(cmd.Context())
		if err != nil {
			return err
		}
		if enhanceConfig.OutputFormat == "" {
			enhanceConfig.OutputFormat = cfg.App.DefaultFormat
		}
		return common.ValidateOutputFormat(enhanceConfig.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runEnhance,
}

var enhanceConfig common.CommandConfig

func init() {
	enhanceCmd.Flags().StringVarP(&enhanceConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	enhanceCmd.Flags().StringVar(&enhanceConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")
}

func runEnhance(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.close()

	err = common.RunJobCommand(
		cmd.Context(),
		rt.logger,
		enhanceConfig,
		rt.cfg.App.MaxFileSize,
		args[0],
		rt.analysis.SuggestEnhancements,
	)
	if err != nil {
		return fmt.Errorf("failed to suggest databank enhancements: %w", err)
	}
	return nil
}
