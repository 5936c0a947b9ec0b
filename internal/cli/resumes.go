package cli

import (
	"fmt"
	"os"

	"databank/internal/common"
	"databank/internal/errors"

	"github.com/spf13/cobra"
)

var resumesCmd = &cobra.Command{
	Use:   "resumes",
	Short: "Manage generated resumes",
	Long: `Manage the resumes stored with your account. Generated resumes stay
on the backend; download fetches a rendered copy in the requested format.`,
}

var resumesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored resumes",
	RunE:  runResumesList,
}

var resumesGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Fetch one stored resume",
	Args:  cobra.ExactArgs(1),
	RunE:  runResumesGet,
}

var resumesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a stored resume",
	Args:  cobra.ExactArgs(1),
	RunE:  runResumesDelete,
}

var resumesDownloadCmd = &cobra.Command{
	Use:   "download <id>",
	Short: "Download a rendered resume",
	Args:  cobra.ExactArgs(1),
	RunE:  runResumesDownload,
}

var (
	resumesOutput         common.CommandConfig
	resumesDownloadFormat string
)

func init() {
	resumesListCmd.Flags().StringVarP(&resumesOutput.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	resumesListCmd.Flags().StringVar(&resumesOutput.OutputFormat, "format", "json", "Output format: json")
	resumesGetCmd.Flags().StringVarP(&resumesOutput.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	resumesGetCmd.Flags().StringVar(&resumesOutput.OutputFormat, "format", "json", "Output format: json")

	resumesDownloadCmd.Flags().StringVarP(&resumesOutput.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	resumesDownloadCmd.Flags().StringVar(&resumesDownloadFormat, "format", "html", "Rendered format: pdf, word, latex, or html")

	resumesCmd.AddCommand(resumesListCmd, resumesGetCmd, resumesDeleteCmd, resumesDownloadCmd)
}

func runResumesList(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.close()

	resumes := rt.bank.Resumes.List(cmd.Context(), nil)
	return common.NewOutputHandler(rt.logger).HandleOutput(resumes, resumesOutput)
}

func runResumesGet(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.close()

	id, err := parseRecordID(args[0])
	if err != nil {
		return err
	}
	resume, err := rt.bank.Resumes.Get(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("failed to fetch resume %d: %w", id, err)
	}
	return common.NewOutputHandler(rt.logger).HandleOutput(resume, resumesOutput)
}

func runResumesDelete(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.close()

	id, err := parseRecordID(args[0])
	if err != nil {
		return err
	}
	deleted, err := rt.bank.Resumes.Delete(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("failed to delete resume %d: %w", id, err)
	}
	if !deleted {
		cmd.Printf("Resume %d not found\n", id)
		return nil
	}
	cmd.Printf("Deleted resume %d\n", id)
	return nil
}

func runResumesDownload(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.close()

	id, err := parseRecordID(args[0])
	if err != nil {
		return err
	}
	format, err := common.ValidateResumeFormat(resumesDownloadFormat)
	if err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidFormat, err.Error(), nil)
	}

	body, err := rt.bank.DownloadResume(cmd.Context(), id, format)
	if err != nil {
		return fmt.Errorf("failed to download resume %d: %w", id, err)
	}

	if resumesOutput.OutputFile == "" {
		_, err := os.Stdout.Write(body)
		return err
	}

	fileProcessor := common.NewFileProcessor(rt.logger)
	if err := fileProcessor.WriteFile(resumesOutput.OutputFile, string(body)); err != nil {
		return err
	}
	rt.logger.Info("Resume downloaded",
		"resume_id", id,
		"format", format,
		"file", resumesOutput.OutputFile)
	return nil
}
