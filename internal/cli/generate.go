package cli

import (
	"fmt"

	"databank/internal/common"
	"databank/internal/errors"
	"databank/internal/workflow"

	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate [job-description-file]",
	Short: "Generate a job-tailored resume from selected databank records",
	Long: `Generate a resume for a job description. The job description is
analyzed first and every matched skill is pre-selected; --skills replaces
that pre-selection when given. At least one skill and one work experience
must be selected or generation is refused before any request is made.

The resume is built only from the selected records. The backend refuses to
invent anything that is not in your databank.`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfigFromContext(cmd.Context())
		if err != nil {
			return err
		}
		if generateOutput.OutputFormat == "" {
			generateOutput.OutputFormat = cfg.App.DefaultFormat
		}
		if generateFormat != "" {
			normalized, err := common.ValidateResumeFormat(generateFormat)
			if err != nil {
				return err
			}
			generateFormat = normalized
		}
		return common.ValidateOutputFormat(generateOutput.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runGenerate,
}

var (
	generateOutput common.CommandConfig
	generateTitle  string
	generateFormat string

	selectedSkills         []int
	selectedExperiences    []int
	selectedEducations     []int
	selectedProjects       []int
	selectedCertifications []int
	selectedLanguages      []int
)

func init() {
	generateCmd.Flags().StringVarP(&generateOutput.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	generateCmd.Flags().StringVar(&generateOutput.OutputFormat, "format", "", "Output format: json, text, or markdown")
	generateCmd.Flags().StringVar(&generateTitle, "title", "", "Title for the generated resume")
	generateCmd.Flags().StringVar(&generateFormat, "resume-format", "", "Stored resume format: pdf, word, latex, or html")

	generateCmd.Flags().IntSliceVar(&selectedSkills, "skills", nil, "Skill ids to include (replaces the pre-selected matches)")
	generateCmd.Flags().IntSliceVar(&selectedExperiences, "experiences", nil, "Work experience ids to include")
	generateCmd.Flags().IntSliceVar(&selectedEducations, "educations", nil, "Education ids to include")
	generateCmd.Flags().IntSliceVar(&selectedProjects, "projects", nil, "Project ids to include")
	generateCmd.Flags().IntSliceVar(&selectedCertifications, "certifications", nil, "Certification ids to include")
	generateCmd.Flags().IntSliceVar(&selectedLanguages, "languages", nil, "Language ids to include")

	_ = generateCmd.MarkFlagRequired("experiences")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.close()

	fileProcessor := common.NewFileProcessor(rt.logger)
	fileProcessor.MaxFileSize = rt.cfg.App.MaxFileSize
	contents, err := fileProcessor.ValidateAndReadFiles(args[0])
	if err != nil {
		return err
	}

	wf := workflow.New(rt.analysis, rt.bank, rt.logger)
	if err := wf.Analyze(cmd.Context(), contents[0]); err != nil {
		return fmt.Errorf("failed to analyze job description: %w", err)
	}

	// An explicit skill list replaces the matched pre-selection.
	if len(selectedSkills) > 0 {
		for _, id := range wf.Skills.IDs() {
			wf.Skills.Toggle(id)
		}
		applySelection(&wf.Skills, selectedSkills)
	}
	applySelection(&wf.Experiences, selectedExperiences)
	applySelection(&wf.Educations, selectedEducations)
	applySelection(&wf.Projects, selectedProjects)
	applySelection(&wf.Certifications, selectedCertifications)
	applySelection(&wf.Languages, selectedLanguages)

	if !wf.CanGenerate() {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"select at least one skill and one work experience to include", nil)
	}

	result, err := wf.Generate(cmd.Context(), generateTitle, generateFormat)
	rt.metrics.RecordBusinessMetric(cmd.Context(), "resume_generated", err == nil)
	if err != nil {
		return fmt.Errorf("failed to generate resume: %w", err)
	}

	rt.logger.Info("Resume generated",
		"resume_id", result.Resume.ID,
		"ats_score", result.ATSScore.String())

	return common.NewOutputHandler(rt.logger).HandleOutput(*result, generateOutput)
}

func applySelection(selection *workflow.Selection, ids []int) {
	for _, id := range ids {
		if !selection.Contains(id) {
			selection.Toggle(id)
		}
	}
}
