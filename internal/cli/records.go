package cli

import (
	"encoding/json"
	"fmt"
	"strconv"

	"databank/internal/api"
	"databank/internal/common"
	"databank/internal/databank"
	"databank/internal/errors"

	"github.com/spf13/cobra"
)

// inputValidator is implemented by record types that enforce caller-side
// rules before a request is issued.
type inputValidator interface {
	ValidateInput() error
}

// recordPayload validates raw JSON against the record type and returns the
// JSON to send. The original bytes are forwarded so the backend's create and
// update schemas never see synthesized zero-value fields.
func recordPayload[T any](raw string) (json.RawMessage, error) {
	var record T
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidFormat,
			"record is not valid JSON", err)
	}
	if v, ok := any(record).(inputValidator); ok {
		if err := v.ValidateInput(); err != nil {
			return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest,
				err.Error(), nil)
		}
	}
	return json.RawMessage(raw), nil
}

// readPayloadArg resolves the --data / --file pair into the raw record JSON.
func readPayloadArg(data, file string, logger *errors.Logger, maxFileSize int64) (string, error) {
	switch {
	case data != "" && file != "":
		return "", errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"--data and --file are mutually exclusive", nil)
	case data != "":
		return data, nil
	case file != "":
		fp := common.NewFileProcessor(logger)
		fp.MaxFileSize = maxFileSize
		contents, err := fp.ValidateAndReadFiles(file)
		if err != nil {
			return "", err
		}
		return contents[0], nil
	default:
		return "", errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"provide the record as --data or --file", nil)
	}
}

func parseRecordID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("invalid record id: %s", arg), err)
	}
	return id, nil
}

// newRecordGroup builds the list/get/add/update/delete command set for one
// collection. All six databank collections share this shape; only the
// resource accessor differs.
func newRecordGroup[T api.Record](use, singular, short string, resource func(rt *runtime) *api.Resource[T]) *cobra.Command {
	group := &cobra.Command{
		Use:   use,
		Short: short,
	}

	var output common.CommandConfig
	var data, file string

	listCmd := &cobra.Command{
		Use:   "list",
		Short: fmt.Sprintf("List all %s records", singular),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.close()

			records := resource(rt).List(cmd.Context(), nil)
			return common.NewOutputHandler(rt.logger).HandleOutput(records, output)
		},
	}

	getCmd := &cobra.Command{
		Use:   "get [id]",
		Short: fmt.Sprintf("Fetch one %s record", singular),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRecordID(args[0])
			if err != nil {
				return err
			}
			rt, err := newRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.close()

			record, err := resource(rt).Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			return common.NewOutputHandler(rt.logger).HandleOutput(record, output)
		},
	}

	addCmd := &cobra.Command{
		Use:   "add",
		Short: fmt.Sprintf("Create a %s record from JSON", singular),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.close()

			raw, err := readPayloadArg(data, file, rt.logger, rt.cfg.App.MaxFileSize)
			if err != nil {
				return err
			}
			payload, err := recordPayload[T](raw)
			if err != nil {
				return err
			}

			record, err := resource(rt).Create(cmd.Context(), payload)
			rt.metrics.RecordBusinessMetric(cmd.Context(), "record_written", err == nil)
			if err != nil {
				return err
			}
			return common.NewOutputHandler(rt.logger).HandleOutput(record, output)
		},
	}

	updateCmd := &cobra.Command{
		Use:   "update [id]",
		Short: fmt.Sprintf("Update a %s record from JSON", singular),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRecordID(args[0])
			if err != nil {
				return err
			}
			rt, err := newRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.close()

			raw, err := readPayloadArg(data, file, rt.logger, rt.cfg.App.MaxFileSize)
			if err != nil {
				return err
			}
			payload, err := recordPayload[T](raw)
			if err != nil {
				return err
			}

			record, err := resource(rt).Update(cmd.Context(), id, payload)
			rt.metrics.RecordBusinessMetric(cmd.Context(), "record_written", err == nil)
			if err != nil {
				return err
			}
			return common.NewOutputHandler(rt.logger).HandleOutput(record, output)
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete [id]",
		Short: fmt.Sprintf("Delete a %s record", singular),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRecordID(args[0])
			if err != nil {
				return err
			}
			rt, err := newRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.close()

			if _, err := resource(rt).Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Printf("Deleted %s %d\n", singular, id)
			return nil
		},
	}

	for _, sub := range []*cobra.Command{listCmd, getCmd, addCmd, updateCmd} {
		sub.Flags().StringVarP(&output.OutputFile, "output", "o", "", "Output file path (default: stdout)")
		sub.Flags().StringVar(&output.OutputFormat, "format", "json", "Output format: json")
	}
	for _, sub := range []*cobra.Command{addCmd, updateCmd} {
		sub.Flags().StringVar(&data, "data", "", "Record as a JSON string")
		sub.Flags().StringVar(&file, "file", "", "Path to a JSON file holding the record")
	}

	group.AddCommand(listCmd, getCmd, addCmd, updateCmd, deleteCmd)
	return group
}

func init() {
	rootCmd.AddCommand(newRecordGroup("skills", "skill",
		"Manage databank skills",
		func(rt *runtime) *api.Resource[databank.Skill] { return rt.bank.Skills }))
	rootCmd.AddCommand(newRecordGroup("experiences", "work experience",
		"Manage databank work experience",
		func(rt *runtime) *api.Resource[databank.WorkExperience] { return rt.bank.Experiences }))
	rootCmd.AddCommand(newRecordGroup("educations", "education",
		"Manage databank education",
		func(rt *runtime) *api.Resource[databank.Education] { return rt.bank.Educations }))
	rootCmd.AddCommand(newRecordGroup("projects", "project",
		"Manage databank projects",
		func(rt *runtime) *api.Resource[databank.Project] { return rt.bank.Projects }))
	rootCmd.AddCommand(newRecordGroup("certifications", "certification",
		"Manage databank certifications",
		func(rt *runtime) *api.Resource[databank.Certification] { return rt.bank.Certifications }))
	rootCmd.AddCommand(newRecordGroup("languages", "language",
		"Manage databank languages",
		func(rt *runtime) *api.Resource[databank.Language] { return rt.bank.Languages }))
}
