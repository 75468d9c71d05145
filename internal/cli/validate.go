package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ValidationResult is the JSON payload of a successful validate.
type ValidationResult struct {
	Valid  bool   `json:"valid"`
	Name   string `json:"name"`
	Events int    `json:"events"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <session.yaml>",
		Short: "Validate a session file without running it",
		Long: `Decode a session file strictly and check it against the session schema.

Unknown fields, missing per-kind fields and malformed timestamps are reported
without running the simulator.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	s, err := loadSession(formatter, path)
	if err != nil {
		return err
	}

	if opts.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Name: s.Name, Events: len(s.Events)})
	}
	return formatter.Success(fmt.Sprintf("✓ Session valid: %s (%d events)", s.Name, len(s.Events)))
}
