package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Amayakite/AutoClicker/internal/script"
)

// ValidationResult is the JSON payload of a valid script.
type ValidationResult struct {
	Valid      bool   `json:"valid"`
	File       string `json:"file"`
	Name       string `json:"name"`
	Points     int    `json:"points"`
	Enabled    int    `json:"enabled"`
	Loop       string `json:"loop"`
	Renumbered bool   `json:"renumbered,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <script.yaml>",
		Short: "Check a click script without running it",
		Long: `Check a click script against the document schema and the point rules:
unique ids, at most 50 points, delays and jitter within range, and a
non-negative loop count. Every violation is reported.`,
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
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	st := newStyles(cmd.OutOrStdout())

	s, err := loadScript(formatter, path)
	if err != nil {
		return err
	}

	result := ValidationResult{
		Valid:      true,
		File:       path,
		Name:       s.Name,
		Points:     len(s.Points),
		Enabled:    s.EnabledCount(),
		Loop:       loopLabel(s.Config),
		Renumbered: s.Renumbered,
	}

	var text strings.Builder
	text.WriteString(st.SuccessMsg("%s valid", path) + "\n")
	text.WriteString(st.KeyValues("  ",
		kv("name", s.Name),
		kv("points", fmt.Sprintf("%d (%d enabled)", result.Points, result.Enabled)),
		kv("loop", result.Loop),
		kv("start delay", s.Config.StartDelay().String()),
	))
	if s.Renumbered {
		text.WriteString(st.WarnMsg("order values have gaps or duplicates; run `autoclicker fmt %s` to renumber", path) + "\n")
	}
	return formatter.Success(result, strings.TrimSuffix(text.String(), "\n"))
}

// loadScript loads path, reporting failures through f. The returned error
// carries the exit code.
func loadScript(f *OutputFormatter, path string) (*script.Script, error) {
	s, err := script.Load(path)
	if err == nil {
		return s, nil
	}

	var schemaErr *script.SchemaError
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, f.fail(ExitCommandError, ErrCodeNotFound, "script not found: "+path, err)
	case errors.As(err, &schemaErr):
		return nil, reportViolations(f, ErrCodeSchema, "script does not match the schema", schemaErr.Issues, err)
	default:
		return nil, reportViolations(f, ErrCodeInvalidScript, "invalid script", errorLines(err), err)
	}
}

// reportViolations lists every violation. Text output shows them even
// without --verbose.
func reportViolations(f *OutputFormatter, code, message string, issues []string, err error) error {
	if f.IsJSON() {
		if outErr := f.Error(code, message, issues); outErr != nil {
			return WrapExitError(ExitCommandError, "write output", outErr)
		}
		return WrapExitError(ExitFailure, message, err)
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	for _, issue := range issues {
		fmt.Fprintf(f.Writer, "  - %s\n", issue)
	}
	return WrapExitError(ExitFailure, message, err)
}

// errorLines splits a joined error into one entry per violation.
func errorLines(err error) []string {
	return strings.Split(err.Error(), "\n")
}
