package cli

import (
	"bytes"
	"os"

	"github.com/spf13/cobra"

	"github.com/Amayakite/AutoClicker/internal/script"
)

// FmtOptions holds flags for the fmt command.
type FmtOptions struct {
	*RootOptions
	Check bool
}

// FmtResult is the JSON payload of the fmt command.
type FmtResult struct {
	File    string `json:"file"`
	Changed bool   `json:"changed"`
	Written bool   `json:"written"`
}

// NewFmtCommand creates the fmt command.
func NewFmtCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FmtOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "fmt <script.yaml>",
		Short: "Rewrite a click script in canonical form",
		Long: `Rewrite a click script in canonical form: points sorted by order and
renumbered 0..n-1, defaults filled in, and ids assigned to points that
lack one. With --check the file is left alone and the command fails if it
would change.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFmt(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Check, "check", false, "report whether the file is formatted without writing it")

	return cmd
}

func runFmt(opts *FmtOptions, path string, cmd *cobra.Command) error {
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

	original, err := os.ReadFile(path)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeNotFound, "read script", err)
	}
	formatted, err := script.Marshal(s)
	if err != nil {
		return formatter.fail(ExitFailure, ErrCodeGeneric, "encode script", err)
	}

	result := FmtResult{File: path, Changed: !bytes.Equal(original, formatted)}
	switch {
	case !result.Changed:
		return formatter.Success(result, st.SuccessMsg("%s already formatted", path))
	case opts.Check:
		if err := formatter.Error(ErrCodeInvalidScript, path+" is not formatted", result); err != nil {
			return WrapExitError(ExitCommandError, "write output", err)
		}
		return NewExitError(ExitFailure, path+" is not formatted")
	}

	if err := script.Save(path, s); err != nil {
		return formatter.fail(ExitCommandError, ErrCodeWriteFailed, "write script", err)
	}
	result.Written = true
	formatter.VerboseLog("rewrote %s (%d points)", path, len(s.Points))
	return formatter.Success(result, st.SuccessMsg("formatted %s", path))
}
