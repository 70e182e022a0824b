package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/entail/internal/compiler"
	"github.com/roach88/entail/internal/rules"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool                       `json:"valid"`
	Rules     int                        `json:"rules"`
	Errors    []compiler.ValidationError `json:"errors,omitempty"`
	Recursion []compiler.RecursionGroup  `json:"recursion,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <rules>",
		Short: "Check rules without running them",
		Long: `Compile CUE rules and check them together with the RDFS rules.

Reports every error in the file at once (unsafe head variables, unbound
constraint variables, duplicate names, literals in subject or predicate
position). Recursive rule groups are listed for information.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
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
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
	reg := newRegistry(opts)

	loadResult, loadErrors := LoadRules(path, reg, LoadModeCollectAll)
	if loadResult == nil && len(loadErrors) > 0 {
		var loadErr *LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return outputValidateError(formatter, loadErr.Code, loadErr.Message, nil)
		}
		return outputValidateError(formatter, ErrCodeGeneric, loadErrors[0].Error(), nil)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, path)

	var validationErrors []compiler.ValidationError
	for _, err := range loadErrors {
		code, message := parseCompileError(err)
		validationErrors = append(validationErrors, compiler.ValidationError{
			Field:   "load",
			Message: message,
			Code:    code,
		})
	}

	all := append(rules.Base(reg).Rules(), loadResult.Rules...)
	for _, r := range loadResult.Rules {
		formatter.VerboseLog("Validating rule: %s", r.Name)
	}
	validationErrors = append(validationErrors, compiler.ValidateRules(all, reg)...)

	if len(loadResult.Rules) == 0 && len(validationErrors) == 0 {
		validationErrors = append(validationErrors, compiler.ValidationError{
			Field:   "rules",
			Message: "no rules found",
			Code:    ErrCodeGeneric,
		})
	}

	result := ValidationResult{
		Valid:     len(validationErrors) == 0,
		Rules:     len(loadResult.Rules),
		Errors:    validationErrors,
		Recursion: compiler.AnalyzeRecursion(all),
	}
	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.JSON() {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ All rules valid (%d custom)\n", result.Rules)
	if len(result.Recursion) > 0 {
		fmt.Fprintln(formatter.Writer)
		fmt.Fprintln(formatter.Writer, "Recursion:")
		for _, g := range result.Recursion {
			fmt.Fprintf(formatter.Writer, "  [%s] %s\n", g.Level, g.Message)
		}
	}
	return nil
}

// outputValidateError outputs a single validation error.
func outputValidateError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	// A missing or unloadable path is a command-level error (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	errs := result.Errors
	if formatter.JSON() {
		if err := formatter.Failure(errs[0].Code, errs[0].Message, result); err != nil {
			return err
		}
		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Rule != "" {
			fmt.Fprintf(formatter.Writer, "rule %s (%s)\n", err.Rule, err.Field)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", err.Code, err.Message)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
