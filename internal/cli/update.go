package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/entail/internal/engine"
	"github.com/roach88/entail/internal/ir"
)

// UpdateOptions holds flags for the assert and retract commands.
type UpdateOptions struct {
	*RootOptions
	Files []string // N-Triples files with more triples to apply
}

// AssertResult is one triple's outcome from the assert command.
type AssertResult struct {
	Triple string `json:"triple"`
	engine.ClosureReport
}

// RetractResult is one triple's outcome from the retract command.
type RetractResult struct {
	Triple string `json:"triple"`
	engine.RetractReport
}

// NewAssertCommand creates the assert command.
func NewAssertCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UpdateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "assert [triple...]",
		Short: "Assert triples and extend the closure",
		Long: `Assert triples one at a time, deriving only what each new triple enables.

Each argument is one triple in N-Triples syntax; prefixed names from the
config file are accepted. Use --file for N-Triples files.

Examples:
  entail --db store.db assert 'ex:dune rdf:type ex:Novel .'
  entail --db store.db assert --file more.nt`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(opts, args, cmd, applyAssert)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Files, "file", nil, "N-Triples file to assert (repeatable, - for stdin)")

	return cmd
}

// NewRetractCommand creates the retract command.
func NewRetractCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UpdateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "retract [triple...]",
		Short: "Retract asserted triples and everything that depended on them",
		Long: `Retract asserted triples one at a time.

Derived triples that lose their last justification are removed; triples
still supported another way are kept. Retracting a triple that was never
asserted changes nothing.

Examples:
  entail --db store.db retract 'ex:Novel rdfs:subClassOf ex:Book .'`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(opts, args, cmd, applyRetract)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Files, "file", nil, "N-Triples file to retract (repeatable, - for stdin)")

	return cmd
}

// applyFunc applies one triple and returns its result and a text line.
type applyFunc func(s *session, cmd *cobra.Command, t ir.Triple) (any, string, error)

func applyAssert(s *session, cmd *cobra.Command, t ir.Triple) (any, string, error) {
	report, err := s.engine.Assert(cmd.Context(), t)
	if err != nil {
		return nil, "", err
	}
	line := fmt.Sprintf("+ %s  (added %d, rounds %d)", s.reg.Format(t), report.TriplesAdded, report.RoundsRun)
	return AssertResult{Triple: s.reg.Format(t), ClosureReport: report}, line, nil
}

func applyRetract(s *session, cmd *cobra.Command, t ir.Triple) (any, string, error) {
	report, err := s.engine.Retract(cmd.Context(), t)
	if err != nil {
		return nil, "", err
	}
	line := fmt.Sprintf("- %s  (not asserted)", s.reg.Format(t))
	if report.Removed {
		line = fmt.Sprintf("- %s  (retracted %d, rederived %d, rounds %d)",
			s.reg.Format(t), report.TriplesRetracted, report.TriplesRederived, report.RoundsRun)
	}
	return RetractResult{Triple: s.reg.Format(t), RetractReport: report}, line, nil
}

func runUpdate(opts *UpdateOptions, args []string, cmd *cobra.Command, apply applyFunc) (err error) {
	if len(args) == 0 && len(opts.Files) == 0 {
		return NewExitError(ExitCommandError, "no triples given: pass triples as arguments or use --file")
	}

	s, err := openSession(opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer s.closeInto(&err)
	formatter := s.formatter(cmd.OutOrStdout(), cmd.ErrOrStderr())

	// Parse everything before touching the store. Files go first so their
	// @prefix directives apply to the arguments.
	fromFiles, err := s.readTriples(opts.Files, cmd.InOrStdin())
	if err != nil {
		return err
	}
	var ts []ir.Triple
	for _, arg := range args {
		t, err := s.parseTriple(arg)
		if err != nil {
			return err
		}
		ts = append(ts, t)
	}
	ts = append(ts, fromFiles...)

	results := make([]any, 0, len(ts))
	for _, t := range ts {
		res, line, err := apply(s, cmd, t)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("%s: %s", ErrCodeEngine, s.reg.Format(t)), err)
		}
		results = append(results, res)
		if !formatter.JSON() {
			fmt.Fprintln(formatter.Writer, line)
		}
	}

	if formatter.JSON() {
		return formatter.Success(results)
	}
	return nil
}
