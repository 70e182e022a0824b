package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/entail/internal/oracle"
	"github.com/roach88/entail/internal/store"
)

// VerifyOptions holds flags for the verify command.
type VerifyOptions struct {
	*RootOptions
	Program bool // print the Mangle program that was evaluated
}

// VerifyResult compares the engine's closure with the Datalog evaluation.
type VerifyResult struct {
	RunID   string   `json:"run_id"`
	Match   bool     `json:"match"`
	Engine  int      `json:"engine_triples"`
	Oracle  int      `json:"oracle_triples"`
	Missing []string `json:"missing,omitempty"` // derived by Datalog, absent from the store
	Extra   []string `json:"extra,omitempty"`   // in the store, not derivable
	Datalog string   `json:"program,omitempty"`
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VerifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "verify [files...]",
		Short: "Check the closure against a Datalog evaluation",
		Long: `Compute the closure and compare it with the same rules evaluated by
the Mangle Datalog engine over the asserted triples.

Exit codes:
  0 - The closures agree
  1 - The closures differ
  2 - Command error`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Program, "program", false, "include the Mangle program in the output")

	return cmd
}

func runVerify(opts *VerifyOptions, files []string, cmd *cobra.Command) (err error) {
	s, err := openSession(opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer s.closeInto(&err)
	formatter := s.formatter(cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx := cmd.Context()

	ts, err := s.readTriples(files, cmd.InOrStdin())
	if err != nil {
		return err
	}
	if _, err := s.load(ctx, ts); err != nil {
		return err
	}

	report, err := s.engine.ComputeClosure(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, ErrCodeEngine+": closure failed", err)
	}

	asserted, err := s.engine.Asserted(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, ErrCodeStore+": read failed", err)
	}
	got, err := store.All(ctx, s.store, store.ScopeAll)
	if err != nil {
		return WrapExitError(ExitCommandError, ErrCodeStore+": read failed", err)
	}

	o := oracle.New(s.ruleSet.Rules(), s.reg.Kind)
	want, err := o.Closure(asserted)
	if err != nil {
		return WrapExitError(ExitCommandError, "datalog evaluation failed", err)
	}
	missing, extra := oracle.Diff(got, want)
	formatter.VerboseLog("engine: %d triple(s), datalog: %d triple(s)", len(got), len(want))

	result := VerifyResult{
		RunID:   report.RunID,
		Match:   len(missing) == 0 && len(extra) == 0,
		Engine:  len(got),
		Oracle:  len(want),
		Missing: s.formatEach(missing),
		Extra:   s.formatEach(extra),
	}
	if opts.Program {
		if result.Datalog, err = o.Program(asserted); err != nil {
			return WrapExitError(ExitCommandError, "datalog translation failed", err)
		}
	}

	if formatter.JSON() {
		if !result.Match {
			if err := formatter.Failure(ErrCodeVerifyMismatch, "closure differs from datalog evaluation", result); err != nil {
				return err
			}
			return NewExitError(ExitFailure, "closure differs from datalog evaluation")
		}
		return formatter.SuccessRun(report.RunID, result)
	}

	w := formatter.Writer
	if opts.Program {
		fmt.Fprintln(w, result.Datalog)
	}
	if result.Match {
		fmt.Fprintf(w, "✓ Closure matches datalog evaluation (%d triples)\n", result.Engine)
		return nil
	}
	fmt.Fprintf(w, "✗ Closure differs from datalog evaluation (engine %d, datalog %d)\n", result.Engine, result.Oracle)
	for _, m := range result.Missing {
		fmt.Fprintf(w, "  missing: %s\n", m)
	}
	for _, x := range result.Extra {
		fmt.Fprintf(w, "  extra:   %s\n", x)
	}
	return NewExitError(ExitFailure, "closure differs from datalog evaluation")
}
