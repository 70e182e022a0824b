package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/entail/internal/ir"
	"github.com/roach88/entail/internal/store"
)

// ExplainOptions holds flags for the explain command.
type ExplainOptions struct {
	*RootOptions
	Depth      int  // levels of sources to expand
	Dependents bool // also list what the triple supports
}

// Explanation describes why a triple is in the store.
type Explanation struct {
	Triple         string                 `json:"triple"`
	Status         string                 `json:"status"` // "asserted", "derived", "asserted,derived" or "absent"
	Justifications []ExplainJustification `json:"justifications,omitempty"`
	// Supports lists derivations that cite the triple, as "rule: head".
	Supports []string `json:"supports,omitempty"`
}

// ExplainJustification is one rule firing that supports a triple.
type ExplainJustification struct {
	Rule     string         `json:"rule"`
	Bindings []string       `json:"bindings"`
	Sources  []string       `json:"sources"`
	Expanded []*Explanation `json:"expanded,omitempty"`
}

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExplainOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "explain <triple> [files...]",
		Short: "Show why a triple holds",
		Long: `Compute the closure and list the justifications of one triple.

Each justification names the rule, its variable bindings and the source
triples it matched. --depth expands derived sources recursively.

Examples:
  entail explain 'ex:dune rdf:type ex:Book .' data.nt
  entail --db store.db explain 'ex:dune rdf:type ex:Work .' --depth 3
  entail explain 'ex:Book rdfs:subClassOf ex:Work .' data.nt --dependents`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplain(opts, args[0], args[1:], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Depth, "depth", 1, "levels of derived sources to expand")
	cmd.Flags().BoolVar(&opts.Dependents, "dependents", false, "list the derivations that use the triple")

	return cmd
}

func runExplain(opts *ExplainOptions, arg string, files []string, cmd *cobra.Command) (err error) {
	s, err := openSession(opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer s.closeInto(&err)
	formatter := s.formatter(cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx := cmd.Context()

	// Files first: their @prefix directives apply to the argument.
	ts, err := s.readTriples(files, cmd.InOrStdin())
	if err != nil {
		return err
	}
	target, err := s.parseTriple(arg)
	if err != nil {
		return err
	}
	if _, err := s.load(ctx, ts); err != nil {
		return err
	}

	// Justifications live in memory, so they are rebuilt from the store.
	report, err := s.engine.ComputeClosure(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, ErrCodeEngine+": closure failed", err)
	}

	x := &explainer{s: s, visiting: make(map[ir.Triple]bool)}
	exp, err := x.explain(cmd, target, max(opts.Depth, 1))
	if err != nil {
		return WrapExitError(ExitCommandError, ErrCodeStore+": read failed", err)
	}
	if opts.Dependents {
		for _, j := range s.engine.Dependents(target) {
			exp.Supports = append(exp.Supports, fmt.Sprintf("%s: %s", j.Rule, s.reg.Format(j.Triple)))
		}
	}

	if formatter.JSON() {
		return formatter.SuccessRun(report.RunID, exp)
	}
	printExplanation(formatter.Writer, exp, 0)
	return nil
}

type explainer struct {
	s        *session
	visiting map[ir.Triple]bool
}

func (x *explainer) explain(cmd *cobra.Command, t ir.Triple, depth int) (*Explanation, error) {
	ctx := cmd.Context()
	asserted, err := store.Contains(ctx, x.s.store, t, store.ScopeAsserted)
	if err != nil {
		return nil, err
	}
	derived, err := store.Contains(ctx, x.s.store, t, store.ScopeDerived)
	if err != nil {
		return nil, err
	}

	exp := &Explanation{Triple: x.s.reg.Format(t), Status: status(asserted, derived)}
	x.visiting[t] = true
	defer delete(x.visiting, t)

	for _, j := range x.s.engine.Explain(t) {
		ej := ExplainJustification{
			Rule:     j.Rule,
			Bindings: renderBindings(x.s.reg, j.Bindings),
			Sources:  x.s.formatEach(j.Sources),
		}
		if depth > 1 {
			for _, src := range j.Sources {
				if x.visiting[src] {
					continue
				}
				sub, err := x.explain(cmd, src, depth-1)
				if err != nil {
					return nil, err
				}
				if len(sub.Justifications) > 0 {
					ej.Expanded = append(ej.Expanded, sub)
				}
			}
		}
		exp.Justifications = append(exp.Justifications, ej)
	}
	return exp, nil
}

func status(asserted, derived bool) string {
	switch {
	case asserted && derived:
		return "asserted,derived"
	case asserted:
		return "asserted"
	case derived:
		return "derived"
	default:
		return "absent"
	}
}

func printExplanation(w io.Writer, exp *Explanation, indent int) {
	pad := strings.Repeat("    ", indent)
	fmt.Fprintf(w, "%s%s  [%s]\n", pad, exp.Triple, exp.Status)
	for _, j := range exp.Justifications {
		fmt.Fprintf(w, "%s  via %s {%s}\n", pad, j.Rule, strings.Join(j.Bindings, ", "))
		for _, src := range j.Sources {
			fmt.Fprintf(w, "%s    <- %s\n", pad, src)
		}
		for _, sub := range j.Expanded {
			printExplanation(w, sub, indent+1)
		}
	}
	for _, dep := range exp.Supports {
		fmt.Fprintf(w, "%s  supports %s\n", pad, dep)
	}
}
