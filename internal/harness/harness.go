package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/roach88/entail/internal/compiler"
	"github.com/roach88/entail/internal/engine"
	"github.com/roach88/entail/internal/ir"
	"github.com/roach88/entail/internal/ntriples"
	"github.com/roach88/entail/internal/rules"
	"github.com/roach88/entail/internal/store"
	"github.com/roach88/entail/internal/testutil"
	"github.com/roach88/entail/internal/vocab"
)

// Harness is the scenario execution context: one registry, one in-memory
// store and one engine, all private to a single scenario.
type Harness struct {
	reg    *vocab.Registry
	store  *store.Memory
	engine *engine.Engine
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs on a fresh in-memory store for isolation, with a fixed
// run id so traces are reproducible.
//
// Execution flow:
// 1. Build registry with scenario prefixes
// 2. Compile rule files and append them to the base rules
// 3. Insert initial asserted triples
// 4. Execute steps, checking expectations
// 5. Evaluate assertions and snapshot the closure
//
// An error is returned only when the scenario cannot be executed. Failed
// expectations and assertions are reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	h, err := newHarness(scenario)
	if err != nil {
		return nil, err
	}

	for i, line := range scenario.Asserted {
		t, err := h.parseTriple(line)
		if err != nil {
			return nil, fmt.Errorf("asserted[%d]: %w", i, err)
		}
		if _, err := h.store.Insert(ctx, t, store.ScopeAsserted); err != nil {
			return nil, fmt.Errorf("asserted[%d]: %w", i, err)
		}
	}

	result := NewResult()
	if err := h.executeSteps(ctx, scenario.Steps, result); err != nil {
		return nil, err
	}

	actx := &AssertionContext{
		Ctx:    ctx,
		Store:  h.store,
		Engine: h.engine,
		Reg:    h.reg,
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	closure, err := h.snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot closure: %w", err)
	}
	result.Closure = closure
	return result, nil
}

func newHarness(scenario *Scenario) (*Harness, error) {
	prefixes := make([]string, 0, len(scenario.Prefixes))
	for p := range scenario.Prefixes {
		prefixes = append(prefixes, p)
	}
	sort.Strings(prefixes)
	opts := make([]vocab.Option, 0, len(prefixes))
	for _, p := range prefixes {
		opts = append(opts, vocab.WithPrefix(p, scenario.Prefixes[p]))
	}
	reg := vocab.New(opts...)

	rs := rules.Base(reg)
	for _, path := range scenario.Rules {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read rule file: %w", err)
		}
		compiled, err := compiler.CompileSource(path, src, reg)
		if err != nil {
			return nil, fmt.Errorf("failed to compile %s: %w", path, err)
		}
		rs, err = rules.WithCustomRules(rs, compiled...)
		if err != nil {
			return nil, fmt.Errorf("failed to add rules from %s: %w", path, err)
		}
	}

	st := store.NewMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	eng := engine.New(st, rs, reg,
		engine.WithRunIDGenerator(testutil.NewFixedRunIDGenerator(scenario.RunID)),
		engine.WithMaxRounds(scenario.MaxRounds),
		engine.WithLogger(logger),
	)

	return &Harness{reg: reg, store: st, engine: eng, logger: logger}, nil
}

// executeSteps runs all steps in order and checks their expectations.
func (h *Harness) executeSteps(ctx context.Context, steps []Step, result *Result) error {
	for i, step := range steps {
		ev := StepEvent{Op: step.Op, Triple: step.Triple}

		var err error
		switch step.Op {
		case OpClosure:
			var rep engine.ClosureReport
			rep, err = h.engine.ComputeClosure(ctx)
			ev.RunID, ev.TriplesAdded, ev.RoundsRun, ev.Justifications =
				rep.RunID, rep.TriplesAdded, rep.RoundsRun, rep.Justifications
		case OpAssert, OpRetract:
			t, perr := h.parseTriple(step.Triple)
			if perr != nil {
				return fmt.Errorf("step %d: %w", i, perr)
			}
			ev.Triple = h.reg.Format(t)
			if step.Op == OpAssert {
				var rep engine.ClosureReport
				rep, err = h.engine.Assert(ctx, t)
				ev.RunID, ev.TriplesAdded, ev.RoundsRun, ev.Justifications =
					rep.RunID, rep.TriplesAdded, rep.RoundsRun, rep.Justifications
			} else {
				var rep engine.RetractReport
				rep, err = h.engine.Retract(ctx, t)
				ev.RunID, ev.Removed, ev.TriplesRetracted, ev.TriplesRederived, ev.RoundsRun =
					rep.RunID, rep.Removed, rep.TriplesRetracted, rep.TriplesRederived, rep.RoundsRun
			}
		default:
			return fmt.Errorf("step %d: unknown op %q", i, step.Op)
		}

		wantErr := step.Expect != nil && step.Expect.Error != ""
		switch {
		case err != nil && !wantErr:
			return fmt.Errorf("step %d (%s): %w", i, step.Op, err)
		case err != nil:
			ev.Error = err.Error()
			if !strings.Contains(err.Error(), step.Expect.Error) {
				result.AddError(fmt.Sprintf("step %d (%s): error %q does not contain %q",
					i, step.Op, err.Error(), step.Expect.Error))
			}
		case wantErr:
			result.AddError(fmt.Sprintf("step %d (%s): expected error containing %q, got none",
				i, step.Op, step.Expect.Error))
		}

		result.AddStep(ev)
		if step.Expect != nil {
			for _, msg := range checkExpect(i, step.Op, step.Expect, ev) {
				result.AddError(msg)
			}
		}

		h.logger.Info("step completed",
			"step", i,
			"op", step.Op,
			"triple", ev.Triple,
			"rounds", ev.RoundsRun,
		)
	}
	return nil
}

// checkExpect compares a step's report with its expectation.
func checkExpect(i int, op string, want *StepExpect, got StepEvent) []string {
	var errs []string
	checkInt := func(field string, want *int, got int) {
		if want != nil && *want != got {
			errs = append(errs, fmt.Sprintf("step %d (%s): %s: expected %d, got %d", i, op, field, *want, got))
		}
	}
	checkInt("triples_added", want.TriplesAdded, got.TriplesAdded)
	checkInt("rounds_run", want.RoundsRun, got.RoundsRun)
	checkInt("triples_retracted", want.TriplesRetracted, got.TriplesRetracted)
	checkInt("triples_rederived", want.TriplesRederived, got.TriplesRederived)
	if want.Removed != nil && *want.Removed != got.Removed {
		errs = append(errs, fmt.Sprintf("step %d (%s): removed: expected %t, got %t", i, op, *want.Removed, got.Removed))
	}
	return errs
}

// parseTriple reads exactly one triple in the line format.
func (h *Harness) parseTriple(line string) (ir.Triple, error) {
	return parseTriple(h.reg, line)
}

func parseTriple(reg *vocab.Registry, line string) (ir.Triple, error) {
	ts, err := ntriples.ParseString(line, reg)
	if err != nil {
		return ir.Triple{}, err
	}
	if len(ts) != 1 {
		return ir.Triple{}, fmt.Errorf("expected one triple in %q, got %d", line, len(ts))
	}
	return ts[0], nil
}

// snapshot lists every present triple with its flags.
func (h *Harness) snapshot(ctx context.Context) ([]string, error) {
	return Snapshot(ctx, h.store, h.reg)
}

// Snapshot renders every present triple of st as "<triple>  [flags]",
// sorted.
func Snapshot(ctx context.Context, st store.Store, reg *vocab.Registry) ([]string, error) {
	asserted, err := store.All(ctx, st, store.ScopeAsserted)
	if err != nil {
		return nil, err
	}
	derived, err := store.All(ctx, st, store.ScopeDerived)
	if err != nil {
		return nil, err
	}
	all, err := store.All(ctx, st, store.ScopeAll)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(all))
	for t := range all {
		var flags []string
		if asserted.Has(t) {
			flags = append(flags, "asserted")
		}
		if derived.Has(t) {
			flags = append(flags, "derived")
		}
		out = append(out, fmt.Sprintf("%s  [%s]", reg.Format(t), strings.Join(flags, ",")))
	}
	sort.Strings(out)
	return out, nil
}
