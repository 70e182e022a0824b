package harness

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/go-cmp/cmp"

	"github.com/roach88/entail/internal/engine"
	"github.com/roach88/entail/internal/ir"
	"github.com/roach88/entail/internal/store"
	"github.com/roach88/entail/internal/vocab"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string      // Assertion type for categorization
	Expected string      // Human-readable expected outcome
	Actual   string      // Human-readable actual outcome
	Trace    []StepEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for i, ev := range e.Trace {
		if ev.Triple != "" {
			fmt.Fprintf(&buf, "  [%d] %s %s\n", i+1, ev.Op, ev.Triple)
		} else {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, ev.Op)
		}
	}

	return buf.String()
}

// AssertionContext provides what assertions inspect.
type AssertionContext struct {
	Ctx    context.Context
	Store  store.Store
	Engine *engine.Engine
	Reg    *vocab.Registry
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluateAssertion(result.Trace, a, actx); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return errs
}

func evaluateAssertion(trace []StepEvent, a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertContains:
		return assertFlag(trace, a, actx, store.ScopeAll, true)
	case AssertAbsent:
		return assertFlag(trace, a, actx, store.ScopeAll, false)
	case AssertAsserted:
		return assertFlag(trace, a, actx, store.ScopeAsserted, true)
	case AssertDerived:
		return assertFlag(trace, a, actx, store.ScopeDerived, true)
	case AssertExplain:
		return assertExplain(trace, a, actx)
	case AssertQuery:
		return assertQuery(trace, a, actx)
	case AssertClosureSize:
		return assertClosureSize(trace, a, actx)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertFlag checks whether the triple is present in scope.
func assertFlag(trace []StepEvent, a Assertion, actx *AssertionContext, scope store.Scope, want bool) error {
	t, err := parseTriple(actx.Reg, a.Triple)
	if err != nil {
		return err
	}
	got, err := store.Contains(actx.Ctx, actx.Store, t, scope)
	if err != nil {
		return err
	}
	if got == want {
		return nil
	}

	expected := fmt.Sprintf("%s in %s", actx.Reg.Format(t), scope)
	actual := "not found"
	if !want {
		expected = fmt.Sprintf("%s absent", actx.Reg.Format(t))
		actual = "present"
	}
	return &AssertionError{Type: a.Type, Expected: expected, Actual: actual, Trace: trace}
}

// assertExplain checks that some justification of the triple was produced
// by the named rule from exactly the listed sources, in body order.
func assertExplain(trace []StepEvent, a Assertion, actx *AssertionContext) error {
	t, err := parseTriple(actx.Reg, a.Triple)
	if err != nil {
		return err
	}
	sources := make([]ir.Triple, len(a.Sources))
	for i, line := range a.Sources {
		if sources[i], err = parseTriple(actx.Reg, line); err != nil {
			return fmt.Errorf("sources[%d]: %w", i, err)
		}
	}

	js := actx.Engine.Explain(t)
	for _, j := range js {
		if a.Rule != "" && j.Rule != a.Rule {
			continue
		}
		if len(sources) > 0 && !cmp.Equal(j.Sources, sources) {
			continue
		}
		return nil
	}

	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("%s justified by %s", actx.Reg.Format(t), renderJustification(actx.Reg, a.Rule, sources)),
		Actual:   renderJustifications(actx.Reg, js),
		Trace:    trace,
	}
}

// assertQuery matches a pattern against the closure and compares the
// bindings of one variable with the expected terms.
func assertQuery(trace []StepEvent, a Assertion, actx *AssertionContext) error {
	p, err := ParsePattern(actx.Reg, a.Pattern)
	if err != nil {
		return err
	}
	ms, err := actx.Store.Match(actx.Ctx, p, store.ScopeAll)
	if err != nil {
		return err
	}

	name := strings.TrimPrefix(a.Select, "?")
	seen := make(map[string]bool)
	got := []string{}
	for _, m := range ms {
		term, ok := m.Bindings[name]
		if !ok {
			return fmt.Errorf("variable ?%s does not occur in %q", name, a.Pattern)
		}
		s := actx.Reg.Compact(term)
		if !seen[s] {
			seen[s] = true
			got = append(got, s)
		}
	}
	sort.Strings(got)

	want := make([]string, len(a.Expect))
	for i, e := range a.Expect {
		want[i] = actx.Reg.Compact(actx.Reg.Intern(e))
	}
	sort.Strings(want)

	if diff := cmp.Diff(want, got); diff != "" {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("?%s in %v", name, want),
			Actual:   fmt.Sprintf("%v (-want +got):\n%s", got, diff),
			Trace:    trace,
		}
	}
	return nil
}

// assertClosureSize checks the number of present triples.
func assertClosureSize(trace []StepEvent, a Assertion, actx *AssertionContext) error {
	n, err := actx.Store.Len(actx.Ctx, store.ScopeAll)
	if err != nil {
		return err
	}
	if n != a.Count {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%d triples", a.Count),
			Actual:   fmt.Sprintf("%d triples", n),
			Trace:    trace,
		}
	}
	return nil
}

// ParsePattern reads "s p o" where each position is a ?variable, "a", an
// <iri>, a prefixed name or a blank node. Literals are not supported.
func ParsePattern(reg *vocab.Registry, s string) (ir.Pattern, error) {
	fields := strings.Fields(strings.TrimSuffix(strings.TrimSpace(s), "."))
	if len(fields) != 3 {
		return ir.Pattern{}, fmt.Errorf("pattern %q: expected 3 terms, got %d", s, len(fields))
	}
	var slots [3]ir.Slot
	for i, f := range fields {
		switch {
		case strings.HasPrefix(f, "?") && len(f) > 1:
			slots[i] = ir.Var(f[1:])
		case f == "a" && i == 1:
			slots[i] = ir.Bound(reg.Std().Type)
		case strings.HasPrefix(f, `"`):
			return ir.Pattern{}, fmt.Errorf("pattern %q: literals are not supported", s)
		default:
			slots[i] = ir.Bound(reg.Intern(f))
		}
	}
	return ir.P(slots[0], slots[1], slots[2]), nil
}

func renderJustification(reg *vocab.Registry, rule string, sources []ir.Triple) string {
	parts := make([]string, len(sources))
	for i, s := range sources {
		parts[i] = reg.Format(s)
	}
	if rule == "" {
		rule = "*"
	}
	return fmt.Sprintf("%s(%s)", rule, strings.Join(parts, "; "))
}

func renderJustifications(reg *vocab.Registry, js []ir.Justification) string {
	if len(js) == 0 {
		return "no justifications"
	}
	parts := make([]string, len(js))
	for i, j := range js {
		parts[i] = renderJustification(reg, j.Rule, j.Sources)
	}
	return strings.Join(parts, ", ")
}
