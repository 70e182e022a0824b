package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/entail/internal/ir"
)

// closedContext runs the publications data to closure and returns an
// assertion context over the result.
func closedContext(t *testing.T) *AssertionContext {
	t.Helper()
	h, err := newHarness(&Scenario{Prefixes: exPrefixes})
	require.NoError(t, err)

	ctx := context.Background()
	for _, line := range []string{
		"ex:book1 rdf:type ex:Publication",
		"ex:book2 rdf:type ex:Article",
		"ex:Article rdfs:subClassOf ex:Publication",
		"ex:publishes rdfs:range ex:Publication",
		"ex:MITPress ex:publishes ex:book3",
	} {
		tr, err := h.parseTriple(line)
		require.NoError(t, err)
		_, err = h.engine.Assert(ctx, tr)
		require.NoError(t, err)
	}
	return &AssertionContext{Ctx: ctx, Store: h.store, Engine: h.engine, Reg: h.reg}
}

func TestEvaluateAssertions(t *testing.T) {
	actx := closedContext(t)

	tests := []struct {
		name      string
		assertion Assertion
		wantErr   string
	}{
		{"contains asserted", Assertion{Type: AssertContains, Triple: "ex:book1 a ex:Publication"}, ""},
		{"contains derived", Assertion{Type: AssertContains, Triple: "ex:book3 a ex:Publication"}, ""},
		{"contains missing", Assertion{Type: AssertContains, Triple: "ex:book9 a ex:Publication"}, "not found"},
		{"absent", Assertion{Type: AssertAbsent, Triple: "ex:book9 a ex:Publication"}, ""},
		{"absent but present", Assertion{Type: AssertAbsent, Triple: "ex:book2 a ex:Publication"}, "present"},
		{"asserted", Assertion{Type: AssertAsserted, Triple: "ex:book2 a ex:Article"}, ""},
		{"asserted but derived", Assertion{Type: AssertAsserted, Triple: "ex:book2 a ex:Publication"}, "in asserted"},
		{"derived", Assertion{Type: AssertDerived, Triple: "ex:book3 a ex:Publication"}, ""},
		{"derived but asserted", Assertion{Type: AssertDerived, Triple: "ex:book1 a ex:Publication"}, "in derived"},
		{"explain by rule", Assertion{Type: AssertExplain, Triple: "ex:book3 a ex:Publication", Rule: "rdfs3"}, ""},
		{"explain by sources", Assertion{
			Type:   AssertExplain,
			Triple: "ex:book2 a ex:Publication",
			Sources: []string{
				"ex:book2 a ex:Article",
				"ex:Article rdfs:subClassOf ex:Publication",
			},
		}, ""},
		{"explain sources out of order", Assertion{
			Type:   AssertExplain,
			Triple: "ex:book2 a ex:Publication",
			Sources: []string{
				"ex:Article rdfs:subClassOf ex:Publication",
				"ex:book2 a ex:Article",
			},
		}, "rdfs9(ex:book2 rdf:type ex:Article; ex:Article rdfs:subClassOf ex:Publication)"},
		{"explain wrong rule", Assertion{Type: AssertExplain, Triple: "ex:book3 a ex:Publication", Rule: "rdfs9"}, "rdfs3("},
		{"explain asserted only", Assertion{Type: AssertExplain, Triple: "ex:book1 a ex:Publication", Rule: "rdfs9"}, "no justifications"},
		{"query", Assertion{
			Type:    AssertQuery,
			Pattern: "?book a ex:Publication",
			Select:  "book",
			Expect:  []string{"ex:book3", "ex:book1", "ex:book2"},
		}, ""},
		{"query full iri", Assertion{
			Type:    AssertQuery,
			Pattern: "?book <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> ex:Article",
			Select:  "?book",
			Expect:  []string{"<http://www.example.org/#book2>"},
		}, ""},
		{"query mismatch", Assertion{
			Type:    AssertQuery,
			Pattern: "?book a ex:Publication",
			Select:  "book",
			Expect:  []string{"ex:book1"},
		}, "-want +got"},
		{"query unknown variable", Assertion{
			Type:    AssertQuery,
			Pattern: "?book a ex:Publication",
			Select:  "author",
			Expect:  []string{"ex:book1"},
		}, "variable ?author does not occur"},
		{"closure size", Assertion{Type: AssertClosureSize, Count: 7}, ""},
		{"closure size mismatch", Assertion{Type: AssertClosureSize, Count: 3}, "7 triples"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := evaluateAssertion(nil, tt.assertion, actx)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEvaluateAssertions_CollectsAllFailures(t *testing.T) {
	actx := closedContext(t)
	result := NewResult()

	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertContains, Triple: "ex:nope a ex:Publication"},
		{Type: AssertClosureSize, Count: 7},
		{Type: AssertAbsent, Triple: "ex:book1 a ex:Publication"},
	}, actx)

	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "assertion 0:")
	assert.Contains(t, errs[1], "assertion 2:")
}

func TestAssertionError_IncludesTrace(t *testing.T) {
	err := &AssertionError{
		Type:     AssertAbsent,
		Expected: "ex:a rdf:type ex:B absent",
		Actual:   "present",
		Trace: []StepEvent{
			{Op: OpClosure},
			{Op: OpRetract, Triple: "ex:a rdf:type ex:C"},
		},
	}

	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: absent")
	assert.Contains(t, msg, "Expected: ex:a rdf:type ex:B absent")
	assert.Contains(t, msg, "[1] closure\n")
	assert.Contains(t, msg, "[2] retract ex:a rdf:type ex:C\n")
}

func TestParsePattern(t *testing.T) {
	h, err := newHarness(&Scenario{Prefixes: exPrefixes})
	require.NoError(t, err)
	std := h.reg.Std()

	p, err := ParsePattern(h.reg, "?s a ex:C .")
	require.NoError(t, err)
	assert.Equal(t, ir.P(ir.Var("s"), ir.Bound(std.Type), ir.Bound(h.reg.Intern("ex:C"))), p)

	_, err = ParsePattern(h.reg, "?s ?p")
	assert.ErrorContains(t, err, "expected 3 terms")

	_, err = ParsePattern(h.reg, `?s ex:name "x"`)
	assert.ErrorContains(t, err, "literals are not supported")
}
