package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intp(n int) *int    { return &n }
func boolp(b bool) *bool { return &b }

var exPrefixes = map[string]string{"ex": "http://www.example.org/#"}

func TestRun_SubClassClosure(t *testing.T) {
	scenario := &Scenario{
		Name:        "subclass",
		Description: "rdfs9 over two asserted triples",
		RunID:       "run-subclass",
		Prefixes:    exPrefixes,
		Asserted: []string{
			"ex:book2 rdf:type ex:Article",
			"ex:Article rdfs:subClassOf ex:Publication",
		},
		Steps: []Step{{Op: OpClosure, Expect: &StepExpect{TriplesAdded: intp(1), RoundsRun: intp(2)}}},
		Assertions: []Assertion{
			{Type: AssertDerived, Triple: "ex:book2 rdf:type ex:Publication"},
			{Type: AssertAsserted, Triple: "ex:book2 rdf:type ex:Article"},
			{Type: AssertExplain, Triple: "ex:book2 rdf:type ex:Publication", Rule: "rdfs9"},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Errors)
	require.Len(t, result.Trace, 1)
	assert.Equal(t, StepEvent{
		Op:             OpClosure,
		RunID:          "run-subclass",
		TriplesAdded:   1,
		Justifications: 1,
		RoundsRun:      2,
	}, result.Trace[0])
	assert.Equal(t, []string{
		"ex:Article rdfs:subClassOf ex:Publication  [asserted]",
		"ex:book2 rdf:type ex:Article  [asserted]",
		"ex:book2 rdf:type ex:Publication  [derived]",
	}, result.Closure)
}

func TestRun_DefaultRunID(t *testing.T) {
	scenario := &Scenario{
		Name:        "default_run_id",
		Description: "no run id",
		Steps:       []Step{{Op: OpClosure}},
		Assertions:  []Assertion{{Type: AssertClosureSize, Count: 0}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass)
	assert.Equal(t, "test-run-default", result.Trace[0].RunID)
	assert.Empty(t, result.Closure)
}

func TestRun_AssertAndRetractSteps(t *testing.T) {
	scenario := &Scenario{
		Name:        "incremental",
		Description: "assert then retract",
		Prefixes:    exPrefixes,
		Asserted:    []string{"ex:Article rdfs:subClassOf ex:Publication"},
		Steps: []Step{
			{Op: OpAssert, Triple: "ex:book2 a ex:Article", Expect: &StepExpect{TriplesAdded: intp(1)}},
			{Op: OpRetract, Triple: "ex:book2 a ex:Article", Expect: &StepExpect{
				Removed:          boolp(true),
				TriplesRetracted: intp(2),
				TriplesRederived: intp(0),
			}},
		},
		Assertions: []Assertion{
			{Type: AssertAbsent, Triple: "ex:book2 rdf:type ex:Publication"},
			{Type: AssertClosureSize, Count: 1},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	require.Len(t, result.Trace, 2)
	assert.Equal(t, "ex:book2 rdf:type ex:Article", result.Trace[0].Triple, "triples are reported compacted")
	assert.True(t, result.Trace[1].Removed)
}

func TestRun_FailedExpectation(t *testing.T) {
	scenario := &Scenario{
		Name:        "wrong_count",
		Description: "expects too much",
		Prefixes:    exPrefixes,
		Asserted: []string{
			"ex:book2 rdf:type ex:Article",
			"ex:Article rdfs:subClassOf ex:Publication",
		},
		Steps:      []Step{{Op: OpClosure, Expect: &StepExpect{TriplesAdded: intp(5)}}},
		Assertions: []Assertion{{Type: AssertClosureSize, Count: 3}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "triples_added: expected 5, got 1")
}

func TestRun_ExpectedError(t *testing.T) {
	scenario := &Scenario{
		Name:        "round_limit",
		Description: "a chain longer than the round limit",
		Prefixes:    exPrefixes,
		MaxRounds:   1,
		Asserted: []string{
			"ex:x rdf:type ex:A",
			"ex:A rdfs:subClassOf ex:B",
			"ex:B rdfs:subClassOf ex:C",
		},
		Steps:      []Step{{Op: OpClosure, Expect: &StepExpect{Error: "exceeded"}}},
		Assertions: []Assertion{{Type: AssertContains, Triple: "ex:x rdf:type ex:B"}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.NotEmpty(t, result.Trace[0].Error)
}

func TestRun_UnexpectedErrorAborts(t *testing.T) {
	scenario := &Scenario{
		Name:        "round_limit",
		Description: "no error expected",
		Prefixes:    exPrefixes,
		MaxRounds:   1,
		Asserted: []string{
			"ex:x rdf:type ex:A",
			"ex:A rdfs:subClassOf ex:B",
		},
		Steps:      []Step{{Op: OpClosure}},
		Assertions: []Assertion{{Type: AssertClosureSize, Count: 3}},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step 0 (closure)")
}

func TestRun_MissingExpectedError(t *testing.T) {
	scenario := &Scenario{
		Name:        "no_error",
		Description: "expects an error that never comes",
		Steps:       []Step{{Op: OpClosure, Expect: &StepExpect{Error: "boom"}}},
		Assertions:  []Assertion{{Type: AssertClosureSize}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], `expected error containing "boom"`)
}

func TestRun_BadTriple(t *testing.T) {
	scenario := &Scenario{
		Name:        "bad",
		Description: "unknown prefix",
		Asserted:    []string{"zz:a rdf:type zz:B"},
		Steps:       []Step{{Op: OpClosure}},
		Assertions:  []Assertion{{Type: AssertClosureSize}},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "asserted[0]")
	assert.Contains(t, err.Error(), `unknown prefix "zz"`)
}

func TestRunContext_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	scenario := &Scenario{
		Name:        "cancelled",
		Description: "cancelled before the first round",
		Prefixes:    exPrefixes,
		Asserted:    []string{"ex:x rdf:type ex:A", "ex:A rdfs:subClassOf ex:B"},
		Steps:       []Step{{Op: OpClosure}},
		Assertions:  []Assertion{{Type: AssertClosureSize, Count: 2}},
	}

	_, err := RunContext(ctx, scenario)
	require.ErrorIs(t, err, context.Canceled)
}
