package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scenarioDir holds the shipped scenarios, relative to this package.
const scenarioDir = "../../testdata/scenarios"

// TestScenarios runs every shipped scenario and compares its trace and final
// closure with the golden file of the same name.
//
// To regenerate golden files after an intended change:
//
//	go test ./internal/harness -run TestScenarios -update
func TestScenarios(t *testing.T) {
	tests := []string{
		"rdfs9_subclass",
		"rdfs3_range",
		"publications",
		"cascade",
		"cyclic_subclass",
		"custom_rules",
	}

	for _, name := range tests {
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(filepath.Join(scenarioDir, name+".yaml"))
			require.NoError(t, err, "failed to load scenario %s", name)
			assert.Equal(t, name, scenario.Name, "scenario name must match its file")

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "scenario failed: %v", result.Errors)
		})
	}
}

func TestRun_Deterministic(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join(scenarioDir, "cascade.yaml"))
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	a, err := (&TraceSnapshot{ScenarioName: "x", Trace: first.Trace, Closure: first.Closure}).Marshal()
	require.NoError(t, err)
	b, err := (&TraceSnapshot{ScenarioName: "x", Trace: second.Trace, Closure: second.Closure}).Marshal()
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestAssertGolden_ReusesResult(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join(scenarioDir, "rdfs9_subclass.yaml"))
	require.NoError(t, err)
	scenario.RunID = ""

	result, err := Run(scenario)
	require.NoError(t, err)
	require.NoError(t, AssertGolden(t, "rdfs9_default_run", result))
}

func TestTraceSnapshot_Marshal(t *testing.T) {
	s := &TraceSnapshot{
		ScenarioName: "tiny",
		Trace:        []StepEvent{{Op: OpClosure, RunID: "r"}},
		Closure:      []string{},
	}
	data, err := s.Marshal()
	require.NoError(t, err)

	assert.Equal(t, `{
  "scenario_name": "tiny",
  "trace": [
    {
      "op": "closure",
      "run_id": "r",
      "triples_added": 0,
      "rounds_run": 0
    }
  ],
  "closure": []
}
`, string(data))
}
