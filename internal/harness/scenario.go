package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a closure test scenario: initial triples, a sequence of
// closure/assert/retract steps and assertions on the final store.
type Scenario struct {
	// Name uniquely identifies this scenario. Also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// RunID is the fixed run id reported by every step.
	// If empty, defaults to "test-run-default".
	RunID string `yaml:"run_id,omitempty"`

	// Prefixes registers namespace prefixes in addition to rdf and rdfs.
	Prefixes map[string]string `yaml:"prefixes,omitempty"`

	// Rules lists CUE rule files appended to the base RDFS rules.
	// Paths are relative to the scenario file location.
	Rules []string `yaml:"rules,omitempty"`

	// Asserted is inserted into the store before the first step.
	// No closure is run until a step asks for one.
	Asserted []string `yaml:"asserted,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final store.
	Assertions []Assertion `yaml:"assertions"`

	// MaxRounds overrides the engine round limit. Zero keeps the default.
	MaxRounds int `yaml:"max_rounds,omitempty"`
}

// Step is one engine operation.
type Step struct {
	// Op is "closure", "assert" or "retract".
	Op string `yaml:"op"`

	// Triple is the operand of assert and retract.
	Triple string `yaml:"triple,omitempty"`

	// Expect checks the step's report. Nil fields are not checked.
	Expect *StepExpect `yaml:"expect,omitempty"`
}

// StepExpect lists report fields to check.
type StepExpect struct {
	TriplesAdded     *int  `yaml:"triples_added,omitempty"`
	RoundsRun        *int  `yaml:"rounds_run,omitempty"`
	Removed          *bool `yaml:"removed,omitempty"`
	TriplesRetracted *int  `yaml:"triples_retracted,omitempty"`
	TriplesRederived *int  `yaml:"triples_rederived,omitempty"`

	// Error is a substring of the expected error. A step with an expected
	// error does not abort the scenario.
	Error string `yaml:"error,omitempty"`
}

// Assertion validates the final store.
type Assertion struct {
	// Type specifies the assertion type:
	// - "contains": triple is present
	// - "absent": triple is not present
	// - "asserted": triple carries the asserted flag
	// - "derived": triple carries the derived flag
	// - "explain": some justification matches Rule and Sources
	// - "query": bindings of Select over Pattern equal Expect
	// - "closure_size": Count triples are present
	Type string `yaml:"type"`

	// Triple is the subject of contains/absent/asserted/derived/explain.
	Triple string `yaml:"triple,omitempty"`

	// Rule is the expected rule name (explain). Empty matches any rule.
	Rule string `yaml:"rule,omitempty"`

	// Sources are the expected supporting triples in body order (explain).
	Sources []string `yaml:"sources,omitempty"`

	// Pattern is a triple pattern with ?variables (query).
	Pattern string `yaml:"pattern,omitempty"`

	// Select names the variable whose bindings are collected (query).
	Select string `yaml:"select,omitempty"`

	// Expect lists the expected bindings in any order (query).
	Expect []string `yaml:"expect,omitempty"`

	// Count is the expected closure size (closure_size).
	Count int `yaml:"count,omitempty"`
}

// Step op constants.
const (
	OpClosure = "closure"
	OpAssert  = "assert"
	OpRetract = "retract"
)

// Assertion type constants.
const (
	AssertContains    = "contains"
	AssertAbsent      = "absent"
	AssertAsserted    = "asserted"
	AssertDerived     = "derived"
	AssertExplain     = "explain"
	AssertQuery       = "query"
	AssertClosureSize = "closure_size"
)

// LoadScenario reads and parses a scenario YAML file.
// Rule paths are resolved relative to the scenario file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving rule paths relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	// Resolve rule paths relative to base path BEFORE validation
	for i, rulePath := range scenario.Rules {
		if !filepath.IsAbs(rulePath) && basePath != "" {
			scenario.Rules[i] = filepath.Join(basePath, rulePath)
		}
	}

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return scenario, nil
}

// ParseScenario decodes scenario YAML without validating rule paths.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if s.MaxRounds < 0 {
		return fmt.Errorf("max_rounds must be non-negative")
	}

	for _, rulePath := range s.Rules {
		if _, err := os.Stat(rulePath); os.IsNotExist(err) {
			return fmt.Errorf("rule file not found: %s", rulePath)
		}
	}

	for prefix, ns := range s.Prefixes {
		if prefix == "" || ns == "" {
			return fmt.Errorf("prefixes: empty prefix or namespace")
		}
	}

	for i, step := range s.Steps {
		switch step.Op {
		case OpClosure:
			if step.Triple != "" {
				return fmt.Errorf("steps[%d]: closure takes no triple", i)
			}
		case OpAssert, OpRetract:
			if step.Triple == "" {
				return fmt.Errorf("steps[%d]: triple is required for %s", i, step.Op)
			}
		case "":
			return fmt.Errorf("steps[%d]: op is required", i)
		default:
			return fmt.Errorf("steps[%d]: unknown op %q", i, step.Op)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertContains, AssertAbsent, AssertAsserted, AssertDerived:
		if a.Triple == "" {
			return fmt.Errorf("assertions[%d]: triple is required for %s", index, a.Type)
		}
	case AssertExplain:
		if a.Triple == "" {
			return fmt.Errorf("assertions[%d]: triple is required for explain", index)
		}
		if a.Rule == "" && len(a.Sources) == 0 {
			return fmt.Errorf("assertions[%d]: rule or sources is required for explain", index)
		}
	case AssertQuery:
		if a.Pattern == "" {
			return fmt.Errorf("assertions[%d]: pattern is required for query", index)
		}
		if a.Select == "" {
			return fmt.Errorf("assertions[%d]: select is required for query", index)
		}
	case AssertClosureSize:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for closure_size", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
