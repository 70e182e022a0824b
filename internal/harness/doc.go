// Package harness runs closure scenarios against the engine.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: rdfs9_subclass
//	description: "Instances of a subclass are instances of the superclass"
//	run_id: run-rdfs9
//	prefixes:
//	  ex: "http://www.example.org/#"
//	rules:
//	  - rules/publishing.cue
//	asserted:
//	  - ex:Article rdfs:subClassOf ex:Publication
//	  - ex:book2 a ex:Article
//	steps:
//	  - op: closure
//	    expect: { triples_added: 1 }
//	  - op: retract
//	    triple: ex:book2 a ex:Article
//	    expect: { removed: true, triples_retracted: 1 }
//	assertions:
//	  - type: absent
//	    triple: ex:book2 a ex:Publication
//
// Triples are written in the ntriples line format (prefixed names, "a",
// optional trailing "."). Rule files are compiled CUE and appended to the
// base RDFS rules.
//
// # Steps
//
//   - closure: runs ComputeClosure
//   - assert: asserts one triple
//   - retract: retracts one triple
//
// # Assertion Types
//
//   - contains: the triple is present (asserted or derived)
//   - absent: the triple is not present
//   - asserted: the triple carries the asserted flag
//   - derived: the triple carries the derived flag
//   - explain: some justification of the triple matches rule and sources
//   - query: the bindings of one variable over a pattern equal the listed terms
//   - closure_size: number of present triples
//
// # Deterministic Testing
//
// Every scenario runs on a fresh in-memory store with a fixed run id, so the
// trace and final closure are identical across runs and can be compared
// against golden files.
package harness
