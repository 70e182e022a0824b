// Package engine computes and maintains the entailment closure of a triple
// store under a rule set.
//
// ARCHITECTURE:
//
// Semi-naive Evaluation:
// Each round matches every rule against the triples that were new in the
// previous round (delta) joined with everything in the store (all). A rule
// binding is only considered if at least one of its body triples is in
// delta, so no binding is evaluated twice across rounds. Round 0 uses every
// stored triple as delta.
//
// Single Writer:
// ComputeClosure, Assert, Retract and Explain serialize on one mutex. Rule
// evaluation inside a round may run in parallel (WithParallelism), but
// results are merged into the store and the justification index by the
// calling goroutine in rule declaration order, so output is identical to
// sequential evaluation.
//
// Truth Maintenance:
// Every (rule, binding) firing is recorded as a justification in a
// tms.Tracker. Retraction uses delete-and-rederive: everything that
// transitively rests on the retracted triple is removed, then each removed
// triple still derivable from what remains is restored and rounds run from
// the restored set. This stays exact when support is cyclic.
//
// CRITICAL PATTERNS:
//
// Justification Seq:
// The writer stamps every recorded justification with the next seq.
// Explain orders by seq, never by wall time.
//
// Deterministic Scheduling:
// Rules evaluated in declaration order. Delta triples visited in
// Triple.Less order. Store errors are returned to the caller unchanged.
package engine
