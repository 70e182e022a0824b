package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/entail/internal/ir"
	"github.com/roach88/entail/internal/metric"
	"github.com/roach88/entail/internal/rules"
	"github.com/roach88/entail/internal/store"
	"github.com/roach88/entail/internal/tms"
	"github.com/roach88/entail/internal/vocab"
)

// Engine computes the closure of a store under a rule set and keeps it
// current as triples are asserted and retracted.
//
// Thread-safety model:
//   - ComputeClosure, Assert, Retract, Explain: safe from any goroutine;
//     they serialize on one mutex (single writer)
//   - rule evaluation within a round may fan out (WithParallelism); merging
//     is always done by the writer in rule declaration order
//
// INVARIANTS:
//   - rule order NEVER changes after construction
//   - every derived triple in the store has at least one justification
//   - a justification never cites its own head
type Engine struct {
	mu sync.Mutex

	store   store.Store
	ruleSet *rules.RuleSet
	rules   []ir.Rule // Declaration order
	reg     *vocab.Registry
	tracker *tms.Tracker
	runIDs  RunIDGenerator

	maxRounds   int
	parallelism int
	metrics     *metric.Metrics
	logger      *slog.Logger

	// seq is the last justification stamp. Only the writer advances it.
	seq int64

	// synced is set once the tracker reflects the store and the store is
	// closed under the rules. Any failed operation clears it.
	synced bool
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithMaxRounds sets the maximum number of rounds per run.
//
// Default: 64 rounds (DefaultMaxRounds). Values below 1 keep the default.
func WithMaxRounds(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxRounds = n
		}
	}
}

// WithParallelism evaluates up to n rules of a round concurrently.
// n <= 1 evaluates sequentially. Results are identical either way.
func WithParallelism(n int) EngineOption {
	return func(e *Engine) {
		e.parallelism = n
	}
}

// WithMetrics records run metrics. nil disables recording.
func WithMetrics(m *metric.Metrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithRunIDGenerator sets the run id source. Default: UUIDv7Generator.
func WithRunIDGenerator(g RunIDGenerator) EngineOption {
	return func(e *Engine) {
		e.runIDs = g
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// ClosureReport summarizes a closure or assert run.
type ClosureReport struct {
	RunID          string `json:"run_id"`
	TriplesAdded   int    `json:"triples_added"`
	RoundsRun      int    `json:"rounds_run"`
	Justifications int    `json:"justifications"`
}

// RetractReport summarizes a retraction.
type RetractReport struct {
	RunID string `json:"run_id"`
	// Removed is false if the triple was not asserted; nothing changes then.
	Removed bool `json:"removed"`
	// TriplesRetracted counts triples that left the store, including the
	// retracted triple itself.
	TriplesRetracted int `json:"triples_retracted"`
	// TriplesRederived counts over-deleted triples that were restored.
	TriplesRederived int `json:"triples_rederived"`
	RoundsRun        int `json:"rounds_run"`
}

// New creates an Engine over st with the given rule set.
//
// The rule set is immutable, so its declaration order is fixed for the
// lifetime of the engine.
//
// Options can be passed to configure the engine (e.g., WithMaxRounds).
func New(st store.Store, rs *rules.RuleSet, reg *vocab.Registry, opts ...EngineOption) *Engine {
	e := &Engine{
		store:     st,
		ruleSet:   rs,
		rules:     rs.Rules(),
		reg:       reg,
		tracker:   tms.New(),
		runIDs:    UUIDv7Generator{},
		maxRounds: DefaultMaxRounds,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// RuleSet returns the engine's rules.
func (e *Engine) RuleSet() *rules.RuleSet {
	return e.ruleSet
}

// ComputeClosure runs semi-naive rounds seeded with every stored triple
// until no new triple appears.
//
// Running it on a saturated store adds nothing (TriplesAdded == 0) and
// rebuilds any justifications the tracker is missing. Derived triples the
// tracker cannot account for (e.g. left by another process) are dropped
// and recomputed from the asserted triples.
func (e *Engine) ComputeClosure(ctx context.Context) (ClosureReport, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	runID := e.runIDs.Generate()
	log := e.logger.With("run_id", runID, "operation", metric.OpClosure)

	report, err := e.computeClosure(ctx, runID, log)
	e.finish(metric.OpClosure, report.RoundsRun, start, err)
	if err != nil {
		e.unsync(err)
		log.Error("closure failed", "error", err, "rounds", report.RoundsRun)
		return report, err
	}

	log.Info("closure complete",
		"triples_added", report.TriplesAdded,
		"rounds", report.RoundsRun,
		"justifications", report.Justifications,
		"duration", time.Since(start))
	return report, nil
}

func (e *Engine) computeClosure(ctx context.Context, runID string, log *slog.Logger) (ClosureReport, error) {
	report := ClosureReport{RunID: runID}

	before, err := store.All(ctx, e.store, store.ScopeAll)
	if err != nil {
		return report, err
	}
	if err := e.dropUnjustified(ctx, before, log); err != nil {
		return report, err
	}

	seed, err := store.All(ctx, e.store, store.ScopeAll)
	if err != nil {
		return report, err
	}

	rounds, _, err := e.fixpoint(ctx, runID, seed, log)
	report.RoundsRun = rounds
	report.Justifications = e.tracker.Len()
	if err != nil {
		return report, err
	}
	e.synced = true

	after, err := store.All(ctx, e.store, store.ScopeAll)
	if err != nil {
		return report, err
	}
	for t := range after {
		if !before.Has(t) {
			report.TriplesAdded++
		}
	}
	return report, nil
}

// dropUnjustified clears the derived flag of every derived triple when any
// of them has no justification, or when the tracker justifies a triple the
// store no longer holds, and resets the tracker. The following fixpoint
// then rebuilds both from scratch, which is exact even if the stale
// triples supported each other.
func (e *Engine) dropUnjustified(ctx context.Context, present ir.TripleSet, log *slog.Logger) error {
	derived, err := store.All(ctx, e.store, store.ScopeDerived)
	if err != nil {
		return err
	}
	stale := 0
	for t := range derived {
		if !e.tracker.Supported(t) {
			stale++
		}
	}
	missing := 0
	for _, h := range e.tracker.Heads() {
		if !present.Has(h) {
			missing++
		}
	}
	if stale == 0 && missing == 0 {
		return nil
	}

	log.Info("rebuilding derived triples",
		"derived", len(derived),
		"unjustified", stale,
		"missing_heads", missing)
	e.tracker.Reset()
	for _, t := range derived.Sorted() {
		if _, err := e.store.Delete(ctx, t, store.ScopeDerived); err != nil {
			return err
		}
	}
	return nil
}

// ensureSynced makes the tracker reflect the store before an incremental
// update. Returns the number of triples the catch-up closure added.
func (e *Engine) ensureSynced(ctx context.Context, runID string, log *slog.Logger) (int, int, error) {
	if e.synced {
		return 0, 0, nil
	}
	n, err := e.store.Len(ctx, store.ScopeAll)
	if err != nil {
		return 0, 0, err
	}
	if n == 0 {
		e.synced = true
		return 0, 0, nil
	}
	log.Debug("computing closure before incremental update", "triples", n)
	report, err := e.computeClosure(ctx, runID, log)
	return report.TriplesAdded, report.RoundsRun, err
}

// Assert adds t as an asserted triple and derives its consequences.
//
// If t was already present (asserted or derived) only the asserted flag is
// set and no rounds run.
func (e *Engine) Assert(ctx context.Context, t ir.Triple) (ClosureReport, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	runID := e.runIDs.Generate()
	log := e.logger.With("run_id", runID, "operation", metric.OpAssert)

	report, err := e.assert(ctx, runID, t, log)
	e.finish(metric.OpAssert, report.RoundsRun, start, err)
	if err != nil {
		e.unsync(err)
		log.Error("assert failed", "triple", e.reg.Format(t), "error", err)
		return report, err
	}

	log.Info("assert complete",
		"triple", e.reg.Format(t),
		"triples_added", report.TriplesAdded,
		"rounds", report.RoundsRun)
	return report, nil
}

func (e *Engine) assert(ctx context.Context, runID string, t ir.Triple, log *slog.Logger) (ClosureReport, error) {
	report := ClosureReport{RunID: runID}
	if !t.Valid() {
		return report, fmt.Errorf("assert %s: %w", t, store.ErrInvalidTriple)
	}

	added, rounds, err := e.ensureSynced(ctx, runID, log)
	report.TriplesAdded += added
	report.RoundsRun += rounds
	if err != nil {
		return report, err
	}

	present, err := store.Contains(ctx, e.store, t, store.ScopeAll)
	if err != nil {
		return report, err
	}
	if _, err := e.store.Insert(ctx, t, store.ScopeAsserted); err != nil {
		return report, err
	}

	if !present {
		rounds, newTriples, err := e.fixpoint(ctx, runID, ir.NewTripleSet(t), log)
		report.RoundsRun += rounds
		report.TriplesAdded += len(newTriples)
		if err != nil {
			report.Justifications = e.tracker.Len()
			return report, err
		}
	}
	report.Justifications = e.tracker.Len()
	return report, nil
}

// Retract removes t's asserted flag and everything that no longer follows.
//
// Delete-and-rederive:
//  1. every triple whose support transitively passes through t is removed,
//     together with its justifications (t too, if it was also derived)
//  2. each removed triple that some rule still derives from the remaining
//     triples is restored with those justifications
//  3. rounds seeded with the restored triples bring back the rest
//
// Afterwards the store equals a closure recomputed from the remaining
// asserted triples. Retracting a triple that was not asserted is a no-op
// (Removed == false).
func (e *Engine) Retract(ctx context.Context, t ir.Triple) (RetractReport, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	runID := e.runIDs.Generate()
	log := e.logger.With("run_id", runID, "operation", metric.OpRetract)

	report, err := e.retract(ctx, runID, t, log)
	e.finish(metric.OpRetract, report.RoundsRun, start, err)
	if err != nil {
		e.unsync(err)
		log.Error("retract failed", "triple", e.reg.Format(t), "error", err)
		return report, err
	}
	e.metrics.Retracted(report.TriplesRetracted, report.TriplesRederived)

	log.Info("retract complete",
		"triple", e.reg.Format(t),
		"removed", report.Removed,
		"triples_retracted", report.TriplesRetracted,
		"triples_rederived", report.TriplesRederived,
		"rounds", report.RoundsRun)
	return report, nil
}

func (e *Engine) retract(ctx context.Context, runID string, t ir.Triple, log *slog.Logger) (RetractReport, error) {
	report := RetractReport{RunID: runID}
	if !t.Valid() {
		return report, fmt.Errorf("retract %s: %w", t, store.ErrInvalidTriple)
	}

	_, rounds, err := e.ensureSynced(ctx, runID, log)
	report.RoundsRun += rounds
	if err != nil {
		return report, err
	}

	removed, err := e.store.Delete(ctx, t, store.ScopeAsserted)
	if err != nil {
		return report, err
	}
	if !removed {
		return report, nil
	}
	report.Removed = true

	// Over-delete.
	victims := e.tracker.OverDeleteSet(t)
	if e.tracker.Supported(t) {
		victims.Add(t)
	}
	orphaned := e.tracker.Invalidate(t)
	log.Debug("over-delete", "victims", len(victims), "orphaned", len(orphaned))

	ordered := victims.Sorted()
	for _, v := range ordered {
		if _, err := e.store.Delete(ctx, v, store.ScopeDerived); err != nil {
			// The index may now cite removed triples; rebuild it next time.
			e.tracker.Reset()
			return report, err
		}
		e.tracker.Forget(v)
		e.tracker.Invalidate(v)
	}

	// Rederive.
	restored := make(ir.TripleSet)
	all := storeSource{st: e.store}
	for _, v := range ordered {
		ok, err := e.rederiveOne(ctx, v, all)
		if err != nil {
			e.tracker.Reset()
			return report, err
		}
		if ok {
			restored.Add(v)
		}
	}
	log.Debug("rederive", "restored", len(restored))

	n, _, err := e.fixpoint(ctx, runID, restored, log)
	report.RoundsRun += n
	if err != nil {
		return report, err
	}

	// Tally against the final store.
	candidates := victims.Sorted()
	if !victims.Has(t) {
		candidates = append(candidates, t)
	}
	for _, v := range candidates {
		present, err := store.Contains(ctx, e.store, v, store.ScopeAll)
		if err != nil {
			return report, err
		}
		switch {
		case !present:
			report.TriplesRetracted++
		case victims.Has(v) && e.tracker.Supported(v):
			report.TriplesRederived++
		}
	}
	e.metrics.SetJustifications(e.tracker.Len())
	return report, nil
}

// rederiveOne restores v if any rule derives it from the current store,
// recording every such derivation. Reports whether v was restored.
func (e *Engine) rederiveOne(ctx context.Context, v ir.Triple, all matchSource) (bool, error) {
	restored := false
	for _, r := range e.rules {
		fs, err := rederive(ctx, r, v, all, e.reg.Kind)
		if err != nil {
			return false, err
		}
		for _, f := range fs {
			j := ir.NewJustification(f.rule, f.head, f.bindings, f.sources, 0)
			if j.SelfSupporting() || e.tracker.Has(j.ID) {
				continue
			}
			j.Seq = e.nextSeq()
			e.tracker.Add(j)
			restored = true
		}
	}
	if !restored {
		return false, nil
	}
	if _, err := e.store.Insert(ctx, v, store.ScopeDerived); err != nil {
		return false, err
	}
	return true, nil
}

// Explain returns the justifications of t ordered by seq. Asserted-only
// and absent triples have none.
func (e *Engine) Explain(t ir.Triple) []ir.Justification {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tracker.Supports(t)
}

// Dependents returns the justifications citing t as a source, ordered by
// seq. Retracting t would invalidate all of them.
func (e *Engine) Dependents(t ir.Triple) []ir.Justification {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tracker.Dependents(t)
}

// Derived returns the triples carrying the derived flag, sorted.
func (e *Engine) Derived(ctx context.Context) ([]ir.Triple, error) {
	set, err := store.All(ctx, e.store, store.ScopeDerived)
	if err != nil {
		return nil, err
	}
	return set.Sorted(), nil
}

// Asserted returns the triples carrying the asserted flag, sorted.
func (e *Engine) Asserted(ctx context.Context) ([]ir.Triple, error) {
	set, err := store.All(ctx, e.store, store.ScopeAsserted)
	if err != nil {
		return nil, err
	}
	return set.Sorted(), nil
}

// fixpoint runs semi-naive rounds starting from delta until a round
// produces nothing new. Returns the rounds run and the triples that were
// not present before this call.
//
// The context is checked at round boundaries only; a cancelled run returns
// after fully merging the last completed round.
func (e *Engine) fixpoint(ctx context.Context, runID string, delta ir.TripleSet, log *slog.Logger) (int, ir.TripleSet, error) {
	guard := NewRoundGuard(e.maxRounds)
	added := make(ir.TripleSet)

	for len(delta) > 0 {
		if err := ctx.Err(); err != nil {
			return guard.Current(), added, err
		}
		if err := guard.Check(runID); err != nil {
			return guard.Current() - 1, added, err
		}

		results, err := e.evaluateRound(ctx, delta)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return guard.Current() - 1, added, ctxErr
			}
			return guard.Current() - 1, added, err
		}

		next, err := e.merge(ctx, results)
		if err != nil {
			return guard.Current(), added, err
		}
		for t := range next {
			added.Add(t)
		}

		log.Debug("round complete",
			"round", guard.Current(),
			"limit", guard.MaxRounds(),
			"delta", len(delta),
			"new", len(next))
		delta = next
	}

	e.metrics.SetJustifications(e.tracker.Len())
	return guard.Current(), added, nil
}

// roundBuffer collects per-rule results from concurrent evaluation.
type roundBuffer struct {
	mu     sync.Mutex
	byRule [][]firing
}

func (b *roundBuffer) put(i int, fs []firing) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.byRule[i] = fs
}

// evaluateRound evaluates every rule against delta. Results are indexed by
// rule position so merging is in declaration order regardless of
// completion order.
func (e *Engine) evaluateRound(ctx context.Context, delta ir.TripleSet) ([][]firing, error) {
	d := newDeltaSource(delta)
	all := storeSource{st: e.store}
	buf := &roundBuffer{byRule: make([][]firing, len(e.rules))}

	if e.parallelism <= 1 {
		for i, r := range e.rules {
			fs, err := evaluateRule(ctx, r, d, all, e.reg.Kind)
			if err != nil {
				return nil, err
			}
			buf.put(i, fs)
		}
		return buf.byRule, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallelism)
	for i, r := range e.rules {
		i, r := i, r
		g.Go(func() error {
			fs, err := evaluateRule(gctx, r, d, all, e.reg.Kind)
			if err != nil {
				return err
			}
			buf.put(i, fs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return buf.byRule, nil
}

// merge writes a round's firings to the store and tracker in rule order.
// Returns the heads that were not present before.
func (e *Engine) merge(ctx context.Context, results [][]firing) (ir.TripleSet, error) {
	next := make(ir.TripleSet)
	for i, fs := range results {
		newTriples, recorded := 0, 0
		for _, f := range fs {
			j := ir.NewJustification(f.rule, f.head, f.bindings, f.sources, 0)
			if j.SelfSupporting() || e.tracker.Has(j.ID) {
				continue
			}

			present, err := store.Contains(ctx, e.store, f.head, store.ScopeAll)
			if err != nil {
				return nil, err
			}
			if _, err := e.store.Insert(ctx, f.head, store.ScopeDerived); err != nil {
				return nil, err
			}

			j.Seq = e.nextSeq()
			e.tracker.Add(j)
			recorded++
			if !present {
				next.Add(f.head)
				newTriples++
			}
		}
		if recorded > 0 {
			e.metrics.RuleFired(e.rules[i].Name, newTriples, recorded)
		}
	}
	return next, nil
}

// nextSeq stamps a justification. Stamps increase across runs, so Explain
// lists derivations in the order they were found.
func (e *Engine) nextSeq() int64 {
	e.seq++
	return e.seq
}

// unsync makes the next operation start with a catch-up closure. A failed
// run may stop between rounds with the store not yet closed.
func (e *Engine) unsync(err error) {
	if errors.Is(err, store.ErrInvalidTriple) {
		return
	}
	e.synced = false
}

func (e *Engine) finish(op string, rounds int, start time.Time, err error) {
	e.metrics.RunFinished(op, rounds, time.Since(start), err)
}

// String describes the engine configuration for debug logs.
func (e *Engine) String() string {
	return fmt.Sprintf("engine(rules=%d, max_rounds=%d, parallelism=%d)",
		len(e.rules), e.maxRounds, e.parallelism)
}
