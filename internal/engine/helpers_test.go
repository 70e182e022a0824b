package engine

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/entail/internal/ir"
	"github.com/roach88/entail/internal/rules"
	"github.com/roach88/entail/internal/store"
	"github.com/roach88/entail/internal/testutil"
	"github.com/roach88/entail/internal/vocab"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	reg *vocab.Registry
	rs  *rules.RuleSet
	st  *store.Memory
	eng *Engine
}

func newFixture(t *testing.T, opts ...EngineOption) *fixture {
	t.Helper()
	reg := testutil.Registry()
	return newFixtureWith(t, reg, rules.Base(reg), opts...)
}

func newFixtureWith(t *testing.T, reg *vocab.Registry, rs *rules.RuleSet, opts ...EngineOption) *fixture {
	t.Helper()
	st := store.NewMemory()
	base := []EngineOption{
		WithRunIDGenerator(NewSequentialGenerator("run")),
		WithLogger(quietLogger()),
	}
	eng := New(st, rs, reg, append(base, opts...)...)
	return &fixture{reg: reg, rs: rs, st: st, eng: eng}
}

// seed inserts asserted triples directly into the store, bypassing Assert.
func (f *fixture) seed(t *testing.T, lines ...string) []ir.Triple {
	t.Helper()
	ts := testutil.Triples(f.reg, lines...)
	for _, tr := range ts {
		_, err := f.st.Insert(context.Background(), tr, store.ScopeAsserted)
		require.NoError(t, err)
	}
	return ts
}

func (f *fixture) tr(line string) ir.Triple {
	return testutil.Triples(f.reg, line)[0]
}

func (f *fixture) derived(t *testing.T) []string {
	t.Helper()
	ts, err := f.eng.Derived(context.Background())
	require.NoError(t, err)
	return testutil.Lines(f.reg, ts)
}

func (f *fixture) closure(t *testing.T) []string {
	t.Helper()
	set, err := store.All(context.Background(), f.st, store.ScopeAll)
	require.NoError(t, err)
	return testutil.SetLines(f.reg, set)
}

// recompute builds the closure of asserted from scratch on a fresh store.
func recompute(t *testing.T, reg *vocab.Registry, rs *rules.RuleSet, asserted []ir.Triple) []string {
	t.Helper()
	f := newFixtureWith(t, reg, rs)
	for _, tr := range asserted {
		_, err := f.st.Insert(context.Background(), tr, store.ScopeAsserted)
		require.NoError(t, err)
	}
	_, err := f.eng.ComputeClosure(context.Background())
	require.NoError(t, err)
	return f.closure(t)
}

// faultyStore wraps a Store and fails Match after a number of calls.
type faultyStore struct {
	store.Store
	failAfter int64
	calls     atomic.Int64
	err       error
}

func (s *faultyStore) Match(ctx context.Context, p ir.Pattern, scope store.Scope) ([]ir.Match, error) {
	if s.calls.Add(1) > s.failAfter {
		return nil, s.err
	}
	return s.Store.Match(ctx, p, scope)
}

// cancellingStore cancels a context after a number of Match calls.
type cancellingStore struct {
	store.Store
	cancelAfter int64
	calls       atomic.Int64
	cancel      context.CancelFunc
}

func (s *cancellingStore) Match(ctx context.Context, p ir.Pattern, scope store.Scope) ([]ir.Match, error) {
	if s.calls.Add(1) == s.cancelAfter {
		s.cancel()
	}
	return s.Store.Match(ctx, p, scope)
}
