package engine

import (
	"context"

	"github.com/roach88/entail/internal/ir"
	"github.com/roach88/entail/internal/store"
)

// matchSource is one side of a semi-naive join: the delta of the previous
// round, or everything in the store.
type matchSource interface {
	match(ctx context.Context, p ir.Pattern, b ir.Bindings) ([]ir.Bindings, error)
}

// deltaSource matches against the triples new in the previous round.
// Triples are kept in Triple.Less order so evaluation is deterministic.
type deltaSource struct {
	triples []ir.Triple
}

func newDeltaSource(delta ir.TripleSet) deltaSource {
	return deltaSource{triples: delta.Sorted()}
}

func (d deltaSource) match(_ context.Context, p ir.Pattern, b ir.Bindings) ([]ir.Bindings, error) {
	var out []ir.Bindings
	for _, t := range d.triples {
		if nb, ok := p.Match(t, b); ok {
			out = append(out, nb)
		}
	}
	return out, nil
}

// storeSource matches against every present triple. Store errors are
// returned unchanged.
type storeSource struct {
	st store.Store
}

func (s storeSource) match(ctx context.Context, p ir.Pattern, b ir.Bindings) ([]ir.Bindings, error) {
	hits, err := s.st.Match(ctx, p.Bind(b), store.ScopeAll)
	if err != nil {
		return nil, err
	}
	out := make([]ir.Bindings, 0, len(hits))
	for _, h := range hits {
		if nb, ok := p.Match(h.Triple, b); ok {
			out = append(out, nb)
		}
	}
	return out, nil
}
