package engine

import (
	"context"

	"github.com/roach88/entail/internal/ir"
)

// firing is one satisfied rule binding: the head it produces and the body
// triples that matched, in body order.
type firing struct {
	rule     string
	head     ir.Triple
	bindings ir.Bindings
	sources  []ir.Triple
}

// evaluateRule finds every binding of r with at least one body pattern
// matched in delta and the rest matched against all.
//
// For body position i, pattern i is matched against delta and every other
// pattern against all. A binding whose body has several delta triples is
// found once per such position; duplicates are dropped by binding key.
func evaluateRule(ctx context.Context, r ir.Rule, delta, all matchSource, kindOf ir.KindFunc) ([]firing, error) {
	var out []firing
	seen := make(map[string]bool)

	for i := range r.Body {
		sources := make([]matchSource, len(r.Body))
		for j := range sources {
			sources[j] = all
		}
		sources[i] = delta

		// Start from the delta position so the smallest side drives the join.
		order := make([]int, 0, len(r.Body))
		order = append(order, i)
		for j := range r.Body {
			if j != i {
				order = append(order, j)
			}
		}

		bindings, err := join(ctx, r.Body, order, sources, ir.Bindings{})
		if err != nil {
			return nil, err
		}
		for _, b := range bindings {
			key := b.Key()
			if seen[key] {
				continue
			}
			seen[key] = true
			if f, ok := fire(r, b, kindOf); ok {
				out = append(out, f)
			}
		}
	}
	return out, nil
}

// rederive finds every binding of r whose head is t, matching the whole body
// against all.
func rederive(ctx context.Context, r ir.Rule, t ir.Triple, all matchSource, kindOf ir.KindFunc) ([]firing, error) {
	b, ok := r.Head.Match(t, nil)
	if !ok {
		return nil, nil
	}

	order := make([]int, len(r.Body))
	sources := make([]matchSource, len(r.Body))
	for j := range r.Body {
		order[j] = j
		sources[j] = all
	}

	bindings, err := join(ctx, r.Body, order, sources, b)
	if err != nil {
		return nil, err
	}
	var out []firing
	for _, full := range bindings {
		if f, ok := fire(r, full, kindOf); ok {
			out = append(out, f)
		}
	}
	return out, nil
}

// join extends b across the body patterns in the given order, matching
// pattern j against sources[j]. Returns every complete extension.
func join(ctx context.Context, body []ir.Pattern, order []int, sources []matchSource, b ir.Bindings) ([]ir.Bindings, error) {
	partial := []ir.Bindings{b}
	for _, j := range order {
		var next []ir.Bindings
		for _, pb := range partial {
			ext, err := sources[j].match(ctx, body[j], pb)
			if err != nil {
				return nil, err
			}
			next = append(next, ext...)
		}
		partial = next
		if len(partial) == 0 {
			return nil, nil
		}
	}
	return partial, nil
}

// fire applies r's constraints to a complete binding and instantiates the
// head and sources. Returns false if a constraint fails.
func fire(r ir.Rule, b ir.Bindings, kindOf ir.KindFunc) (firing, bool) {
	if !r.Admits(b, kindOf) {
		return firing{}, false
	}
	head, ok := r.Head.Substitute(b)
	if !ok {
		return firing{}, false
	}
	sources := make([]ir.Triple, len(r.Body))
	for j, p := range r.Body {
		src, ok := p.Substitute(b)
		if !ok {
			return firing{}, false
		}
		sources[j] = src
	}
	return firing{rule: r.Name, head: head, bindings: b, sources: sources}, true
}
