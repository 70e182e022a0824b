package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/roach88/entail/internal/ir"
)

type flags uint8

const (
	flagAsserted flags = 1 << iota
	flagDerived
)

func scopeFlags(s Scope) flags {
	switch s {
	case ScopeAsserted:
		return flagAsserted
	case ScopeDerived:
		return flagDerived
	case ScopeAll:
		return flagAsserted | flagDerived
	default:
		return 0
	}
}

// Memory is an in-memory Store. Safe for concurrent use.
type Memory struct {
	mu      sync.RWMutex
	triples map[ir.Triple]flags
	// One index per position: term -> triples holding it there.
	bySubject   map[ir.Term]ir.TripleSet
	byPredicate map[ir.Term]ir.TripleSet
	byObject    map[ir.Term]ir.TripleSet
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		triples:     make(map[ir.Triple]flags),
		bySubject:   make(map[ir.Term]ir.TripleSet),
		byPredicate: make(map[ir.Term]ir.TripleSet),
		byObject:    make(map[ir.Term]ir.TripleSet),
	}
}

// Match returns every triple in scope that matches p, in Triple.Less order.
func (m *Memory) Match(_ context.Context, p ir.Pattern, scope Scope) ([]ir.Match, error) {
	mask := scopeFlags(scope)
	if mask == 0 {
		return nil, fmt.Errorf("match with %s: %w", scope, ErrInvalidScope)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []ir.Match
	visit := func(t ir.Triple) {
		if m.triples[t]&mask == 0 {
			return
		}
		if b, ok := p.Match(t, nil); ok {
			out = append(out, ir.Match{Triple: t, Bindings: b})
		}
	}

	if !p.S.IsVar() && !p.P.IsVar() && !p.O.IsVar() {
		visit(ir.T(p.S.Term, p.P.Term, p.O.Term))
		return out, nil
	}

	if candidates, ok := m.narrowest(p); ok {
		for t := range candidates {
			visit(t)
		}
	} else {
		for t := range m.triples {
			visit(t)
		}
	}

	sortMatches(out)
	return out, nil
}

// narrowest returns the smallest index set among the bound positions of p.
func (m *Memory) narrowest(p ir.Pattern) (ir.TripleSet, bool) {
	var best ir.TripleSet
	found := false
	consider := func(s ir.Slot, idx map[ir.Term]ir.TripleSet) {
		if s.IsVar() {
			return
		}
		set := idx[s.Term]
		if !found || len(set) < len(best) {
			best, found = set, true
		}
	}
	consider(p.S, m.bySubject)
	consider(p.P, m.byPredicate)
	consider(p.O, m.byObject)
	return best, found
}

// Insert sets t's flag for scope.
func (m *Memory) Insert(_ context.Context, t ir.Triple, scope Scope) (bool, error) {
	if err := checkWrite("insert", t, scope, false); err != nil {
		return false, err
	}
	f := scopeFlags(scope)

	m.mu.Lock()
	defer m.mu.Unlock()

	cur, present := m.triples[t]
	if cur&f != 0 {
		return false, nil
	}
	m.triples[t] = cur | f
	if !present {
		index(m.bySubject, t.S, t)
		index(m.byPredicate, t.P, t)
		index(m.byObject, t.O, t)
	}
	return true, nil
}

// Delete clears t's flag for scope, removing t when no flag is left.
func (m *Memory) Delete(_ context.Context, t ir.Triple, scope Scope) (bool, error) {
	if err := checkWrite("delete", t, scope, true); err != nil {
		return false, err
	}
	f := scopeFlags(scope)

	m.mu.Lock()
	defer m.mu.Unlock()

	cur, present := m.triples[t]
	if !present || cur&f == 0 {
		return false, nil
	}
	next := cur &^ f
	if next != 0 {
		m.triples[t] = next
		return true, nil
	}
	delete(m.triples, t)
	unindex(m.bySubject, t.S, t)
	unindex(m.byPredicate, t.P, t)
	unindex(m.byObject, t.O, t)
	return true, nil
}

// Len counts the triples in scope.
func (m *Memory) Len(_ context.Context, scope Scope) (int, error) {
	mask := scopeFlags(scope)
	if mask == 0 {
		return 0, fmt.Errorf("len with %s: %w", scope, ErrInvalidScope)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if scope == ScopeAll {
		return len(m.triples), nil
	}
	n := 0
	for _, f := range m.triples {
		if f&mask != 0 {
			n++
		}
	}
	return n, nil
}

func index(idx map[ir.Term]ir.TripleSet, k ir.Term, t ir.Triple) {
	set, ok := idx[k]
	if !ok {
		set = make(ir.TripleSet)
		idx[k] = set
	}
	set.Add(t)
}

func unindex(idx map[ir.Term]ir.TripleSet, k ir.Term, t ir.Triple) {
	set := idx[k]
	delete(set, t)
	if len(set) == 0 {
		delete(idx, k)
	}
}

func sortMatches(ms []ir.Match) {
	sort.Slice(ms, func(i, j int) bool { return ms[i].Triple.Less(ms[j].Triple) })
}
