package ir

import (
	"fmt"
	"sort"
)

// Triple is a subject-predicate-object statement over interned terms.
// Triples are immutable values; stores hold sets of them.
type Triple struct {
	S Term `json:"s"`
	P Term `json:"p"`
	O Term `json:"o"`
}

// T builds a Triple.
func T(s, p, o Term) Triple {
	return Triple{S: s, P: p, O: o}
}

// Valid reports whether all three positions hold issued terms.
func (t Triple) Valid() bool {
	return t.S.Valid() && t.P.Valid() && t.O.Valid()
}

// Less orders triples by subject, then predicate, then object.
func (t Triple) Less(u Triple) bool {
	if t.S != u.S {
		return t.S < u.S
	}
	if t.P != u.P {
		return t.P < u.P
	}
	return t.O < u.O
}

// String renders the raw ids. Use vocab.Registry.Format for lexical output.
func (t Triple) String() string {
	return fmt.Sprintf("(%d %d %d)", t.S, t.P, t.O)
}

// SortTriples sorts in place using Triple.Less.
func SortTriples(ts []Triple) {
	sort.Slice(ts, func(i, j int) bool { return ts[i].Less(ts[j]) })
}

// TripleSet is a set of triples.
type TripleSet map[Triple]struct{}

// NewTripleSet builds a set from the given triples.
func NewTripleSet(ts ...Triple) TripleSet {
	s := make(TripleSet, len(ts))
	for _, t := range ts {
		s[t] = struct{}{}
	}
	return s
}

// Add inserts t and reports whether it was absent.
func (s TripleSet) Add(t Triple) bool {
	if _, ok := s[t]; ok {
		return false
	}
	s[t] = struct{}{}
	return true
}

// Has reports membership.
func (s TripleSet) Has(t Triple) bool {
	_, ok := s[t]
	return ok
}

// Sorted returns the members in Triple.Less order.
func (s TripleSet) Sorted() []Triple {
	out := make([]Triple, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	SortTriples(out)
	return out
}

// Match is one store hit for a pattern: the triple and the variable
// bindings that made it match.
type Match struct {
	Triple   Triple
	Bindings Bindings
}
