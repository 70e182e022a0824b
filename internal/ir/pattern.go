package ir

import (
	"fmt"
	"sort"
	"strings"
)

// Slot is one position of a Pattern: either a bound Term or a named variable.
// A Slot with a non-empty Var is a variable; Term is ignored in that case.
type Slot struct {
	Term Term   `json:"term,omitempty"`
	Var  string `json:"var,omitempty"`
}

// Var returns a variable slot.
func Var(name string) Slot {
	return Slot{Var: name}
}

// Bound returns a slot fixed to t.
func Bound(t Term) Slot {
	return Slot{Term: t}
}

// IsVar reports whether s is a variable.
func (s Slot) IsVar() bool {
	return s.Var != ""
}

// Resolve returns the term for s under b: the bound term, or the variable's
// binding. ok is false for an unbound variable.
func (s Slot) Resolve(b Bindings) (Term, bool) {
	if !s.IsVar() {
		return s.Term, true
	}
	t, ok := b[s.Var]
	return t, ok
}

func (s Slot) String() string {
	if s.IsVar() {
		return "?" + s.Var
	}
	return fmt.Sprintf("%d", s.Term)
}

// Pattern is a triple template.
type Pattern struct {
	S Slot `json:"s"`
	P Slot `json:"p"`
	O Slot `json:"o"`
}

// P builds a Pattern.
func P(s, p, o Slot) Pattern {
	return Pattern{S: s, P: p, O: o}
}

// Slots returns the three positions in subject, predicate, object order.
func (p Pattern) Slots() [3]Slot {
	return [3]Slot{p.S, p.P, p.O}
}

// Vars returns the distinct variable names in position order.
func (p Pattern) Vars() []string {
	var out []string
	for _, s := range p.Slots() {
		if s.IsVar() && !contains(out, s.Var) {
			out = append(out, s.Var)
		}
	}
	return out
}

// Bind replaces every variable bound in b with its term. Unbound variables
// stay variables. The result is what a store is asked to match.
func (p Pattern) Bind(b Bindings) Pattern {
	bind := func(s Slot) Slot {
		if t, ok := s.Resolve(b); ok && s.IsVar() {
			return Bound(t)
		}
		return s
	}
	return Pattern{S: bind(p.S), P: bind(p.P), O: bind(p.O)}
}

// Match unifies p with t under the existing bindings b. On success it returns
// b extended with the new variable bindings (b itself is never modified).
// Repeated variables must bind to the same term.
func (p Pattern) Match(t Triple, b Bindings) (Bindings, bool) {
	slots := p.Slots()
	terms := [3]Term{t.S, t.P, t.O}

	var added [3]string
	var addedTerms [3]Term
	n := 0
	for i, s := range slots {
		if !s.IsVar() {
			if s.Term != terms[i] {
				return nil, false
			}
			continue
		}
		if bound, ok := b[s.Var]; ok {
			if bound != terms[i] {
				return nil, false
			}
			continue
		}
		dup := false
		for j := 0; j < n; j++ {
			if added[j] == s.Var {
				if addedTerms[j] != terms[i] {
					return nil, false
				}
				dup = true
			}
		}
		if !dup {
			added[n] = s.Var
			addedTerms[n] = terms[i]
			n++
		}
	}

	out := make(Bindings, len(b)+n)
	for k, v := range b {
		out[k] = v
	}
	for j := 0; j < n; j++ {
		out[added[j]] = addedTerms[j]
	}
	return out, true
}

// Substitute instantiates p under b. ok is false if any variable is unbound.
func (p Pattern) Substitute(b Bindings) (Triple, bool) {
	s, ok1 := p.S.Resolve(b)
	pr, ok2 := p.P.Resolve(b)
	o, ok3 := p.O.Resolve(b)
	if !ok1 || !ok2 || !ok3 {
		return Triple{}, false
	}
	return Triple{S: s, P: pr, O: o}, true
}

func (p Pattern) String() string {
	return fmt.Sprintf("(%s %s %s)", p.S, p.P, p.O)
}

// Bindings maps variable names to terms.
type Bindings map[string]Term

// Names returns the bound variable names, sorted.
func (b Bindings) Names() []string {
	names := make([]string, 0, len(b))
	for k := range b {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Key returns a canonical string for b: "name=id" pairs sorted by name and
// joined with ";". Equal bindings always produce equal keys.
func (b Bindings) Key() string {
	var sb strings.Builder
	for i, name := range b.Names() {
		if i > 0 {
			sb.WriteByte(';')
		}
		fmt.Fprintf(&sb, "%s=%d", name, b[name])
	}
	return sb.String()
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
