// Package oracle recomputes a closure with Google Mangle, an independent
// Datalog engine, so the incremental engine can be checked against it.
//
// Each rule becomes one Mangle clause over a ternary t/3 predicate. Term
// ids are written as numbers, so the program never sees lexical forms:
//
//	Decl asserted(S, P, O).
//	t(S, P, O) :- asserted(S, P, O).
//	# rdfs9
//	t(V0, 1, V2) :- t(V0, 1, V1), t(V1, 2, V2), V1 != V2.
//
// Kind constraints use literal/1 and blank/1 facts generated for every term
// the program mentions; IsKind(x, iri) is the negation of both.
package oracle

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	_ "github.com/google/mangle/builtin"
	mengine "github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"

	"github.com/roach88/entail/internal/ir"
)

// Oracle evaluates a rule set from scratch.
type Oracle struct {
	rules  []ir.Rule
	kindOf ir.KindFunc
}

// New creates an Oracle for rs. kindOf classifies terms for kind
// constraints; pass the registry's Kind method.
func New(rs []ir.Rule, kindOf ir.KindFunc) *Oracle {
	return &Oracle{rules: rs, kindOf: kindOf}
}

// Closure returns every triple entailed by asserted, asserted included.
func (o *Oracle) Closure(asserted []ir.Triple) (ir.TripleSet, error) {
	src, err := o.Program(asserted)
	if err != nil {
		return nil, err
	}

	unit, err := parse.Unit(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("oracle parse: %w", err)
	}
	programInfo, err := analysis.AnalyzeOneUnit(unit, nil)
	if err != nil {
		return nil, fmt.Errorf("oracle analysis: %w", err)
	}
	store := factstore.NewSimpleInMemoryStore()
	if _, err := mengine.EvalProgramWithStats(programInfo, store); err != nil {
		return nil, fmt.Errorf("oracle evaluation: %w", err)
	}

	out := make(ir.TripleSet)
	query := ast.NewQuery(ast.PredicateSym{Symbol: "t", Arity: 3})
	err = store.GetFacts(query, func(atom ast.Atom) error {
		var terms [3]ir.Term
		for i, arg := range atom.Args {
			c, ok := arg.(ast.Constant)
			if !ok || c.Type != ast.NumberType {
				return fmt.Errorf("oracle: unexpected argument %v in %v", arg, atom)
			}
			terms[i] = ir.Term(c.NumValue)
		}
		out.Add(ir.T(terms[0], terms[1], terms[2]))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Program renders the Mangle source for asserted under the oracle's rules.
// Output is deterministic: facts are sorted and rules keep their order.
func (o *Oracle) Program(asserted []ir.Triple) (string, error) {
	var b strings.Builder
	// Declared so the program stays well-formed with no asserted facts.
	b.WriteString("Decl asserted(S, P, O).\n")
	b.WriteString("t(S, P, O) :- asserted(S, P, O).\n")
	b.WriteString("non_iri(X) :- literal(X).\n")
	b.WriteString("non_iri(X) :- blank(X).\n")
	// Term 0 is never issued; these keep literal/1 and blank/1 defined
	// when no term of that kind exists.
	b.WriteString("literal(0).\nblank(0).\n")

	for _, r := range o.rules {
		clause, err := translate(r)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "# %s\n%s\n", r.Name, clause)
	}

	facts := ir.NewTripleSet(asserted...).Sorted()
	for _, t := range facts {
		fmt.Fprintf(&b, "asserted(%d, %d, %d).\n", t.S, t.P, t.O)
	}
	for _, term := range o.mentioned(facts) {
		switch o.kindOf(term) {
		case ir.KindLiteral:
			fmt.Fprintf(&b, "literal(%d).\n", term)
		case ir.KindBlank:
			fmt.Fprintf(&b, "blank(%d).\n", term)
		}
	}
	return b.String(), nil
}

// mentioned returns the sorted terms of facts and rule constants.
func (o *Oracle) mentioned(facts []ir.Triple) []ir.Term {
	seen := make(map[ir.Term]bool)
	for _, t := range facts {
		seen[t.S], seen[t.P], seen[t.O] = true, true, true
	}
	for _, r := range o.rules {
		for _, p := range append([]ir.Pattern{r.Head}, r.Body...) {
			for _, s := range p.Slots() {
				if !s.IsVar() {
					seen[s.Term] = true
				}
			}
		}
	}
	out := make([]ir.Term, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// translate renders one rule as a Mangle clause. Variables are renamed
// V0, V1, ... in order of first appearance in the body.
func translate(r ir.Rule) (string, error) {
	names := make(map[string]string)
	for _, p := range r.Body {
		for _, v := range p.Vars() {
			if _, ok := names[v]; !ok {
				names[v] = fmt.Sprintf("V%d", len(names))
			}
		}
	}
	slot := func(s ir.Slot) (string, error) {
		if !s.IsVar() {
			return fmt.Sprintf("%d", s.Term), nil
		}
		name, ok := names[s.Var]
		if !ok {
			return "", fmt.Errorf("oracle: rule %s: variable ?%s not bound by the body", r.Name, s.Var)
		}
		return name, nil
	}
	atom := func(p ir.Pattern) (string, error) {
		var args [3]string
		for i, s := range p.Slots() {
			a, err := slot(s)
			if err != nil {
				return "", err
			}
			args[i] = a
		}
		return fmt.Sprintf("t(%s, %s, %s)", args[0], args[1], args[2]), nil
	}

	head, err := atom(r.Head)
	if err != nil {
		return "", err
	}
	var body []string
	for _, p := range r.Body {
		a, err := atom(p)
		if err != nil {
			return "", err
		}
		body = append(body, a)
	}
	for _, c := range r.Constraints {
		lit, err := constraint(c, slot)
		if err != nil {
			return "", fmt.Errorf("oracle: rule %s: %w", r.Name, err)
		}
		body = append(body, lit)
	}
	return fmt.Sprintf("%s :- %s.", head, strings.Join(body, ", ")), nil
}

func constraint(c ir.Constraint, slot func(ir.Slot) (string, error)) (string, error) {
	switch c.Op {
	case ir.OpNotEqual:
		l, err := slot(c.Left)
		if err != nil {
			return "", err
		}
		r, err := slot(c.Right)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s != %s", l, r), nil
	case ir.OpIsKind, ir.OpNotKind:
		v, err := slot(c.Left)
		if err != nil {
			return "", err
		}
		pred, negate := kindPredicate(c.Kind)
		if c.Op == ir.OpNotKind {
			negate = !negate
		}
		if negate {
			return fmt.Sprintf("!%s(%s)", pred, v), nil
		}
		return fmt.Sprintf("%s(%s)", pred, v), nil
	default:
		return "", fmt.Errorf("unsupported constraint %s", c)
	}
}

// kindPredicate maps a kind to the predicate that holds for it, and whether
// that predicate must be negated.
func kindPredicate(k ir.TermKind) (string, bool) {
	switch k {
	case ir.KindLiteral:
		return "literal", false
	case ir.KindBlank:
		return "blank", false
	default:
		return "non_iri", true
	}
}

// Diff compares a closure against the oracle's. missing holds triples the
// oracle derives that got lacks; extra holds triples got has that the
// oracle does not. Both are sorted.
func Diff(got, want ir.TripleSet) (missing, extra []ir.Triple) {
	for t := range want {
		if !got.Has(t) {
			missing = append(missing, t)
		}
	}
	for t := range got {
		if !want.Has(t) {
			extra = append(extra, t)
		}
	}
	ir.SortTriples(missing)
	ir.SortTriples(extra)
	return missing, extra
}
