package rules

import (
	"github.com/roach88/entail/internal/ir"
	"github.com/roach88/entail/internal/vocab"
)

// Base rule names.
const (
	RDFS2  = "rdfs2"
	RDFS3  = "rdfs3"
	RDFS5  = "rdfs5"
	RDFS7  = "rdfs7"
	RDFS9  = "rdfs9"
	RDFS11 = "rdfs11"
)

// Base returns the built-in RDFS rule set over reg's standard vocabulary.
//
//	rdfs9   ?x type ?c1,  ?c1 subClassOf ?c2      → ?x type ?c2       (?c1 != ?c2)
//	rdfs3   ?p range ?c,  ?x ?p ?y                → ?y type ?c        (?y not a literal)
//	rdfs2   ?p domain ?c, ?x ?p ?y                → ?x type ?c
//	rdfs11  ?a subClassOf ?b, ?b subClassOf ?c    → ?a subClassOf ?c  (?a != ?b, ?b != ?c)
//	rdfs5   ?a subPropertyOf ?b, ?b subPropertyOf ?c → ?a subPropertyOf ?c (same)
//	rdfs7   ?p subPropertyOf ?q, ?x ?p ?y         → ?x ?q ?y          (?p != ?q)
//
// The inequalities keep reflexive axioms from producing trivial
// self-derivations.
func Base(reg *vocab.Registry) *RuleSet {
	std := reg.Std()
	rs, err := New(
		SubClassPropagation(RDFS9, std.Type, std.SubClassOf),
		RangePropagation(RDFS3, std.Type, std.Range),
		DomainPropagation(RDFS2, std.Type, std.Domain),
		Transitive(RDFS11, std.SubClassOf),
		Transitive(RDFS5, std.SubPropertyOf),
		SubPropertyPropagation(RDFS7, std.SubPropertyOf),
	)
	if err != nil {
		// The built-in rules are static; failure here is a programming error.
		panic(err)
	}
	return rs
}

// SubClassPropagation builds an rdfs9-style rule over the given type and
// subclass predicates. Passing a custom subclass predicate yields the same
// entailment for an application vocabulary.
func SubClassPropagation(name string, typ, subClassOf ir.Term) ir.Rule {
	return ir.Rule{
		Name: name,
		Head: ir.P(ir.Var("x"), ir.Bound(typ), ir.Var("c2")),
		Body: []ir.Pattern{
			ir.P(ir.Var("x"), ir.Bound(typ), ir.Var("c1")),
			ir.P(ir.Var("c1"), ir.Bound(subClassOf), ir.Var("c2")),
		},
		Constraints: []ir.Constraint{ir.NotEqual(ir.Var("c1"), ir.Var("c2"))},
	}
}

// RangePropagation builds an rdfs3-style rule.
func RangePropagation(name string, typ, rng ir.Term) ir.Rule {
	return ir.Rule{
		Name: name,
		Head: ir.P(ir.Var("y"), ir.Bound(typ), ir.Var("c")),
		Body: []ir.Pattern{
			ir.P(ir.Var("p"), ir.Bound(rng), ir.Var("c")),
			ir.P(ir.Var("x"), ir.Var("p"), ir.Var("y")),
		},
		Constraints: []ir.Constraint{ir.NotKind("y", ir.KindLiteral)},
	}
}

// DomainPropagation builds an rdfs2-style rule.
func DomainPropagation(name string, typ, domain ir.Term) ir.Rule {
	return ir.Rule{
		Name: name,
		Head: ir.P(ir.Var("x"), ir.Bound(typ), ir.Var("c")),
		Body: []ir.Pattern{
			ir.P(ir.Var("p"), ir.Bound(domain), ir.Var("c")),
			ir.P(ir.Var("x"), ir.Var("p"), ir.Var("y")),
		},
	}
}

// Transitive builds a transitivity rule for pred.
func Transitive(name string, pred ir.Term) ir.Rule {
	return ir.Rule{
		Name: name,
		Head: ir.P(ir.Var("a"), ir.Bound(pred), ir.Var("c")),
		Body: []ir.Pattern{
			ir.P(ir.Var("a"), ir.Bound(pred), ir.Var("b")),
			ir.P(ir.Var("b"), ir.Bound(pred), ir.Var("c")),
		},
		Constraints: []ir.Constraint{
			ir.NotEqual(ir.Var("a"), ir.Var("b")),
			ir.NotEqual(ir.Var("b"), ir.Var("c")),
		},
	}
}

// SubPropertyPropagation builds an rdfs7-style rule.
func SubPropertyPropagation(name string, subPropertyOf ir.Term) ir.Rule {
	return ir.Rule{
		Name: name,
		Head: ir.P(ir.Var("x"), ir.Var("q"), ir.Var("y")),
		Body: []ir.Pattern{
			ir.P(ir.Var("p"), ir.Bound(subPropertyOf), ir.Var("q")),
			ir.P(ir.Var("x"), ir.Var("p"), ir.Var("y")),
		},
		Constraints: []ir.Constraint{ir.NotEqual(ir.Var("p"), ir.Var("q"))},
	}
}
