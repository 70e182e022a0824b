package rules

import (
	"strings"

	"github.com/roach88/entail/internal/ir"
)

// Validate checks a single rule at construction time:
//   - non-empty name and body
//   - every bound slot holds an issued term
//   - variable names are non-empty and free of '=', ';' and whitespace
//   - range restriction: every head variable appears in some body pattern
//   - every constraint variable appears in some body pattern
func Validate(r ir.Rule) error {
	if r.Name == "" {
		return &UnsafeRuleError{Rule: r.Name, Reason: "rule name is required"}
	}
	if len(r.Body) == 0 {
		return &UnsafeRuleError{Rule: r.Name, Reason: "rule body is empty"}
	}

	patterns := append([]ir.Pattern{r.Head}, r.Body...)
	for _, p := range patterns {
		for _, s := range p.Slots() {
			if err := validateSlot(r.Name, s); err != nil {
				return err
			}
		}
	}
	for _, c := range r.Constraints {
		if err := validateConstraint(r.Name, c); err != nil {
			return err
		}
	}

	if unbound := r.UnboundHeadVars(); len(unbound) > 0 {
		return &UnsafeRuleError{
			Rule:     r.Name,
			Variable: unbound[0],
			Reason:   "appears in the head but in no body pattern",
		}
	}
	if unbound := r.UnboundConstraintVars(); len(unbound) > 0 {
		return &UnsafeRuleError{
			Rule:     r.Name,
			Variable: unbound[0],
			Reason:   "appears in a constraint but in no body pattern",
		}
	}
	return nil
}

func validateSlot(rule string, s ir.Slot) error {
	if s.IsVar() {
		if strings.ContainsAny(s.Var, "=; \t\n") {
			return &UnsafeRuleError{Rule: rule, Variable: s.Var, Reason: "has an invalid name"}
		}
		return nil
	}
	if !s.Term.Valid() {
		return &UnsafeRuleError{Rule: rule, Reason: "pattern slot is neither a variable nor a term"}
	}
	return nil
}

func validateConstraint(rule string, c ir.Constraint) error {
	switch c.Op {
	case ir.OpNotEqual:
		if err := validateSlot(rule, c.Left); err != nil {
			return err
		}
		return validateSlot(rule, c.Right)
	case ir.OpIsKind, ir.OpNotKind:
		if !c.Left.IsVar() {
			return &UnsafeRuleError{Rule: rule, Reason: "kind constraint must test a variable"}
		}
		if c.Kind < ir.KindIRI || c.Kind > ir.KindLiteral {
			return &UnsafeRuleError{Rule: rule, Variable: c.Left.Var, Reason: "has a kind constraint with an unknown kind"}
		}
		return validateSlot(rule, c.Left)
	default:
		return &UnsafeRuleError{Rule: rule, Reason: "unknown constraint op " + string(c.Op)}
	}
}
