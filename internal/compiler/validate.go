package compiler

import (
	"fmt"

	"github.com/roach88/entail/internal/ir"
	"github.com/roach88/entail/internal/vocab"
)

// Validation error codes (E100-E199)
const (
	ErrRuleNameEmpty        = "E101" // rule name is required
	ErrRuleBodyEmpty        = "E102" // at least one body pattern required
	ErrUnsafeHeadVariable   = "E103" // head variable not bound by the body
	ErrUnboundConstraintVar = "E104" // constraint variable not bound by the body
	ErrDuplicateName        = "E105" // duplicate rule name
	ErrLiteralPosition      = "E106" // literal in subject or predicate position
	ErrBlankPredicate       = "E107" // blank node in predicate position
	ErrUnknownTerm          = "E108" // bound term the registry never issued
)

// ValidationError represents a rule validation error.
type ValidationError struct {
	Rule    string `json:"rule"`
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Rule != "" {
		return fmt.Sprintf("[%s] rule %s: %s: %s", e.Code, e.Rule, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// ValidateRules checks compiled rules against reg.
// Returns all errors found (does not fail-fast), in rule order.
//
// rules.New rejects the same unsafe rules at construction; this pass exists
// so rule authors see every problem in a file at once.
func ValidateRules(rs []ir.Rule, reg *vocab.Registry) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool)

	for i, r := range rs {
		// E105: duplicate rule name
		if r.Name != "" && seen[r.Name] {
			errs = append(errs, ValidationError{
				Rule:    r.Name,
				Field:   fmt.Sprintf("rule[%d].name", i),
				Message: fmt.Sprintf("duplicate rule name %q", r.Name),
				Code:    ErrDuplicateName,
			})
		}
		seen[r.Name] = true
		errs = append(errs, validateRule(i, r, reg)...)
	}
	return errs
}

func validateRule(i int, r ir.Rule, reg *vocab.Registry) []ValidationError {
	var errs []ValidationError
	add := func(field, code, format string, args ...any) {
		errs = append(errs, ValidationError{
			Rule:    r.Name,
			Field:   field,
			Message: fmt.Sprintf(format, args...),
			Code:    code,
		})
	}

	// E101
	if r.Name == "" {
		add(fmt.Sprintf("rule[%d].name", i), ErrRuleNameEmpty, "rule name is required")
	}
	// E102
	if len(r.Body) == 0 {
		add("body", ErrRuleBodyEmpty, "at least one body pattern is required")
	}

	errs = append(errs, validatePattern(r, "head", r.Head, reg)...)
	for j, p := range r.Body {
		errs = append(errs, validatePattern(r, fmt.Sprintf("body[%d]", j), p, reg)...)
	}

	// E103
	for _, v := range r.UnboundHeadVars() {
		add("head", ErrUnsafeHeadVariable, "variable ?%s appears in the head but in no body pattern", v)
	}
	// E104
	for _, v := range r.UnboundConstraintVars() {
		add("where", ErrUnboundConstraintVar, "variable ?%s appears in a constraint but in no body pattern", v)
	}
	return errs
}

func validatePattern(r ir.Rule, field string, p ir.Pattern, reg *vocab.Registry) []ValidationError {
	var errs []ValidationError
	positions := [3]string{"subject", "predicate", "object"}

	for i, s := range p.Slots() {
		if s.IsVar() {
			continue
		}
		// E108
		if _, err := reg.Resolve(s.Term); err != nil {
			errs = append(errs, ValidationError{
				Rule:    r.Name,
				Field:   fmt.Sprintf("%s.%s", field, positions[i]),
				Message: err.Error(),
				Code:    ErrUnknownTerm,
			})
			continue
		}
		kind := reg.Kind(s.Term)
		// E106
		if kind == ir.KindLiteral && i < 2 {
			errs = append(errs, ValidationError{
				Rule:    r.Name,
				Field:   fmt.Sprintf("%s.%s", field, positions[i]),
				Message: fmt.Sprintf("literal %s cannot be a %s", reg.Compact(s.Term), positions[i]),
				Code:    ErrLiteralPosition,
			})
		}
		// E107
		if kind == ir.KindBlank && i == 1 {
			errs = append(errs, ValidationError{
				Rule:    r.Name,
				Field:   fmt.Sprintf("%s.predicate", field),
				Message: fmt.Sprintf("blank node %s cannot be a predicate", reg.Compact(s.Term)),
				Code:    ErrBlankPredicate,
			})
		}
	}
	return errs
}
