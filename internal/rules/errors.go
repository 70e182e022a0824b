package rules

import (
	"errors"
	"fmt"
)

// UnsafeRuleError rejects a rule that could produce unbound derivations:
// a head or constraint variable that no body pattern binds, an empty body,
// or a malformed pattern.
type UnsafeRuleError struct {
	Rule     string
	Variable string // Offending variable, empty when the problem is structural
	Reason   string
}

func (e *UnsafeRuleError) Error() string {
	if e.Variable != "" {
		return fmt.Sprintf("unsafe rule %q: variable ?%s %s", e.Rule, e.Variable, e.Reason)
	}
	return fmt.Sprintf("unsafe rule %q: %s", e.Rule, e.Reason)
}

// DuplicateRuleNameError rejects a rule set in which two rules share a name.
type DuplicateRuleNameError struct {
	Name string
}

func (e *DuplicateRuleNameError) Error() string {
	return fmt.Sprintf("duplicate rule name %q", e.Name)
}

// IsUnsafeRule reports whether err is (or wraps) an UnsafeRuleError.
func IsUnsafeRule(err error) bool {
	var ue *UnsafeRuleError
	return errors.As(err, &ue)
}

// IsDuplicateRuleName reports whether err is (or wraps) a DuplicateRuleNameError.
func IsDuplicateRuleName(err error) bool {
	var de *DuplicateRuleNameError
	return errors.As(err, &de)
}
