package rules

import (
	"fmt"

	"github.com/roach88/entail/internal/ir"
)

// RuleSet is an ordered, immutable collection of validated rules with
// unique names. Evaluation order is declaration order.
type RuleSet struct {
	rules []ir.Rule
	index map[string]int
}

// New validates rules and builds a RuleSet in the given order.
func New(rules ...ir.Rule) (*RuleSet, error) {
	rs := &RuleSet{
		rules: make([]ir.Rule, 0, len(rules)),
		index: make(map[string]int, len(rules)),
	}
	for _, r := range rules {
		if err := rs.add(r); err != nil {
			return nil, err
		}
	}
	return rs, nil
}

// WithCustomRules returns a new RuleSet with extra appended after the rules
// of base. base is not modified.
func WithCustomRules(base *RuleSet, extra ...ir.Rule) (*RuleSet, error) {
	all := make([]ir.Rule, 0, base.Len()+len(extra))
	all = append(all, base.rules...)
	all = append(all, extra...)
	return New(all...)
}

func (rs *RuleSet) add(r ir.Rule) error {
	if err := Validate(r); err != nil {
		return err
	}
	if _, dup := rs.index[r.Name]; dup {
		return &DuplicateRuleNameError{Name: r.Name}
	}
	rs.index[r.Name] = len(rs.rules)
	rs.rules = append(rs.rules, cloneRule(r))
	return nil
}

// Rules returns the rules in declaration order. The slice is a copy.
func (rs *RuleSet) Rules() []ir.Rule {
	out := make([]ir.Rule, len(rs.rules))
	copy(out, rs.rules)
	return out
}

// Len returns the number of rules.
func (rs *RuleSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.rules)
}

// Names returns rule names in declaration order.
func (rs *RuleSet) Names() []string {
	out := make([]string, len(rs.rules))
	for i, r := range rs.rules {
		out[i] = r.Name
	}
	return out
}

// Lookup returns the rule named name.
func (rs *RuleSet) Lookup(name string) (ir.Rule, bool) {
	i, ok := rs.index[name]
	if !ok {
		return ir.Rule{}, false
	}
	return rs.rules[i], true
}

// Permute returns a RuleSet with the same rules in the order given by
// indexes into Rules(). order must be a permutation of 0..Len()-1.
func (rs *RuleSet) Permute(order []int) (*RuleSet, error) {
	if len(order) != len(rs.rules) {
		return nil, fmt.Errorf("permute: got %d indexes for %d rules", len(order), len(rs.rules))
	}
	seen := make([]bool, len(rs.rules))
	out := make([]ir.Rule, len(order))
	for i, j := range order {
		if j < 0 || j >= len(rs.rules) || seen[j] {
			return nil, fmt.Errorf("permute: invalid index %d", j)
		}
		seen[j] = true
		out[i] = rs.rules[j]
	}
	return New(out...)
}

// cloneRule copies the slices so later mutation by the caller cannot change
// a validated rule.
func cloneRule(r ir.Rule) ir.Rule {
	body := make([]ir.Pattern, len(r.Body))
	copy(body, r.Body)
	r.Body = body
	if r.Constraints != nil {
		cs := make([]ir.Constraint, len(r.Constraints))
		copy(cs, r.Constraints)
		r.Constraints = cs
	}
	return r
}
