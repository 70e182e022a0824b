package ir

// Rule is one entailment rule: when every Body pattern matches (with
// consistent variable bindings) and every Constraint holds, Head is entailed.
//
// Rules are plain values. Custom rules are additional values appended to a
// rule set, never a different type.
type Rule struct {
	Name        string       `json:"name"`
	Head        Pattern      `json:"head"`
	Body        []Pattern    `json:"body"`
	Constraints []Constraint `json:"constraints,omitempty"`
}

// BodyVars returns the set of variables occurring in any body pattern.
func (r Rule) BodyVars() map[string]bool {
	vars := make(map[string]bool)
	for _, p := range r.Body {
		for _, v := range p.Vars() {
			vars[v] = true
		}
	}
	return vars
}

// UnboundHeadVars returns head variables that no body pattern binds.
// A rule with any is not range-restricted.
func (r Rule) UnboundHeadVars() []string {
	body := r.BodyVars()
	var out []string
	for _, v := range r.Head.Vars() {
		if !body[v] {
			out = append(out, v)
		}
	}
	return out
}

// UnboundConstraintVars returns constraint variables that no body pattern binds.
func (r Rule) UnboundConstraintVars() []string {
	body := r.BodyVars()
	var out []string
	for _, c := range r.Constraints {
		for _, v := range c.Vars() {
			if !body[v] && !contains(out, v) {
				out = append(out, v)
			}
		}
	}
	return out
}

// Admits reports whether every constraint holds under b.
func (r Rule) Admits(b Bindings, kindOf KindFunc) bool {
	for _, c := range r.Constraints {
		if !c.Holds(b, kindOf) {
			return false
		}
	}
	return true
}
