package cli

import (
	"github.com/roach88/entail/internal/ir"
	"github.com/roach88/entail/internal/vocab"
)

// RenderedRule is a rule with its terms written back in lexical form.
type RenderedRule struct {
	Name  string   `json:"name"`
	Head  string   `json:"head"`
	Body  []string `json:"body"`
	Where []string `json:"where,omitempty"`
}

func renderRules(reg *vocab.Registry, rs []ir.Rule) []RenderedRule {
	out := make([]RenderedRule, len(rs))
	for i, r := range rs {
		out[i] = renderRule(reg, r)
	}
	return out
}

func renderRule(reg *vocab.Registry, r ir.Rule) RenderedRule {
	rr := RenderedRule{Name: r.Name, Head: renderPattern(reg, r.Head)}
	for _, p := range r.Body {
		rr.Body = append(rr.Body, renderPattern(reg, p))
	}
	for _, c := range r.Constraints {
		rr.Where = append(rr.Where, renderConstraint(reg, c))
	}
	return rr
}

func renderSlot(reg *vocab.Registry, s ir.Slot) string {
	if s.IsVar() {
		return "?" + s.Var
	}
	return reg.Compact(s.Term)
}

func renderPattern(reg *vocab.Registry, p ir.Pattern) string {
	return renderSlot(reg, p.S) + " " + renderSlot(reg, p.P) + " " + renderSlot(reg, p.O)
}

func renderConstraint(reg *vocab.Registry, c ir.Constraint) string {
	switch c.Op {
	case ir.OpNotEqual:
		return renderSlot(reg, c.Left) + " != " + renderSlot(reg, c.Right)
	case ir.OpIsKind:
		return renderSlot(reg, c.Left) + " is " + c.Kind.String()
	case ir.OpNotKind:
		return renderSlot(reg, c.Left) + " is not " + c.Kind.String()
	default:
		return c.String()
	}
}

// renderBindings writes each binding as "?name=term" in name order.
func renderBindings(reg *vocab.Registry, b ir.Bindings) []string {
	names := b.Names()
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = "?" + n + "=" + reg.Compact(b[n])
	}
	return out
}
