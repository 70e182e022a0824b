package ir

import "fmt"

// ConstraintOp identifies a constraint kind.
type ConstraintOp string

const (
	// OpNotEqual requires Left and Right to resolve to different terms.
	OpNotEqual ConstraintOp = "neq"

	// OpIsKind requires Left to resolve to a term of Kind.
	OpIsKind ConstraintOp = "kind"

	// OpNotKind requires Left to resolve to a term that is not of Kind.
	OpNotKind ConstraintOp = "not_kind"
)

// Constraint is a predicate over a binding set, evaluated after pattern
// matching. Binding sets failing any constraint are discarded.
type Constraint struct {
	Op    ConstraintOp `json:"op"`
	Left  Slot         `json:"left"`
	Right Slot         `json:"right,omitempty"`
	Kind  TermKind     `json:"kind,omitempty"`
}

// NotEqual builds an inequality constraint between two slots.
func NotEqual(left, right Slot) Constraint {
	return Constraint{Op: OpNotEqual, Left: left, Right: right}
}

// IsKind requires variable v to be bound to a term of kind k.
func IsKind(v string, k TermKind) Constraint {
	return Constraint{Op: OpIsKind, Left: Var(v), Kind: k}
}

// NotKind requires variable v to be bound to a term that is not of kind k.
func NotKind(v string, k TermKind) Constraint {
	return Constraint{Op: OpNotKind, Left: Var(v), Kind: k}
}

// Vars returns the variables the constraint reads.
func (c Constraint) Vars() []string {
	var out []string
	if c.Left.IsVar() {
		out = append(out, c.Left.Var)
	}
	if c.Op == OpNotEqual && c.Right.IsVar() && !contains(out, c.Right.Var) {
		out = append(out, c.Right.Var)
	}
	return out
}

// KindFunc reports the kind of an interned term.
type KindFunc func(Term) TermKind

// Holds evaluates c under b. An unbound variable never satisfies a
// constraint; rule validation rules that case out before evaluation.
func (c Constraint) Holds(b Bindings, kindOf KindFunc) bool {
	left, ok := c.Left.Resolve(b)
	if !ok {
		return false
	}
	switch c.Op {
	case OpNotEqual:
		right, ok := c.Right.Resolve(b)
		return ok && left != right
	case OpIsKind:
		return kindOf != nil && kindOf(left) == c.Kind
	case OpNotKind:
		return kindOf != nil && kindOf(left) != c.Kind
	default:
		return false
	}
}

func (c Constraint) String() string {
	switch c.Op {
	case OpNotEqual:
		return fmt.Sprintf("%s != %s", c.Left, c.Right)
	case OpIsKind:
		return fmt.Sprintf("%s is %s", c.Left, c.Kind)
	case OpNotKind:
		return fmt.Sprintf("%s is not %s", c.Left, c.Kind)
	default:
		return string(c.Op)
	}
}
