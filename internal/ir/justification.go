package ir

// Justification records one derivation of a triple: the rule, the variable
// binding of its body and the body triples that matched (in body order).
//
// A derived triple may have several justifications. Identity is the pair
// (Rule, Bindings); see JustificationID.
type Justification struct {
	ID       string   `json:"id"`
	Triple   Triple   `json:"triple"`
	Rule     string   `json:"rule"`
	Bindings Bindings `json:"bindings"`
	Sources  []Triple `json:"sources"`
	Seq      int64    `json:"seq"` // Logical clock at recording time
}

// NewJustification builds a justification and computes its ID.
func NewJustification(rule string, head Triple, b Bindings, sources []Triple, seq int64) Justification {
	return Justification{
		ID:       JustificationID(rule, b),
		Triple:   head,
		Rule:     rule,
		Bindings: b,
		Sources:  sources,
		Seq:      seq,
	}
}

// DependsOn reports whether t is one of the supporting triples.
func (j Justification) DependsOn(t Triple) bool {
	for _, s := range j.Sources {
		if s == t {
			return true
		}
	}
	return false
}

// SelfSupporting reports whether the justification cites its own triple.
// Such derivations add nothing and are never recorded.
func (j Justification) SelfSupporting() bool {
	return j.DependsOn(j.Triple)
}
