package compiler

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/entail/internal/ir"
	"github.com/roach88/entail/internal/vocab"
)

//go:embed schema.cue
var schemaCUE string

// Schema returns the CUE schema rule files are unified with, built in ctx.
func Schema(ctx *cue.Context) cue.Value {
	return ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
}

// CompileSource compiles a rule file held in memory.
//
//	prefix: ex: "http://www.example.org/#"
//	rule: "ex-subclass": {
//		head: ["?x", "rdf:type", "?c2"]
//		body: [["?x", "rdf:type", "?c1"], ["?c1", "ex:subClassOf", "?c2"]]
//		where: [{ne: ["?c1", "?c2"]}]
//	}
func CompileSource(filename string, src []byte, reg *vocab.Registry) ([]ir.Rule, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	return CompileValue(v, reg)
}

// CompileValue compiles a built CUE value holding prefix and rule fields.
// Prefixes are registered with reg before any term is interned. Rules are
// returned in declaration order.
func CompileValue(v cue.Value, reg *vocab.Registry) ([]ir.Rule, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	v = v.Unify(Schema(v.Context()))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	if err := registerPrefixes(v, reg); err != nil {
		return nil, err
	}

	rulesVal := v.LookupPath(cue.ParsePath("rule"))
	if !rulesVal.Exists() {
		return nil, &CompileError{
			Field:   "rule",
			Message: "at least one rule is required",
			Pos:     v.Pos(),
		}
	}
	iter, err := rulesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var out []ir.Rule
	for iter.Next() {
		r, err := CompileRule(iter.Selector().Unquoted(), iter.Value(), reg)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func registerPrefixes(v cue.Value, reg *vocab.Registry) error {
	prefixVal := v.LookupPath(cue.ParsePath("prefix"))
	if !prefixVal.Exists() {
		return nil
	}
	iter, err := prefixVal.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	type binding struct{ prefix, ns string }
	var bs []binding
	for iter.Next() {
		ns, err := iter.Value().String()
		if err != nil {
			return formatCUEError(err)
		}
		bs = append(bs, binding{iter.Selector().Unquoted(), ns})
	}
	sort.Slice(bs, func(i, j int) bool { return bs[i].prefix < bs[j].prefix })
	for _, b := range bs {
		reg.AddPrefix(b.prefix, b.ns)
	}
	return nil
}

// CompileRule converts one rule struct into an ir.Rule. The result is not
// checked for range restriction; rules.New and ValidateRules do that.
func CompileRule(name string, v cue.Value, reg *vocab.Registry) (ir.Rule, error) {
	if err := v.Err(); err != nil {
		return ir.Rule{}, formatCUEError(err)
	}
	r := ir.Rule{Name: name}

	head, err := parsePattern(v.LookupPath(cue.ParsePath("head")), reg)
	if err != nil {
		return ir.Rule{}, withField(err, fmt.Sprintf("rule.%s.head", name))
	}
	r.Head = head

	bodyIter, err := v.LookupPath(cue.ParsePath("body")).List()
	if err != nil {
		return ir.Rule{}, formatCUEError(err)
	}
	for i := 0; bodyIter.Next(); i++ {
		p, err := parsePattern(bodyIter.Value(), reg)
		if err != nil {
			return ir.Rule{}, withField(err, fmt.Sprintf("rule.%s.body[%d]", name, i))
		}
		r.Body = append(r.Body, p)
	}

	whereVal := v.LookupPath(cue.ParsePath("where"))
	if whereVal.Exists() {
		whereIter, err := whereVal.List()
		if err != nil {
			return ir.Rule{}, formatCUEError(err)
		}
		for i := 0; whereIter.Next(); i++ {
			c, err := parseConstraint(whereIter.Value(), reg)
			if err != nil {
				return ir.Rule{}, withField(err, fmt.Sprintf("rule.%s.where[%d]", name, i))
			}
			r.Constraints = append(r.Constraints, c)
		}
	}
	return r, nil
}

func parsePattern(v cue.Value, reg *vocab.Registry) (ir.Pattern, error) {
	iter, err := v.List()
	if err != nil {
		return ir.Pattern{}, formatCUEError(err)
	}
	var slots []ir.Slot
	for iter.Next() {
		s, err := parseSlot(iter.Value(), reg)
		if err != nil {
			return ir.Pattern{}, err
		}
		slots = append(slots, s)
	}
	if len(slots) != 3 {
		return ir.Pattern{}, &CompileError{
			Message: fmt.Sprintf("pattern needs 3 terms, got %d", len(slots)),
			Pos:     v.Pos(),
		}
	}
	return ir.P(slots[0], slots[1], slots[2]), nil
}

// parseSlot reads "?name" as a variable and anything else as a term.
func parseSlot(v cue.Value, reg *vocab.Registry) (ir.Slot, error) {
	s, err := v.String()
	if err != nil {
		return ir.Slot{}, formatCUEError(err)
	}
	if name, ok := strings.CutPrefix(s, "?"); ok {
		if name == "" {
			return ir.Slot{}, &CompileError{Message: `variable name missing after "?"`, Pos: v.Pos()}
		}
		return ir.Var(name), nil
	}
	if ir.KindOf(s) == ir.KindIRI && !strings.HasPrefix(s, "<") {
		prefix, _, ok := strings.Cut(s, ":")
		if !ok {
			return ir.Slot{}, &CompileError{
				Message: fmt.Sprintf("%q is not a variable, <iri>, prefixed name or literal", s),
				Pos:     v.Pos(),
			}
		}
		if _, known := reg.Namespace(prefix); !known {
			return ir.Slot{}, &CompileError{
				Message: fmt.Sprintf("unknown prefix %q", prefix),
				Pos:     v.Pos(),
			}
		}
	}
	return ir.Bound(reg.Intern(s)), nil
}

func parseConstraint(v cue.Value, reg *vocab.Registry) (ir.Constraint, error) {
	if ne := v.LookupPath(cue.ParsePath("ne")); ne.Exists() {
		iter, err := ne.List()
		if err != nil {
			return ir.Constraint{}, formatCUEError(err)
		}
		var ops []ir.Slot
		for iter.Next() {
			s, err := parseSlot(iter.Value(), reg)
			if err != nil {
				return ir.Constraint{}, err
			}
			ops = append(ops, s)
		}
		return ir.NotEqual(ops[0], ops[1]), nil
	}

	varStr, err := v.LookupPath(cue.ParsePath("var")).String()
	if err != nil {
		return ir.Constraint{}, formatCUEError(err)
	}
	name, ok := strings.CutPrefix(varStr, "?")
	if !ok || name == "" {
		return ir.Constraint{}, &CompileError{
			Message: fmt.Sprintf("kind constraint needs a variable, got %q", varStr),
			Pos:     v.Pos(),
		}
	}

	negate := false
	kindVal := v.LookupPath(cue.ParsePath("is"))
	if !kindVal.Exists() {
		kindVal = v.LookupPath(cue.ParsePath("not"))
		negate = true
	}
	kindStr, err := kindVal.String()
	if err != nil {
		return ir.Constraint{}, formatCUEError(err)
	}
	kind, ok := ir.ParseTermKind(kindStr)
	if !ok {
		return ir.Constraint{}, &CompileError{Message: fmt.Sprintf("unknown term kind %q", kindStr), Pos: kindVal.Pos()}
	}
	if negate {
		return ir.NotKind(name, kind), nil
	}
	return ir.IsKind(name, kind), nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// withField fills in the field path of a CompileError that has none.
func withField(err error, field string) error {
	if ce, ok := err.(*CompileError); ok && ce.Field == "" {
		ce.Field = field
	}
	return err
}

// FormatCUEError converts a CUE evaluation error into a *CompileError
// carrying the first error's position.
func FormatCUEError(err error) error {
	return formatCUEError(err)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Report the first error, with its position when CUE has one
	firstErr := errs[0]
	ce := &CompileError{Field: "cue", Message: firstErr.Error()}
	if positions := errors.Positions(firstErr); len(positions) > 0 {
		ce.Pos = positions[0]
	}
	return ce
}
