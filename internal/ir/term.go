package ir

import "strings"

// Term is an interned identifier for an IRI, blank node or literal.
// Ids are issued by a vocab.Registry and are only meaningful relative to it.
type Term uint32

// NoTerm is the zero Term. Registries never issue it.
const NoTerm Term = 0

// Valid reports whether t is an issued id.
func (t Term) Valid() bool {
	return t != NoTerm
}

// TermKind classifies a term by its lexical form.
type TermKind uint8

const (
	// KindIRI is a named resource (absolute or prefixed IRI).
	KindIRI TermKind = iota + 1

	// KindBlank is a blank node, written "_:label".
	KindBlank

	// KindLiteral is a quoted literal, optionally with @lang or ^^datatype.
	KindLiteral
)

// String returns the lowercase kind name used in rule files and logs.
func (k TermKind) String() string {
	switch k {
	case KindIRI:
		return "iri"
	case KindBlank:
		return "blank"
	case KindLiteral:
		return "literal"
	default:
		return "unknown"
	}
}

// ParseTermKind maps a kind name back to a TermKind.
func ParseTermKind(s string) (TermKind, bool) {
	switch s {
	case "iri":
		return KindIRI, true
	case "blank":
		return KindBlank, true
	case "literal":
		return KindLiteral, true
	default:
		return 0, false
	}
}

// KindOf classifies a lexical form.
//
//	"_:b0"         → KindBlank
//	"\"hello\"@en" → KindLiteral
//	"ex:Article"   → KindIRI
func KindOf(lexical string) TermKind {
	switch {
	case strings.HasPrefix(lexical, "_:"):
		return KindBlank
	case strings.HasPrefix(lexical, `"`):
		return KindLiteral
	default:
		return KindIRI
	}
}
