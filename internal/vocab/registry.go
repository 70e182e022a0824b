package vocab

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/entail/internal/ir"
)

// Well-known namespaces.
const (
	RDFNamespace  = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	RDFSNamespace = "http://www.w3.org/2000/01/rdf-schema#"
)

// Std holds the ids of the vocabulary the built-in rules are written over.
type Std struct {
	Type          ir.Term
	SubClassOf    ir.Term
	SubPropertyOf ir.Term
	Range         ir.Term
	Domain        ir.Term
}

// UnknownTermError is returned when resolving an id the registry never issued.
type UnknownTermError struct {
	Term ir.Term
}

func (e *UnknownTermError) Error() string {
	return fmt.Sprintf("unknown term id %d", e.Term)
}

// Registry interns lexical terms. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	ids      map[string]ir.Term
	lexical  []string // index = id; slot 0 unused
	kinds    []ir.TermKind
	prefixes map[string]string // prefix → namespace
	std      Std
}

// Option configures a Registry.
type Option func(*Registry)

// WithPrefix registers a prefix, e.g. WithPrefix("ex", "http://www.example.org/#").
func WithPrefix(prefix, namespace string) Option {
	return func(r *Registry) {
		r.prefixes[prefix] = namespace
	}
}

// New creates a Registry with the rdf/rdfs prefixes and standard terms.
func New(opts ...Option) *Registry {
	r := &Registry{
		ids:     make(map[string]ir.Term),
		lexical: []string{""},
		kinds:   []ir.TermKind{0},
		prefixes: map[string]string{
			"rdf":  RDFNamespace,
			"rdfs": RDFSNamespace,
		},
	}
	for _, opt := range opts {
		opt(r)
	}

	r.std = Std{
		Type:          r.Intern("rdf:type"),
		SubClassOf:    r.Intern("rdfs:subClassOf"),
		SubPropertyOf: r.Intern("rdfs:subPropertyOf"),
		Range:         r.Intern("rdfs:range"),
		Domain:        r.Intern("rdfs:domain"),
	}
	return r
}

// Std returns the standard RDF/RDFS term ids.
func (r *Registry) Std() Std {
	return r.std
}

// Intern returns the id for lexical, creating it on first use.
func (r *Registry) Intern(lexical string) ir.Term {
	key := r.Normalize(lexical)

	r.mu.RLock()
	id, ok := r.ids[key]
	r.mu.RUnlock()
	if ok {
		return id
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.ids[key]; ok {
		return id
	}
	id = ir.Term(len(r.lexical))
	r.ids[key] = id
	r.lexical = append(r.lexical, key)
	r.kinds = append(r.kinds, ir.KindOf(key))
	return id
}

// Lookup returns the id for lexical without creating one.
func (r *Registry) Lookup(lexical string) (ir.Term, bool) {
	key := r.Normalize(lexical)
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.ids[key]
	return id, ok
}

// Extend interns application-defined terms (custom predicates or classes)
// and returns their ids in argument order.
func (r *Registry) Extend(terms ...string) []ir.Term {
	ids := make([]ir.Term, len(terms))
	for i, t := range terms {
		ids[i] = r.Intern(t)
	}
	return ids
}

// Resolve returns the normalized lexical form of t.
func (r *Registry) Resolve(t ir.Term) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !t.Valid() || int(t) >= len(r.lexical) {
		return "", &UnknownTermError{Term: t}
	}
	return r.lexical[t], nil
}

// MustResolve is like Resolve but panics on an unknown id.
// Unknown ids only arise from mixing registries, which is a programming error.
func (r *Registry) MustResolve(t ir.Term) string {
	s, err := r.Resolve(t)
	if err != nil {
		panic(err)
	}
	return s
}

// Kind returns the kind of t, or 0 for an unknown id.
func (r *Registry) Kind(t ir.Term) ir.TermKind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !t.Valid() || int(t) >= len(r.kinds) {
		return 0
	}
	return r.kinds[t]
}

// Len returns the number of interned terms.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.lexical) - 1
}

// Normalize returns the canonical lexical form used as the interning key.
func (r *Registry) Normalize(lexical string) string {
	s := norm.NFC.String(strings.TrimSpace(lexical))
	switch ir.KindOf(s) {
	case ir.KindLiteral, ir.KindBlank:
		return s
	}
	if strings.HasPrefix(s, "<") && strings.HasSuffix(s, ">") {
		return s[1 : len(s)-1]
	}
	return r.expand(s)
}

// expand replaces a registered prefix with its namespace.
func (r *Registry) expand(s string) string {
	i := strings.IndexByte(s, ':')
	if i < 0 || strings.HasPrefix(s[i+1:], "//") {
		return s
	}
	r.mu.RLock()
	ns, ok := r.prefixes[s[:i]]
	r.mu.RUnlock()
	if !ok {
		return s
	}
	return ns + s[i+1:]
}

// Compact renders t for humans: prefixed when a registered namespace
// matches, otherwise "<iri>". Literals and blank nodes are returned as is.
// Compact output interns back to the same id.
func (r *Registry) Compact(t ir.Term) string {
	lex, err := r.Resolve(t)
	if err != nil {
		return fmt.Sprintf("?%d", t)
	}
	if ir.KindOf(lex) != ir.KindIRI {
		return lex
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	best, bestNS := "", ""
	for prefix, ns := range r.prefixes {
		if strings.HasPrefix(lex, ns) && len(ns) > len(bestNS) {
			best, bestNS = prefix, ns
		} else if strings.HasPrefix(lex, ns) && len(ns) == len(bestNS) && prefix < best {
			best = prefix
		}
	}
	if bestNS != "" {
		return best + ":" + lex[len(bestNS):]
	}
	return "<" + lex + ">"
}

// Format renders a triple as "s p o" using Compact.
func (r *Registry) Format(t ir.Triple) string {
	return r.Compact(t.S) + " " + r.Compact(t.P) + " " + r.Compact(t.O)
}

// Prefixes returns the registered prefixes sorted by name.
func (r *Registry) Prefixes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.prefixes))
	for p := range r.prefixes {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// AddPrefix registers a prefix after construction. Terms interned earlier
// keep their ids; only later Normalize and Compact calls see the prefix.
func (r *Registry) AddPrefix(prefix, namespace string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prefixes[prefix] = namespace
}

// Namespace returns the namespace for prefix.
func (r *Registry) Namespace(prefix string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ns, ok := r.prefixes[prefix]
	return ns, ok
}
